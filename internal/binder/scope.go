// Package binder resolves a parsed AQT against the Catalog (and, for
// INSERT, against live index contents) producing a Bound Plan the
// executor can run without re-checking names or types.
package binder

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
)

// scope is the set of table instances visible to column resolution in
// one statement: one entry for a plain FROM, two for a JOIN (the second
// keyed by its alias, which for a self-join is "<table>_L"/"<table>_R").
type scope struct {
	byAlias map[string]*catalog.Table
	order   []string // alias order, driver side first
}

func newScope() *scope {
	return &scope{byAlias: make(map[string]*catalog.Table)}
}

func (s *scope) add(alias string, t *catalog.Table) {
	s.byAlias[alias] = t
	s.order = append(s.order, alias)
}

// resolve finds the (alias, column) a ColRef names. An unqualified
// reference must match exactly one table in scope.
func (s *scope) resolve(ref ast.ColRef) (alias string, col catalog.Column, err error) {
	if ref.Table != "" {
		t, ok := s.byAlias[ref.Table]
		if !ok {
			return "", catalog.Column{}, errs.New(errs.KindUnknownTable, "unknown table %q", ref.Table)
		}
		c, ok := t.Column(ref.Column)
		if !ok {
			return "", catalog.Column{}, errs.New(errs.KindUnknownColumn, "unknown column %q.%q", ref.Table, ref.Column)
		}
		return ref.Table, c, nil
	}

	var matchAlias string
	var matchCol catalog.Column
	count := 0
	for _, alias := range s.order {
		if c, ok := s.byAlias[alias].Column(ref.Column); ok {
			matchAlias, matchCol = alias, c
			count++
		}
	}
	switch count {
	case 0:
		return "", catalog.Column{}, errs.New(errs.KindUnknownColumn, "unknown column %q", ref.Column)
	case 1:
		return matchAlias, matchCol, nil
	default:
		return "", catalog.Column{}, errs.New(errs.KindUnknownColumn, "ambiguous column %q, qualify with table name", ref.Column)
	}
}
