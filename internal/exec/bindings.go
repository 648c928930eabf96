package exec

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
)

// tableBinding names one table instance visible in a SELECT: the alias
// rows are qualified by, and the catalog table it reads. Mirrors the
// binder's scope, rebuilt here so the executor can resolve ColRefs at
// runtime without depending on the binder's unexported types.
type tableBinding struct {
	Alias string
	Table *catalog.Table
}

func bindingsFor(cat *catalog.Catalog, from ast.TableRef, join *ast.JoinClause) ([]tableBinding, error) {
	ft, ok := cat.Lookup(from.Table)
	if !ok {
		return nil, errs.New(errs.KindUnknownTable, "unknown table %q", from.Table)
	}
	fromAlias := from.Table
	if from.Alias != "" {
		fromAlias = from.Alias
	}
	bindings := []tableBinding{{Alias: fromAlias, Table: ft}}

	if join != nil {
		ot, ok := cat.Lookup(join.Other.Table)
		if !ok {
			return nil, errs.New(errs.KindUnknownTable, "unknown table %q", join.Other.Table)
		}
		otherAlias := join.Other.Table
		if join.Other.Alias != "" {
			otherAlias = join.Other.Alias
		}
		bindings = append(bindings, tableBinding{Alias: otherAlias, Table: ot})
	}
	return bindings, nil
}

// resolveKey finds the Row key ("alias.column") and catalog column a
// ColRef names. Already validated at bind time; errors here would mean
// a binder/executor disagreement.
func resolveKey(bindings []tableBinding, ref ast.ColRef) (string, catalog.Column, error) {
	if ref.Table != "" {
		for _, b := range bindings {
			if b.Alias != ref.Table {
				continue
			}
			c, ok := b.Table.Column(ref.Column)
			if !ok {
				return "", catalog.Column{}, errs.New(errs.KindUnknownColumn, "unknown column %q.%q", ref.Table, ref.Column)
			}
			return b.Alias + "." + ref.Column, c, nil
		}
		return "", catalog.Column{}, errs.New(errs.KindUnknownTable, "unknown table %q", ref.Table)
	}

	var key string
	var col catalog.Column
	count := 0
	for _, b := range bindings {
		if c, ok := b.Table.Column(ref.Column); ok {
			key, col = b.Alias+"."+ref.Column, c
			count++
		}
	}
	if count != 1 {
		return "", catalog.Column{}, errs.New(errs.KindUnknownColumn, "unknown or ambiguous column %q", ref.Column)
	}
	return key, col, nil
}
