package binder

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// Bind resolves stmt against cat (and, for INSERT, against live index
// contents in st) and returns a Bound Plan. DDL statements pass through
// unannotated: Catalog's Create/Drop methods enforce their own invariants
// at mutation time, so the DDL manager calls them directly.
func Bind(cat *catalog.Catalog, st *store.Store, stmt ast.Stmt) (*Plan, error) {
	switch s := stmt.(type) {
	case *ast.CreateTable, *ast.DropTable, *ast.CreateIndex, *ast.DropIndex:
		return &Plan{Stmt: stmt}, nil
	case *ast.Insert:
		return bindInsert(cat, st, s)
	case *ast.Select:
		return bindSelect(cat, s)
	case *ast.Delete:
		return bindDelete(cat, s)
	case *ast.Update:
		return bindUpdate(cat, st, s)
	default:
		return nil, errs.New(errs.KindParseError, "unsupported statement type")
	}
}

func bindInsert(cat *catalog.Catalog, st *store.Store, s *ast.Insert) (*Plan, error) {
	t, ok := cat.Lookup(s.Table)
	if !ok {
		return nil, errs.New(errs.KindUnknownTable, "unknown table %q", s.Table)
	}

	var cols []catalog.Column
	if s.Columns == nil {
		cols = append([]catalog.Column(nil), t.Columns...)
	} else {
		if len(s.Columns) != len(t.Columns) {
			return nil, errs.New(errs.KindTypeMismatch, "INSERT into %q must supply all %d columns, got %d (NULLs are not supported)", s.Table, len(t.Columns), len(s.Columns))
		}
		seen := make(map[string]bool, len(s.Columns))
		for _, name := range s.Columns {
			c, ok := t.Column(name)
			if !ok {
				return nil, errs.New(errs.KindUnknownColumn, "unknown column %q.%q", s.Table, name)
			}
			if seen[name] {
				return nil, errs.New(errs.KindTypeMismatch, "column %q listed twice in INSERT", name)
			}
			seen[name] = true
			cols = append(cols, c)
		}
	}

	if len(s.Values) != len(cols) {
		return nil, errs.New(errs.KindTypeMismatch, "INSERT into %q expects %d values, got %d", s.Table, len(cols), len(s.Values))
	}

	values := make([]types.Value, len(cols))
	var pkValue types.Value
	havePK := false
	for i, col := range cols {
		v := s.Values[i].Value()
		if v.Kind != col.Type {
			return nil, errs.New(errs.KindTypeMismatch, "column %q expects %v, got %v", col.Name, col.Type, v.Kind)
		}
		values[i] = v
		if col.PK {
			pkValue = v
			havePK = true
		}
	}
	if !havePK {
		return nil, errs.New(errs.KindPKViolation, "INSERT into %q is missing a value for primary key %q", s.Table, t.PKColumn())
	}

	pkIx, err := st.OpenIndex(t.Name, t.PKColumn(), pkValue.Kind)
	if err != nil {
		return nil, err
	}
	if _, found, err := pkIx.Get(pkValue); err != nil {
		return nil, err
	} else if found {
		return nil, errs.New(errs.KindPKViolation, "row with primary key %v already exists in %q", pkValue, s.Table)
	}

	for i, col := range cols {
		if col.FK == nil {
			continue
		}
		refTable, ok := cat.Lookup(col.FK.Table)
		if !ok {
			return nil, errs.New(errs.KindUnknownTable, "unknown table %q referenced by foreign key %q", col.FK.Table, col.Name)
		}
		refIx, err := st.OpenIndex(refTable.Name, col.FK.Column, values[i].Kind)
		if err != nil {
			return nil, err
		}
		if _, found, err := refIx.Get(values[i]); err != nil {
			return nil, err
		} else if !found {
			return nil, errs.New(errs.KindFKViolation, "value %v for %q.%q has no matching row in %q.%q", values[i], s.Table, col.Name, col.FK.Table, col.FK.Column)
		}
	}

	return &Plan{Stmt: s, Insert: &InsertPlan{Table: t, Columns: cols, Values: values}}, nil
}

func bindSelect(cat *catalog.Catalog, s *ast.Select) (*Plan, error) {
	sc := newScope()

	fromTable, ok := cat.Lookup(s.From.Table)
	if !ok {
		return nil, errs.New(errs.KindUnknownTable, "unknown table %q", s.From.Table)
	}
	fromAlias := s.From.Table
	if s.From.Alias != "" {
		fromAlias = s.From.Alias
	}
	sc.add(fromAlias, fromTable)

	var joinLeft, joinRight ResolvedCol
	if s.Join != nil {
		otherTable, ok := cat.Lookup(s.Join.Other.Table)
		if !ok {
			return nil, errs.New(errs.KindUnknownTable, "unknown table %q", s.Join.Other.Table)
		}
		otherAlias := s.Join.Other.Table
		if s.Join.Other.Alias != "" {
			otherAlias = s.Join.Other.Alias
		}
		sc.add(otherAlias, otherTable)

		la, lc, err := sc.resolve(s.Join.OnLeft)
		if err != nil {
			return nil, err
		}
		ra, rc, err := sc.resolve(s.Join.OnRight)
		if err != nil {
			return nil, err
		}
		if lc.Type != rc.Type {
			return nil, errs.New(errs.KindTypeMismatch, "join condition %s = %s compares %v to %v", s.Join.OnLeft, s.Join.OnRight, lc.Type, rc.Type)
		}
		joinLeft = ResolvedCol{Alias: la, Table: sc.byAlias[la].Name, Column: lc}
		joinRight = ResolvedCol{Alias: ra, Table: sc.byAlias[ra].Name, Column: rc}
	}

	multiTable := len(sc.order) > 1
	var projs []ResolvedProj
	isAggProj := false

	if len(s.Projections) == 0 {
		for _, alias := range sc.order {
			t := sc.byAlias[alias]
			for _, col := range t.Columns {
				label := col.Name
				if multiTable {
					label = alias + "." + col.Name
				}
				projs = append(projs, ResolvedProj{
					Col:   &ResolvedCol{Alias: alias, Table: t.Name, Column: col},
					Label: label,
				})
			}
		}
	} else {
		for _, p := range s.Projections {
			if p.Agg != nil {
				isAggProj = true
				alias, col, err := sc.resolve(p.Agg.Col)
				if err != nil {
					return nil, err
				}
				if p.Agg.Func == ast.AggSum && col.Type == types.String {
					return nil, errs.New(errs.KindTypeMismatch, "SUM is not defined for STRING column %q", col.Name)
				}
				projs = append(projs, ResolvedProj{
					Agg:       p.Agg,
					AggTarget: &ResolvedCol{Alias: alias, Table: sc.byAlias[alias].Name, Column: col},
					Label:     p.Agg.String(),
				})
			} else {
				alias, col, err := sc.resolve(*p.Col)
				if err != nil {
					return nil, err
				}
				projs = append(projs, ResolvedProj{
					Col:   &ResolvedCol{Alias: alias, Table: sc.byAlias[alias].Name, Column: col},
					Label: p.Col.String(),
				})
			}
		}
	}

	var groupBy []ResolvedCol
	groupSet := make(map[string]bool)
	for _, g := range s.GroupBy {
		alias, col, err := sc.resolve(g)
		if err != nil {
			return nil, err
		}
		groupBy = append(groupBy, ResolvedCol{Alias: alias, Table: sc.byAlias[alias].Name, Column: col})
		groupSet[alias+"."+col.Name] = true
	}
	grouped := len(groupBy) > 0 || isAggProj

	if len(groupBy) > 0 {
		for _, pr := range projs {
			if pr.Agg != nil {
				continue
			}
			key := pr.Col.Alias + "." + pr.Col.Column.Name
			if !groupSet[key] {
				return nil, errs.New(errs.KindAggregationMisuse, "column %q must appear in GROUP BY or be aggregated", pr.Label)
			}
		}
	} else if isAggProj {
		for _, pr := range projs {
			if pr.Agg == nil {
				return nil, errs.New(errs.KindAggregationMisuse, "cannot mix aggregate and non-aggregate projections without GROUP BY")
			}
		}
	}

	if s.Where != nil {
		if err := checkPredicate(sc, s.Where, false, nil); err != nil {
			return nil, err
		}
	}
	if s.Having != nil {
		if err := checkPredicate(sc, s.Having, true, groupSet); err != nil {
			return nil, err
		}
	}
	for _, ok := range s.OrderBy {
		if _, _, err := sc.resolve(ok.Col); err != nil {
			return nil, err
		}
	}

	return &Plan{Stmt: s, Select: &SelectPlan{
		Scope:       sc,
		Projections: projs,
		From:        s.From,
		Join:        s.Join,
		JoinLeft:    joinLeft,
		JoinRight:   joinRight,
		Where:       s.Where,
		GroupBy:     groupBy,
		Having:      s.Having,
		OrderBy:     s.OrderBy,
		Grouped:     grouped,
	}}, nil
}

func bindDelete(cat *catalog.Catalog, s *ast.Delete) (*Plan, error) {
	t, ok := cat.Lookup(s.Table)
	if !ok {
		return nil, errs.New(errs.KindUnknownTable, "unknown table %q", s.Table)
	}
	sc := newScope()
	sc.add(s.Table, t)
	if s.Where != nil {
		if err := checkPredicate(sc, s.Where, false, nil); err != nil {
			return nil, err
		}
	}
	return &Plan{Stmt: s, Delete: &DeletePlan{Table: t, Where: s.Where}}, nil
}

func bindUpdate(cat *catalog.Catalog, st *store.Store, s *ast.Update) (*Plan, error) {
	t, ok := cat.Lookup(s.Table)
	if !ok {
		return nil, errs.New(errs.KindUnknownTable, "unknown table %q", s.Table)
	}
	sc := newScope()
	sc.add(s.Table, t)

	var assigns []BoundAssignment
	pkAssigned := false
	seen := make(map[string]bool, len(s.Set))
	for _, a := range s.Set {
		col, ok := t.Column(a.Col)
		if !ok {
			return nil, errs.New(errs.KindUnknownColumn, "unknown column %q.%q", s.Table, a.Col)
		}
		if seen[a.Col] {
			return nil, errs.New(errs.KindTypeMismatch, "column %q assigned twice in UPDATE", a.Col)
		}
		seen[a.Col] = true
		v := a.Val.Value()
		if v.Kind != col.Type {
			return nil, errs.New(errs.KindTypeMismatch, "column %q expects %v, got %v", col.Name, col.Type, v.Kind)
		}
		if col.PK {
			pkAssigned = true
		}
		assigns = append(assigns, BoundAssignment{Column: col, Value: v})
	}

	// Whether reassigning the primary key is permitted depends on whether
	// the specific row being updated is referenced, not on whether the
	// schema carries any FK pointing at this table at all; that can only
	// be checked at execution time against the matched row, the same way
	// DELETE checks it.

	if s.Where != nil {
		if err := checkPredicate(sc, s.Where, false, nil); err != nil {
			return nil, err
		}
	}

	// UPDATE's row-level PK collision check runs at execution time against
	// the matched snapshot, since it depends on which rows WHERE selects.
	return &Plan{Stmt: s, Update: &UpdatePlan{Table: t, Set: assigns, Where: s.Where, PKAssigned: pkAssigned}}, nil
}

func checkComparison(sc *scope, cmp *ast.Comparison, isHaving bool, groupSet map[string]bool) error {
	var leftType types.Kind
	if cmp.LeftAgg != nil {
		if !isHaving {
			return errs.New(errs.KindAggregationMisuse, "aggregate %s is only allowed in HAVING", cmp.LeftAgg)
		}
		_, col, err := sc.resolve(cmp.LeftAgg.Col)
		if err != nil {
			return err
		}
		if cmp.LeftAgg.Func == ast.AggSum && col.Type == types.String {
			return errs.New(errs.KindTypeMismatch, "SUM is not defined for STRING column %q", col.Name)
		}
		leftType = col.Type
	} else {
		alias, col, err := sc.resolve(cmp.Left)
		if err != nil {
			return err
		}
		if isHaving && len(groupSet) > 0 && !groupSet[alias+"."+col.Name] {
			return errs.New(errs.KindAggregationMisuse, "HAVING column %q must appear in GROUP BY", cmp.Left)
		}
		leftType = col.Type
	}

	if cmp.RightCol != nil {
		_, rcol, err := sc.resolve(*cmp.RightCol)
		if err != nil {
			return err
		}
		if rcol.Type != leftType {
			return errs.New(errs.KindTypeMismatch, "comparison %s compares %v to %v", cmp, leftType, rcol.Type)
		}
	} else if cmp.RightLit != nil {
		if cmp.RightLit.Kind != leftType {
			return errs.New(errs.KindTypeMismatch, "comparison %s compares %v to %v", cmp, leftType, cmp.RightLit.Kind)
		}
	}
	return nil
}

func checkPredicate(sc *scope, pred ast.Predicate, isHaving bool, groupSet map[string]bool) error {
	switch p := pred.(type) {
	case nil:
		return nil
	case *ast.Comparison:
		return checkComparison(sc, p, isHaving, groupSet)
	case *ast.Logical:
		if err := checkPredicate(sc, p.Left, isHaving, groupSet); err != nil {
			return err
		}
		return checkPredicate(sc, p.Right, isHaving, groupSet)
	default:
		return errs.New(errs.KindParseError, "unsupported predicate node")
	}
}
