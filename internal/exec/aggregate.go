package exec

import (
	"fmt"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/binder"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// groupAcc accumulates one group's MIN/MAX/SUM running values while rows
// stream in, per §4.F.4.
type groupAcc struct {
	groupVals Row // group-by columns, "alias.column" keyed
	states    map[string]*aggState
}

type aggState struct {
	fn  ast.AggFunc
	has bool
	cur types.Value
}

func newGroupAcc(groupBy []binder.ResolvedCol, first Row) *groupAcc {
	gv := make(Row, len(groupBy))
	for _, g := range groupBy {
		gv[g.Alias+"."+g.Column.Name] = first[g.Alias+"."+g.Column.Name]
	}
	return &groupAcc{groupVals: gv, states: make(map[string]*aggState)}
}

func (g *groupAcc) add(row Row, aggs []*ast.Aggregate, bindings []tableBinding) error {
	for _, a := range aggs {
		key := a.String()
		st, ok := g.states[key]
		if !ok {
			st = &aggState{fn: a.Func}
			g.states[key] = st
		}
		rowKey, _, err := resolveKey(bindings, a.Col)
		if err != nil {
			return err
		}
		v := row[rowKey]
		switch a.Func {
		case ast.AggSum:
			if !st.has {
				st.cur, st.has = v, true
			} else {
				st.cur = sumValues(st.cur, v)
			}
		case ast.AggMin:
			if !st.has || types.Compare(v, st.cur) < 0 {
				st.cur, st.has = v, true
			}
		case ast.AggMax:
			if !st.has || types.Compare(v, st.cur) > 0 {
				st.cur, st.has = v, true
			}
		}
	}
	return nil
}

func sumValues(a, b types.Value) types.Value {
	if a.Kind == types.Int64 {
		return types.NewInt(a.I + b.I)
	}
	return types.NewDouble(a.D + b.D)
}

func (g *groupAcc) result() Row {
	out := g.groupVals.clone()
	for key, st := range g.states {
		out[key] = st.cur
	}
	return out
}

// groupKey builds a canonical string key for a row's group-by tuple,
// or "" for the single implicit group of an aggregate with no GROUP BY.
func groupKey(row Row, groupBy []binder.ResolvedCol) string {
	if len(groupBy) == 0 {
		return ""
	}
	var out string
	for _, g := range groupBy {
		v := row[g.Alias+"."+g.Column.Name]
		out += fmt.Sprintf("%d:%x\x1f", v.Kind, types.EncodeKey(v))
	}
	return out
}

func collectAggregates(plan *binder.SelectPlan) []*ast.Aggregate {
	seen := make(map[string]bool)
	var out []*ast.Aggregate
	add := func(a *ast.Aggregate) {
		if a == nil || seen[a.String()] {
			return
		}
		seen[a.String()] = true
		out = append(out, a)
	}
	for _, p := range plan.Projections {
		add(p.Agg)
	}
	collectPredicateAggregates(plan.Having, add)
	return out
}

func collectPredicateAggregates(pred ast.Predicate, add func(*ast.Aggregate)) {
	switch p := pred.(type) {
	case nil:
		return
	case *ast.Comparison:
		add(p.LeftAgg)
	case *ast.Logical:
		collectPredicateAggregates(p.Left, add)
		collectPredicateAggregates(p.Right, add)
	}
}

// runGroupAggregate consumes rows fully (buffering, per the design
// notes' allowance for group operators) and emits one row per group in
// first-seen order, carrying group-by columns and every referenced
// aggregate's computed value.
func runGroupAggregate(rows []Row, plan *binder.SelectPlan, bindings []tableBinding) ([]Row, error) {
	aggs := collectAggregates(plan)
	groups := make(map[string]*groupAcc)
	var order []string

	for _, row := range rows {
		key := groupKey(row, plan.GroupBy)
		acc, ok := groups[key]
		if !ok {
			acc = newGroupAcc(plan.GroupBy, row)
			groups[key] = acc
			order = append(order, key)
		}
		if err := acc.add(row, aggs, bindings); err != nil {
			return nil, err
		}
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].result())
	}
	return out, nil
}
