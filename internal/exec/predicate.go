package exec

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// filterIter re-checks the full WHERE predicate after join, per §4.F.3 —
// any conjunct already used for access-path selection is re-evaluated
// here too, keeping the operator pure.
type filterIter struct {
	src      RowIter
	bindings []tableBinding
	pred     ast.Predicate
}

func (f *filterIter) Next() (Row, bool, error) {
	for {
		row, ok, err := f.src.Next()
		if err != nil || !ok {
			return row, ok, err
		}
		match, err := evalPredicate(row, f.bindings, f.pred, nil)
		if err != nil {
			return nil, false, err
		}
		if match {
			return row, true, nil
		}
	}
}

func (f *filterIter) Close() error { return f.src.Close() }

// evalPredicate evaluates pred against row. aggValues supplies computed
// aggregate results for HAVING predicates that compare an aggregate
// (keyed by the aggregate's canonical String()); nil when evaluating a
// WHERE clause, which the binder never lets reference an aggregate.
func evalPredicate(row Row, bindings []tableBinding, pred ast.Predicate, aggValues Row) (bool, error) {
	switch p := pred.(type) {
	case nil:
		return true, nil
	case *ast.Comparison:
		return evalComparison(row, bindings, p, aggValues)
	case *ast.Logical:
		l, err := evalPredicate(row, bindings, p.Left, aggValues)
		if err != nil {
			return false, err
		}
		r, err := evalPredicate(row, bindings, p.Right, aggValues)
		if err != nil {
			return false, err
		}
		if p.Op == ast.LogicalAnd {
			return l && r, nil
		}
		return l || r, nil
	default:
		return false, errs.New(errs.KindParseError, "unsupported predicate node")
	}
}

func evalComparison(row Row, bindings []tableBinding, c *ast.Comparison, aggValues Row) (bool, error) {
	var left types.Value
	if c.LeftAgg != nil {
		v, ok := aggValues[c.LeftAgg.String()]
		if !ok {
			return false, errs.New(errs.KindAggregationMisuse, "aggregate %s has no computed value", c.LeftAgg)
		}
		left = v
	} else {
		key, _, err := resolveKey(bindings, c.Left)
		if err != nil {
			return false, err
		}
		left = row[key]
	}

	var right types.Value
	if c.RightCol != nil {
		key, _, err := resolveKey(bindings, *c.RightCol)
		if err != nil {
			return false, err
		}
		right = row[key]
	} else {
		right = c.RightLit.Value()
	}

	cmp := types.Compare(left, right)
	switch c.Op {
	case ast.OpEq:
		return cmp == 0, nil
	case ast.OpLt:
		return cmp < 0, nil
	case ast.OpGt:
		return cmp > 0, nil
	default:
		return false, errs.New(errs.KindParseError, "unsupported comparison operator %q", c.Op)
	}
}
