package exec

import (
	"sort"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/binder"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// Executor runs a Bound Plan's DML statement against the catalog and
// store, composing the fixed operator pipeline from §4.F.
type Executor struct {
	cat *catalog.Catalog
	st  *store.Store
}

func New(cat *catalog.Catalog, st *store.Store) *Executor {
	return &Executor{cat: cat, st: st}
}

// Result is what a statement produced: either a row set (SELECT) or a
// rows-affected count (INSERT/UPDATE/DELETE), plus the access paths
// chosen for the debug hook scenario.
type Result struct {
	Rows         []Row
	RowsAffected int
	AccessPaths  []AccessPath
}

func (e *Executor) Execute(plan *binder.Plan) (*Result, error) {
	switch {
	case plan.Select != nil:
		return e.execSelect(plan.Select)
	case plan.Insert != nil:
		return e.execInsert(plan.Insert)
	case plan.Update != nil:
		return e.execUpdate(plan.Update)
	case plan.Delete != nil:
		return e.execDelete(plan.Delete)
	default:
		return nil, errs.New(errs.KindParseError, "bound plan carries no executable DML statement")
	}
}

func (e *Executor) execSelect(plan *binder.SelectPlan) (*Result, error) {
	bindings, err := bindingsFor(e.cat, plan.From, plan.Join)
	if err != nil {
		return nil, err
	}

	var rowIter RowIter
	var paths []AccessPath

	if plan.Join == nil {
		it, path, err := chooseAccessPath(e.st, bindings[0].Table, bindings[0].Alias, plan.Where)
		if err != nil {
			return nil, err
		}
		rowIter, paths = it, []AccessPath{path}
	} else {
		rowIter, paths, err = e.buildJoin(plan, bindings)
		if err != nil {
			return nil, err
		}
	}

	filtered := &filterIter{src: rowIter, bindings: bindings, pred: plan.Where}
	rows, err := drain(filtered)
	if err != nil {
		return nil, err
	}

	if plan.Grouped {
		rows, err = runGroupAggregate(rows, plan, bindings)
		if err != nil {
			return nil, err
		}
		if plan.Having != nil {
			var kept []Row
			for _, r := range rows {
				ok, err := evalPredicate(r, bindings, plan.Having, r)
				if err != nil {
					return nil, err
				}
				if ok {
					kept = append(kept, r)
				}
			}
			rows = kept
		}
	}

	if len(plan.OrderBy) > 0 {
		if err := sortRows(rows, bindings, plan.OrderBy); err != nil {
			return nil, err
		}
	}

	return &Result{Rows: project(rows, plan.Projections), AccessPaths: paths}, nil
}

// buildJoin picks the driver side (index beats scan; ties go to the
// FROM side) and wires the other side as the probe, per §4.F.2.
func (e *Executor) buildJoin(plan *binder.SelectPlan, bindings []tableBinding) (RowIter, []AccessPath, error) {
	fromIter, fromPath, err := chooseAccessPath(e.st, bindings[0].Table, bindings[0].Alias, plan.Where)
	if err != nil {
		return nil, nil, err
	}
	otherIter, otherPath, err := chooseAccessPath(e.st, bindings[1].Table, bindings[1].Alias, plan.Where)
	if err != nil {
		return nil, nil, err
	}

	fromIsDriver := true
	if otherPath.Kind == "IndexRange" && fromPath.Kind != "IndexRange" {
		fromIsDriver = false
	}

	driverBinding, probeBinding := bindings[0], bindings[1]
	driverIter, probeIter := fromIter, otherIter
	driverJoinCol, probeJoinCol := plan.JoinLeft.Column.Name, plan.JoinRight.Column.Name
	if plan.JoinLeft.Alias != bindings[0].Alias {
		driverJoinCol, probeJoinCol = plan.JoinRight.Column.Name, plan.JoinLeft.Column.Name
	}
	if !fromIsDriver {
		driverBinding, probeBinding = bindings[1], bindings[0]
		driverIter, probeIter = otherIter, fromIter
		driverJoinCol, probeJoinCol = probeJoinCol, driverJoinCol
	}

	j := &joinIter{
		driver:       driverIter,
		driverAlias:  driverBinding.Alias,
		driverCol:    driverJoinCol,
		probeAlias:   probeBinding.Alias,
		probeCol:     probeJoinCol,
		probeIndexed: probeBinding.Table.HasIndex(probeJoinCol),
		probeTable:   probeBinding.Table,
		st:           e.st,
		probeSource:  probeIter,
	}
	return j, []AccessPath{fromPath, otherPath}, nil
}

func sortRows(rows []Row, bindings []tableBinding, orderBy []ast.OrderKey) error {
	keys := make([]string, len(orderBy))
	for i, ok := range orderBy {
		k, _, err := resolveKey(bindings, ok.Col)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for idx, k := range keys {
			cmp := types.Compare(rows[i][k], rows[j][k])
			if cmp == 0 {
				continue
			}
			if orderBy[idx].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return nil
}

func project(rows []Row, projs []binder.ResolvedProj) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		pr := make(Row, len(projs))
		for _, p := range projs {
			if p.Agg != nil {
				pr[p.Label] = r[p.Label]
			} else {
				pr[p.Label] = r[p.Col.Alias+"."+p.Col.Column.Name]
			}
		}
		out[i] = pr
	}
	return out
}
