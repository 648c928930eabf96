package exec

import (
	"fmt"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/common"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// AccessPath describes how a base table was read, for the debug hook
// scenario ("the executor's chosen access path must be observable").
type AccessPath struct {
	Kind   string // "FullScan" | "IndexRange"
	Table  string
	Index  string // column the path scanned by
	Handle string // common.EncodeHandle(tableID, columnIndex), a stable reference for the debug channel
	Desc   string
}

func columnHandle(t *catalog.Table, column string) string {
	for i, c := range t.Columns {
		if c.Name == column {
			return common.EncodeHandle(t.ID, i)
		}
	}
	return ""
}

type candidate struct {
	col string
	op  ast.CmpOp
	lit types.Value
}

// candidates are gathered only from the top-level predicate shape the
// grammar allows: a lone comparison, or two comparisons ANDed (an OR
// cannot bound either leaf's table without risking missed rows).
func collectCandidates(pred ast.Predicate, alias string, table *catalog.Table) []candidate {
	switch p := pred.(type) {
	case nil:
		return nil
	case *ast.Comparison:
		if c := candidateFromComparison(p, alias, table); c != nil {
			return []candidate{*c}
		}
		return nil
	case *ast.Logical:
		if p.Op != ast.LogicalAnd {
			return nil
		}
		return append(collectCandidates(p.Left, alias, table), collectCandidates(p.Right, alias, table)...)
	default:
		return nil
	}
}

func candidateFromComparison(c *ast.Comparison, alias string, table *catalog.Table) *candidate {
	if c.LeftAgg != nil || c.RightLit == nil {
		return nil
	}
	if c.Left.Table != "" && c.Left.Table != alias {
		return nil
	}
	col, ok := table.Column(c.Left.Column)
	if !ok || !table.HasIndex(col.Name) {
		return nil
	}
	lit := c.RightLit.Value()
	if lit.Kind != col.Type {
		return nil
	}
	return &candidate{col: col.Name, op: c.Op, lit: lit}
}

func boundsFor(c candidate) (*store.Bound, *store.Bound) {
	switch c.op {
	case ast.OpEq:
		return &store.Bound{Value: c.lit, Inclusive: true}, &store.Bound{Value: c.lit, Inclusive: true}
	case ast.OpLt:
		return nil, &store.Bound{Value: c.lit, Inclusive: false}
	case ast.OpGt:
		return &store.Bound{Value: c.lit, Inclusive: false}, nil
	default:
		return nil, nil
	}
}

// chooseAccessPath picks IndexRange over FullScan per §4.F.1: an
// indexed equality/range predicate wins, preferring the PK index over a
// secondary one, ties broken by first-mentioned order.
func chooseAccessPath(st *store.Store, table *catalog.Table, alias string, where ast.Predicate) (RowIter, AccessPath, error) {
	candidates := collectCandidates(where, alias, table)
	pkCol := table.PKColumn()

	best, bestTier := -1, -1
	for i, c := range candidates {
		tier := 1
		if c.col == pkCol {
			tier = 2
		}
		if tier > bestTier {
			bestTier, best = tier, i
		}
	}

	if best == -1 {
		return fullScan(st, table, alias, pkCol)
	}
	return indexRange(st, table, alias, candidates[best])
}

func fullScan(st *store.Store, table *catalog.Table, alias, pkCol string) (RowIter, AccessPath, error) {
	pkColDef, _ := table.Column(pkCol)
	ix, err := st.OpenIndex(table.Name, pkCol, pkColDef.Type)
	if err != nil {
		return nil, AccessPath{}, err
	}
	cur, err := ix.FullScan()
	if err != nil {
		return nil, AccessPath{}, err
	}
	return &pkScanIter{cur: cur, alias: alias}, AccessPath{
		Kind: "FullScan", Table: table.Name, Index: pkCol,
		Handle: columnHandle(table, pkCol),
		Desc:   fmt.Sprintf("FullScan(%s.%s)", table.Name, pkCol),
	}, nil
}

func indexRange(st *store.Store, table *catalog.Table, alias string, c candidate) (RowIter, AccessPath, error) {
	low, high := boundsFor(c)
	colDef, _ := table.Column(c.col)
	ix, err := st.OpenIndex(table.Name, c.col, colDef.Type)
	if err != nil {
		return nil, AccessPath{}, err
	}
	cur, err := ix.Range(low, high)
	if err != nil {
		return nil, AccessPath{}, err
	}
	desc := fmt.Sprintf("IndexRange(%s.%s, %s%v)", table.Name, c.col, c.op, c.lit)
	path := AccessPath{Kind: "IndexRange", Table: table.Name, Index: c.col, Handle: columnHandle(table, c.col), Desc: desc}

	if c.col == table.PKColumn() {
		return &pkScanIter{cur: cur, alias: alias}, path, nil
	}
	pkColDef, _ := table.Column(table.PKColumn())
	pkIx, err := st.OpenIndex(table.Name, table.PKColumn(), pkColDef.Type)
	if err != nil {
		return nil, AccessPath{}, err
	}
	return &secondaryScanIter{cur: cur, pkIx: pkIx, alias: alias, tableName: table.Name}, path, nil
}

// pkScanIter reads rows directly out of the PK index, whose value *is*
// the serialized row.
type pkScanIter struct {
	cur   *store.Cursor
	alias string
}

func (it *pkScanIter) Next() (Row, bool, error) {
	_, raw, ok, err := it.cur.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	decoded, err := types.DecodeRow(raw)
	if err != nil {
		return nil, false, err
	}
	return qualify(decoded, it.alias), true, nil
}

func (it *pkScanIter) Close() error { return it.cur.Close() }

// secondaryScanIter reads a secondary index's (value -> pk set) entries
// and expands each set into one row per member, fetched from the PK
// index.
type secondaryScanIter struct {
	cur       *store.Cursor
	pkIx      *store.Index
	alias     string
	tableName string
	pending   []types.Value
}

func (it *secondaryScanIter) Next() (Row, bool, error) {
	for len(it.pending) == 0 {
		_, raw, ok, err := it.cur.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		pkSet, err := types.DecodePKSet(raw)
		if err != nil {
			return nil, false, err
		}
		it.pending = pkSet
	}
	pk := it.pending[0]
	it.pending = it.pending[1:]

	rawRow, found, err := it.pkIx.Get(pk)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, errs.New(errs.KindStorageCorrupt, "secondary index on %q references missing primary key %v", it.tableName, pk)
	}
	decoded, err := types.DecodeRow(rawRow)
	if err != nil {
		return nil, false, err
	}
	return qualify(decoded, it.alias), true, nil
}

func (it *secondaryScanIter) Close() error { return it.cur.Close() }
