package exec

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/binder"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// execInsert writes the PK entry first, then every secondary index
// entry; any secondary-index failure rolls back the secondary entries
// already written and the PK entry so a partial INSERT never becomes
// visible.
func (e *Executor) execInsert(plan *binder.InsertPlan) (*Result, error) {
	t := plan.Table
	row := make(types.Row, len(plan.Columns))
	for i, c := range plan.Columns {
		row[c.Name] = plan.Values[i]
	}

	pkCol := t.PKColumn()
	pkVal := row[pkCol]
	pkColDef, _ := t.Column(pkCol)
	pkIx, err := e.st.OpenIndex(t.Name, pkCol, pkColDef.Type)
	if err != nil {
		return nil, err
	}
	if _, found, err := pkIx.Get(pkVal); err != nil {
		return nil, err
	} else if found {
		return nil, errs.New(errs.KindPKViolation, "primary key %v already exists in table %q", pkVal, t.Name)
	}

	encRow, err := types.EncodeRow(row)
	if err != nil {
		return nil, err
	}
	if err := pkIx.Put(pkVal, encRow); err != nil {
		return nil, err
	}

	var done []catalog.Column
	for _, col := range t.IndexedColumns() {
		if col == pkCol {
			continue
		}
		colDef, _ := t.Column(col)
		if err := addToSecondaryIndex(e.st, t, colDef, row[col], pkVal); err != nil {
			for _, d := range done {
				removeFromSecondaryIndex(e.st, t, d, row[d.Name], pkVal)
			}
			pkIx.Delete(pkVal)
			return nil, err
		}
		done = append(done, colDef)
	}

	return &Result{RowsAffected: 1}, nil
}

// execUpdate snapshots every matching PK up front (so an in-progress
// cursor never observes a row this statement just rewrote), then
// applies each update: a primary key reassignment is refused if the old
// PK value is still referenced by another table's foreign key (checked
// per row, the same way DELETE checks it, and before the new value is
// checked for a collision), secondary index entries move for any changed
// indexed column (and for every indexed column when the primary key
// changes, since each entry records the PK), and the PK entry itself
// moves last if the primary key is being reassigned.
func (e *Executor) execUpdate(plan *binder.UpdatePlan) (*Result, error) {
	t := plan.Table
	pkCol := t.PKColumn()
	pkColDef, _ := t.Column(pkCol)
	pkIx, err := e.st.OpenIndex(t.Name, pkCol, pkColDef.Type)
	if err != nil {
		return nil, err
	}

	bindings := []tableBinding{{Alias: t.Name, Table: t}}
	matched, err := snapshotMatches(pkIx, t.Name, bindings, plan.Where)
	if err != nil {
		return nil, err
	}

	setCols := make(map[string]types.Value, len(plan.Set))
	for _, a := range plan.Set {
		setCols[a.Column.Name] = a.Value
	}

	for _, oldRow := range matched {
		oldPK := oldRow[pkCol]
		newRow := make(types.Row, len(oldRow))
		for k, v := range oldRow {
			newRow[k] = v
		}
		for col, v := range setCols {
			newRow[col] = v
		}
		newPK := newRow[pkCol]

		if plan.PKAssigned && !types.Equal(newPK, oldPK) {
			if err := e.checkNoReferencingRows(t, oldPK); err != nil {
				return nil, err
			}
			if _, found, err := pkIx.Get(newPK); err != nil {
				return nil, err
			} else if found {
				return nil, errs.New(errs.KindPKViolation, "primary key %v already exists in table %q", newPK, t.Name)
			}
		}

		for _, col := range t.IndexedColumns() {
			if col == pkCol {
				continue
			}
			if types.Equal(oldRow[col], newRow[col]) && types.Equal(oldPK, newPK) {
				continue
			}
			colDef, _ := t.Column(col)
			if err := removeFromSecondaryIndex(e.st, t, colDef, oldRow[col], oldPK); err != nil {
				return nil, err
			}
			if err := addToSecondaryIndex(e.st, t, colDef, newRow[col], newPK); err != nil {
				return nil, err
			}
		}

		encRow, err := types.EncodeRow(newRow)
		if err != nil {
			return nil, err
		}
		if plan.PKAssigned && !types.Equal(newPK, oldPK) {
			if err := pkIx.Delete(oldPK); err != nil {
				return nil, err
			}
			if err := pkIx.Put(newPK, encRow); err != nil {
				return nil, err
			}
		} else {
			if err := pkIx.Put(oldPK, encRow); err != nil {
				return nil, err
			}
		}
	}

	return &Result{RowsAffected: len(matched)}, nil
}

// execDelete refuses rows still referenced by another table's foreign
// key, then removes the PK entry and every secondary index entry for
// each matched row.
func (e *Executor) execDelete(plan *binder.DeletePlan) (*Result, error) {
	t := plan.Table
	pkCol := t.PKColumn()
	pkColDef, _ := t.Column(pkCol)
	pkIx, err := e.st.OpenIndex(t.Name, pkCol, pkColDef.Type)
	if err != nil {
		return nil, err
	}

	bindings := []tableBinding{{Alias: t.Name, Table: t}}
	matched, err := snapshotMatches(pkIx, t.Name, bindings, plan.Where)
	if err != nil {
		return nil, err
	}

	for _, row := range matched {
		pkVal := row[pkCol]
		if err := e.checkNoReferencingRows(t, pkVal); err != nil {
			return nil, err
		}
	}

	for _, row := range matched {
		pkVal := row[pkCol]
		for _, col := range t.IndexedColumns() {
			if col == pkCol {
				continue
			}
			colDef, _ := t.Column(col)
			if err := removeFromSecondaryIndex(e.st, t, colDef, row[col], pkVal); err != nil {
				return nil, err
			}
		}
		if err := pkIx.Delete(pkVal); err != nil {
			return nil, err
		}
	}

	return &Result{RowsAffected: len(matched)}, nil
}

// checkNoReferencingRows scans every table with an FK pointing at t and
// refuses the delete if any row there still carries the value being
// removed. FK columns are never auto-indexed, so an unindexed FK column
// falls back to a full scan of the referencing table's PK index instead
// of silently opening (and always missing in) a fresh empty index file.
func (e *Executor) checkNoReferencingRows(t *catalog.Table, pkVal types.Value) error {
	for _, otherName := range e.cat.ReferencingTables(t.Name) {
		other, ok := e.cat.Lookup(otherName)
		if !ok {
			continue
		}
		for _, col := range other.Columns {
			if col.FK == nil || col.FK.Table != t.Name {
				continue
			}
			if !other.HasIndex(col.Name) {
				referenced, err := e.scanForReference(other, col, pkVal)
				if err != nil {
					return err
				}
				if referenced {
					return errs.New(errs.KindFKViolation, "row %v in %q is referenced by %q.%q", pkVal, t.Name, other.Name, col.Name)
				}
				continue
			}
			ix, err := e.st.OpenIndex(other.Name, col.Name, col.Type)
			if err != nil {
				return err
			}
			if col.Name == other.PKColumn() {
				if _, found, err := ix.Get(pkVal); err != nil {
					return err
				} else if found {
					return errs.New(errs.KindFKViolation, "row %v in %q is referenced by %q.%q", pkVal, t.Name, other.Name, col.Name)
				}
				continue
			}
			raw, found, err := ix.Get(pkVal)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			pkSet, err := types.DecodePKSet(raw)
			if err != nil {
				return err
			}
			if len(pkSet) > 0 {
				return errs.New(errs.KindFKViolation, "row %v in %q is referenced by %q.%q", pkVal, t.Name, other.Name, col.Name)
			}
		}
	}
	return nil
}

// scanForReference full-scans other's PK index looking for a row whose
// col column equals val, for FK columns that carry no index of their own.
func (e *Executor) scanForReference(other *catalog.Table, col catalog.Column, val types.Value) (bool, error) {
	pkCol := other.PKColumn()
	pkColDef, _ := other.Column(pkCol)
	pkIx, err := e.st.OpenIndex(other.Name, pkCol, pkColDef.Type)
	if err != nil {
		return false, err
	}
	cur, err := pkIx.FullScan()
	if err != nil {
		return false, err
	}
	defer cur.Close()

	for {
		_, raw, ok, err := cur.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		row, err := types.DecodeRow(raw)
		if err != nil {
			return false, err
		}
		if types.Equal(row[col.Name], val) {
			return true, nil
		}
	}
}

// snapshotMatches fully materializes every row matching where before
// any mutation, so UPDATE/DELETE never observe their own in-progress
// writes through a live cursor.
func snapshotMatches(pkIx *store.Index, tableName string, bindings []tableBinding, where ast.Predicate) ([]types.Row, error) {
	cur, err := pkIx.FullScan()
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []types.Row
	for {
		_, raw, ok, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		row, err := types.DecodeRow(raw)
		if err != nil {
			return nil, err
		}
		match, err := evalPredicate(qualify(row, tableName), bindings, where, nil)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, row)
		}
	}
	return out, nil
}

// addToSecondaryIndex inserts pk into the pk-set keyed by val in col's
// index, creating the entry if absent.
func addToSecondaryIndex(st *store.Store, t *catalog.Table, col catalog.Column, val, pk types.Value) error {
	ix, err := st.OpenIndex(t.Name, col.Name, col.Type)
	if err != nil {
		return err
	}
	existing, found, err := ix.Get(val)
	if err != nil {
		return err
	}
	var pkSet []types.Value
	if found {
		pkSet, err = types.DecodePKSet(existing)
		if err != nil {
			return err
		}
	}
	pkSet = append(pkSet, pk)
	enc, err := types.EncodePKSet(pkSet)
	if err != nil {
		return err
	}
	return ix.Put(val, enc)
}

// removeFromSecondaryIndex removes pk from the pk-set keyed by val,
// deleting the entry entirely once it empties out.
func removeFromSecondaryIndex(st *store.Store, t *catalog.Table, col catalog.Column, val, pk types.Value) error {
	ix, err := st.OpenIndex(t.Name, col.Name, col.Type)
	if err != nil {
		return err
	}
	existing, found, err := ix.Get(val)
	if err != nil || !found {
		return err
	}
	pkSet, err := types.DecodePKSet(existing)
	if err != nil {
		return err
	}
	filtered := pkSet[:0]
	for _, v := range pkSet {
		if !types.Equal(v, pk) {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return ix.Delete(val)
	}
	enc, err := types.EncodePKSet(filtered)
	if err != nil {
		return err
	}
	return ix.Put(val, enc)
}
