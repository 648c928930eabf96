// Package ddl executes CREATE/DROP TABLE and CREATE/DROP INDEX against
// the catalog and the ordered index store. Each operation is a catalog
// mutation plus index file creation or removal. CREATE TABLE, CREATE
// INDEX, and a failed catalog persist in either DROP roll the catalog
// edit back on failure. In DROP TABLE and DROP INDEX, a failure to
// remove an index file after the catalog was persisted is reported as
// DDLFailed without rolling back: the catalog entry stays removed.
package ddl

import (
	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

type Manager struct {
	cat         *catalog.Catalog
	st          *store.Store
	catalogPath string
}

func New(cat *catalog.Catalog, st *store.Store, catalogPath string) *Manager {
	return &Manager{cat: cat, st: st, catalogPath: catalogPath}
}

func (m *Manager) persist() error {
	if err := m.cat.Save(m.catalogPath); err != nil {
		return errs.Wrap(errs.KindDDLFailed, err, "failed to persist catalog")
	}
	return nil
}

// CreateTable registers the table in the catalog, creates its primary
// key index file, then persists. A failure at either later step drops
// the in-memory catalog entry it just added.
func (m *Manager) CreateTable(stmt *ast.CreateTable) error {
	cols := make([]catalog.Column, len(stmt.Columns))
	for i, c := range stmt.Columns {
		col := catalog.Column{Name: c.Name, Type: c.Type, PK: c.PK}
		if c.FK != nil {
			col.FK = &catalog.ForeignKey{Table: c.FK.Table, Column: c.FK.Column}
		}
		cols[i] = col
	}

	t, err := m.cat.CreateTable(stmt.Name, cols)
	if err != nil {
		return err
	}

	pkCol, _ := t.Column(t.PKColumn())
	if _, err := m.st.OpenIndex(t.Name, t.PKColumn(), pkCol.Type); err != nil {
		m.cat.DropTable(stmt.Name)
		return errs.Wrap(errs.KindDDLFailed, err, "failed to create primary key index for table %q", stmt.Name)
	}

	if err := m.persist(); err != nil {
		m.st.DropIndex(t.Name, t.PKColumn())
		m.cat.DropTable(stmt.Name)
		return err
	}
	return nil
}

// DropTable removes the table from the catalog, persists, then removes
// its index files. Catalog.DropTable already refuses with FKViolation
// while another table's FK still references this one.
func (m *Manager) DropTable(stmt *ast.DropTable) error {
	t, ok := m.cat.Lookup(stmt.Name)
	if !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", stmt.Name)
	}
	indexedCols := t.IndexedColumns()

	if err := m.cat.DropTable(stmt.Name); err != nil {
		return err
	}
	if err := m.persist(); err != nil {
		m.cat.RestoreTable(t)
		return err
	}
	for _, col := range indexedCols {
		if err := m.st.DropIndex(t.Name, col); err != nil {
			return errs.Wrap(errs.KindDDLFailed, err, "table %q dropped but failed to remove index file for column %q", stmt.Name, col)
		}
	}
	return nil
}

// CreateIndex registers the index, creates its file, full-scans the
// table's PK index to populate it, then persists. The catalog entry is
// added before the build, so it is in the in-memory catalog while the
// file is populated; any failure removes the partially built file and
// the catalog entry.
func (m *Manager) CreateIndex(stmt *ast.CreateIndex) error {
	t, ok := m.cat.Lookup(stmt.Table)
	if !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", stmt.Table)
	}
	col, ok := t.Column(stmt.Column)
	if !ok {
		return errs.New(errs.KindDDLFailed, "column %q does not exist on table %q", stmt.Column, stmt.Table)
	}

	if err := m.cat.CreateIndex(stmt.Table, stmt.Name, stmt.Column); err != nil {
		return err
	}

	ix, err := m.st.OpenIndex(t.Name, stmt.Column, col.Type)
	if err != nil {
		m.cat.DropIndex(stmt.Table, stmt.Name)
		return errs.Wrap(errs.KindDDLFailed, err, "failed to create index file for %q.%q", stmt.Table, stmt.Column)
	}

	if err := m.buildIndex(t, col, ix); err != nil {
		m.st.DropIndex(t.Name, stmt.Column)
		m.cat.DropIndex(stmt.Table, stmt.Name)
		return errs.Wrap(errs.KindDDLFailed, err, "failed to build index %q on %q.%q", stmt.Name, stmt.Table, stmt.Column)
	}

	if err := m.persist(); err != nil {
		m.st.DropIndex(t.Name, stmt.Column)
		m.cat.DropIndex(stmt.Table, stmt.Name)
		return err
	}
	return nil
}

func (m *Manager) buildIndex(t *catalog.Table, col catalog.Column, ix *store.Index) error {
	pkCol := t.PKColumn()
	pkColDef, _ := t.Column(pkCol)
	pkIx, err := m.st.OpenIndex(t.Name, pkCol, pkColDef.Type)
	if err != nil {
		return err
	}
	cur, err := pkIx.FullScan()
	if err != nil {
		return err
	}
	defer cur.Close()

	for {
		_, raw, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row, err := types.DecodeRow(raw)
		if err != nil {
			return err
		}
		colVal := row[col.Name]
		pkVal := row[pkCol]

		existing, found, err := ix.Get(colVal)
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
		pkSet = append(pkSet, pkVal)
		enc, err := types.EncodePKSet(pkSet)
		if err != nil {
			return err
		}
		if err := ix.Put(colVal, enc); err != nil {
			return err
		}
	}
	return nil
}

// DropIndex removes a named secondary index from the catalog, persists,
// then deletes its file.
func (m *Manager) DropIndex(stmt *ast.DropIndex) error {
	t, ok := m.cat.Lookup(stmt.Table)
	if !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", stmt.Table)
	}
	column, ok := t.IndexColumn(stmt.Name)
	if !ok {
		return errs.New(errs.KindDDLFailed, "no index named %q on table %q", stmt.Name, stmt.Table)
	}

	if err := m.cat.DropIndex(stmt.Table, stmt.Name); err != nil {
		return err
	}
	if err := m.persist(); err != nil {
		m.cat.CreateIndex(stmt.Table, stmt.Name, column)
		return err
	}
	if err := m.st.DropIndex(t.Name, column); err != nil {
		return errs.Wrap(errs.KindDDLFailed, err, "index %q dropped but failed to remove its file", stmt.Name)
	}
	return nil
}
