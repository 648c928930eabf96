// Package catalog tracks tables, columns, primary/foreign keys, and
// user-created indexes, and enforces the schema invariants from the data
// model: unique names, exactly one primary key per table, FK type/target
// checks, and drop-blocked-while-referenced.
package catalog

import (
	"sort"
	"sync"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// ForeignKey names the (table, column) a column references. The
// referenced column is required to be that table's primary key.
type ForeignKey struct {
	Table  string
	Column string
}

type Column struct {
	Name string
	Type types.Kind
	PK   bool
	FK   *ForeignKey
}

// Table is a catalog entry. IDs are assigned once at creation and never
// reused, per the id-based-reference design note (resolves the
// column -> table -> index -> column cyclic ownership).
type Table struct {
	ID      uint64
	Name    string
	Columns []Column

	pkColumn string            // cached for fast lookup
	indexes  map[string]uint64 // column name -> index id, includes the PK's implicit index
	names    map[string]string // user-given index name -> column, excludes the implicit PK index
}

func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t *Table) PKColumn() string { return t.pkColumn }

// IndexedColumns returns every column this table has an index on,
// including the implicit primary-key index.
func (t *Table) IndexedColumns() []string {
	out := make([]string, 0, len(t.indexes))
	for c := range t.indexes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (t *Table) HasIndex(column string) bool {
	_, ok := t.indexes[column]
	return ok
}

// Catalog is the in-memory schema, backed by a JSON snapshot on disk
// (see persist.go). All mutation goes through Create/Drop methods so
// invariants are checked in one place.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Table
	nextID uint64
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

func (c *Catalog) nextTableID() uint64 {
	c.nextID++
	return c.nextID
}

// CreateTable validates and registers a new table. columns must contain
// exactly one PK column; FK columns must reference an existing table's
// PK column of the same type.
func (c *Catalog) CreateTable(name string, columns []Column) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, errs.New(errs.KindDDLFailed, "table %q already exists", name)
	}

	seen := make(map[string]bool, len(columns))
	pkCount := 0
	var pkCol string
	for _, col := range columns {
		if seen[col.Name] {
			return nil, errs.New(errs.KindDDLFailed, "duplicate column %q in table %q", col.Name, name)
		}
		seen[col.Name] = true
		if col.PK {
			pkCount++
			pkCol = col.Name
		}
	}
	if pkCount != 1 {
		return nil, errs.New(errs.KindDDLFailed, "table %q must have exactly one primary key column, got %d", name, pkCount)
	}

	for _, col := range columns {
		if col.FK == nil {
			continue
		}
		refTable, ok := c.tables[col.FK.Table]
		if !ok {
			return nil, errs.New(errs.KindDDLFailed, "foreign key on %q references unknown table %q", col.Name, col.FK.Table)
		}
		refCol, ok := refTable.Column(col.FK.Column)
		if !ok {
			return nil, errs.New(errs.KindDDLFailed, "foreign key on %q references unknown column %q.%q", col.Name, col.FK.Table, col.FK.Column)
		}
		if !refCol.PK {
			return nil, errs.New(errs.KindDDLFailed, "foreign key on %q must reference a primary key, %q.%q is not one", col.Name, col.FK.Table, col.FK.Column)
		}
		if refCol.Type != col.Type {
			return nil, errs.New(errs.KindDDLFailed, "foreign key on %q has type %v but referenced column %q.%q has type %v", col.Name, col.Type, col.FK.Table, col.FK.Column, refCol.Type)
		}
	}

	t := &Table{
		ID:       c.nextTableID(),
		Name:     name,
		Columns:  append([]Column(nil), columns...),
		pkColumn: pkCol,
		indexes:  map[string]uint64{pkCol: c.nextTableID()},
		names:    make(map[string]string),
	}
	c.tables[name] = t
	return t, nil
}

// ReferencingTables returns the names of every other table with an FK
// column pointing at any column of table.
func (c *Catalog) ReferencingTables(table string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referencingTablesLocked(table)
}

func (c *Catalog) referencingTablesLocked(table string) []string {
	var out []string
	for _, t := range c.tables {
		if t.Name == table {
			continue
		}
		for _, col := range t.Columns {
			if col.FK != nil && col.FK.Table == table {
				out = append(out, t.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// DropTable removes a table and all its indexes. Refuses with
// FKViolation if any other table's FK still
// references it (an outgoing FK on the dropped table itself is not a
// reason to refuse — see DESIGN.md's Open Question resolution).
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[name]; !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", name)
	}
	if refs := c.referencingTablesLocked(name); len(refs) > 0 {
		return errs.New(errs.KindFKViolation, "table %q is referenced by foreign keys in %v", name, refs)
	}
	delete(c.tables, name)
	return nil
}

// CreateIndex registers a secondary index named indexName on
// (table, column). The PK's implicit index already exists from
// CreateTable and cannot be recreated.
func (c *Catalog) CreateIndex(table, indexName, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[table]
	if !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", table)
	}
	if _, ok := t.Column(column); !ok {
		return errs.New(errs.KindDDLFailed, "column %q does not exist on table %q", column, table)
	}
	if t.HasIndex(column) {
		return errs.New(errs.KindDDLFailed, "index on %q.%q already exists", table, column)
	}
	if _, exists := t.names[indexName]; exists {
		return errs.New(errs.KindDDLFailed, "index %q already exists on table %q", indexName, table)
	}
	t.indexes[column] = c.nextTableID()
	t.names[indexName] = column
	return nil
}

// DropIndex removes the secondary index named indexName. The PK index has
// no user-visible name and may not be dropped this way.
func (c *Catalog) DropIndex(table, indexName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[table]
	if !ok {
		return errs.New(errs.KindDDLFailed, "table %q does not exist", table)
	}
	column, ok := t.names[indexName]
	if !ok {
		return errs.New(errs.KindDDLFailed, "no index named %q on table %q", indexName, table)
	}
	delete(t.indexes, column)
	delete(t.names, indexName)
	return nil
}

// IndexColumn returns the column a named index was created on.
func (t *Table) IndexColumn(indexName string) (string, bool) {
	col, ok := t.names[indexName]
	return col, ok
}

// RestoreTable reinserts a table snapshot previously removed by DropTable,
// used by the DDL manager to undo a drop when a later step fails. t must
// be the exact *Table returned by the earlier Lookup, so its id, indexes,
// and index names come back unchanged.
func (c *Catalog) RestoreTable(t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.Name] = t
}

func (c *Catalog) Lookup(table string) (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[table]
	return t, ok
}

func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
