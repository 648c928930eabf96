package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// wire mirrors Catalog/Table/Column in a JSON-friendly shape (maps don't
// round-trip key order, so indexes are a sorted slice instead).
type wireFK struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

type wireColumn struct {
	Name string     `json:"name"`
	Type types.Kind `json:"type"`
	PK   bool       `json:"pk,omitempty"`
	FK   *wireFK    `json:"fk,omitempty"`
}

type wireIndex struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	ID     uint64 `json:"id"`
}

type wireTable struct {
	ID      uint64      `json:"id"`
	Name    string      `json:"name"`
	Columns []wireColumn `json:"columns"`
	Indexes []wireIndex  `json:"indexes"`
}

type wireCatalog struct {
	NextID uint64      `json:"next_id"`
	Tables []wireTable `json:"tables"`
}

func (c *Catalog) toWire() wireCatalog {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w := wireCatalog{NextID: c.nextID}
	for _, t := range c.tables {
		wt := wireTable{ID: t.ID, Name: t.Name}
		for _, col := range t.Columns {
			wc := wireColumn{Name: col.Name, Type: col.Type, PK: col.PK}
			if col.FK != nil {
				wc.FK = &wireFK{Table: col.FK.Table, Column: col.FK.Column}
			}
			wt.Columns = append(wt.Columns, wc)
		}
		inverse := make(map[string]string, len(t.names))
		for name, col := range t.names {
			inverse[col] = name
		}
		for col, id := range t.indexes {
			wt.Indexes = append(wt.Indexes, wireIndex{Name: inverse[col], Column: col, ID: id})
		}
		sort.Slice(wt.Indexes, func(i, j int) bool { return wt.Indexes[i].Column < wt.Indexes[j].Column })
		w.Tables = append(w.Tables, wt)
	}
	return w
}

// Save writes the catalog to path atomically: marshal, write to a temp
// file in the same directory, then rename over the destination so a
// crash mid-write never leaves a truncated catalog.json behind.
func (c *Catalog) Save(path string) error {
	b, err := json.MarshalIndent(c.toWire(), "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to marshal catalog")
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to create temp catalog file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to write temp catalog file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to sync temp catalog file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to close temp catalog file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.KindStorageCorrupt, err, "failed to install catalog file")
	}
	return nil
}

// Load reads a catalog previously written by Save. A missing file is not
// an error: callers treat it as an empty catalog (a fresh data directory).
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to read catalog file %s", path)
	}
	var w wireCatalog
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to parse catalog file %s", path)
	}

	c := New()
	c.nextID = w.NextID
	for _, wt := range w.Tables {
		t := &Table{ID: wt.ID, Name: wt.Name, indexes: make(map[string]uint64), names: make(map[string]string)}
		for _, wc := range wt.Columns {
			col := Column{Name: wc.Name, Type: wc.Type, PK: wc.PK}
			if wc.PK {
				t.pkColumn = wc.Name
			}
			if wc.FK != nil {
				col.FK = &ForeignKey{Table: wc.FK.Table, Column: wc.FK.Column}
			}
			t.Columns = append(t.Columns, col)
		}
		for _, wi := range wt.Indexes {
			t.indexes[wi.Column] = wi.ID
			if wi.Name != "" {
				t.names[wi.Name] = wi.Column
			}
		}
		c.tables[t.Name] = t
	}
	return c, nil
}
