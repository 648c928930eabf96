package exec

import (
	"fmt"

	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// joinIter drives from one side and probes the other per row. If the
// probe side has an index on the join column, each probe is a point
// lookup; otherwise the whole probe side is streamed once into an
// in-memory multimap (hash join) and reused for every driver row. Self-
// join reads the same underlying index twice through distinct cursors —
// driver and probeSource are independent iterators even when
// probeTable == driver's table.
type joinIter struct {
	driver      RowIter
	driverAlias string
	driverCol   string

	probeAlias   string
	probeCol     string
	probeIndexed bool
	probeTable   *catalog.Table
	st           *store.Store

	probeSource RowIter // only consumed to build the hash map, once
	hashBuilt   bool
	hashMap     map[string][]Row

	curDriverRow Row
	pending      []Row
}

func (j *joinIter) Next() (Row, bool, error) {
	for {
		if len(j.pending) > 0 {
			p := j.pending[0]
			j.pending = j.pending[1:]
			return merge(j.curDriverRow, p), true, nil
		}
		dr, ok, err := j.driver.Next()
		if err != nil || !ok {
			return nil, ok, err
		}
		j.curDriverRow = dr
		joinVal := dr[j.driverAlias+"."+j.driverCol]
		matches, err := j.probeMatches(joinVal)
		if err != nil {
			return nil, false, err
		}
		j.pending = matches
	}
}

func (j *joinIter) probeMatches(joinVal types.Value) ([]Row, error) {
	if j.probeIndexed {
		return j.indexedProbe(joinVal)
	}
	if !j.hashBuilt {
		if err := j.buildHash(); err != nil {
			return nil, err
		}
	}
	return j.hashMap[hashKey(joinVal)], nil
}

func (j *joinIter) indexedProbe(joinVal types.Value) ([]Row, error) {
	ix, err := j.st.OpenIndex(j.probeTable.Name, j.probeCol, joinVal.Kind)
	if err != nil {
		return nil, err
	}
	raw, found, err := ix.Get(joinVal)
	if err != nil || !found {
		return nil, err
	}

	pkCol := j.probeTable.PKColumn()
	if j.probeCol == pkCol {
		decoded, err := types.DecodeRow(raw)
		if err != nil {
			return nil, err
		}
		return []Row{qualify(decoded, j.probeAlias)}, nil
	}

	pkSet, err := types.DecodePKSet(raw)
	if err != nil {
		return nil, err
	}
	pkColDef, _ := j.probeTable.Column(pkCol)
	pkIx, err := j.st.OpenIndex(j.probeTable.Name, pkCol, pkColDef.Type)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(pkSet))
	for _, pk := range pkSet {
		rowRaw, found, err := pkIx.Get(pk)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errs.New(errs.KindStorageCorrupt, "secondary index on %q references missing primary key %v", j.probeTable.Name, pk)
		}
		decoded, err := types.DecodeRow(rowRaw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, qualify(decoded, j.probeAlias))
	}
	return rows, nil
}

func (j *joinIter) buildHash() error {
	j.hashMap = make(map[string][]Row)
	defer j.probeSource.Close()
	for {
		row, ok, err := j.probeSource.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		v := row[j.probeAlias+"."+j.probeCol]
		k := hashKey(v)
		j.hashMap[k] = append(j.hashMap[k], row)
	}
	j.hashBuilt = true
	return nil
}

func (j *joinIter) Close() error {
	err := j.driver.Close()
	if !j.hashBuilt {
		j.probeSource.Close()
	}
	return err
}

func hashKey(v types.Value) string {
	return fmt.Sprintf("%d:%x", v.Kind, types.EncodeKey(v))
}

func qualify(row types.Row, alias string) Row {
	out := make(Row, len(row))
	for col, v := range row {
		out[alias+"."+col] = v
	}
	return out
}
