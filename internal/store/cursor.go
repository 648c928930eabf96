package store

import (
	"bytes"

	"go.etcd.io/bbolt"

	"github.com/vinaxue/cs5510-project3/internal/types"
)

// Bound is one side of a range scan. Nil means unbounded on that side.
type Bound struct {
	Value     types.Value
	Inclusive bool
}

// Cursor is the store's pull-iterator: Open a read transaction, call Next
// repeatedly until it reports exhaustion, then Close. Reissuing Range or
// FullScan after Close starts a fresh, independent scan (restartable).
type Cursor struct {
	tx     *bbolt.Tx
	cursor *bbolt.Cursor
	high   *Bound
	kind   types.Kind
	done   bool

	curKey, curVal []byte
}

// Range opens an ascending cursor over [low, high] (bounds optionally
// exclusive, per Inclusive). Either bound may be nil for unbounded.
func (ix *Index) Range(low, high *Bound) (*Cursor, error) {
	tx, err := ix.db.Begin(false)
	if err != nil {
		return nil, err
	}
	c := tx.Bucket(bucketName).Cursor()
	it := &Cursor{tx: tx, cursor: c, high: high, kind: ix.KeyKind}

	if low == nil {
		it.curKey, it.curVal = c.First()
	} else {
		it.curKey, it.curVal = c.Seek(types.EncodeKey(low.Value))
		if !low.Inclusive && it.curKey != nil && bytes.Equal(it.curKey, types.EncodeKey(low.Value)) {
			it.curKey, it.curVal = c.Next()
		}
	}
	it.checkUpperBound()
	return it, nil
}

// FullScan opens an ascending cursor over the whole index.
func (ix *Index) FullScan() (*Cursor, error) {
	return ix.Range(nil, nil)
}

func (it *Cursor) checkUpperBound() {
	if it.done || it.curKey == nil {
		it.done = it.curKey == nil
		return
	}
	if it.high == nil {
		return
	}
	hb := types.EncodeKey(it.high.Value)
	cmp := bytes.Compare(it.curKey, hb)
	if cmp > 0 || (cmp == 0 && !it.high.Inclusive) {
		it.done = true
	}
}

// Next returns the next (key, value) pair in ascending order, or
// ok=false when the sequence is exhausted.
func (it *Cursor) Next() (key types.Value, value []byte, ok bool, err error) {
	if it.done {
		return types.Value{}, nil, false, nil
	}
	k, v := it.curKey, it.curVal
	key, err = types.DecodeKey(it.kind, k)
	if err != nil {
		return types.Value{}, nil, false, err
	}
	value = append([]byte(nil), v...)

	it.curKey, it.curVal = it.cursor.Next()
	it.checkUpperBound()
	return key, value, true, nil
}

func (it *Cursor) Close() error {
	return it.tx.Rollback()
}
