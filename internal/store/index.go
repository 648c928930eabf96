// Package store implements the ordered index store: one persistent
// balanced search tree (a go.etcd.io/bbolt B+tree) per (table, column)
// index, with the primary-key index doubling as the canonical row store.
package store

import (
	"errors"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

var bucketName = []byte("idx")

// Index is a single ordered key -> value map backed by one bbolt file.
// Keys are always a Value of the index's declared KeyKind, encoded via
// types.EncodeKey so bbolt's byte-order comparison matches the column's
// total order.
type Index struct {
	db      *bbolt.DB
	path    string
	KeyKind types.Kind
}

// openIndexFile opens (creating if absent) the bbolt file at path as an
// ordered index over keys of the given kind. A structurally invalid file
// raises StorageCorrupt. Unexported: callers outside the package go
// through Store.OpenIndex, which owns the per-directory lock.
func openIndexFile(path string, keyKind types.Kind) (*Index, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, errs.Wrap(errs.KindStorageLocked, err, "index file %s is locked by another process", path)
		}
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to open index file %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStorageCorrupt, err, "failed to initialize index file %s", path)
	}
	return &Index{db: db, path: path, KeyKind: keyKind}, nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

// Remove closes and deletes the backing file, used when a CREATE INDEX
// build fails partway through or a DDL is rolled back.
func (ix *Index) Remove() error {
	path := ix.path
	if err := ix.db.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

func (ix *Index) checkKind(v types.Value) error {
	if v.Kind != ix.KeyKind {
		return errs.New(errs.KindKeyTypeMismatch, "key kind %v does not match index kind %v", v.Kind, ix.KeyKind)
	}
	return nil
}

func (ix *Index) Get(key types.Value) ([]byte, bool, error) {
	if err := ix.checkKind(key); err != nil {
		return nil, false, err
	}
	var out []byte
	err := ix.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(types.EncodeKey(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Put replaces any prior value for key. Individually durable: bbolt's
// Update commits (and fsyncs) before returning.
func (ix *Index) Put(key types.Value, value []byte) error {
	if err := ix.checkKind(key); err != nil {
		return err
	}
	return ix.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(types.EncodeKey(key), value)
	})
}

func (ix *Index) Delete(key types.Value) error {
	if err := ix.checkKind(key); err != nil {
		return err
	}
	return ix.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(types.EncodeKey(key))
	})
}
