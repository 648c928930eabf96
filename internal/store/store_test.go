package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

func TestOpenTwiceFailsWithStorageLocked(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	require.NoError(t, err)
	defer s1.Close()

	_, err = Open(dir)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindStorageLocked))
}

func TestIndexPutGetDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ix, err := s.OpenIndex("users", "id", types.Int64)
	require.NoError(t, err)

	key := types.NewInt(42)
	_, found, err := ix.Get(key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, ix.Put(key, []byte("row-data")))
	v, found, err := ix.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("row-data"), v)

	require.NoError(t, ix.Delete(key))
	_, found, err = ix.Get(key)
	require.NoError(t, err)
	require.False(t, found)
}

func TestIndexKeyKindMismatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ix, err := s.OpenIndex("users", "id", types.Int64)
	require.NoError(t, err)

	err = ix.Put(types.NewString("nope"), []byte("x"))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindKeyTypeMismatch))
}

func TestRangeScanOrderedAndBounded(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ix, err := s.OpenIndex("users", "id", types.Int64)
	require.NoError(t, err)
	for _, n := range []int64{5, 1, 3, 9, 7} {
		require.NoError(t, ix.Put(types.NewInt(n), []byte{byte(n)}))
	}

	cur, err := ix.Range(&Bound{Value: types.NewInt(3), Inclusive: true}, &Bound{Value: types.NewInt(7), Inclusive: false})
	require.NoError(t, err)
	defer cur.Close()

	var got []int64
	for {
		k, _, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k.I)
	}
	require.Equal(t, []int64{3, 5}, got)
}

func TestFullScanVisitsEveryKeyInOrder(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ix, err := s.OpenIndex("users", "id", types.Int64)
	require.NoError(t, err)
	for _, n := range []int64{3, 1, 2} {
		require.NoError(t, ix.Put(types.NewInt(n), nil))
	}

	cur, err := ix.FullScan()
	require.NoError(t, err)
	defer cur.Close()

	var got []int64
	for {
		k, _, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k.I)
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestDropIndexRemovesFile(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.OpenIndex("users", "email", types.String)
	require.NoError(t, err)
	require.True(t, s.HasIndex("users", "email"))

	require.NoError(t, s.DropIndex("users", "email"))
	require.False(t, s.HasIndex("users", "email"))
}
