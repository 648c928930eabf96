package testsupport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

func testTable() *catalog.Table {
	c := catalog.New()
	t, _ := c.CreateTable("t", []catalog.Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "k", Type: types.Int64},
		{Name: "label", Type: types.String},
	})
	return t
}

func TestRowSetIsDeterministic(t *testing.T) {
	tbl := testTable()
	a := RowSet(tbl, 50, 42)
	b := RowSet(tbl, 50, 42)
	require.Equal(t, a, b)
}

func TestRowSetPKColumnIsDenseRange(t *testing.T) {
	tbl := testTable()
	rows := RowSet(tbl, 10, 1)
	seen := make(map[int64]bool)
	for i, r := range rows {
		require.Equal(t, int64(i), r["id"].I)
		seen[r["id"].I] = true
	}
	require.Len(t, seen, 10)
}

func TestRowSetDifferentSeedsDiffer(t *testing.T) {
	tbl := testTable()
	a := RowSet(tbl, 20, 1)
	b := RowSet(tbl, 20, 2)
	require.NotEqual(t, a, b)
}
