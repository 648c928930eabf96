package ddl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	cat := catalog.New()
	return New(cat, st, st.CatalogPath())
}

func createUsers(t *testing.T, m *Manager) {
	t.Helper()
	err := m.CreateTable(&ast.CreateTable{
		Name: "users",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: types.Int64, PK: true},
			{Name: "email", Type: types.String},
		},
	})
	require.NoError(t, err)
}

func TestCreateTableOpensPKIndex(t *testing.T) {
	m := newManager(t)
	createUsers(t, m)

	tbl, ok := m.cat.Lookup("users")
	require.True(t, ok)
	require.True(t, m.st.HasIndex("users", tbl.PKColumn()))
}

func TestCreateTableRollsBackOnDuplicateName(t *testing.T) {
	m := newManager(t)
	createUsers(t, m)
	err := m.CreateTable(&ast.CreateTable{
		Name:    "users",
		Columns: []ast.ColumnDef{{Name: "id", Type: types.Int64, PK: true}},
	})
	require.Error(t, err)
}

func TestDropTableRemovesIndexFiles(t *testing.T) {
	m := newManager(t)
	createUsers(t, m)

	require.NoError(t, m.DropTable(&ast.DropTable{Name: "users"}))
	_, ok := m.cat.Lookup("users")
	require.False(t, ok)
	require.False(t, m.st.HasIndex("users", "id"))
}

func TestCreateIndexPopulatesFromExistingRows(t *testing.T) {
	m := newManager(t)
	createUsers(t, m)

	tbl, _ := m.cat.Lookup("users")
	pkIx, err := m.st.OpenIndex("users", tbl.PKColumn(), types.Int64)
	require.NoError(t, err)
	for i, email := range []string{"a@x.com", "b@x.com"} {
		row := types.Row{"id": types.NewInt(int64(i)), "email": types.NewString(email)}
		enc, err := types.EncodeRow(row)
		require.NoError(t, err)
		require.NoError(t, pkIx.Put(types.NewInt(int64(i)), enc))
	}

	require.NoError(t, m.CreateIndex(&ast.CreateIndex{Name: "idx_email", Table: "users", Column: "email"}))
	require.True(t, tbl.HasIndex("email"))

	emailIx, err := m.st.OpenIndex("users", "email", types.String)
	require.NoError(t, err)
	raw, found, err := emailIx.Get(types.NewString("a@x.com"))
	require.NoError(t, err)
	require.True(t, found)
	pkSet, err := types.DecodePKSet(raw)
	require.NoError(t, err)
	require.Len(t, pkSet, 1)
	require.Equal(t, int64(0), pkSet[0].I)
}

func TestDropIndexRemovesCatalogEntryAndFile(t *testing.T) {
	m := newManager(t)
	createUsers(t, m)
	require.NoError(t, m.CreateIndex(&ast.CreateIndex{Name: "idx_email", Table: "users", Column: "email"}))

	require.NoError(t, m.DropIndex(&ast.DropIndex{Name: "idx_email", Table: "users"}))
	tbl, _ := m.cat.Lookup("users")
	require.False(t, tbl.HasIndex("email"))
	require.False(t, m.st.HasIndex("users", "email"))
}
