package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

func mustCreateUsers(t *testing.T, c *Catalog) *Table {
	t.Helper()
	tbl, err := c.CreateTable("users", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "name", Type: types.String},
	})
	require.NoError(t, err)
	return tbl
}

func TestCreateTableRequiresExactlyOnePK(t *testing.T) {
	c := New()
	_, err := c.CreateTable("t", []Column{
		{Name: "a", Type: types.Int64},
		{Name: "b", Type: types.Int64},
	})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindDDLFailed))

	_, err = c.CreateTable("t2", []Column{
		{Name: "a", Type: types.Int64, PK: true},
		{Name: "b", Type: types.Int64, PK: true},
	})
	require.Error(t, err)
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	c := New()
	mustCreateUsers(t, c)
	_, err := c.CreateTable("users", []Column{{Name: "id", Type: types.Int64, PK: true}})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindDDLFailed))
}

func TestForeignKeyMustReferenceAPrimaryKeyOfMatchingType(t *testing.T) {
	c := New()
	mustCreateUsers(t, c)

	_, err := c.CreateTable("posts", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "author_id", Type: types.String, FK: &ForeignKey{Table: "users", Column: "id"}},
	})
	require.Error(t, err, "FK type must match referenced column")

	_, err = c.CreateTable("posts", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "author_name", Type: types.String, FK: &ForeignKey{Table: "users", Column: "name"}},
	})
	require.Error(t, err, "FK must reference a primary key column")

	_, err = c.CreateTable("posts", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "author_id", Type: types.Int64, FK: &ForeignKey{Table: "users", Column: "id"}},
	})
	require.NoError(t, err)
}

func TestDropTableRefusesWhileReferenced(t *testing.T) {
	c := New()
	mustCreateUsers(t, c)
	_, err := c.CreateTable("posts", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "author_id", Type: types.Int64, FK: &ForeignKey{Table: "users", Column: "id"}},
	})
	require.NoError(t, err)

	err = c.DropTable("users")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindFKViolation))

	// posts itself holds the outgoing FK but nothing references posts,
	// so dropping it is fine.
	require.NoError(t, c.DropTable("posts"))
	require.NoError(t, c.DropTable("users"))
}

func TestCreateAndDropIndex(t *testing.T) {
	c := New()
	tbl := mustCreateUsers(t, c)
	require.False(t, tbl.HasIndex("name"))

	require.NoError(t, c.CreateIndex("users", "idx_name", "name"))
	require.True(t, tbl.HasIndex("name"))
	require.ElementsMatch(t, []string{"id", "name"}, tbl.IndexedColumns())

	err := c.CreateIndex("users", "idx_name_again", "name")
	require.Error(t, err, "column already indexed")

	require.NoError(t, c.DropIndex("users", "idx_name"))
	require.False(t, tbl.HasIndex("name"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	c := New()
	mustCreateUsers(t, c)
	_, err := c.CreateTable("posts", []Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "author_id", Type: types.Int64, FK: &ForeignKey{Table: "users", Column: "id"}},
	})
	require.NoError(t, err)
	require.NoError(t, c.CreateIndex("posts", "idx_author", "author_id"))

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	users, ok := loaded.tables["users"]
	require.True(t, ok)
	require.Equal(t, "id", users.PKColumn())

	posts, ok := loaded.tables["posts"]
	require.True(t, ok)
	require.True(t, posts.HasIndex("author_id"))
	col, ok := posts.Column("author_id")
	require.True(t, ok)
	require.Equal(t, "users", col.FK.Table)
}

func TestLoadMissingFileYieldsEmptyCatalog(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.Empty(t, c.TableNames())
}

func TestLoadCorruptFileReturnsStorageCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindStorageCorrupt))
}
