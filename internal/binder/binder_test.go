package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/sqlparse"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

func setupCatalog(t *testing.T) (*catalog.Catalog, *store.Store) {
	t.Helper()
	cat := catalog.New()
	_, err := cat.CreateTable("r", []catalog.Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "value", Type: types.Int64},
		{Name: "name", Type: types.String},
	})
	require.NoError(t, err)

	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.OpenIndex("r", "id", types.Int64)
	require.NoError(t, err)
	return cat, st
}

func bindSQL(t *testing.T, cat *catalog.Catalog, st *store.Store, sql string) (*Plan, error) {
	t.Helper()
	stmt, err := sqlparse.Parse(sql)
	require.NoError(t, err, "parsing %q", sql)
	return Bind(cat, st, stmt)
}

func TestBindSelectUnknownColumn(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "SELECT nope FROM r;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindUnknownColumn))
}

func TestBindSelectUnknownTable(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "SELECT * FROM ghost;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindUnknownTable))
}

func TestBindSelectAggregationMisuseWithoutGroupBy(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "SELECT id, SUM(value) FROM r;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindAggregationMisuse))
}

func TestBindSelectUngroupedColumnRequiresGroupByMembership(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "SELECT name, SUM(value) FROM r GROUP BY id;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindAggregationMisuse))
}

func TestBindSelectSumOverStringIsTypeMismatch(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "SELECT SUM(name) FROM r;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindTypeMismatch))
}

func TestBindInsertTypeMismatch(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "INSERT INTO r (id,value,name) VALUES (1,'x',2);")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindTypeMismatch))
}

func TestBindInsertMissingPrimaryKeyColumn(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := bindSQL(t, cat, st, "INSERT INTO r (value,name) VALUES (1,'x');")
	require.Error(t, err)
}

func TestBindInsertValid(t *testing.T) {
	cat, st := setupCatalog(t)
	plan, err := bindSQL(t, cat, st, "INSERT INTO r (id,value,name) VALUES (1,2,'x');")
	require.NoError(t, err)
	require.NotNil(t, plan.Insert)
	require.Equal(t, "r", plan.Insert.Table.Name)
}

func TestBindUpdatePrimaryKeyDoesNotConsultSchemaReferences(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := cat.CreateTable("s", []catalog.Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "rid", Type: types.Int64, FK: &catalog.ForeignKey{Table: "r", Column: "id"}},
	})
	require.NoError(t, err)

	plan, err := bindSQL(t, cat, st, "UPDATE r SET id = 2 WHERE id = 1;")
	require.NoError(t, err)
	require.True(t, plan.Update.PKAssigned)
}

func TestBindJoinRequiresMatchingColumnTypes(t *testing.T) {
	cat, st := setupCatalog(t)
	_, err := cat.CreateTable("s", []catalog.Column{
		{Name: "id", Type: types.Int64, PK: true},
		{Name: "tag", Type: types.String},
	})
	require.NoError(t, err)
	_, err = bindSQL(t, cat, st, "SELECT * FROM r JOIN s ON r.value = s.tag;")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindTypeMismatch))
}
