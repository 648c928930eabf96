package engine

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := Open(filepath.Join(t.TempDir(), "data"), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func mustExec(t *testing.T, eng *Engine, stmt string) *Result {
	t.Helper()
	res := eng.Execute(stmt)
	require.Empty(t, res.Error, "statement %q failed: %s", stmt, res.Error)
	return res
}

// Scenario 1: a duplicate primary key is rejected and the table keeps
// only the first row.
func TestScenarioPKViolation(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE u (id INT PRIMARY KEY, name STRING);")
	mustExec(t, eng, "INSERT INTO u (id,name) VALUES (1,'a');")

	res := eng.Execute("INSERT INTO u (id,name) VALUES (1,'b');")
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Error, "PKViolation")

	res = mustExec(t, eng, "SELECT * FROM u;")
	require.Equal(t, []map[string]any{{"id": int64(1), "name": "a"}}, res.Rows)
}

// Scenario 2: inserting a row whose FK value has no matching PK row
// fails with FKViolation.
func TestScenarioFKViolationOnInsert(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE p (id INT PRIMARY KEY);")
	mustExec(t, eng, "CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES p(id));")

	res := eng.Execute("INSERT INTO c (id,pid) VALUES (1,7);")
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Error, "FKViolation")
}

// Scenario 3: dropping a referenced table is refused until the
// referencing table is gone too.
func TestScenarioDropTableWhileReferenced(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE p (id INT PRIMARY KEY);")
	mustExec(t, eng, "CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES p(id));")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (1);")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (2);")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (3);")

	res := eng.Execute("DROP TABLE p;")
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Error, "FKViolation")

	mustExec(t, eng, "DROP TABLE c;")
	mustExec(t, eng, "DROP TABLE p;")
}

// Scenario 4: a self-join disambiguates both sides via the synthesized
// _L/_R aliases and returns rows in driver (r_L) PK order.
func TestScenarioSelfJoin(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE r (id INT PRIMARY KEY, value INT);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (1,2);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (2,3);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (3,1);")

	res := mustExec(t, eng, "SELECT r_L.id, r_R.id FROM r JOIN r ON r_L.id = r_R.value;")
	require.Equal(t, []map[string]any{
		{"r_L.id": int64(1), "r_R.id": int64(3)},
		{"r_L.id": int64(2), "r_R.id": int64(1)},
		{"r_L.id": int64(3), "r_R.id": int64(2)},
	}, res.Rows)
}

// Scenario 5: GROUP BY + HAVING over a filtered WHERE.
func TestScenarioAggregation(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE r (id INT PRIMARY KEY, value INT);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (1,2);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (2,1);")
	mustExec(t, eng, "INSERT INTO r (id,value) VALUES (3,1);")

	res := mustExec(t, eng, "SELECT id, SUM(value) FROM r WHERE id < 3 GROUP BY id HAVING SUM(value) > 1;")
	require.Equal(t, []map[string]any{
		{"id": int64(1), "SUM(value)": int64(2)},
	}, res.Rows)
}

// Scenario 6: creating an index over existing rows doesn't change the
// result set, and the chosen access path switches to IndexRange.
func TestScenarioIndexEffect(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE t (id INT PRIMARY KEY, k INT);")
	for i := 0; i < 200; i++ {
		k := i % 50
		mustExec(t, eng, fmt.Sprintf("INSERT INTO t (id,k) VALUES (%d,%d);", i, k))
	}

	before := mustExec(t, eng, "SELECT * FROM t WHERE k = 42;")
	mustExec(t, eng, "CREATE INDEX ix ON t(k);")
	after := mustExec(t, eng, "SELECT * FROM t WHERE k = 42;")
	require.ElementsMatch(t, before.Rows, after.Rows)

	res, paths, err := eng.execute("SELECT * FROM t WHERE k = 42;")
	require.NoError(t, err)
	require.Empty(t, res.Error)
	require.Len(t, paths.Desc, 1)
	require.Equal(t, "IndexRange(t.k, =42)", paths.Desc[0])
}

func TestSelectReturnsRowsInAscendingPKOrder(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE u (id INT PRIMARY KEY, name STRING);")
	mustExec(t, eng, "INSERT INTO u (id,name) VALUES (3,'c');")
	mustExec(t, eng, "INSERT INTO u (id,name) VALUES (1,'a');")
	mustExec(t, eng, "INSERT INTO u (id,name) VALUES (2,'b');")

	res := mustExec(t, eng, "SELECT * FROM u;")
	require.Equal(t, []map[string]any{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
		{"id": int64(3), "name": "c"},
	}, res.Rows)
}

func TestUpdateMovesSecondaryIndexEntries(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE u (id INT PRIMARY KEY, name STRING);")
	mustExec(t, eng, "INSERT INTO u (id,name) VALUES (1,'a');")
	mustExec(t, eng, "CREATE INDEX ix ON u(name);")

	mustExec(t, eng, "UPDATE u SET name = 'z' WHERE id = 1;")
	res := mustExec(t, eng, "SELECT * FROM u WHERE name = 'z';")
	require.Equal(t, []map[string]any{{"id": int64(1), "name": "z"}}, res.Rows)

	res = mustExec(t, eng, "SELECT * FROM u WHERE name = 'a';")
	require.Empty(t, res.Rows)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE p (id INT PRIMARY KEY);")
	mustExec(t, eng, "CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES p(id));")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (1);")
	mustExec(t, eng, "INSERT INTO c (id,pid) VALUES (1,1);")

	res := eng.Execute("DELETE FROM p WHERE id = 1;")
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Error, "FKViolation")

	mustExec(t, eng, "DELETE FROM c WHERE id = 1;")
	mustExec(t, eng, "DELETE FROM p WHERE id = 1;")
	res = mustExec(t, eng, "SELECT * FROM p;")
	require.Empty(t, res.Rows)
}

func TestUpdatePrimaryKeyAllowedWhenRowUnreferenced(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE p (id INT PRIMARY KEY);")
	mustExec(t, eng, "CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES p(id));")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (1);")

	mustExec(t, eng, "UPDATE p SET id = 1 WHERE id = 1;")
	mustExec(t, eng, "UPDATE p SET id = 2 WHERE id = 1;")
	res := mustExec(t, eng, "SELECT * FROM p;")
	require.Equal(t, []map[string]any{{"id": int64(2)}}, res.Rows)
}

func TestUpdatePrimaryKeyRefusedWhileReferenced(t *testing.T) {
	eng := openTestEngine(t)
	mustExec(t, eng, "CREATE TABLE p (id INT PRIMARY KEY);")
	mustExec(t, eng, "CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES p(id));")
	mustExec(t, eng, "INSERT INTO p (id) VALUES (1);")
	mustExec(t, eng, "INSERT INTO c (id,pid) VALUES (1,1);")

	res := eng.Execute("UPDATE p SET id = 2 WHERE id = 1;")
	require.NotEmpty(t, res.Error)
	require.Contains(t, res.Error, "FKViolation")
}

func TestStatementKind(t *testing.T) {
	require.Equal(t, "SELECT", statementKind("select * from t;"))
	require.Equal(t, "INSERT", statementKind("  INSERT INTO t VALUES (1);"))
	require.Equal(t, "", statementKind("   "))
}
