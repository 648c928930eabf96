package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinaxue/cs5510-project3/internal/errs"
)

// TestRoundTrip covers spec.md §8 invariant 6: parse + unparse + reparse
// yields an equal AQT, checked here via the canonical formatter being a
// fixed point (reformatting its own output changes nothing).
func TestRoundTrip(t *testing.T) {
	stmts := []string{
		"CREATE TABLE u (id INT PRIMARY KEY, name STRING);",
		"CREATE TABLE c (id INT PRIMARY KEY, pid INT FOREIGN KEY REFERENCES u(id));",
		"DROP TABLE u;",
		"CREATE INDEX ix ON u(name);",
		"DROP INDEX ix ON u;",
		"INSERT INTO u (id, name) VALUES (1, 'a');",
		"SELECT * FROM u;",
		"SELECT id, name FROM u WHERE id = 1;",
		"SELECT r_L.id, r_R.id FROM r JOIN r ON r_L.id = r_R.value;",
		"SELECT id, SUM(value) FROM r WHERE id < 3 GROUP BY id HAVING SUM(value) > 1;",
		"SELECT * FROM u ORDER BY id DESC;",
		"DELETE FROM u WHERE id = 1;",
		"UPDATE u SET name = 'z' WHERE id = 1;",
	}

	for _, src := range stmts {
		stmt, err := Parse(src)
		require.NoError(t, err, "parsing %q", src)

		unparsed := stmt.String()
		reparsed, err := Parse(unparsed)
		require.NoError(t, err, "reparsing %q (from %q)", unparsed, src)
		require.Equal(t, unparsed, reparsed.String(), "round-trip fixed point for %q", src)
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("SELECT * FORM u;")
	require.Error(t, err)
	pe, ok := err.(*errs.Error)
	require.True(t, ok)
	require.Equal(t, 9, pe.Pos()) // byte offset of "FORM"
}
