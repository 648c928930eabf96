package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitStatementsTracksQuoteState(t *testing.T) {
	src := "INSERT INTO u (id,name) VALUES (1,'a;b'); SELECT * FROM u;"
	got := splitStatements(src)
	require.Len(t, got, 2)
	require.Contains(t, got[0], "'a;b'")
	require.Contains(t, got[1], "SELECT")
}

func TestSplitStatementsKeepsTrailingIncompleteStatement(t *testing.T) {
	got := splitStatements("SELECT * FROM u; SELECT 1")
	require.Len(t, got, 2)
}

func TestSplitStatementsIgnoresTrailingWhitespace(t *testing.T) {
	got := splitStatements("SELECT * FROM u;   \n")
	require.Len(t, got, 1)
}
