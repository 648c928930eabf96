// Package testsupport generates synthetic rows at scale for store and
// executor tests, including spec.md §8's 10,000-row index-effect
// scenario. Seeded deterministically so a generated fixture set is
// reproducible across test runs.
package testsupport

import (
	"fmt"
	"math/rand"

	"github.com/go-faker/faker/v4"

	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// RowSet generates n synthetic rows for table, seeded deterministically
// so the same seed always produces the same fixture. An Int64 primary
// key column gets a dense 0..n-1 range (handy for range-scan tests);
// other Int64 columns get a seeded value in [0, 2^20); Double columns get a seeded pseudo-random value; String columns get a
// faker-generated word.
//
// Seeds a plain math/rand.Rand, since fixture generation needs
// Int63n/Float64 rather than a raw byte stream.
func RowSet(table *catalog.Table, n int, seed int64) []types.Row {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]types.Row, n)
	for i := 0; i < n; i++ {
		row := make(types.Row, len(table.Columns))
		for _, col := range table.Columns {
			row[col.Name] = randomValue(col, i, rng)
		}
		rows[i] = row
	}
	return rows
}

func randomValue(col catalog.Column, i int, rng *rand.Rand) types.Value {
	switch col.Type {
	case types.Int64:
		if col.PK {
			return types.NewInt(int64(i))
		}
		return types.NewInt(rng.Int63n(1 << 20))
	case types.Double:
		return types.NewDouble(rng.Float64() * 1000)
	default:
		return types.NewString(fmt.Sprintf("%s-%s", faker.Word(), faker.Letter()))
	}
}
