package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeHandleRoundTrip(t *testing.T) {
	h := EncodeHandle(7, 2)
	require.Equal(t, "t7.c2", h)

	tableID, colIdx, err := DecodeHandle(h)
	require.NoError(t, err)
	require.Equal(t, uint64(7), tableID)
	require.Equal(t, 2, colIdx)
}

func TestDecodeHandleRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "t1", "t1.x2", "x1.c2", "t1.c"} {
		_, _, err := DecodeHandle(bad)
		require.Error(t, err, "expected error for %q", bad)
	}
}
