package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootHistoryNewestAndOldest(t *testing.T) {
	h := NewRootHistory(4)
	for i := 1; i <= 4; i++ {
		h.Push(big.NewInt(int64(i)))
	}

	require.True(t, h.Contains(big.NewInt(4)), "newest root must hit")
	require.True(t, h.Contains(big.NewInt(1)), "oldest retained root must hit")
	require.Equal(t, big.NewInt(4), h.Latest())
	require.Equal(t, 4, h.Len())
}

func TestRootHistoryEviction(t *testing.T) {
	h := NewRootHistory(4)
	for i := 1; i <= 6; i++ {
		h.Push(big.NewInt(int64(i)))
	}

	// 1 and 2 fell out of the window
	require.False(t, h.Contains(big.NewInt(1)))
	require.False(t, h.Contains(big.NewInt(2)))
	require.True(t, h.Contains(big.NewInt(3)))
	require.True(t, h.Contains(big.NewInt(6)))
}

func TestRootHistoryZeroRoot(t *testing.T) {
	h := NewRootHistory(4)
	h.Push(big.NewInt(0))
	require.Equal(t, 0, h.Len())
	require.False(t, h.Contains(big.NewInt(0)))

	// zero must not match even against empty slots of a partially filled ring
	h.Push(big.NewInt(9))
	require.False(t, h.Contains(big.NewInt(0)))
	require.False(t, h.Contains(nil))
}

func TestRootHistoryEmpty(t *testing.T) {
	h := NewRootHistory(4)
	require.Nil(t, h.Latest())
	require.False(t, h.Contains(big.NewInt(1)))
}
