package scratch

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"sponsor-backend/internal/validation"
)

func facts(v int64) *validation.Facts {
	return &validation.Facts{
		WithdrawnValue: big.NewInt(v),
		FeeBPS:         big.NewInt(100),
		Recipient:      common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
	}
}

func TestPutTakeOnce(t *testing.T) {
	s := NewStore()
	op := common.HexToHash("0x01")

	require.NoError(t, s.Put(op, facts(50)))

	got, ok := s.Take(op)
	require.True(t, ok)
	require.Equal(t, big.NewInt(50), got.WithdrawnValue)

	// slot reads as empty after the first take
	_, ok = s.Take(op)
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestPutTwiceRefused(t *testing.T) {
	s := NewStore()
	op := common.HexToHash("0x02")

	require.NoError(t, s.Put(op, facts(1)))
	require.ErrorIs(t, s.Put(op, facts(2)), ErrAlreadyWritten)

	got, ok := s.Take(op)
	require.True(t, ok)
	require.Equal(t, big.NewInt(1), got.WithdrawnValue)
}

func TestNoCrossOperationResidue(t *testing.T) {
	s := NewStore()
	a := common.HexToHash("0x0a")
	b := common.HexToHash("0x0b")

	require.NoError(t, s.Put(a, facts(10)))
	_, ok := s.Take(b)
	require.False(t, ok)

	s.Drop(a)
	_, ok = s.Take(a)
	require.False(t, ok)
}

func TestNilFactsRefused(t *testing.T) {
	s := NewStore()
	require.ErrorIs(t, s.Put(common.HexToHash("0x03"), nil), ErrNilFacts)
}
