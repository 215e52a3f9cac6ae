package validation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectedFee(t *testing.T) {
	// 1% of 50 floors to zero in integer math
	require.Zero(t, ExpectedFee(big.NewInt(50), big.NewInt(100)).Sign())

	// 1% of 1 ether-scale value
	value, _ := new(big.Int).SetString("50000000000000000000", 10)
	want, _ := new(big.Int).SetString("500000000000000000", 10)
	require.Equal(t, want, ExpectedFee(value, big.NewInt(100)))

	require.Equal(t, big.NewInt(1000), ExpectedFee(big.NewInt(10_000), big.NewInt(1000)))
}

func TestCheckBudget(t *testing.T) {
	facts := &Facts{WithdrawnValue: big.NewInt(50), FeeBPS: big.NewInt(100)}

	// fee floors to 0: any positive advance must be rejected
	err := CheckBudget(facts, big.NewInt(1))
	require.Equal(t, ReasonInsufficientCost, ReasonOf(err))

	// zero advance is covered by the zero fee
	require.NoError(t, CheckBudget(facts, big.NewInt(0)))

	value, _ := new(big.Int).SetString("50000000000000000000", 10)
	rich := &Facts{WithdrawnValue: value, FeeBPS: big.NewInt(100)}
	require.NoError(t, CheckBudget(rich, big.NewInt(60_000)))
}
