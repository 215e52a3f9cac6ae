package validation

import (
	"fmt"
	"math/big"
)

// BPSDenominator is the basis-point scale fee rates are quoted in.
var BPSDenominator = big.NewInt(10_000)

// ExpectedFee computes withdrawnValue * feeBPS / 10_000, rounded down.
func ExpectedFee(withdrawnValue, feeBPS *big.Int) *big.Int {
	fee := new(big.Int).Mul(withdrawnValue, feeBPS)
	return fee.Div(fee, BPSDenominator)
}

// CheckBudget enforces the economic gate: the fee promised by the withdrawal
// must cover the worst-case advance the sponsor might front for it. Actual
// cost is settled later; this bound is what makes fronting safe.
func CheckBudget(facts *Facts, maxAdvance *big.Int) error {
	expected := ExpectedFee(facts.WithdrawnValue, facts.FeeBPS)
	if expected.Cmp(maxAdvance) < 0 {
		return Reject(ReasonInsufficientCost,
			fmt.Errorf("expected fee %s below max advance %s", expected, maxAdvance))
	}
	return nil
}
