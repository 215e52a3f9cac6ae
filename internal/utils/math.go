package utils

import "math/big"

// BigMaxZero clamps a negative big integer to zero. The input is not mutated.
func BigMaxZero(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// BigFromDecimal parses a base-10 big integer, returning zero on empty or
// malformed input. Used when reading amounts persisted as decimal strings.
func BigFromDecimal(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
