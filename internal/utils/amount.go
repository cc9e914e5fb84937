package utils

import (
	"fmt"
	"math/big"
)

// ParseAmount parses a non-negative integer amount from its decimal string
// form. Amounts travel as strings on the wire and in storage and as *big.Int
// in arithmetic.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// MulDiv computes a*num/den with truncating integer division. den must be
// nonzero.
func MulDiv(a *big.Int, num, den uint64) *big.Int {
	r := new(big.Int).Mul(a, new(big.Int).SetUint64(num))
	return r.Quo(r, new(big.Int).SetUint64(den))
}
