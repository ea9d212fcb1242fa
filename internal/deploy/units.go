package deploy

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/params"

	"github.com/ppiankov/vaultguard/internal/fixedpoint"
)

var units = map[string]*big.Int{
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
}

// ParseAmount parses an amount with an optional unit suffix, e.g.
// "1000", "0x3e8", "30 gwei" or "1.5ether". Without a unit the amount is
// in wei and must be an integer. An empty string is zero.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	num, unit := splitUnit(s)
	if unit == "" {
		v, ok := math.ParseBig256(num)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
		return v, nil
	}
	mul, ok := units[unit]
	if !ok {
		return nil, fmt.Errorf("invalid amount %q: unknown unit %q", s, unit)
	}
	return scale(s, num, mul)
}

// ParseFixed parses an 18-decimal fixed-point number written as "2000",
// "0.015" or "1.5%".
func ParseFixed(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	one := fixedpoint.One()
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := scale(s, strings.TrimSpace(pct), one)
		if err != nil {
			return nil, err
		}
		return v.Div(v, big.NewInt(100)), nil
	}
	return scale(s, s, one)
}

func splitUnit(s string) (string, string) {
	lower := strings.ToLower(s)
	for _, u := range []string{"gwei", "ether", "wei"} {
		if num, ok := strings.CutSuffix(lower, u); ok {
			return strings.TrimSpace(num), u
		}
	}
	return s, ""
}

// scale multiplies a decimal by mul, rejecting results with a fractional part.
func scale(orig, num string, mul *big.Int) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(num)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", orig)
	}
	r.Mul(r, new(big.Rat).SetInt(mul))
	if !r.IsInt() {
		return nil, fmt.Errorf("invalid amount %q: finer than one wei", orig)
	}
	return new(big.Int).Set(r.Num()), nil
}
