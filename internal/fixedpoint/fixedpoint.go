// Package fixedpoint implements 18-decimal fixed-point arithmetic on
// 256-bit unsigned integers. Every operation reverts on overflow instead
// of wrapping.
package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrOverflow  = model.NewRevert("FIXED_POINT_OVERFLOW")
	ErrNegative  = model.NewRevert("FIXED_POINT_NEGATIVE")
	ErrDivByZero = model.NewRevert("FIXED_POINT_DIV_BY_ZERO")
	one          = uint256.NewInt(1e18)
	oneBig       = one.ToBig()
)

// One returns 1.0 in fixed-point representation.
func One() *big.Int { return new(big.Int).Set(oneBig) }

// MulDown returns a*b/1e18 rounded down.
func MulDown(a, b *big.Int) (*big.Int, error) {
	x, y, err := operands(a, b)
	if err != nil {
		return nil, err
	}
	p, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow.Withf("%s * %s", a, b)
	}
	return p.Div(p, one).ToBig(), nil
}

// MulUp returns a*b/1e18 rounded up.
func MulUp(a, b *big.Int) (*big.Int, error) {
	x, y, err := operands(a, b)
	if err != nil {
		return nil, err
	}
	p, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow.Withf("%s * %s", a, b)
	}
	return ceilDiv(p, one).ToBig(), nil
}

// DivDown returns a*1e18/b rounded down.
func DivDown(a, b *big.Int) (*big.Int, error) {
	x, y, err := operands(a, b)
	if err != nil {
		return nil, err
	}
	if y.IsZero() {
		return nil, ErrDivByZero
	}
	p, overflow := new(uint256.Int).MulOverflow(x, one)
	if overflow {
		return nil, ErrOverflow.Withf("%s / %s", a, b)
	}
	return p.Div(p, y).ToBig(), nil
}

// DivUp returns a*1e18/b rounded up.
func DivUp(a, b *big.Int) (*big.Int, error) {
	x, y, err := operands(a, b)
	if err != nil {
		return nil, err
	}
	if y.IsZero() {
		return nil, ErrDivByZero
	}
	p, overflow := new(uint256.Int).MulOverflow(x, one)
	if overflow {
		return nil, ErrOverflow.Withf("%s / %s", a, b)
	}
	return ceilDiv(p, y).ToBig(), nil
}

// Inv returns 1/a in fixed point, rounded down.
func Inv(a *big.Int) (*big.Int, error) {
	return DivDown(oneBig, a)
}

// Mul returns a*b with overflow checking and no scaling.
func Mul(a, b *big.Int) (*big.Int, error) {
	x, y, err := operands(a, b)
	if err != nil {
		return nil, err
	}
	p, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow.Withf("%s * %s", a, b)
	}
	return p.ToBig(), nil
}

// Pct returns amount*pct/1e18, where pct is a fixed-point fraction.
func Pct(amount, pct *big.Int) (*big.Int, error) {
	return MulDown(amount, pct)
}

func operands(a, b *big.Int) (*uint256.Int, *uint256.Int, error) {
	x, err := toUint(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := toUint(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func toUint(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegative.Withf("%s", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow.Withf("%s exceeds 256 bits", v)
	}
	return u, nil
}

func ceilDiv(x, y *uint256.Int) *uint256.Int {
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(x, y, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
