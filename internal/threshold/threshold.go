// Package threshold validates that an amount, converted into a reference
// token, falls inside a configured [min, max] band.
package threshold

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/oracle"
)

var (
	ErrTokenZero = model.NewRevert("ACTION_THRESHOLD_TOKEN_ZERO")
	ErrMaxLtMin  = model.NewRevert("ACTION_BAD_THRESHOLD_MAX_LT_MIN")
	ErrNotMet    = model.NewRevert("ACTION_TOKEN_THRESHOLD_NOT_MET")
)

// Threshold is a band denominated in Token. Max zero means unbounded.
type Threshold struct {
	Token common.Address `json:"token" yaml:"token"`
	Min   *big.Int       `json:"min" yaml:"min"`
	Max   *big.Int       `json:"max" yaml:"max"`
}

// IsValid reports whether amount, already expressed in t.Token, is in band.
func (t Threshold) IsValid(amount *big.Int) bool {
	if amount.Cmp(orZero(t.Min)) < 0 {
		return false
	}
	upper := orZero(t.Max)
	return upper.Sign() == 0 || amount.Cmp(upper) <= 0
}

func (t Threshold) validate() error {
	if t.Token == (common.Address{}) {
		return ErrTokenZero
	}
	if t.Min != nil && t.Min.Sign() < 0 || t.Max != nil && t.Max.Sign() < 0 {
		return ErrMaxLtMin.Withf("negative bound")
	}
	upper := orZero(t.Max)
	if upper.Sign() != 0 && upper.Cmp(orZero(t.Min)) < 0 {
		return ErrMaxLtMin.Withf("max %s < min %s", upper, orZero(t.Min))
	}
	return nil
}

func (t Threshold) clone() Threshold {
	return Threshold{Token: t.Token, Min: new(big.Int).Set(orZero(t.Min)), Max: new(big.Int).Set(orZero(t.Max))}
}

// Config holds a default threshold and per-token overrides.
type Config struct {
	def    *Threshold
	custom map[common.Address]Threshold
}

func New() *Config {
	return &Config{custom: make(map[common.Address]Threshold)}
}

// SetDefault sets the threshold applied to tokens without an override.
func (c *Config) SetDefault(th Threshold) error {
	if err := th.validate(); err != nil {
		return err
	}
	v := th.clone()
	c.def = &v
	return nil
}

// UnsetDefault removes the default threshold.
func (c *Config) UnsetDefault() {
	c.def = nil
}

// SetCustom sets the threshold applied to token.
func (c *Config) SetCustom(token common.Address, th Threshold) error {
	if token == (common.Address{}) {
		return ErrTokenZero.Withf("custom threshold key")
	}
	if err := th.validate(); err != nil {
		return err
	}
	c.custom[token] = th.clone()
	return nil
}

// RemoveCustom removes token's override. Removing an absent override is a no-op.
func (c *Config) RemoveCustom(token common.Address) {
	delete(c.custom, token)
}

func (c *Config) Default() (Threshold, bool) {
	if c.def == nil {
		return Threshold{}, false
	}
	return c.def.clone(), true
}

func (c *Config) Custom(token common.Address) (Threshold, bool) {
	th, ok := c.custom[token]
	if !ok {
		return Threshold{}, false
	}
	return th.clone(), true
}

// Customs returns every override keyed by token, sorted by token.
func (c *Config) Customs() []CustomThreshold {
	out := make([]CustomThreshold, 0, len(c.custom))
	for token, th := range c.custom {
		out = append(out, CustomThreshold{Token: token, Threshold: th.clone()})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Token[:], out[j].Token[:]) < 0 })
	return out
}

// CustomThreshold pairs an override with the token it applies to.
type CustomThreshold struct {
	Token     common.Address
	Threshold Threshold
}

// Resolve returns the custom threshold for token, else the default.
func (c *Config) Resolve(token common.Address) (Threshold, bool) {
	if th, ok := c.Custom(token); ok {
		return th, true
	}
	return c.Default()
}

// Validate checks amount of token against its resolved threshold. With no
// threshold configured nothing passes.
func (c *Config) Validate(f *chain.Frame, prices oracle.PriceOracle, token common.Address, amount *big.Int) error {
	f.UseGas(chain.GasStorageRead)
	th, ok := c.Resolve(token)
	if !ok {
		return ErrNotMet.Withf("no threshold for %s", token.Hex())
	}
	converted := amount
	if token != th.Token {
		f.UseGas(chain.GasCall)
		price, err := prices.Price(token, th.Token)
		if err != nil {
			return err
		}
		if converted, err = fixedpoint.MulDown(amount, price); err != nil {
			return err
		}
	}
	if !th.IsValid(converted) {
		return ErrNotMet.Withf("%s of %s not in [%s, %s]", converted, th.Token.Hex(), orZero(th.Min), orZero(th.Max))
	}
	return nil
}

func (c *Config) Clone() *Config {
	out := New()
	if c.def != nil {
		v := c.def.clone()
		out.def = &v
	}
	for token, th := range c.custom {
		out.custom[token] = th.clone()
	}
	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
