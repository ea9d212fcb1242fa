// Package gaslimit caps the gas price a transaction may pay.
package gaslimit

import (
	"math/big"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrGasPriceLimitExceeded    = model.NewRevert("ACTION_GAS_PRICE_LIMIT_EXCEEDED")
	ErrPriorityFeeLimitExceeded = model.NewRevert("ACTION_PRIORITY_FEE_LIMIT_EXCEEDED")
	ErrNegativeLimit            = model.NewRevert("ACTION_GAS_LIMIT_NEGATIVE")
)

// Config holds the caps. Zero disables a cap.
type Config struct {
	gasPriceLimit    *big.Int
	priorityFeeLimit *big.Int
}

func New() *Config {
	return &Config{gasPriceLimit: new(big.Int), priorityFeeLimit: new(big.Int)}
}

func (c *Config) Set(gasPriceLimit, priorityFeeLimit *big.Int) error {
	gpl, pfl := orZero(gasPriceLimit), orZero(priorityFeeLimit)
	if gpl.Sign() < 0 || pfl.Sign() < 0 {
		return ErrNegativeLimit
	}
	c.gasPriceLimit = new(big.Int).Set(gpl)
	c.priorityFeeLimit = new(big.Int).Set(pfl)
	return nil
}

func (c *Config) GasPriceLimit() *big.Int { return new(big.Int).Set(c.gasPriceLimit) }

func (c *Config) PriorityFeeLimit() *big.Int { return new(big.Int).Set(c.priorityFeeLimit) }

// Validate checks the executing transaction's fee fields. Legacy
// transactions are checked against the gas price cap. Dynamic-fee
// transactions are checked against the priority fee cap or, when only a
// gas price cap is set, against the parent base fee plus the tip.
func (c *Config) Validate(f *chain.Frame) error {
	f.UseGas(chain.GasStorageRead)
	tx := f.Tx()
	if tx.IsLegacy() {
		if exceeds(tx.GasPrice, c.gasPriceLimit) {
			return ErrGasPriceLimitExceeded.Withf("gas price %s > %s", tx.GasPrice, c.gasPriceLimit)
		}
		return nil
	}

	tip := tx.PriorityFee()
	if c.priorityFeeLimit.Sign() != 0 {
		if exceeds(tip, c.priorityFeeLimit) {
			return ErrPriorityFeeLimitExceeded.Withf("priority fee %s > %s", tip, c.priorityFeeLimit)
		}
		return nil
	}
	if c.gasPriceLimit.Sign() != 0 {
		implied := new(big.Int).Add(f.EstimatedBaseFee(), tip)
		if exceeds(implied, c.gasPriceLimit) {
			return ErrGasPriceLimitExceeded.Withf("base fee + tip %s > %s", implied, c.gasPriceLimit)
		}
	}
	return nil
}

func (c *Config) Clone() *Config {
	return &Config{
		gasPriceLimit:    new(big.Int).Set(c.gasPriceLimit),
		priorityFeeLimit: new(big.Int).Set(c.priorityFeeLimit),
	}
}

func exceeds(v, limit *big.Int) bool {
	return limit.Sign() != 0 && v.Cmp(limit) > 0
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
