// Package chaintest provides helpers for tests that execute code inside
// a chain transaction.
package chaintest

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/ppiankov/vaultguard/internal/chain"
)

// Genesis is the fake clock start used by every test environment.
var Genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NewEnv returns an Env on a fake clock.
func NewEnv(t testing.TB) (*chain.Env, *chain.FakeClock) {
	t.Helper()
	clock := chain.NewFakeClock(Genesis)
	return chain.NewEnv(clock), clock
}

// Legacy returns a legacy transaction from sender priced in gwei.
func Legacy(from common.Address, gwei int64) *chain.Tx {
	return &chain.Tx{From: from, GasPrice: Gwei(gwei)}
}

// Dynamic returns an EIP-1559 transaction from sender with the given fee
// cap and tip in wei.
func Dynamic(from common.Address, maxFee, tip *big.Int) *chain.Tx {
	return &chain.Tx{From: from, MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}
}

// Run executes fn in a transaction sent by from at 2 gwei and returns its error.
func Run(t testing.TB, env *chain.Env, from common.Address, fn func(f *chain.Frame) error) error {
	t.Helper()
	return env.Execute(Legacy(from, 2), fn).Err
}

// Gwei converts gwei to wei.
func Gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.GWei))
}

// Ether converts whole units to an 18-decimal amount.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// Fraction returns num/den of one 18-decimal unit.
func Fraction(num, den int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(num), big.NewInt(params.Ether))
	return v.Div(v, big.NewInt(den))
}

// Addr derives a readable test address from n.
func Addr(n uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(n))
}
