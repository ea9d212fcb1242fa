package action

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
	"github.com/ppiankov/vaultguard/internal/feeclaimer"
	"github.com/ppiankov/vaultguard/internal/oracle"
	"github.com/ppiankov/vaultguard/internal/threshold"
	"github.com/ppiankov/vaultguard/internal/vault"
)

var (
	weth      = chaintest.Addr(0xe1)
	usdc      = chaintest.Addr(0xc1)
	dai       = chaintest.Addr(0xda1)
	vaultAddr = chaintest.Addr(0x7a)
	collector = chaintest.Addr(0xfc)
	claimAddr = chaintest.Addr(0xfee)
	owner     = chaintest.Addr(0x0a)
	relayer   = chaintest.Addr(0x4e1)
	user      = chaintest.Addr(0x5e)
	stranger  = chaintest.Addr(0xbad)
	recipient = chaintest.Addr(0x4ec)
)

type fixture struct {
	env     *chain.Env
	clock   *chain.FakeClock
	prices  *oracle.Static
	vault   *vault.Memory
	claimer *feeclaimer.Claimer
	next    uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env, clock := chaintest.NewEnv(t)
	prices := oracle.NewStatic(weth)
	prices.Set(weth, usdc, chaintest.Ether(2000))
	v := vault.NewMemory(env, vault.Config{Address: vaultAddr, FeeCollector: collector, WrappedNative: weth, Oracle: prices})
	env.Ledger().Mint(weth, vaultAddr, chaintest.Ether(100))
	env.Ledger().Mint(usdc, vaultAddr, chaintest.Ether(100_000))
	return &fixture{
		env:     env,
		clock:   clock,
		prices:  prices,
		vault:   v,
		claimer: feeclaimer.Deploy(env, claimAddr),
		next:    0xa000,
	}
}

// config allocates an action address and grants it every vault primitive.
func (fx *fixture) config(name string) Config {
	fx.next++
	addr := chaintest.Addr(fx.next)
	for _, sel := range vault.Primitives {
		fx.vault.Authorize(addr, sel)
	}
	return Config{Name: name, Address: addr, Vault: fx.vault, Owner: owner}
}

// relayed grants the call selector to the relayer and user, and registers
// the relayer with weth as paying token.
func (fx *fixture) relayed(t *testing.T, a Action) {
	t.Helper()
	a.Grant(relayer, a.CallSelector())
	a.Grant(user, a.CallSelector())
	fx.mustOK(t, fx.exec(owner, func(f *chain.Frame) error {
		if err := a.SetRelayers(f, []common.Address{relayer}); err != nil {
			return err
		}
		return a.SetPayingToken(f, weth)
	}))
}

func (fx *fixture) exec(from common.Address, fn func(f *chain.Frame) error) *chain.Receipt {
	return fx.env.Execute(chaintest.Legacy(from, 2), fn)
}

func (fx *fixture) mustOK(t *testing.T, r *chain.Receipt) *chain.Receipt {
	t.Helper()
	if !r.Succeeded() {
		t.Fatalf("expected success, got %s: %v", r.Status, r.Err)
	}
	return r
}

func (fx *fixture) balance(token, holder common.Address) *big.Int {
	return fx.env.Ledger().BalanceOf(token, holder)
}

func band(token common.Address, lo, hi *big.Int) threshold.Threshold {
	return threshold.Threshold{Token: token, Min: lo, Max: hi}
}

// anyBand accepts every amount of token.
func anyBand(token common.Address) threshold.Threshold {
	return band(token, new(big.Int), new(big.Int))
}

func setDefault(t *testing.T, fx *fixture, a Action, th threshold.Threshold) {
	t.Helper()
	fx.mustOK(t, fx.exec(owner, func(f *chain.Frame) error { return a.SetDefaultThreshold(f, th) }))
}
