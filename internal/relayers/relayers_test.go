package relayers

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/oracle"
)

var (
	weth      = chaintest.Addr(0xe1)
	usdc      = chaintest.Addr(0xc1)
	dai       = chaintest.Addr(0xda1)
	vaultAddr = chaintest.Addr(0x7a)
	collector = chaintest.Addr(0xfc)
	action    = chaintest.Addr(0xac)
	relayer   = chaintest.Addr(0x4e1)
	user      = chaintest.Addr(0x5e)
)

type fakePayer struct {
	prices *oracle.Static
}

func (p *fakePayer) WrappedNativeToken() common.Address { return weth }
func (p *fakePayer) FeeCollector() common.Address       { return collector }
func (p *fakePayer) Price(base, quote common.Address) (*big.Int, error) {
	return p.prices.Price(base, quote)
}
func (p *fakePayer) Withdraw(f *chain.Frame, token common.Address, amount *big.Int, recipient common.Address, _ []byte) error {
	f.UseGas(chain.GasCall + 2*chain.GasStorageWrite)
	return f.Ledger().Transfer(token, vaultAddr, recipient, amount)
}

func setup(t *testing.T) (*chain.Env, *Config, *fakePayer) {
	t.Helper()
	env, _ := chaintest.NewEnv(t)
	env.Ledger().Mint(weth, vaultAddr, chaintest.Ether(10))
	env.Ledger().Mint(usdc, vaultAddr, chaintest.Ether(1_000_000))
	prices := oracle.NewStatic(weth)
	prices.Set(weth, usdc, chaintest.Ether(2))
	c := New()
	c.Add(relayer)
	c.SetPayingToken(weth)
	return env, c, &fakePayer{prices: prices}
}

// work burns some gas to stand in for the guarded operation.
func work(f *chain.Frame) { f.UseGas(40_000) }

func redeem(env *chain.Env, c *Config, p Payer, from, token common.Address) *chain.Receipt {
	return env.Execute(chaintest.Legacy(from, 3), func(f *chain.Frame) error {
		work(f)
		return c.RedeemGas(f, action, p, token)
	})
}

// --- Redemption ---

func TestNonRelayerNotCharged(t *testing.T) {
	env, c, p := setup(t)
	r := redeem(env, c, p, user, weth)
	if !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if len(r.EventsNamed("TransactionCostPaid")) != 0 {
		t.Error("non-relayer must not emit TransactionCostPaid")
	}
	if env.Ledger().BalanceOf(weth, collector).Sign() != 0 {
		t.Error("non-relayer must not move funds")
	}
}

func TestRelayerChargedOnce(t *testing.T) {
	env, c, p := setup(t)
	r := redeem(env, c, p, relayer, weth)
	if !r.Succeeded() {
		t.Fatal(r.Err)
	}
	events := r.EventsNamed("TransactionCostPaid")
	if len(events) != 1 {
		t.Fatalf("expected one TransactionCostPaid, got %d", len(events))
	}
	amount, _ := events[0].Get("amount")
	gasUsed, _ := events[0].Get("gasUsed")
	price, _ := events[0].Get("gasPrice")

	want := new(big.Int).Mul(gasUsed.(*big.Int), price.(*big.Int))
	if amount.(*big.Int).Cmp(want) != 0 {
		t.Errorf("expected amount %s, got %s", want, amount)
	}
	if price.(*big.Int).Cmp(r.EffectiveGasPrice) != 0 {
		t.Errorf("expected effective gas price %s, got %s", r.EffectiveGasPrice, price)
	}
	if got := env.Ledger().BalanceOf(weth, collector); got.Cmp(amount.(*big.Int)) != 0 {
		t.Errorf("expected collector to receive %s, got %s", amount, got)
	}
	assertClose(t, gasUsed.(*big.Int).Uint64(), r.GasUsed)
}

func TestRelayerChargedInConvertedToken(t *testing.T) {
	env, c, p := setup(t)
	r := redeem(env, c, p, relayer, usdc)
	if !r.Succeeded() {
		t.Fatal(r.Err)
	}
	ev := r.EventsNamed("TransactionCostPaid")[0]
	amount, _ := ev.Get("amount")
	gasUsed, _ := ev.Get("gasUsed")
	native := new(big.Int).Mul(gasUsed.(*big.Int), r.EffectiveGasPrice)
	want, _ := fixedpoint.MulDown(native, chaintest.Ether(2))
	if amount.(*big.Int).Cmp(want) != 0 {
		t.Errorf("expected %s usdc, got %s", want, amount)
	}
	if token, _ := ev.Get("token"); token != usdc {
		t.Errorf("expected usdc token, got %v", token)
	}
}

func TestZeroTokenFallsBackToPayingToken(t *testing.T) {
	env, c, p := setup(t)
	r := redeem(env, c, p, relayer, common.Address{})
	if !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if token, _ := r.EventsNamed("TransactionCostPaid")[0].Get("token"); token != weth {
		t.Errorf("expected paying token weth, got %v", token)
	}

	c2 := New()
	c2.Add(relayer)
	r = redeem(env, c2, p, relayer, common.Address{})
	if !errors.Is(r.Err, ErrPayingTokenZero) {
		t.Errorf("expected ACTION_PAYING_TOKEN_ZERO, got %v", r.Err)
	}
}

func TestMissingRateReverts(t *testing.T) {
	env, c, p := setup(t)
	env.Ledger().Mint(dai, vaultAddr, chaintest.Ether(100))
	r := redeem(env, c, p, relayer, dai)
	if !errors.Is(r.Err, ErrPayingTokenPriceMissing) {
		t.Errorf("expected ACTION_PAYING_TOKEN_PRICE_UNAVAILABLE, got %v", r.Err)
	}
	if env.Ledger().BalanceOf(dai, collector).Sign() != 0 {
		t.Error("failed redemption must not pay")
	}
}

func TestTxCostLimit(t *testing.T) {
	env, c, p := setup(t)
	c.SetTxCostLimit(big.NewInt(1))
	r := redeem(env, c, p, relayer, weth)
	if !errors.Is(r.Err, ErrTxCostLimitExceeded) {
		t.Fatalf("expected ACTION_TX_COST_LIMIT_EXCEEDED, got %v", r.Err)
	}

	c.SetTxCostLimit(chaintest.Ether(1))
	if r := redeem(env, c, p, relayer, weth); !r.Succeeded() {
		t.Errorf("expected redemption under limit, got %v", r.Err)
	}
}

func TestInsufficientVaultBalanceReverts(t *testing.T) {
	env, c, p := setup(t)
	env.Ledger().Burn(weth, vaultAddr, chaintest.Ether(10))
	r := redeem(env, c, p, relayer, weth)
	if !errors.Is(r.Err, chain.ErrInsufficientBalance) {
		t.Errorf("expected insufficient balance, got %v", r.Err)
	}
}

// --- Setters ---

func TestSettersRejectZero(t *testing.T) {
	c := New()
	if err := c.Add(common.Address{}); !errors.Is(err, ErrRelayerZero) {
		t.Errorf("expected ACTION_RELAYER_ZERO, got %v", err)
	}
	if err := c.Set([]common.Address{relayer, {}}); !errors.Is(err, ErrRelayerZero) {
		t.Errorf("expected ACTION_RELAYER_ZERO, got %v", err)
	}
	if err := c.SetPayingToken(common.Address{}); !errors.Is(err, ErrPayingTokenZero) {
		t.Errorf("expected ACTION_PAYING_TOKEN_ZERO, got %v", err)
	}
	if err := c.SetTxCostLimit(big.NewInt(-1)); !errors.Is(err, ErrNegativeLimit) {
		t.Errorf("expected negative limit error, got %v", err)
	}
}

func TestSetReplacesRelayers(t *testing.T) {
	c := New()
	c.Add(relayer)
	c.Set([]common.Address{user})
	if c.IsRelayer(relayer) || !c.IsRelayer(user) {
		t.Errorf("unexpected relayers %v", c.Relayers())
	}
	c.Remove(user)
	if len(c.Relayers()) != 0 {
		t.Error("expected empty relayer set")
	}
}

func assertClose(t *testing.T, charged, actual uint64) {
	t.Helper()
	diff := int64(charged) - int64(actual)
	if diff < 0 {
		diff = -diff
	}
	if diff*10 > int64(actual) {
		t.Errorf("charged gas %d not within 10%% of receipt gas %d", charged, actual)
	}
}
