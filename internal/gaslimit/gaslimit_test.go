package gaslimit

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
)

var sender = chaintest.Addr(0x5e)

func validateTx(t *testing.T, c *Config, tx *chain.Tx) error {
	t.Helper()
	env, _ := chaintest.NewEnv(t)
	r := env.Execute(tx, c.Validate)
	if r.Status == chain.StatusRejected {
		t.Fatalf("transaction rejected: %v", r.Err)
	}
	return r.Err
}

func plus(v *big.Int, n int64) *big.Int {
	return new(big.Int).Add(v, big.NewInt(n))
}

// --- Legacy ---

func TestLegacyBoundary(t *testing.T) {
	limit := chaintest.Gwei(2)
	c := New()
	c.Set(limit, nil)

	if err := validateTx(t, c, &chain.Tx{From: sender, GasPrice: limit}); err != nil {
		t.Errorf("expected pass at limit, got %v", err)
	}
	err := validateTx(t, c, &chain.Tx{From: sender, GasPrice: plus(limit, 1)})
	if !errors.Is(err, ErrGasPriceLimitExceeded) {
		t.Errorf("expected ACTION_GAS_PRICE_LIMIT_EXCEEDED at limit+1, got %v", err)
	}
}

func TestLegacyIgnoresPriorityFeeLimit(t *testing.T) {
	c := New()
	c.Set(nil, big.NewInt(1))
	if err := validateTx(t, c, chaintest.Legacy(sender, 50)); err != nil {
		t.Errorf("legacy tx checks gas price limit only, got %v", err)
	}
}

func TestNoLimits(t *testing.T) {
	c := New()
	if err := validateTx(t, c, chaintest.Legacy(sender, 1000)); err != nil {
		t.Errorf("expected pass with no limits, got %v", err)
	}
	if err := validateTx(t, c, chaintest.Dynamic(sender, chaintest.Gwei(1000), chaintest.Gwei(999))); err != nil {
		t.Errorf("expected pass with no limits, got %v", err)
	}
}

// --- Dynamic fee ---

func TestPriorityFeeBoundary(t *testing.T) {
	limit := chaintest.Gwei(3)
	c := New()
	c.Set(chaintest.Gwei(1), limit)

	if err := validateTx(t, c, chaintest.Dynamic(sender, chaintest.Gwei(10), limit)); err != nil {
		t.Errorf("expected pass at limit, got %v", err)
	}
	err := validateTx(t, c, chaintest.Dynamic(sender, chaintest.Gwei(10), plus(limit, 1)))
	if !errors.Is(err, ErrPriorityFeeLimitExceeded) {
		t.Errorf("expected ACTION_PRIORITY_FEE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestImpliedGasPriceBoundary(t *testing.T) {
	env, _ := chaintest.NewEnv(t)
	base := env.Head().BaseFee
	tip := big.NewInt(5)
	c := New()
	c.Set(new(big.Int).Add(base, tip), nil)

	r := env.Execute(chaintest.Dynamic(sender, chaintest.Gwei(10), tip), c.Validate)
	if !r.Succeeded() {
		t.Errorf("expected pass when base fee + tip equals limit, got %v", r.Err)
	}
	r = env.Execute(chaintest.Dynamic(sender, chaintest.Gwei(10), plus(tip, 1)), c.Validate)
	if !errors.Is(r.Err, ErrGasPriceLimitExceeded) {
		t.Errorf("expected ACTION_GAS_PRICE_LIMIT_EXCEEDED one wei over, got %v", r.Err)
	}
}

func TestImpliedGasPriceUsesParentBaseFee(t *testing.T) {
	env, _ := chaintest.NewEnv(t)
	env.SetBaseFee(chaintest.Gwei(4))
	c := New()
	c.Set(chaintest.Gwei(5), nil)

	r := env.Execute(chaintest.Dynamic(sender, chaintest.Gwei(10), plus(chaintest.Gwei(1), 1)), c.Validate)
	if !errors.Is(r.Err, ErrGasPriceLimitExceeded) {
		t.Errorf("expected 4 gwei base + 1 gwei tip + 1 to exceed 5 gwei, got %v", r.Err)
	}
}

func TestSetRejectsNegative(t *testing.T) {
	c := New()
	if err := c.Set(big.NewInt(-1), nil); !errors.Is(err, ErrNegativeLimit) {
		t.Errorf("expected negative limit error, got %v", err)
	}
}
