package action

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/threshold"
)

var feeToken = chaintest.Addr(0xf7)

func newTestClaimer(t *testing.T, fx *fixture) *Claimer {
	t.Helper()
	c, err := NewClaimer(fx.env, fx.config("claimer"), fx.claimer.Address())
	if err != nil {
		t.Fatal(err)
	}
	c.Grant(user, c.CallSelector())
	fx.prices.Set(feeToken, weth, chaintest.Ether(2))
	return c
}

func claim(fx *fixture, c *Claimer, from common.Address, token common.Address) *chain.Receipt {
	return fx.exec(from, func(f *chain.Frame) error { return c.Call(f, token) })
}

func TestClaimerClaimsAboveThreshold(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)
	setDefault(t, fx, c, band(weth, chaintest.Fraction(1, 10), nil))
	if err := fx.claimer.Credit(fx.env.Ledger(), vaultAddr, feeToken, chaintest.Fraction(5, 100)); err != nil {
		t.Fatal(err)
	}

	// 0.05 tokens at 2 WETH each is exactly the 0.1 WETH minimum.
	r := fx.mustOK(t, claim(fx, c, user, feeToken))
	if n := len(r.EventsNamed("Executed")); n != 1 {
		t.Fatalf("expected exactly one Executed event, got %d", n)
	}
	if got := fx.balance(feeToken, vaultAddr); got.Cmp(chaintest.Fraction(5, 100)) != 0 {
		t.Errorf("expected vault to hold 0.05, got %s", got)
	}
	if fx.claimer.Balance(feeToken, vaultAddr).Sign() != 0 {
		t.Error("expected claimer balance cleared")
	}
}

func TestClaimerBelowThresholdReverts(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)
	setDefault(t, fx, c, band(weth, chaintest.Fraction(1, 10), nil))
	if err := fx.claimer.Credit(fx.env.Ledger(), vaultAddr, feeToken, chaintest.Fraction(4, 100)); err != nil {
		t.Fatal(err)
	}

	r := claim(fx, c, user, feeToken)
	if !errors.Is(r.Err, threshold.ErrNotMet) {
		t.Fatalf("expected ACTION_TOKEN_THRESHOLD_NOT_MET, got %v", r.Err)
	}
	if fx.claimer.Balance(feeToken, vaultAddr).Sign() == 0 {
		t.Error("expected fees left in the claimer")
	}
}

func TestClaimerNothingToClaim(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)
	setDefault(t, fx, c, anyBand(weth))

	r := claim(fx, c, user, feeToken)
	if !errors.Is(r.Err, ErrFeeClaimFailed) {
		t.Fatalf("expected ACTION_FEE_CLAIM_FAILED, got %v", r.Err)
	}
}

func TestClaimerRejectsZeroToken(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)
	setDefault(t, fx, c, anyBand(weth))

	if r := claim(fx, c, user, common.Address{}); !errors.Is(r.Err, model.ErrAddressZero) {
		t.Fatalf("expected ACTION_ADDRESS_ZERO, got %v", r.Err)
	}
}

func TestClaimerMissingContract(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)
	setDefault(t, fx, c, anyBand(weth))
	fx.mustOK(t, fx.exec(owner, func(f *chain.Frame) error { return c.SetFeeClaimer(f, chaintest.Addr(0x404)) }))

	if r := claim(fx, c, user, feeToken); !errors.Is(r.Err, chain.ErrNoContract) {
		t.Fatalf("expected CALL_TO_NON_CONTRACT, got %v", r.Err)
	}
}

func TestSetFeeClaimerRejectsZero(t *testing.T) {
	fx := newFixture(t)
	c := newTestClaimer(t, fx)

	r := fx.exec(owner, func(f *chain.Frame) error { return c.SetFeeClaimer(f, common.Address{}) })
	if !errors.Is(r.Err, model.ErrAddressZero) {
		t.Fatalf("expected ACTION_ADDRESS_ZERO, got %v", r.Err)
	}
	if c.FeeClaimer() != fx.claimer.Address() {
		t.Error("expected fee claimer unchanged")
	}
}
