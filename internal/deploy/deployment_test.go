package deploy

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/threshold"
)

func newDefault(t *testing.T) (*Deployment, *chain.FakeClock) {
	t.Helper()
	clock := chain.NewFakeClock(chaintest.Genesis)
	d, err := New(DefaultConfig(), clock)
	if err != nil {
		t.Fatalf("build default deployment: %v", err)
	}
	return d, clock
}

func addr(t *testing.T, d *Deployment, name string) common.Address {
	t.Helper()
	a, err := d.Resolve(name)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func invoke(t *testing.T, d *Deployment, from, name, method string, args ...string) *chain.Receipt {
	t.Helper()
	r, err := d.Invoke(chaintest.Legacy(addr(t, d, from), 2), name, method, args)
	if err != nil {
		t.Fatalf("invoke %s.%s: %v", name, method, err)
	}
	return r
}

func ether(n int64) *big.Int { return chaintest.Ether(n) }

// --- Build ---

func TestDefaultDeploymentBuilds(t *testing.T) {
	d, _ := newDefault(t)

	if got := len(d.Actions()); got != 4 {
		t.Fatalf("expected 4 actions, got %d", got)
	}
	info, err := d.Inspect("withdrawer")
	if err != nil {
		t.Fatal(err)
	}
	if info.TimeLock == nil || !info.TimeLock.Set || info.TimeLock.Delay != (24*time.Hour).String() {
		t.Errorf("expected 24h time lock, got %+v", info.TimeLock)
	}
	if info.Threshold.Default.Token != addr(t, d, "USDC").Hex() {
		t.Errorf("expected USDC threshold, got %+v", info.Threshold.Default)
	}
	if info.GasLimit.GasPriceLimit != "100000000000" {
		t.Errorf("expected 100 gwei limit, got %s", info.GasLimit.GasPriceLimit)
	}
	if len(info.Relayers.Relayers) != 1 || info.Relayers.PayingToken != addr(t, d, "WETH").Hex() {
		t.Errorf("unexpected relayers %+v", info.Relayers)
	}

	if got := d.Balance(addr(t, d, "USDC"), addr(t, d, "vault")); got.Cmp(ether(50_000)) != 0 {
		t.Errorf("expected vault funded with 50000 USDC, got %s", got)
	}
	fc, ok := d.FeeClaimer("fees")
	if !ok || fc.Balance(addr(t, d, "USDC"), addr(t, d, "vault")).Cmp(ether(250)) != 0 {
		t.Error("expected fee claimer credited with 250 USDC for the vault")
	}
}

func TestResolveNames(t *testing.T) {
	d, _ := newDefault(t)

	if a := addr(t, d, "weth"); a != common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2") {
		t.Errorf("expected case-insensitive symbol lookup, got %s", a.Hex())
	}
	if a := addr(t, d, "native"); a != chain.NativeToken {
		t.Errorf("expected native token, got %s", a.Hex())
	}
	if a := addr(t, d, ""); a != (common.Address{}) {
		t.Error("expected zero address for empty string")
	}
	if _, err := d.Resolve("nobody"); err == nil {
		t.Error("expected unknown name to fail")
	}
	if got := d.Label(addr(t, d, "withdrawer")); got != "withdrawer" {
		t.Errorf("expected label withdrawer, got %s", got)
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Actions[0].Kind = "teleporter"
	if _, err := New(cfg, chain.NewFakeClock(chaintest.Genesis)); err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Actions[1].Name = "withdrawer"
	if _, err := New(cfg, chain.NewFakeClock(chaintest.Genesis)); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestNewReportsGenesisRevert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Actions[0].Guards.Threshold.Default = &BandConfig{Token: "USDC", Min: "10 ether", Max: "1 ether"}
	_, err := New(cfg, chain.NewFakeClock(chaintest.Genesis))
	if !errors.Is(err, threshold.ErrMaxLtMin) {
		t.Fatalf("expected genesis revert to surface, got %v", err)
	}
}

// --- Invoke ---

func TestInvokeWithdrawByRelayer(t *testing.T) {
	d, _ := newDefault(t)

	r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "100 ether")
	if !r.Succeeded() {
		t.Fatalf("expected success, got %v", r.Err)
	}
	if got := d.Balance(addr(t, d, "USDC"), addr(t, d, "treasury")); got.Cmp(ether(100)) != 0 {
		t.Errorf("expected treasury to receive 100 USDC, got %s", got)
	}
	if len(r.EventsNamed("TransactionCostPaid")) != 1 {
		t.Error("expected relayer gas redemption")
	}
	if r.To != addr(t, d, "withdrawer") {
		t.Errorf("expected receipt addressed to the action, got %s", r.To.Hex())
	}
}

func TestInvokeRevertIsReceipt(t *testing.T) {
	d, _ := newDefault(t)

	r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "1 ether")
	if !errors.Is(r.Err, threshold.ErrNotMet) {
		t.Fatalf("expected threshold revert, got %v", r.Err)
	}
	if r.Code != "ACTION_TOKEN_THRESHOLD_NOT_MET" {
		t.Errorf("expected code on receipt, got %q", r.Code)
	}
}

func TestInvokeTimeLockAcrossCalls(t *testing.T) {
	d, clock := newDefault(t)

	if r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "100 ether"); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "100 ether"); r.Code != "ACTION_TIME_LOCK_NOT_EXPIRED" {
		t.Fatalf("expected time lock, got %v", r.Err)
	}
	clock.Advance(25 * time.Hour)
	if r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "100 ether"); !r.Succeeded() {
		t.Fatal(r.Err)
	}
}

func TestInvokeClaim(t *testing.T) {
	d, _ := newDefault(t)
	before := d.Balance(addr(t, d, "USDC"), addr(t, d, "vault"))

	r := invoke(t, d, "relayer", "claimer", "call", "USDC")
	if !r.Succeeded() {
		t.Fatalf("expected claim to succeed, got %v", r.Err)
	}
	gained := new(big.Int).Sub(d.Balance(addr(t, d, "USDC"), addr(t, d, "vault")), before)
	if gained.Cmp(ether(250)) != 0 {
		t.Errorf("expected 250 USDC claimed, got %s", gained)
	}
}

func TestInvokeSwapAcceptance(t *testing.T) {
	d, _ := newDefault(t)

	if r := invoke(t, d, "relayer", "swapper", "call", "WETH", "1 ether", "1990 ether"); !r.Succeeded() {
		t.Fatalf("expected WETH swap to succeed, got %v", r.Err)
	}
	r := invoke(t, d, "relayer", "swapper", "call", "native", "1 ether", "0")
	if r.Code != "ACTION_TOKEN_NOT_ALLOWED" {
		t.Fatalf("expected native rejected by allow list, got %v", r.Err)
	}
}

func TestInvokeAuthorizeByMethodName(t *testing.T) {
	d, _ := newDefault(t)
	stranger := "0x00000000000000000000000000000000000bad00"

	if r := invoke(t, d, stranger, "wrapper", "pause"); !errors.Is(r.Err, model.ErrSenderNotAllowed) {
		t.Fatalf("expected stranger denied, got %v", r.Err)
	}
	if r := invoke(t, d, DefaultDeployer, "wrapper", "authorize", stranger, "pause"); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if r := invoke(t, d, stranger, "wrapper", "pause"); !r.Succeeded() {
		t.Fatalf("expected granted stranger to pause, got %v", r.Err)
	}
	a, _ := d.Action("wrapper")
	if !a.Paused() {
		t.Error("expected wrapper paused")
	}
}

func TestInvokeAddAndRemoveRelayer(t *testing.T) {
	d, _ := newDefault(t)
	relayer := addr(t, d, "relayer").Hex()

	if r := invoke(t, d, DefaultDeployer, "withdrawer", "removeRelayer", "relayer"); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	info, err := d.Inspect("withdrawer")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Relayers.Relayers) != 0 {
		t.Fatalf("expected no relayers after remove, got %v", info.Relayers.Relayers)
	}
	r := invoke(t, d, "relayer", "withdrawer", "call", "USDC", "100 ether")
	if !r.Succeeded() || len(r.EventsNamed("TransactionCostPaid")) != 0 {
		t.Fatalf("expected unreimbursed call, got %v with %d redemptions", r.Err, len(r.EventsNamed("TransactionCostPaid")))
	}

	if r := invoke(t, d, DefaultDeployer, "withdrawer", "addRelayer", "relayer"); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if info, _ = d.Inspect("withdrawer"); len(info.Relayers.Relayers) != 1 || !strings.EqualFold(info.Relayers.Relayers[0], relayer) {
		t.Errorf("expected relayer restored, got %v", info.Relayers.Relayers)
	}
}

func TestInvokeAddAndRemoveTrustedSigner(t *testing.T) {
	d, _ := newDefault(t)
	signer := "0x00000000000000000000000000000000005167e2"

	if r := invoke(t, d, DefaultDeployer, "swapper", "addTrustedSigner", signer); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	info, err := d.Inspect("swapper")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Signers.Signers) != 1 || !strings.EqualFold(info.Signers.Signers[0], signer) {
		t.Fatalf("expected signer added, got %v", info.Signers.Signers)
	}
	if r := invoke(t, d, DefaultDeployer, "swapper", "removeTrustedSigner", signer); !r.Succeeded() {
		t.Fatal(r.Err)
	}
	if info, _ = d.Inspect("swapper"); len(info.Signers.Signers) != 0 {
		t.Errorf("expected signer removed, got %v", info.Signers.Signers)
	}

	if r := invoke(t, d, DefaultDeployer, "wrapper", "addTrustedSigner", signer); !errors.Is(r.Err, model.ErrGuardNotSupported) {
		t.Errorf("expected wrapper to lack signers, got %v", r.Err)
	}
}

func TestInvokeArgumentErrorsDoNotMine(t *testing.T) {
	d, _ := newDefault(t)
	head := d.Env.Head().Number

	cases := [][]string{
		{"USDC"},                     // missing amount
		{"USDC", "lots"},             // bad amount
		{"USDC", "1 ether", "extra"}, // too many
		{"NOPE", "1 ether"},          // unknown token
	}
	for _, args := range cases {
		if _, err := d.Invoke(chaintest.Legacy(addr(t, d, "relayer"), 2), "withdrawer", "call", args); err == nil {
			t.Errorf("args %q: expected error", args)
		}
	}
	if d.Env.Head().Number != head {
		t.Error("expected no block mined for rejected arguments")
	}
}

func TestInvokeUnknownMethodAndAction(t *testing.T) {
	d, _ := newDefault(t)
	tx := chaintest.Legacy(addr(t, d, "relayer"), 2)

	if _, err := d.Invoke(tx, "withdrawer", "setTokenOut", []string{"USDC"}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
	if _, err := d.Invoke(tx, "ghost", "call", nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestMethodsListCall(t *testing.T) {
	d, _ := newDefault(t)

	methods, err := d.Methods("swapper")
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, m := range methods {
		if m.Name == "call" {
			found = true
			if m.Selector != action.SelSwapperCall.String() {
				t.Errorf("expected swapper call selector, got %s", m.Selector)
			}
		}
	}
	if !found {
		t.Error("expected call method")
	}
}
