package node

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/vaultguard/internal/audit"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/deploy"
	"github.com/ppiankov/vaultguard/internal/ratelimit"
)

const wrapperOnly = `
tokens:
  WETH: "0x00000000000000000000000000000000000000e1"
wrapped_native: WETH
vault:
  address: "0x000000000000000000000000000000000000007a"
  fee_collector: "0x00000000000000000000000000000000000000fc"
accounts:
  ops: "0x00000000000000000000000000000000000000a1"
actions:
  - name: wrapper
    kind: wrapper
    address: "0x000000000000000000000000000000000000a003"
    callers: [ops]
`

func newTestNode(t *testing.T) (*Node, string) {
	t.Helper()
	dir := t.TempDir()
	n, err := New(Options{
		DeploymentPath: filepath.Join(dir, "deployment.yaml"),
		AuditLog:       filepath.Join(dir, "audit.jsonl"),
		EventStore:     filepath.Join(dir, "events.db"),
		Clock:          chain.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { n.Close() })
	return n, dir
}

func withdraw(sender string) Call {
	return Call{Action: "withdrawer", Method: "call", Sender: sender, Args: []string{"USDC", "100 ether"}}
}

// --- Execute ---

func TestExecuteSuccess(t *testing.T) {
	n, _ := newTestNode(t)

	r, err := n.Execute(context.Background(), withdraw("relayer"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Succeeded() {
		t.Fatalf("expected success, got %s: %v", r.Code, r.Err)
	}
	if len(r.EventsNamed("Executed")) != 1 {
		t.Errorf("expected Executed event, got %v", r.Events)
	}
}

func TestExecuteRevertIsNotAnError(t *testing.T) {
	n, _ := newTestNode(t)

	r, err := n.Execute(context.Background(), withdraw("treasury"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Succeeded() || r.Code != "AUTH_SENDER_NOT_ALLOWED" {
		t.Errorf("expected sender revert, got %s %s", r.Status, r.Code)
	}
}

func TestExecuteLookupErrors(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	if _, err := n.Execute(ctx, Call{Action: "teleporter", Method: "call"}); !errors.Is(err, deploy.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	// The action is resolved before the sender label.
	if _, err := n.Execute(ctx, Call{Action: "teleporter", Method: "call", Sender: "mallory"}); !errors.Is(err, deploy.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction for unknown sender, got %v", err)
	}
	if _, err := n.Execute(ctx, Call{Action: "withdrawer", Method: "teleport"}); !errors.Is(err, deploy.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
	if _, err := n.Execute(ctx, Call{Action: "withdrawer", Method: "call", Args: []string{"USDC"}}); !errors.Is(err, deploy.ErrBadArgument) {
		t.Errorf("expected ErrBadArgument, got %v", err)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	n, _ := newTestNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := n.Execute(ctx, withdraw("relayer")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecuteRateLimited(t *testing.T) {
	n, dir := newTestNode(t)
	ctx := context.Background()

	limited := wrapperOnly + `
rate_limits:
  ops:
    wrapper: {max_requests: 1, window: 1h}
`
	if err := os.WriteFile(filepath.Join(dir, "deployment.yaml"), []byte(limited), 0600); err != nil {
		t.Fatal(err)
	}
	if err := n.Reload(); err != nil {
		t.Fatal(err)
	}

	call := Call{Action: "wrapper", Method: "call", Sender: "ops"}
	r, err := n.Execute(ctx, call)
	if err != nil {
		t.Fatalf("first call should be admitted: %v", err)
	}
	if r.Code != "ACTION_AMOUNT_ZERO" {
		t.Errorf("expected revert from the chain, got %s", r.Code)
	}
	if _, err := n.Execute(ctx, call); !errors.Is(err, ratelimit.ErrExceeded) {
		t.Errorf("expected ErrExceeded, got %v", err)
	}
}

// --- Sinks ---

func TestEventsAreIndexed(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	if _, err := n.Execute(ctx, withdraw("relayer")); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Execute(ctx, withdraw("treasury")); err != nil {
		t.Fatal(err)
	}

	events, err := n.Events(ctx, EventQuery{Emitter: "withdrawer", Name: "Executed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 Executed event, got %d", len(events))
	}

	st, err := n.Stats(ctx, "withdrawer")
	if err != nil {
		t.Fatal(err)
	}
	if st.Receipts != 2 || st.ByStatus["success"] != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	if _, err := n.Events(ctx, EventQuery{Emitter: "nowhere"}); !errors.Is(err, deploy.ErrBadArgument) {
		t.Errorf("expected ErrBadArgument for unknown emitter, got %v", err)
	}
}

func TestAuditChainRecordsReceipts(t *testing.T) {
	n, dir := newTestNode(t)
	ctx := context.Background()

	for _, sender := range []string{"relayer", "treasury"} {
		if _, err := n.Execute(ctx, withdraw(sender)); err != nil {
			t.Fatal(err)
		}
	}

	result := audit.Verify(filepath.Join(dir, "audit.jsonl"))
	if !result.Valid {
		t.Fatalf("audit chain invalid: %s", result.Error)
	}
	if result.Lines != 2 {
		t.Errorf("expected 2 entries, got %d", result.Lines)
	}
	if len(result.ConfigHashes) != 1 || result.ConfigHashes[0] != n.ConfigHash() {
		t.Errorf("expected config hash %s, got %v", n.ConfigHash(), result.ConfigHashes)
	}
}

func TestMemoryStoreByDefault(t *testing.T) {
	n, err := New(Options{DeploymentPath: filepath.Join(t.TempDir(), "none.yaml")})
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	if _, err := n.Execute(context.Background(), withdraw("relayer")); err != nil {
		t.Fatal(err)
	}
	events, err := n.Events(context.Background(), EventQuery{Name: "Executed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event in memory store, got %d", len(events))
	}
}

// --- Inspect ---

func TestActionsAndInspect(t *testing.T) {
	n, _ := newTestNode(t)

	actions, err := n.Actions()
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != len(deploy.DefaultConfig().Actions) {
		t.Fatalf("expected every default action, got %d", len(actions))
	}
	if actions[0].Name != "withdrawer" || len(actions[0].Methods) == 0 {
		t.Errorf("unexpected first action %+v", actions[0])
	}

	info, err := n.Inspect("withdrawer")
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "withdrawer" {
		t.Errorf("expected withdrawer, got %q", info.Name)
	}
}

// --- Reload ---

func TestReloadSwapsDeployment(t *testing.T) {
	n, dir := newTestNode(t)
	ctx := context.Background()
	before := n.ConfigHash()

	if _, err := n.Execute(ctx, withdraw("relayer")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "deployment.yaml"), []byte(wrapperOnly), 0600); err != nil {
		t.Fatal(err)
	}
	if err := n.Reload(); err != nil {
		t.Fatal(err)
	}
	if n.ConfigHash() == before {
		t.Error("expected config hash to change")
	}

	if _, err := n.Execute(ctx, withdraw("relayer")); !errors.Is(err, deploy.ErrUnknownAction) {
		t.Errorf("expected withdrawer gone after reload, got %v", err)
	}
	r, err := n.Execute(ctx, Call{Action: "wrapper", Method: "call", Sender: "ops"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Code != "ACTION_AMOUNT_ZERO" {
		t.Errorf("expected empty vault to revert, got %s", r.Code)
	}

	result := audit.Verify(filepath.Join(dir, "audit.jsonl"))
	if !result.Valid || len(result.ConfigHashes) != 2 {
		t.Errorf("expected audit across two deployments, got %+v", result)
	}
}

func TestReloadKeepsServingOnError(t *testing.T) {
	n, dir := newTestNode(t)
	before := n.ConfigHash()

	if err := os.WriteFile(filepath.Join(dir, "deployment.yaml"), []byte("actions: [{name: x, kind: teleporter}]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := n.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if n.ConfigHash() != before {
		t.Error("expected previous deployment to keep serving")
	}
	if _, err := n.Execute(context.Background(), withdraw("relayer")); err != nil {
		t.Errorf("expected withdrawer still served, got %v", err)
	}
}
