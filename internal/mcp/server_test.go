package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/chain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{
		DeploymentPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Clock:          chain.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("failed to create MCP server: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func withdraw(sender string) ExecuteInput {
	return ExecuteInput{Action: "withdrawer", Method: "call", Sender: sender, Args: []string{"USDC", "100 ether"}}
}

func TestExecuteSucceeds(t *testing.T) {
	s := newTestServer(t)

	result, out, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, withdraw("relayer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("expected success, got error result: %+v", out)
	}
	if out.Status != "success" || out.TxID == "" {
		t.Errorf("unexpected output %+v", out)
	}
	found := false
	for _, ev := range out.Events {
		if ev.Name == "Executed" && ev.Emitter == "withdrawer" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Executed from withdrawer, got %+v", out.Events)
	}
}

func TestExecuteReverted(t *testing.T) {
	s := newTestServer(t)

	result, out, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, withdraw("treasury"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for reverted call")
	}
	if !out.Reverted || out.Code != "AUTH_SENDER_NOT_ALLOWED" {
		t.Errorf("expected sender revert, got %+v", out)
	}
}

func TestExecuteCallerErrors(t *testing.T) {
	s := newTestServer(t)

	for _, in := range []ExecuteInput{
		{Action: "teleporter", Method: "call"},
		{Action: "withdrawer", Method: "teleport"},
		{Action: "withdrawer", Method: "call", Args: []string{"USDC"}},
	} {
		result, out, err := s.handleExecute(context.Background(), &mcpsdk.CallToolRequest{}, in)
		if err != nil {
			t.Fatalf("%s.%s: unexpected error: %v", in.Action, in.Method, err)
		}
		if result == nil || !result.IsError || out.Status != "error" || out.Reason == "" {
			t.Errorf("%s.%s: expected error result, got %+v", in.Action, in.Method, out)
		}
	}
}

func TestActionsAndInspect(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, actions, err := s.handleActions(ctx, &mcpsdk.CallToolRequest{}, ActionsInput{})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions.Actions) == 0 || !strings.HasPrefix(actions.ConfigHash, "sha256:") {
		t.Fatalf("unexpected actions output %+v", actions)
	}
	if first := actions.Actions[0]; !strings.HasPrefix(first.Address, "0x") || len(first.Methods) == 0 {
		t.Errorf("unexpected first action %+v", first)
	}

	_, info, err := s.handleInspect(ctx, &mcpsdk.CallToolRequest{}, InspectInput{Action: "withdrawer"})
	if err != nil {
		t.Fatal(err)
	}
	if info.Info["kind"] != string(action.KindWithdrawer) {
		t.Errorf("expected withdrawer, got %v", info.Info["kind"])
	}

	if _, _, err := s.handleInspect(ctx, &mcpsdk.CallToolRequest{}, InspectInput{Action: "nope"}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestEventsAndStats(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, sender := range []string{"relayer", "treasury"} {
		if _, _, err := s.handleExecute(ctx, &mcpsdk.CallToolRequest{}, withdraw(sender)); err != nil {
			t.Fatal(err)
		}
	}

	_, events, err := s.handleEvents(ctx, &mcpsdk.CallToolRequest{}, EventsInput{Emitter: "withdrawer", Name: "Executed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events.Events))
	}

	_, stats, err := s.handleStats(ctx, &mcpsdk.CallToolRequest{}, StatsInput{Action: "withdrawer"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Calls != 2 || stats.ByStatus["reverted"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
