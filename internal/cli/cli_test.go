package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pb "github.com/ppiankov/vaultguard/api/vaultguard/v1"
	"github.com/ppiankov/vaultguard/internal/deploy"
)

// missingDeployment points at a file that does not exist, so the sample
// deployment is used.
func missingDeployment(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.yaml")
}

func localBackendFor(t *testing.T) backend {
	t.Helper()
	deploymentPath = missingDeployment(t)
	backendAddr = ""
	backendAuditLog = ""
	backendEventsDB = ""
	t.Cleanup(func() { deploymentPath = "" })

	b, err := openBackend()
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// --- Local backend ---

func TestLocalBackend_ExecuteAndEvents(t *testing.T) {
	b := localBackendFor(t)

	resp, err := b.Execute(&pb.ExecuteRequest{
		Action: "withdrawer",
		Method: "call",
		Sender: "relayer",
		Args:   []string{"USDC", "100 ether"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %s %s: %s", resp.Status, resp.Code, resp.Reason)
	}

	events, err := b.Events(&pb.EventsRequest{Emitter: "withdrawer", Name: "Executed"})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 Executed event, got %d", len(events))
	}
}

func TestLocalBackend_Revert(t *testing.T) {
	b := localBackendFor(t)

	resp, err := b.Execute(&pb.ExecuteRequest{
		Action: "withdrawer",
		Method: "call",
		Sender: "treasury",
		Args:   []string{"USDC", "100 ether"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Success || resp.Code != "AUTH_SENDER_NOT_ALLOWED" {
		t.Errorf("expected AUTH_SENDER_NOT_ALLOWED, got success=%v code=%s", resp.Success, resp.Code)
	}
}

func TestLocalBackend_InspectAndList(t *testing.T) {
	b := localBackendFor(t)

	info, hash, err := b.Inspect("withdrawer")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Name != "withdrawer" {
		t.Errorf("name = %q", info.Name)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("hash = %q", hash)
	}

	list, err := b.ListActions()
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(list.Actions) != 4 {
		t.Errorf("expected 4 actions, got %d", len(list.Actions))
	}

	var buf bytes.Buffer
	if err := printActions(&buf, list, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "swapper (swapper)") {
		t.Errorf("list output missing swapper:\n%s", buf.String())
	}
}

// --- Output ---

func TestPrintReceipt_Text(t *testing.T) {
	resp := &pb.ExecuteResponse{
		TxHash:            "0xabc",
		Block:             3,
		Success:           true,
		Status:            "success",
		GasUsed:           61000,
		EffectiveGasPrice: "2000000000",
		Events: []pb.Event{
			{Name: "Executed", Emitter: "withdrawer", Args: pb.ArgsFromMap(map[string]string{"b": "2", "a": "1"})},
		},
	}
	var buf bytes.Buffer
	if err := printReceipt(&buf, resp, "text"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "SUCCESS  tx 0xabc  block 3") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "a=1 b=2") {
		t.Errorf("args not sorted:\n%s", out)
	}
}

func TestPrintReceipt_Revert(t *testing.T) {
	resp := &pb.ExecuteResponse{Status: "reverted", Code: "ACTION_AMOUNT_ZERO", Reason: "nothing to wrap"}
	var buf bytes.Buffer
	if err := printReceipt(&buf, resp, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "REVERTED  ACTION_AMOUNT_ZERO\n  nothing to wrap") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestPrintReceipt_JSON(t *testing.T) {
	resp := &pb.ExecuteResponse{Status: "success", Success: true, Block: 1}
	var buf bytes.Buffer
	if err := printReceipt(&buf, resp, "json"); err != nil {
		t.Fatal(err)
	}
	var got pb.ExecuteResponse
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Block != 1 || !got.Success {
		t.Errorf("got %+v", got)
	}
}

func TestPrintEvents_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printEvents(&buf, nil, "text"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No events.\n" {
		t.Errorf("got %q", buf.String())
	}
}

// --- Selector ---

func TestPrintMethodSelectors(t *testing.T) {
	var buf bytes.Buffer
	if err := printMethodSelectors(&buf, missingDeployment(t), "withdrawer"); err != nil {
		t.Fatalf("printMethodSelectors: %v", err)
	}
	if !strings.Contains(buf.String(), "call token amount") {
		t.Errorf("missing call method:\n%s", buf.String())
	}
}

func TestPrintMethodSelectors_UnknownAction(t *testing.T) {
	var buf bytes.Buffer
	err := printMethodSelectors(&buf, missingDeployment(t), "nope")
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

// --- Sign ---

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestSignQuote(t *testing.T) {
	var buf bytes.Buffer
	args := []string{"swapper", "WETH", "1 ether", "1990 ether", "1767225600", "7"}
	if err := signQuote(&buf, missingDeployment(t), "0x"+testKey, args); err != nil {
		t.Fatalf("signQuote: %v", err)
	}
	var signed deploy.SignedQuote
	if err := json.Unmarshal(buf.Bytes(), &signed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if signed.Signer.Hex() != "0x71562b71999873DB5b286dF957af199Ec94617F7" {
		t.Errorf("signer = %s", signed.Signer.Hex())
	}
	if !strings.HasPrefix(signed.Signature, "0x") || len(signed.Signature) != 132 {
		t.Errorf("signature = %q", signed.Signature)
	}
}

func TestSignQuote_Errors(t *testing.T) {
	path := missingDeployment(t)
	tests := []struct {
		name string
		key  string
		args []string
	}{
		{"bad key", "zz", []string{"swapper", "WETH", "1", "1", "0", "1"}},
		{"bad nonce", testKey, []string{"swapper", "WETH", "1", "1", "0", "x"}},
		{"not a swapper", testKey, []string{"withdrawer", "WETH", "1", "1", "0", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := signQuote(&buf, path, tt.key, tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// --- Check ---

func TestCheckResults(t *testing.T) {
	dir := t.TempDir()
	scenario := `
name: wrap twice
steps:
  - action: wrapper
    method: call
    sender: relayer
    expect: success
  - action: wrapper
    method: call
    sender: relayer
    expect: ACTION_AMOUNT_ZERO
`
	if err := os.WriteFile(filepath.Join(dir, "wrap.yaml"), []byte(scenario), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := checkResults([]string{filepath.Join(dir, "*.yaml")}, filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("checkResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(results))
	}
	if results[0].Failed != 0 || results[0].Passed != 2 {
		t.Errorf("unexpected results: %+v", results[0].Steps)
	}
}

func TestCheckResults_NoMatches(t *testing.T) {
	_, err := checkResults([]string{filepath.Join(t.TempDir(), "*.yaml")}, "")
	if err == nil || !strings.Contains(err.Error(), "no scenario files") {
		t.Errorf("expected no-match error, got %v", err)
	}
}
