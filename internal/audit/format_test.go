package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Action: "withdrawer"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Audit: withdrawer | 2025-01-15 14:00:00") {
		t.Errorf("expected header with action and range, got:\n%s", out)
	}
	if !strings.Contains(out, "Summary: 2 success, 2 reverted, 1 rejected | Gas: 300") {
		t.Errorf("expected summary line, got:\n%s", out)
	}
	if !strings.Contains(out, "Reverts: ACTION_TIME_LOCK_NOT_EXPIRED x2, TX_FEE_CAP_TOO_LOW x1") {
		t.Errorf("expected sorted revert codes, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	for _, want := range []string{"Audit: all actions", "SUCCESS", "REVERTED", "REJECTED", "swapper", "#3", "0x000000000..."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestFormatJSONValid(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{Action: "withdrawer"})
	if err != nil {
		t.Fatal(err)
	}

	jsonStr, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}

	var parsed ReplayResult
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if parsed.Action != "withdrawer" {
		t.Errorf("expected action withdrawer, got %s", parsed.Action)
	}
	if len(parsed.Entries) != 5 {
		t.Errorf("expected 5 entries in JSON, got %d", len(parsed.Entries))
	}
	if parsed.Summary.Total != 5 {
		t.Errorf("expected total 5 in JSON summary, got %d", parsed.Summary.Total)
	}
}

func TestFormatTimelineEmptyEntries(t *testing.T) {
	out := FormatTimeline(&ReplayResult{Action: "bridger"})
	if !strings.Contains(out, "No entries found") {
		t.Errorf("expected 'No entries found' message, got:\n%s", out)
	}
}
