package ratelimit

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// --- Config tests ---

func TestHasLimitsEmpty(t *testing.T) {
	if (SenderLimits{}).HasLimits() {
		t.Error("expected empty config to have no limits")
	}
}

func TestHasLimitsConfigured(t *testing.T) {
	cfg := SenderLimits{"withdrawer": {MaxRequests: 10, Window: time.Minute}}
	if !cfg.HasLimits() {
		t.Error("expected HasLimits=true for configured limit")
	}
}

func TestHasLimitsZeroValues(t *testing.T) {
	tests := []SenderLimits{
		{"withdrawer": {MaxRequests: 0, Window: time.Minute}},
		{"withdrawer": {MaxRequests: 10, Window: 0}},
		{"withdrawer": nil},
	}
	for i, cfg := range tests {
		if cfg.HasLimits() {
			t.Errorf("case %d: expected HasLimits=false", i)
		}
	}
}

func TestLimitForActionWildcard(t *testing.T) {
	cfg := Config{"relayer": {"*": {MaxRequests: 3, Window: time.Hour}}}
	l := cfg.limitFor("relayer", "swapper")
	if l == nil || l.MaxRequests != 3 {
		t.Errorf("expected action wildcard limit, got %+v", l)
	}
}

// --- Check tests ---

func TestCheckWithinLimit(t *testing.T) {
	result := Check(5, &Limit{MaxRequests: 10, Window: time.Minute})
	if result.Exceeded {
		t.Error("expected within limit")
	}
	if result.Err() != nil {
		t.Errorf("expected nil error, got %v", result.Err())
	}
}

func TestCheckAtLimit(t *testing.T) {
	result := Check(10, &Limit{MaxRequests: 10, Window: time.Minute})
	if !result.Exceeded {
		t.Error("expected exceeded at limit")
	}
	if result.Limit != 10 {
		t.Errorf("expected limit=10, got %d", result.Limit)
	}
	if !errors.Is(result.Err(), ErrExceeded) {
		t.Errorf("expected ErrExceeded, got %v", result.Err())
	}
}

func TestCheckNilLimit(t *testing.T) {
	if Check(100, nil).Exceeded {
		t.Error("expected not exceeded for nil limit")
	}
}

// --- Evaluate tests ---

func TestEvaluateNoLimits(t *testing.T) {
	tr := NewTracker()
	if _, hit := tr.Evaluate(nil, "relayer", "withdrawer", t0); hit {
		t.Error("expected skip when no limits configured")
	}
	if _, hit := tr.Evaluate(Config{}, "relayer", "withdrawer", t0); hit {
		t.Error("expected skip when limits map is empty")
	}
}

func TestEvaluateExceedingDenied(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"*": {"withdrawer": {MaxRequests: 3, Window: time.Minute}}}

	for i := 0; i < 3; i++ {
		if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); hit {
			t.Fatalf("call %d: expected within limit", i+1)
		}
	}

	result, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	if !hit {
		t.Fatal("expected rate limit exceeded")
	}
	if result.Current != 3 || result.Limit != 3 {
		t.Errorf("expected 3/3, got %d/%d", result.Current, result.Limit)
	}
}

func TestEvaluateActionsIndependent(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"*": {
		"withdrawer": {MaxRequests: 1, Window: time.Minute},
		"swapper":    {MaxRequests: 1, Window: time.Minute},
	}}

	tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); !hit {
		t.Fatal("expected withdrawer limited")
	}
	if _, hit := tr.Evaluate(cfg, "relayer", "swapper", t0); hit {
		t.Error("expected swapper independent of withdrawer limit")
	}
}

func TestEvaluateSendersIndependent(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"*": {"*": {MaxRequests: 1, Window: time.Minute}}}

	tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	if _, hit := tr.Evaluate(cfg, "ops", "withdrawer", t0); hit {
		t.Error("expected each sender to have its own window")
	}
}

func TestEvaluateResetsAfterWindow(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"*": {"withdrawer": {MaxRequests: 2, Window: time.Minute}}}

	tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); !hit {
		t.Fatal("expected rate limited")
	}

	if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0.Add(2*time.Minute)); hit {
		t.Error("expected rate to reset after window expiry")
	}
}

func TestEvaluateSenderLookupOrder(t *testing.T) {
	tr := NewTracker()
	cfg := Config{
		"relayer": {"withdrawer": {MaxRequests: 1, Window: time.Minute}},
		"*":       {"withdrawer": {MaxRequests: 100, Window: time.Minute}},
	}

	if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); hit {
		t.Fatal("first call should pass")
	}
	if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); !hit {
		t.Error("expected sender-specific limit (1) to apply, not global (100)")
	}
}

func TestEvaluateNoMatchingConfig(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"ops": {"withdrawer": {MaxRequests: 1, Window: time.Minute}}}

	for i := 0; i < 5; i++ {
		if _, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0); hit {
			t.Fatal("expected skip when no matching config and no global fallback")
		}
	}
}

func TestEvaluateID(t *testing.T) {
	tr := NewTracker()
	cfg := Config{"relayer": {"withdrawer": {MaxRequests: 1, Window: time.Minute}}}

	tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	result, hit := tr.Evaluate(cfg, "relayer", "withdrawer", t0)
	if !hit {
		t.Fatal("expected rate limited")
	}
	if result.ID != "ratelimit.relayer.withdrawer_exceeded" {
		t.Errorf("expected ratelimit.relayer.withdrawer_exceeded, got %s", result.ID)
	}
	if !strings.Contains(result.Err().Error(), "1/1 calls in 1m0s window") {
		t.Errorf("unexpected error text: %v", result.Err())
	}
}
