package timelock

import (
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
)

var sender = chaintest.Addr(0x5e)

func validateAt(t *testing.T, env *chain.Env, l *Lock) error {
	t.Helper()
	return chaintest.Run(t, env, sender, l.Validate)
}

func TestUnsetAlwaysValid(t *testing.T) {
	env, _ := chaintest.NewEnv(t)
	var l Lock
	for range 3 {
		if err := validateAt(t, env, &l); err != nil {
			t.Fatalf("unset lock must pass, got %v", err)
		}
	}
	if !l.NextResetTime().IsZero() {
		t.Error("unset lock must not mutate")
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	var l Lock
	now := chaintest.Genesis
	if err := l.Initialize(now, 0, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := l.Initialize(now, 0, time.Hour); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected already initialized, got %v", err)
	}
}

func TestInitializeWithZeroDelayIsStillSet(t *testing.T) {
	var l Lock
	l.Initialize(chaintest.Genesis, 0, 0)
	if !l.IsSet() {
		t.Error("explicit flag must distinguish configured from unset")
	}
	if err := l.Initialize(chaintest.Genesis, 0, 0); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected already initialized, got %v", err)
	}
}

func TestSetDelayRequiresInitialization(t *testing.T) {
	var l Lock
	if err := l.SetDelay(time.Hour); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected not initialized, got %v", err)
	}
}

func TestInitialDelayDefersFirstExecution(t *testing.T) {
	env, clock := chaintest.NewEnv(t)
	var l Lock
	l.Initialize(clock.Now(), 10*time.Minute, time.Hour)

	if err := validateAt(t, env, &l); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected lock during grace period, got %v", err)
	}
	clock.Advance(10 * time.Minute)
	if err := validateAt(t, env, &l); err != nil {
		t.Fatalf("expected unlock after grace period, got %v", err)
	}
}

func TestAdvanceAnchoredToExecutionTime(t *testing.T) {
	env, clock := chaintest.NewEnv(t)
	var l Lock
	l.Initialize(clock.Now(), 0, time.Hour)

	// Miss two windows; no backlog accumulates.
	clock.Advance(3 * time.Hour)
	if err := validateAt(t, env, &l); err != nil {
		t.Fatal(err)
	}
	first := l.NextResetTime()
	if !first.Equal(env.Head().Time.Add(time.Hour)) {
		t.Errorf("expected next reset one delay after execution, got %s", first)
	}

	if err := validateAt(t, env, &l); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected second call within delay to fail, got %v", err)
	}
	if !l.NextResetTime().Equal(first) {
		t.Error("failed validation must not move the lock")
	}

	clock.Advance(2 * time.Hour)
	if err := validateAt(t, env, &l); err != nil {
		t.Fatal(err)
	}
	if got := l.NextResetTime().Sub(env.Head().Time); got != time.Hour {
		t.Errorf("expected exactly one delay ahead, got %s", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var l Lock
	l.Initialize(chaintest.Genesis, 0, time.Hour)
	before := l.Clone()
	l.check(chaintest.Genesis.Add(time.Minute))
	if l.NextResetTime().Equal(before.NextResetTime()) {
		t.Fatal("expected check to advance")
	}
	if !before.IsSet() || before.Delay() != time.Hour {
		t.Error("clone must keep its own copy")
	}
}
