package acceptance

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/chain/chaintest"
)

var (
	tokenA = chaintest.Addr(0xa)
	tokenB = chaintest.Addr(0xb)
	tokenC = chaintest.Addr(0xc)
)

func TestRoundTripLeavesEmptySet(t *testing.T) {
	l := New()
	tokens := []common.Address{tokenA, tokenB, tokenC}
	if err := l.AddMany(tokens); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 tokens, got %d", l.Len())
	}
	l.RemoveMany(tokens)
	if l.Len() != 0 || len(l.Values()) != 0 {
		t.Errorf("expected empty list, got %v", l.Values())
	}
}

func TestSwitchingTypeKeepsSet(t *testing.T) {
	l := New()
	l.Add(tokenA)

	if l.IsAllowed(tokenA) || !l.IsAllowed(tokenB) {
		t.Error("deny list must reject members and accept others")
	}
	l.SetType(AllowList)
	if !l.IsAllowed(tokenA) || l.IsAllowed(tokenB) {
		t.Error("allow list must accept members and reject others")
	}
	if l.Len() != 1 || !l.Contains(tokenA) {
		t.Error("type switch must not alter the set")
	}
}

func TestEmptyDenyListAcceptsAll(t *testing.T) {
	if !New().IsAllowed(tokenA) {
		t.Error("empty deny list accepts everything")
	}
}

func TestSetReplacesAtomically(t *testing.T) {
	l := New()
	l.Add(tokenA)
	if err := l.Set(AllowList, []common.Address{tokenB, tokenC}); err != nil {
		t.Fatal(err)
	}
	if l.Contains(tokenA) || !l.Contains(tokenB) || l.Type() != AllowList {
		t.Errorf("unexpected list %v type %s", l.Values(), l.Type())
	}

	err := l.Set(DenyList, []common.Address{tokenA, {}})
	if !errors.Is(err, ErrTokenZero) {
		t.Fatalf("expected zero token error, got %v", err)
	}
	if l.Type() != AllowList || l.Len() != 2 {
		t.Error("failed set must not modify the list")
	}
}

func TestAddRejectsZero(t *testing.T) {
	l := New()
	if err := l.Add(common.Address{}); !errors.Is(err, ErrTokenZero) {
		t.Errorf("expected zero token error, got %v", err)
	}
	if err := l.AddMany([]common.Address{tokenA, {}}); !errors.Is(err, ErrTokenZero) {
		t.Errorf("expected zero token error, got %v", err)
	}
	if l.Len() != 0 {
		t.Error("AddMany must be all or nothing")
	}
}

func TestValidate(t *testing.T) {
	l := New()
	l.Set(AllowList, []common.Address{tokenA})
	env, _ := chaintest.NewEnv(t)
	err := chaintest.Run(t, env, tokenC, func(f *chain.Frame) error {
		return l.Validate(f, tokenB)
	})
	if !errors.Is(err, ErrTokenNotAllowed) {
		t.Errorf("expected ACTION_TOKEN_NOT_ALLOWED, got %v", err)
	}
	err = chaintest.Run(t, env, tokenC, func(f *chain.Frame) error {
		return l.Validate(f, tokenA)
	})
	if err != nil {
		t.Errorf("expected allowed, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"allow": AllowList, "Deny": DenyList, "allow_list": AllowList} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseType("maybe"); err == nil {
		t.Error("expected error for unknown type")
	}
}
