// Package acceptance implements a token allow-list or deny-list whose
// polarity can be switched without touching the stored set.
package acceptance

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/addrset"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrTokenNotAllowed = model.NewRevert("ACTION_TOKEN_NOT_ALLOWED")
	ErrTokenZero       = model.NewRevert("ACTION_ACCEPTANCE_TOKEN_ZERO")
)

// Type selects how membership is interpreted.
type Type uint8

const (
	// DenyList accepts every token not in the set. It is the zero value,
	// so an empty list accepts everything.
	DenyList Type = iota
	AllowList
)

func (t Type) String() string {
	if t == AllowList {
		return "allow"
	}
	return "deny"
}

// ParseType parses "allow" or "deny".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "allowlist", "allow_list":
		return AllowList, nil
	case "deny", "denylist", "deny_list", "":
		return DenyList, nil
	}
	return DenyList, fmt.Errorf("unknown acceptance type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// List is a token acceptance list.
type List struct {
	typ    Type
	tokens *addrset.Set
}

func New() *List {
	return &List{tokens: addrset.New()}
}

// Add inserts token. Adding a present token is a no-op.
func (l *List) Add(token common.Address) error {
	if token == (common.Address{}) {
		return ErrTokenZero
	}
	l.tokens.Add(token)
	return nil
}

// Remove deletes token. Removing an absent token is a no-op.
func (l *List) Remove(token common.Address) {
	l.tokens.Remove(token)
}

// AddMany adds every token or none of them.
func (l *List) AddMany(tokens []common.Address) error {
	for _, token := range tokens {
		if token == (common.Address{}) {
			return ErrTokenZero
		}
	}
	for _, token := range tokens {
		l.tokens.Add(token)
	}
	return nil
}

func (l *List) RemoveMany(tokens []common.Address) {
	for _, token := range tokens {
		l.tokens.Remove(token)
	}
}

// SetTokens replaces the stored set.
func (l *List) SetTokens(tokens []common.Address) error {
	for _, token := range tokens {
		if token == (common.Address{}) {
			return ErrTokenZero
		}
	}
	l.tokens = addrset.New(tokens...)
	return nil
}

// SetType switches polarity, leaving the set untouched.
func (l *List) SetType(t Type) {
	l.typ = t
}

// Set replaces both polarity and set.
func (l *List) Set(t Type, tokens []common.Address) error {
	if err := l.SetTokens(tokens); err != nil {
		return err
	}
	l.typ = t
	return nil
}

func (l *List) Type() Type { return l.typ }

func (l *List) Contains(token common.Address) bool { return l.tokens.Contains(token) }

func (l *List) Len() int { return l.tokens.Len() }

func (l *List) Values() []common.Address { return l.tokens.Values() }

// IsAllowed reports whether token passes the list.
func (l *List) IsAllowed(token common.Address) bool {
	return (l.typ == AllowList) == l.tokens.Contains(token)
}

// Validate returns ACTION_TOKEN_NOT_ALLOWED if token does not pass.
func (l *List) Validate(f *chain.Frame, token common.Address) error {
	f.UseGas(chain.GasStorageRead)
	if !l.IsAllowed(token) {
		return ErrTokenNotAllowed.Withf("%s rejected by %s list", token.Hex(), l.typ)
	}
	return nil
}

func (l *List) Clone() *List {
	return &List{typ: l.typ, tokens: l.tokens.Clone()}
}
