// Package authority implements the permission table gating every action
// and vault operation: (account, selector) -> granted.
package authority

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/vaultguard/internal/model"
)

// AnyAddress grants a selector to every caller.
var AnyAddress = common.HexToAddress("0xFFfFfFffFFfffFFfFFfFFFFFffFFFffffFfFFFfF")

// AnySelector grants every selector to a caller.
var AnySelector = Selector{0xff, 0xff, 0xff, 0xff}

// Selector identifies an operation: the first four bytes of the Keccak-256
// hash of its canonical signature.
type Selector [4]byte

// SelectorOf derives the selector of a canonical signature such as
// "withdraw(address,uint256)".
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

// ParseSelector decodes a 0x-prefixed 4-byte hex selector.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return sel, fmt.Errorf("parse selector %q: %w", s, err)
	}
	if len(b) != 4 {
		return sel, fmt.Errorf("parse selector %q: want 4 bytes, got %d", s, len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Grant is one entry of the permission table.
type Grant struct {
	Who  common.Address
	What Selector
}

// Table is a permission table. The zero value is not usable; use New.
type Table struct {
	grants map[Grant]bool
}

func New() *Table {
	return &Table{grants: make(map[Grant]bool)}
}

// Authorize grants what to who. It returns false if already granted.
func (t *Table) Authorize(who common.Address, what Selector) bool {
	g := Grant{who, what}
	if t.grants[g] {
		return false
	}
	t.grants[g] = true
	return true
}

// Unauthorize revokes what from who. It returns false if not granted.
func (t *Table) Unauthorize(who common.Address, what Selector) bool {
	g := Grant{who, what}
	if !t.grants[g] {
		return false
	}
	delete(t.grants, g)
	return true
}

// IsAuthorized reports whether who may invoke what, directly or through
// a wildcard grant.
func (t *Table) IsAuthorized(who common.Address, what Selector) bool {
	return t.grants[Grant{who, what}] ||
		t.grants[Grant{AnyAddress, what}] ||
		t.grants[Grant{who, AnySelector}] ||
		t.grants[Grant{AnyAddress, AnySelector}]
}

// Check returns AUTH_SENDER_NOT_ALLOWED unless who may invoke what.
func (t *Table) Check(who common.Address, what Selector) error {
	if t.IsAuthorized(who, what) {
		return nil
	}
	return model.ErrSenderNotAllowed.Withf("%s cannot call %s", who.Hex(), what)
}

// Grants returns every entry sorted by account then selector.
func (t *Table) Grants() []Grant {
	out := make([]Grant, 0, len(t.grants))
	for g := range t.grants {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Who[:], out[j].Who[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].What[:], out[j].What[:]) < 0
	})
	return out
}

func (t *Table) Clone() *Table {
	c := New()
	for g := range t.grants {
		c.grants[g] = true
	}
	return c
}
