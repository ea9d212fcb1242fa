package deploy

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ppiankov/vaultguard/internal/acceptance"
	"github.com/ppiankov/vaultguard/internal/authority"
)

// args reads positional string arguments. The first failure sticks and
// later reads return zero values.
type args struct {
	d    *Deployment
	list []string
	pos  int
	err  error
}

func (r *args) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("argument %s: %w", name, err)
	}
}

func (r *args) next(name string) (string, bool) {
	if r.pos >= len(r.list) {
		r.fail(name, fmt.Errorf("missing"))
		return "", false
	}
	s := r.list[r.pos]
	r.pos++
	return s, true
}

// optional reports whether another argument is present.
func (r *args) optional() bool { return r.pos < len(r.list) }

// done fails on unread arguments.
func (r *args) done() error {
	if r.err == nil && r.pos < len(r.list) {
		r.err = fmt.Errorf("unexpected arguments %q", r.list[r.pos:])
	}
	return r.err
}

func (r *args) address(name string) common.Address {
	s, ok := r.next(name)
	if !ok {
		return common.Address{}
	}
	addr, err := r.d.Resolve(s)
	if err != nil {
		r.fail(name, err)
	}
	return addr
}

// addresses reads a comma-separated list. "-" is the empty list.
func (r *args) addresses(name string) []common.Address {
	s, ok := r.next(name)
	if !ok || s == "-" || s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]common.Address, 0, len(parts))
	for _, p := range parts {
		addr, err := r.d.Resolve(p)
		if err != nil {
			r.fail(name, err)
			return nil
		}
		out = append(out, addr)
	}
	return out
}

func (r *args) amount(name string) *big.Int {
	s, ok := r.next(name)
	if !ok {
		return new(big.Int)
	}
	v, err := ParseAmount(s)
	if err != nil {
		r.fail(name, err)
		return new(big.Int)
	}
	return v
}

func (r *args) fixed(name string) *big.Int {
	s, ok := r.next(name)
	if !ok {
		return new(big.Int)
	}
	v, err := ParseFixed(s)
	if err != nil {
		r.fail(name, err)
		return new(big.Int)
	}
	return v
}

func (r *args) uint(name string, bits int) uint64 {
	s, ok := r.next(name)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *args) boolean(name string) bool {
	s, ok := r.next(name)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *args) duration(name string) time.Duration {
	s, ok := r.next(name)
	if !ok {
		return 0
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		r.fail(name, err)
	}
	return v
}

func (r *args) deadline(name string) time.Time {
	s, ok := r.next(name)
	if !ok {
		return time.Time{}
	}
	t, err := ParseDeadline(s)
	if err != nil {
		r.fail(name, err)
	}
	return t
}

// ParseDeadline reads a unix timestamp or an RFC 3339 time. "0" and the
// empty string are no deadline.
func ParseDeadline(s string) (time.Time, error) {
	if s == "" || s == "0" {
		return time.Time{}, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

func (r *args) bytes32(name string) [32]byte {
	s, ok := r.next(name)
	if !ok {
		return [32]byte{}
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) > 32 {
		r.fail(name, fmt.Errorf("want up to 32 hex bytes, got %q", s))
		return [32]byte{}
	}
	return common.BytesToHash(b)
}

func (r *args) hexBytes(name string) []byte {
	s, ok := r.next(name)
	if !ok || s == "-" {
		return nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		r.fail(name, err)
	}
	return b
}

func (r *args) acceptanceType(name string) acceptance.Type {
	s, ok := r.next(name)
	if !ok {
		return acceptance.DenyList
	}
	t, err := acceptance.ParseType(s)
	if err != nil {
		r.fail(name, err)
	}
	return t
}

// selector reads "*", a 0x-prefixed selector, a full signature such as
// "call(address)", or a method name of the target action.
func (r *args) selector(name string, methods map[string]method) authority.Selector {
	s, ok := r.next(name)
	if !ok {
		return authority.Selector{}
	}
	switch {
	case s == "*":
		return authority.AnySelector
	case strings.HasPrefix(s, "0x"):
		sel, err := authority.ParseSelector(s)
		if err != nil {
			r.fail(name, err)
		}
		return sel
	case strings.Contains(s, "("):
		return authority.SelectorOf(s)
	}
	if m, ok := methods[s]; ok {
		return m.selector
	}
	r.fail(name, fmt.Errorf("unknown method %q", s))
	return authority.Selector{}
}
