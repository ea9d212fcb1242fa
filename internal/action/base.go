// Package action implements the vault automation actions. Every action
// runs the same pipeline: permission check, pause switch, its own fixed
// guard order, the vault primitive, an Executed event and finally gas
// redemption for relayed calls.
package action

import (
	"fmt"
	"maps"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/acceptance"
	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/gaslimit"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/relayers"
	"github.com/ppiankov/vaultguard/internal/signers"
	"github.com/ppiankov/vaultguard/internal/threshold"
	"github.com/ppiankov/vaultguard/internal/timelock"
	"github.com/ppiankov/vaultguard/internal/vault"
)

var (
	ErrAlreadyPaused = model.NewRevert("ACTION_ALREADY_PAUSED")
	ErrNotPaused     = model.NewRevert("ACTION_NOT_PAUSED")
)

// Kind names an action type.
type Kind string

const (
	KindClaimer       Kind = "claimer"
	KindWithdrawer    Kind = "withdrawer"
	KindWrapper       Kind = "wrapper"
	KindUnwrapper     Kind = "unwrapper"
	KindSwapper       Kind = "swapper"
	KindBridger       Kind = "bridger"
	KindSwapFeeSetter Kind = "swap_fee_setter"
)

// Kinds lists every supported action kind.
var Kinds = []Kind{KindClaimer, KindWithdrawer, KindWrapper, KindUnwrapper, KindSwapper, KindBridger, KindSwapFeeSetter}

// Config is shared by every action constructor.
type Config struct {
	Name    string
	Address common.Address
	Vault   vault.Vault
	// Owner is granted every selector of the action.
	Owner common.Address
}

type settings[S any] interface {
	Clone() S
	Describe() map[string]string
}

// guards selects which guards an action composes.
type guards struct {
	threshold  bool
	acceptance bool
	timeLock   bool
	signers    bool
	gasLimit   bool
	relayers   bool
}

// state is everything an action owns. Guards an action does not compose
// are nil.
type state[S settings[S]] struct {
	perms      *authority.Table
	paused     bool
	params     map[[32]byte][32]byte
	threshold  *threshold.Config
	acceptance *acceptance.List
	timeLock   *timelock.Lock
	signers    *signers.Config
	gasLimit   *gaslimit.Config
	relayers   *relayers.Config
	settings   S
}

func (s state[S]) clone() state[S] {
	c := state[S]{
		perms:    s.perms.Clone(),
		paused:   s.paused,
		params:   maps.Clone(s.params),
		settings: s.settings.Clone(),
	}
	if s.threshold != nil {
		c.threshold = s.threshold.Clone()
	}
	if s.acceptance != nil {
		c.acceptance = s.acceptance.Clone()
	}
	if s.timeLock != nil {
		c.timeLock = s.timeLock.Clone()
	}
	if s.signers != nil {
		c.signers = s.signers.Clone()
	}
	if s.gasLimit != nil {
		c.gasLimit = s.gasLimit.Clone()
	}
	if s.relayers != nil {
		c.relayers = s.relayers.Clone()
	}
	return c
}

// Base carries the state and pipeline shared by all actions.
type Base[S settings[S]] struct {
	name    string
	kind    Kind
	addr    common.Address
	vault   vault.Vault
	callSel authority.Selector

	st      state[S]
	journal chain.Journal[state[S]]
}

func newBase[S settings[S]](env *chain.Env, cfg Config, kind Kind, callSig string, g guards, s S) (*Base[S], error) {
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("%s %q: %w", kind, cfg.Name, model.ErrAddressZero)
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("%s %q: vault is required", kind, cfg.Name)
	}
	name := cfg.Name
	if name == "" {
		name = string(kind)
	}
	b := &Base[S]{
		name:    name,
		kind:    kind,
		addr:    cfg.Address,
		vault:   cfg.Vault,
		callSel: authority.SelectorOf(callSig),
		st: state[S]{
			perms:    authority.New(),
			params:   make(map[[32]byte][32]byte),
			settings: s,
		},
	}
	if g.threshold {
		b.st.threshold = threshold.New()
	}
	if g.acceptance {
		b.st.acceptance = acceptance.New()
	}
	if g.timeLock {
		b.st.timeLock = &timelock.Lock{}
	}
	if g.signers {
		b.st.signers = signers.New()
	}
	if g.gasLimit {
		b.st.gasLimit = gaslimit.New()
	}
	if g.relayers {
		b.st.relayers = relayers.New()
	}
	if cfg.Owner != (common.Address{}) {
		b.st.perms.Authorize(cfg.Owner, authority.AnySelector)
	}
	env.Register(b)
	return b, nil
}

func (b *Base[S]) Name() string                     { return b.name }
func (b *Base[S]) Kind() Kind                       { return b.kind }
func (b *Base[S]) Address() common.Address          { return b.addr }
func (b *Base[S]) Vault() vault.Vault               { return b.vault }
func (b *Base[S]) CallSelector() authority.Selector { return b.callSel }
func (b *Base[S]) Paused() bool                     { return b.st.paused }

// Grant authorizes who for what outside of a transaction, for genesis setup.
func (b *Base[S]) Grant(who common.Address, what authority.Selector) {
	b.st.perms.Authorize(who, what)
}

// IsAuthorized reports whether who may invoke what on this action.
func (b *Base[S]) IsAuthorized(who common.Address, what authority.Selector) bool {
	return b.st.perms.IsAuthorized(who, what)
}

// CustomParam returns the value stored under key.
func (b *Base[S]) CustomParam(key [32]byte) ([32]byte, bool) {
	v, ok := b.st.params[key]
	return v, ok
}

func (b *Base[S]) authorize(f *chain.Frame, sel authority.Selector) error {
	f.UseGas(chain.GasStorageRead)
	return b.st.perms.Check(f.Sender(), sel)
}

// self returns a frame in which the action is the caller, for calls into
// the vault.
func (b *Base[S]) self(f *chain.Frame) *chain.Frame {
	return f.As(b.addr)
}

// execute runs the common pipeline around body. body holds the action's
// guards and vault call; redemption runs after it and after the Executed
// event so the meter covers the whole call.
func (b *Base[S]) execute(f *chain.Frame, body func() error) error {
	if err := b.authorize(f, b.callSel); err != nil {
		return err
	}
	if b.st.paused {
		return model.ErrPaused.Withf("%s", b.name)
	}
	if err := body(); err != nil {
		return err
	}
	f.Emit(b.addr, "Executed")
	log.Debug("Action executed", "action", b.name, "kind", b.kind, "sender", f.Sender(), "gas", f.GasUsed())
	return b.redeemGas(f)
}

// validateThreshold applies the threshold guard to amount of token.
func (b *Base[S]) validateThreshold(f *chain.Frame, token common.Address, amount *big.Int) error {
	if b.st.threshold == nil {
		return nil
	}
	return b.st.threshold.Validate(f, b.vault, token, amount)
}

// validateGasLimit applies the gas price caps to relayed calls.
func (b *Base[S]) validateGasLimit(f *chain.Frame) error {
	if b.st.gasLimit == nil {
		return nil
	}
	if b.st.relayers != nil && !b.st.relayers.IsRelayer(f.Sender()) {
		return nil
	}
	return b.st.gasLimit.Validate(f)
}

func (b *Base[S]) redeemGas(f *chain.Frame) error {
	if b.st.relayers == nil {
		return nil
	}
	return b.st.relayers.RedeemGas(f, b.addr, b.vault, common.Address{})
}

func (b *Base[S]) Snapshot() int {
	return b.journal.Push(b.st.clone())
}

func (b *Base[S]) RevertToSnapshot(id int) {
	b.st = b.journal.Revert(id)
}

func (b *Base[S]) Finalise() {
	b.journal.Reset()
}

// noSettings is used by actions without settings of their own.
type noSettings struct{}

func (noSettings) Clone() noSettings           { return noSettings{} }
func (noSettings) Describe() map[string]string { return nil }
