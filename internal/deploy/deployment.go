package deploy

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/acceptance"
	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/feeclaimer"
	"github.com/ppiankov/vaultguard/internal/oracle"
	"github.com/ppiankov/vaultguard/internal/threshold"
	"github.com/ppiankov/vaultguard/internal/vault"
)

// ErrUnknownAction is returned when a name does not match a deployed action.
var ErrUnknownAction = errors.New("unknown action")

// Deployment is a chain with a vault, its collaborators and a set of
// configured actions.
type Deployment struct {
	Env    *chain.Env
	Vault  *vault.Memory
	Oracle *oracle.Static

	deployer    common.Address
	names       map[string]common.Address
	labels      map[common.Address]string
	feeClaimers map[string]*feeclaimer.Claimer
	actions     map[string]action.Action
	order       []string
}

// New builds a deployment from cfg on a chain driven by clock. Guards are
// configured through their setters in one genesis transaction per action,
// sent by the action's owner.
func New(cfg *Config, clock chain.Clock) (*Deployment, error) {
	d := &Deployment{
		Env:         chain.NewEnv(clock),
		names:       make(map[string]common.Address),
		labels:      make(map[common.Address]string),
		feeClaimers: make(map[string]*feeclaimer.Claimer),
		actions:     make(map[string]action.Action),
	}
	if err := d.registerNames(cfg); err != nil {
		return nil, err
	}

	deployer := cfg.Deployer
	if deployer == "" {
		deployer = DefaultDeployer
	}
	var err error
	if d.deployer, err = d.Resolve(deployer); err != nil {
		return nil, fmt.Errorf("deployer: %w", err)
	}
	wrapped, err := d.Resolve(cfg.WrappedNative)
	if err != nil || wrapped == (common.Address{}) {
		return nil, fmt.Errorf("wrapped_native: must name a token (%v)", err)
	}

	d.Oracle = oracle.NewStatic(wrapped)
	for i, p := range cfg.Prices {
		if err := d.setPrice(p); err != nil {
			return nil, fmt.Errorf("prices[%d]: %w", i, err)
		}
	}

	vaultAddr, err := d.Resolve(cfg.Vault.Address)
	if err != nil || vaultAddr == (common.Address{}) {
		return nil, fmt.Errorf("vault.address: required (%v)", err)
	}
	collector, err := d.Resolve(cfg.Vault.FeeCollector)
	if err != nil {
		return nil, fmt.Errorf("vault.fee_collector: %w", err)
	}
	d.Vault = vault.NewMemory(d.Env, vault.Config{
		Address:       vaultAddr,
		FeeCollector:  collector,
		WrappedNative: wrapped,
		Oracle:        d.Oracle,
	})

	for i, fc := range cfg.FeeClaimers {
		if err := d.deployFeeClaimer(fc); err != nil {
			return nil, fmt.Errorf("fee_claimers[%d]: %w", i, err)
		}
	}
	for i, b := range cfg.Balances {
		holder, token, amount, err := d.balance(b)
		if err != nil {
			return nil, fmt.Errorf("balances[%d]: %w", i, err)
		}
		if err := d.Env.Ledger().Mint(token, holder, amount); err != nil {
			return nil, fmt.Errorf("balances[%d]: %w", i, err)
		}
	}
	for i, ac := range cfg.Actions {
		if err := d.deployAction(ac); err != nil {
			return nil, fmt.Errorf("actions[%d] %q: %w", i, ac.Name, err)
		}
	}
	log.Info("Deployment built", "vault", vaultAddr, "actions", len(d.order), "block", d.Env.Head().Number)
	return d, nil
}

// registerNames records every name an address can be referred to by
// before anything is resolved, so references may point forward.
func (d *Deployment) registerNames(cfg *Config) error {
	add := func(name, hex string) error {
		key := strings.ToLower(name)
		if _, dup := d.names[key]; dup {
			return fmt.Errorf("name %q defined twice", name)
		}
		if !common.IsHexAddress(hex) {
			return fmt.Errorf("%s: invalid address %q", name, hex)
		}
		addr := common.HexToAddress(hex)
		d.names[key] = addr
		if _, ok := d.labels[addr]; !ok {
			d.labels[addr] = name
		}
		return nil
	}
	d.names["native"] = chain.NativeToken
	d.labels[chain.NativeToken] = "native"
	for _, group := range []map[string]string{cfg.Tokens, cfg.Accounts} {
		for _, name := range sortedKeys(group) {
			if err := add(name, group[name]); err != nil {
				return err
			}
		}
	}
	if cfg.Vault.Address != "" {
		if err := add("vault", cfg.Vault.Address); err != nil {
			return err
		}
	}
	if cfg.Vault.FeeCollector != "" && common.IsHexAddress(cfg.Vault.FeeCollector) {
		if err := add("fee_collector", cfg.Vault.FeeCollector); err != nil {
			return err
		}
	}
	for _, fc := range cfg.FeeClaimers {
		if fc.Name != "" {
			if err := add(fc.Name, fc.Address); err != nil {
				return err
			}
		}
	}
	for _, ac := range cfg.Actions {
		if ac.Name == "" {
			return errors.New("action without name")
		}
		if err := add(ac.Name, ac.Address); err != nil {
			return err
		}
	}
	return nil
}

// Resolve turns a hex address or a registered name into an address. The
// empty string is the zero address.
func (d *Deployment) Resolve(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, nil
	}
	if addr, ok := d.names[strings.ToLower(s)]; ok {
		return addr, nil
	}
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("unknown address or name %q", s)
}

// Label returns the name registered for addr, or its hex form.
func (d *Deployment) Label(addr common.Address) string {
	if name, ok := d.labels[addr]; ok {
		return name
	}
	return addr.Hex()
}

func (d *Deployment) Deployer() common.Address { return d.deployer }

// Action returns the named action.
func (d *Deployment) Action(name string) (action.Action, error) {
	a, ok := d.actions[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// Actions returns every action in deployment order.
func (d *Deployment) Actions() []action.Action {
	out := make([]action.Action, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.actions[name])
	}
	return out
}

// FeeClaimer returns the named fee claimer.
func (d *Deployment) FeeClaimer(name string) (*feeclaimer.Claimer, bool) {
	fc, ok := d.feeClaimers[strings.ToLower(name)]
	return fc, ok
}

// Inspect returns the named action's configuration.
func (d *Deployment) Inspect(name string) (action.Info, error) {
	a, err := d.Action(name)
	if err != nil {
		return action.Info{}, err
	}
	var info action.Info
	err = d.Env.View(func() error {
		info = a.Inspect()
		return nil
	})
	return info, err
}

// Balance returns holder's balance of token.
func (d *Deployment) Balance(token, holder common.Address) *big.Int {
	var out *big.Int
	_ = d.Env.View(func() error {
		out = d.Env.Ledger().BalanceOf(token, holder)
		return nil
	})
	return out
}

func (d *Deployment) setPrice(p PriceConfig) error {
	base, err := d.Resolve(p.Base)
	if err != nil {
		return err
	}
	quote, err := d.Resolve(p.Quote)
	if err != nil {
		return err
	}
	rate, err := ParseFixed(p.Rate)
	if err != nil {
		return err
	}
	return d.Oracle.Set(base, quote, rate)
}

func (d *Deployment) balance(b BalanceConfig) (holder, token common.Address, amount *big.Int, err error) {
	if holder, err = d.Resolve(b.Holder); err != nil {
		return
	}
	if token, err = d.Resolve(b.Token); err != nil {
		return
	}
	amount, err = ParseAmount(b.Amount)
	return
}

func (d *Deployment) deployFeeClaimer(fc FeeClaimerConfig) error {
	addr, err := d.Resolve(fc.Address)
	if err != nil || addr == (common.Address{}) {
		return fmt.Errorf("address required (%v)", err)
	}
	c := feeclaimer.Deploy(d.Env, addr)
	for i, fee := range fc.Fees {
		account, token, amount, err := d.balance(fee)
		if err != nil {
			return fmt.Errorf("fees[%d]: %w", i, err)
		}
		if err := c.Credit(d.Env.Ledger(), account, token, amount); err != nil {
			return fmt.Errorf("fees[%d]: %w", i, err)
		}
	}
	name := fc.Name
	if name == "" {
		name = addr.Hex()
	}
	d.feeClaimers[strings.ToLower(name)] = c
	return nil
}

// primitives lists the vault primitives each kind calls. Every kind may
// also withdraw, to pay for relayed gas.
var primitives = map[action.Kind][]authority.Selector{
	action.KindClaimer:       {vault.SelCall},
	action.KindWithdrawer:    {},
	action.KindWrapper:       {vault.SelWrap},
	action.KindUnwrapper:     {vault.SelUnwrap},
	action.KindSwapper:       {vault.SelSwap},
	action.KindBridger:       {vault.SelBridge},
	action.KindSwapFeeSetter: {vault.SelSetSwapFee},
}

func (d *Deployment) deployAction(ac ActionConfig) error {
	kind := action.Kind(strings.ToLower(ac.Kind))
	sels, ok := primitives[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q", ac.Kind)
	}
	addr, err := d.Resolve(ac.Address)
	if err != nil {
		return err
	}
	owner := d.deployer
	if ac.Owner != "" {
		if owner, err = d.Resolve(ac.Owner); err != nil {
			return fmt.Errorf("owner: %w", err)
		}
	}
	cfg := action.Config{Name: ac.Name, Address: addr, Vault: d.Vault, Owner: owner}

	a, err := d.newAction(kind, cfg, ac.Settings)
	if err != nil {
		return err
	}
	for _, sel := range append([]authority.Selector{vault.SelWithdraw}, sels...) {
		d.Vault.Authorize(addr, sel)
	}
	callers := ac.Callers
	if ac.Guards.Relayers != nil {
		callers = append(slices.Clone(callers), ac.Guards.Relayers.Relayers...)
	}
	for _, c := range callers {
		who, err := d.Resolve(c)
		if err != nil {
			return fmt.Errorf("callers: %w", err)
		}
		a.Grant(who, a.CallSelector())
	}

	r := d.Env.Execute(&chain.Tx{From: owner, GasPrice: d.Env.Head().BaseFee}, func(f *chain.Frame) error {
		return d.configure(f, a, ac)
	})
	if !r.Succeeded() {
		return fmt.Errorf("genesis configuration: %w", r.Err)
	}
	key := strings.ToLower(ac.Name)
	d.actions[key] = a
	d.order = append(d.order, key)
	log.Debug("Action deployed", "name", ac.Name, "kind", kind, "address", addr, "owner", owner)
	return nil
}

func (d *Deployment) newAction(kind action.Kind, cfg action.Config, s SettingsConfig) (action.Action, error) {
	switch kind {
	case action.KindClaimer:
		fc, err := d.Resolve(s.FeeClaimer)
		if err != nil {
			return nil, fmt.Errorf("fee_claimer: %w", err)
		}
		return action.NewClaimer(d.Env, cfg, fc)
	case action.KindWithdrawer:
		to, err := d.Resolve(s.Recipient)
		if err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
		return action.NewWithdrawer(d.Env, cfg, to)
	case action.KindWrapper:
		return action.NewWrapper(d.Env, cfg)
	case action.KindUnwrapper:
		return action.NewUnwrapper(d.Env, cfg)
	case action.KindSwapper:
		out, err := d.Resolve(s.TokenOut)
		if err != nil {
			return nil, fmt.Errorf("token_out: %w", err)
		}
		slippage, err := ParseFixed(s.MaxSlippage)
		if err != nil {
			return nil, fmt.Errorf("max_slippage: %w", err)
		}
		return action.NewSwapper(d.Env, cfg, s.Source, out, slippage)
	case action.KindBridger:
		slippage, err := ParseFixed(s.MaxSlippage)
		if err != nil {
			return nil, fmt.Errorf("max_slippage: %w", err)
		}
		feePct, err := ParseFixed(s.MaxFeePct)
		if err != nil {
			return nil, fmt.Errorf("max_fee_pct: %w", err)
		}
		return action.NewBridger(d.Env, cfg, s.Source, slippage, feePct)
	case action.KindSwapFeeSetter:
		fees, err := d.fees(s.Fees)
		if err != nil {
			return nil, err
		}
		return action.NewSwapFeeSetter(d.Env, cfg, fees)
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func (d *Deployment) fees(in []FeeConfig) ([]vault.SwapFee, error) {
	out := make([]vault.SwapFee, 0, len(in))
	for i, fc := range in {
		pct, err := ParseFixed(fc.Pct)
		if err != nil {
			return nil, fmt.Errorf("fees[%d].pct: %w", i, err)
		}
		feeCap, err := ParseAmount(fc.Cap)
		if err != nil {
			return nil, fmt.Errorf("fees[%d].cap: %w", i, err)
		}
		token, err := d.Resolve(fc.Token)
		if err != nil {
			return nil, fmt.Errorf("fees[%d].token: %w", i, err)
		}
		out = append(out, vault.SwapFee{Pct: pct, Cap: feeCap, Token: token, Period: fc.Period})
	}
	return out, nil
}

// configure applies the guard and settings configuration through the
// action's own setters.
func (d *Deployment) configure(f *chain.Frame, a action.Action, ac ActionConfig) error {
	g := ac.Guards
	if t := g.Threshold; t != nil {
		if t.Default != nil {
			th, err := d.band(*t.Default)
			if err != nil {
				return fmt.Errorf("threshold.default: %w", err)
			}
			if err := a.SetDefaultThreshold(f, th); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(t.Custom) {
			token, err := d.Resolve(name)
			if err != nil {
				return fmt.Errorf("threshold.custom: %w", err)
			}
			th, err := d.band(t.Custom[name])
			if err != nil {
				return fmt.Errorf("threshold.custom[%s]: %w", name, err)
			}
			if err := a.SetCustomThreshold(f, token, th); err != nil {
				return err
			}
		}
	}
	if acc := g.Acceptance; acc != nil {
		typ, err := acceptance.ParseType(acc.Type)
		if err != nil {
			return err
		}
		tokens, err := d.resolveAll(acc.Tokens)
		if err != nil {
			return fmt.Errorf("tokens_acceptance: %w", err)
		}
		if err := a.SetTokensAcceptance(f, typ, tokens); err != nil {
			return err
		}
	}
	if tl := g.TimeLock; tl != nil {
		if err := a.InitializeTimeLock(f, tl.InitialDelay, tl.Delay); err != nil {
			return err
		}
	}
	if s := g.Signers; s != nil {
		list, err := d.resolveAll(s.Signers)
		if err != nil {
			return fmt.Errorf("trusted_signers: %w", err)
		}
		if err := a.SetTrustedSigners(f, s.Required, list); err != nil {
			return err
		}
		if s.ReplayProtection {
			if err := a.SetSignatureReplayProtection(f, true); err != nil {
				return err
			}
		}
	}
	if gl := g.GasLimit; gl != nil {
		price, err := ParseAmount(gl.GasPriceLimit)
		if err != nil {
			return fmt.Errorf("gas_price_limit: %w", err)
		}
		tip, err := ParseAmount(gl.PriorityFeeLimit)
		if err != nil {
			return fmt.Errorf("priority_fee_limit: %w", err)
		}
		if err := a.SetGasLimits(f, price, tip); err != nil {
			return err
		}
	}
	if r := g.Relayers; r != nil {
		list, err := d.resolveAll(r.Relayers)
		if err != nil {
			return fmt.Errorf("relayers: %w", err)
		}
		if err := a.SetRelayers(f, list); err != nil {
			return err
		}
		if r.TxCostLimit != "" {
			limit, err := ParseAmount(r.TxCostLimit)
			if err != nil {
				return fmt.Errorf("tx_cost_limit: %w", err)
			}
			if err := a.SetTxCostLimit(f, limit); err != nil {
				return err
			}
		}
		if r.PayingToken != "" {
			token, err := d.Resolve(r.PayingToken)
			if err != nil {
				return fmt.Errorf("paying_token: %w", err)
			}
			if err := a.SetPayingToken(f, token); err != nil {
				return err
			}
		}
	}
	if b, ok := a.(*action.Bridger); ok {
		for _, id := range ac.Settings.DestinationChains {
			if err := b.SetDestinationChain(f, id, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Deployment) band(b BandConfig) (threshold.Threshold, error) {
	token, err := d.Resolve(b.Token)
	if err != nil {
		return threshold.Threshold{}, err
	}
	lo, err := ParseAmount(b.Min)
	if err != nil {
		return threshold.Threshold{}, fmt.Errorf("min: %w", err)
	}
	hi, err := ParseAmount(b.Max)
	if err != nil {
		return threshold.Threshold{}, fmt.Errorf("max: %w", err)
	}
	return threshold.Threshold{Token: token, Min: lo, Max: hi}, nil
}

func (d *Deployment) resolveAll(names []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(names))
	for _, n := range names {
		addr, err := d.Resolve(n)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
