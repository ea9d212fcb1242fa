package deploy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/action"
	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/threshold"
	"github.com/ppiankov/vaultguard/internal/vault"
)

var (
	// ErrUnknownMethod is returned when an action has no method of that name.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrBadArgument is returned when call arguments or fees do not parse.
	ErrBadArgument = errors.New("bad argument")
)

type method struct {
	selector authority.Selector
	usage    string
	build    func(r *args) func(f *chain.Frame) error
}

// MethodInfo describes an invocable method.
type MethodInfo struct {
	Name     string `json:"name"`
	Usage    string `json:"usage"`
	Selector string `json:"selector"`
}

// Invoke parses args for method and runs it on the named action inside
// tx. Argument and lookup errors are returned without executing anything;
// reverts are reported in the receipt.
func (d *Deployment) Invoke(tx *chain.Tx, name, methodName string, argv []string) (*chain.Receipt, error) {
	a, err := d.Action(name)
	if err != nil {
		return nil, err
	}
	m, ok := methodsOf(a)[methodName]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %q", ErrUnknownMethod, a.Kind(), methodName)
	}
	r := &args{d: d, list: argv}
	fn := m.build(r)
	if err := r.done(); err != nil {
		return nil, fmt.Errorf("%w: %s.%s(%s): %w", ErrBadArgument, a.Name(), methodName, m.usage, err)
	}

	t := *tx
	t.To = a.Address()
	t.Data = m.selector[:]
	receipt := d.Env.Execute(&t, fn)
	log.Debug("Action invoked", "action", a.Name(), "method", methodName, "sender", t.From, "status", receipt.Status, "code", receipt.Code)
	return receipt, nil
}

// Methods lists the methods of the named action, sorted by name.
func (d *Deployment) Methods(name string) ([]MethodInfo, error) {
	a, err := d.Action(name)
	if err != nil {
		return nil, err
	}
	methods := methodsOf(a)
	out := make([]MethodInfo, 0, len(methods))
	for n, m := range methods {
		out = append(out, MethodInfo{Name: n, Usage: m.usage, Selector: m.selector.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func methodsOf(a action.Action) map[string]method {
	m := make(map[string]method)
	m["authorize"] = method{action.SelAuthorize, "who selector", func(r *args) func(*chain.Frame) error {
		who, sel := r.address("who"), r.selector("selector", m)
		return func(f *chain.Frame) error { return a.Authorize(f, who, sel) }
	}}
	m["unauthorize"] = method{action.SelUnauthorize, "who selector", func(r *args) func(*chain.Frame) error {
		who, sel := r.address("who"), r.selector("selector", m)
		return func(f *chain.Frame) error { return a.Unauthorize(f, who, sel) }
	}}
	m["pause"] = method{action.SelPause, "", func(*args) func(*chain.Frame) error { return a.Pause }}
	m["unpause"] = method{action.SelUnpause, "", func(*args) func(*chain.Frame) error { return a.Unpause }}
	m["setCustomParam"] = method{action.SelSetCustomParam, "key value", func(r *args) func(*chain.Frame) error {
		k, v := r.bytes32("key"), r.bytes32("value")
		return func(f *chain.Frame) error { return a.SetCustomParam(f, k, v) }
	}}
	m["unsetCustomParam"] = method{action.SelUnsetCustomParam, "key", func(r *args) func(*chain.Frame) error {
		k := r.bytes32("key")
		return func(f *chain.Frame) error { return a.UnsetCustomParam(f, k) }
	}}
	m["setDefaultThreshold"] = method{action.SelSetDefaultThreshold, "token min max", func(r *args) func(*chain.Frame) error {
		th := threshold.Threshold{Token: r.address("token"), Min: r.amount("min"), Max: r.amount("max")}
		return func(f *chain.Frame) error { return a.SetDefaultThreshold(f, th) }
	}}
	m["unsetDefaultThreshold"] = method{action.SelUnsetDefaultThreshold, "", func(*args) func(*chain.Frame) error {
		return a.UnsetDefaultThreshold
	}}
	m["setCustomThreshold"] = method{action.SelSetCustomThreshold, "token thresholdToken min max", func(r *args) func(*chain.Frame) error {
		token := r.address("token")
		th := threshold.Threshold{Token: r.address("thresholdToken"), Min: r.amount("min"), Max: r.amount("max")}
		return func(f *chain.Frame) error { return a.SetCustomThreshold(f, token, th) }
	}}
	m["unsetCustomThreshold"] = method{action.SelUnsetCustomThreshold, "token", func(r *args) func(*chain.Frame) error {
		token := r.address("token")
		return func(f *chain.Frame) error { return a.UnsetCustomThreshold(f, token) }
	}}
	m["setTokensAcceptance"] = method{action.SelSetTokensAcceptance, "allow|deny tokens", func(r *args) func(*chain.Frame) error {
		typ, tokens := r.acceptanceType("type"), r.addresses("tokens")
		return func(f *chain.Frame) error { return a.SetTokensAcceptance(f, typ, tokens) }
	}}
	m["setTokensAcceptanceType"] = method{action.SelSetTokensAcceptanceType, "allow|deny", func(r *args) func(*chain.Frame) error {
		typ := r.acceptanceType("type")
		return func(f *chain.Frame) error { return a.SetTokensAcceptanceType(f, typ) }
	}}
	m["updateTokensAcceptance"] = method{action.SelUpdateTokensAcceptance, "add remove", func(r *args) func(*chain.Frame) error {
		add, remove := r.addresses("add"), r.addresses("remove")
		return func(f *chain.Frame) error { return a.UpdateTokensAcceptance(f, add, remove) }
	}}
	m["initializeTimeLock"] = method{action.SelInitializeTimeLock, "initialDelay delay", func(r *args) func(*chain.Frame) error {
		initial, delay := r.duration("initialDelay"), r.duration("delay")
		return func(f *chain.Frame) error { return a.InitializeTimeLock(f, initial, delay) }
	}}
	m["setTimeLockDelay"] = method{action.SelSetTimeLockDelay, "delay", func(r *args) func(*chain.Frame) error {
		delay := r.duration("delay")
		return func(f *chain.Frame) error { return a.SetTimeLockDelay(f, delay) }
	}}
	m["setTrustedSigners"] = method{action.SelSetTrustedSigners, "required signers", func(r *args) func(*chain.Frame) error {
		required, list := r.boolean("required"), r.addresses("signers")
		return func(f *chain.Frame) error { return a.SetTrustedSigners(f, required, list) }
	}}
	m["addTrustedSigner"] = method{action.SelAddTrustedSigner, "signer", func(r *args) func(*chain.Frame) error {
		signer := r.address("signer")
		return func(f *chain.Frame) error { return a.AddTrustedSigner(f, signer) }
	}}
	m["removeTrustedSigner"] = method{action.SelRemoveTrustedSigner, "signer", func(r *args) func(*chain.Frame) error {
		signer := r.address("signer")
		return func(f *chain.Frame) error { return a.RemoveTrustedSigner(f, signer) }
	}}
	m["setSignatureReplayProtection"] = method{action.SelSetSignatureReplayProtection, "enabled", func(r *args) func(*chain.Frame) error {
		on := r.boolean("enabled")
		return func(f *chain.Frame) error { return a.SetSignatureReplayProtection(f, on) }
	}}
	m["setGasLimits"] = method{action.SelSetGasLimits, "gasPriceLimit priorityFeeLimit", func(r *args) func(*chain.Frame) error {
		price, tip := r.amount("gasPriceLimit"), r.amount("priorityFeeLimit")
		return func(f *chain.Frame) error { return a.SetGasLimits(f, price, tip) }
	}}
	m["setRelayers"] = method{action.SelSetRelayers, "relayers", func(r *args) func(*chain.Frame) error {
		list := r.addresses("relayers")
		return func(f *chain.Frame) error { return a.SetRelayers(f, list) }
	}}
	m["addRelayer"] = method{action.SelAddRelayer, "relayer", func(r *args) func(*chain.Frame) error {
		relayer := r.address("relayer")
		return func(f *chain.Frame) error { return a.AddRelayer(f, relayer) }
	}}
	m["removeRelayer"] = method{action.SelRemoveRelayer, "relayer", func(r *args) func(*chain.Frame) error {
		relayer := r.address("relayer")
		return func(f *chain.Frame) error { return a.RemoveRelayer(f, relayer) }
	}}
	m["setTxCostLimit"] = method{action.SelSetTxCostLimit, "limit", func(r *args) func(*chain.Frame) error {
		limit := r.amount("limit")
		return func(f *chain.Frame) error { return a.SetTxCostLimit(f, limit) }
	}}
	m["setPayingToken"] = method{action.SelSetPayingToken, "token", func(r *args) func(*chain.Frame) error {
		token := r.address("token")
		return func(f *chain.Frame) error { return a.SetPayingToken(f, token) }
	}}
	m["transferToSmartVault"] = method{action.SelTransferToSmartVault, "token amount", func(r *args) func(*chain.Frame) error {
		token, amount := r.address("token"), r.amount("amount")
		return func(f *chain.Frame) error { return a.TransferToSmartVault(f, token, amount) }
	}}

	switch x := a.(type) {
	case *action.Claimer:
		m["call"] = method{x.CallSelector(), "token", func(r *args) func(*chain.Frame) error {
			token := r.address("token")
			return func(f *chain.Frame) error { return x.Call(f, token) }
		}}
		m["setFeeClaimer"] = method{action.SelSetFeeClaimer, "feeClaimer", func(r *args) func(*chain.Frame) error {
			fc := r.address("feeClaimer")
			return func(f *chain.Frame) error { return x.SetFeeClaimer(f, fc) }
		}}
	case *action.Withdrawer:
		m["call"] = method{x.CallSelector(), "token amount", func(r *args) func(*chain.Frame) error {
			token, amount := r.address("token"), r.amount("amount")
			return func(f *chain.Frame) error { return x.Call(f, token, amount) }
		}}
		m["setRecipient"] = method{action.SelSetRecipient, "recipient", func(r *args) func(*chain.Frame) error {
			to := r.address("recipient")
			return func(f *chain.Frame) error { return x.SetRecipient(f, to) }
		}}
	case *action.Wrapper:
		m["call"] = method{x.CallSelector(), "", func(*args) func(*chain.Frame) error { return x.Call }}
	case *action.Unwrapper:
		m["call"] = method{x.CallSelector(), "amount", func(r *args) func(*chain.Frame) error {
			amount := r.amount("amount")
			return func(f *chain.Frame) error { return x.Call(f, amount) }
		}}
	case *action.Swapper:
		m["call"] = method{x.CallSelector(), "tokenIn amountIn minAmountOut [deadline nonce signature]", func(r *args) func(*chain.Frame) error {
			p := action.SwapParams{TokenIn: r.address("tokenIn"), AmountIn: r.amount("amountIn"), MinAmountOut: r.amount("minAmountOut")}
			if r.optional() {
				p.Deadline = r.deadline("deadline")
				p.Nonce = r.uint("nonce", 64)
				p.Signature = r.hexBytes("signature")
			}
			return func(f *chain.Frame) error { return x.Call(f, p) }
		}}
		m["setTokenOut"] = method{action.SelSetTokenOut, "token", func(r *args) func(*chain.Frame) error {
			token := r.address("token")
			return func(f *chain.Frame) error { return x.SetTokenOut(f, token) }
		}}
		m["setMaxSlippage"] = method{action.SelSetMaxSlippage, "pct", func(r *args) func(*chain.Frame) error {
			pct := r.fixed("pct")
			return func(f *chain.Frame) error { return x.SetMaxSlippage(f, pct) }
		}}
		m["setSource"] = method{action.SelSetSource, "source", func(r *args) func(*chain.Frame) error {
			src := uint8(r.uint("source", 8))
			return func(f *chain.Frame) error { return x.SetSource(f, src) }
		}}
	case *action.Bridger:
		m["call"] = method{x.CallSelector(), "chainId token amount minAmountOut fee [recipient]", func(r *args) func(*chain.Frame) error {
			p := action.BridgeParams{
				ChainID:      r.uint("chainId", 64),
				Token:        r.address("token"),
				Amount:       r.amount("amount"),
				MinAmountOut: r.amount("minAmountOut"),
				Fee:          r.amount("fee"),
			}
			if r.optional() {
				p.Recipient = r.address("recipient")
			}
			return func(f *chain.Frame) error { return x.Call(f, p) }
		}}
		m["setDestinationChain"] = method{action.SelSetDestinationChain, "chainId allowed", func(r *args) func(*chain.Frame) error {
			id, allowed := r.uint("chainId", 64), r.boolean("allowed")
			return func(f *chain.Frame) error { return x.SetDestinationChain(f, id, allowed) }
		}}
		m["setMaxSlippage"] = method{action.SelSetMaxSlippage, "pct", func(r *args) func(*chain.Frame) error {
			pct := r.fixed("pct")
			return func(f *chain.Frame) error { return x.SetMaxSlippage(f, pct) }
		}}
		m["setMaxFeePct"] = method{action.SelSetMaxFeePct, "pct", func(r *args) func(*chain.Frame) error {
			pct := r.fixed("pct")
			return func(f *chain.Frame) error { return x.SetMaxFeePct(f, pct) }
		}}
		m["setSource"] = method{action.SelSetSource, "source", func(r *args) func(*chain.Frame) error {
			src := uint8(r.uint("source", 8))
			return func(f *chain.Frame) error { return x.SetSource(f, src) }
		}}
	case *action.SwapFeeSetter:
		m["call"] = method{x.CallSelector(), "", func(*args) func(*chain.Frame) error { return x.Call }}
		m["setFees"] = method{action.SelSetFees, "pct:cap:token:period,...", func(r *args) func(*chain.Frame) error {
			fees := r.fees("fees")
			return func(f *chain.Frame) error { return x.SetFees(f, fees) }
		}}
	}
	return m
}

// fees reads a comma-separated schedule of pct:cap:token:period entries.
func (r *args) fees(name string) []vault.SwapFee {
	s, ok := r.next(name)
	if !ok || s == "-" {
		return nil
	}
	var out []vault.SwapFee
	for _, entry := range strings.Split(s, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			r.fail(name, fmt.Errorf("fee %q: want pct:cap:token:period", entry))
			return nil
		}
		pct, err := ParseFixed(parts[0])
		if err != nil {
			r.fail(name, err)
			return nil
		}
		feeCap, err := ParseAmount(parts[1])
		if err != nil {
			r.fail(name, err)
			return nil
		}
		token, err := r.d.Resolve(parts[2])
		if err != nil {
			r.fail(name, err)
			return nil
		}
		period, err := time.ParseDuration(parts[3])
		if err != nil {
			r.fail(name, err)
			return nil
		}
		out = append(out, vault.SwapFee{Pct: pct, Cap: feeCap, Token: token, Period: period})
	}
	return out
}
