package action

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/acceptance"
	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/threshold"
	"github.com/ppiankov/vaultguard/internal/vault"
)

// Action is implemented by every action through Base.
type Action interface {
	chain.Journaled

	Name() string
	Kind() Kind
	Address() common.Address
	Vault() vault.Vault
	CallSelector() authority.Selector
	Paused() bool
	Grant(who common.Address, what authority.Selector)
	IsAuthorized(who common.Address, what authority.Selector) bool
	CustomParam(key [32]byte) ([32]byte, bool)
	Inspect() Info

	Authorize(f *chain.Frame, who common.Address, what authority.Selector) error
	Unauthorize(f *chain.Frame, who common.Address, what authority.Selector) error
	Pause(f *chain.Frame) error
	Unpause(f *chain.Frame) error
	SetCustomParam(f *chain.Frame, key, value [32]byte) error
	UnsetCustomParam(f *chain.Frame, key [32]byte) error
	SetDefaultThreshold(f *chain.Frame, th threshold.Threshold) error
	UnsetDefaultThreshold(f *chain.Frame) error
	SetCustomThreshold(f *chain.Frame, token common.Address, th threshold.Threshold) error
	UnsetCustomThreshold(f *chain.Frame, token common.Address) error
	SetTokensAcceptance(f *chain.Frame, typ acceptance.Type, tokens []common.Address) error
	SetTokensAcceptanceType(f *chain.Frame, typ acceptance.Type) error
	UpdateTokensAcceptance(f *chain.Frame, add, remove []common.Address) error
	InitializeTimeLock(f *chain.Frame, initialDelay, delay time.Duration) error
	SetTimeLockDelay(f *chain.Frame, delay time.Duration) error
	SetTrustedSigners(f *chain.Frame, required bool, list []common.Address) error
	AddTrustedSigner(f *chain.Frame, signer common.Address) error
	RemoveTrustedSigner(f *chain.Frame, signer common.Address) error
	SetSignatureReplayProtection(f *chain.Frame, on bool) error
	SetGasLimits(f *chain.Frame, gasPriceLimit, priorityFeeLimit *big.Int) error
	SetRelayers(f *chain.Frame, list []common.Address) error
	AddRelayer(f *chain.Frame, relayer common.Address) error
	RemoveRelayer(f *chain.Frame, relayer common.Address) error
	SetTxCostLimit(f *chain.Frame, limit *big.Int) error
	SetPayingToken(f *chain.Frame, token common.Address) error
	TransferToSmartVault(f *chain.Frame, token common.Address, amount *big.Int) error
}

var (
	_ Action = (*Claimer)(nil)
	_ Action = (*Withdrawer)(nil)
	_ Action = (*Wrapper)(nil)
	_ Action = (*Unwrapper)(nil)
	_ Action = (*Swapper)(nil)
	_ Action = (*Bridger)(nil)
	_ Action = (*SwapFeeSetter)(nil)
)

// Info is a read-only snapshot of an action's configuration.
type Info struct {
	Name         string            `json:"name"`
	Kind         Kind              `json:"kind"`
	Address      string            `json:"address"`
	Vault        string            `json:"vault"`
	CallSelector string            `json:"call_selector"`
	Paused       bool              `json:"paused"`
	Permissions  []Permission      `json:"permissions"`
	CustomParams map[string]string `json:"custom_params,omitempty"`
	Threshold    *ThresholdInfo    `json:"threshold,omitempty"`
	Acceptance   *AcceptanceInfo   `json:"tokens_acceptance,omitempty"`
	TimeLock     *TimeLockInfo     `json:"time_lock,omitempty"`
	Signers      *SignersInfo      `json:"trusted_signers,omitempty"`
	GasLimit     *GasLimitInfo     `json:"gas_limit,omitempty"`
	Relayers     *RelayersInfo     `json:"relayers,omitempty"`
	Settings     map[string]string `json:"settings,omitempty"`
}

type Permission struct {
	Who  string `json:"who"`
	What string `json:"what"`
}

type BandInfo struct {
	Token string `json:"token"`
	Min   string `json:"min"`
	Max   string `json:"max"`
}

type ThresholdInfo struct {
	Default *BandInfo           `json:"default,omitempty"`
	Custom  map[string]BandInfo `json:"custom,omitempty"`
}

type AcceptanceInfo struct {
	Type   string   `json:"type"`
	Tokens []string `json:"tokens"`
}

type TimeLockInfo struct {
	Set           bool      `json:"set"`
	Delay         string    `json:"delay"`
	NextResetTime time.Time `json:"next_reset_time"`
}

type SignersInfo struct {
	Required         bool     `json:"required"`
	Signers          []string `json:"signers"`
	ReplayProtection bool     `json:"replay_protection"`
}

type GasLimitInfo struct {
	GasPriceLimit    string `json:"gas_price_limit"`
	PriorityFeeLimit string `json:"priority_fee_limit"`
}

type RelayersInfo struct {
	Relayers    []string `json:"relayers"`
	TxCostLimit string   `json:"tx_cost_limit"`
	PayingToken string   `json:"paying_token"`
}

// Inspect returns the action's current configuration.
func (b *Base[S]) Inspect() Info {
	info := Info{
		Name:         b.name,
		Kind:         b.kind,
		Address:      b.addr.Hex(),
		Vault:        b.vault.Address().Hex(),
		CallSelector: b.callSel.String(),
		Paused:       b.st.paused,
		Settings:     b.st.settings.Describe(),
	}
	for _, g := range b.st.perms.Grants() {
		info.Permissions = append(info.Permissions, Permission{Who: g.Who.Hex(), What: g.What.String()})
	}
	if len(b.st.params) > 0 {
		info.CustomParams = make(map[string]string, len(b.st.params))
		for k, v := range b.st.params {
			info.CustomParams[common.Hash(k).Hex()] = common.Hash(v).Hex()
		}
	}
	if t := b.st.threshold; t != nil {
		ti := &ThresholdInfo{}
		if d, ok := t.Default(); ok {
			band := bandInfo(d)
			ti.Default = &band
		}
		for _, c := range t.Customs() {
			if ti.Custom == nil {
				ti.Custom = make(map[string]BandInfo)
			}
			ti.Custom[c.Token.Hex()] = bandInfo(c.Threshold)
		}
		info.Threshold = ti
	}
	if a := b.st.acceptance; a != nil {
		info.Acceptance = &AcceptanceInfo{Type: a.Type().String(), Tokens: hexes(a.Values())}
	}
	if l := b.st.timeLock; l != nil {
		info.TimeLock = &TimeLockInfo{Set: l.IsSet(), Delay: l.Delay().String(), NextResetTime: l.NextResetTime()}
	}
	if s := b.st.signers; s != nil {
		info.Signers = &SignersInfo{Required: s.Required(), Signers: hexes(s.Signers()), ReplayProtection: s.ReplayProtection()}
	}
	if g := b.st.gasLimit; g != nil {
		info.GasLimit = &GasLimitInfo{GasPriceLimit: g.GasPriceLimit().String(), PriorityFeeLimit: g.PriorityFeeLimit().String()}
	}
	if r := b.st.relayers; r != nil {
		info.Relayers = &RelayersInfo{Relayers: hexes(r.Relayers()), TxCostLimit: r.TxCostLimit().String()}
		if r.PayingToken() != (common.Address{}) {
			info.Relayers.PayingToken = r.PayingToken().Hex()
		}
	}
	return info
}

func bandInfo(t threshold.Threshold) BandInfo {
	return BandInfo{Token: t.Token.Hex(), Min: t.Min.String(), Max: t.Max.String()}
}

func hexes(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
