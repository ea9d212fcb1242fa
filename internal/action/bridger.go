package action

import (
	"maps"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/vault"
)

const bridgerCallSig = "call(uint256,address,uint256,uint256,uint256,address)"

var (
	ErrDestinationChainNotAllowed = model.NewRevert("ACTION_DESTINATION_CHAIN_NOT_ALLOWED")
	ErrDestinationChainZero       = model.NewRevert("ACTION_DESTINATION_CHAIN_ZERO")
	ErrFeeAboveMax                = model.NewRevert("ACTION_FEE_ABOVE_MAX")
	ErrFeePctAboveOne             = model.NewRevert("ACTION_FEE_PCT_ABOVE_ONE")

	SelBridgerCall         = authority.SelectorOf(bridgerCallSig)
	SelSetDestinationChain = authority.SelectorOf("setDestinationChain(uint256,bool)")
	SelSetMaxFeePct        = authority.SelectorOf("setMaxFeePct(uint256)")
)

// BridgeParams is a bridge request. A zero recipient sends the tokens to
// the vault's address on the destination chain.
type BridgeParams struct {
	ChainID      uint64
	Token        common.Address
	Amount       *big.Int
	MinAmountOut *big.Int
	Fee          *big.Int
	Recipient    common.Address
}

type bridgerSettings struct {
	source      uint8
	chains      map[uint64]bool
	maxSlippage *big.Int
	maxFeePct   *big.Int
}

func (s *bridgerSettings) Clone() *bridgerSettings {
	return &bridgerSettings{
		source:      s.source,
		chains:      maps.Clone(s.chains),
		maxSlippage: new(big.Int).Set(s.maxSlippage),
		maxFeePct:   new(big.Int).Set(s.maxFeePct),
	}
}

func (s *bridgerSettings) Describe() map[string]string {
	ids := make([]string, 0, len(s.chains))
	for _, id := range s.destinations() {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	return map[string]string{
		"source":             strconv.Itoa(int(s.source)),
		"destination_chains": strings.Join(ids, ","),
		"max_slippage":       s.maxSlippage.String(),
		"max_fee_pct":        s.maxFeePct.String(),
	}
}

func (s *bridgerSettings) destinations() []uint64 {
	return slices.Sorted(maps.Keys(s.chains))
}

// Bridger sends vault tokens to another chain.
type Bridger struct {
	*Base[*bridgerSettings]
}

func NewBridger(env *chain.Env, cfg Config, source uint8, maxSlippage, maxFeePct *big.Int) (*Bridger, error) {
	if err := checkPct(maxSlippage, ErrSlippageAboveOne); err != nil {
		return nil, err
	}
	if err := checkPct(maxFeePct, ErrFeePctAboveOne); err != nil {
		return nil, err
	}
	b, err := newBase(env, cfg, KindBridger, bridgerCallSig,
		guards{acceptance: true, threshold: true, gasLimit: true, relayers: true},
		&bridgerSettings{
			source:      source,
			chains:      make(map[uint64]bool),
			maxSlippage: new(big.Int).Set(orZero(maxSlippage)),
			maxFeePct:   new(big.Int).Set(orZero(maxFeePct)),
		})
	if err != nil {
		return nil, err
	}
	return &Bridger{Base: b}, nil
}

// DestinationChains returns the allowed destination chain ids in order.
func (b *Bridger) DestinationChains() []uint64 { return b.st.settings.destinations() }

func (b *Bridger) IsDestinationAllowed(chainID uint64) bool { return b.st.settings.chains[chainID] }

func (b *Bridger) SetDestinationChain(f *chain.Frame, chainID uint64, allowed bool) error {
	if err := b.authorize(f, SelSetDestinationChain); err != nil {
		return err
	}
	if chainID == 0 {
		return ErrDestinationChainZero
	}
	f.UseGas(chain.GasStorageSet)
	if allowed {
		b.st.settings.chains[chainID] = true
	} else {
		delete(b.st.settings.chains, chainID)
	}
	f.Emit(b.addr, "DestinationChainSet", "chainId", chainID, "allowed", allowed)
	return nil
}

func (b *Bridger) SetMaxSlippage(f *chain.Frame, pct *big.Int) error {
	if err := b.authorize(f, SelSetMaxSlippage); err != nil {
		return err
	}
	if err := checkPct(pct, ErrSlippageAboveOne); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.settings.maxSlippage = new(big.Int).Set(orZero(pct))
	f.Emit(b.addr, "MaxSlippageSet", "maxSlippage", new(big.Int).Set(b.st.settings.maxSlippage))
	return nil
}

func (b *Bridger) SetMaxFeePct(f *chain.Frame, pct *big.Int) error {
	if err := b.authorize(f, SelSetMaxFeePct); err != nil {
		return err
	}
	if err := checkPct(pct, ErrFeePctAboveOne); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.settings.maxFeePct = new(big.Int).Set(orZero(pct))
	f.Emit(b.addr, "MaxFeePctSet", "maxFeePct", new(big.Int).Set(b.st.settings.maxFeePct))
	return nil
}

func (b *Bridger) SetSource(f *chain.Frame, source uint8) error {
	if err := b.authorize(f, SelSetSource); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.settings.source = source
	f.Emit(b.addr, "SourceSet", "source", source)
	return nil
}

// Call bridges Amount of Token to ChainID.
func (b *Bridger) Call(f *chain.Frame, p BridgeParams) error {
	return b.execute(f, func() error {
		st := b.st.settings
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			return model.ErrAmountZero
		}
		f.UseGas(chain.GasStorageRead)
		if !st.chains[p.ChainID] {
			return ErrDestinationChainNotAllowed.Withf("chain %d", p.ChainID)
		}
		if err := b.st.acceptance.Validate(f, p.Token); err != nil {
			return err
		}
		if err := b.validateThreshold(f, p.Token, p.Amount); err != nil {
			return err
		}
		slippage, err := slippageOf(p.Amount, orZero(p.MinAmountOut))
		if err != nil {
			return err
		}
		if slippage.Cmp(st.maxSlippage) > 0 {
			return ErrSlippageAboveMax.Withf("slippage %s > max %s", slippage, st.maxSlippage)
		}
		feePct, err := fixedpoint.DivUp(orZero(p.Fee), p.Amount)
		if err != nil {
			return err
		}
		if feePct.Cmp(st.maxFeePct) > 0 {
			return ErrFeeAboveMax.Withf("fee %s of %s > max pct %s", orZero(p.Fee), p.Amount, st.maxFeePct)
		}
		if err := b.validateGasLimit(f); err != nil {
			return err
		}
		recipient := p.Recipient
		if recipient == (common.Address{}) {
			recipient = b.vault.Address()
		}
		return b.vault.Bridge(b.self(f), vault.BridgeRequest{
			Source:       st.source,
			ChainID:      p.ChainID,
			Token:        p.Token,
			Amount:       p.Amount,
			MinAmountOut: orZero(p.MinAmountOut),
			Fee:          orZero(p.Fee),
			Recipient:    recipient,
		})
	})
}
