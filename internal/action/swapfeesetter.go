package action

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/vault"
)

const swapFeeSetterCallSig = "call()"

var (
	ErrFeesNotSet = model.NewRevert("ACTION_FEES_NOT_SET")
	ErrAllFeesSet = model.NewRevert("ACTION_ALL_FEES_SET")

	SelSwapFeeSetterCall = authority.SelectorOf(swapFeeSetterCallSig)
	SelSetFees           = authority.SelectorOf("setFees((uint256,uint256,address,uint256)[])")
)

type swapFeeSetterSettings struct {
	fees      []vault.SwapFee
	nextIndex int
}

func (s *swapFeeSetterSettings) Clone() *swapFeeSetterSettings {
	fees := make([]vault.SwapFee, len(s.fees))
	copy(fees, s.fees)
	return &swapFeeSetterSettings{fees: fees, nextIndex: s.nextIndex}
}

func (s *swapFeeSetterSettings) Describe() map[string]string {
	out := map[string]string{
		"fees":       strconv.Itoa(len(s.fees)),
		"next_index": strconv.Itoa(s.nextIndex),
	}
	for i, fee := range s.fees {
		out[fmt.Sprintf("fee_%d", i)] = fmt.Sprintf("pct=%s cap=%s token=%s period=%s",
			orZero(fee.Pct), orZero(fee.Cap), fee.Token.Hex(), fee.Period)
	}
	return out
}

// SwapFeeSetter walks the vault's swap fee through a configured schedule,
// applying the next entry at most once per time lock window.
type SwapFeeSetter struct {
	*Base[*swapFeeSetterSettings]
}

func NewSwapFeeSetter(env *chain.Env, cfg Config, fees []vault.SwapFee) (*SwapFeeSetter, error) {
	for _, fee := range fees {
		if err := checkPct(fee.Pct, ErrFeePctAboveOne); err != nil {
			return nil, err
		}
	}
	b, err := newBase(env, cfg, KindSwapFeeSetter, swapFeeSetterCallSig,
		guards{timeLock: true, gasLimit: true, relayers: true},
		(&swapFeeSetterSettings{fees: fees}).Clone())
	if err != nil {
		return nil, err
	}
	return &SwapFeeSetter{Base: b}, nil
}

func (s *SwapFeeSetter) Fees() []vault.SwapFee { return s.st.settings.Clone().fees }

func (s *SwapFeeSetter) NextFeeIndex() int { return s.st.settings.nextIndex }

// SetFees replaces the schedule and restarts it from the first entry.
func (s *SwapFeeSetter) SetFees(f *chain.Frame, fees []vault.SwapFee) error {
	if err := s.authorize(f, SelSetFees); err != nil {
		return err
	}
	for _, fee := range fees {
		if err := checkPct(fee.Pct, ErrFeePctAboveOne); err != nil {
			return err
		}
	}
	f.UseGas(uint64(4*len(fees)+1) * chain.GasStorageSet)
	s.st.settings = (&swapFeeSetterSettings{fees: fees}).Clone()
	f.Emit(s.addr, "FeesSet", "count", len(fees))
	return nil
}

// Call applies the next fee of the schedule to the vault.
func (s *SwapFeeSetter) Call(f *chain.Frame) error {
	return s.execute(f, func() error {
		if err := s.st.timeLock.Validate(f); err != nil {
			return err
		}
		st := s.st.settings
		f.UseGas(chain.GasStorageRead)
		if len(st.fees) == 0 {
			return ErrFeesNotSet
		}
		if st.nextIndex >= len(st.fees) {
			return ErrAllFeesSet.Withf("%d of %d applied", st.nextIndex, len(st.fees))
		}
		if err := s.validateGasLimit(f); err != nil {
			return err
		}
		if err := s.vault.SetSwapFee(s.self(f), st.fees[st.nextIndex]); err != nil {
			return err
		}
		f.UseGas(chain.GasStorageWrite)
		st.nextIndex++
		return nil
	})
}
