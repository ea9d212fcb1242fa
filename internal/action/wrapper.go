package action

import (
	"math/big"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

const (
	wrapperCallSig   = "call()"
	unwrapperCallSig = "call(uint256)"
)

var (
	SelWrapperCall   = authority.SelectorOf(wrapperCallSig)
	SelUnwrapperCall = authority.SelectorOf(unwrapperCallSig)
)

// Wrapper wraps the vault's whole native balance.
type Wrapper struct {
	*Base[noSettings]
}

func NewWrapper(env *chain.Env, cfg Config) (*Wrapper, error) {
	b, err := newBase(env, cfg, KindWrapper, wrapperCallSig,
		guards{threshold: true, gasLimit: true, relayers: true}, noSettings{})
	if err != nil {
		return nil, err
	}
	return &Wrapper{Base: b}, nil
}

func (w *Wrapper) Call(f *chain.Frame) error {
	return w.execute(f, func() error {
		f.UseGas(chain.GasStorageRead)
		amount := f.Ledger().BalanceOf(chain.NativeToken, w.vault.Address())
		if amount.Sign() == 0 {
			return model.ErrAmountZero.Withf("no native balance to wrap")
		}
		if err := w.validateThreshold(f, w.vault.WrappedNativeToken(), amount); err != nil {
			return err
		}
		if err := w.validateGasLimit(f); err != nil {
			return err
		}
		return w.vault.Wrap(w.self(f), amount, nil)
	})
}

// Unwrapper unwraps wrapped native tokens held by the vault.
type Unwrapper struct {
	*Base[noSettings]
}

func NewUnwrapper(env *chain.Env, cfg Config) (*Unwrapper, error) {
	b, err := newBase(env, cfg, KindUnwrapper, unwrapperCallSig,
		guards{threshold: true, gasLimit: true, relayers: true}, noSettings{})
	if err != nil {
		return nil, err
	}
	return &Unwrapper{Base: b}, nil
}

func (u *Unwrapper) Call(f *chain.Frame, amount *big.Int) error {
	return u.execute(f, func() error {
		if amount == nil || amount.Sign() <= 0 {
			return model.ErrAmountZero
		}
		if err := u.validateThreshold(f, u.vault.WrappedNativeToken(), amount); err != nil {
			return err
		}
		if err := u.validateGasLimit(f); err != nil {
			return err
		}
		return u.vault.Unwrap(u.self(f), amount, nil)
	})
}
