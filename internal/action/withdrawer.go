package action

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

const withdrawerCallSig = "call(address,uint256)"

var (
	SelWithdrawerCall = authority.SelectorOf(withdrawerCallSig)
	SelSetRecipient   = authority.SelectorOf("setRecipient(address)")
)

type withdrawerSettings struct {
	recipient common.Address
}

func (s *withdrawerSettings) Clone() *withdrawerSettings {
	c := *s
	return &c
}

func (s *withdrawerSettings) Describe() map[string]string {
	return map[string]string{"recipient": s.recipient.Hex()}
}

// Withdrawer moves funds out of the vault to a fixed recipient, at most
// once per time lock window.
type Withdrawer struct {
	*Base[*withdrawerSettings]
}

func NewWithdrawer(env *chain.Env, cfg Config, recipient common.Address) (*Withdrawer, error) {
	b, err := newBase(env, cfg, KindWithdrawer, withdrawerCallSig,
		guards{timeLock: true, threshold: true, gasLimit: true, relayers: true},
		&withdrawerSettings{recipient: recipient})
	if err != nil {
		return nil, err
	}
	return &Withdrawer{Base: b}, nil
}

func (w *Withdrawer) Recipient() common.Address { return w.st.settings.recipient }

func (w *Withdrawer) SetRecipient(f *chain.Frame, recipient common.Address) error {
	if err := w.authorize(f, SelSetRecipient); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return model.ErrAddressZero.Withf("recipient")
	}
	f.UseGas(chain.GasStorageWrite)
	w.st.settings.recipient = recipient
	f.Emit(w.addr, "RecipientSet", "recipient", recipient)
	return nil
}

// Call withdraws amount of token to the recipient.
func (w *Withdrawer) Call(f *chain.Frame, token common.Address, amount *big.Int) error {
	return w.execute(f, func() error {
		if amount == nil || amount.Sign() <= 0 {
			return model.ErrAmountZero
		}
		if w.st.settings.recipient == (common.Address{}) {
			return model.ErrAddressZero.Withf("recipient")
		}
		if err := w.st.timeLock.Validate(f); err != nil {
			return err
		}
		if err := w.validateThreshold(f, token, amount); err != nil {
			return err
		}
		if err := w.validateGasLimit(f); err != nil {
			return err
		}
		return w.vault.Withdraw(w.self(f), token, amount, w.st.settings.recipient, nil)
	})
}
