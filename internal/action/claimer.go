package action

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/feeclaimer"
	"github.com/ppiankov/vaultguard/internal/model"
)

const claimerCallSig = "call(address)"

var (
	ErrFeeClaimFailed = model.NewRevert("ACTION_FEE_CLAIM_FAILED")

	SelClaimerCall   = authority.SelectorOf(claimerCallSig)
	SelSetFeeClaimer = authority.SelectorOf("setFeeClaimer(address)")
)

type claimerSettings struct {
	feeClaimer common.Address
}

func (s *claimerSettings) Clone() *claimerSettings {
	c := *s
	return &c
}

func (s *claimerSettings) Describe() map[string]string {
	return map[string]string{"fee_claimer": s.feeClaimer.Hex()}
}

// Claimer withdraws the fees the vault accumulated in a fee claimer
// contract, going through the vault's generic call primitive.
type Claimer struct {
	*Base[*claimerSettings]
}

func NewClaimer(env *chain.Env, cfg Config, feeClaimer common.Address) (*Claimer, error) {
	b, err := newBase(env, cfg, KindClaimer, claimerCallSig, guards{threshold: true, gasLimit: true, relayers: true}, &claimerSettings{feeClaimer: feeClaimer})
	if err != nil {
		return nil, err
	}
	return &Claimer{Base: b}, nil
}

func (c *Claimer) FeeClaimer() common.Address { return c.st.settings.feeClaimer }

func (c *Claimer) SetFeeClaimer(f *chain.Frame, feeClaimer common.Address) error {
	if err := c.authorize(f, SelSetFeeClaimer); err != nil {
		return err
	}
	if feeClaimer == (common.Address{}) {
		return model.ErrAddressZero.Withf("fee claimer")
	}
	f.UseGas(chain.GasStorageWrite)
	c.st.settings.feeClaimer = feeClaimer
	f.Emit(c.addr, "FeeClaimerSet", "feeClaimer", feeClaimer)
	return nil
}

// Claimable returns the vault's balance of token in the fee claimer.
func (c *Claimer) Claimable(f *chain.Frame, token common.Address) (*big.Int, error) {
	in, err := feeclaimer.PackGetBalance(token, c.vault.Address())
	if err != nil {
		return nil, err
	}
	out, err := f.Call(c.addr, c.st.settings.feeClaimer, in, nil)
	if err != nil {
		return nil, err
	}
	return feeclaimer.UnpackGetBalance(out)
}

// Call claims every fee the vault holds in token.
func (c *Claimer) Call(f *chain.Frame, token common.Address) error {
	return c.execute(f, func() error {
		if token == (common.Address{}) {
			return model.ErrAddressZero.Withf("token")
		}
		if c.st.settings.feeClaimer == (common.Address{}) {
			return model.ErrAddressZero.Withf("fee claimer")
		}
		balance, err := c.Claimable(f, token)
		if err != nil {
			return err
		}
		if err := c.validateThreshold(f, token, balance); err != nil {
			return err
		}
		if err := c.validateGasLimit(f); err != nil {
			return err
		}
		data, err := feeclaimer.PackWithdrawAll(token, c.vault.Address())
		if err != nil {
			return err
		}
		out, err := c.vault.Call(c.self(f), c.st.settings.feeClaimer, data, nil, nil)
		if err != nil {
			return err
		}
		ok, err := feeclaimer.UnpackWithdrawAll(out)
		if err != nil {
			return ErrFeeClaimFailed.Withf("%v", err)
		}
		if !ok {
			return ErrFeeClaimFailed.Withf("%s", token.Hex())
		}
		return nil
	})
}
