package action

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/vault"
)

const swapperCallSig = "call(address,uint256,uint256,uint256,uint256,bytes)"

var (
	ErrSlippageAboveMax = model.NewRevert("ACTION_SLIPPAGE_ABOVE_MAX")
	ErrSlippageAboveOne = model.NewRevert("ACTION_SLIPPAGE_ABOVE_ONE")
	ErrQuoteExpired     = model.NewRevert("ACTION_QUOTE_EXPIRED")

	SelSwapperCall    = authority.SelectorOf(swapperCallSig)
	SelSetTokenOut    = authority.SelectorOf("setTokenOut(address)")
	SelSetMaxSlippage = authority.SelectorOf("setMaxSlippage(uint256)")
	SelSetSource      = authority.SelectorOf("setSource(uint8)")
)

var quoteArgs = abi.Arguments{
	{Name: "action", Type: mustType("address")},
	{Name: "tokenIn", Type: mustType("address")},
	{Name: "tokenOut", Type: mustType("address")},
	{Name: "amountIn", Type: mustType("uint256")},
	{Name: "minAmountOut", Type: mustType("uint256")},
	{Name: "deadline", Type: mustType("uint256")},
	{Name: "nonce", Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// SwapParams is a swap request. When trusted signers are required the
// request must carry a signature over its QuoteHash.
type SwapParams struct {
	TokenIn      common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Deadline     time.Time
	Nonce        uint64
	Signature    []byte
}

// QuoteHash returns the hash a trusted signer signs to approve a swap.
// It binds the action address, the deadline and a nonce so a quote cannot
// be reused elsewhere or after it expires.
func QuoteHash(action, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int, deadline time.Time, nonce uint64) (common.Hash, error) {
	var dl int64
	if !deadline.IsZero() {
		dl = deadline.Unix()
	}
	packed, err := quoteArgs.Pack(action, tokenIn, tokenOut,
		orZero(amountIn), orZero(minAmountOut), big.NewInt(dl), new(big.Int).SetUint64(nonce))
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

type swapperSettings struct {
	source      uint8
	tokenOut    common.Address
	maxSlippage *big.Int
}

func (s *swapperSettings) Clone() *swapperSettings {
	return &swapperSettings{source: s.source, tokenOut: s.tokenOut, maxSlippage: new(big.Int).Set(s.maxSlippage)}
}

func (s *swapperSettings) Describe() map[string]string {
	return map[string]string{
		"source":       strconv.Itoa(int(s.source)),
		"token_out":    s.tokenOut.Hex(),
		"max_slippage": s.maxSlippage.String(),
	}
}

// Swapper swaps vault tokens into a fixed output token.
type Swapper struct {
	*Base[*swapperSettings]
}

func NewSwapper(env *chain.Env, cfg Config, source uint8, tokenOut common.Address, maxSlippage *big.Int) (*Swapper, error) {
	if err := checkPct(maxSlippage, ErrSlippageAboveOne); err != nil {
		return nil, err
	}
	b, err := newBase(env, cfg, KindSwapper, swapperCallSig,
		guards{acceptance: true, threshold: true, signers: true, gasLimit: true, relayers: true},
		&swapperSettings{source: source, tokenOut: tokenOut, maxSlippage: new(big.Int).Set(orZero(maxSlippage))})
	if err != nil {
		return nil, err
	}
	return &Swapper{Base: b}, nil
}

func (s *Swapper) TokenOut() common.Address { return s.st.settings.tokenOut }

func (s *Swapper) MaxSlippage() *big.Int { return new(big.Int).Set(s.st.settings.maxSlippage) }

func (s *Swapper) SetTokenOut(f *chain.Frame, token common.Address) error {
	if err := s.authorize(f, SelSetTokenOut); err != nil {
		return err
	}
	if token == (common.Address{}) {
		return model.ErrAddressZero.Withf("token out")
	}
	f.UseGas(chain.GasStorageWrite)
	s.st.settings.tokenOut = token
	f.Emit(s.addr, "TokenOutSet", "tokenOut", token)
	return nil
}

func (s *Swapper) SetMaxSlippage(f *chain.Frame, pct *big.Int) error {
	if err := s.authorize(f, SelSetMaxSlippage); err != nil {
		return err
	}
	if err := checkPct(pct, ErrSlippageAboveOne); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	s.st.settings.maxSlippage = new(big.Int).Set(orZero(pct))
	f.Emit(s.addr, "MaxSlippageSet", "maxSlippage", s.MaxSlippage())
	return nil
}

func (s *Swapper) SetSource(f *chain.Frame, source uint8) error {
	if err := s.authorize(f, SelSetSource); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	s.st.settings.source = source
	f.Emit(s.addr, "SourceSet", "source", source)
	return nil
}

// Call swaps AmountIn of TokenIn into the configured output token.
func (s *Swapper) Call(f *chain.Frame, p SwapParams) error {
	return s.execute(f, func() error {
		st := s.st.settings
		if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
			return model.ErrAmountZero
		}
		if st.tokenOut == (common.Address{}) {
			return model.ErrAddressZero.Withf("token out")
		}
		if err := s.st.acceptance.Validate(f, p.TokenIn); err != nil {
			return err
		}
		if err := s.validateThreshold(f, p.TokenIn, p.AmountIn); err != nil {
			return err
		}
		if err := s.validateSlippage(f, p, st); err != nil {
			return err
		}
		if !p.Deadline.IsZero() && f.Now().After(p.Deadline) {
			return ErrQuoteExpired.Withf("deadline %s", p.Deadline.UTC().Format(time.RFC3339))
		}
		hash, err := QuoteHash(s.addr, p.TokenIn, st.tokenOut, p.AmountIn, p.MinAmountOut, p.Deadline, p.Nonce)
		if err != nil {
			return err
		}
		if err := s.st.signers.Validate(f, hash, p.Signature); err != nil {
			return err
		}
		if err := s.validateGasLimit(f); err != nil {
			return err
		}
		_, err = s.vault.Swap(s.self(f), vault.SwapRequest{
			Source:       st.source,
			TokenIn:      p.TokenIn,
			TokenOut:     st.tokenOut,
			AmountIn:     p.AmountIn,
			MinAmountOut: orZero(p.MinAmountOut),
		})
		return err
	})
}

func (s *Swapper) validateSlippage(f *chain.Frame, p SwapParams, st *swapperSettings) error {
	f.UseGas(chain.GasCall)
	price, err := s.vault.Price(p.TokenIn, st.tokenOut)
	if err != nil {
		return err
	}
	expected, err := fixedpoint.MulDown(p.AmountIn, price)
	if err != nil {
		return err
	}
	slippage, err := slippageOf(expected, orZero(p.MinAmountOut))
	if err != nil {
		return err
	}
	if slippage.Cmp(st.maxSlippage) > 0 {
		return ErrSlippageAboveMax.Withf("slippage %s > max %s", slippage, st.maxSlippage)
	}
	return nil
}

// slippageOf returns (expected - min) / expected as a fixed-point
// fraction, zero when min covers expected.
func slippageOf(expected, floor *big.Int) (*big.Int, error) {
	if expected.Sign() == 0 || floor.Cmp(expected) >= 0 {
		return new(big.Int), nil
	}
	return fixedpoint.DivUp(new(big.Int).Sub(expected, floor), expected)
}

func checkPct(pct *big.Int, revert *model.Revert) error {
	if pct == nil {
		return nil
	}
	if pct.Sign() < 0 || pct.Cmp(fixedpoint.One()) > 0 {
		return revert.Withf("%s", pct)
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
