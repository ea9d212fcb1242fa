package vault

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/oracle"
)

// Config configures a Memory vault.
type Config struct {
	Address       common.Address
	FeeCollector  common.Address
	WrappedNative common.Address
	Oracle        oracle.PriceOracle
}

type memoryState struct {
	auth    *authority.Table
	swapFee SwapFee
	bridges []BridgeRequest
}

func (s memoryState) clone() memoryState {
	return memoryState{
		auth:    s.auth.Clone(),
		swapFee: s.swapFee.clone(),
		bridges: slices.Clone(s.bridges),
	}
}

// Memory is a Vault whose balances live in the chain ledger. Swaps settle
// at the oracle price and bridges burn the tokens and record the request.
type Memory struct {
	addr         common.Address
	feeCollector common.Address
	wrapped      common.Address
	oracle       oracle.PriceOracle
	ledger       *chain.Ledger

	st      memoryState
	journal chain.Journal[memoryState]
}

// NewMemory creates a vault and registers it for rollback with env.
func NewMemory(env *chain.Env, cfg Config) *Memory {
	v := &Memory{
		addr:         cfg.Address,
		feeCollector: cfg.FeeCollector,
		wrapped:      cfg.WrappedNative,
		oracle:       cfg.Oracle,
		ledger:       env.Ledger(),
		st:           memoryState{auth: authority.New()},
	}
	env.Register(v)
	return v
}

func (v *Memory) Address() common.Address            { return v.addr }
func (v *Memory) FeeCollector() common.Address       { return v.feeCollector }
func (v *Memory) WrappedNativeToken() common.Address { return v.wrapped }

func (v *Memory) Price(base, quote common.Address) (*big.Int, error) {
	if base == chain.NativeToken {
		base = v.wrapped
	}
	if quote == chain.NativeToken {
		quote = v.wrapped
	}
	return v.oracle.Price(base, quote)
}

// Authorize grants who the primitive identified by sel.
func (v *Memory) Authorize(who common.Address, sel authority.Selector) {
	v.st.auth.Authorize(who, sel)
}

// Unauthorize revokes sel from who.
func (v *Memory) Unauthorize(who common.Address, sel authority.Selector) {
	v.st.auth.Unauthorize(who, sel)
}

func (v *Memory) IsAuthorized(who common.Address, sel authority.Selector) bool {
	return v.st.auth.IsAuthorized(who, sel)
}

func (v *Memory) Grants() []authority.Grant { return v.st.auth.Grants() }

// Balance returns the vault's holding of token.
func (v *Memory) Balance(token common.Address) *big.Int {
	return v.ledger.BalanceOf(token, v.addr)
}

// SwapFee returns the configured swap fee.
func (v *Memory) SwapFee() SwapFee { return v.st.swapFee.clone() }

// Bridges returns every bridge request executed so far.
func (v *Memory) Bridges() []BridgeRequest { return slices.Clone(v.st.bridges) }

func (v *Memory) Withdraw(f *chain.Frame, token common.Address, amount *big.Int, recipient common.Address, data []byte) error {
	if err := v.check(f, SelWithdraw); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return ErrRecipientZero
	}
	if amount.Sign() <= 0 {
		return ErrAmountZero
	}
	f.UseGas(2 * chain.GasStorageWrite)
	if err := f.Ledger().Transfer(token, v.addr, recipient, amount); err != nil {
		return err
	}
	f.Emit(v.addr, "Withdraw", "token", token, "recipient", recipient, "amount", amount, "data", data)
	return nil
}

func (v *Memory) Swap(f *chain.Frame, req SwapRequest) (*big.Int, error) {
	if err := v.check(f, SelSwap); err != nil {
		return nil, err
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, ErrAmountZero
	}
	if req.TokenIn == req.TokenOut {
		return nil, ErrSameToken
	}
	f.UseGas(chain.GasCall)
	price, err := v.Price(req.TokenIn, req.TokenOut)
	if err != nil {
		return nil, err
	}
	out, err := fixedpoint.MulDown(req.AmountIn, price)
	if err != nil {
		return nil, err
	}
	fee, err := v.swapFeeOn(out)
	if err != nil {
		return nil, err
	}
	out.Sub(out, fee)
	if req.MinAmountOut != nil && out.Cmp(req.MinAmountOut) < 0 {
		return nil, ErrSwapMinAmount.Withf("got %s, want at least %s", out, req.MinAmountOut)
	}

	f.UseGas(4 * chain.GasStorageWrite)
	ledger := f.Ledger()
	if err := ledger.Burn(req.TokenIn, v.addr, req.AmountIn); err != nil {
		return nil, err
	}
	if err := ledger.Mint(req.TokenOut, v.addr, out); err != nil {
		return nil, err
	}
	if fee.Sign() > 0 {
		if err := ledger.Mint(req.TokenOut, v.feeCollector, fee); err != nil {
			return nil, err
		}
	}
	f.Emit(v.addr, "Swap",
		"source", req.Source,
		"tokenIn", req.TokenIn,
		"tokenOut", req.TokenOut,
		"amountIn", req.AmountIn,
		"amountOut", out,
		"minAmountOut", req.MinAmountOut,
		"fee", fee,
	)
	return out, nil
}

func (v *Memory) swapFeeOn(amount *big.Int) (*big.Int, error) {
	sf := v.st.swapFee
	if sf.Pct == nil || sf.Pct.Sign() == 0 {
		return new(big.Int), nil
	}
	fee, err := fixedpoint.MulDown(amount, sf.Pct)
	if err != nil {
		return nil, err
	}
	if sf.Cap != nil && sf.Cap.Sign() > 0 && fee.Cmp(sf.Cap) > 0 {
		fee.Set(sf.Cap)
	}
	return fee, nil
}

func (v *Memory) Bridge(f *chain.Frame, req BridgeRequest) error {
	if err := v.check(f, SelBridge); err != nil {
		return err
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return ErrAmountZero
	}
	if req.Recipient == (common.Address{}) {
		return ErrRecipientZero
	}
	f.UseGas(chain.GasCall + 2*chain.GasStorageSet)
	if err := f.Ledger().Burn(req.Token, v.addr, req.Amount); err != nil {
		return err
	}
	v.st.bridges = append(v.st.bridges, req)
	f.Emit(v.addr, "Bridge",
		"source", req.Source,
		"chainId", req.ChainID,
		"token", req.Token,
		"amount", req.Amount,
		"minAmountOut", req.MinAmountOut,
		"fee", req.Fee,
		"recipient", req.Recipient,
	)
	return nil
}

func (v *Memory) Wrap(f *chain.Frame, amount *big.Int, data []byte) error {
	if err := v.check(f, SelWrap); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return ErrAmountZero
	}
	f.UseGas(chain.GasCall + chain.GasValueTransfer + chain.GasStorageWrite)
	ledger := f.Ledger()
	if err := ledger.Burn(chain.NativeToken, v.addr, amount); err != nil {
		return err
	}
	if err := ledger.Mint(v.wrapped, v.addr, amount); err != nil {
		return err
	}
	f.Emit(v.addr, "Wrap", "amount", amount, "wrapped", amount, "data", data)
	return nil
}

func (v *Memory) Unwrap(f *chain.Frame, amount *big.Int, data []byte) error {
	if err := v.check(f, SelUnwrap); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return ErrAmountZero
	}
	f.UseGas(chain.GasCall + chain.GasValueTransfer + chain.GasStorageWrite)
	ledger := f.Ledger()
	if err := ledger.Burn(v.wrapped, v.addr, amount); err != nil {
		return err
	}
	if err := ledger.Mint(chain.NativeToken, v.addr, amount); err != nil {
		return err
	}
	f.Emit(v.addr, "Unwrap", "amount", amount, "unwrapped", amount, "data", data)
	return nil
}

func (v *Memory) Call(f *chain.Frame, target common.Address, callData []byte, value *big.Int, data []byte) ([]byte, error) {
	if err := v.check(f, SelCall); err != nil {
		return nil, err
	}
	out, err := f.Call(v.addr, target, callData, value)
	if err != nil {
		return nil, err
	}
	f.Emit(v.addr, "Call", "target", target, "callData", callData, "value", value, "result", out, "data", data)
	return out, nil
}

func (v *Memory) SetSwapFee(f *chain.Frame, fee SwapFee) error {
	if err := v.check(f, SelSetSwapFee); err != nil {
		return err
	}
	if fee.Pct != nil && fee.Pct.Cmp(fixedpoint.One()) > 0 {
		return ErrBadSwapFee.Withf("%s", fee.Pct)
	}
	f.UseGas(4 * chain.GasStorageWrite)
	v.st.swapFee = fee.clone()
	f.Emit(v.addr, "SwapFeeSet", "pct", fee.Pct, "cap", fee.Cap, "token", fee.Token, "period", fee.Period)
	return nil
}

func (v *Memory) check(f *chain.Frame, sel authority.Selector) error {
	f.UseGas(chain.GasCall + chain.GasStorageRead)
	if !v.st.auth.IsAuthorized(f.Sender(), sel) {
		log.Debug("Vault call denied", "vault", v.addr, "sender", f.Sender(), "selector", sel)
		return ErrSenderNotAllowed.Withf("%s cannot call %s", f.Sender().Hex(), sel)
	}
	return nil
}

func (v *Memory) Snapshot() int {
	return v.journal.Push(v.st.clone())
}

func (v *Memory) RevertToSnapshot(id int) {
	v.st = v.journal.Revert(id)
}

func (v *Memory) Finalise() {
	v.journal.Reset()
}
