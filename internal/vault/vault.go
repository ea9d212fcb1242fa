// Package vault defines the custody collaborator actions delegate to and
// an in-memory implementation backed by the chain ledger.
package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrSenderNotAllowed = model.NewRevert("VAULT_SENDER_NOT_ALLOWED")
	ErrSwapMinAmount    = model.NewRevert("VAULT_SWAP_MIN_AMOUNT")
	ErrAmountZero       = model.NewRevert("VAULT_AMOUNT_ZERO")
	ErrRecipientZero    = model.NewRevert("VAULT_RECIPIENT_ZERO")
	ErrSameToken        = model.NewRevert("VAULT_SWAP_SAME_TOKEN")
	ErrBadSwapFee       = model.NewRevert("VAULT_SWAP_FEE_PCT_ABOVE_ONE")
)

// Selectors of the vault primitives, used as permission table keys.
var (
	SelWithdraw   = authority.SelectorOf("withdraw(address,uint256,address,bytes)")
	SelSwap       = authority.SelectorOf("swap(uint8,address,address,uint256,uint256,bytes)")
	SelBridge     = authority.SelectorOf("bridge(uint8,uint256,address,uint256,uint256,address,bytes)")
	SelWrap       = authority.SelectorOf("wrap(uint256,bytes)")
	SelUnwrap     = authority.SelectorOf("unwrap(uint256,bytes)")
	SelCall       = authority.SelectorOf("call(address,bytes,uint256,bytes)")
	SelSetSwapFee = authority.SelectorOf("setSwapFee(uint256,uint256,address,uint256)")
)

// Primitives maps primitive names to their selectors.
var Primitives = map[string]authority.Selector{
	"withdraw":   SelWithdraw,
	"swap":       SelSwap,
	"bridge":     SelBridge,
	"wrap":       SelWrap,
	"unwrap":     SelUnwrap,
	"call":       SelCall,
	"setSwapFee": SelSetSwapFee,
}

// SwapRequest describes a vault swap.
type SwapRequest struct {
	Source       uint8
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Data         []byte
}

// BridgeRequest describes a cross-chain transfer.
type BridgeRequest struct {
	Source       uint8
	ChainID      uint64
	Token        common.Address
	Amount       *big.Int
	MinAmountOut *big.Int
	Fee          *big.Int
	Recipient    common.Address
	Data         []byte
}

// SwapFee is the fee the vault charges on swaps.
type SwapFee struct {
	Pct    *big.Int       `json:"pct" yaml:"pct"`
	Cap    *big.Int       `json:"cap" yaml:"cap"`
	Token  common.Address `json:"token" yaml:"token"`
	Period time.Duration  `json:"period" yaml:"period"`
}

func (s SwapFee) clone() SwapFee {
	out := s
	if s.Pct != nil {
		out.Pct = new(big.Int).Set(s.Pct)
	}
	if s.Cap != nil {
		out.Cap = new(big.Int).Set(s.Cap)
	}
	return out
}
