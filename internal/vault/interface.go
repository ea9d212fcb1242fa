package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
)

// Vault is the custody contract actions operate on. Every state-changing
// primitive checks that the calling frame's sender may invoke it.
type Vault interface {
	Address() common.Address
	FeeCollector() common.Address
	WrappedNativeToken() common.Address
	Price(base, quote common.Address) (*big.Int, error)

	Withdraw(f *chain.Frame, token common.Address, amount *big.Int, recipient common.Address, data []byte) error
	Swap(f *chain.Frame, req SwapRequest) (*big.Int, error)
	Bridge(f *chain.Frame, req BridgeRequest) error
	Wrap(f *chain.Frame, amount *big.Int, data []byte) error
	Unwrap(f *chain.Frame, amount *big.Int, data []byte) error
	Call(f *chain.Frame, target common.Address, callData []byte, value *big.Int, data []byte) ([]byte, error)
	SetSwapFee(f *chain.Frame, fee SwapFee) error
}
