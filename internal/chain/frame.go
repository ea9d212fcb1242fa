package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/model"
)

var ErrNoContract = model.NewRevert("CALL_TO_NON_CONTRACT")

// Contract is code reachable through Frame.Call.
type Contract interface {
	Call(f *Frame, input []byte, value *big.Int) ([]byte, error)
}

type txState struct {
	env            *Env
	tx             *Tx
	block          Block
	parentBaseFee  *big.Int
	effectivePrice *big.Int
	meter          Meter
	events         []Event
}

// Frame is the execution context of one call inside a transaction.
// Nested calls share the transaction's gas meter and event buffer and
// differ only in their sender.
type Frame struct {
	caller common.Address
	st     *txState
}

// Sender returns the immediate caller (msg.sender).
func (f *Frame) Sender() common.Address { return f.caller }

// Origin returns the account that signed the transaction.
func (f *Frame) Origin() common.Address { return f.st.tx.From }

// Tx returns the executing transaction.
func (f *Frame) Tx() *Tx { return f.st.tx }

// Block returns the block the transaction is included in.
func (f *Frame) Block() Block { return f.st.block }

// Now returns the block timestamp.
func (f *Frame) Now() time.Time { return f.st.block.Time }

// BaseFee returns the block base fee.
func (f *Frame) BaseFee() *big.Int { return new(big.Int).Set(f.st.block.BaseFee) }

// EstimatedBaseFee returns the base fee of the parent block, the best
// estimate of the base fee a transaction will pay that is known before
// inclusion.
func (f *Frame) EstimatedBaseFee() *big.Int { return new(big.Int).Set(f.st.parentBaseFee) }

// EffectiveGasPrice returns the price per gas paid by the transaction.
func (f *Frame) EffectiveGasPrice() *big.Int { return new(big.Int).Set(f.st.effectivePrice) }

// UseGas charges gas to the transaction.
func (f *Frame) UseGas(gas uint64) { f.st.meter.Use(gas) }

// GasUsed returns the gas consumed by the transaction so far.
func (f *Frame) GasUsed() uint64 { return f.st.meter.Used() }

// Ledger returns the token ledger.
func (f *Frame) Ledger() *Ledger { return f.st.env.ledger }

// As returns a frame for a nested call made by caller.
func (f *Frame) As(caller common.Address) *Frame {
	return &Frame{caller: caller, st: f.st}
}

// Emit buffers an event. Events are discarded if the transaction reverts.
func (f *Frame) Emit(emitter common.Address, name string, kv ...any) {
	f.UseGas(GasLog + uint64(len(kv)/2)*32*GasLogData)
	f.st.events = append(f.st.events, Event{Address: emitter, Name: name, Args: kv})
}

// Call invokes the contract deployed at target on behalf of from,
// transferring value in native currency first.
func (f *Frame) Call(from, target common.Address, input []byte, value *big.Int) ([]byte, error) {
	c, ok := f.st.env.contracts[target]
	if !ok {
		return nil, ErrNoContract.Withf("%s", target.Hex())
	}
	f.UseGas(GasCall + IntrinsicGas(input) - IntrinsicGas(nil))
	if value != nil && value.Sign() > 0 {
		f.UseGas(GasValueTransfer)
		if err := f.Ledger().Transfer(NativeToken, from, target, value); err != nil {
			return nil, err
		}
	}
	return c.Call(f.As(from), input, value)
}
