package chain

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrFeeCapTooLow   = model.NewRevert("TX_FEE_CAP_TOO_LOW")
	ErrMixedFeeFields = model.NewRevert("TX_MIXED_FEE_FIELDS")
)

// Tx is a transaction submitted to the emulator. A transaction is legacy
// when GasPrice is set; otherwise it carries EIP-1559 fee fields.
type Tx struct {
	From                 common.Address
	To                   common.Address
	Value                *big.Int
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Data                 []byte
}

// IsLegacy returns true if the transaction pays a flat gas price.
func (tx *Tx) IsLegacy() bool {
	return tx.GasPrice != nil
}

// PriorityFee returns the tip offered by a dynamic-fee transaction.
func (tx *Tx) PriorityFee() *big.Int {
	if tx.MaxPriorityFeePerGas == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(tx.MaxPriorityFeePerGas)
}

// EffectiveGasPrice returns the price per gas actually paid in a block
// with the given base fee.
func (tx *Tx) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if tx.IsLegacy() {
		return new(big.Int).Set(tx.GasPrice)
	}
	price := new(big.Int).Add(baseFee, tx.PriorityFee())
	if tx.MaxFeePerGas != nil && price.Cmp(tx.MaxFeePerGas) > 0 {
		price.Set(tx.MaxFeePerGas)
	}
	return price
}

func (tx *Tx) validate(baseFee *big.Int) error {
	if tx.IsLegacy() {
		if tx.MaxFeePerGas != nil || tx.MaxPriorityFeePerGas != nil {
			return ErrMixedFeeFields
		}
		if tx.GasPrice.Cmp(baseFee) < 0 {
			return ErrFeeCapTooLow.Withf("gas price %s below base fee %s", tx.GasPrice, baseFee)
		}
		return nil
	}
	if tx.MaxFeePerGas != nil && tx.MaxFeePerGas.Cmp(baseFee) < 0 {
		return ErrFeeCapTooLow.Withf("max fee %s below base fee %s", tx.MaxFeePerGas, baseFee)
	}
	return nil
}

func (tx *Tx) hash(nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(tx.From.Bytes(), tx.To.Bytes(), n[:], tx.Data)
}

// Block is the context a transaction executes in.
type Block struct {
	Number  uint64
	Time    time.Time
	BaseFee *big.Int
}

// Status is the outcome of a transaction.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusReverted Status = "reverted"
	StatusRejected Status = "rejected"
)

// Receipt describes an executed (or rejected) transaction.
type Receipt struct {
	ID                string
	TxHash            common.Hash
	From              common.Address
	To                common.Address
	Block             uint64
	Time              time.Time
	Status            Status
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Events            []Event
	Err               error
	Code              string
}

// Succeeded returns true if the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Fee returns the gas fee paid by the sender in native currency.
func (r *Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

// EventsNamed returns the events with the given name, in emission order.
func (r *Receipt) EventsNamed(name string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
