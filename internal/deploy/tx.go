package deploy

import (
	"fmt"

	"github.com/ppiankov/vaultguard/internal/chain"
)

// DefaultGasPrice is the legacy gas price used when no fee field is given.
const DefaultGasPrice = "2 gwei"

// Fees are the fee fields of a transaction as amount strings. With MaxFee
// set the transaction is EIP-1559, otherwise legacy at GasPrice.
type Fees struct {
	GasPrice    string `json:"gas_price,omitempty" yaml:"gas_price,omitempty"`
	MaxFee      string `json:"max_fee,omitempty" yaml:"max_fee,omitempty"`
	PriorityFee string `json:"priority_fee,omitempty" yaml:"priority_fee,omitempty"`
}

// NewTx builds a transaction from sender (name or address, default the
// deployer) with the given fees.
func (d *Deployment) NewTx(sender string, fees Fees) (*chain.Tx, error) {
	from := d.deployer
	if sender != "" {
		var err error
		if from, err = d.Resolve(sender); err != nil {
			return nil, fmt.Errorf("%w: sender: %w", ErrBadArgument, err)
		}
	}
	tx := &chain.Tx{From: from}

	var err error
	if fees.MaxFee != "" {
		if tx.MaxFeePerGas, err = ParseAmount(fees.MaxFee); err != nil {
			return nil, fmt.Errorf("%w: max_fee: %w", ErrBadArgument, err)
		}
		if tx.MaxPriorityFeePerGas, err = ParseAmount(fees.PriorityFee); err != nil {
			return nil, fmt.Errorf("%w: priority_fee: %w", ErrBadArgument, err)
		}
		return tx, nil
	}
	if fees.PriorityFee != "" {
		return nil, fmt.Errorf("%w: priority_fee requires max_fee", ErrBadArgument)
	}

	price := fees.GasPrice
	if price == "" {
		price = DefaultGasPrice
	}
	if tx.GasPrice, err = ParseAmount(price); err != nil {
		return nil, fmt.Errorf("%w: gas_price: %w", ErrBadArgument, err)
	}
	if tx.GasPrice.Sign() == 0 {
		return nil, fmt.Errorf("%w: gas_price must be positive", ErrBadArgument)
	}
	return tx, nil
}
