package chain

import "github.com/ethereum/go-ethereum/params"

// Gas schedule charged by the emulator. Costs follow the EVM so that
// reimbursed amounts are in the same order of magnitude as on-chain.
const (
	GasStorageRead   = params.ColdSloadCostEIP2929
	GasStorageWrite  = params.SstoreResetGasEIP2200
	GasStorageSet    = params.SstoreSetGasEIP2200
	GasCall          = params.CallGasEIP150
	GasValueTransfer = params.CallValueTransferGas
	GasEcrecover     = params.EcrecoverGas
	GasLog           = params.LogGas + params.LogTopicGas
	GasLogData       = params.LogDataGas

	// BlockGasLimit is the gas limit of every emulated block.
	BlockGasLimit uint64 = 30_000_000
)

// Meter accumulates the gas consumed by one transaction.
type Meter struct {
	used uint64
}

// Use charges gas to the meter.
func (m *Meter) Use(gas uint64) {
	m.used += gas
}

// Used returns the gas consumed so far.
func (m *Meter) Used() uint64 {
	return m.used
}

// IntrinsicGas returns the base cost of a transaction carrying data.
func IntrinsicGas(data []byte) uint64 {
	gas := params.TxGas
	for _, b := range data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	return gas
}
