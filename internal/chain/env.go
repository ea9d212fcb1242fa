package chain

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus/misc/eip1559"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"github.com/ppiankov/vaultguard/internal/model"
)

// Observer receives every receipt after its transaction completes.
type Observer func(*Receipt)

// Env is a single-threaded deterministic chain. Transactions are executed
// one at a time under a mutex; each one is mined into its own block.
type Env struct {
	mu        sync.Mutex
	clock     Clock
	ledger    *Ledger
	contracts map[common.Address]Contract
	journaled []Journaled
	head      *types.Header
	fill      uint64
	nonces    map[common.Address]uint64
	feesPaid  map[common.Address]*big.Int
	events    []Event
	observers []Observer
}

// NewEnv creates a chain whose genesis block carries the initial base fee.
func NewEnv(clock Clock) *Env {
	if clock == nil {
		clock = Real()
	}
	ledger := NewLedger()
	now := clock.Now()
	return &Env{
		clock:     clock,
		ledger:    ledger,
		contracts: make(map[common.Address]Contract),
		journaled: []Journaled{ledger},
		head: &types.Header{
			Number:   new(big.Int),
			GasLimit: BlockGasLimit,
			GasUsed:  BlockGasLimit / params.DefaultElasticityMultiplier,
			Time:     uint64(now.Unix()),
			BaseFee:  new(big.Int).SetUint64(params.InitialBaseFee),
		},
		fill:     BlockGasLimit / params.DefaultElasticityMultiplier,
		nonces:   make(map[common.Address]uint64),
		feesPaid: make(map[common.Address]*big.Int),
	}
}

// Clock returns the clock used for block timestamps.
func (e *Env) Clock() Clock { return e.clock }

// Ledger returns the token ledger. Mutations outside Execute are not
// journaled and are meant for genesis funding.
func (e *Env) Ledger() *Ledger { return e.ledger }

// Register adds state that must roll back with reverted transactions.
func (e *Env) Register(j Journaled) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.journaled = append(e.journaled, j)
}

// Deploy makes c callable at addr. Contracts that implement Journaled are
// registered for rollback.
func (e *Env) Deploy(addr common.Address, c Contract) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contracts[addr] = c
	if j, ok := c.(Journaled); ok {
		e.journaled = append(e.journaled, j)
	}
}

// Contract returns the contract deployed at addr.
func (e *Env) Contract(addr common.Address) (Contract, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.contracts[addr]
	return c, ok
}

// Subscribe registers an observer for all future receipts.
func (e *Env) Subscribe(fn Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Head returns the latest mined block.
func (e *Env) Head() Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.block(e.head)
}

// SetBaseFee forces the base fee of the head block. With the default
// block fill the next blocks inherit it unchanged.
func (e *Env) SetBaseFee(fee *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := types.CopyHeader(e.head)
	h.BaseFee = new(big.Int).Set(fee)
	h.GasUsed = h.GasLimit / params.DefaultElasticityMultiplier
	e.head = h
}

// SetBlockFill sets the gas reported as used by each mined block. Fill
// above half the block gas limit raises the base fee, below lowers it.
func (e *Env) SetBlockFill(gas uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fill = min(gas, BlockGasLimit)
}

// FeesPaid returns the total gas fees paid by sender.
func (e *Env) FeesPaid(sender common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fees, ok := e.feesPaid[sender]; ok {
		return new(big.Int).Set(fees)
	}
	return new(big.Int)
}

// Events returns every event emitted by successful transactions.
func (e *Env) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// View runs fn with the chain locked. fn must not mutate state.
func (e *Env) View(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Execute mines tx into a new block, running fn as its body. fn runs
// atomically: if it returns an error every journaled participant is rolled
// back and its events are dropped, but the gas consumed is still reported.
func (e *Env) Execute(tx *Tx, fn func(*Frame) error) *Receipt {
	e.mu.Lock()
	receipt := e.execute(tx, fn)
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.Unlock()

	for _, o := range observers {
		o(receipt)
	}
	return receipt
}

func (e *Env) execute(tx *Tx, fn func(*Frame) error) *Receipt {
	parent := e.head
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   BlockGasLimit,
		Time:       uint64(e.clock.Now().Unix()),
		BaseFee:    eip1559.CalcBaseFee(params.TestChainConfig, parent),
	}
	if header.Time <= parent.Time {
		header.Time = parent.Time + 1
	}
	if tx.Value == nil {
		cp := *tx
		cp.Value = new(big.Int)
		tx = &cp
	}

	nonce := e.nonces[tx.From]
	receipt := &Receipt{
		ID:     uuid.NewString(),
		TxHash: tx.hash(nonce),
		From:   tx.From,
		To:     tx.To,
	}
	if err := tx.validate(header.BaseFee); err != nil {
		receipt.Status = StatusRejected
		receipt.Err = err
		receipt.Code = model.CodeOf(err)
		log.Debug("Transaction rejected", "hash", receipt.TxHash, "from", tx.From, "err", err)
		return receipt
	}
	e.nonces[tx.From] = nonce + 1

	block := e.block(header)
	st := &txState{
		env:            e,
		tx:             tx,
		block:          block,
		parentBaseFee:  new(big.Int).Set(parent.BaseFee),
		effectivePrice: tx.EffectiveGasPrice(header.BaseFee),
	}
	st.meter.Use(IntrinsicGas(tx.Data))
	frame := &Frame{caller: tx.From, st: st}

	snapshots := make([]int, len(e.journaled))
	for i, j := range e.journaled {
		snapshots[i] = j.Snapshot()
	}
	err := e.run(frame, tx, fn)
	if err != nil {
		for i := len(e.journaled) - 1; i >= 0; i-- {
			e.journaled[i].RevertToSnapshot(snapshots[i])
		}
		receipt.Status = StatusReverted
		receipt.Err = err
		receipt.Code = model.CodeOf(err)
		log.Debug("Transaction reverted", "hash", receipt.TxHash, "block", block.Number, "gas", st.meter.Used(), "code", receipt.Code, "err", err)
	} else {
		for _, j := range e.journaled {
			j.Finalise()
		}
		receipt.Status = StatusSuccess
		receipt.Events = st.events
		e.events = append(e.events, st.events...)
		log.Debug("Transaction mined", "hash", receipt.TxHash, "block", block.Number, "gas", st.meter.Used(), "events", len(st.events))
	}

	header.GasUsed = min(max(e.fill, st.meter.Used()), header.GasLimit)
	e.head = header

	receipt.Block = block.Number
	receipt.Time = block.Time
	receipt.GasUsed = st.meter.Used()
	receipt.EffectiveGasPrice = st.effectivePrice
	fee := receipt.Fee()
	if paid, ok := e.feesPaid[tx.From]; ok {
		paid.Add(paid, fee)
	} else {
		e.feesPaid[tx.From] = fee
	}
	return receipt
}

func (e *Env) run(frame *Frame, tx *Tx, fn func(*Frame) error) error {
	if tx.Value.Sign() > 0 {
		frame.UseGas(GasValueTransfer)
		if err := e.ledger.Transfer(NativeToken, tx.From, tx.To, tx.Value); err != nil {
			return err
		}
	}
	return fn(frame)
}

func (e *Env) block(h *types.Header) Block {
	return Block{
		Number:  h.Number.Uint64(),
		Time:    unixTime(h.Time),
		BaseFee: new(big.Int).Set(h.BaseFee),
	}
}

func unixTime(sec uint64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
