package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/model"
)

// NativeToken is the pseudo-address used for the chain's native currency.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

var (
	ErrInsufficientBalance = model.NewRevert("LEDGER_INSUFFICIENT_BALANCE")
	ErrNegativeAmount      = model.NewRevert("LEDGER_NEGATIVE_AMOUNT")
)

type balances map[common.Address]map[common.Address]*big.Int

// Ledger tracks token balances per holder. It stands in for the ERC20
// contracts and native balances the vault and actions interact with.
type Ledger struct {
	balances balances
	journal  Journal[balances]
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(balances)}
}

// BalanceOf returns a copy of holder's balance of token.
func (l *Ledger) BalanceOf(token, holder common.Address) *big.Int {
	if b, ok := l.balances[token][holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Mint credits amount of token to holder.
func (l *Ledger) Mint(token, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	holders, ok := l.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[token] = holders
	}
	if holders[holder] == nil {
		holders[holder] = new(big.Int)
	}
	holders[holder].Add(holders[holder], amount)
	return nil
}

// Burn debits amount of token from holder.
func (l *Ledger) Burn(token, holder common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	current := l.BalanceOf(token, holder)
	if current.Cmp(amount) < 0 {
		return ErrInsufficientBalance.Withf("%s holds %s of %s, needs %s", holder.Hex(), current, token.Hex(), amount)
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.balances[token][holder].Sub(l.balances[token][holder], amount)
	return nil
}

// Transfer moves amount of token from one holder to another.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if err := l.Burn(token, from, amount); err != nil {
		return err
	}
	return l.Mint(token, to, amount)
}

func (l *Ledger) Snapshot() int {
	return l.journal.Push(l.balances.clone())
}

func (l *Ledger) RevertToSnapshot(id int) {
	l.balances = l.journal.Revert(id)
}

func (l *Ledger) Finalise() {
	l.journal.Reset()
}

func (b balances) clone() balances {
	out := make(balances, len(b))
	for token, holders := range b {
		h := make(map[common.Address]*big.Int, len(holders))
		for holder, amount := range holders {
			h[holder] = new(big.Int).Set(amount)
		}
		out[token] = h
	}
	return out
}
