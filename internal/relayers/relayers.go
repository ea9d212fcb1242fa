// Package relayers keeps the relayer allow-list and redeems the gas cost
// of relayed executions from the vault.
package relayers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/addrset"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/fixedpoint"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrRelayerZero             = model.NewRevert("ACTION_RELAYER_ZERO")
	ErrPayingTokenZero         = model.NewRevert("ACTION_PAYING_TOKEN_ZERO")
	ErrPayingTokenPriceMissing = model.NewRevert("ACTION_PAYING_TOKEN_PRICE_UNAVAILABLE")
	ErrTxCostLimitExceeded     = model.NewRevert("ACTION_TX_COST_LIMIT_EXCEEDED")
	ErrNegativeLimit           = model.NewRevert("ACTION_TX_COST_LIMIT_NEGATIVE")
)

// RedeemGasOverhead is the gas spent by the redemption itself after the
// measurement is taken: price lookup, vault withdrawal and the event.
const RedeemGasOverhead uint64 = 2*chain.GasCall + 3*chain.GasStorageWrite + chain.GasLog + 4*32*chain.GasLogData

// RedeemReason tags vault withdrawals made to pay relayed gas.
var RedeemReason = []byte("REDEEM_GAS")

// Payer is the part of the vault that funds gas redemption.
type Payer interface {
	WrappedNativeToken() common.Address
	FeeCollector() common.Address
	Price(base, quote common.Address) (*big.Int, error)
	Withdraw(f *chain.Frame, token common.Address, amount *big.Int, recipient common.Address, data []byte) error
}

// Config is the relayer allow-list and redemption settings.
type Config struct {
	relayers    *addrset.Set
	txCostLimit *big.Int
	payingToken common.Address
}

func New() *Config {
	return &Config{relayers: addrset.New(), txCostLimit: new(big.Int)}
}

func (c *Config) Add(relayer common.Address) error {
	if relayer == (common.Address{}) {
		return ErrRelayerZero
	}
	c.relayers.Add(relayer)
	return nil
}

func (c *Config) Remove(relayer common.Address) {
	c.relayers.Remove(relayer)
}

// Set replaces the relayer set.
func (c *Config) Set(relayers []common.Address) error {
	for _, r := range relayers {
		if r == (common.Address{}) {
			return ErrRelayerZero
		}
	}
	c.relayers = addrset.New(relayers...)
	return nil
}

func (c *Config) IsRelayer(a common.Address) bool { return c.relayers.Contains(a) }

func (c *Config) Relayers() []common.Address { return c.relayers.Values() }

// SetTxCostLimit caps the cost redeemed per call in the paying token.
// Zero means unlimited.
func (c *Config) SetTxCostLimit(limit *big.Int) error {
	if limit == nil {
		limit = new(big.Int)
	}
	if limit.Sign() < 0 {
		return ErrNegativeLimit
	}
	c.txCostLimit = new(big.Int).Set(limit)
	return nil
}

func (c *Config) TxCostLimit() *big.Int { return new(big.Int).Set(c.txCostLimit) }

func (c *Config) SetPayingToken(token common.Address) error {
	if token == (common.Address{}) {
		return ErrPayingTokenZero
	}
	c.payingToken = token
	return nil
}

func (c *Config) PayingToken() common.Address { return c.payingToken }

// Cost returns the redemption amount in token for gasUsed at gasPrice.
func (c *Config) Cost(p Payer, token common.Address, gasUsed uint64, gasPrice *big.Int) (*big.Int, error) {
	costNative := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice)
	wrapped := p.WrappedNativeToken()
	if token == wrapped || token == chain.NativeToken {
		return costNative, nil
	}
	rate, err := p.Price(wrapped, token)
	if err != nil {
		return nil, ErrPayingTokenPriceMissing.Withf("%s: %v", token.Hex(), err)
	}
	return fixedpoint.MulDown(costNative, rate)
}

// RedeemGas charges the vault for the gas of the current call when the
// sender is a relayer. The withdrawal is made by action. It must run last so the meter covers every other
// step of the call. Non-relayers are not charged. A zero token falls back
// to the configured paying token.
func (c *Config) RedeemGas(f *chain.Frame, action common.Address, p Payer, token common.Address) error {
	f.UseGas(chain.GasStorageRead)
	if !c.relayers.Contains(f.Sender()) {
		return nil
	}
	if token == (common.Address{}) {
		token = c.payingToken
	}
	if token == (common.Address{}) {
		return ErrPayingTokenZero
	}

	gasUsed := f.GasUsed() + RedeemGasOverhead
	gasPrice := f.EffectiveGasPrice()
	cost, err := c.Cost(p, token, gasUsed, gasPrice)
	if err != nil {
		return err
	}
	if c.txCostLimit.Sign() != 0 && cost.Cmp(c.txCostLimit) > 0 {
		return ErrTxCostLimitExceeded.Withf("cost %s > limit %s", cost, c.txCostLimit)
	}
	if err := p.Withdraw(f.As(action), token, cost, p.FeeCollector(), RedeemReason); err != nil {
		return err
	}
	f.Emit(action, "TransactionCostPaid",
		"token", token,
		"amount", cost,
		"gasUsed", new(big.Int).SetUint64(gasUsed),
		"gasPrice", gasPrice,
	)
	log.Debug("Gas redeemed", "relayer", f.Sender(), "token", token, "amount", cost, "gas", gasUsed)
	return nil
}

func (c *Config) Clone() *Config {
	return &Config{
		relayers:    c.relayers.Clone(),
		txCostLimit: new(big.Int).Set(c.txCostLimit),
		payingToken: c.payingToken,
	}
}
