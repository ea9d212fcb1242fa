// Package feeclaimer implements an ABI-encoded fee claimer contract:
// accumulated fees per account that can be withdrawn in one call.
package feeclaimer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

const abiJSON = `[
	{"type":"function","name":"getBalance","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"withdrawAllERC20","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"recipient","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"registerFee","stateMutability":"nonpayable",
	 "inputs":[{"name":"account","type":"address"},{"name":"token","type":"address"},{"name":"fee","type":"uint256"}],
	 "outputs":[]}
]`

// ABI is the fee claimer interface.
var ABI = mustParse(abiJSON)

var ErrUnknownMethod = model.NewRevert("FEE_CLAIMER_UNKNOWN_METHOD")

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("feeclaimer abi: %v", err))
	}
	return parsed
}

type fees map[common.Address]map[common.Address]*big.Int

func (f fees) clone() fees {
	out := make(fees, len(f))
	for token, accounts := range f {
		a := make(map[common.Address]*big.Int, len(accounts))
		for acc, v := range accounts {
			a[acc] = new(big.Int).Set(v)
		}
		out[token] = a
	}
	return out
}

// Claimer holds tokens in the ledger at its own address and tracks how
// much of them each account may withdraw.
type Claimer struct {
	addr    common.Address
	fees    fees
	journal chain.Journal[fees]
}

// Deploy creates a fee claimer at addr and makes it callable in env.
func Deploy(env *chain.Env, addr common.Address) *Claimer {
	c := &Claimer{addr: addr, fees: make(fees)}
	env.Deploy(addr, c)
	return c
}

func (c *Claimer) Address() common.Address { return c.addr }

// Balance returns the fees account may withdraw in token.
func (c *Claimer) Balance(token, account common.Address) *big.Int {
	if v, ok := c.fees[token][account]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Credit assigns amount of token to account and mints the backing tokens
// to the claimer. It is meant for genesis funding outside transactions.
func (c *Claimer) Credit(ledger *chain.Ledger, account, token common.Address, amount *big.Int) error {
	if err := ledger.Mint(token, c.addr, amount); err != nil {
		return err
	}
	c.credit(account, token, amount)
	return nil
}

func (c *Claimer) credit(account, token common.Address, amount *big.Int) {
	accounts, ok := c.fees[token]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		c.fees[token] = accounts
	}
	if accounts[account] == nil {
		accounts[account] = new(big.Int)
	}
	accounts[account].Add(accounts[account], amount)
}

// Call implements chain.Contract.
func (c *Claimer) Call(f *chain.Frame, input []byte, _ *big.Int) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrUnknownMethod.Withf("short input")
	}
	method, err := ABI.MethodById(input[:4])
	if err != nil {
		return nil, ErrUnknownMethod.Withf("%x", input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, ErrUnknownMethod.Withf("%s: %v", method.Name, err)
	}

	switch method.Name {
	case "getBalance":
		f.UseGas(chain.GasStorageRead)
		return method.Outputs.Pack(c.Balance(args[0].(common.Address), args[1].(common.Address)))

	case "withdrawAllERC20":
		token, recipient := args[0].(common.Address), args[1].(common.Address)
		f.UseGas(chain.GasStorageRead + chain.GasStorageWrite)
		amount := c.Balance(token, f.Sender())
		if amount.Sign() == 0 {
			return method.Outputs.Pack(false)
		}
		if err := f.Ledger().Transfer(token, c.addr, recipient, amount); err != nil {
			return nil, err
		}
		c.fees[token][f.Sender()].SetUint64(0)
		f.Emit(c.addr, "FeesWithdrawn", "token", token, "account", f.Sender(), "recipient", recipient, "amount", amount)
		return method.Outputs.Pack(true)

	case "registerFee":
		account, token, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		f.UseGas(chain.GasStorageSet)
		if err := f.Ledger().Transfer(token, f.Sender(), c.addr, amount); err != nil {
			return nil, err
		}
		c.credit(account, token, amount)
		return nil, nil
	}
	return nil, ErrUnknownMethod.Withf("%s", method.Name)
}

func (c *Claimer) Snapshot() int {
	return c.journal.Push(c.fees.clone())
}

func (c *Claimer) RevertToSnapshot(id int) {
	c.fees = c.journal.Revert(id)
}

func (c *Claimer) Finalise() {
	c.journal.Reset()
}

// PackGetBalance encodes getBalance(token, account).
func PackGetBalance(token, account common.Address) ([]byte, error) {
	return ABI.Pack("getBalance", token, account)
}

// UnpackGetBalance decodes the result of getBalance.
func UnpackGetBalance(out []byte) (*big.Int, error) {
	vals, err := ABI.Unpack("getBalance", out)
	if err != nil {
		return nil, err
	}
	return vals[0].(*big.Int), nil
}

// PackWithdrawAll encodes withdrawAllERC20(token, recipient).
func PackWithdrawAll(token, recipient common.Address) ([]byte, error) {
	return ABI.Pack("withdrawAllERC20", token, recipient)
}

// UnpackWithdrawAll decodes the result of withdrawAllERC20.
func UnpackWithdrawAll(out []byte) (bool, error) {
	vals, err := ABI.Unpack("withdrawAllERC20", out)
	if err != nil {
		return false, err
	}
	return vals[0].(bool), nil
}

// PackRegisterFee encodes registerFee(account, token, fee).
func PackRegisterFee(account, token common.Address, fee *big.Int) ([]byte, error) {
	return ABI.Pack("registerFee", account, token, fee)
}
