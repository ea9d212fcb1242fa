package action

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ppiankov/vaultguard/internal/acceptance"
	"github.com/ppiankov/vaultguard/internal/authority"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
	"github.com/ppiankov/vaultguard/internal/threshold"
)

// Selectors of the setters shared by every action.
var (
	SelAuthorize                    = authority.SelectorOf("authorize(address,bytes4)")
	SelUnauthorize                  = authority.SelectorOf("unauthorize(address,bytes4)")
	SelPause                        = authority.SelectorOf("pause()")
	SelUnpause                      = authority.SelectorOf("unpause()")
	SelSetCustomParam               = authority.SelectorOf("setCustomParam(bytes32,bytes32)")
	SelUnsetCustomParam             = authority.SelectorOf("unsetCustomParam(bytes32)")
	SelSetDefaultThreshold          = authority.SelectorOf("setDefaultTokenThreshold(address,uint256,uint256)")
	SelUnsetDefaultThreshold        = authority.SelectorOf("unsetDefaultTokenThreshold()")
	SelSetCustomThreshold           = authority.SelectorOf("setCustomTokenThreshold(address,address,uint256,uint256)")
	SelUnsetCustomThreshold         = authority.SelectorOf("unsetCustomTokenThreshold(address)")
	SelSetTokensAcceptance          = authority.SelectorOf("setTokensAcceptanceList(uint8,address[])")
	SelSetTokensAcceptanceType      = authority.SelectorOf("setTokensAcceptanceType(uint8)")
	SelUpdateTokensAcceptance       = authority.SelectorOf("updateTokensAcceptanceList(address[],address[])")
	SelInitializeTimeLock           = authority.SelectorOf("initializeTimeLock(uint256,uint256)")
	SelSetTimeLockDelay             = authority.SelectorOf("setTimeLockDelay(uint256)")
	SelSetTrustedSigners            = authority.SelectorOf("setTrustedSigners(bool,address[])")
	SelAddTrustedSigner             = authority.SelectorOf("addTrustedSigner(address)")
	SelRemoveTrustedSigner          = authority.SelectorOf("removeTrustedSigner(address)")
	SelSetSignatureReplayProtection = authority.SelectorOf("setSignatureReplayProtection(bool)")
	SelSetGasLimits                 = authority.SelectorOf("setGasLimits(uint256,uint256)")
	SelSetRelayers                  = authority.SelectorOf("setRelayers(address[])")
	SelAddRelayer                   = authority.SelectorOf("addRelayer(address)")
	SelRemoveRelayer                = authority.SelectorOf("removeRelayer(address)")
	SelSetTxCostLimit               = authority.SelectorOf("setTxCostLimit(uint256)")
	SelSetPayingToken               = authority.SelectorOf("setPayingToken(address)")
	SelTransferToSmartVault         = authority.SelectorOf("transferToSmartVault(address,uint256)")
)

func (b *Base[S]) unsupported(guard string) error {
	return model.ErrGuardNotSupported.Withf("%s has no %s guard", b.kind, guard)
}

// --- Authorization ---

func (b *Base[S]) Authorize(f *chain.Frame, who common.Address, what authority.Selector) error {
	if err := b.authorize(f, SelAuthorize); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageSet)
	if b.st.perms.Authorize(who, what) {
		f.Emit(b.addr, "Authorized", "who", who, "what", what.String())
	}
	return nil
}

func (b *Base[S]) Unauthorize(f *chain.Frame, who common.Address, what authority.Selector) error {
	if err := b.authorize(f, SelUnauthorize); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	if b.st.perms.Unauthorize(who, what) {
		f.Emit(b.addr, "Unauthorized", "who", who, "what", what.String())
	}
	return nil
}

// --- Pause ---

func (b *Base[S]) Pause(f *chain.Frame) error {
	if err := b.authorize(f, SelPause); err != nil {
		return err
	}
	if b.st.paused {
		return ErrAlreadyPaused
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.paused = true
	f.Emit(b.addr, "Paused")
	return nil
}

func (b *Base[S]) Unpause(f *chain.Frame) error {
	if err := b.authorize(f, SelUnpause); err != nil {
		return err
	}
	if !b.st.paused {
		return ErrNotPaused
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.paused = false
	f.Emit(b.addr, "Unpaused")
	return nil
}

// --- Custom params ---

func (b *Base[S]) SetCustomParam(f *chain.Frame, key, value [32]byte) error {
	if err := b.authorize(f, SelSetCustomParam); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageSet)
	b.st.params[key] = value
	f.Emit(b.addr, "CustomParamSet", "key", key, "value", value)
	return nil
}

func (b *Base[S]) UnsetCustomParam(f *chain.Frame, key [32]byte) error {
	if err := b.authorize(f, SelUnsetCustomParam); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	delete(b.st.params, key)
	f.Emit(b.addr, "CustomParamUnset", "key", key)
	return nil
}

// --- Threshold ---

func (b *Base[S]) SetDefaultThreshold(f *chain.Frame, th threshold.Threshold) error {
	if err := b.authorize(f, SelSetDefaultThreshold); err != nil {
		return err
	}
	if b.st.threshold == nil {
		return b.unsupported("threshold")
	}
	if err := b.st.threshold.SetDefault(th); err != nil {
		return err
	}
	f.UseGas(3 * chain.GasStorageWrite)
	set, _ := b.st.threshold.Default()
	f.Emit(b.addr, "DefaultThresholdSet", "token", set.Token, "min", set.Min, "max", set.Max)
	return nil
}

func (b *Base[S]) UnsetDefaultThreshold(f *chain.Frame) error {
	if err := b.authorize(f, SelUnsetDefaultThreshold); err != nil {
		return err
	}
	if b.st.threshold == nil {
		return b.unsupported("threshold")
	}
	f.UseGas(3 * chain.GasStorageWrite)
	b.st.threshold.UnsetDefault()
	f.Emit(b.addr, "DefaultThresholdSet", "token", common.Address{}, "min", new(big.Int), "max", new(big.Int))
	return nil
}

func (b *Base[S]) SetCustomThreshold(f *chain.Frame, token common.Address, th threshold.Threshold) error {
	if err := b.authorize(f, SelSetCustomThreshold); err != nil {
		return err
	}
	if b.st.threshold == nil {
		return b.unsupported("threshold")
	}
	if err := b.st.threshold.SetCustom(token, th); err != nil {
		return err
	}
	f.UseGas(3 * chain.GasStorageWrite)
	set, _ := b.st.threshold.Custom(token)
	f.Emit(b.addr, "CustomThresholdSet", "token", token, "thresholdToken", set.Token, "min", set.Min, "max", set.Max)
	return nil
}

func (b *Base[S]) UnsetCustomThreshold(f *chain.Frame, token common.Address) error {
	if err := b.authorize(f, SelUnsetCustomThreshold); err != nil {
		return err
	}
	if b.st.threshold == nil {
		return b.unsupported("threshold")
	}
	f.UseGas(3 * chain.GasStorageWrite)
	b.st.threshold.RemoveCustom(token)
	f.Emit(b.addr, "CustomThresholdSet", "token", token, "thresholdToken", common.Address{}, "min", new(big.Int), "max", new(big.Int))
	return nil
}

// --- Tokens acceptance ---

func (b *Base[S]) SetTokensAcceptance(f *chain.Frame, typ acceptance.Type, tokens []common.Address) error {
	if err := b.authorize(f, SelSetTokensAcceptance); err != nil {
		return err
	}
	if b.st.acceptance == nil {
		return b.unsupported("tokens acceptance")
	}
	if err := b.st.acceptance.Set(typ, tokens); err != nil {
		return err
	}
	f.UseGas(uint64(len(tokens)+1) * chain.GasStorageSet)
	b.emitAcceptance(f)
	return nil
}

func (b *Base[S]) SetTokensAcceptanceType(f *chain.Frame, typ acceptance.Type) error {
	if err := b.authorize(f, SelSetTokensAcceptanceType); err != nil {
		return err
	}
	if b.st.acceptance == nil {
		return b.unsupported("tokens acceptance")
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.acceptance.SetType(typ)
	b.emitAcceptance(f)
	return nil
}

// UpdateTokensAcceptance adds then removes tokens, leaving the type alone.
func (b *Base[S]) UpdateTokensAcceptance(f *chain.Frame, add, remove []common.Address) error {
	if err := b.authorize(f, SelUpdateTokensAcceptance); err != nil {
		return err
	}
	if b.st.acceptance == nil {
		return b.unsupported("tokens acceptance")
	}
	if err := b.st.acceptance.AddMany(add); err != nil {
		return err
	}
	b.st.acceptance.RemoveMany(remove)
	f.UseGas(uint64(len(add)+len(remove)) * chain.GasStorageSet)
	b.emitAcceptance(f)
	return nil
}

func (b *Base[S]) emitAcceptance(f *chain.Frame) {
	f.Emit(b.addr, "TokensAcceptanceSet", "type", b.st.acceptance.Type().String(), "tokens", b.st.acceptance.Values())
}

// --- Time lock ---

func (b *Base[S]) InitializeTimeLock(f *chain.Frame, initialDelay, delay time.Duration) error {
	if err := b.authorize(f, SelInitializeTimeLock); err != nil {
		return err
	}
	if b.st.timeLock == nil {
		return b.unsupported("time lock")
	}
	if err := b.st.timeLock.Initialize(f.Now(), initialDelay, delay); err != nil {
		return err
	}
	f.UseGas(3 * chain.GasStorageSet)
	f.Emit(b.addr, "TimeLockSet", "delay", delay, "nextResetTime", b.st.timeLock.NextResetTime())
	return nil
}

func (b *Base[S]) SetTimeLockDelay(f *chain.Frame, delay time.Duration) error {
	if err := b.authorize(f, SelSetTimeLockDelay); err != nil {
		return err
	}
	if b.st.timeLock == nil {
		return b.unsupported("time lock")
	}
	if err := b.st.timeLock.SetDelay(delay); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	f.Emit(b.addr, "TimeLockSet", "delay", delay, "nextResetTime", b.st.timeLock.NextResetTime())
	return nil
}

// --- Trusted signers ---

func (b *Base[S]) SetTrustedSigners(f *chain.Frame, required bool, list []common.Address) error {
	if err := b.authorize(f, SelSetTrustedSigners); err != nil {
		return err
	}
	if b.st.signers == nil {
		return b.unsupported("trusted signers")
	}
	if err := b.st.signers.Set(required, list); err != nil {
		return err
	}
	f.UseGas(uint64(len(list)+1) * chain.GasStorageSet)
	f.Emit(b.addr, "TrustedSignersSet", "required", required, "signers", b.st.signers.Signers())
	return nil
}

func (b *Base[S]) AddTrustedSigner(f *chain.Frame, signer common.Address) error {
	if err := b.authorize(f, SelAddTrustedSigner); err != nil {
		return err
	}
	if b.st.signers == nil {
		return b.unsupported("trusted signers")
	}
	if err := b.st.signers.Add(signer); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageSet)
	f.Emit(b.addr, "TrustedSignersSet", "required", b.st.signers.Required(), "signers", b.st.signers.Signers())
	return nil
}

func (b *Base[S]) RemoveTrustedSigner(f *chain.Frame, signer common.Address) error {
	if err := b.authorize(f, SelRemoveTrustedSigner); err != nil {
		return err
	}
	if b.st.signers == nil {
		return b.unsupported("trusted signers")
	}
	b.st.signers.Remove(signer)
	f.UseGas(chain.GasStorageWrite)
	f.Emit(b.addr, "TrustedSignersSet", "required", b.st.signers.Required(), "signers", b.st.signers.Signers())
	return nil
}

func (b *Base[S]) SetSignatureReplayProtection(f *chain.Frame, on bool) error {
	if err := b.authorize(f, SelSetSignatureReplayProtection); err != nil {
		return err
	}
	if b.st.signers == nil {
		return b.unsupported("trusted signers")
	}
	f.UseGas(chain.GasStorageWrite)
	b.st.signers.SetReplayProtection(on)
	f.Emit(b.addr, "SignatureReplayProtectionSet", "enabled", on)
	return nil
}

// --- Gas limits ---

func (b *Base[S]) SetGasLimits(f *chain.Frame, gasPriceLimit, priorityFeeLimit *big.Int) error {
	if err := b.authorize(f, SelSetGasLimits); err != nil {
		return err
	}
	if b.st.gasLimit == nil {
		return b.unsupported("gas limit")
	}
	if err := b.st.gasLimit.Set(gasPriceLimit, priorityFeeLimit); err != nil {
		return err
	}
	f.UseGas(2 * chain.GasStorageWrite)
	f.Emit(b.addr, "GasLimitSet", "gasPriceLimit", b.st.gasLimit.GasPriceLimit(), "priorityFeeLimit", b.st.gasLimit.PriorityFeeLimit())
	return nil
}

// --- Relayers ---

func (b *Base[S]) SetRelayers(f *chain.Frame, list []common.Address) error {
	if err := b.authorize(f, SelSetRelayers); err != nil {
		return err
	}
	if b.st.relayers == nil {
		return b.unsupported("relayers")
	}
	if err := b.st.relayers.Set(list); err != nil {
		return err
	}
	f.UseGas(uint64(len(list)+1) * chain.GasStorageSet)
	f.Emit(b.addr, "RelayersSet", "relayers", b.st.relayers.Relayers())
	return nil
}

func (b *Base[S]) AddRelayer(f *chain.Frame, relayer common.Address) error {
	if err := b.authorize(f, SelAddRelayer); err != nil {
		return err
	}
	if b.st.relayers == nil {
		return b.unsupported("relayers")
	}
	if err := b.st.relayers.Add(relayer); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageSet)
	f.Emit(b.addr, "RelayersSet", "relayers", b.st.relayers.Relayers())
	return nil
}

func (b *Base[S]) RemoveRelayer(f *chain.Frame, relayer common.Address) error {
	if err := b.authorize(f, SelRemoveRelayer); err != nil {
		return err
	}
	if b.st.relayers == nil {
		return b.unsupported("relayers")
	}
	b.st.relayers.Remove(relayer)
	f.UseGas(chain.GasStorageWrite)
	f.Emit(b.addr, "RelayersSet", "relayers", b.st.relayers.Relayers())
	return nil
}

func (b *Base[S]) SetTxCostLimit(f *chain.Frame, limit *big.Int) error {
	if err := b.authorize(f, SelSetTxCostLimit); err != nil {
		return err
	}
	if b.st.relayers == nil {
		return b.unsupported("relayers")
	}
	if err := b.st.relayers.SetTxCostLimit(limit); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	f.Emit(b.addr, "TxCostLimitSet", "txCostLimit", b.st.relayers.TxCostLimit())
	return nil
}

func (b *Base[S]) SetPayingToken(f *chain.Frame, token common.Address) error {
	if err := b.authorize(f, SelSetPayingToken); err != nil {
		return err
	}
	if b.st.relayers == nil {
		return b.unsupported("relayers")
	}
	if err := b.st.relayers.SetPayingToken(token); err != nil {
		return err
	}
	f.UseGas(chain.GasStorageWrite)
	f.Emit(b.addr, "PayingTokenSet", "payingToken", token)
	return nil
}

// --- Funds ---

// TransferToSmartVault forwards a balance the action holds back to the vault.
func (b *Base[S]) TransferToSmartVault(f *chain.Frame, token common.Address, amount *big.Int) error {
	if err := b.authorize(f, SelTransferToSmartVault); err != nil {
		return err
	}
	if token == (common.Address{}) {
		return model.ErrAddressZero.Withf("token")
	}
	if amount == nil || amount.Sign() <= 0 {
		return model.ErrAmountZero
	}
	f.UseGas(chain.GasCall + 2*chain.GasStorageWrite)
	if token == chain.NativeToken {
		f.UseGas(chain.GasValueTransfer)
	}
	if err := f.Ledger().Transfer(token, b.addr, b.vault.Address(), amount); err != nil {
		return err
	}
	f.Emit(b.addr, "TransferredToSmartVault", "token", token, "amount", amount)
	return nil
}
