// Package signers verifies that a call carries a signature from one of a
// configured set of trusted off-chain signers.
package signers

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ppiankov/vaultguard/internal/addrset"
	"github.com/ppiankov/vaultguard/internal/chain"
	"github.com/ppiankov/vaultguard/internal/model"
)

var (
	ErrSignerNotTrusted = model.NewRevert("ACTION_SIGNER_NOT_TRUSTED")
	ErrSignerZero       = model.NewRevert("ACTION_SIGNER_ZERO")
	ErrSignatureUsed    = model.NewRevert("ACTION_SIGNATURE_ALREADY_USED")
)

// Config is a trusted signer set. When replay protection is on, each
// signed hash is accepted once.
type Config struct {
	required         bool
	signers          *addrset.Set
	replayProtection bool
	used             map[common.Hash]bool
}

func New() *Config {
	return &Config{signers: addrset.New(), used: make(map[common.Hash]bool)}
}

func (c *Config) SetRequired(required bool) { c.required = required }

func (c *Config) Required() bool { return c.required }

func (c *Config) SetReplayProtection(on bool) { c.replayProtection = on }

func (c *Config) ReplayProtection() bool { return c.replayProtection }

func (c *Config) Add(signer common.Address) error {
	if signer == (common.Address{}) {
		return ErrSignerZero
	}
	c.signers.Add(signer)
	return nil
}

func (c *Config) Remove(signer common.Address) {
	c.signers.Remove(signer)
}

// Set replaces the requirement flag and the signer set.
func (c *Config) Set(required bool, signers []common.Address) error {
	for _, s := range signers {
		if s == (common.Address{}) {
			return ErrSignerZero
		}
	}
	c.required = required
	c.signers = addrset.New(signers...)
	return nil
}

func (c *Config) IsSigner(a common.Address) bool { return c.signers.Contains(a) }

func (c *Config) Signers() []common.Address { return c.signers.Values() }

// IsUsed reports whether hash was already consumed by a replay-protected call.
func (c *Config) IsUsed(hash common.Hash) bool { return c.used[hash] }

// Validate accepts any call when signatures are not required. Otherwise
// sig must recover to a trusted signer over exactly hash.
func (c *Config) Validate(f *chain.Frame, hash common.Hash, sig []byte) error {
	f.UseGas(chain.GasStorageRead)
	if !c.required {
		return nil
	}
	f.UseGas(chain.GasEcrecover)
	signer, err := Recover(hash, sig)
	if err != nil {
		return ErrSignerNotTrusted.Withf("%v", err)
	}
	if !c.signers.Contains(signer) {
		return ErrSignerNotTrusted.Withf("%s", signer.Hex())
	}
	if c.replayProtection {
		if c.used[hash] {
			return ErrSignatureUsed.Withf("%s", hash.Hex())
		}
		f.UseGas(chain.GasStorageSet)
		c.used[hash] = true
	}
	return nil
}

func (c *Config) Clone() *Config {
	out := &Config{
		required:         c.required,
		signers:          c.signers.Clone(),
		replayProtection: c.replayProtection,
		used:             make(map[common.Hash]bool, len(c.used)),
	}
	for h := range c.used {
		out.used[h] = true
	}
	return out
}

// Recover returns the address that produced sig over hash. sig is
// R || S || V with V in {0, 1, 27, 28}.
func Recover(hash common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if v := normalized[crypto.RecoveryIDOffset]; v == 27 || v == 28 {
		normalized[crypto.RecoveryIDOffset] = v - 27
	}
	pub, err := crypto.SigToPub(hash.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Sign signs hash with key and returns the signature with V in {27, 28}.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
