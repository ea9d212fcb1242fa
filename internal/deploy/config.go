// Package deploy builds a running set of actions from a YAML deployment
// file and dispatches string-typed invocations to them.
package deploy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/vaultguard/internal/alert"
	"github.com/ppiankov/vaultguard/internal/ratelimit"
)

// DefaultDeployer owns every action whose config omits an owner.
const DefaultDeployer = "0x00000000000000000000000000000000000d3910"

// Config is a deployment file.
type Config struct {
	// Deployer sends the genesis transactions and owns actions by default.
	Deployer string `yaml:"deployer"`
	// Tokens maps symbols to addresses. Symbols can be used anywhere an
	// address is expected.
	Tokens map[string]string `yaml:"tokens"`
	// Accounts names externally owned accounts, such as relayers.
	Accounts      map[string]string  `yaml:"accounts"`
	WrappedNative string             `yaml:"wrapped_native"`
	Prices        []PriceConfig      `yaml:"prices"`
	Vault         VaultConfig        `yaml:"vault"`
	FeeClaimers   []FeeClaimerConfig `yaml:"fee_claimers"`
	Balances      []BalanceConfig    `yaml:"balances"`
	Actions       []ActionConfig     `yaml:"actions"`

	// Alerts are webhooks fired by the daemon for matching receipts.
	Alerts []alert.AlertConfig `yaml:"alerts,omitempty"`
	// RateLimits cap calls per sender and action before they reach the chain.
	RateLimits ratelimit.Config `yaml:"rate_limits,omitempty"`
}

// PriceConfig is an oracle feed: one base is worth Rate quote.
type PriceConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
	Rate  string `yaml:"rate"`
}

type VaultConfig struct {
	Address      string `yaml:"address"`
	FeeCollector string `yaml:"fee_collector"`
}

// FeeClaimerConfig deploys a fee claimer holding Fees.
type FeeClaimerConfig struct {
	Name    string          `yaml:"name"`
	Address string          `yaml:"address"`
	Fees    []BalanceConfig `yaml:"fees"`
}

// BalanceConfig mints Amount of Token to Holder at genesis.
type BalanceConfig struct {
	Holder string `yaml:"holder"`
	Token  string `yaml:"token"`
	Amount string `yaml:"amount"`
}

// ActionConfig deploys one action.
type ActionConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Address string `yaml:"address"`
	Owner   string `yaml:"owner"`
	// Callers are granted the action's call selector.
	Callers  []string       `yaml:"callers"`
	Guards   GuardsConfig   `yaml:"guards"`
	Settings SettingsConfig `yaml:"settings"`
}

// GuardsConfig configures the guards an action composes. A guard left
// out keeps its zero configuration.
type GuardsConfig struct {
	Threshold  *ThresholdConfig  `yaml:"threshold"`
	Acceptance *AcceptanceConfig `yaml:"tokens_acceptance"`
	TimeLock   *TimeLockConfig   `yaml:"time_lock"`
	Signers    *SignersConfig    `yaml:"trusted_signers"`
	GasLimit   *GasLimitConfig   `yaml:"gas_limit"`
	Relayers   *RelayersConfig   `yaml:"relayers"`
}

type BandConfig struct {
	Token string `yaml:"token"`
	Min   string `yaml:"min"`
	Max   string `yaml:"max"`
}

type ThresholdConfig struct {
	Default *BandConfig           `yaml:"default"`
	Custom  map[string]BandConfig `yaml:"custom"`
}

type AcceptanceConfig struct {
	Type   string   `yaml:"type"`
	Tokens []string `yaml:"tokens"`
}

type TimeLockConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	Delay        time.Duration `yaml:"delay"`
}

type SignersConfig struct {
	Required         bool     `yaml:"required"`
	ReplayProtection bool     `yaml:"replay_protection"`
	Signers          []string `yaml:"signers"`
}

type GasLimitConfig struct {
	GasPriceLimit    string `yaml:"gas_price_limit"`
	PriorityFeeLimit string `yaml:"priority_fee_limit"`
}

type RelayersConfig struct {
	Relayers    []string `yaml:"relayers"`
	TxCostLimit string   `yaml:"tx_cost_limit"`
	PayingToken string   `yaml:"paying_token"`
}

// SettingsConfig holds the action-specific settings. Each kind reads only
// the fields it uses.
type SettingsConfig struct {
	Recipient         string      `yaml:"recipient"`
	FeeClaimer        string      `yaml:"fee_claimer"`
	TokenOut          string      `yaml:"token_out"`
	Source            uint8       `yaml:"source"`
	MaxSlippage       string      `yaml:"max_slippage"`
	MaxFeePct         string      `yaml:"max_fee_pct"`
	DestinationChains []uint64    `yaml:"destination_chains"`
	Fees              []FeeConfig `yaml:"fees"`
}

// FeeConfig is one entry of a swap fee schedule.
type FeeConfig struct {
	Pct    string        `yaml:"pct"`
	Cap    string        `yaml:"cap"`
	Token  string        `yaml:"token"`
	Period time.Duration `yaml:"period"`
}

// DefaultPath returns ~/.vaultguard/deployment.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vaultguard", "deployment.yaml"), nil
}

// DefaultConfig returns the built-in sample deployment.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(DefaultConfigYAML()), cfg); err != nil {
		panic(fmt.Sprintf("default deployment: %v", err))
	}
	return cfg
}

// LoadConfig loads a deployment from a YAML file.
// Empty path falls back to ~/.vaultguard/deployment.yaml.
// Missing file returns the default deployment. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads a deployment and returns the SHA-256 hash of
// the raw file. When no file exists the hash is that of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return DefaultConfig(), hashOf(nil), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), hashOf(nil), nil
		}
		return nil, "", fmt.Errorf("failed to read deployment: %w", err)
	}

	// The file replaces the sample deployment; only the deployer has a default.
	cfg := &Config{Deployer: DefaultDeployer}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse deployment: %w", err)
	}
	return cfg, hashOf(data), nil
}

func hashOf(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented deployment for init-deployment.
func DefaultConfigYAML() string {
	return `# vaultguard deployment
# Generated by: vaultguard init-deployment
#
# Addresses may be written as hex, as a token symbol, as an account name,
# as an action name, or as one of: native, vault, fee_collector.
# Amounts take an optional unit: wei (default), gwei, ether.
# Percentages are fractions ("0.01") or percents ("1%").

deployer: "0x00000000000000000000000000000000000d3910"

tokens:
  WETH: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
  USDC: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
  DAI: "0x6B175474E89094C44Da98b954EedeAC495271d0F"

accounts:
  relayer: "0x0000000000000000000000000000000004e1a7e4"
  treasury: "0x00000000000000000000000000000000007e5001"

wrapped_native: WETH

# Oracle feeds. One base is worth rate quote. Missing pairs are derived
# through the wrapped native token.
prices:
  - {base: WETH, quote: USDC, rate: "2000"}
  - {base: WETH, quote: DAI, rate: "2000"}

vault:
  address: "0x0000000000000000000000000000000000005a7e"
  fee_collector: "0x0000000000000000000000000000000000fee0c0"

fee_claimers:
  - name: fees
    address: "0x0000000000000000000000000000000000c1a1e5"
    fees:
      - {holder: vault, token: USDC, amount: "250 ether"}

balances:
  - {holder: vault, token: WETH, amount: "10 ether"}
  - {holder: vault, token: USDC, amount: "50000 ether"}
  - {holder: vault, token: native, amount: "1 ether"}

actions:
  - name: withdrawer
    kind: withdrawer
    address: "0x000000000000000000000000000000000000a001"
    callers: [relayer]
    settings:
      recipient: treasury
    guards:
      threshold:
        default: {token: USDC, min: "100 ether"}
      time_lock:
        delay: 24h
      gas_limit:
        gas_price_limit: "100 gwei"
      relayers:
        relayers: [relayer]
        paying_token: WETH

  - name: claimer
    kind: claimer
    address: "0x000000000000000000000000000000000000a002"
    callers: [relayer]
    settings:
      fee_claimer: fees
    guards:
      threshold:
        default: {token: WETH, min: "0.05 ether"}
      relayers:
        relayers: [relayer]
        paying_token: WETH

  - name: wrapper
    kind: wrapper
    address: "0x000000000000000000000000000000000000a003"
    callers: [relayer]
    guards:
      threshold:
        default: {token: WETH, min: "0.1 ether"}
      relayers:
        relayers: [relayer]
        paying_token: WETH

  - name: swapper
    kind: swapper
    address: "0x000000000000000000000000000000000000a004"
    callers: [relayer]
    settings:
      token_out: USDC
      max_slippage: "1%"
    guards:
      threshold:
        default: {token: USDC, min: "10 ether"}
      tokens_acceptance:
        type: allow
        tokens: [WETH, DAI]
      relayers:
        relayers: [relayer]
        paying_token: WETH

# Daemon admission limits per sender name ("*" for any) and action.
# rate_limits:
#   relayer:
#     "*": {max_requests: 60, window: 1m}
`
}
