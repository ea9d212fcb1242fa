package alert

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["reverted", "gas_redeemed", "ACTION_PAUSED", "*"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event types raised from receipts.
const (
	TypeReverted    = "reverted"
	TypeRejected    = "rejected"
	TypeExecuted    = "executed"
	TypeGasRedeemed = "gas_redeemed"
	TypePaused      = "paused"
	TypeUnpaused    = "unpaused"
	TypeAuthChanged = "authorization_changed"
)

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp  string `json:"timestamp"`
	TxID       string `json:"tx_id"`
	Type       string `json:"type"`
	Action     string `json:"action"`
	Address    string `json:"address"`
	Sender     string `json:"sender"`
	Code       string `json:"code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Block      uint64 `json:"block"`
	GasUsed    uint64 `json:"gas_used"`
	Detail     string `json:"detail,omitempty"`
	ConfigHash string `json:"config_hash"`
}
