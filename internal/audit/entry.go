package audit

import (
	"github.com/ppiankov/vaultguard/internal/chain"
)

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are structs or slices (no map[string]any) to guarantee
// deterministic json.Marshal field order for reproducible hashing.
type AuditEntry struct {
	Timestamp  string   `json:"ts"`
	TxID       string   `json:"tx_id"`
	TxHash     string   `json:"tx_hash"`
	Block      uint64   `json:"block"`
	Action     string   `json:"action"`
	Address    string   `json:"address"`
	Sender     string   `json:"sender"`
	Status     string   `json:"status"`
	Code       string   `json:"code,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	GasUsed    uint64   `json:"gas_used"`
	GasPrice   string   `json:"gas_price"`
	Events     []string `json:"events,omitempty"`
	ConfigHash string   `json:"config_hash"`
	PrevHash   string   `json:"prev_hash"`
}

// FromReceipt flattens a receipt into an entry. label names the target
// action; configHash identifies the deployment the receipt ran under.
func FromReceipt(r *chain.Receipt, label, configHash string) AuditEntry {
	e := AuditEntry{
		TxID:       r.ID,
		TxHash:     r.TxHash.Hex(),
		Block:      r.Block,
		Action:     label,
		Address:    r.To.Hex(),
		Sender:     r.From.Hex(),
		Status:     string(r.Status),
		Code:       r.Code,
		GasUsed:    r.GasUsed,
		ConfigHash: configHash,
	}
	// Rejected transactions are never mined; Record stamps them with wall time.
	if !r.Time.IsZero() {
		e.Timestamp = r.Time.UTC().Format(TimestampFormat)
	}
	if r.EffectiveGasPrice != nil {
		e.GasPrice = r.EffectiveGasPrice.String()
	}
	if r.Err != nil {
		e.Reason = r.Err.Error()
	}
	for _, ev := range r.Events {
		e.Events = append(e.Events, ev.Name)
	}
	return e
}
