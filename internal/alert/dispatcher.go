package alert

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/chain"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Matching is based on event.Type or event.Code; "*" matches everything.
// Fires goroutines and does not block the caller.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	for _, cfg := range d.configs {
		if matches(cfg.Events, event) {
			go func(cfg AlertConfig) {
				if err := Send(cfg, event); err != nil {
					log.Warn("Alert delivery failed", "url", cfg.URL, "type", event.Type, "err", err)
				}
			}(cfg)
		}
	}
}

// Observer returns a chain observer that dispatches the alerts raised by
// each receipt.
func (d *Dispatcher) Observer(label func(common.Address) string, hash func() string) chain.Observer {
	return func(r *chain.Receipt) {
		for _, ev := range FromReceipt(r, label(r.To), hash()) {
			d.Dispatch(ev)
		}
	}
}

// FromReceipt derives alert events from a receipt: one for a failed
// transaction, otherwise one per notable emitted event.
func FromReceipt(r *chain.Receipt, label, configHash string) []AlertEvent {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	base := AlertEvent{
		Timestamp:  ts.UTC().Format("2006-01-02T15:04:05.000Z"),
		TxID:       r.ID,
		Action:     label,
		Address:    r.To.Hex(),
		Sender:     r.From.Hex(),
		Block:      r.Block,
		GasUsed:    r.GasUsed,
		ConfigHash: configHash,
	}

	if !r.Succeeded() {
		ev := base
		ev.Type = TypeReverted
		if r.Status == chain.StatusRejected {
			ev.Type = TypeRejected
		}
		ev.Code = r.Code
		if r.Err != nil {
			ev.Reason = r.Err.Error()
		}
		return []AlertEvent{ev}
	}

	var out []AlertEvent
	for _, e := range r.Events {
		typ := typeOf(e.Name)
		if typ == "" {
			continue
		}
		ev := base
		ev.Type = typ
		ev.Detail = e.String()
		out = append(out, ev)
	}
	return out
}

func typeOf(event string) string {
	switch event {
	case "Executed":
		return TypeExecuted
	case "TransactionCostPaid":
		return TypeGasRedeemed
	case "Paused":
		return TypePaused
	case "Unpaused":
		return TypeUnpaused
	case "Authorized", "Unauthorized":
		return TypeAuthChanged
	}
	return ""
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		if e == "*" || e == event.Type {
			return true
		}
		if event.Code != "" && e == event.Code {
			return true
		}
	}
	return false
}
