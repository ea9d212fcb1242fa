package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	outcome := event.Code
	if outcome == "" {
		outcome = event.Detail
	}
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("vaultguard: %s on %s", event.Type, event.Action),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", event.Action)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Sender:* `%s`", event.Sender)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Block:* %d (%s)", event.Block, severityFor(event.Type))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Outcome:* %s", outcome)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	summary := fmt.Sprintf("vaultguard %s: %s", event.Type, event.Action)
	if event.Code != "" {
		summary += " (" + event.Code + ")"
	}
	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  summary,
			"severity": severityFor(event.Type),
			"source":   "vaultguard",
			"custom_details": map[string]any{
				"action":   event.Action,
				"address":  event.Address,
				"sender":   event.Sender,
				"code":     event.Code,
				"reason":   event.Reason,
				"tx_id":    event.TxID,
				"gas_used": event.GasUsed,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(typ string) string {
	switch typ {
	case TypeRejected, TypeReverted:
		return "error"
	case TypePaused, TypeAuthChanged:
		return "warning"
	default:
		return "info"
	}
}
