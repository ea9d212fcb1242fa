package audit

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	scope := result.Action
	if scope == "" {
		scope = "all actions"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Audit: %s | No entries found.\n", scope)
	}

	var b strings.Builder

	// Header
	firstTime := formatDateRange(result.Summary.FirstTimestamp)
	lastTime := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Audit: %s | %s–%s UTC\n", scope, firstTime, lastTime))
	b.WriteString(separator + "\n")

	// Entries
	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		status := strings.ToUpper(e.Status)
		action := truncate(e.Action, 16)
		sender := truncate(e.Sender, 14)

		b.WriteString(fmt.Sprintf("%-10s #%-6d %-9s %-17s %-15s %s\n",
			ts, e.Block, status, action, sender, e.Code))
	}

	// Footer
	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.SuccessCount > 0 {
		parts = append(parts, fmt.Sprintf("%d success", s.SuccessCount))
	}
	if s.RevertCount > 0 {
		parts = append(parts, fmt.Sprintf("%d reverted", s.RevertCount))
	}
	if s.RejectCount > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", s.RejectCount))
	}

	out := fmt.Sprintf("Summary: %s | Gas: %d\n", strings.Join(parts, ", "), s.GasUsed)
	if len(s.Codes) > 0 {
		codes := make([]string, 0, len(s.Codes))
		for code, n := range s.Codes {
			codes = append(codes, fmt.Sprintf("%s x%d", code, n))
		}
		slices.Sort(codes)
		out += "Reverts: " + strings.Join(codes, ", ") + "\n"
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
