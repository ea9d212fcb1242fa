package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for replay. Empty fields match all.
type ReplayFilter struct {
	Action string // action name or address, case-insensitive
	Sender string
	Status string
	From   time.Time // zero value = no lower bound
	To     time.Time // zero value = no upper bound
}

func (f ReplayFilter) matches(e AuditEntry) bool {
	if f.Action != "" && !strings.EqualFold(f.Action, e.Action) && !strings.EqualFold(f.Action, e.Address) {
		return false
	}
	if f.Sender != "" && !strings.EqualFold(f.Sender, e.Sender) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(f.Status, e.Status) {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

// ReplaySummary holds outcome counts and metadata for replayed entries.
type ReplaySummary struct {
	Total          int            `json:"total"`
	SuccessCount   int            `json:"success_count"`
	RevertCount    int            `json:"revert_count"`
	RejectCount    int            `json:"reject_count"`
	GasUsed        uint64         `json:"gas_used"`
	Codes          map[string]int `json:"codes,omitempty"`
	FirstTimestamp string         `json:"first_timestamp"`
	LastTimestamp  string         `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary.
type ReplayResult struct {
	Action  string        `json:"action,omitempty"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		Action: filter.Action,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}
		if !filter.matches(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

// Tail returns the last n matching entries. n <= 0 returns all of them.
func Tail(path string, filter ReplayFilter, n int) (*ReplayResult, error) {
	result, err := Replay(path, filter)
	if err != nil {
		return nil, err
	}
	if n <= 0 || len(result.Entries) <= n {
		return result, nil
	}
	tail := &ReplayResult{Action: result.Action, Entries: result.Entries[len(result.Entries)-n:]}
	for _, e := range tail.Entries {
		updateSummary(&tail.Summary, e)
	}
	return tail, nil
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++
	s.GasUsed += entry.GasUsed

	switch strings.ToLower(entry.Status) {
	case "success":
		s.SuccessCount++
	case "reverted":
		s.RevertCount++
	case "rejected":
		s.RejectCount++
	}
	if entry.Code != "" {
		if s.Codes == nil {
			s.Codes = make(map[string]int)
		}
		s.Codes[entry.Code]++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
