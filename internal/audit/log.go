package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ppiankov/vaultguard/internal/chain"
)

// GenesisHash is the prev_hash of the first entry of a log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// maxLineSize bounds one entry when recovering the head of an existing log.
const maxLineSize = 1 << 20

// Log is an append-only JSONL file of receipts. Each entry carries the
// SHA-256 of the line before it, so editing or dropping a line breaks
// every later link.
type Log struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	head    string
	entries int
}

// Open opens path for appending, creating it and its directory if needed.
// An existing log is scanned so new entries extend its chain.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	head, n, err := recoverHead(path)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	log.Debug("Audit log opened", "path", path, "entries", n, "head", head)
	return &Log{path: path, file: file, head: head, entries: n}, nil
}

// recoverHead returns the hash of the last line of path and the number of
// non-empty lines. A missing or empty file yields the genesis hash.
func recoverHead(path string) (string, int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return GenesisHash, 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	head, n := GenesisHash, 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		head = HashLine(line)
		n++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return head, n, nil
}

// Record links entry to the current head, appends it and syncs the file.
// A missing timestamp is filled with wall time.
func (l *Log) Record(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = l.head

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	l.head = HashLine(line)
	l.entries++
	return nil
}

// Observer returns a chain observer that records every receipt. label
// names the receipt's target; hash returns the deployment hash.
// Write failures are logged, never returned to the chain.
func (l *Log) Observer(label func(common.Address) string, hash func() string) chain.Observer {
	return func(r *chain.Receipt) {
		if err := l.Record(FromReceipt(r, label(r.To), hash())); err != nil {
			log.Error("Failed to record audit entry", "tx", r.ID, "err", err)
		}
	}
}

// Head returns the hash of the last entry and the number of entries.
func (l *Log) Head() (string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, l.entries
}

func (l *Log) Path() string { return l.path }

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of line.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
