// Package eventstore indexes mined receipts and their events in SQLite so
// they can be queried after the fact by emitter, name and block range.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/vaultguard/internal/chain"
)

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id        TEXT PRIMARY KEY,
	tx_hash   TEXT NOT NULL,
	block     INTEGER NOT NULL,
	time      INTEGER NOT NULL,
	sender    TEXT NOT NULL,
	target    TEXT NOT NULL,
	status    TEXT NOT NULL,
	code      TEXT NOT NULL DEFAULT '',
	reason    TEXT NOT NULL DEFAULT '',
	gas_used  INTEGER NOT NULL,
	gas_price TEXT NOT NULL DEFAULT '0'
);
CREATE INDEX IF NOT EXISTS receipts_target ON receipts (target, block);

CREATE TABLE IF NOT EXISTS events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	receipt_id TEXT NOT NULL REFERENCES receipts (id),
	block      INTEGER NOT NULL,
	log_index  INTEGER NOT NULL,
	time       INTEGER NOT NULL,
	emitter    TEXT NOT NULL,
	name       TEXT NOT NULL,
	args       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_emitter_name ON events (emitter, name);
CREATE INDEX IF NOT EXISTS events_block ON events (block);
`

// Store is a SQLite-backed index of receipts and events.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("eventstore: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open %s: %w", path, err)
	}
	// One writer; SQLite serializes writes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("eventstore: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r and, when it succeeded, its events in one transaction.
func (s *Store) Record(ctx context.Context, r *chain.Receipt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("eventstore: begin: %w", err)
	}
	defer tx.Rollback()

	reason := ""
	if r.Err != nil {
		reason = r.Err.Error()
	}
	gasPrice := "0"
	if r.EffectiveGasPrice != nil {
		gasPrice = r.EffectiveGasPrice.String()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (id, tx_hash, block, time, sender, target, status, code, reason, gas_used, gas_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TxHash.Hex(), int64(r.Block), r.Time.Unix(), r.From.Hex(), r.To.Hex(),
		string(r.Status), r.Code, reason, int64(r.GasUsed), gasPrice)
	if err != nil {
		return fmt.Errorf("eventstore: insert receipt %s: %w", r.ID, err)
	}

	for i, ev := range r.Events {
		args, err := json.Marshal(ev.Fields())
		if err != nil {
			return fmt.Errorf("eventstore: encode %s args: %w", ev.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (receipt_id, block, log_index, time, emitter, name, args)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, int64(r.Block), i, r.Time.Unix(), ev.Address.Hex(), ev.Name, string(args))
		if err != nil {
			return fmt.Errorf("eventstore: insert event %s: %w", ev.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eventstore: commit: %w", err)
	}
	return nil
}

// Observer returns a chain observer that records every receipt.
func (s *Store) Observer() chain.Observer {
	return func(r *chain.Receipt) {
		if err := s.Record(context.Background(), r); err != nil {
			log.Error("Failed to index receipt", "tx", r.ID, "err", err)
		}
	}
}

// Filter narrows an event query. Zero values match everything.
type Filter struct {
	Emitter   common.Address
	Name      string
	FromBlock uint64
	ToBlock   uint64
	Limit     int
}

// Record is one stored event.
type Record struct {
	TxID     string            `json:"tx_id"`
	Block    uint64            `json:"block"`
	LogIndex int               `json:"log_index"`
	Time     time.Time         `json:"time"`
	Emitter  common.Address    `json:"emitter"`
	Name     string            `json:"name"`
	Args     map[string]string `json:"args"`
}

// Events returns the stored events matching f in chain order.
func (s *Store) Events(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Emitter != (common.Address{}) {
		where = append(where, "emitter = ?")
		args = append(args, f.Emitter.Hex())
	}
	if f.Name != "" {
		where = append(where, "name = ?")
		args = append(args, f.Name)
	}
	if f.FromBlock > 0 {
		where = append(where, "block >= ?")
		args = append(args, int64(f.FromBlock))
	}
	if f.ToBlock > 0 {
		where = append(where, "block <= ?")
		args = append(args, int64(f.ToBlock))
	}

	q := "SELECT receipt_id, block, log_index, time, emitter, name, args FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY block, log_index"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec            Record
			block, ts      int64
			emitter, rawKV string
		)
		if err := rows.Scan(&rec.TxID, &block, &rec.LogIndex, &ts, &emitter, &rec.Name, &rawKV); err != nil {
			return nil, fmt.Errorf("eventstore: scan event: %w", err)
		}
		rec.Block = uint64(block)
		rec.Time = time.Unix(ts, 0).UTC()
		rec.Emitter = common.HexToAddress(emitter)
		if err := json.Unmarshal([]byte(rawKV), &rec.Args); err != nil {
			return nil, fmt.Errorf("eventstore: decode args: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarizes the receipts stored for one target.
type Stats struct {
	Receipts int            `json:"receipts"`
	GasUsed  uint64         `json:"gas_used"`
	ByStatus map[string]int `json:"by_status"`
}

// Stats aggregates receipts sent to target. A zero target covers all.
func (s *Store) Stats(ctx context.Context, target common.Address) (Stats, error) {
	q := "SELECT status, COUNT(*), COALESCE(SUM(gas_used), 0) FROM receipts"
	var args []any
	if target != (common.Address{}) {
		q += " WHERE target = ?"
		args = append(args, target.Hex())
	}
	q += " GROUP BY status"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("eventstore: query stats: %w", err)
	}
	defer rows.Close()

	st := Stats{ByStatus: make(map[string]int)}
	for rows.Next() {
		var (
			status string
			n      int
			gas    int64
		)
		if err := rows.Scan(&status, &n, &gas); err != nil {
			return Stats{}, fmt.Errorf("eventstore: scan stats: %w", err)
		}
		st.ByStatus[status] = n
		st.Receipts += n
		st.GasUsed += uint64(gas)
	}
	return st, rows.Err()
}
