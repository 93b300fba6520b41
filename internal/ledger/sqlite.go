package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS operations (
		account INTEGER NOT NULL,
		instrument TEXT NOT NULL,
		op TEXT NOT NULL,
		size REAL NOT NULL,
		progress BLOB,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (account, instrument, op)
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		instrument TEXT NOT NULL,
		title TEXT NOT NULL,
		amount REAL NOT NULL,
		ts TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Begin(ctx context.Context, op Operation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (account, instrument, op, size, progress, updated_at) VALUES (?, ?, ?, ?, NULL, ?)
		 ON CONFLICT(account, instrument, op) DO UPDATE SET size = excluded.size, updated_at = excluded.updated_at`,
		op.Account, op.Instrument, op.Op, op.Size, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, op Operation, progress Progress) error {
	blob, err := msgpack.Marshal(progress)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE operations SET size = ?, progress = ?, updated_at = ? WHERE account = ? AND instrument = ? AND op = ?`,
		progress.TargetRemaining, blob, time.Now().UTC().Format(time.RFC3339Nano),
		op.Account, op.Instrument, op.Op)
	return err
}

func (s *SQLiteStore) End(ctx context.Context, op Operation) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM operations WHERE account = ? AND instrument = ? AND op = ?`,
		op.Account, op.Instrument, op.Op)
	return err
}

func (s *SQLiteStore) Settle(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, line := range lines {
		ts := line.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger (account, instrument, title, amount, ts) VALUES (?, ?, ?, ?, ?)`,
			line.Account, line.Instrument, line.Title, line.Amount, ts.Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// PendingOperation is what a crashed session left behind; surfaced by
// cmd/verify, never consumed by the engine.
type PendingOperation struct {
	Operation
	Progress    *Progress
	HasProgress bool
}

func (s *SQLiteStore) PendingOperations(ctx context.Context) ([]PendingOperation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account, instrument, op, size, progress FROM operations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingOperation
	for rows.Next() {
		var pending PendingOperation
		var blob []byte
		if err := rows.Scan(&pending.Account, &pending.Instrument, &pending.Op, &pending.Size, &blob); err != nil {
			return nil, err
		}
		if len(blob) > 0 {
			var progress Progress
			if err := msgpack.Unmarshal(blob, &progress); err == nil {
				pending.Progress = &progress
				pending.HasProgress = true
			}
		}
		out = append(out, pending)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
