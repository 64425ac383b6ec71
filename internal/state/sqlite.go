package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Fixed-width so that lexical order is chronological order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Config configures the SQLite store.
type Config struct {
	// Path to the database file; DefaultPath() when empty.
	Path string
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// Open creates the database directory if needed, applies pragmas and runs
// migrations.
func Open(cfg Config) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("state: resolve data dir: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("state: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}
	// one connection serializes writers; background persistence is low volume
	db.SetMaxOpenConns(1)

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("state: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id       TEXT PRIMARY KEY,
			ts       TEXT NOT NULL,
			type     TEXT NOT NULL,
			data     TEXT NOT NULL,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_type_ts ON snapshots(type, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id          TEXT PRIMARY KEY,
			ts          TEXT NOT NULL,
			type        TEXT NOT NULL,
			description TEXT NOT NULL,
			context     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type_ts ON activities(type, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_ts ON activities(ts)`,
		`CREATE TABLE IF NOT EXISTS git_states (
			id          TEXT PRIMARY KEY,
			ts          TEXT NOT NULL,
			branch      TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			status      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_git_states_branch_ts ON git_states(branch, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_git_states_ts ON git_states(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// guard holds the read lock for the duration of an operation so Close
// waits for in-flight calls.
func (s *SQLiteStore) guard() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, rec SnapshotRecord) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	stamp(&rec.ID, &rec.Timestamp)
	data := rec.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	meta, err := encodeJSON(rec.Metadata)
	if err != nil {
		return fmt.Errorf("state: encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, ts, type, data, metadata) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Format(tsLayout), rec.Type, string(data), meta)
	if err != nil {
		return fmt.Errorf("state: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveActivity(ctx context.Context, rec ActivityRecord) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	stamp(&rec.ID, &rec.Timestamp)
	actx, err := encodeJSON(rec.Context)
	if err != nil {
		return fmt.Errorf("state: encode activity context: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activities (id, ts, type, description, context) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Format(tsLayout), rec.Type, rec.Description, actx)
	if err != nil {
		return fmt.Errorf("state: save activity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveGitState(ctx context.Context, rec GitStateRecord) error {
	release, err := s.guard()
	if err != nil {
		return err
	}
	defer release()

	stamp(&rec.ID, &rec.Timestamp)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO git_states (id, ts, branch, commit_hash, status) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.Format(tsLayout), rec.Branch, rec.CommitHash, rec.Status)
	if err != nil {
		return fmt.Errorf("state: save git state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentSnapshots(ctx context.Context, typ string, limit int) ([]SnapshotRecord, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, type, data, metadata FROM snapshots
		 WHERE (? = '' OR type = ?) ORDER BY ts DESC LIMIT ?`,
		typ, typ, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("state: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var (
			rec      SnapshotRecord
			ts, data string
			meta     sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Type, &data, &meta); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(tsLayout, ts)
		rec.Data = json.RawMessage(data)
		if err := decodeJSON(meta, &rec.Metadata); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentActivities(ctx context.Context, typ string, limit int) ([]ActivityRecord, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, type, description, context FROM activities
		 WHERE (? = '' OR type = ?) ORDER BY ts DESC LIMIT ?`,
		typ, typ, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("state: query activities: %w", err)
	}
	defer rows.Close()

	var out []ActivityRecord
	for rows.Next() {
		var (
			rec  ActivityRecord
			ts   string
			actx sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Type, &rec.Description, &actx); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(tsLayout, ts)
		if err := decodeJSON(actx, &rec.Context); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecentGitStates(ctx context.Context, branch string, limit int) ([]GitStateRecord, error) {
	release, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, branch, commit_hash, status FROM git_states
		 WHERE (? = '' OR branch = ?) ORDER BY ts DESC LIMIT ?`,
		branch, branch, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("state: query git states: %w", err)
	}
	defer rows.Close()

	var out []GitStateRecord
	for rows.Next() {
		var (
			rec GitStateRecord
			ts  string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Branch, &rec.CommitHash, &rec.Status); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = time.Parse(tsLayout, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune runs the three deletes in one transaction.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	release, err := s.guard()
	if err != nil {
		return 0, err
	}
	defer release()

	cutoff := time.Now().Add(-olderThan).UTC().Format(tsLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("state: prune: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	for _, table := range []string{"snapshots", "activities", "git_states"} {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE ts < ?", cutoff)
		if err != nil {
			return 0, fmt.Errorf("state: prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("state: prune commit: %w", err)
	}
	return total, nil
}

func encodeJSON(v map[string]any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(s sql.NullString, dst *map[string]any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}
