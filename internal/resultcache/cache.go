package resultcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
)

// FileName is the database file created inside the cache directory.
const FileName = "results.apispec.db"

// Store is a result cache backed by SQLite. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating when needed) the cache database in dir.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	ctxlog.Component(ctx, "resultcache").Debug("Result cache opened.", "path", path)
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS results (
		key        TEXT PRIMARY KEY,
		command    TEXT NOT NULL,
		issues     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	return err
}

// Key builds a cache key. contents are the bytes of every file the result
// depends on, in a stable order.
func Key(version, fingerprint, command string, contents ...[]byte) string {
	h := sha256.New()
	for _, part := range []string{version, fingerprint, command} {
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	for _, c := range contents {
		fmt.Fprintf(h, "%d:", len(c))
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached issues for key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (issue.List, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT issues FROM results WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var issues issue.List
	if err := json.Unmarshal([]byte(raw), &issues); err != nil {
		return nil, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return issues, true, nil
}

// Put stores the issues for key, replacing an older entry.
func (s *Store) Put(ctx context.Context, key, command string, issues issue.List) error {
	if issues == nil {
		issues = issue.List{}
	}
	raw, err := json.Marshal(issues)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO results (key, command, issues, created_at) VALUES (?, ?, ?, ?)",
		key, command, string(raw), s.now().UnixNano(),
	)
	return err
}

// Prune deletes entries older than maxAge and returns how many went.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixNano()
	res, err := s.db.ExecContext(ctx, "DELETE FROM results WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	ctxlog.Component(ctx, "resultcache").Debug("Result cache pruned.", "removed", n)
	return n, nil
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n)
	return n, err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
