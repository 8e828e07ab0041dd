package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/domclick/dbopen"
)

// Schema creates the pending_actions table.
const Schema = `
CREATE TABLE IF NOT EXISTS pending_actions (
	key    TEXT PRIMARY KEY,
	value  TEXT NOT NULL,
	set_at INTEGER NOT NULL
);
`

// SQLite keeps the flag in a database so it survives an agent restart
// against a long-lived remote browser. Flags older than TTL read as unset
// and are deleted.
type SQLite struct {
	DB  *sql.DB
	Key string
	TTL time.Duration
	Now func() time.Time
}

// OpenSQLite opens the database at path and returns a Store for key.
func OpenSQLite(path, key string, ttl time.Duration) (*SQLite, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &SQLite{DB: db, Key: key, TTL: ttl}, nil
}

func (s *SQLite) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SQLite) Set(ctx context.Context) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO pending_actions (key, value, set_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, set_at = excluded.set_at`,
		s.Key, Sentinel, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("pending: set %s: %w", s.Key, err)
	}
	return nil
}

func (s *SQLite) IsSet(ctx context.Context) (bool, error) {
	var value string
	var setAt int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT value, set_at FROM pending_actions WHERE key = ?`, s.Key).Scan(&value, &setAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pending: read %s: %w", s.Key, err)
	}
	if value != Sentinel {
		return false, nil
	}
	if s.TTL > 0 && s.now().Sub(time.UnixMilli(setAt)) > s.TTL {
		if err := s.Clear(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := dbopen.Exec(ctx, s.DB, `DELETE FROM pending_actions WHERE key = ?`, s.Key); err != nil {
		return fmt.Errorf("pending: clear %s: %w", s.Key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.DB.Close()
}
