package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"iptv-catalog/work/logger"
	"iptv-catalog/work/metrics"
)

// Store is the persistent key-value store backing the content cache, the
// bounded recent/favorite lists and any other state that must survive a
// restart. Values are opaque strings; callers that need structure go through
// the JSON helpers.
//
// Per the error-handling policy, readers treat every store failure as an
// absent key and writers treat failures as best-effort: the caller's primary
// path never fails because the store did.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (creating if necessary) the SQLite database at path and ensures
// the kv table exists. WAL mode keeps concurrent readers from blocking the
// single writer.
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, logger: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if log != nil {
		log.Info("{store - Open} key-value store opened at %s", path)
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

// Get returns the value for key. A missing key, like any read error, comes
// back as ("", false).
func (s *Store) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			metrics.StoreErrors.WithLabelValues("get").Inc()
			if s.logger != nil {
				s.logger.Warn("{store - Get} read failed for %q: %v", key, err)
			}
		}
		return "", false
	}
	return value, true
}

// Set upserts the value for key, refreshing updated_at.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("set").Inc()
		if s.logger != nil {
			s.logger.Warn("{store - Set} write failed for %q: %v", key, err)
		}
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Deleting an absent key is not an error.
func (s *Store) Remove(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("remove").Inc()
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// RemovePrefix deletes every key starting with prefix.
func (s *Store) RemovePrefix(prefix string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key LIKE ? || '%'", prefix)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("remove").Inc()
		return fmt.Errorf("failed to remove keys with prefix %q: %w", prefix, err)
	}
	return nil
}

// Clear deletes every key.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM kv")
	if err != nil {
		metrics.StoreErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// GetJSON reads key and unmarshals its value into v. Any failure (missing
// key, read error, malformed payload) reports false.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		if s.logger != nil {
			s.logger.Warn("{store - GetJSON} malformed payload for %q: %v", key, err)
		}
		return false
	}
	return true
}

// SetJSON marshals v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("{store - Close} closing key-value store")
	}
	return s.db.Close()
}
