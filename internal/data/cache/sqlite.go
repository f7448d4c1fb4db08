package cache

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tsintrospect/internal/core/model"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// SQLiteStore keeps every entry in one database file. Payloads use the same
// JSON encoding as FileStore.
type SQLiteStore struct {
	path   string
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache database path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache database path %q is a directory, expected file", cleanPath)
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// busy_timeout + WAL let concurrent CLI invocations share the file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &SQLiteStore{path: cleanPath, db: db, logger: logger}, nil
}

func (s *SQLiteStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(key string) ([]model.ExportRecord, bool) {
	if err := validateKey(key); err != nil {
		s.logger.Warn("invalid cache key", "key", key, "error", err)
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.withRetry("load cache entry", func() error {
		return s.db.QueryRow(`SELECT payload FROM export_cache WHERE cache_key = ?`, key).Scan(&payload)
	})
	if err != nil {
		if !stderrors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to read cache entry", "key", key, "error", err)
		}
		return nil, false
	}
	records, err := decode([]byte(payload))
	if err != nil {
		s.logger.Warn("corrupt cache entry", "key", key, "error", err)
		return nil, false
	}
	return records, true
}

func (s *SQLiteStore) Save(key string, records []model.ExportRecord) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encode(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save cache entry", func() error {
		_, err := s.db.Exec(`
INSERT INTO export_cache (cache_key, payload, record_count, updated_at_utc)
VALUES (?, ?, ?, ?)
ON CONFLICT(cache_key) DO UPDATE SET
  payload=excluded.payload,
  record_count=excluded.record_count,
  updated_at_utc=excluded.updated_at_utc
`, key, string(data), len(records), time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Delete drops one entry. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("delete cache entry", func() error {
		_, err := s.db.Exec(`DELETE FROM export_cache WHERE cache_key = ?`, key)
		return err
	})
}

func (s *SQLiteStore) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
