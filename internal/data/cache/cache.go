// # internal/data/cache/cache.go
package cache

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/model"
	"tsintrospect/internal/shared/util"
)

// DefaultDir is the cache directory used when none is configured, relative
// to the working directory.
const DefaultDir = ".tsintrospect-cache"

// Store persists full, unfiltered record lists by key. Load never fails: a
// missing or unreadable entry is a miss.
type Store interface {
	Load(key string) ([]model.ExportRecord, bool)
	Save(key string, records []model.ExportRecord) error
}

// ProjectKey derives the cache key for a project from its root and config
// path. The URL alphabet keeps the key a single path segment.
func ProjectKey(root, configPath string) string {
	return "project-" + base64.URLEncoding.EncodeToString([]byte(root+"\x00"+configPath))
}

// FileStore keeps one JSON document per key at <dir>/<key>.json.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing key. Keys may contain "/" (scoped package
// names) but never escape the cache directory.
func (s *FileStore) Path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json"), nil
}

func (s *FileStore) Load(key string) ([]model.ExportRecord, bool) {
	path, err := s.Path(key)
	if err != nil {
		s.logger.Warn("invalid cache key", "key", key, "error", err)
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read cache entry", "path", path, "error", err)
		}
		return nil, false
	}
	records, err := decode(data)
	if err != nil {
		s.logger.Warn("corrupt cache entry", "path", path, "error", err)
		return nil, false
	}
	return records, true
}

func (s *FileStore) Save(key string, records []model.ExportRecord) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	data, err := encode(records)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write cache entry"), errors.CtxPath, path)
	}
	return nil
}

// Load reads key from a file store rooted at dir.
func Load(key, dir string) ([]model.ExportRecord, bool) {
	return NewFileStore(dir, nil).Load(key)
}

// Save writes records under key to a file store rooted at dir.
func Save(key string, records []model.ExportRecord, dir string) error {
	return NewFileStore(dir, nil).Save(key, records)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New(errors.CodeValidationError, "cache key must not be empty")
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return errors.AddContext(errors.New(errors.CodeValidationError, "cache key must be relative"), "key", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return errors.AddContext(errors.New(errors.CodeValidationError, "invalid cache key segment"), "key", key)
		}
	}
	return nil
}

func encode(records []model.ExportRecord) ([]byte, error) {
	if records == nil {
		records = []model.ExportRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode cache entry")
	}
	return append(data, '\n'), nil
}

func decode(data []byte) ([]model.ExportRecord, error) {
	var records []model.ExportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		// a literal null is not a valid entry
		return nil, errors.New(errors.CodeValidationError, "cache entry is null")
	}
	return records, nil
}
