package config

import (
	"path/filepath"
	"strings"
)

// ResolveRelative anchors value at base unless it is already absolute.
func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// ResolvePaths makes every path-valued setting absolute against cwd.
func ResolvePaths(cfg *Config, cwd string) {
	cfg.Introspect.CacheDir = ResolveRelative(cwd, cfg.Introspect.CacheDir)
	cfg.Cache.SQLiteFile = ResolveRelative(cfg.Introspect.CacheDir, cfg.Cache.SQLiteFile)
	for i, p := range cfg.Introspect.SearchPaths {
		cfg.Introspect.SearchPaths[i] = ResolveRelative(cwd, p)
	}
}
