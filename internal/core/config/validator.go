package config

import (
	"strings"

	"tsintrospect/internal/core/errors"

	"github.com/gobwas/glob"
)

// Validate checks cross-field constraints after defaults are applied.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateIntrospect,
		validateCache,
		validateLog,
		validateServer,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.Newf(errors.CodeValidationError, format, args...)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateIntrospect(cfg *Config) error {
	for i, p := range cfg.Introspect.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return invalid("introspect.search_paths[%d] must not be empty", i)
		}
	}
	return nil
}

func validateCache(cfg *Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch backend {
	case BackendJSON, BackendSQLite:
		cfg.Cache.Backend = backend
	default:
		return invalid("cache.backend must be one of: json, sqlite")
	}
	return nil
}

func validateLog(cfg *Config) error {
	if _, ok := ParseLevel(cfg.Log.Level); !ok {
		return invalid("log.level must be one of: off, debug, info, warn, error")
	}
	return nil
}

func validateServer(cfg *Config) error {
	if cfg.Server.RequestsPerMinute < 0 {
		return invalid("server.requests_per_minute must be >= 0")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative")
	}
	for _, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return invalid("watch.exclude pattern %q is invalid: %v", pattern, err)
		}
	}
	return nil
}
