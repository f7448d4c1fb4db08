package config

import (
	"os"
	"strings"
	"time"

	"tsintrospect/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load decodes a TOML config, fills defaults, applies TSINTROSPECT_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	return finish(&cfg)
}

// LoadOptional behaves like Load but falls back to Default when path does
// not exist. An empty path means the default file name in the working dir.
func LoadOptional(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFileName
	}
	cfg, err := Load(path)
	if err != nil && !explicit && errors.IsCode(err, errors.CodeNotFound) {
		return finish(&Config{})
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Introspect.CacheDir) == "" {
		cfg.Introspect.CacheDir = DefaultCacheDir
	}
	if strings.TrimSpace(cfg.Cache.Backend) == "" {
		cfg.Cache.Backend = BackendJSON
	}
	if strings.TrimSpace(cfg.Cache.SQLiteFile) == "" {
		cfg.Cache.SQLiteFile = "exports.db"
	}
	if cfg.Analyzer.ParseCacheSize <= 0 {
		cfg.Analyzer.ParseCacheSize = 256
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "off"
	}
	if cfg.Server.RequestsPerMinute == 0 {
		cfg.Server.RequestsPerMinute = 120
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 10
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Exclude) == 0 {
		cfg.Watch.Exclude = []string{"**/node_modules/**", "**/.git/**", "**/" + DefaultCacheDir + "/**"}
	}
}
