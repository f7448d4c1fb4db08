package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvLogger receives a line for every applied override.
var EnvLogger = slog.New(slog.DiscardHandler)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: TSINTROSPECT_[SECTION]_[KEY] (e.g., TSINTROSPECT_CACHE_BACKEND).
func ApplyEnvOverrides(cfg *Config) {
	setEnvList(&cfg.Introspect.SearchPaths, "TSINTROSPECT_INTROSPECT_SEARCH_PATHS")
	setEnvBool(&cfg.Introspect.Cache, "TSINTROSPECT_INTROSPECT_CACHE")
	setEnvString(&cfg.Introspect.CacheDir, "TSINTROSPECT_INTROSPECT_CACHE_DIR")
	setEnvInt(&cfg.Introspect.Limit, "TSINTROSPECT_INTROSPECT_LIMIT")

	setEnvString(&cfg.Cache.Backend, "TSINTROSPECT_CACHE_BACKEND")
	setEnvString(&cfg.Cache.SQLiteFile, "TSINTROSPECT_CACHE_SQLITE_FILE")

	setEnvBool(&cfg.Analyzer.AllowJS, "TSINTROSPECT_ANALYZER_ALLOW_JS")
	setEnvInt(&cfg.Analyzer.ParseCacheSize, "TSINTROSPECT_ANALYZER_PARSE_CACHE_SIZE")

	setEnvString(&cfg.Log.Level, "TSINTROSPECT_LOG_LEVEL")

	setEnvInt(&cfg.Server.RequestsPerMinute, "TSINTROSPECT_SERVER_REQUESTS_PER_MINUTE")
	setEnvInt(&cfg.Server.Burst, "TSINTROSPECT_SERVER_BURST")

	setEnvDuration(&cfg.Watch.Debounce, "TSINTROSPECT_WATCH_DEBOUNCE")

	setEnvString(&cfg.Observability.MetricsAddr, "TSINTROSPECT_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "TSINTROSPECT_OBSERVABILITY_OTLP_ENDPOINT")
}

func applied(key, val string) {
	EnvLogger.Info("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		applied(key, val)
		*target = val
	}
}

// setEnvList splits on the OS path list separator, like NODE_PATH.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		applied(key, val)
		var out []string
		for _, part := range strings.Split(val, string(os.PathListSeparator)) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			applied(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			applied(key, val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			applied(key, val)
			*target = d
		}
	}
}
