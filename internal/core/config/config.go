package config

import "time"

const (
	DefaultFileName = "tsintrospect.toml"
	DefaultCacheDir = ".tsintrospect-cache"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Version       int           `toml:"version"`
	Introspect    Introspect    `toml:"introspect"`
	Cache         Cache         `toml:"cache"`
	Analyzer      Analyzer      `toml:"analyzer"`
	Log           Log           `toml:"log"`
	Server        Server        `toml:"server"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

// Introspect holds the defaults applied to every introspection call unless
// a flag or tool argument overrides them.
type Introspect struct {
	SearchPaths []string `toml:"search_paths"`
	Cache       bool     `toml:"cache"`
	CacheDir    string   `toml:"cache_dir"`
	Limit       int      `toml:"limit"`
}

type Cache struct {
	Backend    string `toml:"backend"`
	SQLiteFile string `toml:"sqlite_file"`
}

type Analyzer struct {
	AllowJS        bool `toml:"allow_js"`
	ParseCacheSize int  `toml:"parse_cache_size"`
}

type Log struct {
	Level string `toml:"level"`
}

type Server struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	Burst             int `toml:"burst"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}
