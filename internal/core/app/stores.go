package app

import (
	"path/filepath"

	"tsintrospect/internal/core/config"
	"tsintrospect/internal/core/model"
	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/data/cache"
	"tsintrospect/internal/shared/observability"
)

func noopClose() error { return nil }

// defaultStores opens the configured backend under cacheDir.
func (in *Introspector) defaultStores(cacheDir string) (ports.ExportStore, func() error, error) {
	logger := in.logger.With("component", "cache")
	if in.cfg.Cache.Backend == config.BackendSQLite {
		path := in.cfg.Cache.SQLiteFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cacheDir, path)
		}
		store, err := cache.OpenSQLite(path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return cache.NewFileStore(cacheDir, logger), noopClose, nil
}

// openStore returns nil when caching is off or the store cannot be opened;
// cache trouble never fails a call.
func (in *Introspector) openStore(r *run, opts ports.IntrospectOptions) (ports.ExportStore, func()) {
	if !opts.Cache {
		return nil, func() {}
	}
	dir := in.CacheDir(opts)
	store, closeFn, err := in.stores(dir)
	if err != nil {
		r.logger.Warn("cache unavailable", "dir", dir, "error", err)
		return nil, func() {}
	}
	return store, func() {
		if err := closeFn(); err != nil {
			r.logger.Warn("cache close failed", "error", err)
		}
	}
}

func (in *Introspector) cached(r *run, store ports.ExportStore, key string, opts ports.IntrospectOptions) ([]model.ExportRecord, bool) {
	if store == nil || opts.Refresh {
		return nil, false
	}
	records, ok := store.Load(key)
	if !ok {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		r.logger.Debug("cache miss", "key", key)
		return nil, false
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	r.logger.Debug("cache hit", "key", key, "records", len(records))
	r.outcome = "cache_hit"
	return records, true
}

func (in *Introspector) save(r *run, store ports.ExportStore, key string, records []model.ExportRecord) {
	if store == nil {
		return
	}
	if records == nil {
		records = []model.ExportRecord{}
	}
	if err := store.Save(key, records); err != nil {
		observability.CacheWriteErrorsTotal.Inc()
		r.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
