package ports

import (
	"context"

	"tsintrospect/internal/core/model"
)

// IntrospectOptions tunes a package or project introspection call.
type IntrospectOptions struct {
	// SearchPaths are extra roots probed after the working directory.
	SearchPaths []string
	// SearchTerm is a case-insensitive regular expression matched against
	// name, signature and description. Empty keeps every record.
	SearchTerm string
	Cache      bool
	CacheDir   string
	// Limit truncates the filtered result when positive.
	Limit int
	// Refresh skips the cache read but still writes the fresh result.
	Refresh bool
}

// ProjectOptions locates a project. Both paths are optional.
type ProjectOptions struct {
	IntrospectOptions
	ProjectPath  string
	TSConfigPath string
}

// Introspector is the driving port used by the CLI, the tool server and
// watch mode.
type Introspector interface {
	IntrospectPackage(ctx context.Context, pkg string, opts IntrospectOptions) ([]model.ExportRecord, error)
	IntrospectSource(ctx context.Context, src string) ([]model.ExportRecord, error)
	IntrospectProject(ctx context.Context, opts ProjectOptions) ([]model.ExportRecord, error)
}

// ExportStore persists unfiltered record lists by cache key.
type ExportStore interface {
	Load(key string) ([]model.ExportRecord, bool)
	Save(key string, records []model.ExportRecord) error
}

// StoreFactory opens the export store rooted at cacheDir. The returned
// close func releases it.
type StoreFactory func(cacheDir string) (ExportStore, func() error, error)

// WatchUpdate is emitted after every watch-mode run. Changed is empty for
// the initial run.
type WatchUpdate struct {
	Changed []string
	Records []model.ExportRecord
	Err     error
}
