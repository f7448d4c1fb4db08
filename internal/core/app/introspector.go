package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tsintrospect/internal/core/config"
	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/model"
	"tsintrospect/internal/core/ports"
	"tsintrospect/internal/data/cache"
	"tsintrospect/internal/data/query"
	"tsintrospect/internal/engine/analyzer"
	"tsintrospect/internal/engine/extractor"
	"tsintrospect/internal/engine/project"
	"tsintrospect/internal/engine/resolver"
	"tsintrospect/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	entryPackage = "package"
	entrySource  = "source"
	entryProject = "project"
)

// Dependencies wires an Introspector. Zero values fall back to defaults:
// Config to config.Default, WorkingDir to the process working directory,
// Stores to the backend named by Config.Cache.Backend.
type Dependencies struct {
	Config     *config.Config
	Logger     *slog.Logger
	WorkingDir string
	NodePath   []string
	Stores     ports.StoreFactory
}

// Introspector runs the package, source and project entry points. Calls
// share no mutable state beyond the on-disk cache.
type Introspector struct {
	cfg      *config.Config
	logger   *slog.Logger
	cwd      string
	resolver *resolver.Resolver
	stores   ports.StoreFactory
}

var _ ports.Introspector = (*Introspector)(nil)

func New(deps Dependencies) *Introspector {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cwd := deps.WorkingDir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	in := &Introspector{
		cfg:    cfg,
		logger: logger,
		cwd:    cwd,
		resolver: resolver.New(resolver.Options{
			WorkingDir: cwd,
			NodePath:   deps.NodePath,
			Logger:     logger.With("component", "resolver"),
		}),
		stores: deps.Stores,
	}
	if in.stores == nil {
		in.stores = in.defaultStores
	}
	return in
}

// OptionsFromConfig seeds call options from the [introspect] section.
func OptionsFromConfig(cfg *config.Config) ports.IntrospectOptions {
	return ports.IntrospectOptions{
		SearchPaths: append([]string(nil), cfg.Introspect.SearchPaths...),
		Cache:       cfg.Introspect.Cache,
		CacheDir:    cfg.Introspect.CacheDir,
		Limit:       cfg.Introspect.Limit,
	}
}

// IntrospectPackage lists the public API of an installed package. A package
// that cannot be resolved, or has no declaration files, yields an empty
// list rather than an error.
func (in *Introspector) IntrospectPackage(ctx context.Context, pkg string, opts ports.IntrospectOptions) (records []model.ExportRecord, err error) {
	ctx, r := in.begin(ctx, entryPackage, attribute.String("package", pkg))
	defer func() { r.end(records, err) }()

	matcher, err := query.Compile(opts.SearchTerm)
	if err != nil {
		return nil, err
	}

	store, closeStore := in.openStore(r, opts)
	defer closeStore()
	if cached, ok := in.cached(r, store, pkg, opts); ok {
		return matcher.Apply(cached, opts.Limit), nil
	}

	loc, err := in.resolver.Resolve(pkg, in.searchRoots(opts.SearchPaths))
	if err != nil {
		r.logger.Info("package not resolved", "package", pkg, "error", err)
		r.outcome = "empty"
		return []model.ExportRecord{}, nil
	}
	r.logger.Debug("package resolved", "manifest", loc.ManifestPath, "dir", loc.PackageDir)

	files, err := in.resolver.FindDeclarationFiles(loc)
	if err != nil {
		r.logger.Info("no declaration files", "package", pkg, "error", err)
		r.outcome = "empty"
		return []model.ExportRecord{}, nil
	}

	all, err := in.extractFiles(ctx, r, files, in.cfg.Analyzer.AllowJS)
	if err != nil {
		return nil, err
	}
	in.save(r, store, pkg, all)
	return matcher.Apply(all, opts.Limit), nil
}

// IntrospectSource lists the exports of an in-memory snippet. Nothing is
// resolved, cached or filtered.
func (in *Introspector) IntrospectSource(ctx context.Context, src string) (records []model.ExportRecord, err error) {
	ctx, r := in.begin(ctx, entrySource)
	defer func() { r.end(records, err) }()

	program := in.newProgram(false)
	started := time.Now()
	mod, err := program.AnalyzeSource(ctx, "", []byte(src))
	if err != nil {
		return nil, err
	}
	observability.ParsingDuration.WithLabelValues(string(mod.Grammar)).Observe(time.Since(started).Seconds())
	observability.FilesAnalyzedTotal.Inc()
	logDiagnostics(r.logger, mod)

	return extractor.New(extractor.StyleSynthesized, r.logger).Extract(mod), nil
}

// IntrospectProject lists the exports of every file a tsconfig governs.
// Unlike the package entry point, a project that cannot be located is an
// error.
func (in *Introspector) IntrospectProject(ctx context.Context, opts ports.ProjectOptions) (records []model.ExportRecord, err error) {
	ctx, r := in.begin(ctx, entryProject)
	defer func() { r.end(records, err) }()

	matcher, err := query.Compile(opts.SearchTerm)
	if err != nil {
		return nil, err
	}

	loc, err := project.Locate(opts.ProjectPath, opts.TSConfigPath, in.cwd)
	if err != nil {
		return nil, err
	}
	r.span.SetAttributes(attribute.String("project.root", loc.Root))
	r.logger.Debug("project located", "root", loc.Root, "tsconfig", loc.ConfigPath)

	key := cache.ProjectKey(loc.Root, loc.ConfigPath)
	store, closeStore := in.openStore(r, opts.IntrospectOptions)
	defer closeStore()
	if cached, ok := in.cached(r, store, key, opts.IntrospectOptions); ok {
		return matcher.Apply(cached, opts.Limit), nil
	}

	tsconfig, err := project.LoadConfig(loc.ConfigPath)
	if err != nil {
		return nil, err
	}
	files, err := project.SourceFiles(tsconfig)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("project files", "count", len(files))

	all, err := in.extractFiles(ctx, r, files, tsconfig.AllowJS || in.cfg.Analyzer.AllowJS)
	if err != nil {
		return nil, err
	}
	in.save(r, store, key, all)
	return matcher.Apply(all, opts.Limit), nil
}

// extractFiles analyzes files in order with one shared Program. A file that
// fails contributes nothing; only cancellation stops the loop.
func (in *Introspector) extractFiles(ctx context.Context, r *run, files []string, allowJS bool) ([]model.ExportRecord, error) {
	program := in.newProgram(allowJS)
	ex := extractor.New(extractor.StyleDeclaration, r.logger)

	var all []model.ExportRecord
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		mod, err := program.AnalyzeFile(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			observability.FileFailuresTotal.Inc()
			r.logger.Warn("file analysis failed", "path", file, "error", err)
			continue
		}
		observability.ParsingDuration.WithLabelValues(string(mod.Grammar)).Observe(time.Since(started).Seconds())
		observability.FilesAnalyzedTotal.Inc()
		logDiagnostics(r.logger, mod)
		all = append(all, ex.Extract(mod)...)
	}
	return model.Dedupe(all), nil
}

func (in *Introspector) newProgram(allowJS bool) *analyzer.Program {
	return analyzer.NewProgram(analyzer.Options{
		AllowJS:        allowJS,
		ParseCacheSize: in.cfg.Analyzer.ParseCacheSize,
		Resolver:       in.resolver,
		Logger:         in.logger.With("component", "analyzer"),
	})
}

// searchRoots resolves relative search paths against the working directory.
func (in *Introspector) searchRoots(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, config.ResolveRelative(in.cwd, p))
	}
	return out
}

func logDiagnostics(logger *slog.Logger, mod *analyzer.Module) {
	for _, d := range mod.Diagnostics {
		logger.Debug("syntax diagnostic", "path", mod.Path, "line", d.Location.Line, "message", d.Message)
	}
}

// run carries per-call telemetry.
type run struct {
	entry   string
	logger  *slog.Logger
	span    trace.Span
	started time.Time
	outcome string
}

func (in *Introspector) begin(ctx context.Context, entry string, attrs ...attribute.KeyValue) (context.Context, *run) {
	id := uuid.NewString()
	attrs = append(attrs, attribute.String("run.id", id))
	ctx, span := observability.Tracer.Start(ctx, "introspector."+entry, trace.WithAttributes(attrs...))
	return ctx, &run{
		entry:   entry,
		logger:  in.logger.With("run_id", id, "entry", entry),
		span:    span,
		started: time.Now(),
		outcome: "ok",
	}
}

func (r *run) end(records []model.ExportRecord, err error) {
	defer r.span.End()
	if err != nil {
		r.outcome = "error"
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
		r.logger.Debug("introspection failed", "code", errors.CodeOf(err), "error", err)
	} else {
		observability.ExportsEmittedTotal.Add(float64(len(records)))
		r.span.SetAttributes(attribute.Int("records", len(records)))
		r.logger.Debug("introspection finished", "records", len(records), "outcome", r.outcome)
	}
	observability.IntrospectionsTotal.WithLabelValues(r.entry, r.outcome).Inc()
	observability.IntrospectionDuration.WithLabelValues(r.entry).Observe(time.Since(r.started).Seconds())
}

// CacheDir resolves the effective cache directory for opts.
func (in *Introspector) CacheDir(opts ports.IntrospectOptions) string {
	dir := strings.TrimSpace(opts.CacheDir)
	if dir == "" {
		dir = cache.DefaultDir
	}
	return filepath.Clean(config.ResolveRelative(in.cwd, dir))
}
