package analyzer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tsintrospect/internal/core/errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultParseCacheSize = 256
	maxDiagnostics        = 20
)

// ModuleResolver maps a bare module specifier, as seen from fromDir, to the
// declaration file it refers to.
type ModuleResolver interface {
	ResolveModule(specifier, fromDir string) (string, bool)
}

type ModuleResolverFunc func(specifier, fromDir string) (string, bool)

func (f ModuleResolverFunc) ResolveModule(specifier, fromDir string) (string, bool) {
	return f(specifier, fromDir)
}

type Options struct {
	AllowJS        bool
	ParseCacheSize int
	Resolver       ModuleResolver
	Logger         *slog.Logger
}

// Program analyzes a set of related files. Parsed files and resolved export
// tables are shared across calls, so a re-export target imported by many
// entry files is parsed once. Files are read once per Program; create a new
// Program to observe changes on disk.
type Program struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	parsed   *lru.Cache[string, *unit]
	exports  map[string][]*Symbol
	visiting map[string]bool
}

func NewProgram(opts Options) *Program {
	if opts.ParseCacheSize <= 0 {
		opts.ParseCacheSize = defaultParseCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// lru.New only fails for non-positive sizes.
	parsed, _ := lru.New[string, *unit](opts.ParseCacheSize)
	return &Program{
		opts:     opts,
		logger:   logger,
		parsed:   parsed,
		exports:  make(map[string][]*Symbol),
		visiting: make(map[string]bool),
	}
}

// AnalyzeFile parses path and resolves its export table, following relative
// re-exports on disk and bare specifiers through the configured resolver.
func (p *Program) AnalyzeFile(ctx context.Context, path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve source path")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.load(ctx, abs)
	if err != nil {
		return nil, err
	}
	syms, err := p.exportsOf(ctx, abs)
	if err != nil {
		return nil, err
	}
	return &Module{Path: abs, Grammar: u.grammar, Exports: syms, Diagnostics: u.diagnostics}, nil
}

// AnalyzeSource parses in-memory source. name only selects the grammar and
// labels locations; module specifiers are never followed.
func (p *Program) AnalyzeSource(ctx context.Context, name string, src []byte) (*Module, error) {
	if name == "" {
		name = "source.ts"
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, err := p.parse(name, src)
	if err != nil {
		return nil, err
	}
	syms := p.resolveScope(ctx, u.root, "", false)
	return &Module{Path: name, Grammar: u.grammar, Exports: syms, Diagnostics: u.diagnostics}, nil
}

func (p *Program) load(ctx context.Context, path string) (*unit, error) {
	if u, ok := p.parsed.Get(path); ok {
		return u, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeInternal
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read source file"), errors.CtxPath, path)
	}
	u, err := p.parse(path, src)
	if err != nil {
		return nil, err
	}
	p.parsed.Add(path, u)
	return u, nil
}

func (p *Program) parse(path string, src []byte) (*unit, error) {
	g, err := GrammarFor(path, p.opts.AllowJS)
	if err != nil {
		return nil, err
	}
	pool := poolFor(g)
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	u := &unit{path: path, src: src, grammar: g}
	u.root = newScope(IsDeclarationFile(path), false)
	u.collectScope(root, u.root)
	if root.HasError() {
		u.collectDiagnostics(root, maxDiagnostics)
		p.logger.Debug("source has syntax errors", "path", path, "diagnostics", len(u.diagnostics))
	}
	// Declarations hold copies of every string they need.
	u.src = nil
	return u, nil
}

func (p *Program) exportsOf(ctx context.Context, path string) ([]*Symbol, error) {
	if syms, ok := p.exports[path]; ok {
		return syms, nil
	}
	if p.visiting[path] {
		p.logger.Debug("re-export cycle", "path", path)
		return nil, nil
	}
	u, err := p.load(ctx, path)
	if err != nil {
		return nil, err
	}
	p.visiting[path] = true
	syms := p.resolveScope(ctx, u.root, filepath.Dir(path), true)
	delete(p.visiting, path)
	p.exports[path] = syms
	return syms, nil
}

func (p *Program) resolveScope(ctx context.Context, sc *scope, dir string, follow bool) []*Symbol {
	var out []*Symbol
	index := make(map[string]*Symbol)
	add := func(name string, decls []*Declaration) {
		if len(decls) == 0 {
			return
		}
		if s, ok := index[name]; ok {
			s.Declarations = append(s.Declarations, decls...)
			return
		}
		s := &Symbol{Name: name, Declarations: append([]*Declaration(nil), decls...)}
		index[name] = s
		out = append(out, s)
	}

	if sc.exportAssign != "" {
		decls := p.lookupLocal(ctx, sc, sc.exportAssign, dir, follow)
		var members []*Symbol
		for _, d := range decls {
			if d.Kind == DeclNamespace && d.members != nil {
				members = append(members, p.resolveScope(ctx, d.members, dir, follow)...)
			}
		}
		if len(members) == 0 {
			add(sc.exportAssign, decls)
			return out
		}
		for _, m := range members {
			add(m.Name, m.Declarations)
		}
		return out
	}

	var stars []exportEntry
	for _, e := range sc.entries {
		switch e.kind {
		case entryLocal:
			decls := p.lookupLocal(ctx, sc, e.local, dir, follow)
			if len(decls) == 0 && e.node != nil {
				decls = []*Declaration{e.node}
			}
			add(e.name, decls)
		case entryReexport:
			decls := p.lookupExport(ctx, e.source, e.imported, dir, follow)
			if len(decls) == 0 {
				decls = []*Declaration{e.node}
			}
			add(e.name, decls)
		case entryDirect, entryNamespace:
			add(e.name, e.decls)
		case entryStar:
			stars = append(stars, e)
		}
	}

	if sc.namespace && sc.ambient && !sc.hasExports {
		for _, name := range sc.order {
			add(name, sc.locals[name])
		}
	}

	for _, e := range stars {
		for _, s := range p.moduleExports(ctx, e.source, dir, follow) {
			if s.Name == "default" {
				continue
			}
			if _, ok := index[s.Name]; ok {
				continue
			}
			add(s.Name, s.Declarations)
		}
	}
	return out
}

func (p *Program) lookupLocal(ctx context.Context, sc *scope, name, dir string, follow bool) []*Declaration {
	if decls := sc.locals[name]; len(decls) > 0 {
		return decls
	}
	imp, ok := sc.imports[name]
	if !ok {
		return nil
	}
	if imp.imported == "*" {
		return []*Declaration{{Kind: DeclNamespaceExport, Name: name, Source: imp.source, BodyStart: -1}}
	}
	return p.lookupExport(ctx, imp.source, imp.imported, dir, follow)
}

func (p *Program) lookupExport(ctx context.Context, source, name, dir string, follow bool) []*Declaration {
	for _, s := range p.moduleExports(ctx, source, dir, follow) {
		if s.Name == name {
			return s.Declarations
		}
	}
	return nil
}

func (p *Program) moduleExports(ctx context.Context, source, dir string, follow bool) []*Symbol {
	if !follow {
		return nil
	}
	path, ok := p.resolveSpecifier(source, dir)
	if !ok {
		p.logger.Debug("unresolved module specifier", "specifier", source, "from", dir)
		return nil
	}
	syms, err := p.exportsOf(ctx, path)
	if err != nil {
		p.logger.Warn("failed to analyze re-export target", "path", path, "error", err)
		return nil
	}
	return syms
}

var (
	tsExtensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".d.mts", ".cts", ".d.cts"}
	jsExtensions = []string{".js", ".jsx", ".mjs", ".cjs"}
)

func (p *Program) resolveSpecifier(spec, dir string) (string, bool) {
	if !isRelativeSpecifier(spec) {
		if p.opts.Resolver == nil {
			return "", false
		}
		return p.opts.Resolver.ResolveModule(spec, dir)
	}

	base := spec
	if !filepath.IsAbs(base) {
		base = filepath.Join(dir, spec)
	}
	exts := tsExtensions
	if p.opts.AllowJS {
		exts = append(append([]string(nil), tsExtensions...), jsExtensions...)
	}

	var candidates []string
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	switch filepath.Ext(base) {
	case ".js", ".jsx":
		candidates = append(candidates, stem+".ts", stem+".tsx", stem+".d.ts")
	case ".mjs":
		candidates = append(candidates, stem+".mts", stem+".d.mts")
	case ".cjs":
		candidates = append(candidates, stem+".cts", stem+".d.cts")
	}
	if IsSourceFile(base, p.opts.AllowJS) {
		candidates = append(candidates, base)
	}
	for _, ext := range exts {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range exts {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, true
		}
	}
	return "", false
}

func isRelativeSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		filepath.IsAbs(spec)
}
