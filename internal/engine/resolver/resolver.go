package resolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsintrospect/internal/core/errors"

	"github.com/gobwas/glob"
	"golang.org/x/mod/semver"
)

// PackageLocation is a resolved package manifest. PackageDir is the
// symlink-resolved directory holding the manifest.
type PackageLocation struct {
	ManifestPath string
	PackageDir   string
	Manifest     Manifest
}

type Options struct {
	// WorkingDir anchors host resolution and the first probe root.
	// Defaults to the process working directory.
	WorkingDir string
	// NodePath lists global module folders probed after the working
	// directory's ancestors, like NODE_PATH.
	NodePath []string
	Logger   *slog.Logger
}

type Resolver struct {
	cwd      string
	nodePath []string
	logger   *slog.Logger
}

func New(opts Options) *Resolver {
	cwd := opts.WorkingDir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{cwd: cwd, nodePath: opts.NodePath, logger: logger}
}

// NodePathFromEnv splits the NODE_PATH environment variable.
func NodePathFromEnv() []string {
	var out []string
	for _, p := range filepath.SplitList(os.Getenv("NODE_PATH")) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve locates the manifest of pkg. Host resolution runs first; then the
// working directory and searchRoots are probed in a fixed order. The first
// manifest that exists wins.
func (r *Resolver) Resolve(pkg string, searchRoots []string) (PackageLocation, error) {
	if !validPackageName(pkg) {
		return PackageLocation{}, errors.AddContext(errors.New(errors.CodeValidationError, "invalid package name"), errors.CtxPackage, pkg)
	}

	candidates := r.hostCandidates(pkg, r.cwd)
	candidates = append(candidates, r.probeCandidates(pkg, searchRoots)...)

	for _, path := range candidates {
		if !isFile(path) {
			r.logger.Debug("manifest probe miss", "package", pkg, "path", path)
			continue
		}
		r.logger.Debug("manifest found", "package", pkg, "path", path)
		return r.locate(path)
	}
	return PackageLocation{}, errors.AddContext(errors.New(errors.CodeNotFound, "package not found"), errors.CtxPackage, pkg)
}

func (r *Resolver) locate(manifestPath string) (PackageLocation, error) {
	manifestPath, err := filepath.Abs(manifestPath)
	if err != nil {
		return PackageLocation{}, errors.Wrap(err, errors.CodeInternal, "resolve manifest path")
	}
	dir := filepath.Dir(manifestPath)
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return PackageLocation{}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "resolve package directory"), errors.CtxPath, dir)
	}
	m, err := readManifest(manifestPath)
	if err != nil {
		return PackageLocation{}, err
	}
	return PackageLocation{ManifestPath: manifestPath, PackageDir: real, Manifest: m}, nil
}

// hostCandidates mirrors node's lookup: node_modules in from and each
// ancestor, then NODE_PATH folders.
func (r *Resolver) hostCandidates(pkg, from string) []string {
	var out []string
	for dir := from; ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) != "node_modules" {
			out = append(out, filepath.Join(dir, "node_modules", pkg, manifestFile))
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}
	for _, p := range r.nodePath {
		out = append(out, filepath.Join(p, pkg, manifestFile))
	}
	return out
}

func (r *Resolver) probeCandidates(pkg string, searchRoots []string) []string {
	var out []string
	roots := append([]string{r.cwd}, searchRoots...)

	for _, root := range roots {
		out = append(out, filepath.Join(root, "node_modules", pkg, manifestFile))
	}

	storeKeys := []string{pkg}
	if strings.Contains(pkg, "/") {
		storeKeys = append(storeKeys, strings.Replace(pkg, "/", "+", 1))
	}
	storeProbe := func(root string) {
		for _, key := range storeKeys {
			out = append(out, r.storeCandidates(root, key, pkg)...)
			out = append(out, filepath.Join(root, "node_modules", ".pnpm", key, "node_modules", pkg, manifestFile))
		}
	}
	storeProbe(r.cwd)
	for _, root := range searchRoots {
		storeProbe(root)
	}

	for _, root := range searchRoots {
		out = append(out, filepath.Join(root, pkg, manifestFile))
	}
	return out
}

// storeCandidates expands <root>/node_modules/.pnpm/<key>@*/node_modules/<pkg>
// with the highest version first.
func (r *Resolver) storeCandidates(root, key, pkg string) []string {
	store := filepath.Join(root, "node_modules", ".pnpm")
	entries, err := os.ReadDir(store)
	if err != nil {
		return nil
	}
	pattern, err := glob.Compile(key + "@*")
	if err != nil {
		r.logger.Debug("invalid store pattern", "key", key, "error", err)
		return nil
	}

	var matches []string
	for _, e := range entries {
		if pattern.Match(e.Name()) {
			matches = append(matches, e.Name())
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return versionLess(storeVersion(matches[j], key), storeVersion(matches[i], key))
	})

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(store, m, "node_modules", pkg, manifestFile))
	}
	return out
}

// storeVersion extracts the version from a store key such as
// "zod@3.22.4" or "react-dom@18.2.0_react@18.2.0".
func storeVersion(entry, key string) string {
	v := strings.TrimPrefix(entry, key+"@")
	if i := strings.IndexAny(v, "_("); i >= 0 {
		v = v[:i]
	}
	return v
}

// versionLess is an ascending order in which invalid versions sort lowest.
func versionLess(a, b string) bool {
	va, vb := "v"+a, "v"+b
	okA, okB := semver.IsValid(va), semver.IsValid(vb)
	switch {
	case okA && okB:
		if c := semver.Compare(va, vb); c != 0 {
			return c < 0
		}
		return a < b
	case okA != okB:
		return !okA
	default:
		return a < b
	}
}

func validPackageName(pkg string) bool {
	if pkg == "" || strings.HasPrefix(pkg, ".") || strings.HasPrefix(pkg, "/") || strings.Contains(pkg, "\\") {
		return false
	}
	for _, seg := range strings.Split(pkg, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	if strings.HasPrefix(pkg, "@") {
		return strings.Count(pkg, "/") == 1
	}
	return !strings.Contains(pkg, "/")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
