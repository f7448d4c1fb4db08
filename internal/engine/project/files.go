package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/engine/analyzer"
	"tsintrospect/internal/shared/util"

	"github.com/gobwas/glob"
)

// SourceFiles lists the files cfg governs: explicit files first, then
// include matches minus exclude matches in lexical order.
func SourceFiles(cfg *Config) ([]string, error) {
	include, err := compilePatterns(cfg.Include, false)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(cfg.Exclude, true)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	for _, f := range cfg.Files {
		p := filepath.FromSlash(f)
		if seen[p] {
			continue
		}
		if !isFile(p) {
			return nil, errors.AddContext(errors.New(errors.CodeInvalidProject, "file listed in tsconfig not found"), errors.CtxPath, p)
		}
		seen[p] = true
		out = append(out, p)
	}

	var matched []string
	for _, root := range walkRoots(cfg.Include) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			slash := filepath.ToSlash(path)
			if d.IsDir() {
				if path != root && matchAny(exclude, slash) {
					return filepath.SkipDir
				}
				return nil
			}
			if seen[path] || !analyzer.IsSourceFile(path, cfg.AllowJS) {
				return nil
			}
			if !matchAny(include, slash) || matchAny(exclude, slash) {
				return nil
			}
			seen[path] = true
			matched = append(matched, path)
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "walk project files")
		}
	}
	sort.Strings(matched)
	return append(out, dropShadowedDeclarations(matched)...), nil
}

// dropShadowedDeclarations removes x.d.ts when x.ts or x.tsx is also present.
func dropShadowedDeclarations(files []string) []string {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	out := files[:0:0]
	for _, f := range files {
		if analyzer.IsDeclarationFile(f) && strings.HasSuffix(f, ".d.ts") {
			stem := strings.TrimSuffix(f, ".d.ts")
			if present[stem+".ts"] || present[stem+".tsx"] {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func compilePatterns(patterns []string, asDirectory bool) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		p = util.NormalizePatternPath(p)
		variants := []string{p}
		if !hasWildcard(lastSegment(p)) && filepath.Ext(p) == "" {
			// a bare directory covers everything beneath it
			variants = []string{p + "/**/*"}
			if asDirectory {
				variants = append(variants, p)
			}
		}
		for _, v := range variants {
			for _, expanded := range expandGlobstar(v) {
				g, err := glob.Compile(expanded, '/')
				if err != nil {
					return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidProject, "invalid tsconfig pattern"), errors.CtxPattern, v)
				}
				out = append(out, g)
			}
		}
	}
	return out, nil
}

// expandGlobstar rewrites each "**/" into both "" and "**/" so that a
// globstar also matches zero directories.
func expandGlobstar(p string) []string {
	i := strings.Index(p, "**/")
	if i < 0 {
		return []string{p}
	}
	var out []string
	for _, rest := range expandGlobstar(p[i+3:]) {
		out = append(out, p[:i]+rest, p[:i+3]+rest)
	}
	return out
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// walkRoots returns the literal directory prefix of each include pattern,
// dropping roots nested inside another root.
func walkRoots(include []string) []string {
	var roots []string
	for _, p := range include {
		segs := strings.Split(filepath.ToSlash(p), "/")
		var lit []string
		for _, s := range segs {
			if hasWildcard(s) {
				break
			}
			lit = append(lit, s)
		}
		root := strings.Join(lit, "/")
		if len(lit) == len(segs) && filepath.Ext(root) != "" {
			root = filepath.ToSlash(filepath.Dir(filepath.FromSlash(root)))
		}
		if root == "" {
			root = "/"
		}
		roots = append(roots, filepath.FromSlash(root))
	}
	sort.Strings(roots)

	var out []string
	for _, r := range roots {
		if len(out) > 0 && util.HasPathPrefix(r, out[len(out)-1]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
