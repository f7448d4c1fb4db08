package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"tsintrospect/internal/core/errors"

	"github.com/tailscale/hujson"
)

var defaultExcludes = []string{"node_modules", "bower_components", "jspm_packages"}

// Config is a tsconfig with its extends chain applied. Patterns and paths
// are absolute, anchored at the config file that declared them.
type Config struct {
	Path    string
	Dir     string
	Files   []string
	Include []string
	Exclude []string
	AllowJS bool
	OutDir  string
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	Files           *[]string       `json:"files"`
	Include         *[]string       `json:"include"`
	Exclude         *[]string       `json:"exclude"`
	CompilerOptions struct {
		AllowJS *bool   `json:"allowJs"`
		OutDir  *string `json:"outDir"`
	} `json:"compilerOptions"`
}

// resolved carries fields along the extends chain; nil means unset.
type resolved struct {
	files   *[]string
	include *[]string
	exclude *[]string
	allowJS *bool
	outDir  *string
}

// LoadConfig reads a tsconfig (comments and trailing commas allowed) and
// follows its extends chain.
func LoadConfig(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve tsconfig path")
	}
	r, err := loadChain(abs, map[string]bool{})
	if err != nil {
		return nil, err
	}

	cfg := &Config{Path: abs, Dir: filepath.Dir(abs)}
	if r.allowJS != nil {
		cfg.AllowJS = *r.allowJS
	}
	if r.outDir != nil {
		cfg.OutDir = *r.outDir
	}
	if r.files != nil {
		cfg.Files = *r.files
	}
	switch {
	case r.include != nil:
		cfg.Include = *r.include
	case r.files == nil:
		cfg.Include = []string{filepath.ToSlash(filepath.Join(cfg.Dir, "**/*"))}
	}
	if r.exclude != nil {
		cfg.Exclude = *r.exclude
	} else {
		for _, d := range defaultExcludes {
			cfg.Exclude = append(cfg.Exclude, filepath.ToSlash(filepath.Join(cfg.Dir, d)))
		}
		if cfg.OutDir != "" {
			cfg.Exclude = append(cfg.Exclude, filepath.ToSlash(cfg.OutDir))
		}
	}
	return cfg, nil
}

func loadChain(path string, seen map[string]bool) (resolved, error) {
	if seen[path] {
		return resolved{}, errors.AddContext(errors.New(errors.CodeInvalidProject, "tsconfig extends cycle"), errors.CtxPath, path)
	}
	seen[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return resolved{}, errors.AddContext(errors.Wrap(err, errors.CodeInvalidProject, "read tsconfig"), errors.CtxPath, path)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return resolved{}, errors.AddContext(errors.Wrap(err, errors.CodeInvalidProject, "parse tsconfig"), errors.CtxPath, path)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return resolved{}, errors.AddContext(errors.Wrap(err, errors.CodeInvalidProject, "decode tsconfig"), errors.CtxPath, path)
	}

	dir := filepath.Dir(path)
	var out resolved
	for _, ext := range extendsList(raw.Extends) {
		basePath, ok := resolveExtends(ext, dir)
		if !ok {
			return resolved{}, errors.AddContext(errors.New(errors.CodeInvalidProject, "tsconfig extends target not found"), errors.CtxPath, ext)
		}
		base, err := loadChain(basePath, seen)
		if err != nil {
			return resolved{}, err
		}
		out = merge(out, base)
	}

	own := resolved{
		files:   anchor(raw.Files, dir),
		include: anchor(raw.Include, dir),
		exclude: anchor(raw.Exclude, dir),
		allowJS: raw.CompilerOptions.AllowJS,
	}
	if raw.CompilerOptions.OutDir != nil {
		outDir := filepath.Join(dir, *raw.CompilerOptions.OutDir)
		own.outDir = &outDir
	}
	return merge(out, own), nil
}

func merge(base, over resolved) resolved {
	if over.files != nil {
		base.files = over.files
	}
	if over.include != nil {
		base.include = over.include
	}
	if over.exclude != nil {
		base.exclude = over.exclude
	}
	if over.allowJS != nil {
		base.allowJS = over.allowJS
	}
	if over.outDir != nil {
		base.outDir = over.outDir
	}
	return base
}

func anchor(list *[]string, dir string) *[]string {
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(*list))
	for _, p := range *list {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		out = append(out, filepath.ToSlash(filepath.Clean(p)))
	}
	return &out
}

func extendsList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var many []string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	return nil
}

// resolveExtends finds the file an extends entry names: a path relative to
// the extending config, or a package in a node_modules folder above it.
func resolveExtends(spec, dir string) (string, bool) {
	var candidates []string
	if strings.HasPrefix(spec, ".") || filepath.IsAbs(spec) {
		base := spec
		if !filepath.IsAbs(base) {
			base = filepath.Join(dir, spec)
		}
		candidates = append(candidates, base, base+".json")
	} else {
		for d := dir; ; d = filepath.Dir(d) {
			base := filepath.Join(d, "node_modules", filepath.FromSlash(spec))
			candidates = append(candidates, base, base+".json", filepath.Join(base, ConfigFileName))
			if filepath.Dir(d) == d {
				break
			}
		}
	}
	for _, c := range candidates {
		if isFile(c) {
			return c, true
		}
	}
	return "", false
}
