package project

import (
	"os"
	"path/filepath"
	"strings"

	"tsintrospect/internal/core/errors"
)

const ConfigFileName = "tsconfig.json"

// Location is a project root paired with the tsconfig that governs it.
type Location struct {
	Root       string
	ConfigPath string
}

// Locate picks the project to introspect. An explicit projectPath wins and
// contributes its tsconfig.json when one exists. Otherwise the parent of
// cwd is probed before cwd itself, since the tool usually runs from a
// tooling subdirectory. An explicit tsconfigPath always overrides the config
// and supplies the root when none was found.
func Locate(projectPath, tsconfigPath, cwd string) (Location, error) {
	var loc Location
	if strings.TrimSpace(projectPath) != "" {
		loc.Root = resolveRelative(cwd, projectPath)
		if candidate := filepath.Join(loc.Root, ConfigFileName); isFile(candidate) {
			loc.ConfigPath = candidate
		}
	} else {
		for _, dir := range []string{filepath.Dir(cwd), cwd} {
			if candidate := filepath.Join(dir, ConfigFileName); isFile(candidate) {
				loc.Root = dir
				loc.ConfigPath = candidate
				break
			}
		}
	}

	if strings.TrimSpace(tsconfigPath) != "" {
		loc.ConfigPath = resolveRelative(cwd, tsconfigPath)
		if loc.Root == "" {
			loc.Root = filepath.Dir(loc.ConfigPath)
		}
	}

	if loc.Root == "" || loc.ConfigPath == "" {
		return Location{}, errors.New(errors.CodeInvalidProject,
			"could not determine project root or find tsconfig.json; specify the project path or tsconfig path explicitly")
	}
	if !isFile(loc.ConfigPath) {
		return Location{}, errors.AddContext(errors.New(errors.CodeInvalidProject, "tsconfig not found"), errors.CtxPath, loc.ConfigPath)
	}
	return loc, nil
}

func resolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
