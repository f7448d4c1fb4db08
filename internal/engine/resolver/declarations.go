package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsintrospect/internal/core/errors"
)

const defaultTypesEntry = "index.d.ts"

// EntryPath returns the declared declaration entry resolved against the
// manifest's own directory.
func EntryPath(loc PackageLocation) string {
	entry := loc.Manifest.TypesEntry()
	if entry == "" {
		entry = defaultTypesEntry
	}
	entry = strings.TrimPrefix(entry, "./")
	return filepath.Join(filepath.Dir(loc.ManifestPath), filepath.FromSlash(entry))
}

// FindDeclarationFiles returns the declaration entry when it exists.
// Otherwise every .d.ts file directly inside the directory that should have
// held the entry is returned, falling back to the package root.
func (r *Resolver) FindDeclarationFiles(loc PackageLocation) ([]string, error) {
	entry := EntryPath(loc)
	if isFile(entry) {
		r.logger.Debug("declaration entry found", "path", entry)
		return []string{entry}, nil
	}
	r.logger.Debug("declaration entry missing, scanning package", "path", entry, "package_dir", loc.PackageDir)

	dirs := []string{loc.PackageDir}
	rel, err := filepath.Rel(filepath.Dir(loc.ManifestPath), filepath.Dir(entry))
	if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		dirs = append([]string{filepath.Join(loc.PackageDir, rel)}, dirs...)
	}

	for _, dir := range dirs {
		files, err := declarationFilesIn(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read package directory"), errors.CtxPath, dir)
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	return nil, errors.AddContext(errors.New(errors.CodeNoDeclarations, "no declaration files found"), errors.CtxPath, loc.PackageDir)
}

func declarationFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".d.ts") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ResolveModule maps a bare specifier such as "zod" or "lodash/fp" to a
// declaration file, looking first in node_modules above fromDir and then
// through Resolve. Packages without declarations fall back to their
// @types counterpart.
func (r *Resolver) ResolveModule(specifier, fromDir string) (string, bool) {
	pkg, subpath := splitSpecifier(specifier)
	if !validPackageName(pkg) {
		return "", false
	}
	for _, name := range []string{pkg, typesPackageName(pkg)} {
		loc, ok := r.locateFrom(name, fromDir)
		if !ok {
			continue
		}
		if path, ok := subpathEntry(loc, subpath); ok {
			return path, true
		}
	}
	r.logger.Debug("bare specifier unresolved", "specifier", specifier, "from", fromDir)
	return "", false
}

func (r *Resolver) locateFrom(pkg, fromDir string) (PackageLocation, bool) {
	if fromDir != "" {
		for _, path := range r.hostCandidates(pkg, fromDir) {
			if isFile(path) {
				loc, err := r.locate(path)
				return loc, err == nil
			}
		}
	}
	loc, err := r.Resolve(pkg, nil)
	return loc, err == nil
}

func subpathEntry(loc PackageLocation, subpath string) (string, bool) {
	if subpath == "" {
		entry := EntryPath(loc)
		return entry, isFile(entry)
	}
	if t := loc.Manifest.ExportTypes("./" + subpath); t != "" {
		p := filepath.Join(filepath.Dir(loc.ManifestPath), filepath.FromSlash(strings.TrimPrefix(t, "./")))
		if isFile(p) {
			return p, true
		}
	}
	base := filepath.Join(filepath.Dir(loc.ManifestPath), filepath.FromSlash(subpath))
	for _, c := range []string{base + ".d.ts", filepath.Join(base, "index.d.ts"), strings.TrimSuffix(base, ".js") + ".d.ts"} {
		if isFile(c) {
			return c, true
		}
	}
	return "", false
}

func splitSpecifier(spec string) (pkg, subpath string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		pkg = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkg, subpath
	}
	pkg, subpath, _ = strings.Cut(spec, "/")
	return pkg, subpath
}

// typesPackageName maps "@scope/name" to "@types/scope__name".
func typesPackageName(pkg string) string {
	if strings.HasPrefix(pkg, "@types/") {
		return pkg
	}
	if strings.HasPrefix(pkg, "@") {
		return "@types/" + strings.Replace(pkg[1:], "/", "__", 1)
	}
	return "@types/" + pkg
}
