package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"tsintrospect/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "package.json")
	writeFile(t, path, content)
	return path
}

func realDir(t *testing.T, dir string) string {
	t.Helper()
	real, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return real
}

func TestResolve_WorkingDirectoryNodeModules(t *testing.T) {
	cwd := t.TempDir()
	manifest := writeManifest(t, filepath.Join(cwd, "node_modules", "zod"), `{"name":"zod","version":"3.22.4","types":"./index.d.ts"}`)

	loc, err := New(Options{WorkingDir: cwd}).Resolve("zod", nil)
	require.NoError(t, err)
	assert.Equal(t, manifest, loc.ManifestPath)
	assert.Equal(t, realDir(t, filepath.Dir(manifest)), loc.PackageDir)
	assert.Equal(t, "zod", loc.Manifest.Name)
	assert.Equal(t, "3.22.4", loc.Manifest.Version)
}

func TestResolve_AncestorNodeModules(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "node_modules", "lodash"), `{"name":"lodash"}`)
	cwd := filepath.Join(root, "packages", "tools")
	require.NoError(t, os.MkdirAll(cwd, 0o755))

	loc, err := New(Options{WorkingDir: cwd}).Resolve("lodash", nil)
	require.NoError(t, err)
	assert.Equal(t, "lodash", loc.Manifest.Name)
}

func TestResolve_NodePath(t *testing.T) {
	global := t.TempDir()
	writeManifest(t, filepath.Join(global, "typescript"), `{"name":"typescript"}`)

	loc, err := New(Options{WorkingDir: t.TempDir(), NodePath: []string{global}}).Resolve("typescript", nil)
	require.NoError(t, err)
	assert.Equal(t, "typescript", loc.Manifest.Name)
}

func TestResolve_WorkingDirectoryBeatsSearchRoots(t *testing.T) {
	cwd := t.TempDir()
	other := t.TempDir()
	writeManifest(t, filepath.Join(cwd, "node_modules", "dep"), `{"name":"dep","version":"1.0.0"}`)
	writeManifest(t, filepath.Join(other, "node_modules", "dep"), `{"name":"dep","version":"2.0.0"}`)

	loc, err := New(Options{WorkingDir: cwd}).Resolve("dep", []string{other})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", loc.Manifest.Version)
}

func TestResolve_SearchRootNodeModules(t *testing.T) {
	other := t.TempDir()
	writeManifest(t, filepath.Join(other, "node_modules", "dep"), `{"name":"dep","version":"2.0.0"}`)

	loc, err := New(Options{WorkingDir: t.TempDir()}).Resolve("dep", []string{other})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", loc.Manifest.Version)
}

func TestResolve_PnpmStorePrefersHighestVersion(t *testing.T) {
	root := t.TempDir()
	store := filepath.Join(root, "node_modules", ".pnpm")
	writeManifest(t, filepath.Join(store, "zod@3.9.0", "node_modules", "zod"), `{"name":"zod","version":"3.9.0"}`)
	writeManifest(t, filepath.Join(store, "zod@3.22.4", "node_modules", "zod"), `{"name":"zod","version":"3.22.4"}`)
	writeManifest(t, filepath.Join(store, "zodiac@9.0.0", "node_modules", "zodiac"), `{"name":"zodiac","version":"9.0.0"}`)

	loc, err := New(Options{WorkingDir: t.TempDir()}).Resolve("zod", []string{root})
	require.NoError(t, err)
	assert.Equal(t, "3.22.4", loc.Manifest.Version)
}

func TestResolve_PnpmScopedStoreKey(t *testing.T) {
	cwd := t.TempDir()
	store := filepath.Join(cwd, "node_modules", ".pnpm")
	writeManifest(t, filepath.Join(store, "@acme+utils@1.2.0", "node_modules", "@acme", "utils"), `{"name":"@acme/utils","version":"1.2.0"}`)

	loc, err := New(Options{WorkingDir: cwd}).Resolve("@acme/utils", nil)
	require.NoError(t, err)
	assert.Equal(t, "@acme/utils", loc.Manifest.Name)
}

func TestResolve_PnpmUnversionedStoreKey(t *testing.T) {
	cwd := t.TempDir()
	writeManifest(t, filepath.Join(cwd, "node_modules", ".pnpm", "left-pad", "node_modules", "left-pad"), `{"name":"left-pad"}`)

	loc, err := New(Options{WorkingDir: cwd}).Resolve("left-pad", nil)
	require.NoError(t, err)
	assert.Equal(t, "left-pad", loc.Manifest.Name)
}

func TestResolve_BareDirectoryFallback(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "vendored"), `{"name":"vendored"}`)

	loc, err := New(Options{WorkingDir: t.TempDir()}).Resolve("vendored", []string{root})
	require.NoError(t, err)
	assert.Equal(t, "vendored", loc.Manifest.Name)
}

func TestResolve_SymlinkedPackageUsesRealDir(t *testing.T) {
	cwd := t.TempDir()
	target := filepath.Join(cwd, "node_modules", ".pnpm", "dep@1.0.0", "node_modules", "dep")
	writeManifest(t, target, `{"name":"dep"}`)
	link := filepath.Join(cwd, "node_modules", "dep")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	loc, err := New(Options{WorkingDir: cwd}).Resolve("dep", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(link, "package.json"), loc.ManifestPath)
	assert.Equal(t, realDir(t, target), loc.PackageDir)
}

func TestResolve_NotFound(t *testing.T) {
	_, err := New(Options{WorkingDir: t.TempDir()}).Resolve("definitely-missing-pkg", []string{t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestResolve_InvalidName(t *testing.T) {
	r := New(Options{WorkingDir: t.TempDir()})
	for _, name := range []string{"", "../etc", "/abs", "@scope", "a/b", "@scope/x/y"} {
		_, err := r.Resolve(name, nil)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError), name)
	}
}

func TestFindDeclarationFiles(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		files    []string
		want     []string
	}{
		{name: "types field", manifest: `{"types":"./lib/main.d.ts"}`, files: []string{"lib/main.d.ts", "index.d.ts"}, want: []string{"lib/main.d.ts"}},
		{name: "typings field", manifest: `{"typings":"types.d.ts"}`, files: []string{"types.d.ts"}, want: []string{"types.d.ts"}},
		{name: "exports types", manifest: `{"exports":{".":{"types":"./dist/x.d.ts","import":"./dist/x.mjs"}}}`, files: []string{"dist/x.d.ts"}, want: []string{"dist/x.d.ts"}},
		{name: "nested export conditions", manifest: `{"exports":{".":{"import":{"types":"./esm/x.d.mts"}}}}`, files: []string{"esm/x.d.mts"}, want: []string{"esm/x.d.mts"}},
		{name: "default index", manifest: `{}`, files: []string{"index.d.ts", "other.d.ts"}, want: []string{"index.d.ts"}},
		{name: "missing entry scans entry directory", manifest: `{"types":"./dist/index.d.ts"}`, files: []string{"dist/b.d.ts", "dist/a.d.ts", "dist/a.js", "root.d.ts"}, want: []string{"dist/a.d.ts", "dist/b.d.ts"}},
		{name: "missing entry scans package root", manifest: `{"types":"./dist/index.d.ts"}`, files: []string{"one.d.ts", "two.d.ts"}, want: []string{"one.d.ts", "two.d.ts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			manifest := writeManifest(t, dir, tt.manifest)
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, filepath.FromSlash(f)), "export {};")
			}
			m, err := readManifest(manifest)
			require.NoError(t, err)
			loc := PackageLocation{ManifestPath: manifest, PackageDir: dir, Manifest: m}

			got, err := New(Options{WorkingDir: dir}).FindDeclarationFiles(loc)
			require.NoError(t, err)
			want := make([]string, 0, len(tt.want))
			for _, w := range tt.want {
				want = append(want, filepath.Join(dir, filepath.FromSlash(w)))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestFindDeclarationFiles_None(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir, `{"name":"empty"}`)
	writeFile(t, filepath.Join(dir, "index.js"), "module.exports = {}")

	_, err := New(Options{WorkingDir: dir}).FindDeclarationFiles(PackageLocation{ManifestPath: manifest, PackageDir: dir})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNoDeclarations))
}

func TestResolveModule(t *testing.T) {
	cwd := t.TempDir()
	writeManifest(t, filepath.Join(cwd, "node_modules", "dep"), `{"name":"dep","types":"main.d.ts","exports":{"./sub":{"types":"./sub/types.d.ts"}}}`)
	writeFile(t, filepath.Join(cwd, "node_modules", "dep", "main.d.ts"), "export {};")
	writeFile(t, filepath.Join(cwd, "node_modules", "dep", "sub", "types.d.ts"), "export {};")
	writeFile(t, filepath.Join(cwd, "node_modules", "dep", "extra.d.ts"), "export {};")
	writeManifest(t, filepath.Join(cwd, "node_modules", "untyped"), `{"name":"untyped"}`)
	writeManifest(t, filepath.Join(cwd, "node_modules", "@types", "untyped"), `{"name":"@types/untyped"}`)
	writeFile(t, filepath.Join(cwd, "node_modules", "@types", "untyped", "index.d.ts"), "export {};")

	r := New(Options{WorkingDir: cwd})
	src := filepath.Join(cwd, "src")

	path, ok := r.ResolveModule("dep", src)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cwd, "node_modules", "dep", "main.d.ts"), path)

	path, ok = r.ResolveModule("dep/sub", src)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cwd, "node_modules", "dep", "sub", "types.d.ts"), path)

	path, ok = r.ResolveModule("dep/extra", src)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cwd, "node_modules", "dep", "extra.d.ts"), path)

	path, ok = r.ResolveModule("untyped", src)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cwd, "node_modules", "@types", "untyped", "index.d.ts"), path)

	_, ok = r.ResolveModule("nowhere", src)
	assert.False(t, ok)
}

func TestSplitSpecifier(t *testing.T) {
	cases := map[string][2]string{
		"zod":                {"zod", ""},
		"lodash/fp":          {"lodash", "fp"},
		"@acme/utils":        {"@acme/utils", ""},
		"@acme/utils/deep/x": {"@acme/utils", "deep/x"},
	}
	for in, want := range cases {
		pkg, sub := splitSpecifier(in)
		assert.Equal(t, want[0], pkg, in)
		assert.Equal(t, want[1], sub, in)
	}
	assert.Equal(t, "@types/acme__utils", typesPackageName("@acme/utils"))
	assert.Equal(t, "@types/node", typesPackageName("node"))
}

func TestVersionLess(t *testing.T) {
	assert.True(t, versionLess("3.9.0", "3.22.4"))
	assert.False(t, versionLess("3.22.4", "3.9.0"))
	assert.True(t, versionLess("garbage", "0.0.1"))
	assert.Equal(t, "18.2.0", storeVersion("react-dom@18.2.0_react@18.2.0", "react-dom"))
}
