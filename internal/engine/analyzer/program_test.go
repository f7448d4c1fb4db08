package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tsintrospect/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeSource(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := NewProgram(Options{}).AnalyzeSource(context.Background(), "input.ts", []byte(src))
	require.NoError(t, err)
	return mod
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestAnalyzeSource_FunctionSignatureWithDocs(t *testing.T) {
	mod := analyzeSource(t, `
/** Add two numbers */
export function add(a: number, b: number): number;
`)
	require.Equal(t, []string{"add"}, mod.ExportNames())

	decl := mod.Export("add").Declarations[0]
	assert.Equal(t, DeclFunction, decl.Kind)
	assert.Equal(t, []Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}}, decl.Params)
	assert.Equal(t, "number", decl.ReturnType)
	assert.Equal(t, "Add two numbers", Summary(decl.Docs))
	assert.True(t, decl.Documentable)
	assert.Equal(t, "export function add(a: number, b: number): number;", decl.Head())
}

func TestAnalyzeSource_IgnoresNonExported(t *testing.T) {
	mod := analyzeSource(t, `
function hidden(): void {}
export function visible(): void {}
`)
	assert.Equal(t, []string{"visible"}, mod.ExportNames())
	decl := mod.Export("visible").Declarations[0]
	assert.Equal(t, "export function visible(): void ", decl.Head())
}

func TestAnalyzeSource_TypeAliasAndConst(t *testing.T) {
	mod := analyzeSource(t, `
export type ID = string;
export const VERSION = "1.0.0";
export let count = 3;
`)
	require.Equal(t, []string{"ID", "VERSION", "count"}, mod.ExportNames())

	id := mod.Export("ID").Declarations[0]
	assert.Equal(t, DeclTypeAlias, id.Kind)
	assert.Equal(t, "string", id.AliasedType)

	version := mod.Export("VERSION").Declarations[0]
	assert.Equal(t, DeclVariable, version.Kind)
	assert.Equal(t, "const", version.VarKeyword)
	assert.Equal(t, `"1.0.0"`, version.InferredType)
	assert.False(t, version.Documentable)

	assert.Equal(t, "number", mod.Export("count").Declarations[0].InferredType)
}

func TestAnalyzeSource_ClassHeritage(t *testing.T) {
	mod := analyzeSource(t, `
/** A widget. */
export class Widget extends Base<string> implements Thing {
  render() { return 1; }
}
export abstract class Shape {}
`)
	require.Equal(t, []string{"Widget", "Shape"}, mod.ExportNames())

	widget := mod.Export("Widget").Declarations[0]
	assert.Equal(t, DeclClass, widget.Kind)
	assert.Equal(t, "extends Base<string>", widget.Extends)
	assert.Equal(t, "A widget.", Summary(widget.Docs))

	shape := mod.Export("Shape").Declarations[0]
	assert.Equal(t, DeclClass, shape.Kind)
	assert.Empty(t, shape.Extends)
}

func TestAnalyzeSource_ExportClauseResolvesLocals(t *testing.T) {
	mod := analyzeSource(t, `
/** Internal helper. */
function helper(x: string): string { return x; }
const limit = 10;
export { helper as publicHelper, limit };
export default helper;
`)
	assert.Equal(t, []string{"publicHelper", "limit", "default"}, mod.ExportNames())

	decl := mod.Export("publicHelper").Declarations[0]
	assert.Equal(t, DeclFunction, decl.Kind)
	assert.Equal(t, "helper", decl.Name)
	assert.Equal(t, "Internal helper.", Summary(decl.Docs))
}

func TestAnalyzeSource_OverloadsMergeInOrder(t *testing.T) {
	mod := analyzeSource(t, `
/** first */
export function parse(input: string): number;
/** second */
export function parse(input: Buffer): number;
`)
	sym := mod.Export("parse")
	require.NotNil(t, sym)
	require.Len(t, sym.Declarations, 2)
	assert.Equal(t, "first", Summary(sym.Declarations[0].Docs))
}

func TestAnalyzeSource_UnfollowedReexportFallsBack(t *testing.T) {
	mod := analyzeSource(t, `export { thing } from "./elsewhere";`)
	sym := mod.Export("thing")
	require.NotNil(t, sym)
	assert.Equal(t, DeclExportSpecifier, sym.Declarations[0].Kind)
	assert.Equal(t, "./elsewhere", sym.Declarations[0].Source)
}

func TestAnalyzeSource_ExportAssignmentNamespace(t *testing.T) {
	mod := analyzeSource(t, `
declare namespace lib {
  function helper(x: string): number;
  const version: string;
}
export = lib;
`)
	assert.Equal(t, []string{"helper", "version"}, mod.ExportNames())
	assert.Equal(t, "string", mod.Export("version").Declarations[0].TypeAnnotation)
}

func TestAnalyzeSource_SyntaxErrorsAreDiagnostics(t *testing.T) {
	mod := analyzeSource(t, `
export function ok(): void;
export function broken(: ;
`)
	assert.NotEmpty(t, mod.Diagnostics)
	assert.NotNil(t, mod.Export("ok"))
}

func TestAnalyzeFile_FollowsRelativeReexports(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.d.ts": `
export * from './a';
export { b as c } from './b.js';
export declare function local(): void;
`,
		"a.d.ts": `
/** from a */
export declare function a(): void;
export declare function local(): string;
export default function ignored(): void;
`,
		"b.d.ts": `export declare const b: number;`,
	})

	mod, err := NewProgram(Options{}).AnalyzeFile(context.Background(), filepath.Join(dir, "index.d.ts"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "local", "a"}, mod.ExportNames())

	assert.Equal(t, "from a", Summary(mod.Export("a").Declarations[0].Docs))
	assert.Equal(t, "b", mod.Export("c").Declarations[0].Name)
	assert.Equal(t, "void", mod.Export("local").Declarations[0].ReturnType, "explicit exports shadow star exports")
}

func TestAnalyzeFile_ImportThenExport(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.d.ts":     `import { Options } from './types/index';` + "\n" + `export { Options };`,
		"types/index.ts": `export type Options = { verbose: boolean };`,
	})

	mod, err := NewProgram(Options{}).AnalyzeFile(context.Background(), filepath.Join(dir, "index.d.ts"))
	require.NoError(t, err)
	decl := mod.Export("Options").Declarations[0]
	assert.Equal(t, DeclTypeAlias, decl.Kind)
	assert.Equal(t, "{ verbose: boolean }", decl.AliasedType)
}

func TestAnalyzeFile_StarExportCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.d.ts": "export * from './b';\nexport declare const a: number;",
		"b.d.ts": "export * from './a';\nexport declare const b: string;",
	})

	mod, err := NewProgram(Options{}).AnalyzeFile(context.Background(), filepath.Join(dir, "a.d.ts"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, mod.ExportNames())
}

func TestAnalyzeFile_BareSpecifierUsesResolver(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.d.ts":      `export * from 'dep';`,
		"vendor/dep.d.ts": `export declare class Client {}`,
	})
	var asked string
	resolver := ModuleResolverFunc(func(spec, from string) (string, bool) {
		asked = spec
		return filepath.Join(dir, "vendor", "dep.d.ts"), spec == "dep"
	})

	mod, err := NewProgram(Options{Resolver: resolver}).AnalyzeFile(context.Background(), filepath.Join(dir, "index.d.ts"))
	require.NoError(t, err)
	assert.Equal(t, "dep", asked)
	assert.Equal(t, []string{"Client"}, mod.ExportNames())
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	_, err := NewProgram(Options{}).AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "nope.d.ts"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestAnalyzeFile_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.d.ts": "export declare const x: number;"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProgram(Options{}).AnalyzeFile(ctx, filepath.Join(dir, "index.d.ts"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeSource_JavaScriptNeedsAllowJS(t *testing.T) {
	_, err := NewProgram(Options{}).AnalyzeSource(context.Background(), "lib.js", []byte("export const x = 1;"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))

	mod, err := NewProgram(Options{AllowJS: true}).AnalyzeSource(context.Background(), "lib.js", []byte("export const x = 1;"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, mod.ExportNames())
}
