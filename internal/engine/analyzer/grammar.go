package analyzer

import (
	"path/filepath"
	"strings"
	"sync"

	"tsintrospect/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

type Grammar string

const (
	GrammarTypeScript Grammar = "typescript"
	GrammarTSX        Grammar = "tsx"
	GrammarJavaScript Grammar = "javascript"
)

var (
	poolsOnce sync.Once
	pools     map[Grammar]*ParserPool
)

func poolFor(g Grammar) *ParserPool {
	poolsOnce.Do(func() {
		pools = map[Grammar]*ParserPool{
			GrammarTypeScript: NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())),
			GrammarTSX:        NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())),
			GrammarJavaScript: NewParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
		}
	})
	return pools[g]
}

// GrammarFor picks the grammar for a file name. JavaScript sources are only
// accepted when allowJS is set.
func GrammarFor(path string, allowJS bool) (Grammar, error) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".d.ts"), strings.HasSuffix(base, ".d.mts"), strings.HasSuffix(base, ".d.cts"):
		return GrammarTypeScript, nil
	}
	switch filepath.Ext(base) {
	case ".ts", ".mts", ".cts":
		return GrammarTypeScript, nil
	case ".tsx":
		return GrammarTSX, nil
	case ".js", ".mjs", ".cjs", ".jsx":
		if allowJS {
			return GrammarJavaScript, nil
		}
		return "", errors.AddContext(errors.New(errors.CodeNotSupported, "javascript sources require allowJs"), errors.CtxPath, path)
	}
	return "", errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported source file"), errors.CtxPath, path)
}

// IsSourceFile reports whether path has an extension the analyzer can parse.
func IsSourceFile(path string, allowJS bool) bool {
	_, err := GrammarFor(path, allowJS)
	return err == nil
}

// IsDeclarationFile reports whether path is a .d.ts style declaration file.
func IsDeclarationFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".d.mts") || strings.HasSuffix(base, ".d.cts")
}
