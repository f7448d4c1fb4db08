package extractor

import (
	"log/slog"
	"strings"

	"tsintrospect/internal/core/model"
	"tsintrospect/internal/engine/analyzer"
)

// SignatureStyle selects how function and class signatures are rendered.
type SignatureStyle int

const (
	// StyleDeclaration keeps declaration text: a function's statement up to
	// its body, a class's name and extends clause.
	StyleDeclaration SignatureStyle = iota
	// StyleSynthesized renders "(p: T) => R" for functions and "typeof N"
	// for classes.
	StyleSynthesized
)

// UnresolvedReexport marks records whose re-export could not be followed.
// Their kind is a guess.
const UnresolvedReexport = "Re-exported symbol (unresolved)"

type Extractor struct {
	style  SignatureStyle
	logger *slog.Logger
}

func New(style SignatureStyle, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{style: style, logger: logger}
}

// Extract turns a module's export table into records, in export order.
func (e *Extractor) Extract(mod *analyzer.Module) []model.ExportRecord {
	if mod == nil {
		return nil
	}
	out := make([]model.ExportRecord, 0, len(mod.Exports))
	seen := make(map[string]struct{}, len(mod.Exports))
	for _, sym := range mod.Exports {
		if skipName(sym.Name) || len(sym.Declarations) == 0 {
			continue
		}
		rec, ok := e.Record(sym.Name, sym.Declarations[0])
		if !ok {
			continue
		}
		if _, dup := seen[rec.Name]; dup {
			continue
		}
		seen[rec.Name] = struct{}{}
		out = append(out, rec)
	}
	e.logger.Debug("extracted exports", "path", mod.Path, "symbols", len(mod.Exports), "records", len(out))
	return out
}

// ExtractAll concatenates per-module results, keeping the first record for
// each name across modules.
func (e *Extractor) ExtractAll(mods []*analyzer.Module) []model.ExportRecord {
	var all []model.ExportRecord
	for _, mod := range mods {
		all = append(all, e.Extract(mod)...)
	}
	return model.Dedupe(all)
}

func skipName(name string) bool {
	return name == "" || name == "default" || strings.HasPrefix(name, "_")
}

// Record classifies one declaration. ok is false for shapes that produce no
// record, such as interfaces and enums.
func (e *Extractor) Record(name string, decl *analyzer.Declaration) (model.ExportRecord, bool) {
	rec := model.ExportRecord{Name: name}
	if decl.Documentable {
		rec.Description = analyzer.Summary(decl.Docs)
	}

	switch decl.Kind {
	case analyzer.DeclTypeAlias:
		rec.Kind = model.KindType
		aliased := decl.AliasedType
		if aliased == "" {
			aliased = "unknown"
		}
		rec.TypeSignature = "type " + name + " = " + aliased

	case analyzer.DeclFunction:
		rec.Kind = model.KindFunction
		if e.style == StyleSynthesized {
			rec.TypeSignature = analyzer.SynthesizeFunctionType(decl.Params, decl.ReturnType)
		} else {
			rec.TypeSignature = functionHead(decl)
		}

	case analyzer.DeclClass:
		rec.Kind = model.KindClass
		if e.style == StyleSynthesized {
			rec.TypeSignature = "typeof " + name
		} else {
			rec.TypeSignature = strings.TrimSpace("class " + name + " " + decl.Extends)
		}

	case analyzer.DeclVariable:
		rec.Kind = model.KindConst
		t := decl.TypeAnnotation
		if t == "" {
			t = decl.InferredType
		}
		if t == "" {
			t = "any"
		}
		rec.TypeSignature = "const " + name + ": " + t

	case analyzer.DeclExportSpecifier:
		rec.Kind = model.KindType
		rec.TypeSignature = "export { " + decl.Name + " }"
		rec.Description = UnresolvedReexport

	default:
		return model.ExportRecord{}, false
	}
	return rec, true
}

func functionHead(decl *analyzer.Declaration) string {
	head := strings.TrimSpace(decl.Head())
	return strings.TrimSpace(strings.TrimSuffix(head, ";"))
}
