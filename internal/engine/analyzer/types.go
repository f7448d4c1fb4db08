// # internal/engine/analyzer/types.go
package analyzer

// DeclKind is the structural kind of a declaration node.
type DeclKind string

const (
	DeclFunction        DeclKind = "function"
	DeclClass           DeclKind = "class"
	DeclTypeAlias       DeclKind = "type_alias"
	DeclVariable        DeclKind = "variable"
	DeclInterface       DeclKind = "interface"
	DeclEnum            DeclKind = "enum"
	DeclNamespace       DeclKind = "namespace"
	DeclExportSpecifier DeclKind = "export_specifier"
	DeclNamespaceExport DeclKind = "namespace_export"
	DeclDefault         DeclKind = "default_expression"
)

type Param struct {
	Name     string
	Type     string // empty when unannotated
	Optional bool
	Rest     bool
}

type DocTag struct {
	Name string
	Text string
}

// DocBlock is one parsed /** ... */ comment.
type DocBlock struct {
	Description string
	Tags        []DocTag
}

type Location struct {
	File   string
	Line   int
	Column int
}

// Declaration is one declaration node contributing to an exported symbol.
type Declaration struct {
	Kind     DeclKind
	Name     string
	Location Location

	// Text spans from the start of the enclosing statement, modifiers
	// included, to the end of the declaration.
	Text string
	// BodyStart is the offset into Text where a function or class body
	// begins, or -1.
	BodyStart int

	Params     []Param
	ReturnType string
	Extends    string

	AliasedType    string
	TypeAnnotation string
	InferredType   string
	VarKeyword     string

	Docs         []DocBlock
	Documentable bool

	// Source is the module specifier for unresolved re-exports.
	Source string

	members *scope
}

// Head returns Text truncated before the body.
func (d *Declaration) Head() string {
	if d.BodyStart >= 0 && d.BodyStart <= len(d.Text) {
		return d.Text[:d.BodyStart]
	}
	return d.Text
}

// Symbol is one exported name and every declaration merged under it, in
// source order.
type Symbol struct {
	Name         string
	Declarations []*Declaration
}

type Diagnostic struct {
	Location Location
	Message  string
}

// Module is the analyzed view of one source file.
type Module struct {
	Path        string
	Grammar     Grammar
	Exports     []*Symbol
	Diagnostics []Diagnostic
}

// Export looks up an exported symbol by name.
func (m *Module) Export(name string) *Symbol {
	for _, s := range m.Exports {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ExportNames lists exported names in order.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for _, s := range m.Exports {
		names = append(names, s.Name)
	}
	return names
}
