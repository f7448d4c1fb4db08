package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type entryKind int

const (
	entryLocal entryKind = iota
	entryReexport
	entryStar
	entryNamespace
	entryDirect
)

// exportEntry is one export form as written, before resolution.
type exportEntry struct {
	kind     entryKind
	name     string // exported name
	local    string // entryLocal
	imported string // entryReexport
	source   string // entryReexport, entryStar, entryNamespace
	decls    []*Declaration
	node     *Declaration // fallback when the entry cannot be followed
}

type importBinding struct {
	source   string
	imported string // "default", "*" or the exported name
}

// scope is a statement list: a module body or a namespace body.
type scope struct {
	locals       map[string][]*Declaration
	order        []string
	imports      map[string]importBinding
	entries      []exportEntry
	exportAssign string
	hasExports   bool
	ambient      bool
	namespace    bool
}

func newScope(ambient, namespace bool) *scope {
	return &scope{
		locals:    make(map[string][]*Declaration),
		imports:   make(map[string]importBinding),
		ambient:   ambient,
		namespace: namespace,
	}
}

// unit is the parsed, tree-independent form of one file.
type unit struct {
	path        string
	src         []byte
	grammar     Grammar
	root        *scope
	diagnostics []Diagnostic
}

func (u *unit) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(u.src[n.StartByte():n.EndByte()])
}

func (u *unit) location(n *sitter.Node) Location {
	pos := n.StartPosition()
	return Location{File: u.path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
}

func (u *unit) field(n *sitter.Node, name string) string {
	if n == nil {
		return ""
	}
	return u.text(n.ChildByFieldName(name))
}

func (u *unit) collectScope(block *sitter.Node, sc *scope) {
	for i := uint(0); i < block.ChildCount(); i++ {
		stmt := block.Child(i)
		if stmt == nil || !stmt.IsNamed() {
			continue
		}
		switch stmt.Kind() {
		case "comment":
		case "export_statement":
			sc.hasExports = true
			u.collectExport(stmt, sc)
		case "import_statement":
			u.collectImport(stmt, sc)
		case "expression_statement":
			if inner := firstNamed(stmt); inner != nil && inner.Kind() == "internal_module" {
				u.addLocals(sc, u.declarations(inner, stmt, sc.ambient), false)
			}
		default:
			u.addLocals(sc, u.declarations(stmt, stmt, sc.ambient), false)
		}
	}
}

func (u *unit) addLocals(sc *scope, decls []*Declaration, exported bool) {
	for _, d := range decls {
		if d.Name == "" {
			continue
		}
		if _, seen := sc.locals[d.Name]; !seen {
			sc.order = append(sc.order, d.Name)
		}
		sc.locals[d.Name] = append(sc.locals[d.Name], d)
		if exported {
			sc.entries = append(sc.entries, exportEntry{kind: entryLocal, name: d.Name, local: d.Name})
		}
	}
}

func (u *unit) collectExport(stmt *sitter.Node, sc *scope) {
	var (
		isDefault bool
		isStar    bool
		isAssign  bool
		clause    *sitter.Node
		nsExport  *sitter.Node
	)
	for i := uint(0); i < stmt.ChildCount(); i++ {
		child := stmt.Child(i)
		switch child.Kind() {
		case "default":
			isDefault = true
		case "*":
			isStar = true
		case "=":
			isAssign = true
		case "export_clause":
			clause = child
		case "namespace_export":
			nsExport = child
		}
	}
	source := unquote(u.field(stmt, "source"))

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		decls := u.declarations(decl, stmt, sc.ambient)
		if isDefault {
			u.addLocals(sc, decls, false)
			sc.entries = append(sc.entries, exportEntry{kind: entryDirect, name: "default", decls: decls})
			return
		}
		u.addLocals(sc, decls, true)
		return
	}

	switch {
	case isDefault:
		value := stmt.ChildByFieldName("value")
		if value != nil && value.Kind() == "identifier" {
			sc.entries = append(sc.entries, exportEntry{kind: entryLocal, name: "default", local: u.text(value)})
			return
		}
		d := u.baseDecl(DeclDefault, "default", stmt, stmt)
		sc.entries = append(sc.entries, exportEntry{kind: entryDirect, name: "default", decls: []*Declaration{d}})
	case isAssign:
		if expr := lastNamed(stmt); expr != nil && expr.Kind() == "identifier" {
			sc.exportAssign = u.text(expr)
		}
	case clause != nil:
		for j := uint(0); j < clause.ChildCount(); j++ {
			spec := clause.Child(j)
			if spec.Kind() != "export_specifier" {
				continue
			}
			name := unquote(u.field(spec, "name"))
			alias := unquote(u.field(spec, "alias"))
			if alias == "" {
				alias = name
			}
			fallback := u.baseDecl(DeclExportSpecifier, name, spec, stmt)
			fallback.Source = source
			if source != "" {
				sc.entries = append(sc.entries, exportEntry{kind: entryReexport, name: alias, imported: name, source: source, node: fallback})
			} else {
				sc.entries = append(sc.entries, exportEntry{kind: entryLocal, name: alias, local: name, node: fallback})
			}
		}
	case nsExport != nil:
		name := unquote(u.text(lastNamed(nsExport)))
		d := u.baseDecl(DeclNamespaceExport, name, nsExport, stmt)
		d.Source = source
		sc.entries = append(sc.entries, exportEntry{kind: entryNamespace, name: name, source: source, decls: []*Declaration{d}})
	case isStar && source != "":
		sc.entries = append(sc.entries, exportEntry{kind: entryStar, source: source})
	}
}

func (u *unit) collectImport(stmt *sitter.Node, sc *scope) {
	source := unquote(u.field(stmt, "source"))
	if source == "" {
		return
	}
	var clause *sitter.Node
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		if c := stmt.NamedChild(i); c.Kind() == "import_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		switch c.Kind() {
		case "identifier":
			sc.imports[u.text(c)] = importBinding{source: source, imported: "default"}
		case "namespace_import":
			if id := lastNamed(c); id != nil {
				sc.imports[u.text(id)] = importBinding{source: source, imported: "*"}
			}
		case "named_imports":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				spec := c.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := unquote(u.field(spec, "name"))
				local := u.field(spec, "alias")
				if local == "" {
					local = name
				}
				sc.imports[local] = importBinding{source: source, imported: name}
			}
		}
	}
}

// declarations maps one declaration node to the Declarations it introduces.
// stmt is the outermost statement, used for docs and statement text.
func (u *unit) declarations(node, stmt *sitter.Node, ambient bool) []*Declaration {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		d := u.baseDecl(DeclFunction, u.field(node, "name"), node, stmt)
		d.Documentable = true
		d.Params = u.params(node.ChildByFieldName("parameters"))
		d.ReturnType = typeText(u.text(node.ChildByFieldName("return_type")))
		d.BodyStart = u.bodyOffset(node, stmt)
		return []*Declaration{d}

	case "class_declaration", "abstract_class_declaration", "class":
		d := u.baseDecl(DeclClass, u.field(node, "name"), node, stmt)
		d.Documentable = true
		for i := uint(0); i < node.NamedChildCount(); i++ {
			heritage := node.NamedChild(i)
			if heritage.Kind() != "class_heritage" {
				continue
			}
			for j := uint(0); j < heritage.NamedChildCount(); j++ {
				if ext := heritage.NamedChild(j); ext.Kind() == "extends_clause" {
					d.Extends = strings.TrimSpace(u.text(ext))
				}
			}
		}
		d.BodyStart = u.bodyOffset(node, stmt)
		return []*Declaration{d}

	case "type_alias_declaration":
		d := u.baseDecl(DeclTypeAlias, u.field(node, "name"), node, stmt)
		d.Documentable = true
		d.AliasedType = strings.TrimSpace(u.field(node, "value"))
		return []*Declaration{d}

	case "lexical_declaration", "variable_declaration":
		keyword := "var"
		if node.Kind() == "lexical_declaration" {
			keyword = u.field(node, "kind")
		}
		var out []*Declaration
		for i := uint(0); i < node.NamedChildCount(); i++ {
			declarator := node.NamedChild(i)
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			nameNode := declarator.ChildByFieldName("name")
			if nameNode == nil || nameNode.Kind() != "identifier" {
				continue
			}
			d := u.baseDecl(DeclVariable, u.text(nameNode), declarator, stmt)
			d.Text = string(u.src[stmt.StartByte():node.EndByte()])
			d.VarKeyword = keyword
			d.TypeAnnotation = typeText(u.field(declarator, "type"))
			if d.TypeAnnotation == "" {
				d.InferredType = u.inferType(declarator.ChildByFieldName("value"), keyword == "const")
			}
			out = append(out, d)
		}
		return out

	case "interface_declaration":
		d := u.baseDecl(DeclInterface, u.field(node, "name"), node, stmt)
		d.Documentable = true
		return []*Declaration{d}

	case "enum_declaration":
		d := u.baseDecl(DeclEnum, u.field(node, "name"), node, stmt)
		d.Documentable = true
		return []*Declaration{d}

	case "internal_module", "module":
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() == "string" {
			return nil
		}
		d := u.baseDecl(DeclNamespace, u.text(nameNode), node, stmt)
		d.Documentable = true
		if body := node.ChildByFieldName("body"); body != nil {
			d.members = newScope(ambient, true)
			u.collectScope(body, d.members)
		}
		return []*Declaration{d}

	case "ambient_declaration":
		var out []*Declaration
		for i := uint(0); i < node.NamedChildCount(); i++ {
			out = append(out, u.declarations(node.NamedChild(i), stmt, true)...)
		}
		return out
	}
	return nil
}

func (u *unit) baseDecl(kind DeclKind, name string, node, stmt *sitter.Node) *Declaration {
	return &Declaration{
		Kind:      kind,
		Name:      name,
		Location:  u.location(node),
		Text:      string(u.src[stmt.StartByte():node.EndByte()]),
		BodyStart: -1,
		Docs:      u.leadingDocs(stmt),
	}
}

func (u *unit) bodyOffset(node, stmt *sitter.Node) int {
	body := node.ChildByFieldName("body")
	if body == nil {
		return -1
	}
	return int(body.StartByte() - stmt.StartByte())
}

func (u *unit) params(list *sitter.Node) []Param {
	if list == nil {
		return nil
	}
	var out []Param
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			param := Param{Optional: p.Kind() == "optional_parameter"}
			pattern := p.ChildByFieldName("pattern")
			param.Name = u.text(pattern)
			if pattern != nil && pattern.Kind() == "rest_pattern" {
				param.Rest = true
				param.Name = strings.TrimSpace(strings.TrimPrefix(param.Name, "..."))
			}
			param.Type = typeText(u.field(p, "type"))
			out = append(out, param)
		case "identifier", "assignment_pattern", "rest_pattern", "object_pattern", "array_pattern":
			// plain javascript parameters
			name := u.text(p)
			if p.Kind() == "assignment_pattern" {
				name = u.field(p, "left")
			}
			out = append(out, Param{Name: strings.TrimPrefix(name, "..."), Rest: p.Kind() == "rest_pattern"})
		}
	}
	return out
}

// typeText strips the leading colon of a type annotation.
func typeText(annotation string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(annotation), ":"))
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func lastNamed(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(n.NamedChildCount() - 1)
}

func (u *unit) collectDiagnostics(n *sitter.Node, limit int) {
	if n == nil || !n.HasError() || len(u.diagnostics) >= limit {
		return
	}
	if n.IsError() || n.IsMissing() {
		msg := "syntax error"
		if n.IsMissing() {
			msg = "missing " + n.Kind()
		}
		u.diagnostics = append(u.diagnostics, Diagnostic{Location: u.location(n), Message: msg})
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		u.collectDiagnostics(n.Child(i), limit)
	}
}
