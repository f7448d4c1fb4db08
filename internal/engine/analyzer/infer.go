package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// inferType renders a display type for an unannotated initializer. Literal
// types are kept for const bindings and widened otherwise. Shapes that need
// a checker fall back to "any".
func (u *unit) inferType(value *sitter.Node, isConst bool) string {
	if value == nil {
		return "any"
	}
	switch value.Kind() {
	case "string":
		if isConst {
			return u.text(value)
		}
		return "string"
	case "template_string":
		return "string"
	case "number":
		if isConst {
			return u.text(value)
		}
		return "number"
	case "true", "false":
		if isConst {
			return value.Kind()
		}
		return "boolean"
	case "null":
		return "null"
	case "undefined":
		return "undefined"
	case "unary_expression":
		arg := value.ChildByFieldName("argument")
		if u.field(value, "operator") == "-" && arg != nil && arg.Kind() == "number" {
			if isConst {
				return u.text(value)
			}
			return "number"
		}
		if u.field(value, "operator") == "!" {
			return "boolean"
		}
	case "regex":
		return "RegExp"
	case "new_expression":
		ctor := u.field(value, "constructor")
		if ctor != "" {
			return ctor + u.field(value, "type_arguments")
		}
	case "as_expression", "satisfies_expression":
		inner := firstNamed(value)
		if last := value.Child(value.ChildCount() - 1); last != nil && last.Kind() == "const" {
			return u.inferType(inner, true)
		}
		if value.Kind() == "as_expression" && value.NamedChildCount() >= 2 {
			return strings.TrimSpace(u.text(lastNamed(value)))
		}
		return u.inferType(inner, isConst)
	case "parenthesized_expression":
		return u.inferType(firstNamed(value), isConst)
	case "arrow_function", "function_expression", "function":
		return SynthesizeFunctionType(u.arrowParams(value), typeText(u.field(value, "return_type")))
	case "identifier":
		return "typeof " + u.text(value)
	case "array":
		return "any[]"
	case "class":
		if name := u.field(value, "name"); name != "" {
			return "typeof " + name
		}
	}
	return "any"
}

func (u *unit) arrowParams(fn *sitter.Node) []Param {
	if params := fn.ChildByFieldName("parameters"); params != nil {
		return u.params(params)
	}
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []Param{{Name: u.text(single)}}
	}
	return nil
}

// SynthesizeFunctionType renders "(p: T, ...) => R", substituting "any" for
// missing parameter or return types.
func SynthesizeFunctionType(params []Param, returnType string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		t := p.Type
		if t == "" {
			t = "any"
		}
		parts = append(parts, p.Name+": "+t)
	}
	if returnType == "" {
		returnType = "any"
	}
	return "(" + strings.Join(parts, ", ") + ") => " + returnType
}
