package resolver

import (
	"encoding/json"
	"os"
	"strings"

	"tsintrospect/internal/core/errors"
)

const manifestFile = "package.json"

// Manifest is the subset of package.json the resolver reads.
type Manifest struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Types   string          `json:"types"`
	Typings string          `json:"typings"`
	Exports json.RawMessage `json:"exports,omitempty"`
}

func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read package manifest"), errors.CtxPath, path)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "parse package manifest"), errors.CtxPath, path)
	}
	return m, nil
}

// TypesEntry returns the declared declaration entry: types, then typings,
// then exports["."].types. Empty when none is declared.
func (m Manifest) TypesEntry() string {
	if m.Types != "" {
		return m.Types
	}
	if m.Typings != "" {
		return m.Typings
	}
	return m.ExportTypes(".")
}

// ExportTypes looks up the types condition of one subpath in the
// conditional exports map.
func (m Manifest) ExportTypes(subpath string) string {
	if len(m.Exports) == 0 {
		return ""
	}
	var exports map[string]json.RawMessage
	if err := json.Unmarshal(m.Exports, &exports); err != nil {
		return ""
	}
	target, ok := exports[subpath]
	if !ok {
		if subpath != "." || hasSubpathKeys(exports) {
			return ""
		}
		// exports is a bare condition map for the root entry
		return conditionTypes(m.Exports)
	}
	return conditionTypes(target)
}

func hasSubpathKeys(exports map[string]json.RawMessage) bool {
	for k := range exports {
		if strings.HasPrefix(k, ".") {
			return true
		}
	}
	return false
}

func conditionTypes(raw json.RawMessage) string {
	var conditions map[string]json.RawMessage
	if err := json.Unmarshal(raw, &conditions); err != nil {
		return ""
	}
	if t, ok := conditions["types"]; ok {
		var s string
		if json.Unmarshal(t, &s) == nil {
			return s
		}
	}
	for _, key := range []string{"import", "require", "default"} {
		if nested, ok := conditions[key]; ok {
			if s := conditionTypes(nested); s != "" {
				return s
			}
		}
	}
	return ""
}
