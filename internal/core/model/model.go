package model

// Kind classifies an exported symbol. The set is closed.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindType     Kind = "type"
	KindConst    Kind = "const"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFunction, KindClass, KindType, KindConst:
		return true
	}
	return false
}

// ExportRecord is one entry of a package's public API surface.
type ExportRecord struct {
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	TypeSignature string `json:"typeSignature"`
	Description   string `json:"description"`
}

// Dedupe keeps the first record for each name, preserving order.
func Dedupe(records []ExportRecord) []ExportRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]ExportRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Name]; ok {
			continue
		}
		seen[r.Name] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Names returns record names in order.
func Names(records []ExportRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}
