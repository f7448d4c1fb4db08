package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// leadingDocs collects the /** */ blocks attached to stmt, earliest first.
// Plain comments between them are skipped; anything else ends the run.
func (u *unit) leadingDocs(stmt *sitter.Node) []DocBlock {
	var raw []string
	for prev := stmt.PrevSibling(); prev != nil && prev.Kind() == "comment"; prev = prev.PrevSibling() {
		text := u.text(prev)
		if isDocComment(text) {
			raw = append(raw, text)
		}
	}
	if len(raw) == 0 {
		return nil
	}
	docs := make([]DocBlock, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		docs = append(docs, ParseDocComment(raw[i]))
	}
	return docs
}

func isDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/**/") && strings.HasSuffix(text, "*/")
}

// ParseDocComment splits a JSDoc comment into its description and tags.
func ParseDocComment(text string) DocBlock {
	body := strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")
	lines := strings.Split(body, "\n")

	var (
		block   DocBlock
		desc    []string
		current *DocTag
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		if strings.HasPrefix(line, " ") {
			line = line[1:]
		}
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "@") {
			name, rest, _ := strings.Cut(trimmed[1:], " ")
			block.Tags = append(block.Tags, DocTag{Name: name, Text: strings.TrimSpace(rest)})
			current = &block.Tags[len(block.Tags)-1]
			continue
		}
		if current != nil {
			if trimmed != "" {
				current.Text = strings.TrimSpace(current.Text + "\n" + trimmed)
			}
			continue
		}
		desc = append(desc, strings.TrimRight(line, " \t"))
	}
	block.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return block
}

// Summary returns the first doc block's description, or "".
func Summary(docs []DocBlock) string {
	if len(docs) == 0 {
		return ""
	}
	return docs[0].Description
}
