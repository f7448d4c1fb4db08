package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"tsintrospect/internal/core/model"
	"tsintrospect/internal/core/ports"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// styles are bound to one writer so color detection follows the real
// destination rather than the process stdout.
type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	kind   map[model.Kind]lipgloss.Style
	status lipgloss.Style
	failed lipgloss.Style
	border lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true),
		header: r.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		kind: map[model.Kind]lipgloss.Style{
			model.KindFunction: r.NewStyle().Foreground(lipgloss.Color("#10B981")).Padding(0, 1),
			model.KindClass:    r.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Padding(0, 1),
			model.KindType:     r.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Padding(0, 1),
			model.KindConst:    r.NewStyle().Foreground(lipgloss.Color("#F472B6")).Padding(0, 1),
		},
		status: r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
		failed: r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		border: r.NewStyle().Foreground(lipgloss.Color("#64748B")),
	}
}

func render(w io.Writer, format string, records []model.ExportRecord) error {
	if format == formatTable {
		return renderTable(w, newStyles(w), records)
	}
	return renderJSON(w, records)
}

// renderJSON prints the record list indented, "[]" when empty.
func renderJSON(w io.Writer, records []model.ExportRecord) error {
	if records == nil {
		records = []model.ExportRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

func renderTable(w io.Writer, st styles, records []model.ExportRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, st.status.Render("no exports"))
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Name, string(r.Kind), r.TypeSignature, firstLine(r.Description)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		Headers("NAME", "KIND", "SIGNATURE", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if col == 1 && row >= 0 && row < len(records) {
				if ks, ok := st.kind[records[row].Kind]; ok {
					return ks
				}
			}
			return st.cell
		})

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.String(), st.status.Render(fmt.Sprintf("%d exports", len(records))))
	return err
}

type watchLine struct {
	Changed []string             `json:"changed"`
	Count   int                  `json:"count"`
	Exports []model.ExportRecord `json:"exports"`
	Error   string               `json:"error,omitempty"`
}

// renderUpdate prints one watch-mode run. JSON output is one document per
// line so it can be consumed as a stream.
func renderUpdate(w io.Writer, format string, u ports.WatchUpdate) error {
	if format != formatTable {
		line := watchLine{Changed: u.Changed, Count: len(u.Records), Exports: u.Records}
		if line.Changed == nil {
			line.Changed = []string{}
		}
		if line.Exports == nil {
			line.Exports = []model.ExportRecord{}
		}
		if u.Err != nil {
			line.Error = u.Err.Error()
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(line)
	}

	st := newStyles(w)
	heading := "initial run"
	if len(u.Changed) > 0 {
		names := make([]string, 0, len(u.Changed))
		for _, p := range u.Changed {
			names = append(names, filepath.Base(p))
		}
		heading = "changed: " + strings.Join(names, ", ")
	}
	if _, err := fmt.Fprintln(w, st.title.Render(heading)); err != nil {
		return err
	}
	if u.Err != nil {
		_, err := fmt.Fprintln(w, st.failed.Render(u.Err.Error()))
		return err
	}
	return renderTable(w, st, u.Records)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
