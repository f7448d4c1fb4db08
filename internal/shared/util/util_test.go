package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePatternPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"src/index.ts", "src/index.ts"},
		{"./src/index.ts", "src/index.ts"},
		{"src\\lib\\a.ts", "src/lib/a.ts"},
		{"  src/a.ts  ", "src/a.ts"},
		{".", ""},
		{"", ""},
		{"src/../lib/a.ts", "lib/a.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizePatternPath(tt.input); got != tt.expected {
				t.Errorf("NormalizePatternPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"node_modules/zod/index.d.ts", "node_modules", true},
		{"node_modules", "node_modules", true},
		{"node_modules_extra/a.ts", "node_modules", false},
		{"", "", true},
		{"src/a.ts", "", false},
	}
	for _, tt := range tests {
		if got := HasPathPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("HasPathPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestSortedStringKeys(t *testing.T) {
	m := map[string]int{"zod": 1, "@acme/utils": 2, "lodash": 3}
	got := SortedStringKeys(m)
	want := []string{"@acme/utils", "lodash", "zod"}
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "@scope", "pkg.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}
