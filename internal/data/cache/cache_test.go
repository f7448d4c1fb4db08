package cache

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tsintrospect/internal/core/errors"
	"tsintrospect/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []model.ExportRecord{
	{Name: "parse", Kind: model.KindFunction, TypeSignature: "export declare function parse(s: string): number", Description: "Parses."},
	{Name: "Schema", Kind: model.KindClass, TypeSignature: "class Schema"},
	{Name: "ID", Kind: model.KindType, TypeSignature: "type ID = string"},
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save("zod", sample, dir))

	got, ok := Load("zod", dir)
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestFileStore_FormatIsIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	require.NoError(t, store.Save("zod", sample[:1]))

	data, err := os.ReadFile(filepath.Join(dir, "zod.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {\n    \"name\": \"parse\""), string(data))
}

func TestFileStore_MissingIsMiss(t *testing.T) {
	_, ok := NewFileStore(t.TempDir(), nil).Load("nothing-here")
	assert.False(t, ok)
}

func TestFileStore_CorruptIsMissAndWarns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "null.json"), []byte("null"), 0o644))

	var logs bytes.Buffer
	store := NewFileStore(dir, slog.New(slog.NewTextHandler(&logs, nil)))

	_, ok := store.Load("broken")
	assert.False(t, ok)
	_, ok = store.Load("null")
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "corrupt cache entry")
}

func TestFileStore_ScopedKeyCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "cache")
	store := NewFileStore(dir, nil)
	require.NoError(t, store.Save("@acme/utils", sample))

	_, err := os.Stat(filepath.Join(dir, "@acme", "utils.json"))
	require.NoError(t, err)

	got, ok := store.Load("@acme/utils")
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestFileStore_OverwritesAndStoresEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	require.NoError(t, store.Save("pkg", sample))
	require.NoError(t, store.Save("pkg", nil))

	got, ok := store.Load("pkg")
	require.True(t, ok)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	for _, key := range []string{"", "../outside", "a/../../b", "/abs", `win\path`} {
		err := store.Save(key, sample)
		require.Error(t, err, key)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError), key)
	}
}

func TestNewFileStore_DefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewFileStore("", nil).Dir())
}

func TestProjectKey(t *testing.T) {
	a := ProjectKey("/work/app", "/work/app/tsconfig.json")
	b := ProjectKey("/work/other", "/work/other/tsconfig.json")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "project-"))
	assert.NotContains(t, a, "/")
	assert.Equal(t, a, ProjectKey("/work/app", "/work/app/tsconfig.json"))
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Load("zod")
	assert.False(t, ok)

	require.NoError(t, store.Save("zod", sample))
	got, ok := store.Load("zod")
	require.True(t, ok)
	assert.Equal(t, sample, got)

	require.NoError(t, store.Save("zod", sample[:1]))
	got, ok = store.Load("zod")
	require.True(t, ok)
	assert.Len(t, got, 1)

	require.NoError(t, store.Delete("zod"))
	_, ok = store.Load("zod")
	assert.False(t, ok)
}

func TestSQLiteStore_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save("@acme/utils", sample))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	got, ok := reopened.Load("@acme/utils")
	require.True(t, ok)
	assert.Equal(t, sample, got)
}

func TestOpenSQLite_RejectsDirectory(t *testing.T) {
	_, err := OpenSQLite(t.TempDir(), nil)
	assert.Error(t, err)
}
