package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnchanged(t *testing.T) {
	entries := Entries{"skills/a.md": "abc"}

	assert.True(t, IsUnchanged(entries, "skills/a.md", "abc"))
	assert.False(t, IsUnchanged(entries, "skills/a.md", "abd"))
	assert.False(t, IsUnchanged(entries, "skills/b.md", "abc"))
	assert.False(t, IsUnchanged(nil, "skills/a.md", "abc"))
	assert.True(t, entries.IsUnchanged("skills/a.md", "abc"))
}

func TestEntries_Paths(t *testing.T) {
	entries := Entries{"skills/c.md": "3", "skills/a.md": "1", "skills/b.md": "2"}
	assert.Equal(t, []string{"skills/a.md", "skills/b.md", "skills/c.md"}, entries.Paths())
}

func TestConfig_ResolvedPath(t *testing.T) {
	assert.Equal(t, DefaultJSONPath, Config{}.ResolvedPath())
	assert.Equal(t, DefaultSQLitePath, Config{Backend: BackendSQLite}.ResolvedPath())
	assert.Equal(t, "custom.json", Config{Path: "custom.json"}.ResolvedPath())
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("json by default", func(t *testing.T) {
		store, err := NewStore(ctx, Config{Path: filepath.Join(dir, "cache.json")})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &JSONFile{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := NewStore(ctx, Config{Backend: BackendSQLite, Path: filepath.Join(dir, "cache.db")})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLite{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewStore(ctx, Config{Backend: "redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown cache backend")
	})
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	jsonStore := NewJSONFile(filepath.Join(dir, "scanner", "cache.json"))
	sqliteStore, err := NewSQLite(ctx, filepath.Join(dir, "scanner", "cache.db"))
	require.NoError(t, err)
	defer sqliteStore.Close()

	for _, store := range []Store{jsonStore, sqliteStore} {
		t.Run(filepath.Base(store.Location()), func(t *testing.T) {
			entries, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, entries)

			require.NoError(t, store.Save(ctx, Entries{"skills/a.md": "111", "skills/b.md": "222"}))

			entries, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, Entries{"skills/a.md": "111", "skills/b.md": "222"}, entries)

			// Save overwrites wholesale.
			require.NoError(t, store.Save(ctx, Entries{"skills/a.md": "333"}))
			entries, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, Entries{"skills/a.md": "333"}, entries)
		})
	}
}

func TestJSONFile_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := NewJSONFile(path)

	require.NoError(t, store.Save(context.Background(), Entries{"skills/b.md": "2", "skills/a.md": "1"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"skills/a.md\": \"1\",\n  \"skills/b.md\": \"2\"\n}", string(data))
}

func TestJSONFile_CorruptOrEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	entries, err := NewJSONFile(corrupt).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	entries, err = NewJSONFile(empty).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	null := filepath.Join(dir, "null.json")
	require.NoError(t, os.WriteFile(null, []byte("null"), 0o644))
	entries, err = NewJSONFile(null).Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, entries)
	entries["a.md"] = "abc"
}

func TestJSONFile_SaveNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, NewJSONFile(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
