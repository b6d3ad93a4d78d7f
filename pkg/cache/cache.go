// Package cache persists the path → fingerprint mapping that lets the gate
// skip reclassifying skill files whose content has not changed since the
// last scan. The cache is a performance optimisation only: losing or
// corrupting it costs classifier calls, never correctness.
package cache

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

const (
	// BackendJSON stores entries in a pretty-printed JSON object on disk.
	BackendJSON = "json"
	// BackendSQLite stores entries in a SQLite table.
	BackendSQLite = "sqlite"

	// DefaultJSONPath is where the JSON backend keeps its state.
	DefaultJSONPath = "scanner/cache.json"
	// DefaultSQLitePath is where the SQLite backend keeps its database.
	DefaultSQLitePath = "scanner/cache.db"
)

// Entries maps a candidate file path to the fingerprint it had when it was
// last classified.
type Entries map[string]string

// IsUnchanged reports whether path is cached with exactly fingerprint.
func (e Entries) IsUnchanged(path, fingerprint string) bool {
	return IsUnchanged(e, path, fingerprint)
}

// Paths returns the cached paths in sorted order.
func (e Entries) Paths() []string {
	paths := make([]string, 0, len(e))
	for p := range e {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsUnchanged is true iff path is present in entries and its stored
// fingerprint equals the freshly computed one.
func IsUnchanged(entries Entries, path, fingerprint string) bool {
	stored, ok := entries[path]
	return ok && stored == fingerprint
}

// Store loads and saves the whole mapping at once.
type Store interface {
	// Load returns the persisted entries, or an empty mapping when nothing
	// has been persisted yet.
	Load(ctx context.Context) (Entries, error)
	// Save overwrites the persisted state with entries.
	Save(ctx context.Context, entries Entries) error
	// Location describes where the state lives, for display.
	Location() string
	Close() error
}

// Config selects and configures the cache backend.
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ResolvedPath returns the configured path or the backend default.
func (c Config) ResolvedPath() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Backend == BackendSQLite {
		return DefaultSQLitePath
	}
	return DefaultJSONPath
}

// NewStore constructs the backend named by cfg.Backend.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendJSON:
		return NewJSONFile(cfg.ResolvedPath()), nil
	case BackendSQLite:
		return NewSQLite(ctx, cfg.ResolvedPath())
	default:
		return nil, errors.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
