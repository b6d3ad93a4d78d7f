package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// JSONFile is the default Store: a JSON object of path → fingerprint,
// rewritten wholesale on every save.
type JSONFile struct {
	path string
}

// NewJSONFile returns a JSON-backed store at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the cache file. A missing or empty file yields an empty
// mapping; a corrupt file is logged and also treated as empty.
func (f *JSONFile) Load(ctx context.Context) (Entries, error) {
	data, err := lockedfile.Read(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entries{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read cache file %s", f.path)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return Entries{}, nil
	}

	entries := Entries{}
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.G(ctx).WithError(err).WithField("path", f.path).Warn("cache file is corrupt, starting from an empty cache")
		return Entries{}, nil
	}
	// a literal null decodes to a nil map
	if entries == nil {
		entries = Entries{}
	}

	return entries, nil
}

// Save writes entries as indented JSON, creating the parent directory when needed.
func (f *JSONFile) Save(_ context.Context, entries Entries) error {
	if entries == nil {
		entries = Entries{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache entries")
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create cache directory")
		}
	}

	if err := lockedfile.Write(f.path, bytes.NewReader(data), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write cache file %s", f.path)
	}

	return nil
}

// Location returns the cache file path.
func (f *JSONFile) Location() string {
	return f.path
}

// Close is a no-op; the file is only held open during Load and Save.
func (f *JSONFile) Close() error {
	return nil
}
