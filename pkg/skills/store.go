package skills

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/skillgate/pkg/logger"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const (
	// DefaultDir is the directory scanned when none is configured.
	DefaultDir = "skills"
	// DefaultPattern selects markdown files.
	DefaultPattern = "*.md"
)

// Store lists candidate files from a single directory.
type Store struct {
	dir     string
	pattern string
}

// Option is a function that configures a Store
type Option func(*Store) error

// WithDir sets the directory to scan
func WithDir(dir string) Option {
	return func(s *Store) error {
		if dir == "" {
			return errors.New("skills directory must not be empty")
		}
		s.dir = dir
		return nil
	}
}

// WithPattern sets the base-name pattern candidate files must match
func WithPattern(pattern string) Option {
	return func(s *Store) error {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid file pattern %q", pattern)
		}
		s.pattern = pattern
		return nil
	}
}

// NewStore creates a store scanning DefaultDir for DefaultPattern unless
// options say otherwise.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		dir:     DefaultDir,
		pattern: DefaultPattern,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Dir returns the scanned directory
func (s *Store) Dir() string {
	return s.dir
}

// Pattern returns the file pattern
func (s *Store) Pattern() string {
	return s.pattern
}

// List returns the candidate files sorted by path. Subdirectories and
// non-matching files are ignored. A missing directory is an error: scanning
// nothing must not look like a pass.
func (s *Store) List(ctx context.Context) ([]*File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skills directory %s", s.dir)
	}

	var files []*File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matched, err := doublestar.Match(s.pattern, entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to match pattern %q", s.pattern)
		}
		if !matched {
			continue
		}

		file, err := s.load(ctx, filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Read loads a single file as a candidate, regardless of pattern.
func (s *Store) Read(ctx context.Context, path string) (*File, error) {
	return s.load(ctx, path)
}

func (s *Store) load(ctx context.Context, path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skill file %s", path)
	}

	file := &File{
		Path:    path,
		Content: string(content),
	}

	md, err := parseMetadata(content)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Debug("skill frontmatter not parsed")
	} else {
		file.Name = md.Name
		file.Description = md.Description
	}

	return file, nil
}

// parseMetadata extracts optional YAML frontmatter. Files without
// frontmatter return empty metadata and no error.
func parseMetadata(content []byte) (Metadata, error) {
	if !bytes.HasPrefix(content, []byte("---")) {
		return Metadata{}, nil
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse markdown")
	}

	data, err := meta.TryGet(pctx)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "invalid frontmatter")
	}

	name, _ := data["name"].(string)
	description, _ := data["description"].(string)

	return Metadata{Name: name, Description: description}, nil
}
