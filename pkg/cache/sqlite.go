package cache

import (
	"context"
	"time"

	"github.com/jingkaihe/skillgate/pkg/db"
	"github.com/jingkaihe/skillgate/pkg/db/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SQLite keeps entries in the fingerprints table.
type SQLite struct {
	db   *sqlx.DB
	path string
}

type fingerprintRow struct {
	Path        string `db:"path"`
	Fingerprint string `db:"fingerprint"`
}

// NewSQLite opens (and migrates) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	sqlDB, err := db.OpenAndMigrate(ctx, path, migrations.All())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache database %s", path)
	}
	return &SQLite{db: sqlDB, path: path}, nil
}

// Load returns every stored fingerprint.
func (s *SQLite) Load(ctx context.Context) (Entries, error) {
	var rows []fingerprintRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT path, fingerprint FROM fingerprints"); err != nil {
		return nil, errors.Wrap(err, "failed to load fingerprints")
	}

	entries := make(Entries, len(rows))
	for _, r := range rows {
		entries[r.Path] = r.Fingerprint
	}
	return entries, nil
}

// Save replaces the table contents with entries in one transaction.
func (s *SQLite) Save(ctx context.Context, entries Entries) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fingerprints"); err != nil {
		return errors.Wrap(err, "failed to clear fingerprints")
	}

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO fingerprints (path, fingerprint, updated_at) VALUES (?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, path := range entries.Paths() {
		if _, err := stmt.ExecContext(ctx, path, entries[path], now); err != nil {
			return errors.Wrapf(err, "failed to store fingerprint for %s", path)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit fingerprints")
}

// Location returns the database path.
func (s *SQLite) Location() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
