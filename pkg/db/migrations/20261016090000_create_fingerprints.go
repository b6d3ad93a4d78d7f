package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillgate/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261016090000CreateFingerprints creates the fingerprints table.
func Migration20261016090000CreateFingerprints() db.Migration {
	return db.Migration{
		Version:     20261016090000,
		Description: "Create fingerprints table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS fingerprints (
					path TEXT PRIMARY KEY,
					fingerprint TEXT NOT NULL,
					updated_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create fingerprints table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS fingerprints")
			return errors.Wrap(err, "failed to drop fingerprints table")
		},
	}
}
