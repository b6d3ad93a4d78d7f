// Package migrations holds the schema migrations for the SQL fingerprint cache.
package migrations

import (
	"github.com/jingkaihe/skillgate/pkg/db"
)

// All returns all registered migrations. New migrations are appended here.
func All() []db.Migration {
	return []db.Migration{
		Migration20261016090000CreateFingerprints(),
	}
}
