package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/store"
	"github.com/hrygo/thoughtstream/store/db/postgres"
	"github.com/hrygo/thoughtstream/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite: default for single-user deployments. Lexical search via FTS5;
// vector search is served by the external chroma index.
// PostgreSQL: full support including pgvector-backed vector search.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
