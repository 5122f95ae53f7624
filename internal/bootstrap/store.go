package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/database"
	dbaccounts "github.com/mrlokans/pdflibrary/internal/database/accounts"
	"github.com/mrlokans/pdflibrary/internal/logger"
	"github.com/mrlokans/pdflibrary/internal/postgres"
)

// Stores is the opened persistence layer. The SQLite database always exists
// (documents, audit, settings, sessions); accounts live either in it or in
// PostgreSQL.
type Stores struct {
	DB       *database.Database
	Accounts accounts.Store
	// Remote is the PostgreSQL pool, nil for the local backend.
	Remote *sql.DB
}

// OpenStores opens the application database and the configured credential
// store.
func OpenStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	if log == nil {
		log = logger.Nop()
	}

	remote := cfg.UsesRemoteStore()
	if !remote && cfg.Store.Backend != config.StoreBackendLocal && cfg.Store.Backend != "" {
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	db, err := database.NewDatabase(cfg.Database.Path, database.Options{
		WithAccounts: !remote,
		Log:          log,
	})
	if err != nil {
		return nil, err
	}

	if !remote {
		return &Stores{DB: db, Accounts: dbaccounts.NewLocalStore(db.DB)}, nil
	}

	pg, err := postgres.Connect(ctx, cfg.Postgres.DSN, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Stores{
		DB:       db,
		Accounts: postgres.NewRemoteStore(pg, log),
		Remote:   pg,
	}, nil
}

// Close releases both databases.
func (s *Stores) Close() error {
	var errs []error
	if s.Remote != nil {
		errs = append(errs, s.Remote.Close())
	}
	errs = append(errs, s.DB.Close())
	return errors.Join(errs...)
}
