// Package postgres implements the credential store on PostgreSQL.
//
// Queries are built with squirrel and executed through database/sql using
// the pgx stdlib driver. The schema is managed by the goose migrations in
// the migrations sub-package.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mrlokans/pdflibrary/internal/logger"
	"github.com/mrlokans/pdflibrary/internal/postgres/migrations"
)

// Connect opens a pool for dsn, verifies it with a ping and applies
// migrations.
func Connect(ctx context.Context, dsn string, log *logger.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Err(err).Msg("error occurred opening database connection")
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		log.Err(err).Msg("error connecting database (ping)")
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := migrations.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().Msg("connected to postgres and applied migrations")
	return db, nil
}
