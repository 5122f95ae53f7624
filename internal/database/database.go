package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

type Database struct {
	DB *gorm.DB
}

// Options tune how the SQLite database is opened.
type Options struct {
	// WithAccounts migrates the users and pending_users tables. Disabled when
	// accounts live in PostgreSQL.
	WithAccounts bool
	LogLevel     gormlogger.LogLevel
	Log          *logger.Logger
}

func NewDatabase(dbPath string, opts Options) (*Database, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = gormlogger.Warn
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	// WAL and a busy timeout let the HTTP server and background workers
	// share the file.
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	models := []any{
		&entities.Document{},
		&entities.AuditEvent{},
		&entities.Setting{},
	}
	if opts.WithAccounts {
		models = append(models, &entities.Account{}, &entities.PendingAccount{})
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	opts.Log.Info().Str("path", dbPath).Bool("accounts", opts.WithAccounts).Msg("database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
