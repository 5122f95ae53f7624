// Package database provides the embedded SQLite data access layer.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── accounts/        # Local credential store (users, pending_users)
//	├── documents/       # Mirrored document catalog
//	├── audit/           # Audit trail
//	└── settings/        # Key/value settings (seed flag, catalog checksum)
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./pdflibrary.db", database.Options{WithAccounts: true})
//
//	store := accounts.NewLocalStore(db.DB)
//	docs := documents.NewRepository(db.DB)
//
// The accounts tables are only migrated when accounts are stored locally.
// With STORE_BACKEND=remote they live in PostgreSQL (see internal/postgres)
// and this database keeps documents, audit events, settings and sessions.
package database
