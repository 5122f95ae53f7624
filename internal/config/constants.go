package config

// Default paths for databases and static data
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./pdflibrary.db"

	// DefaultCatalogPath is the default location of the static document catalog
	DefaultCatalogPath = "./data/pdfs.json"
)

// Credential store backends.
const (
	StoreBackendLocal  = "local"  // gorm over the application SQLite database
	StoreBackendRemote = "remote" // PostgreSQL
)

// Session store backends.
const (
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)
