package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Postgres
		Store
		Session
		Redis
		Auth
		Seed
		Catalog
		Tasks
		Audit
		Log
	}

	HTTP struct {
		Port         int32
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Postgres struct {
		DSN string
	}
	Store struct {
		Backend string // "local" or "remote"
	}
	Session struct {
		Store string // "sqlite", "redis" or "memory"
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Seed struct {
		AdminUsername   string
		AdminPassword   string
		AdminName       string
		StudentUsername string
		StudentPassword string
		StudentName     string
	}
	Catalog struct {
		Path         string
		SyncEnabled  bool
		SyncSchedule string // Cron format: "0 * * * *" = hourly
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Audit struct {
		RetentionDays int    // Days to keep audit events (default: 30)
		Schedule      string // Cron format for the cleanup job
	}
	Log struct {
		Level string
	}
)

// UsesRemoteStore reports whether accounts live in PostgreSQL.
func (c *Config) UsesRemoteStore() bool {
	return c.Store.Backend == StoreBackendRemote
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("http_read_timeout", "15s")
	v.SetDefault("http_write_timeout", "30s")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("store_backend", StoreBackendLocal)
	v.SetDefault("session_store", SessionStoreSQLite)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_level", "info")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Seed accounts created on first start
	v.SetDefault("seed_admin_username", "admin")
	v.SetDefault("seed_admin_password", "admin123")
	v.SetDefault("seed_admin_name", "Admin User")
	v.SetDefault("seed_student_username", "student")
	v.SetDefault("seed_student_password", "student123")
	v.SetDefault("seed_student_name", "Student User")

	v.SetDefault("catalog_path", DefaultCatalogPath)
	v.SetDefault("catalog_sync_enabled", true)
	v.SetDefault("catalog_sync_schedule", "0 * * * *") // Hourly at :00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *") // Daily at 03:30

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt32("PORT"),
			Host:         v.GetString("HOST"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Postgres: Postgres{
			DSN: v.GetString("POSTGRES_DSN"),
		},
		Store: Store{
			Backend: v.GetString("STORE_BACKEND"),
		},
		Session: Session{
			Store: v.GetString("SESSION_STORE"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Seed: Seed{
			AdminUsername:   v.GetString("SEED_ADMIN_USERNAME"),
			AdminPassword:   v.GetString("SEED_ADMIN_PASSWORD"),
			AdminName:       v.GetString("SEED_ADMIN_NAME"),
			StudentUsername: v.GetString("SEED_STUDENT_USERNAME"),
			StudentPassword: v.GetString("SEED_STUDENT_PASSWORD"),
			StudentName:     v.GetString("SEED_STUDENT_NAME"),
		},
		Catalog: Catalog{
			Path:         v.GetString("CATALOG_PATH"),
			SyncEnabled:  v.GetBool("CATALOG_SYNC_ENABLED"),
			SyncSchedule: v.GetString("CATALOG_SYNC_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			Schedule:      v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}
