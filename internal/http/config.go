package http

import (
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	Documents      DocumentReader

	// Admin tooling (optional)
	Auditor    AuditReader
	TaskClient CatalogSyncEnqueuer

	// Health checks keyed by dependency name
	Checks map[string]CheckFunc

	// CSRF protection is enabled when the secret is set
	CSRFSecret    []byte
	SecureCookies bool

	Logger  *logger.Logger
	Version string
}
