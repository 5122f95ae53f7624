package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	authMiddleware := cfg.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(cfg.SessionManager)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(traceIDMiddleware(log))
	router.Use(requestLogMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(0))
	}

	// CSRF replaces the request, so it runs before the session is loaded
	// into the request context.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(authMiddleware.Handler())

	health := NewHealthController(cfg.Checks, cfg.Version)
	authController := NewAuthController(cfg.AuthService)
	documentsController := NewDocumentsController(cfg.Documents)
	adminController := NewAdminController(cfg.AuthService, cfg.TaskClient, cfg.Auditor)

	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	authController.RegisterRoutes(router)
	documentsController.RegisterRoutes(router, authMiddleware)
	adminController.RegisterRoutes(router, authMiddleware)

	return router
}
