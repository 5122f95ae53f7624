// Package auth handles logins, sessions and subscription requests.
//
// Service is the facade used by HTTP handlers and the CLI. It verifies
// credentials against an accounts.Store (bcrypt hashes), starts sessions
// through SessionManager and records every attempt with an Auditor.
//
// Sessions live in an scs store (SQLite, Redis or memory, see
// OpenSessionStore). The payload is a JSON object stored under SessionKey
// and is valid for 24 hours from login, independent of cookie lifetime.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, generated if empty
//	AUTH_SESSION_LIFETIME=24h           # cookie lifetime, at least 24h
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # wrong passwords before lockout, 0 disables
//	SESSION_STORE=sqlite                # sqlite, redis or memory
//
// # Usage
//
//	sm := auth.NewSessionManager(store, cfg.Auth)
//	svc := auth.NewService(accountStore, sm, auditService, cfg.Auth, log)
//	mw := auth.NewMiddleware(sm)
//	router.Use(sm.SessionLoadSave(), mw.Handler())
//	admin := router.Group("/api/admin", mw.RequireAdmin())
package auth
