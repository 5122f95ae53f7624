package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/audit"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/bootstrap"
	"github.com/mrlokans/pdflibrary/internal/catalog"
	"github.com/mrlokans/pdflibrary/internal/config"
	dbaudit "github.com/mrlokans/pdflibrary/internal/database/audit"
	"github.com/mrlokans/pdflibrary/internal/database/documents"
	"github.com/mrlokans/pdflibrary/internal/database/settings"
	http_controllers "github.com/mrlokans/pdflibrary/internal/http"
	"github.com/mrlokans/pdflibrary/internal/logger"
	"github.com/mrlokans/pdflibrary/internal/scheduler"
	"github.com/mrlokans/pdflibrary/internal/tasks"
)

// startupTimeout bounds connecting to the stores and seeding.
const startupTimeout = 30 * time.Second

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// gracefully.
func Serve(handler http.Handler, cfg *config.Config, log *logger.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-quit:
	}
	log.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server exiting")
	return nil
}

// Run wires every component from cfg and serves HTTP until interrupted.
func Run(cfg *config.Config, version string) error {
	log := logger.NewLogger("server", cfg.Log.Level)
	log.Info().Str("version", version).Str("store", cfg.Store.Backend).Msg("starting pdflibrary")

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStart()

	stores, err := bootstrap.OpenStores(startCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Err(err).Msg("error closing databases")
		}
	}()

	sqlDB, err := stores.DB.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	sessionStore, err := auth.OpenSessionStore(startCtx, cfg.Session.Store, sqlDB, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	defer sessionStore.Close()
	sessionManager := auth.NewSessionManager(sessionStore, cfg.Auth)

	auditService := audit.NewService(dbaudit.NewRepository(stores.DB.DB), log)
	defer auditService.Wait()

	docs := documents.NewRepository(stores.DB.DB)
	syncer := catalog.NewSyncer(cfg.Catalog.Path, docs, settings.NewRepository(stores.DB.DB), auditService, log)

	if err := bootstrap.Run(startCtx, stores.Accounts, syncer, cfg, log); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	authService := auth.NewService(stores.Accounts, sessionManager, auditService, cfg.Auth, log)

	csrfSecret, err := csrfSecretFrom(cfg.Auth.SessionSecret, log)
	if err != nil {
		return err
	}

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), log)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Err(err).Msg("error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewSyncCatalogQueue(syncer, log),
			tasks.NewCleanupAuditEventsQueue(auditService, log),
		)
		go taskClient.Start(bgCtx)
	} else {
		log.Info().Msg("background tasks disabled, scheduled jobs will not run")
	}

	var sched *scheduler.Scheduler
	if taskClient != nil {
		schedCfg := scheduler.Config{
			AuditCleanupSchedule: cfg.Audit.Schedule,
			AuditRetentionDays:   cfg.Audit.RetentionDays,
		}
		if cfg.Catalog.SyncEnabled {
			schedCfg.CatalogSyncSchedule = cfg.Catalog.SyncSchedule
		}
		sched = scheduler.New(taskClient, schedCfg, log)
		if err := sched.Start(bgCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	checks := map[string]http_controllers.CheckFunc{
		"database": http_controllers.DatabaseCheck(stores.DB),
	}
	if stores.Remote != nil {
		checks["postgres"] = stores.Remote.PingContext
	}
	if sessionStore.Ping != nil {
		checks["redis"] = sessionStore.Ping
	}

	routerCfg := http_controllers.RouterConfig{
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthMiddleware: auth.NewMiddleware(sessionManager),
		Documents:      docs,
		Auditor:        auditService,
		Checks:         checks,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Logger:         log,
		Version:        version,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		cancelBackground()
	}

	return Serve(router, cfg, log, onShutdown)
}

// csrfSecretFrom decodes the configured hex secret, falling back to the raw
// bytes, or generates one when unset.
func csrfSecretFrom(configured string, log *logger.Logger) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Warn().Msg("generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}
