package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/pdflibrary/internal/logger"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	log    *logger.Logger

	mu      sync.RWMutex
	started bool
}

// TasksDBPath returns the queue database path for mainDBPath:
// ./pdflibrary.db becomes ./pdflibrary-tasks.db.
func TasksDBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"-tasks"+ext)
}

// NewClient creates a task queue client with a dedicated SQLite database
// stored next to the main one.
func NewClient(mainDBPath string, cfg Config, log *logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}

	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &taskLogger{log: log},
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		log:    log,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins dispatching tasks to the workers. Calling it twice is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.log.Info().Int("workers", c.config.Workers).Msg("task queue started")
	c.client.Start(ctx)
}

// Stop waits for active tasks to complete. Returns true if all workers
// finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	success := c.client.Stop(ctx)
	if success {
		c.log.Info().Msg("task queue stopped gracefully")
	} else {
		c.log.Warn().Msg("task queue stopped with timeout, some tasks may not have completed")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// EnqueueCatalogSync schedules a catalog resync and returns the task id.
func (c *Client) EnqueueCatalogSync(ctx context.Context, force bool) (string, error) {
	ids, err := c.client.Add(SyncCatalogTask{Force: force}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue catalog sync: %w", err)
	}
	return ids[0], nil
}

// EnqueueAuditCleanup schedules removal of audit events older than
// retentionDays.
func (c *Client) EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error) {
	ids, err := c.client.Add(CleanupAuditEventsTask{RetentionDays: retentionDays}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue audit cleanup: %w", err)
	}
	return ids[0], nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// taskLogger adapts backlite's logger to zerolog. backlite passes
// alternating key/value pairs.
type taskLogger struct {
	log *logger.Logger
}

func (l *taskLogger) Info(message string, params ...any) {
	l.log.Debug().Fields(params).Msg(message)
}

func (l *taskLogger) Error(message string, params ...any) {
	l.log.Error().Fields(params).Msg(message)
}
