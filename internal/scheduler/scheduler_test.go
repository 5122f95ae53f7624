package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	mu       sync.Mutex
	syncs    []bool
	cleanups []int
}

func (r *recordingEnqueuer) EnqueueCatalogSync(_ context.Context, force bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs = append(r.syncs, force)
	return "task-1", nil
}

func (r *recordingEnqueuer) EnqueueAuditCleanup(_ context.Context, retentionDays int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, retentionDays)
	return "task-2", nil
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 * * * *"))
	assert.NoError(t, ValidateSchedule("30 3 * * *"))
	assert.Error(t, ValidateSchedule("every hour"))
	assert.Error(t, ValidateSchedule("0 0 * * * *"))
}

func TestScheduler_StartRegistersJobs(t *testing.T) {
	s := New(&recordingEnqueuer{}, Config{
		CatalogSyncSchedule:  "0 * * * *",
		AuditCleanupSchedule: "30 3 * * *",
		AuditRetentionDays:   14,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	next := s.NextRun("catalog_sync")
	require.NotNil(t, next)
	assert.Equal(t, 0, next.Minute())
	assert.NotNil(t, s.NextRun("audit_cleanup"))
	assert.Nil(t, s.NextRun("unknown"))

	// second Start is a no-op
	require.NoError(t, s.Start(ctx))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun("catalog_sync"))
}

func TestScheduler_DisabledJob(t *testing.T) {
	s := New(&recordingEnqueuer{}, Config{CatalogSyncSchedule: "0 * * * *"}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.NotNil(t, s.NextRun("catalog_sync"))
	assert.Nil(t, s.NextRun("audit_cleanup"))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(&recordingEnqueuer{}, Config{CatalogSyncSchedule: "not a schedule"}, nil)
	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := New(&recordingEnqueuer{}, Config{CatalogSyncSchedule: "0 * * * *"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestScheduler_JobsEnqueueTasks(t *testing.T) {
	enq := &recordingEnqueuer{}
	s := New(enq, Config{AuditRetentionDays: 14}, nil)

	s.enqueueCatalogSync()
	s.enqueueAuditCleanup()

	assert.Equal(t, []bool{false}, enq.syncs)
	assert.Equal(t, []int{14}, enq.cleanups)
}
