package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/pdflibrary/internal/catalog"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// CatalogSyncer reloads the catalog mirror.
type CatalogSyncer interface {
	Sync(ctx context.Context, force bool) (catalog.SyncResult, error)
}

// SyncCatalogTask mirrors the catalog file into the documents table.
// Without Force the run is skipped when the file is unchanged.
type SyncCatalogTask struct {
	Force bool `json:"force"`
}

func (t SyncCatalogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_catalog",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncCatalogProcessor creates a processor function for SyncCatalogTask.
func SyncCatalogProcessor(syncer CatalogSyncer, log *logger.Logger) backlite.QueueProcessor[SyncCatalogTask] {
	if log == nil {
		log = logger.Nop()
	}
	return func(ctx context.Context, task SyncCatalogTask) error {
		if syncer == nil {
			return errors.New("catalog syncer not configured")
		}

		res, err := syncer.Sync(ctx, task.Force)
		if err != nil {
			return err
		}

		log.Info().
			Bool("skipped", res.Skipped).
			Int("documents", res.Documents).
			Str("checksum", res.Checksum).
			Msg("catalog sync task finished")
		return nil
	}
}

// NewSyncCatalogQueue creates a backlite queue for catalog sync tasks.
func NewSyncCatalogQueue(syncer CatalogSyncer, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(SyncCatalogProcessor(syncer, log))
}
