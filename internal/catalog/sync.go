package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// DocumentStore receives the mirrored documents.
type DocumentStore interface {
	Replace(ctx context.Context, docs []entities.Document) error
}

// StateStore remembers what was mirrored last.
type StateStore interface {
	GetValue(key string) (string, error)
	SetSetting(key, value string) error
}

// Auditor records sync outcomes.
type Auditor interface {
	LogCatalog(description, checksum string, documents int, err error)
}

// SyncResult describes one sync run.
type SyncResult struct {
	Checksum  string
	Documents int
	Skipped   bool
}

// Syncer mirrors the catalog file into the documents table.
type Syncer struct {
	path    string
	docs    DocumentStore
	state   StateStore
	auditor Auditor
	log     *logger.Logger
	now     func() time.Time
}

// NewSyncer creates a syncer for the catalog at path. auditor and log may be nil.
func NewSyncer(path string, docs DocumentStore, state StateStore, auditor Auditor, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{
		path:    path,
		docs:    docs,
		state:   state,
		auditor: auditor,
		log:     log,
		now:     time.Now,
	}
}

// Sync reloads the catalog file. Unless force is set, the mirror is left
// alone when the file checksum matches the last successful sync.
func (s *Syncer) Sync(ctx context.Context, force bool) (SyncResult, error) {
	c, err := LoadFile(s.path)
	if err != nil {
		s.audit("catalog load failed", "", 0, err)
		return SyncResult{}, err
	}

	res := SyncResult{Checksum: c.Checksum, Documents: len(c.PublicPDFs) + len(c.PremiumPDFs)}

	if !force {
		last, err := s.state.GetValue(entities.SettingKeyCatalogChecksum)
		if err != nil {
			return res, fmt.Errorf("failed to read catalog checksum: %w", err)
		}
		if last == c.Checksum {
			res.Skipped = true
			s.log.Debug().Str("checksum", c.Checksum).Msg("catalog unchanged, skipping sync")
			return res, nil
		}
	}

	now := s.now().UTC()
	if err := s.docs.Replace(ctx, c.ToDocuments(now)); err != nil {
		s.audit("catalog mirror update failed", c.Checksum, res.Documents, err)
		return res, err
	}
	if err := s.state.SetSetting(entities.SettingKeyCatalogChecksum, c.Checksum); err != nil {
		return res, fmt.Errorf("failed to store catalog checksum: %w", err)
	}
	if err := s.state.SetSetting(entities.SettingKeyCatalogSyncedAt, now.Format(time.RFC3339)); err != nil {
		return res, fmt.Errorf("failed to store catalog sync time: %w", err)
	}

	s.log.Info().
		Str("checksum", c.Checksum).
		Int("documents", res.Documents).
		Msg("catalog mirrored")
	s.audit("catalog mirrored", c.Checksum, res.Documents, nil)
	return res, nil
}

// EnsureMirrored syncs only when the catalog has never been mirrored.
func (s *Syncer) EnsureMirrored(ctx context.Context) (SyncResult, error) {
	last, err := s.state.GetValue(entities.SettingKeyCatalogChecksum)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to read catalog checksum: %w", err)
	}
	if last != "" {
		return SyncResult{Checksum: last, Skipped: true}, nil
	}
	return s.Sync(ctx, true)
}

func (s *Syncer) audit(description, checksum string, documents int, err error) {
	if s.auditor != nil {
		s.auditor.LogCatalog(description, checksum, documents, err)
	}
}
