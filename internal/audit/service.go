package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mrlokans/pdflibrary/internal/database/audit"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  *logger.Logger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.log.Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records a login or logout attempt.
func (s *Service) LogAuth(username, action, ipAddr, userAgent string, err error) {
	event := &entities.AuditEvent{
		EventType: entities.AuditEventAuth,
		Action:    action,
		Username:  username,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogAccount records a subscription or an admin decision on an account.
// changed is false when the target record did not exist.
func (s *Service) LogAccount(actor, username, action string, changed bool, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventAccount,
		Action:      action,
		Description: action + " " + username,
		Username:    username,
		Actor:       actor,
		Status:      entities.AuditStatusSuccess,
	}
	if md, e := json.Marshal(map[string]any{"changed": changed}); e == nil {
		event.Metadata = string(md)
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// LogCatalog records a catalog mirror refresh.
func (s *Service) LogCatalog(description, checksum string, documents int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCatalog,
		Action:      "catalog_sync",
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}
	metadata := map[string]any{
		"checksum":  checksum,
		"documents": documents,
	}
	if md, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(md)
	}
	markFailed(event, err)

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func markFailed(event *entities.AuditEvent, err error) {
	if err == nil {
		return
	}
	event.Status = entities.AuditStatusFailed
	event.ErrorMsg = truncate(err.Error(), 500)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
