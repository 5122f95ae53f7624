package entities

import "time"

type AuditEventType string

const (
	AuditEventAuth    AuditEventType = "auth"
	AuditEventAccount AuditEventType = "account"
	AuditEventCatalog AuditEventType = "catalog"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "login", "approve", "catalog_sync"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	Username    string         `gorm:"index;size:64" json:"username,omitempty"`
	Actor       string         `gorm:"size:64" json:"actor,omitempty"`      // admin who performed the action
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
