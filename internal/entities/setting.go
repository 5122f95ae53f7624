package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Set once the local account store has been seeded
	SettingKeyAccountsSeeded = "accounts_seeded"

	// Catalog mirror state
	SettingKeyCatalogChecksum = "catalog_checksum"
	SettingKeyCatalogSyncedAt = "catalog_synced_at"
)
