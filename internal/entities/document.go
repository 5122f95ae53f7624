package entities

import "time"

// Document is one catalog entry mirrored into the documents table.
type Document struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Title       string    `gorm:"index;size:512" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"index;size:128" json:"category"`
	Pages       int       `json:"pages"`
	Size        string    `gorm:"size:32" json:"size"`
	Thumbnail   string    `gorm:"size:1024" json:"thumbnail,omitempty"`
	Featured    bool      `json:"featured"`
	Premium     bool      `gorm:"index" json:"premium"`
	Position    int       `json:"-"` // order within the catalog file
	SyncedAt    time.Time `json:"synced_at"`
}

func (Document) TableName() string {
	return "documents"
}
