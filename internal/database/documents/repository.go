// Package documents stores the mirrored document catalog.
//
// # Usage
//
//	repo := documents.NewRepository(db)
//	docs, err := repo.List(ctx, documents.Scope{IncludePremium: false})
package documents

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

// Repository handles document mirror operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Scope selects which part of the catalog List returns.
type Scope struct {
	// PremiumOnly returns only premium entries.
	PremiumOnly bool
	// IncludePremium adds premium entries to the public ones.
	IncludePremium bool
}

// Replace swaps the whole mirror for docs in a single transaction.
func (r *Repository) Replace(ctx context.Context, docs []entities.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Document{}).Error; err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		return tx.CreateInBatches(docs, 100).Error
	})
}

// List returns documents in catalog order.
func (r *Repository) List(ctx context.Context, scope Scope) ([]entities.Document, error) {
	var docs []entities.Document
	query := r.db.WithContext(ctx).Model(&entities.Document{})
	switch {
	case scope.PremiumOnly:
		query = query.Where("premium = ?", true)
	case !scope.IncludePremium:
		query = query.Where("premium = ?", false)
	}
	err := query.Order("premium ASC").Order("position ASC").Find(&docs).Error
	return docs, err
}

// Get returns the document with id, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Document, error) {
	var doc entities.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Count returns the number of mirrored documents.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Document{}).Count(&n).Error
	return n, err
}
