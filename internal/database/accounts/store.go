// Package accounts implements the credential store on top of the embedded
// SQLite database.
//
// # Usage
//
//	store := accounts.NewLocalStore(db)
//	acc, err := store.FindAccount(ctx, "Admin")
//
// Every mutation runs in a gorm transaction and is serialized by a
// store-level mutex, since a single process owns the SQLite file.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	accts "github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/database/settings"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

type LocalStore struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewLocalStore(db *gorm.DB) *LocalStore {
	return &LocalStore{db: db, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (s *LocalStore) WithClock(now func() time.Time) *LocalStore {
	s.now = now
	return s
}

// InitializeDefaults seeds the accounts once. The settings flag records that
// seeding happened so deleted seed accounts are not recreated on restart.
func (s *LocalStore) InitializeDefaults(ctx context.Context, seeds []accts.Seed) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flags := settings.NewRepository(tx)
		done, err := flags.Has(entities.SettingKeyAccountsSeeded)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		var admins int64
		if err := tx.Model(&entities.Account{}).
			Where("username = ?", accts.AdminUsername(seeds)).
			Count(&admins).Error; err != nil {
			return err
		}

		now := s.now()
		if admins == 0 {
			records := accts.SeedAccounts(seeds, now)
			if len(records) > 0 {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
					return fmt.Errorf("failed to create seed accounts: %w", err)
				}
			}
			seeded = true
		}

		return flags.SetSetting(entities.SettingKeyAccountsSeeded, now.UTC().Format(time.RFC3339))
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func (s *LocalStore) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	var list []entities.Account
	err := s.db.WithContext(ctx).Order("username ASC").Find(&list).Error
	return list, err
}

func (s *LocalStore) ListPending(ctx context.Context) ([]entities.PendingAccount, error) {
	var list []entities.PendingAccount
	err := s.db.WithContext(ctx).
		Order("requested_at DESC").
		Order("username ASC").
		Find(&list).Error
	return list, err
}

func (s *LocalStore) FindAccount(ctx context.Context, username string) (*entities.Account, error) {
	var acc entities.Account
	err := s.db.WithContext(ctx).
		Where("username = ?", accts.NormalizeUsername(username)).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *LocalStore) SubmitRequest(ctx context.Context, req accts.Request) error {
	req = req.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Account{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return accts.ErrDuplicateUsername
		}

		if err := tx.Model(&entities.PendingAccount{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return accts.ErrPendingDuplicate
		}

		pending := accts.NewPending(req, s.now())
		return tx.Create(&pending).Error
	})
}

func (s *LocalStore) Approve(ctx context.Context, username string) (bool, error) {
	username = accts.NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	approved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending entities.PendingAccount
		err := tx.Where("username = ?", username).First(&pending).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("username = ?", username).Delete(&entities.PendingAccount{}).Error; err != nil {
			return err
		}

		acc := accts.Promote(pending, s.now())
		if err := tx.Create(&acc).Error; err != nil {
			return fmt.Errorf("failed to create approved account: %w", err)
		}
		approved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

func (s *LocalStore) Reject(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Where("username = ?", accts.NormalizeUsername(username)).
		Delete(&entities.PendingAccount{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *LocalStore) Revoke(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Where("username = ? AND role <> ?", accts.NormalizeUsername(username), entities.RoleAdmin).
		Delete(&entities.Account{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
