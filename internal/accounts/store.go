// Package accounts defines the credential store contract shared by the
// local (SQLite) and remote (PostgreSQL) backends.
//
// Accounts live in two disjoint partitions keyed by username: users holds
// verified, login-eligible accounts and pending_users holds subscription
// requests awaiting an admin decision. A username is never present in both.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrPendingDuplicate also matches ErrDuplicateUsername with errors.Is.
	ErrPendingDuplicate = fmt.Errorf("%w: a subscription request for this username is already pending", ErrDuplicateUsername)
)

// Store is implemented by every credential backend. Missing records are
// reported as nil results or false, never as errors; errors always mean the
// backend could not be reached or failed.
type Store interface {
	// InitializeDefaults inserts the seed accounts on first use and reports
	// whether it did. Existing data is never overwritten.
	InitializeDefaults(ctx context.Context, seeds []Seed) (bool, error)
	ListAccounts(ctx context.Context) ([]entities.Account, error)
	// ListPending returns requests ordered by request time, newest first.
	ListPending(ctx context.Context) ([]entities.PendingAccount, error)
	FindAccount(ctx context.Context, username string) (*entities.Account, error)
	SubmitRequest(ctx context.Context, req Request) error
	Approve(ctx context.Context, username string) (bool, error)
	Reject(ctx context.Context, username string) (bool, error)
	// Revoke deletes a verified account. Admin accounts are never removed.
	Revoke(ctx context.Context, username string) (bool, error)
}

// Request is a subscription request. PasswordHash is already hashed.
type Request struct {
	Name         string
	Username     string
	PasswordHash string
	Email        string
	TxnRef       string
}

// Normalize returns a copy with the username and email lower-cased and all
// text fields trimmed.
func (r Request) Normalize() Request {
	return Request{
		Name:         strings.TrimSpace(r.Name),
		Username:     NormalizeUsername(r.Username),
		PasswordHash: r.PasswordHash,
		Email:        strings.ToLower(strings.TrimSpace(r.Email)),
		TxnRef:       strings.TrimSpace(r.TxnRef),
	}
}

// Seed describes an account created on first start.
type Seed struct {
	Username     string
	Name         string
	PasswordHash string
	Role         entities.Role
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewPending builds the pending record for a normalized request.
func NewPending(req Request, now time.Time) entities.PendingAccount {
	return entities.PendingAccount{
		Username:     req.Username,
		PasswordHash: req.PasswordHash,
		Name:         req.Name,
		Email:        req.Email,
		TxnRef:       req.TxnRef,
		Role:         entities.RolePremium,
		Verified:     false,
		CreatedAt:    now,
		RequestedAt:  &now,
	}
}

// Promote turns a pending record into a verified account approved at now.
func Promote(p entities.PendingAccount, now time.Time) entities.Account {
	acc := entities.Account(p)
	acc.Verified = true
	acc.ApprovedAt = &now
	return acc
}

// SeedAccounts converts seeds into verified accounts created at now.
func SeedAccounts(seeds []Seed, now time.Time) []entities.Account {
	out := make([]entities.Account, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, entities.Account{
			Username:     NormalizeUsername(s.Username),
			PasswordHash: s.PasswordHash,
			Name:         strings.TrimSpace(s.Name),
			Role:         s.Role,
			Verified:     true,
			CreatedAt:    now,
		})
	}
	return out
}

// AdminUsername returns the first admin seed's username, or "admin".
func AdminUsername(seeds []Seed) string {
	for _, s := range seeds {
		if s.Role == entities.RoleAdmin {
			return NormalizeUsername(s.Username)
		}
	}
	return "admin"
}
