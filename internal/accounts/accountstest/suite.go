// Package accountstest holds the behavioural test suite every
// accounts.Store implementation must pass.
package accountstest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

// Seeds are the accounts used by the suite. Password hashes are opaque to
// the store, so plain markers are enough here.
func Seeds() []accounts.Seed {
	return []accounts.Seed{
		{Username: "admin", Name: "Admin User", PasswordHash: "hash-admin", Role: entities.RoleAdmin},
		{Username: "student", Name: "Student User", PasswordHash: "hash-student", Role: entities.RolePremium},
	}
}

// Run executes the suite. newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) accounts.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("InitializeDefaultsIsIdempotent", func(t *testing.T) {
		s := newStore(t)

		seeded, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)
		assert.True(t, seeded)

		seeded, err = s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)
		assert.False(t, seeded)

		list, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, a := range list {
			assert.True(t, a.Verified)
		}
	})

	t.Run("InitializeDefaultsKeepsExistingData", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)

		revoked, err := s.Revoke(ctx, "student")
		require.NoError(t, err)
		require.True(t, revoked)

		seeded, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)
		assert.False(t, seeded)

		acc, err := s.FindAccount(ctx, "student")
		require.NoError(t, err)
		assert.Nil(t, acc)
	})

	t.Run("FindAccountIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)

		lower, err := s.FindAccount(ctx, "admin")
		require.NoError(t, err)
		mixed, err := s.FindAccount(ctx, "Admin")
		require.NoError(t, err)

		require.NotNil(t, lower)
		require.NotNil(t, mixed)
		assert.Equal(t, lower.Username, mixed.Username)
		assert.Equal(t, entities.RoleAdmin, mixed.Role)
	})

	t.Run("FindAccountMissingIsNotAnError", func(t *testing.T) {
		s := newStore(t)

		acc, err := s.FindAccount(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, acc)
	})

	t.Run("SubmitRequestDuplicateOfVerified", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)

		err = s.SubmitRequest(ctx, accounts.Request{Name: "X", Username: "Student", PasswordHash: "h", Email: "x@x.com"})
		assert.ErrorIs(t, err, accounts.ErrDuplicateUsername)
		assert.False(t, errors.Is(err, accounts.ErrPendingDuplicate))

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("SubmitRequestDuplicateOfPending", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SubmitRequest(ctx, accounts.Request{Name: "Ann", Username: "ann99", PasswordHash: "h1", Email: "ann@x.com"}))

		err := s.SubmitRequest(ctx, accounts.Request{Name: "Other", Username: "ANN99", PasswordHash: "h2", Email: "o@x.com"})
		assert.ErrorIs(t, err, accounts.ErrPendingDuplicate)
		assert.ErrorIs(t, err, accounts.ErrDuplicateUsername)

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "Ann", pending[0].Name)
		assert.Equal(t, "h1", pending[0].PasswordHash)
	})

	t.Run("SubmitRequestNormalizes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SubmitRequest(ctx, accounts.Request{
			Name: "  Ann ", Username: " Ann99 ", PasswordHash: "h", Email: " ANN@X.COM ", TxnRef: " tx-1 ",
		}))

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		p := pending[0]
		assert.Equal(t, "ann99", p.Username)
		assert.Equal(t, "Ann", p.Name)
		assert.Equal(t, "ann@x.com", p.Email)
		assert.Equal(t, "tx-1", p.TxnRef)
		assert.Equal(t, entities.RolePremium, p.Role)
		assert.False(t, p.Verified)
		assert.NotNil(t, p.RequestedAt)

		acc, err := s.FindAccount(ctx, "ann99")
		require.NoError(t, err)
		assert.Nil(t, acc, "pending requests are not login-eligible accounts")
	})

	t.Run("ApproveMovesRecord", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SubmitRequest(ctx, accounts.Request{Name: "Ann", Username: "ann99", PasswordHash: "h", Email: "ann@x.com"}))

		ok, err := s.Approve(ctx, "Ann99")
		require.NoError(t, err)
		assert.True(t, ok)

		acc, err := s.FindAccount(ctx, "ann99")
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.True(t, acc.Verified)
		assert.Equal(t, entities.RolePremium, acc.Role)
		assert.NotNil(t, acc.ApprovedAt)
		assert.Equal(t, "h", acc.PasswordHash)

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		ok, err = s.Approve(ctx, "ann99")
		require.NoError(t, err)
		assert.False(t, ok, "second approval finds nothing to move")
	})

	t.Run("ApproveMissingIsFalse", func(t *testing.T) {
		s := newStore(t)

		ok, err := s.Approve(ctx, "nouser")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RejectDeletesPending", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SubmitRequest(ctx, accounts.Request{Name: "Ann", Username: "ann99", PasswordHash: "h", Email: "ann@x.com"}))

		ok, err := s.Reject(ctx, "ann99")
		require.NoError(t, err)
		assert.True(t, ok)

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		acc, err := s.FindAccount(ctx, "ann99")
		require.NoError(t, err)
		assert.Nil(t, acc)
	})

	t.Run("RejectMissingIsFalse", func(t *testing.T) {
		s := newStore(t)

		ok, err := s.Reject(ctx, "nouser")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RevokeAdminRefused", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)

		ok, err := s.Revoke(ctx, "admin")
		require.NoError(t, err)
		assert.False(t, ok)

		list, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("RevokePremium", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InitializeDefaults(ctx, Seeds())
		require.NoError(t, err)

		ok, err := s.Revoke(ctx, "STUDENT")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Revoke(ctx, "student")
		require.NoError(t, err)
		assert.False(t, ok)

		list, err := s.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "admin", list[0].Username)
	})

	t.Run("ListPendingNewestFirst", func(t *testing.T) {
		s := newStore(t)
		for _, u := range []string{"first", "second", "third"} {
			require.NoError(t, s.SubmitRequest(ctx, accounts.Request{Name: u, Username: u, PasswordHash: "h", Email: u + "@x.com"}))
		}

		pending, err := s.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		for i := 1; i < len(pending); i++ {
			assert.False(t, pending[i].RequestedAt.After(*pending[i-1].RequestedAt))
		}
	})
}
