package accounts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

func TestRequest_Normalize(t *testing.T) {
	req := Request{
		Name:         "  Ann Smith ",
		Username:     " Ann99 ",
		PasswordHash: "hash",
		Email:        " Ann@X.com ",
		TxnRef:       " TX-1 ",
	}.Normalize()

	assert.Equal(t, "Ann Smith", req.Name)
	assert.Equal(t, "ann99", req.Username)
	assert.Equal(t, "ann@x.com", req.Email)
	assert.Equal(t, "TX-1", req.TxnRef)
	assert.Equal(t, "hash", req.PasswordHash)
}

func TestErrPendingDuplicate_MatchesDuplicateUsername(t *testing.T) {
	assert.True(t, errors.Is(ErrPendingDuplicate, ErrDuplicateUsername))
	assert.False(t, errors.Is(ErrDuplicateUsername, ErrPendingDuplicate))
}

func TestNewPendingAndPromote(t *testing.T) {
	requested := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	approved := requested.Add(time.Hour)

	p := NewPending(Request{Name: "Ann", Username: "ann99", PasswordHash: "h", Email: "ann@x.com"}, requested)
	assert.False(t, p.Verified)
	assert.Equal(t, entities.RolePremium, p.Role)
	require.NotNil(t, p.RequestedAt)
	assert.Equal(t, requested, *p.RequestedAt)

	acc := Promote(p, approved)
	assert.True(t, acc.Verified)
	assert.Equal(t, "ann99", acc.Username)
	assert.Equal(t, "ann@x.com", acc.Email)
	require.NotNil(t, acc.ApprovedAt)
	assert.Equal(t, approved, *acc.ApprovedAt)
}

func TestSeedAccounts(t *testing.T) {
	now := time.Now()
	seeds := []Seed{
		{Username: "Admin", Name: "Admin User", PasswordHash: "a", Role: entities.RoleAdmin},
		{Username: "student", Name: "Student User", PasswordHash: "s", Role: entities.RolePremium},
	}

	accs := SeedAccounts(seeds, now)
	require.Len(t, accs, 2)
	assert.Equal(t, "admin", accs[0].Username)
	assert.True(t, accs[0].Verified)
	assert.True(t, accs[1].Verified)
	assert.Equal(t, "admin", AdminUsername(seeds))
	assert.Equal(t, "admin", AdminUsername(nil))
}
