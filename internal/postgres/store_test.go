package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

var fixedNow = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*RemoteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewRemoteStore(db, logger.Nop()).WithClock(func() time.Time { return fixedNow })
	return store, mock
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns)
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestRemoteStore_FindAccount(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(q("FROM users WHERE username = $1")).
		WithArgs("admin").
		WillReturnRows(accountRows().AddRow("admin", "hash", "Admin User", "", "", "admin", true, fixedNow, nil, nil))

	acc, err := store.FindAccount(context.Background(), "  Admin ")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "admin", acc.Username)
	assert.Equal(t, entities.RoleAdmin, acc.Role)
	assert.True(t, acc.Verified)
	assert.Nil(t, acc.ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_FindAccount_NotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(q("FROM users WHERE username = $1")).
		WithArgs("ghost").
		WillReturnRows(accountRows())

	acc, err := store.FindAccount(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestRemoteStore_FindAccount_BackendError(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(q("FROM users")).WillReturnError(errors.New("connection refused"))

	acc, err := store.FindAccount(context.Background(), "admin")
	require.Error(t, err)
	assert.Nil(t, acc)
}

func TestRemoteStore_SubmitRequest_Success(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock(hashtext($1))")).WithArgs("ann99").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE username = $1")).WithArgs("ann99").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM pending_users WHERE username = $1")).WithArgs("ann99").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q("INSERT INTO pending_users")).
		WithArgs("ann99", "hash", "Ann", "ann@x.com", "", "premium", false, fixedNow, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SubmitRequest(context.Background(), accounts.Request{
		Name: " Ann ", Username: "Ann99", PasswordHash: "hash", Email: "ANN@x.com",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_SubmitRequest_DuplicateUser(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := store.SubmitRequest(context.Background(), accounts.Request{Name: "S", Username: "student", PasswordHash: "h", Email: "s@x.com"})
	assert.ErrorIs(t, err, accounts.ErrDuplicateUsername)
	assert.False(t, errors.Is(err, accounts.ErrPendingDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_SubmitRequest_DuplicatePending(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM pending_users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := store.SubmitRequest(context.Background(), accounts.Request{Name: "Ann", Username: "ann99", PasswordHash: "h", Email: "a@x.com"})
	assert.ErrorIs(t, err, accounts.ErrPendingDuplicate)
	assert.ErrorIs(t, err, accounts.ErrDuplicateUsername)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_SubmitRequest_UniqueViolation(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM pending_users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q("INSERT INTO pending_users")).WillReturnError(pgError(pgerrcode.UniqueViolation))
	mock.ExpectRollback()

	err := store.SubmitRequest(context.Background(), accounts.Request{Name: "Ann", Username: "ann99", PasswordHash: "h", Email: "a@x.com"})
	assert.ErrorIs(t, err, accounts.ErrPendingDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_SubmitRequest_BeginFails(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	err := store.SubmitRequest(context.Background(), accounts.Request{Username: "ann99"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, accounts.ErrDuplicateUsername))
}

func TestRemoteStore_Approve(t *testing.T) {
	store, mock := newTestStore(t)
	requested := fixedNow.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(q("DELETE FROM pending_users WHERE username = $1 RETURNING username")).
		WithArgs("ann99").
		WillReturnRows(accountRows().AddRow("ann99", "hash", "Ann", "ann@x.com", "tx-1", "premium", false, requested, requested, nil))
	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("ann99", "hash", "Ann", "ann@x.com", "tx-1", "premium", true, requested, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := store.Approve(context.Background(), "ANN99")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_Approve_Missing(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("DELETE FROM pending_users")).WithArgs("nouser").WillReturnRows(accountRows())
	mock.ExpectCommit()

	ok, err := store.Approve(context.Background(), "nouser")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_Approve_InsertFailsRollsBack(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("DELETE FROM pending_users")).
		WillReturnRows(accountRows().AddRow("ann99", "hash", "Ann", "", "", "premium", false, fixedNow, fixedNow, nil))
	mock.ExpectExec(q("INSERT INTO users")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	ok, err := store.Approve(context.Background(), "ann99")
	require.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_Reject(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "deleted", affected: 1, want: true},
		{name: "missing", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			mock.ExpectExec(q("DELETE FROM pending_users WHERE username = $1")).
				WithArgs("nouser").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := store.Reject(context.Background(), "NoUser")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRemoteStore_Revoke_NeverDeletesAdmin(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec(q("DELETE FROM users WHERE (username = $1 AND role <> $2)")).
		WithArgs("admin", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Revoke(context.Background(), "admin")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoteStore_InitializeDefaults(t *testing.T) {
	seeds := []accounts.Seed{
		{Username: "admin", Name: "Admin User", PasswordHash: "a", Role: entities.RoleAdmin},
		{Username: "student", Name: "Student User", PasswordHash: "s", Role: entities.RolePremium},
	}

	t.Run("seeds when admin absent", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("pg_advisory_xact_lock")).WithArgs("admin").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("SELECT COUNT(*) FROM users")).WithArgs("admin").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(q("INSERT INTO users") + ".*" + q("ON CONFLICT (username) DO NOTHING")).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		seeded, err := store.InitializeDefaults(context.Background(), seeds)
		require.NoError(t, err)
		assert.True(t, seeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-op when admin present", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("SELECT COUNT(*) FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectCommit()

		seeded, err := store.InitializeDefaults(context.Background(), seeds)
		require.NoError(t, err)
		assert.False(t, seeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoteStore_ListPending(t *testing.T) {
	store, mock := newTestStore(t)
	newer := fixedNow
	older := fixedNow.Add(-time.Hour)

	mock.ExpectQuery(q("FROM pending_users ORDER BY requested_at DESC")).
		WillReturnRows(accountRows().
			AddRow("bob", "h", "Bob", "bob@x.com", "", "premium", false, newer, newer, nil).
			AddRow("ann", "h", "Ann", "ann@x.com", "", "premium", false, older, older, nil))

	list, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].Username)
	require.NotNil(t, list[1].RequestedAt)
	assert.True(t, older.Equal(*list[1].RequestedAt))
}
