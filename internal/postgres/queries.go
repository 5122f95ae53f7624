package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

const (
	tableUsers   = "users"
	tablePending = "pending_users"

	// Serializes writers that touch the same username until the transaction ends.
	lockUsername = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	accountColumns = []string{
		"username", "password_hash", "name", "email", "txn_ref",
		"role", "verified", "created_at", "requested_at", "approved_at",
	}
)

func accountValues(a entities.Account) []any {
	return []any{
		a.Username, a.PasswordHash, a.Name, a.Email, a.TxnRef,
		string(a.Role), a.Verified, a.CreatedAt, a.RequestedAt, a.ApprovedAt,
	}
}

func buildListQuery(table string) (string, []any, error) {
	q := psql.Select(accountColumns...).From(table)
	if table == tablePending {
		q = q.OrderBy("requested_at DESC", "username ASC")
	} else {
		q = q.OrderBy("username ASC")
	}
	return q.ToSql()
}

func buildFindQuery(table, username string) (string, []any, error) {
	return psql.Select(accountColumns...).
		From(table).
		Where(sq.Eq{"username": username}).
		ToSql()
}

func buildCountQuery(table, username string) (string, []any, error) {
	return psql.Select("COUNT(*)").
		From(table).
		Where(sq.Eq{"username": username}).
		ToSql()
}

// buildInsertQuery inserts accounts into table. Conflicting usernames are
// skipped when skipExisting is set.
func buildInsertQuery(table string, skipExisting bool, accounts ...entities.Account) (string, []any, error) {
	q := psql.Insert(table).Columns(accountColumns...)
	for _, a := range accounts {
		q = q.Values(accountValues(a)...)
	}
	if skipExisting {
		q = q.Suffix("ON CONFLICT (username) DO NOTHING")
	}
	return q.ToSql()
}

func buildTakePendingQuery(username string) (string, []any, error) {
	return psql.Delete(tablePending).
		Where(sq.Eq{"username": username}).
		Suffix("RETURNING " + strings.Join(accountColumns, ", ")).
		ToSql()
}

func buildDeletePendingQuery(username string) (string, []any, error) {
	return psql.Delete(tablePending).
		Where(sq.Eq{"username": username}).
		ToSql()
}

func buildRevokeQuery(username string) (string, []any, error) {
	return psql.Delete(tableUsers).
		Where(sq.And{
			sq.Eq{"username": username},
			sq.NotEq{"role": string(entities.RoleAdmin)},
		}).
		ToSql()
}
