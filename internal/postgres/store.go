package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// RemoteStore is the PostgreSQL-backed accounts.Store.
type RemoteStore struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

func NewRemoteStore(db *sql.DB, log *logger.Logger) *RemoteStore {
	log.Debug().Msg("creating remote account store")
	return &RemoteStore{db: db, log: log, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (s *RemoteStore) WithClock(now func() time.Time) *RemoteStore {
	s.now = now
	return s
}

// InitializeDefaults seeds the accounts when the admin record is absent.
func (s *RemoteStore) InitializeDefaults(ctx context.Context, seeds []accounts.Seed) (bool, error) {
	admin := accounts.AdminUsername(seeds)
	seeded := false

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockUsername, admin); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		n, err := count(ctx, tx, tableUsers, admin)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		records := accounts.SeedAccounts(seeds, s.now())
		if len(records) == 0 {
			return nil
		}
		query, args, err := buildInsertQuery(tableUsers, true, records...)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert seed accounts: %w", err)
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func (s *RemoteStore) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	query, args, err := buildListQuery(tableUsers)
	if err != nil {
		return nil, err
	}
	return s.queryAccounts(ctx, query, args...)
}

func (s *RemoteStore) ListPending(ctx context.Context) ([]entities.PendingAccount, error) {
	query, args, err := buildListQuery(tablePending)
	if err != nil {
		return nil, err
	}
	list, err := s.queryAccounts(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]entities.PendingAccount, len(list))
	for i, a := range list {
		out[i] = entities.PendingAccount(a)
	}
	return out, nil
}

func (s *RemoteStore) FindAccount(ctx context.Context, username string) (*entities.Account, error) {
	query, args, err := buildFindQuery(tableUsers, accounts.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*RemoteStore.FindAccount").Msg("error finding account")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	return &acc, nil
}

// SubmitRequest checks both tables and inserts under a per-username
// advisory lock. The pending_users primary key catches anything the lock
// cannot, such as a writer that bypasses this store.
func (s *RemoteStore) SubmitRequest(ctx context.Context, req accounts.Request) error {
	req = req.Normalize()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockUsername, req.Username); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		n, err := count(ctx, tx, tableUsers, req.Username)
		if err != nil {
			return err
		}
		if n > 0 {
			return accounts.ErrDuplicateUsername
		}

		n, err = count(ctx, tx, tablePending, req.Username)
		if err != nil {
			return err
		}
		if n > 0 {
			return accounts.ErrPendingDuplicate
		}

		pending := accounts.NewPending(req, s.now())
		query, args, err := buildInsertQuery(tablePending, false, entities.Account(pending))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return accounts.ErrPendingDuplicate
			}
			return fmt.Errorf("insert pending account: %w", err)
		}
		return nil
	})
}

// Approve deletes the pending row with RETURNING and inserts the verified
// account in the same transaction, so only one concurrent approval can
// observe the row.
func (s *RemoteStore) Approve(ctx context.Context, username string) (bool, error) {
	username = accounts.NormalizeUsername(username)
	approved := false

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query, args, err := buildTakePendingQuery(username)
		if err != nil {
			return err
		}
		taken, err := scanAccount(tx.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("take pending account: %w", err)
		}

		acc := accounts.Promote(entities.PendingAccount(taken), s.now())
		query, args, err = buildInsertQuery(tableUsers, false, acc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("approve %q: %w", username, accounts.ErrDuplicateUsername)
			}
			return fmt.Errorf("insert approved account: %w", err)
		}
		approved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

func (s *RemoteStore) Reject(ctx context.Context, username string) (bool, error) {
	query, args, err := buildDeletePendingQuery(accounts.NormalizeUsername(username))
	if err != nil {
		return false, err
	}
	return s.execAffected(ctx, query, args...)
}

func (s *RemoteStore) Revoke(ctx context.Context, username string) (bool, error) {
	query, args, err := buildRevokeQuery(accounts.NormalizeUsername(username))
	if err != nil {
		return false, err
	}
	return s.execAffected(ctx, query, args...)
}

func (s *RemoteStore) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Msg("error executing delete")
		return false, fmt.Errorf("unexpected DB error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RemoteStore) queryAccounts(ctx context.Context, query string, args ...any) ([]entities.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).Msg("error listing accounts")
		return nil, fmt.Errorf("unexpected DB error: %w", err)
	}
	defer rows.Close()

	var list []entities.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, acc)
	}
	return list, rows.Err()
}

func (s *RemoteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (entities.Account, error) {
	var acc entities.Account
	var role string
	err := row.Scan(
		&acc.Username, &acc.PasswordHash, &acc.Name, &acc.Email, &acc.TxnRef,
		&role, &acc.Verified, &acc.CreatedAt, &acc.RequestedAt, &acc.ApprovedAt,
	)
	acc.Role = entities.Role(role)
	return acc, err
}

func count(ctx context.Context, tx *sql.Tx, table, username string) (int64, error) {
	query, args, err := buildCountQuery(table, username)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
