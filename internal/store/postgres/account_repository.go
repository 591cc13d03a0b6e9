// Copyright 2026 The SmartMatch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smartmatch/accountd/internal/account"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements account.Repository. Mutations run through
// InTx, which opens a serializable transaction: the uniqueness and
// administrator-floor checks inside the service then observe a consistent
// snapshot, and of two conflicting concurrent mutations one aborts instead
// of producing a lost update.
type AccountRepository struct {
	db *DB
	q  querier // transaction when tx-scoped, pool otherwise
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db, q: db.pool}
}

// InTx runs fn against a transaction-scoped repository. Nested calls join
// the existing transaction.
func (r *AccountRepository) InTx(ctx context.Context, fn func(account.Repository) error) error {
	if _, inTx := r.q.(pgx.Tx); inTx {
		return fn(r)
	}

	tx, err := r.db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&AccountRepository{db: r.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const accountColumns = `
	id, username, display_name, role, extra_permissions, password_hash,
	email, phone, enabled, failed_login_count, locked_until, last_login_at,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var a account.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.DisplayName, &a.Role, &a.ExtraPermissions,
		&a.PasswordHash, &a.Email, &a.Phone, &a.Enabled, &a.FailedLoginCount,
		&a.LockedUntil, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
}

// GetByUsername retrieves an account by its unique username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*account.Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username = $1
	`, username))
}

// List retrieves accounts matching the filter, newest first
func (r *AccountRepository) List(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE TRUE`
	var args []any

	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		query += fmt.Sprintf(" AND enabled = $%d", len(args))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(
			" AND (username ILIKE $%d OR display_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)",
			n, n, n, n,
		)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return out, nil
}

// Create persists a new account
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (
			id, username, display_name, role, extra_permissions, password_hash,
			email, phone, enabled, failed_login_count, locked_until, last_login_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		a.ID, a.Username, a.DisplayName, a.Role, a.ExtraPermissions, a.PasswordHash,
		a.Email, a.Phone, a.Enabled, a.FailedLoginCount, a.LockedUntil, a.LastLoginAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return account.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// Update persists every mutable field of an account. The username is
// immutable and therefore not part of the SET list.
func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	result, err := r.q.Exec(ctx, `
		UPDATE accounts SET
			display_name = $2,
			role = $3,
			extra_permissions = $4,
			password_hash = $5,
			email = $6,
			phone = $7,
			enabled = $8,
			failed_login_count = $9,
			locked_until = $10,
			last_login_at = $11,
			updated_at = $12
		WHERE id = $1
	`,
		a.ID, a.DisplayName, a.Role, a.ExtraPermissions, a.PasswordHash,
		a.Email, a.Phone, a.Enabled, a.FailedLoginCount, a.LockedUntil,
		a.LastLoginAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

// Delete permanently removes an account
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

// CountByRole counts all accounts with the role, enabled or not
func (r *AccountRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE role = $1`, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts by role: %w", err)
	}
	return n, nil
}

// CountEnabledByRole counts enabled accounts with the role
func (r *AccountRepository) CountEnabledByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE role = $1 AND enabled`, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count enabled accounts by role: %w", err)
	}
	return n, nil
}
