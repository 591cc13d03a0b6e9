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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartmatch/accountd/internal/account"
	"github.com/smartmatch/accountd/internal/manifest"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	cfg := Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "accountd",
		Password:     "accountd_dev_password",
		Database:     "accountd",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}

	db, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

// TestPurpose: Validates that the account repository enforces username
// uniqueness at the database level and round-trips every column, including
// the extra permission array and nullable timestamps.
func TestAccountRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewAccountRepository(db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	locked := now.Add(15 * time.Minute)
	a := &account.Account{
		ID:               "it-acct-1",
		Username:         "it_user",
		DisplayName:      "Integration User",
		Role:             manifest.RoleOperator,
		ExtraPermissions: []string{"report.export", "audit.view"},
		PasswordHash:     "$2a$04$integrationhashplaceholder",
		Email:            "it@example.com",
		Enabled:          true,
		FailedLoginCount: 2,
		LockedUntil:      &locked,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	defer db.pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", a.ID)

	dup := *a
	dup.ID = "it-acct-2"
	if err := repo.Create(ctx, &dup); !errors.Is(err, account.ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}

	got, err := repo.GetByUsername(ctx, "it_user")
	if err != nil {
		t.Fatalf("failed to get account: %v", err)
	}
	if got.ID != a.ID || got.Role != a.Role || len(got.ExtraPermissions) != 2 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(locked) {
		t.Errorf("expected locked_until %v, got %v", locked, got.LockedUntil)
	}
	if got.LastLoginAt != nil {
		t.Errorf("expected nil last_login_at, got %v", got.LastLoginAt)
	}
}

// TestPurpose: Validates that InTx opens a real transaction: work done by
// the callback is invisible outside until commit and discarded on error.
func TestAccountRepository_InTxRollback(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewAccountRepository(db)

	now := time.Now().UTC()
	sentinel := errors.New("abort")
	err := repo.InTx(ctx, func(tx account.Repository) error {
		a := &account.Account{
			ID:           "it-tx-1",
			Username:     "it_tx_user",
			Role:         manifest.RoleViewer,
			PasswordHash: "$2a$04$integrationhashplaceholder",
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(ctx, a); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}

	if _, err := repo.GetByUsername(ctx, "it_tx_user"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("expected rolled-back account to be absent, got %v", err)
	}
}

// TestPurpose: Validates the role counting queries the administrator-floor
// checks depend on, distinguishing total from enabled counts.
func TestAccountRepository_CountByRole(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	repo := NewAccountRepository(db)

	now := time.Now().UTC()
	for i, enabled := range []bool{true, false} {
		a := &account.Account{
			ID:           "it-count-" + string(rune('a'+i)),
			Username:     "it_count_" + string(rune('a'+i)),
			Role:         manifest.RoleReviewer,
			PasswordHash: "$2a$04$integrationhashplaceholder",
			Enabled:      enabled,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		defer db.pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", a.ID)
	}

	total, err := repo.CountByRole(ctx, manifest.RoleReviewer)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	enabled, err := repo.CountEnabledByRole(ctx, manifest.RoleReviewer)
	if err != nil {
		t.Fatalf("CountEnabledByRole: %v", err)
	}
	if total < 2 || enabled >= total {
		t.Errorf("expected enabled count (%d) below total (%d)", enabled, total)
	}
}
