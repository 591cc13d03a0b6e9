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

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartmatch/accountd/internal/audit"
	"github.com/smartmatch/accountd/internal/id"
	"github.com/smartmatch/accountd/internal/manifest"
)

// seedUsername maps a manifest role to its default seed account username.
// The admin entry is also a protected username and can never be deleted.
var seedUsername = map[string]string{
	manifest.RoleAdmin:    "admin",
	manifest.RoleReviewer: "reviewer1",
	manifest.RoleOperator: "operator1",
	manifest.RoleViewer:   "viewer1",
}

var seedDisplayName = map[string]string{
	manifest.RoleAdmin:    "System Administrator",
	manifest.RoleReviewer: "Review Specialist",
	manifest.RoleOperator: "Operations Specialist",
	manifest.RoleViewer:   "Guest Account",
}

// SeedPasswords are the initial credentials per role; operators are expected
// to rotate them after first login.
var SeedPasswords = map[string]string{
	manifest.RoleAdmin:    "admin123",
	manifest.RoleReviewer: "reviewer123",
	manifest.RoleOperator: "operator123",
	manifest.RoleViewer:   "viewer123",
}

// Seeder provisions one default account per manifest role. Existing accounts
// are updated in place; their password is reset only when force is set.
type Seeder struct {
	repo        Repository
	hasher      *Hasher
	manifest    *manifest.Manifest
	auditLogger audit.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(repo Repository, hasher *Hasher, m *manifest.Manifest, auditLogger audit.Logger) *Seeder {
	return &Seeder{
		repo:        repo,
		hasher:      hasher,
		manifest:    m,
		auditLogger: auditLogger,
	}
}

// Seed upserts the default account for every role in the manifest.
func (s *Seeder) Seed(ctx context.Context, force bool) error {
	for _, role := range s.manifest.Roles() {
		if err := s.seedRole(ctx, role, force); err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role, err)
		}
	}
	return nil
}

func (s *Seeder) seedRole(ctx context.Context, role string, force bool) error {
	username, ok := seedUsername[role]
	if !ok {
		username = role + "_seed"
	}
	displayName, ok := seedDisplayName[role]
	if !ok {
		displayName = role + " default account"
	}
	password, ok := SeedPasswords[role]
	if !ok {
		password = role + "123"
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	// Hash before the transaction; only when a password will actually be set.
	var passwordHash string
	if existing == nil || force {
		passwordHash, err = s.hasher.Hash(password)
		if err != nil {
			return err
		}
	}

	created := false
	err = s.repo.InTx(ctx, func(tx Repository) error {
		cur, err := tx.GetByUsername(ctx, username)
		switch {
		case errors.Is(err, ErrNotFound):
			now := time.Now()
			created = true
			return tx.Create(ctx, &Account{
				ID:               id.NewUUIDv7(),
				Username:         username,
				DisplayName:      displayName,
				Role:             role,
				ExtraPermissions: nil,
				PasswordHash:     passwordHash,
				Email:            username + "@example.com",
				Enabled:          true,
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		case err != nil:
			return err
		}

		cur.DisplayName = displayName
		cur.Role = role
		cur.Enabled = true
		if force {
			cur.PasswordHash = passwordHash
		}
		cur.UpdatedAt = time.Now()
		return tx.Update(ctx, cur)
	})
	if err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSeedApplied,
		ActorID:  audit.ActorSystemSeed,
		Resource: username,
		Metadata: map[string]any{audit.AttrRole: role, "created": created, "rotated": force},
	})
	slog.InfoContext(ctx, "seeded account", "username", username, "role", role, "created", created)

	return nil
}
