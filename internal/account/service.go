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
	"time"

	"github.com/smartmatch/accountd/internal/audit"
	"github.com/smartmatch/accountd/internal/id"
	"github.com/smartmatch/accountd/internal/manifest"
)

// Service provides account lifecycle business logic. Every mutation runs
// inside a single repository transaction so that invariant checks (username
// uniqueness, administrator floor) and the persisted change take effect
// together or not at all.
type Service struct {
	repo               Repository
	hasher             *Hasher
	manifest           *manifest.Manifest
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
}

// NewService creates a new account service
func NewService(
	repo Repository,
	hasher *Hasher,
	m *manifest.Manifest,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	return &Service{
		repo:               repo,
		hasher:             hasher,
		manifest:           m,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
	}
}

// Manifest returns the loaded permission catalog the service validates against.
func (s *Service) Manifest() *manifest.Manifest {
	return s.manifest
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Username         string
	DisplayName      string
	Password         string
	Role             string
	Email            string
	Phone            string
	ExtraPermissions []string
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	DisplayName      *string
	Email            *string
	Phone            *string
	Role             *string
	ExtraPermissions *[]string
	Password         *string
}

func (p Patch) empty() bool {
	return p.DisplayName == nil && p.Email == nil && p.Phone == nil &&
		p.Role == nil && p.ExtraPermissions == nil && p.Password == nil
}

// List returns accounts matching the filter. Read-only.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Account, error) {
	return s.repo.List(ctx, filter)
}

// Get retrieves a single account by ID.
func (s *Service) Get(ctx context.Context, accountID string) (*Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// GetByUsername retrieves a single account by its unique username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return s.repo.GetByUsername(ctx, username)
}

// validatePermissions returns an InvalidPermissionError listing every
// requested identifier that is not in the manifest.
func (s *Service) validatePermissions(perms []string) error {
	var invalid []string
	for _, p := range perms {
		if !s.manifest.IsKnownPermission(p) {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		return &InvalidPermissionError{Permissions: invalid}
	}
	return nil
}

// Create provisions a new account. The account starts enabled, and the
// password is hashed before any storage interaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Account, error) {
	role := in.Role
	if role == "" {
		role = manifest.DefaultRole
	}
	if !s.manifest.IsKnownRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if err := s.validatePermissions(in.ExtraPermissions); err != nil {
		return nil, err
	}

	// Hash outside the transaction; the slow step must not hold a record lock.
	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := &Account{
		ID:               id.NewUUIDv7(),
		Username:         in.Username,
		DisplayName:      in.DisplayName,
		Role:             role,
		ExtraPermissions: in.ExtraPermissions,
		PasswordHash:     passwordHash,
		Email:            in.Email,
		Phone:            in.Phone,
		Enabled:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.GetByUsername(ctx, in.Username); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
		return tx.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		ActorID:  a.ID,
		Resource: a.Username,
		Metadata: map[string]any{audit.AttrRole: a.Role},
	})

	return a, nil
}

// Update applies a partial update. The account is resolved first, then every
// provided field is validated before any field is mutated; either the whole
// patch applies or none of it does.
func (s *Service) Update(ctx context.Context, accountID string, patch Patch) (*Account, error) {
	if _, err := s.repo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, ErrEmptyUpdate
	}
	if patch.Role != nil && !s.manifest.IsKnownRole(*patch.Role) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, *patch.Role)
	}
	if patch.ExtraPermissions != nil {
		if err := s.validatePermissions(*patch.ExtraPermissions); err != nil {
			return nil, err
		}
	}

	var passwordHash string
	if patch.Password != nil {
		var err error
		passwordHash, err = s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
	}

	var updated *Account
	err := s.repo.InTx(ctx, func(tx Repository) error {
		a, err := tx.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		if patch.DisplayName != nil {
			a.DisplayName = *patch.DisplayName
		}
		if patch.Email != nil {
			a.Email = *patch.Email
		}
		if patch.Phone != nil {
			a.Phone = *patch.Phone
		}
		if patch.Role != nil {
			a.Role = *patch.Role
		}
		if patch.ExtraPermissions != nil {
			a.ExtraPermissions = *patch.ExtraPermissions
		}
		if patch.Password != nil {
			// Replaces the stored credential only; lockout state is untouched.
			a.PasswordHash = passwordHash
		}
		a.UpdatedAt = time.Now()

		if err := tx.Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountUpdated,
		ActorID:  updated.ID,
		Resource: updated.Username,
		Metadata: map[string]any{audit.AttrRole: updated.Role},
	})
	if patch.Password != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePasswordChanged,
			ActorID:  updated.ID,
			Resource: updated.Username,
		})
	}

	return updated, nil
}

// SetEnabled transitions an account between enabled and disabled. Disabling
// the last enabled administrator is rejected; re-enabling clears the lockout
// bookkeeping.
func (s *Service) SetEnabled(ctx context.Context, accountID string, enabled bool) (*Account, error) {
	var updated *Account
	err := s.repo.InTx(ctx, func(tx Repository) error {
		a, err := tx.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		if !enabled && a.Enabled && a.Role == manifest.RoleAdmin {
			n, err := tx.CountEnabledByRole(ctx, manifest.RoleAdmin)
			if err != nil {
				return fmt.Errorf("failed to count enabled administrators: %w", err)
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}

		a.Enabled = enabled
		if enabled {
			a.LockedUntil = nil
			a.FailedLoginCount = 0
		}
		a.UpdatedAt = time.Now()

		if err := tx.Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := audit.TypeAccountDisabled
	if enabled {
		eventType = audit.TypeAccountEnabled
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  updated.ID,
		Resource: updated.Username,
		Metadata: map[string]any{audit.AttrEnabled: enabled},
	})

	return updated, nil
}

// Delete permanently removes an account. Reserved usernames can never be
// deleted, and the administrator floor counts every admin account, enabled
// or not.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	var deleted *Account
	err := s.repo.InTx(ctx, func(tx Repository) error {
		a, err := tx.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if a.Protected() {
			return ErrProtectedAccount
		}
		if a.Role == manifest.RoleAdmin {
			n, err := tx.CountByRole(ctx, manifest.RoleAdmin)
			if err != nil {
				return fmt.Errorf("failed to count administrators: %w", err)
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}
		if err := tx.Delete(ctx, a.ID); err != nil {
			return err
		}
		deleted = a
		return nil
	})
	if err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountDeleted,
		ActorID:  deleted.ID,
		Resource: deleted.Username,
		Metadata: map[string]any{audit.AttrRole: deleted.Role},
	})

	return nil
}

// Authenticate verifies a username/password pair, maintaining the lockout
// bookkeeping. The bcrypt comparison happens outside the record transaction.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Account, error) {
	a, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: username,
			Metadata: map[string]any{audit.AttrReason: "account_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if !a.Enabled {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  a.ID,
			Resource: username,
			Metadata: map[string]any{audit.AttrReason: "account_disabled"},
		})
		return nil, ErrAccountDisabled
	}

	if a.LockedUntil != nil && a.LockedUntil.After(time.Now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  a.ID,
			Resource: username,
			Metadata: map[string]any{audit.AttrReason: "locked_out"},
		})
		return nil, ErrAccountLocked
	}

	if !s.hasher.Verify(password, a.PasswordHash) {
		var attempts int
		err := s.repo.InTx(ctx, func(tx Repository) error {
			cur, err := tx.GetByID(ctx, a.ID)
			if err != nil {
				return err
			}
			cur.FailedLoginCount++
			attempts = cur.FailedLoginCount
			if cur.FailedLoginCount >= s.lockoutMaxAttempts {
				until := time.Now().Add(s.lockoutDuration)
				cur.LockedUntil = &until
			}
			cur.UpdatedAt = time.Now()
			return tx.Update(ctx, cur)
		})
		if err == nil && attempts >= s.lockoutMaxAttempts {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeAccountLocked,
				ActorID:  a.ID,
				Resource: username,
				Metadata: map[string]any{audit.AttrAttempts: attempts},
			})
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  a.ID,
			Resource: username,
			Metadata: map[string]any{audit.AttrReason: "invalid_password", audit.AttrAttempts: attempts},
		})
		return nil, ErrInvalidCredentials
	}

	err = s.repo.InTx(ctx, func(tx Repository) error {
		cur, err := tx.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		cur.FailedLoginCount = 0
		cur.LockedUntil = nil
		cur.LastLoginAt = &now
		cur.UpdatedAt = now
		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		a = cur
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  a.ID,
		Resource: username,
	})

	return a, nil
}
