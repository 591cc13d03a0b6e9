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
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound           = errors.New("account not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrUnknownRole        = errors.New("unknown role")
	ErrEmptyUpdate        = errors.New("update contains no fields")
	ErrProtectedAccount   = errors.New("protected account cannot be deleted")
	ErrLastAdmin          = errors.New("at least one administrator account must remain")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountLocked      = errors.New("account is locked")
)

// ErrInvalidPermission is the matching target for InvalidPermissionError.
var ErrInvalidPermission = errors.New("invalid permission")

// InvalidPermissionError reports which requested permission identifiers are
// not part of the loaded manifest.
type InvalidPermissionError struct {
	Permissions []string
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("invalid permissions: %s", strings.Join(e.Permissions, ", "))
}

// Is makes errors.Is(err, ErrInvalidPermission) work for callers that do not
// care about the offending identifiers.
func (e *InvalidPermissionError) Is(target error) bool {
	return target == ErrInvalidPermission
}

// ProtectedUsernames are seeded at install time and can never be deleted,
// independent of role.
var ProtectedUsernames = []string{"admin", "system"}

// Account represents an administrative account. The stored password hash is
// excluded from every JSON rendering.
type Account struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	DisplayName      string     `json:"name"`
	Role             string     `json:"role"`
	ExtraPermissions []string   `json:"-"`
	PasswordHash     string     `json:"-"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Enabled          bool       `json:"enabled"`
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Protected reports whether the account's username is reserved.
func (a *Account) Protected() bool {
	for _, name := range ProtectedUsernames {
		if a.Username == name {
			return true
		}
	}
	return false
}

// Filter narrows a List call. Zero-valued fields are ignored.
type Filter struct {
	// Enabled filters by lifecycle state when non-nil.
	Enabled *bool
	// Role filters by exact role identifier.
	Role string
	// Search matches a case-insensitive substring over username, display
	// name, email and phone.
	Search string
}

// Matches reports whether the account satisfies the filter. Storage backends
// may push the filter into their query instead of calling this.
func (f Filter) Matches(a *Account) bool {
	if f.Enabled != nil && a.Enabled != *f.Enabled {
		return false
	}
	if f.Role != "" && a.Role != f.Role {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		haystacks := []string{a.Username, a.DisplayName, a.Email, a.Phone}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Repository defines the persistence contract for accounts. Implementations
// must make InTx run fn against a transaction-scoped Repository so that a
// mutation's invariant checks and its write observe one consistent snapshot;
// concurrent mutations of the same account are serialized by the transaction.
type Repository interface {
	// GetByID retrieves an account by its identifier.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByUsername retrieves an account by its unique username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// List retrieves accounts matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Account, error)

	// Create persists a new account.
	Create(ctx context.Context, a *Account) error

	// Update persists every mutable field of an existing account.
	Update(ctx context.Context, a *Account) error

	// Delete permanently removes an account.
	Delete(ctx context.Context, id string) error

	// CountByRole counts all accounts with the role, enabled or not.
	CountByRole(ctx context.Context, role string) (int, error)

	// CountEnabledByRole counts enabled accounts with the role.
	CountEnabledByRole(ctx context.Context, role string) (int, error)

	// InTx runs fn inside a single transaction.
	InTx(ctx context.Context, fn func(Repository) error) error
}
