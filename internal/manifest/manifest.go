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

// Package manifest holds the static permission catalog: the set of known
// permission identifiers and the baseline permission set of every role.
// The manifest is loaded exactly once at process start and is immutable
// afterwards; a malformed manifest prevents the process from starting.
package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed permissions.json
var defaultManifest []byte

// Well-known role identifiers from the default catalog.
const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// DefaultRole is assigned when an account is created without an explicit role.
const DefaultRole = RoleOperator

// PermUserManage gates every account management operation.
const PermUserManage = "user.manage"

// document is the on-disk manifest shape.
type document struct {
	Permissions map[string]string   `json:"permissions"`
	Roles       map[string][]string `json:"roles"`
}

// Manifest is the loaded, validated permission catalog. All methods are pure
// reads over immutable state; Manifest values are safe for concurrent use.
type Manifest struct {
	permissions map[string]string
	roles       map[string][]string
}

// Load reads and validates a manifest from path. An empty path loads the
// embedded default catalog.
func Load(path string) (*Manifest, error) {
	raw := defaultManifest
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}
	}
	return Parse(raw)
}

// Parse validates a raw manifest document.
func Parse(raw []byte) (*Manifest, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("malformed manifest: %w", err)
	}
	if len(doc.Permissions) == 0 {
		return nil, fmt.Errorf("malformed manifest: no permissions defined")
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("malformed manifest: no roles defined")
	}

	roles := make(map[string][]string, len(doc.Roles))
	for role, perms := range doc.Roles {
		seen := make(map[string]struct{}, len(perms))
		baseline := make([]string, 0, len(perms))
		for _, p := range perms {
			if _, known := doc.Permissions[p]; !known {
				return nil, fmt.Errorf("role %s references unknown permission %s", role, p)
			}
			if _, dup := seen[p]; dup {
				return nil, fmt.Errorf("role %s lists permission %s more than once", role, p)
			}
			seen[p] = struct{}{}
			baseline = append(baseline, p)
		}
		roles[role] = baseline
	}

	return &Manifest{
		permissions: doc.Permissions,
		roles:       roles,
	}, nil
}

// Permissions returns all known permission identifiers, sorted.
func (m *Manifest) Permissions() []string {
	out := make([]string, 0, len(m.permissions))
	for p := range m.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Describe returns the human description of a permission, empty if unknown.
func (m *Manifest) Describe(permission string) string {
	return m.permissions[permission]
}

// Roles returns all known role identifiers, sorted.
func (m *Manifest) Roles() []string {
	out := make([]string, 0, len(m.roles))
	for r := range m.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// RolePermissions returns a copy of the baseline permission set for a role.
// An unknown role yields an empty set, never an error.
func (m *Manifest) RolePermissions(role string) []string {
	baseline, ok := m.roles[role]
	if !ok {
		return nil
	}
	out := make([]string, len(baseline))
	copy(out, baseline)
	return out
}

// IsKnownPermission reports whether the permission exists in the catalog.
func (m *Manifest) IsKnownPermission(permission string) bool {
	_, ok := m.permissions[permission]
	return ok
}

// IsKnownRole reports whether the role exists in the catalog.
func (m *Manifest) IsKnownRole(role string) bool {
	_, ok := m.roles[role]
	return ok
}
