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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmatch/accountd/internal/manifest"
)

func scenarioManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(`{
		"permissions": {
			"user.manage": "Manage accounts",
			"report.view": "View reports"
		},
		"roles": {
			"admin": ["user.manage", "report.view"],
			"viewer": ["report.view"]
		}
	}`))
	require.NoError(t, err)
	return m
}

func TestAccount_EffectivePermissions(t *testing.T) {
	m := scenarioManifest(t)

	alice := &Account{Username: "alice", Role: "viewer"}
	assert.Equal(t, []string{"report.view"}, EffectivePermissions(m, alice))

	// An extra grant joins the role baseline; duplicates collapse.
	alice.ExtraPermissions = []string{"user.manage", "report.view"}
	assert.Equal(t, []string{"report.view", "user.manage"}, EffectivePermissions(m, alice))
}

func TestAccount_EffectivePermissions_SupersetOfBaseline(t *testing.T) {
	m := testManifest(t)

	for _, role := range m.Roles() {
		a := &Account{Username: "probe", Role: role, ExtraPermissions: []string{"audit.view"}}
		effective := EffectivePermissions(m, a)

		set := make(map[string]bool, len(effective))
		for _, p := range effective {
			set[p] = true
		}
		for _, p := range m.RolePermissions(role) {
			assert.True(t, set[p], "role %s baseline permission %s missing from effective set", role, p)
		}
		for _, p := range effective {
			assert.True(t, m.IsKnownPermission(p), "effective set contains unknown permission %s", p)
		}
	}
}

func TestAccount_Authorize(t *testing.T) {
	m := scenarioManifest(t)

	alice := &Account{Username: "alice", Role: "viewer"}
	assert.True(t, Authorize(m, alice, "report.view"))
	assert.False(t, Authorize(m, alice, "user.manage"))

	// Granting the extra permission flips the decision immediately; the
	// effective set is recomputed on every call, never cached.
	alice.ExtraPermissions = []string{"user.manage"}
	assert.True(t, Authorize(m, alice, "user.manage"))
}

func TestAccount_Authorize_FailsClosed(t *testing.T) {
	m := scenarioManifest(t)

	// Unknown role yields an empty baseline, not an error.
	ghost := &Account{Username: "ghost", Role: "nonexistent"}
	assert.Empty(t, EffectivePermissions(m, ghost))
	assert.False(t, Authorize(m, ghost, "report.view"))

	// An unknown permission can simply never be satisfied.
	admin := &Account{Username: "root", Role: "admin"}
	assert.False(t, Authorize(m, admin, "no.such.permission"))
}
