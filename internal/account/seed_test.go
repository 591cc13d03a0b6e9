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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmatch/accountd/internal/audit"
	"github.com/smartmatch/accountd/internal/manifest"
)

func TestAccount_Seeder_Seed(t *testing.T) {
	repo := NewMockRepository()
	hasher := NewHasher(4)
	m := testManifest(t)
	seeder := NewSeeder(repo, hasher, m, audit.NewSlogLogger())
	ctx := context.Background()

	require.NoError(t, seeder.Seed(ctx, false))

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(m.Roles()), "one seed account per manifest role")

	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, manifest.RoleAdmin, admin.Role)
	assert.True(t, admin.Enabled)
	assert.True(t, admin.Protected())
	assert.True(t, hasher.Verify(SeedPasswords[manifest.RoleAdmin], admin.PasswordHash))
}

func TestAccount_Seeder_Idempotent(t *testing.T) {
	repo := NewMockRepository()
	hasher := NewHasher(4)
	seeder := NewSeeder(repo, hasher, testManifest(t), audit.NewSlogLogger())
	ctx := context.Background()

	require.NoError(t, seeder.Seed(ctx, false))
	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)

	// Simulate a rotated password; a plain re-seed must not reset it.
	rotated, err := hasher.Hash("rotated-pass")
	require.NoError(t, err)
	admin.PasswordHash = rotated
	require.NoError(t, repo.Update(ctx, admin))

	require.NoError(t, seeder.Seed(ctx, false))
	cur, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("rotated-pass", cur.PasswordHash))

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(testManifest(t).Roles()), "re-seed creates no duplicates")
}

func TestAccount_Seeder_ForceResetsPasswords(t *testing.T) {
	repo := NewMockRepository()
	hasher := NewHasher(4)
	seeder := NewSeeder(repo, hasher, testManifest(t), audit.NewSlogLogger())
	ctx := context.Background()

	require.NoError(t, seeder.Seed(ctx, false))
	admin, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	rotated, err := hasher.Hash("rotated-pass")
	require.NoError(t, err)
	admin.PasswordHash = rotated
	require.NoError(t, repo.Update(ctx, admin))

	require.NoError(t, seeder.Seed(ctx, true))
	cur, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, hasher.Verify(SeedPasswords[manifest.RoleAdmin], cur.PasswordHash))
}
