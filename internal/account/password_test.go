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
)

func TestAccount_Hasher_RoundTrip(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)

	assert.True(t, h.Verify("correct-horse", hash))
	assert.False(t, h.Verify("battery-staple", hash))
}

func TestAccount_Hasher_DistinctSalts(t *testing.T) {
	h := NewHasher(4)

	h1, err := h.Hash("correct-horse")
	require.NoError(t, err)
	h2, err := h.Hash("correct-horse")
	require.NoError(t, err)

	// Salted: the same plaintext never yields the same stored form.
	assert.NotEqual(t, h1, h2)
	assert.True(t, h.Verify("correct-horse", h1))
	assert.True(t, h.Verify("correct-horse", h2))
}

func TestAccount_Hasher_RejectsEmptyPassword(t *testing.T) {
	h := NewHasher(4)

	_, err := h.Hash("")
	assert.Error(t, err)
}

func TestAccount_Hasher_CostFallback(t *testing.T) {
	// Out-of-range costs fall back to the baseline instead of failing.
	h := NewHasher(99)
	assert.Equal(t, DefaultBcryptCost, h.cost)

	h = NewHasher(0)
	assert.Equal(t, DefaultBcryptCost, h.cost)
}
