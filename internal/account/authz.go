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
	"sort"

	"github.com/smartmatch/accountd/internal/manifest"
)

// EffectivePermissions computes the account's full capability set: the role
// baseline from the manifest union the individually granted extras,
// deduplicated and sorted. It is recomputed on every call so that role or
// grant changes are reflected immediately; nothing is cached.
func EffectivePermissions(m *manifest.Manifest, a *Account) []string {
	set := make(map[string]struct{})
	for _, p := range m.RolePermissions(a.Role) {
		set[p] = struct{}{}
	}
	for _, p := range a.ExtraPermissions {
		set[p] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Authorize reports whether the account's effective permission set contains
// the required permission. An unknown role contributes an empty baseline, so
// the check fails closed. An unknown permission is simply never satisfied.
func Authorize(m *manifest.Manifest, a *Account, required string) bool {
	for _, p := range m.RolePermissions(a.Role) {
		if p == required {
			return true
		}
	}
	for _, p := range a.ExtraPermissions {
		if p == required {
			return true
		}
	}
	return false
}
