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

package http

import (
	"context"

	"github.com/smartmatch/accountd/internal/account"
)

type contextKey string

const callerKey contextKey = "caller"

// GetCaller retrieves the authenticated account from context.
func GetCaller(ctx context.Context) *account.Account {
	if a, ok := ctx.Value(callerKey).(*account.Account); ok {
		return a
	}
	return nil
}

// GetCallerID retrieves the authenticated account ID from context.
func GetCallerID(ctx context.Context) string {
	if a := GetCaller(ctx); a != nil {
		return a.ID
	}
	return ""
}
