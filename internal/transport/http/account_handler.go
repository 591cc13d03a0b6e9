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
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartmatch/accountd/internal/account"
)

// AccountResponse is the wire representation of an account. Permissions are
// the effective set (role baseline plus extra grants); the password hash and
// lockout bookkeeping never leave the service.
type AccountResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      string     `json:"status"`
	IsProtected bool       `json:"isProtected"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (h *Handler) serializeAccount(a *account.Account) AccountResponse {
	status := "inactive"
	if a.Enabled {
		status = "active"
	}
	return AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Name:        a.DisplayName,
		Role:        a.Role,
		Permissions: account.EffectivePermissions(h.accountService.Manifest(), a),
		Email:       a.Email,
		Phone:       a.Phone,
		Status:      status,
		IsProtected: a.Protected(),
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (h *Handler) serializeAccounts(accounts []*account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, h.serializeAccount(a))
	}
	return out
}

// ListAccounts returns accounts matching the optional status, role and
// search query parameters
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := account.Filter{
		Role:   r.URL.Query().Get("role"),
		Search: r.URL.Query().Get("search"),
	}
	switch r.URL.Query().Get("status") {
	case "active":
		enabled := true
		filter.Enabled = &enabled
	case "inactive":
		enabled := false
		filter.Enabled = &enabled
	}

	accounts, err := h.accountService.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, h.serializeAccounts(accounts))
}

// GetAccount returns a single account by ID
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.accountService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, h.serializeAccount(a))
}

// CreateAccountRequest represents new account data. Permissions are extra
// grants on top of the role baseline.
type CreateAccountRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Permissions []string `json:"permissions"`
}

// CreateAccount creates a new enabled account
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	a, err := h.accountService.Create(r.Context(), account.CreateInput{
		Username:         req.Username,
		DisplayName:      req.Name,
		Password:         req.Password,
		Role:             req.Role,
		Email:            req.Email,
		Phone:            req.Phone,
		ExtraPermissions: req.Permissions,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusCreated, h.serializeAccount(a))
}

// UpdateAccountRequest represents a partial account update. Absent fields
// are left unchanged; a present permissions field replaces the extra grants.
type UpdateAccountRequest struct {
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
	Password    *string   `json:"password"`
}

// UpdateAccount applies a partial update to an account
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An empty password means "keep the current credential", not "set an
	// empty one"; the rest of the patch still applies.
	if req.Password != nil && *req.Password == "" {
		req.Password = nil
	}

	a, err := h.accountService.Update(r.Context(), chi.URLParam(r, "id"), account.Patch{
		DisplayName:      req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Role:             req.Role,
		ExtraPermissions: req.Permissions,
		Password:         req.Password,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, h.serializeAccount(a))
}

// StatusRequest toggles an account between active and inactive
type StatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// UpdateAccountStatus enables or disables an account
func (h *Handler) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		respondError(w, http.StatusBadRequest, "isActive is required")
		return
	}

	a, err := h.accountService.SetEnabled(r.Context(), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, h.serializeAccount(a))
}

// DeleteAccount permanently removes an account
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accountService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{
		"message": "account deleted",
	})
}
