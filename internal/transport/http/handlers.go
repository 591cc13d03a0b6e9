package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/smartmatch/accountd/internal/account"
	"github.com/smartmatch/accountd/internal/audit"
	"github.com/smartmatch/accountd/internal/manifest"
	"github.com/smartmatch/accountd/internal/observability/logger"
	"github.com/smartmatch/accountd/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	accountService *account.Service
	tokenService   *token.Service
	auditLogger    audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	accountService *account.Service,
	tokenService *token.Service,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		accountService: accountService,
		tokenService:   tokenService,
		auditLogger:    auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.CurrentAccount)

			// Account administration
			r.Route("/users", func(r chi.Router) {
				r.Use(h.RequirePermission(manifest.PermUserManage))

				r.Get("/", h.ListAccounts)
				r.Post("/", h.CreateAccount)
				r.Get("/{id}", h.GetAccount)
				r.Put("/{id}", h.UpdateAccount)
				r.Patch("/{id}/status", h.UpdateAccountStatus)
				r.Delete("/{id}", h.DeleteAccount)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "accountd",
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	acct, err := h.accountService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountDisabled):
			respondError(w, http.StatusForbidden, "account is disabled")
		case errors.Is(err, account.ErrAccountLocked):
			respondError(w, http.StatusLocked, "account is temporarily locked")
		case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrNotFound):
			respondError(w, http.StatusUnauthorized, "invalid username or password")
		default:
			slog.ErrorContext(r.Context(), "authentication failed",
				logger.Error(err),
				logger.Username(req.Username),
			)
			respondError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	tokenString, err := h.tokenService.Issue(acct.ID, acct.Username, acct.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token",
			logger.Error(err),
			logger.AccountID(acct.ID),
		)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTokenIssued,
		ActorID:   acct.ID,
		Resource:  "token",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{audit.AttrUsername: acct.Username, audit.AttrRole: acct.Role},
	})

	respondData(w, http.StatusOK, map[string]any{
		"token": tokenString,
		"user":  h.serializeAccount(acct),
	})
}

// CurrentAccount returns the authenticated caller's account
func (h *Handler) CurrentAccount(w http.ResponseWriter, r *http.Request) {
	caller := GetCaller(r.Context())
	if caller == nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondData(w, http.StatusOK, h.serializeAccount(caller))
}

// respondServiceError maps account service errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	var invalidPerms *account.InvalidPermissionError
	switch {
	case errors.Is(err, account.ErrNotFound):
		respondError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrDuplicateUsername):
		respondError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, account.ErrUnknownRole):
		respondError(w, http.StatusBadRequest, "unknown role")
	case errors.As(err, &invalidPerms):
		respondError(w, http.StatusBadRequest,
			"unknown permissions: "+strings.Join(invalidPerms.Permissions, ", "))
	case errors.Is(err, account.ErrEmptyUpdate):
		respondError(w, http.StatusBadRequest, "no fields to update")
	case errors.Is(err, account.ErrProtectedAccount):
		respondError(w, http.StatusBadRequest, "account is protected")
	case errors.Is(err, account.ErrLastAdmin):
		respondError(w, http.StatusBadRequest, "cannot remove the last active administrator")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
