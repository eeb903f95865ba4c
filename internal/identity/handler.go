package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/transport"
	"github.com/roamplan/roamplan/pkg/logger"
)

type ServiceAPI interface {
	GetOrCreate(dto SessionDTO) (SessionResult, error)
	Clear(guestID string) error
	Authenticate(token string) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// StartSession handles POST /guest/session. An empty body creates a fresh
// identity; a body naming an existing identity resumes it.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var dto SessionDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.Logger.Error("StartSession: invalid request body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.Service.GetOrCreate(dto)
	if err != nil {
		switch err {
		case ErrBadSecret:
			h.WriteError(w, http.StatusUnauthorized, "guest secret does not match")
		default:
			h.HandleServiceError(w, err)
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ClearSession handles DELETE /guest/session on an authenticated session.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	guestID := internal.GuestIDFromContext(r.Context())
	if guestID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.Clear(guestID); err != nil {
		switch err {
		case ErrGuestNotFound:
			h.WriteError(w, http.StatusNotFound, "guest identity not found")
		default:
			h.HandleServiceError(w, err)
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// AuthMiddleware resolves the session token into a guest id on the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		guestID, err := h.Service.Authenticate(token)
		if err != nil {
			h.Logger.Warn("session authentication failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		ctx := internal.ContextWithGuestID(r.Context(), guestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
