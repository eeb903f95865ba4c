package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/transport"
	"github.com/roamplan/roamplan/pkg/logger"
)

type ClientAPI interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Client ClientAPI
}

func NewHandler(client ClientAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Client:      client,
	}
}

// Chat proxies one message to the external planning service on behalf of
// the authenticated guest.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	guestID := internal.GuestIDFromContext(r.Context())
	if guestID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("Chat: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		h.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}
	req.GuestID = guestID

	resp, err := h.Client.Chat(r.Context(), req)
	if err != nil {
		h.Logger.Error("Chat: assistant error", "error", err, "guest_id", guestID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
