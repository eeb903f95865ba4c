package trip

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/transport"
	"github.com/roamplan/roamplan/pkg/logger"
)

type ServiceAPI interface {
	CreateTrip(guestID string, dto CreateTripDTO) (*Trip, error)
	GetTrip(id int64, guestID string) (*Trip, error)
	ListTrips(guestID string, limit, offset int) ([]*Trip, error)
	UpdateTrip(id int64, guestID string, dto UpdateTripDTO) (*Trip, error)
	PatchMetadata(id int64, guestID string, dto MetadataPatchDTO) (*Trip, error)
	UpdateNotes(id int64, guestID string, dto NotesDTO) (*Trip, error)
	TripPhase(id int64, guestID string) (PhaseInfo, error)
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

func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	guestID := internal.GuestIDFromContext(r.Context())
	if guestID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTripDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTrip: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.CreateTrip(guestID, dto)
	if err != nil {
		h.Logger.Error("CreateTrip: service error", "error", err, "guest_id", guestID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	t, err := h.Service.GetTrip(tripID, guestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	guestID := internal.GuestIDFromContext(r.Context())
	if guestID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 20
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	trips, err := h.Service.ListTrips(guestID, limit, offset)
	if err != nil {
		h.Logger.Error("ListTrips: service error", "error", err, "guest_id", guestID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list trips")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trips":  trips,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	var dto UpdateTripDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateTrip: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.UpdateTrip(tripID, guestID, dto)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) PatchMetadata(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	var dto MetadataPatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("PatchMetadata: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.PatchMetadata(tripID, guestID, dto)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	var dto NotesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateNotes: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.UpdateNotes(tripID, guestID, dto)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) GetTripPhase(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	phase, err := h.Service.TripPhase(tripID, guestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, phase)
}

func (h *Handler) tripRequest(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	guestID := internal.GuestIDFromContext(r.Context())
	if guestID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return "", 0, false
	}

	tripIDStr := chi.URLParam(r, "id")
	tripID, err := strconv.ParseInt(tripIDStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid trip ID", "id", tripIDStr)
		h.WriteError(w, http.StatusBadRequest, "invalid trip ID")
		return "", 0, false
	}

	return guestID, tripID, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case ErrTripNotFound:
		h.WriteError(w, http.StatusNotFound, "trip not found")
	case ErrUnauthorizedAccess:
		h.WriteError(w, http.StatusForbidden, "trip belongs to another guest")
	default:
		h.HandleServiceError(w, err)
	}
}
