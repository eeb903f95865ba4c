package expense

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/trip"
	"github.com/roamplan/roamplan/internal/transport"
	"github.com/roamplan/roamplan/pkg/logger"
)

type ServiceAPI interface {
	ListExpenses(tripID int64, guestID string) ([]Expense, error)
	AddExpense(ctx context.Context, tripID int64, guestID string, dto AddExpenseDTO) (ListResult, error)
	RemoveExpense(ctx context.Context, tripID int64, guestID, expenseID string) (ListResult, error)
	ReplaceExpenses(ctx context.Context, tripID int64, guestID string, dto ReplaceExpensesDTO) (ListResult, error)
	Summarize(tripID int64, guestID string) (Summary, error)
	Rates() StaticRateTable
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

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	expenses, err := h.Service.ListExpenses(tripID, guestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
	})
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	var dto AddExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("AddExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.AddExpense(r.Context(), tripID, guestID, dto)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) RemoveExpense(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	expenseID := chi.URLParam(r, "expenseID")
	if expenseID == "" {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	result, err := h.Service.RemoveExpense(r.Context(), tripID, guestID, expenseID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ReplaceExpenses(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	var dto ReplaceExpensesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ReplaceExpenses: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.ReplaceExpenses(r.Context(), tripID, guestID, dto)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	guestID, tripID, ok := h.tripRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.Summarize(tripID, guestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// GetCurrencies exposes the closed supported set the client may offer.
func (h *Handler) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"currencies": h.Service.Rates().SupportedCurrencies(),
		"categories": Categories(),
	})
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
	case trip.ErrTripNotFound:
		h.WriteError(w, http.StatusNotFound, "trip not found")
	case trip.ErrUnauthorizedAccess:
		h.WriteError(w, http.StatusForbidden, "trip belongs to another guest")
	case ErrExpenseNotFound:
		h.WriteError(w, http.StatusNotFound, "expense not found")
	case ErrDuplicateExpense:
		h.WriteError(w, http.StatusConflict, "expense with this id already exists")
	default:
		h.HandleServiceError(w, err)
	}
}
