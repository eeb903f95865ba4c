package expense

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roamplan/roamplan/internal/core/events"
	"github.com/roamplan/roamplan/internal/optimistic"
	"github.com/roamplan/roamplan/internal/trip"
)

// TripStore is the slice of the trip repository the expense service needs:
// reading a trip and replacing its metadata bag. Satisfied by
// trip/postgres.TripRepository.
type TripStore interface {
	GetByID(id int64) (*trip.Trip, error)
	UpdateMetadata(id int64, metadata []byte) error
}

// ListResult is an expense list together with the persistence status of the
// mutation that produced it. On failure Expenses holds the restored
// pre-mutation list.
type ListResult struct {
	Expenses  []Expense            `json:"expenses"`
	SaveState optimistic.SaveState `json:"save_state"`
}

// Service owns expense list edits. Every mutation follows the optimistic
// pattern: the new list is computed first, persistence is attempted as a full
// replacement of trip_metadata.expenses, and on failure the prior list is the
// one handed back.
type Service struct {
	store  TripStore
	rates  StaticRateTable
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	mutators map[int64]*optimistic.Mutator[[]Expense]
}

func NewService(store TripStore, rates StaticRateTable, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		rates:    rates,
		bus:      bus,
		logger:   logger,
		now:      time.Now,
		mutators: make(map[int64]*optimistic.Mutator[[]Expense]),
	}
}

// mutatorFor returns the mutator guarding one trip's expense list, seeded
// from the stored list on first use. Edits on the same trip must share a
// mutator so in-flight saves sequence against each other.
func (s *Service) mutatorFor(t *trip.Trip) *optimistic.Mutator[[]Expense] {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mutators[t.ID]
	if !ok {
		m = optimistic.NewMutator(decodeList(t.Metadata.Expenses))
		s.mutators[t.ID] = m
	}
	return m
}

// WithClock replaces the wall clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Rates exposes the injected conversion table.
func (s *Service) Rates() StaticRateTable {
	return s.rates
}

func (s *Service) ListExpenses(tripID int64, guestID string) ([]Expense, error) {
	t, err := s.ownedTrip(tripID, guestID)
	if err != nil {
		return nil, err
	}
	return decodeList(t.Metadata.Expenses), nil
}

// AddExpense appends one validated entry to the trip's list.
func (s *Service) AddExpense(ctx context.Context, tripID int64, guestID string, dto AddExpenseDTO) (ListResult, error) {
	if err := dto.Validate(s.rates); err != nil {
		s.logger.Error("expense validation failed", "error", err, "trip_id", tripID)
		return ListResult{}, err
	}

	t, err := s.ownedTrip(tripID, guestID)
	if err != nil {
		return ListResult{}, err
	}

	current, _ := s.mutatorFor(t).Current()

	id := dto.ID
	if id == "" {
		id = uuid.NewString()
	}
	for _, e := range current {
		if e.ID == id {
			return ListResult{}, ErrDuplicateExpense
		}
	}

	entry := Expense{
		ID:          id,
		Amount:      dto.Amount,
		Currency:    dto.Currency,
		Category:    dto.Category,
		Description: dto.Description,
		Date:        dto.Date,
		CreatedAt:   s.now(),
	}

	return s.mutate(ctx, t, func(list []Expense) []Expense {
		return append(list, entry)
	})
}

// RemoveExpense deletes an entry by id. The removal is applied locally
// first; if persistence fails the returned list contains the entry again.
func (s *Service) RemoveExpense(ctx context.Context, tripID int64, guestID, expenseID string) (ListResult, error) {
	t, err := s.ownedTrip(tripID, guestID)
	if err != nil {
		return ListResult{}, err
	}

	current, _ := s.mutatorFor(t).Current()

	found := false
	for _, e := range current {
		if e.ID == expenseID {
			found = true
			break
		}
	}
	if !found {
		return ListResult{}, ErrExpenseNotFound
	}

	return s.mutate(ctx, t, func(list []Expense) []Expense {
		out := make([]Expense, 0, len(list)-1)
		for _, e := range list {
			if e.ID != expenseID {
				out = append(out, e)
			}
		}
		return out
	})
}

// ReplaceExpenses swaps in a whole new list, the persistence shape the
// client uses after a batch of local edits.
func (s *Service) ReplaceExpenses(ctx context.Context, tripID int64, guestID string, dto ReplaceExpensesDTO) (ListResult, error) {
	if err := dto.Validate(s.rates); err != nil {
		s.logger.Error("expense list validation failed", "error", err, "trip_id", tripID)
		return ListResult{}, err
	}

	t, err := s.ownedTrip(tripID, guestID)
	if err != nil {
		return ListResult{}, err
	}

	current, _ := s.mutatorFor(t).Current()
	firstSeen := make(map[string]time.Time, len(current))
	for _, e := range current {
		firstSeen[e.ID] = e.CreatedAt
	}

	now := s.now()
	next := make([]Expense, 0, len(dto.Expenses))
	for _, e := range dto.Expenses {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		// entries surviving the replacement keep their original created_at
		createdAt, ok := firstSeen[id]
		if !ok {
			createdAt = now
		}
		next = append(next, Expense{
			ID:          id,
			Amount:      e.Amount,
			Currency:    e.Currency,
			Category:    e.Category,
			Description: e.Description,
			Date:        e.Date,
			CreatedAt:   createdAt,
		})
	}

	return s.mutate(ctx, t, func([]Expense) []Expense {
		return next
	})
}

// Summarize recomputes the USD aggregates from the stored list. Nothing is
// cached; the summary cannot drift from the entries.
func (s *Service) Summarize(tripID int64, guestID string) (Summary, error) {
	t, err := s.ownedTrip(tripID, guestID)
	if err != nil {
		return Summary{}, err
	}
	return Aggregate(decodeList(t.Metadata.Expenses), s.rates, t.Budget)
}

func (s *Service) mutate(ctx context.Context, t *trip.Trip, change func([]Expense) []Expense) (ListResult, error) {
	mutator := s.mutatorFor(t)

	result := mutator.Apply(ctx, change, func(ctx context.Context, next []Expense) error {
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		merged := t.Metadata.Merge(trip.Metadata{Expenses: raw})
		payload, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return s.store.UpdateMetadata(t.ID, payload)
	})

	if result.Err != nil {
		s.logger.Error("expense persistence failed",
			"trip_id", t.ID,
			"save_state", result.State,
			"error", result.Err)
		return ListResult{Expenses: result.Value, SaveState: result.State}, result.Err
	}

	s.publish(events.NewTripEvent(events.ExpenseListReplaced, t.ID, map[string]interface{}{
		"count": len(result.Value),
	}))

	return ListResult{Expenses: result.Value, SaveState: result.State}, nil
}

func (s *Service) ownedTrip(tripID int64, guestID string) (*trip.Trip, error) {
	t, err := s.store.GetByID(tripID)
	if err != nil {
		return nil, trip.ErrTripNotFound
	}
	if t.GuestID != guestID {
		s.logger.Warn("unauthorized access to trip expenses", "trip_id", tripID, "guest_id", guestID)
		return nil, trip.ErrUnauthorizedAccess
	}
	return t, nil
}

func (s *Service) publish(event events.BaseEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish expense event", "error", err)
	}
}

func decodeList(raw json.RawMessage) []Expense {
	if len(raw) == 0 {
		return []Expense{}
	}
	var list []Expense
	if err := json.Unmarshal(raw, &list); err != nil {
		// malformed stored state degrades to an empty list rather than failing
		return []Expense{}
	}
	return list
}
