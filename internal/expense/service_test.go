package expense_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/roamplan/roamplan/internal/expense"
	"github.com/roamplan/roamplan/internal/optimistic"
	"github.com/roamplan/roamplan/internal/trip"
)

// Mock trip store for testing
type mockTripStore struct {
	trips       map[int64]*trip.Trip
	updateError error
	updateFunc  func(id int64, metadata []byte) error
	updates     int
}

func newMockTripStore() *mockTripStore {
	return &mockTripStore{trips: make(map[int64]*trip.Trip)}
}

func (m *mockTripStore) GetByID(id int64) (*trip.Trip, error) {
	t, ok := m.trips[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	// hand out a copy so service-side mutations go through UpdateMetadata
	clone := *t
	return &clone, nil
}

func (m *mockTripStore) UpdateMetadata(id int64, metadata []byte) error {
	if m.updateFunc != nil {
		if err := m.updateFunc(id, metadata); err != nil {
			return err
		}
	}
	if m.updateError != nil {
		return m.updateError
	}
	t, ok := m.trips[id]
	if !ok {
		return trip.ErrTripNotFound
	}
	var bag trip.Metadata
	if err := json.Unmarshal(metadata, &bag); err != nil {
		return err
	}
	t.Metadata = bag
	m.updates++
	return nil
}

func (m *mockTripStore) storedExpenses(id int64) []expense.Expense {
	var list []expense.Expense
	raw := m.trips[id].Metadata.Expenses
	if len(raw) > 0 {
		Expect(json.Unmarshal(raw, &list)).To(Succeed())
	}
	return list
}

var _ = Describe("ExpenseService", func() {
	var (
		store   *mockTripStore
		service *expense.Service
		ctx     context.Context
	)

	const guestID = "guest-1"
	const tripID = int64(7)

	seedTrip := func(budget *float64, expenses []expense.Expense) {
		t := &trip.Trip{
			ID:          tripID,
			GuestID:     guestID,
			Destination: "Singapore",
			Status:      trip.StatusBooked,
			Budget:      budget,
		}
		if expenses != nil {
			raw, err := json.Marshal(expenses)
			Expect(err).NotTo(HaveOccurred())
			t.Metadata.Expenses = raw
		}
		store.trips[tripID] = t
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockTripStore()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = expense.NewService(store, expense.DefaultRates(), nil, logger)
		service.WithClock(func() time.Time {
			return time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
		})
	})

	Describe("AddExpense", func() {
		Context("when the payload is valid", func() {
			It("should append the entry and persist the new list", func() {
				seedTrip(nil, nil)

				result, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					Amount:      42.5,
					Currency:    "SGD",
					Category:    expense.CategoryFood,
					Description: "chicken rice",
					Date:        "2026-03-12",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(result.SaveState).To(Equal(optimistic.StateSaved))
				Expect(result.Expenses).To(HaveLen(1))
				Expect(result.Expenses[0].ID).NotTo(BeEmpty())
				Expect(store.storedExpenses(tripID)).To(HaveLen(1))
			})

			It("should keep the client-supplied id when one is given", func() {
				seedTrip(nil, nil)

				result, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					ID:          "client-id-1",
					Amount:      10,
					Currency:    "USD",
					Category:    expense.CategoryTransport,
					Description: "mrt",
					Date:        "2026-03-12",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Expenses[0].ID).To(Equal("client-id-1"))
			})
		})

		Context("when the id already exists in the list", func() {
			It("should reject the duplicate", func() {
				seedTrip(nil, []expense.Expense{{ID: "dup", Amount: 5, Currency: "USD", Category: expense.CategoryFood}})

				_, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					ID:          "dup",
					Amount:      10,
					Currency:    "USD",
					Category:    expense.CategoryFood,
					Description: "again",
					Date:        "2026-03-12",
				})

				Expect(err).To(MatchError(expense.ErrDuplicateExpense))
			})
		})

		Context("when validation fails", func() {
			It("should reject a non-positive amount", func() {
				seedTrip(nil, nil)

				_, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					Amount:      0,
					Currency:    "USD",
					Category:    expense.CategoryFood,
					Description: "free lunch",
					Date:        "2026-03-12",
				})

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("amount"))
			})

			It("should reject an unsupported currency", func() {
				seedTrip(nil, nil)

				_, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					Amount:      10,
					Currency:    "XXX",
					Category:    expense.CategoryFood,
					Description: "mystery money",
					Date:        "2026-03-12",
				})

				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not supported"))
			})
		})

		Context("when the trip belongs to another guest", func() {
			It("should refuse access", func() {
				seedTrip(nil, nil)

				_, err := service.AddExpense(ctx, tripID, "someone-else", expense.AddExpenseDTO{
					Amount:      10,
					Currency:    "USD",
					Category:    expense.CategoryFood,
					Description: "lunch",
					Date:        "2026-03-12",
				})

				Expect(err).To(MatchError(trip.ErrUnauthorizedAccess))
			})
		})
	})

	Describe("RemoveExpense", func() {
		Context("when persistence succeeds", func() {
			It("should return the list without the entry", func() {
				seedTrip(nil, []expense.Expense{
					{ID: "a", Amount: 5, Currency: "USD", Category: expense.CategoryFood},
					{ID: "b", Amount: 7, Currency: "USD", Category: expense.CategoryFood},
				})

				result, err := service.RemoveExpense(ctx, tripID, guestID, "a")

				Expect(err).NotTo(HaveOccurred())
				Expect(result.SaveState).To(Equal(optimistic.StateSaved))
				Expect(result.Expenses).To(HaveLen(1))
				Expect(result.Expenses[0].ID).To(Equal("b"))
				Expect(store.storedExpenses(tripID)).To(HaveLen(1))
			})
		})

		Context("when persistence fails", func() {
			It("should roll back and hand the original list back", func() {
				seedTrip(nil, []expense.Expense{
					{ID: "a", Amount: 5, Currency: "USD", Category: expense.CategoryFood},
				})
				store.updateError = errors.New("connection reset")

				result, err := service.RemoveExpense(ctx, tripID, guestID, "a")

				Expect(err).To(HaveOccurred())
				Expect(result.SaveState).To(Equal(optimistic.StateError))
				Expect(result.Expenses).To(HaveLen(1))
				Expect(result.Expenses[0].ID).To(Equal("a"))
				Expect(store.storedExpenses(tripID)).To(HaveLen(1))
			})
		})

		Context("when the entry does not exist", func() {
			It("should return not found without touching storage", func() {
				seedTrip(nil, []expense.Expense{
					{ID: "a", Amount: 5, Currency: "USD", Category: expense.CategoryFood},
				})

				_, err := service.RemoveExpense(ctx, tripID, guestID, "missing")

				Expect(err).To(MatchError(expense.ErrExpenseNotFound))
				Expect(store.updates).To(BeZero())
			})
		})
	})

	Describe("ReplaceExpenses", func() {
		It("should swap in the new list wholesale", func() {
			seedTrip(nil, []expense.Expense{
				{ID: "old", Amount: 5, Currency: "USD", Category: expense.CategoryFood},
			})

			result, err := service.ReplaceExpenses(ctx, tripID, guestID, expense.ReplaceExpensesDTO{
				Expenses: []expense.AddExpenseDTO{
					{ID: "x", Amount: 10, Currency: "USD", Category: expense.CategoryFood, Description: "breakfast", Date: "2026-03-12"},
					{ID: "y", Amount: 20, Currency: "SGD", Category: expense.CategoryTransport, Description: "taxi", Date: "2026-03-12"},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expenses).To(HaveLen(2))
			stored := store.storedExpenses(tripID)
			Expect(stored).To(HaveLen(2))
			Expect(stored[0].ID).To(Equal("x"))
		})

		It("should keep the original created_at on entries that survive the replacement", func() {
			firstSeen := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
			seedTrip(nil, []expense.Expense{
				{ID: "keep", Amount: 5, Currency: "USD", Category: expense.CategoryFood, CreatedAt: firstSeen},
			})

			result, err := service.ReplaceExpenses(ctx, tripID, guestID, expense.ReplaceExpensesDTO{
				Expenses: []expense.AddExpenseDTO{
					{ID: "keep", Amount: 8, Currency: "USD", Category: expense.CategoryFood, Description: "edited", Date: "2026-03-12"},
					{ID: "fresh", Amount: 20, Currency: "SGD", Category: expense.CategoryTransport, Description: "taxi", Date: "2026-03-12"},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			byID := make(map[string]expense.Expense)
			for _, e := range store.storedExpenses(tripID) {
				byID[e.ID] = e
			}
			Expect(byID["keep"].CreatedAt).To(Equal(firstSeen))
			Expect(byID["keep"].Amount).To(Equal(8.0))
			Expect(byID["fresh"].CreatedAt).To(Equal(time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)))
			Expect(result.Expenses).To(HaveLen(2))
		})

		It("should reject lists with duplicate ids", func() {
			seedTrip(nil, nil)

			_, err := service.ReplaceExpenses(ctx, tripID, guestID, expense.ReplaceExpensesDTO{
				Expenses: []expense.AddExpenseDTO{
					{ID: "x", Amount: 10, Currency: "USD", Category: expense.CategoryFood, Description: "a", Date: "2026-03-12"},
					{ID: "x", Amount: 20, Currency: "USD", Category: expense.CategoryFood, Description: "b", Date: "2026-03-12"},
				},
			})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("duplicate"))
		})
	})

	Describe("out-of-order saves on one trip", func() {
		It("should not let a stale failed save clobber a newer edit", func() {
			seedTrip(nil, nil)

			firstStarted := make(chan struct{})
			releaseFirst := make(chan struct{})
			calls := 0
			store.updateFunc = func(id int64, metadata []byte) error {
				calls++
				if calls == 1 {
					close(firstStarted)
					<-releaseFirst
					return errors.New("connection reset")
				}
				return nil
			}

			var (
				firstResult expense.ListResult
				firstErr    error
				firstDone   = make(chan struct{})
			)
			go func() {
				defer GinkgoRecover()
				defer close(firstDone)
				firstResult, firstErr = service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
					ID: "a", Amount: 5, Currency: "USD", Category: expense.CategoryFood, Description: "coffee", Date: "2026-03-12",
				})
			}()

			<-firstStarted
			second, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
				ID: "b", Amount: 7, Currency: "USD", Category: expense.CategoryFood, Description: "lunch", Date: "2026-03-12",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.SaveState).To(Equal(optimistic.StateSaved))
			Expect(second.Expenses).To(HaveLen(2))

			close(releaseFirst)
			<-firstDone

			// the first save failed, but a newer edit had landed; both
			// entries must survive locally and in storage
			Expect(firstErr).To(HaveOccurred())
			Expect(firstResult.Expenses).To(HaveLen(2))

			stored := store.storedExpenses(tripID)
			Expect(stored).To(HaveLen(2))

			list, err := service.ListExpenses(tripID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(2))
		})
	})

	Describe("mutations and other metadata", func() {
		It("should leave the notes key untouched when writing expenses", func() {
			notes := "remember the museum tickets"
			seedTrip(nil, nil)
			store.trips[tripID].Metadata.Notes = &notes

			_, err := service.AddExpense(ctx, tripID, guestID, expense.AddExpenseDTO{
				Amount:      10,
				Currency:    "USD",
				Category:    expense.CategoryActivities,
				Description: "museum",
				Date:        "2026-03-12",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(store.trips[tripID].Metadata.Notes).To(HaveValue(Equal(notes)))
			Expect(store.storedExpenses(tripID)).To(HaveLen(1))
		})
	})

	Describe("ListExpenses", func() {
		It("should return the stored list", func() {
			seedTrip(nil, []expense.Expense{
				{ID: "a", Amount: 5, Currency: "USD", Category: expense.CategoryFood},
			})

			list, err := service.ListExpenses(tripID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})

		It("should degrade malformed stored state to an empty list", func() {
			seedTrip(nil, nil)
			store.trips[tripID].Metadata.Expenses = json.RawMessage(`{"oops": true}`)

			list, err := service.ListExpenses(tripID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})

	Describe("Summarize", func() {
		It("should aggregate against the trip budget", func() {
			seedTrip(floatPtr(100), []expense.Expense{
				{ID: "a", Amount: 150, Currency: "USD", Category: expense.CategoryShopping},
			})

			summary, err := service.Summarize(tripID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.SpentPct).To(Equal(100))
			Expect(summary.OverBudget).To(BeTrue())
		})

		It("should report not found for unknown trips", func() {
			_, err := service.Summarize(99, guestID)
			Expect(err).To(MatchError(trip.ErrTripNotFound))
		})
	})
})
