package trip_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/roamplan/roamplan/internal/trip"
)

// Mock repository for testing
type mockTripRepository struct {
	trips       map[int64]*trip.Trip
	nextID      int64
	createError error
	updateError error
	lastFields  map[string]interface{}
}

func newMockTripRepository() *mockTripRepository {
	return &mockTripRepository{
		trips:  make(map[int64]*trip.Trip),
		nextID: 1,
	}
}

func (m *mockTripRepository) Create(t *trip.Trip) error {
	if m.createError != nil {
		return m.createError
	}
	t.ID = m.nextID
	m.nextID++
	clone := *t
	m.trips[t.ID] = &clone
	return nil
}

func (m *mockTripRepository) GetByID(id int64) (*trip.Trip, error) {
	t, ok := m.trips[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *mockTripRepository) GetByGuestID(guestID string, limit, offset int) ([]*trip.Trip, error) {
	var out []*trip.Trip
	for _, t := range m.trips {
		if t.GuestID == guestID {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

// UpdateFields mirrors the partial-update contract: only the listed columns
// change, everything else stays as stored.
func (m *mockTripRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	if m.updateError != nil {
		return m.updateError
	}
	t, ok := m.trips[id]
	if !ok {
		return trip.ErrTripNotFound
	}
	m.lastFields = fields
	for column, value := range fields {
		switch column {
		case "destination":
			t.Destination = value.(string)
		case "status":
			t.Status = value.(string)
		case "start_date":
			s := value.(string)
			t.StartDate = &s
		case "end_date":
			s := value.(string)
			t.EndDate = &s
		case "duration_days":
			if value == nil {
				t.DurationDays = nil
			} else {
				d := value.(int)
				t.DurationDays = &d
			}
		case "budget":
			b := value.(float64)
			t.Budget = &b
		case "travelers_count":
			t.TravelersCount = value.(int)
		case "updated_at":
			t.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (m *mockTripRepository) UpdateMetadata(id int64, metadata []byte) error {
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
	return nil
}

var _ = Describe("TripService", func() {
	var (
		repo    *mockTripRepository
		service *trip.Service
	)

	const guestID = "guest-1"
	today := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		repo = newMockTripRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = trip.NewService(repo, nil, logger)
		service.WithClock(func() time.Time { return today })
	})

	Describe("CreateTrip", func() {
		Context("with a minimal payload", func() {
			It("should default status to planning and travelers to one", func() {
				created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
					Destination: "Tokyo",
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(created.ID).NotTo(BeZero())
				Expect(created.Status).To(Equal(trip.StatusPlanning))
				Expect(created.TravelersCount).To(Equal(1))
				Expect(created.StartDate).To(BeNil())
			})
		})

		Context("with both dates set", func() {
			It("should derive the duration and override a manual value", func() {
				created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
					Destination:  "Singapore",
					StartDate:    strPtr("2026-03-10"),
					EndDate:      strPtr("2026-03-14"),
					DurationDays: intPtr(99),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(created.DurationDays).To(HaveValue(Equal(4)))
			})
		})

		Context("with only a manual duration", func() {
			It("should keep the manual value", func() {
				created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
					Destination:  "Bangkok",
					DurationDays: intPtr(6),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(created.DurationDays).To(HaveValue(Equal(6)))
			})
		})

		Context("when validation fails", func() {
			It("should reject a missing destination", func() {
				_, err := service.CreateTrip(guestID, trip.CreateTripDTO{})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("destination"))
			})

			It("should reject an unknown status", func() {
				_, err := service.CreateTrip(guestID, trip.CreateTripDTO{
					Destination: "Tokyo",
					Status:      "daydreaming",
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("status"))
			})
		})

		Context("when the repository fails", func() {
			It("should surface the error", func() {
				repo.createError = errors.New("insert failed")
				_, err := service.CreateTrip(guestID, trip.CreateTripDTO{Destination: "Tokyo"})
				Expect(err).To(MatchError(repo.createError))
			})
		})
	})

	Describe("GetTrip", func() {
		It("should return the trip to its owner", func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{Destination: "Tokyo"})
			Expect(err).NotTo(HaveOccurred())

			got, err := service.GetTrip(created.ID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Destination).To(Equal("Tokyo"))
		})

		It("should refuse another guest's trip", func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{Destination: "Tokyo"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetTrip(created.ID, "intruder")
			Expect(err).To(MatchError(trip.ErrUnauthorizedAccess))
		})

		It("should report not found for unknown ids", func() {
			_, err := service.GetTrip(404, guestID)
			Expect(err).To(MatchError(trip.ErrTripNotFound))
		})
	})

	Describe("UpdateTrip", func() {
		var tripID int64

		BeforeEach(func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
				Destination:    "Singapore",
				Status:         trip.StatusBooked,
				StartDate:      strPtr("2026-03-10"),
				EndDate:        strPtr("2026-03-14"),
				Budget:         floatPtr(1000),
				TravelersCount: 2,
			})
			Expect(err).NotTo(HaveOccurred())
			tripID = created.ID
		})

		Context("with a partial payload", func() {
			It("should write only the provided fields", func() {
				updated, err := service.UpdateTrip(tripID, guestID, trip.UpdateTripDTO{
					Budget: floatPtr(1500),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Budget).To(HaveValue(Equal(1500.0)))
				Expect(updated.Destination).To(Equal("Singapore"))
				Expect(updated.Status).To(Equal(trip.StatusBooked))
				Expect(updated.TravelersCount).To(Equal(2))
				Expect(repo.lastFields).NotTo(HaveKey("destination"))
				Expect(repo.lastFields).NotTo(HaveKey("status"))
			})

			It("should return the stored trip untouched for an empty payload", func() {
				updated, err := service.UpdateTrip(tripID, guestID, trip.UpdateTripDTO{})
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Destination).To(Equal("Singapore"))
				Expect(repo.lastFields).To(BeNil())
			})
		})

		Context("when a date changes", func() {
			It("should rederive the duration from the resulting pair", func() {
				updated, err := service.UpdateTrip(tripID, guestID, trip.UpdateTripDTO{
					EndDate: strPtr("2026-03-20"),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(updated.DurationDays).To(HaveValue(Equal(10)))
			})

			It("should clear the duration when the pair no longer derives", func() {
				updated, err := service.UpdateTrip(tripID, guestID, trip.UpdateTripDTO{
					EndDate: strPtr("sometime later"),
				})

				Expect(err).NotTo(HaveOccurred())
				Expect(updated.DurationDays).To(BeNil())
			})
		})

		Context("ownership", func() {
			It("should refuse updates from another guest", func() {
				_, err := service.UpdateTrip(tripID, "intruder", trip.UpdateTripDTO{
					Budget: floatPtr(1),
				})
				Expect(err).To(MatchError(trip.ErrUnauthorizedAccess))
			})
		})
	})

	Describe("PatchMetadata and UpdateNotes", func() {
		var tripID int64

		BeforeEach(func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{Destination: "Tokyo"})
			Expect(err).NotTo(HaveOccurred())
			tripID = created.ID
		})

		It("should merge new keys without dropping existing ones", func() {
			_, err := service.PatchMetadata(tripID, guestID, trip.MetadataPatchDTO{
				Expenses: json.RawMessage(`[{"id":"a","amount":5,"currency":"USD"}]`),
			})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.UpdateNotes(tripID, guestID, trip.NotesDTO{
				Notes: strPtr("pack light"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Metadata.Notes).To(HaveValue(Equal("pack light")))
			Expect(updated.Metadata.Expenses).NotTo(BeEmpty())

			stored, err := service.GetTrip(tripID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Metadata.Expenses).NotTo(BeEmpty())
			Expect(stored.Metadata.Notes).To(HaveValue(Equal("pack light")))
		})

		It("should reject an empty patch", func() {
			_, err := service.PatchMetadata(tripID, guestID, trip.MetadataPatchDTO{})
			Expect(err).To(HaveOccurred())
		})

		It("should require the notes field on the notes route", func() {
			_, err := service.UpdateNotes(tripID, guestID, trip.NotesDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("TripPhase", func() {
		It("should classify the trip against the injected clock", func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
				Destination: "Singapore",
				StartDate:   strPtr("2026-03-10"),
				EndDate:     strPtr("2026-03-14"),
			})
			Expect(err).NotTo(HaveOccurred())

			info, err := service.TripPhase(created.ID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Phase).To(Equal(trip.PhaseOngoing))
			Expect(info.CurrentDay).To(HaveValue(Equal(3)))
		})

		It("should report planning for a trip without dates", func() {
			created, err := service.CreateTrip(guestID, trip.CreateTripDTO{
				Destination: "Anywhere",
				Status:      trip.StatusBooked,
			})
			Expect(err).NotTo(HaveOccurred())

			info, err := service.TripPhase(created.ID, guestID)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Phase).To(Equal(trip.PhasePlanning))
		})
	})
})

func floatPtr(f float64) *float64 { return &f }
