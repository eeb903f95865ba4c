package trip_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roamplan/roamplan/internal"
	"github.com/roamplan/roamplan/internal/trip"
	tripPostgres "github.com/roamplan/roamplan/internal/trip/postgres"
)

type sqliteTrip struct {
	ID             int64     `gorm:"primaryKey"`
	GuestID        string    `gorm:"column:guest_id;not null;index"`
	Destination    string    `gorm:"not null"`
	Status         string    `gorm:"column:status;default:planning"`
	StartDate      *string   `gorm:"column:start_date"`
	EndDate        *string   `gorm:"column:end_date"`
	DurationDays   *int      `gorm:"column:duration_days"`
	Budget         *float64  `gorm:"column:budget"`
	TravelersCount int       `gorm:"column:travelers_count;default:1"`
	Metadata       []byte    `gorm:"column:trip_metadata"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (sqliteTrip) TableName() string {
	return "trips"
}

var _ = Describe("Trip Handler Integration", func() {
	var (
		db      *gorm.DB
		service *trip.Service
		handler *trip.Handler
		router  chi.Router
	)

	const guestID = "guest-1"
	today := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	// injects the authenticated guest the way the session middleware does
	asGuest := func(id string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithGuestID(r.Context(), id)))
			})
		}
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&sqliteTrip{})
		Expect(err).NotTo(HaveOccurred())

		repo := tripPostgres.NewTripRepository(db)
		service = trip.NewService(repo, nil, slogger)
		service.WithClock(func() time.Time { return today })
		handler = trip.NewHandler(service)

		router = chi.NewRouter()
		router.Use(asGuest(guestID))
		router.Post("/trips", handler.CreateTrip)
		router.Get("/trips/{id}", handler.GetTrip)
		router.Patch("/trips/{id}", handler.UpdateTrip)
		router.Patch("/trips/{id}/notes", handler.UpdateNotes)
		router.Get("/trips/{id}/phase", handler.GetTripPhase)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	createTrip := func(payload string) trip.Trip {
		req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created trip.Trip
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		return created
	}

	It("should create a trip and read it back", func() {
		created := createTrip(`{"destination":"Tokyo","start_date":"2026-04-01","end_date":"2026-04-05"}`)
		Expect(created.ID).NotTo(BeZero())
		Expect(created.DurationDays).To(HaveValue(Equal(4)))

		req := httptest.NewRequest(http.MethodGet, "/trips/"+itoa(created.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var got trip.Trip
		Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
		Expect(got.Destination).To(Equal("Tokyo"))
	})

	It("should reject an invalid payload with 400", func() {
		req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(`{"destination":""}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for an unknown trip", func() {
		req := httptest.NewRequest(http.MethodGet, "/trips/9999", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should apply partial updates without touching other fields", func() {
		created := createTrip(`{"destination":"Singapore","budget":1000,"travelers_count":2}`)

		req := httptest.NewRequest(http.MethodPatch, "/trips/"+itoa(created.ID), bytes.NewBufferString(`{"budget":1500}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var updated trip.Trip
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Budget).To(HaveValue(Equal(1500.0)))
		Expect(updated.Destination).To(Equal("Singapore"))
		Expect(updated.TravelersCount).To(Equal(2))
	})

	It("should save notes through the notes route", func() {
		created := createTrip(`{"destination":"Bangkok"}`)

		req := httptest.NewRequest(http.MethodPatch, "/trips/"+itoa(created.ID)+"/notes", bytes.NewBufferString(`{"notes":"street food tour"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var updated trip.Trip
		Expect(json.NewDecoder(w.Body).Decode(&updated)).To(Succeed())
		Expect(updated.Metadata.Notes).To(HaveValue(Equal("street food tour")))
	})

	It("should derive the phase from the stored dates", func() {
		created := createTrip(`{"destination":"Singapore","start_date":"2026-03-10","end_date":"2026-03-14"}`)

		req := httptest.NewRequest(http.MethodGet, "/trips/"+itoa(created.ID)+"/phase", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var info trip.PhaseInfo
		Expect(json.NewDecoder(w.Body).Decode(&info)).To(Succeed())
		Expect(info.Phase).To(Equal(trip.PhaseOngoing))
		Expect(info.CurrentDay).To(HaveValue(Equal(3)))
	})
})

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
