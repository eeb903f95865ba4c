package trip

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/roamplan/roamplan/internal/core/events"
)

// Repository defines the data access methods for trips.
type Repository interface {
	Create(t *Trip) error
	GetByID(id int64) (*Trip, error)
	GetByGuestID(guestID string, limit, offset int) ([]*Trip, error)
	UpdateFields(id int64, fields map[string]interface{}) error
	UpdateMetadata(id int64, metadata []byte) error
}

// Service handles trip business logic.
type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateTrip(guestID string, dto CreateTripDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("trip validation failed", "error", err, "guest_id", guestID)
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = StatusPlanning
	}
	travelers := dto.TravelersCount
	if travelers < 1 {
		travelers = 1
	}

	// once both dates exist the computed duration wins over a manual value
	duration := dto.DurationDays
	if derived := DeriveDuration(dto.StartDate, dto.EndDate); derived != nil {
		duration = derived
	}

	now := s.now()
	t := &Trip{
		GuestID:        guestID,
		Destination:    dto.Destination,
		Status:         status,
		StartDate:      dto.StartDate,
		EndDate:        dto.EndDate,
		DurationDays:   duration,
		Budget:         dto.Budget,
		TravelersCount: travelers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(t); err != nil {
		s.logger.Error("failed to create trip", "error", err, "guest_id", guestID)
		return nil, err
	}

	s.publish(events.NewTripEvent(events.TripCreated, t.ID, map[string]interface{}{
		"destination": t.Destination,
		"guest_id":    guestID,
	}))

	s.logger.Info("trip created",
		"trip_id", t.ID,
		"guest_id", guestID,
		"destination", t.Destination)

	return t, nil
}

func (s *Service) GetTrip(id int64, guestID string) (*Trip, error) {
	t, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get trip", "error", err, "trip_id", id)
		return nil, ErrTripNotFound
	}

	if t.GuestID != guestID {
		s.logger.Warn("unauthorized access to trip", "trip_id", id, "guest_id", guestID)
		return nil, ErrUnauthorizedAccess
	}

	return t, nil
}

func (s *Service) ListTrips(guestID string, limit, offset int) ([]*Trip, error) {
	trips, err := s.repo.GetByGuestID(guestID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list trips", "error", err, "guest_id", guestID)
		return nil, err
	}
	return trips, nil
}

// UpdateTrip applies a partial update. Only fields present in the DTO are
// written; when either date changes the duration is rederived from the
// resulting date pair.
func (s *Service) UpdateTrip(id int64, guestID string, dto UpdateTripDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("trip update validation failed", "error", err, "trip_id", id)
		return nil, err
	}
	if dto.isEmpty() {
		return s.GetTrip(id, guestID)
	}

	current, err := s.GetTrip(id, guestID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"updated_at": s.now(),
	}
	if dto.Destination != nil {
		fields["destination"] = *dto.Destination
	}
	if dto.Status != nil {
		fields["status"] = *dto.Status
	}
	if dto.Budget != nil {
		fields["budget"] = *dto.Budget
	}
	if dto.TravelersCount != nil {
		fields["travelers_count"] = *dto.TravelersCount
	}

	startDate := current.StartDate
	endDate := current.EndDate
	datesTouched := false
	if dto.StartDate != nil {
		startDate = dto.StartDate
		fields["start_date"] = *dto.StartDate
		datesTouched = true
	}
	if dto.EndDate != nil {
		endDate = dto.EndDate
		fields["end_date"] = *dto.EndDate
		datesTouched = true
	}

	if derived := DeriveDuration(startDate, endDate); derived != nil {
		// computed duration is authoritative once both dates are set
		fields["duration_days"] = *derived
	} else if dto.DurationDays != nil {
		fields["duration_days"] = *dto.DurationDays
	} else if datesTouched {
		fields["duration_days"] = nil
	}

	if err := s.repo.UpdateFields(id, fields); err != nil {
		s.logger.Error("failed to update trip", "error", err, "trip_id", id)
		return nil, err
	}

	s.publish(events.NewTripEvent(events.TripUpdated, id, map[string]interface{}{
		"guest_id": guestID,
	}))

	updated, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PatchMetadata merges the provided metadata keys into the stored bag,
// leaving omitted keys untouched.
func (s *Service) PatchMetadata(id int64, guestID string, dto MetadataPatchDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("metadata patch validation failed", "error", err, "trip_id", id)
		return nil, err
	}

	current, err := s.GetTrip(id, guestID)
	if err != nil {
		return nil, err
	}

	merged := current.Metadata.Merge(dto.toMetadata())
	raw, err := json.Marshal(merged)
	if err != nil {
		s.logger.Error("failed to marshal metadata", "error", err, "trip_id", id)
		return nil, err
	}

	if err := s.repo.UpdateMetadata(id, raw); err != nil {
		s.logger.Error("failed to patch metadata", "error", err, "trip_id", id)
		return nil, err
	}

	s.publish(events.NewTripEvent(events.TripMetadataPatched, id, map[string]interface{}{
		"guest_id": guestID,
	}))

	current.Metadata = merged
	current.UpdatedAt = s.now()
	return current, nil
}

// UpdateNotes persists the notes field alone.
func (s *Service) UpdateNotes(id int64, guestID string, dto NotesDTO) (*Trip, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.PatchMetadata(id, guestID, MetadataPatchDTO{Notes: dto.Notes})
}

// TripPhase resolves the display phase for a trip against today's date.
func (s *Service) TripPhase(id int64, guestID string) (PhaseInfo, error) {
	t, err := s.GetTrip(id, guestID)
	if err != nil {
		return PhaseInfo{}, err
	}
	return t.Phase(s.now()), nil
}

func (s *Service) publish(event events.BaseEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish trip event", "event_type", event.EventType(), "error", err)
	}
}
