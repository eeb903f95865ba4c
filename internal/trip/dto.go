package trip

import (
	"encoding/json"
	"errors"
)

// CreateTripDTO is the request payload for creating a trip.
type CreateTripDTO struct {
	Destination    string   `json:"destination" validate:"required,min=1,max=200"`
	Status         string   `json:"status,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	DurationDays   *int     `json:"duration_days,omitempty"`
	Budget         *float64 `json:"budget,omitempty"`
	TravelersCount int      `json:"travelers_count,omitempty"`
}

func (dto CreateTripDTO) Validate() error {
	if dto.Destination == "" {
		return errors.New("destination is required")
	}
	if len(dto.Destination) > 200 {
		return errors.New("destination must be less than 200 characters")
	}
	if dto.Status != "" && !validStatus(dto.Status) {
		return errors.New("status must be one of planning, booked, completed")
	}
	if dto.Budget != nil && *dto.Budget < 0 {
		return errors.New("budget cannot be negative")
	}
	if dto.TravelersCount < 0 {
		return errors.New("travelers_count cannot be negative")
	}
	if dto.DurationDays != nil && *dto.DurationDays < 0 {
		return errors.New("duration_days cannot be negative")
	}
	// dates are tolerated as free-form text upstream; no format check here
	return nil
}

// UpdateTripDTO is a partial update: only non-nil fields are written,
// everything omitted stays untouched.
type UpdateTripDTO struct {
	Destination    *string  `json:"destination,omitempty"`
	Status         *string  `json:"status,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	EndDate        *string  `json:"end_date,omitempty"`
	DurationDays   *int     `json:"duration_days,omitempty"`
	Budget         *float64 `json:"budget,omitempty"`
	TravelersCount *int     `json:"travelers_count,omitempty"`
}

func (dto UpdateTripDTO) Validate() error {
	if dto.Destination != nil && *dto.Destination == "" {
		return errors.New("destination cannot be empty")
	}
	if dto.Status != nil && !validStatus(*dto.Status) {
		return errors.New("status must be one of planning, booked, completed")
	}
	if dto.Budget != nil && *dto.Budget < 0 {
		return errors.New("budget cannot be negative")
	}
	if dto.TravelersCount != nil && *dto.TravelersCount < 1 {
		return errors.New("travelers_count must be at least 1")
	}
	if dto.DurationDays != nil && *dto.DurationDays < 0 {
		return errors.New("duration_days cannot be negative")
	}
	return nil
}

func (dto UpdateTripDTO) isEmpty() bool {
	return dto.Destination == nil && dto.Status == nil && dto.StartDate == nil &&
		dto.EndDate == nil && dto.DurationDays == nil && dto.Budget == nil &&
		dto.TravelersCount == nil
}

// MetadataPatchDTO carries only the metadata keys being changed.
type MetadataPatchDTO struct {
	Expenses  json.RawMessage `json:"expenses,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
	Itinerary json.RawMessage `json:"itinerary,omitempty"`
	Flights   json.RawMessage `json:"flights,omitempty"`
	Hotels    json.RawMessage `json:"hotels,omitempty"`
}

func (dto MetadataPatchDTO) Validate() error {
	if dto.Expenses == nil && dto.Notes == nil && dto.Itinerary == nil &&
		dto.Flights == nil && dto.Hotels == nil {
		return errors.New("patch must contain at least one metadata field")
	}
	return nil
}

func (dto MetadataPatchDTO) toMetadata() Metadata {
	return Metadata{
		Expenses:  dto.Expenses,
		Notes:     dto.Notes,
		Itinerary: dto.Itinerary,
		Flights:   dto.Flights,
		Hotels:    dto.Hotels,
	}
}

// NotesDTO is the payload for the notes-only partial update.
type NotesDTO struct {
	Notes *string `json:"notes"`
}

func (dto NotesDTO) Validate() error {
	if dto.Notes == nil {
		return errors.New("notes is required")
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case StatusPlanning, StatusBooked, StatusCompleted:
		return true
	}
	return false
}

// Domain errors
var (
	ErrTripNotFound       = errors.New("trip not found")
	ErrUnauthorizedAccess = errors.New("unauthorized access to trip")
)
