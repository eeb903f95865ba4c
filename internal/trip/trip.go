package trip

import (
	"encoding/json"
	"time"

	tripDatamodel "github.com/roamplan/roamplan/internal/core/datamodel/trip"
)

const (
	StatusPlanning  = "planning"
	StatusBooked    = "booked"
	StatusCompleted = "completed"
)

// Metadata is the open keyed bag stored in trip_metadata. Each field is
// independently optional and independently persisted: a patch carrying only
// notes must leave expenses untouched. Expenses stay raw here; the expense
// package owns their shape.
type Metadata struct {
	Expenses  json.RawMessage `json:"expenses,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
	Itinerary json.RawMessage `json:"itinerary,omitempty"`
	Flights   json.RawMessage `json:"flights,omitempty"`
	Hotels    json.RawMessage `json:"hotels,omitempty"`
}

// Merge applies the non-empty fields of the patch on top of m, leaving
// omitted fields as they were.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m
	if patch.Expenses != nil {
		out.Expenses = patch.Expenses
	}
	if patch.Notes != nil {
		out.Notes = patch.Notes
	}
	if patch.Itinerary != nil {
		out.Itinerary = patch.Itinerary
	}
	if patch.Flights != nil {
		out.Flights = patch.Flights
	}
	if patch.Hotels != nil {
		out.Hotels = patch.Hotels
	}
	return out
}

type Trip struct {
	ID             int64     `json:"id"`
	GuestID        string    `json:"guest_id"`
	Destination    string    `json:"destination"`
	Status         string    `json:"status"`
	StartDate      *string   `json:"start_date,omitempty"`
	EndDate        *string   `json:"end_date,omitempty"`
	DurationDays   *int      `json:"duration_days,omitempty"`
	Budget         *float64  `json:"budget,omitempty"`
	TravelersCount int       `json:"travelers_count"`
	Metadata       Metadata  `json:"trip_metadata"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Phase classifies the trip for the given wall-clock date.
func (t *Trip) Phase(today time.Time) PhaseInfo {
	return ResolvePhase(t.StartDate, t.EndDate, t.DurationDays, today)
}

func ToDataModel(t *Trip) (*tripDatamodel.Trip, error) {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, err
	}
	return &tripDatamodel.Trip{
		ID:             t.ID,
		GuestID:        t.GuestID,
		Destination:    t.Destination,
		Status:         t.Status,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		DurationDays:   t.DurationDays,
		Budget:         t.Budget,
		TravelersCount: t.TravelersCount,
		Metadata:       metadata,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}, nil
}

func FromDataModel(t *tripDatamodel.Trip) *Trip {
	var metadata Metadata
	if len(t.Metadata) > 0 {
		// tolerate malformed stored metadata rather than failing reads
		_ = json.Unmarshal(t.Metadata, &metadata)
	}
	return &Trip{
		ID:             t.ID,
		GuestID:        t.GuestID,
		Destination:    t.Destination,
		Status:         t.Status,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		DurationDays:   t.DurationDays,
		Budget:         t.Budget,
		TravelersCount: t.TravelersCount,
		Metadata:       metadata,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func FromDataModelSlice(trips []*tripDatamodel.Trip) []*Trip {
	result := make([]*Trip, len(trips))
	for i, t := range trips {
		result[i] = FromDataModel(t)
	}
	return result
}
