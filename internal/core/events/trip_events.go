package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TripCreated          = "trip.created"
	TripUpdated          = "trip.updated"
	TripMetadataPatched  = "trip.metadata_patched"
	ExpenseListReplaced  = "trip.expenses_replaced"
	GuestSessionStarted  = "guest.session_started"
	GuestIdentityCleared = "guest.identity_cleared"
)

// NewTripEvent builds an event scoped to a single trip. Extra fields go into
// the payload untouched.
func NewTripEvent(eventType string, tripID int64, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["trip_id"] = tripID

	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewGuestEvent(eventType, guestID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"guest_id": guestID},
	}
}
