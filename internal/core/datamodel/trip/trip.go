package trip

import "time"

// Trip is the persistence model. trip_metadata is an open JSON bag so that
// feature sub-state (expenses, notes, itinerary, flights, hotels) can be
// patched independently without schema churn.
type Trip struct {
	ID             int64     `gorm:"primaryKey"`
	GuestID        string    `gorm:"column:guest_id;not null;index"`
	Destination    string    `gorm:"not null"`
	Status         string    `gorm:"column:status;default:planning"`
	StartDate      *string   `gorm:"column:start_date"`
	EndDate        *string   `gorm:"column:end_date"`
	DurationDays   *int      `gorm:"column:duration_days"`
	Budget         *float64  `gorm:"column:budget"`
	TravelersCount int       `gorm:"column:travelers_count;default:1"`
	Metadata       []byte    `gorm:"column:trip_metadata;type:jsonb"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;default:now()"`
}

func (Trip) TableName() string {
	return "trips"
}
