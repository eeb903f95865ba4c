package identity

import "time"

// Guest is the persistence model for an anonymous guest identity.
type Guest struct {
	ID          string     `gorm:"primaryKey"`
	SecretHash  string     `gorm:"column:secret_hash;not null"`
	DisplayName string     `gorm:"column:display_name"`
	CreatedAt   time.Time  `gorm:"column:created_at;default:now()"`
	LastSeenAt  time.Time  `gorm:"column:last_seen_at;default:now()"`
	ClearedAt   *time.Time `gorm:"column:cleared_at"`
}

func (Guest) TableName() string {
	return "guest_identities"
}
