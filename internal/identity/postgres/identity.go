package postgres

import (
	"time"

	identityDatamodel "github.com/roamplan/roamplan/internal/core/datamodel/identity"
	"github.com/roamplan/roamplan/internal/identity"
	"gorm.io/gorm"
)

// GuestRepository implements the identity.Repository interface using GORM.
type GuestRepository struct {
	db *gorm.DB
}

func NewGuestRepository(db *gorm.DB) identity.Repository {
	return &GuestRepository{db: db}
}

func (r *GuestRepository) Create(g *identity.Guest, secretHash string) error {
	return r.db.Create(identity.ToDataModel(g, secretHash)).Error
}

func (r *GuestRepository) GetByID(id string) (*identity.Guest, string, error) {
	var record identityDatamodel.Guest
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", identity.ErrGuestNotFound
		}
		return nil, "", err
	}
	return identity.FromDataModel(&record), record.SecretHash, nil
}

func (r *GuestRepository) UpdateLastSeen(id string, at time.Time) error {
	return r.db.Model(&identityDatamodel.Guest{}).
		Where("id = ?", id).
		Update("last_seen_at", at).Error
}

func (r *GuestRepository) Clear(id string, at time.Time) error {
	return r.db.Model(&identityDatamodel.Guest{}).
		Where("id = ?", id).
		Update("cleared_at", at).Error
}
