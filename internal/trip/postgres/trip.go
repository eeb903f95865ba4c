package postgres

import (
	"time"

	tripDatamodel "github.com/roamplan/roamplan/internal/core/datamodel/trip"
	"github.com/roamplan/roamplan/internal/trip"
	"gorm.io/gorm"
)

// TripRepository implements the trip.Repository interface using GORM.
type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) trip.Repository {
	return &TripRepository{db: db}
}

func (r *TripRepository) Create(t *trip.Trip) error {
	record, err := trip.ToDataModel(t)
	if err != nil {
		return err
	}
	if err := r.db.Create(record).Error; err != nil {
		return err
	}
	t.ID = record.ID
	return nil
}

func (r *TripRepository) GetByID(id int64) (*trip.Trip, error) {
	var record tripDatamodel.Trip
	err := r.db.Where("id = ?", id).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, trip.ErrTripNotFound
		}
		return nil, err
	}
	return trip.FromDataModel(&record), nil
}

func (r *TripRepository) GetByGuestID(guestID string, limit, offset int) ([]*trip.Trip, error) {
	var records []*tripDatamodel.Trip
	err := r.db.Where("guest_id = ?", guestID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return trip.FromDataModelSlice(records), nil
}

// UpdateFields writes only the given columns, the partial-update contract:
// omitted columns are left untouched.
func (r *TripRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&tripDatamodel.Trip{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *TripRepository) UpdateMetadata(id int64, metadata []byte) error {
	return r.db.Model(&tripDatamodel.Trip{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"trip_metadata": metadata,
			"updated_at":    time.Now(),
		}).Error
}
