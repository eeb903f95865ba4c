package identity

import (
	"errors"
	"time"

	identityDatamodel "github.com/roamplan/roamplan/internal/core/datamodel/identity"
)

// Guest is an anonymous identity the browser client holds; trips are scoped
// to it. The lifecycle is explicit: get-or-create, persist, clear.
type Guest struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	ClearedAt   *time.Time `json:"-"`
}

func (g *Guest) IsCleared() bool {
	return g.ClearedAt != nil
}

func ToDataModel(g *Guest, secretHash string) *identityDatamodel.Guest {
	return &identityDatamodel.Guest{
		ID:          g.ID,
		SecretHash:  secretHash,
		DisplayName: g.DisplayName,
		CreatedAt:   g.CreatedAt,
		LastSeenAt:  g.LastSeenAt,
		ClearedAt:   g.ClearedAt,
	}
}

func FromDataModel(g *identityDatamodel.Guest) *Guest {
	return &Guest{
		ID:          g.ID,
		DisplayName: g.DisplayName,
		CreatedAt:   g.CreatedAt,
		LastSeenAt:  g.LastSeenAt,
		ClearedAt:   g.ClearedAt,
	}
}

// Domain errors
var (
	ErrGuestNotFound = errors.New("guest identity not found")
	ErrGuestCleared  = errors.New("guest identity has been cleared")
	ErrBadSecret     = errors.New("guest secret does not match")
)
