package expense

import "time"

// Expense is one spend entry attached to a trip. IDs are client-generated
// strings, unique within the trip's list and never reused. The amount stays
// in the currency the traveler paid in; only aggregates are converted.
type Expense struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	CategoryFood          = "food"
	CategoryTransport     = "transport"
	CategoryActivities    = "activities"
	CategoryShopping      = "shopping"
	CategoryAccommodation = "accommodation"
	CategoryOther         = "other"
)

var categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryActivities,
	CategoryShopping,
	CategoryAccommodation,
	CategoryOther,
}

// Categories returns the fixed category enumeration.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

func ValidCategory(category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
