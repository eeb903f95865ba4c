package expense

import (
	"errors"
	"fmt"
)

// AddExpenseDTO is the request payload for adding one expense to a trip.
// Validation happens here, before the entry reaches the aggregation layer,
// which assumes pre-validated input.
type AddExpenseDTO struct {
	ID          string  `json:"id,omitempty"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Description string  `json:"description" validate:"required,min=1,max=500"`
	Date        string  `json:"date" validate:"required"`
}

func (dto AddExpenseDTO) Validate(rates StaticRateTable) error {
	if dto.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if dto.Currency == "" {
		return errors.New("currency is required")
	}
	if !rates.Supports(dto.Currency) {
		return fmt.Errorf("currency %q is not supported", dto.Currency)
	}
	if !ValidCategory(dto.Category) {
		return fmt.Errorf("category must be one of %v", Categories())
	}
	if dto.Description == "" {
		return errors.New("description is required")
	}
	if len(dto.Description) > 500 {
		return errors.New("description must be less than 500 characters")
	}
	if dto.Date == "" {
		return errors.New("date is required")
	}
	return nil
}

// ReplaceExpensesDTO replaces the whole expense list in one call, the way
// the client persists after local edits.
type ReplaceExpensesDTO struct {
	Expenses []AddExpenseDTO `json:"expenses"`
}

func (dto ReplaceExpensesDTO) Validate(rates StaticRateTable) error {
	seen := make(map[string]struct{}, len(dto.Expenses))
	for i, e := range dto.Expenses {
		if err := e.Validate(rates); err != nil {
			return fmt.Errorf("expense %d: %w", i, err)
		}
		if e.ID != "" {
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("duplicate expense id %q", e.ID)
			}
			seen[e.ID] = struct{}{}
		}
	}
	return nil
}

// Domain errors
var (
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrDuplicateExpense = errors.New("expense with this id already exists")
)
