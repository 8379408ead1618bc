package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/julianstephens/tripkit/internal/constants"
)

// ErrInvalidAmount is returned for non-positive expense amounts.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// ExpenseCategory classifies a recorded expense. It is a distinct set from
// ItineraryCategory.
type ExpenseCategory string

const (
	ExpenseTransportation ExpenseCategory = "transportation"
	ExpenseAccommodation  ExpenseCategory = "accommodation"
	ExpenseFood           ExpenseCategory = "food"
	ExpenseAttraction     ExpenseCategory = "attraction"
	ExpenseShopping       ExpenseCategory = "shopping"
	ExpenseOther          ExpenseCategory = "other"
)

var ExpenseCategories = []ExpenseCategory{
	ExpenseTransportation,
	ExpenseAccommodation,
	ExpenseFood,
	ExpenseAttraction,
	ExpenseShopping,
	ExpenseOther,
}

// IsValid reports whether c is a known expense category.
func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is one recorded spend event tied to a plan.
type Expense struct {
	ID           string          `json:"id"`
	TravelPlanID string          `json:"travel_plan_id"`
	Category     ExpenseCategory `json:"category"`
	Amount       float64         `json:"amount"`
	Description  string          `json:"description"`
	Date         string          `json:"date"` // YYYY-MM-DD format
	Location     *Location       `json:"location,omitempty"`
}

// Validate checks amount, category and date.
func (e Expense) Validate() error {
	if e.Amount <= 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrInvalidAmount
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("invalid expense category %q", e.Category)
	}
	if _, err := time.Parse(constants.DateFormat, e.Date); err != nil {
		return fmt.Errorf("invalid expense date %q: must be YYYY-MM-DD", e.Date)
	}
	return nil
}

func (e Expense) Clone() Expense {
	c := e
	if e.Location != nil {
		loc := *e.Location
		c.Location = &loc
	}
	return c
}
