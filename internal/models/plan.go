package models

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/tripkit/internal/constants"
)

// TimestampFormat is the layout used for created_at/updated_at values.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrMissingDestination = errors.New("destination is required")
	ErrInvalidBudget      = errors.New("budget must be greater than zero")
	ErrInvalidTravelers   = errors.New("travelers must be at least 1")
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
)

// TravelPlan is one trip owned by a single user.
type TravelPlan struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Destination string          `json:"destination"`
	StartDate   string          `json:"start_date"` // YYYY-MM-DD format
	EndDate     string          `json:"end_date"`   // YYYY-MM-DD format
	Budget      float64         `json:"budget"`
	Travelers   int             `json:"travelers"`
	Preferences []string        `json:"preferences"`
	Itinerary   []ItineraryItem `json:"itinerary"`
	Expenses    []Expense       `json:"expenses"`
	CreatedAt   string          `json:"created_at"` // RFC3339 timestamp
	UpdatedAt   string          `json:"updated_at"` // RFC3339 timestamp
}

// FormatTimestamp renders t in the layout stored on plans.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses an RFC3339 timestamp. The second return value is
// false when the value is empty or unparseable.
func ParseTimestamp(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UpdatedTime returns the parsed updated_at, or the zero time if it cannot be parsed.
func (p TravelPlan) UpdatedTime() time.Time {
	t, _ := ParseTimestamp(p.UpdatedAt)
	return t
}

// DurationDays returns the inclusive number of days covered by the plan.
// It is never less than 1.
func (p TravelPlan) DurationDays() int {
	start, err1 := time.Parse(constants.DateFormat, p.StartDate)
	end, err2 := time.Parse(constants.DateFormat, p.EndDate)
	if err1 != nil || err2 != nil {
		return 1
	}
	days := int(math.Ceil(end.Sub(start).Hours()/24)) + 1
	if days < 1 {
		return 1
	}
	return days
}

// TotalSpend sums every recorded expense.
func (p TravelPlan) TotalSpend() float64 {
	var total float64
	for _, e := range p.Expenses {
		total += e.Amount
	}
	return total
}

func (p TravelPlan) Remaining() float64 {
	return p.Budget - p.TotalSpend()
}

// IsOverBudget reports whether recorded spend exceeds the budget.
func (p TravelPlan) IsOverBudget() bool {
	return p.TotalSpend() > p.Budget
}

// SpendByCategory returns the summed spend for every expense category,
// including categories with no expenses.
func (p TravelPlan) SpendByCategory() map[ExpenseCategory]float64 {
	out := make(map[ExpenseCategory]float64, len(ExpenseCategories))
	for _, c := range ExpenseCategories {
		out[c] = 0
	}
	for _, e := range p.Expenses {
		out[e.Category] += e.Amount
	}
	return out
}

// SortItinerary orders the itinerary by day, then by time.
func (p *TravelPlan) SortItinerary() {
	sort.SliceStable(p.Itinerary, func(i, j int) bool {
		a, b := p.Itinerary[i], p.Itinerary[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Time < b.Time
	})
}

// ItemByID returns the index of the itinerary item with the given id, or -1.
func (p TravelPlan) ItemByID(id string) int {
	for i, item := range p.Itinerary {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// ExpenseByID returns the index of the expense with the given id, or -1.
func (p TravelPlan) ExpenseByID(id string) int {
	for i, e := range p.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks the user-supplied fields of a plan.
func (p TravelPlan) Validate() error {
	if err := validateDestination(p.Destination); err != nil {
		return err
	}
	if err := validateBudget(p.Budget); err != nil {
		return err
	}
	if p.Travelers < 1 {
		return ErrInvalidTravelers
	}
	return validateDates(p.StartDate, p.EndDate)
}

func validateDestination(d string) error {
	if strings.TrimSpace(d) == "" {
		return ErrMissingDestination
	}
	return nil
}

func validateBudget(b float64) error {
	if b <= 0 || math.IsNaN(b) || math.IsInf(b, 0) {
		return ErrInvalidBudget
	}
	return nil
}

func validateDates(startDate, endDate string) error {
	start, err := time.Parse(constants.DateFormat, startDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: must be YYYY-MM-DD", startDate)
	}
	end, err := time.Parse(constants.DateFormat, endDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: must be YYYY-MM-DD", endDate)
	}
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Clone returns a deep copy of the plan.
func (p TravelPlan) Clone() TravelPlan {
	c := p
	if p.Preferences != nil {
		c.Preferences = append([]string(nil), p.Preferences...)
	}
	if p.Itinerary != nil {
		c.Itinerary = make([]ItineraryItem, len(p.Itinerary))
		for i, item := range p.Itinerary {
			c.Itinerary[i] = item.Clone()
		}
	}
	if p.Expenses != nil {
		c.Expenses = make([]Expense, len(p.Expenses))
		for i, e := range p.Expenses {
			c.Expenses[i] = e.Clone()
		}
	}
	return c
}

// Normalize replaces nil collections with empty ones so the plan always
// serializes as arrays.
func (p *TravelPlan) Normalize() {
	if p.Preferences == nil {
		p.Preferences = []string{}
	}
	if p.Itinerary == nil {
		p.Itinerary = []ItineraryItem{}
	}
	if p.Expenses == nil {
		p.Expenses = []Expense{}
	}
	if p.Travelers < 1 {
		p.Travelers = 1
	}
}

// PlanPatch carries a partial update. Nil fields are left untouched.
type PlanPatch struct {
	Title       *string
	Destination *string
	StartDate   *string
	EndDate     *string
	Budget      *float64
	Travelers   *int
	Preferences *[]string
	Itinerary   *[]ItineraryItem
	Expenses    *[]Expense
	UserID      *string
}

// IsEmpty reports whether the patch changes nothing.
func (pp PlanPatch) IsEmpty() bool {
	return pp.Title == nil && pp.Destination == nil && pp.StartDate == nil &&
		pp.EndDate == nil && pp.Budget == nil && pp.Travelers == nil &&
		pp.Preferences == nil && pp.Itinerary == nil && pp.Expenses == nil &&
		pp.UserID == nil
}

// Apply merges the patch into p.
func (pp PlanPatch) Apply(p *TravelPlan) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Destination != nil {
		p.Destination = *pp.Destination
	}
	if pp.StartDate != nil {
		p.StartDate = *pp.StartDate
	}
	if pp.EndDate != nil {
		p.EndDate = *pp.EndDate
	}
	if pp.Budget != nil {
		p.Budget = *pp.Budget
	}
	if pp.Travelers != nil {
		p.Travelers = *pp.Travelers
	}
	if pp.Preferences != nil {
		p.Preferences = append([]string{}, (*pp.Preferences)...)
	}
	if pp.Itinerary != nil {
		p.Itinerary = append([]ItineraryItem{}, (*pp.Itinerary)...)
	}
	if pp.Expenses != nil {
		p.Expenses = append([]Expense{}, (*pp.Expenses)...)
	}
	if pp.UserID != nil {
		p.UserID = *pp.UserID
	}
}

// Validate checks only the fields the patch sets, against base for the
// other end of the date range. Stored fields the patch leaves alone are not
// re-checked, so plans synced with a zero budget stay editable.
func (pp PlanPatch) Validate(base TravelPlan) error {
	if pp.Destination != nil {
		if err := validateDestination(*pp.Destination); err != nil {
			return err
		}
	}
	if pp.Budget != nil {
		if err := validateBudget(*pp.Budget); err != nil {
			return err
		}
	}
	if pp.Travelers != nil && *pp.Travelers < 1 {
		return ErrInvalidTravelers
	}
	if pp.StartDate != nil || pp.EndDate != nil {
		start, end := base.StartDate, base.EndDate
		if pp.StartDate != nil {
			start = *pp.StartDate
		}
		if pp.EndDate != nil {
			end = *pp.EndDate
		}
		return validateDates(start, end)
	}
	return nil
}
