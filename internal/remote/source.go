// Package remote mirrors plans and expenses to one configured backend.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/tripkit/internal/models"
)

// Source is a remote plan backend. Upserts are idempotent and deleting a
// record that does not exist is not an error.
type Source interface {
	Name() string
	IsEnabled() bool
	FetchPlans(ctx context.Context, userID string) ([]models.TravelPlan, error)
	// FetchPlanByID returns nil, nil when the plan does not exist.
	FetchPlanByID(ctx context.Context, id string) (*models.TravelPlan, error)
	UpsertPlan(ctx context.Context, plan models.TravelPlan) error
	DeletePlan(ctx context.Context, id string) error
	UpsertExpense(ctx context.Context, expense models.Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

var (
	// ErrMissingUserID is returned when a plan without an owner is pushed.
	ErrMissingUserID = errors.New("plan has no user_id, cannot sync")
	// ErrMissingPlanID is returned when an expense without a plan is pushed.
	ErrMissingPlanID = errors.New("expense has no travel_plan_id, cannot sync")
)

// RemoteError reports a failed call against a reachable or unreachable backend.
// Status is the HTTP status when there is one, otherwise 0.
type RemoteError struct {
	Backend string
	Op      string
	Status  int
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Backend, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err is or wraps a *RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// Disabled is the source used when no backend is configured. Every call is a
// no-op and nothing is contacted.
type Disabled struct{}

func (Disabled) Name() string    { return "disabled" }
func (Disabled) IsEnabled() bool { return false }

func (Disabled) FetchPlans(context.Context, string) ([]models.TravelPlan, error) {
	return []models.TravelPlan{}, nil
}

func (Disabled) FetchPlanByID(context.Context, string) (*models.TravelPlan, error) {
	return nil, nil
}

func (Disabled) UpsertPlan(context.Context, models.TravelPlan) error { return nil }
func (Disabled) DeletePlan(context.Context, string) error            { return nil }
func (Disabled) UpsertExpense(context.Context, models.Expense) error { return nil }
func (Disabled) DeleteExpense(context.Context, string) error         { return nil }
