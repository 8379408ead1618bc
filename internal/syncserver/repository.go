package syncserver

import (
	"context"
	"errors"

	"github.com/julianstephens/tripkit/internal/models"
)

var (
	// ErrUnknownPlan is returned when an expense points at a plan that does not exist.
	ErrUnknownPlan = errors.New("unknown travel plan")
	// ErrInvalidPatch is returned for a PATCH value of the wrong type.
	ErrInvalidPatch = errors.New("invalid patch")
)

// Assignment is one validated column update.
type Assignment struct {
	Column string
	Value  interface{}
}

// Repository stores plans and expenses for the HTTP handlers.
type Repository interface {
	Ping(ctx context.Context) error

	ListPlans(ctx context.Context, userID string) ([]models.TravelPlan, error)
	// GetPlan returns nil without an error when the plan does not exist.
	GetPlan(ctx context.Context, id string) (*models.TravelPlan, error)
	UpsertPlan(ctx context.Context, plan models.TravelPlan) error
	PatchPlan(ctx context.Context, id string, set []Assignment) error
	DeletePlan(ctx context.Context, id string) error

	ListExpenses(ctx context.Context, planID string) ([]models.Expense, error)
	UpsertExpense(ctx context.Context, e models.Expense) error
	PatchExpense(ctx context.Context, id string, set []Assignment) error
	DeleteExpense(ctx context.Context, id string) error
}
