package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/julianstephens/tripkit/internal/models"
)

// REST talks to the self-hosted sync service (see cmd/tripkit-sync).
type REST struct {
	base   string
	apiKey string
	client *http.Client
}

// NewREST returns a REST source. It is enabled only when base is non-empty.
func NewREST(base, apiKey string) *REST {
	return &REST{base: trimBase(base), apiKey: apiKey, client: defaultHTTPClient()}
}

// WithHTTPClient replaces the HTTP client, used by tests.
func (r *REST) WithHTTPClient(c *http.Client) *REST {
	r.client = c
	return r
}

func (r *REST) Name() string    { return "rest" }
func (r *REST) IsEnabled() bool { return r.base != "" }

func (r *REST) headers() map[string]string {
	if r.apiKey == "" {
		return nil
	}
	return map[string]string{"X-API-KEY": r.apiKey}
}

func (r *REST) fail(op string, status int, err error) error {
	return &RemoteError{Backend: r.Name(), Op: op, Status: status, Err: err}
}

func (r *REST) FetchPlans(ctx context.Context, userID string) ([]models.TravelPlan, error) {
	if !r.IsEnabled() {
		return []models.TravelPlan{}, nil
	}
	endpoint := fmt.Sprintf("%s/api/travel_plans?user_id=%s", r.base, url.QueryEscape(userID))
	status, payload, err := doJSON(ctx, r.client, http.MethodGet, endpoint, r.headers(), nil)
	if err != nil {
		return nil, r.fail("fetch plans", status, err)
	}
	if !ok(status) {
		return nil, r.fail("fetch plans", status, statusErr(payload))
	}

	var plans []models.TravelPlan
	if err := json.Unmarshal(payload, &plans); err != nil {
		return nil, r.fail("fetch plans", status, fmt.Errorf("invalid response body: %w", err))
	}
	for i := range plans {
		plans[i].Normalize()
	}
	if plans == nil {
		plans = []models.TravelPlan{}
	}
	return plans, nil
}

func (r *REST) FetchPlanByID(ctx context.Context, id string) (*models.TravelPlan, error) {
	if !r.IsEnabled() || id == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/api/travel_plans/%s", r.base, url.PathEscape(id))
	status, payload, err := doJSON(ctx, r.client, http.MethodGet, endpoint, r.headers(), nil)
	if err != nil {
		return nil, r.fail("fetch plan", status, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !ok(status) {
		return nil, r.fail("fetch plan", status, statusErr(payload))
	}

	var plan models.TravelPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, r.fail("fetch plan", status, fmt.Errorf("invalid response body: %w", err))
	}
	plan.Normalize()
	return &plan, nil
}

func (r *REST) UpsertPlan(ctx context.Context, plan models.TravelPlan) error {
	if !r.IsEnabled() {
		return nil
	}
	plan.Normalize()
	return r.send(ctx, "upsert plan", http.MethodPost, r.base+"/api/travel_plans", plan, false)
}

func (r *REST) DeletePlan(ctx context.Context, id string) error {
	if !r.IsEnabled() || id == "" {
		return nil
	}
	return r.send(ctx, "delete plan", http.MethodDelete, r.base+"/api/travel_plans/"+url.PathEscape(id), nil, true)
}

func (r *REST) UpsertExpense(ctx context.Context, expense models.Expense) error {
	if !r.IsEnabled() {
		return nil
	}
	if expense.TravelPlanID == "" {
		return r.fail("upsert expense", 0, ErrMissingPlanID)
	}
	return r.send(ctx, "upsert expense", http.MethodPost, r.base+"/api/expenses", expense, false)
}

func (r *REST) DeleteExpense(ctx context.Context, id string) error {
	if !r.IsEnabled() || id == "" {
		return nil
	}
	return r.send(ctx, "delete expense", http.MethodDelete, r.base+"/api/expenses/"+url.PathEscape(id), nil, true)
}

func (r *REST) send(ctx context.Context, op, method, endpoint string, body interface{}, notFoundOK bool) error {
	status, payload, err := doJSON(ctx, r.client, method, endpoint, r.headers(), body)
	if err != nil {
		return r.fail(op, status, err)
	}
	if notFoundOK && status == http.StatusNotFound {
		return nil
	}
	if !ok(status) {
		return r.fail(op, status, statusErr(payload))
	}
	return nil
}
