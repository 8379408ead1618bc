package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/julianstephens/tripkit/internal/models"
)

const (
	plansTable    = "travel_plans"
	expensesTable = "expenses"
)

// Supabase talks to a PostgREST endpoint (Supabase's REST interface).
type Supabase struct {
	base   string
	key    string
	client *http.Client
}

// NewSupabase returns a Supabase source. It is enabled when both the project
// URL and an API key are set.
func NewSupabase(projectURL, key string) *Supabase {
	return &Supabase{base: trimBase(projectURL), key: key, client: defaultHTTPClient()}
}

// WithHTTPClient replaces the HTTP client, used by tests.
func (s *Supabase) WithHTTPClient(c *http.Client) *Supabase {
	s.client = c
	return s
}

func (s *Supabase) Name() string    { return "supabase" }
func (s *Supabase) IsEnabled() bool { return s.base != "" && s.key != "" }

func (s *Supabase) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		"apikey":        s.key,
		"Authorization": "Bearer " + s.key,
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func (s *Supabase) table(name string) string {
	return s.base + "/rest/v1/" + name
}

func (s *Supabase) fail(op string, status int, err error) error {
	return &RemoteError{Backend: s.Name(), Op: op, Status: status, Err: err}
}

func (s *Supabase) FetchPlans(ctx context.Context, userID string) ([]models.TravelPlan, error) {
	if !s.IsEnabled() || userID == "" {
		return []models.TravelPlan{}, nil
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "updated_at.desc")

	rows, err := s.query(ctx, "fetch plans", s.table(plansTable)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	plans := make([]models.TravelPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.plan())
	}
	return plans, nil
}

func (s *Supabase) FetchPlanByID(ctx context.Context, id string) (*models.TravelPlan, error) {
	if !s.IsEnabled() || id == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	rows, err := s.query(ctx, "fetch plan", s.table(plansTable)+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	plan := rows[0].plan()
	return &plan, nil
}

func (s *Supabase) query(ctx context.Context, op, endpoint string) ([]planRow, error) {
	status, payload, err := doJSON(ctx, s.client, http.MethodGet, endpoint, s.headers(nil), nil)
	if err != nil {
		return nil, s.fail(op, status, err)
	}
	if !ok(status) {
		return nil, s.fail(op, status, statusErr(payload))
	}
	var rows []planRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, s.fail(op, status, fmt.Errorf("invalid response body: %w", err))
	}
	return rows, nil
}

func (s *Supabase) UpsertPlan(ctx context.Context, plan models.TravelPlan) error {
	if !s.IsEnabled() {
		return nil
	}
	if plan.UserID == "" {
		return s.fail("upsert plan", 0, ErrMissingUserID)
	}
	plan.Normalize()
	return s.upsert(ctx, "upsert plan", plansTable, plan.ID, plan)
}

func (s *Supabase) UpsertExpense(ctx context.Context, expense models.Expense) error {
	if !s.IsEnabled() {
		return nil
	}
	if expense.TravelPlanID == "" {
		return s.fail("upsert expense", 0, ErrMissingPlanID)
	}
	return s.upsert(ctx, "upsert expense", expensesTable, expense.ID, expense)
}

// upsert POSTs with merge-duplicates and falls back to PATCH by id when the
// server rejects the insert with 409 Conflict.
func (s *Supabase) upsert(ctx context.Context, op, table, id string, body interface{}) error {
	endpoint := s.table(table) + "?on_conflict=id"
	headers := s.headers(map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"})

	status, payload, err := doJSON(ctx, s.client, http.MethodPost, endpoint, headers, body)
	if err != nil {
		return s.fail(op, status, err)
	}
	if ok(status) {
		return nil
	}
	if status != http.StatusConflict {
		return s.fail(op, status, statusErr(payload))
	}

	patchURL := s.table(table) + "?id=eq." + url.QueryEscape(id)
	status, payload, err = doJSON(ctx, s.client, http.MethodPatch, patchURL,
		s.headers(map[string]string{"Prefer": "return=minimal"}), body)
	if err != nil {
		return s.fail(op, status, err)
	}
	if !ok(status) {
		return s.fail(op, status, statusErr(payload))
	}
	return nil
}

func (s *Supabase) DeletePlan(ctx context.Context, id string) error {
	return s.delete(ctx, "delete plan", plansTable, id)
}

func (s *Supabase) DeleteExpense(ctx context.Context, id string) error {
	return s.delete(ctx, "delete expense", expensesTable, id)
}

func (s *Supabase) delete(ctx context.Context, op, table, id string) error {
	if !s.IsEnabled() || id == "" {
		return nil
	}
	endpoint := s.table(table) + "?id=eq." + url.QueryEscape(id)
	status, payload, err := doJSON(ctx, s.client, http.MethodDelete, endpoint, s.headers(nil), nil)
	if err != nil {
		return s.fail(op, status, err)
	}
	if ok(status) || status == http.StatusNotFound {
		return nil
	}
	return s.fail(op, status, statusErr(payload))
}
