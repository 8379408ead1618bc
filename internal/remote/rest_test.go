package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/julianstephens/tripkit/internal/models"
)

// fakeSyncService is an in-memory implementation of the sync service's REST contract.
type fakeSyncService struct {
	mu       sync.Mutex
	plans    map[string]models.TravelPlan
	expenses map[string]models.Expense
	apiKey   string
	calls    []string
}

func newFakeSyncService(apiKey string) *fakeSyncService {
	return &fakeSyncService{
		plans:    map[string]models.TravelPlan{},
		expenses: map[string]models.Expense{},
		apiKey:   apiKey,
	}
}

func (f *fakeSyncService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if f.apiKey != "" && r.Header.Get("X-API-KEY") != f.apiKey {
		http.Error(w, `{"detail":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/travel_plans":
		out := []models.TravelPlan{}
		for _, p := range f.plans {
			if p.UserID == r.URL.Query().Get("user_id") {
				out = append(out, p)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/travel_plans/"):
		p, ok := f.plans[strings.TrimPrefix(r.URL.Path, "/api/travel_plans/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	case r.Method == http.MethodPost && r.URL.Path == "/api/travel_plans":
		var p models.TravelPlan
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.plans[p.ID] = p
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/travel_plans/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/travel_plans/")
		if _, ok := f.plans[id]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.plans, id)
	case r.Method == http.MethodPost && r.URL.Path == "/api/expenses":
		var e models.Expense
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.expenses[e.ID] = e
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/expenses/"):
		delete(f.expenses, strings.TrimPrefix(r.URL.Path, "/api/expenses/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func testPlan(id string) models.TravelPlan {
	return models.TravelPlan{
		ID: id, UserID: "u1", Title: "Trip", Destination: "Tokyo",
		StartDate: "2025-06-01", EndDate: "2025-06-03", Budget: 1000, Travelers: 2,
		Preferences: []string{"food"}, Itinerary: []models.ItineraryItem{}, Expenses: []models.Expense{},
		CreatedAt: "2025-05-01T00:00:00.000Z", UpdatedAt: "2025-05-02T00:00:00.000Z",
	}
}

func TestREST_UpsertIsIdempotent(t *testing.T) {
	svc := newFakeSyncService("")
	srv := httptest.NewServer(svc)
	defer srv.Close()

	r := NewREST(srv.URL+"/", "")
	ctx := context.Background()
	plan := testPlan("p1")

	for i := 0; i < 2; i++ {
		if err := r.UpsertPlan(ctx, plan); err != nil {
			t.Fatalf("UpsertPlan #%d error = %v", i, err)
		}
	}

	plans, err := r.FetchPlans(ctx, "u1")
	if err != nil {
		t.Fatalf("FetchPlans() error = %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected exactly one plan, got %d", len(plans))
	}
	if plans[0].Destination != "Tokyo" || plans[0].UpdatedAt != plan.UpdatedAt {
		t.Errorf("stored plan differs from input: %+v", plans[0])
	}
}

func TestREST_FetchPlanByID(t *testing.T) {
	svc := newFakeSyncService("")
	svc.plans["p1"] = testPlan("p1")
	srv := httptest.NewServer(svc)
	defer srv.Close()

	r := NewREST(srv.URL, "")
	got, err := r.FetchPlanByID(context.Background(), "p1")
	if err != nil || got == nil || got.ID != "p1" {
		t.Fatalf("FetchPlanByID(p1) = %+v, %v", got, err)
	}

	missing, err := r.FetchPlanByID(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Errorf("FetchPlanByID(nope) = %+v, %v, want nil, nil", missing, err)
	}
}

func TestREST_DeleteMissingIsNotError(t *testing.T) {
	srv := httptest.NewServer(newFakeSyncService(""))
	defer srv.Close()

	r := NewREST(srv.URL, "")
	if err := r.DeletePlan(context.Background(), "ghost"); err != nil {
		t.Errorf("DeletePlan() of missing plan error = %v", err)
	}
	if err := r.DeleteExpense(context.Background(), "ghost"); err != nil {
		t.Errorf("DeleteExpense() of missing expense error = %v", err)
	}
}

func TestREST_SendsAPIKey(t *testing.T) {
	svc := newFakeSyncService("secret")
	srv := httptest.NewServer(svc)
	defer srv.Close()

	_, err := NewREST(srv.URL, "wrong").FetchPlans(context.Background(), "u1")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != http.StatusUnauthorized || re.Backend != "rest" {
		t.Errorf("unexpected RemoteError %+v", re)
	}

	if _, err := NewREST(srv.URL, "secret").FetchPlans(context.Background(), "u1"); err != nil {
		t.Errorf("FetchPlans() with correct key error = %v", err)
	}
}

func TestREST_Expenses(t *testing.T) {
	svc := newFakeSyncService("")
	srv := httptest.NewServer(svc)
	defer srv.Close()

	r := NewREST(srv.URL, "")
	ctx := context.Background()
	e := models.Expense{ID: "e1", TravelPlanID: "p1", Category: models.ExpenseFood, Amount: 12, Date: "2025-06-01"}
	if err := r.UpsertExpense(ctx, e); err != nil {
		t.Fatalf("UpsertExpense() error = %v", err)
	}
	if _, ok := svc.expenses["e1"]; !ok {
		t.Errorf("expense not stored")
	}
	if err := r.DeleteExpense(ctx, "e1"); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}
	if _, ok := svc.expenses["e1"]; ok {
		t.Errorf("expense not deleted")
	}

	e.TravelPlanID = ""
	if err := r.UpsertExpense(ctx, e); !errors.Is(err, ErrMissingPlanID) {
		t.Errorf("UpsertExpense() without plan id error = %v", err)
	}
}

func TestREST_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewREST(srv.URL, "").UpsertPlan(context.Background(), testPlan("p1"))
	if !IsRemoteError(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error should carry status and body, got %q", err.Error())
	}
}

func TestREST_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewREST(base, "").FetchPlans(context.Background(), "u1")
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Status != 0 {
		t.Errorf("transport failure should have status 0, got %d", re.Status)
	}
}

func TestREST_DisabledContactsNothing(t *testing.T) {
	r := NewREST("", "")
	if r.IsEnabled() {
		t.Fatalf("REST without base should be disabled")
	}
	plans, err := r.FetchPlans(context.Background(), "u1")
	if err != nil || len(plans) != 0 {
		t.Errorf("FetchPlans() on disabled = %v, %v", plans, err)
	}
	if err := r.UpsertPlan(context.Background(), testPlan("p1")); err != nil {
		t.Errorf("UpsertPlan() on disabled = %v", err)
	}
}
