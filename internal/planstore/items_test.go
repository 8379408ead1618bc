package planstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/models"
)

func TestItineraryOperations(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.store.AddItineraryItem(models.ItineraryItem{Title: "x", Day: 1, Time: "09:00"}); !errors.Is(err, ErrNoCurrentPlan) {
		t.Fatalf("expected ErrNoCurrentPlan, got %v", err)
	}
	planID, _ := f.store.CreatePlan(tokyoDraft())

	late, err := f.store.AddItineraryItem(models.ItineraryItem{Title: "Dinner", Day: 1, Time: "19:00", Category: "restaurant"})
	if err != nil {
		t.Fatalf("AddItineraryItem() error = %v", err)
	}
	f.clock.Advance(1)
	early, err := f.store.AddItineraryItem(models.ItineraryItem{Title: "Museum", Day: 1, Time: "10:00", Category: "bogus"})
	if err != nil {
		t.Fatalf("AddItineraryItem() error = %v", err)
	}
	if late == early {
		t.Fatal("item ids collide")
	}

	p, _ := f.store.Plan(planID)
	if len(p.Itinerary) != 2 || p.Itinerary[0].ID != early {
		t.Fatalf("itinerary not sorted by time: %+v", p.Itinerary)
	}
	if p.Itinerary[0].Category != models.ItineraryOther {
		t.Errorf("unknown category = %q, want other", p.Itinerary[0].Category)
	}

	if _, err := f.store.AddItineraryItem(models.ItineraryItem{Title: "bad", Day: 1, Time: "25:00"}); err == nil {
		t.Error("expected invalid time to be rejected")
	}

	edited := p.Itinerary[1]
	edited.Day = 2
	if err := f.store.UpdateItineraryItem(edited); err != nil {
		t.Fatalf("UpdateItineraryItem() error = %v", err)
	}
	p, _ = f.store.Plan(planID)
	if p.Itinerary[1].ID != late || p.Itinerary[1].Day != 2 {
		t.Errorf("edit not applied: %+v", p.Itinerary)
	}

	if err := f.store.RemoveItineraryItem(early); err != nil {
		t.Fatalf("RemoveItineraryItem() error = %v", err)
	}
	if err := f.store.RemoveItineraryItem(early); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove = %v, want ErrNotFound", err)
	}
	p, _ = f.store.Plan(planID)
	if len(p.Itinerary) != 1 || p.Itinerary[0].ID != late {
		t.Errorf("itinerary = %+v", p.Itinerary)
	}
}

func TestExpenseTotals(t *testing.T) {
	rem := newFakeRemote()
	f := newFixture(t, rem)
	planID, _ := f.store.CreatePlan(tokyoDraft())

	big, err := f.store.AddExpense(models.Expense{Category: models.ExpenseFood, Amount: 120, Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	f.clock.Advance(1)
	small, _ := f.store.AddExpense(models.Expense{Category: models.ExpenseOther, Amount: 45, Date: "2025-06-02"})

	p, _ := f.store.Plan(planID)
	if p.TotalSpend() != 165 {
		t.Errorf("TotalSpend() = %v, want 165", p.TotalSpend())
	}
	for _, e := range p.Expenses {
		if e.TravelPlanID != planID {
			t.Errorf("expense %s tied to %q", e.ID, e.TravelPlanID)
		}
	}

	if err := f.store.RemoveExpense(big); err != nil {
		t.Fatalf("RemoveExpense() error = %v", err)
	}
	p, _ = f.store.Plan(planID)
	if p.TotalSpend() != 45 {
		t.Errorf("TotalSpend() after delete = %v, want 45", p.TotalSpend())
	}

	if _, err := f.store.AddExpense(models.Expense{Category: models.ExpenseFood, Amount: 0, Date: "2025-06-01"}); !errors.Is(err, models.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}

	updated := p.Expenses[0]
	updated.Amount = 50
	if err := f.store.UpdateExpense(updated); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}

	calls := strings.Join(rem.Calls(), ",")
	for _, want := range []string{"upsert expense " + big, "upsert expense " + small, "delete expense " + big} {
		if !strings.Contains(calls, want) {
			t.Errorf("remote calls %q missing %q", calls, want)
		}
	}
	if rem.expenses[small].Amount != 50 {
		t.Errorf("remote expense amount = %v, want 50", rem.expenses[small].Amount)
	}
	if rem.plans[planID].TotalSpend() != 50 {
		t.Errorf("remote plan not mirrored alongside the expense")
	}
}

func TestZeroBudgetRemotePlanStaysEditable(t *testing.T) {
	free := remotePlan("r1", "u1", "2025-04-01T00:00:00.000Z")
	free.Budget = 0
	rem := newFakeRemote(free)
	f := newFixture(t, rem)
	f.store.LoadPlans(context.Background())
	if err := f.store.SetCurrentPlan("r1"); err != nil {
		t.Fatalf("SetCurrentPlan() error = %v", err)
	}

	expenseID, err := f.store.AddExpense(models.Expense{Category: models.ExpenseFood, Amount: 10, Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("AddExpense() on zero-budget plan error = %v", err)
	}
	title := "Free walking tour"
	if err := f.store.UpdatePlan("r1", models.PlanPatch{Title: &title}); err != nil {
		t.Fatalf("UpdatePlan() title on zero-budget plan error = %v", err)
	}

	p, _ := f.store.Plan("r1")
	if p.Title != title || len(p.Expenses) != 1 || p.Expenses[0].ID != expenseID {
		t.Errorf("stored plan = title %q, expenses %v", p.Title, p.Expenses)
	}
	if p.Budget != 0 || !p.IsOverBudget() {
		t.Errorf("budget = %v, over budget = %v", p.Budget, p.IsOverBudget())
	}
	if err := f.store.RemoveExpense(expenseID); err != nil {
		t.Errorf("RemoveExpense() error = %v", err)
	}

	zero := 0.0
	if err := f.store.UpdatePlan("r1", models.PlanPatch{Budget: &zero}); !errors.Is(err, models.ErrInvalidBudget) {
		t.Errorf("setting a zero budget should still fail, got %v", err)
	}
}

func TestOverBudget(t *testing.T) {
	f := newFixture(t, nil)
	draft := tokyoDraft()
	draft.Budget = 1000
	planID, _ := f.store.CreatePlan(draft)
	_, _ = f.store.AddExpense(models.Expense{Category: models.ExpenseShopping, Amount: 1200, Date: "2025-06-01"})

	p, _ := f.store.Plan(planID)
	if !p.IsOverBudget() {
		t.Error("plan should be over budget")
	}
}

func TestRegenerateItinerary(t *testing.T) {
	f := newFixture(t, nil)
	planID, _ := f.store.CreatePlan(tokyoDraft())
	f.gen.resp = ai.GenerateResponse{Itinerary: []models.ItineraryItem{
		{ID: "item-1", Day: 2, Time: "10:00", Title: "Temple", Category: models.ItineraryAttraction},
		{ID: "item-2", Day: 1, Time: "09:00", Title: "Market", Category: models.ItineraryRestaurant},
	}}

	if _, err := f.store.RegenerateItinerary(context.Background(), planID, "more food"); err != nil {
		t.Fatalf("RegenerateItinerary() error = %v", err)
	}
	req := f.gen.reqs[0]
	if req.Days != 3 || req.Remarks != "more food" || req.Destination != "Tokyo" {
		t.Errorf("request = %+v", req)
	}
	p, _ := f.store.Plan(planID)
	if len(p.Itinerary) != 2 || p.Itinerary[0].ID != "item-2" {
		t.Errorf("itinerary = %+v", p.Itinerary)
	}

	if _, err := f.store.RegenerateItinerary(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateItineraryPropagatesErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.err = &ai.MalformedResponseError{Reason: "no JSON object found"}

	_, err := f.store.GenerateItinerary(context.Background(), ai.GenerateRequest{Destination: "Tokyo", Days: 2})
	var malformed *ai.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *ai.MalformedResponseError, got %v", err)
	}
	st := f.store.Snapshot()
	if st.Error == "" || st.IsLoading {
		t.Errorf("state = %+v", st)
	}
}

func TestNewDraft(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.resp = ai.GenerateResponse{Itinerary: []models.ItineraryItem{{ID: "a", Day: 1, Time: "09:00", Title: "Walk"}}}

	draft, err := f.store.NewDraft(context.Background(), tokyoDraft(), "")
	if err != nil {
		t.Fatalf("NewDraft() error = %v", err)
	}
	if draft.Title != "Tokyo trip" || len(draft.Itinerary) != 1 || draft.ID != "" {
		t.Errorf("draft = %+v", draft)
	}
	if len(f.store.Plans()) != 0 {
		t.Error("NewDraft should not save anything")
	}

	bad := tokyoDraft()
	bad.Destination = ""
	if _, err := f.store.NewDraft(context.Background(), bad, ""); !errors.Is(err, models.ErrMissingDestination) {
		t.Errorf("expected ErrMissingDestination, got %v", err)
	}
	if len(f.gen.reqs) != 1 {
		t.Error("invalid input should not reach the generator")
	}
}

func TestDraftRecovery(t *testing.T) {
	f := newFixture(t, nil)
	f.session.id = ""

	if err := f.store.SaveDraft(tokyoDraft()); err != nil {
		t.Fatalf("SaveDraft() error = %v", err)
	}
	if !f.store.HasDraft() {
		t.Fatal("draft not stored")
	}
	if id, _ := f.store.RecoverDraft(); id != "" {
		t.Error("signed-out recovery should do nothing")
	}

	f.session.id = "u9"
	id, err := f.store.RecoverDraft()
	if err != nil || id == "" {
		t.Fatalf("RecoverDraft() = %q, %v", id, err)
	}
	p, _ := f.store.Plan(id)
	if p.UserID != "u9" || p.Destination != "Tokyo" {
		t.Errorf("recovered plan = %+v", p)
	}
	if f.store.HasDraft() {
		t.Error("draft should be cleared after recovery")
	}
	if id, _ := f.store.RecoverDraft(); id != "" {
		t.Error("second recovery should find nothing")
	}
}

func TestDraftRecoveryDiscardsCorruptDraft(t *testing.T) {
	f := newFixture(t, nil)
	_ = f.kv.Set(constants.KeyPendingDraft, "[1,2")
	if id, err := f.store.RecoverDraft(); id != "" || err != nil {
		t.Errorf("RecoverDraft() = %q, %v", id, err)
	}
	if _, ok, _ := f.kv.Get(constants.KeyPendingDraft); ok {
		t.Error("corrupt draft should be removed")
	}
}
