package models

import (
	"testing"
)

func samplePlan() TravelPlan {
	return TravelPlan{
		ID:          "p1",
		UserID:      "u1",
		Title:       "Tokyo trip",
		Destination: "Tokyo",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-03",
		Budget:      10000,
		Travelers:   2,
		Preferences: []string{"food"},
	}
}

func TestTravelPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *TravelPlan)
		wantErr bool
	}{
		{"valid plan", func(p *TravelPlan) {}, false},
		{"single day trip", func(p *TravelPlan) { p.EndDate = p.StartDate }, false},
		{"missing destination", func(p *TravelPlan) { p.Destination = "  " }, true},
		{"zero budget", func(p *TravelPlan) { p.Budget = 0 }, true},
		{"negative budget", func(p *TravelPlan) { p.Budget = -5 }, true},
		{"no travelers", func(p *TravelPlan) { p.Travelers = 0 }, true},
		{"malformed start date", func(p *TravelPlan) { p.StartDate = "06/01/2025" }, true},
		{"malformed end date", func(p *TravelPlan) { p.EndDate = "2025-13-01" }, true},
		{"end before start", func(p *TravelPlan) { p.EndDate = "2025-05-30" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTravelPlan_DurationDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"three days", "2025-06-01", "2025-06-03", 3},
		{"same day", "2025-06-01", "2025-06-01", 1},
		{"across month", "2025-01-30", "2025-02-02", 4},
		{"reversed", "2025-06-03", "2025-06-01", 1},
		{"unparseable", "soon", "later", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := TravelPlan{StartDate: tt.start, EndDate: tt.end}
			if got := p.DurationDays(); got != tt.want {
				t.Errorf("DurationDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTravelPlan_ExpenseTotals(t *testing.T) {
	p := samplePlan()
	p.Expenses = []Expense{
		{ID: "e1", Amount: 120, Category: ExpenseFood, Date: "2025-06-01"},
		{ID: "e2", Amount: 45, Category: ExpenseShopping, Date: "2025-06-02"},
	}

	if got := p.TotalSpend(); got != 165 {
		t.Fatalf("TotalSpend() = %v, want 165", got)
	}

	p.Expenses = p.Expenses[1:]
	if got := p.TotalSpend(); got != 45 {
		t.Errorf("TotalSpend() after removal = %v, want 45", got)
	}
	if got := p.Remaining(); got != 9955 {
		t.Errorf("Remaining() = %v, want 9955", got)
	}
}

func TestTravelPlan_IsOverBudget(t *testing.T) {
	p := samplePlan()
	p.Budget = 1000
	p.Expenses = []Expense{
		{ID: "e1", Amount: 700, Category: ExpenseAccommodation},
		{ID: "e2", Amount: 500, Category: ExpenseFood},
	}
	if !p.IsOverBudget() {
		t.Errorf("expected plan spending 1200 of 1000 to be over budget")
	}

	p.Expenses = p.Expenses[:1]
	if p.IsOverBudget() {
		t.Errorf("expected plan spending 700 of 1000 to be within budget")
	}
}

func TestTravelPlan_SpendByCategory(t *testing.T) {
	p := samplePlan()
	p.Expenses = []Expense{
		{Amount: 10, Category: ExpenseFood},
		{Amount: 15, Category: ExpenseFood},
		{Amount: 30, Category: ExpenseTransportation},
	}
	got := p.SpendByCategory()
	if len(got) != len(ExpenseCategories) {
		t.Fatalf("expected %d categories, got %d", len(ExpenseCategories), len(got))
	}
	if got[ExpenseFood] != 25 {
		t.Errorf("food = %v, want 25", got[ExpenseFood])
	}
	if got[ExpenseShopping] != 0 {
		t.Errorf("shopping = %v, want 0", got[ExpenseShopping])
	}
}

func TestTravelPlan_SortItinerary(t *testing.T) {
	p := samplePlan()
	p.Itinerary = []ItineraryItem{
		{ID: "c", Day: 2, Time: "09:00"},
		{ID: "b", Day: 1, Time: "14:00"},
		{ID: "a", Day: 1, Time: "09:00"},
	}
	p.SortItinerary()

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if p.Itinerary[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, p.Itinerary[i].ID, id)
		}
	}
}

func TestTravelPlan_Clone(t *testing.T) {
	cost := 50.0
	p := samplePlan()
	p.Itinerary = []ItineraryItem{{ID: "i1", EstimatedCost: &cost, Location: &Location{Name: "Shibuya"}}}
	p.Expenses = []Expense{{ID: "e1", Amount: 10}}

	c := p.Clone()
	c.Preferences[0] = "culture"
	*c.Itinerary[0].EstimatedCost = 99
	c.Itinerary[0].Location.Name = "Ginza"
	c.Expenses[0].Amount = 20

	if p.Preferences[0] != "food" {
		t.Errorf("clone shares preferences")
	}
	if *p.Itinerary[0].EstimatedCost != 50 || p.Itinerary[0].Location.Name != "Shibuya" {
		t.Errorf("clone shares itinerary items")
	}
	if p.Expenses[0].Amount != 10 {
		t.Errorf("clone shares expenses")
	}
}

func TestPlanPatch_Apply(t *testing.T) {
	p := samplePlan()
	title := "Renamed"
	budget := 500.0
	patch := PlanPatch{Title: &title, Budget: &budget}
	patch.Apply(&p)

	if p.Title != "Renamed" || p.Budget != 500 {
		t.Errorf("patch not applied: %+v", p)
	}
	if p.Destination != "Tokyo" || p.Travelers != 2 {
		t.Errorf("patch touched unrelated fields: %+v", p)
	}
	if (PlanPatch{}).IsEmpty() != true {
		t.Errorf("zero patch should be empty")
	}
	if patch.IsEmpty() {
		t.Errorf("patch with fields should not be empty")
	}
}

func TestPlanPatch_Validate(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }
	count := func(n int) *int { return &n }

	zeroBudget := samplePlan()
	zeroBudget.Budget = 0

	tests := []struct {
		name    string
		base    TravelPlan
		patch   PlanPatch
		wantErr bool
	}{
		{"empty patch", samplePlan(), PlanPatch{}, false},
		{"title on zero-budget plan", zeroBudget, PlanPatch{Title: str("Renamed")}, false},
		{"expenses on zero-budget plan", zeroBudget, PlanPatch{Expenses: &[]Expense{}}, false},
		{"zero budget set", samplePlan(), PlanPatch{Budget: num(0)}, true},
		{"positive budget set", zeroBudget, PlanPatch{Budget: num(100)}, false},
		{"blank destination", samplePlan(), PlanPatch{Destination: str(" ")}, true},
		{"no travelers", samplePlan(), PlanPatch{Travelers: count(0)}, true},
		{"end before stored start", samplePlan(), PlanPatch{EndDate: str("2025-05-30")}, true},
		{"start after stored end", samplePlan(), PlanPatch{StartDate: str("2025-06-04")}, true},
		{"both dates moved", samplePlan(), PlanPatch{StartDate: str("2025-07-01"), EndDate: str("2025-07-02")}, false},
		{"malformed date", samplePlan(), PlanPatch{StartDate: str("July 1")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate(tt.base)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	if _, ok := ParseTimestamp(""); ok {
		t.Errorf("empty timestamp should not parse")
	}
	if _, ok := ParseTimestamp("yesterday"); ok {
		t.Errorf("garbage timestamp should not parse")
	}
	ts, ok := ParseTimestamp("2025-06-01T10:00:00.123Z")
	if !ok {
		t.Fatalf("expected millisecond timestamp to parse")
	}
	if got := FormatTimestamp(ts); got != "2025-06-01T10:00:00.123Z" {
		t.Errorf("FormatTimestamp() = %s", got)
	}
	if !(TravelPlan{UpdatedAt: "bad"}).UpdatedTime().IsZero() {
		t.Errorf("unparseable updated_at should be zero time")
	}
}

func TestLocation_HasCoordinate(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want bool
	}{
		{"nil", nil, false},
		{"origin", &Location{Name: "x"}, false},
		{"set", &Location{Latitude: 39.9042, Longitude: 116.4074}, true},
		{"only longitude", &Location{Longitude: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.HasCoordinate(); got != tt.want {
				t.Errorf("HasCoordinate() = %v, want %v", got, tt.want)
			}
		})
	}
}
