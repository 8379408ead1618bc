// Package analytics computes aggregate spending and budget statistics over plans.
package analytics

import (
	"sort"
	"strings"

	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

const topDestinationLimit = 5

// Range filters plans by date. Empty bounds are open.
type Range struct {
	Start string
	End   string
}

func (r Range) IsZero() bool { return r.Start == "" && r.End == "" }

// contains reports whether date falls inside the range. Dates compare
// lexically since they are all YYYY-MM-DD.
func (r Range) contains(date string) bool {
	if !utils.ValidateDateFormat(date) {
		return false
	}
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

// Includes reports whether a plan starts or ends inside the range.
func (r Range) Includes(p models.TravelPlan) bool {
	if r.IsZero() {
		return true
	}
	return r.contains(p.StartDate) || r.contains(p.EndDate)
}

type DestinationCount struct {
	Destination string
	Plans       int
}

// Stats aggregates a set of plans.
type Stats struct {
	TotalPlans         int
	UpcomingPlans      int
	PastPlans          int
	TotalBudget        float64
	TotalDays          int
	TotalTravelers     int
	AvgDailyBudget     float64
	AvgPerCapitaBudget float64
	TotalExpense       float64
	ByCategory         map[models.ExpenseCategory]float64
	TopDestinations    []DestinationCount
}

// CategoryShare returns the percentage of total expense spent in c, rounded
// to the nearest integer.
func (s Stats) CategoryShare(c models.ExpenseCategory) int {
	if s.TotalExpense <= 0 {
		return 0
	}
	return int(s.ByCategory[c]/s.TotalExpense*100 + 0.5)
}

// Compute aggregates the plans inside r. today (YYYY-MM-DD) decides which
// plans count as upcoming or past.
func Compute(plans []models.TravelPlan, r Range, today string) Stats {
	s := Stats{ByCategory: make(map[models.ExpenseCategory]float64, len(models.ExpenseCategories))}
	for _, c := range models.ExpenseCategories {
		s.ByCategory[c] = 0
	}

	counts := map[string]int{}
	for _, p := range plans {
		if !r.Includes(p) {
			continue
		}
		s.TotalPlans++
		if p.StartDate >= today {
			s.UpcomingPlans++
		}
		if p.EndDate < today {
			s.PastPlans++
		}
		s.TotalBudget += p.Budget
		s.TotalDays += p.DurationDays()
		s.TotalTravelers += p.Travelers

		for _, e := range p.Expenses {
			s.TotalExpense += e.Amount
			cat := e.Category
			if cat == "" {
				cat = models.ExpenseOther
			}
			s.ByCategory[cat] += e.Amount
		}

		if dest := strings.TrimSpace(p.Destination); dest != "" {
			counts[dest]++
		}
	}

	if s.TotalDays > 0 {
		s.AvgDailyBudget = s.TotalBudget / float64(s.TotalDays)
	}
	if s.TotalTravelers > 0 {
		s.AvgPerCapitaBudget = s.TotalBudget / float64(s.TotalTravelers)
	}
	s.TopDestinations = topDestinations(counts)
	return s
}

func topDestinations(counts map[string]int) []DestinationCount {
	out := make([]DestinationCount, 0, len(counts))
	for dest, n := range counts {
		out = append(out, DestinationCount{Destination: dest, Plans: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plans != out[j].Plans {
			return out[i].Plans > out[j].Plans
		}
		return out[i].Destination < out[j].Destination
	})
	if len(out) > topDestinationLimit {
		out = out[:topDestinationLimit]
	}
	return out
}

// PlanSummary is the budget position of a single plan.
type PlanSummary struct {
	PlanID     string
	Budget     float64
	Spend      float64
	Remaining  float64
	OverBudget bool
	ByCategory map[models.ExpenseCategory]float64
	// DailySpend maps YYYY-MM-DD to the spend recorded that day.
	DailySpend map[string]float64
}

// Summarize returns the budget position of p.
func Summarize(p models.TravelPlan) PlanSummary {
	daily := make(map[string]float64)
	for _, e := range p.Expenses {
		daily[e.Date] += e.Amount
	}
	return PlanSummary{
		PlanID:     p.ID,
		Budget:     p.Budget,
		Spend:      p.TotalSpend(),
		Remaining:  p.Remaining(),
		OverBudget: p.IsOverBudget(),
		ByCategory: p.SpendByCategory(),
		DailySpend: daily,
	}
}
