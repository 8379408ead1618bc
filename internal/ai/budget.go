package ai

import (
	"context"
	"fmt"
	"strings"
)

const maxTips = 5

// BudgetInput is the trip summary a budget analysis is made for.
type BudgetInput struct {
	Destination string
	Days        int
	Budget      float64
	Travelers   int
	Preferences []string
	StartDate   string
}

// Breakdown splits the total budget across spending categories.
type Breakdown struct {
	Transportation float64 `json:"transportation"`
	Accommodation  float64 `json:"accommodation"`
	Dining         float64 `json:"dining"`
	Attractions    float64 `json:"attractions"`
	Activities     float64 `json:"activities"`
	Shopping       float64 `json:"shopping"`
	Other          float64 `json:"other"`
}

// Total sums every category.
func (b Breakdown) Total() float64 {
	return b.Transportation + b.Accommodation + b.Dining + b.Attractions + b.Activities + b.Shopping + b.Other
}

// BudgetAnalysis is a normalized model answer. DailyBudget always has one
// entry per trip day.
type BudgetAnalysis struct {
	Breakdown   Breakdown `json:"breakdown"`
	DailyBudget []float64 `json:"daily_budget"`
	Tips        []string  `json:"tips"`
}

const budgetTemplate = `Analyse the budget for this trip and reply with a single JSON object:
Destination: %s
Days: %d
Total budget: %.0f
Travelers: %d
Preferences: %s

Reply strictly with this JSON (one object, double quotes, no trailing commas, numbers as numbers):
{
  "breakdown": {
    "transportation": 0,
    "accommodation": 0,
    "dining": 0,
    "attractions": 0,
    "activities": 0,
    "shopping": 0,
    "other": 0
  },
  "daily_budget": [0],
  "tips": ["at most 5 short tips"]
}
Rules:
- breakdown is a reasonable split of the total budget in money (it only needs to be close to the total);
- daily_budget has exactly %d entries, one suggested amount per day;
- at most 5 tips, each one short sentence.`

// AnalyzeBudget returns a category breakdown and daily amounts. It needs an
// API key and returns ErrNoAPIKey without one.
func (c *Client) AnalyzeBudget(ctx context.Context, in BudgetInput) (BudgetAnalysis, error) {
	if !c.HasKey() {
		return BudgetAnalysis{}, ErrNoAPIKey
	}
	days := in.Days
	if days < 1 {
		days = 1
	}

	prompt := fmt.Sprintf(budgetTemplate, in.Destination, days, in.Budget, in.Travelers,
		strings.Join(in.Preferences, ", "), days)
	out, err := c.chat(ctx, []Message{
		{Role: "system", Content: "You are a careful travel budget analyst. Output strict JSON only, no explanations."},
		{Role: "user", Content: prompt},
	}, chatOptions{temperature: 0.3})
	if err != nil {
		return BudgetAnalysis{}, fmt.Errorf("budget analysis failed: %w", err)
	}

	obj, err := ExtractJSON(out)
	if err != nil {
		return BudgetAnalysis{}, err
	}
	return normalizeBudget(obj, days), nil
}

func normalizeBudget(obj map[string]interface{}, days int) BudgetAnalysis {
	bd := object(obj["breakdown"])
	analysis := BudgetAnalysis{
		Breakdown: Breakdown{
			Transportation: numberOr(bd["transportation"], 0),
			Accommodation:  numberOr(bd["accommodation"], 0),
			Dining:         numberOr(bd["dining"], 0),
			Attractions:    numberOr(bd["attractions"], 0),
			Activities:     numberOr(bd["activities"], 0),
			Shopping:       numberOr(bd["shopping"], 0),
			Other:          numberOr(bd["other"], 0),
		},
		DailyBudget: make([]float64, days),
		Tips:        stringList(obj["tips"], maxTips),
	}

	raw, _ := obj["daily_budget"].([]interface{})
	for i := 0; i < days && i < len(raw); i++ {
		analysis.DailyBudget[i] = numberOr(raw[i], 0)
	}
	return analysis
}
