package plans

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/tripkit/internal/analytics"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

func parseExpenseCategory(s string) (models.ExpenseCategory, error) {
	c := models.ExpenseCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		names := make([]string, 0, len(models.ExpenseCategories))
		for _, known := range models.ExpenseCategories {
			names = append(names, string(known))
		}
		return "", fmt.Errorf("invalid expense category %q: use %s", s, strings.Join(names, "|"))
	}
	return c, nil
}

type ExpenseAddCmd struct {
	Amount      float64 `arg:"" help:"Amount spent."`
	Category    string  `short:"c" help:"Category (transportation|accommodation|food|attraction|shopping|other)." default:"other"`
	Description string  `short:"m" help:"What it was for."`
	Date        string  `short:"d" help:"Date (YYYY-MM-DD). Defaults to today."`
	Location    string  `short:"l" help:"Place name."`
	Plan        string  `help:"Plan ID. Defaults to the current plan."`
}

func (c *ExpenseAddCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	category, err := parseExpenseCategory(c.Category)
	if err != nil {
		return err
	}
	date := c.Date
	if date == "" {
		date = utils.Today()
	}
	e := models.Expense{
		Category:    category,
		Amount:      c.Amount,
		Description: c.Description,
		Date:        date,
	}
	if c.Location != "" {
		e.Location = &models.Location{Name: c.Location}
	}

	id, err := ctx.Plans.AddExpense(e)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Recorded %s for %s (ID: %s)\n", cli.FormatMoney(e.Amount), e.Category, id)
	if updated, ok := ctx.Plans.Plan(p.ID); ok && updated.IsOverBudget() {
		fmt.Printf("⚠ %s is over budget: spent %s of %s\n", updated.Title,
			cli.FormatMoney(updated.TotalSpend()), cli.FormatMoney(updated.Budget))
	}
	return nil
}

type ExpenseEditCmd struct {
	ID          string   `arg:"" help:"Expense ID."`
	Amount      *float64 `short:"a" help:"New amount."`
	Category    *string  `short:"c" help:"New category."`
	Description *string  `short:"m" help:"New description."`
	Date        *string  `short:"d" help:"New date (YYYY-MM-DD)."`
	Plan        string   `help:"Plan ID. Defaults to the current plan."`
}

func (c *ExpenseEditCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	idx := p.ExpenseByID(c.ID)
	if idx < 0 {
		return fmt.Errorf("expense %s not found in %s", c.ID, p.Title)
	}
	e := p.Expenses[idx].Clone()

	if c.Amount != nil {
		e.Amount = *c.Amount
	}
	if c.Category != nil {
		category, err := parseExpenseCategory(*c.Category)
		if err != nil {
			return err
		}
		e.Category = category
	}
	if c.Description != nil {
		e.Description = *c.Description
	}
	if c.Date != nil {
		e.Date = *c.Date
	}

	if err := ctx.Plans.UpdateExpense(e); err != nil {
		return err
	}
	fmt.Printf("✓ Updated expense %s\n", e.ID)
	return nil
}

type ExpenseRemoveCmd struct {
	ID   string `arg:"" help:"Expense ID."`
	Plan string `help:"Plan ID. Defaults to the current plan."`
}

func (c *ExpenseRemoveCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	if p.ExpenseByID(c.ID) < 0 {
		return fmt.Errorf("expense %s not found in %s", c.ID, p.Title)
	}
	if err := ctx.Plans.RemoveExpense(c.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed expense %s\n", c.ID)
	return nil
}

type ExpenseListCmd struct {
	Plan string `arg:"" optional:"" help:"Plan ID. Defaults to the current plan."`
}

func (c *ExpenseListCmd) Run(ctx *cli.Context) error {
	p, err := ctx.ResolvePlan(c.Plan)
	if err != nil {
		return err
	}
	if len(p.Expenses) == 0 {
		fmt.Printf("No expenses recorded for %s.\n", p.Title)
		return nil
	}

	expenses := make([]models.Expense, len(p.Expenses))
	copy(expenses, p.Expenses)
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date < expenses[j].Date
	})

	fmt.Printf("Expenses for %s:\n", p.Title)
	for _, e := range expenses {
		fmt.Printf("  %s  %-14s %12s  %s (ID: %s)\n", e.Date, e.Category, cli.FormatMoney(e.Amount), e.Description, e.ID)
	}

	summary := analytics.Summarize(p)
	fmt.Println("\nBy category:")
	for _, category := range models.ExpenseCategories {
		if v := summary.ByCategory[category]; v > 0 {
			fmt.Printf("  %-14s %12s\n", category, cli.FormatMoney(v))
		}
	}
	fmt.Printf("\nSpent %s of %s, remaining %s\n",
		cli.FormatMoney(summary.Spend), cli.FormatMoney(summary.Budget), cli.FormatMoney(summary.Remaining))
	if summary.OverBudget {
		fmt.Println("⚠ Over budget")
	}
	return nil
}
