package system

import (
	"fmt"

	"github.com/julianstephens/tripkit/internal/analytics"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

type StatsCmd struct {
	From string `help:"Only count plans starting or ending on or after this date (YYYY-MM-DD)."`
	To   string `help:"Only count plans starting or ending on or before this date (YYYY-MM-DD)."`
}

func (c *StatsCmd) Validate() error {
	for _, d := range []string{c.From, c.To} {
		if d != "" && !utils.ValidateDateFormat(d) {
			return fmt.Errorf("invalid date %q: must be YYYY-MM-DD", d)
		}
	}
	if c.From != "" && c.To != "" && c.To < c.From {
		return fmt.Errorf("--to must not be before --from")
	}
	return nil
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	s := analytics.Compute(ctx.Plans.Plans(), analytics.Range{Start: c.From, End: c.To}, utils.Today())
	if s.TotalPlans == 0 {
		fmt.Println("No plans in range.")
		return nil
	}

	fmt.Printf("Plans:               %d (%d upcoming, %d past)\n", s.TotalPlans, s.UpcomingPlans, s.PastPlans)
	fmt.Printf("Total budget:        %s over %d day(s)\n", cli.FormatMoney(s.TotalBudget), s.TotalDays)
	fmt.Printf("Avg daily budget:    %s\n", cli.FormatMoney(s.AvgDailyBudget))
	fmt.Printf("Avg per traveler:    %s (%d traveler(s))\n", cli.FormatMoney(s.AvgPerCapitaBudget), s.TotalTravelers)
	fmt.Printf("Total spend:         %s\n", cli.FormatMoney(s.TotalExpense))

	fmt.Println("\nSpend by category:")
	for _, cat := range models.ExpenseCategories {
		fmt.Printf("  %-15s %12s  %3d%%\n", cat, cli.FormatMoney(s.ByCategory[cat]), s.CategoryShare(cat))
	}

	if len(s.TopDestinations) > 0 {
		fmt.Println("\nTop destinations:")
		for i, d := range s.TopDestinations {
			fmt.Printf("  %d. %s (%d)\n", i+1, d.Destination, d.Plans)
		}
	}
	return nil
}
