package plans

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

type PlanNewCmd struct {
	Destination string  `arg:"" optional:"" help:"Where the trip goes."`
	Start       string  `short:"s" help:"Start date (YYYY-MM-DD)."`
	End         string  `short:"e" help:"End date (YYYY-MM-DD)."`
	Budget      float64 `short:"b" help:"Total budget."`
	Travelers   int     `short:"t" help:"Number of travelers." default:"1"`
	Preferences string  `short:"p" help:"Comma-separated preferences (food, culture, nature, ...)."`
	Title       string  `help:"Plan title. Defaults to '<destination> trip'."`
	Remarks     string  `short:"r" help:"Extra wishes passed to the itinerary generator."`
	Say         string  `help:"Describe the trip in one sentence instead of flags, e.g. \"3 days in Beijing for 2 people, budget 5000\"."`
	Interactive bool    `short:"i" help:"Fill the plan in with an interactive form."`
	NoItinerary bool    `name:"no-itinerary" help:"Create the plan without generating an itinerary."`
}

func (c *PlanNewCmd) Run(ctx *cli.Context) error {
	if c.Say != "" {
		c.applyVoice(ctx, c.Say)
	}
	if c.Interactive {
		if err := runPlanForm(c); err != nil {
			return err
		}
	}
	if c.Start != "" && c.End == "" {
		c.End = c.Start
	}

	input := models.TravelPlan{
		Title:       c.Title,
		Destination: strings.TrimSpace(c.Destination),
		StartDate:   c.Start,
		EndDate:     c.End,
		Budget:      c.Budget,
		Travelers:   c.Travelers,
		Preferences: cli.SplitList(c.Preferences),
	}
	if err := input.Validate(); err != nil {
		return err
	}

	draft := input.Clone()
	if c.NoItinerary {
		if strings.TrimSpace(draft.Title) == "" {
			draft.Title = draft.Destination + " trip"
		}
		draft.Normalize()
	} else {
		fmt.Printf("Generating a %d-day itinerary for %s...\n", input.DurationDays(), input.Destination)
		var err error
		draft, err = ctx.Plans.NewDraft(ctx.Ctx, input, c.Remarks)
		if err != nil {
			return fmt.Errorf("failed to generate itinerary: %w", err)
		}
		if !ctx.AI.HasKey() {
			fmt.Println("No openai_api_key configured, using a sample itinerary.")
		}
	}

	if ctx.Auth.UserID() == "" {
		if err := ctx.Plans.SaveDraft(draft); err != nil {
			return fmt.Errorf("failed to keep draft: %w", err)
		}
		fmt.Println("You are not signed in. The plan was kept as a draft and will be saved")
		fmt.Println("after 'tripkit auth login' (demo account: demo@example.com / demo123).")
		return nil
	}

	id, err := ctx.Plans.CreatePlan(draft)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Created plan %s (%s, %s to %s)\n", id, draft.Destination, draft.StartDate, draft.EndDate)
	if plan, ok := ctx.Plans.Plan(id); ok {
		printItinerary(plan)
	}
	return nil
}

// applyVoice fills empty flags from a spoken or typed sentence.
func (c *PlanNewCmd) applyVoice(ctx *cli.Context, text string) {
	fields, err := ctx.AI.ParseVoiceInput(ctx.Ctx, text)
	if err != nil {
		if !errors.Is(err, ai.ErrNoAPIKey) {
			logger.Warn("Voice parsing failed, using local heuristic", "error", err)
		}
		fields = ai.ParseVoiceInputLocal(text)
	}
	if c.Destination == "" {
		c.Destination = fields.Destination
	}
	if c.Budget == 0 {
		c.Budget = fields.Budget
	}
	if c.Travelers <= 1 && fields.Travelers > 0 {
		c.Travelers = fields.Travelers
	}
	if c.Preferences == "" && len(fields.Preferences) > 0 {
		c.Preferences = strings.Join(fields.Preferences, ",")
	}
	if c.Start == "" {
		c.Start = fields.StartDate
	}
	if c.End == "" {
		c.End = fields.EndDate
	}
	if c.Remarks == "" {
		c.Remarks = fields.Remarks
	}
}

type PlanListCmd struct {
	ShowIDs bool `help:"Show plan IDs." name:"show-ids" default:"true" negatable:""`
}

func (c *PlanListCmd) Run(ctx *cli.Context) error {
	st := ctx.Plans.Snapshot()
	if len(st.Plans) == 0 {
		fmt.Println("No plans found. Create one with 'tripkit plan new <destination>'.")
		return nil
	}

	currentID := ""
	if st.CurrentPlan != nil {
		currentID = st.CurrentPlan.ID
	}
	fmt.Println("Plans:")
	for _, p := range st.Plans {
		marker := " "
		if p.ID == currentID {
			marker = "*"
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", p.ID)
		}
		over := ""
		if p.IsOverBudget() {
			over = " OVER BUDGET"
		}
		fmt.Printf(" %s %s%s - %s to %s, %d traveler(s), %s / %s%s\n",
			marker, p.Title, idStr, p.StartDate, p.EndDate, p.Travelers,
			cli.FormatMoney(p.TotalSpend()), cli.FormatMoney(p.Budget), over)
	}
	return nil
}

type PlanShowCmd struct {
	ID   string `arg:"" optional:"" help:"Plan ID. Defaults to the current plan."`
	Tips bool   `help:"Also print travel tips for the destination."`
}

func (c *PlanShowCmd) Run(ctx *cli.Context) error {
	p, err := ctx.ResolvePlan(c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", p.Title)
	fmt.Printf("  ID:          %s\n", p.ID)
	fmt.Printf("  Destination: %s\n", p.Destination)
	fmt.Printf("  Dates:       %s to %s (%d day(s))\n", p.StartDate, p.EndDate, p.DurationDays())
	fmt.Printf("  Travelers:   %d\n", p.Travelers)
	if len(p.Preferences) > 0 {
		fmt.Printf("  Preferences: %s\n", strings.Join(p.Preferences, ", "))
	}
	fmt.Printf("  Budget:      %s (spent %s, remaining %s)\n",
		cli.FormatMoney(p.Budget), cli.FormatMoney(p.TotalSpend()), cli.FormatMoney(p.Remaining()))
	if p.IsOverBudget() {
		fmt.Println("  ⚠ Over budget")
	}
	fmt.Printf("  Updated:     %s\n", p.UpdatedAt)
	fmt.Println()
	printItinerary(p)
	if c.Tips {
		tips, err := ctx.AI.Recommendations(ctx.Ctx, p.Destination, p.Preferences)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Tips:")
		for _, tip := range tips {
			fmt.Printf("  - %s\n", tip)
		}
	}
	return nil
}

func printItinerary(p models.TravelPlan) {
	if len(p.Itinerary) == 0 {
		fmt.Println("No itinerary items.")
		return
	}
	day := 0
	for _, item := range p.Itinerary {
		if item.Day != day {
			day = item.Day
			date, err := utils.DateForDay(p.StartDate, day)
			if err != nil {
				date = "?"
			}
			fmt.Printf("Day %d (%s)\n", day, date)
		}
		cost := ""
		if item.EstimatedCost != nil {
			cost = " " + cli.FormatMoney(*item.EstimatedCost)
		}
		fmt.Printf("  %s  %-30s [%s]%s (ID: %s)\n", item.Time, item.Title, item.Category, cost, item.ID)
		if item.Location != nil && item.Location.Name != "" {
			fmt.Printf("         @ %s\n", item.Location.Name)
		}
	}
}

type PlanUseCmd struct {
	ID string `arg:"" help:"Plan ID to make current."`
}

func (c *PlanUseCmd) Run(ctx *cli.Context) error {
	p, err := ctx.UseCurrent(c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Current plan: %s (%s)\n", p.Title, p.ID)
	return nil
}

type PlanDeleteCmd struct {
	ID          string  `arg:"" help:"Plan ID to delete."`
	Yes bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *PlanDeleteCmd) Run(ctx *cli.Context) error {
	p, ok := ctx.Plans.Plan(c.ID)
	if !ok {
		return fmt.Errorf("plan %s not found", c.ID)
	}
	if !c.Yes {
		fmt.Printf("Delete plan %q (%s)? [y/N]: ", p.Title, p.ID)
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}
	ctx.Plans.DeletePlan(c.ID)
	fmt.Printf("✓ Deleted plan %s\n", c.ID)
	return nil
}

type PlanRegenerateCmd struct {
	ID          string  `arg:"" optional:"" help:"Plan ID. Defaults to the current plan."`
	Remarks string `short:"r" help:"What to change, e.g. \"more museums, fewer early mornings\"."`
}

func (c *PlanRegenerateCmd) Run(ctx *cli.Context) error {
	p, err := ctx.ResolvePlan(c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Regenerating itinerary for %s...\n", p.Title)
	resp, err := ctx.Plans.RegenerateItinerary(ctx.Ctx, p.ID, c.Remarks)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %d item(s), estimated total %s\n", len(resp.Itinerary), cli.FormatMoney(resp.EstimatedTotalCost))
	for _, tip := range resp.Recommendations {
		fmt.Printf("  • %s\n", tip)
	}
	return nil
}

type PlanAnalyzeCmd struct {
	ID string `arg:"" optional:"" help:"Plan ID. Defaults to the current plan."`
}

func (c *PlanAnalyzeCmd) Run(ctx *cli.Context) error {
	p, err := ctx.ResolvePlan(c.ID)
	if err != nil {
		return err
	}
	analysis, err := ctx.AI.AnalyzeBudget(ctx.Ctx, ai.BudgetInput{
		Destination: p.Destination,
		Days:        p.DurationDays(),
		Budget:      p.Budget,
		Travelers:   p.Travelers,
		Preferences: p.Preferences,
		StartDate:   p.StartDate,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoAPIKey) {
			return fmt.Errorf("%w: set it with 'tripkit config set openai_api_key <key>'", err)
		}
		return err
	}

	b := analysis.Breakdown
	fmt.Printf("Budget breakdown for %s (%s):\n", p.Title, cli.FormatMoney(p.Budget))
	rows := []struct {
		name  string
		value float64
	}{
		{"Transportation", b.Transportation},
		{"Accommodation", b.Accommodation},
		{"Dining", b.Dining},
		{"Attractions", b.Attractions},
		{"Activities", b.Activities},
		{"Shopping", b.Shopping},
		{"Other", b.Other},
	}
	for _, r := range rows {
		fmt.Printf("  %-15s %12s\n", r.name, cli.FormatMoney(r.value))
	}
	fmt.Printf("  %-15s %12s\n", "Total", cli.FormatMoney(b.Total()))

	fmt.Println("\nDaily budget:")
	for i, v := range analysis.DailyBudget {
		fmt.Printf("  Day %d: %s\n", i+1, cli.FormatMoney(v))
	}
	if len(analysis.Tips) > 0 {
		fmt.Println("\nTips:")
		for _, tip := range analysis.Tips {
			fmt.Printf("  • %s\n", tip)
		}
	}
	return nil
}
