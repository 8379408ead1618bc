package plans

import (
	"fmt"
	"strings"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/models"
)

// targetPlan switches to the plan named by --plan, or returns the current one.
func targetPlan(ctx *cli.Context, id string) (models.TravelPlan, error) {
	if id != "" {
		return ctx.UseCurrent(id)
	}
	return ctx.ResolvePlan("")
}

func categoryList() string {
	names := make([]string, 0, len(models.ItineraryCategories))
	for _, c := range models.ItineraryCategories {
		names = append(names, string(c))
	}
	return strings.Join(names, "|")
}

type ItemAddCmd struct {
	Title       string   `arg:"" help:"What happens."`
	Day         int      `short:"d" help:"Trip day, starting at 1." default:"1"`
	Time        string   `short:"t" help:"Start time (HH:MM)." default:"09:00"`
	Category    string   `short:"c" help:"Category (transportation|accommodation|attraction|restaurant|activity|other)." default:"activity"`
	Description string   `help:"Longer description."`
	Location    string   `short:"l" help:"Place name."`
	Address     string   `help:"Place address."`
	Cost        *float64 `help:"Estimated cost."`
	Plan        string   `help:"Plan ID. Defaults to the current plan."`
}

func (c *ItemAddCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	if days := p.DurationDays(); c.Day > days {
		return fmt.Errorf("day %d is outside the %d-day trip", c.Day, days)
	}
	item := models.ItineraryItem{
		Day:           c.Day,
		Time:          c.Time,
		Title:         strings.TrimSpace(c.Title),
		Description:   c.Description,
		Category:      models.ParseItineraryCategory(strings.ToLower(c.Category)),
		EstimatedCost: c.Cost,
	}
	if c.Location != "" || c.Address != "" {
		item.Location = &models.Location{Name: c.Location, Address: c.Address}
	}

	id, err := ctx.Plans.AddItineraryItem(item)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added %s on day %d at %s (ID: %s)\n", item.Title, item.Day, item.Time, id)
	return nil
}

type ItemEditCmd struct {
	ID          string   `arg:"" help:"Item ID."`
	Title       *string  `help:"New title."`
	Day         *int     `short:"d" help:"New trip day."`
	Time        *string  `short:"t" help:"New start time (HH:MM)."`
	Category    *string  `short:"c" help:"New category."`
	Description *string  `help:"New description."`
	Location    *string  `short:"l" help:"New place name."`
	Cost        *float64 `help:"New estimated cost."`
	Plan        string   `help:"Plan ID. Defaults to the current plan."`
}

func (c *ItemEditCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	idx := p.ItemByID(c.ID)
	if idx < 0 {
		return fmt.Errorf("itinerary item %s not found in %s", c.ID, p.Title)
	}
	item := p.Itinerary[idx].Clone()

	if c.Title != nil {
		item.Title = strings.TrimSpace(*c.Title)
	}
	if c.Day != nil {
		if *c.Day > p.DurationDays() {
			return fmt.Errorf("day %d is outside the %d-day trip", *c.Day, p.DurationDays())
		}
		item.Day = *c.Day
	}
	if c.Time != nil {
		item.Time = *c.Time
	}
	if c.Category != nil {
		item.Category = models.ParseItineraryCategory(strings.ToLower(*c.Category))
		if string(item.Category) != strings.ToLower(*c.Category) {
			return fmt.Errorf("invalid category %q: use %s", *c.Category, categoryList())
		}
	}
	if c.Description != nil {
		item.Description = *c.Description
	}
	if c.Location != nil {
		if *c.Location == "" {
			item.Location = nil
		} else if item.Location == nil {
			item.Location = &models.Location{Name: *c.Location}
		} else {
			item.Location.Name = *c.Location
		}
	}
	if c.Cost != nil {
		cost := *c.Cost
		item.EstimatedCost = &cost
	}

	if err := ctx.Plans.UpdateItineraryItem(item); err != nil {
		return err
	}
	fmt.Printf("✓ Updated %s (ID: %s)\n", item.Title, item.ID)
	return nil
}

type ItemRemoveCmd struct {
	ID   string `arg:"" help:"Item ID."`
	Plan string `help:"Plan ID. Defaults to the current plan."`
}

func (c *ItemRemoveCmd) Run(ctx *cli.Context) error {
	p, err := targetPlan(ctx, c.Plan)
	if err != nil {
		return err
	}
	if p.ItemByID(c.ID) < 0 {
		return fmt.Errorf("itinerary item %s not found in %s", c.ID, p.Title)
	}
	if err := ctx.Plans.RemoveItineraryItem(c.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed itinerary item %s\n", c.ID)
	return nil
}
