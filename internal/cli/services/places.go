package services

import (
	"fmt"
	"strings"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/places"
)

const placesQPS = 3

type PlacesSearchCmd struct {
	Keywords string `arg:"" optional:"" help:"What to look for, e.g. \"hotel near the Bund\"."`
	City     string `short:"c" help:"City name or adcode. Defaults to the current plan's destination."`
	Near     string `help:"Bias results towards a coordinate (lng,lat)."`
	Sort     string `help:"Sort rule (weight|distance)." default:"weight" enum:"weight,distance"`
	Page     int    `help:"Result page." default:"1"`
	Limit    int    `short:"n" help:"Results per page (at most 25)." default:"10"`
	Suggest  bool   `help:"Suggest searches for the current plan's itinerary instead of searching."`
}

func (c *PlacesSearchCmd) Run(ctx *cli.Context) error {
	if c.Suggest {
		return c.suggest(ctx)
	}
	if strings.TrimSpace(c.Keywords) == "" {
		return places.ErrNoKeywords
	}
	if c.Near != "" {
		if _, _, err := places.ParseCoordinate(c.Near); err != nil {
			return err
		}
	}

	city := c.City
	if city == "" {
		if p := ctx.Plans.CurrentPlan(); p != nil {
			city = p.Destination
		}
	}

	client := places.NewClient(ctx.API.AmapKey, placesQPS)
	results, err := client.Search(ctx.Ctx, places.SearchParams{
		Keywords: c.Keywords,
		City:     city,
		Location: c.Near,
		SortRule: places.SortRule(c.Sort),
		Page:     c.Page,
		Offset:   c.Limit,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No places found.")
		return nil
	}

	for i, p := range results {
		fmt.Printf("%2d. %s\n", i+1, p.Name)
		if p.Address != "" {
			fmt.Printf("    %s\n", p.Address)
		}
		details := []string{}
		if p.Type != "" {
			details = append(details, p.Type)
		}
		if p.Distance > 0 {
			details = append(details, fmt.Sprintf("%.0f m", p.Distance))
		}
		if p.Location != "" {
			details = append(details, p.Location)
		}
		if len(details) > 0 {
			fmt.Printf("    %s\n", strings.Join(details, " · "))
		}
	}
	return nil
}

func (c *PlacesSearchCmd) suggest(ctx *cli.Context) error {
	p, err := ctx.ResolvePlan("")
	if err != nil {
		return err
	}
	if !ctx.AI.HasKey() {
		return fmt.Errorf("%w: suggestions need a language model", ai.ErrNoAPIKey)
	}
	q := ctx.AI.ExtractPOIQueries(ctx.Ctx, ai.POIInput{Destination: p.Destination, Itinerary: p.Itinerary})

	groups := []struct {
		title   string
		queries []string
	}{
		{"Transport", q.Transport},
		{"Hotels", q.Hotels},
		{"Restaurants", q.Restaurants},
	}
	for _, g := range groups {
		fmt.Printf("%s:\n", g.title)
		if len(g.queries) == 0 {
			fmt.Println("  (none)")
			continue
		}
		for _, query := range g.queries {
			fmt.Printf("  tripkit places search %q --city %q\n", query, p.Destination)
		}
	}
	return nil
}
