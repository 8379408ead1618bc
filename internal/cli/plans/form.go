package plans

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/utils"
)

// planForm holds the string values the form edits.
type planForm struct {
	Destination string
	Start       string
	End         string
	Budget      string
	Travelers   string
	Preferences []string
	Title       string
	Remarks     string
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if !utils.ValidateDateFormat(strings.TrimSpace(s)) {
		return errors.New("date must be YYYY-MM-DD")
	}
	return nil
}

func validateAmount(kind string) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", kind)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be greater than zero", kind)
		}
		return nil
	}
}

func newPlanForm(fm *planForm) *huh.Form {
	options := make([]huh.Option[string], 0, len(ai.AllowedPreferences))
	for _, p := range ai.AllowedPreferences {
		options = append(options, huh.NewOption(p, p))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Destination").
				Value(&fm.Destination).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("destination cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Start date").
				Description("YYYY-MM-DD").
				Value(&fm.Start).
				Validate(validateDate),
			huh.NewInput().
				Title("End date").
				Description("YYYY-MM-DD, defaults to the start date").
				Value(&fm.End).
				Validate(validateDate),
			huh.NewInput().
				Title("Budget").
				Value(&fm.Budget).
				Validate(validateAmount("budget")),
			huh.NewInput().
				Title("Travelers").
				Value(&fm.Travelers).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return errors.New("travelers must be at least 1")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Preferences").
				Options(options...).
				Limit(5).
				Value(&fm.Preferences),
			huh.NewInput().
				Title("Title").
				Description("Leave empty for '<destination> trip'").
				Value(&fm.Title),
			huh.NewText().
				Title("Remarks").
				Description("Anything the itinerary should take into account").
				Value(&fm.Remarks),
		),
	).WithTheme(huh.ThemeDracula())
}

// runPlanForm prefills the form from the flags and writes the answers back.
func runPlanForm(c *PlanNewCmd) error {
	fm := &planForm{
		Destination: c.Destination,
		Start:       c.Start,
		End:         c.End,
		Title:       c.Title,
		Remarks:     c.Remarks,
		Preferences: cli.SplitList(c.Preferences),
	}
	if c.Budget > 0 {
		fm.Budget = strconv.FormatFloat(c.Budget, 'f', -1, 64)
	}
	if c.Travelers > 0 {
		fm.Travelers = strconv.Itoa(c.Travelers)
	}

	if err := newPlanForm(fm).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("plan creation cancelled")
		}
		return err
	}

	c.Destination = strings.TrimSpace(fm.Destination)
	c.Start = strings.TrimSpace(fm.Start)
	c.End = strings.TrimSpace(fm.End)
	c.Title = strings.TrimSpace(fm.Title)
	c.Remarks = strings.TrimSpace(fm.Remarks)
	c.Preferences = strings.Join(fm.Preferences, ",")
	if v, err := strconv.ParseFloat(strings.TrimSpace(fm.Budget), 64); err == nil {
		c.Budget = v
	}
	if n, err := strconv.Atoi(strings.TrimSpace(fm.Travelers)); err == nil {
		c.Travelers = n
	}
	return nil
}
