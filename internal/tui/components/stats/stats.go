package stats

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tripkit/internal/analytics"
	"github.com/julianstephens/tripkit/internal/models"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			MarginTop(1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

const barWidth = 20

type Model struct {
	stats analytics.Stats
	width int
}

func New() Model {
	return Model{}
}

func (m *Model) SetPlans(plans []models.TravelPlan, today string) {
	m.stats = analytics.Compute(plans, analytics.Range{}, today)
}

func (m *Model) SetSize(width, _ int) {
	m.width = width
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func (m Model) View() string {
	s := m.stats
	if s.TotalPlans == 0 {
		return "No plans to summarise yet."
	}

	var b strings.Builder
	b.WriteString(row("Plans", fmt.Sprintf("%d (%d upcoming, %d past)", s.TotalPlans, s.UpcomingPlans, s.PastPlans)) + "\n")
	b.WriteString(row("Total budget", fmt.Sprintf("¥%.2f", s.TotalBudget)) + "\n")
	b.WriteString(row("Total days", fmt.Sprintf("%d", s.TotalDays)) + "\n")
	b.WriteString(row("Travelers", fmt.Sprintf("%d", s.TotalTravelers)) + "\n")
	b.WriteString(row("Avg daily budget", fmt.Sprintf("¥%.2f", s.AvgDailyBudget)) + "\n")
	b.WriteString(row("Avg per-capita budget", fmt.Sprintf("¥%.2f", s.AvgPerCapitaBudget)) + "\n")
	b.WriteString(row("Total spent", fmt.Sprintf("¥%.2f", s.TotalExpense)) + "\n")

	b.WriteString(sectionStyle.Render("Spend by category") + "\n")
	for _, c := range models.ExpenseCategories {
		share := s.CategoryShare(c)
		filled := share * barWidth / 100
		bar := barStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", barWidth-filled)
		b.WriteString(fmt.Sprintf("%-16s %s %3d%%  ¥%.2f\n", c, bar, share, s.ByCategory[c]))
	}

	if len(s.TopDestinations) > 0 {
		b.WriteString(sectionStyle.Render("Top destinations") + "\n")
		for i, d := range s.TopDestinations {
			b.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, d.Destination, d.Plans))
		}
	}
	return b.String()
}
