package itinerary

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true).
			MarginTop(1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(8)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type Model struct {
	viewport viewport.Model
	Plan     *models.TravelPlan
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Plan == nil {
		return "No plan selected. Pick one on the Plans tab."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetPlan(plan *models.TravelPlan) {
	m.Plan = plan
	m.viewport.GotoTop()
	m.Render()
}

// Render rebuilds the viewport content from the plan.
func (m *Model) Render() {
	if m.Plan == nil {
		m.viewport.SetContent("")
		return
	}
	p := m.Plan

	var b strings.Builder
	b.WriteString(headerStyle.Render(p.Title) + "\n")
	b.WriteString(fmt.Sprintf("%s · %s → %s · %d day(s) · %d traveler(s)\n",
		p.Destination, p.StartDate, p.EndDate, p.DurationDays(), p.Travelers))
	if len(p.Preferences) > 0 {
		b.WriteString(metaStyle.Render(strings.Join(p.Preferences, ", ")) + "\n")
	}

	if len(p.Itinerary) == 0 {
		b.WriteString("\nNo itinerary yet. Run 'tripkit plan regenerate' to create one.\n")
		m.viewport.SetContent(b.String())
		return
	}

	day := 0
	for _, item := range p.Itinerary {
		if item.Day != day {
			day = item.Day
			date, err := utils.DateForDay(p.StartDate, day)
			if err != nil {
				date = ""
			}
			b.WriteString(dayStyle.Render(fmt.Sprintf("Day %d  %s", day, date)) + "\n")
		}
		line := timeStyle.Render(item.Time) + titleStyle.Render(item.Title)
		meta := []string{string(item.Category)}
		if item.EstimatedCost != nil {
			meta = append(meta, fmt.Sprintf("¥%.0f", *item.EstimatedCost))
		}
		if item.Location != nil && item.Location.Name != "" {
			meta = append(meta, item.Location.Name)
		}
		b.WriteString(line + "  " + metaStyle.Render(strings.Join(meta, " · ")) + "\n")
		if item.Description != "" {
			b.WriteString(strings.Repeat(" ", 8) + item.Description + "\n")
		}
	}
	m.viewport.SetContent(b.String())
}
