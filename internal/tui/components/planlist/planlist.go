package planlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tripkit/internal/models"
)

type SelectPlanMsg struct {
	ID string
}

type DeletePlanMsg struct {
	ID    string
	Title string
}

type Item struct {
	Plan    models.TravelPlan
	Current bool
}

func (i Item) Title() string {
	title := i.Plan.Title
	if i.Current {
		title = "● " + title
	}
	if i.Plan.IsOverBudget() {
		title += " ⚠"
	}
	return title
}

func (i Item) Description() string {
	return fmt.Sprintf("%s | %s → %s | %d traveler(s) | ¥%.0f / ¥%.0f",
		i.Plan.Destination, i.Plan.StartDate, i.Plan.EndDate, i.Plan.Travelers, i.Plan.TotalSpend(), i.Plan.Budget)
}

func (i Item) FilterValue() string { return i.Plan.Title + " " + i.Plan.Destination }

type KeyMap struct {
	Select key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(plans []models.TravelPlan, currentID string, width, height int) Model {
	l := list.New(items(plans, currentID), list.NewDefaultDelegate(), width, height)
	l.Title = "Plans"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Select, keys.Delete}
	}
	return Model{list: l, keys: keys}
}

func items(plans []models.TravelPlan, currentID string) []list.Item {
	out := make([]list.Item, len(plans))
	for i, p := range plans {
		out[i] = Item{Plan: p, Current: p.ID == currentID}
	}
	return out
}

func (m *Model) SetPlans(plans []models.TravelPlan, currentID string) {
	m.list.SetItems(items(plans, currentID))
}

// Selected returns the highlighted plan, if any.
func (m Model) Selected() (models.TravelPlan, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Plan, true
	}
	return models.TravelPlan{}, false
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.Select):
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return SelectPlanMsg{ID: p.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if p, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeletePlanMsg{ID: p.ID, Title: p.Title} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No plans yet.\n  Create one with 'tripkit plan new <destination>'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Filtering reports whether the user is typing a filter, in which case
// single-letter shortcuts belong to the filter input.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}
