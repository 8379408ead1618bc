package expenses

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tripkit/internal/analytics"
	"github.com/julianstephens/tripkit/internal/models"
)

var (
	totalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	overStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// summaryLines is the height taken by the totals under the table.
const summaryLines = 3

type Model struct {
	table table.Model
	Plan  *models.TravelPlan
}

func columns(width int) []table.Column {
	desc := width - 12 - 16 - 12 - 8
	if desc < 12 {
		desc = 12
	}
	return []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Category", Width: 16},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: desc},
	}
}

func New(width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return Model{table: t}
}

func (m *Model) SetPlan(plan *models.TravelPlan) {
	m.Plan = plan
	if plan == nil {
		m.table.SetRows(nil)
		return
	}
	expenses := make([]models.Expense, len(plan.Expenses))
	copy(expenses, plan.Expenses)
	sort.SliceStable(expenses, func(i, j int) bool { return expenses[i].Date < expenses[j].Date })

	rows := make([]table.Row, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, table.Row{e.Date, string(e.Category), fmt.Sprintf("¥%.2f", e.Amount), e.Description})
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Plan == nil {
		return "No plan selected. Pick one on the Plans tab."
	}
	s := analytics.Summarize(*m.Plan)

	status := okStyle.Render(fmt.Sprintf("Remaining ¥%.2f", s.Remaining))
	if s.OverBudget {
		status = overStyle.Render(fmt.Sprintf("⚠ Over budget by ¥%.2f", -s.Remaining))
	}
	summary := lipgloss.JoinVertical(lipgloss.Left,
		"",
		totalStyle.Render(fmt.Sprintf("Spent ¥%.2f of ¥%.2f", s.Spend, s.Budget)),
		status,
	)
	if len(m.Plan.Expenses) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			"No expenses recorded. Add one with 'tripkit expense add <amount>'.", summary)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.table.View(), summary)
}

func (m *Model) SetSize(width, height int) {
	m.table.SetColumns(columns(width))
	if h := height - summaryLines; h > 3 {
		m.table.SetHeight(h)
	}
}
