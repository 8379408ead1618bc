package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/planstore"
	"github.com/julianstephens/tripkit/internal/tui/components/expenses"
	"github.com/julianstephens/tripkit/internal/tui/components/itinerary"
	"github.com/julianstephens/tripkit/internal/tui/components/planlist"
	"github.com/julianstephens/tripkit/internal/tui/components/stats"
	"github.com/julianstephens/tripkit/internal/utils"
)

// tabCount is the number of top-level tabs, StatePlans through StateStats.
const tabCount = 4

var tabTitles = []string{"Plans", "Detail", "Expenses", "Stats"}

type syncDoneMsg struct {
	err error
}

type reloadDoneMsg struct{}

type Model struct {
	ctx           context.Context
	store         *planstore.Store
	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	planList      planlist.Model
	itinerary     itinerary.Model
	expenses      expenses.Model
	stats         stats.Model
	quitting      bool
	width         int
	height        int
	busy          bool
	status        string
	statusIsError bool
	planToDelete  planlist.DeletePlanMsg
	today         func() string
}

func NewModel(ctx context.Context, store *planstore.Store) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		ctx:       ctx,
		store:     store,
		state:     constants.StatePlans,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		planList:  planlist.New(nil, "", 0, 0),
		itinerary: itinerary.New(0, 0),
		expenses:  expenses.New(0, 0),
		stats:     stats.New(),
		today:     utils.Today,
	}
	m.refresh()
	return m
}

// refresh pushes the store's current state into every component.
func (m *Model) refresh() {
	st := m.store.Snapshot()
	currentID := ""
	if st.CurrentPlan != nil {
		currentID = st.CurrentPlan.ID
	}
	m.planList.SetPlans(st.Plans, currentID)
	m.itinerary.SetPlan(st.CurrentPlan)
	m.expenses.SetPlan(st.CurrentPlan)
	m.stats.SetPlans(st.Plans, m.today())
	if st.Error != "" {
		m.setStatus(st.Error, true)
	}
}

func (m *Model) setStatus(msg string, isError bool) {
	m.status = msg
	m.statusIsError = isError
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help, m.keys.Sync, m.keys.Reload}
	switch m.state {
	case constants.StatePlans:
		keys = append(keys, m.keys.Enter, m.keys.Delete)
	case constants.StateConfirmDelete:
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Enter}
	actions := []key.Binding{m.keys.Sync, m.keys.Reload, m.keys.Delete}
	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) syncCmd() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		return syncDoneMsg{err: store.SyncNow(ctx)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		store.LoadPlans(ctx)
		return reloadDoneMsg{}
	}
}
