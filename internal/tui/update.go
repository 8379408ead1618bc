package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/planstore"
	"github.com/julianstephens/tripkit/internal/tui/components/planlist"
)

// chromeHeight is the space taken by tabs, the status line and help.
const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		w, h := msg.Width-4, msg.Height-chromeHeight
		if h < 1 {
			h = 1
		}
		m.planList.SetSize(w, h)
		m.itinerary.SetSize(w, h)
		m.expenses.SetSize(w, h)
		m.stats.SetSize(w, h)
		return m, nil

	case syncDoneMsg:
		m.busy = false
		switch {
		case msg.err == nil && !m.store.Remote().IsEnabled():
			m.setStatus("No remote configured, plans are stored locally", false)
		case msg.err == nil:
			m.setStatus(fmt.Sprintf("Synced via %s", m.store.Remote().Name()), false)
		case errors.Is(msg.err, planstore.ErrNotSignedIn):
			m.setStatus("Sign in with 'tripkit auth login' to sync", true)
		default:
			m.setStatus("Sync failed: "+msg.err.Error(), true)
		}
		m.refresh()
		return m, nil

	case reloadDoneMsg:
		m.busy = false
		m.setStatus("Reloaded", false)
		m.refresh()
		return m, nil

	case planlist.SelectPlanMsg:
		if err := m.store.SetCurrentPlan(msg.ID); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.refresh()
		m.state = constants.StateDetail
		return m, nil

	case planlist.DeletePlanMsg:
		m.confirmDelete(msg)
		return m, nil

	case tea.KeyMsg:
		if m.state == constants.StateConfirmDelete {
			return m.updateConfirmDelete(msg)
		}
		if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		// Single-letter shortcuts belong to the filter while it is open.
		if !(m.state == constants.StatePlans && m.planList.Filtering()) {
			if model, cmd, handled := m.updateGlobalKeys(msg); handled {
				return model, cmd
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StatePlans:
		m.planList, cmd = m.planList.Update(msg)
	case constants.StateDetail:
		m.itinerary, cmd = m.itinerary.Update(msg)
	case constants.StateExpenses:
		m.expenses, cmd = m.expenses.Update(msg)
	}
	return m, cmd
}

func (m Model) updateGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.Tab):
		m.state = (m.state + 1) % tabCount
		return m, nil, true
	case key.Matches(msg, m.keys.ShiftTab):
		m.state = (m.state - 1 + tabCount) % tabCount
		return m, nil, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil, true
	case key.Matches(msg, m.keys.Sync):
		if m.busy {
			return m, nil, true
		}
		m.busy = true
		m.setStatus("Syncing...", false)
		return m, m.syncCmd(), true
	case key.Matches(msg, m.keys.Reload):
		if m.busy {
			return m, nil, true
		}
		m.busy = true
		m.setStatus("Reloading...", false)
		return m, m.reloadCmd(), true
	case key.Matches(msg, m.keys.Delete) && m.state != constants.StatePlans:
		// The plan list raises its own delete message for the highlighted row.
		if p := m.store.CurrentPlan(); p != nil {
			m.confirmDelete(planlist.DeletePlanMsg{ID: p.ID, Title: p.Title})
		}
		return m, nil, true
	}
	return m, nil, false
}

// confirmDelete opens the delete dialog for target. While a sync or reload
// is running the merge would bring the plan back, so the request is refused.
func (m *Model) confirmDelete(target planlist.DeletePlanMsg) {
	if m.busy {
		m.setStatus("Wait for the sync to finish before deleting", true)
		return
	}
	m.planToDelete = target
	m.previousState = m.state
	m.state = constants.StateConfirmDelete
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.store.DeletePlan(m.planToDelete.ID)
		m.setStatus(fmt.Sprintf("Deleted %s", m.planToDelete.Title), false)
		m.planToDelete = planlist.DeletePlanMsg{}
		m.state = constants.StatePlans
		m.refresh()
	case key.Matches(msg, m.keys.Cancel):
		m.planToDelete = planlist.DeletePlanMsg{}
		m.state = m.previousState
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}
