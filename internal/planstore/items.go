package planstore

import (
	"context"
	"strconv"

	"github.com/julianstephens/tripkit/internal/models"
)

// current returns a copy of the current plan.
func (s *Store) current() (models.TravelPlan, error) {
	p := s.CurrentPlan()
	if p == nil {
		return models.TravelPlan{}, ErrNoCurrentPlan
	}
	return *p, nil
}

// childID returns a time-based id that is unique among existing.
func (s *Store) childID(taken func(string) bool) string {
	now := s.now()
	id := strconv.FormatInt(now.UnixMilli(), 10)
	for n := 1; taken(id); n++ {
		id = strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.Itoa(n)
	}
	return id
}

// AddItineraryItem appends item to the current plan and returns its id.
func (s *Store) AddItineraryItem(item models.ItineraryItem) (string, error) {
	plan, err := s.current()
	if err != nil {
		return "", err
	}
	if err := item.Validate(); err != nil {
		return "", err
	}
	item.Category = models.ParseItineraryCategory(string(item.Category))
	if item.ID == "" || plan.ItemByID(item.ID) >= 0 {
		item.ID = s.childID(func(id string) bool { return plan.ItemByID(id) >= 0 })
	}
	items := append(plan.Itinerary, item)
	if err := s.UpdatePlan(plan.ID, models.PlanPatch{Itinerary: &items}); err != nil {
		return "", err
	}
	return item.ID, nil
}

// UpdateItineraryItem replaces the item with the same id in the current plan.
func (s *Store) UpdateItineraryItem(item models.ItineraryItem) error {
	plan, err := s.current()
	if err != nil {
		return err
	}
	idx := plan.ItemByID(item.ID)
	if idx < 0 {
		return ErrNotFound
	}
	if err := item.Validate(); err != nil {
		return err
	}
	item.Category = models.ParseItineraryCategory(string(item.Category))
	items := plan.Itinerary
	items[idx] = item
	return s.UpdatePlan(plan.ID, models.PlanPatch{Itinerary: &items})
}

// RemoveItineraryItem drops the item with id from the current plan.
func (s *Store) RemoveItineraryItem(id string) error {
	plan, err := s.current()
	if err != nil {
		return err
	}
	idx := plan.ItemByID(id)
	if idx < 0 {
		return ErrNotFound
	}
	items := append(plan.Itinerary[:idx:idx], plan.Itinerary[idx+1:]...)
	return s.UpdatePlan(plan.ID, models.PlanPatch{Itinerary: &items})
}

// AddExpense records e against the current plan and mirrors the single
// expense in addition to the plan.
func (s *Store) AddExpense(e models.Expense) (string, error) {
	plan, err := s.current()
	if err != nil {
		return "", err
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" || plan.ExpenseByID(e.ID) >= 0 {
		e.ID = s.childID(func(id string) bool { return plan.ExpenseByID(id) >= 0 })
	}
	e.TravelPlanID = plan.ID
	expenses := append(plan.Expenses, e)
	if err := s.UpdatePlan(plan.ID, models.PlanPatch{Expenses: &expenses}); err != nil {
		return "", err
	}
	s.mirrorExpense(e)
	return e.ID, nil
}

// UpdateExpense replaces the expense with the same id in the current plan.
func (s *Store) UpdateExpense(e models.Expense) error {
	plan, err := s.current()
	if err != nil {
		return err
	}
	idx := plan.ExpenseByID(e.ID)
	if idx < 0 {
		return ErrNotFound
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.TravelPlanID = plan.ID
	expenses := plan.Expenses
	expenses[idx] = e
	if err := s.UpdatePlan(plan.ID, models.PlanPatch{Expenses: &expenses}); err != nil {
		return err
	}
	s.mirrorExpense(e)
	return nil
}

// RemoveExpense drops the expense with id from the current plan.
func (s *Store) RemoveExpense(id string) error {
	plan, err := s.current()
	if err != nil {
		return err
	}
	idx := plan.ExpenseByID(id)
	if idx < 0 {
		return ErrNotFound
	}
	expenses := append(plan.Expenses[:idx:idx], plan.Expenses[idx+1:]...)
	if err := s.UpdatePlan(plan.ID, models.PlanPatch{Expenses: &expenses}); err != nil {
		return err
	}
	if s.remote.IsEnabled() {
		s.mirror.Submit("delete expense "+id, func(ctx context.Context) error {
			return s.remote.DeleteExpense(ctx, id)
		})
	}
	return nil
}

func (s *Store) mirrorExpense(e models.Expense) {
	if !s.remote.IsEnabled() {
		return
	}
	s.mirror.Submit("upsert expense "+e.ID, func(ctx context.Context) error {
		return s.remote.UpsertExpense(ctx, e)
	})
}
