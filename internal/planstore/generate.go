package planstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

const defaultTitleSuffix = " trip"

// GenerateItinerary asks the generator for an itinerary. Unlike the local
// operations its errors are returned, so callers can tell a fallback from a
// success. The error is also recorded on the state.
func (s *Store) GenerateItinerary(ctx context.Context, req ai.GenerateRequest) (ai.GenerateResponse, error) {
	if s.generator == nil {
		return ai.GenerateResponse{}, ErrNoGenerator
	}
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	resp, err := s.generator.GenerateItinerary(ctx, req)

	s.mu.Lock()
	s.isLoading = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return resp, err
}

// DraftRequest turns a plan into the matching generation request.
func DraftRequest(p models.TravelPlan, remarks string) ai.GenerateRequest {
	return ai.GenerateRequest{
		Destination: p.Destination,
		Days:        p.DurationDays(),
		Budget:      p.Budget,
		Travelers:   p.Travelers,
		Preferences: p.Preferences,
		StartDate:   p.StartDate,
		Remarks:     remarks,
	}
}

// NewDraft validates input and generates its itinerary, returning an unsaved
// plan ready for CreatePlan or SaveDraft.
func (s *Store) NewDraft(ctx context.Context, input models.TravelPlan, remarks string) (models.TravelPlan, error) {
	if err := input.Validate(); err != nil {
		return models.TravelPlan{}, err
	}
	resp, err := s.GenerateItinerary(ctx, DraftRequest(input, remarks))
	if err != nil {
		return models.TravelPlan{}, err
	}
	draft := input.Clone()
	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = draft.Destination + defaultTitleSuffix
	}
	draft.Itinerary = resp.Itinerary
	draft.Expenses = []models.Expense{}
	draft.Normalize()
	return draft, nil
}

// RegenerateItinerary replaces the itinerary of plan id with a freshly
// generated one that takes remarks into account.
func (s *Store) RegenerateItinerary(ctx context.Context, id, remarks string) (ai.GenerateResponse, error) {
	plan, ok := s.Plan(id)
	if !ok {
		return ai.GenerateResponse{}, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	resp, err := s.GenerateItinerary(ctx, DraftRequest(plan, remarks))
	if err != nil {
		return ai.GenerateResponse{}, err
	}
	items := resp.Itinerary
	if err := s.UpdatePlan(id, models.PlanPatch{Itinerary: &items}); err != nil {
		return ai.GenerateResponse{}, err
	}
	logger.Info("Regenerated itinerary", "id", id, "items", len(items))
	return resp, nil
}
