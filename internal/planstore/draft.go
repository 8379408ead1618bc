package planstore

import (
	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

// SaveDraft keeps a generated plan that could not be saved because nobody
// was signed in. Only one draft is kept.
func (s *Store) SaveDraft(draft models.TravelPlan) error {
	return s.local.SetJSON(constants.KeyPendingDraft, draft)
}

// HasDraft reports whether a pending draft is stored.
func (s *Store) HasDraft() bool {
	var draft models.TravelPlan
	ok, err := s.local.GetJSON(constants.KeyPendingDraft, &draft)
	return ok && err == nil
}

// RecoverDraft turns the pending draft into a plan owned by the signed-in
// user. It returns "" when there is no draft or nobody is signed in. A
// corrupt draft is discarded.
func (s *Store) RecoverDraft() (string, error) {
	userID := s.userID()
	if userID == "" {
		return "", nil
	}

	var draft models.TravelPlan
	ok, err := s.local.GetJSON(constants.KeyPendingDraft, &draft)
	if err != nil {
		logger.Warn("Discarding unreadable plan draft", "error", err)
		_ = s.local.Remove(constants.KeyPendingDraft)
		return "", nil
	}
	if !ok {
		return "", nil
	}

	draft.UserID = userID
	id, err := s.CreatePlan(draft)
	if err != nil {
		return "", err
	}
	if err := s.local.Remove(constants.KeyPendingDraft); err != nil {
		logger.Warn("Failed to clear recovered plan draft", "error", err)
	}
	logger.Info("Recovered plan draft", "id", id)
	return id, nil
}
