package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

// Store persists the plan list and current plan id on top of a KV backend.
// None of the plan methods return errors: failures are logged and the caller
// carries on with its in-memory state.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// KV exposes the backend for components that keep their own keys.
func (s *Store) KV() KV {
	return s.kv
}

// Save overwrites the stored plan list.
func (s *Store) Save(plans []models.TravelPlan) {
	if plans == nil {
		plans = []models.TravelPlan{}
	}
	data, err := json.Marshal(plans)
	if err != nil {
		logger.Warn("Failed to encode plans", "error", err)
		return
	}
	if err := s.safeSet(constants.KeyTravelPlans, string(data)); err != nil {
		logger.Warn("Failed to save plans", "error", err, "store", s.kv.Location())
	}
}

// Load returns the stored plan list, or an empty list when nothing usable is stored.
func (s *Store) Load() []models.TravelPlan {
	raw, ok, err := s.safeGet(constants.KeyTravelPlans)
	if err != nil {
		logger.Warn("Failed to read plans", "error", err, "store", s.kv.Location())
		return []models.TravelPlan{}
	}
	if !ok || raw == "" {
		return []models.TravelPlan{}
	}

	var plans []models.TravelPlan
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		logger.Warn("Stored plans are corrupt, ignoring", "error", err)
		return []models.TravelPlan{}
	}
	if plans == nil {
		return []models.TravelPlan{}
	}
	for i := range plans {
		plans[i].Normalize()
	}
	return plans
}

// SaveCurrentID records the current plan id. An empty id clears it.
func (s *Store) SaveCurrentID(id string) {
	var err error
	if id == "" {
		err = s.safeDelete(constants.KeyCurrentPlanID)
	} else {
		err = s.safeSet(constants.KeyCurrentPlanID, id)
	}
	if err != nil {
		logger.Warn("Failed to save current plan id", "error", err)
	}
}

// LoadCurrentID returns the stored current plan id, or "" when absent.
func (s *Store) LoadCurrentID() string {
	v, ok, err := s.safeGet(constants.KeyCurrentPlanID)
	if err != nil {
		logger.Warn("Failed to read current plan id", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// GetJSON decodes the value under key into out. It reports whether the key existed.
func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	raw, ok, err := s.safeGet(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.safeSet(key, string(data))
}

// Remove deletes key.
func (s *Store) Remove(key string) error {
	return s.safeDelete(key)
}

func (s *Store) safeGet(key string) (value string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, ok, err = "", false, fmt.Errorf("storage panic: %v", r)
		}
	}()
	return s.kv.Get(key)
}

func (s *Store) safeSet(key, value string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage panic: %v", r)
		}
	}()
	return s.kv.Set(key, value)
}

func (s *Store) safeDelete(key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("storage panic: %v", r)
		}
	}()
	return s.kv.Delete(key)
}
