// Package planstore owns the in-memory plan list and is the only writer of
// the local store and the remote mirror.
package planstore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/julianstephens/tripkit/internal/ai"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/mirror"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/reconcile"
	"github.com/julianstephens/tripkit/internal/remote"
)

var (
	ErrNotSignedIn   = errors.New("sign in to sync plans with the remote backend")
	ErrNoCurrentPlan = errors.New("no current plan selected")
	ErrNotFound      = errors.New("not found")
	ErrNoGenerator   = errors.New("itinerary generation is not configured")
)

// SyncStatus is the state of the last explicit or initial synchronization.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Session reports the signed-in user, or "" when nobody is signed in.
type Session interface {
	UserID() string
}

// Mirror accepts best-effort remote work. *mirror.Queue satisfies it.
type Mirror interface {
	Submit(name string, fn mirror.Task) bool
}

// Generator produces itineraries. *ai.Client satisfies it.
type Generator interface {
	GenerateItinerary(ctx context.Context, req ai.GenerateRequest) (ai.GenerateResponse, error)
}

type Options struct {
	Local     *localstore.Store
	Remote    remote.Source
	Mirror    Mirror
	Session   Session
	Generator Generator

	// Now and NewID default to time.Now and a millisecond timestamp.
	Now   func() time.Time
	NewID func(now time.Time) string
}

// State is a point-in-time copy of the store.
type State struct {
	Plans       []models.TravelPlan
	CurrentPlan *models.TravelPlan
	IsLoading   bool
	Error       string
	SyncStatus  SyncStatus
	LastSyncAt  time.Time
}

// Store is safe for concurrent use. Local operations never fail because of
// persistence or the remote: storage errors are logged by the local store and
// remote writes go through the mirror.
type Store struct {
	local     *localstore.Store
	remote    remote.Source
	mirror    Mirror
	session   Session
	generator Generator
	now       func() time.Time
	newID     func(time.Time) string

	mu         sync.Mutex
	plans      []models.TravelPlan
	currentID  string
	isLoading  bool
	err        string
	syncStatus SyncStatus
	lastSyncAt time.Time
}

func New(opts Options) *Store {
	s := &Store{
		local:      opts.Local,
		remote:     opts.Remote,
		mirror:     opts.Mirror,
		session:    opts.Session,
		generator:  opts.Generator,
		now:        opts.Now,
		newID:      opts.NewID,
		plans:      []models.TravelPlan{},
		syncStatus: SyncIdle,
	}
	if s.local == nil {
		s.local = localstore.New(localstore.NewMemoryKV())
	}
	if s.remote == nil {
		s.remote = remote.Disabled{}
	}
	if s.mirror == nil {
		s.mirror = inlineMirror{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }
	}
	return s
}

// inlineMirror runs tasks on the caller's goroutine. It is used when no
// queue is supplied.
type inlineMirror struct{}

func (inlineMirror) Submit(name string, fn mirror.Task) bool {
	if err := fn(context.Background()); err != nil {
		logger.Warn("Remote mirror failed", "task", name, "error", err)
	}
	return true
}

// Remote returns the configured remote source.
func (s *Store) Remote() remote.Source { return s.remote }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Plans:      clonePlans(s.plans),
		IsLoading:  s.isLoading,
		Error:      s.err,
		SyncStatus: s.syncStatus,
		LastSyncAt: s.lastSyncAt,
	}
	if p := s.findLocked(s.currentID); p != nil {
		c := p.Clone()
		st.CurrentPlan = &c
	}
	return st
}

// Plans returns a copy of the plan list.
func (s *Store) Plans() []models.TravelPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlans(s.plans)
}

// Plan returns a copy of the plan with the given id from memory.
func (s *Store) Plan(id string) (models.TravelPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.findLocked(id); p != nil {
		return p.Clone(), true
	}
	return models.TravelPlan{}, false
}

// CurrentPlan returns a copy of the current plan, or nil.
func (s *Store) CurrentPlan() *models.TravelPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(s.currentID)
	if p == nil {
		return nil
	}
	c := p.Clone()
	return &c
}

// SetCurrentPlan selects the plan with id. An empty id clears the selection.
func (s *Store) SetCurrentPlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.findLocked(id) == nil {
		return ErrNotFound
	}
	s.currentID = id
	s.local.SaveCurrentID(id)
	return nil
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// CreatePlan validates draft, stores it as a new plan and makes it current.
// On validation failure nothing is changed and "" is returned with the error.
func (s *Store) CreatePlan(draft models.TravelPlan) (string, error) {
	s.mu.Lock()
	if err := draft.Validate(); err != nil {
		s.err = err.Error()
		s.mu.Unlock()
		return "", err
	}

	now := s.now()
	plan := draft.Clone()
	plan.Normalize()
	plan.SortItinerary()
	plan.ID = s.uniqueIDLocked(now)
	plan.CreatedAt = models.FormatTimestamp(now)
	plan.UpdatedAt = plan.CreatedAt
	if plan.UserID == "" && s.session != nil {
		plan.UserID = s.session.UserID()
	}
	for i := range plan.Expenses {
		plan.Expenses[i].TravelPlanID = plan.ID
	}

	s.err = ""
	s.plans = append(s.plans, plan)
	s.currentID = plan.ID
	s.persistLocked()
	s.mu.Unlock()

	logger.Info("Created plan", "id", plan.ID, "destination", plan.Destination)
	s.mirrorUpsert(plan)
	return plan.ID, nil
}

// uniqueIDLocked derives an id from now, bumping it while it collides.
func (s *Store) uniqueIDLocked(now time.Time) string {
	id := s.newID(now)
	for s.findLocked(id) != nil {
		now = now.Add(time.Millisecond)
		id = s.newID(now)
	}
	return id
}

// UpdatePlan merges patch into the plan with id and refreshes updated_at.
// An unknown id is a no-op. A patch that sets an invalid field is rejected
// without changes.
func (s *Store) UpdatePlan(id string, patch models.PlanPatch) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		logger.Debug("Update of unknown plan ignored", "id", id)
		return nil
	}

	if err := patch.Validate(s.plans[idx]); err != nil {
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}
	plan := s.plans[idx].Clone()
	patch.Apply(&plan)
	plan.Normalize()
	plan.SortItinerary()
	plan.UpdatedAt = s.nextUpdatedAtLocked(s.plans[idx])

	s.err = ""
	s.plans[idx] = plan
	s.persistLocked()
	s.mu.Unlock()

	s.mirrorUpsert(plan)
	return nil
}

// nextUpdatedAtLocked returns now, moved forward if needed so the timestamp
// strictly increases for plans whose stored updated_at is in the future.
func (s *Store) nextUpdatedAtLocked(prev models.TravelPlan) string {
	now := s.now()
	if last := prev.UpdatedTime(); !now.After(last) && !last.IsZero() {
		now = last.Add(time.Millisecond)
	}
	return models.FormatTimestamp(now)
}

// DeletePlan removes the plan with id locally and mirrors the delete.
func (s *Store) DeletePlan(id string) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx >= 0 {
		s.plans = append(s.plans[:idx:idx], s.plans[idx+1:]...)
	}
	if s.currentID == id {
		s.currentID = ""
	}
	s.err = ""
	s.persistLocked()
	s.mu.Unlock()

	logger.Info("Deleted plan", "id", id)
	if s.remote.IsEnabled() {
		s.mirror.Submit("delete plan "+id, func(ctx context.Context) error {
			return s.remote.DeletePlan(ctx, id)
		})
	}
}

// LoadPlans reads the local store and, when a remote is enabled and a user is
// signed in, merges in the remote plans. A remote failure leaves the local
// data in place.
func (s *Store) LoadPlans(ctx context.Context) {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	plans := s.local.Load()
	currentID := s.local.LoadCurrentID()

	if userID := s.userID(); s.remote.IsEnabled() && userID != "" {
		remotePlans, err := s.remote.FetchPlans(ctx, userID)
		if err != nil {
			logger.Warn("Remote fetch failed, using local plans", "remote", s.remote.Name(), "error", err)
		} else {
			plans = reconcile.Reconcile(plans, remotePlans).Merged
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = plans
	s.currentID = ""
	if s.findLocked(currentID) != nil {
		s.currentID = currentID
	}
	s.isLoading = false
	s.persistLocked()
}

// FetchPlanByID looks the plan up locally first, then remotely. A hit
// becomes the current plan. It returns nil when neither side has it.
func (s *Store) FetchPlanByID(ctx context.Context, id string) *models.TravelPlan {
	var found *models.TravelPlan
	for _, p := range s.local.Load() {
		if p.ID == id {
			c := p
			found = &c
			break
		}
	}

	if found == nil && s.remote.IsEnabled() {
		p, err := s.remote.FetchPlanByID(ctx, id)
		if err != nil {
			logger.Warn("Remote plan lookup failed", "id", id, "error", err)
			return nil
		}
		found = p
	}
	if found == nil {
		return nil
	}
	found.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.plans[idx] = found.Clone()
	} else {
		s.plans = append(s.plans, found.Clone())
	}
	s.currentID = id
	s.persistLocked()

	c := found.Clone()
	return &c
}

// SyncNow runs a full reconciliation against the remote and pushes every
// plan whose local copy won. Concurrent calls are not serialized.
func (s *Store) SyncNow(ctx context.Context) error {
	s.setSyncStatus(SyncSyncing)

	if !s.remote.IsEnabled() {
		s.mu.Lock()
		s.syncStatus = SyncSuccess
		s.lastSyncAt = s.now()
		s.mu.Unlock()
		logger.Debug("No remote configured, sync is a no-op")
		return nil
	}

	userID := s.userID()
	if userID == "" {
		s.failSync(ErrNotSignedIn)
		return ErrNotSignedIn
	}

	local := s.local.Load()
	remotePlans, err := s.remote.FetchPlans(ctx, userID)
	if err != nil {
		logger.Warn("Sync fetch failed", "remote", s.remote.Name(), "error", err)
		s.failSync(err)
		return err
	}

	result := reconcile.Reconcile(local, remotePlans)
	pushed := 0
	for _, p := range result.ToPush {
		if err := s.remote.UpsertPlan(ctx, p); err != nil {
			logger.Warn("Sync push failed", "id", p.ID, "error", err)
			continue
		}
		pushed++
	}

	currentID := s.local.LoadCurrentID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = result.Merged
	s.currentID = ""
	if s.findLocked(currentID) != nil {
		s.currentID = currentID
	}
	s.persistLocked()
	s.syncStatus = SyncSuccess
	s.lastSyncAt = s.now()
	logger.Info("Sync finished", "remote", s.remote.Name(), "plans", len(result.Merged),
		"pushed", pushed, "to_push", len(result.ToPush))
	return nil
}

func (s *Store) setSyncStatus(status SyncStatus) {
	s.mu.Lock()
	s.syncStatus = status
	s.mu.Unlock()
}

func (s *Store) failSync(err error) {
	s.mu.Lock()
	s.syncStatus = SyncError
	s.err = err.Error()
	s.mu.Unlock()
}

func (s *Store) userID() string {
	if s.session == nil {
		return ""
	}
	return s.session.UserID()
}

func (s *Store) mirrorUpsert(plan models.TravelPlan) {
	if !s.remote.IsEnabled() {
		return
	}
	s.mirror.Submit("upsert plan "+plan.ID, func(ctx context.Context) error {
		return s.remote.UpsertPlan(ctx, plan)
	})
}

// persistLocked writes the plan list and current id. s.mu must be held.
func (s *Store) persistLocked() {
	s.local.Save(s.plans)
	s.local.SaveCurrentID(s.currentID)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.plans {
		if s.plans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findLocked(id string) *models.TravelPlan {
	if id == "" {
		return nil
	}
	if i := s.indexLocked(id); i >= 0 {
		return &s.plans[i]
	}
	return nil
}

func clonePlans(plans []models.TravelPlan) []models.TravelPlan {
	out := make([]models.TravelPlan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out
}
