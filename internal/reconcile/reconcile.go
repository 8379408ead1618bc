// Package reconcile merges the local and remote plan lists by last write.
package reconcile

import (
	"sort"

	"github.com/julianstephens/tripkit/internal/models"
)

// Result is the outcome of a reconciliation. The caller persists Merged and
// pushes every plan in ToPush to the remote.
type Result struct {
	Merged []models.TravelPlan
	ToPush []models.TravelPlan
}

// Decision is the per-plan outcome of comparing both sides.
type Decision int

const (
	// DecisionKeepLocal means the local copy wins and must be pushed.
	DecisionKeepLocal Decision = iota
	// DecisionTakeRemote means the remote copy wins and nothing is pushed.
	DecisionTakeRemote
)

// Decide compares two copies of the same plan. A tie goes to local.
// Missing or unparseable timestamps count as the oldest possible time.
func Decide(local, remote models.TravelPlan) Decision {
	if local.UpdatedTime().Before(remote.UpdatedTime()) {
		return DecisionTakeRemote
	}
	return DecisionKeepLocal
}

// Reconcile is pure and deterministic: the same inputs always give the same
// result. Within one side the last occurrence of an id wins.
func Reconcile(local, remote []models.TravelPlan) Result {
	localByID := index(local)
	remoteByID := index(remote)

	merged := make([]models.TravelPlan, 0, len(localByID)+len(remoteByID))
	push := make(map[string]bool, len(localByID))

	for id, l := range localByID {
		r, ok := remoteByID[id]
		if !ok || Decide(l, r) == DecisionKeepLocal {
			merged = append(merged, l)
			push[id] = true
			continue
		}
		merged = append(merged, r)
	}
	for id, r := range remoteByID {
		if _, ok := localByID[id]; !ok {
			merged = append(merged, r)
		}
	}

	Sort(merged)

	toPush := make([]models.TravelPlan, 0, len(push))
	for _, p := range merged {
		if push[p.ID] {
			toPush = append(toPush, p)
		}
	}
	return Result{Merged: merged, ToPush: toPush}
}

// Sort orders plans by updated_at descending, then by id ascending.
func Sort(plans []models.TravelPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		ti, tj := plans[i].UpdatedTime(), plans[j].UpdatedTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return plans[i].ID < plans[j].ID
	})
}

func index(plans []models.TravelPlan) map[string]models.TravelPlan {
	out := make(map[string]models.TravelPlan, len(plans))
	for _, p := range plans {
		out[p.ID] = p
	}
	return out
}
