package reconcile

import (
	"reflect"
	"testing"

	"github.com/julianstephens/tripkit/internal/models"
)

func plan(id, updated, dest string) models.TravelPlan {
	return models.TravelPlan{ID: id, UserID: "u1", Destination: dest, UpdatedAt: updated}
}

func ids(plans []models.TravelPlan) []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.ID)
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		local      []models.TravelPlan
		remote     []models.TravelPlan
		wantMerged []string
		wantPush   []string
		wantDest   map[string]string
	}{
		{
			name:       "both empty",
			wantMerged: []string{},
			wantPush:   []string{},
		},
		{
			name:       "empty local takes remote",
			remote:     []models.TravelPlan{plan("a", "2025-01-01T00:00:00Z", "Kyoto")},
			wantMerged: []string{"a"},
			wantPush:   []string{},
		},
		{
			name: "empty remote pushes everything",
			local: []models.TravelPlan{
				plan("a", "2025-01-01T00:00:00Z", "Kyoto"),
				plan("b", "2025-01-02T00:00:00Z", "Osaka"),
			},
			wantMerged: []string{"b", "a"},
			wantPush:   []string{"b", "a"},
		},
		{
			name:       "newer remote wins",
			local:      []models.TravelPlan{plan("p1", "2025-01-01T10:00:00Z", "Local")},
			remote:     []models.TravelPlan{plan("p1", "2025-01-02T10:00:00Z", "Remote")},
			wantMerged: []string{"p1"},
			wantPush:   []string{},
			wantDest:   map[string]string{"p1": "Remote"},
		},
		{
			name:       "newer local wins and is pushed",
			local:      []models.TravelPlan{plan("p1", "2025-01-03T10:00:00Z", "Local")},
			remote:     []models.TravelPlan{plan("p1", "2025-01-02T10:00:00Z", "Remote")},
			wantMerged: []string{"p1"},
			wantPush:   []string{"p1"},
			wantDest:   map[string]string{"p1": "Local"},
		},
		{
			name:       "tie goes to local",
			local:      []models.TravelPlan{plan("p1", "2025-01-02T10:00:00Z", "Local")},
			remote:     []models.TravelPlan{plan("p1", "2025-01-02T10:00:00.000Z", "Remote")},
			wantMerged: []string{"p1"},
			wantPush:   []string{"p1"},
			wantDest:   map[string]string{"p1": "Local"},
		},
		{
			name:       "unparseable local loses to valid remote",
			local:      []models.TravelPlan{plan("p1", "not a time", "Local")},
			remote:     []models.TravelPlan{plan("p1", "2020-01-01T00:00:00Z", "Remote")},
			wantMerged: []string{"p1"},
			wantPush:   []string{},
			wantDest:   map[string]string{"p1": "Remote"},
		},
		{
			name:       "both unparseable is a tie",
			local:      []models.TravelPlan{plan("p1", "", "Local")},
			remote:     []models.TravelPlan{plan("p1", "garbage", "Remote")},
			wantMerged: []string{"p1"},
			wantPush:   []string{"p1"},
			wantDest:   map[string]string{"p1": "Local"},
		},
		{
			name: "scenario from sync",
			local: []models.TravelPlan{
				plan("p1", "2025-01-01T10:00:00Z", "L1"),
				plan("p2", "2025-01-05T10:00:00Z", "L2"),
			},
			remote: []models.TravelPlan{
				plan("p1", "2025-01-02T10:00:00Z", "R1"),
				plan("p3", "2025-01-03T10:00:00Z", "R3"),
			},
			wantMerged: []string{"p2", "p3", "p1"},
			wantPush:   []string{"p2"},
			wantDest:   map[string]string{"p1": "R1", "p2": "L2", "p3": "R3"},
		},
		{
			name: "equal timestamps ordered by id",
			local: []models.TravelPlan{
				plan("c", "2025-01-01T00:00:00Z", ""),
				plan("a", "2025-01-01T00:00:00Z", ""),
			},
			remote:     []models.TravelPlan{plan("b", "2025-01-01T00:00:00Z", "")},
			wantMerged: []string{"a", "b", "c"},
			wantPush:   []string{"a", "c"},
		},
		{
			name: "duplicate ids keep the last occurrence",
			local: []models.TravelPlan{
				plan("p1", "2025-01-01T00:00:00Z", "first"),
				plan("p1", "2025-01-04T00:00:00Z", "second"),
			},
			wantMerged: []string{"p1"},
			wantPush:   []string{"p1"},
			wantDest:   map[string]string{"p1": "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.local, tt.remote)
			if !reflect.DeepEqual(ids(got.Merged), tt.wantMerged) {
				t.Errorf("Merged = %v, want %v", ids(got.Merged), tt.wantMerged)
			}
			if !reflect.DeepEqual(ids(got.ToPush), tt.wantPush) {
				t.Errorf("ToPush = %v, want %v", ids(got.ToPush), tt.wantPush)
			}
			for _, p := range got.Merged {
				if want, ok := tt.wantDest[p.ID]; ok && p.Destination != want {
					t.Errorf("plan %s destination = %s, want %s", p.ID, p.Destination, want)
				}
			}
		})
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	local := []models.TravelPlan{
		plan("x", "2025-03-01T00:00:00Z", ""),
		plan("y", "", ""),
		plan("z", "2025-03-01T00:00:00Z", ""),
	}
	remote := []models.TravelPlan{
		plan("w", "", ""),
		plan("y", "2025-02-01T00:00:00Z", ""),
	}
	first := Reconcile(local, remote)
	for i := 0; i < 20; i++ {
		again := Reconcile(local, remote)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, ids(first.Merged), ids(again.Merged))
		}
	}
	if want := []string{"x", "z", "y", "w"}; !reflect.DeepEqual(ids(first.Merged), want) {
		t.Errorf("Merged = %v, want %v", ids(first.Merged), want)
	}
}

func TestReconcile_EveryIDOnce(t *testing.T) {
	local := []models.TravelPlan{plan("a", "", ""), plan("b", "", "")}
	remote := []models.TravelPlan{plan("b", "", ""), plan("c", "", "")}
	got := Reconcile(local, remote)
	seen := map[string]int{}
	for _, p := range got.Merged {
		seen[p.ID]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if seen[id] != 1 {
			t.Errorf("id %s appears %d times", id, seen[id])
		}
	}
	for _, p := range got.ToPush {
		if p.ID == "c" {
			t.Errorf("remote-only plan should never be pushed")
		}
	}
}

func TestDecide(t *testing.T) {
	older := plan("p", "2025-01-01T00:00:00Z", "")
	newer := plan("p", "2025-01-01T00:00:01Z", "")
	if Decide(older, newer) != DecisionTakeRemote {
		t.Errorf("older local should take remote")
	}
	if Decide(newer, older) != DecisionKeepLocal {
		t.Errorf("newer local should be kept")
	}
	if Decide(newer, newer) != DecisionKeepLocal {
		t.Errorf("tie should keep local")
	}
}
