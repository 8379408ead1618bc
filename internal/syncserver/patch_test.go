package syncserver

import (
	"errors"
	"testing"
	"time"
)

func TestBuildAssignments(t *testing.T) {
	tests := []struct {
		name    string
		columns map[string]columnKind
		updates map[string]interface{}
		want    []Assignment
		wantErr bool
	}{
		{
			name:    "unknown keys dropped",
			columns: planPatchColumns,
			updates: map[string]interface{}{"title": "x", "id": "other", "drop table": 1},
			want:    []Assignment{{Column: "title", Value: "x"}},
		},
		{
			name:    "integer column",
			columns: planPatchColumns,
			updates: map[string]interface{}{"travelers": float64(3)},
			want:    []Assignment{{Column: "travelers", Value: int64(3)}},
		},
		{
			name:    "fractional integer rejected",
			columns: planPatchColumns,
			updates: map[string]interface{}{"travelers": 2.5},
			wantErr: true,
		},
		{
			name:    "json column encoded",
			columns: planPatchColumns,
			updates: map[string]interface{}{"preferences": []interface{}{"food", "art"}},
			want:    []Assignment{{Column: "preferences", Value: `["food","art"]`}},
		},
		{
			name:    "null location",
			columns: expensePatchColumns,
			updates: map[string]interface{}{"location": nil},
			want:    []Assignment{{Column: "location", Value: nil}},
		},
		{
			name:    "wrong text type",
			columns: expensePatchColumns,
			updates: map[string]interface{}{"category": 5.0},
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			columns: planPatchColumns,
			updates: map[string]interface{}{"updated_at": "yesterday"},
			wantErr: true,
		},
		{
			name:    "empty",
			columns: planPatchColumns,
			updates: map[string]interface{}{},
			want:    []Assignment{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildAssignments(tt.columns, tt.updates)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPatch) {
					t.Fatalf("error = %v, want ErrInvalidPatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("assignment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildAssignmentsTimestamp(t *testing.T) {
	got, err := buildAssignments(planPatchColumns, map[string]interface{}{"updated_at": "2026-05-01T08:00:00Z"})
	if err != nil {
		t.Fatal(err)
	}
	ts, ok := got[0].Value.(time.Time)
	if !ok || !ts.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("value = %v", got[0].Value)
	}
}

func TestUpdateQuery(t *testing.T) {
	query, args := updateQuery("travel_plans", "p1", []Assignment{
		{Column: "budget", Value: 10.0},
		{Column: "title", Value: "x"},
	})
	want := "UPDATE travel_plans SET budget = $1, title = $2 WHERE id = $3"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 3 || args[2] != "p1" {
		t.Errorf("args = %v", args)
	}
}
