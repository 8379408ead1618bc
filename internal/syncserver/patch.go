package syncserver

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/julianstephens/tripkit/internal/models"
)

type columnKind int

const (
	textColumn columnKind = iota
	floatColumn
	intColumn
	jsonColumn
	timeColumn
)

// planPatchColumns and expensePatchColumns are the only columns PATCH may touch.
var planPatchColumns = map[string]columnKind{
	"user_id":     textColumn,
	"title":       textColumn,
	"destination": textColumn,
	"start_date":  textColumn,
	"end_date":    textColumn,
	"budget":      floatColumn,
	"travelers":   intColumn,
	"preferences": jsonColumn,
	"itinerary":   jsonColumn,
	"expenses":    jsonColumn,
	"created_at":  timeColumn,
	"updated_at":  timeColumn,
}

var expensePatchColumns = map[string]columnKind{
	"travel_plan_id": textColumn,
	"category":       textColumn,
	"amount":         floatColumn,
	"description":    textColumn,
	"date":           textColumn,
	"location":       jsonColumn,
}

// buildAssignments keeps the known columns of updates, converting each value
// to what the column stores. Unknown keys are ignored. The result is sorted
// by column name.
func buildAssignments(columns map[string]columnKind, updates map[string]interface{}) ([]Assignment, error) {
	names := make([]string, 0, len(updates))
	for name := range updates {
		if _, ok := columns[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	set := make([]Assignment, 0, len(names))
	for _, name := range names {
		v, err := convert(columns[name], updates[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, name, err)
		}
		set = append(set, Assignment{Column: name, Value: v})
	}
	return set, nil
}

func convert(kind columnKind, v interface{}) (interface{}, error) {
	switch kind {
	case textColumn:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case floatColumn:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", v)
		}
		return f, nil
	case intColumn:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
		return int64(f), nil
	case jsonColumn:
		if v == nil {
			return nil, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case timeColumn:
		s, _ := v.(string)
		t, ok := models.ParseTimestamp(s)
		if !ok {
			return nil, fmt.Errorf("expected an RFC3339 timestamp, got %v", v)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported column")
}

// updateQuery renders UPDATE <table> SET ... WHERE id = $n with the values
// of set followed by id as arguments.
func updateQuery(table, id string, set []Assignment) (string, []interface{}) {
	query := "UPDATE " + table + " SET "
	args := make([]interface{}, 0, len(set)+1)
	for i, a := range set {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("%s = $%d", a.Column, i+1)
		args = append(args, a.Value)
	}
	query += fmt.Sprintf(" WHERE id = $%d", len(set)+1)
	return query, append(args, id)
}
