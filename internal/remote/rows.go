package remote

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/julianstephens/tripkit/internal/models"
)

// planRow decodes a travel_plans row loosely: numbers may arrive as strings
// and collections may be null.
type planRow struct {
	ID          json.RawMessage `json:"id"`
	UserID      json.RawMessage `json:"user_id"`
	Title       *string         `json:"title"`
	Destination *string         `json:"destination"`
	StartDate   *string         `json:"start_date"`
	EndDate     *string         `json:"end_date"`
	Budget      json.RawMessage `json:"budget"`
	Travelers   json.RawMessage `json:"travelers"`
	Preferences json.RawMessage `json:"preferences"`
	Itinerary   json.RawMessage `json:"itinerary"`
	Expenses    json.RawMessage `json:"expenses"`
	CreatedAt   *string         `json:"created_at"`
	UpdatedAt   *string         `json:"updated_at"`
}

func (r planRow) plan() models.TravelPlan {
	p := models.TravelPlan{
		ID:          rawString(r.ID),
		UserID:      rawString(r.UserID),
		Title:       deref(r.Title),
		Destination: deref(r.Destination),
		StartDate:   deref(r.StartDate),
		EndDate:     deref(r.EndDate),
		Budget:      rawNumber(r.Budget),
		Travelers:   int(rawNumber(r.Travelers)),
		CreatedAt:   deref(r.CreatedAt),
		UpdatedAt:   deref(r.UpdatedAt),
	}
	_ = json.Unmarshal(nullToEmpty(r.Preferences), &p.Preferences)
	_ = json.Unmarshal(nullToEmpty(r.Itinerary), &p.Itinerary)
	_ = json.Unmarshal(nullToEmpty(r.Expenses), &p.Expenses)
	p.Normalize()
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// rawString renders a JSON string or number as a Go string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// rawNumber accepts a JSON number or a numeric string; anything else is 0.
func rawNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

func nullToEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return []byte("[]")
	}
	return raw
}
