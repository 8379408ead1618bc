package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
	"github.com/julianstephens/tripkit/internal/utils"
)

const (
	maxRemarks   = 300
	defaultStart = "09:00"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// GenerateRequest describes the trip an itinerary is generated for.
type GenerateRequest struct {
	Destination string
	Days        int
	Budget      float64
	Travelers   int
	Preferences []string
	StartDate   string
	Remarks     string
}

// GenerateResponse is a normalized model answer.
type GenerateResponse struct {
	Itinerary          []models.ItineraryItem `json:"itinerary"`
	EstimatedTotalCost float64                `json:"estimated_total_cost"`
	Recommendations    []string               `json:"recommendations"`
}

const itinerarySystemPrompt = "You are a professional travel planner who builds personalised itineraries. " +
	"Answer with exactly one valid JSON object and no other text. At most 3 items per day. " +
	"Keep every field short so the output is not truncated. Take the traveller's remarks into account."

const itineraryTemplate = `Create a detailed itinerary for this trip:

Destination: %s
Days: %d
Budget: %.0f
Travelers: %d
Preferences: %s
Start date: %s
Remarks: %s

Reply strictly with a single JSON object following this template (double-quoted keys, no trailing commas):
{
  "itinerary": [
    {
      "id": "unique string, for example \"day1-0900\"",
      "day": 1,
      "time": "HH:MM",
      "title": "short title",
      "description": "short description (at most 60 words)",
      "location": {"name": "place name", "address": "address", "latitude": 0, "longitude": 0},
      "category": "transportation|accommodation|attraction|restaurant|activity|other",
      "estimated_cost": 0
    }
  ],
  "estimated_total_cost": 0,
  "recommendations": ["tip 1", "tip 2", "tip 3"]
}
Rules:
- no more than 3 items per day;
- "time" uses the 24 hour "HH:MM" format;
- every numeric field is a JSON number;
- output only the JSON object.`

// GenerateItinerary asks the model for an itinerary. Without an API key a
// fixed sample itinerary for the destination is returned instead.
func (c *Client) GenerateItinerary(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if req.Days < 1 {
		req.Days = 1
	}
	if !c.HasKey() {
		logger.Debug("No API key, using sample itinerary", "destination", req.Destination)
		return SampleItinerary(req), nil
	}

	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		remarks = "none"
	}
	prefs := "none"
	if len(req.Preferences) > 0 {
		prefs = strings.Join(req.Preferences, ", ")
	}
	prompt := fmt.Sprintf(itineraryTemplate, req.Destination, req.Days, req.Budget, req.Travelers,
		prefs, req.StartDate, utils.TruncateRunes(remarks, maxRemarks))

	out, err := c.chat(ctx, []Message{
		{Role: "system", Content: itinerarySystemPrompt},
		{Role: "user", Content: prompt},
	}, chatOptions{temperature: 0.7})
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("itinerary generation failed: %w", err)
	}

	obj, err := ExtractJSON(out)
	if err != nil {
		return GenerateResponse{}, err
	}
	return normalizeItinerary(obj, req), nil
}

func normalizeItinerary(obj map[string]interface{}, req GenerateRequest) GenerateResponse {
	rawItems, _ := obj["itinerary"].([]interface{})
	items := make([]models.ItineraryItem, 0, len(rawItems))
	for idx, raw := range rawItems {
		items = append(items, normalizeItem(object(raw), idx, req.Days))
	}

	total := numberOr(obj["estimated_total_cost"], req.Budget)
	if total == 0 {
		total = req.Budget
	}
	return GenerateResponse{
		Itinerary:          items,
		EstimatedTotalCost: total,
		Recommendations:    stringList(obj["recommendations"], 0),
	}
}

func normalizeItem(raw map[string]interface{}, idx, days int) models.ItineraryItem {
	id := strings.TrimSpace(text(raw["id"], ""))
	if id == "" {
		id = fmt.Sprintf("item-%d", idx+1)
	}

	day := int(numberOr(raw["day"], 1))
	if day < 1 {
		day = 1
	}
	if day > days {
		day = days
	}

	clock := strings.TrimSpace(text(raw["time"], defaultStart))
	if !clockPattern.MatchString(clock) {
		clock = defaultStart
	}

	cost := max(numberOr(raw["estimated_cost"], 0), 0)
	item := models.ItineraryItem{
		ID:            id,
		Day:           day,
		Time:          clock,
		Title:         text(raw["title"], "Activity"),
		Description:   text(raw["description"], ""),
		Category:      models.ParseItineraryCategory(text(raw["category"], "")),
		EstimatedCost: &cost,
	}

	if rawLoc, ok := raw["location"].(map[string]interface{}); ok {
		loc := models.Location{
			Name:      text(rawLoc["name"], ""),
			Address:   text(rawLoc["address"], ""),
			Latitude:  numberOr(rawLoc["latitude"], 0),
			Longitude: numberOr(rawLoc["longitude"], 0),
		}
		if loc.Name != "" || loc.Address != "" || loc.HasCoordinate() {
			item.Location = &loc
		}
	}
	return item
}

// SampleItinerary is the offline itinerary used when no model is configured.
func SampleItinerary(req GenerateRequest) GenerateResponse {
	dest := req.Destination
	cost := func(v float64) *float64 { return &v }
	at := func(name, address string) *models.Location {
		return &models.Location{Name: name, Address: address, Latitude: 39.9042, Longitude: 116.4074}
	}
	return GenerateResponse{
		Itinerary: []models.ItineraryItem{
			{
				ID: "1", Day: 1, Time: "09:00", Title: "Arrive in " + dest,
				Description:   fmt.Sprintf("Welcome to %s! Check in at your hotel, then start exploring.", dest),
				Location:      at(dest+" International Airport", dest),
				Category:      models.ItineraryTransportation,
				EstimatedCost: cost(100),
			},
			{
				ID: "2", Day: 1, Time: "14:00", Title: "City sightseeing",
				Description:   fmt.Sprintf("Visit the best-known sights of %s and get a feel for the local culture.", dest),
				Location:      at(dest+" city centre", dest+" downtown"),
				Category:      models.ItineraryAttraction,
				EstimatedCost: cost(200),
			},
			{
				ID: "3", Day: 1, Time: "18:00", Title: "Local food",
				Description:   fmt.Sprintf("Try the signature dishes of %s.", dest),
				Location:      at("Local restaurant", dest+" food street"),
				Category:      models.ItineraryRestaurant,
				EstimatedCost: cost(150),
			},
		},
		EstimatedTotalCost: req.Budget,
		Recommendations: []string{
			"Book attraction tickets in advance",
			"Try the local street food",
			"Keep an eye on the weather forecast",
			"Bring sun protection",
		},
	}
}

var staticRecommendations = []string{
	"Learn about local customs before you go",
	"Pack clothing suited to the season",
	"Try the local specialities",
	"Look after your safety and health",
}

var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// Recommendations returns short travel tips. Without an API key a static
// list is returned.
func (c *Client) Recommendations(ctx context.Context, destination string, prefs []string) ([]string, error) {
	if !c.HasKey() {
		return append([]string(nil), staticRecommendations...), nil
	}
	out, err := c.chat(ctx, []Message{
		{Role: "system", Content: "You are a travel advisor. Give practical tips for the destination and preferences."},
		{Role: "user", Content: fmt.Sprintf("Give 5 practical tips for a trip to %s. Preferences: %s.", destination, strings.Join(prefs, ", "))},
	}, chatOptions{temperature: 0.7, maxTokens: 500})
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	var tips []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			tips = append(tips, line)
		}
	}
	if len(tips) == 0 {
		tips = []string{"Prepare for local conditions before you travel"}
	}
	return tips, nil
}
