package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/models"
)

const (
	maxPOIQueries     = 10
	maxItineraryChars = 6000
)

// POIQueries are map search keywords grouped by what they look for.
type POIQueries struct {
	Transport   []string `json:"transport"`
	Hotels      []string `json:"hotels"`
	Restaurants []string `json:"restaurants"`
}

// POIInput is the plan the queries are extracted from.
type POIInput struct {
	Destination string
	Itinerary   []models.ItineraryItem
}

func emptyQueries() POIQueries {
	return POIQueries{Transport: []string{}, Hotels: []string{}, Restaurants: []string{}}
}

// ExtractPOIQueries suggests place searches for a plan. It never fails:
// without a key, or on any error, every list is empty.
func (c *Client) ExtractPOIQueries(ctx context.Context, in POIInput) POIQueries {
	if !c.HasKey() {
		return emptyQueries()
	}

	itinerary, _ := json.Marshal(in.Itinerary)
	if len(itinerary) > maxItineraryChars {
		itinerary = itinerary[:maxItineraryChars]
	}
	prompt := fmt.Sprintf(`From the destination and itinerary, extract keywords for map searches:
- transport: arriving, leaving and getting around (airport transfer, metro lines, railway stations, buses)
- hotels: places to stay (for example "%[1]s hotel", "%[1]s city centre hotel", "hotel near {sight}")
- restaurants: places to eat (for example "%[1]s food", "restaurant near {sight}", "{local dish}")
Reply strictly with {"transport":[],"hotels":[],"restaurants":[]}.
At most 10 entries per list, each a short phrase. Destination: %[1]s; itinerary: %[2]s`, in.Destination, itinerary)

	out, err := c.chat(ctx, []Message{
		{Role: "system", Content: "You are a travel assistant. Output strict JSON (json_object) with no explanation."},
		{Role: "user", Content: prompt},
	}, chatOptions{temperature: 0.2, jsonObject: true})
	if err != nil {
		logger.Warn("POI query extraction failed", "error", err)
		return emptyQueries()
	}

	obj, err := ExtractJSON(out)
	if err != nil {
		logger.Warn("POI query extraction returned invalid JSON", "error", err)
		return emptyQueries()
	}
	return POIQueries{
		Transport:   stringList(obj["transport"], maxPOIQueries),
		Hotels:      stringList(obj["hotels"], maxPOIQueries),
		Restaurants: stringList(obj["restaurants"], maxPOIQueries),
	}
}
