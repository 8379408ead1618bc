package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tripkit/internal/constants"
)

// ItineraryCategory classifies an itinerary item.
type ItineraryCategory string

const (
	ItineraryTransportation ItineraryCategory = "transportation"
	ItineraryAccommodation  ItineraryCategory = "accommodation"
	ItineraryAttraction     ItineraryCategory = "attraction"
	ItineraryRestaurant     ItineraryCategory = "restaurant"
	ItineraryActivity       ItineraryCategory = "activity"
	ItineraryOther          ItineraryCategory = "other"
)

var ItineraryCategories = []ItineraryCategory{
	ItineraryTransportation,
	ItineraryAccommodation,
	ItineraryAttraction,
	ItineraryRestaurant,
	ItineraryActivity,
	ItineraryOther,
}

// ParseItineraryCategory maps a string onto a known category, falling back to other.
func ParseItineraryCategory(s string) ItineraryCategory {
	for _, c := range ItineraryCategories {
		if string(c) == s {
			return c
		}
	}
	return ItineraryOther
}

// Location is a named place with an optional coordinate.
type Location struct {
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// HasCoordinate reports whether the location carries a usable coordinate.
// (0,0) means "no coordinate".
func (l *Location) HasCoordinate() bool {
	if l == nil {
		return false
	}
	return l.Latitude != 0 || l.Longitude != 0
}

// ItineraryItem is one scheduled activity within a plan.
type ItineraryItem struct {
	ID            string            `json:"id"`
	Day           int               `json:"day"`
	Time          string            `json:"time"` // HH:MM format
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Location      *Location         `json:"location,omitempty"`
	Category      ItineraryCategory `json:"category"`
	EstimatedCost *float64          `json:"estimated_cost,omitempty"`
}

// Cost returns the estimated cost or zero when unset.
func (i ItineraryItem) Cost() float64 {
	if i.EstimatedCost == nil {
		return 0
	}
	return *i.EstimatedCost
}

func (i ItineraryItem) Clone() ItineraryItem {
	c := i
	if i.Location != nil {
		loc := *i.Location
		c.Location = &loc
	}
	if i.EstimatedCost != nil {
		cost := *i.EstimatedCost
		c.EstimatedCost = &cost
	}
	return c
}

// Validate checks the fields a user can enter by hand.
func (i ItineraryItem) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return errors.New("itinerary item title is required")
	}
	if i.Day < 1 {
		return fmt.Errorf("invalid day %d: must be at least 1", i.Day)
	}
	if _, err := time.Parse(constants.TimeFormat, i.Time); err != nil {
		return fmt.Errorf("invalid time %q: must be HH:MM", i.Time)
	}
	if i.EstimatedCost != nil && *i.EstimatedCost < 0 {
		return errors.New("estimated cost must not be negative")
	}
	return nil
}
