// Package places searches points of interest through the AMap WebService API.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://restapi.amap.com"
	textSearchPath = "/v5/place/text"

	defaultOffset = 10
	maxOffset     = 25
)

var (
	ErrNoKey      = errors.New("no AMap key configured (set amap_key)")
	ErrNoKeywords = errors.New("search keywords cannot be empty")
)

// SortRule orders search results.
type SortRule string

const (
	SortDistance SortRule = "distance"
	SortWeight   SortRule = "weight"
)

// Place is one search hit.
type Place struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Location string  `json:"location,omitempty"` // "lng,lat"
	Distance float64 `json:"distance,omitempty"` // meters, 0 when unknown
	Type     string  `json:"type,omitempty"`
	CityName string  `json:"cityname,omitempty"`
}

// Coordinate parses Location.
func (p Place) Coordinate() (lng, lat float64, err error) {
	return ParseCoordinate(p.Location)
}

// SearchParams are the text search inputs. Only Keywords is required.
type SearchParams struct {
	Keywords string
	City     string
	Location string // "lng,lat", biases results when sorting by distance
	SortRule SortRule
	Page     int
	Offset   int
}

// Error is a response whose status is not "1".
type Error struct {
	Info     string
	InfoCode string
}

func (e *Error) Error() string {
	if e.Info == "" {
		return "AMap error: unknown"
	}
	if e.InfoCode != "" {
		return fmt.Sprintf("AMap error: %s (%s)", e.Info, e.InfoCode)
	}
	return "AMap error: " + e.Info
}

// Client calls AMap with a client-side rate limit so that bursts of searches
// stay under the per-key QPS quota.
type Client struct {
	key     string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient returns a client limited to qps requests per second.
func NewClient(key string, qps float64) *Client {
	if qps <= 0 {
		qps = 3
	}
	return &Client{
		key:     strings.TrimSpace(key),
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type searchResponse struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	InfoCode string `json:"infocode"`
	POIs     []struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Address  json.RawMessage `json:"address"`
		AdName   string          `json:"adname"`
		Location string          `json:"location"`
		Distance json.RawMessage `json:"distance"`
		Type     string          `json:"type"`
		CityName string          `json:"cityname"`
	} `json:"pois"`
}

// Search runs a keyword search. It waits for the rate limiter, so a cancelled
// context aborts queued searches.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Place, error) {
	if c.key == "" {
		return nil, ErrNoKey
	}
	if strings.TrimSpace(p.Keywords) == "" {
		return nil, ErrNoKeywords
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(p), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("AMap request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read AMap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AMap HTTP %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("invalid AMap response: %w", err)
	}
	if out.Status != "1" {
		return nil, &Error{Info: out.Info, InfoCode: out.InfoCode}
	}

	places := make([]Place, 0, len(out.POIs))
	for _, poi := range out.POIs {
		addr := looseString(poi.Address)
		if addr == "" {
			addr = poi.AdName
		}
		places = append(places, Place{
			ID:       poi.ID,
			Name:     poi.Name,
			Address:  addr,
			Location: poi.Location,
			Distance: looseNumber(poi.Distance),
			Type:     poi.Type,
			CityName: poi.CityName,
		})
	}
	return places, nil
}

func (c *Client) searchURL(p SearchParams) string {
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("keywords", strings.TrimSpace(p.Keywords))
	if p.City != "" {
		q.Set("city", p.City)
	}
	if p.Location != "" {
		q.Set("location", p.Location)
	}
	sort := p.SortRule
	if sort == "" {
		sort = SortDistance
	}
	q.Set("sortrule", string(sort))

	page := p.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))

	offset := p.Offset
	if offset <= 0 {
		offset = defaultOffset
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	q.Set("offset", strconv.Itoa(offset))

	return c.baseURL + textSearchPath + "?" + q.Encode()
}

// ParseCoordinate splits an AMap "lng,lat" string.
func ParseCoordinate(s string) (lng, lat float64, err error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid coordinate %q: want \"lng,lat\"", s)
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("coordinate %q out of range", s)
	}
	return lng, lat, nil
}

// AMap returns [] instead of "" for some empty string fields.
func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func looseNumber(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, _ = strconv.ParseFloat(s, 64)
	}
	return f
}
