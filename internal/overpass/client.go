// Package overpass queries a map-data service for named places carrying
// venue-indicating tags around a coordinate.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gigfolio/internal/geoutil"
)

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// venueAmenities and venueLeisure form the tag allow-list. Ambiguous
// tags like a bare "park" are excluded here and only consulted as a
// low-confidence fallback.
var (
	venueAmenities = []string{"nightclub", "theatre", "events_centre", "music_venue", "concert_hall"}
	venueLeisure   = []string{"stadium", "bandstand", "stage"}
)

// FallbackTag is the low-confidence park fallback tag.
const FallbackTag = "park"

type Place struct {
	Name      string
	AltName   string
	Tag       string
	Latitude  float64
	Longitude float64
	Distance  float64
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	retryInitial time.Duration
	maxRetries   uint64
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryInitial: 2 * time.Second,
		maxRetries:   2,
	}
}

// SetBaseURL points the client at a different endpoint (tests, mirrors).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetRetry overrides the backoff schedule.
func (c *Client) SetRetry(initial time.Duration, maxRetries uint64) {
	c.retryInitial = initial
	c.maxRetries = maxRetries
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FindVenues returns named venue-tagged places within radiusMeters of
// the point, sorted by distance ascending. Gateway-timeout-class
// failures are retried with exponential backoff; anything else fails
// immediately.
func (c *Client) FindVenues(ctx context.Context, lat, lon, radiusMeters float64) ([]Place, error) {
	query := buildQuery(lat, lon, radiusMeters)

	var resp overpassResponse
	operation := func() error {
		return c.execute(ctx, query, &resp)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}

		elLat, elLon := el.Lat, el.Lon
		if el.Center != nil {
			elLat, elLon = el.Center.Lat, el.Center.Lon
		}

		places = append(places, Place{
			Name:      name,
			AltName:   altName(el.Tags),
			Tag:       venueTag(el.Tags),
			Latitude:  elLat,
			Longitude: elLon,
			Distance:  geoutil.DistanceMeters(lat, lon, elLat, elLon),
		})
	}

	for i := 0; i < len(places)-1; i++ {
		for j := i + 1; j < len(places); j++ {
			if places[j].Distance < places[i].Distance {
				places[i], places[j] = places[j], places[i]
			}
		}
	}

	return places, nil
}

func (c *Client) execute(ctx context.Context, query string, out *overpassResponse) error {
	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("overpass returned status %d", resp.StatusCode)
		if isRetryableStatus(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusGatewayTimeout ||
		status == http.StatusBadGateway ||
		status == http.StatusTooManyRequests
}

func buildQuery(lat, lon, radiusMeters float64) string {
	around := fmt.Sprintf("around:%.0f,%f,%f", radiusMeters, lat, lon)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];(")
	amenity := strings.Join(venueAmenities, "|")
	leisure := strings.Join(venueLeisure, "|")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, `%s["amenity"~"^(%s)$"](%s);`, kind, amenity, around)
		fmt.Fprintf(&b, `%s["leisure"~"^(%s)$"](%s);`, kind, leisure, around)
		fmt.Fprintf(&b, `%s["leisure"="%s"](%s);`, kind, FallbackTag, around)
	}
	b.WriteString(");out center tags;")
	return b.String()
}

func altName(tags map[string]string) string {
	for _, key := range []string{"alt_name", "short_name", "official_name"} {
		if v := tags[key]; v != "" {
			return v
		}
	}
	return ""
}

func venueTag(tags map[string]string) string {
	if v := tags["amenity"]; v != "" {
		return v
	}
	if v := tags["leisure"]; v != "" {
		return v
	}
	return ""
}
