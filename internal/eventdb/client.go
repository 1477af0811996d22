// Package eventdb searches an external concert database for candidate
// events by artist, venue, city, and date. All calls flow through one
// shared rate limiter so consecutive requests are never spaced closer
// than the configured minimum interval, no matter the call site.
package eventdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.setlist.fm/rest/1.0"

	// DefaultMinInterval is the minimum spacing between calls.
	DefaultMinInterval = 500 * time.Millisecond

	wireDateFormat = "02-01-2006"
)

type Event struct {
	ID         string
	ArtistName string
	VenueName  string
	City       string
	State      string
	Country    string
	Latitude   *float64
	Longitude  *float64
	EventDate  time.Time
	Songs      []string
}

type SearchParams struct {
	ArtistName string
	VenueName  string
	City       string
	Date       time.Time
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return NewClientWithInterval(apiKey, DefaultMinInterval)
}

func NewClientWithInterval(apiKey string, minInterval time.Duration) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

type wireResponse struct {
	Setlist []wireSetlist `json:"setlist"`
}

type wireSetlist struct {
	ID        string    `json:"id"`
	EventDate string    `json:"eventDate"`
	Artist    wireName  `json:"artist"`
	Venue     wireVenue `json:"venue"`
	Sets      wireSets  `json:"sets"`
}

type wireName struct {
	Name string `json:"name"`
}

type wireVenue struct {
	Name string   `json:"name"`
	City wireCity `json:"city"`
}

type wireCity struct {
	Name      string      `json:"name"`
	StateCode string      `json:"stateCode"`
	Country   wireName    `json:"country"`
	Coords    *wireCoords `json:"coords"`
}

type wireCoords struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

type wireSets struct {
	Set []wireSet `json:"set"`
}

type wireSet struct {
	Song []wireName `json:"song"`
}

// SearchEvents blocks on the shared limiter, then issues one search.
// Empty params are omitted from the query.
func (c *Client) SearchEvents(ctx context.Context, params SearchParams) ([]Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	if params.ArtistName != "" {
		q.Set("artistName", params.ArtistName)
	}
	if params.VenueName != "" {
		q.Set("venueName", params.VenueName)
	}
	if params.City != "" {
		q.Set("cityName", params.City)
	}
	if !params.Date.IsZero() {
		q.Set("date", params.Date.Format(wireDateFormat))
	}

	fullURL := fmt.Sprintf("%s/search/setlists?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	// The service answers 404 for searches with no results.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event database returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	events := make([]Event, 0, len(wire.Setlist))
	for _, sl := range wire.Setlist {
		events = append(events, sl.toEvent())
	}
	return events, nil
}

func (sl *wireSetlist) toEvent() Event {
	ev := Event{
		ID:         sl.ID,
		ArtistName: sl.Artist.Name,
		VenueName:  sl.Venue.Name,
		City:       sl.Venue.City.Name,
		State:      sl.Venue.City.StateCode,
		Country:    sl.Venue.City.Country.Name,
	}

	if coords := sl.Venue.City.Coords; coords != nil {
		lat, lon := coords.Lat, coords.Long
		ev.Latitude = &lat
		ev.Longitude = &lon
	}

	if t, err := time.Parse(wireDateFormat, sl.EventDate); err == nil {
		ev.EventDate = t
	}

	for _, set := range sl.Sets.Set {
		for _, song := range set.Song {
			if song.Name != "" {
				ev.Songs = append(ev.Songs, song.Name)
			}
		}
	}
	return ev
}
