// Package geocode reverse-geocodes a coordinate to a locality name used
// to narrow external event searches.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Locality is a place name suitable (or not) for city-filtered searches.
// County-style names are flagged because the event database does not
// accept them as city inputs.
type Locality struct {
	Name     string
	State    string
	Country  string
	IsCounty bool
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

type wireAddress struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	Hamlet  string `json:"hamlet"`
	County  string `json:"county"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type wireResponse struct {
	Address wireAddress `json:"address"`
}

// Reverse resolves a coordinate to its locality. Returns nil when the
// service has no usable place name for the point.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Locality, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))

	fullURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "gigfolio/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	addr := wire.Address
	loc := &Locality{State: addr.State, Country: addr.Country}
	for _, name := range []string{addr.City, addr.Town, addr.Village, addr.Hamlet} {
		if name != "" {
			loc.Name = name
			return loc, nil
		}
	}
	if addr.County != "" {
		loc.Name = addr.County
		loc.IsCounty = true
		return loc, nil
	}
	return nil, nil
}

// LooksLikeCounty reports whether a locality name is county-styled.
func LooksLikeCounty(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, " county") || strings.HasPrefix(lower, "county ")
}
