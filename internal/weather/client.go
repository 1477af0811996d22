// Package weather fetches a current-conditions snapshot for a
// coordinate. Strictly best-effort: callers treat any failure as
// "no snapshot".
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.open-meteo.com"

type Snapshot struct {
	TemperatureC float64 `json:"temperature_c"`
	WindSpeedKmh float64 `json:"wind_speed_kmh"`
	Code         int     `json:"code"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

type wireResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Current returns current conditions at the coordinate.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%f", lat))
	q.Set("longitude", fmt.Sprintf("%f", lon))
	q.Set("current_weather", "true")

	fullURL := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &Snapshot{
		TemperatureC: wire.CurrentWeather.Temperature,
		WindSpeedKmh: wire.CurrentWeather.WindSpeed,
		Code:         wire.CurrentWeather.WeatherCode,
	}, nil
}

// Encode renders a snapshot for storage on a concert record.
func Encode(s *Snapshot) string {
	if s == nil {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}
