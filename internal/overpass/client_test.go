package overpass

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	c := NewClient()
	c.SetBaseURL(url)
	c.SetRetry(10*time.Millisecond, 2)
	return c
}

func overpassPayload() overpassResponse {
	return overpassResponse{
		Elements: []overpassElement{
			{Lat: 47.1005, Lon: -119.9980, Tags: map[string]string{"name": "Gorge Amphitheatre", "amenity": "concert_hall", "alt_name": "The Gorge"}},
			{Lat: 47.0998, Lon: -119.9973, Tags: map[string]string{"name": "Cave B Stage", "leisure": "stage"}},
			// Unnamed elements are discarded.
			{Lat: 47.0999, Lon: -119.9974, Tags: map[string]string{"amenity": "nightclub"}},
		},
	}
}

func TestFindVenues_SortedByDistance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(overpassPayload())
	}))
	defer server.Close()

	places, err := newTestClient(server.URL).FindVenues(context.Background(), 47.0998, -119.9973, 600)
	if err != nil {
		t.Fatalf("FindVenues failed: %v", err)
	}

	if len(places) != 2 {
		t.Fatalf("got %d places, want 2 (unnamed dropped)", len(places))
	}
	if places[0].Name != "Cave B Stage" {
		t.Errorf("closest place = %s, want Cave B Stage", places[0].Name)
	}
	if places[1].AltName != "The Gorge" {
		t.Errorf("alt name = %q, want The Gorge", places[1].AltName)
	}
	if places[0].Distance > places[1].Distance {
		t.Error("places not sorted by distance")
	}
}

func TestFindVenues_RetriesGatewayTimeout(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		json.NewEncoder(w).Encode(overpassPayload())
	}))
	defer server.Close()

	places, err := newTestClient(server.URL).FindVenues(context.Background(), 47.0998, -119.9973, 600)
	if err != nil {
		t.Fatalf("FindVenues failed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
	if len(places) == 0 {
		t.Error("expected places after retry")
	}
}

func TestFindVenues_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).FindVenues(context.Background(), 47.0998, -119.9973, 600); err == nil {
		t.Fatal("expected error on 400")
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want 1 (no retry on 4xx)", attempts)
	}
}

func TestFindVenues_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).FindVenues(context.Background(), 47.0998, -119.9973, 600); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3 (1 initial + 2 retries)", attempts)
	}
}
