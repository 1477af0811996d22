// Package venues resolves a coordinate to the named venue most likely to
// have hosted an event there. Detection is a cascade: persistent cache,
// then a geospatial tag query, then validation of the closest candidates
// against the external event database, then a close-proximity fallback.
package venues

import (
	"context"
	"log"

	"gigfolio/internal/eventdb"
	"gigfolio/internal/geoutil"
	"gigfolio/internal/models"
	"gigfolio/internal/overpass"
)

type Method string

const (
	MethodOSMTag           Method = "osm_tag"
	MethodOSMScanValidated Method = "osm_scan_validated"
	MethodManualOverride   Method = "manual_override"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type ResolvedVenue struct {
	Name           string
	AltName        string
	Method         Method
	Confidence     Confidence
	DistanceMeters float64
	Latitude       float64
	Longitude      float64
	Tag            string
	City           string
}

type TagService interface {
	FindVenues(ctx context.Context, lat, lon, radiusMeters float64) ([]overpass.Place, error)
}

type EventSearcher interface {
	SearchEvents(ctx context.Context, params eventdb.SearchParams) ([]eventdb.Event, error)
}

type Cache interface {
	FindNearby(lat, lon, radiusMeters float64) (*models.VenueCache, error)
	FindOrCreate(entry *models.VenueCache) (*models.VenueCache, error)
}

type Config struct {
	CacheRadiusMeters    float64
	SearchRadiusMeters   float64
	MaxValidate          int
	HighConfidenceMeters float64
	MedConfidenceMeters  float64
	CloseFallbackMeters  float64
}

func DefaultConfig() Config {
	return Config{
		CacheRadiusMeters:    600,
		SearchRadiusMeters:   600,
		MaxValidate:          5,
		HighConfidenceMeters: 50,
		MedConfidenceMeters:  200,
		CloseFallbackMeters:  50,
	}
}

type Resolver struct {
	tags   TagService
	events EventSearcher
	cache  Cache
	config Config
}

func NewResolver(tags TagService, events EventSearcher, cache Cache, config Config) *Resolver {
	if config.MaxValidate == 0 {
		config = DefaultConfig()
	}
	return &Resolver{tags: tags, events: events, cache: cache, config: config}
}

// Resolve finds the most likely venue for a coordinate. A nil result
// means "venue unknown", never an error: external failures are logged
// and degrade to no result so the caller falls through to review.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64, city string) (*ResolvedVenue, error) {
	// Step 1: cache.
	if cached, err := r.cache.FindNearby(lat, lon, r.config.CacheRadiusMeters); err != nil {
		return nil, err
	} else if cached != nil {
		log.Printf("[VENUE] Cache hit: %s", cached.Name)
		return r.fromCache(cached, lat, lon), nil
	}

	// Step 2: geospatial tag query.
	places, err := r.tags.FindVenues(ctx, lat, lon, r.config.SearchRadiusMeters)
	if err != nil {
		log.Printf("[VENUE] Tag query failed: %v", err)
		return nil, nil
	}
	if len(places) == 0 {
		return nil, nil
	}

	// Step 3: validate the closest candidates against the event
	// database; first one with any historical event wins.
	limit := r.config.MaxValidate
	if limit > len(places) {
		limit = len(places)
	}
	for _, place := range places[:limit] {
		if r.hasHistoricalEvents(ctx, place, city) {
			resolved := &ResolvedVenue{
				Name:           place.Name,
				AltName:        place.AltName,
				Method:         MethodOSMScanValidated,
				Confidence:     r.confidenceFor(place.Distance, place.Tag),
				DistanceMeters: place.Distance,
				Latitude:       place.Latitude,
				Longitude:      place.Longitude,
				Tag:            place.Tag,
				City:           city,
			}
			r.persist(resolved)
			return resolved, nil
		}
	}

	// Step 4: nothing validated, but a candidate this close is evidence
	// enough on its own.
	closest := places[0]
	if closest.Distance <= r.config.CloseFallbackMeters {
		confidence := ConfidenceHigh
		if closest.Tag == overpass.FallbackTag {
			confidence = ConfidenceLow
		}
		resolved := &ResolvedVenue{
			Name:           closest.Name,
			AltName:        closest.AltName,
			Method:         MethodOSMTag,
			Confidence:     confidence,
			DistanceMeters: closest.Distance,
			Latitude:       closest.Latitude,
			Longitude:      closest.Longitude,
			Tag:            closest.Tag,
			City:           city,
		}
		r.persist(resolved)
		return resolved, nil
	}

	return nil, nil
}

func (r *Resolver) hasHistoricalEvents(ctx context.Context, place overpass.Place, city string) bool {
	for _, name := range []string{place.Name, place.AltName} {
		if name == "" {
			continue
		}
		events, err := r.events.SearchEvents(ctx, eventdb.SearchParams{VenueName: name, City: city})
		if err != nil {
			log.Printf("[VENUE] Validation query failed for %q: %v", name, err)
			continue
		}
		if len(events) > 0 {
			return true
		}
	}
	return false
}

func (r *Resolver) confidenceFor(distanceMeters float64, tag string) Confidence {
	if tag == overpass.FallbackTag {
		return ConfidenceLow
	}
	switch {
	case distanceMeters <= r.config.HighConfidenceMeters:
		return ConfidenceHigh
	case distanceMeters <= r.config.MedConfidenceMeters:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func (r *Resolver) fromCache(cached *models.VenueCache, lat, lon float64) *ResolvedVenue {
	distance := distanceTo(cached, lat, lon)
	return &ResolvedVenue{
		Name:           cached.Name,
		AltName:        cached.AltName,
		Method:         MethodOSMTag,
		Confidence:     r.confidenceFor(distance, cached.Tag),
		DistanceMeters: distance,
		Latitude:       cached.Latitude,
		Longitude:      cached.Longitude,
		Tag:            cached.Tag,
		City:           cached.City,
	}
}

func distanceTo(c *models.VenueCache, lat, lon float64) float64 {
	return geoutil.DistanceMeters(lat, lon, c.Latitude, c.Longitude)
}

// persist caches the result so the next scan near this point skips the
// external queries. Cache write failures only cost a future lookup.
func (r *Resolver) persist(v *ResolvedVenue) {
	_, err := r.cache.FindOrCreate(&models.VenueCache{
		Name:      v.Name,
		AltName:   v.AltName,
		City:      v.City,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Tag:       v.Tag,
	})
	if err != nil {
		log.Printf("[VENUE] Failed to cache venue %q: %v", v.Name, err)
	}
}
