// Package matcher finds or creates the canonical concert record for an
// event group. Resolution is an ordered list of named strategies tried
// in sequence: the user's own catalog, the external event database,
// proximity to an already-matched photo, and a same-date fallback for
// groups without GPS. The first strategy to produce a concert wins.
package matcher

import (
	"context"
	"log"
	"time"

	"gigfolio/internal/eventdb"
	"gigfolio/internal/geocode"
	"gigfolio/internal/grouping"
	"gigfolio/internal/models"
	"gigfolio/internal/venues"
	"gigfolio/internal/weather"
)

type ConcertStore interface {
	FindByUserVenueWindow(userID, venueID int64, center time.Time, tolerance time.Duration) (*models.Concert, error)
	ListByUserBetween(userID int64, from, to time.Time) ([]models.Concert, error)
	Create(c *models.Concert) (*models.Concert, bool, error)
}

type VenueStore interface {
	FindNearby(lat, lon, radiusMeters float64) ([]models.Venue, error)
	FindOrCreate(v *models.Venue) (*models.Venue, error)
}

type ArtistStore interface {
	ListAll() ([]models.Artist, error)
	FindOrCreate(name string) (*models.Artist, error)
}

type SetlistStore interface {
	FindOrCreateSong(artistID int64, title string) (*models.Song, error)
	AddEntry(concertID, songID int64, position int) error
}

type PhotoStore interface {
	FindMatchedNear(userID int64, lat, lon, radiusMeters float64, from, to time.Time) (*int64, error)
}

type EventSearcher interface {
	SearchEvents(ctx context.Context, params eventdb.SearchParams) ([]eventdb.Event, error)
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Locality, error)
}

type WeatherService interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Snapshot, error)
}

type Config struct {
	// CatalogVenueRadiusMeters bounds the catalog-first venue lookup.
	CatalogVenueRadiusMeters float64
	// DateTolerance is the window around the group date inside which an
	// existing concert counts as the same event. 18 hours absorbs
	// post-midnight timestamps and cross-timezone ambiguity.
	DateTolerance time.Duration
	// ProximityFallbackMeters bounds the already-matched-photo fallback.
	ProximityFallbackMeters float64
	// OpenerCutoff is the local time-of-day before which a photo is
	// assumed to document the opener rather than the headliner.
	OpenerCutoffHour   int
	OpenerCutoffMinute int
	// SearchTimezoneOffset is the fixed offset applied when deriving the
	// external-search date from a photo timestamp. Deliberately distinct
	// from LocalDayOffset; the two paths disagree upstream and both are
	// kept configurable.
	SearchTimezoneOffset time.Duration
	// LocalDayOffset is the fixed offset used by the same-date fallback
	// when widening a calendar date around a catalog lookup.
	LocalDayOffset time.Duration
	// FuzzyThreshold is the artist-name match threshold.
	FuzzyThreshold int
}

func DefaultConfig() Config {
	return Config{
		CatalogVenueRadiusMeters: 2000,
		DateTolerance:            18 * time.Hour,
		ProximityFallbackMeters:  500,
		OpenerCutoffHour:         20,
		OpenerCutoffMinute:       30,
		SearchTimezoneOffset:     8 * time.Hour,
		LocalDayOffset:           12 * time.Hour,
		FuzzyThreshold:           70,
	}
}

// Result identifies the concert a group resolved to.
type Result struct {
	ConcertID int64
	IsNew     bool
}

type matchParams struct {
	userID int64
	group  *grouping.EventGroup
	venue  *venues.ResolvedVenue
}

type strategy struct {
	name string
	run  func(ctx context.Context, p *matchParams) (*Result, error)
}

type Matcher struct {
	concerts ConcertStore
	venues   VenueStore
	artists  ArtistStore
	setlists SetlistStore
	photos   PhotoStore
	events   EventSearcher
	geocoder Geocoder
	weather  WeatherService
	config   Config

	strategies []strategy
}

func NewMatcher(
	concerts ConcertStore,
	venueStore VenueStore,
	artists ArtistStore,
	setlists SetlistStore,
	photos PhotoStore,
	events EventSearcher,
	geocoder Geocoder,
	weatherService WeatherService,
	config Config,
) *Matcher {
	if config.CatalogVenueRadiusMeters == 0 {
		config = DefaultConfig()
	}

	m := &Matcher{
		concerts: concerts,
		venues:   venueStore,
		artists:  artists,
		setlists: setlists,
		photos:   photos,
		events:   events,
		geocoder: geocoder,
		weather:  weatherService,
		config:   config,
	}
	m.strategies = []strategy{
		{name: "catalog", run: m.matchCatalog},
		{name: "external", run: m.matchExternal},
		{name: "proximity", run: m.matchProximity},
		{name: "same-date", run: m.matchSameDate},
	}
	return m
}

// Match resolves a group to a concert, or returns nil when every
// strategy fails and the group should go to manual review. Strategy
// errors are logged and treated as "no result" so one bad lookup never
// aborts a batch.
func (m *Matcher) Match(ctx context.Context, userID int64, group *grouping.EventGroup, venue *venues.ResolvedVenue) *Result {
	p := &matchParams{userID: userID, group: group, venue: venue}

	for _, s := range m.strategies {
		result, err := s.run(ctx, p)
		if err != nil {
			log.Printf("[MATCH] Strategy %s failed for group %s|%s: %v", s.name, group.DateKey, group.LocationKey, err)
			continue
		}
		if result != nil {
			log.Printf("[MATCH] Strategy %s resolved group %s|%s to concert %d (new=%v)",
				s.name, group.DateKey, group.LocationKey, result.ConcertID, result.IsNew)
			return result
		}
	}
	return nil
}

// representativeTime is the earliest photo timestamp in the group.
func representativeTime(group *grouping.EventGroup) time.Time {
	var earliest time.Time
	for _, p := range group.Photos {
		if p.TakenAt == nil {
			continue
		}
		if earliest.IsZero() || p.TakenAt.Before(earliest) {
			earliest = *p.TakenAt
		}
	}
	return earliest
}
