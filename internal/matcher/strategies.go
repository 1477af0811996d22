package matcher

import (
	"context"
	"log"
	"time"

	"gigfolio/internal/eventdb"
	"gigfolio/internal/fuzzy"
	"gigfolio/internal/geocode"
	"gigfolio/internal/grouping"
	"gigfolio/internal/models"
	"gigfolio/internal/weather"
)

// matchCatalog checks venues already known to the user near the group's
// coordinate for an existing concert inside the date-tolerance window.
// No external call is made on this path.
func (m *Matcher) matchCatalog(ctx context.Context, p *matchParams) (*Result, error) {
	if !p.group.HasLocation() {
		return nil, nil
	}

	nearby, err := m.venues.FindNearby(p.group.Latitude(), p.group.Longitude(), m.config.CatalogVenueRadiusMeters)
	if err != nil {
		return nil, err
	}

	center := models.NoonUTC(p.group.Date())
	for _, v := range nearby {
		concert, err := m.concerts.FindByUserVenueWindow(p.userID, v.ID, center, m.config.DateTolerance)
		if err != nil {
			continue
		}
		return &Result{ConcertID: concert.ID}, nil
	}
	return nil, nil
}

// matchExternal searches the event database. It refuses to run without a
// resolved venue name: auto-filing photos under a wrong same-date,
// same-city event is worse than leaving them for review.
func (m *Matcher) matchExternal(ctx context.Context, p *matchParams) (*Result, error) {
	if p.venue == nil || p.venue.Name == "" {
		return nil, nil
	}

	city := m.searchCity(ctx, p)
	searchDate := m.externalSearchDate(p.group)

	candidates, err := m.events.SearchEvents(ctx, eventdb.SearchParams{
		VenueName: p.venue.Name,
		City:      city,
		Date:      searchDate,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && p.venue.AltName != "" {
		candidates, err = m.events.SearchEvents(ctx, eventdb.SearchParams{
			VenueName: p.venue.AltName,
			City:      city,
			Date:      searchDate,
		})
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	selected := m.disambiguate(candidates, p.group)
	return m.materialize(ctx, p, selected)
}

// searchCity reverse-geocodes the group coordinate. County-style names
// are not valid city inputs to the event database, so they are omitted.
func (m *Matcher) searchCity(ctx context.Context, p *matchParams) string {
	if p.venue != nil && p.venue.City != "" && !geocode.LooksLikeCounty(p.venue.City) {
		return p.venue.City
	}
	if !p.group.HasLocation() {
		return ""
	}

	loc, err := m.geocoder.Reverse(ctx, p.group.Latitude(), p.group.Longitude())
	if err != nil {
		log.Printf("[MATCH] Reverse geocode failed: %v", err)
		return ""
	}
	if loc == nil || loc.IsCounty || geocode.LooksLikeCounty(loc.Name) {
		return ""
	}
	return loc.Name
}

// externalSearchDate derives the search date from the earliest photo
// timestamp using the fixed search-path offset.
func (m *Matcher) externalSearchDate(group *grouping.EventGroup) time.Time {
	rep := representativeTime(group)
	if rep.IsZero() {
		return group.Date()
	}
	shifted := rep.Add(-m.config.SearchTimezoneOffset)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

// disambiguate picks between multiple candidate events on the same bill
// by photo time-of-day: before the opener cutoff, assume the photo
// documents the opener (fewest songs); after, the headliner (most).
func (m *Matcher) disambiguate(candidates []eventdb.Event, group *grouping.EventGroup) *eventdb.Event {
	if len(candidates) == 1 {
		return &candidates[0]
	}

	rep := representativeTime(group)
	beforeCutoff := rep.Hour() < m.config.OpenerCutoffHour ||
		(rep.Hour() == m.config.OpenerCutoffHour && rep.Minute() < m.config.OpenerCutoffMinute)

	selected := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if beforeCutoff {
			if len(candidates[i].Songs) < len(selected.Songs) {
				selected = &candidates[i]
			}
		} else {
			if len(candidates[i].Songs) > len(selected.Songs) {
				selected = &candidates[i]
			}
		}
	}
	return selected
}

// materialize turns the selected event into catalog records: artist and
// venue find-or-create, concert create with a final uniqueness check,
// best-effort weather, and a setlist copy for genuinely new concerts
// only.
func (m *Matcher) materialize(ctx context.Context, p *matchParams, event *eventdb.Event) (*Result, error) {
	artist, err := m.findOrCreateArtist(event.ArtistName)
	if err != nil {
		return nil, err
	}

	venue, err := m.findOrCreateVenue(p, event)
	if err != nil {
		return nil, err
	}

	// The event's own date wins over the photo timestamp; the photo may
	// sit on the other side of a timezone boundary.
	concertDate := event.EventDate
	if concertDate.IsZero() {
		concertDate = p.group.Date()
	}
	concertDate = models.NoonUTC(concertDate)

	// Another group in this batch may have just created the same
	// concert.
	if existing, err := m.concerts.FindByUserVenueWindow(p.userID, venue.ID, concertDate, m.config.DateTolerance); err == nil {
		return &Result{ConcertID: existing.ID}, nil
	}

	lat, lon := concertCoordinate(p.group, event)
	snapshot := m.fetchWeather(ctx, lat, lon)

	concert, isNew, err := m.concerts.Create(&models.Concert{
		UserID:          p.userID,
		ArtistID:        artist.ID,
		VenueID:         venue.ID,
		ConcertDate:     concertDate,
		Weather:         weather.Encode(snapshot),
		ExternalEventID: event.ID,
	})
	if err != nil {
		return nil, err
	}

	if isNew {
		m.copySetlist(concert, artist, event)
	}

	return &Result{ConcertID: concert.ID, IsNew: isNew}, nil
}

func (m *Matcher) findOrCreateArtist(name string) (*models.Artist, error) {
	existing, err := m.artists.ListAll()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(existing))
	for i, a := range existing {
		names[i] = a.Name
	}

	if match := fuzzy.BestMatch(name, names, m.config.FuzzyThreshold); match != nil {
		for i := range existing {
			if existing[i].Name == match.Name {
				return &existing[i], nil
			}
		}
	}
	return m.artists.FindOrCreate(name)
}

func (m *Matcher) findOrCreateVenue(p *matchParams, event *eventdb.Event) (*models.Venue, error) {
	venue := &models.Venue{
		Name:    event.VenueName,
		City:    event.City,
		State:   event.State,
		Country: event.Country,
	}
	if p.venue != nil {
		venue.AltName = p.venue.AltName
	}

	lat, lon := concertCoordinate(p.group, event)
	if lat != 0 || lon != 0 {
		venue.Latitude = &lat
		venue.Longitude = &lon
	}
	return m.venues.FindOrCreate(venue)
}

// fetchWeather is best-effort; failure is logged and ignored.
func (m *Matcher) fetchWeather(ctx context.Context, lat, lon float64) *weather.Snapshot {
	if m.weather == nil || (lat == 0 && lon == 0) {
		return nil
	}
	snapshot, err := m.weather.Current(ctx, lat, lon)
	if err != nil {
		log.Printf("[MATCH] Weather lookup failed: %v", err)
		return nil
	}
	return snapshot
}

// copySetlist stores the candidate's songs for a newly created concert.
// Existing concerts never get their setlist overwritten by auto-match.
func (m *Matcher) copySetlist(concert *models.Concert, artist *models.Artist, event *eventdb.Event) {
	for i, title := range event.Songs {
		song, err := m.setlists.FindOrCreateSong(artist.ID, title)
		if err != nil {
			log.Printf("[MATCH] Failed to store song %q: %v", title, err)
			continue
		}
		if err := m.setlists.AddEntry(concert.ID, song.ID, i+1); err != nil {
			log.Printf("[MATCH] Failed to store setlist entry %d: %v", i+1, err)
		}
	}
}

func concertCoordinate(group *grouping.EventGroup, event *eventdb.Event) (float64, float64) {
	if event.Latitude != nil && event.Longitude != nil {
		return *event.Latitude, *event.Longitude
	}
	if group.HasLocation() {
		return group.Latitude(), group.Longitude()
	}
	return 0, 0
}

// matchProximity links the group to the concert of an already-matched
// photo close by on the same midnight-adjusted date. Dense clusters
// outside the event database's coverage resolve as soon as any one photo
// in them does.
func (m *Matcher) matchProximity(ctx context.Context, p *matchParams) (*Result, error) {
	if !p.group.HasLocation() {
		return nil, nil
	}

	// The adjusted date d covers timestamps in [d 04:00, d+1 04:00).
	from := p.group.Date().Add(grouping.MidnightShiftHours * time.Hour)
	to := from.Add(24 * time.Hour)

	concertID, err := m.photos.FindMatchedNear(p.userID, p.group.Latitude(), p.group.Longitude(),
		m.config.ProximityFallbackMeters, from, to)
	if err != nil {
		return nil, err
	}
	if concertID == nil {
		return nil, nil
	}
	return &Result{ConcertID: *concertID}, nil
}

// matchSameDate handles groups with no coordinates at all: if the user
// attended exactly one concert that date, link to it; more than one is
// ambiguous and goes to review.
func (m *Matcher) matchSameDate(ctx context.Context, p *matchParams) (*Result, error) {
	if p.group.HasLocation() {
		return nil, nil
	}

	center := models.NoonUTC(p.group.Date())
	concerts, err := m.concerts.ListByUserBetween(p.userID,
		center.Add(-m.config.LocalDayOffset), center.Add(m.config.LocalDayOffset))
	if err != nil {
		return nil, err
	}
	if len(concerts) != 1 {
		return nil, nil
	}
	return &Result{ConcertID: concerts[0].ID}, nil
}
