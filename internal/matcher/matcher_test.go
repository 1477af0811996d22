package matcher

import (
	"context"
	"testing"
	"time"

	"gigfolio/internal/database"
	"gigfolio/internal/eventdb"
	"gigfolio/internal/geocode"
	"gigfolio/internal/grouping"
	"gigfolio/internal/models"
	"gigfolio/internal/photometa"
	"gigfolio/internal/venues"
	"gigfolio/internal/weather"
)

type fakeConcerts struct {
	concerts []models.Concert
	nextID   int64
}

func (f *fakeConcerts) FindByUserVenueWindow(userID, venueID int64, center time.Time, tol time.Duration) (*models.Concert, error) {
	for i := range f.concerts {
		c := &f.concerts[i]
		if c.UserID == userID && c.VenueID == venueID &&
			!c.ConcertDate.Before(center.Add(-tol)) && !c.ConcertDate.After(center.Add(tol)) {
			return c, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeConcerts) ListByUserBetween(userID int64, from, to time.Time) ([]models.Concert, error) {
	var out []models.Concert
	for _, c := range f.concerts {
		if c.UserID == userID && !c.ConcertDate.Before(from) && !c.ConcertDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConcerts) Create(c *models.Concert) (*models.Concert, bool, error) {
	c.ConcertDate = models.NoonUTC(c.ConcertDate)
	for i := range f.concerts {
		ex := &f.concerts[i]
		if ex.UserID == c.UserID && ex.VenueID == c.VenueID && ex.ConcertDate.Equal(c.ConcertDate) {
			return ex, false, nil
		}
	}
	f.nextID++
	c.ID = f.nextID
	f.concerts = append(f.concerts, *c)
	return c, true, nil
}

type fakeVenues struct {
	venues []models.Venue
	nextID int64
}

func (f *fakeVenues) FindNearby(lat, lon, radius float64) ([]models.Venue, error) {
	// Small fixture catalogs: every venue with coordinates is "nearby".
	var out []models.Venue
	for _, v := range f.venues {
		if v.Latitude != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVenues) FindOrCreate(v *models.Venue) (*models.Venue, error) {
	for i := range f.venues {
		if f.venues[i].Name == v.Name && f.venues[i].City == v.City {
			return &f.venues[i], nil
		}
	}
	f.nextID++
	v.ID = f.nextID
	f.venues = append(f.venues, *v)
	return v, nil
}

type fakeArtists struct {
	artists []models.Artist
	nextID  int64
}

func (f *fakeArtists) ListAll() ([]models.Artist, error) { return f.artists, nil }

func (f *fakeArtists) FindOrCreate(name string) (*models.Artist, error) {
	for i := range f.artists {
		if f.artists[i].Name == name {
			return &f.artists[i], nil
		}
	}
	f.nextID++
	a := models.Artist{ID: f.nextID, Name: name}
	f.artists = append(f.artists, a)
	return &f.artists[len(f.artists)-1], nil
}

type fakeSetlists struct {
	songs   map[string]int64
	entries map[int64][]int64
	nextID  int64
}

func newFakeSetlists() *fakeSetlists {
	return &fakeSetlists{songs: map[string]int64{}, entries: map[int64][]int64{}}
}

func (f *fakeSetlists) FindOrCreateSong(artistID int64, title string) (*models.Song, error) {
	if id, ok := f.songs[title]; ok {
		return &models.Song{ID: id, ArtistID: artistID, Title: title}, nil
	}
	f.nextID++
	f.songs[title] = f.nextID
	return &models.Song{ID: f.nextID, ArtistID: artistID, Title: title}, nil
}

func (f *fakeSetlists) AddEntry(concertID, songID int64, position int) error {
	f.entries[concertID] = append(f.entries[concertID], songID)
	return nil
}

type fakePhotos struct {
	concertID *int64
}

func (f *fakePhotos) FindMatchedNear(userID int64, lat, lon, radius float64, from, to time.Time) (*int64, error) {
	return f.concertID, nil
}

type fakeEvents struct {
	results []eventdb.Event
	calls   int
}

func (f *fakeEvents) SearchEvents(ctx context.Context, params eventdb.SearchParams) ([]eventdb.Event, error) {
	f.calls++
	return f.results, nil
}

type fakeGeocoder struct {
	locality *geocode.Locality
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (*geocode.Locality, error) {
	return f.locality, nil
}

type fakeWeather struct{}

func (fakeWeather) Current(ctx context.Context, lat, lon float64) (*weather.Snapshot, error) {
	return &weather.Snapshot{TemperatureC: 21.5}, nil
}

type fixture struct {
	concerts *fakeConcerts
	venues   *fakeVenues
	artists  *fakeArtists
	setlists *fakeSetlists
	photos   *fakePhotos
	events   *fakeEvents
	geocoder *fakeGeocoder
	matcher  *Matcher
}

func newFixture() *fixture {
	f := &fixture{
		concerts: &fakeConcerts{},
		venues:   &fakeVenues{},
		artists:  &fakeArtists{},
		setlists: newFakeSetlists(),
		photos:   &fakePhotos{},
		events:   &fakeEvents{},
		geocoder: &fakeGeocoder{locality: &geocode.Locality{Name: "George", State: "Washington"}},
	}
	f.matcher = NewMatcher(f.concerts, f.venues, f.artists, f.setlists, f.photos,
		f.events, f.geocoder, fakeWeather{}, DefaultConfig())
	return f
}

func groupAt(taken time.Time, lat, lon float64) *grouping.EventGroup {
	photos := []photometa.NormalizedPhoto{{
		FileID:    "f1",
		FileName:  "IMG_0001.jpg",
		TakenAt:   &taken,
		Latitude:  &lat,
		Longitude: &lon,
	}}
	groups := grouping.Group(photos)
	return &groups[0]
}

func groupNoGPS(taken time.Time) *grouping.EventGroup {
	photos := []photometa.NormalizedPhoto{{FileID: "f1", FileName: "IMG_0001.jpg", TakenAt: &taken}}
	groups := grouping.Group(photos)
	return &groups[0]
}

func resolvedGorge() *venues.ResolvedVenue {
	return &venues.ResolvedVenue{
		Name:       "Gorge Amphitheatre",
		Method:     venues.MethodOSMScanValidated,
		Confidence: venues.ConfidenceHigh,
		Latitude:   47.0998,
		Longitude:  -119.9973,
	}
}

func gorgeEvent(id string, songCount int) eventdb.Event {
	lat, lon := 47.0998, -119.9973
	songs := make([]string, songCount)
	for i := range songs {
		songs[i] = "Song"
	}
	return eventdb.Event{
		ID:         id,
		ArtistName: "Pearl Jam",
		VenueName:  "Gorge Amphitheatre",
		City:       "George",
		Latitude:   &lat,
		Longitude:  &lon,
		EventDate:  time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC),
		Songs:      songs,
	}
}

func TestMatch_SafetyGateBlocksExternalSearch(t *testing.T) {
	f := newFixture()
	group := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), 47.0998, -119.9973)

	result := f.matcher.Match(context.Background(), 1, group, nil)
	if result != nil {
		t.Fatalf("result = %+v, want nil without a resolved venue", result)
	}
	if f.events.calls != 0 {
		t.Errorf("external search called %d times, want 0 when venue is unresolved", f.events.calls)
	}
}

func TestMatch_CatalogFirstSkipsExternal(t *testing.T) {
	f := newFixture()
	lat, lon := 47.0998, -119.9973
	f.venues.venues = []models.Venue{{ID: 7, Name: "Gorge Amphitheatre", Latitude: &lat, Longitude: &lon}}
	f.concerts.concerts = []models.Concert{{
		ID: 42, UserID: 1, ArtistID: 1, VenueID: 7,
		ConcertDate: models.NoonUTC(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)),
	}}

	group := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), lat, lon)
	result := f.matcher.Match(context.Background(), 1, group, resolvedGorge())
	if result == nil || result.ConcertID != 42 {
		t.Fatalf("result = %+v, want existing concert 42", result)
	}
	if result.IsNew {
		t.Error("catalog match must not be flagged new")
	}
	if f.events.calls != 0 {
		t.Errorf("external search called %d times, want 0 on catalog hit", f.events.calls)
	}
}

func TestMatch_ExternalCreatesConcertWithSetlist(t *testing.T) {
	f := newFixture()
	f.events.results = []eventdb.Event{gorgeEvent("ev1", 18)}

	group := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	result := f.matcher.Match(context.Background(), 1, group, resolvedGorge())
	if result == nil {
		t.Fatal("expected a match")
	}
	if !result.IsNew {
		t.Error("expected a newly created concert")
	}
	if got := len(f.setlists.entries[result.ConcertID]); got != 18 {
		t.Errorf("setlist has %d entries, want 18", got)
	}
	if len(f.concerts.concerts) != 1 {
		t.Fatalf("created %d concerts, want 1", len(f.concerts.concerts))
	}
	// Concert date comes from the event, pinned to the fixed
	// time-of-day.
	want := models.NoonUTC(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC))
	if !f.concerts.concerts[0].ConcertDate.Equal(want) {
		t.Errorf("concert date = %v, want %v", f.concerts.concerts[0].ConcertDate, want)
	}
}

func TestMatch_DuplicateMatchesConverge(t *testing.T) {
	f := newFixture()
	f.events.results = []eventdb.Event{gorgeEvent("ev1", 10)}
	ctx := context.Background()

	group1 := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	first := f.matcher.Match(ctx, 1, group1, resolvedGorge())
	if first == nil || !first.IsNew {
		t.Fatalf("first match = %+v, want new concert", first)
	}

	// A second group for the same event resolves to the same record.
	group2 := groupAt(time.Date(2023, 7, 14, 22, 30, 0, 0, time.UTC), 47.0999, -119.9974)
	second := f.matcher.Match(ctx, 1, group2, resolvedGorge())
	if second == nil {
		t.Fatal("expected second match")
	}
	if second.ConcertID != first.ConcertID {
		t.Errorf("second match got concert %d, want %d", second.ConcertID, first.ConcertID)
	}
	if second.IsNew {
		t.Error("second match must not create a duplicate")
	}
	if len(f.concerts.concerts) != 1 {
		t.Errorf("catalog holds %d concerts, want 1", len(f.concerts.concerts))
	}
}

func TestMatch_DisambiguatesBySongCountAndTimeOfDay(t *testing.T) {
	f := newFixture()
	f.events.results = []eventdb.Event{gorgeEvent("opener", 5), gorgeEvent("headliner", 20)}

	earlyGroup := groupAt(time.Date(2023, 7, 14, 19, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	result := f.matcher.Match(context.Background(), 1, earlyGroup, resolvedGorge())
	if result == nil {
		t.Fatal("expected match for early photo")
	}
	if got := f.concerts.concerts[0].ExternalEventID; got != "opener" {
		t.Errorf("19:00 photo picked event %q, want opener (fewest songs)", got)
	}

	g := newFixture()
	g.events.results = []eventdb.Event{gorgeEvent("opener", 5), gorgeEvent("headliner", 20)}
	lateGroup := groupAt(time.Date(2023, 7, 14, 22, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	if result := g.matcher.Match(context.Background(), 1, lateGroup, resolvedGorge()); result == nil {
		t.Fatal("expected match for late photo")
	}
	if got := g.concerts.concerts[0].ExternalEventID; got != "headliner" {
		t.Errorf("22:00 photo picked event %q, want headliner (most songs)", got)
	}
}

func TestMatch_ProximityFallback(t *testing.T) {
	f := newFixture()
	neighborConcert := int64(99)
	f.photos.concertID = &neighborConcert

	group := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	result := f.matcher.Match(context.Background(), 1, group, nil)
	if result == nil || result.ConcertID != 99 {
		t.Fatalf("result = %+v, want neighbor's concert 99", result)
	}
}

func TestMatch_SameDateFallbackWithoutGPS(t *testing.T) {
	f := newFixture()
	f.concerts.concerts = []models.Concert{{
		ID: 5, UserID: 1, ArtistID: 1, VenueID: 1,
		ConcertDate: models.NoonUTC(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)),
	}}

	group := groupNoGPS(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC))
	result := f.matcher.Match(context.Background(), 1, group, nil)
	if result == nil || result.ConcertID != 5 {
		t.Fatalf("result = %+v, want the single same-date concert", result)
	}

	// Two concerts on the date is ambiguous.
	f.concerts.concerts = append(f.concerts.concerts, models.Concert{
		ID: 6, UserID: 1, ArtistID: 2, VenueID: 2,
		ConcertDate: models.NoonUTC(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)),
	})
	if result := f.matcher.Match(context.Background(), 1, group, nil); result != nil {
		t.Fatalf("result = %+v, want nil for ambiguous same-date", result)
	}
}

func TestMatch_FuzzyArtistReuse(t *testing.T) {
	f := newFixture()
	f.artists.artists = []models.Artist{{ID: 3, Name: "Pearl Jam"}}
	ev := gorgeEvent("ev1", 4)
	ev.ArtistName = "pearl jam"
	f.events.results = []eventdb.Event{ev}

	group := groupAt(time.Date(2023, 7, 14, 21, 0, 0, 0, time.UTC), 47.0998, -119.9973)
	result := f.matcher.Match(context.Background(), 1, group, resolvedGorge())
	if result == nil {
		t.Fatal("expected match")
	}
	if f.concerts.concerts[0].ArtistID != 3 {
		t.Errorf("artist id = %d, want existing artist 3", f.concerts.concerts[0].ArtistID)
	}
	if len(f.artists.artists) != 1 {
		t.Errorf("artist catalog has %d entries, want 1", len(f.artists.artists))
	}
}
