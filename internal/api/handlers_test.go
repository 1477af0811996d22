package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"gigfolio/internal/database"
	"gigfolio/internal/models"
)

func setupApp(t *testing.T) (*App, http.Handler) {
	t.Helper()

	db, err := database.NewDB(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	app := &App{
		Concerts:  database.NewConcertRepository(db),
		Artists:   database.NewArtistRepository(db),
		Venues:    database.NewVenueRepository(db),
		Photos:    database.NewPhotoRepository(db),
		Unmatched: database.NewUnmatchedRepository(db),
		Setlists:  database.NewSetlistRepository(db),
	}
	return app, NewRouter(app)
}

func seedConcert(t *testing.T, app *App, userID int64) *models.Concert {
	t.Helper()

	artist, err := app.Artists.FindOrCreate("Pearl Jam")
	if err != nil {
		t.Fatalf("Failed to create artist: %v", err)
	}
	lat, lon := 47.0998, -119.9973
	venue, err := app.Venues.FindOrCreate(&models.Venue{
		Name: "Gorge Amphitheatre", City: "George", Latitude: &lat, Longitude: &lon,
	})
	if err != nil {
		t.Fatalf("Failed to create venue: %v", err)
	}

	concert, _, err := app.Concerts.Create(&models.Concert{
		UserID:      userID,
		ArtistID:    artist.ID,
		VenueID:     venue.ID,
		ConcertDate: time.Date(2023, 7, 14, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Failed to create concert: %v", err)
	}
	return concert
}

func seedUnmatched(t *testing.T, app *App, userID int64, fileID string) *models.UnmatchedPhoto {
	t.Helper()

	u := &models.UnmatchedPhoto{
		UserID:     userID,
		FileID:     fileID,
		FileName:   fileID,
		VenueGuess: "Gorge Amphitheatre",
		Status:     models.ReviewPending,
	}
	if err := app.Unmatched.Create(u); err != nil {
		t.Fatalf("Failed to create unmatched photo: %v", err)
	}
	return u
}

func doJSON(t *testing.T, router http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListConcerts(t *testing.T) {
	app, router := setupApp(t)
	concert := seedConcert(t, app, 1)

	song, err := app.Setlists.FindOrCreateSong(concert.ArtistID, "Even Flow")
	if err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	if err := app.Setlists.AddEntry(concert.ID, song.ID, 1); err != nil {
		t.Fatalf("Failed to add setlist entry: %v", err)
	}
	concertID := concert.ID
	if err := app.Photos.Create(&models.Photo{UserID: 1, FileID: "a.jpg", FileName: "a.jpg", ConcertID: &concertID}); err != nil {
		t.Fatalf("Failed to create photo: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/concerts?user_id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got []concertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d concerts, want 1", len(got))
	}
	c := got[0]
	if c.Artist != "Pearl Jam" || c.Venue != "Gorge Amphitheatre" {
		t.Errorf("concert = %+v", c)
	}
	if c.PhotoCount != 1 {
		t.Errorf("photo count = %d, want 1", c.PhotoCount)
	}
	if len(c.Setlist) != 1 || c.Setlist[0] != "Even Flow" {
		t.Errorf("setlist = %v", c.Setlist)
	}
}

func TestListConcerts_OtherUserSeesNothing(t *testing.T) {
	app, router := setupApp(t)
	seedConcert(t, app, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/concerts?user_id=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []concertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d concerts for other user, want 0", len(got))
	}
}

func TestReviewLink(t *testing.T) {
	app, router := setupApp(t)
	concert := seedConcert(t, app, 1)
	photo := seedUnmatched(t, app, 1, "a.jpg")

	rec := doJSON(t, router, http.MethodPost,
		"/api/review/unmatched/"+itoa(photo.ID)+"/link",
		linkRequest{ConcertID: concert.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	updated, err := app.Unmatched.GetByID(photo.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != models.ReviewLinked {
		t.Errorf("status = %s, want linked", updated.Status)
	}
	if updated.ConcertID == nil || *updated.ConcertID != concert.ID {
		t.Errorf("concert id = %v, want %d", updated.ConcertID, concert.ID)
	}

	count, err := app.Photos.CountByConcert(concert.ID)
	if err != nil {
		t.Fatalf("CountByConcert failed: %v", err)
	}
	if count != 1 {
		t.Errorf("linking must create a catalog photo, count = %d", count)
	}
}

func TestReviewLink_MissingConcert(t *testing.T) {
	app, router := setupApp(t)
	photo := seedUnmatched(t, app, 1, "a.jpg")

	rec := doJSON(t, router, http.MethodPost,
		"/api/review/unmatched/"+itoa(photo.ID)+"/link",
		linkRequest{ConcertID: 99})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestReviewSkipUnskip(t *testing.T) {
	app, router := setupApp(t)
	photo := seedUnmatched(t, app, 1, "a.jpg")

	rec := doJSON(t, router, http.MethodPost, "/api/review/unmatched/"+itoa(photo.ID)+"/skip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("skip status = %d", rec.Code)
	}

	// Skipping twice is a state conflict, not a missing photo.
	rec = doJSON(t, router, http.MethodPost, "/api/review/unmatched/"+itoa(photo.ID)+"/skip", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second skip status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/review/unmatched/"+itoa(photo.ID)+"/unskip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unskip status = %d", rec.Code)
	}

	updated, err := app.Unmatched.GetByID(photo.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != models.ReviewPending {
		t.Errorf("status = %s, want pending after unskip", updated.Status)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/review/unmatched/42/skip", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing photo skip status = %d, want 404", rec.Code)
	}
}

func TestListUnmatched_FiltersByStatus(t *testing.T) {
	app, router := setupApp(t)
	seedUnmatched(t, app, 1, "a.jpg")
	skipped := seedUnmatched(t, app, 1, "b.jpg")
	if err := app.Unmatched.Skip(skipped.ID); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/review/unmatched?user_id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var pending []unmatchedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pending); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(pending) != 1 || pending[0].FileID != "a.jpg" {
		t.Errorf("pending = %+v, want only a.jpg", pending)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/review/unmatched?user_id=1&status=skipped", nil)
	var got []unmatchedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].FileID != "b.jpg" {
		t.Errorf("skipped = %+v, want only b.jpg", got)
	}
}

func TestScanProgress_NoScan(t *testing.T) {
	app, router := setupApp(t)
	app.Scanner = nil

	rec := doJSON(t, router, http.MethodGet, "/api/scan/progress", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without user_id", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
