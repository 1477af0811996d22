package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gigfolio/internal/database"
	"gigfolio/internal/models"
	"gigfolio/internal/pipeline"
)

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type App struct {
	Scanner   *pipeline.Scanner
	Concerts  *database.ConcertRepository
	Artists   *database.ArtistRepository
	Venues    *database.VenueRepository
	Photos    *database.PhotoRepository
	Unmatched *database.UnmatchedRepository
	Setlists  *database.SetlistRepository
}

type scanRequest struct {
	UserID int64 `json:"user_id"`
	Limit  int   `json:"limit"`
}

func (app *App) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// The scan outlives the request; progress is polled separately.
	scanID, err := app.Scanner.Start(context.WithoutCancel(r.Context()), req.UserID, req.Limit)
	if err != nil {
		if errors.Is(err, pipeline.ErrScanInFlight) {
			respondError(w, http.StatusConflict, "scan already in flight")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to start scan")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID})
}

func (app *App) ScanProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}

	progress, found := app.Scanner.Tracker().Get(userID)
	if !found {
		respondError(w, http.StatusNotFound, "no scan for user")
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

type concertResponse struct {
	ID         int64     `json:"id"`
	Artist     string    `json:"artist"`
	Venue      string    `json:"venue"`
	City       string    `json:"city"`
	Date       time.Time `json:"date"`
	Weather    string    `json:"weather,omitempty"`
	PhotoCount int       `json:"photo_count"`
	Setlist    []string  `json:"setlist,omitempty"`
}

func (app *App) ListConcertsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}

	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Now().UTC().AddDate(1, 0, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}

	concerts, err := app.Concerts.ListByUserBetween(userID, from, to)
	if err != nil {
		log.Printf("[API] Failed to list concerts for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to list concerts")
		return
	}

	out := make([]concertResponse, 0, len(concerts))
	for _, c := range concerts {
		resp, err := app.concertResponse(&c)
		if err != nil {
			log.Printf("[API] Failed to load concert %d: %v", c.ID, err)
			respondError(w, http.StatusInternalServerError, "failed to load concert")
			return
		}
		out = append(out, *resp)
	}
	respondJSON(w, http.StatusOK, out)
}

func (app *App) concertResponse(c *models.Concert) (*concertResponse, error) {
	artist, err := app.Artists.GetByID(c.ArtistID)
	if err != nil {
		return nil, err
	}
	venue, err := app.Venues.GetByID(c.VenueID)
	if err != nil {
		return nil, err
	}
	count, err := app.Photos.CountByConcert(c.ID)
	if err != nil {
		return nil, err
	}
	titles, err := app.Setlists.ListTitles(c.ID)
	if err != nil {
		return nil, err
	}

	return &concertResponse{
		ID:         c.ID,
		Artist:     artist.Name,
		Venue:      venue.Name,
		City:       venue.City,
		Date:       c.ConcertDate,
		Weather:    c.Weather,
		PhotoCount: count,
		Setlist:    titles,
	}, nil
}

type unmatchedResponse struct {
	ID         int64               `json:"id"`
	FileID     string              `json:"file_id"`
	FileName   string              `json:"file_name"`
	TakenAt    *time.Time          `json:"taken_at,omitempty"`
	Latitude   *float64            `json:"latitude,omitempty"`
	Longitude  *float64            `json:"longitude,omitempty"`
	VenueGuess string              `json:"venue_guess,omitempty"`
	CityGuess  string              `json:"city_guess,omitempty"`
	Status     models.ReviewStatus `json:"status"`
	ConcertID  *int64              `json:"concert_id,omitempty"`
}

func (app *App) ListUnmatchedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}

	status := models.ReviewStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.ReviewPending
	}
	if status != models.ReviewPending && status != models.ReviewSkipped && status != models.ReviewLinked {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	photos, err := app.Unmatched.ListByStatus(userID, status)
	if err != nil {
		log.Printf("[API] Failed to list unmatched photos for user %d: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}

	out := make([]unmatchedResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, unmatchedResponse{
			ID:         p.ID,
			FileID:     p.FileID,
			FileName:   p.FileName,
			TakenAt:    p.TakenAt,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			VenueGuess: p.VenueGuess,
			CityGuess:  p.CityGuess,
			Status:     p.Status,
			ConcertID:  p.ConcertID,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type linkRequest struct {
	ConcertID int64 `json:"concert_id"`
}

// LinkUnmatchedHandler attaches a reviewed photo to a concert and makes
// it a regular catalog photo.
func (app *App) LinkUnmatchedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConcertID <= 0 {
		respondError(w, http.StatusBadRequest, "concert_id is required")
		return
	}

	photo, err := app.Unmatched.GetByID(id)
	if err != nil {
		respondNotFoundOrError(w, err, "photo not found")
		return
	}
	if _, err := app.Concerts.GetByID(req.ConcertID); err != nil {
		respondNotFoundOrError(w, err, "concert not found")
		return
	}

	if err := app.Photos.Create(&models.Photo{
		UserID:    photo.UserID,
		FileID:    photo.FileID,
		FileName:  photo.FileName,
		ConcertID: &req.ConcertID,
		TakenAt:   photo.TakenAt,
		Latitude:  photo.Latitude,
		Longitude: photo.Longitude,
	}); err != nil {
		log.Printf("[API] Failed to link photo %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to link photo")
		return
	}

	if err := app.Unmatched.Link(id, req.ConcertID); err != nil {
		respondNotFoundOrError(w, err, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": models.ReviewLinked, "concert_id": req.ConcertID})
}

func (app *App) SkipUnmatchedHandler(w http.ResponseWriter, r *http.Request) {
	app.transitionHandler(w, r, app.Unmatched.Skip, models.ReviewSkipped)
}

func (app *App) UnskipUnmatchedHandler(w http.ResponseWriter, r *http.Request) {
	app.transitionHandler(w, r, app.Unmatched.Unskip, models.ReviewPending)
}

func (app *App) transitionHandler(w http.ResponseWriter, r *http.Request, transition func(int64) error, target models.ReviewStatus) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := transition(id); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("[API] Failed to update photo %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to update photo")
			return
		}
		// Zero rows either means no such photo or a transition from the
		// wrong state; tell them apart for the client.
		if _, lookupErr := app.Unmatched.GetByID(id); lookupErr != nil {
			respondNotFoundOrError(w, lookupErr, "photo not found")
			return
		}
		respondError(w, http.StatusConflict, "photo is not in the required status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]models.ReviewStatus{"status": target})
}

func queryUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func respondNotFoundOrError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, message)
		return
	}
	log.Printf("[API] %s: %v", message, err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
