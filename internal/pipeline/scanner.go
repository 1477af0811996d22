// Package pipeline orchestrates a scan: normalize metadata for every
// unprocessed file, group photos into events, then resolve each group's
// venue and concert once and apply the result to all of its photos.
// External-call volume is proportional to the number of events, not the
// number of photos.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"gigfolio/internal/filesource"
	"gigfolio/internal/grouping"
	"gigfolio/internal/matcher"
	"gigfolio/internal/models"
	"gigfolio/internal/photometa"
	"gigfolio/internal/venues"
)

type Source interface {
	List() ([]filesource.File, error)
	Open(fileID string) (io.ReadCloser, error)
	ReadSidecar(file filesource.File) (*photometa.Sidecar, error)
}

type VenueResolver interface {
	Resolve(ctx context.Context, lat, lon float64, city string) (*venues.ResolvedVenue, error)
}

type ConcertMatcher interface {
	Match(ctx context.Context, userID int64, group *grouping.EventGroup, venue *venues.ResolvedVenue) *matcher.Result
}

type ProcessedStore interface {
	IsProcessed(userID int64, fileID string) (bool, error)
	Mark(userID int64, fileID string) error
}

type PhotoStore interface {
	Create(p *models.Photo) error
}

type UnmatchedStore interface {
	Create(u *models.UnmatchedPhoto) error
}

type Summary struct {
	Processed   int              `json:"processed"`
	Linked      int              `json:"linked"`
	Skipped     int              `json:"skipped"`
	NewConcerts int              `json:"new_concerts"`
	Unmatched   int              `json:"unmatched"`
	Concerts    []ConcertSummary `json:"concerts"`
}

type ConcertSummary struct {
	ConcertID  int64  `json:"concert_id"`
	DateKey    string `json:"date_key"`
	Venue      string `json:"venue"`
	PhotoCount int    `json:"photo_count"`
	IsNew      bool   `json:"is_new"`
}

type Scanner struct {
	source    Source
	resolver  VenueResolver
	matcher   ConcertMatcher
	processed ProcessedStore
	photos    PhotoStore
	unmatched UnmatchedStore
	tracker   *Tracker
}

func NewScanner(
	source Source,
	resolver VenueResolver,
	concertMatcher ConcertMatcher,
	processed ProcessedStore,
	photos PhotoStore,
	unmatched UnmatchedStore,
	tracker *Tracker,
) *Scanner {
	return &Scanner{
		source:    source,
		resolver:  resolver,
		matcher:   concertMatcher,
		processed: processed,
		photos:    photos,
		unmatched: unmatched,
		tracker:   tracker,
	}
}

func (s *Scanner) Tracker() *Tracker {
	return s.tracker
}

// Start launches a scan in the background and returns its id. The
// caller polls the tracker for progress. One scan per user at a time.
func (s *Scanner) Start(ctx context.Context, userID int64, limit int) (string, error) {
	progress, err := s.tracker.start(userID)
	if err != nil {
		return "", err
	}

	go func() {
		summary, err := s.run(ctx, userID, limit)
		if err != nil {
			log.Printf("[SCAN] User %d: scan failed: %v", userID, err)
			s.tracker.finish(userID, StatusFailed, summary)
			return
		}
		s.tracker.finish(userID, StatusComplete, summary)
	}()

	return progress.ScanID, nil
}

// Scan runs one batch for the user. limit 0 means no limit. Groups are
// processed sequentially: catalog writes from one group must be visible
// to the next, and the external event database is a single rate-limited
// resource.
func (s *Scanner) Scan(ctx context.Context, userID int64, limit int) (*Summary, error) {
	if _, err := s.tracker.start(userID); err != nil {
		return nil, err
	}

	summary, err := s.run(ctx, userID, limit)
	if err != nil {
		s.tracker.finish(userID, StatusFailed, summary)
		return nil, err
	}
	s.tracker.finish(userID, StatusComplete, summary)
	return summary, nil
}

func (s *Scanner) run(ctx context.Context, userID int64, limit int) (*Summary, error) {
	summary := &Summary{}

	batch, err := s.listBatch(userID, limit)
	if err != nil {
		return summary, err
	}
	s.tracker.setTotal(userID, len(batch))
	log.Printf("[SCAN] User %d: %d unprocessed files", userID, len(batch))

	// Phase 1: normalize.
	normalized := make([]photometa.NormalizedPhoto, 0, len(batch))
	for _, file := range batch {
		photo, ok := s.normalize(file)
		if !ok {
			// No resolvable timestamp: skip for good.
			if err := s.processed.Mark(userID, file.ID); err != nil {
				return summary, err
			}
			summary.Processed++
			summary.Skipped++
			s.tracker.step(userID)
			continue
		}
		normalized = append(normalized, *photo)
	}

	// Phase 2: group.
	groups := grouping.Group(normalized)
	log.Printf("[SCAN] User %d: %d photos in %d groups", userID, len(normalized), len(groups))

	// Phase 3: resolve and link, once per group.
	for i := range groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.processGroup(ctx, userID, &groups[i], summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (s *Scanner) listBatch(userID int64, limit int) ([]filesource.File, error) {
	files, err := s.source.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var batch []filesource.File
	for _, file := range files {
		done, err := s.processed.IsProcessed(userID, file.ID)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		batch = append(batch, file)
		if limit > 0 && len(batch) >= limit {
			break
		}
	}
	return batch, nil
}

func (s *Scanner) normalize(file filesource.File) (*photometa.NormalizedPhoto, bool) {
	sidecar, err := s.source.ReadSidecar(file)
	if err != nil {
		log.Printf("[SCAN] Bad sidecar for %s: %v", file.ID, err)
		sidecar = nil
	}

	var embedded *photometa.Embedded
	if r, err := s.source.Open(file.ID); err == nil {
		embedded = photometa.ReadEmbedded(r)
		r.Close()
	} else {
		log.Printf("[SCAN] Failed to open %s: %v", file.ID, err)
	}

	return photometa.Normalize(file.ID, file.Name, file.ModTime, sidecar, embedded)
}

func (s *Scanner) processGroup(ctx context.Context, userID int64, group *grouping.EventGroup, summary *Summary) error {
	var resolved *venues.ResolvedVenue
	if group.HasLocation() {
		var err error
		resolved, err = s.resolver.Resolve(ctx, group.Latitude(), group.Longitude(), "")
		if err != nil {
			return err
		}
	}

	result := s.matcher.Match(ctx, userID, group, resolved)

	for _, photo := range group.Photos {
		if result != nil {
			if err := s.linkPhoto(userID, &photo, result.ConcertID); err != nil {
				return err
			}
			summary.Linked++
		} else {
			if err := s.queueForReview(userID, &photo, resolved); err != nil {
				return err
			}
			summary.Unmatched++
		}

		if err := s.processed.Mark(userID, photo.FileID); err != nil {
			return err
		}
		summary.Processed++
		s.tracker.step(userID)
	}

	if result != nil {
		if result.IsNew {
			summary.NewConcerts++
		}
		s.recordConcert(summary, group, resolved, result)
	}
	return nil
}

func (s *Scanner) linkPhoto(userID int64, photo *photometa.NormalizedPhoto, concertID int64) error {
	return s.photos.Create(&models.Photo{
		UserID:    userID,
		FileID:    photo.FileID,
		FileName:  photo.FileName,
		ConcertID: &concertID,
		TakenAt:   photo.TakenAt,
		Latitude:  photo.Latitude,
		Longitude: photo.Longitude,
	})
}

func (s *Scanner) queueForReview(userID int64, photo *photometa.NormalizedPhoto, resolved *venues.ResolvedVenue) error {
	unmatched := &models.UnmatchedPhoto{
		UserID:    userID,
		FileID:    photo.FileID,
		FileName:  photo.FileName,
		TakenAt:   photo.TakenAt,
		Latitude:  photo.Latitude,
		Longitude: photo.Longitude,
		Status:    models.ReviewPending,
	}
	if resolved != nil {
		unmatched.VenueGuess = resolved.Name
		unmatched.CityGuess = resolved.City
	}
	return s.unmatched.Create(unmatched)
}

func (s *Scanner) recordConcert(summary *Summary, group *grouping.EventGroup, resolved *venues.ResolvedVenue, result *matcher.Result) {
	for i := range summary.Concerts {
		if summary.Concerts[i].ConcertID == result.ConcertID {
			summary.Concerts[i].PhotoCount += len(group.Photos)
			return
		}
	}

	cs := ConcertSummary{
		ConcertID:  result.ConcertID,
		DateKey:    group.DateKey,
		PhotoCount: len(group.Photos),
		IsNew:      result.IsNew,
	}
	if resolved != nil {
		cs.Venue = resolved.Name
	}
	summary.Concerts = append(summary.Concerts, cs)
}
