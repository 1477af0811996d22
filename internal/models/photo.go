package models

import "time"

type Photo struct {
	ID        int64
	UserID    int64
	FileID    string
	FileName  string
	ConcertID *int64
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
}

type ReviewStatus string

const (
	ReviewPending ReviewStatus = "pending"
	ReviewSkipped ReviewStatus = "skipped"
	ReviewLinked  ReviewStatus = "linked"
)

// UnmatchedPhoto is a photo whose group could not be confidently
// resolved to a concert. It carries the best-effort guesses made during
// resolution so a reviewer has something to start from.
type UnmatchedPhoto struct {
	ID         int64
	UserID     int64
	FileID     string
	FileName   string
	TakenAt    *time.Time
	Latitude   *float64
	Longitude  *float64
	VenueGuess string
	CityGuess  string
	Status     ReviewStatus
	ConcertID  *int64
	CreatedAt  time.Time
	ReviewedAt *time.Time
}

// ProcessedFile records that a file has been through a scan. A file is
// marked exactly once; repeated scans never revisit it.
type ProcessedFile struct {
	ID          int64
	UserID      int64
	FileID      string
	ProcessedAt time.Time
}

// VenueCache is a persisted venue lookup result keyed by near-duplicate
// name/location, consulted before any external geospatial query.
type VenueCache struct {
	ID        int64
	Name      string
	AltName   string
	City      string
	Latitude  float64
	Longitude float64
	Tag       string
	CreatedAt time.Time
}
