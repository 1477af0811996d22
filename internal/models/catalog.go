package models

import "time"

type Artist struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type Venue struct {
	ID        int64
	Name      string
	AltName   string
	City      string
	State     string
	Country   string
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
}

// Concert is unique per (UserID, VenueID, ConcertDate); every matching
// path resolves to that triple before writing. ConcertDate is stored at
// a fixed time-of-day (noon UTC) so timezone drift never shifts the
// calendar date.
type Concert struct {
	ID              int64
	UserID          int64
	ArtistID        int64
	VenueID         int64
	ConcertDate     time.Time
	Weather         string
	ExternalEventID string
	CreatedAt       time.Time
}

type Song struct {
	ID       int64
	ArtistID int64
	Title    string
}

type SetlistEntry struct {
	ID        int64
	ConcertID int64
	SongID    int64
	Position  int
}

// NoonUTC pins a date to the fixed concert time-of-day.
func NoonUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}
