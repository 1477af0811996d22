package database

import (
	"database/sql"
	"fmt"
	"time"

	"gigfolio/internal/models"
)

type ConcertRepository struct {
	db *DB
}

func NewConcertRepository(db *DB) *ConcertRepository {
	return &ConcertRepository{db: db}
}

const concertColumns = `id, user_id, artist_id, venue_id, concert_date, weather, external_event_id, created_at`

func (r *ConcertRepository) GetByID(id int64) (*models.Concert, error) {
	row := r.db.conn.QueryRow(`SELECT `+concertColumns+` FROM concerts WHERE id = ?`, id)
	return scanConcert(row)
}

// FindByUserVenueWindow looks for a concert at the venue whose date falls
// within tolerance of center. The window absorbs post-midnight timestamps
// and cross-timezone ambiguity.
func (r *ConcertRepository) FindByUserVenueWindow(userID, venueID int64, center time.Time, tolerance time.Duration) (*models.Concert, error) {
	row := r.db.conn.QueryRow(
		`SELECT `+concertColumns+` FROM concerts
		 WHERE user_id = ? AND venue_id = ? AND concert_date BETWEEN ? AND ?
		 ORDER BY concert_date LIMIT 1`,
		userID, venueID, center.Add(-tolerance).UTC(), center.Add(tolerance).UTC())
	return scanConcert(row)
}

func (r *ConcertRepository) ListByUserBetween(userID int64, from, to time.Time) ([]models.Concert, error) {
	rows, err := r.db.conn.Query(
		`SELECT `+concertColumns+` FROM concerts
		 WHERE user_id = ? AND concert_date BETWEEN ? AND ? ORDER BY concert_date`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list concerts: %w", err)
	}
	defer rows.Close()

	var concerts []models.Concert
	for rows.Next() {
		var c models.Concert
		err := rows.Scan(&c.ID, &c.UserID, &c.ArtistID, &c.VenueID, &c.ConcertDate,
			&c.Weather, &c.ExternalEventID, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan concert: %w", err)
		}
		concerts = append(concerts, c)
	}
	return concerts, rows.Err()
}

// Create inserts a concert, normalizing the date to the fixed
// time-of-day. A concurrent duplicate for the same (user, venue, date)
// resolves to the existing row instead of failing.
func (r *ConcertRepository) Create(c *models.Concert) (*models.Concert, bool, error) {
	c.ConcertDate = models.NoonUTC(c.ConcertDate)

	res, err := r.db.conn.Exec(
		`INSERT INTO concerts (user_id, artist_id, venue_id, concert_date, weather, external_event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.ArtistID, c.VenueID, c.ConcertDate, c.Weather, c.ExternalEventID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := r.findByUniqueKey(c.UserID, c.VenueID, c.ConcertDate)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert concert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get concert id: %w", err)
	}
	created, err := r.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *ConcertRepository) findByUniqueKey(userID, venueID int64, date time.Time) (*models.Concert, error) {
	row := r.db.conn.QueryRow(
		`SELECT `+concertColumns+` FROM concerts WHERE user_id = ? AND venue_id = ? AND concert_date = ?`,
		userID, venueID, date)
	return scanConcert(row)
}

func scanConcert(row *sql.Row) (*models.Concert, error) {
	var c models.Concert
	err := row.Scan(&c.ID, &c.UserID, &c.ArtistID, &c.VenueID, &c.ConcertDate,
		&c.Weather, &c.ExternalEventID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan concert: %w", err)
	}
	return &c, nil
}
