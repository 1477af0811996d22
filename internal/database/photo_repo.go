package database

import (
	"fmt"
	"time"

	"gigfolio/internal/geoutil"
	"gigfolio/internal/models"
)

type PhotoRepository struct {
	db *DB
}

func NewPhotoRepository(db *DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

const photoColumns = `id, user_id, file_id, file_name, concert_id, taken_at, latitude, longitude, created_at`

// Create inserts a photo record. Re-inserting the same (user, file) is
// treated as already-stored.
func (r *PhotoRepository) Create(p *models.Photo) error {
	res, err := r.db.conn.Exec(
		`INSERT INTO photos (user_id, file_id, file_name, concert_id, taken_at, latitude, longitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.FileID, p.FileName, p.ConcertID, p.TakenAt, p.Latitude, p.Longitude, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get photo id: %w", err)
	}
	p.ID = id
	return nil
}

func (r *PhotoRepository) CountByConcert(concertID int64) (int, error) {
	var count int
	err := r.db.conn.QueryRow(
		`SELECT COUNT(*) FROM photos WHERE concert_id = ?`, concertID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}

// ListMatchedBetween returns the user's photos already linked to a
// concert with a timestamp inside [from, to].
func (r *PhotoRepository) ListMatchedBetween(userID int64, from, to time.Time) ([]models.Photo, error) {
	rows, err := r.db.conn.Query(
		`SELECT `+photoColumns+` FROM photos
		 WHERE user_id = ? AND concert_id IS NOT NULL AND taken_at BETWEEN ? AND ?`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list matched photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		err := rows.Scan(&p.ID, &p.UserID, &p.FileID, &p.FileName, &p.ConcertID,
			&p.TakenAt, &p.Latitude, &p.Longitude, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// FindMatchedNear returns the concert id of any already-matched photo
// within radiusMeters of the point in the given time range, or nil.
func (r *PhotoRepository) FindMatchedNear(userID int64, lat, lon, radiusMeters float64, from, to time.Time) (*int64, error) {
	photos, err := r.ListMatchedBetween(userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, p := range photos {
		if p.Latitude == nil || p.Longitude == nil || p.ConcertID == nil {
			continue
		}
		if geoutil.DistanceMeters(lat, lon, *p.Latitude, *p.Longitude) <= radiusMeters {
			return p.ConcertID, nil
		}
	}
	return nil, nil
}
