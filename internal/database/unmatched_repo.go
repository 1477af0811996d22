package database

import (
	"database/sql"
	"fmt"
	"time"

	"gigfolio/internal/models"
)

type UnmatchedRepository struct {
	db *DB
}

func NewUnmatchedRepository(db *DB) *UnmatchedRepository {
	return &UnmatchedRepository{db: db}
}

const unmatchedColumns = `id, user_id, file_id, file_name, taken_at, latitude, longitude,
	venue_guess, city_guess, status, concert_id, created_at, reviewed_at`

func (r *UnmatchedRepository) Create(u *models.UnmatchedPhoto) error {
	if u.Status == "" {
		u.Status = models.ReviewPending
	}

	res, err := r.db.conn.Exec(
		`INSERT INTO unmatched_photos (user_id, file_id, file_name, taken_at, latitude, longitude,
		 venue_guess, city_guess, status, concert_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.FileID, u.FileName, u.TakenAt, u.Latitude, u.Longitude,
		u.VenueGuess, u.CityGuess, u.Status, u.ConcertID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to insert unmatched photo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get unmatched photo id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UnmatchedRepository) GetByID(id int64) (*models.UnmatchedPhoto, error) {
	row := r.db.conn.QueryRow(`SELECT `+unmatchedColumns+` FROM unmatched_photos WHERE id = ?`, id)
	return scanUnmatched(row)
}

func (r *UnmatchedRepository) ListByStatus(userID int64, status models.ReviewStatus) ([]models.UnmatchedPhoto, error) {
	rows, err := r.db.conn.Query(
		`SELECT `+unmatchedColumns+` FROM unmatched_photos
		 WHERE user_id = ? AND status = ? ORDER BY created_at`, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched photos: %w", err)
	}
	defer rows.Close()

	var photos []models.UnmatchedPhoto
	for rows.Next() {
		var u models.UnmatchedPhoto
		err := rows.Scan(&u.ID, &u.UserID, &u.FileID, &u.FileName, &u.TakenAt,
			&u.Latitude, &u.Longitude, &u.VenueGuess, &u.CityGuess, &u.Status,
			&u.ConcertID, &u.CreatedAt, &u.ReviewedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unmatched photo: %w", err)
		}
		photos = append(photos, u)
	}
	return photos, rows.Err()
}

// Link marks the photo linked to a concert.
func (r *UnmatchedRepository) Link(id, concertID int64) error {
	return r.update(id,
		`UPDATE unmatched_photos SET status = ?, concert_id = ?, reviewed_at = ? WHERE id = ?`,
		models.ReviewLinked, concertID, time.Now().UTC(), id)
}

// Skip rejects a pending photo.
func (r *UnmatchedRepository) Skip(id int64) error {
	return r.update(id,
		`UPDATE unmatched_photos SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		models.ReviewSkipped, time.Now().UTC(), id, models.ReviewPending)
}

// Unskip returns a skipped photo to the review queue.
func (r *UnmatchedRepository) Unskip(id int64) error {
	return r.update(id,
		`UPDATE unmatched_photos SET status = ?, reviewed_at = NULL WHERE id = ? AND status = ?`,
		models.ReviewPending, id, models.ReviewSkipped)
}

func (r *UnmatchedRepository) update(id int64, query string, args ...interface{}) error {
	res, err := r.db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update unmatched photo %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of unmatched photo %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUnmatched(row *sql.Row) (*models.UnmatchedPhoto, error) {
	var u models.UnmatchedPhoto
	err := row.Scan(&u.ID, &u.UserID, &u.FileID, &u.FileName, &u.TakenAt,
		&u.Latitude, &u.Longitude, &u.VenueGuess, &u.CityGuess, &u.Status,
		&u.ConcertID, &u.CreatedAt, &u.ReviewedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan unmatched photo: %w", err)
	}
	return &u, nil
}
