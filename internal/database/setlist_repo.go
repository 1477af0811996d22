package database

import (
	"database/sql"
	"fmt"

	"gigfolio/internal/models"
)

type SetlistRepository struct {
	db *DB
}

func NewSetlistRepository(db *DB) *SetlistRepository {
	return &SetlistRepository{db: db}
}

func (r *SetlistRepository) FindOrCreateSong(artistID int64, title string) (*models.Song, error) {
	row := r.db.conn.QueryRow(
		`SELECT id, artist_id, title FROM songs WHERE artist_id = ? AND title = ? COLLATE NOCASE`,
		artistID, title)
	song, err := scanSong(row)
	if err == nil {
		return song, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	res, err := r.db.conn.Exec(
		`INSERT INTO songs (artist_id, title) VALUES (?, ?)`, artistID, title)
	if err != nil {
		if isUniqueViolation(err) {
			row := r.db.conn.QueryRow(
				`SELECT id, artist_id, title FROM songs WHERE artist_id = ? AND title = ? COLLATE NOCASE`,
				artistID, title)
			return scanSong(row)
		}
		return nil, fmt.Errorf("failed to insert song: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get song id: %w", err)
	}
	return &models.Song{ID: id, ArtistID: artistID, Title: title}, nil
}

func (r *SetlistRepository) AddEntry(concertID, songID int64, position int) error {
	_, err := r.db.conn.Exec(
		`INSERT INTO setlist_entries (concert_id, song_id, position) VALUES (?, ?, ?)`,
		concertID, songID, position)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to insert setlist entry: %w", err)
	}
	return nil
}

func (r *SetlistRepository) HasEntries(concertID int64) (bool, error) {
	var count int
	err := r.db.conn.QueryRow(
		`SELECT COUNT(*) FROM setlist_entries WHERE concert_id = ?`, concertID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count setlist entries: %w", err)
	}
	return count > 0, nil
}

func (r *SetlistRepository) ListTitles(concertID int64) ([]string, error) {
	rows, err := r.db.conn.Query(
		`SELECT s.title FROM setlist_entries e
		 JOIN songs s ON s.id = e.song_id
		 WHERE e.concert_id = ? ORDER BY e.position`, concertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list setlist: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan song title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func scanSong(row *sql.Row) (*models.Song, error) {
	var s models.Song
	if err := row.Scan(&s.ID, &s.ArtistID, &s.Title); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return &s, nil
}
