package database

import (
	"database/sql"
	"fmt"
	"time"

	"gigfolio/internal/models"
)

type ArtistRepository struct {
	db *DB
}

func NewArtistRepository(db *DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

func (r *ArtistRepository) GetByID(id int64) (*models.Artist, error) {
	row := r.db.conn.QueryRow(`SELECT id, name, created_at FROM artists WHERE id = ?`, id)
	return scanArtist(row)
}

func (r *ArtistRepository) GetByName(name string) (*models.Artist, error) {
	row := r.db.conn.QueryRow(
		`SELECT id, name, created_at FROM artists WHERE name = ? COLLATE NOCASE`, name)
	return scanArtist(row)
}

func (r *ArtistRepository) ListAll() ([]models.Artist, error) {
	rows, err := r.db.conn.Query(`SELECT id, name, created_at FROM artists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func (r *ArtistRepository) FindOrCreate(name string) (*models.Artist, error) {
	if existing, err := r.GetByName(name); err == nil {
		return existing, nil
	}

	res, err := r.db.conn.Exec(
		`INSERT INTO artists (name, created_at) VALUES (?, ?)`, name, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return r.GetByName(name)
		}
		return nil, fmt.Errorf("failed to insert artist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get artist id: %w", err)
	}
	return r.GetByID(id)
}

func scanArtist(row *sql.Row) (*models.Artist, error) {
	var a models.Artist
	if err := row.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}
	return &a, nil
}
