package database

import (
	"database/sql"
	"fmt"
	"time"

	"gigfolio/internal/geoutil"
	"gigfolio/internal/models"
)

type VenueRepository struct {
	db *DB
}

func NewVenueRepository(db *DB) *VenueRepository {
	return &VenueRepository{db: db}
}

const venueColumns = `id, name, alt_name, city, state, country, latitude, longitude, created_at`

func (r *VenueRepository) GetByID(id int64) (*models.Venue, error) {
	row := r.db.conn.QueryRow(`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	return scanVenue(row)
}

func (r *VenueRepository) FindByNameCity(name, city string) (*models.Venue, error) {
	row := r.db.conn.QueryRow(
		`SELECT `+venueColumns+` FROM venues WHERE name = ? COLLATE NOCASE AND city = ? COLLATE NOCASE`,
		name, city)
	return scanVenue(row)
}

// FindNearby returns venues with coordinates within radiusMeters of the
// given point, closest first. The catalog is small enough to filter with
// haversine in process.
func (r *VenueRepository) FindNearby(lat, lon, radiusMeters float64) ([]models.Venue, error) {
	rows, err := r.db.conn.Query(
		`SELECT ` + venueColumns + ` FROM venues WHERE latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var nearby []models.Venue
	for rows.Next() {
		v, err := scanVenueRows(rows)
		if err != nil {
			return nil, err
		}
		if geoutil.DistanceMeters(lat, lon, *v.Latitude, *v.Longitude) <= radiusMeters {
			nearby = append(nearby, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortVenuesByDistance(nearby, lat, lon)
	return nearby, nil
}

func (r *VenueRepository) FindOrCreate(venue *models.Venue) (*models.Venue, error) {
	if existing, err := r.FindByNameCity(venue.Name, venue.City); err == nil {
		return existing, nil
	}

	res, err := r.db.conn.Exec(
		`INSERT INTO venues (name, alt_name, city, state, country, latitude, longitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		venue.Name, venue.AltName, venue.City, venue.State, venue.Country,
		venue.Latitude, venue.Longitude, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return r.FindByNameCity(venue.Name, venue.City)
		}
		return nil, fmt.Errorf("failed to insert venue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get venue id: %w", err)
	}
	return r.GetByID(id)
}

func sortVenuesByDistance(venues []models.Venue, lat, lon float64) {
	for i := 0; i < len(venues)-1; i++ {
		for j := i + 1; j < len(venues); j++ {
			di := geoutil.DistanceMeters(lat, lon, *venues[i].Latitude, *venues[i].Longitude)
			dj := geoutil.DistanceMeters(lat, lon, *venues[j].Latitude, *venues[j].Longitude)
			if dj < di {
				venues[i], venues[j] = venues[j], venues[i]
			}
		}
	}
}

func scanVenue(row *sql.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(&v.ID, &v.Name, &v.AltName, &v.City, &v.State, &v.Country,
		&v.Latitude, &v.Longitude, &v.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan venue: %w", err)
	}
	return &v, nil
}

func scanVenueRows(rows *sql.Rows) (*models.Venue, error) {
	var v models.Venue
	err := rows.Scan(&v.ID, &v.Name, &v.AltName, &v.City, &v.State, &v.Country,
		&v.Latitude, &v.Longitude, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan venue: %w", err)
	}
	return &v, nil
}
