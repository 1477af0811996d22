package database

import (
	"fmt"
	"strings"
	"time"

	"gigfolio/internal/geoutil"
	"gigfolio/internal/models"
)

// venueCacheDedupMeters is the neighborhood within which two cache
// entries with the same name are considered the same physical place.
const venueCacheDedupMeters = 100.0

type VenueCacheRepository struct {
	db *DB
}

func NewVenueCacheRepository(db *DB) *VenueCacheRepository {
	return &VenueCacheRepository{db: db}
}

const venueCacheColumns = `id, name, alt_name, city, latitude, longitude, tag, created_at`

// FindNearby returns the closest cached venue within radiusMeters of the
// point, or nil when the cache has nothing close enough.
func (r *VenueCacheRepository) FindNearby(lat, lon, radiusMeters float64) (*models.VenueCache, error) {
	entries, err := r.listAll()
	if err != nil {
		return nil, err
	}

	var closest *models.VenueCache
	var closestDist float64
	for i := range entries {
		d := geoutil.DistanceMeters(lat, lon, entries[i].Latitude, entries[i].Longitude)
		if d > radiusMeters {
			continue
		}
		if closest == nil || d < closestDist {
			closest = &entries[i]
			closestDist = d
		}
	}
	return closest, nil
}

// FindOrCreate persists a venue lookup result, deduplicating by
// name/alt-name equality within the same ~100 m neighborhood.
func (r *VenueCacheRepository) FindOrCreate(entry *models.VenueCache) (*models.VenueCache, error) {
	entries, err := r.listAll()
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if geoutil.DistanceMeters(entry.Latitude, entry.Longitude, entries[i].Latitude, entries[i].Longitude) > venueCacheDedupMeters {
			continue
		}
		if sameVenueName(entry, &entries[i]) {
			return &entries[i], nil
		}
	}

	res, err := r.db.conn.Exec(
		`INSERT INTO venue_cache (name, alt_name, city, latitude, longitude, tag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.AltName, entry.City, entry.Latitude, entry.Longitude, entry.Tag, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert venue cache entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get venue cache id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

func sameVenueName(a, b *models.VenueCache) bool {
	names := func(v *models.VenueCache) []string {
		ns := []string{strings.ToLower(v.Name)}
		if v.AltName != "" {
			ns = append(ns, strings.ToLower(v.AltName))
		}
		return ns
	}
	for _, na := range names(a) {
		for _, nb := range names(b) {
			if na == nb {
				return true
			}
		}
	}
	return false
}

func (r *VenueCacheRepository) listAll() ([]models.VenueCache, error) {
	rows, err := r.db.conn.Query(`SELECT ` + venueCacheColumns + ` FROM venue_cache`)
	if err != nil {
		return nil, fmt.Errorf("failed to query venue cache: %w", err)
	}
	defer rows.Close()

	var entries []models.VenueCache
	for rows.Next() {
		var e models.VenueCache
		err := rows.Scan(&e.ID, &e.Name, &e.AltName, &e.City, &e.Latitude, &e.Longitude, &e.Tag, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
