package database

import (
	"testing"

	"gigfolio/internal/models"
)

func TestVenueCacheFindOrCreate_DedupsNearbyEntries(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVenueCacheRepository(db)

	first, err := repo.FindOrCreate(&models.VenueCache{
		Name: "Gorge Amphitheatre", Latitude: 47.0998, Longitude: -119.9973, Tag: "theatre",
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	// Same name about 30 m away resolves to the existing entry.
	second, err := repo.FindOrCreate(&models.VenueCache{
		Name: "Gorge Amphitheatre", Latitude: 47.1001, Longitude: -119.9973, Tag: "theatre",
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("near-duplicate created entry %d, want existing %d", second.ID, first.ID)
	}

	// Same name far away is a different venue.
	third, err := repo.FindOrCreate(&models.VenueCache{
		Name: "Gorge Amphitheatre", Latitude: 40.7505, Longitude: -73.9934, Tag: "theatre",
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if third.ID == first.ID {
		t.Error("distant same-name venue must not dedup")
	}
}

func TestVenueCacheFindOrCreate_MatchesOnAltName(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVenueCacheRepository(db)

	first, err := repo.FindOrCreate(&models.VenueCache{
		Name: "Gorge Amphitheatre", AltName: "The Gorge",
		Latitude: 47.0998, Longitude: -119.9973,
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	second, err := repo.FindOrCreate(&models.VenueCache{
		Name: "The Gorge", Latitude: 47.0998, Longitude: -119.9973,
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("alt-name duplicate created entry %d, want existing %d", second.ID, first.ID)
	}
}

func TestVenueCacheFindNearby(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewVenueCacheRepository(db)

	if _, err := repo.FindOrCreate(&models.VenueCache{
		Name: "Gorge Amphitheatre", Latitude: 47.0998, Longitude: -119.9973,
	}); err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}

	hit, err := repo.FindNearby(47.1000, -119.9973, 600)
	if err != nil {
		t.Fatalf("FindNearby failed: %v", err)
	}
	if hit == nil || hit.Name != "Gorge Amphitheatre" {
		t.Errorf("hit = %+v, want cached venue", hit)
	}

	miss, err := repo.FindNearby(47.2, -119.9973, 600)
	if err != nil {
		t.Fatalf("FindNearby failed: %v", err)
	}
	if miss != nil {
		t.Errorf("miss = %+v, want nil outside radius", miss)
	}
}
