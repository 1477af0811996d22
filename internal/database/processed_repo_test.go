package database

import "testing"

func TestProcessedMarkIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewProcessedRepository(db)

	done, err := repo.IsProcessed(1, "a.jpg")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if done {
		t.Error("fresh file reported processed")
	}

	if err := repo.Mark(1, "a.jpg"); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if err := repo.Mark(1, "a.jpg"); err != nil {
		t.Fatalf("repeated Mark failed: %v", err)
	}

	done, err = repo.IsProcessed(1, "a.jpg")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !done {
		t.Error("marked file not reported processed")
	}

	// Another user's library is independent.
	done, err = repo.IsProcessed(2, "a.jpg")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if done {
		t.Error("mark leaked across users")
	}
}
