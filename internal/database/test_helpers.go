package database

import "testing"

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	db, err := NewDB(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return db, func() {
		db.Close()
	}
}
