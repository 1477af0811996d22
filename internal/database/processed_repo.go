package database

import (
	"fmt"
	"time"
)

type ProcessedRepository struct {
	db *DB
}

func NewProcessedRepository(db *DB) *ProcessedRepository {
	return &ProcessedRepository{db: db}
}

func (r *ProcessedRepository) IsProcessed(userID int64, fileID string) (bool, error) {
	var count int
	err := r.db.conn.QueryRow(
		`SELECT COUNT(*) FROM processed_files WHERE user_id = ? AND file_id = ?`,
		userID, fileID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check processed file: %w", err)
	}
	return count > 0, nil
}

// Mark records a file as processed. Marking twice is a no-op.
func (r *ProcessedRepository) Mark(userID int64, fileID string) error {
	_, err := r.db.conn.Exec(
		`INSERT OR IGNORE INTO processed_files (user_id, file_id, processed_at) VALUES (?, ?, ?)`,
		userID, fileID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark file processed: %w", err)
	}
	return nil
}
