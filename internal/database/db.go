package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

type Config struct {
	Path string
}

func NewDB(config Config) (*DB, error) {
	if config.Path == "" {
		config.Path = "./gigfolio.db"
	}

	conn, err := sql.Open("sqlite3", config.Path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS artists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS venues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		alt_name TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		latitude REAL,
		longitude REAL,
		created_at DATETIME NOT NULL,
		UNIQUE(name, city)
	);

	CREATE TABLE IF NOT EXISTS concerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		artist_id INTEGER NOT NULL REFERENCES artists(id),
		venue_id INTEGER NOT NULL REFERENCES venues(id),
		concert_date DATETIME NOT NULL,
		weather TEXT NOT NULL DEFAULT '',
		external_event_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE(user_id, venue_id, concert_date)
	);

	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		artist_id INTEGER NOT NULL REFERENCES artists(id),
		title TEXT NOT NULL,
		UNIQUE(artist_id, title)
	);

	CREATE TABLE IF NOT EXISTS setlist_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		concert_id INTEGER NOT NULL REFERENCES concerts(id),
		song_id INTEGER NOT NULL REFERENCES songs(id),
		position INTEGER NOT NULL,
		UNIQUE(concert_id, position)
	);

	CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		file_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		concert_id INTEGER REFERENCES concerts(id),
		taken_at DATETIME,
		latitude REAL,
		longitude REAL,
		created_at DATETIME NOT NULL,
		UNIQUE(user_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS unmatched_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		file_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		taken_at DATETIME,
		latitude REAL,
		longitude REAL,
		venue_guess TEXT NOT NULL DEFAULT '',
		city_guess TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		concert_id INTEGER REFERENCES concerts(id),
		created_at DATETIME NOT NULL,
		reviewed_at DATETIME,
		UNIQUE(user_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS processed_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		file_id TEXT NOT NULL,
		processed_at DATETIME NOT NULL,
		UNIQUE(user_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS venue_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		alt_name TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		tag TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
