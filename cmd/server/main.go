package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"gigfolio/internal/api"
	"gigfolio/internal/database"
	"gigfolio/internal/eventdb"
	"gigfolio/internal/filesource"
	"gigfolio/internal/geocode"
	"gigfolio/internal/matcher"
	"gigfolio/internal/overpass"
	"gigfolio/internal/pipeline"
	"gigfolio/internal/venues"
	"gigfolio/internal/weather"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./gigfolio.db"
	}

	photoDir := os.Getenv("PHOTO_DIR")
	if photoDir == "" {
		photoDir = "./photos"
	}

	eventDBKey := os.Getenv("EVENTDB_API_KEY")
	if eventDBKey == "" {
		log.Fatal("EVENTDB_API_KEY is required")
	}

	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	source, err := filesource.NewLocal(photoDir)
	if err != nil {
		log.Fatal("Failed to initialize photo source:", err)
	}

	artistRepo := database.NewArtistRepository(db)
	venueRepo := database.NewVenueRepository(db)
	concertRepo := database.NewConcertRepository(db)
	setlistRepo := database.NewSetlistRepository(db)
	photoRepo := database.NewPhotoRepository(db)
	unmatchedRepo := database.NewUnmatchedRepository(db)
	processedRepo := database.NewProcessedRepository(db)
	venueCacheRepo := database.NewVenueCacheRepository(db)

	overpassClient := overpass.NewClient()
	if baseURL := os.Getenv("OVERPASS_URL"); baseURL != "" {
		overpassClient.SetBaseURL(baseURL)
	}

	eventClient := eventdb.NewClient(eventDBKey)
	if intervalStr := os.Getenv("EVENTDB_MIN_INTERVAL_MS"); intervalStr != "" {
		interval, err := strconv.Atoi(intervalStr)
		if err != nil {
			log.Fatal("Invalid EVENTDB_MIN_INTERVAL_MS:", err)
		}
		eventClient = eventdb.NewClientWithInterval(eventDBKey, time.Duration(interval)*time.Millisecond)
	}

	resolver := venues.NewResolver(overpassClient, eventClient, venueCacheRepo, venues.DefaultConfig())

	concertMatcher := matcher.NewMatcher(
		concertRepo,
		venueRepo,
		artistRepo,
		setlistRepo,
		photoRepo,
		eventClient,
		geocode.NewClient(),
		weather.NewClient(),
		matcher.DefaultConfig(),
	)

	scanner := pipeline.NewScanner(
		source,
		resolver,
		concertMatcher,
		processedRepo,
		photoRepo,
		unmatchedRepo,
		pipeline.NewTracker(),
	)

	app := &api.App{
		Scanner:   scanner,
		Concerts:  concertRepo,
		Artists:   artistRepo,
		Venues:    venueRepo,
		Photos:    photoRepo,
		Unmatched: unmatchedRepo,
		Setlists:  setlistRepo,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("Photo directory: %s", photoDir)
	log.Printf("Database path: %s", dbPath)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}
