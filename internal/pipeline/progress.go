package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrScanInFlight is returned when a scan is started for a user who
// already has one running. Overlapping scans would corrupt each other's
// counters, so the second one is rejected, not queued.
var ErrScanInFlight = errors.New("scan already in flight for user")

type ScanStatus string

const (
	StatusRunning  ScanStatus = "running"
	StatusComplete ScanStatus = "complete"
	StatusFailed   ScanStatus = "failed"
)

type Progress struct {
	ScanID    string     `json:"scan_id"`
	UserID    int64      `json:"user_id"`
	Status    ScanStatus `json:"status"`
	Total     int        `json:"total"`
	Done      int        `json:"done"`
	StartedAt time.Time  `json:"started_at"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// Tracker holds per-user scan progress for polling. One scan per user at
// a time.
type Tracker struct {
	mu    sync.RWMutex
	scans map[int64]*Progress
}

func NewTracker() *Tracker {
	return &Tracker{scans: make(map[int64]*Progress)}
}

func (t *Tracker) start(userID int64) (*Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.scans[userID]; ok && p.Status == StatusRunning {
		return nil, ErrScanInFlight
	}

	p := &Progress{
		ScanID:    uuid.New().String(),
		UserID:    userID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	t.scans[userID] = p
	return p, nil
}

func (t *Tracker) setTotal(userID int64, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.scans[userID]; ok {
		p.Total = total
	}
}

func (t *Tracker) step(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.scans[userID]; ok {
		p.Done++
	}
}

func (t *Tracker) finish(userID int64, status ScanStatus, summary *Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.scans[userID]; ok {
		p.Status = status
		p.Summary = summary
	}
}

// Get returns a copy of the user's most recent scan progress.
func (t *Tracker) Get(userID int64) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.scans[userID]
	if !ok {
		return Progress{}, false
	}
	return *p, true
}
