// Package grouping partitions normalized photos into spatiotemporal
// clusters, each representing one physical event. A group is the unit of
// external-API amortization: venue detection and concert search run at
// most once per group.
package grouping

import (
	"fmt"
	"sort"
	"time"

	"gigfolio/internal/photometa"
)

// MidnightShiftHours is the local hour below which a photo is assumed to
// belong to a show that started the evening before.
const MidnightShiftHours = 4

// NoGPSKey is the location sentinel for photos without coordinates.
const NoGPSKey = "no-gps"

type EventGroup struct {
	DateKey     string
	LocationKey string
	Photos      []photometa.NormalizedPhoto
}

// Latitude returns the representative latitude of the group (first photo
// with coordinates). Valid only when HasLocation.
func (g *EventGroup) Latitude() float64 {
	for _, p := range g.Photos {
		if p.HasLocation() {
			return *p.Latitude
		}
	}
	return 0
}

func (g *EventGroup) Longitude() float64 {
	for _, p := range g.Photos {
		if p.HasLocation() {
			return *p.Longitude
		}
	}
	return 0
}

func (g *EventGroup) HasLocation() bool {
	return g.LocationKey != NoGPSKey
}

// Date returns the group's midnight-adjusted date at midnight UTC.
func (g *EventGroup) Date() time.Time {
	t, _ := time.Parse("2006-01-02", g.DateKey)
	return t
}

// DateKey computes the midnight-adjusted date key: photos taken in the
// small hours are filed under the previous calendar day.
func DateKey(takenAt time.Time) string {
	if takenAt.Hour() < MidnightShiftHours {
		takenAt = takenAt.AddDate(0, 0, -1)
	}
	return takenAt.Format("2006-01-02")
}

// LocationKey rounds coordinates to 3 decimal places, roughly 100 m.
// Photos without GPS get a per-file sentinel so unrelated photos are
// never silently merged.
func LocationKey(photo *photometa.NormalizedPhoto) string {
	if !photo.HasLocation() {
		return NoGPSKey
	}
	return fmt.Sprintf("%.3f,%.3f", *photo.Latitude, *photo.Longitude)
}

// Group buckets photos by dateKey|locationKey in a single pass. Photos
// without a timestamp are excluded from the result; the caller marks them
// processed separately. The returned groups are ordered by key so output
// does not depend on input order.
func Group(photos []photometa.NormalizedPhoto) []EventGroup {
	groups := make(map[string]*EventGroup)

	for _, photo := range photos {
		if photo.TakenAt == nil {
			continue
		}

		dateKey := DateKey(*photo.TakenAt)
		locKey := LocationKey(&photo)

		key := dateKey + "|" + locKey
		if locKey == NoGPSKey {
			key = dateKey + "|" + NoGPSKey + "|" + photo.FileID
		}

		g, ok := groups[key]
		if !ok {
			g = &EventGroup{DateKey: dateKey, LocationKey: locKey}
			groups[key] = g
		}
		g.Photos = append(g.Photos, photo)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]EventGroup, 0, len(groups))
	for _, k := range keys {
		g := groups[k]
		sort.Slice(g.Photos, func(i, j int) bool {
			return g.Photos[i].FileID < g.Photos[j].FileID
		})
		result = append(result, *g)
	}
	return result
}
