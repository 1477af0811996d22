package photometa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Sidecar is the JSON metadata file exported alongside a photo
// (Takeout-style layout). Its capture timestamp takes precedence over
// anything embedded in the image itself.
type Sidecar struct {
	PhotoTakenTime *UnixTimestamp `json:"photoTakenTime"`
	CreationTime   *UnixTimestamp `json:"creationTime"`
	GeoData        *GeoData       `json:"geoData"`
	GeoDataExif    *GeoData       `json:"geoDataExif"`
}

type UnixTimestamp struct {
	Timestamp string `json:"timestamp"`
}

type GeoData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func ParseSidecar(data []byte) (*Sidecar, error) {
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar: %w", err)
	}
	return &sc, nil
}

// TakenAt returns the sidecar capture time, or nil if absent.
func (sc *Sidecar) TakenAt() *time.Time {
	if sc == nil || sc.PhotoTakenTime == nil {
		return nil
	}
	secs, err := strconv.ParseInt(sc.PhotoTakenTime.Timestamp, 10, 64)
	if err != nil || secs <= 0 {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}

// Location returns coordinates from the primary geo field, falling back
// to the secondary one. (0,0) means "not set" in exported sidecars.
func (sc *Sidecar) Location() (*float64, *float64) {
	if sc == nil {
		return nil, nil
	}
	for _, geo := range []*GeoData{sc.GeoData, sc.GeoDataExif} {
		if geo == nil || (geo.Latitude == 0 && geo.Longitude == 0) {
			continue
		}
		lat, lon := geo.Latitude, geo.Longitude
		return &lat, &lon
	}
	return nil, nil
}
