package photometa

import (
	"io"
	"math"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Embedded holds capture metadata read from the image file itself.
type Embedded struct {
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
}

// ReadEmbedded extracts the EXIF capture time and GPS position. A file
// without usable EXIF yields an empty Embedded, never an error; missing
// metadata is an expected state, not a failure.
func ReadEmbedded(r io.Reader) *Embedded {
	var emb Embedded

	x, err := exif.Decode(r)
	if err != nil {
		return &emb
	}

	if t, err := x.DateTime(); err == nil {
		emb.TakenAt = &t
	}

	if lat, lon, err := x.LatLong(); err == nil {
		if !math.IsNaN(lat) && !math.IsNaN(lon) && !(lat == 0 && lon == 0) {
			emb.Latitude = &lat
			emb.Longitude = &lon
		}
	}

	return &emb
}
