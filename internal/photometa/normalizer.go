// Package photometa extracts a canonical (takenAt, latitude, longitude)
// triple per photo from two possibly-conflicting sources, preferring the
// sidecar metadata file over anything embedded in the image.
package photometa

import "time"

type NormalizedPhoto struct {
	FileID    string
	FileName  string
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
}

func (p *NormalizedPhoto) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Normalize merges sidecar, embedded, and filesystem metadata for one
// photo. Timestamp precedence: sidecar capture time, then embedded
// capture time, then file creation time. GPS precedence: sidecar
// primary/secondary geo fields, then embedded location. The second
// return is false when no timestamp could be resolved at all; such a
// photo is skipped by grouping and never revisited.
func Normalize(fileID, fileName string, fileCreated time.Time, sidecar *Sidecar, embedded *Embedded) (*NormalizedPhoto, bool) {
	photo := &NormalizedPhoto{
		FileID:   fileID,
		FileName: fileName,
	}

	if t := sidecar.TakenAt(); t != nil {
		photo.TakenAt = t
	} else if embedded != nil && embedded.TakenAt != nil {
		photo.TakenAt = embedded.TakenAt
	} else if !fileCreated.IsZero() {
		t := fileCreated
		photo.TakenAt = &t
	}

	if lat, lon := sidecar.Location(); lat != nil {
		photo.Latitude = lat
		photo.Longitude = lon
	} else if embedded != nil && embedded.Latitude != nil && embedded.Longitude != nil {
		photo.Latitude = embedded.Latitude
		photo.Longitude = embedded.Longitude
	}

	if photo.TakenAt == nil {
		return photo, false
	}
	return photo, true
}
