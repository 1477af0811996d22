// Package geoutil provides great-circle distance math shared by
// grouping, venue detection, and concert matching.
package geoutil

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine
// formula.
const earthRadiusMeters = 6371000.0

const metersPerMile = 1609.344

// DistanceMeters returns the great-circle distance between two
// coordinate pairs in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DistanceMiles is DistanceMeters converted for external services whose
// thresholds are expressed in miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceMeters(lat1, lon1, lat2, lon2) / metersPerMile
}
