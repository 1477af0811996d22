package geoutil

import (
	"math"
	"testing"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	if d := DistanceMeters(47.0998, -119.9973, 47.0998, -119.9973); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// Madison Square Garden to Radio City Music Hall, roughly 1.0 km.
	d := DistanceMeters(40.7505, -73.9934, 40.7600, -73.9799)
	if d < 900 || d > 1700 {
		t.Errorf("MSG to Radio City = %f m, want roughly 1-1.6 km", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	d1 := DistanceMeters(40.7505, -73.9934, 47.0998, -119.9973)
	d2 := DistanceMeters(47.0998, -119.9973, 40.7505, -73.9934)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceMiles(t *testing.T) {
	meters := DistanceMeters(40.7505, -73.9934, 47.0998, -119.9973)
	miles := DistanceMiles(40.7505, -73.9934, 47.0998, -119.9973)
	if math.Abs(miles*1609.344-meters) > 1 {
		t.Errorf("mile conversion off: %f mi vs %f m", miles, meters)
	}
}
