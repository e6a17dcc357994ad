package utils

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	if d := Haversine(32.7767, -96.7970, 32.7767, -96.7970); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}

	// Dallas to Fort Worth is roughly 48km
	d := Haversine(32.7767, -96.7970, 32.7555, -97.3308)
	if d < 45000 || d > 52000 {
		t.Errorf("expected ~50km, got %f", d)
	}

	miles := HaversineMiles(32.7767, -96.7970, 32.7555, -97.3308)
	if math.Abs(miles-d/MetersPerMile) > 1e-9 {
		t.Errorf("miles mismatch: %f vs %f", miles, d/MetersPerMile)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-5, 50}, {49.9, 50}, {75, 75}, {100, 100}, {130, 100},
	}
	for _, c := range cases {
		if got := Clamp(c.in, 50, 100); got != c.want {
			t.Errorf("Clamp(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(3.14159, 2); got != 3.14 {
		t.Errorf("expected 3.14, got %v", got)
	}
}

func TestValidLatLng(t *testing.T) {
	if !ValidLatLng(-90, 180) {
		t.Error("expected boundary values to be valid")
	}
	if ValidLatLng(91, 0) || ValidLatLng(0, -181) || ValidLatLng(math.NaN(), 0) {
		t.Error("expected out of range values to be invalid")
	}
}

func TestPointInPolygon(t *testing.T) {
	// unit square
	lats := []float64{0, 0, 1, 1}
	lngs := []float64{0, 1, 1, 0}

	if !PointInPolygon(0.5, 0.5, lats, lngs) {
		t.Error("expected center to be inside")
	}
	if PointInPolygon(1.5, 0.5, lats, lngs) {
		t.Error("expected point above to be outside")
	}
	if PointInPolygon(0.5, 0.5, lats[:2], lngs[:2]) {
		t.Error("expected degenerate polygon to contain nothing")
	}

	// concave "L" shape: the notch at (1.5, 1.5) is outside
	lLats := []float64{0, 0, 1, 1, 2, 2}
	lLngs := []float64{0, 2, 2, 1, 1, 0}
	if PointInPolygon(1.5, 1.5, lLats, lLngs) {
		t.Error("expected notch to be outside")
	}
	if !PointInPolygon(1.5, 0.5, lLats, lLngs) {
		t.Error("expected arm to be inside")
	}
}

func TestPointInPolygon_EdgeIsStable(t *testing.T) {
	lats := []float64{0, 0, 1, 1}
	lngs := []float64{0, 1, 1, 0}

	first := PointInPolygon(0, 0.5, lats, lngs)
	for i := 0; i < 10; i++ {
		if got := PointInPolygon(0, 0.5, lats, lngs); got != first {
			t.Fatalf("edge result changed on iteration %d", i)
		}
	}
}
