package utils

// PointInPolygon runs the even-odd ray casting test. lats and lngs hold the
// ordered vertices and must have equal length; the ring is closed implicitly.
// Points exactly on an edge resolve by the half-open comparison below, which
// is deterministic for identical inputs.
func PointInPolygon(lat, lng float64, lats, lngs []float64) bool {
	n := len(lats)
	if n < 3 || len(lngs) != n {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := lats[i], lngs[i]
		yj, xj := lats[j], lngs[j]

		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// InBounds reports whether the point lies inside the closed box.
func InBounds(lat, lng, minLat, minLng, maxLat, maxLng float64) bool {
	return lat >= minLat && lat <= maxLat && lng >= minLng && lng <= maxLng
}
