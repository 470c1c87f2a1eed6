package geom

// Point is a canvas coordinate expressed as a fraction of the drawable
// surface. Keeping geometry in the unit square means every participant can
// rescale the same stroke onto their own canvas size and land on the same
// relative position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize converts a device-pixel coordinate inside a w×h drawable rect to
// the unit square. Coordinates outside the rect clamp to the nearest edge, so
// a stored point is never outside [0,1].
func Normalize(px, py, w, h float64) Point {
	if w <= 0 || h <= 0 {
		return Point{}
	}
	return Point{X: clamp01(px / w), Y: clamp01(py / h)}
}

// Scale maps the point back onto a w×h surface.
func (p Point) Scale(w, h float64) (float64, float64) {
	return p.X * w, p.Y * h
}

// Valid reports whether the point is inside the unit square. Producers clamp,
// so anything outside came from a misbehaving peer and gets dropped.
func (p Point) Valid() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
