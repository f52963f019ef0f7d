package scan

// NormalizedPoint is a point scaled by the projection half-extents. Points
// that lie on the projection surface land in [-1, 1] on both axes.
type NormalizedPoint struct {
	X float64
	Y float64
}

// NormalizePoint maps a global-frame point into projection-area-relative
// coordinates by dividing each axis by half the configured area extent.
func NormalizePoint(params Params, p Point) NormalizedPoint {
	return NormalizedPoint{
		X: p.X / (params.AreaWidth / 2),
		Y: p.Y / (params.AreaHeight / 2),
	}
}

// InProjectionArea reports whether a normalized point lies on the projection
// surface. Bounds are inclusive.
func InProjectionArea(np NormalizedPoint) bool {
	return np.X >= -1 && np.X <= 1 && np.Y >= -1 && np.Y <= 1
}
