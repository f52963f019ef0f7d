package scan

// Converter composes sample conversion, normalization and bunching for one
// sensor stream under a single immutable parameter set. Convert, Normalize
// and InProjectionArea are pure; only Bunch carries state across calls.
//
// One Converter owns one bunching state and must not be invoked concurrently.
// A system driving multiple sensors needs one Converter per stream.
type Converter struct {
	params  Params
	buncher *Buncher
}

// NewConverter creates a Converter for the given parameters. Params should be
// validated before construction; see Params.Validate.
func NewConverter(params Params) *Converter {
	return &Converter{
		params:  params,
		buncher: NewBuncher(params),
	}
}

// Params returns the converter's immutable parameter set.
func (c *Converter) Params() Params {
	return c.params
}

// Convert turns a raw millimeter range sample into a global-frame point.
func (c *Converter) Convert(distanceMM float64, index, total int) Point {
	return ConvertSample(c.params, distanceMM, index, total)
}

// Normalize maps a global-frame point into [-1, 1] projection coordinates.
func (c *Converter) Normalize(p Point) NormalizedPoint {
	return NormalizePoint(c.params, p)
}

// InProjectionArea reports whether a normalized point is on the surface.
func (c *Converter) InProjectionArea(np NormalizedPoint) bool {
	return InProjectionArea(np)
}

// Bunch feeds one point to the stream clusterer. See Buncher.Bunch for the
// contract.
func (c *Converter) Bunch(p Point, pos Position) *Point {
	return c.buncher.Bunch(p, pos)
}
