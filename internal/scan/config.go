package scan

import "fmt"

// Default bunching parameters. These match the values the installation has
// shipped with; override them through the tuning file.
const (
	// DefaultBunchEps is the per-axis distance (meters) between consecutive
	// in-bounds points that splits two physical objects.
	DefaultBunchEps = 0.05
	// DefaultBunchPrecisionCount is the minimum number of buffered points a
	// run needs before its centroid is reported.
	DefaultBunchPrecisionCount = 3
)

// Params configures one Converter. All fields are consumed at construction
// and immutable thereafter.
type Params struct {
	// Placement selects the fixed mount rotation.
	Placement Placement
	// OffsetX/OffsetY is the sensor position relative to the projection area
	// center, meters, added after rotation.
	OffsetX float64
	OffsetY float64
	// AreaWidth/AreaHeight is the projection area size in meters. Both must
	// be > 0; a zero extent makes normalized coordinates infinite.
	AreaWidth  float64
	AreaHeight float64
	// Normalize and Bunch tell downstream consumers whether to apply
	// normalization and clustering. They are advisory flags: the Converter
	// exposes Normalize and Bunch unconditionally.
	Normalize bool
	Bunch     bool
	// BunchEps is the per-axis cluster-break threshold in meters.
	BunchEps float64
	// BunchPrecisionCount is the minimum buffered points to emit a centroid.
	// Must be >= 1.
	BunchPrecisionCount int
}

// DefaultParams returns Params with the default flags and bunching values.
// Placement, offset and area size have no useful defaults and must be set by
// the caller.
func DefaultParams() Params {
	return Params{
		Normalize:           true,
		Bunch:               true,
		BunchEps:            DefaultBunchEps,
		BunchPrecisionCount: DefaultBunchPrecisionCount,
	}
}

// Validate checks the parameter set. The geometry preconditions are enforced
// here rather than per call; the conversion and normalization paths assume a
// valid Params.
func (p Params) Validate() error {
	if p.AreaWidth <= 0 || p.AreaHeight <= 0 {
		return fmt.Errorf("projection area size must be positive, got %gx%g", p.AreaWidth, p.AreaHeight)
	}
	if p.BunchEps <= 0 {
		return fmt.Errorf("bunch eps must be positive, got %g", p.BunchEps)
	}
	if p.BunchPrecisionCount < 1 {
		return fmt.Errorf("bunch precision count must be >= 1, got %d", p.BunchPrecisionCount)
	}
	return nil
}
