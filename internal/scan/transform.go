package scan

import (
	"fmt"
	"math"
)

// Placement identifies the corner of the projection area the sensor is
// mounted at. Each placement carries a fixed rotation that aligns the
// sensor's local axes with the global projection frame.
type Placement int

const (
	BottomLeft Placement = iota
	BottomRight
	TopRight
	TopLeft
)

// placementTags maps tuning-file tags to placements.
var placementTags = map[string]Placement{
	"bottom-left":  BottomLeft,
	"bottom-right": BottomRight,
	"top-right":    TopRight,
	"top-left":     TopLeft,
}

// ParsePlacement converts a tuning-file tag such as "bottom-left" into a
// Placement.
func ParsePlacement(tag string) (Placement, error) {
	p, ok := placementTags[tag]
	if !ok {
		return 0, fmt.Errorf("unknown sensor placement %q", tag)
	}
	return p, nil
}

func (p Placement) String() string {
	switch p {
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	case TopRight:
		return "top-right"
	case TopLeft:
		return "top-left"
	}
	return fmt.Sprintf("placement(%d)", int(p))
}

// RotationDegrees returns the fixed mount rotation for the placement.
func (p Placement) RotationDegrees() float64 {
	switch p {
	case BottomRight:
		return 90
	case TopRight:
		return 180
	case TopLeft:
		return 270
	}
	return 0
}

// FieldOfViewDegrees is the sensor's fixed angular span, mapped linearly
// across the samples of one sweep.
const FieldOfViewDegrees = 90.0

// Point is a position on the projection surface in meters, global frame.
type Point struct {
	X float64
	Y float64
}

// ConvertSample converts one angular-distance sample into a global-frame
// point. distanceMM is the raw range in millimeters; index and total locate
// the sample within its sweep. The sample angle is index/(total-1) of the
// field of view, so total must be >= 2 (not validated here; the config layer
// rejects sweeps that small before they reach this code).
//
// The conversion is: mm -> m, polar -> local Cartesian, placement rotation,
// then the configured sensor offset.
func ConvertSample(params Params, distanceMM float64, index, total int) Point {
	distanceM := distanceMM / 1000.0
	angleRad := float64(index) / float64(total-1) * FieldOfViewDegrees * math.Pi / 180.0

	localX := distanceM * math.Cos(angleRad)
	localY := distanceM * math.Sin(angleRad)

	thetaRad := params.Placement.RotationDegrees() * math.Pi / 180.0
	cosTheta := math.Cos(thetaRad)
	sinTheta := math.Sin(thetaRad)

	x := cosTheta*localX - sinTheta*localY
	y := sinTheta*localX + cosTheta*localY

	return Point{
		X: x + params.OffsetX,
		Y: y + params.OffsetY,
	}
}
