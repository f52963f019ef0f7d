package scan

import (
	"math"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if !p.Normalize {
		t.Error("expected Normalize enabled by default")
	}
	if !p.Bunch {
		t.Error("expected Bunch enabled by default")
	}
	if p.BunchEps != DefaultBunchEps {
		t.Errorf("expected BunchEps=%g, got %g", DefaultBunchEps, p.BunchEps)
	}
	if p.BunchPrecisionCount != DefaultBunchPrecisionCount {
		t.Errorf("expected BunchPrecisionCount=%d, got %d", DefaultBunchPrecisionCount, p.BunchPrecisionCount)
	}
}

func TestParamsValidate(t *testing.T) {
	valid := testParams()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero width", func(p *Params) { p.AreaWidth = 0 }},
		{"negative height", func(p *Params) { p.AreaHeight = -1 }},
		{"zero eps", func(p *Params) { p.BunchEps = 0 }},
		{"zero precision", func(p *Params) { p.BunchPrecisionCount = 0 }},
	}
	for _, tc := range cases {
		p := testParams()
		tc.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestConverter_PureOperationsCarryNoState(t *testing.T) {
	c := NewConverter(testParams())

	before := c.Convert(1500, 2, 10)
	// Interleave stateful bunching; conversion and normalization must be
	// unaffected.
	c.Bunch(Point{0.5, 0.5}, First)
	c.Bunch(Point{0.5, 0.5}, Middle)

	after := c.Convert(1500, 2, 10)
	if before != after {
		t.Errorf("Convert affected by bunch state: %+v vs %+v", before, after)
	}

	n1 := c.Normalize(before)
	n2 := c.Normalize(after)
	if n1 != n2 {
		t.Errorf("Normalize affected by bunch state: %+v vs %+v", n1, n2)
	}
}

func TestConverter_SweepEndToEnd(t *testing.T) {
	// A sensor at the bottom-left corner of a 4m x 3m surface watching a
	// synthetic sweep: a tight run of returns from one object in the middle
	// of the surface, surrounded by returns beyond the far edge.
	params := DefaultParams()
	params.Placement = BottomLeft
	params.OffsetX = -2.0
	params.OffsetY = -1.5
	params.AreaWidth = 4.0
	params.AreaHeight = 3.0
	c := NewConverter(params)

	// 101 samples over the 90° field of view: 0.9° per step, so consecutive
	// returns from an object at ~2.6m are ~0.04m apart, under the 0.05m eps.
	total := 101
	distances := make([]float64, total)
	for i := range distances {
		distances[i] = 9000 // far beyond the surface
	}
	// Five consecutive mid-sweep samples return ~2.6m: one object near the
	// surface center as seen from the corner.
	object := []int{48, 49, 50, 51, 52}
	for _, i := range object {
		distances[i] = 2600
	}

	var centroids []Point
	for i, d := range distances {
		pos := Middle
		switch i {
		case 0:
			pos = First
		case total - 1:
			pos = Last
		}

		p := c.Convert(d, i, total)
		if out := c.Bunch(p, pos); out != nil {
			centroids = append(centroids, *out)
		}
	}

	if len(centroids) != 1 {
		t.Fatalf("expected one object centroid, got %d", len(centroids))
	}

	// The centroid must sit inside the projection area.
	np := c.Normalize(centroids[0])
	if !c.InProjectionArea(np) {
		t.Errorf("centroid %+v normalizes outside the area: %+v", centroids[0], np)
	}

	// And equal to the mean of the converted object returns.
	var wantX, wantY float64
	for _, i := range object {
		p := c.Convert(distances[i], i, total)
		wantX += p.X
		wantY += p.Y
	}
	wantX /= float64(len(object))
	wantY /= float64(len(object))
	if math.Abs(centroids[0].X-wantX) > coordTolerance || math.Abs(centroids[0].Y-wantY) > coordTolerance {
		t.Errorf("centroid = %+v, want (%g, %g)", centroids[0], wantX, wantY)
	}
}
