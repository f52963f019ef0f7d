package scan

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Position marks where a sample sits within its sweep. The Buncher relies on
// it to segment the stream into per-sweep runs.
type Position int

const (
	First Position = iota
	Middle
	Last
)

func (p Position) String() string {
	switch p {
	case First:
		return "first"
	case Middle:
		return "middle"
	case Last:
		return "last"
	}
	return "unknown"
}

// Buncher consolidates consecutive in-bounds points into one centroid per
// physical object. Consecutive angular samples striking one edge produce
// several near-duplicate points; the eps gap check and position-based resets
// segment the stream into per-object runs, and the precision-count floor
// keeps single-sample noise from being reported as a detection.
//
// A Buncher is stateful and single-stream: it must see each sweep's points in
// strict index order (one First, zero or more Middle, at most one Last) and
// must not be shared across goroutines or sensors.
type Buncher struct {
	params   Params
	buffer   []Point
	prev     Point
	havePrev bool
}

// NewBuncher creates a Buncher with an empty buffer and no last-processed
// point.
func NewBuncher(params Params) *Buncher {
	return &Buncher{params: params}
}

// Bunch consumes one converted point and reports a cluster centroid when a
// cluster boundary is detected. A nil result means either that the Buncher is
// still accumulating or that a flushed run had fewer than BunchPrecisionCount
// points and was discarded; callers cannot distinguish the two.
//
// The last-processed point is updated on every call, and the buffer is
// cleared whenever a flush decision is made, whether or not it emits.
func (b *Buncher) Bunch(p Point, pos Position) *Point {
	// Out-of-bounds points end the current run without joining it.
	if !InProjectionArea(NormalizePoint(b.params, p)) {
		b.setPrev(p)
		if len(b.buffer) > 0 {
			return b.flush()
		}
		return nil
	}

	switch pos {
	case First:
		// A new sweep discards any unfinished run from the previous one.
		b.buffer = b.buffer[:0]
		b.buffer = append(b.buffer, p)
		b.setPrev(p)
		return nil

	case Middle:
		var out *Point
		if len(b.buffer) > 0 && b.havePrev && b.exceedsEps(p) {
			// This point starts a new physical object; flush the run that
			// ended at the previous point. The triggering point is appended
			// after the flush, so it seeds the next run alone.
			out = b.flush()
		}
		b.buffer = append(b.buffer, p)
		b.setPrev(p)
		return out

	case Last:
		// The final point closes the run but is not part of it.
		b.setPrev(p)
		if len(b.buffer) > 0 {
			return b.flush()
		}
		return nil
	}

	b.setPrev(p)
	return nil
}

// exceedsEps reports whether the per-axis distance from the last-processed
// point exceeds the configured eps on either axis.
func (b *Buncher) exceedsEps(p Point) bool {
	return math.Abs(p.X-b.prev.X) > b.params.BunchEps ||
		math.Abs(p.Y-b.prev.Y) > b.params.BunchEps
}

func (b *Buncher) setPrev(p Point) {
	b.prev = p
	b.havePrev = true
}

// flush clears the buffer and applies the precision rule: the arithmetic
// centroid is returned when enough points accumulated, otherwise the run is
// discarded silently.
func (b *Buncher) flush() *Point {
	points := b.buffer
	b.buffer = b.buffer[:0]

	if len(points) < b.params.BunchPrecisionCount {
		return nil
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return &Point{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
	}
}
