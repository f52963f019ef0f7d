package sweep

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aperture-works/touchfield/internal/monitoring"
	"github.com/aperture-works/touchfield/internal/scan"
)

// Builder assembles per-sample readings into ordered sweeps and tags each
// reading with its position. The clusterer downstream depends on seeing
// exactly one First, the Middles in index order, and the Last of each sweep,
// so the Builder enforces that ordering here and drops anything that breaks
// it rather than letting a scrambled sweep corrupt the bunch state.
//
// A Builder handles one sensor stream and is not safe for concurrent use.
type Builder struct {
	onReading  func(TaggedReading)
	onComplete func(sweepID string, samples int)

	sweepID   string
	nextIndex int
	total     int

	resets atomic.Int64
}

// BuilderConfig configures a Builder. OnReading is invoked once per accepted
// reading; OnComplete once per finished sweep. Either may be nil.
type BuilderConfig struct {
	OnReading  func(TaggedReading)
	OnComplete func(sweepID string, samples int)
}

// NewBuilder creates a Builder with no sweep in progress.
func NewBuilder(config BuilderConfig) *Builder {
	return &Builder{
		onReading:  config.OnReading,
		onComplete: config.OnComplete,
	}
}

// Resets returns how many in-progress sweeps were abandoned because of a
// malformed sample sequence.
func (b *Builder) Resets() int64 {
	return b.resets.Load()
}

// Add feeds one reading to the builder. Readings must arrive with index
// counting up from 0 to Total-1 and a stable Total; a violation abandons the
// in-progress sweep and returns an error. A reading with index 0 always
// starts a new sweep, abandoning any unfinished one silently, which matches
// how the clusterer treats a First point.
func (b *Builder) Add(r Reading) error {
	if r.Total < 2 {
		b.reset("sweep total %d below minimum of 2", r.Total)
		return fmt.Errorf("sweep total must be >= 2, got %d", r.Total)
	}

	if r.Index == 0 {
		b.sweepID = uuid.NewString()
		b.nextIndex = 0
		b.total = r.Total
	} else {
		if b.sweepID == "" {
			return fmt.Errorf("sample index %d arrived with no sweep in progress", r.Index)
		}
		if r.Total != b.total {
			b.reset("sweep total changed mid-sweep: %d -> %d", b.total, r.Total)
			return fmt.Errorf("sweep total changed mid-sweep: had %d, got %d", b.total, r.Total)
		}
		if r.Index != b.nextIndex {
			b.reset("sample index out of order: want %d, got %d", b.nextIndex, r.Index)
			return fmt.Errorf("sample index out of order: want %d, got %d", b.nextIndex, r.Index)
		}
	}

	pos := scan.Middle
	switch r.Index {
	case 0:
		pos = scan.First
	case r.Total - 1:
		pos = scan.Last
	}

	if b.onReading != nil {
		b.onReading(TaggedReading{Reading: r, SweepID: b.sweepID, Position: pos})
	}

	b.nextIndex = r.Index + 1

	if pos == scan.Last {
		if b.onComplete != nil {
			b.onComplete(b.sweepID, b.total)
		}
		b.sweepID = ""
		b.nextIndex = 0
		b.total = 0
	}

	return nil
}

// AddLine parses and feeds one raw stream line. Unparseable lines count as a
// reset of nothing; they are logged and reported but leave any in-progress
// sweep alone, since line noise on the wire does not imply the sweep order
// broke.
func (b *Builder) AddLine(line string) error {
	r, err := ParseReading(line)
	if err != nil {
		return err
	}
	return b.Add(r)
}

func (b *Builder) reset(format string, v ...interface{}) {
	if b.sweepID != "" {
		monitoring.Logf("sweep %s abandoned: "+format, append([]interface{}{b.sweepID}, v...)...)
	} else {
		monitoring.Logf("sweep reset: "+format, v...)
	}
	b.sweepID = ""
	b.nextIndex = 0
	b.total = 0
	b.resets.Add(1)
}
