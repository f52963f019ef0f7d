package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aperture-works/touchfield/internal/scan"
)

// Reading is one raw angular-distance sample as it arrives from the sensor
// stream, before any geometric interpretation.
type Reading struct {
	DistanceMM float64
	Index      int
	Total      int
}

// TaggedReading is a Reading placed within its sweep: the assigned sweep ID
// and the position tag the clusterer consumes.
type TaggedReading struct {
	Reading
	SweepID  string
	Position scan.Position
}

// ParseReading parses one line of the sensor stream. The line format is
// "D,<index>,<total>,<distance_mm>", one sample per line.
func ParseReading(line string) (Reading, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 4 || fields[0] != "D" {
		return Reading{}, fmt.Errorf("malformed sample line %q", line)
	}

	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return Reading{}, fmt.Errorf("bad sample index %q: %w", fields[1], err)
	}
	total, err := strconv.Atoi(fields[2])
	if err != nil {
		return Reading{}, fmt.Errorf("bad sample total %q: %w", fields[2], err)
	}
	distance, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("bad sample distance %q: %w", fields[3], err)
	}

	return Reading{DistanceMM: distance, Index: index, Total: total}, nil
}
