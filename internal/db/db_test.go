package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open database")
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.MigrateUp(), "apply migrations")
	return database
}

func TestRecordAndListDetections(t *testing.T) {
	database := openTestDB(t)

	now := time.Now()
	first := Detection{
		SweepID:   "sweep-a",
		X:         0.5,
		Y:         -0.25,
		NormX:     0.25,
		NormY:     -0.1667,
		Timestamp: now.Add(-time.Minute),
	}
	second := Detection{
		SweepID:   "sweep-b",
		X:         -1.0,
		Y:         0.75,
		NormX:     -0.5,
		NormY:     0.5,
		Timestamp: now,
	}

	_, err := database.RecordDetection(first)
	require.NoError(t, err)
	id, err := database.RecordDetection(second)
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := database.Detections(time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	require.Equal(t, "sweep-b", got[0].SweepID)
	require.Equal(t, "sweep-a", got[1].SweepID)
	require.InDelta(t, -1.0, got[0].X, 1e-12)
	require.InDelta(t, 0.75, got[0].Y, 1e-12)
	require.Equal(t, now.UnixNano(), got[0].TSUnixNanos)
}

func TestDetections_SinceAndLimit(t *testing.T) {
	database := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		_, err := database.RecordDetection(Detection{
			SweepID:   "sweep",
			X:         float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	// Only the last 4 rows are at or after base+6m.
	got, err := database.Detections(base.Add(6*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, got, 4)

	got, err = database.Detections(time.Time{}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, 9.0, got[0].X, "limit keeps the newest rows")
}

func TestDetections_Empty(t *testing.T) {
	database := openTestDB(t)

	got, err := database.Detections(time.Time{}, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStats(t *testing.T) {
	database := openTestDB(t)

	empty, err := database.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, empty.Count)

	times := []time.Time{
		time.Now().Add(-2 * time.Minute),
		time.Now().Add(-time.Minute),
		time.Now(),
	}
	xs := []float64{1, 2, 3}
	ys := []float64{-1, 0, 1}
	for i := range xs {
		_, err := database.RecordDetection(Detection{
			SweepID: "sweep", X: xs[i], Y: ys[i], Timestamp: times[i],
		})
		require.NoError(t, err)
	}

	stats, err := database.Stats()
	require.NoError(t, err)
	require.Equal(t, 3, stats.Count)
	require.InDelta(t, 2.0, stats.MeanX, 1e-12)
	require.InDelta(t, 0.0, stats.MeanY, 1e-12)
	require.Equal(t, times[0].UnixNano(), stats.First.UnixNano())
	require.Equal(t, times[2].UnixNano(), stats.Last.UnixNano())
}

func TestMigrateVersionAndDown(t *testing.T) {
	database := openTestDB(t)

	version, dirty, err := database.MigrateVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	require.NoError(t, database.MigrateDown())

	// The detections table is gone after rollback.
	_, err = database.Detections(time.Time{}, 0)
	require.Error(t, err)
}
