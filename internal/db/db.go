package db

import (
	"database/sql"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// DB is the detection store: a sqlite database holding every centroid the
// pipeline emitted. The schema is managed by migrations; see MigrateUp.
type DB struct {
	*sql.DB
}

// OpenDB opens (creating if necessary) the detection store at path.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// One writer keeps sqlite's file locking out of the picture; the daemon
	// records detections from a single goroutine anyway.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{sqlDB}, nil
}

// Detection is one emitted object centroid, in both global meters and
// normalized projection coordinates.
type Detection struct {
	ID          int64     `json:"id"`
	SweepID     string    `json:"sweep_id"`
	X           float64   `json:"x_m"`
	Y           float64   `json:"y_m"`
	NormX       float64   `json:"norm_x"`
	NormY       float64   `json:"norm_y"`
	TSUnixNanos int64     `json:"ts_unix_nanos"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecordDetection inserts one detection and returns its row ID.
func (db *DB) RecordDetection(d Detection) (int64, error) {
	if d.TSUnixNanos == 0 {
		if d.Timestamp.IsZero() {
			d.Timestamp = time.Now()
		}
		d.TSUnixNanos = d.Timestamp.UnixNano()
	}

	res, err := db.Exec(
		`INSERT INTO detections (sweep_id, x_m, y_m, norm_x, norm_y, ts_unix_nanos)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.SweepID, d.X, d.Y, d.NormX, d.NormY, d.TSUnixNanos,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record detection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read detection row id: %w", err)
	}
	return id, nil
}

// Detections returns detections at or after since, newest first, capped at
// limit. A zero since returns from the beginning; limit <= 0 applies a
// default cap.
func (db *DB) Detections(since time.Time, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := db.Query(
		`SELECT id, sweep_id, x_m, y_m, norm_x, norm_y, ts_unix_nanos
		 FROM detections
		 WHERE ts_unix_nanos >= ?
		 ORDER BY ts_unix_nanos DESC
		 LIMIT ?`,
		since.UnixNano(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.SweepID, &d.X, &d.Y, &d.NormX, &d.NormY, &d.TSUnixNanos); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		d.Timestamp = time.Unix(0, d.TSUnixNanos)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DetectionStats summarises the store contents.
type DetectionStats struct {
	Count int       `json:"count"`
	MeanX float64   `json:"mean_x_m"`
	MeanY float64   `json:"mean_y_m"`
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// Stats computes summary statistics over every stored detection.
func (db *DB) Stats() (DetectionStats, error) {
	rows, err := db.Query(`SELECT x_m, y_m, ts_unix_nanos FROM detections`)
	if err != nil {
		return DetectionStats{}, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var xs, ys []float64
	var firstNanos, lastNanos int64
	for rows.Next() {
		var x, y float64
		var ts int64
		if err := rows.Scan(&x, &y, &ts); err != nil {
			return DetectionStats{}, fmt.Errorf("failed to scan detection: %w", err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
		if firstNanos == 0 || ts < firstNanos {
			firstNanos = ts
		}
		if ts > lastNanos {
			lastNanos = ts
		}
	}
	if err := rows.Err(); err != nil {
		return DetectionStats{}, err
	}

	stats := DetectionStats{Count: len(xs)}
	if len(xs) > 0 {
		stats.MeanX = stat.Mean(xs, nil)
		stats.MeanY = stat.Mean(ys, nil)
		stats.First = time.Unix(0, firstNanos)
		stats.Last = time.Unix(0, lastNanos)
	}
	return stats, nil
}
