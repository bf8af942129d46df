// Package detstore persists per-frame fusion results to SQLite so runs can
// be compared and replayed offline. The core stays pure; this store sits
// behind it at the application boundary.
package detstore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/fusion.report/internal/fusion"
)

//go:embed migrations
var migrationsRoot embed.FS

// DB wraps the SQLite handle holding fusion runs.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the store at path and applies pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db := &DB{DB: sqlDB}

	migrations, err := fs.Sub(migrationsRoot, "migrations")
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(migrations); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// BeginRun records a new fusion run and returns its id.
func (db *DB) BeginRun(sequence, note string) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO fusion_run (run_id, sequence, note, started_unix_nanos)
		 VALUES (?, ?, ?, strftime('%s','now') * 1000000000)`,
		runID, sequence, note)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// DetectionRecord is one persisted detection row. Box3D fields are NULL for
// detections without a reconstructed box; ClusterIndices round-trips as a
// JSON array to keep the schema flat.
type DetectionRecord struct {
	RunID       string
	Frame       int
	Kind        string // "vehicle" or "obstacle"
	Class       string
	Box2D       [4]float64 // xmin, ymin, xmax, ymax
	Box3D       *fusion.Box3D
	ClusterSize int
	Far         bool
	DistanceFar float64
	ClusterJSON string
}

// InsertFrame stores every detection of a processed frame under runID.
func (db *DB) InsertFrame(runID string, frame int, vehicles []fusion.VehicleDetection, obstacles []fusion.ObstacleDetection) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO fusion_detection (
			run_id, frame, kind, class,
			xmin, ymin, xmax, ymax,
			pos_x, pos_y, pos_z, length, width, height, heading,
			cluster_size, cluster_indices, far, distance_far)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	insert := func(kind, class string, box [4]float64, b3 *fusion.Box3D, indices []int, far bool, distanceFar float64) error {
		indicesJSON, err := json.Marshal(indices)
		if err != nil {
			return err
		}
		var posX, posY, posZ, length, width, height, heading sql.NullFloat64
		if b3 != nil {
			posX = sql.NullFloat64{Float64: b3.X, Valid: true}
			posY = sql.NullFloat64{Float64: b3.Y, Valid: true}
			posZ = sql.NullFloat64{Float64: b3.Z, Valid: true}
			length = sql.NullFloat64{Float64: b3.Length, Valid: true}
			width = sql.NullFloat64{Float64: b3.Width, Valid: true}
			height = sql.NullFloat64{Float64: b3.Height, Valid: true}
			heading = sql.NullFloat64{Float64: b3.Heading, Valid: true}
		}
		_, err = stmt.Exec(
			runID, frame, kind, class,
			box[0], box[1], box[2], box[3],
			posX, posY, posZ, length, width, height, heading,
			len(indices), string(indicesJSON), far, distanceFar)
		return err
	}

	for _, d := range vehicles {
		box := [4]float64{d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax}
		if err := insert("vehicle", d.Box.Class, box, d.Box3D, d.ClusterIndices, d.Far, d.DistanceFar); err != nil {
			return err
		}
	}
	for _, d := range obstacles {
		box := [4]float64{d.Box.XMin, d.Box.YMin, d.Box.XMax, d.Box.YMax}
		if err := insert("obstacle", d.Box.Class, box, nil, d.ClusterIndices, d.Far, d.DistanceFar); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListFrame returns the stored detections of one frame, vehicles first,
// each kind in insertion order.
func (db *DB) ListFrame(runID string, frame int) ([]DetectionRecord, error) {
	rows, err := db.Query(
		`SELECT kind, class, xmin, ymin, xmax, ymax,
			pos_x, pos_y, pos_z, length, width, height, heading,
			cluster_size, cluster_indices, far, distance_far
		 FROM fusion_detection
		 WHERE run_id = ? AND frame = ?
		 ORDER BY kind DESC, detection_id ASC`,
		runID, frame)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DetectionRecord
	for rows.Next() {
		var rec DetectionRecord
		var posX, posY, posZ, length, width, height, heading sql.NullFloat64
		if err := rows.Scan(
			&rec.Kind, &rec.Class,
			&rec.Box2D[0], &rec.Box2D[1], &rec.Box2D[2], &rec.Box2D[3],
			&posX, &posY, &posZ, &length, &width, &height, &heading,
			&rec.ClusterSize, &rec.ClusterJSON, &rec.Far, &rec.DistanceFar); err != nil {
			return nil, err
		}
		rec.RunID = runID
		rec.Frame = frame
		if posX.Valid {
			rec.Box3D = &fusion.Box3D{
				X: posX.Float64, Y: posY.Float64, Z: posZ.Float64,
				Length: length.Float64, Width: width.Float64, Height: height.Float64,
				Heading: heading.Float64,
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClusterIndices decodes the persisted index array.
func (r *DetectionRecord) ClusterIndices() ([]int, error) {
	var indices []int
	if err := json.Unmarshal([]byte(r.ClusterJSON), &indices); err != nil {
		return nil, err
	}
	return indices, nil
}
