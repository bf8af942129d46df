// Command fusion runs the camera–LiDAR detection fusion pipeline over a
// KITTI raw sequence: for each frame it loads the velodyne scan and the 2-D
// detection boxes, fuses them into 3-D oriented boxes, logs a summary, and
// optionally persists the detections to a SQLite store.
//
// The point clouds are expected to have the ground plane removed upstream,
// matching the core's input contract.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/fusion.report/internal/config"
	"github.com/banshee-data/fusion.report/internal/detstore"
	"github.com/banshee-data/fusion.report/internal/fusion"
	"github.com/banshee-data/fusion.report/internal/kitti"
	"github.com/banshee-data/fusion.report/internal/monitoring"
)

var (
	baseDir      = flag.String("base-dir", "", "KITTI raw sequence directory (e.g. .../2011_09_26_drive_0005_sync)")
	camToCam     = flag.String("cam-to-cam", "", "calib_cam_to_cam.txt path (default: <base-dir>/../calib_cam_to_cam.txt)")
	veloToCam    = flag.String("velo-to-cam", "", "calib_velo_to_cam.txt path (default: <base-dir>/../calib_velo_to_cam.txt)")
	obstacleFile = flag.String("obstacles", "", "Optional foreground-obstacle detection dump (same format as BoxInfo.txt)")
	startFrame   = flag.Int("start", 0, "First frame to process")
	endFrame     = flag.Int("end", -1, "Last frame to process (inclusive; -1 runs until a scan is missing)")
	configPath   = flag.String("config", "", "Optional tuning config JSON overriding the built-in defaults")
	dbFile       = flag.String("db", "", "Optional SQLite file to persist detections into")
	note         = flag.String("note", "", "Free-form note stored with the run")
	quiet        = flag.Bool("quiet", false, "Suppress per-frame diagnostics")
)

func main() {
	flag.Parse()
	if *baseDir == "" {
		log.Fatal("missing required -base-dir")
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	params := fusion.DefaultParams()
	if *configPath != "" {
		cfg, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return err
		}
		params = cfg.FusionParams()
	}

	camPath := *camToCam
	if camPath == "" {
		camPath = filepath.Join(*baseDir, "..", "calib_cam_to_cam.txt")
	}
	veloPath := *veloToCam
	if veloPath == "" {
		veloPath = filepath.Join(*baseDir, "..", "calib_velo_to_cam.txt")
	}
	calib, err := kitti.LoadCalibration(camPath, veloPath)
	if err != nil {
		return err
	}

	vehicleFrames, err := kitti.ReadVehicleDetections(filepath.Join(*baseDir, kitti.DetectionFile))
	if err != nil {
		return err
	}
	obstacleFrames := map[int][]fusion.Box2D{}
	if *obstacleFile != "" {
		obstacleFrames, err = kitti.ReadObstacleDetections(*obstacleFile)
		if err != nil {
			return err
		}
	}

	var store *detstore.DB
	var runID string
	if *dbFile != "" {
		store, err = detstore.Open(*dbFile)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err = store.BeginRun(filepath.Base(*baseDir), *note)
		if err != nil {
			return err
		}
		monitoring.Logf("persisting to %s as run %s", *dbFile, runID)
	}

	processed := 0
	for frame := *startFrame; *endFrame < 0 || frame <= *endFrame; frame++ {
		scanPath := filepath.Join(*baseDir, kitti.VelodyneDir, kitti.FrameName(frame, "bin"))
		cloud, err := kitti.ReadVelodyneBin(scanPath)
		if err != nil {
			if os.IsNotExist(err) && *endFrame < 0 {
				break
			}
			return fmt.Errorf("frame %d: %w", frame, err)
		}

		f, err := fusion.NewFrame(cloud, vehicleFrames[frame], obstacleFrames[frame], calib, params)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		f.Process()

		boxed, far := 0, 0
		for _, det := range f.Vehicles() {
			if det.Box3D != nil {
				boxed++
			}
			if det.Far {
				far++
			}
		}
		monitoring.LogFrame(monitoring.FrameSummary{
			Frame:       frame,
			CloudPoints: len(cloud),
			Vehicles:    len(f.Vehicles()),
			Boxed:       boxed,
			Far:         far,
			Obstacles:   len(f.Obstacles()),
		})

		if store != nil {
			if err := store.InsertFrame(runID, frame, f.Vehicles(), f.Obstacles()); err != nil {
				return fmt.Errorf("frame %d: persist: %w", frame, err)
			}
		}
		processed++
	}

	monitoring.Logf("processed %d frames", processed)
	return nil
}
