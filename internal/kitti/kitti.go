// Package kitti loads the raw-sequence inputs the fusion core consumes:
// velodyne point cloud scans, the camera calibration chain, per-frame 2-D
// detection boxes, and sensor timestamps. Directory layout and file formats
// follow the KITTI raw data distribution.
package kitti

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Standard sub-paths of a raw sequence directory.
const (
	VelodyneDir   = "velodyne_points/data"
	VelodyneStamp = "velodyne_points/timestamps.txt"
	ImageStamp    = "image_02/timestamps.txt"
	DetectionFile = "image_02/BoxInfo.txt"
)

// timestampLayout matches KITTI's nanosecond timestamps, e.g.
// "2011-09-26 13:02:25.594360375".
const timestampLayout = "2006-01-02 15:04:05.000000000"

// FrameName returns the zero-padded file name KITTI uses for a frame, e.g.
// FrameName(12, "bin") == "0000000012.bin".
func FrameName(frame int, suffix string) string {
	return fmt.Sprintf("%010d.%s", frame, suffix)
}

// ReadTimestamps parses a KITTI timestamps.txt file, one timestamp per
// frame line.
func ReadTimestamps(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var stamps []time.Time
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ts, err := time.Parse(timestampLayout, line)
		if err != nil {
			return nil, fmt.Errorf("timestamp line %d: %w", len(stamps), err)
		}
		stamps = append(stamps, ts)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return stamps, nil
}
