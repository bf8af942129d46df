package kitti

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/fusion.report/internal/fusion"
)

// Rectified image dimensions of the KITTI raw camera 02 stream, used to
// denormalize detector output.
const (
	ImgWidth  = 1242
	ImgHeight = 375
)

// boxFieldCount is the number of numeric fields between the frame index and
// the class label on a detection line.
const boxFieldCount = 7

// vehicleClasses are the detector labels handed to the vehicle pipeline.
var vehicleClasses = map[string]bool{
	"car":   true,
	"truck": true,
}

// ReadVehicleDetections parses a per-sequence darknet detection dump
// (BoxInfo.txt). Each line holds one detection as nine whitespace-separated
// tokens:
//
//	frame box[0] box[1] box[2] box[3] box[4] box[5] box[6] class
//
// where box[0..3] are the image-normalized centre-x, centre-y, width and
// height of the box and box[5] is the detector confidence. Boxes are
// denormalized to pixel corners against ImgWidth × ImgHeight. Only car and
// truck detections are kept; every other class is discarded, matching the
// upstream filter. Malformed boxes are contract violations and fail the
// load.
func ReadVehicleDetections(path string) (map[int][]fusion.Box2D, error) {
	return readDetectionFile(path, func(class string) bool { return vehicleClasses[class] })
}

// ReadObstacleDetections parses a foreground-obstacle dump in the same line
// format, keeping every class the vehicle pipeline does not consume. The
// obstacle feed is a separate detector stream in the upstream system; when
// both dumps come from the same detector the vehicle filter here keeps the
// two box sets disjoint.
func ReadObstacleDetections(path string) (map[int][]fusion.Box2D, error) {
	return readDetectionFile(path, func(class string) bool { return !vehicleClasses[class] })
}

func readDetectionFile(path string, keep func(class string) bool) (map[int][]fusion.Box2D, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames := make(map[int][]fusion.Box2D)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != boxFieldCount+2 {
			return nil, fmt.Errorf("%s:%d: %d tokens, want %d", path, lineNo, len(fields), boxFieldCount+2)
		}
		frame, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad frame index: %w", path, lineNo, err)
		}
		var box [boxFieldCount]float64
		for i := 0; i < boxFieldCount; i++ {
			box[i], err = strconv.ParseFloat(fields[1+i], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad box field %d: %w", path, lineNo, i, err)
			}
		}
		class := strings.ToLower(fields[boxFieldCount+1])
		if !keep(class) {
			continue
		}

		b := fusion.Box2D{
			XMin:  (box[0] - box[2]/2) * ImgWidth,
			YMin:  (box[1] - box[3]/2) * ImgHeight,
			XMax:  (box[0] + box[2]/2) * ImgWidth,
			YMax:  (box[1] + box[3]/2) * ImgHeight,
			Class: class,
		}
		if b.XMin >= b.XMax || b.YMin >= b.YMax {
			return nil, fmt.Errorf("%s:%d: box has non-positive extent", path, lineNo)
		}
		frames[frame] = append(frames[frame], b)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}
