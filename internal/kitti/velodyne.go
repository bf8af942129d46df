package kitti

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/banshee-data/fusion.report/internal/fusion"
)

// velodyneRecordSize is the byte width of one return in a raw scan:
// x, y, z, intensity as little-endian float32.
const velodyneRecordSize = 16

// ReadVelodyneBin loads a raw KITTI velodyne scan. Non-finite coordinates
// are rejected here, at the input boundary, so the core never sees them.
func ReadVelodyneBin(path string) ([]fusion.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%velodyneRecordSize != 0 {
		return nil, fmt.Errorf("velodyne scan %s: %d bytes is not a whole number of returns", path, len(data))
	}

	points := make([]fusion.Point, 0, len(data)/velodyneRecordSize)
	for off := 0; off < len(data); off += velodyneRecordSize {
		x := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		y := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:])))
		z := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+8:])))
		intensity := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+12:])))
		if math.IsNaN(x) || math.IsInf(x, 0) ||
			math.IsNaN(y) || math.IsInf(y, 0) ||
			math.IsNaN(z) || math.IsInf(z, 0) {
			return nil, fmt.Errorf("velodyne scan %s: non-finite return at offset %d", path, off)
		}
		points = append(points, fusion.Point{X: x, Y: y, Z: z, Intensity: intensity})
	}
	return points, nil
}
