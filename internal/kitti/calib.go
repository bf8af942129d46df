package kitti

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/fusion.report/internal/fusion"
)

// LoadCalibration reads the camera and velodyne calibration files of a
// KITTI recording and composes the chain the core expects: P is the
// rectified projection of camera 2, and the rotation/translation pair is
// the velodyne→camera extrinsic pre-multiplied by the rectifying rotation,
// so that Π = P · [R|T] maps LiDAR points straight into rectified pixels.
func LoadCalibration(camToCamPath, veloToCamPath string) (fusion.Calibration, error) {
	var calib fusion.Calibration

	cam, err := readCalibFile(camToCamPath)
	if err != nil {
		return calib, err
	}
	velo, err := readCalibFile(veloToCamPath)
	if err != nil {
		return calib, err
	}

	pRect, err := calibEntry(cam, "P_rect_02", 12, camToCamPath)
	if err != nil {
		return calib, err
	}
	rRect, err := calibEntry(cam, "R_rect_00", 9, camToCamPath)
	if err != nil {
		return calib, err
	}
	rVelo, err := calibEntry(velo, "R", 9, veloToCamPath)
	if err != nil {
		return calib, err
	}
	tVelo, err := calibEntry(velo, "T", 3, veloToCamPath)
	if err != nil {
		return calib, err
	}

	var r mat.Dense
	r.Mul(mat.NewDense(3, 3, rRect), mat.NewDense(3, 3, rVelo))
	var t mat.VecDense
	t.MulVec(mat.NewDense(3, 3, rRect), mat.NewVecDense(3, tVelo))

	copy(calib.P[:], pRect)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			calib.R[i*3+j] = r.At(i, j)
		}
		calib.T[i] = t.AtVec(i)
	}
	return calib, nil
}

// readCalibFile parses a KITTI calibration file of "key: v0 v1 ..." lines.
// Lines that do not parse as value lists (dates, sensor names) are skipped.
func readCalibFile(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string][]float64)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		values := make([]float64, 0, len(fields))
		numeric := true
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				numeric = false
				break
			}
			values = append(values, v)
		}
		if numeric {
			entries[strings.TrimSpace(key)] = values
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func calibEntry(entries map[string][]float64, key string, want int, path string) ([]float64, error) {
	values, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("calibration file %s: missing %q", path, key)
	}
	if len(values) != want {
		return nil, fmt.Errorf("calibration file %s: %q has %d values, want %d", path, key, len(values), want)
	}
	return values, nil
}
