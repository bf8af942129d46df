package fusion

import "math"

// floatEquals compares with an absolute tolerance.
func floatEquals(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// testCalib is a synthetic pinhole rig: the camera looks along LiDAR +x,
// image u grows with −y and v with −z, focal length 700, principal point
// (600, 200). A LiDAR point (x,y,z) projects to
// u = 600 − 700·y/x, v = 200 − 700·z/x.
func testCalib() Calibration {
	return Calibration{
		P: [12]float64{
			700, 0, 600, 0,
			0, 700, 200, 0,
			0, 0, 1, 0,
		},
		R: [9]float64{
			0, -1, 0,
			0, 0, -1,
			1, 0, 0,
		},
		T: [3]float64{0, 0, 0},
	}
}

// projectUV mirrors testCalib's closed-form projection.
func projectUV(p Point) (u, v float64) {
	return 600 - 700*p.Y/p.X, 200 - 700*p.Z/p.X
}

// boxAround returns the tight image box of a point set, padded by a hair so
// edge points stay strictly inside.
func boxAround(pts []Point, class string) Box2D {
	b := Box2D{
		XMin: math.Inf(1), YMin: math.Inf(1),
		XMax: math.Inf(-1), YMax: math.Inf(-1),
		Class: class,
	}
	for _, p := range pts {
		u, v := projectUV(p)
		b.XMin = math.Min(b.XMin, u)
		b.YMin = math.Min(b.YMin, v)
		b.XMax = math.Max(b.XMax, u)
		b.YMax = math.Max(b.YMax, v)
	}
	b.XMin -= 1e-6
	b.YMin -= 1e-6
	b.XMax += 1e-6
	b.YMax += 1e-6
	return b
}

// carPoints builds a tight planar-L vehicle cluster with its near corner at
// (cx, cy): a rear face across y ∈ [cy, cy+1.8] at x = cx and a side face
// along x ∈ [cx, cx+4.2] at y = cy, four rings of z each, with a small
// deterministic jitter so line fits keep a positive residual.
func carPoints(cx, cy float64) []Point {
	var pts []Point
	zs := []float64{-1.4, -1.0, -0.6, -0.2}
	n := 0
	jit := func() float64 {
		n++
		return 0.001 * math.Sin(1.7*float64(n))
	}
	for yi := 0; yi < 10; yi++ {
		y := cy + 0.2*float64(yi)
		for _, z := range zs {
			pts = append(pts, Point{X: cx + jit(), Y: y, Z: z, Intensity: 50})
		}
	}
	for xi := 1; xi <= 21; xi++ {
		x := cx + 0.2*float64(xi)
		for _, z := range zs {
			pts = append(pts, Point{X: x, Y: cy + jit(), Z: z, Intensity: 50})
		}
	}
	return pts
}

// carPointsMirror is carPoints reflected: the side face runs along the high
// y edge, for vehicles on the other side of the image centre.
func carPointsMirror(cx, cyHigh float64) []Point {
	var pts []Point
	zs := []float64{-1.4, -1.0, -0.6, -0.2}
	n := 0
	jit := func() float64 {
		n++
		return 0.001 * math.Sin(1.7*float64(n))
	}
	for yi := 0; yi < 10; yi++ {
		y := cyHigh - 0.2*float64(yi)
		for _, z := range zs {
			pts = append(pts, Point{X: cx + jit(), Y: y, Z: z, Intensity: 50})
		}
	}
	for xi := 1; xi <= 21; xi++ {
		x := cx + 0.2*float64(xi)
		for _, z := range zs {
			pts = append(pts, Point{X: x, Y: cyHigh + jit(), Z: z, Intensity: 50})
		}
	}
	return pts
}

// isSortedStrict reports whether xs is strictly ascending.
func isSortedStrict(xs []int) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}
