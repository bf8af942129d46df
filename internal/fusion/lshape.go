package fusion

import (
	"math"
	"sort"
)

// lshapeFit packs the fitted L: two perpendicular lines sharing the unit
// normal (N1, N2), line 1 as N1·x + N2·y + C1 = 0 and line 2 as
// −N2·x + N1·y + C2 = 0. Boundary points [0, Split) belong to line 1, the
// rest to line 2.
type lshapeFit struct {
	C1, C2 float64
	N1, N2 float64
	Split  int
}

// m11DetEpsilon guards the 2×2 block inversion inside the incremental fit;
// the block is singular at the walk's endpoints.
const m11DetEpsilon = 1e-9

// boundaryPoint carries a cluster point with its polar angle (degrees) and
// planar range, the sort keys of boundary extraction.
type boundaryPoint struct {
	Point
	theta  float64
	radius float64
}

// fitLShape extracts the cluster's near boundary and runs the incremental
// fit. It returns the fit, the boundary set, and the residual; a zero
// residual means no fit was attempted or none succeeded.
func fitLShape(cluster []Point, p *Params) (lshapeFit, []Point, float64) {
	if len(cluster) <= p.SGroupThreshold {
		return lshapeFit{}, nil, 0
	}
	boundary := proposeBoundary(cluster, p)
	if len(boundary) <= p.SGroupThreshold || len(boundary) <= p.SGroupRefinedThreshold {
		return lshapeFit{}, boundary, 0
	}
	fit, residual := lfit(boundary)
	return fit, boundary, residual
}

// proposeBoundary extracts the near boundary of a cluster: points are
// swept in polar-angle order, merged into buckets while the angle stays
// within the resolution of the bucket's running mean, and each bucket keeps
// its few closest returns.
func proposeBoundary(cluster []Point, p *Params) []Point {
	bps := make([]boundaryPoint, len(cluster))
	for i, pt := range cluster {
		bps[i] = boundaryPoint{
			Point:  pt,
			theta:  math.Atan2(pt.Y, pt.X) * 180 / math.Pi,
			radius: math.Hypot(pt.X, pt.Y),
		}
	}
	sort.Slice(bps, func(i, j int) bool { return bps[i].theta < bps[j].theta })

	var out []Point
	flush := func(bucket []boundaryPoint) {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].radius < bucket[j].radius })
		for j := 0; j < len(bucket) && j < p.BucketPointCount; j++ {
			out = append(out, bucket[j].Point)
		}
	}

	var bucket []boundaryPoint
	var thetaMean float64
	for i, bp := range bps {
		if i > 0 && math.Abs(bp.theta-thetaMean) >= p.AngleReso {
			flush(bucket)
			bucket = bucket[:0]
		}
		bucket = append(bucket, bp)
		thetaMean += (bp.theta - thetaMean) / float64(len(bucket))
	}
	flush(bucket)
	return out
}

// lfit fits two perpendicular lines to the boundary via an incremental
// scatter-matrix walk, selecting the split that minimises the smaller
// eigenvalue of the Schur complement. The 4×4 scatter matrix starts with
// every point on the line-2 side; each step transfers one point to the
// line-1 side in closed form. Returns the winning residual, or 0 when no
// split produced a usable system.
func lfit(boundary []Point) (lshapeFit, float64) {
	var m [4][4]float64
	for _, pt := range boundary {
		m[1][2] += pt.Y
		m[1][3] -= pt.X
		m[2][2] += pt.Y * pt.Y
		m[2][3] -= pt.X * pt.Y
		m[3][3] += pt.X * pt.X
	}
	m[1][1] = float64(len(boundary))
	m[2][1] = m[1][2]
	m[3][1] = m[1][3]
	m[3][2] = m[2][3]

	var fit lshapeFit
	best := math.MaxFloat64
	found := false
	for i := 0; i+1 < len(boundary); i++ {
		x, y := boundary[i].X, boundary[i].Y

		// ΔM transferring point i from line 2 to line 1.
		m[0][0]++
		m[0][2] += x
		m[0][3] += y
		m[1][1]--
		m[1][2] -= y
		m[1][3] += x
		m[2][0] += x
		m[2][1] -= y
		m[2][2] += x*x - y*y
		m[2][3] += 2 * x * y
		m[3][0] += y
		m[3][1] += x
		m[3][2] += 2 * x * y
		m[3][3] += y*y - x*x

		det := m[0][0]*m[1][1] - m[0][1]*m[1][0]
		if math.Abs(det) < m11DetEpsilon {
			continue
		}

		// A = M11⁻¹ · M12
		a00 := (m[1][1]*m[0][2] - m[0][1]*m[1][2]) / det
		a01 := (m[1][1]*m[0][3] - m[0][1]*m[1][3]) / det
		a10 := (m[0][0]*m[1][2] - m[1][0]*m[0][2]) / det
		a11 := (m[0][0]*m[1][3] - m[1][0]*m[0][3]) / det

		// S = M22 − M12ᵀ · A
		s00 := m[2][2] - (m[0][2]*a00 + m[1][2]*a10)
		s01 := m[2][3] - (m[0][2]*a01 + m[1][2]*a11)
		s10 := m[3][2] - (m[0][3]*a00 + m[1][3]*a10)
		s11 := m[3][3] - (m[0][3]*a01 + m[1][3]*a11)

		lambda, n1, n2, ok := smallerEigenpair(s00, s01, s10, s11)
		if !ok || lambda >= best {
			continue
		}
		best = lambda
		fit = lshapeFit{
			C1:    -(a00*n1 + a01*n2),
			C2:    -(a10*n1 + a11*n2),
			N1:    n1,
			N2:    n2,
			Split: i + 1,
		}
		found = true
	}
	if !found {
		return lshapeFit{}, 0
	}
	return fit, best
}

// smallerEigenpair solves the 2×2 eigenproblem in closed form and returns
// the smaller eigenvalue with its unit eigenvector. The matrix is
// numerically symmetric; the symmetric solution is used.
func smallerEigenpair(s00, s01, s10, s11 float64) (lambda, vx, vy float64, ok bool) {
	tr := s00 + s11
	det := s00*s11 - s01*s10
	disc := tr*tr - 4*det
	if disc < 0 {
		disc = 0
	}
	lambda = (tr - math.Sqrt(disc)) / 2

	switch {
	case math.Abs(s01) > m11DetEpsilon:
		vx, vy = s01, lambda-s00
	case math.Abs(s10) > m11DetEpsilon:
		vx, vy = lambda-s11, s10
	case s00 <= s11:
		return lambda, 1, 0, true
	default:
		return lambda, 0, 1, true
	}
	mag := math.Hypot(vx, vy)
	if mag == 0 {
		return 0, 0, 0, false
	}
	return lambda, vx / mag, vy / mag, true
}
