package fusion

import (
	"gonum.org/v1/gonum/mat"
)

// estimateNormals computes a unit surface normal per frustum point as the
// smallest-eigenvalue eigenvector of its neighbourhood covariance, with
// neighbourhoods taken at radius metres. Points with fewer than three
// neighbours keep a zero normal, which the clustering predicate treats as
// maximally dissimilar.
func estimateNormals(points []Point, radius float64) [][3]float64 {
	normals := make([][3]float64, len(points))
	if len(points) == 0 {
		return normals
	}
	g := newGridIndex(points, radius)
	var scratch []int
	for i := range points {
		scratch = g.radiusSearch(points, i, radius, scratch[:0])
		if len(scratch) < 3 {
			continue
		}

		var sx, sy, sz float64
		for _, j := range scratch {
			sx += points[j].X
			sy += points[j].Y
			sz += points[j].Z
		}
		n := float64(len(scratch))
		mx, my, mz := sx/n, sy/n, sz/n

		var c00, c01, c02, c11, c12, c22 float64
		for _, j := range scratch {
			dx := points[j].X - mx
			dy := points[j].Y - my
			dz := points[j].Z - mz
			c00 += dx * dx
			c01 += dx * dy
			c02 += dx * dz
			c11 += dy * dy
			c12 += dy * dz
			c22 += dz * dz
		}

		cov := mat.NewSymDense(3, []float64{
			c00, c01, c02,
			c01, c11, c12,
			c02, c12, c22,
		})
		var eig mat.EigenSym
		if !eig.Factorize(cov, true) {
			continue
		}
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// Eigenvalues come back ascending; column 0 is the plane normal.
		normals[i] = [3]float64{vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)}
	}
	return normals
}
