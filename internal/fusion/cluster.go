package fusion

import "math"

// conditionalEuclideanCluster segments a frustum point set by region
// growing at the configured tolerance, admitting a candidate into the
// growing cluster only when the pairwise predicate holds against the point
// being expanded. It returns the member indices (into points) of the
// largest cluster that reaches the minimum size; ok is false when no
// cluster qualifies.
func conditionalEuclideanCluster(points []Point, normals [][3]float64, p *Params) (members []int, ok bool) {
	n := len(points)
	if n == 0 {
		return nil, false
	}
	minSize := int(math.Ceil(p.MinClusterFraction * float64(n)))
	if minSize < p.MinClusterSize {
		minSize = p.MinClusterSize
	}

	g := newGridIndex(points, p.ClusterTolerance)
	processed := make([]bool, n)
	var best []int
	var scratch []int
	for seed := 0; seed < n; seed++ {
		if processed[seed] {
			continue
		}
		cluster := []int{seed}
		processed[seed] = true
		for qi := 0; qi < len(cluster); qi++ {
			cur := cluster[qi]
			scratch = g.radiusSearch(points, cur, p.ClusterTolerance, scratch[:0])
			for _, cand := range scratch {
				if processed[cand] {
					continue
				}
				d2 := squaredDistance(points[cur], points[cand])
				if !sameCluster(points[cur], points[cand], normals[cur], normals[cand], d2, p) {
					continue
				}
				processed[cand] = true
				cluster = append(cluster, cand)
			}
		}
		if len(cluster) < minSize || len(cluster) > n {
			continue
		}
		// Largest cluster wins; ties keep the earlier one.
		if len(cluster) > len(best) {
			best = cluster
		}
	}
	if len(best) == 0 {
		return nil, false
	}
	return best, true
}

// sameCluster is the region-growing predicate. At short range either
// intensity similarity or normal dissimilarity admits the candidate (the
// latter lets growth cross intensity edges on the same surface); past the
// near-range gate only a tighter intensity match does.
func sameCluster(a, b Point, na, nb [3]float64, d2 float64, p *Params) bool {
	if d2 < p.NearRangeSq {
		if math.Abs(a.Intensity-b.Intensity) < p.IntensityGateNear {
			return true
		}
		dot := na[0]*nb[0] + na[1]*nb[1] + na[2]*nb[2]
		return math.Abs(dot) < p.NormalDotGate
	}
	return math.Abs(a.Intensity-b.Intensity) < p.IntensityGateFar
}
