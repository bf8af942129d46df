package fusion

import "math"

type point2 struct{ X, Y float64 }

// reconstructBox builds the oriented 3-D box from a fitted L, the boundary
// set, the full cluster and the originating 2-D box. ok is false when the
// corner equations are degenerate; the caller then emits the cluster
// without a box.
func reconstructBox(fit lshapeFit, boundary, cluster []Point, box Box2D, pr *Projector, p *Params) (Box3D, bool) {
	corner, ok := cornerEstimate(fit, p.MinSlope)
	if !ok {
		return Box3D{}, false
	}

	var p1, p3 point2
	var length, width float64
	if estimateFarCorners(fit, corner, box, pr, &p1, &p3) {
		length = math.Hypot(corner.X-p1.X, corner.Y-p1.Y)
		width = math.Hypot(corner.X-p3.X, corner.Y-p3.Y)
	} else {
		// The back-projected box edges were parallel to the fitted lines;
		// take the extents from the boundary points projected onto the
		// lines instead.
		length, p1 = maxProjectedExtent(boundary[:fit.Split], fit.N1, fit.N2, fit.C1, corner)
		width, p3 = maxProjectedExtent(boundary[fit.Split:], -fit.N2, fit.N1, fit.C2, corner)
	}

	// Parallelogram closure for the far corner.
	p2 := point2{X: p3.X + (p1.X - corner.X), Y: p3.Y + (p1.Y - corner.Y)}

	zMin, zMax := 0.0, -2.0
	for _, pt := range cluster {
		if pt.Z < zMin {
			zMin = pt.Z
		}
		if pt.Z < p.RoofClipZ && pt.Z > zMax {
			zMax = pt.Z
		}
	}
	height := zMax - zMin

	heading := math.Atan((corner.Y - p1.Y) / (corner.X - p1.X))
	if heading == -math.Pi/2 {
		heading = math.Pi / 2
	}

	return Box3D{
		X:       (corner.X + p2.X) / 2,
		Y:       (corner.Y + p2.Y) / 2,
		Z:       zMin + height/2,
		Length:  length,
		Width:   width,
		Height:  height,
		Heading: heading,
		CornerX: corner.X,
		CornerY: corner.Y,
	}, true
}

// cornerEstimate intersects the two fitted lines. Near-axis-aligned lines
// take the closed forms for a horizontal or vertical line 1; the fully
// degenerate normal reports failure.
func cornerEstimate(fit lshapeFit, minSlope float64) (point2, bool) {
	c1, c2, n1, n2 := fit.C1, fit.C2, fit.N1, fit.N2
	switch {
	case n2 != 0 && math.Abs(n1/n2) < minSlope:
		return point2{X: c2 / n2, Y: -c1 / n2}, true
	case n1 != 0 && math.Abs(n2/n1) < minSlope:
		return point2{X: -c1 / n1, Y: -c2 / n1}, true
	case n1 != 0 && n2 != 0:
		x := (n2*c2 - n1*c1) / (n1*n1 + n2*n2)
		return point2{X: x, Y: -n1/n2*x - c1/n2}, true
	}
	return point2{}, false
}

// estimateFarCorners back-projects the 2-D box's (xmin,ymin) and
// (xmax,ymax) pixels to bird's-eye rays and intersects them with the two
// fitted lines to place the far corners. When the min-edge ray meets line 1
// beyond the corner (farther along the sensor's line of sight to the
// corner) it bounds line 1 and the max-edge ray bounds line 2; otherwise
// the roles swap. Reports false when a ray is vertical or
// parallel to its line, which sends the caller to the projection fallback.
func estimateFarCorners(fit lshapeFit, corner point2, box Box2D, pr *Projector, p1, p3 *point2) bool {
	kMin, bMin, okMin := pr.BackProjectPixel(box.XMin, box.YMin)
	kMax, bMax, okMax := pr.BackProjectPixel(box.XMax, box.YMax)
	if !okMin || !okMax {
		return false
	}

	if pt, ok := intersectRayLine(kMin, bMin, fit.N1, fit.N2, fit.C1); ok && (pt.X-corner.X)*corner.X+(pt.Y-corner.Y)*corner.Y > 0 {
		*p1 = pt
		far, ok := intersectRayLine(kMax, bMax, -fit.N2, fit.N1, fit.C2)
		if !ok {
			return false
		}
		*p3 = far
		return true
	}
	pt1, ok1 := intersectRayLine(kMax, bMax, fit.N1, fit.N2, fit.C1)
	pt3, ok3 := intersectRayLine(kMin, bMin, -fit.N2, fit.N1, fit.C2)
	if !ok1 || !ok3 {
		return false
	}
	*p1 = pt1
	*p3 = pt3
	return true
}

// intersectRayLine intersects the ray y = k·x + b with the line
// nx·x + ny·y + c = 0. ok is false when they are parallel.
func intersectRayLine(k, b, nx, ny, c float64) (point2, bool) {
	den := nx + ny*k
	if den == 0 {
		return point2{}, false
	}
	x := -(ny*b + c) / den
	return point2{X: x, Y: k*x + b}, true
}

// maxProjectedExtent drops each point onto the line nx·x + ny·y + c = 0
// (unit normal) and returns the largest distance from the corner along the
// line, together with the projected far point.
func maxProjectedExtent(pts []Point, nx, ny, c float64, corner point2) (float64, point2) {
	var maxLen float64
	var far point2
	for _, pt := range pts {
		d := nx*pt.X + ny*pt.Y + c
		x := pt.X - d*nx
		y := pt.Y - d*ny
		l := math.Hypot(x-corner.X, y-corner.Y)
		if l > maxLen {
			maxLen = l
			far = point2{X: x, Y: y}
		}
	}
	return maxLen, far
}
