package fusion

import "math"

// overlapBox returns the image-space rectangle shared by two occluding
// boxes. The cases distinguish containment on each axis so the region hugs
// the narrower box instead of being the naive min/max intersection: when one
// box fully spans the other on an axis, the region's sides on that axis come
// from the inner box.
func overlapBox(a, b Box2D) Box2D {
	dx := math.Abs(a.CenterX() - b.CenterX())
	dy := math.Abs(a.CenterY() - b.CenterY())
	xThresh := math.Abs(a.Width()-b.Width()) / 2
	yThresh := math.Abs(a.Height()-b.Height()) / 2

	var ov Box2D
	switch {
	case dx < xThresh && dy < yThresh:
		// One box contains the other; the overlap is the inner box.
		ov.XMin = math.Max(a.XMin, b.XMin)
		ov.YMin = math.Max(a.YMin, b.YMin)
		ov.XMax = math.Min(a.XMax, b.XMax)
		ov.YMax = math.Min(a.YMax, b.YMax)
	case dy < yThresh:
		// Full shared y-range; the y sides come from the shorter box, the
		// x range spans from the taller box's near edge to the shorter
		// box's far edge.
		small, large := a, b
		if b.Height() < a.Height() {
			small, large = b, a
		}
		ov.YMin = small.YMin
		ov.YMax = small.YMax
		if small.CenterX() < large.CenterX() {
			ov.XMin = large.XMin
			ov.XMax = small.XMax
		} else {
			ov.XMin = small.XMin
			ov.XMax = large.XMax
		}
	case dx < xThresh:
		// Symmetric case on x.
		small, large := a, b
		if b.Width() < a.Width() {
			small, large = b, a
		}
		ov.XMin = small.XMin
		ov.XMax = small.XMax
		if small.CenterY() < large.CenterY() {
			ov.YMin = large.YMin
			ov.YMax = small.YMax
		} else {
			ov.YMin = small.YMin
			ov.YMax = large.YMax
		}
	default:
		// Proper corner overlap; the quadrant is picked by the sign of the
		// signed centre offsets.
		dxs := a.CenterX() - b.CenterX()
		dys := a.CenterY() - b.CenterY()
		if dxs*dys > 0 {
			topLeft, downRight := a, b
			if a.CenterX() >= b.CenterX() {
				topLeft, downRight = b, a
			}
			ov.XMin = downRight.XMin
			ov.YMin = downRight.YMin
			ov.XMax = topLeft.XMax
			ov.YMax = topLeft.YMax
		} else {
			downLeft, topRight := a, b
			if a.CenterX() >= b.CenterX() {
				downLeft, topRight = b, a
			}
			ov.XMin = topRight.XMin
			ov.YMin = downLeft.YMin
			ov.XMax = downLeft.XMax
			ov.YMax = topRight.YMax
		}
	}
	return ov
}
