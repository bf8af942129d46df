package fusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Calibration carries the LiDAR→camera geometry for one rectified camera:
// the 3×4 projection P, the 3×3 rotation R and the 3×1 translation T of the
// extrinsic transform. All matrices are row-major.
type Calibration struct {
	P [12]float64
	R [9]float64
	T [3]float64
}

// Projector is the frame-lifetime projection pair derived from a
// Calibration: pi projects homogeneous LiDAR points into the image, and
// rbp/tbp lift image pixels back to bird's-eye lines in the LiDAR frame.
type Projector struct {
	pi  [12]float64 // Π = P · [R|T; 0 0 0 1], row-major 3×4
	rbp [9]float64  // Rᵀ · P[:,0:3]⁻¹, row-major 3×3
	tbp [3]float64  // Rᵀ · T
}

// NewProjector composes the projection matrices from a calibration. It
// fails on non-finite input or a singular camera intrinsic block; both are
// contract violations rather than per-detection degeneracies.
func NewProjector(c Calibration) (*Projector, error) {
	for _, v := range c.P {
		if !isFinite(v) {
			return nil, fmt.Errorf("calibration P contains non-finite entry %v", v)
		}
	}
	for _, v := range c.R {
		if !isFinite(v) {
			return nil, fmt.Errorf("calibration R contains non-finite entry %v", v)
		}
	}
	for _, v := range c.T {
		if !isFinite(v) {
			return nil, fmt.Errorf("calibration T contains non-finite entry %v", v)
		}
	}

	P := mat.NewDense(3, 4, c.P[:])
	R := mat.NewDense(3, 3, c.R[:])

	// M = [R|T; 0 0 0 1]
	M := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			M.Set(i, j, R.At(i, j))
		}
		M.Set(i, 3, c.T[i])
	}
	M.Set(3, 3, 1)

	var pi mat.Dense
	pi.Mul(P, M)

	var pInv mat.Dense
	if err := pInv.Inverse(P.Slice(0, 3, 0, 3)); err != nil {
		return nil, fmt.Errorf("camera intrinsic block is singular: %w", err)
	}

	var rbp mat.Dense
	rbp.Mul(R.T(), &pInv)

	var tbp mat.VecDense
	tbp.MulVec(R.T(), mat.NewVecDense(3, c.T[:]))

	pr := &Projector{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			pr.pi[i*4+j] = pi.At(i, j)
		}
		for j := 0; j < 3; j++ {
			pr.rbp[i*3+j] = rbp.At(i, j)
		}
		pr.tbp[i] = tbp.AtVec(i)
	}
	return pr, nil
}

// Project maps a LiDAR point to rectified pixel coordinates.
func (pr *Projector) Project(p Point) (u, v float64) {
	w := pr.pi[8]*p.X + pr.pi[9]*p.Y + pr.pi[10]*p.Z + pr.pi[11]
	u = (pr.pi[0]*p.X + pr.pi[1]*p.Y + pr.pi[2]*p.Z + pr.pi[3]) / w
	v = (pr.pi[4]*p.X + pr.pi[5]*p.Y + pr.pi[6]*p.Z + pr.pi[7]) / w
	return u, v
}

// BackProjectPixel lifts an image pixel to the bird's-eye line it induces in
// the LiDAR XY plane, as y = slope·x + intercept. ok is false when the
// lifted ray is vertical in XY (kx = 0); callers must fall back to the
// boundary-projection path in that case.
func (pr *Projector) BackProjectPixel(u, v float64) (slope, intercept float64, ok bool) {
	kx := pr.rbp[0]*u + pr.rbp[1]*v + pr.rbp[2]
	ky := pr.rbp[3]*u + pr.rbp[4]*v + pr.rbp[5]
	if kx == 0 {
		return 0, 0, false
	}
	slope = ky / kx
	intercept = slope*pr.tbp[0] - pr.tbp[1]
	return slope, intercept, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
