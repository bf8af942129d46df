package fusion

// Params collects the tuning knobs of the fusion core. Zero values are not
// meaningful; start from DefaultParams and override selectively (the
// internal/config tuning file does exactly that).
type Params struct {
	// IoUThreshold is the containment fraction above which one box is
	// considered to occlude another.
	IoUThreshold float64

	// MinFrustumX and MinOverlapFrustumX are the forward cut-offs (metres)
	// below which points are never considered for simple and overlap-aware
	// frustum clipping respectively. The higher overlap cut keeps windshield
	// region returns out of the arbitration.
	MinFrustumX        float64
	MinOverlapFrustumX float64

	// NormalRadius is the neighbourhood radius (metres) for surface normal
	// estimation.
	NormalRadius float64

	// ClusterTolerance is the region-growing radius (metres).
	// MinClusterFraction scales the frustum size into the minimum cluster
	// size; MinClusterSize is an absolute floor under it so a handful of
	// stray returns never forms a cluster.
	ClusterTolerance   float64
	MinClusterFraction float64
	MinClusterSize     int

	// Region-growing gates. Within NearRangeSq (squared metres) a pair
	// joins on either intensity similarity (IntensityGateNear) or normal
	// dissimilarity (NormalDotGate); beyond it only the tighter
	// IntensityGateFar admits.
	NearRangeSq       float64
	IntensityGateNear float64
	IntensityGateFar  float64
	NormalDotGate     float64

	// Boundary proposal: angular bucket resolution (degrees) and the number
	// of nearest returns kept per bucket.
	AngleReso        float64
	BucketPointCount int

	// An L-fit is attempted only when both the cluster and the boundary
	// hold more than SGroupThreshold points; the final fit call also needs
	// more than SGroupRefinedThreshold boundary points.
	SGroupThreshold        int
	SGroupRefinedThreshold int

	// MinSlope is the ratio below which a fitted line is treated as
	// axis-aligned during corner estimation.
	MinSlope float64

	// RoofClipZ caps the z values (metres) admitted into the height
	// estimate, suppressing overhead outliers. It encodes the sensor
	// mounting height and is therefore configurable.
	RoofClipZ float64
}

// DefaultParams returns the production defaults of the fusion core.
func DefaultParams() Params {
	return Params{
		IoUThreshold:           0.25,
		MinFrustumX:            3,
		MinOverlapFrustumX:     5,
		NormalRadius:           4,
		ClusterTolerance:       0.7,
		MinClusterFraction:     0.2,
		MinClusterSize:         5,
		NearRangeSq:            4,
		IntensityGateNear:      8,
		IntensityGateFar:       3,
		NormalDotGate:          0.06,
		AngleReso:              0.06,
		BucketPointCount:       2,
		SGroupThreshold:        10,
		SGroupRefinedThreshold: 5,
		MinSlope:               1e-7,
		RoofClipZ:              1,
	}
}
