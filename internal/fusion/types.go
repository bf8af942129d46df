package fusion

// Point is a single LiDAR return in sensor coordinates (metres). Intensity
// is carried through clustering, where it gates region growing.
type Point struct {
	X, Y, Z   float64
	Intensity float64
}

// Box2D is an axis-aligned rectangle in rectified image pixels. Class holds
// the detector label. ID is only meaningful on overlap regions, where it
// carries the global id of the occluder that produced the region (vehicles
// occupy ids 0..V-1, obstacles V..V+O-1).
type Box2D struct {
	XMin, YMin float64
	XMax, YMax float64
	Class      string
	ID         int
}

// Width returns the box extent along the image x axis.
func (b Box2D) Width() float64 { return b.XMax - b.XMin }

// Height returns the box extent along the image y axis.
func (b Box2D) Height() float64 { return b.YMax - b.YMin }

// CenterX returns the box centre along the image x axis.
func (b Box2D) CenterX() float64 { return (b.XMax + b.XMin) / 2 }

// CenterY returns the box centre along the image y axis.
func (b Box2D) CenterY() float64 { return (b.YMax + b.YMin) / 2 }

// Contains reports whether pixel (u,v) falls inside the box, edges included.
func (b Box2D) Contains(u, v float64) bool {
	return u >= b.XMin && u <= b.XMax && v >= b.YMin && v <= b.YMax
}

// Box3D is an oriented bounding box in LiDAR coordinates: centre position,
// extents, yaw, and the fitted near corner of the L.
type Box3D struct {
	X, Y, Z float64 // centre (metres)
	Length  float64 // extent along the heading direction
	Width   float64 // extent perpendicular to the heading
	Height  float64 // extent along Z
	Heading float64 // yaw (radians), in (−π/2, π/2]

	CornerX, CornerY float64 // near corner of the fitted L
}

// VehicleDetection is the per-vehicle fusion result. ClusterIndices are
// sorted ascending and index into the frame's input cloud; ClusterPoints is
// a copy of the segmented points. Box3D is nil when the L-fit or corner
// reconstruction failed. Far marks a frustum whose points resisted
// clustering entirely; only DistanceFar (mean frustum x) is meaningful then.
type VehicleDetection struct {
	Box            Box2D
	Box3D          *Box3D
	ClusterIndices []int
	ClusterPoints  []Point
	Far            bool
	DistanceFar    float64
}

// ObstacleDetection is the per-obstacle fusion result. Obstacles get no 3-D
// box; their clusters exist so vehicle frustums can exclude occluded points.
type ObstacleDetection struct {
	Box            Box2D
	ClusterIndices []int
	Far            bool
	DistanceFar    float64
}
