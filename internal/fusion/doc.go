// Package fusion implements per-frame camera–LiDAR detection fusion.
//
// For each synchronized frame it consumes a LiDAR point cloud, the 2-D
// vehicle boxes and foreground-obstacle boxes detected in the rectified
// camera image, and the LiDAR→camera projection geometry. For every vehicle
// box it carves the image-space frustum out of the cloud, arbitrates point
// ownership against occluding boxes, segments the dominant cluster with a
// conditional Euclidean region grower, fits an L-shape to the cluster's
// near boundary and reconstructs an oriented 3-D bounding box.
//
// The package is pure per frame: all state lives in a Frame context built
// by NewFrame and driven once by Process. Ground-plane removal and 2-D
// detection happen upstream; tracking and visualization happen downstream.
package fusion
