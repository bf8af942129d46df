package fusion

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Frame is the per-frame fusion context: the immutable inputs, the derived
// occlusion structures, and the detection records filled in by Process.
// The cloud is shared by reference and never mutated; detection fields are
// written once each.
type Frame struct {
	params    Params
	projector *Projector
	cloud     []Point
	vehicles  []VehicleDetection
	obstacles []ObstacleDetection
	table     *OcclusionTable
	groups    [][]int
}

// NewFrame validates the inputs and builds the frame context: vehicle boxes
// are sorted by descending ymax (a near-to-far proxy), the occlusion table
// is computed, and vehicles are partitioned into occlusion groups.
// Malformed boxes and non-finite points or calibration are contract
// violations and fail construction.
func NewFrame(cloud []Point, vehicleBoxes, obstacleBoxes []Box2D, calib Calibration, params Params) (*Frame, error) {
	for i, p := range cloud {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Z) || !isFinite(p.Intensity) {
			return nil, fmt.Errorf("cloud point %d is not finite", i)
		}
	}
	if err := validateBoxes("vehicle", vehicleBoxes); err != nil {
		return nil, err
	}
	if err := validateBoxes("obstacle", obstacleBoxes); err != nil {
		return nil, err
	}

	projector, err := NewProjector(calib)
	if err != nil {
		return nil, err
	}

	sorted := append([]Box2D(nil), vehicleBoxes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].YMax > sorted[j].YMax })

	f := &Frame{
		params:    params,
		projector: projector,
		cloud:     cloud,
		vehicles:  make([]VehicleDetection, len(sorted)),
		obstacles: make([]ObstacleDetection, len(obstacleBoxes)),
	}
	vb := make([]Box2D, len(sorted))
	ob := make([]Box2D, len(obstacleBoxes))
	for i, b := range sorted {
		f.vehicles[i] = VehicleDetection{Box: b}
		vb[i] = b
	}
	for i, b := range obstacleBoxes {
		f.obstacles[i] = ObstacleDetection{Box: b}
		ob[i] = b
	}
	f.table = buildOcclusionTable(vb, ob, params.IoUThreshold)
	f.groups = groupVehicles(f.table)
	return f, nil
}

func validateBoxes(kind string, boxes []Box2D) error {
	for i, b := range boxes {
		if !isFinite(b.XMin) || !isFinite(b.YMin) || !isFinite(b.XMax) || !isFinite(b.YMax) {
			return fmt.Errorf("%s box %d is not finite", kind, i)
		}
		if b.XMin >= b.XMax || b.YMin >= b.YMax {
			return fmt.Errorf("%s box %d has non-positive extent", kind, i)
		}
	}
	return nil
}

// Process runs the frame: the obstacle pass extracts clusters for every
// obstacle that occludes a vehicle, then vehicles are processed group by
// group in discovery order, ascending within each group. Vehicle n's
// frustum arbitration reads only clusters recorded by earlier passes, so
// the order is load-bearing.
func (f *Frame) Process() {
	for o := range f.obstacles {
		if f.table.ObstacleOccludesAny(o) {
			f.extractObstacle(o)
		}
	}
	for _, group := range f.groups {
		for _, v := range group {
			f.extractVehicle(v)
		}
	}
}

// Vehicles returns the vehicle detections in index order (descending 2-D
// ymax).
func (f *Frame) Vehicles() []VehicleDetection { return f.vehicles }

// Obstacles returns the obstacle detections in input order.
func (f *Frame) Obstacles() []ObstacleDetection { return f.obstacles }

// Groups exposes the vehicle occlusion groups, mostly for tests and
// diagnostics.
func (f *Frame) Groups() [][]int { return f.groups }

func (f *Frame) extractObstacle(o int) {
	det := &f.obstacles[o]
	pts, idx := f.clipFrustum(det.Box)
	if len(pts) == 0 {
		return
	}
	normals := estimateNormals(pts, f.params.NormalRadius)
	members, ok := conditionalEuclideanCluster(pts, normals, &f.params)
	if !ok {
		det.Far = true
		det.DistanceFar = meanX(pts)
		return
	}
	det.ClusterIndices = remapSorted(members, idx)
}

func (f *Frame) extractVehicle(n int) {
	det := &f.vehicles[n]
	regions := f.overlapRegions(n)
	pts, idx := f.clipFrustumWithOverlap(n, regions)
	if len(pts) == 0 {
		return
	}
	normals := estimateNormals(pts, f.params.NormalRadius)
	members, ok := conditionalEuclideanCluster(pts, normals, &f.params)
	if !ok {
		det.Far = true
		det.DistanceFar = meanX(pts)
		return
	}

	cluster := make([]Point, len(members))
	for i, m := range members {
		cluster[i] = pts[m]
	}
	det.ClusterIndices = remapSorted(members, idx)
	det.ClusterPoints = cluster

	fit, boundary, residual := fitLShape(cluster, &f.params)
	if residual > 0 {
		if box, ok := reconstructBox(fit, boundary, cluster, det.Box, f.projector, &f.params); ok {
			det.Box3D = &box
		}
	}
}

// overlapRegions gathers the overlap rectangles between vehicle n and every
// occluder processed before it: flagged obstacles first, then flagged
// vehicles with a smaller index. Each region carries its occluder's global
// id for the claim lookup.
func (f *Frame) overlapRegions(n int) []Box2D {
	box := f.vehicles[n].Box
	var regions []Box2D
	for o := range f.obstacles {
		if f.table.ObstacleVehicle(o, n) {
			r := overlapBox(box, f.obstacles[o].Box)
			r.ID = f.table.numVehicles + o
			regions = append(regions, r)
		}
	}
	for j := 0; j < n; j++ {
		if f.table.VehiclePair(j, n) {
			r := overlapBox(box, f.vehicles[j].Box)
			r.ID = j
			regions = append(regions, r)
		}
	}
	return regions
}

// clipFrustum keeps every point beyond the forward cut whose projection
// falls inside the box, preserving input order.
func (f *Frame) clipFrustum(box Box2D) ([]Point, []int) {
	var pts []Point
	var idx []int
	for i, p := range f.cloud {
		if p.X <= f.params.MinFrustumX {
			continue
		}
		u, v := f.projector.Project(p)
		if box.Contains(u, v) {
			pts = append(pts, p)
			idx = append(idx, i)
		}
	}
	return pts, idx
}

// clipFrustumWithOverlap is the arbitrating variant for vehicles: a point
// inside the target box is dropped when it falls in an overlap region whose
// occluder has already claimed its cloud index. Unclaimed points inside
// overlap regions stay with the current vehicle.
func (f *Frame) clipFrustumWithOverlap(n int, regions []Box2D) ([]Point, []int) {
	box := f.vehicles[n].Box
	var pts []Point
	var idx []int
	for i, p := range f.cloud {
		if p.X <= f.params.MinOverlapFrustumX {
			continue
		}
		u, v := f.projector.Project(p)
		if !box.Contains(u, v) {
			continue
		}
		if f.claimedByOccluder(i, u, v, regions) {
			continue
		}
		pts = append(pts, p)
		idx = append(idx, i)
	}
	return pts, idx
}

func (f *Frame) claimedByOccluder(i int, u, v float64, regions []Box2D) bool {
	for _, r := range regions {
		if !r.Contains(u, v) {
			continue
		}
		var claimed []int
		if r.ID >= f.table.numVehicles {
			claimed = f.obstacles[r.ID-f.table.numVehicles].ClusterIndices
		} else {
			claimed = f.vehicles[r.ID].ClusterIndices
		}
		if containsIndex(claimed, i) {
			return true
		}
	}
	return false
}

// containsIndex binary-searches a sorted index slice.
func containsIndex(sorted []int, i int) bool {
	j := sort.SearchInts(sorted, i)
	return j < len(sorted) && sorted[j] == i
}

// remapSorted maps frustum-local member indices back to cloud indices,
// sorted ascending so later membership queries can binary search.
func remapSorted(members, idx []int) []int {
	out := make([]int, len(members))
	for i, m := range members {
		out[i] = idx[m]
	}
	sort.Ints(out)
	return out
}

// meanX is the coarse distance estimate recorded for far detections.
func meanX(pts []Point) float64 {
	xs := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
	}
	return stat.Mean(xs, nil)
}
