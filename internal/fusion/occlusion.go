package fusion

import (
	"math"
	"sort"
)

// OcclusionTable records pairwise occlusion between the frame's 2-D boxes.
// Rows 0..V-1 belong to vehicles and store only the strictly-upper entries
// (columns offset by i+1); rows V..V+O-1 belong to obstacles and store one
// entry per vehicle column.
type OcclusionTable struct {
	numVehicles int
	rows        [][]bool
}

func buildOcclusionTable(vehicles, obstacles []Box2D, tau float64) *OcclusionTable {
	t := &OcclusionTable{
		numVehicles: len(vehicles),
		rows:        make([][]bool, 0, len(vehicles)+len(obstacles)),
	}
	for i := range vehicles {
		row := make([]bool, len(vehicles)-i-1)
		for j := i + 1; j < len(vehicles); j++ {
			row[j-i-1] = occluded(vehicles[i], vehicles[j], tau)
		}
		t.rows = append(t.rows, row)
	}
	for i := range obstacles {
		row := make([]bool, len(vehicles))
		for j := range vehicles {
			row[j] = occluded(obstacles[i], vehicles[j], tau)
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// VehiclePair reports whether vehicles i and j (i < j) occlude one another.
func (t *OcclusionTable) VehiclePair(i, j int) bool { return t.rows[i][j-i-1] }

// ObstacleVehicle reports whether obstacle o occludes vehicle v.
func (t *OcclusionTable) ObstacleVehicle(o, v int) bool {
	return t.rows[t.numVehicles+o][v]
}

// ObstacleOccludesAny reports whether obstacle o occludes any vehicle.
func (t *OcclusionTable) ObstacleOccludesAny(o int) bool {
	for _, flag := range t.rows[t.numVehicles+o] {
		if flag {
			return true
		}
	}
	return false
}

// occluded is the containment predicate between candidate occluder a and
// occludee b: the axis overlaps must exceed tau times b's extents on both
// axes. It is deliberately asymmetric in b.
func occluded(a, b Box2D, tau float64) bool {
	overlapW := (a.Width()+b.Width())/2 - math.Abs(a.CenterX()-b.CenterX())
	overlapH := (a.Height()+b.Height())/2 - math.Abs(a.CenterY()-b.CenterY())
	return overlapW > tau*b.Width() && overlapH > tau*b.Height()
}

// groupVehicles partitions vehicle indices into connected components of the
// vehicle–vehicle occlusion subtable. Components are discovered in index
// order (vehicles are already sorted near-to-far); members are sorted
// ascending, which is also the processing order within the group.
func groupVehicles(t *OcclusionTable) [][]int {
	n := t.numVehicles
	grouped := make([]bool, n)
	var groups [][]int
	for seed := 0; seed < n; seed++ {
		if grouped[seed] {
			continue
		}
		var members []int
		var visit func(int)
		visit = func(i int) {
			grouped[i] = true
			members = append(members, i)
			for j := 0; j < n; j++ {
				if grouped[j] {
					continue
				}
				lo, hi := i, j
				if lo > hi {
					lo, hi = hi, lo
				}
				if t.VehiclePair(lo, hi) {
					visit(j)
				}
			}
		}
		visit(seed)
		sort.Ints(members)
		groups = append(groups, members)
	}
	return groups
}
