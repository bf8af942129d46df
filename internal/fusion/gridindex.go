package fusion

import "math"

// estimatedPointsPerCell sizes the initial cell map.
const estimatedPointsPerCell = 4

// gridIndex is a regular-grid spatial index over a frustum point set,
// backing the fixed-radius neighbour queries of normal estimation and
// region growing. The cell size matches the query radius so a 3×3×3 cell
// neighbourhood covers the whole search ball.
type gridIndex struct {
	cellSize float64
	cells    map[gridCell][]int
}

type gridCell struct{ x, y, z int32 }

func newGridIndex(points []Point, cellSize float64) *gridIndex {
	g := &gridIndex{
		cellSize: cellSize,
		cells:    make(map[gridCell][]int, len(points)/estimatedPointsPerCell+1),
	}
	for i, p := range points {
		c := g.cellOf(p.X, p.Y, p.Z)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

func (g *gridIndex) cellOf(x, y, z float64) gridCell {
	return gridCell{
		x: int32(math.Floor(x / g.cellSize)),
		y: int32(math.Floor(y / g.cellSize)),
		z: int32(math.Floor(z / g.cellSize)),
	}
}

// radiusSearch appends to dst the indices of every point within radius of
// points[idx] (idx itself included) and returns the extended slice. Callers
// pass dst[:0] of a scratch slice to avoid per-query allocation.
func (g *gridIndex) radiusSearch(points []Point, idx int, radius float64, dst []int) []int {
	p := points[idx]
	r2 := radius * radius
	base := g.cellOf(p.X, p.Y, p.Z)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				cell := gridCell{base.x + dx, base.y + dy, base.z + dz}
				for _, ci := range g.cells[cell] {
					q := points[ci]
					ddx := q.X - p.X
					ddy := q.Y - p.Y
					ddz := q.Z - p.Z
					if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
						dst = append(dst, ci)
					}
				}
			}
		}
	}
	return dst
}

func squaredDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}
