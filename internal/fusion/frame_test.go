package fusion

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustFrame(t *testing.T, cloud []Point, vehicles, obstacles []Box2D) *Frame {
	t.Helper()
	f, err := NewFrame(cloud, vehicles, obstacles, testCalib(), DefaultParams())
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

// checkDetectionInvariants asserts the frame-wide guarantees: cluster index
// sets are strictly ascending and mutually disjoint across all detections.
func checkDetectionInvariants(t *testing.T, f *Frame) {
	t.Helper()
	seen := map[int]bool{}
	claim := func(kind string, d int, indices []int) {
		if !isSortedStrict(indices) {
			t.Errorf("%s %d cluster indices not strictly ascending: %v", kind, d, indices)
		}
		for _, i := range indices {
			if seen[i] {
				t.Errorf("%s %d re-claims cloud index %d", kind, d, i)
			}
			seen[i] = true
		}
	}
	for i, d := range f.Obstacles() {
		claim("obstacle", i, d.ClusterIndices)
	}
	for i, d := range f.Vehicles() {
		claim("vehicle", i, d.ClusterIndices)
	}
}

func TestSingleIsolatedCar(t *testing.T) {
	cloud := carPoints(10, 0.2)
	vbox := boxAround(cloud, "car")

	f := mustFrame(t, cloud, []Box2D{vbox}, nil)
	f.Process()

	dets := f.Vehicles()
	if len(dets) != 1 {
		t.Fatalf("got %d detections, want 1", len(dets))
	}
	det := dets[0]
	if det.Far {
		t.Fatal("isolated car flagged far")
	}
	if len(det.ClusterIndices) != len(cloud) {
		t.Fatalf("cluster holds %d of %d points", len(det.ClusterIndices), len(cloud))
	}
	if det.Box3D == nil {
		t.Fatal("no 3-D box reconstructed")
	}
	b := det.Box3D
	if !floatEquals(b.Length, 4.2, 0.3) {
		t.Errorf("length = %f, want ≈4.2", b.Length)
	}
	if !floatEquals(b.Width, 1.8, 0.25) {
		t.Errorf("width = %f, want ≈1.8", b.Width)
	}
	if math.Abs(b.Heading) > 0.05 {
		t.Errorf("heading = %f, want ≈0", b.Heading)
	}
	if !floatEquals(b.Height, 1.2, 0.02) {
		t.Errorf("height = %f, want 1.2", b.Height)
	}
	if !floatEquals(b.X, 12.1, 0.3) || !floatEquals(b.Y, 1.1, 0.3) {
		t.Errorf("centre = (%f, %f), want ≈(12.1, 1.1)", b.X, b.Y)
	}
	if !floatEquals(b.Z, -0.8, 0.02) {
		t.Errorf("centre z = %f, want -0.8", b.Z)
	}
	if !floatEquals(b.CornerX, 10, 0.25) || !floatEquals(b.CornerY, 0.2, 0.25) {
		t.Errorf("corner = (%f, %f), want ≈(10, 0.2)", b.CornerX, b.CornerY)
	}
	checkDetectionInvariants(t, f)
}

func TestTwoCarsSideBySide(t *testing.T) {
	left := carPoints(10, 0.2)
	right := carPointsMirror(10, -0.4)
	cloud := append(append([]Point(nil), left...), right...)

	leftBox := boxAround(left, "car")
	rightBox := boxAround(right, "car")

	f := mustFrame(t, cloud, []Box2D{leftBox, rightBox}, nil)
	f.Process()

	if got := len(f.Groups()); got != 2 {
		t.Fatalf("got %d groups, want 2", got)
	}
	for i, g := range f.Groups() {
		if len(g) != 1 {
			t.Errorf("group %d has %d members, want 1", i, len(g))
		}
	}
	dets := f.Vehicles()
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2", len(dets))
	}
	// Length runs along line 1, the face swept first in polar angle: the
	// side face of the left car but the rear face of the mirrored one.
	want := []struct{ length, lengthTol, width, widthTol float64 }{
		{4.2, 0.3, 1.8, 0.25},
		{1.8, 0.25, 4.2, 0.3},
	}
	for i, det := range dets {
		if det.Far {
			t.Errorf("detection %d flagged far", i)
		}
		if det.Box3D == nil {
			t.Errorf("detection %d missing 3-D box", i)
			continue
		}
		if !floatEquals(det.Box3D.Length, want[i].length, want[i].lengthTol) {
			t.Errorf("detection %d length = %f, want ≈%.1f", i, det.Box3D.Length, want[i].length)
		}
		if !floatEquals(det.Box3D.Width, want[i].width, want[i].widthTol) {
			t.Errorf("detection %d width = %f, want ≈%.1f", i, det.Box3D.Width, want[i].width)
		}
	}
	checkDetectionInvariants(t, f)
}

func TestOccludedCarPairSharesGroupAndSplitsPoints(t *testing.T) {
	near := carPoints(10, 0.2)
	far := carPoints(16, 0.3)
	cloud := append(append([]Point(nil), near...), far...)

	nearBox := boxAround(near, "car")
	farBox := boxAround(far, "car")

	f := mustFrame(t, cloud, []Box2D{nearBox, farBox}, nil)
	f.Process()

	groups := f.Groups()
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("groups = %v, want one group of two", groups)
	}

	dets := f.Vehicles()
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2", len(dets))
	}
	// Sorting by descending ymax puts the near car first.
	if dets[0].Box.YMax < dets[1].Box.YMax {
		t.Fatal("near car not processed first")
	}
	if len(dets[0].ClusterIndices) != len(near) {
		t.Errorf("near car cluster = %d points, want %d", len(dets[0].ClusterIndices), len(near))
	}
	if len(dets[1].ClusterIndices) != len(far) {
		t.Errorf("far car cluster = %d points, want %d", len(dets[1].ClusterIndices), len(far))
	}
	for i, det := range dets {
		if det.Box3D == nil {
			t.Errorf("detection %d missing 3-D box", i)
			continue
		}
		if !floatEquals(det.Box3D.Length, 4.2, 0.35) {
			t.Errorf("detection %d length = %f, want ≈4.2", i, det.Box3D.Length)
		}
		if !floatEquals(det.Box3D.Width, 1.8, 0.25) {
			t.Errorf("detection %d width = %f, want ≈1.8", i, det.Box3D.Width)
		}
	}
	checkDetectionInvariants(t, f)
}

func TestObstacleClaimsPointsBeforeVehicle(t *testing.T) {
	car := carPoints(10, 0.2)

	// Pedestrian blob between sensor and car, projecting over the car box.
	var ped []Point
	for xi := 0; xi < 2; xi++ {
		x := 7 + 0.1*float64(xi)
		for yi := 0; yi < 6; yi++ {
			y := 0.95 + 0.1*float64(yi)
			for zi := 0; zi < 5; zi++ {
				z := -1.0 + 0.2*float64(zi)
				ped = append(ped, Point{X: x, Y: y, Z: z, Intensity: 200})
			}
		}
	}

	cloud := append(append([]Point(nil), car...), ped...)
	carBox := boxAround(car, "car")
	pedBox := boxAround(ped, "person")

	f := mustFrame(t, cloud, []Box2D{carBox}, []Box2D{pedBox})
	f.Process()

	obs := f.Obstacles()
	if len(obs) != 1 {
		t.Fatalf("got %d obstacle detections, want 1", len(obs))
	}
	if obs[0].Far {
		t.Fatal("pedestrian flagged far")
	}
	if len(obs[0].ClusterIndices) != len(ped) {
		t.Errorf("pedestrian cluster = %d points, want %d", len(obs[0].ClusterIndices), len(ped))
	}
	// Every claimed index belongs to the pedestrian's slice of the cloud.
	for _, i := range obs[0].ClusterIndices {
		if i < len(car) {
			t.Errorf("pedestrian claimed car point %d", i)
		}
	}

	dets := f.Vehicles()
	if len(dets) != 1 {
		t.Fatalf("got %d vehicle detections, want 1", len(dets))
	}
	det := dets[0]
	if det.Far {
		t.Fatal("car flagged far")
	}
	if len(det.ClusterIndices) != len(car) {
		t.Errorf("car cluster = %d points, want %d", len(det.ClusterIndices), len(car))
	}
	if det.Box3D == nil {
		t.Fatal("car lost its 3-D box to the occluder")
	}
	if !floatEquals(det.Box3D.Length, 4.2, 0.3) || !floatEquals(det.Box3D.Width, 1.8, 0.25) {
		t.Errorf("car box = %f × %f, want ≈4.2 × 1.8", det.Box3D.Length, det.Box3D.Width)
	}
	checkDetectionInvariants(t, f)
}

func TestCoincidentBoxesStarveTheSecondVehicle(t *testing.T) {
	cloud := carPoints(10, 0.2)
	vbox := boxAround(cloud, "car")
	other := vbox
	other.YMax -= 1e-9 // keep the sort deterministic

	f := mustFrame(t, cloud, []Box2D{vbox, other}, nil)
	f.Process()

	groups := f.Groups()
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("groups = %v, want one group of two", groups)
	}
	dets := f.Vehicles()
	if len(dets[0].ClusterIndices) != len(cloud) {
		t.Fatalf("first vehicle cluster = %d points, want all %d", len(dets[0].ClusterIndices), len(cloud))
	}
	second := dets[1]
	if second.Far {
		t.Error("starved vehicle flagged far; its frustum was empty, not unclusterable")
	}
	if len(second.ClusterIndices) != 0 || second.Box3D != nil {
		t.Error("starved vehicle still produced a cluster or box")
	}
	if second.DistanceFar != 0 {
		t.Errorf("starved vehicle distance = %f, want 0", second.DistanceFar)
	}
	checkDetectionInvariants(t, f)
}

func TestWallClusterWithoutBoundaryGetsNoBox(t *testing.T) {
	// A narrow frontal wall: clusters fine, but its boundary collapses to a
	// couple of angular buckets so no L-fit is attempted.
	var cloud []Point
	for yi := 0; yi < 10; yi++ {
		y := 0.005 * float64(yi)
		for _, z := range []float64{-1.4, -1.0, -0.6, -0.2} {
			cloud = append(cloud, Point{X: 10, Y: y, Z: z, Intensity: 50})
		}
	}
	vbox := boxAround(cloud, "car")

	f := mustFrame(t, cloud, []Box2D{vbox}, nil)
	f.Process()

	det := f.Vehicles()[0]
	if det.Far {
		t.Fatal("wall cluster flagged far")
	}
	if len(det.ClusterIndices) != len(cloud) {
		t.Errorf("cluster = %d points, want %d", len(det.ClusterIndices), len(cloud))
	}
	if det.Box3D != nil {
		t.Error("degenerate boundary still produced a 3-D box")
	}
}

func TestSparseFrustumFallsBackToFar(t *testing.T) {
	cloud := []Point{
		{X: 10, Y: 0, Z: 0, Intensity: 10},
		{X: 12, Y: 1, Z: 0, Intensity: 10},
		{X: 14, Y: 2, Z: 0, Intensity: 10},
	}
	vbox := boxAround(cloud, "car")

	f := mustFrame(t, cloud, []Box2D{vbox}, nil)
	f.Process()

	det := f.Vehicles()[0]
	if !det.Far {
		t.Fatal("sparse frustum not flagged far")
	}
	if !floatEquals(det.DistanceFar, 12, 1e-9) {
		t.Errorf("distance estimate = %f, want 12", det.DistanceFar)
	}
	if len(det.ClusterIndices) != 0 || det.Box3D != nil {
		t.Error("far detection carries cluster state")
	}
}

func TestEmptyVehicleListStillRunsObstaclePass(t *testing.T) {
	cloud := carPoints(10, 0.2)
	obox := boxAround(cloud, "person")

	f := mustFrame(t, cloud, nil, []Box2D{obox})
	f.Process()

	if len(f.Vehicles()) != 0 {
		t.Errorf("got %d vehicle detections, want 0", len(f.Vehicles()))
	}
	// With no vehicles the obstacle occludes nothing, so it stays untouched.
	obs := f.Obstacles()
	if len(obs) != 1 || obs[0].Far || len(obs[0].ClusterIndices) != 0 {
		t.Errorf("obstacle pass output unexpected: %+v", obs)
	}
}

func TestEmptyFrustumVehicle(t *testing.T) {
	cloud := carPoints(10, 0.2)
	sky := box(2000, 2000, 2100, 2100)

	f := mustFrame(t, cloud, []Box2D{sky}, nil)
	f.Process()

	det := f.Vehicles()[0]
	if det.Far || det.Box3D != nil || len(det.ClusterIndices) != 0 || det.DistanceFar != 0 {
		t.Errorf("empty frustum detection = %+v, want zero-valued", det)
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	build := func() *Frame {
		near := carPoints(10, 0.2)
		far := carPoints(16, 0.3)
		cloud := append(append([]Point(nil), near...), far...)
		f := mustFrame(t, cloud, []Box2D{boxAround(near, "car"), boxAround(far, "car")}, nil)
		f.Process()
		return f
	}
	a, b := build(), build()
	if diff := cmp.Diff(a.Vehicles(), b.Vehicles()); diff != "" {
		t.Errorf("vehicle outputs differ between runs:\n%s", diff)
	}
	if diff := cmp.Diff(a.Obstacles(), b.Obstacles()); diff != "" {
		t.Errorf("obstacle outputs differ between runs:\n%s", diff)
	}
}

func TestVehicleInputOrderIrrelevant(t *testing.T) {
	near := carPoints(10, 0.2)
	far := carPoints(16, 0.3)
	cloud := append(append([]Point(nil), near...), far...)
	nearBox := boxAround(near, "car")
	farBox := boxAround(far, "car")

	f1 := mustFrame(t, cloud, []Box2D{nearBox, farBox}, nil)
	f1.Process()
	f2 := mustFrame(t, cloud, []Box2D{farBox, nearBox}, nil)
	f2.Process()

	if diff := cmp.Diff(f1.Vehicles(), f2.Vehicles()); diff != "" {
		t.Errorf("permuting vehicle boxes changed the output:\n%s", diff)
	}
}

func TestNewFrameContractViolations(t *testing.T) {
	cloud := carPoints(10, 0.2)
	vbox := boxAround(cloud, "car")

	bad := append([]Point(nil), cloud...)
	bad[3].Z = math.NaN()
	if _, err := NewFrame(bad, []Box2D{vbox}, nil, testCalib(), DefaultParams()); err == nil {
		t.Error("NaN point accepted")
	}

	flipped := vbox
	flipped.XMin, flipped.XMax = flipped.XMax, flipped.XMin
	if _, err := NewFrame(cloud, []Box2D{flipped}, nil, testCalib(), DefaultParams()); err == nil {
		t.Error("inverted box accepted")
	}

	if _, err := NewFrame(cloud, nil, []Box2D{{XMin: 0, YMin: 0, XMax: 0, YMax: 10}}, testCalib(), DefaultParams()); err == nil {
		t.Error("zero-width obstacle box accepted")
	}
}
