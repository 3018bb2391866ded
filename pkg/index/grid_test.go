package index_test

import (
	"math"
	"testing"

	"github.com/mdt-re/vorothree/pkg/geom"
	"github.com/mdt-re/vorothree/pkg/index"
)

func testBounds(t *testing.T) geom.Bounds {
	t.Helper()
	b, err := geom.NewBounds(geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10})
	if err != nil {
		t.Fatalf("NewBounds: %v", err)
	}
	return b
}

// latticePoints fills the bounds with an n^3 lattice of cell centres.
func latticePoints(n int) []geom.Vec3 {
	step := 10.0 / float64(n)
	pts := make([]geom.Vec3, 0, n*n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				pts = append(pts, geom.Vec3{
					(float64(x) + 0.5) * step,
					(float64(y) + 0.5) * step,
					(float64(z) + 0.5) * step,
				})
			}
		}
	}
	return pts
}

// checkShellContract drains a shell enumeration and verifies it yields
// every live point exactly once with valid, non-decreasing lower bounds.
func checkShellContract(t *testing.T, idx index.Index, from geom.Vec3) {
	t.Helper()
	it := idx.Shells(from)
	seen := make(map[int]bool)
	prev := math.Inf(-1)
	for {
		cand, ok := it.Next()
		if !ok {
			break
		}
		if seen[cand.ID] {
			t.Fatalf("id %d yielded twice", cand.ID)
		}
		seen[cand.ID] = true
		if cand.LowerBoundSq < prev {
			t.Fatalf("lower bound decreased: %v after %v", cand.LowerBoundSq, prev)
		}
		prev = cand.LowerBoundSq
		d := cand.Point.Sub(from)
		if actual := d.Dot(d); cand.LowerBoundSq > actual+1e-9 {
			t.Fatalf("lower bound %v exceeds actual squared distance %v for id %d",
				cand.LowerBoundSq, actual, cand.ID)
		}
	}
	if len(seen) != idx.Len() {
		t.Fatalf("enumeration yielded %d points, index holds %d", len(seen), idx.Len())
	}
}

func TestNewGridValidatesResolution(t *testing.T) {
	if _, err := index.NewGrid(testBounds(t), 0, 5, 5); err == nil {
		t.Error("zero bin count accepted")
	}
	if _, err := index.NewGrid(testBounds(t), 5, -1, 5); err == nil {
		t.Error("negative bin count accepted")
	}
}

func TestGridMutations(t *testing.T) {
	g, err := index.NewGrid(testBounds(t), 5, 5, 5)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	a := g.Insert(geom.Vec3{1, 1, 1})
	b := g.Insert(geom.Vec3{9, 9, 9})
	if a != 0 || b != 1 {
		t.Fatalf("ids = %d, %d, want 0, 1", a, b)
	}
	if g.Len() != 2 {
		t.Fatalf("Len = %d, want 2", g.Len())
	}

	if p, ok := g.PointOf(a); !ok || p != (geom.Vec3{1, 1, 1}) {
		t.Errorf("PointOf(%d) = %v, %v", a, p, ok)
	}

	if !g.Move(a, geom.Vec3{8, 8, 8}) {
		t.Error("Move on a live id failed")
	}
	if p, _ := g.PointOf(a); p != (geom.Vec3{8, 8, 8}) {
		t.Errorf("point after Move = %v", p)
	}

	if !g.Remove(b) {
		t.Error("Remove on a live id failed")
	}
	if g.Remove(b) {
		t.Error("Remove on a dead id succeeded")
	}
	if g.Move(b, geom.Vec3{5, 5, 5}) {
		t.Error("Move on a dead id succeeded")
	}
	if _, ok := g.PointOf(b); ok {
		t.Error("PointOf on a dead id succeeded")
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}

	// Ids stay stable after removal.
	c := g.Insert(geom.Vec3{2, 2, 2})
	if c != 2 {
		t.Errorf("next id = %d, want 2", c)
	}
}

func TestGridShellEnumeration(t *testing.T) {
	g, _ := index.NewGrid(testBounds(t), 5, 5, 5)
	g.SetPoints(latticePoints(6))

	checkShellContract(t, g, geom.Vec3{5, 5, 5})
	checkShellContract(t, g, geom.Vec3{0.1, 0.1, 0.1})
	checkShellContract(t, g, geom.Vec3{9.9, 0.1, 5})
}

func TestGridShellSkipsRemoved(t *testing.T) {
	g, _ := index.NewGrid(testBounds(t), 4, 4, 4)
	g.SetPoints(latticePoints(4))
	g.Remove(7)
	g.Remove(13)

	it := g.Shells(geom.Vec3{5, 5, 5})
	for {
		cand, ok := it.Next()
		if !ok {
			break
		}
		if cand.ID == 7 || cand.ID == 13 {
			t.Fatalf("removed id %d yielded", cand.ID)
		}
	}
}

func TestGridClampsOutliers(t *testing.T) {
	g, _ := index.NewGrid(testBounds(t), 4, 4, 4)
	// Outside the box: clamped into an edge bin, still enumerable.
	g.Insert(geom.Vec3{-5, 5, 5})
	g.Insert(geom.Vec3{15, 5, 5})

	it := g.Shells(geom.Vec3{5, 5, 5})
	count := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("enumerated %d clamped points, want 2", count)
	}
}

func TestGridNearestFirstOrdering(t *testing.T) {
	g, _ := index.NewGrid(testBounds(t), 10, 10, 10)
	g.SetPoints([]geom.Vec3{
		{5.1, 5, 5}, // nearest to the query
		{9.5, 5, 5},
		{5, 9.5, 5},
	})

	it := g.Shells(geom.Vec3{5, 5, 5})
	first, ok := it.Next()
	if !ok {
		t.Fatal("empty enumeration")
	}
	if first.ID != 0 {
		t.Errorf("first candidate id = %d, want the nearest point 0", first.ID)
	}
}
