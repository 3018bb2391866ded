package index_test

import (
	"math"
	"testing"

	"github.com/mdt-re/vorothree/pkg/geom"
	"github.com/mdt-re/vorothree/pkg/index"
)

func TestNewOctreeValidatesCapacity(t *testing.T) {
	if _, err := index.NewOctree(testBounds(t), 0); err == nil {
		t.Error("zero capacity accepted")
	}
	if _, err := index.NewOctree(testBounds(t), -4); err == nil {
		t.Error("negative capacity accepted")
	}
}

func TestOctreeMutations(t *testing.T) {
	o, err := index.NewOctree(testBounds(t), 4)
	if err != nil {
		t.Fatalf("NewOctree: %v", err)
	}

	a := o.Insert(geom.Vec3{1, 1, 1})
	b := o.Insert(geom.Vec3{9, 9, 9})
	if a != 0 || b != 1 {
		t.Fatalf("ids = %d, %d, want 0, 1", a, b)
	}
	if o.Len() != 2 {
		t.Fatalf("Len = %d, want 2", o.Len())
	}

	if !o.Move(a, geom.Vec3{2, 2, 2}) {
		t.Error("Move on a live id failed")
	}
	if p, _ := o.PointOf(a); p != (geom.Vec3{2, 2, 2}) {
		t.Errorf("point after Move = %v", p)
	}

	if !o.Remove(b) {
		t.Error("Remove on a live id failed")
	}
	if o.Remove(b) {
		t.Error("Remove on a dead id succeeded")
	}
	if o.Len() != 1 {
		t.Errorf("Len = %d, want 1", o.Len())
	}
}

func TestOctreeSplitsBeyondCapacity(t *testing.T) {
	o, _ := index.NewOctree(testBounds(t), 2)
	// More points than one leaf can hold, so leaves split repeatedly.
	o.SetPoints(latticePoints(3))
	if o.Len() != 27 {
		t.Fatalf("Len = %d, want 27", o.Len())
	}
	checkShellContract(t, o, geom.Vec3{5, 5, 5})
}

func TestOctreeShellEnumerationIsSorted(t *testing.T) {
	o, _ := index.NewOctree(testBounds(t), 4)
	o.SetPoints(latticePoints(5))
	from := geom.Vec3{2.3, 7.1, 4.9}

	it := o.Shells(from)
	prev := math.Inf(-1)
	count := 0
	for {
		cand, ok := it.Next()
		if !ok {
			break
		}
		d := cand.Point.Sub(from)
		actual := d.Dot(d)
		// The octree yields exact distances, so the bound is tight and
		// the sequence is globally sorted.
		if math.Abs(cand.LowerBoundSq-actual) > 1e-9 {
			t.Fatalf("bound %v differs from exact distance %v", cand.LowerBoundSq, actual)
		}
		if actual < prev-1e-12 {
			t.Fatalf("distance order violated: %v after %v", actual, prev)
		}
		prev = actual
		count++
	}
	if count != o.Len() {
		t.Fatalf("enumerated %d points, index holds %d", count, o.Len())
	}
}

func TestOctreeShellSkipsRemoved(t *testing.T) {
	o, _ := index.NewOctree(testBounds(t), 4)
	o.SetPoints(latticePoints(4))
	o.Remove(0)
	o.Remove(63)

	it := o.Shells(geom.Vec3{5, 5, 5})
	for {
		cand, ok := it.Next()
		if !ok {
			break
		}
		if cand.ID == 0 || cand.ID == 63 {
			t.Fatalf("removed id %d yielded", cand.ID)
		}
	}
}
