package geom_test

import (
	"math"
	"testing"

	"github.com/mdt-re/vorothree/pkg/geom"
)

func TestNewBoundsRejectsDegenerate(t *testing.T) {
	cases := []struct {
		name     string
		min, max geom.Vec3
	}{
		{"inverted", geom.Vec3{1, 0, 0}, geom.Vec3{0, 1, 1}},
		{"flat", geom.Vec3{0, 0, 0}, geom.Vec3{1, 1, 0}},
		{"equal", geom.Vec3{1, 1, 1}, geom.Vec3{1, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := geom.NewBounds(tc.min, tc.max); err == nil {
				t.Errorf("NewBounds(%v, %v) succeeded, want error", tc.min, tc.max)
			}
		})
	}
}

func TestBoundsQueries(t *testing.T) {
	b, err := geom.NewBounds(geom.Vec3{0, 0, 0}, geom.Vec3{2, 4, 6})
	if err != nil {
		t.Fatalf("NewBounds: %v", err)
	}

	if got := b.Volume(); got != 48 {
		t.Errorf("Volume = %v, want 48", got)
	}
	if got := b.Center(); got != (geom.Vec3{1, 2, 3}) {
		t.Errorf("Center = %v, want (1 2 3)", got)
	}
	want := math.Sqrt(4 + 16 + 36)
	if got := b.Diagonal(); math.Abs(got-want) > 1e-12 {
		t.Errorf("Diagonal = %v, want %v", got, want)
	}

	if !b.Contains(geom.Vec3{1, 1, 1}, 0) {
		t.Error("Contains rejected an interior point")
	}
	if !b.Contains(geom.Vec3{2, 4, 6}, 0) {
		t.Error("Contains rejected a corner point")
	}
	if b.Contains(geom.Vec3{2.1, 1, 1}, 1e-9) {
		t.Error("Contains accepted an exterior point")
	}
}

func TestBoundsDistSq(t *testing.T) {
	b, _ := geom.NewBounds(geom.Vec3{0, 0, 0}, geom.Vec3{1, 1, 1})

	if got := b.DistSq(geom.Vec3{0.5, 0.5, 0.5}); got != 0 {
		t.Errorf("DistSq inside = %v, want 0", got)
	}
	if got := b.DistSq(geom.Vec3{2, 0.5, 0.5}); math.Abs(got-1) > 1e-12 {
		t.Errorf("DistSq along x = %v, want 1", got)
	}
	if got := b.DistSq(geom.Vec3{2, 2, 0.5}); math.Abs(got-2) > 1e-12 {
		t.Errorf("DistSq along diagonal = %v, want 2", got)
	}
}

func TestOctantsPartitionBox(t *testing.T) {
	b, _ := geom.NewBounds(geom.Vec3{0, 0, 0}, geom.Vec3{2, 2, 2})
	var total float64
	for i := 0; i < 8; i++ {
		o := b.Octant(i)
		total += o.Volume()
		if o.Volume() != 1 {
			t.Errorf("octant %d volume = %v, want 1", i, o.Volume())
		}
	}
	if total != b.Volume() {
		t.Errorf("octants sum to %v, want %v", total, b.Volume())
	}
}

func TestTolerance(t *testing.T) {
	if got := geom.Tolerance(0.5); got != geom.BaseEpsilon {
		t.Errorf("Tolerance(0.5) = %v, want base", got)
	}
	diagonal := 100.0
	if got := geom.Tolerance(diagonal); got != geom.BaseEpsilon*diagonal {
		t.Errorf("Tolerance(100) = %v, want scaled", got)
	}
}
