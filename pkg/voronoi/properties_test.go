package voronoi_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/mdt-re/vorothree/pkg/geom"
	"github.com/mdt-re/vorothree/pkg/voronoi"
)

// cellVolumes returns the volume of every live cell.
func cellVolumes(t *testing.T, tess *voronoi.Tessellation, n int) []float64 {
	t.Helper()
	var vols []float64
	for id := 0; id < n; id++ {
		if c, ok := tess.Cell(id); ok && !c.Empty() {
			vols = append(vols, c.Volume())
		}
	}
	return vols
}

func TestVolumeConservation(t *testing.T) {
	cases := []struct {
		name string
		opts []voronoi.Option
		rel  float64
	}{
		{"grid", []voronoi.Option{voronoi.WithGrid(10, 10, 10)}, 1e-6},
		{"octree", []voronoi.Option{voronoi.WithOctree(16)}, 1e-6},
		{"sequential", []voronoi.Option{voronoi.WithGrid(10, 10, 10), voronoi.WithWorkers(1)}, 1e-6},
		// The adjacency representation tolerates eps-degenerate crossings
		// by dropping excess cut points, which can cost a little accuracy.
		{"grid/edges", []voronoi.Option{voronoi.WithGrid(10, 10, 10), voronoi.WithEdgeCells()}, 1e-4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, tc.opts...)
			placed := tess.RandomGenerators(1000, 7)
			if placed != 1000 {
				t.Fatalf("placed %d generators, want 1000", placed)
			}
			calculate(t, tess)

			var total float64
			for _, v := range cellVolumes(t, tess, placed) {
				total += v
			}
			if rel := math.Abs(total-1000) / 1000; rel > tc.rel {
				t.Errorf("total volume = %v, want 1000 within %v relative (got %e)", total, tc.rel, rel)
			}
		})
	}
}

func TestCellInvariants(t *testing.T) {
	tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, voronoi.WithGrid(5, 5, 5))
	placed := tess.RandomGenerators(200, 11)
	calculate(t, tess)

	bounds := tess.Bounds()
	for id := 0; id < placed; id++ {
		c, ok := tess.Cell(id)
		if !ok || c.Empty() {
			continue
		}
		if err := c.CheckTopology(); err != nil {
			t.Fatalf("cell %d: %v", id, err)
		}
		if v := c.Volume(); v < 0 {
			t.Errorf("cell %d has negative volume %v", id, v)
		}

		verts := c.Vertices()
		for i := 0; i+2 < len(verts); i += 3 {
			p := geom.Vec3{verts[i], verts[i+1], verts[i+2]}
			if !bounds.Contains(p, 1e-9*bounds.Diagonal()) {
				t.Fatalf("cell %d vertex %v escapes the bounds", id, p)
			}
		}

		// The centroid of a convex cell lies inside it: on the negative
		// side of every face plane.
		centroid := c.Centroid()
		faces := c.Faces()
		for f, loop := range faces {
			q := c.FaceCentroid(f)
			n := c.FaceNormal(f)
			if len(loop) < 3 {
				t.Fatalf("cell %d face %d has %d vertices", id, f, len(loop))
			}
			if d := centroid.Sub(q).Dot(n); d > 1e-9 {
				t.Errorf("cell %d centroid is %v outside face %d", id, d, f)
			}
		}
	}
}

func TestBisectorEquidistance(t *testing.T) {
	tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, voronoi.WithGrid(5, 5, 5))
	placed := tess.RandomGenerators(100, 3)
	calculate(t, tess)

	for id := 0; id < placed; id++ {
		c, ok := tess.Cell(id)
		if !ok || c.Empty() {
			continue
		}
		seed, _ := tess.GeneratorPoint(id)
		verts := c.Vertices()
		faces := c.Faces()
		diam := 2 * math.Sqrt(c.MaxRadiusSq(seed))

		for f, n := range c.FaceNeighbors() {
			if n < 0 {
				continue
			}
			other, ok := tess.GeneratorPoint(int(n))
			if !ok {
				t.Fatalf("cell %d refers to missing generator %d", id, n)
			}
			for _, vi := range faces[f] {
				p := geom.Vec3{verts[vi*3], verts[vi*3+1], verts[vi*3+2]}
				dSeed := p.Sub(seed).Len()
				dOther := p.Sub(other).Len()
				if math.Abs(dSeed-dOther) > 1e-6*diam {
					t.Fatalf("cell %d face %d vertex %v: %v from seed, %v from neighbor %d",
						id, f, p, dSeed, dOther, n)
				}
			}
		}
	}
}

func TestNeighborSymmetry(t *testing.T) {
	tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, voronoi.WithGrid(5, 5, 5))
	placed := tess.RandomGenerators(100, 5)
	calculate(t, tess)

	const sliverArea = 1e-8

	for id := 0; id < placed; id++ {
		c, ok := tess.Cell(id)
		if !ok || c.Empty() {
			continue
		}
		for f, n := range c.FaceNeighbors() {
			if n < 0 {
				continue
			}
			area := c.FaceArea(f)
			if area < sliverArea {
				continue
			}
			other, ok := tess.Cell(int(n))
			if !ok {
				t.Fatalf("cell %d names neighbor %d which has no cell", id, n)
			}
			match := -1
			for g, m := range other.FaceNeighbors() {
				if m == int32(id) {
					match = g
					break
				}
			}
			if match < 0 {
				t.Fatalf("cell %d claims neighbor %d, but not vice versa", id, n)
			}
			if otherArea := other.FaceArea(match); math.Abs(area-otherArea) > 1e-6*(1+area) {
				t.Errorf("shared face %d<->%d has asymmetric areas %v and %v",
					id, n, area, otherArea)
			}
		}
	}
}

func TestLloydRelaxationReducesVariance(t *testing.T) {
	tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, voronoi.WithGrid(5, 5, 5))

	// Clustered start: all generators crowded into one corner.
	rng := rand.New(rand.NewSource(23))
	coords := make([]float64, 0, 300)
	for i := 0; i < 100; i++ {
		coords = append(coords,
			rng.Float64()*2,
			rng.Float64()*2,
			rng.Float64()*2,
		)
	}
	if err := tess.SetGenerators(coords); err != nil {
		t.Fatalf("SetGenerators: %v", err)
	}

	variance := func() float64 {
		calculate(t, tess)
		vols := cellVolumes(t, tess, 100)
		var mean float64
		for _, v := range vols {
			mean += v
		}
		mean /= float64(len(vols))
		var sum float64
		for _, v := range vols {
			sum += (v - mean) * (v - mean)
		}
		return sum / float64(len(vols))
	}

	before := variance()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := tess.Relax(ctx); err != nil {
			t.Fatalf("Relax step %d: %v", i, err)
		}
	}
	after := variance()

	if after >= before {
		t.Errorf("20 Lloyd steps did not reduce volume variance: %v -> %v", before, after)
	}
}

func TestCalculateCancellation(t *testing.T) {
	tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, voronoi.WithGrid(5, 5, 5))
	tess.RandomGenerators(100, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tess.Calculate(ctx)
	if err == nil {
		t.Fatal("cancelled Calculate succeeded")
	}
	if got := context.Cause(ctx); got != context.Canceled {
		t.Fatalf("unexpected cause %v", got)
	}
	// Partial results are discarded.
	if tess.CountCells() != 0 {
		t.Errorf("CountCells = %d after cancellation, want 0", tess.CountCells())
	}

	// A fresh context recovers.
	if err := tess.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate after cancellation: %v", err)
	}
}

func TestDeterministicAcrossIndexes(t *testing.T) {
	build := func(opt voronoi.Option) []float64 {
		tess := newTess(t, geom.Vec3{0, 0, 0}, geom.Vec3{10, 10, 10}, opt)
		placed := tess.RandomGenerators(150, 17)
		calculate(t, tess)
		vols := make([]float64, placed)
		for id := 0; id < placed; id++ {
			if c, ok := tess.Cell(id); ok {
				vols[id] = c.Volume()
			}
		}
		return vols
	}

	gridVols := build(voronoi.WithGrid(6, 6, 6))
	octreeVols := build(voronoi.WithOctree(8))
	if len(gridVols) != len(octreeVols) {
		t.Fatalf("cell counts differ: %d vs %d", len(gridVols), len(octreeVols))
	}
	for id := range gridVols {
		if math.Abs(gridVols[id]-octreeVols[id]) > 1e-9 {
			t.Errorf("cell %d volume differs between indexes: %v vs %v",
				id, gridVols[id], octreeVols[id])
		}
	}
}
