package index

import (
	"fmt"
	"sort"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Compile-time interface check.
var _ Index = (*Grid)(nil)

// Grid partitions the bounding box into nx*ny*nz equal bins. Points outside
// the box are clamped into the nearest edge bin. Mutations are O(1); shell
// enumeration walks a precomputed bin order sorted by a conservative lower
// bound on the bin distance.
type Grid struct {
	bounds     geom.Bounds
	nx, ny, nz int
	scale      [3]float64 // coordinate -> bin index
	limit      [3]float64 // highest fractional index per axis
	binSize    [3]float64

	bins   [][]int
	points []geom.Vec3
	alive  []bool
	binOf  []int
	live   int

	// order visits bin offsets around a query bin by increasing lower
	// bound. The bound is valid for any query position inside the base
	// bin, so sorting it once at construction is enough.
	order []shellStep
}

type shellStep struct {
	dx, dy, dz int
	distSq     float64
}

// NewGrid constructs an empty grid over bounds with the given resolution.
func NewGrid(bounds geom.Bounds, nx, ny, nz int) (*Grid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("grid resolution %dx%dx%d must be positive on every axis", nx, ny, nz)
	}
	size := bounds.Size()
	g := &Grid{
		bounds: bounds,
		nx:     nx, ny: ny, nz: nz,
		scale: [3]float64{
			float64(nx) / size[0],
			float64(ny) / size[1],
			float64(nz) / size[2],
		},
		limit: [3]float64{
			float64(nx) - 1e-5,
			float64(ny) - 1e-5,
			float64(nz) - 1e-5,
		},
		bins: make([][]int, nx*ny*nz),
	}
	g.binSize = [3]float64{1 / g.scale[0], 1 / g.scale[1], 1 / g.scale[2]}

	g.order = make([]shellStep, 0, (2*nx+1)*(2*ny+1)*(2*nz+1))
	for dz := -nz; dz <= nz; dz++ {
		for dy := -ny; dy <= ny; dy++ {
			for dx := -nx; dx <= nx; dx++ {
				g.order = append(g.order, shellStep{
					dx: dx, dy: dy, dz: dz,
					distSq: binLowerBoundSq(dx, dy, dz, g.binSize),
				})
			}
		}
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i].distSq < g.order[j].distSq })
	return g, nil
}

// binLowerBoundSq bounds the squared distance between any point of the
// query bin and any point of the bin at offset (dx, dy, dz) from below.
func binLowerBoundSq(dx, dy, dz int, binSize [3]float64) float64 {
	axis := func(d int, size float64) float64 {
		if d > 0 {
			return float64(d-1) * size
		}
		if d < 0 {
			return float64(-d-1) * size
		}
		return 0
	}
	mx := axis(dx, binSize[0])
	my := axis(dy, binSize[1])
	mz := axis(dz, binSize[2])
	return mx*mx + my*my + mz*mz
}

// binCoords returns the clamped bin coordinates of p.
func (g *Grid) binCoords(p geom.Vec3) (int, int, int) {
	clamp := func(v, limit float64) int {
		if v < 0 {
			v = 0
		} else if v > limit {
			v = limit
		}
		return int(v)
	}
	ix := clamp((p[0]-g.bounds.Min[0])*g.scale[0], g.limit[0])
	iy := clamp((p[1]-g.bounds.Min[1])*g.scale[1], g.limit[1])
	iz := clamp((p[2]-g.bounds.Min[2])*g.scale[2], g.limit[2])
	return ix, iy, iz
}

func (g *Grid) binIndex(ix, iy, iz int) int {
	return ix + iy*g.nx + iz*g.nx*g.ny
}

// SetPoints replaces the contents with pts under ids 0..len(pts)-1.
func (g *Grid) SetPoints(pts []geom.Vec3) {
	for i := range g.bins {
		g.bins[i] = g.bins[i][:0]
	}
	g.points = append(g.points[:0], pts...)
	g.alive = g.alive[:0]
	g.binOf = g.binOf[:0]
	g.live = len(pts)
	for id, p := range pts {
		bin := g.binIndex(g.binCoords(p))
		g.bins[bin] = append(g.bins[bin], id)
		g.alive = append(g.alive, true)
		g.binOf = append(g.binOf, bin)
	}
}

// Insert adds a point and returns its id.
func (g *Grid) Insert(p geom.Vec3) int {
	id := len(g.points)
	bin := g.binIndex(g.binCoords(p))
	g.points = append(g.points, p)
	g.alive = append(g.alive, true)
	g.binOf = append(g.binOf, bin)
	g.bins[bin] = append(g.bins[bin], id)
	g.live++
	return id
}

// Remove deletes the point with the given id.
func (g *Grid) Remove(id int) bool {
	if id < 0 || id >= len(g.points) || !g.alive[id] {
		return false
	}
	g.dropFromBin(id)
	g.alive[id] = false
	g.live--
	return true
}

// Move relocates the point with the given id, re-binning when needed.
func (g *Grid) Move(id int, p geom.Vec3) bool {
	if id < 0 || id >= len(g.points) || !g.alive[id] {
		return false
	}
	newBin := g.binIndex(g.binCoords(p))
	if newBin != g.binOf[id] {
		g.dropFromBin(id)
		g.bins[newBin] = append(g.bins[newBin], id)
		g.binOf[id] = newBin
	}
	g.points[id] = p
	return true
}

func (g *Grid) dropFromBin(id int) {
	bin := g.bins[g.binOf[id]]
	for i, other := range bin {
		if other == id {
			bin[i] = bin[len(bin)-1]
			g.bins[g.binOf[id]] = bin[:len(bin)-1]
			return
		}
	}
}

// Len returns the number of live points.
func (g *Grid) Len() int { return g.live }

// PointOf returns the point stored under id.
func (g *Grid) PointOf(id int) (geom.Vec3, bool) {
	if id < 0 || id >= len(g.points) || !g.alive[id] {
		return geom.Vec3{}, false
	}
	return g.points[id], true
}

// Shells starts a shell enumeration around from.
func (g *Grid) Shells(from geom.Vec3) ShellIterator {
	ix, iy, iz := g.binCoords(from)
	return &gridShells{g: g, ix: ix, iy: iy, iz: iz}
}

// gridShells walks the precomputed bin order, draining one bin at a time.
// Bin contents are read through a private cursor so concurrent enumerations
// never interfere.
type gridShells struct {
	g          *Grid
	ix, iy, iz int
	orderPos   int
	bin        []int
	binBound   float64
}

func (it *gridShells) Next() (Candidate, bool) {
	for {
		if len(it.bin) > 0 {
			id := it.bin[0]
			it.bin = it.bin[1:]
			return Candidate{ID: id, Point: it.g.points[id], LowerBoundSq: it.binBound}, true
		}
		if it.orderPos >= len(it.g.order) {
			return Candidate{}, false
		}
		step := it.g.order[it.orderPos]
		it.orderPos++

		bx := it.ix + step.dx
		by := it.iy + step.dy
		bz := it.iz + step.dz
		if bx < 0 || bx >= it.g.nx || by < 0 || by >= it.g.ny || bz < 0 || bz >= it.g.nz {
			continue
		}
		bin := it.g.bins[it.g.binIndex(bx, by, bz)]
		if len(bin) == 0 {
			continue
		}
		it.bin = bin
		it.binBound = step.distSq
	}
}
