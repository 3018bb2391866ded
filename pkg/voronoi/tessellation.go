// Package voronoi orchestrates the tessellation: it owns the generators,
// the walls and the spatial index, and builds one clipped cell per
// generator. Construction of a cell starts from the bounding box, applies
// every wall's tangent planes at the seed, then cuts by the perpendicular
// bisector of each candidate neighbour until no remaining candidate can
// reach the cell.
package voronoi

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mdt-re/vorothree/pkg/cell"
	"github.com/mdt-re/vorothree/pkg/geom"
	"github.com/mdt-re/vorothree/pkg/index"
	"github.com/mdt-re/vorothree/pkg/wall"
)

// Tessellation is the public facade over the engine.
//
// Generator mutations (SetGenerators, Insert/Remove/MoveGenerator, Relax,
// AddWall) must not run concurrently with Calculate; the index and walls
// are read-only while cells are being built.
type Tessellation struct {
	bounds  geom.Bounds
	eps     float64
	walls   []wall.Wall
	idx     index.Index
	points  []geom.Vec3
	alive   []bool
	live    int
	cells   []cell.Cell
	newCell func(id int, b geom.Bounds) cell.Cell
	workers int
	log     *zap.Logger
}

type config struct {
	makeIndex func(geom.Bounds) (index.Index, error)
	newCell   func(id int, b geom.Bounds) cell.Cell
	workers   int
	log       *zap.Logger
}

// Option configures a Tessellation.
type Option func(*config)

// WithGrid selects the uniform bin grid index with the given resolution.
// A resolution near the cube root of the expected generator count per axis
// is a good starting point.
func WithGrid(nx, ny, nz int) Option {
	return func(c *config) {
		c.makeIndex = func(b geom.Bounds) (index.Index, error) {
			return index.NewGrid(b, nx, ny, nz)
		}
	}
}

// WithOctree selects the octree index with the given leaf capacity.
func WithOctree(capacity int) Option {
	return func(c *config) {
		c.makeIndex = func(b geom.Bounds) (index.Index, error) {
			return index.NewOctree(b, capacity)
		}
	}
}

// WithEdgeCells switches cell construction to the vertex-adjacency
// representation. The default is the face-list representation.
func WithEdgeCells() Option {
	return func(c *config) {
		c.newCell = func(id int, b geom.Bounds) cell.Cell { return cell.NewEdgeCell(id, b) }
	}
}

// WithWorkers sets the number of goroutines Calculate spreads seeds over.
// Zero or negative means one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger attaches a structured logger. The default discards all
// output.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// New constructs a tessellation over the given bounding box. The default
// index is an 8x8x8 grid.
func New(bounds geom.Bounds, opts ...Option) (*Tessellation, error) {
	validated, err := geom.NewBounds(bounds.Min, bounds.Max)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid bounds", Err: err}
	}

	cfg := config{
		makeIndex: func(b geom.Bounds) (index.Index, error) { return index.NewGrid(b, 8, 8, 8) },
		newCell:   func(id int, b geom.Bounds) cell.Cell { return cell.NewFaceCell(id, b) },
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}

	idx, err := cfg.makeIndex(validated)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid index parameters", Err: err}
	}

	return &Tessellation{
		bounds:  validated,
		eps:     geom.Tolerance(validated.Diagonal()),
		idx:     idx,
		newCell: cfg.newCell,
		workers: cfg.workers,
		log:     cfg.log,
	}, nil
}

// Bounds returns the domain bounding box.
func (t *Tessellation) Bounds() geom.Bounds { return t.bounds }

// AddWall registers a clipping wall. Generators that the new wall does not
// contain are removed, retiring their ids.
func (t *Tessellation) AddWall(w wall.Wall) error {
	if w.ID() > geom.MinWallID {
		return &ConfigError{Reason: fmt.Sprintf("wall id %d must be <= %d", w.ID(), geom.MinWallID)}
	}
	t.walls = append(t.walls, w)

	pruned := 0
	for id, p := range t.points {
		if t.alive[id] && !w.Contains(p) {
			t.alive[id] = false
			t.live--
			t.idx.Remove(id)
			pruned++
		}
	}
	if pruned > 0 {
		t.log.Debug("pruned generators outside new wall",
			zap.Int32("wall", w.ID()), zap.Int("pruned", pruned))
	}
	t.cells = nil
	return nil
}

// ClearWalls removes every wall.
func (t *Tessellation) ClearWalls() {
	t.walls = nil
	t.cells = nil
}

// contained reports whether every wall contains p.
func (t *Tessellation) contained(p geom.Vec3) bool {
	for _, w := range t.walls {
		if !w.Contains(p) {
			return false
		}
	}
	return true
}

// SetGenerators replaces all generators with the packed coordinates
// [x0 y0 z0 x1 y1 z1 ...]. Points outside the bounding box reject the whole
// call; points violating a wall are silently dropped.
func (t *Tessellation) SetGenerators(coords []float64) error {
	if len(coords)%3 != 0 {
		return &ConfigError{Reason: fmt.Sprintf("coordinate count %d is not a multiple of 3", len(coords))}
	}
	pts := make([]geom.Vec3, 0, len(coords)/3)
	for i := 0; i+2 < len(coords); i += 3 {
		p := geom.Vec3{coords[i], coords[i+1], coords[i+2]}
		if !t.bounds.Contains(p, t.eps) {
			return &OutOfDomainError{Point: p}
		}
		if !t.contained(p) {
			continue
		}
		pts = append(pts, p)
	}
	t.points = pts
	t.alive = make([]bool, len(pts))
	for i := range t.alive {
		t.alive[i] = true
	}
	t.live = len(pts)
	t.cells = nil
	t.idx.SetPoints(pts)
	return nil
}

// RandomGenerators replaces all generators with n points sampled uniformly
// inside the kept region (bounding box intersected with every wall). The
// sample is deterministic for a given seed. It returns the number of points
// placed, which can fall short of n when the kept region is a tiny fraction
// of the box.
func (t *Tessellation) RandomGenerators(n int, seed int64) int {
	rng := rand.New(rand.NewSource(seed))
	size := t.bounds.Size()
	pts := make([]geom.Vec3, 0, n)

	maxAttempts := n * 1000
	for attempts := 0; len(pts) < n && attempts < maxAttempts; attempts++ {
		p := geom.Vec3{
			t.bounds.Min[0] + rng.Float64()*size[0],
			t.bounds.Min[1] + rng.Float64()*size[1],
			t.bounds.Min[2] + rng.Float64()*size[2],
		}
		if t.contained(p) {
			pts = append(pts, p)
		}
	}

	t.points = pts
	t.alive = make([]bool, len(pts))
	for i := range t.alive {
		t.alive[i] = true
	}
	t.live = len(pts)
	t.cells = nil
	t.idx.SetPoints(pts)
	return len(pts)
}

// InsertGenerator adds one generator and returns its id.
func (t *Tessellation) InsertGenerator(p geom.Vec3) (int, error) {
	if !t.bounds.Contains(p, t.eps) || !t.contained(p) {
		return 0, &OutOfDomainError{Point: p}
	}
	id := t.idx.Insert(p)
	t.points = append(t.points, p)
	t.alive = append(t.alive, true)
	t.live++
	t.cells = nil
	return id, nil
}

// RemoveGenerator deletes the generator with the given id; the id is
// retired and never reused.
func (t *Tessellation) RemoveGenerator(id int) error {
	if id < 0 || id >= len(t.points) || !t.alive[id] {
		return &IDNotFoundError{ID: id}
	}
	t.idx.Remove(id)
	t.alive[id] = false
	t.live--
	t.cells = nil
	return nil
}

// MoveGenerator relocates the generator with the given id.
func (t *Tessellation) MoveGenerator(id int, p geom.Vec3) error {
	if id < 0 || id >= len(t.points) || !t.alive[id] {
		return &IDNotFoundError{ID: id}
	}
	if !t.bounds.Contains(p, t.eps) || !t.contained(p) {
		return &OutOfDomainError{Point: p}
	}
	t.idx.Move(id, p)
	t.points[id] = p
	t.cells = nil
	return nil
}

// CountGenerators returns the number of live generators.
func (t *Tessellation) CountGenerators() int { return t.live }

// CountCells returns the number of cells built by the last Calculate.
func (t *Tessellation) CountCells() int {
	count := 0
	for _, c := range t.cells {
		if c != nil {
			count++
		}
	}
	return count
}

// GeneratorPoint returns the position of the generator with the given id.
func (t *Tessellation) GeneratorPoint(id int) (geom.Vec3, bool) {
	if id < 0 || id >= len(t.points) || !t.alive[id] {
		return geom.Vec3{}, false
	}
	return t.points[id], true
}

// Generators returns the packed coordinates of all live generators in id
// order.
func (t *Tessellation) Generators() []float64 {
	coords := make([]float64, 0, t.live*3)
	for id, p := range t.points {
		if t.alive[id] {
			coords = append(coords, p[0], p[1], p[2])
		}
	}
	return coords
}

// Cell returns the cell of the generator with the given id, built by the
// last Calculate.
func (t *Tessellation) Cell(id int) (cell.Cell, bool) {
	if id < 0 || id >= len(t.cells) || t.cells[id] == nil || !t.alive[id] {
		return nil, false
	}
	return t.cells[id], true
}

// Calculate builds every cell. Seeds are spread over the worker pool in
// contiguous chunks; cancellation is observed between seeds, and any error
// discards all partial results.
func (t *Tessellation) Calculate(ctx context.Context) error {
	start := time.Now()
	n := len(t.points)
	cells := make([]cell.Cell, n)

	g, ctx := errgroup.WithContext(ctx)
	workers := t.workers
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			// One scratch per worker, reused across its seeds.
			scratch := &cell.Scratch{}
			for seed := lo; seed < hi; seed++ {
				if !t.alive[seed] {
					continue
				}
				select {
				case <-ctx.Done():
					return fmt.Errorf("calculate cancelled: %w", ctx.Err())
				default:
				}
				c, err := t.buildCell(seed, scratch)
				if err != nil {
					t.log.Error("cell construction failed", zap.Int("seed", seed), zap.Error(err))
					return err
				}
				cells[seed] = c
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.cells = nil
		return err
	}
	t.cells = cells
	t.log.Debug("calculated tessellation",
		zap.Int("generators", t.live),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// buildCell constructs one cell: bounding box, then wall planes at the
// seed, then bisector cuts in shell order until the termination bound
// proves no further candidate can reach the cell.
func (t *Tessellation) buildCell(seed int, scratch *cell.Scratch) (cell.Cell, error) {
	p := t.points[seed]
	c := t.newCell(seed, t.bounds)

	for _, w := range t.walls {
		if !w.Contains(p) {
			c.MakeEmpty()
			return c, nil
		}
		w.Cut(p, func(q, normal geom.Vec3) {
			if !c.Empty() {
				c.ClipScratch(q, normal, w.ID(), scratch, nil)
			}
		})
		if c.Empty() {
			return c, nil
		}
	}

	// A neighbour at distance d cuts the cell only if its bisector, at
	// distance d/2 from the seed, reaches inside the current maximum
	// vertex radius R: d*d < 4*R*R. Shell enumeration yields candidates
	// by non-decreasing lower bound, so the first bound past 4*R*R ends
	// the search.
	maxR2 := c.MaxRadiusSq(p)
	shells := t.idx.Shells(p)
	for {
		cand, ok := shells.Next()
		if !ok {
			break
		}
		if cand.ID == seed {
			continue
		}
		if cand.LowerBoundSq >= 4*maxR2 {
			break
		}
		mid := p.Add(cand.Point).Mul(0.5)
		normal := cand.Point.Sub(p)
		clipped, r2 := c.ClipScratch(mid, normal, int32(cand.ID), scratch, &p)
		if clipped {
			if c.Empty() {
				break
			}
			maxR2 = r2
		}
	}

	if err := c.CheckTopology(); err != nil {
		return nil, &GeometryError{Seed: seed, Err: err}
	}
	return c, nil
}

// Relax performs one Lloyd step: it calculates every cell, then moves each
// generator to its cell centroid. Generators whose cells are empty stay
// put. The index is re-binned in place.
func (t *Tessellation) Relax(ctx context.Context) error {
	if err := t.Calculate(ctx); err != nil {
		return err
	}
	moved := 0
	for id := range t.points {
		if !t.alive[id] {
			continue
		}
		c := t.cells[id]
		if c == nil || c.Empty() {
			continue
		}
		centroid := c.Centroid()
		if !t.bounds.Contains(centroid, t.eps) {
			continue
		}
		t.points[id] = centroid
		t.idx.Move(id, centroid)
		moved++
	}
	t.cells = nil
	t.log.Debug("relaxed generators", zap.Int("moved", moved))
	return nil
}
