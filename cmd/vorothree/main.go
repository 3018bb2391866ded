// Command vorothree runs a tessellation described by a toml scene file and
// reports cell statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/mdt-re/vorothree/pkg/geom"
	"github.com/mdt-re/vorothree/pkg/voronoi"
	"github.com/mdt-re/vorothree/pkg/wall"
)

// scene is the toml scene description.
type scene struct {
	Bounds struct {
		Min [3]float64 `toml:"min"`
		Max [3]float64 `toml:"max"`
	} `toml:"bounds"`
	Index struct {
		Kind     string `toml:"kind"` // "grid" or "octree"
		Nx       int    `toml:"nx"`
		Ny       int    `toml:"ny"`
		Nz       int    `toml:"nz"`
		Capacity int    `toml:"capacity"`
	} `toml:"index"`
	Generators int         `toml:"generators"`
	Seed       int64       `toml:"seed"`
	Walls      []sceneWall `toml:"walls"`
}

type sceneWall struct {
	Kind   string     `toml:"kind"`
	ID     int32      `toml:"id"`
	Center [3]float64 `toml:"center"`
	Point  [3]float64 `toml:"point"`
	Normal [3]float64 `toml:"normal"`
	Axis   [3]float64 `toml:"axis"`
	Radius float64    `toml:"radius"`
	Major  float64    `toml:"major"`
	Minor  float64    `toml:"minor"`
	Angle  float64    `toml:"angle"`
}

func vec(a [3]float64) geom.Vec3 { return geom.Vec3{a[0], a[1], a[2]} }

func buildWall(sw sceneWall) (wall.Wall, error) {
	var s wall.Surface
	switch sw.Kind {
	case "plane":
		s = wall.NewPlane(vec(sw.Point), vec(sw.Normal))
	case "sphere":
		s = wall.NewSphere(vec(sw.Center), sw.Radius)
	case "cylinder":
		s = wall.NewCylinder(vec(sw.Center), vec(sw.Axis), sw.Radius)
	case "cone":
		s = wall.NewCone(vec(sw.Center), vec(sw.Axis), sw.Angle)
	case "torus":
		s = wall.NewTorus(vec(sw.Center), vec(sw.Axis), sw.Major, sw.Minor)
	default:
		return wall.Wall{}, fmt.Errorf("unknown wall kind %q", sw.Kind)
	}
	return wall.New(sw.ID, s)
}

func run(scenePath string, relaxSteps int, log *zap.Logger) error {
	var sc scene
	if _, err := toml.DecodeFile(scenePath, &sc); err != nil {
		return fmt.Errorf("reading scene %s: %w", scenePath, err)
	}

	bounds, err := geom.NewBounds(vec(sc.Bounds.Min), vec(sc.Bounds.Max))
	if err != nil {
		return err
	}

	opts := []voronoi.Option{voronoi.WithLogger(log)}
	switch sc.Index.Kind {
	case "", "grid":
		nx, ny, nz := sc.Index.Nx, sc.Index.Ny, sc.Index.Nz
		if nx == 0 {
			// Heuristic: one bin per expected generator along each axis.
			n := int(math.Cbrt(float64(sc.Generators)))
			if n < 1 {
				n = 1
			}
			nx, ny, nz = n, n, n
		}
		opts = append(opts, voronoi.WithGrid(nx, ny, nz))
	case "octree":
		capacity := sc.Index.Capacity
		if capacity == 0 {
			capacity = 16
		}
		opts = append(opts, voronoi.WithOctree(capacity))
	default:
		return fmt.Errorf("unknown index kind %q", sc.Index.Kind)
	}

	tess, err := voronoi.New(bounds, opts...)
	if err != nil {
		return err
	}
	for _, sw := range sc.Walls {
		w, err := buildWall(sw)
		if err != nil {
			return err
		}
		if err := tess.AddWall(w); err != nil {
			return err
		}
	}

	placed := tess.RandomGenerators(sc.Generators, sc.Seed)
	log.Info("generators placed", zap.Int("requested", sc.Generators), zap.Int("placed", placed))

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < relaxSteps; i++ {
		if err := tess.Relax(ctx); err != nil {
			return err
		}
	}
	if err := tess.Calculate(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var total, minVol, maxVol float64
	minVol = math.Inf(1)
	cells := 0
	for id := 0; id < placed; id++ {
		c, ok := tess.Cell(id)
		if !ok || c.Empty() {
			continue
		}
		v := c.Volume()
		total += v
		if v < minVol {
			minVol = v
		}
		if v > maxVol {
			maxVol = v
		}
		cells++
	}

	log.Info("tessellation complete",
		zap.Int("cells", cells),
		zap.Float64("total_volume", total),
		zap.Float64("min_cell_volume", minVol),
		zap.Float64("max_cell_volume", maxVol),
		zap.Duration("elapsed", elapsed))
	return nil
}

func main() {
	scenePath := flag.String("scene", "scene.toml", "path to the toml scene file")
	relaxSteps := flag.Int("relax", 0, "number of Lloyd relaxation steps before the final calculation")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*scenePath, *relaxSteps, log); err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
}
