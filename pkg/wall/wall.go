// Package wall defines the clipping surfaces that restrict a Voronoi
// tessellation beyond its bounding box. A Surface answers two queries: point
// membership in the kept region, and the tangent (or bounding) planes that
// separate a generator from the outside. Concrete surfaces implement the
// interface directly; the SDF3 adapter bridges any sdfx signed-distance
// field behind the same interface.
package wall

import (
	"fmt"
	"math"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Surface is the geometry behind a wall.
type Surface interface {
	// Contains reports whether p lies in the kept region.
	Contains(p geom.Vec3) bool

	// Cut invokes emit once per clipping plane for the given generator.
	// Each plane is given by a point on the surface and the outward normal,
	// pointing away from the kept region. Emitting nothing means the wall
	// does not constrain this generator.
	Cut(generator geom.Vec3, emit func(point, normal geom.Vec3))
}

// Wall pairs a Surface with the id reported on cell faces it produces.
type Wall struct {
	id      int32
	surface Surface
}

// New wraps a surface with its face id. Ids must be MinWallID or below so
// they cannot collide with generator ids or the box side ids.
func New(id int32, s Surface) (Wall, error) {
	if id > geom.MinWallID {
		return Wall{}, fmt.Errorf("wall id %d must be <= %d", id, geom.MinWallID)
	}
	if s == nil {
		return Wall{}, fmt.Errorf("wall %d has no surface", id)
	}
	return Wall{id: id, surface: s}, nil
}

// ID returns the face id of the wall.
func (w Wall) ID() int32 { return w.id }

// Contains reports whether p lies in the wall's kept region.
func (w Wall) Contains(p geom.Vec3) bool { return w.surface.Contains(p) }

// Cut forwards to the surface.
func (w Wall) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	w.surface.Cut(generator, emit)
}

// normalize returns v scaled to unit length, or fallback when v is zero.
func normalize(v, fallback geom.Vec3) geom.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) {
		return fallback
	}
	return v.Mul(1 / l)
}
