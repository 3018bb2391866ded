package wall

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Compile-time interface check.
var _ Surface = (*SDF3)(nil)

// SDF3 adapts any sdfx signed-distance field to the wall Surface interface.
// The kept region is where the field evaluates non-positive (the solid's
// interior). The clipping plane is the first-order tangent plane at the
// projection of the generator onto the zero level set.
type SDF3 struct {
	field sdf.SDF3
	// step is the central-difference step for the gradient, derived from
	// the field's bounding box.
	step float64
}

// NewSDF3 wraps a signed-distance field as a wall surface.
func NewSDF3(field sdf.SDF3) *SDF3 {
	bb := field.BoundingBox()
	size := bb.Max.Sub(bb.Min)
	diag := size.Length()
	step := 1e-6
	if diag > 0 {
		step = diag * 1e-6
	}
	return &SDF3{field: field, step: step}
}

func toV3(p geom.Vec3) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func (g *SDF3) Contains(p geom.Vec3) bool {
	return g.field.Evaluate(toV3(p)) <= 0
}

// gradient estimates the field gradient at p by central differences.
func (g *SDF3) gradient(p geom.Vec3) geom.Vec3 {
	var grad geom.Vec3
	for axis := 0; axis < 3; axis++ {
		hi := p
		lo := p
		hi[axis] += g.step
		lo[axis] -= g.step
		grad[axis] = (g.field.Evaluate(toV3(hi)) - g.field.Evaluate(toV3(lo))) / (2 * g.step)
	}
	return grad
}

func (g *SDF3) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	d := g.field.Evaluate(toV3(generator))
	grad := g.gradient(generator)
	l := grad.Len()
	if l == 0 {
		return
	}
	n := grad.Mul(1 / l)
	// First-order projection of the generator onto the surface. For a true
	// distance field |grad| = 1 and this lands on the zero level set.
	point := generator.Sub(n.Mul(d))
	emit(point, n)
}
