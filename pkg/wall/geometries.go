package wall

import (
	"math"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Plane keeps the half-space on the side its normal points towards.
type Plane struct {
	Point  geom.Vec3
	Normal geom.Vec3 // points into the kept region
}

// NewPlane constructs a plane through point with the given inward normal.
// The normal is normalized; a zero normal defaults to +z.
func NewPlane(point, normal geom.Vec3) *Plane {
	return &Plane{Point: point, Normal: normalize(normal, geom.Vec3{0, 0, 1})}
}

func (g *Plane) Contains(p geom.Vec3) bool {
	return p.Sub(g.Point).Dot(g.Normal) >= 0
}

func (g *Plane) Cut(_ geom.Vec3, emit func(point, normal geom.Vec3)) {
	// The cut is the plane itself; clipping expects the outward normal.
	emit(g.Point, g.Normal.Mul(-1))
}

// Sphere keeps the interior of the sphere.
type Sphere struct {
	Center geom.Vec3
	Radius float64
}

func NewSphere(center geom.Vec3, radius float64) *Sphere {
	return &Sphere{Center: center, Radius: radius}
}

func (g *Sphere) Contains(p geom.Vec3) bool {
	d := p.Sub(g.Center)
	return d.Dot(d) <= g.Radius*g.Radius
}

func (g *Sphere) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	d := generator.Sub(g.Center)
	dist := d.Len()
	if dist == 0 {
		return
	}
	// Tangent plane where the ray from the centre through the generator
	// meets the sphere, outward normal away from the centre.
	n := d.Mul(1 / dist)
	emit(g.Center.Add(n.Mul(g.Radius)), n)
}

// Cylinder keeps the interior of an infinite cylinder.
type Cylinder struct {
	Center geom.Vec3 // a point on the axis
	Axis   geom.Vec3 // unit direction of the axis
	Radius float64
}

func NewCylinder(center, axis geom.Vec3, radius float64) *Cylinder {
	return &Cylinder{Center: center, Axis: normalize(axis, geom.Vec3{0, 0, 1}), Radius: radius}
}

func (g *Cylinder) Contains(p geom.Vec3) bool {
	d := p.Sub(g.Center)
	perp := d.Sub(g.Axis.Mul(d.Dot(g.Axis)))
	return perp.Dot(perp) <= g.Radius*g.Radius
}

func (g *Cylinder) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	d := generator.Sub(g.Center)
	axial := d.Dot(g.Axis)
	perp := d.Sub(g.Axis.Mul(axial))
	dist := perp.Len()
	if dist == 0 {
		return
	}
	n := perp.Mul(1 / dist)
	point := g.Center.Add(g.Axis.Mul(axial)).Add(n.Mul(g.Radius))
	emit(point, n)
}

// Cone keeps the interior of an infinite cone opening along its axis.
type Cone struct {
	Tip   geom.Vec3
	Axis  geom.Vec3 // unit direction, pointing into the cone
	Angle float64   // half-angle in radians
}

func NewCone(tip, axis geom.Vec3, angle float64) *Cone {
	return &Cone{Tip: tip, Axis: normalize(axis, geom.Vec3{0, 0, 1}), Angle: angle}
}

func (g *Cone) Contains(p geom.Vec3) bool {
	d := p.Sub(g.Tip)
	h := d.Dot(g.Axis)
	perp := d.Sub(g.Axis.Mul(h))
	return h >= 0 && perp.Len() <= h*math.Tan(g.Angle)
}

func (g *Cone) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	d := generator.Sub(g.Tip)
	h := d.Dot(g.Axis)
	perp := d.Sub(g.Axis.Mul(h))
	r := perp.Len()
	if r == 0 {
		return
	}
	rDir := perp.Mul(1 / r)

	cosA := math.Cos(g.Angle)
	sinA := math.Sin(g.Angle)

	// Signed distance to the slant surface in the (r, h) half-plane, then
	// the foot of the perpendicular onto the slant line.
	dist := r*cosA - h*sinA
	footR := r - dist*cosA
	footH := h + dist*sinA

	if footH < 0 {
		// Generator projects behind the tip: clip by the tangent plane at
		// the tip instead.
		distTip := d.Len()
		if distTip == 0 {
			return
		}
		emit(g.Tip, d.Mul(1/distTip))
		return
	}

	point := g.Tip.Add(g.Axis.Mul(footH)).Add(rDir.Mul(footR))
	normal := rDir.Mul(cosA).Sub(g.Axis.Mul(sinA))
	emit(point, normal)
}

// Torus keeps the interior of the tube of a torus.
type Torus struct {
	Center      geom.Vec3
	Axis        geom.Vec3 // unit normal of the major circle's plane
	MajorRadius float64
	MinorRadius float64
}

func NewTorus(center, axis geom.Vec3, major, minor float64) *Torus {
	return &Torus{Center: center, Axis: normalize(axis, geom.Vec3{0, 0, 1}), MajorRadius: major, MinorRadius: minor}
}

func (g *Torus) Contains(p geom.Vec3) bool {
	d := p.Sub(g.Center)
	axial := d.Dot(g.Axis)
	perp := d.Sub(g.Axis.Mul(axial))
	distPerp := perp.Len()
	dr := distPerp - g.MajorRadius
	return dr*dr+axial*axial <= g.MinorRadius*g.MinorRadius
}

func (g *Torus) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	d := generator.Sub(g.Center)
	axial := d.Dot(g.Axis)
	perp := d.Sub(g.Axis.Mul(axial))
	distPerp := perp.Len()

	var dir geom.Vec3
	if distPerp < 1e-9 {
		// On the axis: any radial direction works; build one orthogonal to
		// the axis.
		seed := geom.Vec3{1, 0, 0}
		if math.Abs(g.Axis[0]) > 0.9 {
			seed = geom.Vec3{0, 1, 0}
		}
		dir = seed.Sub(g.Axis.Mul(seed.Dot(g.Axis)))
		l := dir.Len()
		if l == 0 {
			return
		}
		dir = dir.Mul(1 / l)
	} else {
		dir = perp.Mul(1 / distPerp)
	}

	// Nearest point on the tube centreline, then the tangent plane of the
	// tube there.
	ring := g.Center.Add(dir.Mul(g.MajorRadius))
	v := generator.Sub(ring)
	dist := v.Len()
	if dist == 0 {
		return
	}
	n := v.Mul(1 / dist)
	emit(ring.Add(n.Mul(g.MinorRadius)), n)
}

// ConvexPolyhedron keeps the intersection of half-spaces. Each plane stores
// a point on it and the outward normal.
type ConvexPolyhedron struct {
	Planes []PlaneSpec
}

// PlaneSpec is one bounding plane of a convex polyhedron, normal pointing
// out of the kept region.
type PlaneSpec struct {
	Point  geom.Vec3
	Normal geom.Vec3
}

// NewConvexPolyhedron builds the wall from parallel slices of plane points
// and outward normals.
func NewConvexPolyhedron(points, normals []geom.Vec3) *ConvexPolyhedron {
	n := len(points)
	if len(normals) < n {
		n = len(normals)
	}
	planes := make([]PlaneSpec, n)
	for i := 0; i < n; i++ {
		planes[i] = PlaneSpec{Point: points[i], Normal: normals[i]}
	}
	return &ConvexPolyhedron{Planes: planes}
}

func (g *ConvexPolyhedron) Contains(p geom.Vec3) bool {
	for _, pl := range g.Planes {
		if p.Sub(pl.Point).Dot(pl.Normal) > 0 {
			return false
		}
	}
	return true
}

func (g *ConvexPolyhedron) Cut(_ geom.Vec3, emit func(point, normal geom.Vec3)) {
	for _, pl := range g.Planes {
		emit(pl.Point, pl.Normal)
	}
}

// regularSolid builds a polyhedron from face normals placed at the given
// inradius around center.
func regularSolid(center geom.Vec3, inradius float64, normals []geom.Vec3) *ConvexPolyhedron {
	planes := make([]PlaneSpec, 0, len(normals))
	for _, raw := range normals {
		n := normalize(raw, geom.Vec3{})
		planes = append(planes, PlaneSpec{Point: center.Add(n.Mul(inradius)), Normal: n})
	}
	return &ConvexPolyhedron{Planes: planes}
}

// NewTetrahedron builds a regular tetrahedron wall with the given
// circumradius.
func NewTetrahedron(center geom.Vec3, radius float64) *ConvexPolyhedron {
	return regularSolid(center, radius/3.0, []geom.Vec3{
		{-1, -1, -1}, {-1, 1, 1}, {1, -1, 1}, {1, 1, -1},
	})
}

// NewHexahedron builds a cube wall with the given circumradius.
func NewHexahedron(center geom.Vec3, radius float64) *ConvexPolyhedron {
	return regularSolid(center, radius/math.Sqrt(3), []geom.Vec3{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
	})
}

// NewOctahedron builds a regular octahedron wall with the given
// circumradius.
func NewOctahedron(center geom.Vec3, radius float64) *ConvexPolyhedron {
	normals := make([]geom.Vec3, 0, 8)
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{-1, 1} {
				normals = append(normals, geom.Vec3{x, y, z})
			}
		}
	}
	return regularSolid(center, radius/math.Sqrt(3), normals)
}

// NewDodecahedron builds a regular dodecahedron wall with the given
// circumradius.
func NewDodecahedron(center geom.Vec3, radius float64) *ConvexPolyhedron {
	phi := (1 + math.Sqrt(5)) / 2
	xi := math.Sqrt((5 + 2*math.Sqrt(5)) / 15)
	normals := []geom.Vec3{
		{0, phi, 1}, {0, -phi, 1}, {0, phi, -1}, {0, -phi, -1},
		{1, 0, phi}, {1, 0, -phi}, {-1, 0, phi}, {-1, 0, -phi},
		{phi, 1, 0}, {phi, -1, 0}, {-phi, 1, 0}, {-phi, -1, 0},
	}
	return regularSolid(center, radius*xi, normals)
}

// NewIcosahedron builds a regular icosahedron wall with the given
// circumradius. Its face normals are the vertex directions of a
// dodecahedron.
func NewIcosahedron(center geom.Vec3, radius float64) *ConvexPolyhedron {
	phi := (1 + math.Sqrt(5)) / 2
	invPhi := 1 / phi
	xi := math.Sqrt((5 + 2*math.Sqrt(5)) / 15)

	normals := make([]geom.Vec3, 0, 20)
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{-1, 1} {
				normals = append(normals, geom.Vec3{x, y, z})
			}
		}
	}
	for _, y := range []float64{-1, 1} {
		for _, z := range []float64{-1, 1} {
			normals = append(normals, geom.Vec3{0, y * phi, z * invPhi})
		}
	}
	for _, x := range []float64{-1, 1} {
		for _, z := range []float64{-1, 1} {
			normals = append(normals, geom.Vec3{x * invPhi, 0, z * phi})
		}
	}
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			normals = append(normals, geom.Vec3{x * phi, y * invPhi, 0})
		}
	}
	return regularSolid(center, radius*xi, normals)
}
