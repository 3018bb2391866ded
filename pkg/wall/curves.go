package wall

import (
	"math"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// tube is the shared body of all swept-tube surfaces: a sampled centreline
// with a tube radius. The kept region is the inside of the tube.
type tube struct {
	samples []geom.Vec3
	radius  float64
	closed  bool
}

// closest returns the nearest point on the sampled centreline.
func (t *tube) closest(p geom.Vec3) (geom.Vec3, bool) {
	if len(t.samples) == 0 {
		return geom.Vec3{}, false
	}
	best := t.samples[0]
	bestD2 := math.MaxFloat64
	n := len(t.samples)
	limit := n - 1
	if t.closed {
		limit = n
	}
	for i := 0; i < limit; i++ {
		p0 := t.samples[i]
		p1 := t.samples[(i+1)%n]
		v := p1.Sub(p0)
		w := p.Sub(p0)
		c2 := v.Dot(v)
		s := 0.0
		if c2 > 0 {
			s = w.Dot(v) / c2
			if s < 0 {
				s = 0
			} else if s > 1 {
				s = 1
			}
		}
		proj := p0.Add(v.Mul(s))
		d := p.Sub(proj)
		if d2 := d.Dot(d); d2 < bestD2 {
			bestD2 = d2
			best = proj
		}
	}
	return best, true
}

func (t *tube) Contains(p geom.Vec3) bool {
	c, ok := t.closest(p)
	if !ok {
		return false
	}
	d := p.Sub(c)
	return d.Dot(d) <= t.radius*t.radius
}

func (t *tube) Cut(generator geom.Vec3, emit func(point, normal geom.Vec3)) {
	c, ok := t.closest(generator)
	if !ok {
		return
	}
	d := generator.Sub(c)
	dist := d.Len()
	if dist == 0 {
		return
	}
	n := d.Mul(1 / dist)
	emit(c.Add(n.Mul(t.radius)), n)
}

// Tube is a swept tube around a user-supplied polyline.
type Tube struct {
	tube
}

// NewTube builds the tube; closed joins the last point back to the first.
func NewTube(polyline []geom.Vec3, radius float64, closed bool) *Tube {
	samples := make([]geom.Vec3, len(polyline))
	copy(samples, polyline)
	return &Tube{tube{samples: samples, radius: radius, closed: closed}}
}

// CubicBezier is a swept tube around a cubic Bezier curve sampled at a
// fixed resolution.
type CubicBezier struct {
	tube
}

// NewCubicBezier samples the curve p0..p3 at resolution segments.
func NewCubicBezier(p0, p1, p2, p3 geom.Vec3, radius float64, resolution int, closed bool) *CubicBezier {
	if resolution < 1 {
		resolution = 1
	}
	samples := make([]geom.Vec3, 0, resolution+1)
	for i := 0; i <= resolution; i++ {
		t := float64(i) / float64(resolution)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t
		samples = append(samples, p0.Mul(a).Add(p1.Mul(b)).Add(p2.Mul(c)).Add(p3.Mul(d)))
	}
	return &CubicBezier{tube{samples: samples, radius: radius, closed: closed}}
}

// CatmullRom is a swept tube around a centripetal Catmull-Rom spline
// through the given control points.
type CatmullRom struct {
	tube
}

// NewCatmullRom samples the spline at resolution segments. At least two
// control points are required; fewer produce an empty tube.
func NewCatmullRom(points []geom.Vec3, radius float64, resolution int, closed bool) *CatmullRom {
	if resolution < 1 {
		resolution = 1
	}
	var samples []geom.Vec3
	if len(points) >= 2 {
		samples = make([]geom.Vec3, 0, resolution+1)
		for i := 0; i <= resolution; i++ {
			t := float64(i) / float64(resolution)
			samples = append(samples, catmullRomPoint(t, points, closed))
		}
	}
	return &CatmullRom{tube{samples: samples, radius: radius, closed: closed}}
}

// catmullRomPoint evaluates the centripetal Catmull-Rom spline at the
// normalized parameter t in [0, 1]. End segments of open splines use
// reflected phantom points.
func catmullRomPoint(t float64, points []geom.Vec3, closed bool) geom.Vec3 {
	l := len(points)
	span := float64(l)
	if !closed {
		span = float64(l - 1)
	}
	p := span * t
	seg := int(math.Floor(p))
	weight := p - float64(seg)

	if closed {
		if seg < 0 {
			seg += ((-seg)/l + 1) * l
		}
	} else if weight == 0 && seg == l-1 {
		seg = l - 2
		weight = 1
	}

	var p0 geom.Vec3
	if closed || seg > 0 {
		p0 = points[((seg-1)%l+l)%l]
	} else {
		p0 = points[0].Mul(2).Sub(points[1])
	}
	p1 := points[seg%l]
	p2 := points[(seg+1)%l]
	var p3 geom.Vec3
	if closed || seg+2 < l {
		p3 = points[(seg+2)%l]
	} else {
		p3 = points[l-1].Mul(2).Sub(points[l-2])
	}

	// Centripetal parametrisation: knot spacing by the fourth root of the
	// squared chord length.
	const pow = 0.25
	chord := func(a, b geom.Vec3) float64 {
		d := a.Sub(b)
		return d.Dot(d)
	}
	dt0 := math.Pow(chord(p0, p1), pow)
	dt1 := math.Pow(chord(p1, p2), pow)
	dt2 := math.Pow(chord(p2, p3), pow)
	if dt1 < 1e-4 {
		dt1 = 1.0
	}
	if dt0 < 1e-4 {
		dt0 = dt1
	}
	if dt2 < 1e-4 {
		dt2 = dt1
	}

	var out geom.Vec3
	for axis := 0; axis < 3; axis++ {
		out[axis] = cubicHermite(p0[axis], p1[axis], p2[axis], p3[axis], dt0, dt1, dt2, weight)
	}
	return out
}

func cubicHermite(x0, x1, x2, x3, dt0, dt1, dt2, t float64) float64 {
	t1 := ((x1-x0)/dt0 - (x2-x0)/(dt0+dt1) + (x2-x1)/dt1) * dt1
	t2 := ((x2-x1)/dt1 - (x3-x1)/(dt1+dt2) + (x3-x2)/dt2) * dt1

	c0 := x1
	c1 := t1
	c2 := -3*x1 + 3*x2 - 2*t1 - t2
	c3 := 2*x1 - 2*x2 + t1 + t2
	return c0 + c1*t + c2*t*t + c3*t*t*t
}

// TrefoilKnot is a swept tube around the standard parametric trefoil knot.
type TrefoilKnot struct {
	tube
	Center geom.Vec3
	Scale  float64
}

// NewTrefoilKnot samples the knot at resolution points around the closed
// curve.
func NewTrefoilKnot(center geom.Vec3, scale, radius float64, resolution int) *TrefoilKnot {
	if resolution < 3 {
		resolution = 3
	}
	samples := make([]geom.Vec3, 0, resolution)
	for i := 0; i < resolution; i++ {
		t := float64(i) / float64(resolution) * 2 * math.Pi
		x := math.Sin(t) + 2*math.Sin(2*t)
		y := math.Cos(t) - 2*math.Cos(2*t)
		z := -math.Sin(3 * t)
		samples = append(samples, center.Add(geom.Vec3{x, y, z}.Mul(scale)))
	}
	return &TrefoilKnot{
		tube:   tube{samples: samples, radius: radius, closed: true},
		Center: center,
		Scale:  scale,
	}
}
