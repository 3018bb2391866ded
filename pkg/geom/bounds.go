package geom

import "fmt"

// Bounds is an axis-aligned bounding box with Min <= Max componentwise.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// NewBounds validates and constructs a bounding box. Degenerate or inverted
// boxes are rejected.
func NewBounds(min, max Vec3) (Bounds, error) {
	for i := 0; i < 3; i++ {
		if !(min[i] < max[i]) {
			return Bounds{}, fmt.Errorf("bounds min %v must be strictly below max %v on every axis", min, max)
		}
	}
	return Bounds{Min: min, Max: max}, nil
}

// Size returns the edge lengths of the box.
func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Diagonal returns the length of the box diagonal.
func (b Bounds) Diagonal() float64 {
	return b.Size().Len()
}

// Volume returns the volume of the box.
func (b Bounds) Volume() float64 {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Contains reports whether p lies inside the box, allowing an eps overhang
// on every side.
func (b Bounds) Contains(p Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i]-eps || p[i] > b.Max[i]+eps {
			return false
		}
	}
	return true
}

// DistSq returns the squared distance from p to the box, zero if p is
// inside.
func (b Bounds) DistSq(p Vec3) float64 {
	var d2 float64
	for i := 0; i < 3; i++ {
		d := 0.0
		if v := b.Min[i] - p[i]; v > d {
			d = v
		}
		if v := p[i] - b.Max[i]; v > d {
			d = v
		}
		d2 += d * d
	}
	return d2
}

// Octant returns the i-th child box of an equal eight-way subdivision at the
// box centre. Octants are numbered with x varying fastest, then y, then z.
func (b Bounds) Octant(i int) Bounds {
	mid := b.Center()
	child := b
	if i&1 == 0 {
		child.Max[0] = mid[0]
	} else {
		child.Min[0] = mid[0]
	}
	if i&2 == 0 {
		child.Max[1] = mid[1]
	} else {
		child.Min[1] = mid[1]
	}
	if i&4 == 0 {
		child.Max[2] = mid[2]
	} else {
		child.Min[2] = mid[2]
	}
	return child
}
