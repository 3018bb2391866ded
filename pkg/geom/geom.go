// Package geom provides the geometric primitives shared by the rest of the
// library: 3D vectors, axis-aligned bounding boxes and the numerical
// tolerance policy used during clipping.
package geom

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is a point or direction in 3D space.
type Vec3 = mgl64.Vec3

// Face ids for the six sides of the initial bounding box. They are negative
// to prevent conflicts with generator ids, which are non-negative.
const (
	IDBottom int32 = -1 // z-
	IDTop    int32 = -2 // z+
	IDFront  int32 = -3 // y-
	IDBack   int32 = -4 // y+
	IDLeft   int32 = -5 // x-
	IDRight  int32 = -6 // x+
)

// MinWallID is the largest (closest to zero) id a caller-supplied wall may
// use. Anything above it would collide with the box side ids.
const MinWallID int32 = -7

// BaseEpsilon is the absolute tolerance for plane-side classification in a
// unit-scale domain.
const BaseEpsilon = 1e-9

// Tolerance returns the classification epsilon for a domain with the given
// bounding-box diagonal. The base value holds up to unit scale and grows
// proportionally beyond it.
func Tolerance(diagonal float64) float64 {
	if diagonal > 1.0 {
		return BaseEpsilon * diagonal
	}
	return BaseEpsilon
}
