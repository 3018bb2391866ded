// Package index provides the spatial indexes used to enumerate candidate
// neighbours of a generator in order of increasing distance. Two backends
// implement the same interface: a uniform bin grid and a point octree,
// chosen at construction time.
package index

import "github.com/mdt-re/vorothree/pkg/geom"

// Candidate is one point yielded by a shell enumeration. LowerBoundSq is a
// lower bound on the squared distance from the query point to Point; the
// iterator yields candidates in non-decreasing LowerBoundSq order.
type Candidate struct {
	ID           int
	Point        geom.Vec3
	LowerBoundSq float64
}

// ShellIterator enumerates index points lazily, nearest shells first. It is
// finite and not restartable; callers stop pulling once their termination
// bound is reached.
type ShellIterator interface {
	Next() (Candidate, bool)
}

// Index stores generator points under stable dense ids. Ids are assigned by
// insertion order and survive every mutation except removal of the point
// itself.
type Index interface {
	// SetPoints replaces the contents with pts under ids 0..len(pts)-1.
	SetPoints(pts []geom.Vec3)

	// Insert adds a point and returns its id.
	Insert(p geom.Vec3) int

	// Remove deletes the point with the given id. It reports whether the
	// id was present.
	Remove(id int) bool

	// Move relocates the point with the given id. It reports whether the
	// id was present.
	Move(id int, p geom.Vec3) bool

	// Len returns the number of live points.
	Len() int

	// PointOf returns the point stored under id.
	PointOf(id int) (geom.Vec3, bool)

	// Shells starts a shell enumeration around from. The enumeration
	// includes every live point, the one at from itself included.
	Shells(from geom.Vec3) ShellIterator
}
