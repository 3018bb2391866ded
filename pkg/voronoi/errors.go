package voronoi

import (
	"fmt"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// ConfigError reports invalid construction parameters: degenerate bounds,
// non-positive index resolution or capacity, or an invalid wall.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IDNotFoundError reports an operation on a removed or never-inserted
// generator id.
type IDNotFoundError struct {
	ID int
}

func (e *IDNotFoundError) Error() string {
	return fmt.Sprintf("generator id %d not found", e.ID)
}

// OutOfDomainError reports a generator outside the kept region. The
// out-of-domain policy is reject: the offending point is never stored.
type OutOfDomainError struct {
	Point geom.Vec3
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("generator %v lies outside the domain", e.Point)
}

// GeometryError reports an internal invariant violation while building the
// cell of the given seed. It indicates a defect, not a recoverable
// condition; Calculate aborts and discards partial results.
type GeometryError struct {
	Seed int
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry defect in cell %d: %v", e.Seed, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }
