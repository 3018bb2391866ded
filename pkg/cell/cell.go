// Package cell implements the mutable convex polyhedra at the heart of the
// tessellation. A cell starts as the domain bounding box and is cut down by
// half-space clipping planes, one per wall plane and one per neighbouring
// generator. Two representations are provided behind a common interface: a
// face-list polyhedron (FaceCell) and a vertex-adjacency polyhedron
// (EdgeCell). Both keep allocation out of the clipping hot loop through a
// caller-owned Scratch.
package cell

import (
	"fmt"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Cell is a convex polyhedron under construction.
//
// Clipping planes are given by a point on the plane and the outward normal:
// everything on the positive side of the plane is cut away. The neighbor id
// is recorded on the face the plane creates; non-negative ids are
// generators, negative ids are walls or bounding-box sides.
type Cell interface {
	// ID returns the id of the generator this cell belongs to.
	ID() int

	// Empty reports whether the cell has been clipped away entirely.
	Empty() bool

	// MakeEmpty discards the polyhedron, leaving an empty cell.
	MakeEmpty()

	// Clip cuts the cell by a half-space using a throwaway scratch.
	Clip(point, normal geom.Vec3, neighbor int32)

	// ClipScratch cuts the cell by a half-space. It reports whether the
	// cell changed, and, when generator is non-nil and the cell changed,
	// the new maximum squared vertex distance from the generator.
	ClipScratch(point, normal geom.Vec3, neighbor int32, s *Scratch, generator *geom.Vec3) (clipped bool, maxRadiusSq float64)

	// Vertices returns the packed vertex coordinates [x0 y0 z0 x1 ...].
	Vertices() []float64

	// VertexCount returns the number of vertices.
	VertexCount() int

	// FaceCounts returns the number of vertices of each face.
	FaceCounts() []uint32

	// FaceIndices returns the concatenated vertex loops of all faces.
	FaceIndices() []uint32

	// FaceNeighbors returns the neighbor id recorded on each face.
	FaceNeighbors() []int32

	// Faces returns one vertex loop per face.
	Faces() [][]uint32

	// Volume returns the enclosed volume.
	Volume() float64

	// Centroid returns the volume centroid, or the zero vector for an
	// empty or degenerate cell.
	Centroid() geom.Vec3

	// FaceArea returns the area of the i-th face.
	FaceArea(i int) float64

	// FaceNormal returns the unit normal of the i-th face, oriented with
	// the face loop.
	FaceNormal(i int) geom.Vec3

	// FaceCentroid returns the area centroid of the i-th face.
	FaceCentroid(i int) geom.Vec3

	// Edges returns every undirected edge once, as ordered vertex pairs.
	Edges() [][2]uint32

	// MaxRadiusSq returns the maximum squared distance from center to any
	// vertex.
	MaxRadiusSq(center geom.Vec3) float64

	// CheckTopology verifies the combinatorial invariants of the
	// polyhedron and returns the first violation found.
	CheckTopology() error
}

// Scratch holds the temporary buffers of a clip operation so repeated cuts
// reuse allocations. A Scratch may be shared by FaceCell and EdgeCell but
// never between goroutines.
type Scratch struct {
	dists    []float64
	oldToNew []int32

	// face-list buffers
	vertices      []float64
	faceCounts    []uint32
	faceIndices   []uint32
	faceNeighbors []int32
	isInter       []bool
	interKeys     [][2]uint32
	interIdx      []uint32
	lidSegments   [][2]uint32
	faceBuf       []uint32
	lidBuf        []uint32

	// adjacency buffers
	edges    []uint32
	faceIDs  []int32
	offsets  []uint32
	degrees  []uint32
	faceCuts []faceCut
	cutInfos []cutInfo
}

// faceCut records that a clipping plane crossed an edge of the given face,
// creating vertex idx.
type faceCut struct {
	face int32
	idx  uint32
}

// cutInfo records one new vertex p on the clipping plane, the kept vertex u
// it connects back to, and the faces left and right of the crossed edge.
type cutInfo struct {
	p, u        uint32
	left, right int32
}

// EdgeLength returns the length of one undirected edge of c, as returned
// by Edges.
func EdgeLength(c Cell, e [2]uint32) float64 {
	v := c.Vertices()
	return vertexAt(v, e[1]).Sub(vertexAt(v, e[0])).Len()
}

// boxVertices returns the packed corner coordinates of the bounding box in
// the canonical order used by both representations.
func boxVertices(b geom.Bounds) []float64 {
	return []float64{
		b.Min[0], b.Min[1], b.Min[2], // 0
		b.Max[0], b.Min[1], b.Min[2], // 1
		b.Max[0], b.Max[1], b.Min[2], // 2
		b.Min[0], b.Max[1], b.Min[2], // 3
		b.Min[0], b.Min[1], b.Max[2], // 4
		b.Max[0], b.Min[1], b.Max[2], // 5
		b.Max[0], b.Max[1], b.Max[2], // 6
		b.Min[0], b.Max[1], b.Max[2], // 7
	}
}

// vertexAt reads vertex i from a packed coordinate slice.
func vertexAt(vertices []float64, i uint32) geom.Vec3 {
	return geom.Vec3{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
}

// polyVolume sums signed tetrahedra over a fan triangulation of every face
// from the origin. Outward face orientation makes the sum the enclosed
// volume; the absolute value guards against a globally flipped orientation.
func polyVolume(vertices []float64, faceCounts, faceIndices []uint32) float64 {
	var volume float64
	offset := 0
	for _, count := range faceCounts {
		n := int(count)
		if n < 3 {
			offset += n
			continue
		}
		v0 := vertexAt(vertices, faceIndices[offset])
		for i := 1; i < n-1; i++ {
			v1 := vertexAt(vertices, faceIndices[offset+i])
			v2 := vertexAt(vertices, faceIndices[offset+i+1])
			volume += v0.Dot(v1.Cross(v2))
		}
		offset += n
	}
	if volume < 0 {
		volume = -volume
	}
	return volume / 6.0
}

// polyCentroid returns the volume centroid over the same fan triangulation,
// or the zero vector when the total volume is negligible.
func polyCentroid(vertices []float64, faceCounts, faceIndices []uint32) geom.Vec3 {
	var centroid geom.Vec3
	var total float64
	offset := 0
	for _, count := range faceCounts {
		n := int(count)
		if n < 3 {
			offset += n
			continue
		}
		v0 := vertexAt(vertices, faceIndices[offset])
		for i := 1; i < n-1; i++ {
			v1 := vertexAt(vertices, faceIndices[offset+i])
			v2 := vertexAt(vertices, faceIndices[offset+i+1])
			det := v0.Dot(v1.Cross(v2))
			total += det
			centroid = centroid.Add(v0.Add(v1).Add(v2).Mul(det))
		}
		offset += n
	}
	if total < 1e-9 && total > -1e-9 {
		return geom.Vec3{}
	}
	return centroid.Mul(1 / (4 * total))
}

// polyFaceArea returns the area of one face loop.
func polyFaceArea(vertices []float64, loop []uint32) float64 {
	if len(loop) < 3 {
		return 0
	}
	var area float64
	p0 := vertexAt(vertices, loop[0])
	for i := 1; i < len(loop)-1; i++ {
		a := vertexAt(vertices, loop[i]).Sub(p0)
		b := vertexAt(vertices, loop[i+1]).Sub(p0)
		area += 0.5 * a.Cross(b).Len()
	}
	return area
}

// polyFaceNormal returns the unit normal of one face loop by Newell's
// method, oriented with the loop winding.
func polyFaceNormal(vertices []float64, loop []uint32) geom.Vec3 {
	var n geom.Vec3
	for i := range loop {
		a := vertexAt(vertices, loop[i])
		b := vertexAt(vertices, loop[(i+1)%len(loop)])
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	l := n.Len()
	if l == 0 {
		return geom.Vec3{}
	}
	return n.Mul(1 / l)
}

// polyFaceCentroid returns the area centroid of one face loop.
func polyFaceCentroid(vertices []float64, loop []uint32) geom.Vec3 {
	if len(loop) == 0 {
		return geom.Vec3{}
	}
	if len(loop) < 3 {
		return vertexAt(vertices, loop[0])
	}
	var centroid geom.Vec3
	var total float64
	p0 := vertexAt(vertices, loop[0])
	for i := 1; i < len(loop)-1; i++ {
		p1 := vertexAt(vertices, loop[i])
		p2 := vertexAt(vertices, loop[i+1])
		a := 0.5 * p1.Sub(p0).Cross(p2.Sub(p0)).Len()
		total += a
		centroid = centroid.Add(p0.Add(p1).Add(p2).Mul(a / 3))
	}
	if total == 0 {
		return p0
	}
	return centroid.Mul(1 / total)
}

// polyEdges lists each undirected edge of the face loops once, endpoints in
// ascending order, in first-encounter order.
func polyEdges(faceCounts, faceIndices []uint32) [][2]uint32 {
	seen := make(map[[2]uint32]struct{})
	var edges [][2]uint32
	offset := 0
	for _, count := range faceCounts {
		n := int(count)
		for i := 0; i < n; i++ {
			u := faceIndices[offset+i]
			v := faceIndices[offset+(i+1)%n]
			key := [2]uint32{u, v}
			if u > v {
				key = [2]uint32{v, u}
			}
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				edges = append(edges, key)
			}
		}
		offset += n
	}
	return edges
}

// polyMaxRadiusSq returns the maximum squared distance from center to any
// packed vertex.
func polyMaxRadiusSq(vertices []float64, center geom.Vec3) float64 {
	var max float64
	for i := 0; i+2 < len(vertices); i += 3 {
		dx := vertices[i] - center[0]
		dy := vertices[i+1] - center[1]
		dz := vertices[i+2] - center[2]
		if d2 := dx*dx + dy*dy + dz*dz; d2 > max {
			max = d2
		}
	}
	return max
}

// checkFaceTopology verifies Euler's formula and half-edge mate symmetry
// over explicit face loops.
func checkFaceTopology(vertexCount int, faceCounts, faceIndices []uint32) error {
	directed := make(map[[2]uint32]int)
	offset := 0
	for f, count := range faceCounts {
		n := int(count)
		if n < 3 {
			return fmt.Errorf("face %d has %d vertices, need at least 3", f, n)
		}
		for i := 0; i < n; i++ {
			u := faceIndices[offset+i]
			v := faceIndices[offset+(i+1)%n]
			if int(u) >= vertexCount || int(v) >= vertexCount {
				return fmt.Errorf("face %d references vertex out of range", f)
			}
			if u == v {
				return fmt.Errorf("face %d has a degenerate edge at vertex %d", f, u)
			}
			directed[[2]uint32{u, v}]++
		}
		offset += n
	}
	for e, n := range directed {
		if n != 1 {
			return fmt.Errorf("directed edge %d->%d appears %d times, want 1", e[0], e[1], n)
		}
		if directed[[2]uint32{e[1], e[0]}] != 1 {
			return fmt.Errorf("directed edge %d->%d has no mate", e[0], e[1])
		}
	}
	v := vertexCount
	e := len(directed) / 2
	f := len(faceCounts)
	if v-e+f != 2 {
		return fmt.Errorf("euler violation: V=%d E=%d F=%d", v, e, f)
	}
	return nil
}
