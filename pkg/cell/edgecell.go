package cell

import (
	"fmt"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Compile-time interface check.
var _ Cell = (*EdgeCell)(nil)

// EdgeCell is the vertex-adjacency representation of a cell. Each vertex
// stores its outgoing edges in counter-clockwise order as seen from outside,
// together with the id of the face to the left of each edge. Faces are
// implicit: a loop is recovered by repeatedly following the edge that keeps
// a face id on its left. Clipping rewires the adjacency in place instead of
// re-clipping every face polygon.
type EdgeCell struct {
	id       int
	eps      float64
	vertices []float64
	// edges[offsets[v] : offsets[v]+degrees[v]] are the neighbours of v.
	edges []uint32
	// faceIDs[k] is the face to the left of the directed edge at edges[k].
	faceIDs []int32
	offsets []uint32
	degrees []uint32
}

// NewEdgeCell returns the cell of generator id initialized to the bounding
// box topology: eight degree-3 vertices whose edge order walks each side
// face counter-clockwise.
func NewEdgeCell(id int, b geom.Bounds) *EdgeCell {
	return &EdgeCell{
		id:       id,
		eps:      geom.Tolerance(b.Diagonal()),
		vertices: boxVertices(b),
		edges: []uint32{
			1, 4, 3, // vertex 0
			2, 5, 0, // vertex 1
			3, 6, 1, // vertex 2
			0, 7, 2, // vertex 3
			5, 7, 0, // vertex 4
			1, 6, 4, // vertex 5
			2, 7, 5, // vertex 6
			3, 4, 6, // vertex 7
		},
		faceIDs: []int32{
			geom.IDFront, geom.IDLeft, geom.IDBottom, // vertex 0
			geom.IDRight, geom.IDFront, geom.IDBottom, // vertex 1
			geom.IDBack, geom.IDRight, geom.IDBottom, // vertex 2
			geom.IDLeft, geom.IDBack, geom.IDBottom, // vertex 3
			geom.IDTop, geom.IDLeft, geom.IDFront, // vertex 4
			geom.IDRight, geom.IDTop, geom.IDFront, // vertex 5
			geom.IDBack, geom.IDTop, geom.IDRight, // vertex 6
			geom.IDLeft, geom.IDTop, geom.IDBack, // vertex 7
		},
		offsets: []uint32{0, 3, 6, 9, 12, 15, 18, 21},
		degrees: []uint32{3, 3, 3, 3, 3, 3, 3, 3},
	}
}

func (c *EdgeCell) ID() int             { return c.id }
func (c *EdgeCell) Empty() bool         { return len(c.vertices) == 0 }
func (c *EdgeCell) Vertices() []float64 { return c.vertices }
func (c *EdgeCell) VertexCount() int    { return len(c.vertices) / 3 }

// MakeEmpty discards the polyhedron.
func (c *EdgeCell) MakeEmpty() {
	c.vertices = c.vertices[:0]
	c.edges = c.edges[:0]
	c.faceIDs = c.faceIDs[:0]
	c.offsets = c.offsets[:0]
	c.degrees = c.degrees[:0]
}

// Clip cuts the cell by the half-space on the positive side of the plane.
func (c *EdgeCell) Clip(point, normal geom.Vec3, neighbor int32) {
	var s Scratch
	c.ClipScratch(point, normal, neighbor, &s, nil)
}

// ClipScratch cuts the cell by the half-space on the positive side of the
// plane, reusing the scratch buffers. When generator is non-nil and the
// cell changes, the second return value is the new maximum squared vertex
// distance from the generator.
func (c *EdgeCell) ClipScratch(point, normal geom.Vec3, neighbor int32, s *Scratch, generator *geom.Vec3) (bool, float64) {
	numVerts := len(c.vertices) / 3
	s.dists = s.dists[:0]
	allInside := true
	allOutside := true

	for i := 0; i < numVerts; i++ {
		v := vertexAt(c.vertices, uint32(i))
		d := v.Sub(point).Dot(normal)
		s.dists = append(s.dists, d)
		if d > c.eps {
			allInside = false
		} else if d < -c.eps {
			allOutside = false
		}
	}

	if allInside {
		return false, 0
	}
	if allOutside {
		c.MakeEmpty()
		return true, 0
	}

	s.vertices = s.vertices[:0]
	s.edges = s.edges[:0]
	s.faceIDs = s.faceIDs[:0]
	s.offsets = s.offsets[:0]
	s.degrees = s.degrees[:0]
	s.faceCuts = s.faceCuts[:0]
	s.cutInfos = s.cutInfos[:0]
	s.oldToNew = s.oldToNew[:0]
	for i := 0; i < numVerts; i++ {
		s.oldToNew = append(s.oldToNew, -1)
	}

	var maxR2 float64
	track := func(x, y, z float64) {
		if generator == nil {
			return
		}
		dx := x - generator[0]
		dy := y - generator[1]
		dz := z - generator[2]
		if d2 := dx*dx + dy*dy + dz*dz; d2 > maxR2 {
			maxR2 = d2
		}
	}

	// Pass 1: keep inside vertices and create one new vertex per crossing
	// edge, remembering which faces the crossing touched.
	for i := 0; i < numVerts; i++ {
		if s.dists[i] > c.eps {
			continue
		}
		newIdx := uint32(len(s.vertices) / 3)
		s.vertices = append(s.vertices, c.vertices[i*3], c.vertices[i*3+1], c.vertices[i*3+2])
		s.oldToNew[i] = int32(newIdx)
		track(c.vertices[i*3], c.vertices[i*3+1], c.vertices[i*3+2])
		s.offsets = append(s.offsets, 0)
		s.degrees = append(s.degrees, 0)

		start := int(c.offsets[i])
		count := int(c.degrees[i])
		for k := 0; k < count; k++ {
			nb := int(c.edges[start+k])
			if s.dists[nb] <= c.eps {
				continue
			}
			// Crossing edge: interpolate the plane intersection.
			ds := s.dists[i]
			de := s.dists[nb]
			t := ds / (ds - de)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			a := vertexAt(c.vertices, uint32(i))
			b := vertexAt(c.vertices, uint32(nb))
			p := a.Add(b.Sub(a).Mul(t))

			pIdx := uint32(len(s.vertices) / 3)
			s.vertices = append(s.vertices, p[0], p[1], p[2])
			s.offsets = append(s.offsets, 0)
			s.degrees = append(s.degrees, 0)
			track(p[0], p[1], p[2])

			faceLeft := c.faceIDs[start+k]
			faceRight := c.faceIDs[start+(k+count-1)%count]

			// A convex cut meets each face in at most two points; drop
			// anything beyond that, it is a tolerance artefact.
			countLeft := 0
			countRight := 0
			for _, fc := range s.faceCuts {
				if fc.face == faceLeft {
					countLeft++
				}
				if fc.face == faceRight {
					countRight++
				}
			}
			if countLeft < 2 && countRight < 2 {
				s.faceCuts = append(s.faceCuts, faceCut{face: faceLeft, idx: pIdx})
				s.faceCuts = append(s.faceCuts, faceCut{face: faceRight, idx: pIdx})
				s.cutInfos = append(s.cutInfos, cutInfo{p: pIdx, u: newIdx, left: faceLeft, right: faceRight})
			}
		}
	}

	// Pass 2: rebuild the adjacency of the kept vertices, substituting the
	// new vertex for each crossing edge.
	for i := 0; i < numVerts; i++ {
		newIdx := s.oldToNew[i]
		if newIdx < 0 {
			continue
		}
		s.offsets[newIdx] = uint32(len(s.edges))
		start := int(c.offsets[i])
		count := int(c.degrees[i])
		var degree uint32
		for k := 0; k < count; k++ {
			nb := int(c.edges[start+k])
			faceLeft := c.faceIDs[start+k]
			if mapped := s.oldToNew[nb]; mapped >= 0 {
				s.edges = append(s.edges, uint32(mapped))
				s.faceIDs = append(s.faceIDs, faceLeft)
				degree++
				continue
			}
			for _, ci := range s.cutInfos {
				if ci.u == uint32(newIdx) && ci.left == faceLeft {
					s.edges = append(s.edges, ci.p)
					s.faceIDs = append(s.faceIDs, faceLeft)
					degree++
					break
				}
			}
		}
		s.degrees[newIdx] = degree
	}

	// Pass 3: wire each new vertex: back to its kept vertex, then along the
	// clipping plane to the neighbouring new vertices through the shared
	// faces, closing the lid.
	for _, ci := range s.cutInfos {
		s.offsets[ci.p] = uint32(len(s.edges))
		var degree uint32

		s.edges = append(s.edges, ci.u)
		s.faceIDs = append(s.faceIDs, ci.right)
		degree++

		prev := uint32(0xffffffff)
		for _, fc := range s.faceCuts {
			if fc.face == ci.right && fc.idx != ci.p {
				prev = fc.idx
				break
			}
		}
		if prev != 0xffffffff {
			s.edges = append(s.edges, prev)
			s.faceIDs = append(s.faceIDs, neighbor)
			degree++
		}

		next := uint32(0xffffffff)
		for _, fc := range s.faceCuts {
			if fc.face == ci.left && fc.idx != ci.p {
				next = fc.idx
				break
			}
		}
		if next != 0xffffffff {
			s.edges = append(s.edges, next)
			s.faceIDs = append(s.faceIDs, ci.left)
			degree++
		}

		s.degrees[ci.p] = degree
	}

	c.vertices, s.vertices = s.vertices, c.vertices
	c.edges, s.edges = s.edges, c.edges
	c.faceIDs, s.faceIDs = s.faceIDs, c.faceIDs
	c.offsets, s.offsets = s.offsets, c.offsets
	c.degrees, s.degrees = s.degrees, c.degrees

	return true, maxR2
}

// calculateFaces reconstructs explicit face loops by walking the adjacency
// with a fixed face id on the left.
func (c *EdgeCell) calculateFaces() (counts []uint32, indices []uint32, neighbors []int32) {
	visited := make(map[uint64]struct{})
	edgeKey := func(u, v uint32) uint64 { return uint64(u)<<32 | uint64(v) }

	for u := 0; u < len(c.degrees); u++ {
		start := int(c.offsets[u])
		degree := int(c.degrees[u])
		for k := 0; k < degree; k++ {
			v := c.edges[start+k]
			if _, ok := visited[edgeKey(uint32(u), v)]; ok {
				continue
			}
			faceID := c.faceIDs[start+k]

			var loop []uint32
			curr := uint32(u)
			next := v
			for {
				loop = append(loop, curr)
				visited[edgeKey(curr, next)] = struct{}{}

				nStart := int(c.offsets[next])
				nDegree := int(c.degrees[next])
				found := false
				for m := 0; m < nDegree; m++ {
					if c.faceIDs[nStart+m] == faceID {
						curr = next
						next = c.edges[nStart+m]
						found = true
						break
					}
				}
				if !found || curr == uint32(u) {
					break
				}
			}

			if len(loop) > 0 {
				counts = append(counts, uint32(len(loop)))
				indices = append(indices, loop...)
				neighbors = append(neighbors, faceID)
			}
		}
	}
	return counts, indices, neighbors
}

// FaceCounts returns the number of vertices of each face.
func (c *EdgeCell) FaceCounts() []uint32 {
	counts, _, _ := c.calculateFaces()
	return counts
}

// FaceIndices returns the concatenated vertex loops of all faces.
func (c *EdgeCell) FaceIndices() []uint32 {
	_, indices, _ := c.calculateFaces()
	return indices
}

// FaceNeighbors returns the neighbor id recorded on each face.
func (c *EdgeCell) FaceNeighbors() []int32 {
	_, _, neighbors := c.calculateFaces()
	return neighbors
}

// Faces returns one vertex loop per face.
func (c *EdgeCell) Faces() [][]uint32 {
	counts, indices, _ := c.calculateFaces()
	faces := make([][]uint32, 0, len(counts))
	offset := 0
	for _, count := range counts {
		n := int(count)
		loop := make([]uint32, n)
		copy(loop, indices[offset:offset+n])
		faces = append(faces, loop)
		offset += n
	}
	return faces
}

// Volume returns the enclosed volume.
func (c *EdgeCell) Volume() float64 {
	counts, indices, _ := c.calculateFaces()
	return polyVolume(c.vertices, counts, indices)
}

// Centroid returns the volume centroid.
func (c *EdgeCell) Centroid() geom.Vec3 {
	counts, indices, _ := c.calculateFaces()
	return polyCentroid(c.vertices, counts, indices)
}

func (c *EdgeCell) faceLoop(i int) []uint32 {
	counts, indices, _ := c.calculateFaces()
	if i < 0 || i >= len(counts) {
		return nil
	}
	offset := 0
	for f := 0; f < i; f++ {
		offset += int(counts[f])
	}
	return indices[offset : offset+int(counts[i])]
}

// FaceArea returns the area of face i.
func (c *EdgeCell) FaceArea(i int) float64 {
	return polyFaceArea(c.vertices, c.faceLoop(i))
}

// FaceNormal returns the unit normal of face i.
func (c *EdgeCell) FaceNormal(i int) geom.Vec3 {
	return polyFaceNormal(c.vertices, c.faceLoop(i))
}

// FaceCentroid returns the area centroid of face i.
func (c *EdgeCell) FaceCentroid(i int) geom.Vec3 {
	return polyFaceCentroid(c.vertices, c.faceLoop(i))
}

// Edges returns every undirected edge once.
func (c *EdgeCell) Edges() [][2]uint32 {
	counts, indices, _ := c.calculateFaces()
	return polyEdges(counts, indices)
}

// MaxRadiusSq returns the maximum squared vertex distance from center.
func (c *EdgeCell) MaxRadiusSq(center geom.Vec3) float64 {
	return polyMaxRadiusSq(c.vertices, center)
}

// CheckTopology verifies mate symmetry directly on the adjacency and
// Euler's formula over the reconstructed faces.
func (c *EdgeCell) CheckTopology() error {
	if c.Empty() {
		return nil
	}
	for u := 0; u < len(c.degrees); u++ {
		start := int(c.offsets[u])
		degree := int(c.degrees[u])
		for k := 0; k < degree; k++ {
			v := int(c.edges[start+k])
			if v >= len(c.degrees) {
				return fmt.Errorf("vertex %d references vertex %d out of range", u, v)
			}
			vStart := int(c.offsets[v])
			vDegree := int(c.degrees[v])
			mate := false
			for m := 0; m < vDegree; m++ {
				if int(c.edges[vStart+m]) == u {
					mate = true
					break
				}
			}
			if !mate {
				return fmt.Errorf("directed edge %d->%d has no mate", u, v)
			}
		}
	}
	counts, indices, _ := c.calculateFaces()
	return checkFaceTopology(c.VertexCount(), counts, indices)
}
