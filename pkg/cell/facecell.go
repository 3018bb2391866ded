package cell

import (
	"github.com/mdt-re/vorothree/pkg/geom"
)

// Compile-time interface check.
var _ Cell = (*FaceCell)(nil)

// FaceCell is the face-list representation of a cell: packed vertices plus
// one ordered vertex loop and one neighbor id per face. Clipping runs a
// per-face polygon clip against the plane and closes the opening with a new
// face reconstructed from the crossing segments.
type FaceCell struct {
	id            int
	eps           float64
	vertices      []float64
	faceCounts    []uint32
	faceIndices   []uint32
	faceNeighbors []int32
}

// NewFaceCell returns the cell of generator id initialized to the bounding
// box, six faces tagged with the box side ids.
func NewFaceCell(id int, b geom.Bounds) *FaceCell {
	return &FaceCell{
		id:       id,
		eps:      geom.Tolerance(b.Diagonal()),
		vertices: boxVertices(b),
		faceCounts: []uint32{
			4, 4, 4, 4, 4, 4,
		},
		faceIndices: []uint32{
			3, 2, 1, 0, // bottom (z-)
			4, 5, 6, 7, // top (z+)
			0, 1, 5, 4, // front (y-)
			2, 3, 7, 6, // back (y+)
			0, 4, 7, 3, // left (x-)
			1, 2, 6, 5, // right (x+)
		},
		faceNeighbors: []int32{
			geom.IDBottom, geom.IDTop,
			geom.IDFront, geom.IDBack,
			geom.IDLeft, geom.IDRight,
		},
	}
}

func (c *FaceCell) ID() int                { return c.id }
func (c *FaceCell) Empty() bool            { return len(c.vertices) == 0 }
func (c *FaceCell) Vertices() []float64    { return c.vertices }
func (c *FaceCell) VertexCount() int       { return len(c.vertices) / 3 }
func (c *FaceCell) FaceCounts() []uint32   { return c.faceCounts }
func (c *FaceCell) FaceIndices() []uint32  { return c.faceIndices }
func (c *FaceCell) FaceNeighbors() []int32 { return c.faceNeighbors }

// MakeEmpty discards the polyhedron.
func (c *FaceCell) MakeEmpty() {
	c.vertices = c.vertices[:0]
	c.faceCounts = c.faceCounts[:0]
	c.faceIndices = c.faceIndices[:0]
	c.faceNeighbors = c.faceNeighbors[:0]
}

// Faces returns one vertex loop per face.
func (c *FaceCell) Faces() [][]uint32 {
	faces := make([][]uint32, 0, len(c.faceCounts))
	offset := 0
	for _, count := range c.faceCounts {
		n := int(count)
		loop := make([]uint32, n)
		copy(loop, c.faceIndices[offset:offset+n])
		faces = append(faces, loop)
		offset += n
	}
	return faces
}

// Clip cuts the cell by the half-space on the positive side of the plane.
func (c *FaceCell) Clip(point, normal geom.Vec3, neighbor int32) {
	var s Scratch
	c.ClipScratch(point, normal, neighbor, &s, nil)
}

// ClipScratch cuts the cell by the half-space on the positive side of the
// plane, reusing the scratch buffers. When generator is non-nil and the
// cell changes, the second return value is the new maximum squared vertex
// distance from the generator.
func (c *FaceCell) ClipScratch(point, normal geom.Vec3, neighbor int32, s *Scratch, generator *geom.Vec3) (bool, float64) {
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
	s.faceCounts = s.faceCounts[:0]
	s.faceIndices = s.faceIndices[:0]
	s.faceNeighbors = s.faceNeighbors[:0]
	s.isInter = s.isInter[:0]
	s.interKeys = s.interKeys[:0]
	s.interIdx = s.interIdx[:0]
	s.lidSegments = s.lidSegments[:0]
	s.oldToNew = s.oldToNew[:0]
	for i := 0; i < numVerts; i++ {
		s.oldToNew = append(s.oldToNew, -1)
	}

	var maxR2 float64

	// Keep the vertices on the negative side.
	for i := 0; i < numVerts; i++ {
		if s.dists[i] <= c.eps {
			s.oldToNew[i] = int32(len(s.vertices) / 3)
			s.vertices = append(s.vertices, c.vertices[i*3], c.vertices[i*3+1], c.vertices[i*3+2])
			// A kept vertex on the plane already lies on the lid boundary.
			s.isInter = append(s.isInter, s.dists[i] >= -c.eps)
			if generator != nil {
				dx := c.vertices[i*3] - generator[0]
				dy := c.vertices[i*3+1] - generator[1]
				dz := c.vertices[i*3+2] - generator[2]
				if d2 := dx*dx + dy*dy + dz*dz; d2 > maxR2 {
					maxR2 = d2
				}
			}
		}
	}

	// intersect returns the vertex where edge (a, b) crosses the plane,
	// creating it on first use. Keys are undirected so the vertex is shared
	// between the two faces along the edge.
	intersect := func(a, b uint32) uint32 {
		key := [2]uint32{a, b}
		if a > b {
			key = [2]uint32{b, a}
		}
		for k, existing := range s.interKeys {
			if existing == key {
				return s.interIdx[k]
			}
		}
		da := s.dists[a]
		db := s.dists[b]
		t := da / (da - db)
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		pa := vertexAt(c.vertices, a)
		pb := vertexAt(c.vertices, b)
		p := pa.Add(pb.Sub(pa).Mul(t))
		idx := uint32(len(s.vertices) / 3)
		s.vertices = append(s.vertices, p[0], p[1], p[2])
		s.isInter = append(s.isInter, true)
		s.interKeys = append(s.interKeys, key)
		s.interIdx = append(s.interIdx, idx)
		if generator != nil {
			d := p.Sub(*generator)
			if d2 := d.Dot(d); d2 > maxR2 {
				maxR2 = d2
			}
		}
		return idx
	}

	// Clip every face against the plane.
	offset := 0
	for f, count := range c.faceCounts {
		n := int(count)
		loop := c.faceIndices[offset : offset+n]
		offset += n

		s.faceBuf = s.faceBuf[:0]
		for i := 0; i < n; i++ {
			start := loop[i]
			end := loop[(i+1)%n]
			startIn := s.dists[start] <= c.eps
			endIn := s.dists[end] <= c.eps

			switch {
			case startIn && endIn:
				s.faceBuf = append(s.faceBuf, uint32(s.oldToNew[end]))
			case startIn && !endIn:
				// An on-plane start vertex is its own crossing point and is
				// already in the loop.
				if s.dists[start] < -c.eps {
					s.faceBuf = append(s.faceBuf, intersect(start, end))
				}
			case !startIn && endIn:
				if s.dists[end] < -c.eps {
					s.faceBuf = append(s.faceBuf, intersect(start, end))
				}
				s.faceBuf = append(s.faceBuf, uint32(s.oldToNew[end]))
			}
		}

		if len(s.faceBuf) < 3 {
			continue
		}
		s.faceCounts = append(s.faceCounts, uint32(len(s.faceBuf)))
		s.faceNeighbors = append(s.faceNeighbors, c.faceNeighbors[f])
		// Edges joining two crossing vertices lie on the clipping plane;
		// reversed, they bound the lid face.
		for i := range s.faceBuf {
			u := s.faceBuf[i]
			v := s.faceBuf[(i+1)%len(s.faceBuf)]
			if s.isInter[u] && s.isInter[v] {
				s.lidSegments = append(s.lidSegments, [2]uint32{v, u})
			}
		}
		s.faceIndices = append(s.faceIndices, s.faceBuf...)
	}

	// Chain the crossing segments into the lid loop.
	if len(s.lidSegments) > 0 {
		s.lidBuf = s.lidBuf[:0]
		start := s.lidSegments[0][0]
		current := s.lidSegments[0][1]
		s.lidBuf = append(s.lidBuf, start)
		for current != start && len(s.lidBuf) <= len(s.lidSegments) {
			s.lidBuf = append(s.lidBuf, current)
			found := false
			for _, seg := range s.lidSegments {
				if seg[0] == current {
					current = seg[1]
					found = true
					break
				}
			}
			if !found {
				break
			}
		}
		if len(s.lidBuf) >= 3 {
			s.faceCounts = append(s.faceCounts, uint32(len(s.lidBuf)))
			s.faceIndices = append(s.faceIndices, s.lidBuf...)
			s.faceNeighbors = append(s.faceNeighbors, neighbor)
		}
	}

	c.vertices, s.vertices = s.vertices, c.vertices
	c.faceCounts, s.faceCounts = s.faceCounts, c.faceCounts
	c.faceIndices, s.faceIndices = s.faceIndices, c.faceIndices
	c.faceNeighbors, s.faceNeighbors = s.faceNeighbors, c.faceNeighbors

	return true, maxR2
}

// Volume returns the enclosed volume.
func (c *FaceCell) Volume() float64 {
	return polyVolume(c.vertices, c.faceCounts, c.faceIndices)
}

// Centroid returns the volume centroid.
func (c *FaceCell) Centroid() geom.Vec3 {
	return polyCentroid(c.vertices, c.faceCounts, c.faceIndices)
}

// faceLoop returns the vertex loop of face i, or nil when out of range.
func (c *FaceCell) faceLoop(i int) []uint32 {
	if i < 0 || i >= len(c.faceCounts) {
		return nil
	}
	offset := 0
	for f := 0; f < i; f++ {
		offset += int(c.faceCounts[f])
	}
	return c.faceIndices[offset : offset+int(c.faceCounts[i])]
}

// FaceArea returns the area of face i.
func (c *FaceCell) FaceArea(i int) float64 {
	return polyFaceArea(c.vertices, c.faceLoop(i))
}

// FaceNormal returns the unit normal of face i.
func (c *FaceCell) FaceNormal(i int) geom.Vec3 {
	return polyFaceNormal(c.vertices, c.faceLoop(i))
}

// FaceCentroid returns the area centroid of face i.
func (c *FaceCell) FaceCentroid(i int) geom.Vec3 {
	return polyFaceCentroid(c.vertices, c.faceLoop(i))
}

// Edges returns every undirected edge once.
func (c *FaceCell) Edges() [][2]uint32 {
	return polyEdges(c.faceCounts, c.faceIndices)
}

// MaxRadiusSq returns the maximum squared vertex distance from center.
func (c *FaceCell) MaxRadiusSq(center geom.Vec3) float64 {
	return polyMaxRadiusSq(c.vertices, center)
}

// CheckTopology verifies the combinatorial invariants.
func (c *FaceCell) CheckTopology() error {
	if c.Empty() {
		return nil
	}
	return checkFaceTopology(c.VertexCount(), c.faceCounts, c.faceIndices)
}
