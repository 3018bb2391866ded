package index

import (
	"container/heap"
	"fmt"

	"github.com/mdt-re/vorothree/pkg/geom"
)

// Compile-time interface check.
var _ Index = (*Octree)(nil)

// Octree stores points in an adaptive eight-way tree. A leaf holds up to
// capacity points and splits at the node centre when exceeded. Shell
// enumeration descends the tree through a min-heap keyed by node bounding
// box distance, so points come out in exact nearest-first order.
type Octree struct {
	bounds   geom.Bounds
	capacity int
	root     octNode
	points   []geom.Vec3
	alive    []bool
	live     int
}

type octNode struct {
	bounds   geom.Bounds
	ids      []int
	children *[8]octNode
}

// NewOctree constructs an empty octree over bounds with the given leaf
// capacity.
func NewOctree(bounds geom.Bounds, capacity int) (*Octree, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("octree capacity %d must be positive", capacity)
	}
	return &Octree{
		bounds:   bounds,
		capacity: capacity,
		root:     octNode{bounds: bounds},
	}, nil
}

func (n *octNode) contains(p geom.Vec3) bool {
	return p[0] >= n.bounds.Min[0] && p[0] <= n.bounds.Max[0] &&
		p[1] >= n.bounds.Min[1] && p[1] <= n.bounds.Max[1] &&
		p[2] >= n.bounds.Min[2] && p[2] <= n.bounds.Max[2]
}

func (n *octNode) insert(o *Octree, id int, p geom.Vec3) bool {
	if !n.contains(p) {
		return false
	}
	if n.children == nil {
		if len(n.ids) < o.capacity {
			n.ids = append(n.ids, id)
			return true
		}
		n.subdivide(o)
	}
	for i := range n.children {
		if n.children[i].insert(o, id, p) {
			return true
		}
	}
	return false
}

func (n *octNode) subdivide(o *Octree) {
	var children [8]octNode
	for i := 0; i < 8; i++ {
		children[i] = octNode{bounds: n.bounds.Octant(i)}
	}
	n.children = &children
	ids := n.ids
	n.ids = nil
	for _, id := range ids {
		p := o.points[id]
		for i := range n.children {
			if n.children[i].insert(o, id, p) {
				break
			}
		}
	}
}

func (n *octNode) remove(o *Octree, id int, p geom.Vec3) bool {
	if !n.contains(p) {
		return false
	}
	if n.children != nil {
		for i := range n.children {
			if n.children[i].remove(o, id, p) {
				return true
			}
		}
		return false
	}
	for i, other := range n.ids {
		if other == id {
			n.ids[i] = n.ids[len(n.ids)-1]
			n.ids = n.ids[:len(n.ids)-1]
			return true
		}
	}
	return false
}

// SetPoints replaces the contents with pts under ids 0..len(pts)-1.
func (o *Octree) SetPoints(pts []geom.Vec3) {
	o.points = append(o.points[:0], pts...)
	o.alive = o.alive[:0]
	o.live = len(pts)
	o.root = octNode{bounds: o.bounds}
	for id, p := range pts {
		o.alive = append(o.alive, true)
		o.root.insert(o, id, p)
	}
}

// Insert adds a point and returns its id. Points outside the root bounds
// are stored but not reachable through shell enumeration; callers validate
// bounds first.
func (o *Octree) Insert(p geom.Vec3) int {
	id := len(o.points)
	o.points = append(o.points, p)
	o.alive = append(o.alive, true)
	o.live++
	o.root.insert(o, id, p)
	return id
}

// Remove deletes the point with the given id.
func (o *Octree) Remove(id int) bool {
	if id < 0 || id >= len(o.points) || !o.alive[id] {
		return false
	}
	o.root.remove(o, id, o.points[id])
	o.alive[id] = false
	o.live--
	return true
}

// Move relocates the point with the given id by re-inserting it.
func (o *Octree) Move(id int, p geom.Vec3) bool {
	if id < 0 || id >= len(o.points) || !o.alive[id] {
		return false
	}
	o.root.remove(o, id, o.points[id])
	o.points[id] = p
	o.root.insert(o, id, p)
	return true
}

// Len returns the number of live points.
func (o *Octree) Len() int { return o.live }

// PointOf returns the point stored under id.
func (o *Octree) PointOf(id int) (geom.Vec3, bool) {
	if id < 0 || id >= len(o.points) || !o.alive[id] {
		return geom.Vec3{}, false
	}
	return o.points[id], true
}

// Shells starts a shell enumeration around from.
func (o *Octree) Shells(from geom.Vec3) ShellIterator {
	it := &octShells{o: o, from: from}
	it.heap = octHeap{octItem{
		distSq:  o.root.bounds.DistSq(from),
		node:    &o.root,
		pointID: -1,
	}}
	return it
}

// octItem is either an unexpanded node (pointID < 0) or a concrete point.
type octItem struct {
	distSq  float64
	node    *octNode
	pointID int
}

type octHeap []octItem

func (h octHeap) Len() int            { return len(h) }
func (h octHeap) Less(i, j int) bool  { return h[i].distSq < h[j].distSq }
func (h octHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *octHeap) Push(x interface{}) { *h = append(*h, x.(octItem)) }
func (h *octHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// octShells expands the nearest heap entry each step: nodes push their
// children or leaf points, points are yielded with their exact squared
// distance as the (tight) lower bound.
type octShells struct {
	o    *Octree
	from geom.Vec3
	heap octHeap
}

func (it *octShells) Next() (Candidate, bool) {
	for it.heap.Len() > 0 {
		item := heap.Pop(&it.heap).(octItem)
		if item.pointID >= 0 {
			return Candidate{
				ID:           item.pointID,
				Point:        it.o.points[item.pointID],
				LowerBoundSq: item.distSq,
			}, true
		}
		node := item.node
		if node.children != nil {
			for i := range node.children {
				child := &node.children[i]
				heap.Push(&it.heap, octItem{
					distSq:  child.bounds.DistSq(it.from),
					node:    child,
					pointID: -1,
				})
			}
			continue
		}
		for _, id := range node.ids {
			d := it.o.points[id].Sub(it.from)
			heap.Push(&it.heap, octItem{distSq: d.Dot(d), pointID: id})
		}
	}
	return Candidate{}, false
}
