package spoke

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring"

	"gfa_index/pkg/graph"
)

// VertexID identifies a HyperSpokeGraph vertex. IDs are dense after
// ApplyDeletions; between merges and compaction some IDs are tombstones.
type VertexID uint32

// HyperSpokeGraph coarsens a SpokeGraph by grouping hubs into vertices.
// Adjacency is derived from the underlying SpokeGraph on demand.
type HyperSpokeGraph struct {
	sg        *SpokeGraph
	vertices  []*roaring.Bitmap // hub set per vertex
	deleted   *roaring.Bitmap
	hubVertex []VertexID
}

// NewHyper returns a HyperSpokeGraph with one vertex per hub of sg.
func NewHyper(sg *SpokeGraph) *HyperSpokeGraph {
	hubs := sg.HubCount()
	h := &HyperSpokeGraph{
		sg:        sg,
		vertices:  make([]*roaring.Bitmap, hubs),
		deleted:   roaring.New(),
		hubVertex: make([]VertexID, hubs),
	}
	for i := range hubs {
		h.vertices[i] = roaring.BitmapOf(uint32(i))
		h.hubVertex[i] = VertexID(i)
	}
	return h
}

func (h *HyperSpokeGraph) SpokeGraph() *SpokeGraph { return h.sg }

// VertexCount is the number of live vertices.
func (h *HyperSpokeGraph) VertexCount() int {
	return len(h.vertices) - int(h.deleted.GetCardinality())
}

func (h *HyperSpokeGraph) IsDeleted(v VertexID) bool { return h.deleted.Contains(uint32(v)) }

// HubVertex returns the vertex currently owning hub.
func (h *HyperSpokeGraph) HubVertex(hub HubID) VertexID { return h.hubVertex[hub] }

// Vertex returns the hub set of v. It panics if v has been merged away.
func (h *HyperSpokeGraph) Vertex(v VertexID) *roaring.Bitmap {
	h.mustLive(v)
	return h.vertices[v]
}

// Vertices yields live vertices in increasing order.
func (h *HyperSpokeGraph) Vertices() iter.Seq[VertexID] {
	return func(yield func(VertexID) bool) {
		for v := range h.vertices {
			if h.IsDeleted(VertexID(v)) {
				continue
			}
			if !yield(VertexID(v)) {
				return
			}
		}
	}
}

func (h *HyperSpokeGraph) mustLive(v VertexID) {
	if h.IsDeleted(v) {
		panic(fmt.Sprintf("spoke: vertex %d was merged away", v))
	}
}

// ContractEdge merges vb into va. It does nothing if va == vb or either is
// already deleted.
func (h *HyperSpokeGraph) ContractEdge(va, vb VertexID) {
	if va == vb || h.IsDeleted(va) || h.IsDeleted(vb) {
		return
	}
	h.moveHubs(va, vb)
}

// moveHubs transfers every hub of from into to and tombstones from.
func (h *HyperSpokeGraph) moveHubs(to, from VertexID) {
	hubs := h.vertices[from]
	it := hubs.Iterator()
	for it.HasNext() {
		h.hubVertex[it.Next()] = to
	}
	h.vertices[to].Or(hubs)
	h.vertices[from] = roaring.New()
	h.deleted.Add(uint32(from))
}

// MergeHubPartition merges the vertices owning hubs into the vertex of the
// first hub. Fewer than two hubs is a no-op.
func (h *HyperSpokeGraph) MergeHubPartition(hubs []HubID) {
	if len(hubs) < 2 {
		return
	}
	target := h.hubVertex[hubs[0]]
	for _, hub := range hubs[1:] {
		v := h.hubVertex[hub]
		if v != target && !h.IsDeleted(v) {
			h.moveHubs(target, v)
		}
		h.vertices[target].Add(uint32(hub))
		h.hubVertex[hub] = target
	}
}

// ApplyDeletions drops tombstoned vertices and renumbers the rest densely,
// preserving their relative order. It panics if a hub still refers to a
// deleted vertex.
func (h *HyperSpokeGraph) ApplyDeletions() {
	if h.deleted.IsEmpty() {
		return
	}
	newID := make([]VertexID, len(h.vertices))
	live := make([]*roaring.Bitmap, 0, h.VertexCount())
	for v, hubs := range h.vertices {
		if h.IsDeleted(VertexID(v)) {
			continue
		}
		newID[v] = VertexID(len(live))
		live = append(live, hubs)
	}
	for hub, v := range h.hubVertex {
		if h.IsDeleted(v) {
			panic(fmt.Sprintf("spoke: hub %d maps to deleted vertex %d", hub, v))
		}
		h.hubVertex[hub] = newID[v]
	}
	h.vertices = live
	h.deleted = roaring.New()
}

// VertexSpokes yields every spoke leaving v with the vertex it leads to.
// It panics if v has been merged away.
func (h *HyperSpokeGraph) VertexSpokes(v VertexID) iter.Seq2[graph.OrientedNode, VertexID] {
	h.mustLive(v)
	hubs := h.vertices[v]
	return func(yield func(graph.OrientedNode, VertexID) bool) {
		it := hubs.Iterator()
		for it.HasNext() {
			for nbr, spokes := range h.sg.Neighbors(HubID(it.Next())) {
				to := h.hubVertex[nbr]
				for _, s := range spokes {
					if !yield(s, to) {
						return
					}
				}
			}
		}
	}
}

// DFSParent is the vertex and spoke a DFS step arrived through.
type DFSParent struct {
	Vertex VertexID
	Spoke  graph.OrientedNode
}

// DFSPreorder visits every live vertex once in depth-first preorder,
// starting at source when given and restarting from the lowest unvisited
// vertex until all components are covered. fn receives the visit index,
// the arrival edge (nil for roots) and the vertex.
func (h *HyperSpokeGraph) DFSPreorder(source *VertexID, fn func(order int, parent *DFSParent, v VertexID)) {
	type entry struct {
		v         VertexID
		parent    DFSParent
		hasParent bool
	}

	visited := make([]bool, len(h.vertices))
	var stack []entry
	var spokes []entry
	order := 0

	run := func(root VertexID) {
		stack = append(stack[:0], entry{v: root})
		for len(stack) > 0 {
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[e.v] {
				continue
			}
			visited[e.v] = true
			if e.hasParent {
				p := e.parent
				fn(order, &p, e.v)
			} else {
				fn(order, nil, e.v)
			}
			order++

			// Push in reverse so the first spoke is explored first.
			spokes = spokes[:0]
			for s, to := range h.VertexSpokes(e.v) {
				if !visited[to] {
					spokes = append(spokes, entry{v: to, parent: DFSParent{Vertex: e.v, Spoke: s}, hasParent: true})
				}
			}
			for i := len(spokes) - 1; i >= 0; i-- {
				stack = append(stack, spokes[i])
			}
		}
	}

	if source != nil && !h.IsDeleted(*source) {
		run(*source)
	}
	for v := range h.Vertices() {
		if !visited[v] {
			run(v)
		}
	}
}
