// Package spoke builds the hub-and-spoke view of a bidirected sequence
// graph. A hub is a maximal set of segment endpoints joined by links; a
// spoke is the endpoint through which a segment leaves its hub.
package spoke

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"

	"gfa_index/pkg/graph"
)

// HubID is a dense hub identifier. Its value depends on construction
// order and carries no meaning of its own.
type HubID uint32

var ErrEdgeOutOfRange = errors.New("edge references unknown segment")

// StepSource supplies path step tables. *pathindex.PathIndex satisfies it.
type StepSource interface {
	NodeCount() int
	PathCount() int
	PathSteps(id graph.PathID) []graph.OrientedNode
}

// SpokeGraph is immutable after construction.
type SpokeGraph struct {
	segmentCount int
	endpointHubs []HubID // by OrientedNode.Ix()
	hubEndpoints []*roaring.Bitmap

	// Hub adjacency in CSR form. Neighbors of hub h are
	// heads[firstOut[h]:firstOut[h+1]], and the spokes realizing the k-th
	// neighbor entry are spokes[spokeFirst[k]:spokeFirst[k+1]].
	firstOut   []uint32
	heads      []HubID
	spokeFirst []uint32
	spokes     []graph.OrientedNode
}

type adjEntry struct {
	hub, opp HubID
	spoke    graph.OrientedNode
}

// New builds a SpokeGraph over segmentCount segments from edges.
func New(ctx context.Context, segmentCount int, edges iter.Seq[graph.Edge]) (*SpokeGraph, error) {
	n := 2 * segmentCount
	uf := graph.NewUnionFind(uint32(n))

	var count int
	for e := range edges {
		count++
		if count%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		tail, head := e.Endpoints()
		if tail.Ix() >= n || head.Ix() >= n {
			return nil, fmt.Errorf("%w: %v", ErrEdgeOutOfRange, e)
		}
		uf.Union(uint32(tail), uint32(head))
	}

	sg := &SpokeGraph{
		segmentCount: segmentCount,
		endpointHubs: make([]HubID, n),
	}

	// Hubs are numbered in endpoint order of their first member.
	repHub := make([]int32, n)
	for i := range repHub {
		repHub[i] = -1
	}
	for ix := range n {
		r := uf.Find(uint32(ix))
		if repHub[r] < 0 {
			repHub[r] = int32(len(sg.hubEndpoints))
			sg.hubEndpoints = append(sg.hubEndpoints, roaring.New())
		}
		h := HubID(repHub[r])
		sg.endpointHubs[ix] = h
		sg.hubEndpoints[h].Add(uint32(ix))
	}

	entries := make([]adjEntry, n)
	for ix := range n {
		o := graph.OrientedNode(ix)
		entries[ix] = adjEntry{
			hub:   sg.endpointHubs[ix],
			opp:   sg.endpointHubs[o.Flip().Ix()],
			spoke: o,
		}
	}
	slices.SortFunc(entries, func(a, b adjEntry) int {
		return cmp.Or(cmp.Compare(a.hub, b.hub), cmp.Compare(a.opp, b.opp), cmp.Compare(a.spoke, b.spoke))
	})
	entries = slices.Compact(entries)
	sg.buildCSR(entries)

	logrus.WithFields(logrus.Fields{
		"segments": segmentCount,
		"edges":    count,
		"hubs":     len(sg.hubEndpoints),
	}).Debug("spoke graph built")
	return sg, nil
}

const ctxCheckInterval = 1 << 16

func (sg *SpokeGraph) buildCSR(entries []adjEntry) {
	hubs := len(sg.hubEndpoints)
	sg.firstOut = make([]uint32, hubs+1)
	sg.spokeFirst = make([]uint32, 0, len(entries)+1)
	sg.spokes = make([]graph.OrientedNode, 0, len(entries))

	for i, e := range entries {
		if i == 0 || e.hub != entries[i-1].hub || e.opp != entries[i-1].opp {
			sg.heads = append(sg.heads, e.opp)
			sg.spokeFirst = append(sg.spokeFirst, uint32(len(sg.spokes)))
			sg.firstOut[e.hub+1]++
		}
		sg.spokes = append(sg.spokes, e.spoke)
	}
	sg.spokeFirst = append(sg.spokeFirst, uint32(len(sg.spokes)))
	for h := 1; h <= hubs; h++ {
		sg.firstOut[h] += sg.firstOut[h-1]
	}
}

// NewFromPaths builds a SpokeGraph whose links are the consecutive step
// pairs of every path in src.
func NewFromPaths(ctx context.Context, src StepSource) (*SpokeGraph, error) {
	edges := func(yield func(graph.Edge) bool) {
		for p := range src.PathCount() {
			steps := src.PathSteps(graph.PathID(p))
			for i := 1; i < len(steps); i++ {
				if !yield(graph.Edge{From: steps[i-1], To: steps[i]}) {
					return
				}
			}
		}
	}
	return New(ctx, src.NodeCount(), edges)
}

// FromEdges adapts a slice of edges for New.
func FromEdges(edges []graph.Edge) iter.Seq[graph.Edge] {
	return slices.Values(edges)
}

func (sg *SpokeGraph) SegmentCount() int { return sg.segmentCount }

func (sg *SpokeGraph) HubCount() int { return len(sg.hubEndpoints) }

// EndpointHub returns the hub containing endpoint o.
func (sg *SpokeGraph) EndpointHub(o graph.OrientedNode) HubID { return sg.endpointHubs[o.Ix()] }

// HubEndpoints returns the endpoints of h as OrientedNode values. The
// bitmap must not be modified.
func (sg *SpokeGraph) HubEndpoints(h HubID) *roaring.Bitmap { return sg.hubEndpoints[h] }

// SegmentHubs returns the hubs at the start (rev) and end (fwd) of n.
func (sg *SpokeGraph) SegmentHubs(n graph.Node) (rev, fwd HubID) {
	return sg.EndpointHub(graph.NewOrientedNode(n, true)), sg.EndpointHub(graph.NewOrientedNode(n, false))
}

// Neighbors yields each hub adjacent to h with the spokes of h that lead
// to it. Neighbors are in increasing hub order; spokes are sorted.
func (sg *SpokeGraph) Neighbors(h HubID) iter.Seq2[HubID, []graph.OrientedNode] {
	return func(yield func(HubID, []graph.OrientedNode) bool) {
		for k := sg.firstOut[h]; k < sg.firstOut[h+1]; k++ {
			if !yield(sg.heads[k], sg.spokes[sg.spokeFirst[k]:sg.spokeFirst[k+1]]) {
				return
			}
		}
	}
}

// Degree is the number of spokes of h.
func (sg *SpokeGraph) Degree(h HubID) int {
	return int(sg.hubEndpoints[h].GetCardinality())
}
