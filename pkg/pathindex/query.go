package pathindex

import (
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"gfa_index/pkg/graph"
)

// NodeRange is an inclusive range of nodes.
type NodeRange struct {
	First graph.Node
	Last  graph.Node
}

func (idx *PathIndex) NodeCount() int { return idx.nodeCount }

func (idx *PathIndex) PathCount() int { return len(idx.pathSteps) }

// PangenomeLen is the sum of all segment lengths.
func (idx *PathIndex) PangenomeLen() graph.Bp { return idx.sequenceTotalLen }

// SegmentIDRange returns the smallest and largest GFA segment ids. Node n
// corresponds to GFA id SegmentIDRange()[0] + n.
func (idx *PathIndex) SegmentIDRange() (lo, hi uint32) {
	return idx.segmentIDRange[0], idx.segmentIDRange[1]
}

// NodeOffsetLength returns the pangenome offset and length of n. It returns
// zeros when n is out of range.
func (idx *PathIndex) NodeOffsetLength(n graph.Node) (offset, length graph.Bp) {
	if int(n) >= idx.nodeCount {
		return 0, 0
	}
	off, err := idx.segmentOffsets.Select(uint64(n))
	if err != nil {
		return 0, 0
	}
	end := uint64(idx.sequenceTotalLen)
	if int(n)+1 < idx.nodeCount {
		if end, err = idx.segmentOffsets.Select(uint64(n) + 1); err != nil {
			return 0, 0
		}
	}
	return graph.Bp(off), graph.Bp(end - off)
}

func (idx *PathIndex) NodeLength(n graph.Node) graph.Bp {
	_, l := idx.NodeOffsetLength(n)
	return l
}

// nodeAt maps a pangenome position to the node containing it. Positions at
// or past the end clamp to the last node.
func (idx *PathIndex) nodeAt(pos uint64) graph.Node {
	// Offset 0 is always present, so rank is at least 1.
	return graph.Node(idx.segmentOffsets.Rank(pos) - 1)
}

// NodeAt returns the node containing pangenome position pos.
func (idx *PathIndex) NodeAt(pos graph.Bp) (graph.Node, bool) {
	if pos >= idx.sequenceTotalLen {
		return 0, false
	}
	return idx.nodeAt(uint64(pos)), true
}

// PosRangeNodes returns the nodes overlapping the half-open pangenome
// interval [start, end). An empty interval is treated as the single
// position start.
func (idx *PathIndex) PosRangeNodes(start, end uint64) NodeRange {
	if end <= start {
		end = start + 1
	}
	return NodeRange{
		First: idx.nodeAt(start),
		Last:  idx.nodeAt(end - 1),
	}
}

func (idx *PathIndex) PathID(name string) (graph.PathID, bool) {
	id, ok := idx.pathNames[name]
	return id, ok
}

func (idx *PathIndex) PathName(id graph.PathID) string { return idx.names[id] }

// PathNames returns all path names in lexical order.
func (idx *PathIndex) PathNames() []string {
	names := slices.Clone(idx.names)
	slices.Sort(names)
	return names
}

// PathSteps returns the step table of id. The slice must not be modified.
func (idx *PathIndex) PathSteps(id graph.PathID) []graph.OrientedNode { return idx.pathSteps[id] }

func (idx *PathIndex) PathLen(id graph.PathID) graph.Bp { return idx.pathLens[id] }

// PathNodeSet returns the set of nodes visited by id. The bitmap must not be
// modified.
func (idx *PathIndex) PathNodeSet(id graph.PathID) *roaring.Bitmap { return idx.pathNodeSets[id] }

func (idx *PathIndex) PathContainsNode(id graph.PathID, n graph.Node) bool {
	return idx.pathNodeSets[id].Contains(uint32(n))
}

// PathStepOffset returns the path offset at which step begins.
func (idx *PathIndex) PathStepOffset(id graph.PathID, step int) graph.Bp {
	off, err := idx.pathStepOffsets[id].Select(uint64(step))
	if err != nil {
		return idx.pathLens[id]
	}
	return graph.Bp(off)
}

// PathStepRangeIter returns the steps of path name from the step covering
// start through the last step beginning at or before end, paired with their
// step indices. It returns false if the path does not exist.
func (idx *PathIndex) PathStepRangeIter(name string, start, end graph.Bp) (iter.Seq2[int, graph.OrientedNode], bool) {
	id, ok := idx.pathNames[name]
	if !ok {
		return nil, false
	}
	offs := idx.pathStepOffsets[id]
	steps := idx.pathSteps[id]

	startRank := offs.Rank(uint64(start))
	endRank := offs.Rank(uint64(end))
	var skip uint64
	if startRank > 0 {
		skip = startRank - 1
	}
	var take uint64
	if endRank > skip {
		take = endRank - skip
	}
	stop := min(int(skip+take), len(steps))

	return func(yield func(int, graph.OrientedNode) bool) {
		for i := int(skip); i < stop; i++ {
			if !yield(i, steps[i]) {
				return
			}
		}
	}, true
}

// StepAtPos returns the step of path name covering path position pos.
func (idx *PathIndex) StepAtPos(name string, pos graph.Bp) (graph.OrientedNode, bool) {
	i, ok := idx.StepIndexAtPos(name, pos)
	if !ok {
		return 0, false
	}
	return idx.pathSteps[idx.pathNames[name]][i], true
}

// StepIndexAtPos is StepAtPos returning the step index instead.
func (idx *PathIndex) StepIndexAtPos(name string, pos graph.Bp) (int, bool) {
	id, ok := idx.pathNames[name]
	if !ok || pos >= idx.pathLens[id] {
		return 0, false
	}
	return int(idx.pathStepOffsets[id].Rank(uint64(pos)) - 1), true
}

// PathsOnNode scans every path node set for n. The segment-path matrix
// answers the same question faster.
func (idx *PathIndex) PathsOnNode(n graph.Node) []graph.PathID {
	var out []graph.PathID
	for p, set := range idx.pathNodeSets {
		if set.Contains(uint32(n)) {
			out = append(out, graph.PathID(p))
		}
	}
	return out
}
