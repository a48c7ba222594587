// Package matrix stores segment-path incidence as a sparse matrix of 32-bit
// path masks. Row r, column s holds a bitmask of which paths 32*r..32*r+31
// step on segment s.
package matrix

import (
	"iter"
	"math/bits"
	"slices"

	"gfa_index/pkg/graph"
)

// StepSource supplies path step tables. *pathindex.PathIndex satisfies it.
type StepSource interface {
	NodeCount() int
	PathCount() int
	PathSteps(id graph.PathID) []graph.OrientedNode
}

// SegmentPathMatrix is a CSC matrix: colPtr[s]..colPtr[s+1] indexes the
// nonzero rows of segment s in rowIdx and data.
type SegmentPathMatrix struct {
	rows   int
	cols   int
	colPtr []uint32
	rowIdx []uint32
	data   []uint32
}

type cell struct {
	row  uint32
	bits uint32
}

// Build assembles the matrix in one pass over every path's steps.
func Build(src StepSource) *SegmentPathMatrix {
	cols := src.NodeCount()
	paths := src.PathCount()

	// Most segments touch few row groups, so a short sorted slice per
	// segment beats a map.
	perSeg := make([][]cell, cols)
	for p := range paths {
		row := uint32(p / 32)
		bit := uint32(1) << (p % 32)
		for _, step := range src.PathSteps(graph.PathID(p)) {
			seg := step.Node()
			cells := perSeg[seg]
			i, found := slices.BinarySearchFunc(cells, row, func(c cell, r uint32) int {
				return int(c.row) - int(r)
			})
			if found {
				cells[i].bits |= bit
				continue
			}
			if cells == nil {
				cells = make([]cell, 0, 4)
			}
			perSeg[seg] = slices.Insert(cells, i, cell{row: row, bits: bit})
		}
	}

	m := &SegmentPathMatrix{
		rows:   (paths + 31) / 32,
		cols:   cols,
		colPtr: make([]uint32, cols+1),
	}
	var nnz int
	for _, cells := range perSeg {
		nnz += len(cells)
	}
	m.rowIdx = make([]uint32, 0, nnz)
	m.data = make([]uint32, 0, nnz)
	for s, cells := range perSeg {
		for _, c := range cells {
			m.rowIdx = append(m.rowIdx, c.row)
			m.data = append(m.data, c.bits)
		}
		m.colPtr[s+1] = uint32(len(m.rowIdx))
	}
	return m
}

// Rows is the number of 32-path row groups.
func (m *SegmentPathMatrix) Rows() int { return m.rows }

// Cols is the number of segments.
func (m *SegmentPathMatrix) Cols() int { return m.cols }

// NNZ is the number of stored nonzero masks.
func (m *SegmentPathMatrix) NNZ() int { return len(m.data) }

// PathsOnSegment extracts column seg. It returns false if seg is out of
// range. The returned slices alias the matrix and must not be modified.
func (m *SegmentPathMatrix) PathsOnSegment(seg graph.Node) (SparseVec, bool) {
	if int(seg) >= m.cols {
		return SparseVec{}, false
	}
	lo, hi := m.colPtr[seg], m.colPtr[seg+1]
	return SparseVec{Indices: m.rowIdx[lo:hi], Data: m.data[lo:hi]}, true
}

// Contains reports whether path steps on seg.
func (m *SegmentPathMatrix) Contains(seg graph.Node, path graph.PathID) bool {
	v, ok := m.PathsOnSegment(seg)
	if !ok {
		return false
	}
	row := uint32(path / 32)
	i, found := slices.BinarySearch(v.Indices, row)
	return found && v.Data[i]&(1<<(path%32)) != 0
}

// SparseVec is one column of the matrix: Data[i] is the path mask for row
// group Indices[i]. Indices are strictly increasing.
type SparseVec struct {
	Indices []uint32
	Data    []uint32
}

// All yields the path ids set in v in increasing order.
func (v SparseVec) All() iter.Seq[graph.PathID] {
	return func(yield func(graph.PathID) bool) {
		for i, row := range v.Indices {
			mask := v.Data[i]
			for mask != 0 {
				b := bits.TrailingZeros32(mask)
				if !yield(graph.PathID(row*32 + uint32(b))) {
					return
				}
				mask &= mask - 1
			}
		}
	}
}

// PathIDs unpacks v into a sorted slice of path ids.
func (v SparseVec) PathIDs() []graph.PathID {
	var n int
	for _, mask := range v.Data {
		n += bits.OnesCount32(mask)
	}
	out := make([]graph.PathID, 0, n)
	for p := range v.All() {
		out = append(out, p)
	}
	return out
}
