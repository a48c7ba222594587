package matrix_test

import (
	"context"
	"slices"
	"strings"
	"testing"

	"gfa_index/pkg/graph"
	"gfa_index/pkg/matrix"
	"gfa_index/pkg/pathindex"
)

type fakeSource struct {
	nodes int
	paths [][]graph.OrientedNode
}

func (f *fakeSource) NodeCount() int { return f.nodes }
func (f *fakeSource) PathCount() int { return len(f.paths) }
func (f *fakeSource) PathSteps(id graph.PathID) []graph.OrientedNode {
	return f.paths[id]
}

func fwd(n graph.Node) graph.OrientedNode { return graph.NewOrientedNode(n, false) }
func rev(n graph.Node) graph.OrientedNode { return graph.NewOrientedNode(n, true) }

func TestBuildSmall(t *testing.T) {
	src := &fakeSource{
		nodes: 4,
		paths: [][]graph.OrientedNode{
			{fwd(0), fwd(1), fwd(3)},
			{fwd(0), rev(2), fwd(3), fwd(3)},
		},
	}
	m := matrix.Build(src)

	if m.Rows() != 1 || m.Cols() != 4 {
		t.Errorf("shape = %dx%d, want 1x4", m.Rows(), m.Cols())
	}
	if m.NNZ() != 4 {
		t.Errorf("NNZ = %d, want 4", m.NNZ())
	}

	tests := []struct {
		seg  graph.Node
		want []graph.PathID
	}{
		{0, []graph.PathID{0, 1}},
		{1, []graph.PathID{0}},
		{2, []graph.PathID{1}},
		{3, []graph.PathID{0, 1}},
	}
	for _, tt := range tests {
		v, ok := m.PathsOnSegment(tt.seg)
		if !ok {
			t.Fatalf("PathsOnSegment(%d) out of range", tt.seg)
		}
		if got := v.PathIDs(); !slices.Equal(got, tt.want) {
			t.Errorf("PathsOnSegment(%d) = %v, want %v", tt.seg, got, tt.want)
		}
	}

	if _, ok := m.PathsOnSegment(4); ok {
		t.Error("PathsOnSegment(4) should be out of range")
	}
}

func TestBuildManyPaths(t *testing.T) {
	// 70 paths span three row groups. Path p visits segment 0 and
	// segment 1+p%3.
	src := &fakeSource{nodes: 5}
	for p := range 70 {
		src.paths = append(src.paths, []graph.OrientedNode{fwd(0), fwd(graph.Node(1 + p%3))})
	}
	m := matrix.Build(src)

	if m.Rows() != 3 {
		t.Errorf("Rows = %d, want 3", m.Rows())
	}

	v, _ := m.PathsOnSegment(0)
	if len(v.Indices) != 3 {
		t.Errorf("segment 0 has %d row groups, want 3", len(v.Indices))
	}
	if got := v.PathIDs(); len(got) != 70 {
		t.Errorf("segment 0 has %d paths, want 70", len(got))
	}

	v, _ = m.PathsOnSegment(2)
	for p := range v.All() {
		if p%3 != 1 {
			t.Errorf("segment 2 reports path %d", p)
		}
	}
	if !m.Contains(3, 68) || m.Contains(3, 69) {
		t.Error("Contains(3, ...) disagrees with construction")
	}

	v, ok := m.PathsOnSegment(4)
	if !ok || len(v.Indices) != 0 || len(v.PathIDs()) != 0 {
		t.Errorf("untouched segment 4 = %+v, %v, want empty", v, ok)
	}
}

func TestSparseVecUnpack(t *testing.T) {
	v := matrix.SparseVec{
		Indices: []uint32{0, 2},
		Data:    []uint32{0b1001, 1 << 31},
	}
	want := []graph.PathID{0, 3, 95}
	if got := v.PathIDs(); !slices.Equal(got, want) {
		t.Errorf("PathIDs = %v, want %v", got, want)
	}
}

func TestMatchesPathIndex(t *testing.T) {
	const gfa = "S\t1\tA\nS\t2\tAC\nS\t3\tG\nS\t4\tTT\n" +
		"P\tx\t1+,2+,4+\t*\nP\ty\t1+,3-,4+\t*\nP\tz\t2+,2-\t*\n"
	idx, err := pathindex.Build(context.Background(), strings.NewReader(gfa))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m := matrix.Build(idx)

	for n := range idx.NodeCount() {
		v, ok := m.PathsOnSegment(graph.Node(n))
		if !ok {
			t.Fatalf("PathsOnSegment(%d) out of range", n)
		}
		got := v.PathIDs()
		want := idx.PathsOnNode(graph.Node(n))
		if !slices.Equal(got, want) {
			t.Errorf("node %d: matrix %v, node sets %v", n, got, want)
		}
	}
}
