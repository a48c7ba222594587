package pathindex_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gfa_index/pkg/gfa"
	"gfa_index/pkg/graph"
	"gfa_index/pkg/pathindex"
)

// Segment lengths 44,12,19,1,1,13,1,1,1,2 give pangenome offsets
// 0,44,56,75,76,77,90,91,92,93 and a total length of 95.
const testGFA = `H	VN:Z:1.0
S	1	AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA
S	2	CCCCCCCCCCCC
S	3	GGGGGGGGGGGGGGGGGGG
S	4	T
S	5	A
S	6	*	LN:i:13
S	7	C
S	8	G
S	9	T
S	10	AC
L	1	+	2	+	0M
L	2	+	3	+	0M
P	a	1+,2+,3+,4+,6+,7+,8+,10+	*
P	b	1+,2-,3+,5+,6+,9+,10+	*
P	c#loop	3+,3-,5+	*
`

func buildTestIndex(t *testing.T) *pathindex.PathIndex {
	t.Helper()
	idx, err := pathindex.Build(context.Background(), strings.NewReader(testGFA))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuildCounts(t *testing.T) {
	idx := buildTestIndex(t)

	if got := idx.NodeCount(); got != 10 {
		t.Errorf("NodeCount = %d, want 10", got)
	}
	if got := idx.PathCount(); got != 3 {
		t.Errorf("PathCount = %d, want 3", got)
	}
	if got := idx.PangenomeLen(); got != 95 {
		t.Errorf("PangenomeLen = %d, want 95", got)
	}
	if lo, hi := idx.SegmentIDRange(); lo != 1 || hi != 10 {
		t.Errorf("SegmentIDRange = %d..%d, want 1..10", lo, hi)
	}
	if err := idx.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestNodeOffsetLength(t *testing.T) {
	idx := buildTestIndex(t)

	wantLens := []graph.Bp{44, 12, 19, 1, 1, 13, 1, 1, 1, 2}
	var wantOff graph.Bp
	for n, want := range wantLens {
		off, l := idx.NodeOffsetLength(graph.Node(n))
		if off != wantOff || l != want {
			t.Errorf("NodeOffsetLength(%d) = (%d, %d), want (%d, %d)", n, off, l, wantOff, want)
		}
		wantOff += want
	}

	if off, l := idx.NodeOffsetLength(10); off != 0 || l != 0 {
		t.Errorf("NodeOffsetLength(out of range) = (%d, %d), want (0, 0)", off, l)
	}
}

func TestLengthConservation(t *testing.T) {
	idx := buildTestIndex(t)

	var sum graph.Bp
	for n := range idx.NodeCount() {
		sum += idx.NodeLength(graph.Node(n))
	}
	if sum != idx.PangenomeLen() {
		t.Errorf("sum of node lengths = %d, want %d", sum, idx.PangenomeLen())
	}
}

func TestPosRangeNodes(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		name        string
		start, end  uint64
		first, last graph.Node
	}{
		{"second segment interior", 44, 55, 1, 1},
		{"whole first segment", 0, 44, 0, 0},
		{"spanning three", 40, 60, 0, 2},
		{"one past boundary", 44, 57, 1, 2},
		{"single-base segments", 75, 77, 3, 4},
		{"empty range", 50, 50, 1, 1},
		{"past end clamps", 200, 300, 9, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.PosRangeNodes(tt.start, tt.end)
			want := pathindex.NodeRange{First: tt.first, Last: tt.last}
			if got != want {
				t.Errorf("PosRangeNodes(%d, %d) = %+v, want %+v", tt.start, tt.end, got, want)
			}
		})
	}
}

func TestPosRangeRoundTrip(t *testing.T) {
	idx := buildTestIndex(t)

	for n := range idx.NodeCount() {
		off, l := idx.NodeOffsetLength(graph.Node(n))
		got := idx.PosRangeNodes(uint64(off), uint64(off+l))
		if got.First != graph.Node(n) || got.Last != graph.Node(n) {
			t.Errorf("node %d: PosRangeNodes(%d, %d) = %+v", n, off, off+l, got)
		}
		if at, ok := idx.NodeAt(off + l - 1); !ok || at != graph.Node(n) {
			t.Errorf("NodeAt(%d) = %d, %v, want %d", off+l-1, at, ok, n)
		}
	}
	if _, ok := idx.NodeAt(idx.PangenomeLen()); ok {
		t.Error("NodeAt(PangenomeLen) should be out of range")
	}
}

func TestPaths(t *testing.T) {
	idx := buildTestIndex(t)

	wantNames := []string{"a", "b", "c#loop"}
	names := idx.PathNames()
	if strings.Join(names, ",") != strings.Join(wantNames, ",") {
		t.Errorf("PathNames = %v, want %v", names, wantNames)
	}

	b, ok := idx.PathID("b")
	if !ok {
		t.Fatal("path b not found")
	}
	if idx.PathName(b) != "b" {
		t.Errorf("PathName(%d) = %q, want b", b, idx.PathName(b))
	}
	if got := idx.PathLen(b); got != 92 {
		t.Errorf("PathLen(b) = %d, want 92", got)
	}
	if s := idx.PathSteps(b)[1]; s != graph.NewOrientedNode(1, true) {
		t.Errorf("b step 1 = %v, want 1-", s)
	}
	if !idx.PathContainsNode(b, 8) || idx.PathContainsNode(b, 7) {
		t.Error("PathContainsNode(b) disagrees with step list")
	}

	loop, _ := idx.PathID("c#loop")
	if got := idx.PathNodeSet(loop).GetCardinality(); got != 2 {
		t.Errorf("c#loop node set size = %d, want 2 (revisits collapse)", got)
	}
	if got := idx.PathLen(loop); got != 39 {
		t.Errorf("PathLen(c#loop) = %d, want 39", got)
	}

	if _, ok := idx.PathID("missing"); ok {
		t.Error("PathID(missing) should not be found")
	}
}

func TestStepOffsetConsistency(t *testing.T) {
	idx := buildTestIndex(t)

	for p := range idx.PathCount() {
		id := graph.PathID(p)
		steps := idx.PathSteps(id)
		var pos graph.Bp
		for i, s := range steps {
			if got := idx.PathStepOffset(id, i); got != pos {
				t.Errorf("path %s step %d offset = %d, want %d", idx.PathName(id), i, got, pos)
			}
			pos += idx.NodeLength(s.Node())
		}
		if pos != idx.PathLen(id) {
			t.Errorf("path %s length = %d, steps sum to %d", idx.PathName(id), idx.PathLen(id), pos)
		}
	}
}

func TestPathStepRangeIter(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		name       string
		start, end graph.Bp
		want       []int
	}{
		{"interior", 50, 80, []int{1, 2, 3, 4}},
		{"first step only", 0, 0, []int{0}},
		{"end on boundary", 0, 44, []int{0, 1}},
		{"tail", 90, 200, []int{6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, ok := idx.PathStepRangeIter("a", tt.start, tt.end)
			if !ok {
				t.Fatal("path a not found")
			}
			var got []int
			for i := range seq {
				got = append(got, i)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("steps = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("steps = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}

	if _, ok := idx.PathStepRangeIter("missing", 0, 10); ok {
		t.Error("PathStepRangeIter on unknown path should report false")
	}

	// Early break stops the iteration.
	seq, _ := idx.PathStepRangeIter("a", 0, 1000)
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d steps after break, want 2", n)
	}
}

func TestStepAtPos(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		path   string
		pos    graph.Bp
		want   graph.OrientedNode
		wantOK bool
	}{
		{"a", 0, graph.NewOrientedNode(0, false), true},
		{"a", 75, graph.NewOrientedNode(3, false), true},
		{"a", 92, graph.NewOrientedNode(9, false), true},
		{"a", 93, 0, false},
		{"b", 50, graph.NewOrientedNode(1, true), true},
		{"c#loop", 20, graph.NewOrientedNode(2, true), true},
		{"missing", 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := idx.StepAtPos(tt.path, tt.pos)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("StepAtPos(%q, %d) = %v, %v, want %v, %v", tt.path, tt.pos, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPathsOnNode(t *testing.T) {
	idx := buildTestIndex(t)

	tests := []struct {
		node graph.Node
		want []graph.PathID
	}{
		{0, []graph.PathID{0, 1}},
		{2, []graph.PathID{0, 1, 2}},
		{4, []graph.PathID{1, 2}},
		{8, []graph.PathID{1}},
	}
	for _, tt := range tests {
		got := idx.PathsOnNode(tt.node)
		if len(got) != len(tt.want) {
			t.Errorf("PathsOnNode(%d) = %v, want %v", tt.node, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("PathsOnNode(%d) = %v, want %v", tt.node, got, tt.want)
				break
			}
		}
	}
}

func TestUnsortedSegments(t *testing.T) {
	in := "S\t3\tAAA\nS\t1\tA\nS\t2\tAA\nP\tp\t3+,1+\t*\n"
	idx, err := pathindex.Build(context.Background(), strings.NewReader(in))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Offsets follow id order: 1 at 0, 2 at 1, 3 at 3.
	for n, want := range []graph.Bp{0, 1, 3} {
		if off, _ := idx.NodeOffsetLength(graph.Node(n)); off != want {
			t.Errorf("offset of node %d = %d, want %d", n, off, want)
		}
	}
	if got := idx.PathLen(0); got != 4 {
		t.Errorf("PathLen = %d, want 4", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"gap in ids", "S\t1\tA\nS\t2\tA\nS\t5\tA\n", pathindex.ErrNotPacked},
		{"duplicate id", "S\t1\tA\nS\t1\tA\nS\t3\tA\n", pathindex.ErrDuplicateSegment},
		{"zero length", "S\t1\t*\n", pathindex.ErrZeroLength},
		{"no segments", "H\tVN:Z:1.0\n", pathindex.ErrNoSegments},
		{"non-numeric id", "S\tx\tA\n", gfa.ErrInvalidSegmentID},
		{"dangling step", "S\t1\tA\nP\tp\t1+,2+\t*\n", pathindex.ErrDanglingStep},
		{"duplicate path", "S\t1\tA\nP\tp\t1+\t*\nP\tp\t1-\t*\n", pathindex.ErrDuplicatePath},
		{"bad orientation", "S\t1\tA\nP\tp\t1x\t*\n", gfa.ErrInvalidOrientation},
		{"bad path name", "S\t1\tA\nP\t\xfe\t1+\t*\n", gfa.ErrInvalidPathName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := pathindex.Build(context.Background(), strings.NewReader(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if idx != nil {
				t.Error("Build returned a partial index on error")
			}
		})
	}
}

func TestPackingError(t *testing.T) {
	_, err := pathindex.Build(context.Background(), strings.NewReader("S\t1\tA\nS\t2\tA\nS\t5\tA\n"))
	var pe *pathindex.PackingError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PackingError", err)
	}
	if pe.Min != 1 || pe.Max != 5 || pe.Count != 3 {
		t.Errorf("PackingError = %+v, want {Min:1 Max:5 Count:3}", *pe)
	}

	if _, err := pathindex.Build(context.Background(), strings.NewReader("S\t1\tA\nS\t2\tA\nS\t3\tA\n")); err != nil {
		t.Errorf("packed ids 1,2,3: %v", err)
	}
}

func TestFromGFA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gfa")
	if err := os.WriteFile(path, []byte(testGFA), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err := pathindex.FromGFA(context.Background(), path)
	if err != nil {
		t.Fatalf("FromGFA: %v", err)
	}
	if idx.NodeCount() != 10 || idx.PathCount() != 3 {
		t.Errorf("FromGFA: %d nodes, %d paths", idx.NodeCount(), idx.PathCount())
	}

	if _, err := pathindex.FromGFA(context.Background(), filepath.Join(t.TempDir(), "missing.gfa")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildCanceled(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 10_000; i++ {
		fmt.Fprintf(&sb, "S\t%d\tA\n", i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pathindex.Build(ctx, strings.NewReader(sb.String())); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
