// Package query answers coordinate and membership questions against a built
// path index.
package query

import (
	"context"
	"errors"
	"fmt"

	"gfa_index/pkg/graph"
	"gfa_index/pkg/matrix"
	"gfa_index/pkg/pathindex"
)

var (
	ErrPathNotFound   = errors.New("path not found")
	ErrNodeOutOfRange = errors.New("segment out of range")
	ErrPosOutOfRange  = errors.New("position out of range")
)

// DefaultMaxSteps caps the number of steps one PathRange call returns.
const DefaultMaxSteps = 10_000

// Stats describes the loaded index.
type Stats struct {
	Segments     int
	Paths        int
	PangenomeLen graph.Bp
	MinSegmentID uint32
	MaxSegmentID uint32
	MatrixNNZ    int
}

// NodeSpan is a segment and its place in pangenome coordinates.
type NodeSpan struct {
	SegmentID uint32
	Offset    graph.Bp
	Length    graph.Bp
}

// Step is one path step. Offset is relative to the start of the path.
type Step struct {
	Index     int
	SegmentID uint32
	Reverse   bool
	Offset    graph.Bp
	Length    graph.Bp
}

// PathRange is the result of a path interval query.
type PathRange struct {
	Path      string
	Start     graph.Bp
	End       graph.Bp
	Steps     []Step
	Truncated bool
}

// Querier is the interface for index queries. Segment ids are the ids used
// in the GFA file.
type Querier interface {
	Stats(ctx context.Context) Stats
	NodeAt(ctx context.Context, pos graph.Bp) (*NodeSpan, error)
	NodeSpan(ctx context.Context, segmentID uint32) (*NodeSpan, error)
	PathRange(ctx context.Context, path string, start, end graph.Bp) (*PathRange, error)
	StepAt(ctx context.Context, path string, pos graph.Bp) (*Step, error)
	PathsOnNode(ctx context.Context, segmentID uint32) ([]string, error)
}

// Engine implements Querier over a PathIndex and its segment-path matrix.
type Engine struct {
	idx      *pathindex.PathIndex
	mat      *matrix.SegmentPathMatrix
	maxSteps int
}

// NewEngine creates an engine. The matrix is built from idx.
func NewEngine(idx *pathindex.PathIndex) *Engine {
	return &Engine{
		idx:      idx,
		mat:      matrix.Build(idx),
		maxSteps: DefaultMaxSteps,
	}
}

// SetMaxSteps changes the PathRange step cap. n <= 0 removes the cap.
func (e *Engine) SetMaxSteps(n int) { e.maxSteps = n }

func (e *Engine) Index() *pathindex.PathIndex { return e.idx }

func (e *Engine) Stats(ctx context.Context) Stats {
	lo, hi := e.idx.SegmentIDRange()
	return Stats{
		Segments:     e.idx.NodeCount(),
		Paths:        e.idx.PathCount(),
		PangenomeLen: e.idx.PangenomeLen(),
		MinSegmentID: lo,
		MaxSegmentID: hi,
		MatrixNNZ:    e.mat.NNZ(),
	}
}

func (e *Engine) node(segmentID uint32) (graph.Node, error) {
	lo, hi := e.idx.SegmentIDRange()
	if segmentID < lo || segmentID > hi {
		return 0, fmt.Errorf("%w: %d not in %d..%d", ErrNodeOutOfRange, segmentID, lo, hi)
	}
	return graph.Node(segmentID - lo), nil
}

func (e *Engine) segmentID(n graph.Node) uint32 {
	lo, _ := e.idx.SegmentIDRange()
	return lo + uint32(n)
}

func (e *Engine) span(n graph.Node) *NodeSpan {
	off, l := e.idx.NodeOffsetLength(n)
	return &NodeSpan{SegmentID: e.segmentID(n), Offset: off, Length: l}
}

// NodeAt returns the segment covering pangenome position pos.
func (e *Engine) NodeAt(ctx context.Context, pos graph.Bp) (*NodeSpan, error) {
	n, ok := e.idx.NodeAt(pos)
	if !ok {
		return nil, fmt.Errorf("%w: %d >= %d", ErrPosOutOfRange, pos, e.idx.PangenomeLen())
	}
	return e.span(n), nil
}

func (e *Engine) NodeSpan(ctx context.Context, segmentID uint32) (*NodeSpan, error) {
	n, err := e.node(segmentID)
	if err != nil {
		return nil, err
	}
	return e.span(n), nil
}

// PathRange lists the steps of path covering [start, end).
func (e *Engine) PathRange(ctx context.Context, path string, start, end graph.Bp) (*PathRange, error) {
	id, ok := e.idx.PathID(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	pathLen := e.idx.PathLen(id)
	if start >= pathLen {
		return nil, fmt.Errorf("%w: start %d >= path length %d", ErrPosOutOfRange, start, pathLen)
	}
	if end <= start {
		end = start + 1
	}
	end = min(end, pathLen)

	// The iterator's upper bound is inclusive of a step starting at end.
	seq, _ := e.idx.PathStepRangeIter(path, start, end-1)
	res := &PathRange{Path: path, Start: start, End: end}
	for i, s := range seq {
		if e.maxSteps > 0 && len(res.Steps) == e.maxSteps {
			res.Truncated = true
			break
		}
		if len(res.Steps)%4096 == 4095 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		res.Steps = append(res.Steps, e.step(id, i, s))
	}
	return res, nil
}

func (e *Engine) step(id graph.PathID, i int, s graph.OrientedNode) Step {
	return Step{
		Index:     i,
		SegmentID: e.segmentID(s.Node()),
		Reverse:   s.IsReverse(),
		Offset:    e.idx.PathStepOffset(id, i),
		Length:    e.idx.NodeLength(s.Node()),
	}
}

// StepAt returns the step of path covering path position pos.
func (e *Engine) StepAt(ctx context.Context, path string, pos graph.Bp) (*Step, error) {
	id, ok := e.idx.PathID(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	i, ok := e.idx.StepIndexAtPos(path, pos)
	if !ok {
		return nil, fmt.Errorf("%w: %d >= path length %d", ErrPosOutOfRange, pos, e.idx.PathLen(id))
	}
	s := e.step(id, i, e.idx.PathSteps(id)[i])
	return &s, nil
}

// PathsOnNode returns the names of the paths stepping on a segment, in
// path id order.
func (e *Engine) PathsOnNode(ctx context.Context, segmentID uint32) ([]string, error) {
	n, err := e.node(segmentID)
	if err != nil {
		return nil, err
	}
	v, _ := e.mat.PathsOnSegment(n)
	names := make([]string, 0, len(v.Data))
	for p := range v.All() {
		names = append(names, e.idx.PathName(p))
	}
	return names, nil
}
