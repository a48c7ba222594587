// Package pathindex builds a compact coordinate index over a GFA pangenome
// graph: segment offsets in pangenome space, per-path step tables and step
// offsets, and per-path node membership sets.
package pathindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gfa_index/pkg/gfa"
	"gfa_index/pkg/graph"
)

var (
	ErrNotPacked        = errors.New("segment IDs not tightly packed")
	ErrNoSegments       = errors.New("no segments")
	ErrDuplicateSegment = errors.New("duplicate segment id")
	ErrZeroLength       = errors.New("zero-length segment")
	ErrDuplicatePath    = errors.New("duplicate path name")
	ErrDanglingStep     = errors.New("path step references unknown segment")
)

// PackingError reports segment IDs that do not form a contiguous block.
type PackingError struct {
	Min, Max uint32
	Count    int
}

func (e *PackingError) Error() string {
	return fmt.Sprintf("segment IDs not tightly packed: min %d, max %d, count %d", e.Min, e.Max, e.Count)
}

func (e *PackingError) Is(target error) bool {
	return target == ErrNotPacked
}

// PathIndex is immutable after construction and safe for concurrent readers.
type PathIndex struct {
	nodeCount        int
	segmentOffsets   *roaring64.Bitmap // i-th smallest value is the offset of node i
	sequenceTotalLen graph.Bp
	segmentIDRange   [2]uint32 // original GFA ids, inclusive

	pathNames       map[string]graph.PathID
	names           []string              // by PathID
	pathSteps       [][]graph.OrientedNode // by PathID
	pathStepOffsets []*roaring64.Bitmap    // offset of each step within its path
	pathNodeSets    []*roaring.Bitmap      // unoriented nodes visited by each path
	pathLens        []graph.Bp
}

// FromGFA builds a PathIndex from the GFA file at path.
func FromGFA(ctx context.Context, path string) (*PathIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Build(ctx, f)
}

// Build reads the GFA text in rs twice: segments first, then paths. The
// reader is rewound between passes, so it must implement io.ReadSeeker.
func Build(ctx context.Context, rs io.ReadSeeker) (*PathIndex, error) {
	ctx, span := otel.Tracer("gfa_index").Start(ctx, "pathindex.Build")
	defer span.End()

	start := time.Now()

	// Pass 1: segment ids and lengths.
	span.AddEvent("scanning_segments")
	lengths, idRange, err := scanSegments(ctx, rs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "segment pass failed")
		return nil, fmt.Errorf("pass 1 (segments): %w", err)
	}

	idx := &PathIndex{
		nodeCount:      len(lengths),
		segmentOffsets: roaring64.New(),
		segmentIDRange: idRange,
		pathNames:      make(map[string]graph.PathID),
	}
	offsets := make([]uint64, len(lengths))
	var total uint64
	for i, l := range lengths {
		offsets[i] = total
		total += l
	}
	idx.segmentOffsets.AddMany(offsets)
	idx.segmentOffsets.RunOptimize()
	idx.sequenceTotalLen = graph.Bp(total)

	logrus.WithFields(logrus.Fields{
		"segments":  idx.nodeCount,
		"min_id":    idRange[0],
		"max_id":    idRange[1],
		"total_len": total,
	}).Info("Pass 1 complete")

	// Pass 2: paths.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}
	span.AddEvent("scanning_paths")
	if err := idx.scanPaths(ctx, rs, lengths); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "path pass failed")
		return nil, fmt.Errorf("pass 2 (paths): %w", err)
	}

	span.SetAttributes(
		attribute.Int("node_count", idx.nodeCount),
		attribute.Int("path_count", len(idx.pathSteps)),
	)
	span.AddEvent("index_built", trace.WithAttributes(
		attribute.Int64("duration_ms", time.Since(start).Milliseconds()),
	))
	logrus.WithFields(logrus.Fields{
		"paths":   len(idx.pathSteps),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("Pass 2 complete")

	return idx, nil
}

// scanSegments returns segment lengths indexed by remapped node id and the
// original id range.
func scanSegments(ctx context.Context, r io.Reader) ([]uint64, [2]uint32, error) {
	var segs []gfa.Segment
	minID, maxID := uint32(math.MaxUint32), uint32(0)
	var skipped int

	err := gfa.Records(ctx, r, 'S', func(line []byte) error {
		seg, ok, err := gfa.ParseSegment(line)
		if err != nil {
			return err
		}
		if !ok {
			skipped++
			return nil
		}
		if seg.Len == 0 {
			return fmt.Errorf("%w: %d", ErrZeroLength, seg.ID)
		}
		minID = min(minID, seg.ID)
		maxID = max(maxID, seg.ID)
		segs = append(segs, seg)
		return nil
	})
	if err != nil {
		return nil, [2]uint32{}, err
	}
	if skipped > 0 {
		logrus.WithField("lines", skipped).Warn("skipped truncated S-lines")
	}
	if len(segs) == 0 {
		return nil, [2]uint32{}, ErrNoSegments
	}
	if uint64(maxID-minID) != uint64(len(segs)-1) {
		return nil, [2]uint32{}, &PackingError{Min: minID, Max: maxID, Count: len(segs)}
	}

	// Offsets follow node id order, not file order.
	lengths := make([]uint64, len(segs))
	for _, seg := range segs {
		i := seg.ID - minID
		if lengths[i] != 0 {
			return nil, [2]uint32{}, fmt.Errorf("%w: %d", ErrDuplicateSegment, seg.ID)
		}
		lengths[i] = seg.Len
	}
	return lengths, [2]uint32{minID, maxID}, nil
}

func (idx *PathIndex) scanPaths(ctx context.Context, r io.Reader, lengths []uint64) error {
	minID, maxID := idx.segmentIDRange[0], idx.segmentIDRange[1]
	var skipped int

	return gfa.Records(ctx, r, 'P', func(line []byte) error {
		p, ok, err := gfa.ParsePath(line)
		if err != nil {
			return err
		}
		if !ok {
			skipped++
			return nil
		}
		if _, dup := idx.pathNames[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePath, p.Name)
		}

		steps := make([]graph.OrientedNode, len(p.Steps))
		offsets := make([]uint64, len(p.Steps))
		nodes := roaring.New()
		var pos uint64
		for i, st := range p.Steps {
			if st.ID < minID || st.ID > maxID {
				return fmt.Errorf("%w: path %q step %d id %d", ErrDanglingStep, p.Name, i, st.ID)
			}
			n := graph.Node(st.ID - minID)
			steps[i] = graph.NewOrientedNode(n, st.Reverse)
			offsets[i] = pos
			nodes.Add(uint32(n))
			pos += lengths[n]
		}
		stepOffsets := roaring64.New()
		stepOffsets.AddMany(offsets)
		stepOffsets.RunOptimize()
		nodes.RunOptimize()

		id := graph.PathID(len(idx.pathSteps))
		idx.pathNames[p.Name] = id
		idx.names = append(idx.names, p.Name)
		idx.pathSteps = append(idx.pathSteps, steps)
		idx.pathStepOffsets = append(idx.pathStepOffsets, stepOffsets)
		idx.pathNodeSets = append(idx.pathNodeSets, nodes)
		idx.pathLens = append(idx.pathLens, graph.Bp(pos))
		return nil
	})
}

// Validate re-checks the structural invariants of the index.
func (idx *PathIndex) Validate() error {
	if got := idx.segmentOffsets.GetCardinality(); got != uint64(idx.nodeCount) {
		return fmt.Errorf("segment offsets: %d entries, want %d", got, idx.nodeCount)
	}
	if idx.nodeCount > 0 && idx.segmentOffsets.Minimum() != 0 {
		return fmt.Errorf("segment offsets: first entry %d, want 0", idx.segmentOffsets.Minimum())
	}
	if idx.nodeCount > 0 && idx.segmentOffsets.Maximum() >= uint64(idx.sequenceTotalLen) {
		return fmt.Errorf("segment offsets: last entry %d beyond total length %d",
			idx.segmentOffsets.Maximum(), idx.sequenceTotalLen)
	}
	for p, steps := range idx.pathSteps {
		offs := idx.pathStepOffsets[p]
		if got := offs.GetCardinality(); got != uint64(len(steps)) {
			return fmt.Errorf("path %q: %d step offsets for %d steps", idx.names[p], got, len(steps))
		}
		nodes := roaring.New()
		for i, s := range steps {
			if int(s.Node()) >= idx.nodeCount {
				return fmt.Errorf("path %q step %d: %w: node %d", idx.names[p], i, ErrDanglingStep, s.Node())
			}
			nodes.Add(uint32(s.Node()))
		}
		if !nodes.Equals(idx.pathNodeSets[p]) {
			return fmt.Errorf("path %q: node set does not match steps", idx.names[p])
		}
		if len(steps) > 0 {
			last := offs.Maximum() + uint64(idx.NodeLength(steps[len(steps)-1].Node()))
			if graph.Bp(last) != idx.pathLens[p] {
				return fmt.Errorf("path %q: length %d, steps span %d", idx.names[p], idx.pathLens[p], last)
			}
		}
	}
	return nil
}
