// Package gfa scans GFA v1 text records. Only the fields the index needs are
// decoded: segment ids and lengths, path names and steps, and links.
package gfa

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"gfa_index/pkg/graph"
)

// ctxCheckInterval is how many lines are scanned between context checks.
const ctxCheckInterval = 4096

var (
	ErrInvalidSegmentID   = errors.New("invalid segment id")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidPathName    = errors.New("path name is not valid UTF-8")
	ErrInvalidLength      = errors.New("invalid LN tag")
)

// Segment is the part of an S-line the index keeps.
type Segment struct {
	ID  uint32
	Len uint64
}

// Step is one raw (not yet remapped) path step.
type Step struct {
	ID      uint32
	Reverse bool
}

// Path is a decoded P-line.
type Path struct {
	Name  string
	Steps []Step
}

// Link is a decoded L-line with raw segment ids.
type Link struct {
	From, To               uint32
	FromReverse, ToReverse bool
}

// Scanner reads lines of any length, with the line terminator removed.
type Scanner struct {
	r    *bufio.Reader
	line []byte
	n    int
	err  error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 1<<16)}
}

// Scan advances to the next line. It returns false at EOF or on error.
func (s *Scanner) Scan() bool {
	s.line = s.line[:0]
	for {
		chunk, isPrefix, err := s.r.ReadLine()
		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			return false
		}
		s.line = append(s.line, chunk...)
		if !isPrefix {
			break
		}
	}
	s.n++
	return true
}

// Bytes returns the current line. It is overwritten by the next Scan.
func (s *Scanner) Bytes() []byte { return s.line }

// Line returns the 1-based number of the current line.
func (s *Scanner) Line() int { return s.n }

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error { return s.err }

// Records calls fn with every line whose record type is kind ('S', 'P',
// 'L', ...). Errors from fn are annotated with the line number.
func Records(ctx context.Context, r io.Reader, kind byte, fn func(line []byte) error) error {
	sc := NewScanner(r)
	for sc.Scan() {
		if sc.Line()%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := sc.Bytes()
		if len(line) < 2 || line[0] != kind || line[1] != '\t' {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("line %d: %w", sc.Line(), err)
		}
	}
	return sc.Err()
}

// ParseSegment decodes an S-line. ok is false when a required field is
// missing; such lines are meant to be skipped, not treated as errors.
//
// The length is the sequence length, or the LN:i: tag when the sequence
// is "*".
func ParseSegment(line []byte) (seg Segment, ok bool, err error) {
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 3 {
		return Segment{}, false, nil
	}
	id, err := parseID(fields[1])
	if err != nil {
		return Segment{}, false, err
	}
	seg.ID = id
	seq := fields[2]
	if len(seq) == 1 && seq[0] == '*' {
		for _, tag := range fields[3:] {
			if v, found := bytes.CutPrefix(tag, []byte("LN:i:")); found {
				n, err := strconv.ParseUint(string(v), 10, 64)
				if err != nil {
					return Segment{}, false, fmt.Errorf("%w: %q", ErrInvalidLength, tag)
				}
				seg.Len = n
			}
		}
		return seg, true, nil
	}
	seg.Len = uint64(len(seq))
	return seg, true, nil
}

// ParsePath decodes a P-line. ok is false when a required field is missing.
func ParsePath(line []byte) (p Path, ok bool, err error) {
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 3 {
		return Path{}, false, nil
	}
	if !utf8.Valid(fields[1]) {
		return Path{}, false, fmt.Errorf("%w: %q", ErrInvalidPathName, fields[1])
	}
	p.Name = string(fields[1])
	if len(fields[2]) == 0 {
		return p, true, nil
	}
	toks := bytes.Split(fields[2], []byte{','})
	p.Steps = make([]Step, 0, len(toks))
	for _, tok := range toks {
		st, err := ParseStep(tok)
		if err != nil {
			return Path{}, false, fmt.Errorf("path %q: %w", p.Name, err)
		}
		p.Steps = append(p.Steps, st)
	}
	return p, true, nil
}

// ParseStep decodes "<digits><+|->". Any other orientation character is
// rejected.
func ParseStep(tok []byte) (Step, error) {
	if len(tok) < 2 {
		return Step{}, fmt.Errorf("%w: step %q", ErrInvalidSegmentID, tok)
	}
	reverse, err := parseOrientation(tok[len(tok)-1:])
	if err != nil {
		return Step{}, fmt.Errorf("step %q: %w", tok, err)
	}
	id, err := parseID(tok[:len(tok)-1])
	if err != nil {
		return Step{}, err
	}
	return Step{ID: id, Reverse: reverse}, nil
}

// ParseLink decodes an L-line. ok is false when a required field is missing.
func ParseLink(line []byte) (l Link, ok bool, err error) {
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 5 {
		return Link{}, false, nil
	}
	if l.From, err = parseID(fields[1]); err != nil {
		return Link{}, false, err
	}
	if l.FromReverse, err = parseOrientation(fields[2]); err != nil {
		return Link{}, false, err
	}
	if l.To, err = parseID(fields[3]); err != nil {
		return Link{}, false, err
	}
	if l.ToReverse, err = parseOrientation(fields[4]); err != nil {
		return Link{}, false, err
	}
	return l, true, nil
}

// ReadLinks collects every L-line of r as an edge between remapped nodes.
func ReadLinks(ctx context.Context, r io.Reader, remap func(id uint32) (graph.Node, error)) ([]graph.Edge, error) {
	var edges []graph.Edge
	var skipped int
	err := Records(ctx, r, 'L', func(line []byte) error {
		l, ok, err := ParseLink(line)
		if err != nil {
			return err
		}
		if !ok {
			skipped++
			return nil
		}
		from, err := remap(l.From)
		if err != nil {
			return err
		}
		to, err := remap(l.To)
		if err != nil {
			return err
		}
		edges = append(edges, graph.Edge{
			From: graph.NewOrientedNode(from, l.FromReverse),
			To:   graph.NewOrientedNode(to, l.ToReverse),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read links: %w", err)
	}
	if skipped > 0 {
		logrus.WithField("lines", skipped).Warn("skipped truncated L-lines")
	}
	return edges, nil
}

func parseID(b []byte) (uint32, error) {
	id, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentID, b)
	}
	return uint32(id), nil
}

func parseOrientation(b []byte) (reverse bool, err error) {
	if len(b) == 1 {
		switch b[0] {
		case '+':
			return false, nil
		case '-':
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidOrientation, b)
}
