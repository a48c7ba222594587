package graph

import (
	"errors"
	"fmt"
	"strconv"
)

// Bp is a coordinate in base pairs. Depending on context it is either an
// absolute pangenome offset or an offset within a path.
type Bp uint64

// Node is a dense, zero-based segment identifier.
type Node uint32

// PathID is a dense path index in order of appearance in the GFA P-lines.
type PathID uint32

// OrientedNode packs a Node and an orientation bit: (id << 1) | reverse.
//
// Used as a segment endpoint, an OrientedNode names the side a traversal in
// that orientation leaves through: forward is the end (right) side, reverse
// is the start (left) side.
type OrientedNode uint32

// ErrInvalidStep is returned by ParseOrientedNode for malformed step text.
var ErrInvalidStep = errors.New("invalid oriented node")

// NewOrientedNode packs id and orientation.
func NewOrientedNode(id Node, reverse bool) OrientedNode {
	o := OrientedNode(id) << 1
	if reverse {
		o |= 1
	}
	return o
}

func (o OrientedNode) Node() Node { return Node(o >> 1) }

func (o OrientedNode) IsReverse() bool { return o&1 == 1 }

// Flip toggles the orientation bit.
func (o OrientedNode) Flip() OrientedNode { return o ^ 1 }

func (o OrientedNode) AsForward() OrientedNode { return o &^ 1 }

func (o OrientedNode) AsReverse() OrientedNode { return o | 1 }

// Ix is the dense endpoint index used by endpoint-indexed arrays.
func (o OrientedNode) Ix() int { return int(o) }

// String formats o in GFA step syntax, e.g. "12+".
func (o OrientedNode) String() string {
	if o.IsReverse() {
		return strconv.FormatUint(uint64(o.Node()), 10) + "-"
	}
	return strconv.FormatUint(uint64(o.Node()), 10) + "+"
}

// ParseOrientedNode is the inverse of OrientedNode.String.
func ParseOrientedNode(s string) (OrientedNode, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStep, s)
	}
	var reverse bool
	switch s[len(s)-1] {
	case '+':
	case '-':
		reverse = true
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStep, s)
	}
	id, err := strconv.ParseUint(s[:len(s)-1], 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStep, s)
	}
	return NewOrientedNode(Node(id), reverse), nil
}

// Edge is a directed link between two oriented nodes.
type Edge struct {
	From OrientedNode
	To   OrientedNode
}

// Endpoints resolves the edge to the pair of segment sides it joins.
//
//	From  To   tail         head
//	a+    b+   end(a)       start(b)
//	a+    b-   end(a)       end(b)
//	a-    b+   start(a)     start(b)
//	a-    b-   start(a)     end(b)
//
// The tail is the side From leaves through; the head is the side To is
// entered through, which is the side To.Flip() leaves through.
func (e Edge) Endpoints() (tail, head OrientedNode) {
	return e.From, e.To.Flip()
}

func (e Edge) String() string {
	return e.From.String() + "->" + e.To.String()
}
