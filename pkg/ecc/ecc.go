// Package ecc computes the 3-edge-connected components of an undirected
// multigraph with the single-pass absorb/eject DFS of Norouzi and Tsin.
package ecc

import (
	"math"
	"slices"
)

const none = math.MaxUint32

// Components partitions vertices 0..n-1 into 3-edge-connected components.
// Parallel edges are significant and self loops are ignored. Every vertex
// appears in exactly one component; each component is sorted.
func Components(n int, edges [][2]uint32) [][]uint32 {
	if n == 0 {
		return nil
	}
	s := newState(n, edges)
	for r := range uint32(n) {
		if s.pre[r] == 0 {
			s.visit(r)
			s.eject(r)
		}
	}
	return s.comps
}

type state struct {
	// Adjacency in CSR form; edgeID lets the DFS skip exactly the tree edge
	// back to the parent while still seeing parallel copies of it.
	firstOut []uint32
	heads    []uint32
	edgeID   []uint32

	pre      []uint32 // 0 = unvisited
	low      []uint32
	nd       []uint32 // subtree size
	deg      []int32
	pathNext []uint32 // next vertex on P_w, or none
	sigma    []uint32 // circular lists of merged vertices

	count uint32
	comps [][]uint32
}

func newState(n int, edges [][2]uint32) *state {
	firstOut := make([]uint32, n+1)
	for _, e := range edges {
		if e[0] == e[1] {
			continue
		}
		firstOut[e[0]+1]++
		firstOut[e[1]+1]++
	}
	for i := 1; i <= n; i++ {
		firstOut[i] += firstOut[i-1]
	}
	m := firstOut[n]
	heads := make([]uint32, m)
	edgeID := make([]uint32, m)
	pos := slices.Clone(firstOut[:n])
	for i, e := range edges {
		a, b := e[0], e[1]
		if a == b {
			continue
		}
		heads[pos[a]], edgeID[pos[a]] = b, uint32(i)
		pos[a]++
		heads[pos[b]], edgeID[pos[b]] = a, uint32(i)
		pos[b]++
	}

	s := &state{
		firstOut: firstOut,
		heads:    heads,
		edgeID:   edgeID,
		pre:      make([]uint32, n),
		low:      make([]uint32, n),
		nd:       make([]uint32, n),
		deg:      make([]int32, n),
		pathNext: make([]uint32, n),
		sigma:    make([]uint32, n),
		count:    1,
	}
	for v := range s.sigma {
		s.sigma[v] = uint32(v)
	}
	return s
}

type frame struct {
	w          uint32
	parentEdge uint32
	cursor     uint32
}

// visit runs the DFS from root iteratively.
func (s *state) visit(root uint32) {
	s.enter(root)
	stack := []frame{{w: root, parentEdge: none, cursor: s.firstOut[root]}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		w := f.w
		if f.cursor == s.firstOut[w+1] {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				s.afterChild(stack[len(stack)-1].w, w)
			}
			continue
		}
		i := f.cursor
		f.cursor++
		u, id := s.heads[i], s.edgeID[i]

		s.deg[w]++
		switch {
		case id == f.parentEdge:
		case s.pre[u] == 0:
			s.enter(u)
			stack = append(stack, frame{w: u, parentEdge: id, cursor: s.firstOut[u]})
		case s.pre[u] < s.pre[w]:
			// Back edge to an ancestor.
			if s.pre[u] < s.low[w] {
				s.absorbPath(w, s.pathNext[w])
				s.pathNext[w] = none
				s.low[w] = s.pre[u]
			}
		default:
			// Back edge from a descendant: absorb P_w up to the vertex
			// whose subtree holds u.
			s.deg[w] -= 2
			x := s.pathNext[w]
			for x != none && s.pre[x] <= s.pre[u] && s.pre[u] < s.pre[x]+s.nd[x] {
				s.absorb(w, x)
				x = s.pathNext[x]
			}
			s.pathNext[w] = x
		}
	}
}

func (s *state) enter(w uint32) {
	s.pre[w] = s.count
	s.count++
	s.low[w] = s.pre[w]
	s.nd[w] = 1
	s.deg[w] = 0
	s.pathNext[w] = none
}

// afterChild runs once the subtree of tree child u of w is finished.
func (s *state) afterChild(w, u uint32) {
	s.nd[w] += s.nd[u]
	head := u
	if s.deg[u] <= 2 {
		s.deg[w] += s.deg[u] - 2
		s.eject(u)
		head = s.pathNext[u]
	}
	if s.low[w] <= s.low[u] {
		s.absorbPath(w, head)
		return
	}
	s.low[w] = s.low[u]
	s.absorbPath(w, s.pathNext[w])
	s.pathNext[w] = head
}

func (s *state) absorb(w, x uint32) {
	s.deg[w] += s.deg[x] - 2
	s.sigma[w], s.sigma[x] = s.sigma[x], s.sigma[w]
}

func (s *state) absorbPath(w, from uint32) {
	for x := from; x != none; x = s.pathNext[x] {
		s.absorb(w, x)
	}
}

// eject emits σ(v) as a finished component.
func (s *state) eject(v uint32) {
	comp := []uint32{v}
	for x := s.sigma[v]; x != v; x = s.sigma[x] {
		comp = append(comp, x)
	}
	slices.Sort(comp)
	s.comps = append(s.comps, comp)
}
