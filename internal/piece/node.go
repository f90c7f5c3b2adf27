package piece

import "slices"

// Tree shape defaults.
const (
	// DefaultLeafCapacity is the maximum number of pieces per leaf.
	DefaultLeafCapacity = 32

	// DefaultFanout is the maximum number of children per internal node.
	DefaultFanout = 16

	// minCapacity is the smallest leaf capacity or fanout accepted.
	minCapacity = 4
)

// summary holds the aggregated counts for a subtree.
type summary struct {
	elems  int // Logical elements covered
	pieces int // Pieces stored
}

func (s summary) add(o summary) summary {
	return summary{elems: s.elems + o.elems, pieces: s.pieces + o.pieces}
}

func (s summary) sub(o summary) summary {
	return summary{elems: s.elems - o.elems, pieces: s.pieces - o.pieces}
}

func pieceSummary(p Piece) summary {
	return summary{elems: p.Len, pieces: 1}
}

// node is a node of the piece B+ tree.
// Leaves hold pieces; internal nodes hold children and one cached summary
// per child.
type node struct {
	leaf    bool
	summary summary

	// Internal node fields
	children       []*node
	childSummaries []summary

	// Leaf node fields
	pieces []Piece
}

// shape bounds node sizes for one tree.
type shape struct {
	leafCap int
	fanout  int
}

func (sh shape) minLeaf() int     { return sh.leafCap / 2 }
func (sh shape) minChildren() int { return sh.fanout / 2 }

func newLeaf(pieces []Piece) *node {
	n := &node{leaf: true, pieces: pieces}
	n.recomputeSummary()
	return n
}

func newInternal(children []*node) *node {
	n := &node{children: children}
	n.recomputeSummary()
	return n
}

// recomputeSummary recalculates the summary from children or pieces.
func (n *node) recomputeSummary() {
	n.summary = summary{}
	if n.leaf {
		for _, p := range n.pieces {
			n.summary = n.summary.add(pieceSummary(p))
		}
		return
	}
	n.childSummaries = n.childSummaries[:0]
	for _, child := range n.children {
		n.childSummaries = append(n.childSummaries, child.summary)
		n.summary = n.summary.add(child.summary)
	}
}

// size returns the number of entries (pieces or children) in the node.
func (n *node) size() int {
	if n.leaf {
		return len(n.pieces)
	}
	return len(n.children)
}

func (n *node) height() int {
	h := 0
	for !n.leaf {
		n = n.children[0]
		h++
	}
	return h
}

// childByPiece finds the child holding the k-th piece of this subtree.
// Returns the child index and the ordinal within that child.
func (n *node) childByPiece(k int) (int, int) {
	for i, s := range n.childSummaries {
		if k < s.pieces {
			return i, k
		}
		k -= s.pieces
	}
	last := len(n.children) - 1
	return last, k + n.childSummaries[last].pieces
}

// childForInsert finds the child that receives a new piece at ordinal k.
// An ordinal equal to a child's piece count appends to that child.
func (n *node) childForInsert(k int) (int, int) {
	i := 0
	for i < len(n.children)-1 && k > n.childSummaries[i].pieces {
		k -= n.childSummaries[i].pieces
		i++
	}
	return i, k
}

// get returns the k-th piece of the subtree.
func (n *node) get(k int) Piece {
	for !n.leaf {
		var i int
		i, k = n.childByPiece(k)
		n = n.children[i]
	}
	return n.pieces[k]
}

// set replaces the k-th piece and returns the change in element count.
func (n *node) set(k int, p Piece) int {
	if n.leaf {
		delta := p.Len - n.pieces[k].Len
		n.pieces[k] = p
		n.summary.elems += delta
		return delta
	}
	i, k := n.childByPiece(k)
	delta := n.children[i].set(k, p)
	n.childSummaries[i].elems += delta
	n.summary.elems += delta
	return delta
}

// insertAt inserts p so it becomes the k-th piece of the subtree.
// If the node overflows it is split and the new right sibling is returned.
func (n *node) insertAt(k int, p Piece, sh shape) *node {
	n.summary = n.summary.add(pieceSummary(p))
	if n.leaf {
		n.pieces = slices.Insert(n.pieces, k, p)
		if len(n.pieces) > sh.leafCap {
			return n.split()
		}
		return nil
	}

	i, k := n.childForInsert(k)
	child := n.children[i]
	right := child.insertAt(k, p, sh)
	n.childSummaries[i] = child.summary
	if right == nil {
		return nil
	}
	n.children = slices.Insert(n.children, i+1, right)
	n.childSummaries = slices.Insert(n.childSummaries, i+1, right.summary)
	if len(n.children) > sh.fanout {
		return n.split()
	}
	return nil
}

// split moves the upper half of the node into a new right sibling.
func (n *node) split() *node {
	mid := n.size() / 2
	var right *node
	if n.leaf {
		right = newLeaf(slices.Clone(n.pieces[mid:]))
		clear(n.pieces[mid:])
		n.pieces = n.pieces[:mid]
	} else {
		right = newInternal(slices.Clone(n.children[mid:]))
		clear(n.children[mid:])
		n.children = n.children[:mid]
	}
	n.recomputeSummary()
	return right
}

// deleteAt removes the k-th piece of the subtree and returns it.
// Children left underfull are rebalanced with a sibling; the node itself
// may be left underfull for its parent to fix.
func (n *node) deleteAt(k int, sh shape) Piece {
	if n.leaf {
		p := n.pieces[k]
		n.pieces = slices.Delete(n.pieces, k, k+1)
		n.summary = n.summary.sub(pieceSummary(p))
		return p
	}

	i, k := n.childByPiece(k)
	child := n.children[i]
	p := child.deleteAt(k, sh)
	n.childSummaries[i] = child.summary
	n.summary = n.summary.sub(pieceSummary(p))
	if n.underfull(child, sh) {
		n.rebalance(i, sh)
	}
	return p
}

func (n *node) underfull(child *node, sh shape) bool {
	if child.leaf {
		return len(child.pieces) < sh.minLeaf()
	}
	return len(child.children) < sh.minChildren()
}

// rebalance fixes the underfull child i by combining it with a neighbor.
// If the combined entries fit in one node the pair is merged, otherwise the
// entries are redistributed evenly across both.
func (n *node) rebalance(i int, sh shape) {
	if len(n.children) < 2 {
		return
	}
	l := i
	if i > 0 {
		l = i - 1
	}
	left, right := n.children[l], n.children[l+1]

	limit := sh.fanout
	if left.leaf {
		limit = sh.leafCap
	}

	if left.leaf {
		left.pieces = append(left.pieces, right.pieces...)
	} else {
		left.children = append(left.children, right.children...)
	}

	if left.size() <= limit {
		left.recomputeSummary()
		n.children = slices.Delete(n.children, l+1, l+2)
		n.childSummaries = slices.Delete(n.childSummaries, l+1, l+2)
		n.childSummaries[l] = left.summary
		return
	}

	n.children[l+1] = left.split()
	n.childSummaries[l] = left.summary
	n.childSummaries[l+1] = n.children[l+1].summary
}
