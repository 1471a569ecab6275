// Package fibheap implements a mergeable min-priority queue (Fibonacci
// heap) and a typed workflow queue wrapper on top of it.
//
// Complexity bounds:
//   - Insert, Min, Merge: O(1)
//   - ExtractMin: O(log n) amortized (lazy consolidation)
//   - DecreaseKey: O(1) amortized (cut + cascading cut)
//
// The heap uses circular doubly-linked root and child lists of pointer
// nodes; Go's collector handles the cycles, so no index arena is needed
// and Merge stays a constant-time root-list splice.
//
// A Heap is not safe for concurrent use; callers provide synchronization.
package fibheap

import (
	"errors"
	"math"
)

// ErrKeyIncrease is returned when DecreaseKey is called with a key larger
// than the node's current key.
var ErrKeyIncrease = errors.New("fibheap: new key is greater than current key")

// Node is a heap entry handle. It stays valid until the node is extracted
// or deleted, and is owned by exactly one heap at a time.
type Node[V any] struct {
	key    int64
	value  V
	parent *Node[V]
	child  *Node[V]
	left   *Node[V]
	right  *Node[V]
	degree int
	mark   bool
}

// Key returns the node's current key.
func (n *Node[V]) Key() int64 { return n.key }

// Value returns the node's value.
func (n *Node[V]) Value() V { return n.value }

// Heap is a min-ordered Fibonacci heap. The zero value is an empty heap.
type Heap[V any] struct {
	min *Node[V]
	n   int
}

// New creates an empty heap.
func New[V any]() *Heap[V] {
	return &Heap[V]{}
}

// Len returns the number of nodes in the heap. O(1).
func (h *Heap[V]) Len() int { return h.n }

// Empty reports whether the heap has no nodes. O(1).
func (h *Heap[V]) Empty() bool { return h.n == 0 }

// Insert adds a singleton node to the root list and returns its handle.
// O(1): no restructuring happens until the next ExtractMin.
func (h *Heap[V]) Insert(key int64, value V) *Node[V] {
	node := &Node[V]{key: key, value: value}
	node.left = node
	node.right = node
	h.addRoot(node)
	h.n++
	return node
}

// Min returns the minimum key and its value without mutation. O(1).
func (h *Heap[V]) Min() (int64, V, bool) {
	if h.min == nil {
		var zero V
		return 0, zero, false
	}
	return h.min.key, h.min.value, true
}

// ExtractMin removes and returns the minimum entry, then consolidates the
// root list so no two roots share a degree. O(log n) amortized.
func (h *Heap[V]) ExtractMin() (int64, V, bool) {
	z := h.min
	if z == nil {
		var zero V
		return 0, zero, false
	}

	// Promote children to the root list.
	if z.child != nil {
		c := z.child
		for {
			next := c.right
			c.parent = nil
			c.mark = false
			h.spliceRoot(c)
			if next == z.child {
				break
			}
			c = next
		}
		z.child = nil
	}

	h.removeFromList(z)
	if z == z.right {
		h.min = nil
	} else {
		h.min = z.right
		h.consolidate()
	}
	h.n--

	z.left = nil
	z.right = nil
	return z.key, z.value, true
}

// DecreaseKey lowers node's key. If heap order is violated, the node is
// cut into the root list and a cascading cut walks the ancestor chain.
// O(1) amortized. Returns ErrKeyIncrease if the key would grow.
func (h *Heap[V]) DecreaseKey(node *Node[V], key int64) error {
	if key > node.key {
		return ErrKeyIncrease
	}
	h.decrease(node, key, false)
	return nil
}

// Delete removes an arbitrary node from the heap.
func (h *Heap[V]) Delete(node *Node[V]) {
	h.decrease(node, math.MinInt64, true)
	h.ExtractMin()
}

// Merge splices other's root list into h and empties other. O(1).
func (h *Heap[V]) Merge(other *Heap[V]) {
	if other == nil || other.min == nil {
		return
	}
	if h.min == nil {
		h.min = other.min
		h.n = other.n
	} else {
		// Concatenate the two circular root lists.
		hRight := h.min.right
		oLeft := other.min.left
		h.min.right = other.min
		other.min.left = h.min
		oLeft.right = hRight
		hRight.left = oLeft

		if other.min.key < h.min.key {
			h.min = other.min
		}
		h.n += other.n
	}
	other.min = nil
	other.n = 0
}

// decrease lowers node's key to key, or to an effective minimum when force
// is set (used by Delete so the node surfaces at the root).
func (h *Heap[V]) decrease(node *Node[V], key int64, force bool) {
	node.key = key
	p := node.parent
	if p != nil && (force || node.key < p.key) {
		h.cut(node, p)
		h.cascadingCut(p)
	}
	if force || node.key < h.min.key {
		h.min = node
	}
}

// cut detaches node from parent's child list into the root list.
func (h *Heap[V]) cut(node, parent *Node[V]) {
	if node.right == node {
		parent.child = nil
	} else {
		node.left.right = node.right
		node.right.left = node.left
		if parent.child == node {
			parent.child = node.right
		}
	}
	parent.degree--

	node.left = node
	node.right = node
	node.parent = nil
	node.mark = false
	h.spliceRoot(node)
}

// cascadingCut walks up the ancestor chain, cutting every marked node.
// The mark flag bounds how many children a node may lose before it is
// itself demoted, which is what keeps degrees logarithmic.
func (h *Heap[V]) cascadingCut(node *Node[V]) {
	p := node.parent
	if p == nil {
		return
	}
	if !node.mark {
		node.mark = true
		return
	}
	h.cut(node, p)
	h.cascadingCut(p)
}

// consolidate repeatedly links root trees of equal degree until every root
// has a distinct degree, recomputing the min pointer.
func (h *Heap[V]) consolidate() {
	var byDegree []*Node[V]

	roots := h.rootList()
	for _, x := range roots {
		d := x.degree
		for len(byDegree) <= d {
			byDegree = append(byDegree, nil)
		}
		for byDegree[d] != nil {
			y := byDegree[d]
			if y.key < x.key {
				x, y = y, x
			}
			h.link(y, x)
			byDegree[d] = nil
			d = x.degree
			for len(byDegree) <= d {
				byDegree = append(byDegree, nil)
			}
		}
		byDegree[d] = x
	}

	h.min = nil
	for _, root := range byDegree {
		if root == nil {
			continue
		}
		root.left = root
		root.right = root
		h.addRoot(root)
	}
}

// link removes y from the root list and makes it a child of x.
func (h *Heap[V]) link(y, x *Node[V]) {
	y.left.right = y.right
	y.right.left = y.left

	y.parent = x
	y.mark = false
	y.left = y
	y.right = y
	if x.child == nil {
		x.child = y
	} else {
		y.right = x.child.right
		y.left = x.child
		x.child.right.left = y
		x.child.right = y
	}
	x.degree++
}

// rootList snapshots the current roots; consolidate mutates the list while
// iterating, so the walk works over a copy.
func (h *Heap[V]) rootList() []*Node[V] {
	var roots []*Node[V]
	if h.min == nil {
		return roots
	}
	x := h.min
	for {
		roots = append(roots, x)
		x = x.right
		if x == h.min {
			break
		}
	}
	return roots
}

// addRoot inserts a detached singleton node into the root list and updates
// the min pointer.
func (h *Heap[V]) addRoot(node *Node[V]) {
	if h.min == nil {
		h.min = node
		return
	}
	h.spliceRoot(node)
	if node.key < h.min.key {
		h.min = node
	}
}

// spliceRoot inserts node to the right of min without touching the min
// pointer.
func (h *Heap[V]) spliceRoot(node *Node[V]) {
	if h.min == nil {
		node.left = node
		node.right = node
		h.min = node
		return
	}
	node.right = h.min.right
	node.left = h.min
	h.min.right.left = node
	h.min.right = node
}

// removeFromList unlinks node from whatever circular list holds it.
func (h *Heap[V]) removeFromList(node *Node[V]) {
	node.left.right = node.right
	node.right.left = node.left
}
