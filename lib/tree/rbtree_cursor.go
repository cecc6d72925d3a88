package tree

// Cursor is a position inside a tree, either a node or the end position.
// It is a plain value, copying it is cheap. A cursor turns stale once its
// node is erased, or once the tree is cleared, swapped or moved.
// Next of the end position is Begin and Prev of the end position is Max,
// so the positions form a ring.
type Cursor[K any, V any] struct {
	tree  *rbTree[K, V]
	owner uint64
	ref   nodeRef
	gen   uint32
}

func (tree *rbTree[K, V]) cursor(ref nodeRef) Cursor[K, V] {
	return Cursor[K, V]{
		tree:  tree,
		owner: tree.arena.owner,
		ref:   ref,
		gen:   tree.n(ref).gen,
	}
}

// Valid reports whether the cursor still denotes a live position.
func (cur Cursor[K, V]) Valid() bool {
	if cur.tree == nil || cur.tree.arena == nil {
		return false
	}
	arena := cur.tree.arena
	if arena.owner != cur.owner || !arena.contains(cur.ref) {
		return false
	}
	n := arena.node(cur.ref)
	return n.inUse && n.gen == cur.gen
}

func (cur Cursor[K, V]) check(tree *rbTree[K, V]) error {
	if cur.tree != tree || !cur.Valid() {
		return ErrRBTreeStaleCursor
	}
	return nil
}

func (cur Cursor[K, V]) IsEnd() bool {
	return cur.ref == sentinelRef
}

// Equal compares positions, two end cursors of the same tree are equal.
func (cur Cursor[K, V]) Equal(other Cursor[K, V]) bool {
	return cur.tree == other.tree && cur.owner == other.owner &&
		cur.ref == other.ref && cur.gen == other.gen
}

func (cur Cursor[K, V]) Next() (Cursor[K, V], error) {
	if !cur.Valid() {
		return Cursor[K, V]{}, ErrRBTreeStaleCursor
	}
	return cur.tree.cursor(cur.tree.succ(cur.ref)), nil
}

func (cur Cursor[K, V]) Prev() (Cursor[K, V], error) {
	if !cur.Valid() {
		return Cursor[K, V]{}, ErrRBTreeStaleCursor
	}
	return cur.tree.cursor(cur.tree.pred(cur.ref)), nil
}

func (cur Cursor[K, V]) deref() (*rbNode[K, V], error) {
	if !cur.Valid() {
		return nil, ErrRBTreeStaleCursor
	}
	if cur.ref == sentinelRef {
		return nil, ErrRBTreeDerefEnd
	}
	return cur.tree.n(cur.ref), nil
}

func (cur Cursor[K, V]) Key() (K, error) {
	n, err := cur.deref()
	if err != nil {
		var k K
		return k, err
	}
	return n.key, nil
}

func (cur Cursor[K, V]) Val() (V, error) {
	n, err := cur.deref()
	if err != nil {
		var v V
		return v, err
	}
	return n.val, nil
}

// SetVal replaces the value in place, keys are immutable.
func (cur Cursor[K, V]) SetVal(val V) error {
	n, err := cur.deref()
	if err != nil {
		return err
	}
	n.val = val
	return nil
}

// ValuePtr exposes the value storage of the node. The pointer is valid
// until the node is erased.
func (cur Cursor[K, V]) ValuePtr() (*V, error) {
	n, err := cur.deref()
	if err != nil {
		return nil, err
	}
	return &n.val, nil
}

func (cur Cursor[K, V]) Color() RBColor {
	if !cur.Valid() {
		return Black
	}
	return cur.tree.n(cur.ref).color
}

var (
	_ RBNode[uint64, struct{}] = (*rbNodeView[uint64, struct{}])(nil)
	_ RBNode[uint64, struct{}] = (*detachedNode[uint64, struct{}])(nil)
)

// rbNodeView walks the live structure, it is only meaningful until the
// next mutation.
type rbNodeView[K any, V any] struct {
	tree *rbTree[K, V]
	ref  nodeRef
}

func (tree *rbTree[K, V]) view(ref nodeRef) RBNode[K, V] {
	if ref == nilRef || ref == sentinelRef {
		return nil
	}
	return &rbNodeView[K, V]{tree: tree, ref: ref}
}

func (v *rbNodeView[K, V]) Key() K {
	return v.tree.n(v.ref).key
}

func (v *rbNodeView[K, V]) Val() V {
	return v.tree.n(v.ref).val
}

func (v *rbNodeView[K, V]) HasKeyVal() bool {
	return v != nil && v.ref != sentinelRef
}

func (v *rbNodeView[K, V]) Color() RBColor {
	return v.tree.n(v.ref).color
}

func (v *rbNodeView[K, V]) Left() RBNode[K, V] {
	return v.tree.view(v.tree.n(v.ref).left)
}

func (v *rbNodeView[K, V]) Right() RBNode[K, V] {
	return v.tree.view(v.tree.n(v.ref).right)
}

func (v *rbNodeView[K, V]) Parent() RBNode[K, V] {
	return v.tree.view(v.tree.n(v.ref).parent)
}

// detachedNode is what the Remove family hands back, the node is no
// longer linked into any tree.
type detachedNode[K any, V any] struct {
	key   K
	val   V
	color RBColor
}

func (n *detachedNode[K, V]) Key() K               { return n.key }
func (n *detachedNode[K, V]) Val() V               { return n.val }
func (n *detachedNode[K, V]) HasKeyVal() bool      { return n != nil }
func (n *detachedNode[K, V]) Color() RBColor       { return n.color }
func (n *detachedNode[K, V]) Left() RBNode[K, V]   { return nil }
func (n *detachedNode[K, V]) Right() RBNode[K, V]  { return nil }
func (n *detachedNode[K, V]) Parent() RBNode[K, V] { return nil }
