package tree

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/benz9527/xcontainer/lib/id"
	"github.com/benz9527/xcontainer/lib/infra"
)

// Every arena gets its own owner tag so that cursors survive nothing but
// the lifetime of the arena they were taken from.
var arenaOwnerGen = lo.Must(id.MonotonicNonZeroID())

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
//
// Layout:
//
//	[sentinel]   always black, never keyed, left unused
//	     \
//	    [root]   root.parent == sentinel
//	    /    \
//	  ...    ...  absent children are nilRef
//
// The sentinel doubles as the end position of the cursors.

type rbTree[K any, V any] struct {
	arena    *rbArena[K, V]
	kcmp     infra.KeyComparator[K]
	minRef   nodeRef // sentinelRef if the tree is empty
	maxRef   nodeRef // sentinelRef if the tree is empty
	count    int64
	capacity int64
}

func (tree *rbTree[K, V]) n(ref nodeRef) *rbNode[K, V] {
	return tree.arena.node(ref)
}

func (tree *rbTree[K, V]) root() nodeRef {
	return tree.n(sentinelRef).right
}

func (tree *rbTree[K, V]) isRed(ref nodeRef) bool {
	return ref != nilRef && ref != sentinelRef && tree.n(ref).color == Red
}

func (tree *rbTree[K, V]) isBlack(ref nodeRef) bool {
	return !tree.isRed(ref)
}

func (tree *rbTree[K, V]) direction(ref nodeRef) RBDirection {
	if ref == nilRef || ref == sentinelRef {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}
	p := tree.n(ref).parent
	if p == sentinelRef {
		return Root
	}
	if tree.n(p).left == ref {
		return Left
	}
	return Right
}

func (tree *rbTree[K, V]) child(ref nodeRef, dir RBDirection) nodeRef {
	switch dir {
	case Left:
		return tree.n(ref).left
	case Right:
		return tree.n(ref).right
	default:
	}
	// impossible run to here
	panic( /* debug assertion */ "[rbtree] child slot without direction")
}

func (tree *rbTree[K, V]) setChild(ref nodeRef, dir RBDirection, c nodeRef) {
	switch dir {
	case Left:
		tree.n(ref).left = c
	case Right:
		tree.n(ref).right = c
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] child slot without direction")
	}
	if c != nilRef {
		tree.n(c).parent = ref
	}
}

// replaceChild links c into the slot that dir denotes below parent.
// Root is the sentinel's root slot, it never touches sentinel.left.
func (tree *rbTree[K, V]) replaceChild(parent nodeRef, dir RBDirection, c nodeRef) {
	if dir == Root {
		tree.n(sentinelRef).right = c
		if c != nilRef {
			tree.n(c).parent = sentinelRef
		}
		return
	}
	tree.setChild(parent, dir, c)
}

func (tree *rbTree[K, V]) minimum(ref nodeRef) nodeRef {
	if ref == nilRef {
		return sentinelRef
	}
	for l := tree.n(ref).left; l != nilRef; l = tree.n(ref).left {
		ref = l
	}
	return ref
}

func (tree *rbTree[K, V]) maximum(ref nodeRef) nodeRef {
	if ref == nilRef {
		return sentinelRef
	}
	for r := tree.n(ref).right; r != nilRef; r = tree.n(ref).right {
		ref = r
	}
	return ref
}

// The caches are recomputed rather than maintained incrementally.
func (tree *rbTree[K, V]) refreshCaches() {
	r := tree.root()
	tree.minRef, tree.maxRef = tree.minimum(r), tree.maximum(r)
}

// The succ node of the current node is its next node in sorted order.
// The sentinel is both "past the end" and "before the begin".
func (tree *rbTree[K, V]) succ(ref nodeRef) nodeRef {
	if ref == tree.maxRef {
		return sentinelRef
	}
	if ref == sentinelRef {
		return tree.minRef
	}
	if r := tree.n(ref).right; r != nilRef {
		return tree.minimum(r)
	}
	// Backtrack to the father node that the x is in its left subtree.
	for p := tree.n(ref).parent; p != sentinelRef; ref, p = p, tree.n(p).parent {
		if tree.n(p).left == ref {
			return p
		}
	}
	return sentinelRef
}

// The pred node of the current node is its previous node in sorted order.
func (tree *rbTree[K, V]) pred(ref nodeRef) nodeRef {
	if ref == tree.minRef {
		return sentinelRef
	}
	if ref == sentinelRef {
		return tree.maxRef
	}
	if l := tree.n(ref).left; l != nilRef {
		return tree.maximum(l)
	}
	for p := tree.n(ref).parent; p != sentinelRef; ref, p = p, tree.n(p).parent {
		if tree.n(p).right == ref {
			return p
		}
	}
	return sentinelRef
}

/*
rotate(X, Left), the child on the opposite side of dir takes X's place:

		 |                         |
		 X                         S
		/ \     rotate(X, Left)   / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc

rotate(S, Right) is the exact inverse.
*/
func (tree *rbTree[K, V]) rotate(x nodeRef, dir RBDirection) {
	opp := -dir
	y := tree.child(x, opp)
	if y == nilRef {
		// impossible run to here
		panic( /* debug assertion */ fmt.Sprintf("[rbtree] rotate %s without %s child", dir, opp))
	}

	p, xDir := tree.n(x).parent, tree.direction(x)
	tree.setChild(x, opp, tree.child(y, dir))
	tree.setChild(y, dir, x)
	tree.replaceChild(p, xDir, y)
}

func (tree *rbTree[K, V]) search(key K) nodeRef {
	for aux := tree.root(); aux != nilRef; {
		res := tree.kcmp(key, tree.n(aux).key)
		if res == 0 {
			return aux
		} else if res < 0 {
			aux = tree.n(aux).left
		} else {
			aux = tree.n(aux).right
		}
	}
	return sentinelRef
}

// bound returns the first node whose key is not before key, or after key
// if strict.
func (tree *rbTree[K, V]) bound(key K, strict bool) nodeRef {
	res := sentinelRef
	for aux := tree.root(); aux != nilRef; {
		c := tree.kcmp(key, tree.n(aux).key)
		if c < 0 || (c == 0 && !strict) {
			res = aux
			aux = tree.n(aux).left
		} else {
			aux = tree.n(aux).right
		}
	}
	return res
}

// construct fills the value of a detached slot. A failed or panicking ctor
// releases the slot before the failure propagates.
func (tree *rbTree[K, V]) construct(z nodeRef, val V, ctor func() (V, error)) (err error) {
	if ctor == nil {
		tree.n(z).val = val
		return nil
	}
	released := false
	defer func() {
		if r := recover(); r != nil {
			if !released {
				tree.arena.release(z)
			}
			panic(r)
		}
	}()
	if val, err = ctor(); err != nil {
		tree.arena.release(z)
		released = true
		return infra.WrapErrorStack(fmt.Errorf("%w: %w", ErrRBTreeValueCtor, err))
	}
	tree.n(z).val = val
	return nil
}

// insertNode is shared by every insertion flavour. If ctor is not nil it
// supplies the value instead of val. assign overwrites the value of a
// present key.
func (tree *rbTree[K, V]) insertNode(key K, val V, ctor func() (V, error), assign bool) (nodeRef, bool, error) {
	var (
		y   nodeRef     = sentinelRef
		dir RBDirection = Root
	)
	for x := tree.root(); x != nilRef; {
		y = x
		res := tree.kcmp(key, tree.n(x).key)
		if /* equal */ res == 0 {
			if !assign {
				return x, false, nil
			}
			if ctor != nil {
				v, err := ctor()
				if err != nil {
					return sentinelRef, false, infra.WrapErrorStack(fmt.Errorf("%w: %w", ErrRBTreeValueCtor, err))
				}
				val = v
			}
			tree.n(x).val = val
			return x, false, nil
		} else /* less */ if res < 0 {
			dir, x = Left, tree.n(x).left
		} else /* greater */ {
			dir, x = Right, tree.n(x).right
		}
	}

	z, err := tree.arena.allocate()
	if err != nil {
		return sentinelRef, false, err
	}
	if err = tree.construct(z, val, ctor); err != nil {
		return sentinelRef, false, err
	}
	tree.n(z).key = key

	if /* i1 */ y == sentinelRef {
		tree.n(z).color = Black
		tree.replaceChild(sentinelRef, Root, z)
	} else {
		tree.setChild(y, dir, z)
		tree.insertRebalance(z)
	}
	tree.count++
	tree.refreshCaches()
	return z, true, nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: X's parent P is black, nothing to do.

im2: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Continue to fix from grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im3: The parent P is red but the uncle U is black. (red-violation)
X is opposite direction to P. Rotate P towards P's direction.
Here must enter im4 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im4: Current node is the same direction as parent.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *rbTree[K, V]) insertRebalance(x nodeRef) {
	for x != tree.root() && tree.isRed(tree.n(x).parent) {
		p := tree.n(x).parent
		// p is red, so it is not the root and g is a real node.
		g := tree.n(p).parent
		pDir := tree.direction(p)
		u := tree.child(g, -pDir)

		if /* im2 */ tree.isRed(u) {
			tree.n(p).color = Black
			tree.n(u).color = Black
			tree.n(g).color = Red
			x = g
			continue
		}

		if /* im3 */ tree.direction(x) != pDir {
			tree.rotate(p, pDir)
			x, p = p, x
		}

		/* im4 */
		tree.rotate(g, -pDir)
		tree.n(p).color = Black
		tree.n(g).color = Red
		break
	}
	tree.n(tree.root()).color = Black
}

/*
r1: Only a root node, remove directly.

r2: Current node X has at most one child, transplant the child into
X's slot.

r3: Current node X has left and right node.
The succ S (leftmost node of the right subtree) is relinked into X's
slot and takes X's color. The removed position is S's original one,
which has at most one child. Cursors to S stay valid.

	  |                    |
	  X                    S
	 / \                  / \
	L  ..   relink(S)    L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..               Sr  ..
	   \
	   Sr

Rebalance only if the removed color is black.
*/
func (tree *rbTree[K, V]) eraseNode(z nodeRef) {
	if /* r1 */ tree.count == 1 && z == tree.root() {
		tree.n(sentinelRef).right = nilRef
		tree.arena.release(z)
		tree.count = 0
		tree.refreshCaches()
		return
	}

	var (
		x            nodeRef // the node that fills the removed position
		xParent      nodeRef
		xDir         RBDirection
		removedColor = tree.n(z).color
	)

	if zn := tree.n(z); /* r2 */ zn.left == nilRef || zn.right == nilRef {
		x = zn.left
		if x == nilRef {
			x = zn.right
		}
		xParent, xDir = zn.parent, tree.direction(z)
		tree.replaceChild(xParent, xDir, x)
	} else /* r3 */ {
		y := tree.minimum(zn.right)
		removedColor = tree.n(y).color
		x = tree.n(y).right
		if tree.n(y).parent == z {
			xParent, xDir = y, Right
		} else {
			xParent, xDir = tree.n(y).parent, Left
			tree.replaceChild(xParent, xDir, x)
			tree.setChild(y, Right, zn.right)
		}
		tree.replaceChild(zn.parent, tree.direction(z), y)
		tree.setChild(y, Left, zn.left)
		tree.n(y).color = zn.color
	}

	if removedColor == Black {
		tree.removeRebalance(x, xParent, xDir)
	}
	tree.arena.release(z)
	tree.count--
	tree.refreshCaches()
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X carries the black deficit, it may be NIL so its parent P and its
direction are tracked explicitly. Both mirrored branches share the code,
dir is X's side and -dir is the sibling's side.
Sc is the sibling's child at dir (near), Sd the one at -dir (far).

rm1: X's sibling S is red, so P, Sc and Sd must be black.
Rotate P towards X, repaint S into black, P into red. X gets a black
sibling.

	  [P]                   <S>               [S]
	  / \    rotate(P)      / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: S, Sc and Sd are black. Repaint S into red, the deficit moves up
to P. A red P absorbs it by being painted black at the end.

	  {P}             {P}
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: S is black, Sc is red and Sd is black.
Rotate S away from X, repaint Sc into black and S into red. Enter rm4.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    rotate(S)    [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm4: S is black and Sd is red.
Rotate P towards X, S takes P's color, P and Sd are painted black.
The deficit is absorbed.

	  {P}                   [S]                {S}
	  / \    rotate(P)      / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]
*/
func (tree *rbTree[K, V]) removeRebalance(x, p nodeRef, dir RBDirection) {
	for x != tree.root() && tree.isBlack(x) {
		s := tree.child(p, -dir)
		if /* rm1 */ tree.isRed(s) {
			tree.n(s).color = Black
			tree.n(p).color = Red
			tree.rotate(p, dir)
			s = tree.child(p, -dir)
		}
		if s == nilRef {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] black deficit without sibling")
		}

		sc, sd := tree.child(s, dir), tree.child(s, -dir)
		if /* rm2 */ tree.isBlack(sc) && tree.isBlack(sd) {
			tree.n(s).color = Red
			x, p = p, tree.n(p).parent
			if p == sentinelRef {
				break
			}
			dir = tree.direction(x)
			continue
		}

		if /* rm3 */ tree.isBlack(sd) {
			tree.n(sc).color = Black
			tree.n(s).color = Red
			tree.rotate(s, -dir)
			s = tree.child(p, -dir)
			sd = tree.child(s, -dir)
		}

		/* rm4 */
		tree.n(s).color = tree.n(p).color
		tree.n(p).color = Black
		tree.n(sd).color = Black
		tree.rotate(p, dir)
		x = tree.root()
		break
	}
	if x != nilRef {
		tree.n(x).color = Black
	}
}

func (tree *rbTree[K, V]) Len() int64 {
	return tree.count
}

func (tree *rbTree[K, V]) Cap() int64 {
	if tree.capacity > 0 {
		return tree.capacity
	}
	// Slot 0 and nilRef are reserved.
	return int64(nilRef) - 1
}

func (tree *rbTree[K, V]) IsEmpty() bool {
	return tree.count <= 0
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	return tree.view(tree.root())
}

func (tree *rbTree[K, V]) Search(key K) Cursor[K, V] {
	return tree.cursor(tree.search(key))
}

func (tree *rbTree[K, V]) LowerBound(key K) Cursor[K, V] {
	return tree.cursor(tree.bound(key, false))
}

func (tree *rbTree[K, V]) UpperBound(key K) Cursor[K, V] {
	return tree.cursor(tree.bound(key, true))
}

func (tree *rbTree[K, V]) Begin() Cursor[K, V] {
	return tree.cursor(tree.minRef)
}

func (tree *rbTree[K, V]) End() Cursor[K, V] {
	return tree.cursor(sentinelRef)
}

func (tree *rbTree[K, V]) Min() Cursor[K, V] {
	return tree.cursor(tree.minRef)
}

func (tree *rbTree[K, V]) Max() Cursor[K, V] {
	return tree.cursor(tree.maxRef)
}

func (tree *rbTree[K, V]) Insert(key K, val V) (Cursor[K, V], bool, error) {
	ref, inserted, err := tree.insertNode(key, val, nil, false)
	if err != nil {
		return tree.End(), false, err
	}
	return tree.cursor(ref), inserted, nil
}

func (tree *rbTree[K, V]) InsertOrAssign(key K, val V) (Cursor[K, V], bool, error) {
	ref, inserted, err := tree.insertNode(key, val, nil, true)
	if err != nil {
		return tree.End(), false, err
	}
	return tree.cursor(ref), inserted, nil
}

func zeroCtor[V any]() (V, error) {
	var v V
	return v, nil
}

func (tree *rbTree[K, V]) emplace(key K, ctor func() (V, error), assign bool) (Cursor[K, V], bool, error) {
	if ctor == nil {
		ctor = zeroCtor[V]
	}
	var zero V
	ref, inserted, err := tree.insertNode(key, zero, ctor, assign)
	if err != nil {
		return tree.End(), false, err
	}
	return tree.cursor(ref), inserted, nil
}

func (tree *rbTree[K, V]) Emplace(key K, ctor func() (V, error)) (Cursor[K, V], bool, error) {
	return tree.emplace(key, ctor, false)
}

func (tree *rbTree[K, V]) EmplaceOrAssign(key K, ctor func() (V, error)) (Cursor[K, V], bool, error) {
	return tree.emplace(key, ctor, true)
}

func (tree *rbTree[K, V]) Erase(cur Cursor[K, V]) error {
	if err := cur.check(tree); err != nil {
		return err
	}
	if cur.ref == sentinelRef {
		return ErrRBTreeEraseEnd
	}
	tree.eraseNode(cur.ref)
	return nil
}

func (tree *rbTree[K, V]) removeRef(ref nodeRef) RBNode[K, V] {
	n := tree.n(ref)
	res := &detachedNode[K, V]{key: n.key, val: n.val, color: n.color}
	tree.eraseNode(ref)
	return res
}

func (tree *rbTree[K, V]) Remove(key K) (RBNode[K, V], error) {
	if tree.count <= 0 {
		return nil, ErrRBTreeIsEmpty
	}
	ref := tree.search(key)
	if ref == sentinelRef {
		return nil, ErrRBTreeNotFound
	}
	return tree.removeRef(ref), nil
}

func (tree *rbTree[K, V]) RemoveMin() (RBNode[K, V], error) {
	if tree.count <= 0 {
		return nil, ErrRBTreeIsEmpty
	}
	return tree.removeRef(tree.minRef), nil
}

func (tree *rbTree[K, V]) RemoveMax() (RBNode[K, V], error) {
	if tree.count <= 0 {
		return nil, ErrRBTreeIsEmpty
	}
	return tree.removeRef(tree.maxRef), nil
}

func (tree *rbTree[K, V]) sameImpl(other RBTree[K, V]) (*rbTree[K, V], error) {
	o, ok := other.(*rbTree[K, V])
	if !ok || o == nil {
		return nil, ErrRBTreeForeign
	}
	return o, nil
}

// merge walks other in order and re-inserts every node into the tree.
// The transferred nodes are erased from other by slot afterwards, slots
// are stable across erasures so the collected refs stay meaningful.
// Running out of capacity stops the merge, the nodes moved so far stay moved.
func (tree *rbTree[K, V]) merge(other RBTree[K, V], retain bool) error {
	o, err := tree.sameImpl(other)
	if err != nil {
		return err
	}
	if o == tree || o.count <= 0 {
		return nil
	}

	moved := make([]nodeRef, 0, o.count)
	for ref := o.minRef; ref != sentinelRef; ref = o.succ(ref) {
		n := o.n(ref)
		_, inserted, ierr := tree.insertNode(n.key, n.val, nil, false)
		if ierr != nil {
			err = infra.WrapErrorStackWithMessage(ierr, "[rbtree] merge stopped")
			break
		}
		if inserted || !retain {
			moved = append(moved, ref)
		}
	}

	if err == nil && !retain {
		o.Clear()
		return nil
	}
	for _, ref := range moved {
		o.eraseNode(ref)
	}
	return err
}

func (tree *rbTree[K, V]) Merge(other RBTree[K, V]) error {
	return tree.merge(other, false)
}

func (tree *rbTree[K, V]) MergeRetain(other RBTree[K, V]) error {
	return tree.merge(other, true)
}

// Clone re-inserts every key/value in order, the copy shares no node.
func (tree *rbTree[K, V]) Clone() RBTree[K, V] {
	c := tree.empty()
	for ref := tree.minRef; ref != sentinelRef; ref = tree.succ(ref) {
		n := tree.n(ref)
		if _, _, err := c.insertNode(n.key, n.val, nil, false); err != nil {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] clone into the same capacity failed: " + err.Error())
		}
	}
	return c
}

func (tree *rbTree[K, V]) empty() *rbTree[K, V] {
	return &rbTree[K, V]{
		arena:    newRBArena[K, V](tree.capacity, arenaOwnerGen.Number()),
		kcmp:     tree.kcmp,
		minRef:   sentinelRef,
		maxRef:   sentinelRef,
		capacity: tree.capacity,
	}
}

// Swap exchanges everything. The cursors of both trees become stale
// because their owner tags no longer match.
func (tree *rbTree[K, V]) Swap(other RBTree[K, V]) error {
	o, err := tree.sameImpl(other)
	if err != nil {
		return err
	}
	if o == tree {
		return nil
	}
	*tree, *o = *o, *tree
	return nil
}

func (tree *rbTree[K, V]) MoveFrom(other RBTree[K, V]) error {
	o, err := tree.sameImpl(other)
	if err != nil {
		return err
	}
	if o == tree {
		return nil
	}
	*tree = *o
	*o = *o.empty()
	return nil
}

// Inorder traversal through the succ links, no auxiliary stack.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	idx := int64(0)
	for ref := tree.minRef; ref != sentinelRef; ref = tree.succ(ref) {
		n := tree.n(ref)
		if !action(idx, n.color, n.key, n.val) {
			return
		}
		idx++
	}
}

// Clear drops the whole arena at once, every outstanding cursor turns stale.
func (tree *rbTree[K, V]) Clear() {
	tree.arena = newRBArena[K, V](tree.capacity, arenaOwnerGen.Number())
	tree.minRef, tree.maxRef = sentinelRef, sentinelRef
	tree.count = 0
}

type RBTreeOpt[K any, V any] func(*rbTree[K, V])

func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.kcmp = infra.DescKeyComparator[K]
	}
}

func WithRBTreeComparator[K any, V any](kcmp infra.KeyComparator[K]) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		if kcmp != nil {
			tree.kcmp = kcmp
		}
	}
}

// WithRBTreeCapacity bounds the number of nodes, inserting beyond it
// fails with ErrRBTreeIsFull.
func WithRBTreeCapacity[K any, V any](capacity int64) RBTreeOpt[K, V] {
	return func(tree *rbTree[K, V]) {
		tree.capacity = capacity
	}
}

func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	return NewRBTreeFunc[K, V](infra.AscKeyComparator[K], opts...)
}

// NewRBTreeFunc orders arbitrary keys by kcmp, which must be a strict
// total order.
func NewRBTreeFunc[K any, V any](kcmp infra.KeyComparator[K], opts ...RBTreeOpt[K, V]) RBTree[K, V] {
	if kcmp == nil {
		panic("[rbtree] nil key comparator")
	}
	tree := &rbTree[K, V]{
		kcmp:   kcmp,
		minRef: sentinelRef,
		maxRef: sentinelRef,
	}
	for _, o := range opts {
		if o != nil {
			o(tree)
		}
	}
	tree.arena = newRBArena[K, V](tree.capacity, arenaOwnerGen.Number())
	return tree
}
