package tree

import (
	"fmt"

	"go.uber.org/multierr"
)

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

func asRBTree[K any, V any](tree RBTree[K, V]) (*rbTree[K, V], error) {
	t, ok := tree.(*rbTree[K, V])
	if !ok || t == nil {
		return nil, ErrRBTreeForeign
	}
	return t, nil
}

// SentinelValidate checks the sentinel is black and unkeyed, and that the
// root hangs below it painted black.
func SentinelValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	s := t.n(sentinelRef)
	if s.color != Black || s.left != nilRef || s.parent != nilRef {
		return fmt.Errorf("%w: sentinel is not a black stub", errRBTreeSentinelViolation)
	}
	if r := s.right; r != nilRef {
		if t.n(r).parent != sentinelRef {
			return fmt.Errorf("%w: root parent is not the sentinel", errRBTreeSentinelViolation)
		}
		if t.n(r).color != Black {
			return fmt.Errorf("%w: root is red", errRBTreeSentinelViolation)
		}
	}
	return nil
}

// Preorder traversal with an explicit stack, no red node has a red child.
func RedViolationValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	if t.root() == nilRef {
		return nil
	}

	stack := make([]nodeRef, 0, 64)
	defer func() {
		clear(stack)
	}()
	for stack = append(stack, t.root()); len(stack) > 0; {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.n(aux)
		if n.color == Red && (t.isRed(n.left) || t.isRed(n.right)) {
			return fmt.Errorf("%w: red node has a red child", errRBTreeRedViolation)
		}
		if n.right != nilRef {
			stack = append(stack, n.right)
		}
		if n.left != nilRef {
			stack = append(stack, n.left)
		}
	}
	return nil
}

// BlackViolationValidate checks every path down to an absent child goes
// through the same number of black nodes.
func BlackViolationValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	_, err = t.blackHeight(t.root())
	return err
}

func (tree *rbTree[K, V]) blackHeight(ref nodeRef) (int, error) {
	if ref == nilRef {
		return 1, nil
	}
	n := tree.n(ref)
	lh, err := tree.blackHeight(n.left)
	if err != nil {
		return 0, err
	}
	rh, err := tree.blackHeight(n.right)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, fmt.Errorf("%w: left %d, right %d", errRBTreeBlackViolation, lh, rh)
	}
	if n.color == Black {
		lh++
	}
	return lh, nil
}

// SizeValidate counts the reachable nodes and checks every child links
// back to its parent.
func SizeValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	count := int64(0)
	if r := t.root(); r != nilRef {
		stack := []nodeRef{r}
		for len(stack) > 0 {
			aux := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			count++
			for _, c := range [2]nodeRef{t.n(aux).left, t.n(aux).right} {
				if c == nilRef {
					continue
				}
				if t.n(c).parent != aux {
					return errRBTreeLinkViolation
				}
				stack = append(stack, c)
			}
		}
	}
	if count != t.count || count != t.arena.live {
		return fmt.Errorf("%w: reachable %d, len %d, allocated %d",
			errRBTreeSizeViolation, count, t.count, t.arena.live)
	}
	return nil
}

func CacheValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	r := t.root()
	if t.minRef != t.minimum(r) || t.maxRef != t.maximum(r) {
		return errRBTreeCacheViolation
	}
	return nil
}

// OrderValidate walks the succ links and checks the keys strictly increase.
func OrderValidate[K any, V any](tree RBTree[K, V]) error {
	t, err := asRBTree[K, V](tree)
	if err != nil {
		return err
	}
	prev := sentinelRef
	for ref := t.minRef; ref != sentinelRef; prev, ref = ref, t.succ(ref) {
		if prev != sentinelRef && t.kcmp(t.n(prev).key, t.n(ref).key) >= 0 {
			return fmt.Errorf("%w: %v is not before %v",
				errRBTreeOrderViolation, t.n(prev).key, t.n(ref).key)
		}
	}
	return nil
}

// Validate runs every structural check and reports all failures together.
func Validate[K any, V any](tree RBTree[K, V]) error {
	if _, err := asRBTree[K, V](tree); err != nil {
		return err
	}
	return multierr.Combine(
		SentinelValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		SizeValidate[K, V](tree),
		CacheValidate[K, V](tree),
		OrderValidate[K, V](tree),
	)
}
