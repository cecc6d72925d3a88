package tree

import "errors"

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

var (
	ErrRBTreeNotFound          = errors.New("[rbtree] key not found")
	ErrRBTreeIsEmpty           = errors.New("[rbtree] there is no element")
	ErrRBTreeIsFull            = errors.New("[rbtree] node capacity exhausted")
	ErrRBTreeEraseEnd          = errors.New("[rbtree] erase the end position")
	ErrRBTreeDerefEnd          = errors.New("[rbtree] dereference the end position")
	ErrRBTreeStaleCursor       = errors.New("[rbtree] stale or foreign cursor")
	ErrRBTreeValueCtor         = errors.New("[rbtree] value construction failed")
	ErrRBTreeForeign           = errors.New("[rbtree] foreign tree implementation")
	errRBTreeRedViolation      = errors.New("[rbtree] red violation")
	errRBTreeBlackViolation    = errors.New("[rbtree] black violation")
	errRBTreeSentinelViolation = errors.New("[rbtree] sentinel violation")
	errRBTreeLinkViolation     = errors.New("[rbtree] parent link violation")
	errRBTreeSizeViolation     = errors.New("[rbtree] size violation")
	errRBTreeCacheViolation    = errors.New("[rbtree] min/max cache violation")
	errRBTreeOrderViolation    = errors.New("[rbtree] key order violation")
)

// RBNode is a read-only view of a tree node. Views of absent children
// and of the sentinel are nil.
type RBNode[K any, V any] interface {
	Key() K
	Val() V
	HasKeyVal() bool
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
	Parent() RBNode[K, V]
}

// RBTree is a red-black tree keyed by a strict total order.
// It is not safe for concurrent use, and mutating while iterating
// only keeps the cursors of untouched nodes valid.
type RBTree[K any, V any] interface {
	Len() int64
	// Cap is the maximum number of nodes the tree can hold.
	Cap() int64
	IsEmpty() bool
	Root() RBNode[K, V]

	// Search returns the cursor of key or End() if key is absent.
	Search(key K) Cursor[K, V]
	// LowerBound returns the first position whose key is not before key.
	LowerBound(key K) Cursor[K, V]
	// UpperBound returns the first position whose key is after key.
	UpperBound(key K) Cursor[K, V]
	Begin() Cursor[K, V]
	End() Cursor[K, V]
	Min() Cursor[K, V]
	Max() Cursor[K, V]

	// Insert reports false without mutation if key is already present.
	Insert(key K, val V) (Cursor[K, V], bool, error)
	// InsertOrAssign overwrites the value of a present key and reports false.
	InsertOrAssign(key K, val V) (Cursor[K, V], bool, error)
	// Emplace calls ctor only when key is absent. A failed ctor leaves
	// the tree exactly as it was.
	Emplace(key K, ctor func() (V, error)) (Cursor[K, V], bool, error)
	// EmplaceOrAssign always calls ctor. Its value is stored under key,
	// a failed ctor leaves both an absent and a present key untouched.
	EmplaceOrAssign(key K, ctor func() (V, error)) (Cursor[K, V], bool, error)

	Erase(cur Cursor[K, V]) error
	Remove(key K) (RBNode[K, V], error)
	RemoveMin() (RBNode[K, V], error)
	RemoveMax() (RBNode[K, V], error)

	// Merge moves the keys unique to other into the tree and empties other.
	Merge(other RBTree[K, V]) error
	// MergeRetain moves the keys unique to other into the tree, the
	// duplicates stay in other.
	MergeRetain(other RBTree[K, V]) error
	Clone() RBTree[K, V]
	Swap(other RBTree[K, V]) error
	// MoveFrom takes over the nodes of other and leaves other empty.
	MoveFrom(other RBTree[K, V]) error

	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	Clear()
}
