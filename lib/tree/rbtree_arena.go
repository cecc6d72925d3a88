package tree

import "math"

// nodeRef addresses a node slot inside the arena of its tree.
// Slot 0 is the sentinel, nilRef marks an absent child.
type nodeRef uint32

const (
	sentinelRef nodeRef = 0
	nilRef      nodeRef = math.MaxUint32

	rbArenaChunkShift = 8
	rbArenaChunkSize  = 1 << rbArenaChunkShift
	rbArenaChunkMask  = rbArenaChunkSize - 1
)

type rbNode[K any, V any] struct {
	key    K
	val    V
	parent nodeRef
	left   nodeRef
	right  nodeRef
	gen    uint32 // bumped on every release of the slot
	color  RBColor
	inUse  bool
}

// rbArena hands out node slots from fixed size chunks. The chunks never
// move, so a *rbNode stays valid until its slot is released.
// Released slots are recycled LIFO.
type rbArena[K any, V any] struct {
	chunks   [][]rbNode[K, V]
	recycled []nodeRef
	next     nodeRef // first never used slot
	live     int64   // allocated real nodes, the sentinel excluded
	capacity int64   // <= 0 means unbounded
	owner    uint64
}

func newRBArena[K any, V any](capacity int64, owner uint64) *rbArena[K, V] {
	arena := &rbArena[K, V]{
		chunks:   make([][]rbNode[K, V], 1, 4),
		capacity: capacity,
		owner:    owner,
		next:     sentinelRef + 1,
	}
	arena.chunks[0] = make([]rbNode[K, V], rbArenaChunkSize)
	sentinel := arena.node(sentinelRef)
	sentinel.parent, sentinel.left, sentinel.right = nilRef, nilRef, nilRef
	sentinel.color = Black
	sentinel.inUse = true
	return arena
}

func (arena *rbArena[K, V]) node(ref nodeRef) *rbNode[K, V] {
	return &arena.chunks[ref>>rbArenaChunkShift][ref&rbArenaChunkMask]
}

func (arena *rbArena[K, V]) contains(ref nodeRef) bool {
	return ref != nilRef && ref < arena.next
}

func (arena *rbArena[K, V]) isFull() bool {
	return (arena.capacity > 0 && arena.live >= arena.capacity) ||
		(len(arena.recycled) <= 0 && arena.next == nilRef)
}

// allocate returns a detached red slot. Nothing in the tree references it
// until the caller links it.
func (arena *rbArena[K, V]) allocate() (nodeRef, error) {
	if arena.isFull() {
		return nilRef, ErrRBTreeIsFull
	}

	var ref nodeRef
	if rl := len(arena.recycled); rl > 0 {
		ref = arena.recycled[rl-1]
		arena.recycled = arena.recycled[:rl-1]
	} else {
		if int(arena.next>>rbArenaChunkShift) >= len(arena.chunks) {
			arena.chunks = append(arena.chunks, make([]rbNode[K, V], rbArenaChunkSize))
		}
		ref = arena.next
		arena.next++
	}

	node := arena.node(ref)
	node.parent, node.left, node.right = nilRef, nilRef, nilRef
	node.color = Red
	node.inUse = true
	arena.live++
	return ref, nil
}

// release drops the key and value so the GC can reclaim what they
// reference, and invalidates every cursor pointing at the slot.
func (arena *rbArena[K, V]) release(ref nodeRef) {
	if ref == sentinelRef || !arena.contains(ref) {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release the sentinel or an unknown slot")
	}
	node := arena.node(ref)
	if !node.inUse {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] double release")
	}
	var (
		key K
		val V
	)
	node.key, node.val = key, val
	node.parent, node.left, node.right = nilRef, nilRef, nilRef
	node.inUse = false
	node.gen++
	arena.recycled = append(arena.recycled, ref)
	arena.live--
}
