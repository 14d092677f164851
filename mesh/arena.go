package mesh

// arena is a fixed-stride block allocator. Elements are addressed by index;
// blocks never move once allocated, so pointers obtained through at() stay
// valid across later allocations. Freed slots go onto a free list and are
// recycled, newest first. Index 0 of every kernel pool is reserved for the
// pool's sentinel element and is never freed or traversed.
type arena[T any] struct {
	blocks   [][]T
	perBlock int32
	next     int32 // lowest never-allocated index
	freeList []int32
	live     []uint64 // liveness bitmap, indexed by slot
	reserved int32    // leading slots excluded from traversal
}

func newArena[T any](perBlock int32) *arena[T] {
	if perBlock <= 0 {
		perBlock = 1024
	}
	return &arena[T]{perBlock: perBlock}
}

func (a *arena[T]) at(i int32) *T {
	return &a.blocks[i/a.perBlock][i%a.perBlock]
}

// alloc returns the index of a zeroed slot in O(1) amortized time.
func (a *arena[T]) alloc() int32 {
	if n := len(a.freeList); n > 0 {
		i := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		var zero T
		*a.at(i) = zero
		a.setLive(i, true)
		return i
	}
	i := a.next
	a.next++
	if int(i/a.perBlock) >= len(a.blocks) {
		a.blocks = append(a.blocks, make([]T, a.perBlock))
	}
	a.setLive(i, true)
	return i
}

// free returns slot i to the free list. The slot's content is dead from the
// caller's point of view, but other live slots keep their addresses.
func (a *arena[T]) free(i int32) {
	a.setLive(i, false)
	a.freeList = append(a.freeList, i)
}

func (a *arena[T]) setLive(i int32, v bool) {
	w := int(i >> 6)
	for w >= len(a.live) {
		a.live = append(a.live, 0)
	}
	if v {
		a.live[w] |= 1 << uint(i&63)
	} else {
		a.live[w] &^= 1 << uint(i&63)
	}
}

func (a *arena[T]) isLive(i int32) bool {
	w := int(i >> 6)
	if w >= len(a.live) {
		return false
	}
	return a.live[w]&(1<<uint(i&63)) != 0
}

// count reports the number of live slots past the reserved prefix.
func (a *arena[T]) count() int {
	n := 0
	a.traverse(func(int32, *T) bool {
		n++
		return true
	})
	return n
}

// traverse visits every live, non-reserved slot in index order. The visit
// function may free the current slot or allocate new ones; slots allocated
// at indices already passed are not revisited.
func (a *arena[T]) traverse(visit func(i int32, t *T) bool) {
	for i := a.reserved; i < a.next; i++ {
		if !a.isLive(i) {
			continue
		}
		if !visit(i, a.at(i)) {
			return
		}
	}
}

// iterator is a restartable cursor over live slots, for passes that cannot
// be expressed as a single closure.
type iterator[T any] struct {
	a   *arena[T]
	pos int32
}

func (a *arena[T]) iter() iterator[T] {
	return iterator[T]{a: a, pos: a.reserved}
}

func (it *iterator[T]) nextIndex() (int32, bool) {
	for it.pos < it.a.next {
		i := it.pos
		it.pos++
		if it.a.isLive(i) {
			return i, true
		}
	}
	return 0, false
}
