package mesh

import (
	"testing"

	"go.viam.com/test"
)

func TestArenaAllocFreeRecycle(t *testing.T) {
	a := newArena[int32](4)

	first := a.alloc()
	second := a.alloc()
	test.That(t, first, test.ShouldEqual, int32(0))
	test.That(t, second, test.ShouldEqual, int32(1))
	test.That(t, a.count(), test.ShouldEqual, 2)

	*a.at(second) = 42
	a.free(second)
	test.That(t, a.count(), test.ShouldEqual, 1)

	// Freed slots come back newest first, zeroed.
	again := a.alloc()
	test.That(t, again, test.ShouldEqual, second)
	test.That(t, *a.at(again), test.ShouldEqual, int32(0))
}

func TestArenaPointerStability(t *testing.T) {
	a := newArena[int32](4)
	i := a.alloc()
	p := a.at(i)
	*p = 7

	// Growing past many block boundaries must not move earlier elements.
	for k := 0; k < 1000; k++ {
		a.alloc()
	}
	test.That(t, a.at(i), test.ShouldEqual, p)
	test.That(t, *p, test.ShouldEqual, int32(7))
}

func TestArenaTraverseSkipsReservedAndDead(t *testing.T) {
	a := newArena[int32](4)
	sentinel := a.alloc()
	test.That(t, sentinel, test.ShouldEqual, int32(0))
	a.reserved = 1

	var idx []int32
	for k := 0; k < 5; k++ {
		idx = append(idx, a.alloc())
	}
	a.free(idx[2])

	var seen []int32
	a.traverse(func(i int32, _ *int32) bool {
		seen = append(seen, i)
		return true
	})
	test.That(t, seen, test.ShouldResemble, []int32{1, 2, 4, 5})
	test.That(t, a.count(), test.ShouldEqual, 4)
	test.That(t, a.isLive(idx[2]), test.ShouldBeFalse)
}

func TestArenaIterator(t *testing.T) {
	a := newArena[int32](4)
	a.alloc()
	a.reserved = 1
	b := a.alloc()
	c := a.alloc()
	a.free(b)

	it := a.iter()
	i, ok := it.nextIndex()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, i, test.ShouldEqual, c)
	_, ok = it.nextIndex()
	test.That(t, ok, test.ShouldBeFalse)
}
