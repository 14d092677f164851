package mesh

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestFlipQueueFIFO(t *testing.T) {
	q := &flipQueue{}
	test.That(t, q.len(), test.ShouldEqual, 0)
	_, ok := q.pop()
	test.That(t, ok, test.ShouldBeFalse)

	q.push(flipItem{forg: 1})
	q.push(flipItem{forg: 2})
	q.push(flipItem{forg: 3})
	test.That(t, q.len(), test.ShouldEqual, 3)

	it, ok := q.pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, it.forg, test.ShouldEqual, int32(1))
	it, _ = q.pop()
	test.That(t, it.forg, test.ShouldEqual, int32(2))
	it, _ = q.pop()
	test.That(t, it.forg, test.ShouldEqual, int32(3))
	test.That(t, q.len(), test.ShouldEqual, 0)
	test.That(t, len(q.items), test.ShouldEqual, 0)
}

func TestTxnRollbackReverseOrder(t *testing.T) {
	var got []int
	tx := &txn{}
	for i := 0; i < 3; i++ {
		i := i
		tx.push(func() error {
			got = append(got, i)
			return nil
		})
	}
	test.That(t, tx.rollback(), test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []int{2, 1, 0})
	// The log is spent; a second rollback is a no-op.
	test.That(t, tx.rollback(), test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, 3)

	// A nil transaction swallows pushes.
	var none *txn
	none.push(func() error { return nil })
}

func TestMakeFaceKeyOrderInvariant(t *testing.T) {
	k := makeFaceKey(3, 1, 2)
	test.That(t, k, test.ShouldResemble, faceKey{1, 2, 3})
	test.That(t, makeFaceKey(2, 3, 1), test.ShouldResemble, k)
	test.That(t, makeFaceKey(1, 2, 3), test.ShouldResemble, k)
}

// twoTetsNonDelaunay builds the two cells over a shared base triangle whose
// opposite corners lie in each other's circumspheres, the canonical 2-to-3
// configuration.
func twoTetsNonDelaunay(t *testing.T) (*Mesh, int32, int32, [5]int32) {
	t.Helper()
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	a := m.newVertex(r3.Vector{X: 0, Y: 0, Z: 0}, nil, 0, InputVertex)
	b := m.newVertex(r3.Vector{X: 1, Y: 0, Z: 0}, nil, 0, InputVertex)
	c := m.newVertex(r3.Vector{X: 0.5, Y: 1, Z: 0}, nil, 0, InputVertex)
	d := m.newVertex(r3.Vector{X: 0.5, Y: 0.3, Z: 0.6}, nil, 0, InputVertex)
	e := m.newVertex(r3.Vector{X: 0.5, Y: 0.3, Z: -0.6}, nil, 0, InputVertex)
	t1 := m.newTet(a, b, c, d)
	t2 := m.newTet(b, a, c, e)
	m.bond(TetFace{tet: t1}, TetFace{tet: t2})
	return m, t1, t2, [5]int32{a, b, c, d, e}
}

func TestCategorizeConvexFace(t *testing.T) {
	m, t1, _, _ := twoTetsNonDelaunay(t)
	ft, pos := m.categorize(TetFace{tet: t1})
	test.That(t, ft, test.ShouldEqual, flipT23)
	test.That(t, pos.tet, test.ShouldEqual, t1)
}

func TestFlipLoopLegalizesTwoTets(t *testing.T) {
	m, t1, _, vs := twoTetsNonDelaunay(t)

	q := &flipQueue{}
	m.enqueueTetFaces(q, t1)
	count, err := m.flipLoop(q, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, int64(1))
	test.That(t, m.flip23Count, test.ShouldEqual, int64(1))
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 3)
	test.That(t, m.checkCells(), test.ShouldBeNil)
	test.That(t, m.checkDelaunay(), test.ShouldBeNil)

	// Every cell now contains the new edge joining the opposite corners.
	d, e := vs[3], vs[4]
	m.tets.traverse(func(ti int32, _ *tetra) bool {
		test.That(t, m.tetHasVertex(ti, d), test.ShouldBeTrue)
		test.That(t, m.tetHasVertex(ti, e), test.ShouldBeTrue)
		return true
	})
}

func TestFlipRoundTripRestoresCells(t *testing.T) {
	m, t1, _, vs := twoTetsNonDelaunay(t)
	d, e := vs[3], vs[4]

	q := &flipQueue{}
	test.That(t, m.flip23(TetFace{tet: t1}, q, nil), test.ShouldBeNil)
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 3)
	test.That(t, m.checkCells(), test.ShouldBeNil)

	// The new edge joining the opposite corners now rings three cells, so
	// any face on it categorizes as the inverse flip with the handle
	// positioned on that edge.
	edge, ok := m.findTetEdge(d, e)
	test.That(t, ok, test.ShouldBeTrue)
	ft, pos := m.categorize(edge)
	test.That(t, ft, test.ShouldEqual, flipT32)
	got := [2]int32{m.org(pos), m.dest(pos)}
	if got[0] > got[1] {
		got[0], got[1] = got[1], got[0]
	}
	want := [2]int32{d, e}
	if want[0] > want[1] {
		want[0], want[1] = want[1], want[0]
	}
	test.That(t, got, test.ShouldResemble, want)

	test.That(t, m.flip32(pos, q, nil), test.ShouldBeNil)
	test.That(t, m.flip32Count, test.ShouldEqual, int64(1))
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 2)
	_, ok = m.findTetByCorners([4]int32{vs[0], vs[1], vs[2], d})
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = m.findTetByCorners([4]int32{vs[0], vs[1], vs[2], e})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.checkCells(), test.ShouldBeNil)
}

func TestFlipRollbackRestoresCells(t *testing.T) {
	m, t1, _, vs := twoTetsNonDelaunay(t)

	q := &flipQueue{}
	tx := &txn{}
	m.enqueueTetFaces(q, t1)
	_, err := m.flipLoop(q, tx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 3)

	test.That(t, tx.rollback(), test.ShouldBeNil)
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 2)
	_, ok := m.findTetByCorners([4]int32{vs[0], vs[1], vs[2], vs[3]})
	test.That(t, ok, test.ShouldBeTrue)
	_, ok = m.findTetByCorners([4]int32{vs[0], vs[1], vs[2], vs[4]})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.checkCells(), test.ShouldBeNil)
}
