package mesh

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestInsertSiteMergesNeighborCellVertex(t *testing.T) {
	// Two bonded cells over the z = 0 triangle, with the lower apex a
	// hair below the plane. A point just above the plane lands in the
	// upper cell but lies within merge tolerance of the lower apex,
	// which is not a corner of the containing cell.
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	const off = 5e-9
	pts := []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		{X: 0.3, Y: 0.3, Z: -off},
	}
	m.setBoundingBox(pts)
	a := m.newVertex(pts[0], nil, 0, InputVertex)
	b := m.newVertex(pts[1], nil, 0, InputVertex)
	c := m.newVertex(pts[2], nil, 0, InputVertex)
	d := m.newVertex(pts[3], nil, 0, InputVertex)
	e := m.newVertex(pts[4], nil, 0, InputVertex)
	t1 := m.newTet(a, b, c, d)
	t2 := m.newTet(b, a, c, e)
	m.bond(TetFace{tet: t1}, TetFace{tet: t2})

	p := r3.Vector{X: 0.3, Y: 0.3, Z: off}
	test.That(t, p.Sub(pts[4]).Norm() < m.longest*m.opts.Epsilon, test.ShouldBeTrue)

	q := &flipQueue{}
	vi := m.newVertex(p, nil, 0, FreeVolVertex)
	search := TetFace{tet: t1}
	res, err := m.insertSite(vi, &search, false, q, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldEqual, siteDuplicate)
	test.That(t, m.vert(vi).typ, test.ShouldEqual, DuplicateVertex)
	test.That(t, m.vert(vi).pair, test.ShouldEqual, e)
	test.That(t, m.duplicateCount, test.ShouldEqual, 1)

	// The mesh topology is untouched.
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, 2)
	test.That(t, m.checkCells(), test.ShouldBeNil)
}
