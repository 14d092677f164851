package mesh

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func builtCube(t *testing.T) *Mesh {
	t.Helper()
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	test.That(t, m.Build(&Input{Points: cubePoints()}), test.ShouldBeNil)
	return m
}

func TestLocateInterior(t *testing.T) {
	m := builtCube(t)

	p := r3.Vector{X: 0.31, Y: 0.43, Z: 0.27}
	search := m.recent
	res := m.locate(p, &search)
	test.That(t, res, test.ShouldEqual, InTetrahedron)
	test.That(t, m.tetDead(search.tet), test.ShouldBeFalse)

	// The reported cell really contains the point.
	for loc := int8(0); loc < 4; loc++ {
		f := TetFace{tet: search.tet, loc: loc}
		a, b, c := m.pt(m.org(f)), m.pt(m.dest(f)), m.pt(m.apex(f))
		vol := tetVolume(a, b, c, p)
		test.That(t, vol < 0, test.ShouldBeTrue)
	}
}

func TestLocateOnVertex(t *testing.T) {
	m := builtCube(t)

	for _, p := range cubePoints() {
		search := m.recent
		res := m.locate(p, &search)
		test.That(t, res, test.ShouldEqual, OnVertex)
		test.That(t, m.pt(m.org(search)), test.ShouldResemble, p)
	}
}

func TestLocateOnBoundaryFace(t *testing.T) {
	m := builtCube(t)

	// Interior of the bottom face plane, off both diagonals.
	p := r3.Vector{X: 0.21, Y: 0.13, Z: 0}
	search := m.recent
	res := m.locate(p, &search)
	test.That(t, res, test.ShouldEqual, OnFace)
}

func TestLocateOutside(t *testing.T) {
	m := builtCube(t)

	search := m.recent
	res := m.locate(r3.Vector{X: 3, Y: -2, Z: 5}, &search)
	test.That(t, res, test.ShouldEqual, Outside)
	// The exit face is a hull face.
	test.That(t, m.sym(search).isHull(), test.ShouldBeTrue)
}

func TestLocateNearRetiredVertex(t *testing.T) {
	m := builtCube(t)
	before := m.NumTetrahedra()

	// Insert an interior point, then unwind the insertion and retire the
	// vertex, leaving its cell backreference pointing at dead storage.
	p := r3.Vector{X: 0.3, Y: 0.41, Z: 0.23}
	q := &flipQueue{}
	tx := &txn{}
	vi := m.newVertex(p, nil, 0, FreeVolVertex)
	search := m.recent
	res, err := m.insertSite(vi, &search, false, q, tx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldEqual, siteInCell)
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, before+3)

	test.That(t, tx.rollback(), test.ShouldBeNil)
	m.killVertex(vi)
	test.That(t, m.NumTetrahedra(), test.ShouldEqual, before)
	test.That(t, m.NumVertices(), test.ShouldEqual, 8)
	test.That(t, m.vert(vi).typ, test.ShouldEqual, DeadVertex)
	test.That(t, m.checkCells(), test.ShouldBeNil)
	test.That(t, m.checkDelaunay(), test.ShouldBeNil)

	deadTet := m.vert(vi).tet
	test.That(t, m.tetDead(deadTet), test.ShouldBeTrue)

	// Relocating a query at the retired point with the stale hint must
	// land in a live adjacent cell, never outside.
	stale := TetFace{tet: deadTet}
	loc := m.locate(p, &stale)
	test.That(t, loc, test.ShouldEqual, InTetrahedron)
	test.That(t, m.tetDead(stale.tet), test.ShouldBeFalse)

	// The backreference fallback recovers a live incident cell for a
	// surviving vertex whose cached cell died.
	corner := int32(0)
	m.vert(corner).tet = deadTet
	f, ok := m.vertexTet(corner)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.tetDead(f.tet), test.ShouldBeFalse)
	test.That(t, m.tetHasVertex(f.tet, corner), test.ShouldBeTrue)
}

func TestLocateResultString(t *testing.T) {
	test.That(t, InTetrahedron.String(), test.ShouldEqual, "in-tetrahedron")
	test.That(t, OnVertex.String(), test.ShouldEqual, "on-vertex")
	test.That(t, Outside.String(), test.ShouldEqual, "outside")
}
