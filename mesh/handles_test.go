package mesh

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// oneTetMesh builds a mesh holding the single tetrahedron over the
// origin, the unit axis points and nothing else.
func oneTetMesh(t *testing.T) (*Mesh, int32, [4]int32) {
	t.Helper()
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	a := m.newVertex(r3.Vector{X: 0, Y: 0, Z: 0}, nil, 0, InputVertex)
	b := m.newVertex(r3.Vector{X: 1, Y: 0, Z: 0}, nil, 0, InputVertex)
	c := m.newVertex(r3.Vector{X: 0, Y: 1, Z: 0}, nil, 0, InputVertex)
	d := m.newVertex(r3.Vector{X: 0, Y: 0, Z: 1}, nil, 0, InputVertex)
	ti := m.newTet(a, b, c, d)
	return m, ti, [4]int32{a, b, c, d}
}

func TestHandleCornerQueries(t *testing.T) {
	m, ti, vs := oneTetMesh(t)

	f0 := TetFace{tet: ti}
	test.That(t, m.org(f0), test.ShouldEqual, vs[0])
	test.That(t, m.dest(f0), test.ShouldEqual, vs[1])
	test.That(t, m.apex(f0), test.ShouldEqual, vs[2])
	test.That(t, m.oppo(f0), test.ShouldEqual, vs[3])

	// Each face sees the remaining corner as its opposite.
	want := map[int8][4]int32{
		1: {vs[0], vs[3], vs[1], vs[2]},
		2: {vs[1], vs[3], vs[2], vs[0]},
		3: {vs[2], vs[3], vs[0], vs[1]},
	}
	for loc, w := range want {
		f := TetFace{tet: ti, loc: loc}
		test.That(t, m.org(f), test.ShouldEqual, w[0])
		test.That(t, m.dest(f), test.ShouldEqual, w[1])
		test.That(t, m.apex(f), test.ShouldEqual, w[2])
		test.That(t, m.oppo(f), test.ShouldEqual, w[3])
	}
}

func TestHandleEdgeMoves(t *testing.T) {
	m, ti, _ := oneTetMesh(t)

	for loc := int8(0); loc < 4; loc++ {
		f := TetFace{tet: ti, loc: loc}
		// enext walks the face's three directed edges and comes home.
		test.That(t, enext(enext(enext(f))), test.ShouldResemble, f)
		test.That(t, m.org(enext(f)), test.ShouldEqual, m.dest(f))
		test.That(t, enext2(enext(f)), test.ShouldResemble, f)

		// esym reverses the edge, keeping the apex.
		test.That(t, m.org(esym(f)), test.ShouldEqual, m.dest(f))
		test.That(t, m.dest(esym(f)), test.ShouldEqual, m.org(f))
		test.That(t, m.apex(esym(f)), test.ShouldEqual, m.apex(f))
	}
}

func TestFnextRingOnSingleTet(t *testing.T) {
	m, ti, vs := oneTetMesh(t)

	// The edge v0v1 is shared by faces f0 and f1; the in-tet ring step must
	// reach the other face over the same directed edge.
	f := TetFace{tet: ti}
	n, ok := m.fnext(f)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, n.tet, test.ShouldEqual, ti)
	test.That(t, n.loc, test.ShouldNotEqual, f.loc)
	test.That(t, m.org(n), test.ShouldEqual, vs[0])
	test.That(t, m.dest(n), test.ShouldEqual, vs[1])

	// One more step leaves through the hull.
	out, ok := m.fnext(n)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, out.isHull(), test.ShouldBeTrue)
}

func TestBondAndSym(t *testing.T) {
	m, t1, vs := oneTetMesh(t)
	e := m.newVertex(r3.Vector{X: 0.4, Y: 0.4, Z: -1}, nil, 0, InputVertex)
	// Same base triangle seen from below.
	t2 := m.newTet(vs[1], vs[0], vs[2], e)

	f1 := TetFace{tet: t1}
	f2 := TetFace{tet: t2}
	test.That(t, m.sym(f1).isHull(), test.ShouldBeTrue)

	m.bond(f1, f2)
	test.That(t, m.sym(f1).tet, test.ShouldEqual, t2)
	test.That(t, m.sym(f2).tet, test.ShouldEqual, t1)
	test.That(t, m.sym(m.sym(f1)), test.ShouldResemble, TetFace{tet: t1, loc: 0})

	m.dissolve(f1)
	test.That(t, m.sym(f1).isHull(), test.ShouldBeTrue)
	// The reverse bond survives until dissolved in turn.
	test.That(t, m.sym(f2).tet, test.ShouldEqual, t1)
}

func TestFindEdgeAndFaceOf(t *testing.T) {
	m, ti, vs := oneTetMesh(t)

	f := TetFace{tet: ti}
	test.That(t, m.findEdge(&f, vs[2], vs[3]), test.ShouldBeTrue)
	test.That(t, m.org(f), test.ShouldEqual, vs[2])
	test.That(t, m.dest(f), test.ShouldEqual, vs[3])

	g, ok := m.faceOf(ti, vs[1], vs[3], vs[2])
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.org(g), test.ShouldEqual, vs[1])
	test.That(t, m.dest(g), test.ShouldEqual, vs[3])
	test.That(t, m.apex(g), test.ShouldEqual, vs[2])

	_, ok = m.faceOf(ti, vs[0], vs[1], noVertex)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, m.tetHasVertex(ti, vs[3]), test.ShouldBeTrue)
}

func TestShellEdgePrimitives(t *testing.T) {
	m, _, vs := oneTetMesh(t)
	sh := m.newShell(kindSubface, vs[0], vs[1], vs[2])

	s := ShellEdge{sh: sh}
	test.That(t, m.sorg(s), test.ShouldEqual, vs[0])
	test.That(t, m.sdest(s), test.ShouldEqual, vs[1])
	test.That(t, m.sapex(s), test.ShouldEqual, vs[2])

	test.That(t, m.sorg(sesym(s)), test.ShouldEqual, vs[1])
	test.That(t, m.sdest(sesym(s)), test.ShouldEqual, vs[0])
	test.That(t, senext(senext(senext(s))), test.ShouldResemble, s)
	test.That(t, m.sorg(senext(s)), test.ShouldEqual, m.sdest(s))
	test.That(t, senext2(senext(s)), test.ShouldResemble, s)

	se, ok := m.findShellEdge(sh, vs[2], vs[1])
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.sapex(se), test.ShouldEqual, vs[0])
}

func TestShellBondsAndSegments(t *testing.T) {
	m, ti, vs := oneTetMesh(t)
	sh := m.newShell(kindSubface, vs[0], vs[1], vs[2])
	s := ShellEdge{sh: sh}

	// Tet side bond: the subface coincides with face 0 of the tetrahedron.
	f := TetFace{tet: ti}
	m.tsbond(f, s)
	test.That(t, m.tspivot(f).sh, test.ShouldEqual, sh)
	test.That(t, m.stpivot(s).tet, test.ShouldEqual, ti)
	test.That(t, m.stpivot(sesym(s)).isHull(), test.ShouldBeTrue)

	// Segment bond at the edge v0v1.
	seg := m.newShell(kindSubsegment, vs[0], vs[1], noVertex)
	m.ssbond(s, ShellEdge{sh: seg})
	test.That(t, m.sspivot(s).sh, test.ShouldEqual, seg)
	test.That(t, m.segRingFace(ShellEdge{sh: seg}).sh, test.ShouldEqual, sh)

	got := m.tssPivot(f)
	test.That(t, got.sh, test.ShouldEqual, seg)

	back, ok := m.sstPivot(ShellEdge{sh: seg})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, back.tet, test.ShouldEqual, ti)
	test.That(t, m.org(back), test.ShouldEqual, vs[0])
	test.That(t, m.dest(back), test.ShouldEqual, vs[1])

	m.ssdissolve(s)
	test.That(t, m.sspivot(s).isNone(), test.ShouldBeTrue)
}
