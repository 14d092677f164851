// Package mesh builds three-dimensional Delaunay triangulations,
// constrained Delaunay triangulations of piecewise-linear domains, and
// quality tetrahedral meshes.
//
// The kernel is a handle-based navigation layer over arena-backed
// tetrahedron, subface, subsegment and point pools, with two permanent
// sentinel elements (the outer-space tetrahedron and the omnipresent
// subface) standing in for every absent neighbor. All topology changes go
// through bistellar flips and element splits, consulting exact geometric
// predicates at every orientation and in-sphere decision.
//
// A Mesh instance is single-threaded; independent instances share no state.
package mesh

import (
	"math"
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
)

// Block sizes for the element arenas.
const (
	vertsPerBlock  = 4092
	shellsPerBlock = 4092
	tetsPerBlock   = 8188
)

// sampleFactor controls how large a random sample of tetrahedra the point
// location scheme of Mücke, Saias and Zhu inspects.
const sampleFactor = 11

// Mesh is one tetrahedral mesh under construction, together with all
// mutable working state of the generation algorithms.
type Mesh struct {
	opts   Options
	logger golog.Logger

	tets   *arena[tetra]
	shells *arena[shell]
	verts  *arena[vertex]

	subfaceCount int
	subsegCount  int

	// recent warm-starts point location near the last touched tetrahedron.
	recent TetFace

	rnd *rand.Rand

	// Bounding box of the input points and the longest representable edge.
	xmin, xmax, ymin, ymax, zmin, zmax float64
	longest                            float64

	nonconvex     bool // set once hull tetrahedra are peeled off
	checkSubfaces bool // set once boundary elements exist

	// Lift point per input facet, used by the facet triangulations.
	liftPoints []r3.Vector

	inSegments int // number of input segments

	flip23Count, flip32Count, flip22Count, flip44Count int64
	steinerCount                                       int
	duplicateCount                                     int
}

// New returns an empty mesh with both sentinel elements in place.
func New(opts Options, logger golog.Logger) *Mesh {
	m := &Mesh{
		opts:   opts.withDefaults(),
		logger: logger,
		tets:   newArena[tetra](tetsPerBlock),
		shells: newArena[shell](shellsPerBlock),
		verts:  newArena[vertex](vertsPerBlock),
	}
	m.rnd = rand.New(rand.NewSource(m.opts.Seed))

	// The outer-space tetrahedron occupies index 0 of the tetrahedron pool
	// and the omnipresent subface index 0 of the shell pool. Every zeroed
	// adjacency slot therefore already points at the right sentinel.
	dummyTet := m.tets.alloc()
	dt := m.tets.at(dummyTet)
	dt.v = [4]int32{noVertex, noVertex, noVertex, noVertex}
	dummySh := m.shells.alloc()
	ds := m.shells.at(dummySh)
	ds.v = [3]int32{noVertex, noVertex, noVertex}
	ds.facet = -1
	m.tets.reserved = 1
	m.shells.reserved = 1

	return m
}

// Options returns the configuration the mesh was created with.
func (m *Mesh) Options() Options { return m.opts }

// NumVertices reports the number of live vertices.
func (m *Mesh) NumVertices() int { return m.verts.count() }

// NumTetrahedra reports the number of live tetrahedra.
func (m *Mesh) NumTetrahedra() int { return m.tets.count() }

// NumSubfaces reports the number of live subfaces.
func (m *Mesh) NumSubfaces() int { return m.subfaceCount }

// NumSubsegments reports the number of live subsegments.
func (m *Mesh) NumSubsegments() int { return m.subsegCount }

func (m *Mesh) tet(i int32) *tetra   { return m.tets.at(i) }
func (m *Mesh) shell(i int32) *shell { return m.shells.at(i) }
func (m *Mesh) vert(i int32) *vertex { return m.verts.at(i) }
func (m *Mesh) pt(i int32) r3.Vector { return m.verts.at(i).loc }

func (m *Mesh) tetDead(i int32) bool {
	return i == 0 || !m.tets.isLive(i) || m.tets.at(i).dead()
}

func (m *Mesh) shellDead(i int32) bool {
	return i == 0 || !m.shells.isLive(i) || m.shells.at(i).dead()
}

// newVertex allocates a vertex record. The tetrahedron backreference starts
// at the sentinel and is fixed up by the first incident tetrahedron.
func (m *Mesh) newVertex(loc r3.Vector, attr []float64, mark int32, typ VertexType) int32 {
	i := m.verts.alloc()
	v := m.verts.at(i)
	v.loc = loc
	v.attr = attr
	v.mark = mark
	v.typ = typ
	v.tet = 0
	v.pair = noVertex
	return i
}

// killVertex marks a vertex dead and recycles its slot. The record itself
// stays addressable until the arena reuses it.
func (m *Mesh) killVertex(i int32) {
	m.verts.at(i).typ = DeadVertex
	m.verts.free(i)
}

// newTet allocates a tetrahedron over the four corners, which must satisfy
// the orientation invariant (d above the oriented plane a, b, c). All
// adjacency starts at the sentinels.
func (m *Mesh) newTet(a, b, c, d int32) int32 {
	i := m.tets.alloc()
	t := m.tets.at(i)
	t.v = [4]int32{a, b, c, d}
	t.maxVol = -1
	for _, vi := range t.v {
		if vi != noVertex {
			m.verts.at(vi).tet = i
		}
	}
	return i
}

func (m *Mesh) killTet(i int32) {
	t := m.tets.at(i)
	t.flags |= flagDead
	t.v = [4]int32{noVertex, noVertex, noVertex, noVertex}
	m.tets.free(i)
}

// newShell allocates a subface or subsegment over the given corners.
func (m *Mesh) newShell(kind shellKind, a, b, c int32) int32 {
	i := m.shells.alloc()
	s := m.shells.at(i)
	s.kind = kind
	s.v = [3]int32{a, b, c}
	s.facet = -1
	if kind == kindSubface {
		m.subfaceCount++
	} else {
		m.subsegCount++
	}
	return i
}

func (m *Mesh) killShell(i int32) {
	s := m.shells.at(i)
	if s.kind == kindSubface {
		m.subfaceCount--
	} else {
		m.subsegCount--
	}
	s.flags |= flagDead
	s.v = [3]int32{noVertex, noVertex, noVertex}
	m.shells.free(i)
}

// setBoundingBox records the input extent; the longest diagonal bounds any
// edge the mesh can contain and scales the relative epsilon tests.
func (m *Mesh) setBoundingBox(pts []r3.Vector) {
	if len(pts) == 0 {
		return
	}
	m.xmin, m.xmax = pts[0].X, pts[0].X
	m.ymin, m.ymax = pts[0].Y, pts[0].Y
	m.zmin, m.zmax = pts[0].Z, pts[0].Z
	for _, p := range pts[1:] {
		m.xmin = math.Min(m.xmin, p.X)
		m.xmax = math.Max(m.xmax, p.X)
		m.ymin = math.Min(m.ymin, p.Y)
		m.ymax = math.Max(m.ymax, p.Y)
		m.zmin = math.Min(m.zmin, p.Z)
		m.zmax = math.Max(m.zmax, p.Z)
	}
	dx := m.xmax - m.xmin
	dy := m.ymax - m.ymin
	dz := m.zmax - m.zmin
	m.longest = math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// randomSample returns a pseudorandom value in [0, choices).
func (m *Mesh) randomSample(choices int) int {
	if choices <= 1 {
		return 0
	}
	return m.rnd.Intn(choices)
}
