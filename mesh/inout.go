package mesh

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"

	"github.com/golang/geo/r3"
)

// Output is the finished mesh in indexed form. Point indices are compact;
// duplicate input points are folded onto their survivors, so Tetrahedra,
// Faces and Edges reference the Points slice directly.
type Output struct {
	Points     []r3.Vector
	PointAttrs [][]float64
	PointMarks []int32

	Tetrahedra [][4]int
	TetAttrs   []float64

	// Faces are the boundary triangles (the subfaces) with their facet
	// marks; Edges the boundary segments with theirs.
	Faces     [][3]int
	FaceMarks []int32
	Edges     [][2]int
	EdgeMarks []int32
}

// Tetrahedralize runs the full pipeline on one input and returns the
// finished mesh: Delaunay triangulation of the points, boundary recovery
// and hole carving when PLC is set, refinement when Quality or a volume
// constraint asks for it.
func Tetrahedralize(opts Options, in *Input, logger golog.Logger) (*Output, error) {
	m := New(opts, logger)
	if err := m.Build(in); err != nil {
		return nil, err
	}
	return m.Output(), nil
}

// Build runs the meshing pipeline on the input, leaving the result in m.
func (m *Mesh) Build(in *Input) error {
	if len(in.Points) < 4 {
		return errors.Errorf("need at least 4 input points, have %d", len(in.Points))
	}
	if in.PointAttrs != nil && len(in.PointAttrs) != len(in.Points) {
		return errors.New("point attribute count does not match point count")
	}
	if in.PointMarks != nil && len(in.PointMarks) != len(in.Points) {
		return errors.New("point mark count does not match point count")
	}
	m.setBoundingBox(in.Points)

	ids := make([]int32, len(in.Points))
	for i, p := range in.Points {
		var attr []float64
		if in.PointAttrs != nil {
			attr = in.PointAttrs[i]
		}
		var mark int32
		if in.PointMarks != nil {
			mark = in.PointMarks[i]
		}
		ids[i] = m.newVertex(p, attr, mark, InputVertex)
	}

	if m.opts.Refine {
		if err := m.reconstructMesh(in, ids); err != nil {
			return err
		}
	} else {
		if err := m.delaunize(ids); err != nil {
			return err
		}
		if m.opts.Check {
			if err := m.checkDelaunay(); err != nil {
				return errors.Wrap(err, "after triangulation")
			}
		}
	}

	if m.opts.PLC && len(in.Facets) > 0 {
		if err := m.meshSurface(in, ids); err != nil {
			return err
		}
		if m.opts.DetectIntersections {
			if err := m.detectIntersections(); err != nil {
				return err
			}
		}
		if err := m.delaunizeSegments(); err != nil {
			return err
		}
		if err := m.recoverSubfaces(); err != nil {
			return err
		}
		if err := m.carveHoles(in.Holes, in.Regions); err != nil {
			return err
		}
		if m.opts.Check {
			if err := m.check(); err != nil {
				return errors.Wrap(err, "after boundary recovery")
			}
		}
	}

	if m.opts.Quality || m.opts.MaxVolume > 0 || m.opts.VarVolume {
		if err := m.enforceQuality(); err != nil {
			return err
		}
	}

	if m.opts.Check {
		if err := m.check(); err != nil {
			return errors.Wrap(err, "final mesh")
		}
	}
	return nil
}

// reconstructMesh rebuilds the adjacency of a previously generated mesh
// from its corner tuples, so refinement can continue on it. Faces left
// without a neighbor form the boundary and are protected by subfaces.
func (m *Mesh) reconstructMesh(in *Input, ids []int32) error {
	if len(in.Tetrahedra) == 0 {
		return errors.New("refine mode needs input tetrahedra")
	}
	if in.TetAttrs != nil && len(in.TetAttrs) != len(in.Tetrahedra) {
		return errors.New("cell attribute count does not match cell count")
	}

	faces := map[faceKey][]TetFace{}
	for i, tet := range in.Tetrahedra {
		var vs [4]int32
		for j, idx := range tet {
			if idx < 0 || idx >= len(ids) {
				return errors.Errorf("cell %d references point %d out of range", i, idx)
			}
			vs[j] = ids[idx]
		}
		ori := predicates.Orient3D(m.pt(vs[0]), m.pt(vs[1]), m.pt(vs[2]), m.pt(vs[3]))
		if ori == 0 {
			return errors.Errorf("cell %d (%d %d %d %d) is degenerate", i, tet[0], tet[1], tet[2], tet[3])
		}
		if ori > 0 {
			vs[0], vs[1] = vs[1], vs[0]
		}
		ti := m.newTet(vs[0], vs[1], vs[2], vs[3])
		if in.TetAttrs != nil {
			t := m.tet(ti)
			t.attr = in.TetAttrs[i]
			t.hasAttr = true
		}
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			k := makeFaceKey(m.org(f), m.dest(f), m.apex(f))
			faces[k] = append(faces[k], f)
		}
	}

	for k, fs := range faces {
		switch len(fs) {
		case 2:
			m.bond(fs[0], fs[1])
		case 1:
			m.bond(fs[0], hull)
			sh := m.newShell(kindSubface, m.org(fs[0]), m.dest(fs[0]), m.apex(fs[0]))
			if se, ok := m.findShellEdge(sh, m.org(fs[0]), m.dest(fs[0])); ok {
				m.tsbond(fs[0], se)
			}
		default:
			return errors.Errorf("face (%d %d %d) is shared by %d cells", k[0], k[1], k[2], len(fs))
		}
	}

	m.recent = hull
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		m.recent = TetFace{tet: ti}
		return false
	})
	m.nonconvex = true
	m.checkSubfaces = true
	m.logger.Debugw("mesh reconstructed",
		"cells", len(in.Tetrahedra),
		"boundaryFaces", m.subfaceCount,
	)
	return nil
}

// detectIntersections scans the triangulated facets pairwise for
// improper intersections: two subfaces from different facets crossing
// anywhere but a shared vertex or segment.
func (m *Mesh) detectIntersections() error {
	type faceTri struct {
		sh    int32
		facet int32
		v     [3]int32
	}
	var tris []faceTri
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.kind == kindSubface && !s.dead() && s.v[0] != noVertex {
			tris = append(tris, faceTri{sh: i, facet: s.facet, v: s.v})
		}
		return true
	})
	var found error
	for i := 0; i < len(tris); i++ {
		for j := i + 1; j < len(tris); j++ {
			a, b := tris[i], tris[j]
			if a.facet == b.facet {
				continue
			}
			shared := 0
			for _, u := range a.v {
				for _, w := range b.v {
					if u == w {
						shared++
					}
				}
			}
			if shared > 0 {
				continue // meeting at shared vertices or a shared edge is proper
			}
			if m.trianglesIntersect(a.v, b.v) {
				found = errors.Errorf("facets %d and %d intersect near subfaces %d and %d",
					a.facet, b.facet, a.sh, b.sh)
				m.logger.Debugw("facet intersection detected",
					"facetA", a.facet, "facetB", b.facet)
			}
		}
	}
	return found
}

// trianglesIntersect tests two disjoint-cornered triangles for
// intersection by checking each edge of either against the other.
func (m *Mesh) trianglesIntersect(ta, tb [3]int32) bool {
	cross := func(u, w int32, tri [3]int32) bool {
		pa, pb, pc := m.pt(tri[0]), m.pt(tri[1]), m.pt(tri[2])
		pu, pw := m.pt(u), m.pt(w)
		s1 := predicates.Orient3D(pa, pb, pc, pu)
		s2 := predicates.Orient3D(pa, pb, pc, pw)
		if s1 == 0 || s2 == 0 || s1 == s2 {
			return false
		}
		t1 := predicates.Orient3D(pu, pw, pa, pb)
		t2 := predicates.Orient3D(pu, pw, pb, pc)
		t3 := predicates.Orient3D(pu, pw, pc, pa)
		if t1 == 0 || t2 == 0 || t3 == 0 {
			return t1 >= 0 && t2 >= 0 && t3 >= 0 || t1 <= 0 && t2 <= 0 && t3 <= 0
		}
		return t1 == t2 && t2 == t3
	}
	for e := 0; e < 3; e++ {
		if cross(ta[e], ta[(e+1)%3], tb) {
			return true
		}
		if cross(tb[e], tb[(e+1)%3], ta) {
			return true
		}
	}
	return false
}

// Output extracts the mesh in indexed form.
func (m *Mesh) Output() *Output {
	out := &Output{}

	index := map[int32]int{}
	m.verts.traverse(func(vi int32, v *vertex) bool {
		if v.dead() || v.typ == DuplicateVertex {
			return true
		}
		index[vi] = len(out.Points)
		out.Points = append(out.Points, v.loc)
		out.PointAttrs = append(out.PointAttrs, v.attr)
		out.PointMarks = append(out.PointMarks, v.mark)
		return true
	})
	anyAttr := false
	for _, a := range out.PointAttrs {
		if a != nil {
			anyAttr = true
			break
		}
	}
	if !anyAttr {
		out.PointAttrs = nil
	}
	lookup := func(vi int32) int {
		if i, ok := index[vi]; ok {
			return i
		}
		return index[m.resolveVertex(vi)]
	}

	hasAttrs := false
	m.tets.traverse(func(_ int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		out.Tetrahedra = append(out.Tetrahedra, [4]int{
			lookup(t.v[0]), lookup(t.v[1]), lookup(t.v[2]), lookup(t.v[3]),
		})
		out.TetAttrs = append(out.TetAttrs, t.attr)
		hasAttrs = hasAttrs || t.hasAttr
		return true
	})
	if !hasAttrs {
		out.TetAttrs = nil
	}

	m.shells.traverse(func(_ int32, s *shell) bool {
		if s.dead() || s.v[0] == noVertex {
			return true
		}
		switch s.kind {
		case kindSubface:
			out.Faces = append(out.Faces, [3]int{
				lookup(s.v[0]), lookup(s.v[1]), lookup(s.v[2]),
			})
			out.FaceMarks = append(out.FaceMarks, s.mark)
		case kindSubsegment:
			out.Edges = append(out.Edges, [2]int{lookup(s.v[0]), lookup(s.v[1])})
			out.EdgeMarks = append(out.EdgeMarks, s.mark)
		}
		return true
	})
	return out
}
