package mesh

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// resolveVertex follows duplicate remappings down to the surviving vertex.
func (m *Mesh) resolveVertex(vi int32) int32 {
	for i := 0; i < ringGuard; i++ {
		v := m.vert(vi)
		if v.typ != DuplicateVertex || v.pair == noVertex {
			break
		}
		vi = v.pair
	}
	return vi
}

// meshSurface triangulates every input facet into subfaces and creates the
// subsegments along polygon edges, shared between the facets that meet
// there. ids maps input point indices to mesh vertices.
func (m *Mesh) meshSurface(in *Input, ids []int32) error {
	m.liftPoints = make([]r3.Vector, len(in.Facets))
	segByPair := map[[2]int32]int32{}
	segFaces := map[int32][]ShellEdge{}

	for fi := range in.Facets {
		if err := m.meshFacet(in, ids, int32(fi), segByPair, segFaces); err != nil {
			return errors.Wrapf(err, "facet %d", fi)
		}
	}
	m.unifySegmentRings(segFaces)
	m.classifyFacetVertices()
	m.inSegments = len(segByPair)
	m.checkSubfaces = true
	m.logger.Debugw("surface triangulated",
		"facets", len(in.Facets),
		"subfaces", m.subfaceCount,
		"subsegments", m.subsegCount,
	)
	return nil
}

func segPairKey(a, b int32) [2]int32 {
	if a > b {
		a, b = b, a
	}
	return [2]int32{a, b}
}

func (m *Mesh) meshFacet(in *Input, ids []int32, fi int32, segByPair map[[2]int32]int32, segFaces map[int32][]ShellEdge) error {
	f := &in.Facets[fi]

	var locals []int32
	localIdx := map[int32]int{}
	polys := make([][]int, len(f.Polygons))
	for pi, poly := range f.Polygons {
		for _, idx := range poly {
			if idx < 0 || idx >= len(ids) {
				return errors.Errorf("polygon references point %d out of range", idx)
			}
			vi := m.resolveVertex(ids[idx])
			li, ok := localIdx[vi]
			if !ok {
				li = len(locals)
				localIdx[vi] = li
				locals = append(locals, vi)
			}
			polys[pi] = append(polys[pi], li)
		}
	}

	addSeg := func(a, b int32) {
		if a == b {
			return
		}
		key := segPairKey(a, b)
		if _, ok := segByPair[key]; ok {
			return
		}
		id := m.newShell(kindSubsegment, a, b, noVertex)
		m.shell(id).mark = f.Mark
		segByPair[key] = id
	}
	for _, poly := range polys {
		n := len(poly)
		if n < 2 {
			continue
		}
		limit := n
		if n == 2 {
			limit = 1
		}
		for i := 0; i < limit; i++ {
			addSeg(locals[poly[i]], locals[poly[(i+1)%n]])
		}
	}
	if len(locals) < 3 {
		return nil
	}

	// Facet plane by Newell's method over all polygons.
	var normal r3.Vector
	for _, poly := range polys {
		for i := range poly {
			p := m.pt(locals[poly[i]])
			q := m.pt(locals[poly[(i+1)%len(poly)]])
			normal.X += (p.Y - q.Y) * (p.Z + q.Z)
			normal.Y += (p.Z - q.Z) * (p.X + q.X)
			normal.Z += (p.X - q.X) * (p.Y + q.Y)
		}
	}
	if normal.Norm() == 0 {
		return errors.New("facet has no well-defined plane")
	}
	nrm := normal.Normalize()
	origin := m.pt(locals[0])
	// Pick the axis least aligned with the normal as the basis seed.
	ref := r3.Vector{X: 1}
	ax, ay, az := math.Abs(nrm.X), math.Abs(nrm.Y), math.Abs(nrm.Z)
	if ay <= ax && ay <= az {
		ref = r3.Vector{Y: 1}
	} else if az <= ax && az <= ay {
		ref = r3.Vector{Z: 1}
	}
	u := nrm.Cross(ref).Normalize()
	v := nrm.Cross(u)
	m.liftPoints[fi] = origin.Add(nrm.Mul(m.longest))

	project := func(p r3.Vector) [2]float64 {
		d := p.Sub(origin)
		return [2]float64{d.Dot(u), d.Dot(v)}
	}
	pts2 := make([][2]float64, len(locals))
	for i, vi := range locals {
		pts2[i] = project(m.pt(vi))
	}

	tri := newPlanarTri(pts2)
	for i := range pts2 {
		if err := tri.insert(i); err != nil {
			return err
		}
	}
	for _, poly := range polys {
		n := len(poly)
		if n < 2 {
			continue
		}
		limit := n
		if n == 2 {
			limit = 1
		}
		for i := 0; i < limit; i++ {
			a, b := poly[i], poly[(i+1)%n]
			if a == b {
				continue
			}
			if err := tri.insertConstraint(a, b); err != nil {
				return err
			}
		}
	}
	holes2 := make([][2]float64, len(f.Holes))
	for i, h := range f.Holes {
		holes2[i] = project(h)
	}
	cells, err := tri.interiorCells(holes2)
	if err != nil {
		return err
	}

	open := map[[2]int32]ShellEdge{}
	for _, cv := range cells {
		a, b, c := locals[cv[0]], locals[cv[1]], locals[cv[2]]
		sh := m.newShell(kindSubface, a, b, c)
		s := m.shell(sh)
		s.mark = f.Mark
		s.facet = fi
		corners := [3]int32{a, b, c}
		for e := 0; e < 3; e++ {
			x, y := corners[e], corners[(e+1)%3]
			se, _ := m.findShellEdge(sh, x, y)
			key := segPairKey(x, y)
			if segID, ok := segByPair[key]; ok {
				m.ssbond(se, ShellEdge{sh: segID})
				segFaces[segID] = append(segFaces[segID], se)
				continue
			}
			if other, ok := open[key]; ok {
				m.sbond(se, other)
				delete(open, key)
			} else {
				open[key] = se
			}
		}
	}
	return nil
}

// unifySegmentRings links the subfaces meeting at each subsegment into a
// face ring ordered by angle around the segment axis, so that walking
// spivot from any of them enumerates the facets through that segment in
// rotational order.
func (m *Mesh) unifySegmentRings(segFaces map[int32][]ShellEdge) {
	for segID, edges := range segFaces {
		switch len(edges) {
		case 0:
		case 1:
			m.sbond1(edges[0], edges[0])
		default:
			s := m.shell(segID)
			up := m.pt(s.v[0])
			axis := m.pt(s.v[1]).Sub(up)
			if axis.Norm() == 0 {
				continue
			}
			axis = axis.Normalize()
			d0 := m.pt(m.sapex(edges[0])).Sub(up)
			b1 := d0.Sub(axis.Mul(d0.Dot(axis)))
			if b1.Norm() == 0 {
				continue
			}
			b1 = b1.Normalize()
			b2 := axis.Cross(b1)
			angle := func(se ShellEdge) float64 {
				d := m.pt(m.sapex(se)).Sub(up)
				p := d.Sub(axis.Mul(d.Dot(axis)))
				return math.Atan2(p.Dot(b2), p.Dot(b1))
			}
			sort.Slice(edges, func(i, j int) bool { return angle(edges[i]) < angle(edges[j]) })
			for i := range edges {
				m.sbond1(edges[i], edges[(i+1)%len(edges)])
			}
		}
	}
}

// classifyFacetVertices marks input vertices that lie on a facet but on no
// segment.
func (m *Mesh) classifyFacetVertices() {
	onSeg := map[int32]bool{}
	m.shells.traverse(func(_ int32, s *shell) bool {
		if s.kind == kindSubsegment && !s.dead() {
			onSeg[s.v[0]] = true
			onSeg[s.v[1]] = true
		}
		return true
	})
	m.shells.traverse(func(_ int32, s *shell) bool {
		if s.kind == kindSubface && !s.dead() {
			for _, v := range s.v {
				if v >= 0 && m.vert(v).typ == InputVertex && !onSeg[v] {
					m.vert(v).typ = FacetVertex
				}
			}
		}
		return true
	})
}
