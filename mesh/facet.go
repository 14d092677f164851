package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"
)

const facetRecoveryPasses = 128

// tetEdgePairs lists the corner index pairs of a tetrahedron's six edges.
var tetEdgePairs = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// recoverSubfaces makes every subface appear as a face of the
// tetrahedralization. Subfaces already present are bonded to their cells;
// missing ones are recovered by removing the crossing edge with a flip
// when the edge ring permits it, by retriangulating the cavity of cells
// crossing the region when one exists, and as a last resort by inserting
// a Steiner point on the facet where the edge pierces it and splitting
// both the cells and the subface there.
func (m *Mesh) recoverSubfaces() error {
	q := &flipQueue{}
	for pass := 0; pass < facetRecoveryPasses; pass++ {
		missing := m.matchSubfaces()
		if len(missing) == 0 {
			m.logger.Debugw("facets recovered", "steinerPoints", m.steinerCount)
			return nil
		}
		progress := false
		for _, sh := range missing {
			if m.shellDead(sh) || m.subfacePresent(sh) {
				continue
			}
			ok, err := m.recoverOneSubface(sh, q)
			if err != nil {
				return errors.Wrapf(err, "recovering subface %d", sh)
			}
			progress = progress || ok
		}
		if !progress {
			return errors.Errorf("facet recovery stalled with %d subfaces missing", len(missing))
		}
	}
	return errors.New("facet recovery did not converge")
}

// matchSubfaces bonds every subface whose triangle exists in the
// tetrahedralization to its cells and returns the ones still missing.
func (m *Mesh) matchSubfaces() []int32 {
	var missing []int32
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.kind != kindSubface || s.dead() {
			return true
		}
		if m.subfacePresent(i) {
			m.attachSubface(i)
		} else {
			missing = append(missing, i)
		}
		return true
	})
	return missing
}

func (m *Mesh) subfacePresent(sh int32) bool {
	s := m.shell(sh)
	return len(m.findTetFacesByTriple(s.v[0], s.v[1], s.v[2])) > 0
}

// facetRegion collects the connected set of missing subfaces around sh
// within its facet, spreading across face rings but never across a
// subsegment. The whole region shares one supporting plane, so one
// crossing edge search can serve all of it.
func (m *Mesh) facetRegion(sh int32) []int32 {
	region := []int32{sh}
	seen := map[int32]bool{sh: true}
	stack := []int32{sh}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for ver := int8(0); ver < 6; ver += 2 {
			se := ShellEdge{sh: cur, ver: ver}
			if !m.sspivot(se).isNone() {
				continue
			}
			nb := m.spivot(se)
			if nb.isNone() || m.shellDead(nb.sh) || seen[nb.sh] {
				continue
			}
			if m.shell(nb.sh).kind != kindSubface || m.subfacePresent(nb.sh) {
				continue
			}
			seen[nb.sh] = true
			region = append(region, nb.sh)
			stack = append(stack, nb.sh)
		}
	}
	return region
}

// regionCrossing is one triangulation edge piercing a missing region.
type regionCrossing struct {
	u, w  int32     // edge endpoints, u above the facet plane
	at    r3.Vector // intersection with the facet plane
	tri   int32     // the region subface it pierces
	onTri bool
}

// findRegionCrossing scans the triangulation for an edge piercing one of
// the region's triangles.
func (m *Mesh) findRegionCrossing(region []int32) (regionCrossing, bool) {
	type tri struct {
		sh         int32
		a, b, c    int32
		pa, pb, pc r3.Vector
	}
	tris := make([]tri, 0, len(region))
	for _, sh := range region {
		s := m.shell(sh)
		tris = append(tris, tri{
			sh: sh, a: s.v[0], b: s.v[1], c: s.v[2],
			pa: m.pt(s.v[0]), pb: m.pt(s.v[1]), pc: m.pt(s.v[2]),
		})
	}
	var out regionCrossing
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if out.onTri || t.dead() || t.v[3] == noVertex {
			return true
		}
		for _, ep := range tetEdgePairs {
			u, w := t.v[ep[0]], t.v[ep[1]]
			for _, tr := range tris {
				if u == tr.a || u == tr.b || u == tr.c ||
					w == tr.a || w == tr.b || w == tr.c {
					continue
				}
				pu, pw := m.pt(u), m.pt(w)
				s1 := predicates.Orient3D(tr.pa, tr.pb, tr.pc, pu)
				s2 := predicates.Orient3D(tr.pa, tr.pb, tr.pc, pw)
				if s1 == 0 || s2 == 0 || s1 == s2 {
					continue
				}
				t1 := predicates.Orient3D(pu, pw, tr.pa, tr.pb)
				t2 := predicates.Orient3D(pu, pw, tr.pb, tr.pc)
				t3 := predicates.Orient3D(pu, pw, tr.pc, tr.pa)
				if t1 == 0 || t1 != t2 || t2 != t3 {
					continue
				}
				vu := tetVolume(tr.pa, tr.pb, tr.pc, pu)
				vw := tetVolume(tr.pa, tr.pb, tr.pc, pw)
				frac := 0.5
				if vu != vw {
					frac = vu / (vu - vw)
				}
				out = regionCrossing{
					u: u, w: w,
					at:    pu.Add(pw.Sub(pu).Mul(frac)),
					tri:   tr.sh,
					onTri: true,
				}
				return false
			}
		}
		return true
	})
	return out, out.onTri
}

// findRegionVertex scans for a mesh vertex lying on a region triangle but
// not at one of its corners. Such a vertex must become part of the facet
// triangulation before the facet can match the cells.
func (m *Mesh) findRegionVertex(region []int32) (int32, int32, bool) {
	tol := m.longest * m.opts.Epsilon
	found, onSh := int32(0), int32(0)
	ok := false
	m.verts.traverse(func(vi int32, v *vertex) bool {
		if v.dead() || v.typ == DuplicateVertex || v.typ == UnusedVertex {
			return true
		}
		for _, sh := range region {
			s := m.shell(sh)
			if vi == s.v[0] || vi == s.v[1] || vi == s.v[2] {
				continue
			}
			pa, pb, pc := m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2])
			n := faceNormal(pa, pb, pc)
			nl := n.Norm()
			if nl == 0 {
				continue
			}
			if v.loc.Sub(pa).Dot(n)/nl > tol || v.loc.Sub(pa).Dot(n)/nl < -tol {
				continue
			}
			if pointInTriangle(v.loc, pa, pb, pc, tol) {
				found, onSh, ok = vi, sh, true
				return false
			}
		}
		return true
	})
	return found, onSh, ok
}

// pointInTriangle tests p against the triangle (a, b, c), treating points
// within tol of an edge as inside.
func pointInTriangle(p, a, b, c r3.Vector, tol float64) bool {
	n := faceNormal(a, b, c)
	if n.Norm() == 0 {
		return false
	}
	corners := [3]r3.Vector{a, b, c}
	for i := 0; i < 3; i++ {
		e0, e1 := corners[i], corners[(i+1)%3]
		side := faceNormal(e0, e1, p).Dot(n)
		if side < 0 && p.Sub(segmentProject(p, e0, e1)).Norm() > tol {
			return false
		}
	}
	return true
}

// recoverOneSubface attempts one recovery step for the missing subface:
// absorb a stray vertex lying on its region, remove a crossing edge by a
// flip, or split the region at a new Steiner point. It reports whether the
// mesh changed.
func (m *Mesh) recoverOneSubface(sh int32, q *flipQueue) (bool, error) {
	region := m.facetRegion(sh)

	if vi, onSh, ok := m.findRegionVertex(region); ok {
		if err := m.splitRegionAt(onSh, region, vi); err != nil {
			return false, err
		}
		return true, nil
	}

	cross, ok := m.findRegionCrossing(region)
	if !ok {
		// No edge pierces the region; the mismatch is in-plane, as when
		// the triangulation picked the other diagonal of a planar quad.
		if fixed, err := m.recoverCoplanarEdges(region, q); err != nil || fixed {
			return fixed, err
		}
		return m.stirRegionEdges(region, q)
	}

	if removed, err := m.tryRemoveEdge(cross.u, cross.w, q); err != nil {
		return false, err
	} else if removed {
		return true, nil
	}

	if m.recoverRegionByCavity(region) {
		return true, nil
	}

	s := m.shell(sh)
	vi := m.newVertex(cross.at, nil, s.mark, FreeSubVertex)
	search := m.recent
	res, err := m.insertSite(vi, &search, false, q, nil)
	if err != nil {
		return false, err
	}
	target := vi
	switch res {
	case siteDuplicate:
		target = m.resolveVertex(vi)
		m.killVertex(vi)
	case siteOutside:
		m.killVertex(vi)
		return false, errors.New("facet piercing point located outside the hull")
	default:
		m.steinerCount++
	}
	if _, err := m.flipLoop(q, nil); err != nil {
		return false, err
	}
	if err := m.splitRegionAt(cross.tri, region, target); err != nil {
		return false, err
	}
	return true, nil
}

// recoverCoplanarEdges looks for a subface edge the triangulation lacks
// because a coplanar triangulation edge crosses it, and rotates that
// diagonal away with a planar flip.
func (m *Mesh) recoverCoplanarEdges(region []int32, q *flipQueue) (bool, error) {
	for _, sh := range region {
		s := m.shell(sh)
		pa, pb, pc := m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2])
		lift := pa.Add(faceNormal(pa, pb, pc).Normalize().Mul(m.longest))
		if s.facet >= 0 && int(s.facet) < len(m.liftPoints) {
			lift = m.liftPoints[s.facet]
		}
		for e := 0; e < 3; e++ {
			x, y := s.v[e], s.v[(e+1)%3]
			if _, ok := m.findTetEdge(x, y); ok {
				continue
			}
			u, w, found := m.findCoplanarCrossing(x, y, pa, pb, pc, lift)
			if !found {
				continue
			}
			removed, err := m.tryRotateDiagonal(u, w, q)
			if err != nil {
				return false, err
			}
			if removed {
				return true, nil
			}
		}
	}
	return false, nil
}

// findCoplanarCrossing scans for a triangulation edge lying in the plane
// of (pa, pb, pc) that strictly crosses the segment (x, y) within that
// plane, judged against the facet's lift point.
func (m *Mesh) findCoplanarCrossing(x, y int32, pa, pb, pc, lift r3.Vector) (int32, int32, bool) {
	px, py := m.pt(x), m.pt(y)
	ru, rw := int32(0), int32(0)
	found := false
	m.tets.traverse(func(_ int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		for _, ep := range tetEdgePairs {
			u, w := t.v[ep[0]], t.v[ep[1]]
			if u == x || u == y || w == x || w == y {
				continue
			}
			pu, pw := m.pt(u), m.pt(w)
			if predicates.Orient3D(pa, pb, pc, pu) != 0 ||
				predicates.Orient3D(pa, pb, pc, pw) != 0 {
				continue
			}
			s1 := predicates.Orient3D(pu, pw, px, lift)
			s2 := predicates.Orient3D(pu, pw, py, lift)
			t1 := predicates.Orient3D(px, py, pu, lift)
			t2 := predicates.Orient3D(px, py, pw, lift)
			if s1 != 0 && s2 != 0 && s1 != s2 && t1 != 0 && t2 != 0 && t1 != t2 {
				ru, rw, found = u, w, true
				return false
			}
		}
		return true
	})
	return ru, rw, found
}

// tryRotateDiagonal removes the coplanar edge (u, w) with a planar T22 or
// T44 flip found by categorizing the faces around it.
func (m *Mesh) tryRotateDiagonal(u, w int32, q *flipQueue) (bool, error) {
	t, ok := m.findTetEdge(u, w)
	if !ok || !m.tssPivot(t).isNone() {
		return false, nil
	}
	var faces []TetFace
	addFace := func(f TetFace) {
		for _, g := range faces {
			if g.tet == f.tet && g.loc == f.loc {
				return
			}
		}
		faces = append(faces, f)
	}
	addFace(t)
	spin := t
	open := false
	for i := 0; i < ringGuard; i++ {
		next, okSpin := m.fnext(spin)
		if !okSpin {
			open = true
			break
		}
		spin = next
		if spin.tet == t.tet && spin.loc == t.loc {
			break
		}
		addFace(spin)
	}
	if open {
		spin = esym(t)
		for i := 0; i < ringGuard; i++ {
			next, okSpin := m.fnext(spin)
			if !okSpin {
				break
			}
			spin = next
			addFace(spin)
		}
	}
	for _, f := range faces {
		ft, pos := m.categorize(f)
		if ft != flipT22 && ft != flipT44 {
			continue
		}
		eo, ed := m.org(pos), m.dest(pos)
		if !(eo == u && ed == w || eo == w && ed == u) {
			continue
		}
		var err error
		if ft == flipT22 {
			err = m.flip22(pos, q, nil)
		} else {
			err = m.flip44(pos, q, nil)
		}
		if err != nil {
			return false, err
		}
		_, err = m.flipLoop(q, nil)
		return true, err
	}
	return false, nil
}

// tryRemoveEdge removes the triangulation edge (u, w) with an edge flip
// when its ring holds exactly three cells, carries no boundary elements,
// and the replacement cells are well oriented.
func (m *Mesh) tryRemoveEdge(u, w int32, q *flipQueue) (bool, error) {
	t, ok := m.findTetEdge(u, w)
	if !ok {
		return false, nil
	}
	if !m.tssPivot(t).isNone() {
		return false, nil
	}
	cells, subs := m.edgeRing(t)
	if len(cells) != 3 || len(subs) > 0 {
		return false, nil
	}
	var apexes []int32
	spin := t
	for i := 0; i < 3; i++ {
		if !seenVert(apexes, m.apex(spin)) {
			apexes = append(apexes, m.apex(spin))
		}
		next, okSpin := m.fnext(spin)
		if !okSpin {
			return false, nil
		}
		spin = next
		if !seenVert(apexes, m.apex(spin)) {
			apexes = append(apexes, m.apex(spin))
		}
	}
	if len(apexes) != 3 {
		return false, nil
	}
	pa, pb, pc := m.pt(apexes[0]), m.pt(apexes[1]), m.pt(apexes[2])
	su := predicates.Orient3D(pa, pb, pc, m.pt(u))
	sw := predicates.Orient3D(pa, pb, pc, m.pt(w))
	if su == 0 || sw == 0 || su == sw {
		return false, nil
	}
	if err := m.flip32(t, q, nil); err != nil {
		return false, err
	}
	_, err := m.flipLoop(q, nil)
	return true, err
}

// stirRegionEdges queues the faces of every cell touching the region's
// corners and runs the flip loop, hoping a legal flip restores one of the
// region triangles. Reports whether any flip happened.
func (m *Mesh) stirRegionEdges(region []int32, q *flipQueue) (bool, error) {
	queued := map[int32]bool{}
	for _, sh := range region {
		s := m.shell(sh)
		for _, vi := range s.v {
			start, ok := m.vertexTet(vi)
			if !ok {
				continue
			}
			stack := []int32{start.tet}
			for len(stack) > 0 {
				ti := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if queued[ti] || m.tetDead(ti) {
					continue
				}
				queued[ti] = true
				m.enqueueTetFaces(q, ti)
				t := m.tet(ti)
				for loc := int8(0); loc < 4; loc++ {
					n := t.nbr[loc].tet()
					if n != 0 && !m.tetDead(n) && !queued[n] && m.tetHasVertex(n, vi) {
						stack = append(stack, n)
					}
				}
			}
		}
	}
	flips, err := m.flipLoop(q, nil)
	return flips > 0, err
}

// splitRegionAt splits the region's shell structure at the mesh vertex
// vi, which lies on the region's plane. The subface containing it is
// split in its interior, or along an edge together with every subface and
// subsegment sharing that edge.
func (m *Mesh) splitRegionAt(hint int32, region []int32, vi int32) error {
	p := m.pt(vi)
	tol := m.longest * m.opts.Epsilon

	order := make([]int32, 0, len(region))
	order = append(order, hint)
	for _, sh := range region {
		if sh != hint {
			order = append(order, sh)
		}
	}
	for _, sh := range order {
		if m.shellDead(sh) {
			continue
		}
		s := m.shell(sh)
		if vi == s.v[0] || vi == s.v[1] || vi == s.v[2] {
			return nil // already a corner here
		}
		pa, pb, pc := m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2])
		if !pointInTriangle(p, pa, pb, pc, tol) {
			continue
		}
		corners := [3]int32{s.v[0], s.v[1], s.v[2]}
		pts := [3]r3.Vector{pa, pb, pc}
		for e := 0; e < 3; e++ {
			eo, ed := corners[e], corners[(e+1)%3]
			if p.Sub(segmentProject(p, pts[e], pts[(e+1)%3])).Norm() < tol {
				seg := ShellEdge{}
				if se, ok := m.findShellEdge(sh, eo, ed); ok {
					seg = m.sspivot(se)
				}
				ring := m.shellRingOrder(sh, eo, ed)
				return m.splitShellsAtEdge(eo, ed, vi, seg, ring, nil)
			}
		}
		m.splitSubfaceInterior(sh, vi)
		if m.vert(vi).typ == FreeVolVertex {
			m.vert(vi).typ = FreeSubVertex
		}
		return nil
	}
	return errors.Errorf("vertex %d lies on no triangle of its missing region", vi)
}
