package mesh

import (
	"math"

	"go.viam.com/tetmesh/predicates"
)

const cavityGrowLimit = 4096

// recoverRegionByCavity exposes the missing region's triangles by cavity
// retriangulation: it collects the cells crossing the region, splits the
// cavity at the facet plane into an upper and a lower piece, refills each
// piece by coning from a cavity vertex that sees the whole of its piece,
// and substitutes the new cells for the old in one replaceTets call. The
// candidate cells are validated against the cavity boundary and volume
// before any cell is touched, so a failure leaves the mesh unchanged and
// reports false.
func (m *Mesh) recoverRegionByCavity(region []int32) bool {
	s0 := m.shell(region[0])
	pa, pb, pc := m.pt(s0.v[0]), m.pt(s0.v[1]), m.pt(s0.v[2])

	// sign < 0 is the upper side of the facet plane.
	sign := func(vi int32) int {
		return predicates.Orient3D(pa, pb, pc, m.pt(vi))
	}

	tris := m.regionTriples(region)
	cavity := m.collectCavity(tris, sign)
	if len(cavity) == 0 || len(cavity) > cavityGrowLimit {
		return false
	}
	inCavity := map[int32]bool{}
	for _, ti := range cavity {
		inCavity[ti] = true
	}

	// Internal cavity faces must carry no subface; boundary subfaces move
	// over with their faces during the replacement.
	for _, ti := range cavity {
		t := m.tet(ti)
		for loc := int8(0); loc < 4; loc++ {
			if inCavity[t.nbr[loc].tet()] && !m.tspivot(TetFace{tet: ti, loc: loc}).isNone() {
				return false
			}
		}
	}

	upFaces, downFaces, ok := m.splitCavityBoundary(cavity, inCavity, sign)
	if !ok {
		return false
	}
	apexUp, ok := m.pickCavityApex(cavity, upFaces, tris, sign, true)
	if !ok {
		return false
	}
	apexDown, ok := m.pickCavityApex(cavity, downFaces, tris, sign, false)
	if !ok {
		return false
	}

	newTuples := m.coneCavity(upFaces, tris, apexUp)
	newTuples = append(newTuples, m.coneCavity(downFaces, tris, apexDown)...)
	if !m.validateCavityFill(cavity, inCavity, tris, newTuples) {
		return false
	}

	if _, err := m.replaceTets(cavity, newTuples); err != nil {
		return false
	}
	for _, sh := range region {
		if m.subfacePresent(sh) {
			m.attachSubface(sh)
		}
	}
	return true
}

// regionTriples lists the corner triples of the region's still-missing
// triangles.
func (m *Mesh) regionTriples(region []int32) [][3]int32 {
	var tris [][3]int32
	for _, sh := range region {
		if m.shellDead(sh) || m.subfacePresent(sh) {
			continue
		}
		s := m.shell(sh)
		tris = append(tris, [3]int32{s.v[0], s.v[1], s.v[2]})
	}
	return tris
}

// edgeCrossesTriangle reports whether the open segment (u, w) pierces the
// open triangle (a, b, c). The endpoints must not be triangle corners.
func (m *Mesh) edgeCrossesTriangle(u, w int32, tri [3]int32) bool {
	for _, c := range tri {
		if u == c || w == c {
			return false
		}
	}
	pu, pw := m.pt(u), m.pt(w)
	qa, qb, qc := m.pt(tri[0]), m.pt(tri[1]), m.pt(tri[2])
	s1 := predicates.Orient3D(qa, qb, qc, pu)
	s2 := predicates.Orient3D(qa, qb, qc, pw)
	if s1 == 0 || s2 == 0 || s1 == s2 {
		return false
	}
	t1 := predicates.Orient3D(pu, pw, qa, qb)
	t2 := predicates.Orient3D(pu, pw, qb, qc)
	t3 := predicates.Orient3D(pu, pw, qc, qa)
	return t1 != 0 && t1 == t2 && t2 == t3
}

// collectCavity gathers the cells with an edge crossing a region triangle
// and grows the set across shared faces that straddle the facet plane
// within the region, so that no cavity boundary face cuts the region.
func (m *Mesh) collectCavity(tris [][3]int32, sign func(int32) int) []int32 {
	var cavity []int32
	inCavity := map[int32]bool{}
	add := func(ti int32) {
		if !inCavity[ti] {
			inCavity[ti] = true
			cavity = append(cavity, ti)
		}
	}
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		for _, ep := range tetEdgePairs {
			u, w := t.v[ep[0]], t.v[ep[1]]
			for _, tri := range tris {
				if m.edgeCrossesTriangle(u, w, tri) {
					add(ti)
					return true
				}
			}
		}
		return true
	})

	for scan := 0; scan < len(cavity) && len(cavity) <= cavityGrowLimit; scan++ {
		t := m.tet(cavity[scan])
		for loc := int8(0); loc < 4; loc++ {
			n := t.nbr[loc].tet()
			if n == 0 || inCavity[n] || m.tetDead(n) {
				continue
			}
			f := TetFace{tet: cavity[scan], loc: loc}
			if m.faceCutsRegion(f, tris, sign) {
				add(n)
			}
		}
	}
	return cavity
}

// faceCutsRegion reports whether the face straddles the facet plane with
// the crossing segment inside the region.
func (m *Mesh) faceCutsRegion(f TetFace, tris [][3]int32, sign func(int32) int) bool {
	corners := [3]int32{m.org(f), m.dest(f), m.apex(f)}
	var signs [3]int
	neg, pos := false, false
	for i, c := range corners {
		signs[i] = sign(c)
		neg = neg || signs[i] < 0
		pos = pos || signs[i] > 0
	}
	if !neg || !pos {
		return false
	}
	for _, tri := range tris {
		for e := 0; e < 3; e++ {
			if m.edgeCrossesTriangle(corners[e], corners[(e+1)%3], tri) {
				return true
			}
		}
	}
	return false
}

// splitCavityBoundary classifies the cavity's boundary faces by plane
// side. A boundary face straddling the plane or lying in it means the
// cavity does not split cleanly and the recovery is abandoned.
func (m *Mesh) splitCavityBoundary(cavity []int32, inCavity map[int32]bool, sign func(int32) int) ([]TetFace, []TetFace, bool) {
	var up, down []TetFace
	for _, ti := range cavity {
		t := m.tet(ti)
		for loc := int8(0); loc < 4; loc++ {
			if inCavity[t.nbr[loc].tet()] {
				continue
			}
			f := TetFace{tet: ti, loc: loc}
			neg, pos := false, false
			for _, c := range [3]int32{m.org(f), m.dest(f), m.apex(f)} {
				switch s := sign(c); {
				case s < 0:
					neg = true
				case s > 0:
					pos = true
				}
			}
			switch {
			case neg && pos:
				return nil, nil, false
			case neg:
				up = append(up, f)
			case pos:
				down = append(down, f)
			default:
				return nil, nil, false
			}
		}
	}
	return up, down, len(up) > 0 && len(down) > 0
}

// pickCavityApex returns a cavity vertex on the requested side of the
// plane from which every boundary face of that piece and every region
// triangle is positively visible.
func (m *Mesh) pickCavityApex(cavity []int32, faces []TetFace, tris [][3]int32, sign func(int32) int, upper bool) (int32, bool) {
	var candidates []int32
	seen := map[int32]bool{}
	for _, ti := range cavity {
		for _, c := range m.tet(ti).v {
			if seen[c] {
				continue
			}
			seen[c] = true
			s := sign(c)
			if upper && s < 0 || !upper && s > 0 {
				candidates = append(candidates, c)
			}
		}
	}
	for _, x := range candidates {
		px := m.pt(x)
		good := true
		for _, f := range faces {
			o, d, a := m.org(f), m.dest(f), m.apex(f)
			if o == x || d == x || a == x {
				continue
			}
			if predicates.Orient3D(m.pt(o), m.pt(d), m.pt(a), px) >= 0 {
				good = false
				break
			}
		}
		if !good {
			continue
		}
		for _, tri := range tris {
			if predicates.Orient3D(m.pt(tri[0]), m.pt(tri[1]), m.pt(tri[2]), px) == 0 {
				good = false
				break
			}
		}
		if good {
			return x, true
		}
	}
	return 0, false
}

// coneCavity builds the tetrahedra joining the apex to the piece's
// boundary faces and to the region triangles, all positively oriented.
func (m *Mesh) coneCavity(faces []TetFace, tris [][3]int32, apex int32) [][4]int32 {
	px := m.pt(apex)
	var tuples [][4]int32
	for _, f := range faces {
		o, d, a := m.org(f), m.dest(f), m.apex(f)
		if o == apex || d == apex || a == apex {
			continue
		}
		tuples = append(tuples, [4]int32{o, d, a, apex})
	}
	for _, tri := range tris {
		a, b, c := tri[0], tri[1], tri[2]
		if predicates.Orient3D(m.pt(a), m.pt(b), m.pt(c), px) > 0 {
			a, b = b, a
		}
		tuples = append(tuples, [4]int32{a, b, c, apex})
	}
	return tuples
}

// validateCavityFill checks the candidate cells against the cavity before
// anything is modified: every cell positively oriented, every cavity
// vertex still referenced, the boundary face sets identical, each region
// triangle interior to the new set, and the volumes equal.
func (m *Mesh) validateCavityFill(cavity []int32, inCavity map[int32]bool, tris [][3]int32, newTuples [][4]int32) bool {
	oldVol := 0.0
	oldFaces := map[faceKey]int{}
	oldVerts := map[int32]bool{}
	for _, ti := range cavity {
		t := m.tet(ti)
		oldVol += math.Abs(tetVolume(m.pt(t.v[0]), m.pt(t.v[1]), m.pt(t.v[2]), m.pt(t.v[3])))
		for _, c := range t.v {
			oldVerts[c] = true
		}
		for loc := int8(0); loc < 4; loc++ {
			if inCavity[t.nbr[loc].tet()] {
				continue
			}
			f := TetFace{tet: ti, loc: loc}
			oldFaces[makeFaceKey(m.org(f), m.dest(f), m.apex(f))]++
		}
	}

	newVol := 0.0
	newFaces := map[faceKey]int{}
	newVerts := map[int32]bool{}
	for _, vs := range newTuples {
		qa, qb, qc, qd := m.pt(vs[0]), m.pt(vs[1]), m.pt(vs[2]), m.pt(vs[3])
		if predicates.Orient3D(qa, qb, qc, qd) >= 0 {
			return false
		}
		newVol += math.Abs(tetVolume(qa, qb, qc, qd))
		for _, c := range vs {
			newVerts[c] = true
		}
		faces := [4][3]int32{
			{vs[0], vs[1], vs[2]},
			{vs[0], vs[1], vs[3]},
			{vs[1], vs[2], vs[3]},
			{vs[2], vs[0], vs[3]},
		}
		for _, fc := range faces {
			newFaces[makeFaceKey(fc[0], fc[1], fc[2])]++
		}
	}

	for v := range oldVerts {
		if !newVerts[v] {
			return false
		}
	}
	for k, n := range oldFaces {
		if n != 1 || newFaces[k] != 1 {
			return false
		}
	}
	for _, tri := range tris {
		if newFaces[makeFaceKey(tri[0], tri[1], tri[2])] != 2 {
			return false
		}
	}
	for k, n := range newFaces {
		switch n {
		case 1:
			if oldFaces[k] != 1 {
				return false
			}
		case 2:
		default:
			return false
		}
	}

	tol := m.longest * m.longest * m.longest * m.opts.Epsilon
	return math.Abs(newVol-oldVol) <= tol+1e-12
}
