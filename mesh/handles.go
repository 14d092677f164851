package mesh

// TetFace is a handle naming one directed edge of one face of a
// tetrahedron. Handles are values: they never own or free the elements
// they name.
type TetFace struct {
	tet int32
	loc int8
	ver int8
}

// ShellEdge is a handle naming one directed edge of a subface, or one of
// the two orientations of a subsegment (ver 0 or 1).
type ShellEdge struct {
	sh  int32
	ver int8
}

// hull is the outer-space handle every dissolved face bonds to.
var hull = TetFace{}

// noShell is the omnipresent-subface handle.
var noShell = ShellEdge{}

func (t TetFace) isHull() bool            { return t.tet == 0 }
func (s ShellEdge) isNone() bool          { return s.sh == 0 }
func (t TetFace) sameFace(o TetFace) bool { return t.tet == o.tet && t.loc == o.loc }

// --- Tetrahedron primitives ----------------------------------------------

// sym returns the handle of the same face seen from the adjoining
// tetrahedron. The edge version is not preserved.
func (m *Mesh) sym(t TetFace) TetFace {
	e := m.tet(t.tet).nbr[t.loc]
	return TetFace{tet: e.tet(), loc: e.loc()}
}

// bond glues two tetrahedra at their shared face. Either side may be the
// outer-space sentinel.
func (m *Mesh) bond(t1, t2 TetFace) {
	m.tet(t1.tet).nbr[t1.loc] = encodeTet(t2.tet, t2.loc)
	m.tet(t2.tet).nbr[t2.loc] = encodeTet(t1.tet, t1.loc)
}

// dissolve detaches the neighbor at t, leaving t bonded to outer space.
func (m *Mesh) dissolve(t TetFace) {
	m.tet(t.tet).nbr[t.loc] = 0
}

func (m *Mesh) org(t TetFace) int32  { return m.tet(t.tet).v[orgSlot(t.loc, t.ver)] }
func (m *Mesh) dest(t TetFace) int32 { return m.tet(t.tet).v[destSlot(t.loc, t.ver)] }
func (m *Mesh) apex(t TetFace) int32 { return m.tet(t.tet).v[apexSlot(t.loc, t.ver)] }
func (m *Mesh) oppo(t TetFace) int32 { return m.tet(t.tet).v[oppoSlot(t.loc)] }

func (m *Mesh) setOrg(t TetFace, v int32)  { m.tet(t.tet).v[orgSlot(t.loc, t.ver)] = v }
func (m *Mesh) setDest(t TetFace, v int32) { m.tet(t.tet).v[destSlot(t.loc, t.ver)] = v }
func (m *Mesh) setApex(t TetFace, v int32) { m.tet(t.tet).v[apexSlot(t.loc, t.ver)] = v }
func (m *Mesh) setOppo(t TetFace, v int32) { m.tet(t.tet).v[oppoSlot(t.loc)] = v }

// esym reverses the directed edge within the same face.
func esym(t TetFace) TetFace {
	t.ver ^= 1
	return t
}

// enext advances to the next directed edge of the same face.
func enext(t TetFace) TetFace {
	t.ver = edgeNextVer(t.ver)
	return t
}

// enext2 retreats to the previous directed edge of the same face.
func enext2(t TetFace) TetFace {
	t.ver = edgePrevVer(t.ver)
	return t
}

// fnext returns the successor of t in the face ring around t's directed
// edge. The second result is false when the ring leaves the mesh through a
// hull face; the returned handle is then the outer-space sentinel.
func (m *Mesh) fnext(t TetFace) (TetFace, bool) {
	if nl, nv := ringNext(t.loc, t.ver); nl >= 0 {
		return TetFace{tet: t.tet, loc: nl, ver: nv}, true
	}
	s := m.sym(t)
	if s.isHull() {
		return s, false
	}
	torg := m.org(t)
	for i := 0; i < 3 && m.org(s) != torg; i++ {
		s = enext(s)
	}
	nl, nv := ringNext(s.loc, s.ver)
	return TetFace{tet: s.tet, loc: nl, ver: nv}, true
}

func (m *Mesh) infect(t TetFace)   { m.tet(t.tet).flags |= flagInfected }
func (m *Mesh) uninfect(t TetFace) { m.tet(t.tet).flags &^= flagInfected }
func (m *Mesh) infected(t TetFace) bool {
	return m.tet(t.tet).flags&flagInfected != 0
}

// --- Subface/subsegment primitives ---------------------------------------

func (m *Mesh) sorg(s ShellEdge) int32 {
	sh := m.shell(s.sh)
	i := s.ver >> 1
	if s.ver&1 == 0 {
		return sh.v[i]
	}
	return sh.v[plus1Mod3[i]]
}

func (m *Mesh) sdest(s ShellEdge) int32 {
	sh := m.shell(s.sh)
	i := s.ver >> 1
	if s.ver&1 == 0 {
		return sh.v[plus1Mod3[i]]
	}
	return sh.v[i]
}

func (m *Mesh) sapex(s ShellEdge) int32 {
	return m.shell(s.sh).v[minus1Mod3[s.ver>>1]]
}

func (m *Mesh) setSOrg(s ShellEdge, v int32) {
	sh := m.shell(s.sh)
	i := s.ver >> 1
	if s.ver&1 == 0 {
		sh.v[i] = v
	} else {
		sh.v[plus1Mod3[i]] = v
	}
}

func (m *Mesh) setSDest(s ShellEdge, v int32) {
	sh := m.shell(s.sh)
	i := s.ver >> 1
	if s.ver&1 == 0 {
		sh.v[plus1Mod3[i]] = v
	} else {
		sh.v[i] = v
	}
}

func (m *Mesh) setSApex(s ShellEdge, v int32) {
	m.shell(s.sh).v[minus1Mod3[s.ver>>1]] = v
}

// sesym reverses the directed edge of a shell handle.
func sesym(s ShellEdge) ShellEdge {
	s.ver ^= 1
	return s
}

// senext advances one edge within the shell's edge 3-cycle, keeping the
// traversal direction.
func senext(s ShellEdge) ShellEdge {
	i := s.ver >> 1
	if s.ver&1 == 0 {
		s.ver = plus1Mod3[i] << 1
	} else {
		s.ver = minus1Mod3[i]<<1 | 1
	}
	return s
}

func senext2(s ShellEdge) ShellEdge {
	return senext(senext(s))
}

// spivot returns the next shell in the face ring at s's edge.
func (m *Mesh) spivot(s ShellEdge) ShellEdge {
	e := m.shell(s.sh).adj[s.ver>>1]
	return ShellEdge{sh: e.sh(), ver: e.ver()}
}

// sbond glues two shells reciprocally at their shared edge.
func (m *Mesh) sbond(s1, s2 ShellEdge) {
	m.shell(s1.sh).adj[s1.ver>>1] = encodeShell(s2.sh, s2.ver)
	m.shell(s2.sh).adj[s2.ver>>1] = encodeShell(s1.sh, s1.ver)
}

// sbond1 records s2 as the ring successor of s1 without the reverse link;
// face rings are single-linked cycles.
func (m *Mesh) sbond1(s1, s2 ShellEdge) {
	m.shell(s1.sh).adj[s1.ver>>1] = encodeShell(s2.sh, s2.ver)
}

func (m *Mesh) sdissolve(s ShellEdge) {
	m.shell(s.sh).adj[s.ver>>1] = 0
}

// --- Tetrahedron <-> subface primitives ----------------------------------

// tspivot returns the subface attached at face t, or the omnipresent
// sentinel.
func (m *Mesh) tspivot(t TetFace) ShellEdge {
	e := m.tet(t.tet).sub[t.loc]
	return ShellEdge{sh: e.sh(), ver: e.ver()}
}

// stpivot returns the tetrahedron on the side of the subface the handle
// faces, or the outer-space sentinel.
func (m *Mesh) stpivot(s ShellEdge) TetFace {
	e := m.shell(s.sh).tet[s.ver&1]
	return TetFace{tet: e.tet(), loc: e.loc()}
}

// tsbond attaches a subface at face t. The handles must name the same
// triangle.
func (m *Mesh) tsbond(t TetFace, s ShellEdge) {
	m.tet(t.tet).sub[t.loc] = encodeShell(s.sh, s.ver)
	m.shell(s.sh).tet[s.ver&1] = encodeTet(t.tet, t.loc)
}

func (m *Mesh) tsdissolve(t TetFace)   { m.tet(t.tet).sub[t.loc] = 0 }
func (m *Mesh) stdissolve(s ShellEdge) { m.shell(s.sh).tet[s.ver&1] = 0 }

// --- Subface <-> subsegment primitives -----------------------------------

// sspivot returns the subsegment at s's edge, or the sentinel.
func (m *Mesh) sspivot(s ShellEdge) ShellEdge {
	e := m.shell(s.sh).seg[s.ver>>1]
	return ShellEdge{sh: e.sh(), ver: e.ver()}
}

// ssbond attaches a subsegment at s's edge and records s as one subface of
// the segment's face ring.
func (m *Mesh) ssbond(s, seg ShellEdge) {
	m.shell(s.sh).seg[s.ver>>1] = encodeShell(seg.sh, seg.ver)
	m.shell(seg.sh).adj[2] = encodeShell(s.sh, s.ver)
}

func (m *Mesh) ssdissolve(s ShellEdge) { m.shell(s.sh).seg[s.ver>>1] = 0 }

// segRingFace returns one subface of the face ring around a subsegment.
func (m *Mesh) segRingFace(seg ShellEdge) ShellEdge {
	e := m.shell(seg.sh).adj[2]
	return ShellEdge{sh: e.sh(), ver: e.ver()}
}

// segNbr returns the collinear neighbor subsegment at the handle's origin
// endpoint, or the sentinel if the origin is an endpoint of the whole
// input segment.
func (m *Mesh) segNbr(seg ShellEdge) ShellEdge {
	e := m.shell(seg.sh).adj[seg.ver&1]
	return ShellEdge{sh: e.sh(), ver: e.ver()}
}

func (m *Mesh) setSegNbr(seg, nbr ShellEdge) {
	m.shell(seg.sh).adj[seg.ver&1] = encodeShell(nbr.sh, nbr.ver)
}

// --- Cross-layer searches ------------------------------------------------

// tssPivot finds the subsegment at the directed edge of t by scanning the
// subfaces attached around the edge's face ring. Returns the sentinel when
// the edge carries no subsegment.
func (m *Mesh) tssPivot(t TetFace) ShellEdge {
	eo, ed := m.org(t), m.dest(t)
	spin := t
	for {
		sub := m.tspivot(spin)
		if !sub.isNone() {
			if se, ok := m.findShellEdge(sub.sh, eo, ed); ok {
				seg := m.sspivot(se)
				if !seg.isNone() {
					return seg
				}
			}
		}
		next, ok := m.fnext(spin)
		if !ok {
			break
		}
		spin = next
		if spin.sameFace(t) {
			return noShell
		}
	}
	// The ring is open at the hull; walk the other way from the start.
	spin = esym(t)
	for {
		next, ok := m.fnext(spin)
		if !ok {
			return noShell
		}
		spin = next
		sub := m.tspivot(spin)
		if !sub.isNone() {
			if se, ok := m.findShellEdge(sub.sh, eo, ed); ok {
				seg := m.sspivot(se)
				if !seg.isNone() {
					return seg
				}
			}
		}
	}
}

// sstPivot finds a tetrahedron whose edge coincides with the subsegment,
// through the segment's subface ring.
func (m *Mesh) sstPivot(seg ShellEdge) (TetFace, bool) {
	sub := m.segRingFace(seg)
	if sub.isNone() {
		return hull, false
	}
	se, ok := m.findShellEdge(sub.sh, m.sorg(seg), m.sdest(seg))
	if !ok {
		return hull, false
	}
	t := m.stpivot(se)
	if t.isHull() {
		t = m.stpivot(sesym(se))
	}
	if t.isHull() {
		return hull, false
	}
	if !m.findEdge(&t, m.sorg(seg), m.sdest(seg)) {
		return hull, false
	}
	return t, true
}

// --- Handle adjustment and searches --------------------------------------

// findOrgVer rotates t's edge version (keeping the face) until its origin
// is v. Reports whether v is a corner of the face.
func (m *Mesh) findOrgVer(t *TetFace, v int32) bool {
	for i := 0; i < 3; i++ {
		if m.org(*t) == v {
			return true
		}
		t.ver = edgeNextVer(t.ver)
	}
	return false
}

// findEdge positions t on the directed edge (eorg, edest), searching all
// faces of t's tetrahedron. Reports whether the edge belongs to it.
func (m *Mesh) findEdge(t *TetFace, eorg, edest int32) bool {
	for loc := int8(0); loc < 4; loc++ {
		for ver := int8(0); ver < 6; ver++ {
			cand := TetFace{tet: t.tet, loc: loc, ver: ver}
			if m.org(cand) == eorg && m.dest(cand) == edest {
				*t = cand
				return true
			}
		}
	}
	return false
}

// faceOf positions a handle on the face (a, b, c) of tetrahedron tet, with
// org a and dest b. Reports whether the tetrahedron has that face.
func (m *Mesh) faceOf(tet int32, a, b, c int32) (TetFace, bool) {
	t := TetFace{tet: tet}
	if !m.findEdge(&t, a, b) {
		return hull, false
	}
	if m.apex(t) == c {
		return t, true
	}
	// The edge belongs to two faces; try the other one.
	alt, ok := m.fnext(t)
	if ok && m.apex(alt) == c && alt.tet == tet {
		return alt, true
	}
	for loc := int8(0); loc < 4; loc++ {
		for ver := int8(0); ver < 6; ver++ {
			cand := TetFace{tet: tet, loc: loc, ver: ver}
			if m.org(cand) == a && m.dest(cand) == b && m.apex(cand) == c {
				return cand, true
			}
		}
	}
	return hull, false
}

// findShellEdge positions a shell handle on the directed edge (eorg, edest).
func (m *Mesh) findShellEdge(sh int32, eorg, edest int32) (ShellEdge, bool) {
	for ver := int8(0); ver < 6; ver++ {
		s := ShellEdge{sh: sh, ver: ver}
		if m.sorg(s) == eorg && m.sdest(s) == edest {
			return s, true
		}
	}
	return noShell, false
}

// tetHasVertex reports whether v is a corner of tetrahedron tet.
func (m *Mesh) tetHasVertex(tet int32, v int32) bool {
	for _, c := range m.tet(tet).v {
		if c == v {
			return true
		}
	}
	return false
}

// vertexTet returns a live tetrahedron incident to v, falling back to a
// scan when the cached backreference went stale.
func (m *Mesh) vertexTet(v int32) (TetFace, bool) {
	cached := m.vert(v).tet
	if cached != 0 && !m.tetDead(cached) && m.tetHasVertex(cached, v) {
		return TetFace{tet: cached}, true
	}
	found := hull
	m.tets.traverse(func(i int32, t *tetra) bool {
		if m.tetHasVertex(i, v) {
			found = TetFace{tet: i}
			return false
		}
		return true
	})
	if found.isHull() {
		return hull, false
	}
	m.vert(v).tet = found.tet
	return found, true
}
