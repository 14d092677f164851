package mesh

import "github.com/pkg/errors"

// Shell surgeries. Splits reuse the shell record they split so that every
// reference held by untouched neighbors (ring predecessors, subsegment
// backlinks, snapshots in the transaction log) stays valid across both the
// split and its undo.

const ringGuard = 10000

// replaceInRing substitutes repl for old in the single-linked face ring at
// old's edge. old's own successor link is left alone; only the predecessor
// is retargeted and repl linked forward.
func (m *Mesh) replaceInRing(old, repl ShellEdge) {
	nxt := m.spivot(old)
	if nxt.isNone() {
		return
	}
	if nxt.sh == old.sh && nxt.ver>>1 == old.ver>>1 {
		// Ring of one.
		m.sbond1(repl, repl)
		return
	}
	pred := nxt
	for i := 0; i < ringGuard; i++ {
		q := m.spivot(pred)
		if q.sh == old.sh && q.ver>>1 == old.ver>>1 {
			m.sbond1(pred, repl)
			m.sbond1(repl, nxt)
			return
		}
		if q.isNone() {
			break
		}
		pred = q
	}
	// Broken or open ring; link forward only.
	m.sbond1(repl, nxt)
}

// findTetFacesByTriple returns the up-to-two tetrahedron faces spanning the
// triangle (a, b, c), found by walking the star of a.
func (m *Mesh) findTetFacesByTriple(a, b, c int32) []TetFace {
	start, ok := m.vertexTet(a)
	if !ok {
		return nil
	}
	var out []TetFace
	visited := map[int32]bool{}
	stack := []int32{start.tet}
	for len(stack) > 0 && len(out) < 2 {
		ti := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[ti] || m.tetDead(ti) {
			continue
		}
		visited[ti] = true
		if m.tetHasVertex(ti, b) && m.tetHasVertex(ti, c) {
			if f, ok := m.faceOf(ti, a, b, c); ok {
				out = append(out, f)
			}
		}
		t := m.tet(ti)
		for loc := int8(0); loc < 4; loc++ {
			n := t.nbr[loc].tet()
			if n != 0 && !m.tetDead(n) && !visited[n] && m.tetHasVertex(n, a) {
				stack = append(stack, n)
			}
		}
	}
	return out
}

// attachSubface bonds the subface to the tetrahedra on both of its sides.
// The adjacent cells must already exist.
func (m *Mesh) attachSubface(sh int32) {
	s := m.shell(sh)
	s.tet = [2]tetEncoding{}
	for _, f := range m.findTetFacesByTriple(s.v[0], s.v[1], s.v[2]) {
		if se, ok := m.findShellEdge(sh, m.org(f), m.dest(f)); ok {
			m.tsbond(f, se)
		}
	}
}

// retargetSegNbr repoints the collinear-neighbor slot of nbr that refers to
// oldSh at repl.
func (m *Mesh) retargetSegNbr(nbr ShellEdge, oldSh int32, repl ShellEdge) {
	if nbr.isNone() {
		return
	}
	n := m.shell(nbr.sh)
	for i := 0; i < 2; i++ {
		if n.adj[i].sh() == oldSh {
			n.adj[i] = encodeShell(repl.sh, repl.ver)
		}
	}
}

// splitSubseg splits the subsegment at vi, reusing its record for the
// origin half and allocating the destination half. Returns the two halves
// and an undo that restores the original record.
func (m *Mesh) splitSubseg(seg int32, vi int32) (int32, int32, func() error) {
	s := m.shell(seg)
	snap := *s
	w := s.v[1]

	segB := m.newShell(kindSubsegment, vi, w, noVertex)
	sb := m.shell(segB)
	sb.mark = snap.mark
	sb.segType = snap.segType
	sb.adj[0] = encodeShell(seg, 0)
	sb.adj[1] = snap.adj[1]

	s.v[1] = vi
	s.adj[1] = encodeShell(segB, 0)

	nbrW := ShellEdge{sh: snap.adj[1].sh(), ver: snap.adj[1].ver()}
	m.retargetSegNbr(nbrW, seg, ShellEdge{sh: segB})

	undo := func() error {
		*m.shell(seg) = snap
		m.retargetSegNbr(nbrW, segB, ShellEdge{sh: seg})
		m.killShell(segB)
		return nil
	}
	return seg, segB, undo
}

// splitSubfaceEdge splits the subface along its (eo, ed) edge at vi,
// reusing its record for the eo half. The face ring and subsegment at the
// split edge itself are rebuilt by the caller across all subfaces sharing
// the edge. The adjacent cells must already be split when this is called.
func (m *Mesh) splitSubfaceEdge(sh int32, eo, ed, vi int32) (int32, func() error, error) {
	s := m.shell(sh)
	snap := *s
	se, ok := m.findShellEdge(sh, eo, ed)
	if !ok {
		return 0, nil, errors.Errorf("subface %d has no edge (%d %d)", sh, eo, ed)
	}
	z := m.sapex(se)

	h2 := m.newShell(kindSubface, vi, ed, z)
	s2 := m.shell(h2)
	s2.mark = snap.mark
	s2.facet = snap.facet

	// The (ed, z) edge moves to the new half with its ring and subsegment.
	oldEZ, _ := m.findShellEdge(sh, ed, z)
	newEZ, _ := m.findShellEdge(h2, ed, z)
	m.replaceInRing(oldEZ, newEZ)
	if segEZ := m.sspivot(oldEZ); !segEZ.isNone() {
		m.ssbond(newEZ, segEZ)
	}

	m.setSDest(se, vi) // record now spans (eo, vi, z)

	// The slot that held (ed, z) now holds (vi, z); clear its stale links
	// and join the halves there.
	m.sdissolve(oldEZ)
	m.ssdissolve(oldEZ)
	vz, _ := m.findShellEdge(sh, vi, z)
	zv, _ := m.findShellEdge(h2, z, vi)
	m.sbond(vz, zv)

	m.attachSubface(sh)
	m.attachSubface(h2)

	undo := func() error {
		*m.shell(sh) = snap
		restoredEZ := ShellEdge{sh: sh, ver: oldEZ.ver}
		m.replaceInRing(newEZ, restoredEZ)
		if segEZ := m.sspivot(restoredEZ); !segEZ.isNone() {
			m.ssbond(restoredEZ, segEZ)
		}
		m.attachSubface(sh)
		m.killShell(h2)
		return nil
	}
	return h2, undo, nil
}

// splitShellsAtEdge splits the subsegment and every subface at the edge
// (eo, ed) at vi, preserving face-ring order. Undo operations are pushed
// onto tx so that the segment is restored before the subfaces rebond to
// it. The adjacent cells, if the edge has any, must already be split.
func (m *Mesh) splitShellsAtEdge(eo, ed, vi int32, seg ShellEdge, ringSubs []int32, tx *txn) error {
	var ringOrder []int32
	if len(ringSubs) > 0 {
		ringOrder = m.shellRingOrder(ringSubs[0], eo, ed)
		if len(ringOrder) < len(ringSubs) {
			ringOrder = ringSubs
		}
	}

	var subUndos []func() error
	segEo, segEd := int32(0), int32(0)
	var undoSeg func() error
	if !seg.isNone() {
		var first, second int32
		first, second, undoSeg = m.splitSubseg(seg.sh, vi)
		segEo, segEd = first, second
		if m.shell(first).v[0] != eo {
			segEo, segEd = second, first
		}
		if m.vert(vi).typ == FreeVolVertex {
			m.vert(vi).typ = FreeSegVertex
		}
	} else if len(ringOrder) > 0 && m.vert(vi).typ == FreeVolVertex {
		m.vert(vi).typ = FreeSubVertex
	}

	halvesEo := make([]int32, 0, len(ringOrder))
	halvesEd := make([]int32, 0, len(ringOrder))
	hadRing := false
	if len(ringOrder) > 0 {
		if se0, ok := m.findShellEdge(ringOrder[0], eo, ed); ok {
			hadRing = !m.spivot(se0).isNone()
		}
	}
	for _, sh := range ringOrder {
		h2, undo, err := m.splitSubfaceEdge(sh, eo, ed, vi)
		if err != nil {
			return err
		}
		subUndos = append(subUndos, undo)
		halvesEo = append(halvesEo, sh)
		halvesEd = append(halvesEd, h2)
	}
	k := len(ringOrder)
	for i := 0; i < k; i++ {
		e1, _ := m.findShellEdge(halvesEo[i], eo, vi)
		e2, _ := m.findShellEdge(halvesEd[i], vi, ed)
		if hadRing || k > 1 {
			n1, _ := m.findShellEdge(halvesEo[(i+1)%k], eo, vi)
			n2, _ := m.findShellEdge(halvesEd[(i+1)%k], vi, ed)
			m.sbond1(e1, n1)
			m.sbond1(e2, n2)
		} else {
			m.sdissolve(e1)
			m.sdissolve(e2)
		}
		if segEo != 0 {
			m.ssbond(e1, ShellEdge{sh: segEo})
			m.ssbond(e2, ShellEdge{sh: segEd})
		} else {
			m.ssdissolve(e1)
			m.ssdissolve(e2)
		}
	}

	for _, u := range subUndos {
		tx.push(u)
	}
	if undoSeg != nil {
		tx.push(undoSeg)
	}
	return nil
}

// splitSubfaceInterior splits the subface at an interior point into three,
// reusing its record for the (v0, v1) corner pair. The adjacent cells must
// already be split when this is called.
func (m *Mesh) splitSubfaceInterior(sh int32, vi int32) (int32, int32, func() error) {
	s := m.shell(sh)
	snap := *s
	x, y, z := s.v[0], s.v[1], s.v[2]

	h2 := m.newShell(kindSubface, y, z, vi)
	h3 := m.newShell(kindSubface, z, x, vi)
	for _, h := range []int32{h2, h3} {
		ns := m.shell(h)
		ns.mark = snap.mark
		ns.facet = snap.facet
	}

	// Outer edges (y, z) and (z, x) move to the new thirds.
	oldYZ, _ := m.findShellEdge(sh, y, z)
	newYZ, _ := m.findShellEdge(h2, y, z)
	m.replaceInRing(oldYZ, newYZ)
	if seg := m.sspivot(oldYZ); !seg.isNone() {
		m.ssbond(newYZ, seg)
	}
	oldZX, _ := m.findShellEdge(sh, z, x)
	newZX, _ := m.findShellEdge(h3, z, x)
	m.replaceInRing(oldZX, newZX)
	if seg := m.sspivot(oldZX); !seg.isNone() {
		m.ssbond(newZX, seg)
	}

	// Record now spans (x, y, vi); clear the moved slots and join thirds.
	m.shell(sh).v[2] = vi
	m.sdissolve(oldYZ)
	m.ssdissolve(oldYZ)
	m.sdissolve(oldZX)
	m.ssdissolve(oldZX)

	shYV, _ := m.findShellEdge(sh, y, vi)
	h2VY, _ := m.findShellEdge(h2, vi, y)
	m.sbond(shYV, h2VY)
	shVX, _ := m.findShellEdge(sh, vi, x)
	h3XV, _ := m.findShellEdge(h3, x, vi)
	m.sbond(shVX, h3XV)
	h2ZV, _ := m.findShellEdge(h2, z, vi)
	h3VZ, _ := m.findShellEdge(h3, vi, z)
	m.sbond(h2ZV, h3VZ)

	m.attachSubface(sh)
	m.attachSubface(h2)
	m.attachSubface(h3)

	undo := func() error {
		*m.shell(sh) = snap
		restoredYZ := ShellEdge{sh: sh, ver: oldYZ.ver}
		m.replaceInRing(newYZ, restoredYZ)
		if seg := m.sspivot(restoredYZ); !seg.isNone() {
			m.ssbond(restoredYZ, seg)
		}
		restoredZX := ShellEdge{sh: sh, ver: oldZX.ver}
		m.replaceInRing(newZX, restoredZX)
		if seg := m.sspivot(restoredZX); !seg.isNone() {
			m.ssbond(restoredZX, seg)
		}
		m.attachSubface(sh)
		m.killShell(h2)
		m.killShell(h3)
		return nil
	}
	return h2, h3, undo
}
