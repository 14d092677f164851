package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"
)

// insertResult reports how an insertion attempt ended.
type insertResult int

const (
	// siteInCell: the point split a tetrahedron (or extended the hull).
	siteInCell insertResult = iota
	// siteOnFace: the point split a face.
	siteOnFace
	// siteOnEdge: the point split an edge.
	siteOnEdge
	// siteDuplicate: the point coincides with an existing vertex and was
	// remapped to it.
	siteDuplicate
	// siteOutside: the point lies beyond the hull and outside insertion
	// was not permitted.
	siteOutside
)

// insertSite inserts vertex vi into the triangulation. search hints point
// location and returns positioned at the insertion site. The caller owns
// the follow-up Delaunay flips through q and the rollback through tx.
func (m *Mesh) insertSite(vi int32, search *TetFace, allowOutside bool, q *flipQueue, tx *txn) (insertResult, error) {
	p := m.pt(vi)
	if search.isHull() || m.tetDead(search.tet) {
		if m.recent.isHull() || m.tetDead(m.recent.tet) {
			return siteOutside, errors.New("insertSite: no tetrahedralization to insert into")
		}
		*search = m.recent
	}
	loc := m.locate(p, search)
	if loc == OnVertex {
		return m.markDuplicate(vi, m.org(*search)), nil
	}
	if loc != Outside {
		// Merge points closer to a vertex than the relative tolerance. The
		// near vertex can belong to a cell adjoining the located site
		// rather than the located cell itself, so the neighbors are
		// scanned too.
		tol := m.longest * m.opts.Epsilon
		cells := []int32{search.tet}
		switch loc {
		case OnEdge:
			ring, _ := m.edgeRing(*search)
			for _, ci := range ring {
				if !seenTet(cells, ci) {
					cells = append(cells, ci)
				}
			}
		default:
			for l := int8(0); l < 4; l++ {
				if n := m.sym(TetFace{tet: search.tet, loc: l}); !n.isHull() && !seenTet(cells, n.tet) {
					cells = append(cells, n.tet)
				}
			}
		}
		for _, ci := range cells {
			for _, c := range m.tet(ci).v {
				if c != noVertex && c != vi && m.pt(c).Sub(p).Norm() < tol {
					return m.markDuplicate(vi, c), nil
				}
			}
		}
	}
	switch loc {
	case Outside:
		if !allowOutside {
			return siteOutside, nil
		}
		if err := m.insertOutside(vi, *search, q, tx); err != nil {
			return siteOutside, err
		}
		return siteInCell, nil
	case OnFace:
		return siteOnFace, m.splitTetFace(*search, vi, q, tx)
	case OnEdge:
		return siteOnEdge, m.splitTetEdge(*search, vi, q, tx)
	default:
		return siteInCell, m.splitTetCell(*search, vi, q, tx)
	}
}

func (m *Mesh) markDuplicate(vi, existing int32) insertResult {
	v := m.vert(vi)
	v.typ = DuplicateVertex
	v.pair = existing
	m.duplicateCount++
	return siteDuplicate
}

// splitTetCell replaces one tetrahedron by the four joining vi to its
// faces.
func (m *Mesh) splitTetCell(t TetFace, vi int32, q *flipQueue, tx *txn) error {
	oldTuples := [][4]int32{m.cornerTuple(t.tet)}
	var newTuples [][4]int32
	for loc := int8(0); loc < 4; loc++ {
		f := TetFace{tet: t.tet, loc: loc}
		newTuples = append(newTuples, [4]int32{m.org(f), m.dest(f), m.apex(f), vi})
	}
	newTets, err := m.replaceTets([]int32{t.tet}, newTuples)
	if err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	return nil
}

// splitTetFace replaces the one or two cells at face t by three or six
// joining vi to their outer faces, splitting any attached subface with
// them.
func (m *Mesh) splitTetFace(t TetFace, vi int32, q *flipQueue, tx *txn) error {
	sub := m.tspivot(t)
	n := m.sym(t)
	a, b, c := m.org(t), m.dest(t), m.apex(t)
	d := m.oppo(t)
	old := []int32{t.tet}
	oldTuples := [][4]int32{m.cornerTuple(t.tet)}
	newTuples := [][4]int32{{a, b, vi, d}, {b, c, vi, d}, {c, a, vi, d}}
	if !n.isHull() {
		e := m.oppo(n)
		old = append(old, n.tet)
		oldTuples = append(oldTuples, m.cornerTuple(n.tet))
		newTuples = append(newTuples,
			[4]int32{b, a, vi, e}, [4]int32{c, b, vi, e}, [4]int32{a, c, vi, e})
	}
	newTets, err := m.replaceTets(old, newTuples)
	if err != nil {
		return err
	}
	if !sub.isNone() {
		_, _, undo := m.splitSubfaceInterior(sub.sh, vi)
		tx.push(undo)
		if m.vert(vi).typ == FreeVolVertex {
			m.vert(vi).typ = FreeSubVertex
		}
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	return nil
}

// splitTetEdge replaces every cell around t's directed edge by two,
// splitting the subsegment and all subfaces sharing the edge with them.
func (m *Mesh) splitTetEdge(t TetFace, vi int32, q *flipQueue, tx *txn) error {
	eo, ed := m.org(t), m.dest(t)
	seg := m.tssPivot(t)
	cells, ringSubs := m.edgeRing(t)
	if len(cells) == 0 {
		return errors.New("splitTetEdge: empty edge ring")
	}

	oldTuples := make([][4]int32, len(cells))
	for i, ci := range cells {
		oldTuples[i] = m.cornerTuple(ci)
	}
	var newTuples [][4]int32
	for _, ci := range cells {
		tu := m.cornerTuple(ci)
		va, vb := tu, tu
		for i := range tu {
			if va[i] == ed {
				va[i] = vi
			}
			if vb[i] == eo {
				vb[i] = vi
			}
		}
		newTuples = append(newTuples, va, vb)
	}
	newTets, err := m.replaceTets(cells, newTuples)
	if err != nil {
		return err
	}
	if err := m.splitShellsAtEdge(eo, ed, vi, seg, ringSubs, tx); err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	return nil
}

// edgeRing collects the distinct cells around t's directed edge and the
// distinct subfaces attached to faces containing it, walking both
// directions when the ring is open at the hull.
func (m *Mesh) edgeRing(t TetFace) ([]int32, []int32) {
	var cells, subs []int32
	add := func(f TetFace) {
		if !seenTet(cells, f.tet) {
			cells = append(cells, f.tet)
		}
		if s := m.tspivot(f); !s.isNone() && !seenTet(subs, s.sh) {
			subs = append(subs, s.sh)
		}
	}
	add(t)
	open := false
	spin := t
	for i := 0; i < ringGuard; i++ {
		next, ok := m.fnext(spin)
		if !ok {
			open = true
			break
		}
		spin = next
		if spin.tet == t.tet && spin.loc == t.loc {
			break
		}
		add(spin)
	}
	if open {
		spin = esym(t)
		for i := 0; i < ringGuard; i++ {
			next, ok := m.fnext(spin)
			if !ok {
				break
			}
			spin = next
			add(spin)
		}
	}
	return cells, subs
}

// shellRingOrder returns the subfaces of the face ring at the (eo, ed)
// edge of sh, in ring order.
func (m *Mesh) shellRingOrder(sh int32, eo, ed int32) []int32 {
	se0, ok := m.findShellEdge(sh, eo, ed)
	if !ok {
		return nil
	}
	order := []int32{sh}
	cur := m.spivot(se0)
	for i := 0; i < ringGuard && !cur.isNone() && cur.sh != sh; i++ {
		order = append(order, cur.sh)
		cur = m.spivot(cur)
	}
	return order
}

// insertOutside extends the hull to cover vi, joining it to every hull
// face it can see. exitFace is a hull face the locate walk left through,
// which vi strictly sees.
func (m *Mesh) insertOutside(vi int32, exitFace TetFace, q *flipQueue, tx *txn) error {
	p := m.pt(vi)
	type hullKey struct {
		tet int32
		loc int8
	}
	seen := map[hullKey]bool{}
	var visible []TetFace
	frontier := []TetFace{exitFace}
	for len(frontier) > 0 {
		f := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		k := hullKey{f.tet, f.loc}
		if seen[k] {
			continue
		}
		seen[k] = true
		if predicates.Orient3D(m.pt(m.org(f)), m.pt(m.dest(f)), m.pt(m.apex(f)), p) <= 0 {
			continue
		}
		visible = append(visible, f)
		edge := f
		for i := 0; i < 3; i++ {
			frontier = append(frontier, m.hullNeighborAtEdge(edge))
			edge = enext(edge)
		}
	}
	if len(visible) == 0 {
		return errors.New("insertOutside: no hull face is visible from the point")
	}

	var newTets []int32
	newTuples := make([][4]int32, 0, len(visible))
	for _, f := range visible {
		a, b, c := m.org(f), m.dest(f), m.apex(f)
		nt := m.newTet(b, a, c, vi)
		newTets = append(newTets, nt)
		newTuples = append(newTuples, m.tet(nt).v)
		nf := TetFace{tet: nt}
		m.bond(nf, f)
		if sub := m.tspivot(f); !sub.isNone() {
			if se, ok := m.findShellEdge(sub.sh, b, a); ok {
				m.tsbond(nf, se)
			}
		}
	}
	// Join the new cells at their shared faces through vi; lone faces are
	// the new hull.
	sides := map[faceKey][]TetFace{}
	for _, ti := range newTets {
		for loc := int8(1); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			k := makeFaceKey(m.org(f), m.dest(f), m.apex(f))
			sides[k] = append(sides[k], f)
		}
	}
	for k, faces := range sides {
		switch len(faces) {
		case 2:
			m.bond(faces[0], faces[1])
		case 1:
			m.bond(faces[0], hull)
		default:
			return errors.Errorf(
				"insertOutside: face (%d %d %d) shared by %d new cells", k[0], k[1], k[2], len(faces))
		}
	}
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	m.recent = TetFace{tet: newTets[0]}

	tx.push(func() error {
		for _, tu := range newTuples {
			ti, ok := m.findTetByCorners(tu)
			if !ok {
				return errors.Errorf("rollback: hull cell (%d %d %d %d) no longer exists",
					tu[0], tu[1], tu[2], tu[3])
			}
			nf := TetFace{tet: ti}
			base := m.sym(nf)
			if sub := m.tspivot(nf); !sub.isNone() {
				ss := m.shell(sub.sh)
				for side := 0; side < 2; side++ {
					if ss.tet[side].tet() == ti {
						ss.tet[side] = 0
					}
				}
			}
			if !base.isHull() {
				m.dissolve(base)
				m.recent = TetFace{tet: base.tet}
			}
			m.killTet(ti)
		}
		return nil
	})
	return nil
}

// hullNeighborAtEdge walks the face ring at f's directed edge from one
// hull face to the one on the far side.
func (m *Mesh) hullNeighborAtEdge(f TetFace) TetFace {
	spin := f
	next, ok := m.fnext(spin)
	if !ok {
		spin = esym(f)
		next, ok = m.fnext(spin)
		if !ok {
			return f
		}
	}
	for i := 0; ok && i < ringGuard; i++ {
		spin = next
		next, ok = m.fnext(spin)
	}
	return spin
}
