package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"
)

// flipType classifies what local rewrite, if any, a face admits.
type flipType int

const (
	// flipT23 replaces the two cells at a convex face by three.
	flipT23 flipType = iota
	// flipT32 replaces the three cells around an edge by two.
	flipT32
	// flipT22 rotates the diagonal of a coplanar hull quad.
	flipT22
	// flipT44 rotates the diagonal of a coplanar interior quad, rewriting
	// all four cells around the edge.
	flipT44
	// flipUnflipable marks a face no rewrite can legalize now.
	flipUnflipable
	// flipForbiddenFace marks a face protected by a subface.
	flipForbiddenFace
	// flipForbiddenEdge marks a face whose reflex edge is a subsegment.
	flipForbiddenEdge
	// flipNonconvex marks a locally non-convex configuration.
	flipNonconvex
)

// flipItem is one queued candidate face, stored with its vertices so a
// stale entry (the face was rewritten meanwhile) can be recognized.
type flipItem struct {
	t                  TetFace
	forg, fdest, fapex int32
}

type flipQueue struct {
	items []flipItem
	head  int
}

func (q *flipQueue) push(it flipItem) { q.items = append(q.items, it) }

func (q *flipQueue) pop() (flipItem, bool) {
	if q.head >= len(q.items) {
		return flipItem{}, false
	}
	it := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return it, true
}

func (q *flipQueue) len() int { return len(q.items) - q.head }

// enqueueFace queues one face for a local Delaunay check.
func (m *Mesh) enqueueFace(q *flipQueue, t TetFace) {
	q.push(flipItem{t: t, forg: m.org(t), fdest: m.dest(t), fapex: m.apex(t)})
}

// enqueueTetFaces queues all four faces of a tetrahedron.
func (m *Mesh) enqueueTetFaces(q *flipQueue, tet int32) {
	for loc := int8(0); loc < 4; loc++ {
		m.enqueueFace(q, TetFace{tet: tet, loc: loc})
	}
}

// txn is the transaction log of one insertion attempt. Every topological
// operation pushes its own inverse; aborting replays them in reverse. A
// committed transaction is simply dropped.
type txn struct {
	ops []func() error
}

func (tx *txn) push(op func() error) {
	if tx != nil {
		tx.ops = append(tx.ops, op)
	}
}

func (tx *txn) rollback() error {
	for i := len(tx.ops) - 1; i >= 0; i-- {
		if err := tx.ops[i](); err != nil {
			return err
		}
	}
	tx.ops = nil
	return nil
}

// findTetByCorners finds the live tetrahedron spanning exactly the four
// given vertices by walking the star of the first one.
func (m *Mesh) findTetByCorners(vs [4]int32) (int32, bool) {
	start, ok := m.vertexTet(vs[0])
	if !ok {
		return 0, false
	}
	visited := map[int32]bool{}
	stack := []int32{start.tet}
	for len(stack) > 0 {
		ti := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[ti] || m.tetDead(ti) {
			continue
		}
		visited[ti] = true
		t := m.tet(ti)
		match := 0
		hasV0 := false
		for _, c := range t.v {
			for _, w := range vs {
				if c == w {
					match++
					break
				}
			}
			if c == vs[0] {
				hasV0 = true
			}
		}
		if match == 4 {
			return ti, true
		}
		if !hasV0 {
			continue
		}
		for loc := int8(0); loc < 4; loc++ {
			n := t.nbr[loc].tet()
			if n != 0 && !m.tetDead(n) && !visited[n] && m.tetHasVertex(n, vs[0]) {
				stack = append(stack, n)
			}
		}
	}
	return 0, false
}

type faceKey [3]int32

func makeFaceKey(a, b, c int32) faceKey {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return faceKey{a, b, c}
}

// replaceTets atomically substitutes the cells in old by fresh cells over
// the corner tuples in newTuples. The two sets must cover the same
// polyhedron: every boundary triangle of the new set is either a boundary
// face of an old cell (its outside bond and subface move over) or, for the
// coplanar hull rewrite, absent from the old set and bonded to outer
// space. The old cells are deallocated only after the new set is fully
// linked.
func (m *Mesh) replaceTets(old []int32, newTuples [][4]int32) ([]int32, error) {
	oldFaces := map[faceKey][]TetFace{}
	oldSet := map[int32]bool{}
	for _, ti := range old {
		oldSet[ti] = true
	}
	for _, ti := range old {
		t := m.tet(ti)
		for loc := int8(0); loc < 4; loc++ {
			if oldSet[t.nbr[loc].tet()] {
				continue // internal to the old set
			}
			f := TetFace{tet: ti, loc: loc}
			k := makeFaceKey(m.org(f), m.dest(f), m.apex(f))
			oldFaces[k] = append(oldFaces[k], f)
		}
	}

	proto := m.tet(old[0])
	attr, hasAttr := proto.attr, proto.hasAttr
	maxVol, hasVol := proto.maxVol, proto.hasVol

	newTets := make([]int32, len(newTuples))
	for i, vs := range newTuples {
		newTets[i] = m.newTet(vs[0], vs[1], vs[2], vs[3])
		nt := m.tet(newTets[i])
		nt.attr, nt.hasAttr = attr, hasAttr
		nt.maxVol, nt.hasVol = maxVol, hasVol
	}

	newFaces := map[faceKey][]TetFace{}
	for _, ti := range newTets {
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			k := makeFaceKey(m.org(f), m.dest(f), m.apex(f))
			newFaces[k] = append(newFaces[k], f)
		}
	}

	for k, faces := range newFaces {
		switch len(faces) {
		case 2:
			m.bond(faces[0], faces[1])
		case 1:
			f := faces[0]
			owners := oldFaces[k]
			if len(owners) == 0 {
				// Coplanar hull rewrite: the face is new on the hull.
				m.bond(f, hull)
				continue
			}
			if len(owners) > 1 {
				return nil, errors.Errorf(
					"replaceTets: face (%d %d %d) interior to the replaced set appears on the new boundary",
					k[0], k[1], k[2])
			}
			of := owners[0]
			outside := m.sym(of)
			m.bond(f, outside)
			if sub := m.tspivot(of); !sub.isNone() {
				se, ok := m.findShellEdge(sub.sh, m.org(f), m.dest(f))
				if !ok {
					se, _ = m.findShellEdge(sub.sh, m.dest(f), m.org(f))
				}
				m.tsbond(f, se)
			}
		default:
			return nil, errors.Errorf(
				"replaceTets: face (%d %d %d) shared by %d new cells", k[0], k[1], k[2], len(faces))
		}
	}

	for _, ti := range old {
		m.killTet(ti)
	}
	m.recent = TetFace{tet: newTets[0]}
	return newTets, nil
}

// replaceByCorners is the undo-side variant of replaceTets: the cells to
// remove are named by corner tuples, since their storage identities may
// have changed under later (already undone) operations.
func (m *Mesh) replaceByCorners(oldTuples, newTuples [][4]int32) error {
	old := make([]int32, len(oldTuples))
	for i, vs := range oldTuples {
		ti, ok := m.findTetByCorners(vs)
		if !ok {
			return errors.Errorf("rollback: tetrahedron (%d %d %d %d) no longer exists",
				vs[0], vs[1], vs[2], vs[3])
		}
		old[i] = ti
	}
	_, err := m.replaceTets(old, newTuples)
	return err
}

func (m *Mesh) cornerTuple(ti int32) [4]int32 { return m.tet(ti).v }

// logCellReplace pushes the inverse of a cell replacement onto the log.
func (m *Mesh) logCellReplace(tx *txn, oldTuples, newTuples [][4]int32) {
	tx.push(func() error {
		return m.replaceByCorners(newTuples, oldTuples)
	})
}

// categorize determines the flip type of the face named by t and returns a
// handle positioned for the flip: on the face for T23, on the offending
// edge for T32/T22/T44.
func (m *Mesh) categorize(t TetFace) (flipType, TetFace) {
	if !m.tspivot(t).isNone() {
		return flipForbiddenFace, t
	}
	n := m.sym(t)
	if n.isHull() {
		return flipNonconvex, t
	}
	d := m.oppo(t)
	e := m.oppo(n)
	pd, pe := m.pt(d), m.pt(e)

	edge := t
	var negEdges, zeroEdges []TetFace
	for i := 0; i < 3; i++ {
		ori := predicates.Orient3D(m.pt(m.org(edge)), m.pt(m.dest(edge)), pd, pe)
		switch {
		case ori < 0:
			negEdges = append(negEdges, edge)
		case ori == 0:
			zeroEdges = append(zeroEdges, edge)
		}
		edge = enext(edge)
	}

	if len(negEdges) == 0 && len(zeroEdges) == 0 {
		return flipT23, t
	}

	if len(negEdges) == 1 && len(zeroEdges) == 0 {
		// One reflex edge; removable if exactly three cells ring it.
		re := negEdges[0]
		if !m.tssPivot(re).isNone() {
			return flipForbiddenEdge, re
		}
		top, okTop := m.ringFace(re)
		if !okTop {
			return flipUnflipable, re
		}
		third := m.sym(top)
		if third.isHull() {
			return flipUnflipable, re
		}
		// The ring closes with three cells iff the cell across the top
		// face also adjoins the bottom cell across the mirrored face.
		botFace, ok := m.faceOf(n.tet, m.org(re), m.dest(re), e)
		if !ok {
			return flipUnflipable, re
		}
		thirdFromBot := m.sym(botFace)
		if thirdFromBot.isHull() || thirdFromBot.tet != third.tet {
			return flipUnflipable, re
		}
		if !m.tspivot(top).isNone() || !m.tspivot(botFace).isNone() {
			return flipForbiddenFace, re
		}
		return flipT32, re
	}

	if len(zeroEdges) == 1 && len(negEdges) == 0 {
		ze := zeroEdges[0]
		if !m.tssPivot(ze).isNone() {
			return flipForbiddenEdge, ze
		}
		a, b := m.org(ze), m.dest(ze)
		c := m.apex(ze)
		// The diagonal rotation needs the planar quad to be strictly
		// convex: d and e must straddle the edge within their plane.
		sa := predicates.Orient3D(pd, pe, m.pt(c), m.pt(a))
		sb := predicates.Orient3D(pd, pe, m.pt(c), m.pt(b))
		if sa == 0 || sb == 0 || sa == sb {
			return flipUnflipable, ze
		}
		topFace, okT := m.faceOf(t.tet, a, b, d)
		botFace, okB := m.faceOf(n.tet, a, b, e)
		if !okT || !okB {
			return flipUnflipable, ze
		}
		if !m.tspivot(topFace).isNone() || !m.tspivot(botFace).isNone() {
			return flipForbiddenFace, ze
		}
		topOut := m.sym(topFace)
		botOut := m.sym(botFace)
		if topOut.isHull() && botOut.isHull() {
			return flipT22, ze
		}
		if topOut.isHull() || botOut.isHull() {
			return flipUnflipable, ze
		}
		// Interior: the mirror pair must share the far vertex and the
		// face joining them must carry no subface.
		f := m.oppo(topOut)
		if m.oppo(botOut) != f {
			return flipUnflipable, ze
		}
		mirrorFace, ok := m.faceOf(topOut.tet, a, b, f)
		if !ok {
			return flipUnflipable, ze
		}
		if !m.tspivot(mirrorFace).isNone() {
			return flipForbiddenFace, ze
		}
		return flipT44, ze
	}

	return flipNonconvex, t
}

// ringFace returns the other face of t's cell containing t's directed
// edge, positioned on the same edge.
func (m *Mesh) ringFace(t TetFace) (TetFace, bool) {
	te := t
	if te.ver&1 != 0 {
		te = esym(te)
	}
	nl, nv := ringNext(te.loc, te.ver)
	if nl < 0 {
		return hull, false
	}
	return TetFace{tet: te.tet, loc: nl, ver: nv}, true
}

// flip23 replaces the two cells at face t by three around the new edge
// joining their opposite corners.
func (m *Mesh) flip23(t TetFace, q *flipQueue, tx *txn) error {
	n := m.sym(t)
	a, b, c := m.org(t), m.dest(t), m.apex(t)
	d, e := m.oppo(t), m.oppo(n)
	old := []int32{t.tet, n.tet}
	oldTuples := [][4]int32{m.cornerTuple(t.tet), m.cornerTuple(n.tet)}
	newTuples := [][4]int32{{a, b, e, d}, {b, c, e, d}, {c, a, e, d}}
	newTets, err := m.replaceTets(old, newTuples)
	if err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	m.flip23Count++
	return nil
}

// flip32 removes the directed edge of t, whose ring must hold exactly
// three cells, leaving two.
func (m *Mesh) flip32(t TetFace, q *flipQueue, tx *txn) error {
	eo, ed := m.org(t), m.dest(t)
	// Collect the three ring cells and their apexes.
	var cells []int32
	var apexes []int32
	spin := t
	for i := 0; i < 3; i++ {
		if !seenTet(cells, spin.tet) {
			cells = append(cells, spin.tet)
		}
		if !seenVert(apexes, m.apex(spin)) {
			apexes = append(apexes, m.apex(spin))
		}
		next, ok := m.fnext(spin)
		if !ok {
			return errors.New("flip32: edge ring crosses the hull")
		}
		spin = next
		if !seenTet(cells, spin.tet) {
			cells = append(cells, spin.tet)
		}
		if !seenVert(apexes, m.apex(spin)) {
			apexes = append(apexes, m.apex(spin))
		}
	}
	if len(cells) != 3 || len(apexes) != 3 {
		return errors.Errorf("flip32: edge ring has %d cells", len(cells))
	}
	pa, pb, pc := m.pt(apexes[0]), m.pt(apexes[1]), m.pt(apexes[2])
	top, bottom := ed, eo
	if predicates.Orient3D(pa, pb, pc, m.pt(top)) >= 0 {
		top, bottom = eo, ed
	}
	oldTuples := make([][4]int32, len(cells))
	for i, ti := range cells {
		oldTuples[i] = m.cornerTuple(ti)
	}
	newTuples := [][4]int32{
		{apexes[0], apexes[1], apexes[2], top},
		{apexes[1], apexes[0], apexes[2], bottom},
	}
	newTets, err := m.replaceTets(cells, newTuples)
	if err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	m.flip32Count++
	return nil
}

// flip22 rotates the diagonal of the coplanar quad at t's directed edge.
// The two side faces must be hull faces.
func (m *Mesh) flip22(t TetFace, q *flipQueue, tx *txn) error {
	n := m.sym(t)
	a, b := m.org(t), m.dest(t)
	c := m.apex(t)
	d, e := m.oppo(t), m.oppo(n)
	old := []int32{t.tet, n.tet}
	oldTuples := [][4]int32{m.cornerTuple(t.tet), m.cornerTuple(n.tet)}
	newTuples := [][4]int32{{a, d, e, c}, {b, e, d, c}}
	newTets, err := m.replaceTets(old, newTuples)
	if err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	m.flip22Count++
	return nil
}

// flip44 rotates the diagonal of the coplanar quad at t's directed edge
// together with its mirror pair, rewriting the four cells around the edge.
func (m *Mesh) flip44(t TetFace, q *flipQueue, tx *txn) error {
	n := m.sym(t)
	a, b := m.org(t), m.dest(t)
	c := m.apex(t)
	d, e := m.oppo(t), m.oppo(n)
	topFace, ok := m.faceOf(t.tet, a, b, d)
	if !ok {
		return errors.New("flip44: lost the side face")
	}
	topOut := m.sym(topFace)
	f := m.oppo(topOut)
	botFace, ok := m.faceOf(n.tet, a, b, e)
	if !ok {
		return errors.New("flip44: lost the mirror side face")
	}
	botOut := m.sym(botFace)
	old := []int32{t.tet, n.tet, topOut.tet, botOut.tet}
	oldTuples := make([][4]int32, len(old))
	for i, ti := range old {
		oldTuples[i] = m.cornerTuple(ti)
	}
	newTuples := [][4]int32{
		{a, d, e, c}, {b, e, d, c},
		{a, e, d, f}, {b, d, e, f},
	}
	newTets, err := m.replaceTets(old, newTuples)
	if err != nil {
		return err
	}
	m.logCellReplace(tx, oldTuples, newTuples)
	for _, ti := range newTets {
		m.enqueueTetFaces(q, ti)
	}
	m.flip44Count++
	return nil
}

// flipLoop pops candidate faces, classifies them, and applies the matching
// rewrite until no face fails the local Delaunay test. It returns the
// number of flips performed. Faces no rewrite can legalize are left for
// later passes; each applied flip strictly reduces the number of
// non-Delaunay faces, so the loop terminates whenever the predicates are
// consistent.
func (m *Mesh) flipLoop(q *flipQueue, tx *txn) (int64, error) {
	var count int64
	guard := 0
	for {
		it, ok := q.pop()
		if !ok {
			return count, nil
		}
		guard++
		if guard > flipGuardLimit(m.tets.count()) {
			return count, errors.New(
				"flip sequence failed to terminate: inconsistent predicate signs or broken adjacency")
		}
		if m.tetDead(it.t.tet) {
			continue
		}
		t := it.t
		if !m.faceHasVerts(t, it.forg, it.fdest, it.fapex) {
			continue
		}
		n := m.sym(t)
		if n.isHull() {
			continue
		}
		d, e := m.oppo(t), m.oppo(n)
		// Locally Delaunay faces need no rewrite. The orientation of
		// (dest, org, apex, d) is positive by the handle invariant.
		if predicates.InSphere(m.pt(m.dest(t)), m.pt(m.org(t)), m.pt(m.apex(t)), m.pt(d), m.pt(e)) <= 0 {
			continue
		}
		ft, pos := m.categorize(t)
		var err error
		switch ft {
		case flipT23:
			err = m.flip23(pos, q, tx)
			count++
		case flipT32:
			err = m.flip32(pos, q, tx)
			count++
		case flipT22:
			err = m.flip22(pos, q, tx)
			count++
		case flipT44:
			err = m.flip44(pos, q, tx)
			count++
		default:
			// Not legal now; another flip may expose it again.
			continue
		}
		if err != nil {
			return count, err
		}
	}
}

func flipGuardLimit(numTets int) int {
	// Any terminating flip sequence from n cells is polynomial in n; a
	// generous quadratic budget distinguishes real cycling from long
	// cascades.
	if numTets < 64 {
		numTets = 64
	}
	return 64 * numTets * numTets
}

// faceHasVerts reports whether the face named by t still spans the three
// given vertices.
func (m *Mesh) faceHasVerts(t TetFace, a, b, c int32) bool {
	set := [3]int32{m.org(t), m.dest(t), m.apex(t)}
	for _, w := range [3]int32{a, b, c} {
		found := false
		for _, v := range set {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func seenTet(s []int32, v int32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func seenVert(s []int32, v int32) bool {
	return seenTet(s, v)
}
