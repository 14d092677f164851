package mesh

import (
	"container/heap"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// badTet is one tetrahedron queued for refinement, named by its corners
// so a stale entry is recognized after the cell has been rewritten.
type badTet struct {
	tuple [4]int32
	ratio float64
}

// badTetHeap orders refinement candidates worst first.
type badTetHeap []badTet

func (h badTetHeap) Len() int            { return len(h) }
func (h badTetHeap) Less(i, j int) bool  { return h[i].ratio > h[j].ratio }
func (h badTetHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *badTetHeap) Push(x interface{}) { *h = append(*h, x.(badTet)) }
func (h *badTetHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Encroachment priority bins, split in ascending order. Subsegments with
// acute or sharp features outrank plain ones, and all subsegments outrank
// subfaces, so the hardest boundary pieces are protected first.
const (
	binSegBothAcute = iota
	binSegOneAcute
	binSegSharp
	binSegPlain
	binSubSharp
	binSubPlain
	numBoundaryBins
)

// boundaryItem is one encroached boundary element awaiting a split. The
// reference point is recomputed at split time since intervening splits can
// change which vertex intrudes.
type boundaryItem struct {
	shell int32
	isSeg bool
}

// boundaryQueue holds encroached boundary elements in priority bins.
type boundaryQueue struct {
	bins [numBoundaryBins][]boundaryItem
}

func (b *boundaryQueue) push(bin int, it boundaryItem) {
	b.bins[bin] = append(b.bins[bin], it)
}

func (b *boundaryQueue) pop() (boundaryItem, bool) {
	for i := range b.bins {
		if n := len(b.bins[i]); n > 0 {
			it := b.bins[i][0]
			b.bins[i] = b.bins[i][1:]
			return it, true
		}
	}
	return boundaryItem{}, false
}

func (b *boundaryQueue) empty() bool {
	for i := range b.bins {
		if len(b.bins[i]) > 0 {
			return false
		}
	}
	return true
}

// segBin assigns an encroached subsegment its priority bin.
func (m *Mesh) segBin(s *shell) int {
	acute := 0
	for i := 0; i < 2; i++ {
		if s.v[i] >= 0 && m.vert(s.v[i]).typ == AcuteVertex {
			acute++
		}
	}
	switch {
	case acute == 2:
		return binSegBothAcute
	case acute == 1:
		return binSegOneAcute
	case s.segType == SharpSegment:
		return binSegSharp
	default:
		return binSegPlain
	}
}

// subBin assigns an encroached subface its priority bin. A subface
// touching an acute vertex or a sharp bounding segment splits before a
// plain one.
func (m *Mesh) subBin(i int32, s *shell) int {
	for _, v := range s.v {
		if v >= 0 && m.vert(v).typ == AcuteVertex {
			return binSubSharp
		}
	}
	for ver := int8(0); ver < 6; ver += 2 {
		seg := m.sspivot(ShellEdge{sh: i, ver: ver})
		if !seg.isNone() && m.shell(seg.sh).segType == SharpSegment {
			return binSubSharp
		}
	}
	return binSubPlain
}

// enforceQuality runs Delaunay refinement: split encroached boundary
// elements in bin priority order, then insert circumcenters of cells
// violating the radius-edge bound or a volume constraint, deferring to
// boundary splits whenever a circumcenter would encroach.
func (m *Mesh) enforceQuality() error {
	q := &flipQueue{}
	if err := m.repairEncroached(q); err != nil {
		return err
	}

	h := &badTetHeap{}
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		if r, bad := m.tetBadness(t); bad {
			*h = append(*h, badTet{tuple: t.v, ratio: r})
		}
		return true
	})
	heap.Init(h)

	iter := 0
	for h.Len() > 0 {
		if m.opts.MaxRefineIterations > 0 && iter >= m.opts.MaxRefineIterations {
			m.logger.Debugw("refinement iteration cap reached", "remaining", h.Len())
			break
		}
		if m.opts.MaxSteinerPoints > 0 && m.steinerCount >= m.opts.MaxSteinerPoints {
			m.logger.Debugw("refinement Steiner point cap reached", "remaining", h.Len())
			break
		}
		iter++
		bt := heap.Pop(h).(badTet)
		ti, ok := m.findTetByCorners(bt.tuple)
		if !ok {
			continue // the cell was rewritten meanwhile
		}
		t := m.tet(ti)
		if _, bad := m.tetBadness(t); !bad {
			continue
		}
		center, _, okc := circumsphere(m.pt(t.v[0]), m.pt(t.v[1]), m.pt(t.v[2]), m.pt(t.v[3]))
		if !okc {
			continue
		}

		// A circumcenter inside a protecting sphere must not be inserted;
		// the protected element splits instead and the cell waits.
		segs, subs := m.encroachedUpon(center)
		if len(segs) > 0 || len(subs) > 0 {
			for _, sg := range segs {
				if err := m.splitOneSeg(sg, center, q); err != nil {
					return err
				}
			}
			if len(segs) == 0 {
				for _, sb := range subs {
					if err := m.splitOneSub(sb, q); err != nil {
						return err
					}
				}
			}
			if err := m.repairEncroached(q); err != nil {
				return err
			}
			heap.Push(h, bt)
			continue
		}

		tx := &txn{}
		vi := m.newVertex(center, nil, 0, FreeVolVertex)
		search := TetFace{tet: ti}
		res, err := m.insertSite(vi, &search, false, q, tx)
		if err != nil {
			if rbErr := tx.rollback(); rbErr != nil {
				return rbErr
			}
			m.killVertex(vi)
			return err
		}
		if res == siteOutside || res == siteDuplicate {
			if err := tx.rollback(); err != nil {
				return err
			}
			m.killVertex(vi)
			continue
		}
		if err := m.runRefineFlips(q, tx); err != nil {
			return err
		}
		m.steinerCount++
		m.collectNewBad(h, vi)
	}
	m.logger.Debugw("refinement finished",
		"iterations", iter,
		"steinerPoints", m.steinerCount,
	)
	return nil
}

// tetBadness reports the squared radius-edge ratio and whether the cell
// violates the quality bound or a volume constraint.
func (m *Mesh) tetBadness(t *tetra) (float64, bool) {
	a, b, c, d := m.pt(t.v[0]), m.pt(t.v[1]), m.pt(t.v[2]), m.pt(t.v[3])
	ratio := radiusEdgeRatioSq(a, b, c, d)
	if math.IsInf(ratio, 1) {
		return ratio, false // degenerate; splitting cannot help
	}
	bound := m.opts.RadiusEdgeBound * m.opts.RadiusEdgeBound
	if m.opts.Quality && ratio > bound {
		return ratio, true
	}
	vol := math.Abs(tetVolume(a, b, c, d))
	if m.opts.MaxVolume > 0 && vol > m.opts.MaxVolume {
		return ratio, true
	}
	if m.opts.VarVolume && t.hasVol && t.maxVol > 0 && vol > t.maxVol {
		return ratio, true
	}
	return ratio, false
}

// collectNewBad queues the cells around the freshly inserted vertex.
func (m *Mesh) collectNewBad(h *badTetHeap, vi int32) {
	start, ok := m.vertexTet(vi)
	if !ok {
		return
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
		if r, bad := m.tetBadness(t); bad {
			heap.Push(h, badTet{tuple: t.v, ratio: r})
		}
		for loc := int8(0); loc < 4; loc++ {
			n := t.nbr[loc].tet()
			if n != 0 && !m.tetDead(n) && !visited[n] && m.tetHasVertex(n, vi) {
				stack = append(stack, n)
			}
		}
	}
}

// encroachedUpon lists the subsegments and subfaces whose protecting
// spheres contain p.
func (m *Mesh) encroachedUpon(p r3.Vector) ([]int32, []int32) {
	var segs, subs []int32
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.dead() {
			return true
		}
		switch s.kind {
		case kindSubsegment:
			if inDiametralSphere(m.pt(s.v[0]), m.pt(s.v[1]), p) {
				segs = append(segs, i)
			}
		case kindSubface:
			if inEquatorialSphere(m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2]), p) {
				subs = append(subs, i)
			}
		}
		return true
	})
	return segs, subs
}

// segEncroached reports a vertex inside the subsegment's diametral
// sphere, checking the apexes of the cells around its edge.
func (m *Mesh) segEncroached(sg int32) (r3.Vector, bool) {
	s := m.shell(sg)
	pu, pw := m.pt(s.v[0]), m.pt(s.v[1])
	t, ok := m.findTetEdge(s.v[0], s.v[1])
	if !ok {
		return r3.Vector{}, false
	}
	cells, _ := m.edgeRing(t)
	for _, ci := range cells {
		for _, vi := range m.tet(ci).v {
			if vi == noVertex || vi == s.v[0] || vi == s.v[1] {
				continue
			}
			if inDiametralSphere(pu, pw, m.pt(vi)) {
				return m.pt(vi), true
			}
		}
	}
	return r3.Vector{}, false
}

// subEncroached reports whether a vertex of the two cells at the subface
// lies inside its equatorial sphere.
func (m *Mesh) subEncroached(sb int32) bool {
	s := m.shell(sb)
	pa, pb, pc := m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2])
	for side := 0; side < 2; side++ {
		ti := s.tet[side].tet()
		if m.tetDead(ti) {
			continue
		}
		for _, vi := range m.tet(ti).v {
			if vi == noVertex || vi == s.v[0] || vi == s.v[1] || vi == s.v[2] {
				continue
			}
			if inEquatorialSphere(pa, pb, pc, m.pt(vi)) {
				return true
			}
		}
	}
	return false
}

// repairEncroached splits encroached boundary elements, highest priority
// bin first, until none remains. Each splitting sweep can encroach new
// elements, so the queue is rebuilt between sweeps.
func (m *Mesh) repairEncroached(q *flipQueue) error {
	for round := 0; round < segmentRecoveryPasses*facetRecoveryPasses; round++ {
		bq := &boundaryQueue{}
		m.shells.traverse(func(i int32, s *shell) bool {
			if s.dead() {
				return true
			}
			switch s.kind {
			case kindSubsegment:
				if _, enc := m.segEncroached(i); enc {
					bq.push(m.segBin(s), boundaryItem{shell: i, isSeg: true})
				}
			case kindSubface:
				if m.subEncroached(i) {
					bq.push(m.subBin(i, s), boundaryItem{shell: i})
				}
			}
			return true
		})
		if bq.empty() {
			return nil
		}
		for it, ok := bq.pop(); ok; it, ok = bq.pop() {
			if m.opts.MaxSteinerPoints > 0 && m.steinerCount >= m.opts.MaxSteinerPoints {
				m.logger.Debugw("Steiner point cap reached during boundary splitting")
				return nil
			}
			if m.shellDead(it.shell) {
				continue
			}
			if it.isSeg {
				ref, enc := m.segEncroached(it.shell)
				if !enc {
					continue
				}
				if err := m.splitOneSeg(it.shell, ref, q); err != nil {
					return err
				}
			} else {
				if !m.subEncroached(it.shell) {
					continue
				}
				if err := m.splitOneSub(it.shell, q); err != nil {
					return err
				}
			}
		}
	}
	return errors.New("encroached boundary splitting did not converge")
}

// splitOneSeg splits the subsegment once, placing the point by the acute
// endpoint rules aimed at ref.
func (m *Mesh) splitOneSeg(sg int32, ref r3.Vector, q *flipQueue) error {
	s := m.shell(sg)
	if s.dead() {
		return nil
	}
	u, w := s.v[0], s.v[1]
	p := m.segmentSplitPoint(u, w, ref, true)
	vi := m.newVertex(p, nil, s.mark, FreeSegVertex)
	search := m.recent
	res, err := m.insertSite(vi, &search, false, q, nil)
	if err != nil {
		return errors.Wrap(err, "splitting encroached segment")
	}
	if res == siteDuplicate || res == siteOutside {
		m.killVertex(vi)
		return nil
	}
	if res != siteOnEdge {
		// The point missed the segment's edge; the shells still need the
		// split so the subsegment bookkeeping stays true to the geometry.
		var ringIDs []int32
		for _, se := range m.segmentRingSubfaces(sg) {
			ringIDs = append(ringIDs, se.sh)
		}
		if err := m.splitShellsAtEdge(u, w, vi, ShellEdge{sh: sg}, ringIDs, nil); err != nil {
			return err
		}
	}
	m.steinerCount++
	return m.runRefineFlips(q, nil)
}

// splitOneSub splits the subface at its circumcenter, or at its centroid
// when the circumcenter falls outside the triangle, unless the point
// would encroach a subsegment, which then splits instead.
func (m *Mesh) splitOneSub(sb int32, q *flipQueue) error {
	s := m.shell(sb)
	if s.dead() || s.kind != kindSubface {
		return nil
	}
	pa, pb, pc := m.pt(s.v[0]), m.pt(s.v[1]), m.pt(s.v[2])
	center, _, ok := triCircumcenter(pa, pb, pc)
	if !ok || !pointInTriangle(center, pa, pb, pc, m.longest*m.opts.Epsilon) {
		center = pa.Add(pb).Add(pc).Mul(1.0 / 3.0)
	}
	segs, _ := m.encroachedUpon(center)
	if len(segs) > 0 {
		for _, sg := range segs {
			if err := m.splitOneSeg(sg, center, q); err != nil {
				return err
			}
		}
		return nil
	}
	vi := m.newVertex(center, nil, s.mark, FreeSubVertex)
	search := m.recent
	res, err := m.insertSite(vi, &search, false, q, nil)
	if err != nil {
		return errors.Wrap(err, "splitting encroached subface")
	}
	if res == siteDuplicate || res == siteOutside {
		m.killVertex(vi)
		return nil
	}
	m.steinerCount++
	return m.runRefineFlips(q, nil)
}

// runRefineFlips restores local Delaunayness after a refinement
// insertion, or just drains the queue when flips are suppressed.
func (m *Mesh) runRefineFlips(q *flipQueue, tx *txn) error {
	if m.opts.NoFlips {
		q.items = q.items[:0]
		q.head = 0
		return nil
	}
	_, err := m.flipLoop(q, tx)
	return err
}
