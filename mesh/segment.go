package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const segmentRecoveryPasses = 64

// markAcuteVertices classifies every segment endpoint: acute when two
// segments meet there at an angle below the configured bound, non-acute
// otherwise. Acute endpoints get protected splitting later, so a cascade
// of shrinking subsegments cannot pile up against them.
func (m *Mesh) markAcuteVertices() {
	incident := map[int32][]int32{}
	m.shells.traverse(func(_ int32, s *shell) bool {
		if s.kind == kindSubsegment && !s.dead() {
			incident[s.v[0]] = append(incident[s.v[0]], s.v[1])
			incident[s.v[1]] = append(incident[s.v[1]], s.v[0])
		}
		return true
	})
	bound := m.opts.AcuteAngleDegrees * math.Pi / 180
	acute := 0
	for v, others := range incident {
		if m.vert(v).typ != InputVertex {
			continue
		}
		isAcute := false
		for i := 0; i < len(others) && !isAcute; i++ {
			for j := i + 1; j < len(others); j++ {
				if interiorAngle(m.pt(v), m.pt(others[i]), m.pt(others[j])) < bound {
					isAcute = true
					break
				}
			}
		}
		if isAcute {
			m.vert(v).typ = AcuteVertex
			acute++
		} else {
			m.vert(v).typ = NonacuteVertex
		}
	}
	if acute > 0 {
		m.logger.Debugw("acute segment vertices marked", "count", acute)
	}
}

// markSharpSegments classifies each subsegment by the dihedral angles
// between consecutive facets of its face ring.
func (m *Mesh) markSharpSegments() {
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.kind != kindSubsegment || s.dead() {
			return true
		}
		s.segType = NonsharpSegment
		ring := m.segmentRingSubfaces(i)
		if len(ring) >= 2 {
			a, b := m.pt(s.v[0]), m.pt(s.v[1])
			for j := range ring {
				c1 := m.pt(m.sapex(ring[j]))
				c2 := m.pt(m.sapex(ring[(j+1)%len(ring)]))
				if faceDihedral(a, b, c1, c2) < math.Pi/2 {
					s.segType = SharpSegment
					break
				}
			}
		}
		return true
	})
}

// segmentRingSubfaces returns the subfaces of the segment's face ring,
// positioned on the segment's edge, in ring order.
func (m *Mesh) segmentRingSubfaces(segID int32) []ShellEdge {
	s := m.shell(segID)
	first := m.segRingFace(ShellEdge{sh: segID})
	if first.isNone() || m.shellDead(first.sh) {
		return nil
	}
	se, ok := m.findShellEdge(first.sh, s.v[0], s.v[1])
	if !ok {
		if se, ok = m.findShellEdge(first.sh, s.v[1], s.v[0]); !ok {
			return nil
		}
	}
	out := []ShellEdge{se}
	cur := m.spivot(se)
	for i := 0; i < ringGuard && !cur.isNone() && cur.sh != se.sh; i++ {
		out = append(out, cur)
		cur = m.spivot(cur)
	}
	return out
}

// findTetEdge positions a handle on the mesh edge (u, w), if the
// triangulation currently contains it.
func (m *Mesh) findTetEdge(u, w int32) (TetFace, bool) {
	start, ok := m.vertexTet(u)
	if !ok {
		return hull, false
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
		if m.tetHasVertex(ti, w) {
			t := TetFace{tet: ti}
			if m.findEdge(&t, u, w) {
				return t, true
			}
		}
		tt := m.tet(ti)
		for loc := int8(0); loc < 4; loc++ {
			n := tt.nbr[loc].tet()
			if n != 0 && !m.tetDead(n) && !visited[n] && m.tetHasVertex(n, u) {
				stack = append(stack, n)
			}
		}
	}
	return hull, false
}

// findSegmentReference returns the vertex intruding most deeply into the
// diametral sphere of the segment (u, w); split point selection aims at
// it.
func (m *Mesh) findSegmentReference(u, w int32) (r3.Vector, bool) {
	pu, pw := m.pt(u), m.pt(w)
	var best r3.Vector
	bestD := math.Inf(1)
	found := false
	m.verts.traverse(func(i int32, v *vertex) bool {
		if i == u || i == w || v.dead() || v.typ == DuplicateVertex || v.typ == UnusedVertex {
			return true
		}
		if !inDiametralSphere(pu, pw, v.loc) {
			return true
		}
		d := v.loc.Sub(segmentProject(v.loc, pu, pw)).Norm()
		if d < bestD {
			bestD = d
			best = v.loc
			found = true
		}
		return true
	})
	return best, found
}

// segmentSplitPoint picks where to split the segment (u, w). With no
// acute endpoint the split lands at the reference point's projection when
// that stays in the middle half, else at the midpoint. With one acute
// endpoint the split lands on a sphere around it whose radius is a power
// of two, so successive splits near that endpoint reuse the same shells
// instead of creeping ever closer.
func (m *Mesh) segmentSplitPoint(u, w int32, ref r3.Vector, hasRef bool) r3.Vector {
	pu, pw := m.pt(u), m.pt(w)
	acuteU := m.vert(u).typ == AcuteVertex
	acuteW := m.vert(w).typ == AcuteVertex
	mid := pu.Add(pw).Mul(0.5)
	if acuteU == acuteW {
		if hasRef {
			pp := segmentProject(ref, pu, pw)
			l := pw.Sub(pu).Norm()
			d := pp.Sub(pu).Norm()
			if d > 0.25*l && d < 0.75*l {
				return pp
			}
		}
		return mid
	}
	from, to := pu, pw
	if acuteW {
		from, to = pw, pu
	}
	l := to.Sub(from).Norm()
	r := l / 2
	if hasRef {
		if d := ref.Sub(from).Norm(); d > 0 && d < l {
			r = math.Pow(2, math.Round(math.Log2(d)))
			for r >= 0.75*l {
				r /= 2
			}
			for r < 0.125*l {
				r *= 2
			}
		}
	}
	return from.Add(to.Sub(from).Mul(r / l))
}

// delaunizeSegments splits subsegments until every one appears as an edge
// of the tetrahedralization.
func (m *Mesh) delaunizeSegments() error {
	m.markAcuteVertices()
	q := &flipQueue{}
	for pass := 0; pass < segmentRecoveryPasses; pass++ {
		var missing []int32
		m.shells.traverse(func(i int32, s *shell) bool {
			if s.kind == kindSubsegment && !s.dead() {
				if _, ok := m.findTetEdge(s.v[0], s.v[1]); !ok {
					missing = append(missing, i)
				}
			}
			return true
		})
		if len(missing) == 0 {
			m.markSharpSegments()
			m.logger.Debugw("segments recovered", "steinerPoints", m.steinerCount)
			return nil
		}
		for _, segID := range missing {
			s := m.shell(segID)
			if s.dead() {
				continue
			}
			u, w := s.v[0], s.v[1]
			if _, ok := m.findTetEdge(u, w); ok {
				continue
			}
			if m.opts.MaxSteinerPoints > 0 && m.steinerCount >= m.opts.MaxSteinerPoints {
				return errors.Errorf("segment recovery exceeded the Steiner point limit %d",
					m.opts.MaxSteinerPoints)
			}
			ref, hasRef := m.findSegmentReference(u, w)
			p := m.segmentSplitPoint(u, w, ref, hasRef)
			vi := m.newVertex(p, nil, s.mark, FreeSegVertex)
			search := m.recent
			res, err := m.insertSite(vi, &search, false, q, nil)
			if err != nil {
				return errors.Wrap(err, "splitting segment")
			}
			split := vi
			switch res {
			case siteDuplicate:
				// The split point hit an existing vertex; split the shell
				// chain there if it lies on the segment.
				split = m.resolveVertex(vi)
				m.killVertex(vi)
				if split == u || split == w ||
					!m.isCollinear(m.pt(u), m.pt(w), m.pt(split)) {
					continue
				}
			case siteOutside:
				m.killVertex(vi)
				continue
			default:
				m.steinerCount++
			}
			if _, err := m.flipLoop(q, nil); err != nil {
				return err
			}
			var ringIDs []int32
			for _, se := range m.segmentRingSubfaces(segID) {
				ringIDs = append(ringIDs, se.sh)
			}
			if err := m.splitShellsAtEdge(u, w, split, ShellEdge{sh: segID}, ringIDs, nil); err != nil {
				return err
			}
		}
	}
	return errors.New("segment recovery did not converge")
}
