package mesh

import (
	"github.com/golang/geo/r3"
)

// carveHoles removes every tetrahedron outside the domain: cells
// reachable from outer space without passing a subface, and cells
// reachable from a hole point. Region points then flood their attributes
// and volume constraints through what remains.
func (m *Mesh) carveHoles(holes []r3.Vector, regions []Region) error {
	var frontier []int32
	removed := 0
	infect := func(ti int32) {
		if ti == 0 || m.tetDead(ti) {
			return
		}
		if f := (TetFace{tet: ti}); !m.infected(f) {
			m.infect(f)
			frontier = append(frontier, ti)
			removed++
		}
	}

	// Every cell with an unprotected hull face lies outside.
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			if m.sym(f).isHull() && m.tspivot(f).isNone() {
				infect(ti)
				break
			}
		}
		return true
	})

	for _, h := range holes {
		search := m.recent
		if m.locate(h, &search) == Outside {
			m.logger.Debugw("hole point lies outside the hull", "point", h)
			continue
		}
		infect(search.tet)
	}

	// The plague spreads through faces no subface protects.
	for len(frontier) > 0 {
		ti := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			if !m.tspivot(f).isNone() {
				continue
			}
			if n := m.sym(f); !n.isHull() {
				infect(n.tet)
			}
		}
	}

	if m.opts.RegionAttrib || m.opts.VarVolume {
		m.floodRegions(regions)
	}

	m.removeInfected()
	m.nonconvex = true
	m.logger.Debugw("domain carved",
		"removed", removed,
		"remaining", m.tets.count(),
	)
	return nil
}

// floodRegions stamps each region's attribute and volume constraint on
// the cells its seed point reaches without crossing a subface. Infected
// cells are on their way out and take no stamp.
func (m *Mesh) floodRegions(regions []Region) {
	for _, r := range regions {
		search := m.recent
		if m.locate(r.Point, &search) == Outside || m.infected(search) {
			m.logger.Debugw("region point lies outside the domain", "point", r.Point)
			continue
		}
		visited := map[int32]bool{}
		stack := []int32{search.tet}
		for len(stack) > 0 {
			ti := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[ti] || m.tetDead(ti) {
				continue
			}
			if m.infected(TetFace{tet: ti}) {
				continue
			}
			visited[ti] = true
			t := m.tet(ti)
			if m.opts.RegionAttrib {
				t.attr = r.Attribute
				t.hasAttr = true
			}
			if m.opts.VarVolume && r.MaxVolume > 0 {
				t.maxVol = r.MaxVolume
				t.hasVol = true
			}
			for loc := int8(0); loc < 4; loc++ {
				f := TetFace{tet: ti, loc: loc}
				if !m.tspivot(f).isNone() {
					continue
				}
				if n := m.sym(f); !n.isHull() && !visited[n.tet] {
					stack = append(stack, n.tet)
				}
			}
		}
	}
}

// unlinkSubface removes the subface from every face ring and segment
// backlink it participates in, leaving its neighbors consistently linked.
func (m *Mesh) unlinkSubface(sh int32) {
	for ver := int8(0); ver < 6; ver += 2 {
		se := ShellEdge{sh: sh, ver: ver}
		nxt := m.spivot(se)
		if !nxt.isNone() && nxt.sh != sh {
			pred := nxt
			for i := 0; i < ringGuard; i++ {
				q := m.spivot(pred)
				if q.isNone() || (q.sh == sh && q.ver>>1 == se.ver>>1) {
					break
				}
				pred = q
			}
			m.sbond1(pred, nxt)
		}
		if seg := m.sspivot(se); !seg.isNone() {
			sgs := m.shell(seg.sh)
			if sgs.adj[2].sh() == sh {
				if !nxt.isNone() && nxt.sh != sh {
					sgs.adj[2] = encodeShell(nxt.sh, nxt.ver)
				} else {
					sgs.adj[2] = 0
				}
			}
		}
	}
}

// removeInfected deallocates the infected cells, detaching every boundary
// element and surviving neighbor first, then drops the shell elements and
// vertices that end up belonging to nothing.
func (m *Mesh) removeInfected() {
	var doomed []int32
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if !t.dead() && m.infected(TetFace{tet: ti}) {
			doomed = append(doomed, ti)
		}
		return true
	})
	for _, ti := range doomed {
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			if sub := m.tspivot(f); !sub.isNone() {
				s := m.shell(sub.sh)
				for side := 0; side < 2; side++ {
					if s.tet[side].tet() == ti {
						s.tet[side] = 0
					}
				}
			}
			n := m.sym(f)
			if n.isHull() || m.tetDead(n.tet) {
				continue
			}
			if !m.infected(n) {
				m.dissolve(n)
			}
		}
		m.killTet(ti)
	}

	// Subfaces with no cell on either side sat inside a hole; they go too,
	// along with subsegments whose whole face ring went.
	var deadSubs []int32
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.kind == kindSubface && !s.dead() && s.v[0] != noVertex &&
			m.tetDead(s.tet[0].tet()) && m.tetDead(s.tet[1].tet()) {
			deadSubs = append(deadSubs, i)
		}
		return true
	})
	for _, sh := range deadSubs {
		m.unlinkSubface(sh)
		m.killShell(sh)
	}
	var deadSegs []int32
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.kind == kindSubsegment && !s.dead() {
			if len(m.segmentRingSubfaces(i)) == 0 {
				deadSegs = append(deadSegs, i)
			}
		}
		return true
	})
	for _, sg := range deadSegs {
		m.killShell(sg)
	}

	// Rebuild the vertex backreferences and retire vertices nothing uses.
	m.verts.traverse(func(_ int32, v *vertex) bool {
		if !v.dead() {
			v.tet = 0
		}
		return true
	})
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		for _, vi := range t.v {
			m.vert(vi).tet = ti
		}
		return true
	})
	var orphans []int32
	m.verts.traverse(func(vi int32, v *vertex) bool {
		if !v.dead() && v.tet == 0 {
			orphans = append(orphans, vi)
		}
		return true
	})
	for _, vi := range orphans {
		switch m.vert(vi).typ {
		case DuplicateVertex, UnusedVertex:
		case InputVertex, AcuteVertex, NonacuteVertex, FacetVertex:
			m.vert(vi).typ = UnusedVertex
		default:
			m.killVertex(vi)
		}
	}

	// Point location must restart from a survivor.
	m.recent = hull
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		m.recent = TetFace{tet: ti}
		return false
	})
}
