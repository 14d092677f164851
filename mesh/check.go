package mesh

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tetmesh/predicates"
)

// check runs every structural consistency pass and returns all findings
// at once.
func (m *Mesh) check() error {
	return multierr.Combine(m.checkCells(), m.checkShells())
}

// checkCells verifies cell orientation and mutual adjacency.
func (m *Mesh) checkCells() error {
	var errs error
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		a, b, c, d := m.pt(t.v[0]), m.pt(t.v[1]), m.pt(t.v[2]), m.pt(t.v[3])
		if predicates.Orient3D(a, b, c, d) >= 0 {
			errs = multierr.Append(errs, errors.Errorf(
				"tetrahedron %d (%d %d %d %d) is inverted or degenerate",
				ti, t.v[0], t.v[1], t.v[2], t.v[3]))
		}
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			n := m.sym(f)
			if n.isHull() {
				continue
			}
			if m.tetDead(n.tet) {
				errs = multierr.Append(errs, errors.Errorf(
					"tetrahedron %d face %d bonds to dead cell %d", ti, loc, n.tet))
				continue
			}
			back := m.sym(n)
			if back.tet != ti || back.loc != loc {
				errs = multierr.Append(errs, errors.Errorf(
					"tetrahedron %d face %d bond is not mutual with cell %d", ti, loc, n.tet))
				continue
			}
			k1 := makeFaceKey(m.org(f), m.dest(f), m.apex(f))
			k2 := makeFaceKey(m.org(n), m.dest(n), m.apex(n))
			if k1 != k2 {
				errs = multierr.Append(errs, errors.Errorf(
					"tetrahedron %d face %d and cell %d disagree on the shared triangle", ti, loc, n.tet))
			}
		}
		return true
	})
	return errs
}

// checkShells verifies subface cell bonds, face ring closure and the
// subsegment chain links.
func (m *Mesh) checkShells() error {
	var errs error
	m.shells.traverse(func(i int32, s *shell) bool {
		if s.dead() || s.v[0] == noVertex {
			return true
		}
		switch s.kind {
		case kindSubface:
			for side := 0; side < 2; side++ {
				ti := s.tet[side].tet()
				if ti == 0 {
					continue
				}
				if m.tetDead(ti) {
					errs = multierr.Append(errs, errors.Errorf(
						"subface %d side %d bonds to dead cell %d", i, side, ti))
					continue
				}
				f := TetFace{tet: ti, loc: s.tet[side].loc()}
				if back := m.tspivot(f); back.isNone() || back.sh != i {
					errs = multierr.Append(errs, errors.Errorf(
						"subface %d side %d bond is not mutual with cell %d", i, side, ti))
				}
			}
			for ver := int8(0); ver < 6; ver += 2 {
				se := ShellEdge{sh: i, ver: ver}
				cur := m.spivot(se)
				if cur.isNone() {
					continue
				}
				closed := false
				for step := 0; step < ringGuard; step++ {
					if m.shellDead(cur.sh) {
						errs = multierr.Append(errs, errors.Errorf(
							"subface %d edge %d rings through dead shell %d", i, ver>>1, cur.sh))
						closed = true
						break
					}
					if cur.sh == i && cur.ver>>1 == ver>>1 {
						closed = true
						break
					}
					cur = m.spivot(cur)
					if cur.isNone() {
						break
					}
				}
				if !closed {
					errs = multierr.Append(errs, errors.Errorf(
						"subface %d edge %d face ring does not close", i, ver>>1))
				}
			}
		case kindSubsegment:
			for side := 0; side < 2; side++ {
				nb := s.adj[side]
				if nb.sh() == 0 {
					continue
				}
				if m.shellDead(nb.sh()) {
					errs = multierr.Append(errs, errors.Errorf(
						"subsegment %d links to dead neighbor %d", i, nb.sh()))
					continue
				}
				n := m.shell(nb.sh())
				if n.kind != kindSubsegment {
					errs = multierr.Append(errs, errors.Errorf(
						"subsegment %d chain neighbor %d is not a subsegment", i, nb.sh()))
					continue
				}
				if n.v[0] != s.v[side] && n.v[1] != s.v[side] {
					errs = multierr.Append(errs, errors.Errorf(
						"subsegment %d and neighbor %d share no endpoint", i, nb.sh()))
				}
			}
			if ringSh := s.adj[2].sh(); ringSh != 0 && m.shellDead(ringSh) {
				errs = multierr.Append(errs, errors.Errorf(
					"subsegment %d face ring entry %d is dead", i, ringSh))
			}
		}
		return true
	})
	return errs
}

// checkDelaunay verifies the local Delaunay property on every interior
// face no subface protects. It only holds before boundary recovery
// carves the domain.
func (m *Mesh) checkDelaunay() error {
	var errs error
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			n := m.sym(f)
			if n.isHull() || n.tet < ti {
				continue // each face once
			}
			if !m.tspivot(f).isNone() {
				continue
			}
			d, e := m.oppo(f), m.oppo(n)
			if predicates.InSphere(
				m.pt(m.dest(f)), m.pt(m.org(f)), m.pt(m.apex(f)), m.pt(d), m.pt(e)) > 0 {
				errs = multierr.Append(errs, errors.Errorf(
					"face (%d %d %d) of tetrahedron %d is not locally Delaunay",
					m.org(f), m.dest(f), m.apex(f), ti))
			}
		}
		return true
	})
	return errs
}
