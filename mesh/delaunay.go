package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"
)

// delaunize builds the Delaunay tetrahedralization of the given vertices
// by randomized incremental insertion with flip-based legalization.
func (m *Mesh) delaunize(verts []int32) error {
	if len(verts) < 4 {
		return errors.Errorf("need at least 4 points, have %d", len(verts))
	}
	order := make([]int32, len(verts))
	copy(order, verts)
	m.rnd.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	first, err := m.initialTet(order)
	if err != nil {
		return err
	}
	used := map[int32]bool{}
	for _, v := range first {
		used[v] = true
	}

	q := &flipQueue{}
	search := m.recent
	inserted := 4
	for _, vi := range order {
		if used[vi] {
			continue
		}
		res, err := m.insertSite(vi, &search, true, q, nil)
		if err != nil {
			return errors.Wrapf(err, "inserting point %d", vi)
		}
		if res == siteDuplicate {
			continue
		}
		if _, err := m.flipLoop(q, nil); err != nil {
			return errors.Wrapf(err, "legalizing after point %d", vi)
		}
		inserted++
	}
	m.logger.Debugw("delaunay triangulation built",
		"points", inserted,
		"tetrahedra", m.tets.count(),
		"duplicates", m.duplicateCount,
	)
	return nil
}

// initialTet picks four affinely independent vertices from order, creates
// the first tetrahedron over them, and returns them.
func (m *Mesh) initialTet(order []int32) ([4]int32, error) {
	var picked [4]int32
	tol := m.longest * m.opts.Epsilon

	picked[0] = order[0]
	p0 := m.pt(picked[0])

	i1 := -1
	for i := 1; i < len(order); i++ {
		if m.pt(order[i]).Sub(p0).Norm() > tol {
			i1 = i
			break
		}
	}
	if i1 < 0 {
		return picked, errors.New("all input points coincide")
	}
	picked[1] = order[i1]
	p1 := m.pt(picked[1])

	i2 := -1
	for i := i1 + 1; i < len(order); i++ {
		if !m.isCollinear(p0, p1, m.pt(order[i])) {
			i2 = i
			break
		}
	}
	if i2 < 0 {
		return picked, errors.New("all input points are collinear")
	}
	picked[2] = order[i2]
	p2 := m.pt(picked[2])

	i3 := -1
	ori := 0
	for i := i2 + 1; i < len(order); i++ {
		ori = predicates.Orient3D(p0, p1, p2, m.pt(order[i]))
		if ori != 0 {
			i3 = i
			break
		}
	}
	if i3 < 0 {
		return picked, errors.New("all input points are coplanar")
	}
	picked[3] = order[i3]
	if ori > 0 {
		picked[0], picked[1] = picked[1], picked[0]
	}

	ti := m.newTet(picked[0], picked[1], picked[2], picked[3])
	m.bond(TetFace{tet: ti}, hull)
	m.recent = TetFace{tet: ti}
	return picked, nil
}
