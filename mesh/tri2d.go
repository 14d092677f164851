package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/tetmesh/predicates"
)

// planarTri is the constrained Delaunay triangulator each input facet is
// meshed with, working in the facet's own plane coordinates. It carries
// three far-away corner points whose triangle encloses every input point;
// triangles reaching them are discarded during classification.
type planarTri struct {
	pts         [][2]float64
	super       int // index of the first of the three enclosing corners
	cells       []planarCell
	vertCell    []int
	constrained map[[2]int]bool
}

// planarCell is one triangle: counterclockwise corners and the neighbor
// opposite each corner (-1 when none).
type planarCell struct {
	v    [3]int
	nbr  [3]int
	dead bool
}

func edgePair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func newPlanarTri(pts [][2]float64) *planarTri {
	minX, maxX := pts[0][0], pts[0][0]
	minY, maxY := pts[0][1], pts[0][1]
	for _, p := range pts[1:] {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	span := maxX - minX
	if maxY-minY > span {
		span = maxY - minY
	}
	if span == 0 {
		span = 1
	}
	r := 16 * span
	t := &planarTri{
		pts:         append(append([][2]float64{}, pts...), [2]float64{cx - 2*r, cy - r}, [2]float64{cx + 2*r, cy - r}, [2]float64{cx, cy + 2*r}),
		super:       len(pts),
		constrained: map[[2]int]bool{},
	}
	t.vertCell = make([]int, len(t.pts))
	for i := range t.vertCell {
		t.vertCell[i] = -1
	}
	t.addCell(t.super, t.super+1, t.super+2, -1, -1, -1)
	return t
}

func (t *planarTri) addCell(a, b, c, na, nb, nc int) int {
	i := len(t.cells)
	t.cells = append(t.cells, planarCell{v: [3]int{a, b, c}, nbr: [3]int{na, nb, nc}})
	t.vertCell[a], t.vertCell[b], t.vertCell[c] = i, i, i
	return i
}

func (t *planarTri) orient(i, j int, p [2]float64) int {
	a, b := t.pts[i], t.pts[j]
	return predicates.Orient2D(a[0], a[1], b[0], b[1], p[0], p[1])
}

// setNbr points cell c's slot opposite corner index at n, and fixes the
// back link in n.
func (t *planarTri) link(c, slot, n int) {
	t.cells[c].nbr[slot] = n
	if n < 0 {
		return
	}
	a := t.cells[c].v[(slot+1)%3]
	b := t.cells[c].v[(slot+2)%3]
	nc := &t.cells[n]
	for i := 0; i < 3; i++ {
		x, y := nc.v[(i+1)%3], nc.v[(i+2)%3]
		if (x == a && y == b) || (x == b && y == a) {
			nc.nbr[i] = c
			return
		}
	}
}

// locateCell walks toward p and returns the containing cell together with
// the slot of an edge p lies on (-1 when strictly interior) and the corner
// p coincides with (-1 when none).
func (t *planarTri) locateCell(p [2]float64) (int, int, int, error) {
	cur := -1
	for i := len(t.cells) - 1; i >= 0; i-- {
		if !t.cells[i].dead {
			cur = i
			break
		}
	}
	if cur < 0 {
		return 0, 0, 0, errors.New("planar triangulation is empty")
	}
	for step := 0; step < 4*len(t.cells)+16; step++ {
		c := t.cells[cur]
		var oris [3]int
		moved := false
		for e := 0; e < 3; e++ {
			oris[e] = t.orient(c.v[(e+1)%3], c.v[(e+2)%3], p)
			if oris[e] < 0 {
				if c.nbr[e] < 0 {
					return 0, 0, 0, errors.New("walk left the enclosing triangle")
				}
				cur = c.nbr[e]
				moved = true
				break
			}
		}
		if moved {
			continue
		}
		zero := -1
		zeros := 0
		for e := 0; e < 3; e++ {
			if oris[e] == 0 {
				zero = e
				zeros++
			}
		}
		switch zeros {
		case 0:
			return cur, -1, -1, nil
		case 1:
			return cur, zero, -1, nil
		default:
			// On two edges at once: p is a corner.
			for i := 0; i < 3; i++ {
				if oris[(i+1)%3] == 0 && oris[(i+2)%3] == 0 {
					return cur, -1, c.v[i], nil
				}
			}
			return cur, zero, -1, nil
		}
	}
	return 0, 0, 0, errors.New("point location walk did not terminate")
}

// insert adds point pi to the triangulation and restores the Delaunay
// property around it.
func (t *planarTri) insert(pi int) error {
	c, edge, onVert, err := t.locateCell(t.pts[pi])
	if err != nil {
		return err
	}
	if onVert >= 0 {
		return errors.Errorf("duplicate facet point %d", pi)
	}
	var dirty []int
	if edge < 0 {
		dirty = t.split1to3(c, pi)
	} else {
		dirty = t.split2to4(c, edge, pi)
	}
	for _, d := range dirty {
		t.legalize(d, pi)
	}
	return nil
}

func (t *planarTri) split1to3(c, pi int) []int {
	old := t.cells[c]
	t.cells[c].dead = true
	n0 := t.addCell(old.v[0], old.v[1], pi, -1, -1, -1)
	n1 := t.addCell(old.v[1], old.v[2], pi, -1, -1, -1)
	n2 := t.addCell(old.v[2], old.v[0], pi, -1, -1, -1)
	t.link(n0, 2, old.nbr[2])
	t.link(n1, 2, old.nbr[0])
	t.link(n2, 2, old.nbr[1])
	t.link(n0, 0, n1)
	t.link(n1, 0, n2)
	t.link(n2, 0, n0)
	return []int{n0, n1, n2}
}

func (t *planarTri) split2to4(c, edge, pi int) []int {
	a := t.cells[c].v[(edge+1)%3]
	b := t.cells[c].v[(edge+2)%3]
	o := t.cells[c].v[edge]
	n := t.cells[c].nbr[edge]
	outA := t.cells[c].nbr[(edge+2)%3] // across (a, o)
	outB := t.cells[c].nbr[(edge+1)%3] // across (o, b)
	t.cells[c].dead = true
	c1 := t.addCell(a, pi, o, -1, -1, -1)
	c2 := t.addCell(pi, b, o, -1, -1, -1)
	t.link(c1, 1, outA)
	t.link(c2, 0, outB)
	t.link(c1, 0, c2)
	dirty := []int{c1, c2}
	if n >= 0 {
		nc := t.cells[n]
		no := 0
		for i, v := range nc.v {
			if v != a && v != b {
				no = i
			}
		}
		q := nc.v[no]
		nQA := nc.nbr[(no+1)%3] // across (a, q), opposite b
		nQB := nc.nbr[(no+2)%3] // across (q, b), opposite a
		if nc.v[(no+1)%3] == a {
			nQA, nQB = nc.nbr[(no+2)%3], nc.nbr[(no+1)%3]
		}
		t.cells[n].dead = true
		c3 := t.addCell(b, pi, q, -1, -1, -1)
		c4 := t.addCell(pi, a, q, -1, -1, -1)
		t.link(c3, 1, nQB)
		t.link(c4, 0, nQA)
		t.link(c3, 0, c4)
		t.link(c2, 2, c3)
		t.link(c4, 2, c1)
		dirty = append(dirty, c3, c4)
	}
	// Keep a constrained split edge constrained on both halves.
	if t.constrained[edgePair(a, b)] {
		delete(t.constrained, edgePair(a, b))
		t.constrained[edgePair(a, pi)] = true
		t.constrained[edgePair(pi, b)] = true
	}
	return dirty
}

// legalize flips the edge of c opposite pi if it fails the in-circle test,
// cascading outward. Constrained edges are never flipped.
func (t *planarTri) legalize(c, pi int) {
	if t.cells[c].dead {
		return
	}
	slot := -1
	for i, v := range t.cells[c].v {
		if v == pi {
			slot = i
		}
	}
	if slot < 0 {
		return
	}
	a := t.cells[c].v[(slot+1)%3]
	b := t.cells[c].v[(slot+2)%3]
	n := t.cells[c].nbr[slot]
	if n < 0 || t.constrained[edgePair(a, b)] {
		return
	}
	q := -1
	for _, v := range t.cells[n].v {
		if v != a && v != b {
			q = v
		}
	}
	pa, pb := t.pts[a], t.pts[b]
	pp, pq := t.pts[pi], t.pts[q]
	if predicates.InCircle(pp[0], pp[1], pa[0], pa[1], pb[0], pb[1], pq[0], pq[1]) <= 0 {
		return
	}
	c1, c2 := t.flip(c, slot, n, q)
	t.legalize(c1, pi)
	t.legalize(c2, pi)
}

// flip replaces the pair (c, n) sharing the edge opposite c's corner slot
// by the pair sharing the cross edge, returning the two new cells.
func (t *planarTri) flip(c, slot, n, q int) (int, int) {
	p := t.cells[c].v[slot]
	a := t.cells[c].v[(slot+1)%3]
	b := t.cells[c].v[(slot+2)%3]
	outPA := t.cells[c].nbr[(slot+2)%3]
	outPB := t.cells[c].nbr[(slot+1)%3]
	var outQA, outQB int
	nc := t.cells[n]
	for i, v := range nc.v {
		if v == q {
			x := nc.v[(i+1)%3]
			if x == b {
				outQB = nc.nbr[(i+2)%3]
				outQA = nc.nbr[(i+1)%3]
			} else {
				outQA = nc.nbr[(i+2)%3]
				outQB = nc.nbr[(i+1)%3]
			}
		}
	}
	t.cells[c].dead = true
	t.cells[n].dead = true
	c1 := t.addCell(p, a, q, -1, -1, -1)
	c2 := t.addCell(p, q, b, -1, -1, -1)
	t.link(c1, 0, outQA)
	t.link(c1, 2, outPA)
	t.link(c2, 0, outQB)
	t.link(c2, 1, outPB)
	t.link(c1, 1, c2)
	return c1, c2
}

// findEdge returns a live cell having the directed edge (a, b) and the
// slot opposite it.
func (t *planarTri) findEdge(a, b int) (int, int, bool) {
	for i, c := range t.cells {
		if c.dead {
			continue
		}
		for e := 0; e < 3; e++ {
			if c.v[(e+1)%3] == a && c.v[(e+2)%3] == b {
				return i, e, true
			}
		}
	}
	return 0, 0, false
}

// insertConstraint forces the edge (a, b) into the triangulation by
// flipping the edges crossing it, then marks it constrained. A vertex
// lying exactly on the segment splits the constraint at that vertex.
func (t *planarTri) insertConstraint(a, b int) error {
	for guard := 0; guard < ringGuard; guard++ {
		if _, _, ok := t.findEdge(a, b); ok {
			t.constrained[edgePair(a, b)] = true
			return nil
		}
		cross, slot, mid, err := t.firstCrossing(a, b)
		if err != nil {
			return err
		}
		if mid >= 0 {
			if err := t.insertConstraint(a, mid); err != nil {
				return err
			}
			return t.insertConstraint(mid, b)
		}
		x := t.cells[cross].v[(slot+1)%3]
		y := t.cells[cross].v[(slot+2)%3]
		if t.constrained[edgePair(x, y)] {
			return errors.Errorf("facet constraints (%d %d) and (%d %d) cross", a, b, x, y)
		}
		n := t.cells[cross].nbr[slot]
		if n < 0 {
			return errors.Errorf("constraint (%d %d) leaves the triangulation", a, b)
		}
		q := -1
		for _, v := range t.cells[n].v {
			if v != x && v != y {
				q = v
			}
		}
		// Flip only when the quad is strictly convex; otherwise flipping
		// another crossing edge first will make it so.
		p := t.cells[cross].v[slot]
		if t.orient(p, q, t.pts[x]) != 0 && t.orient(p, q, t.pts[y]) != 0 &&
			t.orient(p, q, t.pts[x]) != t.orient(p, q, t.pts[y]) {
			t.flip(cross, slot, n, q)
		} else {
			// Retry from the far side; some other crossing edge is
			// flippable.
			a, b = b, a
		}
	}
	return errors.Errorf("constraint (%d %d) could not be recovered", a, b)
}

// firstCrossing finds the triangle at a whose opposite edge crosses the
// open segment (a, b), or a vertex lying exactly on it.
func (t *planarTri) firstCrossing(a, b int) (int, int, int, error) {
	start := t.vertCell[a]
	if start < 0 || t.cells[start].dead {
		for i, c := range t.cells {
			if c.dead {
				continue
			}
			for _, v := range c.v {
				if v == a {
					start = i
				}
			}
		}
	}
	if start < 0 || t.cells[start].dead {
		return 0, 0, 0, errors.Errorf("vertex %d has no triangle", a)
	}
	// Walk the fan around a.
	visited := map[int]bool{}
	stack := []int{start}
	pb := t.pts[b]
	for len(stack) > 0 {
		ci := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if ci < 0 || visited[ci] || t.cells[ci].dead {
			continue
		}
		visited[ci] = true
		c := t.cells[ci]
		slot := -1
		for i, v := range c.v {
			if v == a {
				slot = i
			}
		}
		if slot < 0 {
			continue
		}
		x := c.v[(slot+1)%3]
		y := c.v[(slot+2)%3]
		ox := t.orient(a, b, t.pts[x])
		oy := t.orient(a, b, t.pts[y])
		if ox == 0 && t.between(a, b, x) {
			return ci, slot, x, nil
		}
		if oy == 0 && t.between(a, b, y) {
			return ci, slot, y, nil
		}
		if ox > 0 && oy < 0 {
			// The opposite edge straddles the segment line; it crosses the
			// segment iff b lies beyond it.
			if predicates.Orient2D(t.pts[x][0], t.pts[x][1], t.pts[y][0], t.pts[y][1], pb[0], pb[1]) < 0 {
				return ci, slot, -1, nil
			}
		}
		stack = append(stack, c.nbr[(slot+1)%3], c.nbr[(slot+2)%3])
	}
	return 0, 0, 0, errors.Errorf("no edge crosses constraint (%d %d)", a, b)
}

// between reports whether m projects strictly inside the segment (a, b);
// the three points are already collinear.
func (t *planarTri) between(a, b, m int) bool {
	pa, pb, pm := t.pts[a], t.pts[b], t.pts[m]
	dx, dy := pb[0]-pa[0], pb[1]-pa[1]
	s := (pm[0]-pa[0])*dx + (pm[1]-pa[1])*dy
	return s > 0 && s < dx*dx+dy*dy
}

// interiorCells returns the live triangles inside the facet: triangles
// connected to an enclosing corner, or reachable from a hole point without
// crossing a constrained edge, are dropped.
func (t *planarTri) interiorCells(holes [][2]float64) ([][3]int, error) {
	drop := make([]bool, len(t.cells))
	var spread func(ci int)
	spread = func(ci int) {
		stack := []int{ci}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if i < 0 || drop[i] || t.cells[i].dead {
				continue
			}
			drop[i] = true
			c := t.cells[i]
			for e := 0; e < 3; e++ {
				if !t.constrained[edgePair(c.v[(e+1)%3], c.v[(e+2)%3])] {
					stack = append(stack, c.nbr[e])
				}
			}
		}
	}
	for i, c := range t.cells {
		if c.dead || drop[i] {
			continue
		}
		for _, v := range c.v {
			if v >= t.super {
				spread(i)
				break
			}
		}
	}
	for _, h := range holes {
		ci, _, _, err := t.locateCell(h)
		if err != nil {
			return nil, err
		}
		spread(ci)
	}
	var out [][3]int
	for i, c := range t.cells {
		if !c.dead && !drop[i] {
			out = append(out, c.v)
		}
	}
	return out, nil
}
