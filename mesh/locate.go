package mesh

import (
	"github.com/golang/geo/r3"

	"go.viam.com/tetmesh/predicates"
)

// LocateResult reports where a query point fell.
type LocateResult int

const (
	// InTetrahedron means strictly inside a tetrahedron.
	InTetrahedron LocateResult = iota
	// OnFace means on the interior of a face.
	OnFace
	// OnEdge means on the interior of an edge.
	OnEdge
	// OnVertex means coincident with a mesh vertex.
	OnVertex
	// Outside means beyond the current hull.
	Outside
)

func (r LocateResult) String() string {
	switch r {
	case InTetrahedron:
		return "in-tetrahedron"
	case OnFace:
		return "on-face"
	case OnEdge:
		return "on-edge"
	case OnVertex:
		return "on-vertex"
	default:
		return "outside"
	}
}

// preciseLocate walks from search toward p, crossing any face p lies
// strictly beyond, until the containing cell (or the hull) is reached.
// On return search names the containing tetrahedron; for OnFace the face,
// for OnEdge the edge, for OnVertex a handle whose origin is the vertex,
// and for Outside the hull face the walk exited through. maxSteps bounds
// the walk; a zero return with search unchanged cannot happen, but a walk
// that exhausts its budget reports Outside with ok=false so the caller can
// restart from a fresh sample.
func (m *Mesh) preciseLocate(p r3.Vector, search *TetFace, maxSteps int) (LocateResult, bool) {
	cur := TetFace{tet: search.tet}
	for step := 0; step < maxSteps; step++ {
		var oris [4]int
		outward := make([]int8, 0, 4)
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: cur.tet, loc: loc}
			oris[loc] = predicates.Orient3D(m.pt(m.org(f)), m.pt(m.dest(f)), m.pt(m.apex(f)), p)
			if oris[loc] > 0 {
				outward = append(outward, loc)
			}
		}
		if len(outward) > 0 {
			// Randomize among the candidate exits so degenerate walks
			// cannot cycle deterministically.
			loc := outward[m.randomSample(len(outward))]
			next := m.sym(TetFace{tet: cur.tet, loc: loc})
			if next.isHull() {
				*search = TetFace{tet: cur.tet, loc: loc}
				return Outside, true
			}
			cur = next
			continue
		}
		// Inside or on the boundary of this tetrahedron.
		var zeros []int8
		for loc := int8(0); loc < 4; loc++ {
			if oris[loc] == 0 {
				zeros = append(zeros, loc)
			}
		}
		switch len(zeros) {
		case 0:
			*search = TetFace{tet: cur.tet}
			return InTetrahedron, true
		case 1:
			*search = TetFace{tet: cur.tet, loc: zeros[0]}
			return OnFace, true
		case 2:
			f := TetFace{tet: cur.tet, loc: zeros[0]}
			g := TetFace{tet: cur.tet, loc: zeros[1]}
			if e, ok := m.sharedEdge(f, g); ok {
				*search = e
				return OnEdge, true
			}
			*search = f
			return OnFace, true
		default:
			// Three zero faces meet at one corner: p is that vertex.
			v := m.cornerSharedBy(cur.tet, zeros)
			f := TetFace{tet: cur.tet}
			m.findOrgVer(&f, v)
			*search = f
			return OnVertex, true
		}
	}
	return Outside, false
}

// sharedEdge positions a handle on the edge common to two faces of the
// same tetrahedron.
func (m *Mesh) sharedEdge(f, g TetFace) (TetFace, bool) {
	for i := 0; i < 3; i++ {
		eo, ed := m.org(f), m.dest(f)
		for j := 0; j < 3; j++ {
			if m.org(g) == ed && m.dest(g) == eo {
				return f, true
			}
			g = enext(g)
		}
		f = enext(f)
	}
	return hull, false
}

// cornerSharedBy returns the corner of tet common to all faces in locs.
func (m *Mesh) cornerSharedBy(tet int32, locs []int8) int32 {
	counts := map[int32]int{}
	for _, loc := range locs {
		f := TetFace{tet: tet, loc: loc}
		counts[m.org(f)]++
		counts[m.dest(f)]++
		counts[m.apex(f)]++
	}
	for v, n := range counts {
		if n == len(locs) {
			return v
		}
	}
	return m.org(TetFace{tet: tet, loc: locs[0]})
}

// locate finds the cell containing p, warm-starting from the recently
// visited tetrahedron and falling back to the random-sampling scheme of
// Mücke, Saias and Zhu when the walk cycles or the hint is stale.
func (m *Mesh) locate(p r3.Vector, search *TetFace) LocateResult {
	start := *search
	if start.isHull() || m.tetDead(start.tet) {
		start = m.sampleStart(p)
	}
	budget := 4*m.tets.count() + 16
	for attempt := 0; attempt < 3; attempt++ {
		cand := start
		res, ok := m.preciseLocate(p, &cand, budget)
		if ok {
			*search = cand
			m.recent = cand
			return res
		}
		start = m.sampleStart(p)
	}
	// Exhaustive fallback; correct on any mesh, used only if the
	// stochastic walk failed repeatedly near a non-convex boundary.
	result := Outside
	m.tets.traverse(func(i int32, t *tetra) bool {
		cand := TetFace{tet: i}
		if res, ok := m.preciseLocate(p, &cand, 1); ok && res != Outside {
			*search = cand
			m.recent = cand
			result = res
			return false
		}
		return true
	})
	return result
}

// sampleStart inspects a random sample of live tetrahedra and returns the
// one whose first corner is nearest to p.
func (m *Mesh) sampleStart(p r3.Vector) TetFace {
	n := m.tets.count()
	samples := 1
	for sampleFactor*samples*samples*samples*samples < n {
		samples++
	}
	best := hull
	bestDist := 0.0
	seen := 0
	stride := n/samples + 1
	next := m.randomSample(stride)
	m.tets.traverse(func(i int32, t *tetra) bool {
		if seen == next {
			next += stride
			v := t.v[0]
			if v != noVertex {
				d := m.pt(v).Sub(p).Norm2()
				if best.isHull() || d < bestDist {
					best = TetFace{tet: i}
					bestDist = d
				}
			}
		}
		seen++
		return true
	})
	if best.isHull() {
		// Any live tetrahedron will do.
		m.tets.traverse(func(i int32, t *tetra) bool {
			best = TetFace{tet: i}
			return false
		})
	}
	return best
}
