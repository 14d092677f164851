package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// faceNormal returns the (unnormalized) normal of the triangle (a, b, c),
// pointing toward the side from which the corners appear counterclockwise.
func faceNormal(a, b, c r3.Vector) r3.Vector {
	return b.Sub(a).Cross(c.Sub(a))
}

// tetVolume returns the signed volume of the tetrahedron (a, b, c, d);
// positive when d lies below the oriented plane through a, b, c.
func tetVolume(a, b, c, d r3.Vector) float64 {
	ad := a.Sub(d)
	bd := b.Sub(d)
	cd := c.Sub(d)
	return ad.Dot(bd.Cross(cd)) / 6.0
}

// circumsphere computes the center and radius of the sphere through the
// four points. It reports false when the points are (nearly) coplanar and
// the linear system is unsolvable.
func circumsphere(a, b, c, d r3.Vector) (r3.Vector, float64, bool) {
	rows := [3]r3.Vector{b.Sub(a), c.Sub(a), d.Sub(a)}
	A := mat.NewDense(3, 3, []float64{
		rows[0].X, rows[0].Y, rows[0].Z,
		rows[1].X, rows[1].Y, rows[1].Z,
		rows[2].X, rows[2].Y, rows[2].Z,
	})
	rhs := mat.NewVecDense(3, []float64{
		0.5 * rows[0].Norm2(),
		0.5 * rows[1].Norm2(),
		0.5 * rows[2].Norm2(),
	})
	var x mat.VecDense
	if err := x.SolveVec(A, rhs); err != nil {
		return r3.Vector{}, 0, false
	}
	offset := r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	return a.Add(offset), offset.Norm(), true
}

// triCircumcenter computes the circumcenter and circumradius of the
// triangle (a, b, c) within its own plane.
func triCircumcenter(a, b, c r3.Vector) (r3.Vector, float64, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	n := ab.Cross(ac)
	A := mat.NewDense(3, 3, []float64{
		ab.X, ab.Y, ab.Z,
		ac.X, ac.Y, ac.Z,
		n.X, n.Y, n.Z,
	})
	rhs := mat.NewVecDense(3, []float64{
		0.5 * ab.Norm2(),
		0.5 * ac.Norm2(),
		0,
	})
	var x mat.VecDense
	if err := x.SolveVec(A, rhs); err != nil {
		return r3.Vector{}, 0, false
	}
	offset := r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	return a.Add(offset), offset.Norm(), true
}

// radiusEdgeRatioSq returns the squared ratio of the circumradius to the
// shortest edge of the tetrahedron, the quality measure refinement
// minimizes. Degenerate tetrahedra report +Inf.
func radiusEdgeRatioSq(a, b, c, d r3.Vector) float64 {
	_, r, ok := circumsphere(a, b, c, d)
	if !ok {
		return math.Inf(1)
	}
	shortest := math.Inf(1)
	pts := [4]r3.Vector{a, b, c, d}
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if d2 := pts[i].Sub(pts[j]).Norm2(); d2 < shortest {
				shortest = d2
			}
		}
	}
	if shortest == 0 {
		return math.Inf(1)
	}
	return r * r / shortest
}

// segmentProject returns the projection of p onto the line through e1, e2,
// clamped to the segment.
func segmentProject(p, e1, e2 r3.Vector) r3.Vector {
	dir := e2.Sub(e1)
	len2 := dir.Norm2()
	if len2 == 0 {
		return e1
	}
	t := p.Sub(e1).Dot(dir) / len2
	t = math.Max(0, math.Min(1, t))
	return e1.Add(dir.Mul(t))
}

// interiorAngle returns the angle at o formed by rays toward p1 and p2, in
// radians.
func interiorAngle(o, p1, p2 r3.Vector) float64 {
	u := p1.Sub(o)
	v := p2.Sub(o)
	denom := u.Norm() * v.Norm()
	if denom == 0 {
		return 0
	}
	cos := u.Dot(v) / denom
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// faceDihedral returns the dihedral angle, in radians, at the common edge
// (a, b) between the triangles (a, b, c1) and (a, b, c2).
func faceDihedral(a, b, c1, c2 r3.Vector) float64 {
	axis := b.Sub(a)
	len2 := axis.Norm2()
	if len2 == 0 {
		return 0
	}
	u := c1.Sub(a)
	u = u.Sub(axis.Mul(u.Dot(axis) / len2))
	v := c2.Sub(a)
	v = v.Sub(axis.Mul(v.Dot(axis) / len2))
	denom := u.Norm() * v.Norm()
	if denom == 0 {
		return 0
	}
	cos := u.Dot(v) / denom
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// isCollinear tests the three points for collinearity relative to the
// configured epsilon and the input extent.
func (m *Mesh) isCollinear(a, b, c r3.Vector) bool {
	ab := b.Sub(a)
	ac := c.Sub(a)
	cross := ab.Cross(ac)
	denom := ab.Norm() * ac.Norm()
	if denom == 0 {
		return true
	}
	return cross.Norm()/denom < m.opts.Epsilon
}

// isCoplanar tests the four points for coplanarity relative to the
// configured epsilon and the longest edge among them.
func (m *Mesh) isCoplanar(a, b, c, d r3.Vector) bool {
	vol6 := math.Abs(a.Sub(d).Dot(b.Sub(d).Cross(c.Sub(d))))
	l := math.Max(b.Sub(a).Norm(), c.Sub(a).Norm())
	l = math.Max(l, d.Sub(a).Norm())
	l = math.Max(l, c.Sub(b).Norm())
	l = math.Max(l, d.Sub(b).Norm())
	l = math.Max(l, d.Sub(c).Norm())
	if l == 0 {
		return true
	}
	return vol6/(l*l*l) < m.opts.Epsilon
}

// inDiametralSphere reports whether p lies strictly inside the smallest
// sphere through the segment endpoints. The test degrades to an angle test
// so no center is ever computed.
func inDiametralSphere(e1, e2, p r3.Vector) bool {
	return p.Sub(e1).Dot(p.Sub(e2)) < 0
}

// inEquatorialSphere reports whether p lies strictly inside the smallest
// sphere through the triangle's circumcircle.
func inEquatorialSphere(a, b, c, p r3.Vector) bool {
	center, r, ok := triCircumcenter(a, b, c)
	if !ok {
		return false
	}
	return p.Sub(center).Norm2() < r*r
}
