// Package predicates provides exact geometric orientation and in-sphere
// tests. Each test evaluates its determinant in floating point first and
// falls back to exact rational arithmetic only when the floating-point
// magnitude is too small to trust, so the common case stays fast while the
// returned sign is always exact.
package predicates

import (
	"math"
	"math/big"

	"github.com/golang/geo/r3"
)

// epsilon is the machine epsilon for float64, computed once at load time.
var epsilon = func() float64 {
	eps := 1.0
	for 1.0+eps/2.0 > 1.0 {
		eps /= 2.0
	}
	return eps
}()

// Error-bound coefficients for the floating-point filters, after Shewchuk.
var (
	o3dBoundC = (7.0 + 56.0*epsilon) * epsilon
	ispBoundC = (16.0 + 224.0*epsilon) * epsilon
	o2dBoundC = (3.0 + 16.0*epsilon) * epsilon
	iccBoundC = (10.0 + 96.0*epsilon) * epsilon
)

// Orient3D returns the sign of the oriented volume of the tetrahedron
// (a, b, c, d): positive if d lies below the plane through a, b, c (where
// a, b, c appear counterclockwise when viewed from above), negative if d
// lies above it, and zero if the four points are coplanar.
func Orient3D(a, b, c, d r3.Vector) int {
	adx, ady, adz := a.X-d.X, a.Y-d.Y, a.Z-d.Z
	bdx, bdy, bdz := b.X-d.X, b.Y-d.Y, b.Z-d.Z
	cdx, cdy, cdz := c.X-d.X, c.Y-d.Y, c.Z-d.Z

	bdxcdy := bdx * cdy
	cdxbdy := cdx * bdy
	cdxady := cdx * ady
	adxcdy := adx * cdy
	adxbdy := adx * bdy
	bdxady := bdx * ady

	det := adz*(bdxcdy-cdxbdy) + bdz*(cdxady-adxcdy) + cdz*(adxbdy-bdxady)

	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*math.Abs(adz) +
		(math.Abs(cdxady)+math.Abs(adxcdy))*math.Abs(bdz) +
		(math.Abs(adxbdy)+math.Abs(bdxady))*math.Abs(cdz)
	errBound := o3dBoundC * permanent
	if det > errBound {
		return 1
	}
	if det < -errBound {
		return -1
	}
	return orient3DExact(a, b, c, d)
}

// InSphere returns the sign of e relative to the circumsphere of the
// positively oriented tetrahedron (a, b, c, d): positive if e lies inside
// the sphere, negative if outside, zero if on it. The caller must ensure
// Orient3D(a, b, c, d) > 0, otherwise the sign is inverted.
func InSphere(a, b, c, d, e r3.Vector) int {
	aex, aey, aez := a.X-e.X, a.Y-e.Y, a.Z-e.Z
	bex, bey, bez := b.X-e.X, b.Y-e.Y, b.Z-e.Z
	cex, cey, cez := c.X-e.X, c.Y-e.Y, c.Z-e.Z
	dex, dey, dez := d.X-e.X, d.Y-e.Y, d.Z-e.Z

	ab := aex*bey - bex*aey
	bc := bex*cey - cex*bey
	cd := cex*dey - dex*cey
	da := dex*aey - aex*dey
	ac := aex*cey - cex*aey
	bd := bex*dey - dex*bey

	abc := aez*bc - bez*ac + cez*ab
	bcd := bez*cd - cez*bd + dez*bc
	cda := cez*da + dez*ac + aez*cd
	dab := dez*ab + aez*bd + bez*da

	alift := aex*aex + aey*aey + aez*aez
	blift := bex*bex + bey*bey + bez*bez
	clift := cex*cex + cey*cey + cez*cez
	dlift := dex*dex + dey*dey + dez*dez

	det := (dlift*abc - clift*dab) + (blift*cda - alift*bcd)

	aezplus := math.Abs(aez)
	bezplus := math.Abs(bez)
	cezplus := math.Abs(cez)
	dezplus := math.Abs(dez)
	aexbeyplus := math.Abs(aex * bey)
	bexaeyplus := math.Abs(bex * aey)
	bexceyplus := math.Abs(bex * cey)
	cexbeyplus := math.Abs(cex * bey)
	cexdeyplus := math.Abs(cex * dey)
	dexceyplus := math.Abs(dex * cey)
	dexaeyplus := math.Abs(dex * aey)
	aexdeyplus := math.Abs(aex * dey)
	aexceyplus := math.Abs(aex * cey)
	cexaeyplus := math.Abs(cex * aey)
	bexdeyplus := math.Abs(bex * dey)
	dexbeyplus := math.Abs(dex * bey)
	permanent := ((cexdeyplus+dexceyplus)*bezplus+
		(dexbeyplus+bexdeyplus)*cezplus+
		(bexceyplus+cexbeyplus)*dezplus)*alift +
		((dexaeyplus+aexdeyplus)*cezplus+
			(aexceyplus+cexaeyplus)*dezplus+
			(cexdeyplus+dexceyplus)*aezplus)*blift +
		((aexbeyplus+bexaeyplus)*dezplus+
			(bexdeyplus+dexbeyplus)*aezplus+
			(dexaeyplus+aexdeyplus)*bezplus)*clift +
		((bexceyplus+cexbeyplus)*aezplus+
			(cexaeyplus+aexceyplus)*bezplus+
			(aexbeyplus+bexaeyplus)*cezplus)*dlift
	errBound := ispBoundC * permanent
	if det > errBound {
		return 1
	}
	if det < -errBound {
		return -1
	}
	return inSphereExact(a, b, c, d, e)
}

// Orient2D returns the sign of the signed area of the triangle (a, b, c)
// projected on the XY plane: positive for counterclockwise order.
func Orient2D(ax, ay, bx, by, cx, cy float64) int {
	detLeft := (ax - cx) * (by - cy)
	detRight := (ay - cy) * (bx - cx)
	det := detLeft - detRight

	var detSum float64
	switch {
	case detLeft > 0:
		if detRight <= 0 {
			return sign(det)
		}
		detSum = detLeft + detRight
	case detLeft < 0:
		if detRight >= 0 {
			return sign(det)
		}
		detSum = -detLeft - detRight
	default:
		return sign(det)
	}
	errBound := o2dBoundC * detSum
	if det > errBound {
		return 1
	}
	if det < -errBound {
		return -1
	}
	return orient2DExact(ax, ay, bx, by, cx, cy)
}

// InCircle returns the sign of d relative to the circle through the
// counterclockwise triangle (a, b, c): positive if d lies inside the
// circle, negative if outside, zero if on it. With a clockwise triangle
// the sign is inverted.
func InCircle(ax, ay, bx, by, cx, cy, dx, dy float64) int {
	adx, ady := ax-dx, ay-dy
	bdx, bdy := bx-dx, by-dy
	cdx, cdy := cx-dx, cy-dy

	bdxcdy := bdx * cdy
	cdxbdy := cdx * bdy
	alift := adx*adx + ady*ady
	cdxady := cdx * ady
	adxcdy := adx * cdy
	blift := bdx*bdx + bdy*bdy
	adxbdy := adx * bdy
	bdxady := bdx * ady
	clift := cdx*cdx + cdy*cdy

	det := alift*(bdxcdy-cdxbdy) + blift*(cdxady-adxcdy) + clift*(adxbdy-bdxady)

	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*alift +
		(math.Abs(cdxady)+math.Abs(adxcdy))*blift +
		(math.Abs(adxbdy)+math.Abs(bdxady))*clift
	errBound := iccBoundC * permanent
	if det > errBound {
		return 1
	}
	if det < -errBound {
		return -1
	}
	return inCircleExact(ax, ay, bx, by, cx, cy, dx, dy)
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func rat(v float64) *big.Rat {
	return new(big.Rat).SetFloat64(v)
}

// det3 computes the exact 3x3 determinant of the rational matrix given in
// row-major order.
func det3(m [3][3]*big.Rat) *big.Rat {
	cof := func(a, b, c, d *big.Rat) *big.Rat {
		left := new(big.Rat).Mul(a, d)
		right := new(big.Rat).Mul(b, c)
		return left.Sub(left, right)
	}
	t0 := cof(m[1][1], m[1][2], m[2][1], m[2][2])
	t1 := cof(m[1][0], m[1][2], m[2][0], m[2][2])
	t2 := cof(m[1][0], m[1][1], m[2][0], m[2][1])
	t0.Mul(t0, m[0][0])
	t1.Mul(t1, m[0][1])
	t2.Mul(t2, m[0][2])
	t0.Sub(t0, t1)
	return t0.Add(t0, t2)
}

func orient3DExact(a, b, c, d r3.Vector) int {
	m := [3][3]*big.Rat{
		{rat(a.X - d.X), rat(a.Y - d.Y), rat(a.Z - d.Z)},
		{rat(b.X - d.X), rat(b.Y - d.Y), rat(b.Z - d.Z)},
		{rat(c.X - d.X), rat(c.Y - d.Y), rat(c.Z - d.Z)},
	}
	return det3(m).Sign()
}

func orient2DExact(ax, ay, bx, by, cx, cy float64) int {
	left := new(big.Rat).Mul(new(big.Rat).Sub(rat(ax), rat(cx)), new(big.Rat).Sub(rat(by), rat(cy)))
	right := new(big.Rat).Mul(new(big.Rat).Sub(rat(ay), rat(cy)), new(big.Rat).Sub(rat(bx), rat(cx)))
	return left.Sub(left, right).Sign()
}

func inCircleExact(ax, ay, bx, by, cx, cy, dx, dy float64) int {
	coords := [3][2]float64{{ax, ay}, {bx, by}, {cx, cy}}
	var rows [3][3]*big.Rat
	for i, p := range coords {
		x := new(big.Rat).Sub(rat(p[0]), rat(dx))
		y := new(big.Rat).Sub(rat(p[1]), rat(dy))
		lift := new(big.Rat).Mul(x, x)
		lift.Add(lift, new(big.Rat).Mul(y, y))
		rows[i] = [3]*big.Rat{x, y, lift}
	}
	return det3(rows).Sign()
}

func inSphereExact(a, b, c, d, e r3.Vector) int {
	rows := [4][4]*big.Rat{}
	pts := [4]r3.Vector{a, b, c, d}
	for i, p := range pts {
		x := rat(p.X - e.X)
		y := rat(p.Y - e.Y)
		z := rat(p.Z - e.Z)
		lift := new(big.Rat).Mul(x, x)
		lift.Add(lift, new(big.Rat).Mul(y, y))
		lift.Add(lift, new(big.Rat).Mul(z, z))
		rows[i] = [4]*big.Rat{x, y, z, lift}
	}
	// Cofactor expansion along the last column.
	det := new(big.Rat)
	for i := 0; i < 4; i++ {
		var sub [3][3]*big.Rat
		r := 0
		for j := 0; j < 4; j++ {
			if j == i {
				continue
			}
			sub[r][0] = rows[j][0]
			sub[r][1] = rows[j][1]
			sub[r][2] = rows[j][2]
			r++
		}
		term := det3(sub)
		term.Mul(term, rows[i][3])
		if (i+3)%2 == 1 {
			term.Neg(term)
		}
		det.Add(det, term)
	}
	return det.Sign()
}
