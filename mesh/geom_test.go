package mesh

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestTetVolumeSign(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 1, Y: 0, Z: 0}
	c := r3.Vector{X: 0, Y: 1, Z: 0}

	below := r3.Vector{X: 0, Y: 0, Z: -1}
	above := r3.Vector{X: 0, Y: 0, Z: 1}
	test.That(t, tetVolume(a, b, c, below), test.ShouldAlmostEqual, 1.0/6, 1e-15)
	test.That(t, tetVolume(a, b, c, above), test.ShouldAlmostEqual, -1.0/6, 1e-15)
	test.That(t, tetVolume(a, b, c, c), test.ShouldEqual, 0)
}

func TestCircumsphere(t *testing.T) {
	ctr, r, ok := circumsphere(
		r3.Vector{X: 1}, r3.Vector{X: -1}, r3.Vector{Y: 1}, r3.Vector{Z: 1},
	)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ctr.Norm(), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, r, test.ShouldAlmostEqual, 1, 1e-12)

	_, _, ok = circumsphere(
		r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{X: 1, Y: 1},
	)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTriCircumcenter(t *testing.T) {
	ctr, r, ok := triCircumcenter(
		r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1},
	)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ctr.X, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, ctr.Y, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, ctr.Z, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, r, test.ShouldAlmostEqual, math.Sqrt2/2, 1e-12)

	_, _, ok = triCircumcenter(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRadiusEdgeRatio(t *testing.T) {
	// A regular tetrahedron achieves the minimum ratio sqrt(3/8).
	sq := radiusEdgeRatioSq(
		r3.Vector{X: 1, Y: 1, Z: 1},
		r3.Vector{X: 1, Y: -1, Z: -1},
		r3.Vector{X: -1, Y: 1, Z: -1},
		r3.Vector{X: -1, Y: -1, Z: 1},
	)
	test.That(t, sq, test.ShouldAlmostEqual, 3.0/8, 1e-12)

	flat := radiusEdgeRatioSq(
		r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{X: 1, Y: 1},
	)
	test.That(t, math.IsInf(flat, 1), test.ShouldBeTrue)
}

func TestSegmentProjectClamps(t *testing.T) {
	e1 := r3.Vector{}
	e2 := r3.Vector{X: 1}
	test.That(t, segmentProject(r3.Vector{X: 0.3, Y: 5}, e1, e2),
		test.ShouldResemble, r3.Vector{X: 0.3})
	test.That(t, segmentProject(r3.Vector{X: -2, Y: 1}, e1, e2), test.ShouldResemble, e1)
	test.That(t, segmentProject(r3.Vector{X: 7}, e1, e2), test.ShouldResemble, e2)
}

func TestAngles(t *testing.T) {
	o := r3.Vector{}
	test.That(t, interiorAngle(o, r3.Vector{X: 1}, r3.Vector{Y: 1}),
		test.ShouldAlmostEqual, math.Pi/2, 1e-12)
	test.That(t, interiorAngle(o, r3.Vector{X: 1}, r3.Vector{X: 1, Y: 1}),
		test.ShouldAlmostEqual, math.Pi/4, 1e-12)

	a, b := r3.Vector{}, r3.Vector{X: 1}
	test.That(t, faceDihedral(a, b, r3.Vector{Y: 1}, r3.Vector{Z: 1}),
		test.ShouldAlmostEqual, math.Pi/2, 1e-12)
	test.That(t, faceDihedral(a, b, r3.Vector{Y: 1}, r3.Vector{Y: -1}),
		test.ShouldAlmostEqual, math.Pi, 1e-12)
}

func TestProtectionSpheres(t *testing.T) {
	e1 := r3.Vector{}
	e2 := r3.Vector{X: 1}
	test.That(t, inDiametralSphere(e1, e2, r3.Vector{X: 0.5, Y: 0.1}), test.ShouldBeTrue)
	test.That(t, inDiametralSphere(e1, e2, r3.Vector{X: 0.5, Y: 0.6}), test.ShouldBeFalse)
	// The endpoints themselves are on the sphere, not inside.
	test.That(t, inDiametralSphere(e1, e2, e1), test.ShouldBeFalse)

	a, b, c := r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}
	test.That(t, inEquatorialSphere(a, b, c, r3.Vector{X: 0.5, Y: 0.5, Z: 0.3}), test.ShouldBeTrue)
	test.That(t, inEquatorialSphere(a, b, c, r3.Vector{X: 0.5, Y: 0.5, Z: 0.8}), test.ShouldBeFalse)
}

func TestDegeneracyTolerances(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	m.setBoundingBox([]r3.Vector{{}, {X: 1, Y: 1, Z: 1}})

	test.That(t, m.isCollinear(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2}), test.ShouldBeTrue)
	test.That(t, m.isCollinear(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2, Y: 1e-12}), test.ShouldBeTrue)
	test.That(t, m.isCollinear(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}), test.ShouldBeFalse)

	test.That(t, m.isCoplanar(
		r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{X: 1, Y: 1, Z: 1e-12},
	), test.ShouldBeTrue)
	test.That(t, m.isCoplanar(
		r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{Z: 1},
	), test.ShouldBeFalse)
}
