package predicates

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestOrient3D(t *testing.T) {
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 1, Y: 0, Z: 0}
	c := r3.Vector{X: 0, Y: 1, Z: 0}

	test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.3, Y: 0.3, Z: -1}), test.ShouldEqual, 1)
	test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.3, Y: 0.3, Z: 1}), test.ShouldEqual, -1)
	test.That(t, Orient3D(a, b, c, r3.Vector{X: 0.25, Y: 0.25, Z: 0}), test.ShouldEqual, 0)
}

func TestOrient3DDegenerate(t *testing.T) {
	// Nearly coplanar configurations whose float determinant underflows the
	// filter must still return an exact sign.
	a := r3.Vector{X: 1e-30, Y: 0, Z: 0}
	b := r3.Vector{X: 0, Y: 1e-30, Z: 0}
	c := r3.Vector{X: 1, Y: 1, Z: 0}
	d := r3.Vector{X: 0.5, Y: 0.5, Z: 1e-40}
	test.That(t, Orient3D(a, b, c, d), test.ShouldNotEqual, 0)
	test.That(t, Orient3D(a, b, c, d), test.ShouldEqual, -Orient3D(b, a, c, d))

	// Exactly coplanar, with coordinates that cancel badly in float.
	e := r3.Vector{X: 0.25, Y: 0.5, Z: 0.75}
	f := r3.Vector{X: 0.5, Y: 0.75, Z: 1}
	g := r3.Vector{X: 0.75, Y: 1, Z: 1.25}
	h := r3.Vector{X: 1.25, Y: 1.5, Z: 1.75}
	test.That(t, Orient3D(e, f, g, h), test.ShouldEqual, 0)
}

func TestInSphere(t *testing.T) {
	// Unit tetrahedron with positive orientation.
	a := r3.Vector{X: 0, Y: 0, Z: 0}
	b := r3.Vector{X: 1, Y: 0, Z: 0}
	c := r3.Vector{X: 0, Y: 1, Z: 0}
	d := r3.Vector{X: 0, Y: 0, Z: -1}
	test.That(t, Orient3D(a, b, c, d), test.ShouldEqual, 1)

	test.That(t, InSphere(a, b, c, d, r3.Vector{X: 0.25, Y: 0.25, Z: -0.25}), test.ShouldEqual, 1)
	test.That(t, InSphere(a, b, c, d, r3.Vector{X: 10, Y: 10, Z: 10}), test.ShouldEqual, -1)
	// A cospherical fifth point: the circumsphere of this tetrahedron has
	// center (0.5, 0.5, -0.5), so the mirrored corner lies exactly on it.
	test.That(t, InSphere(a, b, c, d, r3.Vector{X: 1, Y: 1, Z: 0}), test.ShouldEqual, 0)
}

func TestOrient2D(t *testing.T) {
	test.That(t, Orient2D(0, 0, 1, 0, 0, 1), test.ShouldEqual, 1)
	test.That(t, Orient2D(0, 0, 0, 1, 1, 0), test.ShouldEqual, -1)
	test.That(t, Orient2D(0, 0, 0.5, 0.5, 1, 1), test.ShouldEqual, 0)
}

func TestFilterAgreesWithExact(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		pts := make([]r3.Vector, 5)
		for j := range pts {
			pts[j] = r3.Vector{X: rnd.Float64(), Y: rnd.Float64(), Z: rnd.Float64()}
		}
		got := Orient3D(pts[0], pts[1], pts[2], pts[3])
		want := orient3DExact(pts[0], pts[1], pts[2], pts[3])
		test.That(t, got, test.ShouldEqual, want)
		if Orient3D(pts[0], pts[1], pts[2], pts[3]) > 0 {
			got = InSphere(pts[0], pts[1], pts[2], pts[3], pts[4])
			want = inSphereExact(pts[0], pts[1], pts[2], pts[3], pts[4])
			test.That(t, got, test.ShouldEqual, want)
		}
	}
}
