package mesh

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestMarkAcuteVertices(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	o := m.newVertex(r3.Vector{}, nil, 0, InputVertex)
	a := m.newVertex(r3.Vector{X: 1}, nil, 0, InputVertex)
	b := m.newVertex(r3.Vector{X: 1, Y: 1}, nil, 0, InputVertex)
	m.newShell(kindSubsegment, o, a, noVertex)
	m.newShell(kindSubsegment, o, b, noVertex)

	m.markAcuteVertices()

	// The 45 degree corner at o is below the 60 degree default bound.
	test.That(t, m.vert(o).typ, test.ShouldEqual, AcuteVertex)
	test.That(t, m.vert(a).typ, test.ShouldEqual, NonacuteVertex)
	test.That(t, m.vert(b).typ, test.ShouldEqual, NonacuteVertex)
}

func TestMarkAcuteVerticesWideAngle(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	o := m.newVertex(r3.Vector{}, nil, 0, InputVertex)
	a := m.newVertex(r3.Vector{X: 1}, nil, 0, InputVertex)
	b := m.newVertex(r3.Vector{X: -1, Y: 1}, nil, 0, InputVertex)
	m.newShell(kindSubsegment, o, a, noVertex)
	m.newShell(kindSubsegment, o, b, noVertex)

	m.markAcuteVertices()
	test.That(t, m.vert(o).typ, test.ShouldEqual, NonacuteVertex)
}

func TestSegmentSplitPointMiddleHalf(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	u := m.newVertex(r3.Vector{}, nil, 0, NonacuteVertex)
	w := m.newVertex(r3.Vector{X: 1}, nil, 0, NonacuteVertex)

	// A reference projecting into the middle half lands the split at its
	// projection.
	p := m.segmentSplitPoint(u, w, r3.Vector{X: 0.4, Y: 0.2}, true)
	test.That(t, p.X, test.ShouldAlmostEqual, 0.4, 1e-15)
	test.That(t, p.Y, test.ShouldEqual, 0)

	// A reference near an endpoint falls back to the midpoint.
	p = m.segmentSplitPoint(u, w, r3.Vector{X: 0.1}, true)
	test.That(t, p.X, test.ShouldAlmostEqual, 0.5, 1e-15)

	// No reference at all splits at the midpoint too.
	p = m.segmentSplitPoint(u, w, r3.Vector{}, false)
	test.That(t, p.X, test.ShouldAlmostEqual, 0.5, 1e-15)
}

func TestSegmentSplitPointAcuteProtection(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	u := m.newVertex(r3.Vector{}, nil, 0, AcuteVertex)
	w := m.newVertex(r3.Vector{X: 1}, nil, 0, NonacuteVertex)

	ref := r3.Vector{X: 0.3, Y: 0.1}
	p := m.segmentSplitPoint(u, w, ref, true)

	// The split lies on a power-of-two sphere around the acute endpoint,
	// within the allowed band of the segment length.
	r := p.Norm()
	test.That(t, r, test.ShouldAlmostEqual, 0.25, 1e-15)
	test.That(t, p.Y, test.ShouldEqual, 0)

	// With the acute endpoint on the other side the split mirrors.
	p = m.segmentSplitPoint(w, u, ref, true)
	test.That(t, p.Norm(), test.ShouldAlmostEqual, 0.25, 1e-15)

	// Radii stay inside [l/8, 3l/4) whatever the reference distance.
	for _, d := range []float64{0.001, 0.01, 0.49, 0.51, 0.99} {
		p := m.segmentSplitPoint(u, w, r3.Vector{X: d}, true)
		r := p.Norm()
		test.That(t, r, test.ShouldBeGreaterThanOrEqualTo, 0.125)
		test.That(t, r, test.ShouldBeLessThan, 0.75)
		frac := math.Log2(r)
		test.That(t, frac, test.ShouldAlmostEqual, math.Round(frac), 1e-12)
	}
}
