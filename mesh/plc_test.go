package mesh

import (
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// boxFacets returns the six square facets of a box whose corners occupy
// indices base..base+7 in the point list, in cubePoints order.
func boxFacets(base int, mark int32) []Facet {
	quads := [6][4]int{
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{0, 1, 5, 4},
		{1, 2, 6, 5},
		{2, 3, 7, 6},
		{3, 0, 4, 7},
	}
	fs := make([]Facet, 0, 6)
	for _, q := range quads {
		poly := []int{q[0] + base, q[1] + base, q[2] + base, q[3] + base}
		fs = append(fs, Facet{Polygons: [][]int{poly}, Mark: mark})
	}
	return fs
}

func boxPoints(lo, hi float64) []r3.Vector {
	return []r3.Vector{
		{X: lo, Y: lo, Z: lo},
		{X: hi, Y: lo, Z: lo},
		{X: hi, Y: hi, Z: lo},
		{X: lo, Y: hi, Z: lo},
		{X: lo, Y: lo, Z: hi},
		{X: hi, Y: lo, Z: hi},
		{X: hi, Y: hi, Z: hi},
		{X: lo, Y: hi, Z: hi},
	}
}

func TestTetrahedralizeCubePLC(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.Check = true
	in := &Input{Points: boxPoints(0, 1), Facets: boxFacets(0, 1)}

	out, err := Tetrahedralize(opts, in, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Points, test.ShouldHaveLength, 8)
	// Each square facet triangulates into two boundary triangles, and the
	// twelve box edges survive as boundary segments.
	test.That(t, out.Faces, test.ShouldHaveLength, 12)
	test.That(t, out.Edges, test.ShouldHaveLength, 12)
	for _, mk := range out.FaceMarks {
		test.That(t, mk, test.ShouldEqual, int32(1))
	}

	var vol float64
	for _, tet := range out.Tetrahedra {
		vol += math.Abs(tetVolume(
			out.Points[tet[0]], out.Points[tet[1]], out.Points[tet[2]], out.Points[tet[3]],
		))
	}
	test.That(t, vol, test.ShouldAlmostEqual, 1.0, 1e-12)
}

func TestCarveCubeWithCavity(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.Check = true
	pts := append(boxPoints(0, 1), boxPoints(0.25, 0.75)...)
	facets := append(boxFacets(0, 1), boxFacets(8, 2)...)
	in := &Input{
		Points: pts,
		Facets: facets,
		Holes:  []r3.Vector{{X: 0.5, Y: 0.5, Z: 0.5}},
	}

	m := New(opts, golog.NewTestLogger(t))
	test.That(t, m.Build(in), test.ShouldBeNil)

	// The inner box is carved out of the domain.
	test.That(t, m.totalVolume(), test.ShouldAlmostEqual, 1.0-0.125, 1e-9)
	test.That(t, m.check(), test.ShouldBeNil)

	// No cell survives at the cavity center.
	search := m.recent
	p := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	test.That(t, m.locate(p, &search), test.ShouldEqual, Outside)
}

func TestRegionAttributes(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.RegionAttrib = true
	in := &Input{
		Points: boxPoints(0, 1),
		Facets: boxFacets(0, 1),
		Regions: []Region{
			{Point: r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, Attribute: 7},
		},
	}

	out, err := Tetrahedralize(opts, in, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.TetAttrs, test.ShouldHaveLength, len(out.Tetrahedra))
	for _, a := range out.TetAttrs {
		test.That(t, a, test.ShouldEqual, 7.0)
	}
}

func TestQualityBoundHolds(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.Quality = true
	opts.Check = true
	in := &Input{Points: boxPoints(0, 1), Facets: boxFacets(0, 1)}

	m := New(opts, golog.NewTestLogger(t))
	test.That(t, m.Build(in), test.ShouldBeNil)

	st := m.Statistics()
	test.That(t, st.RadiusEdgeRatio.Max, test.ShouldBeLessThanOrEqualTo, opts.RadiusEdgeBound+1e-9)
	test.That(t, st.TotalVolume, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestVolumeConstraintRefines(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.Quality = true
	opts.MaxVolume = 0.02
	opts.Check = true
	in := &Input{Points: boxPoints(0, 1), Facets: boxFacets(0, 1)}

	m := New(opts, golog.NewTestLogger(t))
	test.That(t, m.Build(in), test.ShouldBeNil)

	// Refinement must add points, keep the domain intact, and stay
	// consistent.
	test.That(t, m.NumTetrahedra(), test.ShouldBeGreaterThan, 6)
	test.That(t, m.steinerCount, test.ShouldBeGreaterThan, 0)
	test.That(t, m.totalVolume(), test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, m.check(), test.ShouldBeNil)
}

func TestStatisticsOnCube(t *testing.T) {
	m := builtCube(t)
	st := m.Statistics()

	test.That(t, st.Vertices, test.ShouldEqual, 8)
	test.That(t, st.Tetrahedra, test.ShouldEqual, m.NumTetrahedra())
	test.That(t, st.TotalVolume, test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, st.Volume.Min, test.ShouldBeGreaterThan, 0)
	test.That(t, st.EdgeLength.Min, test.ShouldAlmostEqual, 1.0, 1e-12)
	// The longest edge is a face diagonal or, with the six-cell
	// triangulation, the main diagonal.
	test.That(t, st.EdgeLength.Max, test.ShouldBeBetweenOrEqual, math.Sqrt2-1e-12, math.Sqrt(3)+1e-12)
	test.That(t, st.DihedralDegrees.Min, test.ShouldBeGreaterThan, 0)
	test.That(t, st.DihedralDegrees.Max, test.ShouldBeLessThan, 180)
	test.That(t, st.RadiusEdgeRatio.Max, test.ShouldBeLessThan, 1)
}
