package mesh

import "github.com/golang/geo/r3"

// Facet is one planar boundary facet of a piecewise linear complex: one or
// more closed polygons in a common plane, plus a point inside each hole the
// polygons enclose.
type Facet struct {
	Polygons [][]int
	Holes    []r3.Vector
	Mark     int32
}

// Region marks a volume of the domain with a regional attribute and an
// optional volume constraint (zero or negative means unconstrained).
type Region struct {
	Point     r3.Vector
	Attribute float64
	MaxVolume float64
}

// Input is a piecewise linear complex: the points, the boundary facets
// over them, hole points, and region points. Facets and their polygon
// edges define the subfaces and subsegments the mesh must conform to; an
// Input with no facets describes a bare point set.
type Input struct {
	Points     []r3.Vector
	PointAttrs [][]float64
	PointMarks []int32
	Facets     []Facet
	Holes      []r3.Vector
	Regions    []Region

	// Tetrahedra carries a previous mesh to refine instead of
	// triangulating from scratch; TetAttrs optionally carries one regional
	// attribute per cell.
	Tetrahedra [][4]int
	TetAttrs   []float64
}
