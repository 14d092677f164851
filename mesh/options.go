package mesh

// Options is the read-only behavior configuration for one meshing run. The
// kernel never mutates it.
type Options struct {
	// PLC recovers the input piecewise-linear complex as a constrained
	// triangulation (segments and facets survive as subsegments/subfaces).
	PLC bool
	// Refine starts from the tetrahedral mesh carried by the input instead
	// of building a Delaunay triangulation from scratch.
	Refine bool
	// Quality runs Delaunay refinement until every tetrahedron's
	// radius-edge ratio is at most RadiusEdgeBound.
	Quality bool
	// RadiusEdgeBound is the quality target. Values below ~2.0 void the
	// termination guarantee for arbitrary input angles.
	RadiusEdgeBound float64
	// MaxVolume caps tetrahedron volume globally when positive.
	MaxVolume float64
	// VarVolume honors per-region volume constraints from the input.
	VarVolume bool
	// RegionAttrib stamps each tetrahedron with the attribute of the
	// region it belongs to.
	RegionAttrib bool
	// Epsilon is the relative tolerance for the coplanarity/collinearity
	// degeneracy tests used by boundary recovery.
	Epsilon float64
	// NoMerge keeps coplanar adjoining facets separate.
	NoMerge bool
	// NoFlips suppresses the Delaunay flip pass after refinement point
	// insertions; splits still happen, local optimality is not restored.
	NoFlips bool
	// DetectIntersections scans the input facets for self-intersections
	// before meshing and reports them.
	DetectIntersections bool
	// Check runs the internal consistency passes after each phase.
	Check bool
	// MaxSteinerPoints caps the number of inserted Steiner points; 0 means
	// unlimited. Refinement stops quietly at the cap; boundary recovery
	// fails instead, since a capped boundary cannot conform.
	MaxSteinerPoints int
	// MaxRefineIterations caps refinement loop iterations; 0 means
	// unlimited.
	MaxRefineIterations int
	// AcuteAngleDegrees is the bound below which two segments sharing a
	// vertex make it acute.
	AcuteAngleDegrees float64
	// Seed for the point-location sampling. Runs with equal seeds and
	// inputs are deterministic.
	Seed int64
}

// DefaultOptions returns the options used when a caller passes the zero
// value: plain Delaunay triangulation with conservative tolerances.
func DefaultOptions() Options {
	return Options{
		RadiusEdgeBound:   2.0,
		Epsilon:           1e-8,
		AcuteAngleDegrees: 60.0,
		Seed:              1,
	}
}

// withDefaults fills unset numeric fields so the kernel never divides by or
// compares against zero thresholds.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RadiusEdgeBound <= 0 {
		o.RadiusEdgeBound = d.RadiusEdgeBound
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	if o.AcuteAngleDegrees <= 0 {
		o.AcuteAngleDegrees = d.AcuteAngleDegrees
	}
	if o.Seed == 0 {
		o.Seed = d.Seed
	}
	return o
}
