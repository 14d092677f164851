package mesh

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates one per-element measurement.
type Summary struct {
	Min, Max, Mean, StdDev float64
}

func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
		Mean:   mean,
		StdDev: std,
	}
}

// Statistics reports the element counts and shape measures of the mesh.
type Statistics struct {
	Vertices      int
	Tetrahedra    int
	Subfaces      int
	Subsegments   int
	HullFaces     int
	SteinerPoints int
	Duplicates    int

	Flip23, Flip32, Flip22, Flip44 int64

	TotalVolume     float64
	Volume          Summary
	RadiusEdgeRatio Summary
	DihedralDegrees Summary
	EdgeLength      Summary
}

// Statistics measures the current mesh. It walks every live element once.
func (m *Mesh) Statistics() Statistics {
	st := Statistics{
		Vertices:      m.verts.count(),
		Tetrahedra:    m.tets.count(),
		Subfaces:      m.subfaceCount,
		Subsegments:   m.subsegCount,
		SteinerPoints: m.steinerCount,
		Duplicates:    m.duplicateCount,
		Flip23:        m.flip23Count,
		Flip32:        m.flip32Count,
		Flip22:        m.flip22Count,
		Flip44:        m.flip44Count,
	}

	var vols, ratios, dihedrals, edges []float64
	m.tets.traverse(func(ti int32, t *tetra) bool {
		if t.dead() || t.v[3] == noVertex {
			return true
		}
		a, b, c, d := m.pt(t.v[0]), m.pt(t.v[1]), m.pt(t.v[2]), m.pt(t.v[3])
		vol := math.Abs(tetVolume(a, b, c, d))
		vols = append(vols, vol)
		st.TotalVolume += vol
		if r := radiusEdgeRatioSq(a, b, c, d); !math.IsInf(r, 1) {
			ratios = append(ratios, math.Sqrt(r))
		}
		for loc := int8(0); loc < 4; loc++ {
			f := TetFace{tet: ti, loc: loc}
			if m.sym(f).isHull() {
				st.HullFaces++
			}
		}
		corners := [4]r3.Vector{a, b, c, d}
		for _, ep := range tetEdgePairs {
			i, j := ep[0], ep[1]
			edges = append(edges, corners[i].Sub(corners[j]).Norm())
			var rest []int
			for k := 0; k < 4; k++ {
				if k != i && k != j {
					rest = append(rest, k)
				}
			}
			ang := faceDihedral(corners[i], corners[j], corners[rest[0]], corners[rest[1]])
			dihedrals = append(dihedrals, ang*180/math.Pi)
		}
		return true
	})

	st.Volume = summarize(vols)
	st.RadiusEdgeRatio = summarize(ratios)
	st.DihedralDegrees = summarize(dihedrals)
	st.EdgeLength = summarize(edges)
	return st
}
