package mesh

import "github.com/golang/geo/r3"

// VertexType classifies a mesh vertex. Input vertices are reclassified once
// (acute, non-acute, or facet-interior) when the boundary is analyzed; the
// free types mark Steiner points by the element dimension they were created
// on. Transitions are monotone: a free vertex may die, no vertex ever
// returns to an input type.
type VertexType int8

const (
	// InputVertex is a vertex read from input, not yet classified.
	InputVertex VertexType = iota
	// AcuteVertex joins two input segments at an angle below the acute bound.
	AcuteVertex
	// NonacuteVertex is an input segment vertex that is not acute.
	NonacuteVertex
	// FacetVertex lies on an input facet but on no segment.
	FacetVertex
	// FreeSegVertex is a Steiner point inserted on a segment.
	FreeSegVertex
	// FreeSubVertex is a Steiner point inserted on a facet.
	FreeSubVertex
	// FreeVolVertex is a Steiner point inserted in the interior.
	FreeVolVertex
	// DuplicateVertex coincides with an earlier vertex; pair names the
	// vertex it was remapped to.
	DuplicateVertex
	// UnusedVertex is an input vertex no tetrahedron references.
	UnusedVertex
	// DeadVertex marks a deallocated vertex slot.
	DeadVertex VertexType = -1
)

// SegmentType records whether two facets meeting at a subsegment form a
// dihedral angle below 90 degrees.
type SegmentType int8

const (
	// InputSegment is a subsegment not yet classified.
	InputSegment SegmentType = iota
	// SharpSegment has two incident facets meeting at an acute dihedral.
	SharpSegment
	// NonsharpSegment has no acute incident dihedral.
	NonsharpSegment
)

// shellKind tags the two uses of a shell record.
type shellKind uint8

const (
	kindSubface shellKind = iota
	kindSubsegment
)

const (
	flagDead     uint8 = 1 << 0
	flagInfected uint8 = 1 << 1
)

// noVertex fills unused corner slots.
const noVertex int32 = -1

// tetEncoding packs a (tetrahedron index, face index) pair into one word.
// The zero value encodes face 0 of the outer-space sentinel, so a zeroed
// adjacency slot reads as "hull" with no special casing.
type tetEncoding uint32

func encodeTet(tet int32, loc int8) tetEncoding {
	return tetEncoding(uint32(tet)<<2 | uint32(loc))
}

func (e tetEncoding) tet() int32 { return int32(e >> 2) }
func (e tetEncoding) loc() int8  { return int8(e & 3) }

// shellEncoding packs a (shell index, edge version) pair. The zero value
// encodes the omnipresent subface sentinel.
type shellEncoding uint32

func encodeShell(sh int32, ver int8) shellEncoding {
	return shellEncoding(uint32(sh)<<3 | uint32(ver))
}

func (e shellEncoding) sh() int32 { return int32(e >> 3) }
func (e shellEncoding) ver() int8 { return int8(e & 7) }

// tetra is one tetrahedron record: four corners, four neighbors indexed by
// face, four optional subface links, and the optional region payload.
type tetra struct {
	nbr     [4]tetEncoding
	sub     [4]shellEncoding
	v       [4]int32
	attr    float64 // region attribute, meaningful when hasAttr
	maxVol  float64
	flags   uint8
	hasAttr bool
	hasVol  bool
}

func (t *tetra) dead() bool { return t.flags&flagDead != 0 }

// shell is one subface or subsegment record, tagged by kind over a common
// edge-adjacency layout.
//
// As a subface: v are the three corners, adj the face-ring neighbors per
// edge, seg the subsegments per edge, tet the tetrahedra on each side.
// As a subsegment: v[0], v[1] are the endpoints, adj[0], adj[1] the
// collinear neighbor subsegments at each endpoint, tet unused, and adj[2]
// holds one subface of the segment's face ring.
type shell struct {
	adj     [3]shellEncoding
	seg     [3]shellEncoding
	tet     [2]tetEncoding
	v       [3]int32
	mark    int32
	facet   int32 // input facet the subface triangulates, -1 otherwise
	kind    shellKind
	segType SegmentType
	flags   uint8
}

func (s *shell) dead() bool { return s.flags&flagDead != 0 }

// vertex is one point record. tet backreferences some tetrahedron whose
// corners include the vertex, for warm-started point location; pair
// either remaps a rejected duplicate to the vertex it coincides with or
// links a free segment vertex to its segment origin.
type vertex struct {
	loc  r3.Vector
	attr []float64
	mark int32
	typ  VertexType
	tet  int32
	pair int32
}

func (v *vertex) dead() bool { return v.typ == DeadVertex }
