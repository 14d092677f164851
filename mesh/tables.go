package mesh

// Vertex and face correspondence of a tetrahedron (v0, v1, v2, v3), with v3
// above the oriented plane through v0, v1, v2:
//
//	f0 = (v0, v1, v2)   f1 = (v0, v3, v1)   f2 = (v1, v3, v2)   f3 = (v2, v3, v0)
//
// A face index loc (0..3) and an edge version ver (0..5) name one directed
// edge of one face. Even versions walk the face counterclockwise as seen
// from outside the tetrahedron, odd versions are the reversed edges. All
// navigation below is table lookup; the tables are fixed at compile time
// and reached only through the accessors, never indexed directly elsewhere.

// Successor of an edge version within its face 3-cycle.
var edgeNextTbl = [6]int8{2, 5, 4, 1, 0, 3}

// Face-local vertex slots (0, 1, 2) of the origin, destination and apex of
// each edge version.
var (
	verOrgTbl  = [6]int8{0, 1, 1, 2, 2, 0}
	verDestTbl = [6]int8{1, 0, 2, 1, 0, 2}
	verApexTbl = [6]int8{2, 2, 0, 0, 1, 1}
)

// Tetrahedron corner slots of the origin, destination and apex of edge
// version ver on face loc.
var (
	faceOrgTbl = [4][6]int8{
		{0, 1, 1, 2, 2, 0},
		{0, 3, 3, 1, 1, 0},
		{1, 3, 3, 2, 2, 1},
		{2, 3, 3, 0, 0, 2},
	}
	faceDestTbl = [4][6]int8{
		{1, 0, 2, 1, 0, 2},
		{3, 0, 1, 3, 0, 1},
		{3, 1, 2, 3, 1, 2},
		{3, 2, 0, 3, 2, 0},
	}
	faceApexTbl = [4][6]int8{
		{2, 2, 0, 0, 1, 1},
		{1, 1, 0, 0, 3, 3},
		{2, 2, 1, 1, 3, 3},
		{0, 0, 2, 2, 3, 3},
	}
)

// Corner slot opposite each face.
var faceOppoTbl = [4]int8{3, 2, 0, 1}

// The other face of the same tetrahedron sharing the directed edge
// (loc, ver), as a (loc, ver) pair. Only even versions have an in-tet
// successor; odd versions cross into the neighbor first.
var faceRingTbl = [4][6][2]int8{
	{{1, 5}, {-1, -1}, {2, 5}, {-1, -1}, {3, 5}, {-1, -1}},
	{{3, 3}, {-1, -1}, {2, 1}, {-1, -1}, {0, 1}, {-1, -1}},
	{{1, 3}, {-1, -1}, {3, 1}, {-1, -1}, {0, 3}, {-1, -1}},
	{{2, 3}, {-1, -1}, {1, 1}, {-1, -1}, {0, 5}, {-1, -1}},
}

// Cyclic successor/predecessor of a shell vertex or edge slot.
var (
	plus1Mod3  = [3]int8{1, 2, 0}
	minus1Mod3 = [3]int8{2, 0, 1}
)

func edgeNextVer(ver int8) int8           { return edgeNextTbl[ver] }
func edgePrevVer(ver int8) int8           { return edgeNextTbl[edgeNextTbl[ver]] }
func verOrgSlot(ver int8) int8            { return verOrgTbl[ver] }
func verDestSlot(ver int8) int8           { return verDestTbl[ver] }
func verApexSlot(ver int8) int8           { return verApexTbl[ver] }
func orgSlot(loc, ver int8) int8          { return faceOrgTbl[loc][ver] }
func destSlot(loc, ver int8) int8         { return faceDestTbl[loc][ver] }
func apexSlot(loc, ver int8) int8         { return faceApexTbl[loc][ver] }
func oppoSlot(loc int8) int8              { return faceOppoTbl[loc] }
func ringNext(loc, ver int8) (int8, int8) { return faceRingTbl[loc][ver][0], faceRingTbl[loc][ver][1] }
