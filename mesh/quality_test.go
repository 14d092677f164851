package mesh

import (
	"container/heap"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestBadTetHeapOrder(t *testing.T) {
	h := &badTetHeap{
		{tuple: [4]int32{1, 2, 3, 4}, ratio: 4.5},
		{tuple: [4]int32{5, 6, 7, 8}, ratio: 9.1},
		{tuple: [4]int32{2, 3, 4, 5}, ratio: 6.0},
	}
	heap.Init(h)
	heap.Push(h, badTet{tuple: [4]int32{9, 9, 9, 9}, ratio: 12.0})

	// Worst first.
	var got []float64
	for h.Len() > 0 {
		got = append(got, heap.Pop(h).(badTet).ratio)
	}
	test.That(t, got, test.ShouldResemble, []float64{12.0, 9.1, 6.0, 4.5})
}

func TestBoundaryQueueBinOrder(t *testing.T) {
	bq := &boundaryQueue{}
	bq.push(binSubPlain, boundaryItem{shell: 9})
	bq.push(binSegPlain, boundaryItem{shell: 5, isSeg: true})
	bq.push(binSegBothAcute, boundaryItem{shell: 1, isSeg: true})
	bq.push(binSegBothAcute, boundaryItem{shell: 2, isSeg: true})
	bq.push(binSubSharp, boundaryItem{shell: 7})
	bq.push(binSegSharp, boundaryItem{shell: 3, isSeg: true})

	var order []int32
	for it, ok := bq.pop(); ok; it, ok = bq.pop() {
		order = append(order, it.shell)
	}
	test.That(t, order, test.ShouldResemble, []int32{1, 2, 3, 5, 7, 9})
	test.That(t, bq.empty(), test.ShouldBeTrue)
}

func TestEncroachmentBins(t *testing.T) {
	m := New(DefaultOptions(), golog.NewTestLogger(t))
	acute := m.newVertex(r3.Vector{}, nil, 0, AcuteVertex)
	acute2 := m.newVertex(r3.Vector{X: 1}, nil, 0, AcuteVertex)
	plain := m.newVertex(r3.Vector{Y: 1}, nil, 0, NonacuteVertex)
	plain2 := m.newVertex(r3.Vector{Z: 1}, nil, 0, NonacuteVertex)

	both := m.newShell(kindSubsegment, acute, acute2, noVertex)
	test.That(t, m.segBin(m.shell(both)), test.ShouldEqual, binSegBothAcute)

	one := m.newShell(kindSubsegment, acute, plain, noVertex)
	test.That(t, m.segBin(m.shell(one)), test.ShouldEqual, binSegOneAcute)

	sharp := m.newShell(kindSubsegment, plain, plain2, noVertex)
	m.shell(sharp).segType = SharpSegment
	test.That(t, m.segBin(m.shell(sharp)), test.ShouldEqual, binSegSharp)

	none := m.newShell(kindSubsegment, plain, plain2, noVertex)
	test.That(t, m.segBin(m.shell(none)), test.ShouldEqual, binSegPlain)

	// A subface at an acute corner outranks a plain one.
	subAcute := m.newShell(kindSubface, acute, plain, plain2)
	test.That(t, m.subBin(subAcute, m.shell(subAcute)), test.ShouldEqual, binSubSharp)

	subPlain := m.newShell(kindSubface, plain, plain2, acute2)
	m.vert(acute2).typ = NonacuteVertex
	test.That(t, m.subBin(subPlain, m.shell(subPlain)), test.ShouldEqual, binSubPlain)

	// Bonding a sharp segment along an edge promotes the subface.
	se, ok := m.findShellEdge(subPlain, plain, plain2)
	test.That(t, ok, test.ShouldBeTrue)
	m.ssbond(se, ShellEdge{sh: sharp})
	test.That(t, m.subBin(subPlain, m.shell(subPlain)), test.ShouldEqual, binSubSharp)
}

func TestRefineMode(t *testing.T) {
	// Generate a cube mesh, then rebuild it from its corner tuples and
	// refine it under a volume bound.
	first := builtCube(t)
	out := first.Output()

	opts := DefaultOptions()
	opts.Refine = true
	opts.Quality = true
	opts.MaxVolume = 0.05
	opts.Check = true
	m := New(opts, golog.NewTestLogger(t))
	err := m.Build(&Input{
		Points:     out.Points,
		Tetrahedra: out.Tetrahedra,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumTetrahedra(), test.ShouldBeGreaterThan, len(out.Tetrahedra))
	test.That(t, m.totalVolume(), test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, m.check(), test.ShouldBeNil)
}

func TestRefineModeRejectsBadInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Refine = true
	logger := golog.NewTestLogger(t)

	err := New(opts, logger).Build(&Input{Points: cubePoints()})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "input tetrahedra")

	// A degenerate cell is refused.
	err = New(opts, logger).Build(&Input{
		Points:     cubePoints(),
		Tetrahedra: [][4]int{{0, 1, 2, 3}},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "degenerate")
}

func TestMaxSteinerPointsCapsRefinement(t *testing.T) {
	opts := DefaultOptions()
	opts.PLC = true
	opts.Quality = true
	opts.MaxVolume = 0.001
	opts.MaxSteinerPoints = 10
	in := &Input{Points: boxPoints(0, 1), Facets: boxFacets(0, 1)}

	m := New(opts, golog.NewTestLogger(t))
	test.That(t, m.Build(in), test.ShouldBeNil)
	test.That(t, m.steinerCount, test.ShouldBeLessThanOrEqualTo, 10)
}
