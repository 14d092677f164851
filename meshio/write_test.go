package meshio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/tetmesh/mesh"
)

func sampleOutput() *mesh.Output {
	return &mesh.Output{
		Points: []r3.Vector{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
		PointMarks: []int32{1, 1, 1, 0},
		Tetrahedra: [][4]int{{0, 1, 2, 3}},
		Faces:      [][3]int{{0, 1, 2}, {0, 1, 3}},
		FaceMarks:  []int32{5, 5},
		Edges:      [][2]int{{0, 1}},
		EdgeMarks:  []int32{9},
	}
}

func TestWriteNodeRoundTrip(t *testing.T) {
	out := sampleOutput()
	var buf bytes.Buffer
	test.That(t, WriteNode(&buf, out), test.ShouldBeNil)

	in, err := ReadNode(strings.NewReader(buf.String()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Points, test.ShouldResemble, out.Points)
	test.That(t, in.PointMarks, test.ShouldResemble, out.PointMarks)
}

func TestWriteElementFiles(t *testing.T) {
	out := sampleOutput()

	var ele bytes.Buffer
	test.That(t, WriteEle(&ele, out), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(ele.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldEqual, "1 4 0")
	test.That(t, lines[1], test.ShouldEqual, "1 1 2 3 4")

	var face bytes.Buffer
	test.That(t, WriteFace(&face, out), test.ShouldBeNil)
	lines = strings.Split(strings.TrimSpace(face.String()), "\n")
	test.That(t, lines[0], test.ShouldEqual, "2 1")
	test.That(t, lines[1], test.ShouldEqual, "1 1 2 3 5")

	var edge bytes.Buffer
	test.That(t, WriteEdge(&edge, out), test.ShouldBeNil)
	lines = strings.Split(strings.TrimSpace(edge.String()), "\n")
	test.That(t, lines[0], test.ShouldEqual, "1 1")
	test.That(t, lines[1], test.ShouldEqual, "1 1 2 9")
}

func TestSaveAllAndLoadInput(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "sample.1")
	out := sampleOutput()
	test.That(t, SaveAll(prefix, out), test.ShouldBeNil)

	for _, ext := range []string{".node", ".ele", ".face", ".edge"} {
		_, err := os.Stat(prefix + ext)
		test.That(t, err, test.ShouldBeNil)
	}

	in, err := LoadInput(prefix + ".node")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Points, test.ShouldResemble, out.Points)

	_, err = LoadInput(filepath.Join(dir, "sample.xyz"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported input extension")
}

func TestLoadInputPolyWithCompanionNode(t *testing.T) {
	dir := t.TempDir()
	nodeSrc := `4 3 0 0
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
`
	polySrc := `0 3 0 0
1 0
1
4  1 2 3 4
0
`
	test.That(t, os.WriteFile(filepath.Join(dir, "plate.node"), []byte(nodeSrc), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "plate.poly"), []byte(polySrc), 0o600), test.ShouldBeNil)

	in, err := LoadInput(filepath.Join(dir, "plate.poly"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in.Points, test.ShouldHaveLength, 4)
	test.That(t, in.Facets, test.ShouldHaveLength, 1)
	test.That(t, in.Facets[0].Polygons, test.ShouldResemble, [][]int{{0, 1, 2, 3}})
}

func TestWriteMedit(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, WriteMedit(&buf, sampleOutput()), test.ShouldBeNil)
	s := buf.String()
	test.That(t, s, test.ShouldContainSubstring, "MeshVersionFormatted 1")
	test.That(t, s, test.ShouldContainSubstring, "Vertices\n4\n")
	test.That(t, s, test.ShouldContainSubstring, "Triangles\n2\n")
	test.That(t, s, test.ShouldContainSubstring, "Tetrahedra\n1\n")
	test.That(t, s, test.ShouldContainSubstring, "1 2 3 4 0")
	test.That(t, s, test.ShouldContainSubstring, "End")
}
