package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	goutils "go.viam.com/utils"

	"go.viam.com/tetmesh/mesh"
)

// WriteMedit writes the mesh in the Medit .mesh format, readable by the
// Medit and Gmsh viewers. Elements are numbered from 1 and carry their
// boundary marks as references.
func WriteMedit(w io.Writer, out *mesh.Output) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "MeshVersionFormatted 1")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Dimension")
	fmt.Fprintln(bw, "3")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Vertices")
	fmt.Fprintln(bw, len(out.Points))
	for i, p := range out.Points {
		mark := int32(0)
		if i < len(out.PointMarks) {
			mark = out.PointMarks[i]
		}
		fmt.Fprintf(bw, "%.17g %.17g %.17g %d\n", p.X, p.Y, p.Z, mark)
	}
	if len(out.Edges) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Edges")
		fmt.Fprintln(bw, len(out.Edges))
		for i, e := range out.Edges {
			mark := int32(0)
			if i < len(out.EdgeMarks) {
				mark = out.EdgeMarks[i]
			}
			fmt.Fprintf(bw, "%d %d %d\n", e[0]+1, e[1]+1, mark)
		}
	}
	if len(out.Faces) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Triangles")
		fmt.Fprintln(bw, len(out.Faces))
		for i, f := range out.Faces {
			mark := int32(0)
			if i < len(out.FaceMarks) {
				mark = out.FaceMarks[i]
			}
			fmt.Fprintf(bw, "%d %d %d %d\n", f[0]+1, f[1]+1, f[2]+1, mark)
		}
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Tetrahedra")
	fmt.Fprintln(bw, len(out.Tetrahedra))
	for i, t := range out.Tetrahedra {
		ref := 0
		if out.TetAttrs != nil {
			ref = int(out.TetAttrs[i])
		}
		fmt.Fprintf(bw, "%d %d %d %d %d\n", t[0]+1, t[1]+1, t[2]+1, t[3]+1, ref)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// SaveMedit writes the mesh to the named .mesh file.
func SaveMedit(path string, out *mesh.Output) error {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return WriteMedit(f, out)
}
