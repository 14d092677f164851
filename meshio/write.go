package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/tetmesh/mesh"
)

// WriteNode writes the points as a .node file, numbered from 1.
func WriteNode(w io.Writer, out *mesh.Output) error {
	bw := bufio.NewWriter(w)
	nattr := 0
	if len(out.PointAttrs) > 0 {
		nattr = len(out.PointAttrs[0])
	}
	nmark := 0
	if len(out.PointMarks) > 0 {
		nmark = 1
	}
	fmt.Fprintf(bw, "%d 3 %d %d\n", len(out.Points), nattr, nmark)
	for i, p := range out.Points {
		fmt.Fprintf(bw, "%d %.17g %.17g %.17g", i+1, p.X, p.Y, p.Z)
		if nattr > 0 {
			attrs := out.PointAttrs[i]
			for j := 0; j < nattr; j++ {
				v := 0.0
				if j < len(attrs) {
					v = attrs[j]
				}
				fmt.Fprintf(bw, " %.17g", v)
			}
		}
		if nmark > 0 {
			fmt.Fprintf(bw, " %d", out.PointMarks[i])
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteEle writes the tetrahedra as an .ele file, numbered from 1.
func WriteEle(w io.Writer, out *mesh.Output) error {
	bw := bufio.NewWriter(w)
	nattr := 0
	if out.TetAttrs != nil {
		nattr = 1
	}
	fmt.Fprintf(bw, "%d 4 %d\n", len(out.Tetrahedra), nattr)
	for i, t := range out.Tetrahedra {
		fmt.Fprintf(bw, "%d %d %d %d %d", i+1, t[0]+1, t[1]+1, t[2]+1, t[3]+1)
		if nattr > 0 {
			fmt.Fprintf(bw, " %.17g", out.TetAttrs[i])
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteFace writes the boundary triangles as a .face file, numbered
// from 1.
func WriteFace(w io.Writer, out *mesh.Output) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d 1\n", len(out.Faces))
	for i, f := range out.Faces {
		mark := int32(0)
		if i < len(out.FaceMarks) {
			mark = out.FaceMarks[i]
		}
		fmt.Fprintf(bw, "%d %d %d %d %d\n", i+1, f[0]+1, f[1]+1, f[2]+1, mark)
	}
	return bw.Flush()
}

// WriteEdge writes the boundary segments as an .edge file, numbered
// from 1.
func WriteEdge(w io.Writer, out *mesh.Output) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d 1\n", len(out.Edges))
	for i, e := range out.Edges {
		mark := int32(0)
		if i < len(out.EdgeMarks) {
			mark = out.EdgeMarks[i]
		}
		fmt.Fprintf(bw, "%d %d %d %d\n", i+1, e[0]+1, e[1]+1, mark)
	}
	return bw.Flush()
}

// SaveAll writes prefix.node, prefix.ele, prefix.face and prefix.edge.
func SaveAll(prefix string, out *mesh.Output) error {
	write := func(ext string, fn func(io.Writer, *mesh.Output) error) error {
		//nolint:gosec
		f, err := os.Create(prefix + ext)
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		if err := fn(f, out); err != nil {
			return errors.Wrapf(err, "writing %s%s", prefix, ext)
		}
		return nil
	}
	if err := write(".node", WriteNode); err != nil {
		return err
	}
	if err := write(".ele", WriteEle); err != nil {
		return err
	}
	if err := write(".face", WriteFace); err != nil {
		return err
	}
	return write(".edge", WriteEdge)
}
