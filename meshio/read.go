package meshio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/tetmesh/mesh"
)

// ReadNode reads a .node point list.
func ReadNode(r io.Reader) (*mesh.Input, error) {
	ls := newLineScanner(r)
	in, _, err := readNodeSection(ls)
	return in, err
}

// readNodeSection parses the point block shared by .node, .poly and
// .smesh files and returns the index base the file counts from.
func readNodeSection(ls *lineScanner) (*mesh.Input, int, error) {
	header, err := ls.next()
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading point header")
	}
	if len(header) < 1 {
		return nil, 0, ls.errorf("malformed point header")
	}
	n, err := parseInt(ls, header[0])
	if err != nil {
		return nil, 0, err
	}
	dim, nattr, nmark := 3, 0, 0
	if len(header) > 1 {
		if dim, err = parseInt(ls, header[1]); err != nil {
			return nil, 0, err
		}
	}
	if dim != 3 {
		return nil, 0, ls.errorf("dimension %d not supported, need 3", dim)
	}
	if len(header) > 2 {
		if nattr, err = parseInt(ls, header[2]); err != nil {
			return nil, 0, err
		}
	}
	if len(header) > 3 {
		if nmark, err = parseInt(ls, header[3]); err != nil {
			return nil, 0, err
		}
	}

	in := &mesh.Input{Points: make([]r3.Vector, 0, n)}
	if nattr > 0 {
		in.PointAttrs = make([][]float64, 0, n)
	}
	if nmark > 0 {
		in.PointMarks = make([]int32, 0, n)
	}
	base := 0
	for i := 0; i < n; i++ {
		fields, err := ls.next()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "reading point %d of %d", i+1, n)
		}
		want := 4 + nattr + nmark
		if len(fields) < want {
			return nil, 0, ls.errorf("point record has %d fields, need %d", len(fields), want)
		}
		idx, err := parseInt(ls, fields[0])
		if err != nil {
			return nil, 0, err
		}
		if i == 0 {
			base = idx
		}
		var p r3.Vector
		if p.X, err = parseFloat(ls, fields[1]); err != nil {
			return nil, 0, err
		}
		if p.Y, err = parseFloat(ls, fields[2]); err != nil {
			return nil, 0, err
		}
		if p.Z, err = parseFloat(ls, fields[3]); err != nil {
			return nil, 0, err
		}
		in.Points = append(in.Points, p)
		if nattr > 0 {
			attrs := make([]float64, nattr)
			for j := 0; j < nattr; j++ {
				if attrs[j], err = parseFloat(ls, fields[4+j]); err != nil {
					return nil, 0, err
				}
			}
			in.PointAttrs = append(in.PointAttrs, attrs)
		}
		if nmark > 0 {
			mark, err := parseInt(ls, fields[4+nattr])
			if err != nil {
				return nil, 0, err
			}
			in.PointMarks = append(in.PointMarks, int32(mark))
		}
	}
	return in, base, nil
}

// ReadPoly reads a .poly piecewise linear complex. When the file carries
// no inline points, nodes supplies them (from the companion .node file)
// and nodeBase gives the index the node file counted from.
func ReadPoly(r io.Reader, nodes *mesh.Input, nodeBase int) (*mesh.Input, error) {
	return readPLC(r, nodes, nodeBase, false)
}

// ReadSMesh reads a .smesh piecewise linear complex, the single-polygon
// simplification of .poly.
func ReadSMesh(r io.Reader, nodes *mesh.Input, nodeBase int) (*mesh.Input, error) {
	return readPLC(r, nodes, nodeBase, true)
}

func readPLC(r io.Reader, nodes *mesh.Input, nodeBase int, simple bool) (*mesh.Input, error) {
	ls := newLineScanner(r)
	in, base, err := readNodeSection(ls)
	if err != nil {
		return nil, err
	}
	if len(in.Points) == 0 {
		if nodes == nil {
			return nil, errors.New("file has no inline points and no .node input was supplied")
		}
		in.Points = nodes.Points
		in.PointAttrs = nodes.PointAttrs
		in.PointMarks = nodes.PointMarks
		base = nodeBase
	}
	resolve := func(idx int) (int, error) {
		idx -= base
		if idx < 0 || idx >= len(in.Points) {
			return 0, ls.errorf("point index %d out of range", idx+base)
		}
		return idx, nil
	}

	header, err := ls.next()
	if err != nil {
		return nil, errors.Wrap(err, "reading facet header")
	}
	nf, err := parseInt(ls, header[0])
	if err != nil {
		return nil, err
	}
	markFlag := 0
	if len(header) > 1 {
		if markFlag, err = parseInt(ls, header[1]); err != nil {
			return nil, err
		}
	}

	for i := 0; i < nf; i++ {
		var f mesh.Facet
		if simple {
			fields, err := ls.next()
			if err != nil {
				return nil, errors.Wrapf(err, "reading facet %d of %d", i+1, nf)
			}
			nc, err := parseInt(ls, fields[0])
			if err != nil {
				return nil, err
			}
			if len(fields) < 1+nc {
				return nil, ls.errorf("facet has %d corners, found %d fields", nc, len(fields)-1)
			}
			poly := make([]int, nc)
			for j := 0; j < nc; j++ {
				raw, err := parseInt(ls, fields[1+j])
				if err != nil {
					return nil, err
				}
				if poly[j], err = resolve(raw); err != nil {
					return nil, err
				}
			}
			f.Polygons = [][]int{poly}
			if markFlag > 0 && len(fields) > 1+nc {
				mark, err := parseInt(ls, fields[1+nc])
				if err != nil {
					return nil, err
				}
				f.Mark = int32(mark)
			}
		} else {
			fields, err := ls.next()
			if err != nil {
				return nil, errors.Wrapf(err, "reading facet %d of %d", i+1, nf)
			}
			counts, err := parseInts(ls, fields)
			if err != nil {
				return nil, err
			}
			np := counts[0]
			nh := 0
			if len(counts) > 1 {
				nh = counts[1]
			}
			if markFlag > 0 && len(counts) > 2 {
				f.Mark = int32(counts[2])
			}
			for j := 0; j < np; j++ {
				pf, err := ls.next()
				if err != nil {
					return nil, errors.Wrapf(err, "reading polygon %d of facet %d", j+1, i+1)
				}
				nc, err := parseInt(ls, pf[0])
				if err != nil {
					return nil, err
				}
				if len(pf) < 1+nc {
					return nil, ls.errorf("polygon has %d corners, found %d fields", nc, len(pf)-1)
				}
				poly := make([]int, nc)
				for k := 0; k < nc; k++ {
					raw, err := parseInt(ls, pf[1+k])
					if err != nil {
						return nil, err
					}
					if poly[k], err = resolve(raw); err != nil {
						return nil, err
					}
				}
				f.Polygons = append(f.Polygons, poly)
			}
			for j := 0; j < nh; j++ {
				hf, err := ls.next()
				if err != nil {
					return nil, errors.Wrapf(err, "reading hole %d of facet %d", j+1, i+1)
				}
				if len(hf) < 4 {
					return nil, ls.errorf("facet hole record has %d fields, need 4", len(hf))
				}
				h, err := parsePoint(ls, hf[1:4])
				if err != nil {
					return nil, err
				}
				f.Holes = append(f.Holes, h)
			}
		}
		in.Facets = append(in.Facets, f)
	}

	// Volume hole section, then the optional region section.
	if fields, err := ls.next(); err == nil {
		nh, err := parseInt(ls, fields[0])
		if err != nil {
			return nil, err
		}
		for i := 0; i < nh; i++ {
			hf, err := ls.next()
			if err != nil {
				return nil, errors.Wrapf(err, "reading hole %d of %d", i+1, nh)
			}
			if len(hf) < 4 {
				return nil, ls.errorf("hole record has %d fields, need 4", len(hf))
			}
			h, err := parsePoint(ls, hf[1:4])
			if err != nil {
				return nil, err
			}
			in.Holes = append(in.Holes, h)
		}
	} else if err != io.EOF {
		return nil, err
	}
	if fields, err := ls.next(); err == nil {
		nr, err := parseInt(ls, fields[0])
		if err != nil {
			return nil, err
		}
		for i := 0; i < nr; i++ {
			rf, err := ls.next()
			if err != nil {
				return nil, errors.Wrapf(err, "reading region %d of %d", i+1, nr)
			}
			if len(rf) < 5 {
				return nil, ls.errorf("region record has %d fields, need at least 5", len(rf))
			}
			var reg mesh.Region
			if reg.Point, err = parsePoint(ls, rf[1:4]); err != nil {
				return nil, err
			}
			if reg.Attribute, err = parseFloat(ls, rf[4]); err != nil {
				return nil, err
			}
			if len(rf) > 5 {
				if reg.MaxVolume, err = parseFloat(ls, rf[5]); err != nil {
					return nil, err
				}
			}
			in.Regions = append(in.Regions, reg)
		}
	} else if err != io.EOF {
		return nil, err
	}
	return in, nil
}

func parsePoint(ls *lineScanner, fields []string) (r3.Vector, error) {
	var p r3.Vector
	var err error
	if p.X, err = parseFloat(ls, fields[0]); err != nil {
		return p, err
	}
	if p.Y, err = parseFloat(ls, fields[1]); err != nil {
		return p, err
	}
	p.Z, err = parseFloat(ls, fields[2])
	return p, err
}

// LoadInput reads the input named by path, dispatching on its extension:
// .node for a bare point set, .poly or .smesh for a piecewise linear
// complex. A .poly or .smesh with no inline points pulls them from the
// .node file next to it.
func LoadInput(path string) (*mesh.Input, error) {
	ext := strings.ToLower(filepath.Ext(path))
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	switch ext {
	case ".node":
		return ReadNode(f)
	case ".poly", ".smesh":
		var nodes *mesh.Input
		nodeBase := 1
		nodePath := strings.TrimSuffix(path, ext) + ".node"
		if _, statErr := os.Stat(nodePath); statErr == nil {
			//nolint:gosec
			nf, err := os.Open(nodePath)
			if err != nil {
				return nil, err
			}
			defer goutils.UncheckedErrorFunc(nf.Close)
			if nodes, nodeBase, err = readNodeSection(newLineScanner(nf)); err != nil {
				return nil, errors.Wrapf(err, "reading %s", nodePath)
			}
		}
		if ext == ".poly" {
			return ReadPoly(f, nodes, nodeBase)
		}
		return ReadSMesh(f, nodes, nodeBase)
	default:
		return nil, errors.Errorf("unsupported input extension %q", ext)
	}
}
