// Package meshio reads and writes the mesh file formats of the classic
// tetrahedral meshing toolchain: .node point lists, .poly and .smesh
// piecewise linear complexes, .ele/.face/.edge element lists, and the
// Medit .mesh format.
//
// Input files index their points from 0 or from 1; the readers detect the
// base from the first point record and the writers number from 1.
package meshio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// lineScanner yields one whitespace-split, comment-stripped, non-empty
// line at a time.
type lineScanner struct {
	s    *bufio.Scanner
	line int
}

func newLineScanner(r io.Reader) *lineScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &lineScanner{s: s}
}

// next returns the fields of the next meaningful line, or io.EOF.
func (ls *lineScanner) next() ([]string, error) {
	for ls.s.Scan() {
		ls.line++
		text := ls.s.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) > 0 {
			return fields, nil
		}
	}
	if err := ls.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (ls *lineScanner) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "line %d", ls.line)
}

func parseInt(ls *lineScanner, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, ls.errorf("expected an integer, got %q", s)
	}
	return v, nil
}

func parseFloat(ls *lineScanner, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ls.errorf("expected a number, got %q", s)
	}
	return v, nil
}

func parseInts(ls *lineScanner, fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := parseInt(ls, f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
