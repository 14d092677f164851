// Package main is the tetmesh command: it tetrahedralizes a point set or
// piecewise linear complex from .node/.poly/.smesh input and writes
// .node/.ele/.face/.edge output, optionally with a Medit .mesh copy.
package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"

	"go.viam.com/tetmesh/mesh"
	"go.viam.com/tetmesh/meshio"
)

const (
	flagPLC          = "plc"
	flagRefine       = "refine"
	flagQuality      = "quality"
	flagMaxVolume    = "max-volume"
	flagVarVolume    = "var-volume"
	flagRegionAttrib = "region-attrib"
	flagEpsilon      = "epsilon"
	flagMaxSteiner   = "max-steiner"
	flagCheck        = "check"
	flagDetect       = "detect-intersections"
	flagSeed         = "seed"
	flagOutput       = "output"
	flagMedit        = "medit"
	flagStats        = "stats"
	flagDebug        = "debug"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:      "tetmesh",
		Usage:     "generate Delaunay and quality tetrahedral meshes",
		ArgsUsage: "<input.node|input.poly|input.smesh>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagPLC,
				Aliases: []string{"p"},
				Usage:   "recover the input facets and segments (constrained triangulation)",
			},
			&cli.BoolFlag{
				Name:    flagRefine,
				Aliases: []string{"r"},
				Usage:   "refine a previously generated mesh instead of triangulating",
			},
			&cli.Float64Flag{
				Name:    flagQuality,
				Aliases: []string{"q"},
				Usage:   "refine until every radius-edge ratio is at most `BOUND` (0 disables)",
			},
			&cli.Float64Flag{
				Name:    flagMaxVolume,
				Aliases: []string{"a"},
				Usage:   "cap tetrahedron volume at `VOL`",
			},
			&cli.BoolFlag{
				Name:  flagVarVolume,
				Usage: "honor per-region volume constraints from the input",
			},
			&cli.BoolFlag{
				Name:    flagRegionAttrib,
				Aliases: []string{"A"},
				Usage:   "stamp tetrahedra with their region attributes",
			},
			&cli.Float64Flag{
				Name:  flagEpsilon,
				Usage: "relative tolerance for degeneracy tests",
			},
			&cli.IntFlag{
				Name:  flagMaxSteiner,
				Usage: "cap the number of inserted Steiner points (0 is unlimited)",
			},
			&cli.BoolFlag{
				Name:    flagCheck,
				Aliases: []string{"C"},
				Usage:   "run consistency checks after each phase",
			},
			&cli.BoolFlag{
				Name:    flagDetect,
				Aliases: []string{"d"},
				Usage:   "detect intersecting input facets and stop",
			},
			&cli.Int64Flag{
				Name:  flagSeed,
				Usage: "seed for the point location sampling",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Usage:   "output `PREFIX` (defaults to the input name plus .1)",
			},
			&cli.BoolFlag{
				Name:  flagMedit,
				Usage: "also write a Medit .mesh file",
			},
			&cli.BoolFlag{
				Name:  flagStats,
				Usage: "log mesh statistics when done",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("tetmesh")
			} else {
				logger = golog.NewDevelopmentLogger("tetmesh")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one input file is required", 1)
			}
			return run(c, c.Args().First(), logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context, path string, logger golog.Logger) error {
	opts := mesh.DefaultOptions()
	opts.PLC = c.Bool(flagPLC)
	opts.Refine = c.Bool(flagRefine)
	if b := c.Float64(flagQuality); b > 0 {
		opts.Quality = true
		opts.RadiusEdgeBound = b
	}
	opts.MaxVolume = c.Float64(flagMaxVolume)
	opts.VarVolume = c.Bool(flagVarVolume)
	opts.RegionAttrib = c.Bool(flagRegionAttrib)
	if e := c.Float64(flagEpsilon); e > 0 {
		opts.Epsilon = e
	}
	opts.MaxSteinerPoints = c.Int(flagMaxSteiner)
	opts.Check = c.Bool(flagCheck)
	opts.DetectIntersections = c.Bool(flagDetect)
	if s := c.Int64(flagSeed); s != 0 {
		opts.Seed = s
	}

	in, err := meshio.LoadInput(path)
	if err != nil {
		return err
	}

	m := mesh.New(opts, logger)
	if err := m.Build(in); err != nil {
		return err
	}
	out := m.Output()

	prefix := c.String(flagOutput)
	if prefix == "" {
		prefix = strings.TrimSuffix(path, filepath.Ext(path)) + ".1"
	}
	if err := meshio.SaveAll(prefix, out); err != nil {
		return err
	}
	if c.Bool(flagMedit) {
		if err := meshio.SaveMedit(prefix+".mesh", out); err != nil {
			return err
		}
	}

	logger.Infow("mesh written",
		"prefix", prefix,
		"points", len(out.Points),
		"tetrahedra", len(out.Tetrahedra),
		"faces", len(out.Faces),
		"edges", len(out.Edges),
	)
	if c.Bool(flagStats) {
		st := m.Statistics()
		logger.Infow("mesh statistics",
			"totalVolume", st.TotalVolume,
			"radiusEdgeMax", st.RadiusEdgeRatio.Max,
			"radiusEdgeMean", st.RadiusEdgeRatio.Mean,
			"dihedralMinDeg", st.DihedralDegrees.Min,
			"dihedralMaxDeg", st.DihedralDegrees.Max,
			"steinerPoints", st.SteinerPoints,
		)
	}
	return nil
}
