// Command rmlines converts reMarkable v6 ".lines" annotation files to vector
// graphics, and batch-exports an entire xochitl-style backup directory to
// annotated PDFs. See spec.md §6 for the CLI surface.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/ogier/pflag"

	"github.com/kj-111/remarkable-backup/batch"
	"github.com/kj-111/remarkable-backup/render"
	"github.com/kj-111/remarkable-backup/rm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "inspect" {
		return runInspect(args[1:])
	}

	fs := pflag.NewFlagSet("rmlines", pflag.ContinueOnError)
	output := fs.StringP("output", "o", "", "output file or directory")
	analyze := fs.Bool("analyze", false, "print per-file stats without rendering")
	quiet := fs.BoolP("quiet", "q", false, "suppress progress output")
	force := fs.BoolP("force", "f", false, "re-export everything, ignoring incremental skip")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "rmlines: no input paths given")
		return 1
	}

	if len(inputs) == 1 {
		if info, err := os.Stat(inputs[0]); err == nil && info.IsDir() {
			return runBatch(inputs[0], *output, *quiet, *force)
		}
	}

	if *analyze {
		return runAnalyze(inputs)
	}
	return runConvert(inputs, *output, *quiet)
}

// runBatch drives batch.ExportAll over a whole backup directory. Per
// spec.md §6, batch invocations always exit 0 and report per-file failures
// inline rather than aborting the run.
func runBatch(backupDir, outputDir string, quiet, force bool) int {
	if outputDir == "" {
		outputDir = "."
	}

	opts := batch.Options{Force: force}
	if !quiet {
		opts.OnProgress = func(e batch.ProgressEvent) {
			switch {
			case e.Skipped:
				fmt.Printf("  %-40s unchanged\n", e.Name)
			case e.Err != nil:
				fmt.Printf("  %-40s FAILED: %v\n", e.Name, e.Err)
			default:
				fmt.Printf("  %-40s OK (%d pages, %d strokes)\n", e.Name, e.Result.Pages, e.Result.Strokes)
			}
		}
	}

	stats, err := batch.ExportAll(backupDir, outputDir, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rmlines: batch export: %v\n", err)
		return 0
	}
	if !quiet {
		fmt.Printf("\nExported %d, skipped %d, failed %d\n", stats.Exported, stats.Skipped, stats.Failed)
	}
	return 0
}

// runAnalyze parses each input and prints its stroke/layer/pen inventory
// without rendering anything.
func runAnalyze(inputs []string) int {
	exitCode := 0
	multiple := len(inputs) > 1
	for _, in := range inputs {
		doc, err := rm.ParseFile(in, rm.Options{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", in, err)
			if !multiple {
				return 1
			}
			continue
		}
		printStats(in, rm.ComputeStats(doc))
	}
	return exitCode
}

func printStats(name string, s rm.Stats) {
	fmt.Printf("%s\n", name)
	fmt.Printf("  layers:  %d\n", s.LayerCount)
	fmt.Printf("  strokes: %d\n", s.StrokeCount)
	fmt.Printf("  points:  %d\n", s.PointCount)
	for pen, n := range s.ByPen {
		fmt.Printf("    %-20s %d\n", pen, n)
	}
}

// runConvert renders each input .lines file to a vector SVG, following the
// original tool's default conversion target.
func runConvert(inputs []string, output string, quiet bool) int {
	multiple := len(inputs) > 1

	var outDir string
	if multiple {
		outDir = output
		if outDir == "" {
			outDir = "."
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "rmlines: %v\n", err)
			return 1
		}
	}

	for _, in := range inputs {
		outPath := outputPathFor(in, output, outDir, multiple)

		if !quiet {
			fmt.Printf("Converting %s...", filepath.Base(in))
		}

		doc, err := rm.ParseFile(in, rm.Options{})
		if err != nil {
			if !quiet {
				fmt.Println()
			}
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", in, err)
			if !multiple {
				return 1
			}
			continue
		}

		canvas := render.NewSVGCanvas()
		renderer := render.NewRenderer(canvas)
		if err := renderer.RenderDocument(doc, render.DefaultPageSize); err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", in, err)
			if !multiple {
				return 1
			}
			continue
		}

		if err := os.WriteFile(outPath, canvas.Bytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", in, err)
			if !multiple {
				return 1
			}
			continue
		}

		if !quiet {
			strokes := 0
			for _, layer := range doc.Layers {
				strokes += len(layer.Strokes)
			}
			fmt.Printf(" OK (%d strokes)\n", strokes)
		}
	}
	return 0
}

func outputPathFor(input, output, outDir string, multiple bool) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".svg"
	switch {
	case multiple:
		return filepath.Join(outDir, base)
	case output != "":
		return output
	default:
		return filepath.Join(filepath.Dir(input), base)
	}
}

// runInspect opens an interactive shell over a single loaded document, for
// ad-hoc inspection during development.
func runInspect(args []string) int {
	shell := ishell.New()
	shell.Println("rmlines inspect — type 'help' for commands")

	var doc *rm.Document
	var loadedFrom string

	shell.AddCmd(&ishell.Cmd{
		Name: "load",
		Help: "load <path> — parse a .lines file",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: load <path>")
				return
			}
			d, err := rm.ParseFile(c.Args[0], rm.Options{})
			if err != nil {
				c.Err(err)
				return
			}
			doc = d
			loadedFrom = c.Args[0]
			c.Printf("loaded %s: %d layer(s)\n", loadedFrom, len(d.Layers))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "print layer/stroke/point counts for the loaded document",
		Func: func(c *ishell.Context) {
			if doc == nil {
				c.Println("no document loaded; use load <path>")
				return
			}
			s := rm.ComputeStats(doc)
			c.Printf("layers=%d strokes=%d points=%d\n", s.LayerCount, s.StrokeCount, s.PointCount)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "pens",
		Help: "list pen usage counts for the loaded document",
		Func: func(c *ishell.Context) {
			if doc == nil {
				c.Println("no document loaded; use load <path>")
				return
			}
			s := rm.ComputeStats(doc)
			for name, n := range s.ByPen {
				c.Printf("  %-20s %d\n", name, n)
			}
		},
	})

	if len(args) == 1 {
		shell.Process("load", args[0])
	}

	shell.Run()
	return 0
}
