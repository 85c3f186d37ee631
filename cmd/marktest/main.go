// Command marktest finds the timing marks on one template image and prints
// the lattice and the metadata read from its bottom row.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"

	"ballot-converter/internal/alignment"
	"ballot-converter/internal/ballot"
	"ballot-converter/internal/bits"
	"ballot-converter/internal/config"
	"ballot-converter/internal/detect"
	"ballot-converter/internal/election"
	"ballot-converter/internal/image"
	"ballot-converter/internal/timing"
	"ballot-converter/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	paper := flag.String("paper", string(ballot.PaperLetter), "Card stock (letter or legal)")
	side := flag.String("side", "", "Card side (front or back, default: guessed from the file name)")
	configPath := flag.String("c", config.DefaultPath, "Path to the converter configuration")
	overlayPath := flag.String("o", "", "Write an overlay of the detected marks as PNG")
	asJSON := flag.Bool("json", false, "Print the marks as JSON")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("marktest"))
		return
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: marktest [-paper letter|legal] [-side front|back] [-o overlay.png] <template image>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	geom, err := ballot.GeometryFor(ballot.PaperSize(*paper))
	if err != nil {
		log.Fatal(err)
	}

	scan, err := image.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	s := election.Side(*side)
	if s == "" {
		s = scan.Side
	}
	fmt.Printf("%s: %gx%g px, %g DPI, side %q\n", path, scan.Size().Width, scan.Size().Height, scan.DPI, s)

	d := detect.New(detect.Params{
		MarkSizeTolerance:  cfg.Detector.MarkSizeTolerance,
		OvalMatchThreshold: cfg.Detector.OvalMatchThreshold,
		OvalSearchMargin:   cfg.Detector.OvalSearchMargin,
	})
	marks, err := d.FindTimingMarks(scan.Image, geom)
	if err != nil {
		log.Fatalf("Timing mark detection failed: %v", err)
	}
	if marks == nil {
		log.Fatal("No timing marks found")
	}
	fmt.Printf("Edges: top %d/%d, bottom %d/%d, left %d/%d, right %d/%d\n",
		len(marks.Top), geom.Grid.Columns, len(marks.Bottom), geom.Grid.Columns,
		len(marks.Left), geom.Grid.Rows, len(marks.Right), geom.Grid.Rows)

	lattice, err := timing.Interpolate(marks, geom.Grid)
	if err != nil {
		writeOverlay(*overlayPath, scan, marks, nil)
		log.Fatal(err)
	}
	if fit, err := alignment.FitLattice(lattice, geom.Grid); err != nil {
		log.Printf("Lattice fit failed: %v", err)
	} else {
		pitch := fit.Pitch()
		fmt.Printf("Lattice: pitch %.2fx%.2f px, %d inliers, mean error %.3f px\n",
			pitch.Width, pitch.Height, fit.Inliers, fit.Error)
	}
	writeOverlay(*overlayPath, scan, marks, lattice)

	if *asJSON {
		data, err := json.MarshalIndent(marks, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(data))
	}

	seq, err := timing.DecodeBottomRow(marks, lattice)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Bits: %s\n", bits.String(seq))

	switch s {
	case election.SideFront:
		m, err := timing.ParseFrontMetadata(seq)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Front: batch/precinct %d, card %d, sequence %d, checksum %d (computed %d)\n",
			m.BatchOrPrecinctNumber, m.CardNumber, m.SequenceNumber, m.Mod4Checksum, m.ComputedMod4Checksum)
	case election.SideBack:
		m, err := timing.ParseBackMetadata(seq)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Back: election %d/%d/%d, type %c, ender %d\n",
			m.ElectionMonth, m.ElectionDay, m.ElectionYear, m.ElectionType, m.EnderCode)
	default:
		fmt.Println("Side unknown; pass -side to decode metadata")
	}
}

func writeOverlay(path string, scan *image.Scan, marks *timing.PartialMarks, lattice *timing.CompleteMarks) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Printf("Failed to create overlay: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, detect.Overlay(scan.Image, marks, lattice, nil)); err != nil {
		log.Printf("Failed to write overlay: %v", err)
		return
	}
	log.Printf("Wrote %s", path)
}
