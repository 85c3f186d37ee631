// Command convert turns an AccuVote card definition and its front and back
// template images into an election definition.
package main

import (
	"flag"
	"fmt"
	goimage "image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"ballot-converter/internal/app"
	"ballot-converter/internal/config"
	"ballot-converter/internal/convert"
	"ballot-converter/internal/detect"
	"ballot-converter/internal/election"
	"ballot-converter/internal/image"
	"ballot-converter/internal/issue"
	"ballot-converter/internal/report"
	"ballot-converter/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	job := flag.String("j", "", "Path to a conversion job file (replaces -d, -f, -b and -oval)")
	definition := flag.String("d", "", "Path to the AccuVote definition XML")
	front := flag.String("f", "", "Path to the front template image")
	back := flag.String("b", "", "Path to the back template image")
	oval := flag.String("oval", "", "Path to the oval template image (default: drawn)")
	configPath := flag.String("c", config.DefaultPath, "Path to the converter configuration")
	output := flag.String("o", "", "Write the election definition here (default: stdout)")
	issuesPath := flag.String("issues", "", "Write the issues as JSON here")
	reportPath := flag.String("report", "", "Write an HTML report here")
	debugDir := flag.String("debug", "", "Write detection overlays into this directory")
	saveJob := flag.String("save-job", "", "Save the inputs as a job file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("convert"))
		return
	}
	if *job == "" && (*definition == "" || *front == "" || *back == "") {
		fmt.Fprintln(os.Stderr, "Usage: convert -d <definition.xml> -f <front> -b <back> [-oval <oval>] [-c <config>] [-o <election.json>] [-report <report.html>] [-debug <dir>]")
		fmt.Fprintln(os.Stderr, "       convert -j <job.cardjob> [flags]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	state := app.NewState(cfg)
	state.On(app.EventDefinitionLoaded, func(data interface{}) { log.Printf("Loaded definition %s", data) })
	state.On(app.EventImageLoaded, func(data interface{}) {
		scan := data.(*image.Scan)
		log.Printf("Loaded %s (%gx%g)", scan.Path, scan.Size().Width, scan.Size().Height)
	})

	if *job != "" {
		if err := state.LoadProject(*job); err != nil {
			log.Fatalf("Failed to load job: %v", err)
		}
	} else {
		if err := loadInputs(state, *definition, *front, *back, *oval); err != nil {
			log.Fatal(err)
		}
	}
	if *saveJob != "" {
		if err := state.SaveProject(*saveJob, filepath.Base(*saveJob)); err != nil {
			log.Fatal(err)
		}
	}

	d := detect.New(detect.Params{
		MarkSizeTolerance:  state.Config.Detector.MarkSizeTolerance,
		OvalMatchThreshold: state.Config.Detector.OvalMatchThreshold,
		OvalSearchMargin:   state.Config.Detector.OvalSearchMargin,
	})
	result, err := state.Convert(d)
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	fmt.Fprint(os.Stderr, report.Summary(result))

	if *job != "" && *output == "" {
		*output = state.Project.ElectionOutput(*job)
		if *reportPath == "" {
			*reportPath = state.Project.ReportOutput(*job)
		}
	}
	if result.Election != nil {
		if *output == "" {
			data, err := state.ElectionJSON()
			if err != nil {
				log.Fatal(err)
			}
			os.Stdout.Write(append(data, '\n'))
		} else if err := state.SaveElection(*output); err != nil {
			log.Fatal(err)
		}
	}
	if *issuesPath != "" {
		if err := state.SaveIssues(*issuesPath); err != nil {
			log.Fatal(err)
		}
	}
	if *reportPath != "" {
		if err := state.SaveReport(*reportPath); err != nil {
			log.Fatal(err)
		}
	}
	if *debugDir != "" {
		if err := writeOverlays(state, result, *debugDir); err != nil {
			log.Printf("Failed to write debug images: %v", err)
		}
	}

	if !result.Success {
		fatal := 0
		for _, is := range result.Issues {
			if issue.Fatal(is) {
				fatal++
			}
		}
		log.Printf("Conversion incomplete: %d issue(s), %d fatal", len(result.Issues), fatal)
		os.Exit(1)
	}
}

func loadInputs(state *app.State, definition, front, back, oval string) error {
	if err := state.LoadDefinition(definition); err != nil {
		return err
	}
	if err := state.LoadFrontImage(front); err != nil {
		return err
	}
	if err := state.LoadBackImage(back); err != nil {
		return err
	}
	if oval != "" {
		return state.LoadOvalTemplate(oval)
	}
	return nil
}

// writeOverlays draws what was detected on each side into dir, one image
// per side plus both sides next to each other.
func writeOverlays(state *app.State, result *convert.Result, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	front, back := state.Templates()

	var drawn []goimage.Image
	for _, card := range result.Cards {
		src := front
		if card.Side == election.SideBack {
			src = back
		}
		if src == nil {
			continue
		}
		overlay := detect.Overlay(src, card.TimingMarks, card.Lattice, card.Ovals)
		if err := writePNG(filepath.Join(dir, string(card.Side)+".png"), overlay); err != nil {
			return err
		}
		drawn = append(drawn, overlay)
	}
	if len(drawn) == 0 {
		return nil
	}
	return writePNG(filepath.Join(dir, "card.png"), image.SideBySide(drawn...))
}

func writePNG(path string, img goimage.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	log.Printf("Wrote %s", path)
	return f.Close()
}
