// Package app holds the state of one conversion session: configuration,
// loaded inputs and the latest result.
package app

import (
	"encoding/json"
	"fmt"
	goimage "image"
	"log"
	"os"
	"sync"

	"ballot-converter/internal/config"
	"ballot-converter/internal/convert"
	"ballot-converter/internal/header"
	"ballot-converter/internal/image"
	"ballot-converter/internal/issue"
	"ballot-converter/internal/project"
	"ballot-converter/internal/report"
)

// State holds the inputs and result of a conversion session.
type State struct {
	mu sync.RWMutex

	Config config.Config

	// Job file, when the session was loaded from one.
	ProjectPath string
	Project     *project.File

	DefinitionPath string
	Definition     *header.Document
	FrontImage     *image.Scan
	BackImage      *image.Scan
	OvalTemplate   *image.Scan

	Result *convert.Result

	listeners map[EventType][]EventListener
}

// EventType identifies session events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventDefinitionLoaded
	EventImageLoaded
	EventConverted
	EventElectionSaved
	EventReportSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a session using cfg.
func NewState(cfg config.Config) *State {
	return &State{
		Config:    cfg,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers a listener for an event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit calls every listener registered for event.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadProject loads a job file and every input it names. A config file
// named by the job replaces the session configuration.
func (s *State) LoadProject(path string) error {
	job, err := project.Load(path)
	if err != nil {
		return err
	}

	if job.ConfigPath != "" {
		cfg, err := config.Load(project.Resolve(path, job.ConfigPath))
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.Config = cfg
		s.mu.Unlock()
	}

	if err := s.LoadDefinition(project.Resolve(path, job.DefinitionPath)); err != nil {
		return err
	}
	if err := s.LoadFrontImage(project.Resolve(path, job.FrontImagePath)); err != nil {
		return err
	}
	if err := s.LoadBackImage(project.Resolve(path, job.BackImagePath)); err != nil {
		return err
	}
	if job.OvalTemplatePath != "" {
		if err := s.LoadOvalTemplate(project.Resolve(path, job.OvalTemplatePath)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.ProjectPath = path
	s.Project = job
	s.mu.Unlock()
	s.Emit(EventProjectLoaded, path)
	return nil
}

// SaveProject writes a job file naming the loaded inputs.
func (s *State) SaveProject(path, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.Project
	if job == nil {
		job = project.New(name)
	}
	var front, back, oval string
	if s.FrontImage != nil {
		front = s.FrontImage.Path
	}
	if s.BackImage != nil {
		back = s.BackImage.Path
	}
	if s.OvalTemplate != nil {
		oval = s.OvalTemplate.Path
	}
	job.SetInputs(path, s.DefinitionPath, front, back, oval)
	if err := job.Save(path); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	s.ProjectPath = path
	s.Project = job
	return nil
}

// LoadDefinition parses an AccuVote header file.
func (s *State) LoadDefinition(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open definition: %w", err)
	}
	defer f.Close()

	doc, err := header.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s.mu.Lock()
	s.DefinitionPath = path
	s.Definition = doc
	s.mu.Unlock()
	s.Emit(EventDefinitionLoaded, path)
	return nil
}

// LoadFrontImage loads the front template.
func (s *State) LoadFrontImage(path string) error {
	scan, err := s.loadScan(path, "front")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.FrontImage = scan
	s.mu.Unlock()
	s.Emit(EventImageLoaded, scan)
	return nil
}

// LoadBackImage loads the back template.
func (s *State) LoadBackImage(path string) error {
	scan, err := s.loadScan(path, "back")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.BackImage = scan
	s.mu.Unlock()
	s.Emit(EventImageLoaded, scan)
	return nil
}

// LoadOvalTemplate loads the image of one empty printed oval.
func (s *State) LoadOvalTemplate(path string) error {
	scan, err := image.Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.OvalTemplate = scan
	s.mu.Unlock()
	s.Emit(EventImageLoaded, scan)
	return nil
}

func (s *State) loadScan(path, side string) (*image.Scan, error) {
	if !image.IsSupportedFormat(path) {
		return nil, fmt.Errorf("%s: unsupported image format", path)
	}
	scan, err := image.Load(path)
	if err != nil {
		return nil, err
	}
	if scan.Side != "" && string(scan.Side) != side {
		log.Printf("%s looks like the %s template but was loaded as the %s", path, scan.Side, side)
	}
	return scan, nil
}

// ConvertOptions builds conversion options from the configuration. When
// both templates carry the same resolution it overrides the configured DPI.
func (s *State) ConvertOptions() (convert.Options, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	headerOpts, err := s.Config.HeaderOptions()
	if err != nil {
		return convert.Options{}, err
	}
	opts := convert.Options{Header: headerOpts, TemplateDPI: s.Config.TemplateDPI}
	if s.FrontImage != nil && s.BackImage != nil && s.FrontImage.DPI > 0 && s.FrontImage.DPI == s.BackImage.DPI {
		opts.TemplateDPI = s.FrontImage.DPI
	}
	return opts, nil
}

// Convert runs the conversion on the loaded inputs.
func (s *State) Convert(d convert.Detector) (*convert.Result, error) {
	opts, err := s.ConvertOptions()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.Definition == nil || s.FrontImage == nil || s.BackImage == nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("a definition and both templates must be loaded")
	}
	in := convert.Input{
		Definition: s.Definition,
		Front:      s.FrontImage.Image,
		Back:       s.BackImage.Image,
	}
	if s.OvalTemplate != nil {
		in.OvalTemplate = s.OvalTemplate.Image
	}
	s.mu.RUnlock()

	result, err := convert.Convert(in, d, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.Result = result
	s.mu.Unlock()
	s.Emit(EventConverted, result)
	return result, nil
}

// ElectionJSON encodes the converted election.
func (s *State) ElectionJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Result == nil || s.Result.Election == nil {
		return nil, fmt.Errorf("no election to save")
	}
	return json.MarshalIndent(s.Result.Election, "", "  ")
}

// SaveElection writes the converted election as JSON.
func (s *State) SaveElection(path string) error {
	data, err := s.ElectionJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write election: %w", err)
	}
	s.Emit(EventElectionSaved, path)
	return nil
}

// SaveIssues writes the issues of the last conversion as JSON.
func (s *State) SaveIssues(path string) error {
	s.mu.RLock()
	result := s.Result
	s.mu.RUnlock()
	if result == nil {
		return fmt.Errorf("nothing converted yet")
	}
	data, err := json.MarshalIndent(issue.ToRecords(result.Issues), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SaveReport writes the HTML report of the last conversion.
func (s *State) SaveReport(path string) error {
	s.mu.RLock()
	result := s.Result
	s.mu.RUnlock()
	if result == nil {
		return fmt.Errorf("nothing converted yet")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.HTML(f, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.Emit(EventReportSaved, path)
	return nil
}

// Templates returns the loaded template images, front first.
func (s *State) Templates() (front, back goimage.Image) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FrontImage != nil {
		front = s.FrontImage.Image
	}
	if s.BackImage != nil {
		back = s.BackImage.Image
	}
	return front, back
}
