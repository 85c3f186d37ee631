// Package project persists conversion jobs: the header and template files
// that make up one ballot card, stored relative to the job file.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Extension is the conventional job file extension.
const Extension = ".cardjob"

// File is a conversion job (.cardjob).
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Input paths, relative to the job file.
	DefinitionPath   string `json:"definition"`
	FrontImagePath   string `json:"front_image"`
	BackImagePath    string `json:"back_image"`
	OvalTemplatePath string `json:"oval_template,omitempty"`

	// Output paths, relative to the job file.
	ElectionPath string `json:"election,omitempty"`
	ReportPath   string `json:"report,omitempty"`

	ConfigPath string `json:"config,omitempty"`
}

// New creates an empty job.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load reads a job file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var job File
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", path, err)
	}
	if job.DefinitionPath == "" || job.FrontImagePath == "" || job.BackImagePath == "" {
		return nil, fmt.Errorf("job %s must name a definition, a front image and a back image", path)
	}
	return &job, nil
}

// Save writes the job to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Relative returns target relative to the directory of jobPath, or target
// itself when no relative path exists.
func Relative(jobPath, target string) string {
	if target == "" {
		return ""
	}
	rel, err := filepath.Rel(filepath.Dir(jobPath), target)
	if err != nil {
		return target
	}
	return rel
}

// Resolve returns the absolute form of a path stored in the job.
func Resolve(jobPath, stored string) string {
	if stored == "" || filepath.IsAbs(stored) {
		return stored
	}
	return filepath.Join(filepath.Dir(jobPath), stored)
}

// SetInputs records the input files, relative to jobPath.
func (p *File) SetInputs(jobPath, definition, front, back, oval string) {
	p.DefinitionPath = Relative(jobPath, definition)
	p.FrontImagePath = Relative(jobPath, front)
	p.BackImagePath = Relative(jobPath, back)
	p.OvalTemplatePath = Relative(jobPath, oval)
	p.Modified = time.Now()
}

// ElectionOutput returns where the election definition is written,
// defaulting to <job>_election.json.
func (p *File) ElectionOutput(jobPath string) string {
	if p.ElectionPath == "" {
		base := jobPath[:len(jobPath)-len(filepath.Ext(jobPath))]
		return base + "_election.json"
	}
	return Resolve(jobPath, p.ElectionPath)
}

// ReportOutput returns where the HTML report is written, or "" for none.
func (p *File) ReportOutput(jobPath string) string {
	return Resolve(jobPath, p.ReportPath)
}
