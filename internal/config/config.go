// Package config loads converter settings from YAML. Every setting has a
// default, so a missing file is not an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"ballot-converter/internal/election"
	"ballot-converter/internal/header"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLIs look when no file is named.
const DefaultPath = "converter.yaml"

// Config is the full converter configuration.
type Config struct {
	TemplateDPI float64  `yaml:"template_dpi"`
	Header      Header   `yaml:"header"`
	Detector    Detector `yaml:"detector"`
}

// Header configures header conversion.
type Header struct {
	Grid           header.GridTransform    `yaml:"grid"`
	State          string                  `yaml:"state"`
	SealURL        string                  `yaml:"seal_url"`
	TimeZone       string                  `yaml:"time_zone"`
	MarkThresholds election.MarkThresholds `yaml:"mark_thresholds"`
}

// Detector configures template feature detection.
type Detector struct {
	MarkSizeTolerance  float64 `yaml:"mark_size_tolerance"`
	OvalMatchThreshold float64 `yaml:"oval_match_threshold"`
	OvalSearchMargin   float64 `yaml:"oval_search_margin"`
}

// Default returns the New Hampshire settings for 72 DPI templates.
func Default() Config {
	return Config{
		TemplateDPI: 72,
		Header: Header{
			Grid:           header.DefaultGridTransform(),
			State:          "NH",
			SealURL:        "/seals/Seal_of_New_Hampshire.svg",
			TimeZone:       "America/New_York",
			MarkThresholds: election.MarkThresholds{Marginal: 0.05, Definite: 0.08},
		},
		Detector: Detector{
			MarkSizeTolerance:  0.5,
			OvalMatchThreshold: 0.8,
			OvalSearchMargin:   0.5,
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	var errs []error
	if c.TemplateDPI <= 0 {
		errs = append(errs, fmt.Errorf("config: template_dpi must be positive, got %g", c.TemplateDPI))
	}
	if c.Header.Grid.SpacingX <= 0 || c.Header.Grid.SpacingY <= 0 {
		errs = append(errs, errors.New("config: header.grid spacing must be positive"))
	}
	if _, err := time.LoadLocation(c.Header.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("config: header.time_zone: %w", err))
	}
	if t := c.Detector.OvalMatchThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("config: detector.oval_match_threshold must be in (0, 1], got %g", t))
	}
	if c.Detector.MarkSizeTolerance <= 0 {
		errs = append(errs, errors.New("config: detector.mark_size_tolerance must be positive"))
	}
	return errors.Join(errs...)
}

// HeaderOptions returns the header conversion options.
func (c Config) HeaderOptions() (header.Options, error) {
	loc, err := time.LoadLocation(c.Header.TimeZone)
	if err != nil {
		return header.Options{}, fmt.Errorf("config: time zone %q: %w", c.Header.TimeZone, err)
	}
	return header.Options{
		Transform:      c.Header.Grid,
		Location:       loc,
		State:          c.Header.State,
		SealURL:        c.Header.SealURL,
		MarkThresholds: c.Header.MarkThresholds,
	}, nil
}
