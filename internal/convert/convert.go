// Package convert turns an AccuVote card definition and its two template
// images into an election definition with a verified option grid.
package convert

import (
	"errors"
	"fmt"
	"image"
	"log"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/bits"
	"ballot-converter/internal/election"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/header"
	"ballot-converter/internal/issue"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"
)

// DefaultTemplateDPI is the resolution template images are rendered at.
const DefaultTemplateDPI = 72

// Detector finds printed features in a template image.
type Detector interface {
	// FindTimingMarks returns the timing marks found on img, or nil when
	// there are none.
	FindTimingMarks(img image.Image, geom ballot.CardGeometry) (*timing.PartialMarks, error)

	// FindTemplateOvals returns the printed ovals inside the usable area
	// of geom. Side is left for the caller to set.
	FindTemplateOvals(img, ovalTemplate image.Image, marks *timing.CompleteMarks, geom ballot.CardGeometry) ([]grid.Oval, error)
}

// Options configure a conversion.
type Options struct {
	Header      header.Options
	TemplateDPI float64
	Logger      *log.Logger
}

// DefaultOptions returns options for 72 DPI New Hampshire templates.
func DefaultOptions() Options {
	return Options{
		Header:      header.DefaultOptions(),
		TemplateDPI: DefaultTemplateDPI,
	}
}

// Input is everything needed to convert one card.
type Input struct {
	Definition   *header.Document
	Front        image.Image
	Back         image.Image
	OvalTemplate image.Image
}

// Card is what was read from one side of the card.
type Card struct {
	Side        election.Side         `json:"side"`
	TimingMarks *timing.PartialMarks  `json:"timingMarks,omitempty"`
	Lattice     *timing.CompleteMarks `json:"lattice,omitempty"`
	Bits        []bits.Bit            `json:"bits,omitempty"`
	Front       *timing.FrontMetadata `json:"frontMetadata,omitempty"`
	Back        *timing.BackMetadata  `json:"backMetadata,omitempty"`
	Ovals       []grid.Oval           `json:"ovals,omitempty"`
}

// Result is the outcome of a conversion. Election is nil only when the
// header could not be converted; otherwise it is the best definition that
// could be produced, even when Success is false.
type Result struct {
	Success  bool               `json:"success"`
	Election *election.Election `json:"election,omitempty"`
	Issues   []issue.Issue      `json:"issues"`
	Cards    []*Card            `json:"cards,omitempty"`
}

// converter carries the state of one conversion.
type converter struct {
	detector Detector
	opts     Options
	log      *log.Logger
	issues   []issue.Issue
}

func (c *converter) add(is issue.Issue) {
	c.log.Printf("%s: %s", is.Kind(), is.Message())
	c.issues = append(c.issues, is)
}

// Convert runs the whole conversion. Every problem with the inputs is an
// issue; an error is returned for internal inconsistencies and when the
// detector fails to search a lattice for ovals.
func Convert(in Input, d Detector, opts Options) (*Result, error) {
	if d == nil {
		return nil, errors.New("convert: nil detector")
	}
	if in.Definition == nil {
		return nil, errors.New("convert: nil definition")
	}
	if opts.TemplateDPI <= 0 {
		opts.TemplateDPI = DefaultTemplateDPI
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &converter{detector: d, opts: opts, log: logger}

	e, headerIssues, err := header.Convert(in.Definition, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to convert header: %w", err)
	}
	if e == nil {
		return &Result{Issues: headerIssues}, nil
	}
	for _, is := range headerIssues {
		c.add(is)
	}
	c.log.Printf("header: %d contests, %d grid positions", len(e.Contests), len(e.GridLayouts[0].GridPositions))

	paperSize := c.checkTemplateSize(ballot.PaperSize(e.BallotLayout.PaperSize), in.Front, in.Back)
	geom, err := ballot.GeometryFor(paperSize)
	if err != nil {
		return nil, err
	}

	front := c.readCard(election.SideFront, in.Front, geom)
	back := c.readCard(election.SideBack, in.Back, geom)
	result := &Result{Election: e, Cards: []*Card{front, back}}

	if front.Front == nil || back.Back == nil {
		result.Issues = c.issues
		result.Success = len(c.issues) == 0
		return result, nil
	}

	ballotStyleID := election.BallotStyleID(fmt.Sprintf("card-number-%d", front.Front.CardNumber))
	if front.Ovals, err = c.findOvals(front, in.Front, in.OvalTemplate, geom); err != nil {
		return nil, err
	}
	if back.Ovals, err = c.findOvals(back, in.Back, in.OvalTemplate, geom); err != nil {
		return nil, err
	}

	ovals := make([]grid.Oval, 0, len(front.Ovals)+len(back.Ovals))
	ovals = append(ovals, front.Ovals...)
	ovals = append(ovals, back.Ovals...)

	layout := e.GridLayouts[0]
	paired := grid.PairColumnEntries(layout.GridPositions, ovals)
	for _, pi := range paired.Issues {
		c.add(issue.MismatchedOvalGrids{PairIssue: pi})
	}

	positions := make([]election.GridPosition, len(paired.Pairs))
	for i, p := range paired.Pairs {
		positions[i] = election.Relocate(p.First, p.Second.Location())
	}

	style := e.BallotStyles[0]
	style.ID = ballotStyleID
	layout.BallotStyleID = ballotStyleID
	layout.Columns = geom.Grid.Columns
	layout.Rows = geom.Grid.Rows
	layout.GridPositions = positions

	merged := *e
	merged.BallotLayout.PaperSize = string(paperSize)
	merged.BallotStyles = []election.BallotStyle{style}
	merged.GridLayouts = []election.GridLayout{layout}
	c.log.Printf("%s: %d of %d grid positions paired", ballotStyleID, len(positions), len(e.GridLayouts[0].GridPositions))

	result.Election = &merged
	result.Issues = c.issues
	result.Success = len(c.issues) == 0
	return result, nil
}

// checkTemplateSize compares the template image sizes with the header's
// paper size and returns the paper size to use from here on.
func (c *converter) checkTemplateSize(headerSize ballot.PaperSize, front, back image.Image) ballot.PaperSize {
	frontSize, backSize := imageSize(front), imageSize(back)
	frontPaper, frontOK := ballot.TemplatePaperSize(int(frontSize.Width), int(frontSize.Height), c.opts.TemplateDPI)
	backPaper, backOK := ballot.TemplatePaperSize(int(backSize.Width), int(backSize.Height), c.opts.TemplateDPI)

	if frontOK && backOK && frontPaper == backPaper && frontPaper == headerSize {
		return headerSize
	}
	c.add(issue.InvalidTemplateSize{
		PaperSize:         headerSize,
		FrontTemplateSize: frontSize,
		BackTemplateSize:  backSize,
	})
	if frontOK && backOK && frontPaper == backPaper {
		return frontPaper
	}
	return headerSize
}

func imageSize(img image.Image) geometry.Size {
	if img == nil {
		return geometry.Size{}
	}
	b := img.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// readCard finds the lattice on one side and decodes its metadata. Every
// failure is recorded and leaves the card partially filled in.
func (c *converter) readCard(side election.Side, img image.Image, geom ballot.CardGeometry) *Card {
	card := &Card{Side: side}
	if img == nil {
		c.add(issue.TimingMarkDetectionFailed{Side: side, Reason: "no template image"})
		return card
	}

	marks, err := c.detector.FindTimingMarks(img, geom)
	if err != nil {
		c.add(issue.TimingMarkDetectionFailed{Side: side, Reason: err.Error()})
		return card
	}
	if marks == nil || marks.Count() == 0 {
		c.add(issue.TimingMarkDetectionFailed{Side: side})
		return card
	}
	card.TimingMarks = marks
	c.log.Printf("%s: %d timing marks", side, marks.Count())

	lattice, err := timing.Interpolate(marks, geom.Grid)
	if err != nil {
		c.add(issue.TimingMarkDetectionFailed{Side: side, Reason: err.Error()})
		return card
	}
	card.Lattice = lattice

	seq, err := timing.DecodeBottomRow(marks, lattice)
	if err != nil {
		c.log.Printf("%s: %v", side, err)
		c.add(issue.MissingTimingMarkMetadata{Side: side, TimingMarks: marks})
		return card
	}
	card.Bits = seq

	switch side {
	case election.SideFront:
		m, err := timing.ParseFrontMetadata(seq)
		if err != nil {
			c.add(issue.InvalidTimingMarkMetadata{Side: side, TimingMarks: marks, TimingMarkBits: seq, ValidationError: err})
			return card
		}
		card.Front = &m
		c.log.Printf("front: card number %d, sequence %d", m.CardNumber, m.SequenceNumber)
	case election.SideBack:
		m, err := timing.ParseBackMetadata(seq)
		if err != nil {
			c.add(issue.InvalidTimingMarkMetadata{Side: side, TimingMarks: marks, TimingMarkBits: seq, ValidationError: err})
			return card
		}
		card.Back = &m
		c.log.Printf("back: election %d/%d/%d type %c", m.ElectionMonth, m.ElectionDay, m.ElectionYear, m.ElectionType)
	default:
		panic(fmt.Sprintf("convert: unhandled side %q", side))
	}
	return card
}

// findOvals runs oval detection on one side and tags the results with it.
func (c *converter) findOvals(card *Card, img, ovalTemplate image.Image, geom ballot.CardGeometry) ([]grid.Oval, error) {
	ovals, err := c.detector.FindTemplateOvals(img, ovalTemplate, card.Lattice, geom)
	if err != nil {
		return nil, fmt.Errorf("failed to find ovals on %s: %w", card.Side, err)
	}
	for i := range ovals {
		ovals[i].Side = card.Side
	}
	c.log.Printf("%s: %d ovals", card.Side, len(ovals))
	return ovals, nil
}
