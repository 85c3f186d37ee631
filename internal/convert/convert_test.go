package convert

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"
	"testing"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/bits"
	"ballot-converter/internal/election"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/header"
	"ballot-converter/internal/issue"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"
)

const pitch = 10.0

func mark(x, y float64) geometry.Rect {
	return geometry.RectAround(geometry.Point2D{X: x, Y: y}, geometry.Size{Width: 6, Height: 2})
}

// marksFor lays out a full lattice with the given bottom-row bits.
func marksFor(g ballot.GridSize, bottom []bits.Bit) *timing.PartialMarks {
	w := float64(g.Columns-1) * pitch
	h := float64(g.Rows-1) * pitch
	tl, tr, bl, br := mark(0, 0), mark(w, 0), mark(0, h), mark(w, h)
	p := &timing.PartialMarks{TopLeft: &tl, TopRight: &tr, BottomLeft: &bl, BottomRight: &br}
	for c := 0; c < g.Columns; c++ {
		p.Top = append(p.Top, mark(float64(c)*pitch, 0))
	}
	for r := 0; r < g.Rows; r++ {
		p.Left = append(p.Left, mark(0, float64(r)*pitch))
		p.Right = append(p.Right, mark(w, float64(r)*pitch))
	}
	p.Bottom = append(p.Bottom, bl, br)
	for i, b := range bottom {
		if b == 1 {
			p.Bottom = append(p.Bottom, mark(float64(g.Columns-2-i)*pitch, h))
		}
	}
	return p
}

func ovalsAt(column int, rows ...int) []grid.Oval {
	var out []grid.Oval
	for _, r := range rows {
		out = append(out, grid.Oval{
			Column: column,
			Row:    r,
			Bounds: geometry.RectAround(geometry.Point2D{X: float64(column) * pitch, Y: float64(r) * pitch}, geometry.Size{Width: 4, Height: 2}),
			Score:  0.9,
		})
	}
	return out
}

type side struct {
	marks    *timing.PartialMarks
	marksErr error
	ovals    []grid.Oval
	ovalsErr error
}

type fakeDetector struct {
	front, back image.Image
	sides       map[image.Image]side
	ovalCalls   int
}

func (d *fakeDetector) FindTimingMarks(img image.Image, geom ballot.CardGeometry) (*timing.PartialMarks, error) {
	s := d.sides[img]
	return s.marks, s.marksErr
}

func (d *fakeDetector) FindTemplateOvals(img, ovalTemplate image.Image, marks *timing.CompleteMarks, geom ballot.CardGeometry) ([]grid.Oval, error) {
	d.ovalCalls++
	if marks == nil {
		return nil, errors.New("no lattice")
	}
	s := d.sides[img]
	if s.ovalsErr != nil {
		return nil, s.ovalsErr
	}
	return append([]grid.Oval(nil), s.ovals...), nil
}

func ox(column int) string { return fmt.Sprintf("%.6f", header.OriginX+float64(column)*header.TimingMarkSpacingX) }
func oy(row int) string    { return fmt.Sprintf("%.6f", header.OriginY+float64(row)*header.TimingMarkSpacingY) }

func candidate(name, party string, writeIn bool, column, row int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<CandidateName><Name>%s</Name>", name)
	if party != "" {
		fmt.Fprintf(&sb, "<Party>%s</Party>", party)
	}
	if writeIn {
		sb.WriteString("<WriteIn>True</WriteIn>")
	}
	fmt.Fprintf(&sb, "<OX>%s</OX><OY>%s</OY></CandidateName>", ox(column), oy(row))
	return sb.String()
}

func definition(t *testing.T, electionName string) *header.Document {
	t.Helper()
	var name string
	if electionName != "" {
		name = "<ElectionName>" + electionName + "</ElectionName>"
	}
	xml := `<AVSInterface><AccuvoteHeaderInfo>
		<ElectionID>GP2020</ElectionID>` + name + `
		<TownName>Hooksett</TownName><TownID>12345</TownID>
		<ElectionDate>11/3/2020 00:00:00</ElectionDate>
		<PrecinctID>1</PrecinctID><BallotSize>8.5X11</BallotSize>
	</AccuvoteHeaderInfo>
	<Candidates><OfficeName><Name>Governor</Name></OfficeName>` +
		candidate("Alice Adams", "Democratic", false, 12, 9) +
		candidate("Bob Brown", "Republican", false, 12, 10) +
		candidate("Write-In", "", true, 12, 11) + `</Candidates>
	<Candidates><OfficeName><Name>State Representative</Name></OfficeName>` +
		candidate("Carol Chen", "", false, 19, 9) +
		candidate("Write-In", "", true, 19, 10) + `</Candidates>
	</AVSInterface>`
	doc, err := header.ParseString(xml)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return doc
}

func letterImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 612, 792))
}

type fixture struct {
	input    Input
	detector *fakeDetector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := ballot.LetterGeometry().Grid
	front, back := letterImage(), letterImage()
	d := &fakeDetector{
		front: front,
		back:  back,
		sides: map[image.Image]side{
			front: {marks: marksFor(g, timing.EncodeFront(3, 7, 0)), ovals: ovalsAt(5, 9, 10, 11)},
			back:  {marks: marksFor(g, timing.EncodeBack(3, 11, 20, 'G')), ovals: ovalsAt(20, 12, 13)},
		},
	}
	return &fixture{
		input: Input{
			Definition:   definition(t, "General Election"),
			Front:        front,
			Back:         back,
			OvalTemplate: image.NewGray(image.Rect(0, 0, 14, 9)),
		},
		detector: d,
	}
}

func (f *fixture) update(img image.Image, fn func(*side)) {
	s := f.detector.sides[img]
	fn(&s)
	f.detector.sides[img] = s
}

func (f *fixture) run(t *testing.T) *Result {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard, "", 0)
	result, err := Convert(f.input, f.detector, opts)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return result
}

func kinds(issues []issue.Issue) []issue.Kind {
	out := make([]issue.Kind, len(issues))
	for i, is := range issues {
		out[i] = is.Kind()
	}
	return out
}

func TestConvertSuccess(t *testing.T) {
	result := newFixture(t).run(t)
	if !result.Success || len(result.Issues) != 0 {
		t.Fatalf("Success = %v, issues %v", result.Success, kinds(result.Issues))
	}

	e := result.Election
	if e.BallotStyles[0].ID != "card-number-7" || e.GridLayouts[0].BallotStyleID != "card-number-7" {
		t.Errorf("ballot style = %q / %q", e.BallotStyles[0].ID, e.GridLayouts[0].BallotStyleID)
	}

	want := []election.GridLocation{
		{Side: election.SideFront, Column: 5, Row: 9},
		{Side: election.SideFront, Column: 5, Row: 10},
		{Side: election.SideFront, Column: 5, Row: 11},
		{Side: election.SideBack, Column: 20, Row: 12},
		{Side: election.SideBack, Column: 20, Row: 13},
	}
	positions := e.GridLayouts[0].GridPositions
	if len(positions) != len(want) {
		t.Fatalf("got %d positions, want %d", len(positions), len(want))
	}
	for i, p := range positions {
		if p.Location() != want[i] {
			t.Errorf("position %d at %+v, want %+v", i, p.Location(), want[i])
		}
	}
	if w, ok := positions[2].(election.WriteInPosition); !ok || w.WriteInIndex != 0 {
		t.Errorf("position 2 = %#v, want first write-in", positions[2])
	}
	if err := election.Validate(e); err != nil {
		t.Errorf("merged election invalid: %v", err)
	}

	front := result.Cards[0]
	if front.Front == nil || front.Front.CardNumber != 7 || front.Front.BatchOrPrecinctNumber != 3 {
		t.Errorf("front metadata = %+v", front.Front)
	}
	back := result.Cards[1]
	if back.Back == nil || back.Back.ElectionMonth != 11 || back.Back.ElectionType != 'G' {
		t.Errorf("back metadata = %+v", back.Back)
	}
	if back.Ovals[0].Side != election.SideBack {
		t.Errorf("back ovals tagged %q", back.Ovals[0].Side)
	}
}

func TestConvertKeepsPartialPairs(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.back, func(s *side) { s.ovals = ovalsAt(20, 12) })
	result := f.run(t)
	if len(result.Election.GridLayouts[0].GridPositions) != 4 {
		t.Errorf("got %d paired positions, want 4", len(result.Election.GridLayouts[0].GridPositions))
	}
	if result.Election.BallotStyles[0].ID != "card-number-7" {
		t.Errorf("ballot style = %q", result.Election.BallotStyles[0].ID)
	}
}

func TestConvertHeaderFailure(t *testing.T) {
	f := newFixture(t)
	f.input.Definition = definition(t, "")
	result := f.run(t)

	if result.Success || result.Election != nil {
		t.Fatalf("Success = %v, Election = %v", result.Success, result.Election)
	}
	if len(result.Issues) != 1 || result.Issues[0].Kind() != issue.KindMissingDefinitionProperty {
		t.Errorf("issues = %v", kinds(result.Issues))
	}
	if f.detector.ovalCalls != 0 {
		t.Error("detector should not run after a header failure")
	}
}

func TestConvertTimingMarksNotFound(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.front, func(s *side) { s.marks = nil })
	result := f.run(t)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Election == nil || result.Election.BallotStyles[0].ID != header.DefaultBallotStyleID {
		t.Fatalf("expected the header election, got %+v", result.Election)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v", kinds(result.Issues))
	}
	is, ok := result.Issues[0].(issue.TimingMarkDetectionFailed)
	if !ok || is.Side != election.SideFront {
		t.Errorf("issue = %#v", result.Issues[0])
	}
	if f.detector.ovalCalls != 0 {
		t.Error("ovals searched without both metadata")
	}
}

func TestConvertDetectorError(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.back, func(s *side) { s.marksErr = errors.New("threshold failed") })
	result := f.run(t)

	is, ok := result.Issues[0].(issue.TimingMarkDetectionFailed)
	if !ok || is.Side != election.SideBack || is.Reason != "threshold failed" {
		t.Errorf("issues = %#v", result.Issues)
	}
}

func TestConvertOvalDetectorError(t *testing.T) {
	f := newFixture(t)
	cause := errors.New("match template failed")
	f.update(f.detector.back, func(s *side) { s.ovalsErr = cause })
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard, "", 0)

	result, err := Convert(f.input, f.detector, opts)
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if !strings.Contains(err.Error(), "back") {
		t.Errorf("err = %q, want the side named", err)
	}
}

func TestConvertIncompleteLattice(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.front, func(s *side) {
		s.marks.TopLeft = nil
		s.marks.BottomLeft = nil
	})
	result := f.run(t)

	is, ok := result.Issues[0].(issue.TimingMarkDetectionFailed)
	if !ok || is.Side != election.SideFront || is.Reason == "" {
		t.Errorf("issues = %#v", result.Issues)
	}
}

func TestConvertMissingMetadata(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.back, func(s *side) { s.marks.BottomRight = nil })
	result := f.run(t)

	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v", kinds(result.Issues))
	}
	is, ok := result.Issues[0].(issue.MissingTimingMarkMetadata)
	if !ok || is.Side != election.SideBack || is.TimingMarks == nil {
		t.Errorf("issue = %#v", result.Issues[0])
	}
}

func TestConvertInvalidMetadata(t *testing.T) {
	f := newFixture(t)
	seq := timing.EncodeFront(3, 7, 0)
	seq[len(seq)-1] = 0 // start bit
	g := ballot.LetterGeometry().Grid
	f.update(f.detector.front, func(s *side) { s.marks = marksFor(g, seq) })
	result := f.run(t)

	if result.Success || len(result.Issues) != 1 {
		t.Fatalf("issues = %v", kinds(result.Issues))
	}
	is, ok := result.Issues[0].(issue.InvalidTimingMarkMetadata)
	if !ok || is.Side != election.SideFront || len(is.TimingMarkBits) != timing.MetadataBitCount {
		t.Fatalf("issue = %#v", result.Issues[0])
	}
	var merr *timing.MetadataError
	if !errors.As(is.ValidationError, &merr) {
		t.Errorf("ValidationError = %v", is.ValidationError)
	}
}

func TestConvertMismatchedOvalGrids(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.back, func(s *side) { s.ovals = ovalsAt(20, 12) })
	result := f.run(t)

	if result.Success || len(result.Issues) != 1 {
		t.Fatalf("issues = %v", kinds(result.Issues))
	}
	is, ok := result.Issues[0].(issue.MismatchedOvalGrids)
	if !ok {
		t.Fatalf("issue = %#v", result.Issues[0])
	}
	mismatch, ok := is.PairIssue.(grid.ColumnEntryCountMismatch)
	if !ok || mismatch.ColumnIndex != 1 || mismatch.ColumnEntryCounts != [2]int{2, 1} {
		t.Errorf("pair issue = %#v", is.PairIssue)
	}
	if !strings.Contains(is.Message(), "column 1: 2 vs 1") {
		t.Errorf("message = %q", is.Message())
	}
}

func TestConvertExtraOvalColumn(t *testing.T) {
	f := newFixture(t)
	f.update(f.detector.back, func(s *side) { s.ovals = append(s.ovals, ovalsAt(28, 4)...) })
	result := f.run(t)

	is, ok := result.Issues[0].(issue.MismatchedOvalGrids)
	if !ok {
		t.Fatalf("issues = %#v", result.Issues)
	}
	if m, ok := is.PairIssue.(grid.ColumnCountMismatch); !ok || m.ColumnCounts != [2]int{2, 3} {
		t.Errorf("pair issue = %#v", is.PairIssue)
	}
}

func TestConvertTemplateSizeMismatch(t *testing.T) {
	f := newFixture(t)
	legal := image.NewGray(image.Rect(0, 0, 612, 1008))
	f.detector.sides[legal] = f.detector.sides[f.input.Front]
	f.input.Front = legal
	result := f.run(t)

	if result.Success {
		t.Fatal("expected failure")
	}
	is, ok := result.Issues[0].(issue.InvalidTemplateSize)
	if !ok {
		t.Fatalf("issues = %#v", result.Issues)
	}
	if is.PaperSize != ballot.PaperLetter || is.FrontTemplateSize.Height != 1008 || is.BackTemplateSize.Height != 792 {
		t.Errorf("issue = %+v", is)
	}
	if result.Election.BallotLayout.PaperSize != string(ballot.PaperLetter) {
		t.Errorf("paper size = %q", result.Election.BallotLayout.PaperSize)
	}
}

func TestConvertTemplatesOverrideHeaderPaperSize(t *testing.T) {
	f := newFixture(t)
	g := ballot.LegalGeometry().Grid
	front := image.NewGray(image.Rect(0, 0, 612, 1008))
	back := image.NewGray(image.Rect(0, 0, 612, 1008))
	f.detector.sides[front] = side{marks: marksFor(g, timing.EncodeFront(3, 7, 0)), ovals: ovalsAt(5, 9, 10, 11)}
	f.detector.sides[back] = side{marks: marksFor(g, timing.EncodeBack(3, 11, 20, 'G')), ovals: ovalsAt(20, 12, 13)}
	f.input.Front, f.input.Back = front, back
	result := f.run(t)

	if len(result.Issues) != 1 || result.Issues[0].Kind() != issue.KindInvalidTemplateSize {
		t.Fatalf("issues = %v", kinds(result.Issues))
	}
	if result.Election.BallotLayout.PaperSize != string(ballot.PaperLegal) {
		t.Errorf("paper size = %q, want legal", result.Election.BallotLayout.PaperSize)
	}
	if result.Election.GridLayouts[0].Rows != g.Rows {
		t.Errorf("rows = %d, want %d", result.Election.GridLayouts[0].Rows, g.Rows)
	}
}

func TestConvertRejectsMissingInputs(t *testing.T) {
	if _, err := Convert(Input{}, &fakeDetector{}, DefaultOptions()); err == nil {
		t.Error("expected error for nil definition")
	}
	f := newFixture(t)
	if _, err := Convert(f.input, nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil detector")
	}
}
