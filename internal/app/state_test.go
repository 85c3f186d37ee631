package app

import (
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/config"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/issue"
	"ballot-converter/internal/timing"
)

const definition = `<AVSInterface><AccuvoteHeaderInfo>
<ElectionID>GP2020</ElectionID><ElectionName>General Election</ElectionName>
<TownName>Hooksett</TownName><TownID>12345</TownID>
<ElectionDate>11/3/2020 00:00:00</ElectionDate>
<PrecinctID>1</PrecinctID><BallotSize>8.5X11</BallotSize>
</AccuvoteHeaderInfo>
<Candidates><OfficeName><Name>Governor</Name></OfficeName>
<CandidateName><Name>Alice Adams</Name><OX>236.126</OX><OY>245.768</OY></CandidateName>
</Candidates></AVSInterface>`

// noMarks finds nothing, which converts the header only.
type noMarks struct{}

func (noMarks) FindTimingMarks(image.Image, ballot.CardGeometry) (*timing.PartialMarks, error) {
	return nil, nil
}

func (noMarks) FindTemplateOvals(image.Image, image.Image, *timing.CompleteMarks, ballot.CardGeometry) ([]grid.Oval, error) {
	return nil, nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func writeInputs(t *testing.T, dir string) (def, front, back string) {
	t.Helper()
	def = filepath.Join(dir, "card.xml")
	front = filepath.Join(dir, "front.png")
	back = filepath.Join(dir, "back.png")
	if err := os.WriteFile(def, []byte(definition), 0644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, front, 612, 792)
	writePNG(t, back, 612, 792)
	return def, front, back
}

func TestConvertSession(t *testing.T) {
	dir := t.TempDir()
	def, front, back := writeInputs(t, dir)

	s := NewState(config.Default())
	var events []EventType
	for _, e := range []EventType{EventDefinitionLoaded, EventImageLoaded, EventConverted, EventElectionSaved, EventReportSaved} {
		e := e
		s.On(e, func(interface{}) { events = append(events, e) })
	}

	if err := s.LoadDefinition(def); err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	if err := s.LoadFrontImage(front); err != nil {
		t.Fatalf("LoadFrontImage: %v", err)
	}
	if err := s.LoadBackImage(back); err != nil {
		t.Fatalf("LoadBackImage: %v", err)
	}

	result, err := s.Convert(noMarks{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.Success || len(result.Issues) != 2 || result.Issues[0].Kind() != issue.KindTimingMarkDetectionFailed {
		t.Fatalf("result = %+v", result)
	}

	electionPath := filepath.Join(dir, "election.json")
	if err := s.SaveElection(electionPath); err != nil {
		t.Fatalf("SaveElection: %v", err)
	}
	data, err := os.ReadFile(electionPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("election JSON: %v", err)
	}
	if decoded["title"] != "General Election" {
		t.Errorf("title = %v", decoded["title"])
	}

	reportPath := filepath.Join(dir, "report.html")
	if err := s.SaveReport(reportPath); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	html, _ := os.ReadFile(reportPath)
	if !strings.Contains(string(html), "TimingMarkDetectionFailed") {
		t.Errorf("report missing issue:\n%s", html)
	}

	issuesPath := filepath.Join(dir, "issues.json")
	if err := s.SaveIssues(issuesPath); err != nil {
		t.Fatalf("SaveIssues: %v", err)
	}

	want := []EventType{EventDefinitionLoaded, EventImageLoaded, EventImageLoaded, EventConverted, EventElectionSaved, EventReportSaved}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	def, front, back := writeInputs(t, dir)

	s := NewState(config.Default())
	if err := s.LoadDefinition(def); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadFrontImage(front); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadBackImage(back); err != nil {
		t.Fatal(err)
	}
	jobPath := filepath.Join(dir, "hooksett.cardjob")
	if err := s.SaveProject(jobPath, "Hooksett"); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}

	loaded := NewState(config.Default())
	if err := loaded.LoadProject(jobPath); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if loaded.Definition == nil || loaded.FrontImage.Path != front || loaded.BackImage.Path != back {
		t.Errorf("loaded state = %+v", loaded)
	}
	if loaded.Project.Name != "Hooksett" {
		t.Errorf("project name = %q", loaded.Project.Name)
	}
}

func TestConvertRequiresInputs(t *testing.T) {
	s := NewState(config.Default())
	if _, err := s.Convert(noMarks{}); err == nil {
		t.Error("expected error without inputs")
	}
	if err := s.SaveElection(filepath.Join(t.TempDir(), "e.json")); err == nil {
		t.Error("expected error before conversion")
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	s := NewState(config.Default())
	if err := s.LoadFrontImage("front.gif"); err == nil {
		t.Error("expected error")
	}
}
