// Package report renders a conversion result as Markdown or HTML for the
// people fixing a card definition.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"ballot-converter/internal/bits"
	"ballot-converter/internal/convert"
	"ballot-converter/internal/election"
	"ballot-converter/internal/issue"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders r.
func Markdown(r *convert.Result) string {
	var b strings.Builder

	title := "Ballot card conversion"
	if r.Election != nil {
		title = r.Election.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))
	if r.Success {
		b.WriteString("**Status:** converted\n\n")
	} else {
		fmt.Fprintf(&b, "**Status:** failed with %d issue(s)\n\n", len(r.Issues))
	}

	if len(r.Issues) > 0 {
		b.WriteString("## Issues\n\n| Kind | Side | Message |\n| --- | --- | --- |\n")
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", is.Kind(), issueSide(is), escape(is.Message()))
		}
		b.WriteString("\n")
	}

	for _, card := range r.Cards {
		writeCard(&b, card)
	}

	if e := r.Election; e != nil {
		writeElection(&b, e)
	}
	return b.String()
}

// HTML renders r as a standalone HTML fragment.
func HTML(w io.Writer, r *convert.Result) error {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func issueSide(is issue.Issue) string {
	switch is := is.(type) {
	case issue.InvalidTimingMarkMetadata:
		return string(is.Side)
	case issue.MissingTimingMarkMetadata:
		return string(is.Side)
	case issue.TimingMarkDetectionFailed:
		return string(is.Side)
	case issue.ElectionValidationFailed, issue.InvalidBallotSize, issue.InvalidDistrictID,
		issue.InvalidElectionDate, issue.InvalidTemplateSize, issue.MismatchedOvalGrids,
		issue.MissingDefinitionProperty:
		return ""
	default:
		panic(fmt.Sprintf("report: unhandled issue %T", is))
	}
}

func writeCard(b *strings.Builder, card *convert.Card) {
	fmt.Fprintf(b, "## %s\n\n", titleCase(string(card.Side)))
	if card.TimingMarks == nil {
		b.WriteString("No timing marks found.\n\n")
		return
	}
	fmt.Fprintf(b, "- Timing marks: %d detected\n", card.TimingMarks.Count())
	if card.Bits != nil {
		fmt.Fprintf(b, "- Bottom row bits: `%s`\n", bits.String(card.Bits))
	}
	if m := card.Front; m != nil {
		fmt.Fprintf(b, "- Batch or precinct %d, card %d, sequence %d\n", m.BatchOrPrecinctNumber, m.CardNumber, m.SequenceNumber)
	}
	if m := card.Back; m != nil {
		fmt.Fprintf(b, "- Election %d/%d/%d, type %c\n", m.ElectionMonth, m.ElectionDay, m.ElectionYear, m.ElectionType)
	}
	if card.Ovals != nil {
		fmt.Fprintf(b, "- Ovals: %d\n", len(card.Ovals))
	}
	b.WriteString("\n")
}

func writeElection(b *strings.Builder, e *election.Election) {
	b.WriteString("## Election\n\n")
	fmt.Fprintf(b, "- Date: %s\n- Town: %s (%s)\n- Paper: %s\n", e.Date, escape(e.County.Name), e.County.ID, e.BallotLayout.PaperSize)
	if len(e.BallotStyles) > 0 {
		fmt.Fprintf(b, "- Ballot style: `%s`\n", e.BallotStyles[0].ID)
	}
	b.WriteString("\n")

	if len(e.GridLayouts) == 0 {
		return
	}
	b.WriteString("| Contest | Option | Side | Column | Row |\n| --- | --- | --- | ---: | ---: |\n")
	for _, pos := range e.GridLayouts[0].GridPositions {
		contest, ok := e.Contest(pos.Contest())
		name := string(pos.Contest())
		if ok {
			name = contest.ContestTitle()
		}
		loc := pos.Location()
		fmt.Fprintf(b, "| %s | %s | %s | %d | %d |\n", escape(name), escape(optionLabel(contest, pos)), loc.Side, loc.Column, loc.Row)
	}
	b.WriteString("\n")
}

func optionLabel(contest election.Contest, pos election.GridPosition) string {
	switch pos := pos.(type) {
	case election.OptionPosition:
		if cc, ok := contest.(*election.CandidateContest); ok {
			if c, found := cc.Candidate(pos.OptionID); found {
				return c.Name
			}
		}
		return string(pos.OptionID)
	case election.WriteInPosition:
		return fmt.Sprintf("Write-in %d", pos.WriteInIndex+1)
	default:
		panic(fmt.Sprintf("report: unhandled grid position %T", pos))
	}
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", "\n", " ")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
