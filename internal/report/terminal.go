package report

import (
	"fmt"
	"strings"

	"ballot-converter/internal/convert"
	"ballot-converter/internal/issue"

	"github.com/charmbracelet/lipgloss"
)

var (
	statusOK     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	statusFailed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	fatalKind    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningKind  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	dim          = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Summary renders r for a terminal: a status line followed by one line per
// issue, fatal kinds in red. Colors are dropped when the output is not a
// terminal.
func Summary(r *convert.Result) string {
	var b strings.Builder
	if r.Success {
		b.WriteString(statusOK.Render("converted"))
	} else {
		b.WriteString(statusFailed.Render(fmt.Sprintf("failed with %d issue(s)", len(r.Issues))))
	}
	if e := r.Election; e != nil && len(e.BallotStyles) > 0 {
		b.WriteString(dim.Render(fmt.Sprintf(" %s, %s", e.BallotStyles[0].ID, e.BallotLayout.PaperSize)))
	}
	b.WriteString("\n")

	for _, is := range r.Issues {
		style := warningKind
		if issue.Fatal(is) {
			style = fatalKind
		}
		b.WriteString(style.Render(string(is.Kind())))
		if side := issueSide(is); side != "" {
			b.WriteString(dim.Render(" [" + side + "]"))
		}
		b.WriteString(": " + is.Message() + "\n")
	}
	return b.String()
}
