// Package issue defines the closed set of diagnostics a template
// conversion can report.
package issue

import (
	"fmt"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/bits"
	"ballot-converter/internal/election"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"
)

// Kind names an issue variant.
type Kind string

const (
	KindElectionValidationFailed  Kind = "ElectionValidationFailed"
	KindInvalidBallotSize         Kind = "InvalidBallotSize"
	KindInvalidDistrictID         Kind = "InvalidDistrictId"
	KindInvalidElectionDate       Kind = "InvalidElectionDate"
	KindInvalidTemplateSize       Kind = "InvalidTemplateSize"
	KindInvalidTimingMarkMetadata Kind = "InvalidTimingMarkMetadata"
	KindMismatchedOvalGrids       Kind = "MismatchedOvalGrids"
	KindMissingDefinitionProperty Kind = "MissingDefinitionProperty"
	KindMissingTimingMarkMetadata Kind = "MissingTimingMarkMetadata"
	KindTimingMarkDetectionFailed Kind = "TimingMarkDetectionFailed"
)

// Issue is one of the concrete types in this package. Consumers switch
// over the concrete types; the unexported method keeps the set closed.
type Issue interface {
	Kind() Kind
	Message() string
	isIssue()
}

// ElectionValidationFailed means the assembled election broke a shape rule.
type ElectionValidationFailed struct {
	ValidationError error `json:"validationError"`
}

// InvalidBallotSize means the header's paper-size code is unknown.
type InvalidBallotSize struct {
	InvalidBallotSize string `json:"invalidBallotSize"`
}

// InvalidDistrictID means the derived district id is not a valid id.
type InvalidDistrictID struct {
	InvalidDistrictID string `json:"invalidDistrictId"`
	Reason            string `json:"reason"`
}

// InvalidElectionDate means the header date did not parse. InvalidDate is
// the raw header text, unmodified.
type InvalidElectionDate struct {
	InvalidDate   string `json:"invalidDate"`
	InvalidReason string `json:"invalidReason"`
}

// InvalidTemplateSize means the template images do not match the header's
// paper size, or each other.
type InvalidTemplateSize struct {
	PaperSize         ballot.PaperSize `json:"paperSize,omitempty"`
	FrontTemplateSize geometry.Size    `json:"frontTemplateSize"`
	BackTemplateSize  geometry.Size    `json:"backTemplateSize"`
}

// InvalidTimingMarkMetadata means the bottom-row bits decoded but failed
// validation.
type InvalidTimingMarkMetadata struct {
	Side            election.Side        `json:"side"`
	TimingMarks     *timing.PartialMarks `json:"timingMarks"`
	TimingMarkBits  []bits.Bit           `json:"timingMarkBits"`
	ValidationError error                `json:"validationError"`
}

// MismatchedOvalGrids means the header grid and the detected ovals
// disagree in shape.
type MismatchedOvalGrids struct {
	PairIssue grid.Issue `json:"pairColumnEntriesIssue"`
}

// MissingDefinitionProperty means a required header element is absent.
type MissingDefinitionProperty struct {
	Property string `json:"property"`
	Detail   string `json:"detail"`
}

// MissingTimingMarkMetadata means the bottom row could not be read as bits.
type MissingTimingMarkMetadata struct {
	Side        election.Side        `json:"side"`
	TimingMarks *timing.PartialMarks `json:"timingMarks"`
}

// TimingMarkDetectionFailed means no usable lattice was found on a side.
type TimingMarkDetectionFailed struct {
	Side   election.Side `json:"side"`
	Reason string        `json:"reason,omitempty"`
}

func (ElectionValidationFailed) Kind() Kind { return KindElectionValidationFailed }
func (InvalidBallotSize) Kind() Kind { return KindInvalidBallotSize }
func (InvalidDistrictID) Kind() Kind { return KindInvalidDistrictID }
func (InvalidElectionDate) Kind() Kind { return KindInvalidElectionDate }
func (InvalidTemplateSize) Kind() Kind { return KindInvalidTemplateSize }
func (InvalidTimingMarkMetadata) Kind() Kind { return KindInvalidTimingMarkMetadata }
func (MismatchedOvalGrids) Kind() Kind { return KindMismatchedOvalGrids }
func (MissingDefinitionProperty) Kind() Kind { return KindMissingDefinitionProperty }
func (MissingTimingMarkMetadata) Kind() Kind { return KindMissingTimingMarkMetadata }
func (TimingMarkDetectionFailed) Kind() Kind { return KindTimingMarkDetectionFailed }

func (ElectionValidationFailed) isIssue() {}
func (InvalidBallotSize) isIssue() {}
func (InvalidDistrictID) isIssue() {}
func (InvalidElectionDate) isIssue() {}
func (InvalidTemplateSize) isIssue() {}
func (InvalidTimingMarkMetadata) isIssue() {}
func (MismatchedOvalGrids) isIssue() {}
func (MissingDefinitionProperty) isIssue() {}
func (MissingTimingMarkMetadata) isIssue() {}
func (TimingMarkDetectionFailed) isIssue() {}

func (i ElectionValidationFailed) Message() string {
	return i.ValidationError.Error()
}

func (i InvalidBallotSize) Message() string {
	return "invalid ballot size: " + i.InvalidBallotSize
}

func (i InvalidDistrictID) Message() string {
	return fmt.Sprintf("Invalid district ID %q: %s", i.InvalidDistrictID, i.Reason)
}

func (i InvalidElectionDate) Message() string {
	return "invalid date: " + i.InvalidReason
}

func (i InvalidTemplateSize) Message() string {
	return fmt.Sprintf("Template images do not match expected sizes (front %gx%g, back %gx%g).",
		i.FrontTemplateSize.Width, i.FrontTemplateSize.Height,
		i.BackTemplateSize.Width, i.BackTemplateSize.Height)
}

func (i InvalidTimingMarkMetadata) Message() string {
	return fmt.Sprintf("could not parse %s timing mark metadata: %v", i.Side, i.ValidationError)
}

func (i MismatchedOvalGrids) Message() string {
	switch p := i.PairIssue.(type) {
	case grid.ColumnCountMismatch:
		return fmt.Sprintf("XML definition and ballot images have different number of columns containing ovals: %d vs %d",
			p.ColumnCounts[0], p.ColumnCounts[1])
	case grid.ColumnEntryCountMismatch:
		return fmt.Sprintf("XML definition and ballot images have different number of entries in column %d: %d vs %d",
			p.ColumnIndex, p.ColumnEntryCounts[0], p.ColumnEntryCounts[1])
	default:
		panic(fmt.Sprintf("issue: unhandled pair issue %T", p))
	}
}

func (i MissingDefinitionProperty) Message() string {
	return i.Detail
}

func (i MissingTimingMarkMetadata) Message() string {
	return fmt.Sprintf("could not read bottom timing marks on %s as bits", i.Side)
}

func (i TimingMarkDetectionFailed) Message() string {
	if i.Reason != "" {
		return fmt.Sprintf("no timing marks found on %s: %s", i.Side, i.Reason)
	}
	return fmt.Sprintf("no timing marks found on %s", i.Side)
}

// Fatal reports whether an issue aborts conversion. Only header-stage
// problems are fatal; everything else accumulates.
func Fatal(i Issue) bool {
	switch i.(type) {
	case ElectionValidationFailed, InvalidBallotSize, InvalidDistrictID,
		InvalidElectionDate, MissingDefinitionProperty:
		return true
	case InvalidTemplateSize, InvalidTimingMarkMetadata, MismatchedOvalGrids,
		MissingTimingMarkMetadata, TimingMarkDetectionFailed:
		return false
	default:
		panic(fmt.Sprintf("issue: unhandled issue %T", i))
	}
}

// Record is the serialisable form of an issue. Error holds the text of a
// carried validation error, which may not marshal on its own.
type Record struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Detail  Issue  `json:"detail"`
}

// ToRecords converts issues for JSON output.
func ToRecords(issues []Issue) []Record {
	out := make([]Record, len(issues))
	for i, is := range issues {
		out[i] = Record{Kind: is.Kind(), Message: is.Message(), Detail: is}
		if err := carriedError(is); err != nil {
			out[i].Error = err.Error()
		}
	}
	return out
}

func carriedError(i Issue) error {
	switch i := i.(type) {
	case ElectionValidationFailed:
		return i.ValidationError
	case InvalidTimingMarkMetadata:
		return i.ValidationError
	case InvalidBallotSize, InvalidDistrictID, InvalidElectionDate, InvalidTemplateSize,
		MismatchedOvalGrids, MissingDefinitionProperty, MissingTimingMarkMetadata,
		TimingMarkDetectionFailed:
		return nil
	default:
		panic(fmt.Sprintf("issue: unhandled issue %T", i))
	}
}
