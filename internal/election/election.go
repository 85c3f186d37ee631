// Package election defines the election model produced by template
// conversion and consumed read-only by ballot interpretation.
package election

import (
	"encoding/json"
)

// Identifier types. All are produced by MakeID or derived from header ids.
type (
	PartyID       string
	ContestID     string
	CandidateID   string
	DistrictID    string
	PrecinctID    string
	BallotStyleID string
)

// Side identifies the face of a ballot card.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Before reports whether s sorts before other; front precedes back.
func (s Side) Before(other Side) bool {
	return s == SideFront && other == SideBack
}

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// Party is a political party referenced by candidates.
type Party struct {
	ID       PartyID `json:"id"`
	Name     string  `json:"name"`
	FullName string  `json:"fullName"`
	Abbrev   string  `json:"abbrev"`
}

// Candidate is a named choice in a candidate contest.
type Candidate struct {
	ID       CandidateID `json:"id"`
	Name     string      `json:"name"`
	PartyIDs []PartyID   `json:"partyIds,omitempty"`
}

// Contest is either a *CandidateContest or a *YesNoContest.
type Contest interface {
	ContestID() ContestID
	ContestTitle() string
	ContestDistrict() DistrictID
	isContest()
}

// CandidateContest asks voters to choose up to Seats candidates.
type CandidateContest struct {
	ID            ContestID   `json:"id"`
	Title         string      `json:"title"`
	Section       string      `json:"section"`
	DistrictID    DistrictID  `json:"districtId"`
	Seats         int         `json:"seats"`
	AllowWriteIns bool        `json:"allowWriteIns"`
	Candidates    []Candidate `json:"candidates"`
}

func (c *CandidateContest) ContestID() ContestID { return c.ID }
func (c *CandidateContest) ContestTitle() string { return c.Title }
func (c *CandidateContest) ContestDistrict() DistrictID { return c.DistrictID }
func (*CandidateContest) isContest() {}

// Candidate returns the candidate with the given id.
func (c *CandidateContest) Candidate(id CandidateID) (Candidate, bool) {
	for _, cand := range c.Candidates {
		if cand.ID == id {
			return cand, true
		}
	}
	return Candidate{}, false
}

// MarshalJSON adds the "candidate" type discriminator.
func (c *CandidateContest) MarshalJSON() ([]byte, error) {
	type plain CandidateContest
	return json.Marshal(struct {
		Type string `json:"type"`
		*plain
	}{"candidate", (*plain)(c)})
}

// YesNoContest is a ballot measure answered yes or no.
type YesNoContest struct {
	ID          ContestID  `json:"id"`
	Title       string     `json:"title"`
	Section     string     `json:"section"`
	DistrictID  DistrictID `json:"districtId"`
	Description string     `json:"description"`
}

func (c *YesNoContest) ContestID() ContestID { return c.ID }
func (c *YesNoContest) ContestTitle() string { return c.Title }
func (c *YesNoContest) ContestDistrict() DistrictID { return c.DistrictID }
func (*YesNoContest) isContest() {}

// MarshalJSON adds the "yesno" type discriminator.
func (c *YesNoContest) MarshalJSON() ([]byte, error) {
	type plain YesNoContest
	return json.Marshal(struct {
		Type string `json:"type"`
		*plain
	}{"yesno", (*plain)(c)})
}

// County is the jurisdiction the election belongs to.
type County struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// District groups contests by electorate.
type District struct {
	ID   DistrictID `json:"id"`
	Name string     `json:"name"`
}

// Precinct is a voting location.
type Precinct struct {
	ID   PrecinctID `json:"id"`
	Name string     `json:"name"`
}

// BallotStyle binds districts and precincts to one printed card variant.
type BallotStyle struct {
	ID        BallotStyleID `json:"id"`
	Districts []DistrictID  `json:"districts"`
	Precincts []PrecinctID  `json:"precincts"`
}

// TargetMarkPosition is where ovals sit relative to option text.
type TargetMarkPosition string

const (
	TargetMarkLeft  TargetMarkPosition = "left"
	TargetMarkRight TargetMarkPosition = "right"
)

// BallotLayout holds card-wide layout properties.
type BallotLayout struct {
	PaperSize          string             `json:"paperSize"`
	TargetMarkPosition TargetMarkPosition `json:"targetMarkPosition"`
}

// MarkThresholds are the fill ratios used by interpretation.
type MarkThresholds struct {
	Marginal    float64 `json:"marginal" yaml:"marginal"`
	Definite    float64 `json:"definite" yaml:"definite"`
	WriteInText float64 `json:"writeInText,omitempty" yaml:"write_in_text,omitempty"`
}

// AdjudicationReason names a condition that sends a ballot to review.
type AdjudicationReason string

const (
	AdjudicationUninterpretableBallot AdjudicationReason = "UninterpretableBallot"
	AdjudicationMarginalMark          AdjudicationReason = "MarginalMark"
	AdjudicationOvervote              AdjudicationReason = "Overvote"
	AdjudicationUndervote             AdjudicationReason = "Undervote"
	AdjudicationMarkedWriteIn         AdjudicationReason = "MarkedWriteIn"
	AdjudicationBlankBallot           AdjudicationReason = "BlankBallot"
)

// GridLayout binds every option of a ballot style to a grid position.
type GridLayout struct {
	PrecinctID    PrecinctID     `json:"precinctId"`
	BallotStyleID BallotStyleID  `json:"ballotStyleId"`
	Columns       int            `json:"columns"`
	Rows          int            `json:"rows"`
	GridPositions []GridPosition `json:"gridPositions"`
}

// Election is a complete election definition. It is not mutated after
// conversion returns it.
type Election struct {
	Title                           string               `json:"title"`
	Date                            string               `json:"date"`
	County                          County               `json:"county"`
	State                           string               `json:"state"`
	SealURL                         string               `json:"sealUrl,omitempty"`
	Parties                         []Party              `json:"parties"`
	Contests                        []Contest            `json:"contests"`
	Districts                       []District           `json:"districts"`
	Precincts                       []Precinct           `json:"precincts"`
	BallotStyles                    []BallotStyle        `json:"ballotStyles"`
	BallotLayout                    BallotLayout         `json:"ballotLayout"`
	GridLayouts                     []GridLayout         `json:"gridLayouts"`
	MarkThresholds                  MarkThresholds       `json:"markThresholds"`
	CentralScanAdjudicationReasons  []AdjudicationReason `json:"centralScanAdjudicationReasons"`
	PrecinctScanAdjudicationReasons []AdjudicationReason `json:"precinctScanAdjudicationReasons"`
}

// Contest returns the contest with the given id.
func (e *Election) Contest(id ContestID) (Contest, bool) {
	for _, c := range e.Contests {
		if c.ContestID() == id {
			return c, true
		}
	}
	return nil, false
}
