package election

import (
	"fmt"
	"strings"
	"time"
)

// Problem is one failed shape rule.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every rule an election failed.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Path + ": " + p.Message
	}
	return "invalid election: " + strings.Join(parts, "; ")
}

type validator struct {
	problems []Problem
}

func (v *validator) addf(path, format string, args ...any) {
	v.problems = append(v.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) id(path, id string) {
	if err := ValidateID(id); err != nil {
		v.addf(path, "%v", err)
	}
}

// Validate checks the general election shape rules: well-formed and unique
// ids, and every reference between entities resolving.
func Validate(e *Election) error {
	v := &validator{}

	if strings.TrimSpace(e.Title) == "" {
		v.addf("title", "must not be empty")
	}
	if _, err := time.Parse(time.RFC3339, e.Date); err != nil {
		v.addf("date", "not an RFC 3339 timestamp: %q", e.Date)
	}
	if e.County.ID == "" || e.County.Name == "" {
		v.addf("county", "id and name are required")
	}

	parties := make(map[PartyID]bool)
	for i, p := range e.Parties {
		path := fmt.Sprintf("parties[%d]", i)
		v.id(path+".id", string(p.ID))
		if parties[p.ID] {
			v.addf(path+".id", "duplicate party id %q", p.ID)
		}
		parties[p.ID] = true
	}

	districts := make(map[DistrictID]bool)
	for i, d := range e.Districts {
		path := fmt.Sprintf("districts[%d]", i)
		v.id(path+".id", string(d.ID))
		if districts[d.ID] {
			v.addf(path+".id", "duplicate district id %q", d.ID)
		}
		districts[d.ID] = true
	}

	precincts := make(map[PrecinctID]bool)
	for i, p := range e.Precincts {
		path := fmt.Sprintf("precincts[%d]", i)
		v.id(path+".id", string(p.ID))
		if precincts[p.ID] {
			v.addf(path+".id", "duplicate precinct id %q", p.ID)
		}
		precincts[p.ID] = true
	}

	contests := make(map[ContestID]Contest)
	for i, c := range e.Contests {
		path := fmt.Sprintf("contests[%d]", i)
		v.id(path+".id", string(c.ContestID()))
		if _, dup := contests[c.ContestID()]; dup {
			v.addf(path+".id", "duplicate contest id %q", c.ContestID())
		}
		contests[c.ContestID()] = c
		if !districts[c.ContestDistrict()] {
			v.addf(path+".districtId", "unknown district %q", c.ContestDistrict())
		}

		switch c := c.(type) {
		case *CandidateContest:
			v.candidateContest(path, c, parties)
		case *YesNoContest:
			if c.Title == "" {
				v.addf(path+".title", "must not be empty")
			}
		default:
			panic(fmt.Sprintf("election: unhandled contest %T", c))
		}
	}

	styles := make(map[BallotStyleID]bool)
	for i, bs := range e.BallotStyles {
		path := fmt.Sprintf("ballotStyles[%d]", i)
		v.id(path+".id", string(bs.ID))
		if styles[bs.ID] {
			v.addf(path+".id", "duplicate ballot style id %q", bs.ID)
		}
		styles[bs.ID] = true
		for _, d := range bs.Districts {
			if !districts[d] {
				v.addf(path+".districts", "unknown district %q", d)
			}
		}
		for _, p := range bs.Precincts {
			if !precincts[p] {
				v.addf(path+".precincts", "unknown precinct %q", p)
			}
		}
	}

	for i, layout := range e.GridLayouts {
		v.gridLayout(fmt.Sprintf("gridLayouts[%d]", i), layout, contests, precincts, styles)
	}

	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

func (v *validator) candidateContest(path string, c *CandidateContest, parties map[PartyID]bool) {
	if c.Title == "" {
		v.addf(path+".title", "must not be empty")
	}
	if c.Seats < 1 {
		v.addf(path+".seats", "must be at least 1, got %d", c.Seats)
	}
	seen := make(map[CandidateID]bool)
	for j, cand := range c.Candidates {
		cpath := fmt.Sprintf("%s.candidates[%d]", path, j)
		v.id(cpath+".id", string(cand.ID))
		if seen[cand.ID] {
			v.addf(cpath+".id", "duplicate candidate id %q", cand.ID)
		}
		seen[cand.ID] = true
		for _, pid := range cand.PartyIDs {
			if !parties[pid] {
				v.addf(cpath+".partyIds", "unknown party %q", pid)
			}
		}
	}
}

func (v *validator) gridLayout(path string, layout GridLayout, contests map[ContestID]Contest, precincts map[PrecinctID]bool, styles map[BallotStyleID]bool) {
	if !precincts[layout.PrecinctID] {
		v.addf(path+".precinctId", "unknown precinct %q", layout.PrecinctID)
	}
	if !styles[layout.BallotStyleID] {
		v.addf(path+".ballotStyleId", "unknown ballot style %q", layout.BallotStyleID)
	}
	for j, pos := range layout.GridPositions {
		ppath := fmt.Sprintf("%s.gridPositions[%d]", path, j)
		loc := pos.Location()
		if !loc.Side.Valid() {
			v.addf(ppath+".side", "invalid side %q", loc.Side)
		}
		if loc.Column < 0 || loc.Row < 0 {
			v.addf(ppath, "negative grid coordinate (%d, %d)", loc.Column, loc.Row)
		}
		contest, ok := contests[pos.Contest()]
		if !ok {
			v.addf(ppath+".contestId", "unknown contest %q", pos.Contest())
			continue
		}
		cc, isCandidate := contest.(*CandidateContest)

		switch pos := pos.(type) {
		case OptionPosition:
			if !isCandidate {
				if pos.OptionID != "yes" && pos.OptionID != "no" {
					v.addf(ppath+".optionId", "yes/no contest option must be \"yes\" or \"no\", got %q", pos.OptionID)
				}
				continue
			}
			if _, found := cc.Candidate(pos.OptionID); !found {
				v.addf(ppath+".optionId", "unknown option %q in contest %q", pos.OptionID, pos.ContestID)
			}
		case WriteInPosition:
			if !isCandidate || !cc.AllowWriteIns {
				v.addf(ppath, "contest %q does not allow write-ins", pos.ContestID)
			}
			if pos.WriteInIndex < 0 {
				v.addf(ppath+".writeInIndex", "must not be negative")
			}
		default:
			panic(fmt.Sprintf("election: unhandled grid position %T", pos))
		}
	}
}
