package header

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/election"
	"ballot-converter/internal/issue"
)

// DateLayout is the header's election date format, M/D/YYYY HH:MM:SS.
const DateLayout = "1/2/2006 15:04:05"

// DefaultBallotStyleID is used until card metadata supplies a real one.
const DefaultBallotStyleID election.BallotStyleID = "default"

const (
	pathHeaderInfo     = "AVSInterface > AccuvoteHeaderInfo > "
	pathOfficeName     = "AVSInterface > Candidates > OfficeName > Name"
	pathCandidateName  = "AVSInterface > Candidates > CandidateName > Name"
	pathCandidateParty = "AVSInterface > Candidates > CandidateName > Party"
	pathCandidateOX    = "AVSInterface > Candidates > CandidateName > OX"
	pathCandidateOY    = "AVSInterface > Candidates > CandidateName > OY"
)

var (
	seatsPattern = regexp.MustCompile(`Vote for not more than (\d+)`)

	// datePattern requires two-digit time fields, which DateLayout alone
	// does not enforce.
	datePattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{2}:\d{2}:\d{2}$`)
)

// Options tune the parts of conversion that are not fixed by the format.
type Options struct {
	Transform      GridTransform
	Location       *time.Location
	State          string
	SealURL        string
	MarkThresholds election.MarkThresholds
}

// DefaultOptions returns options for New Hampshire AccuVote headers.
func DefaultOptions() Options {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return Options{
		Transform:      DefaultGridTransform(),
		Location:       loc,
		State:          "NH",
		SealURL:        "/seals/Seal_of_New_Hampshire.svg",
		MarkThresholds: election.MarkThresholds{Marginal: 0.05, Definite: 0.08},
	}
}

// slotKey identifies a candidate entry by its position in the document.
type slotKey struct {
	contest, entry int
}

// Cell is one candidate entry placed on the provisional grid.
type Cell struct {
	Contest int
	Entry   int
	Column  int
	Row     int
}

// ReadGrid places every candidate entry on the grid using t.
func ReadGrid(doc *Document, t GridTransform) ([]Cell, issue.Issue) {
	var cells []Cell
	for ci, block := range doc.Contests {
		for ei, entry := range block.Candidates {
			ox, ok := parseCoordinate(entry.OX)
			if !ok {
				return nil, missing(pathCandidateOX, fmt.Sprintf("OX is missing or not a number in candidate %d of contest %d", ei+1, ci+1))
			}
			oy, ok := parseCoordinate(entry.OY)
			if !ok {
				return nil, missing(pathCandidateOY, fmt.Sprintf("OY is missing or not a number in candidate %d of contest %d", ei+1, ci+1))
			}
			column, row := t.Apply(ox, oy)
			cells = append(cells, Cell{Contest: ci, Entry: ei, Column: column, Row: row})
		}
	}
	return cells, nil
}

func parseCoordinate(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	return v, err == nil
}

func missing(property, detail string) issue.Issue {
	return issue.MissingDefinitionProperty{Property: property, Detail: detail}
}

// required returns the named header field or the issue for its absence.
func required(doc *Document, name string, get func(*HeaderInfo) *string) (string, issue.Issue) {
	v := doc.field(get)
	if v == nil {
		return "", missing(pathHeaderInfo+name, name+" is missing")
	}
	return *v, nil
}

// Convert builds an election from the header alone. Every problem found
// here is fatal: on failure the election is nil and exactly one issue is
// returned. The error result is reserved for internal inconsistencies.
func Convert(doc *Document, opts Options) (*election.Election, []issue.Issue, error) {
	fail := func(i issue.Issue) (*election.Election, []issue.Issue, error) {
		return nil, []issue.Issue{i}, nil
	}

	if _, is := required(doc, "ElectionID", func(h *HeaderInfo) *string { return h.ElectionID }); is != nil {
		return fail(is)
	}
	title, is := required(doc, "ElectionName", func(h *HeaderInfo) *string { return h.ElectionName })
	if is != nil {
		return fail(is)
	}
	townName, is := required(doc, "TownName", func(h *HeaderInfo) *string { return h.TownName })
	if is != nil {
		return fail(is)
	}
	townID, is := required(doc, "TownID", func(h *HeaderInfo) *string { return h.TownID })
	if is != nil {
		return fail(is)
	}
	rawDate, is := required(doc, "ElectionDate", func(h *HeaderInfo) *string { return h.ElectionDate })
	if is != nil {
		return fail(is)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	trimmedDate := strings.TrimSpace(rawDate)
	if !datePattern.MatchString(trimmedDate) {
		return fail(issue.InvalidElectionDate{InvalidDate: rawDate, InvalidReason: fmt.Sprintf("%q does not match M/D/YYYY HH:MM:SS", trimmedDate)})
	}
	date, err := time.ParseInLocation(DateLayout, trimmedDate, loc)
	if err != nil {
		return fail(issue.InvalidElectionDate{InvalidDate: rawDate, InvalidReason: err.Error()})
	}

	rawPrecinctID, is := required(doc, "PrecinctID", func(h *HeaderInfo) *string { return h.PrecinctID })
	if is != nil {
		return fail(is)
	}
	cleanedPrecinctID := election.SanitizeIDPart(rawPrecinctID)
	precinctID := election.PrecinctID(fmt.Sprintf("town-id-%s-precinct-id-%s", townID, cleanedPrecinctID))

	rawDistrictID := fmt.Sprintf("town-id-%s-precinct-id-%s", townID, cleanedPrecinctID)
	if err := election.ValidateID(rawDistrictID); err != nil {
		return fail(issue.InvalidDistrictID{InvalidDistrictID: rawDistrictID, Reason: err.Error()})
	}
	districtID := election.DistrictID(rawDistrictID)

	ballotSize, is := required(doc, "BallotSize", func(h *HeaderInfo) *string { return h.BallotSize })
	if is != nil {
		return fail(is)
	}
	paperSize, ok := ballot.ParsePaperSizeCode(ballotSize)
	if !ok {
		return fail(issue.InvalidBallotSize{InvalidBallotSize: ballotSize})
	}
	geom, err := ballot.GeometryFor(paperSize)
	if err != nil {
		return nil, nil, err
	}

	b := newBuilder(districtID)
	for ci, block := range doc.Contests {
		if is := b.addContest(ci, block); is != nil {
			return fail(is)
		}
	}

	cells, is := ReadGrid(doc, opts.Transform)
	if is != nil {
		return fail(is)
	}
	positions := make([]election.GridPosition, 0, len(cells))
	for _, cell := range cells {
		stub, ok := b.slots[slotKey{cell.Contest, cell.Entry}]
		if !ok {
			return nil, nil, fmt.Errorf("metadata missing for column=%d row=%d", cell.Column, cell.Row)
		}
		positions = append(positions, stub(election.GridLocation{
			Side:   election.SideFront,
			Column: cell.Column,
			Row:    cell.Row,
		}))
	}

	e := &election.Election{
		Title:    title,
		Date:     date.Format(time.RFC3339),
		County:   election.County{ID: townID, Name: townName},
		State:    opts.State,
		SealURL:  opts.SealURL,
		Parties:  b.parties,
		Contests: b.contests,
		Districts: []election.District{
			{ID: districtID, Name: townName},
		},
		Precincts: []election.Precinct{
			{ID: precinctID, Name: townName},
		},
		BallotStyles: []election.BallotStyle{{
			ID:        DefaultBallotStyleID,
			Districts: []election.DistrictID{districtID},
			Precincts: []election.PrecinctID{precinctID},
		}},
		BallotLayout: election.BallotLayout{
			PaperSize:          string(paperSize),
			TargetMarkPosition: election.TargetMarkRight,
		},
		GridLayouts: []election.GridLayout{{
			PrecinctID:    precinctID,
			BallotStyleID: DefaultBallotStyleID,
			Columns:       geom.Grid.Columns,
			Rows:          geom.Grid.Rows,
			GridPositions: positions,
		}},
		MarkThresholds: opts.MarkThresholds,
		CentralScanAdjudicationReasons: []election.AdjudicationReason{
			election.AdjudicationUninterpretableBallot,
			election.AdjudicationOvervote,
			election.AdjudicationMarkedWriteIn,
			election.AdjudicationBlankBallot,
		},
		PrecinctScanAdjudicationReasons: []election.AdjudicationReason{
			election.AdjudicationUninterpretableBallot,
			election.AdjudicationOvervote,
			election.AdjudicationBlankBallot,
		},
	}

	if err := election.Validate(e); err != nil {
		return fail(issue.ElectionValidationFailed{ValidationError: err})
	}
	return e, nil, nil
}

// positionStub completes a grid position once its location is known.
type positionStub func(election.GridLocation) election.GridPosition

// builder accumulates parties, contests and position stubs. Parties are
// keyed by name and candidates by derived id, first occurrence first.
type builder struct {
	districtID  election.DistrictID
	parties     []election.Party
	partyByName map[string]election.PartyID
	contests    []election.Contest
	slots       map[slotKey]positionStub
}

func newBuilder(districtID election.DistrictID) *builder {
	return &builder{
		districtID:  districtID,
		partyByName: make(map[string]election.PartyID),
		slots:       make(map[slotKey]positionStub),
	}
}

func (b *builder) party(name string) election.PartyID {
	if id, ok := b.partyByName[name]; ok {
		return id
	}
	id := election.PartyID(election.MakeID(name))
	b.partyByName[name] = id
	b.parties = append(b.parties, election.Party{ID: id, Name: name, FullName: name, Abbrev: name})
	return id
}

func (b *builder) addContest(ci int, block ContestBlock) issue.Issue {
	if block.OfficeName == nil || block.OfficeName.Name == nil {
		return missing(pathOfficeName, "OfficeName is missing")
	}
	officeName := *block.OfficeName.Name
	contestID := election.ContestID(election.MakeID(officeName))

	seats := 1
	if note := block.OfficeName.WinnerNote; note != nil {
		if m := seatsPattern.FindStringSubmatch(*note); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				seats = n
			}
		}
	}

	var candidates []election.Candidate
	index := make(map[election.CandidateID]int)
	writeInIndex := 0

	for ei, entry := range block.Candidates {
		if entry.Name == nil {
			return missing(pathCandidateName, fmt.Sprintf("Name is missing in candidate %d of %s", ei+1, officeName))
		}
		name := *entry.Name

		var partyID election.PartyID
		if entry.Party != nil && *entry.Party != "" {
			partyID = b.party(*entry.Party)
		}

		key := slotKey{ci, ei}
		if entry.IsWriteIn() {
			wi := writeInIndex
			b.slots[key] = func(loc election.GridLocation) election.GridPosition {
				return election.WriteInPosition{GridLocation: loc, ContestID: contestID, WriteInIndex: wi}
			}
			writeInIndex++
			continue
		}

		candidateID := election.CandidateID(election.MakeID(name))
		if i, dup := index[candidateID]; dup {
			existing := candidates[i]
			if partyID == "" || len(existing.PartyIDs) == 0 {
				return missing(pathCandidateParty, fmt.Sprintf(
					"Party is missing in candidate %q of office %q, required for multi-party endorsement", name, officeName))
			}
			existing.PartyIDs = append(append([]election.PartyID(nil), existing.PartyIDs...), partyID)
			candidates[i] = existing
		} else {
			c := election.Candidate{ID: candidateID, Name: name}
			if partyID != "" {
				c.PartyIDs = []election.PartyID{partyID}
			}
			index[candidateID] = len(candidates)
			candidates = append(candidates, c)
		}

		b.slots[key] = func(loc election.GridLocation) election.GridPosition {
			return election.OptionPosition{GridLocation: loc, ContestID: contestID, OptionID: candidateID}
		}
	}

	b.contests = append(b.contests, &election.CandidateContest{
		ID:            contestID,
		Title:         officeName,
		Section:       officeName,
		DistrictID:    b.districtID,
		Seats:         seats,
		AllowWriteIns: writeInIndex > 0,
		Candidates:    candidates,
	})
	return nil
}
