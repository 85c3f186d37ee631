// Package header converts an AccuVote ballot header (AVSInterface XML)
// into an election definition with a provisional option grid.
package header

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Document is the AVSInterface root. Optional and required elements are
// pointers so an absent element can be told apart from an empty one.
type Document struct {
	XMLName    xml.Name       `xml:"AVSInterface"`
	HeaderInfo *HeaderInfo    `xml:"AccuvoteHeaderInfo"`
	Contests   []ContestBlock `xml:"Candidates"`
}

// HeaderInfo carries the election-wide header fields.
type HeaderInfo struct {
	ElectionID   *string `xml:"ElectionID"`
	ElectionName *string `xml:"ElectionName"`
	TownName     *string `xml:"TownName"`
	TownID       *string `xml:"TownID"`
	ElectionDate *string `xml:"ElectionDate"`
	PrecinctID   *string `xml:"PrecinctID"`
	BallotSize   *string `xml:"BallotSize"`
}

// ContestBlock is one Candidates element: an office and its entries.
type ContestBlock struct {
	OfficeName *OfficeName      `xml:"OfficeName"`
	Candidates []CandidateEntry `xml:"CandidateName"`
}

// OfficeName names the office and, optionally, the seat count phrase.
type OfficeName struct {
	Name       *string `xml:"Name"`
	WinnerNote *string `xml:"WinnerNote"`
}

// CandidateEntry is one printed option row.
type CandidateEntry struct {
	Name    *string `xml:"Name"`
	Party   *string `xml:"Party"`
	WriteIn *string `xml:"WriteIn"`
	OX      *string `xml:"OX"`
	OY      *string `xml:"OY"`
}

// IsWriteIn reports whether the entry is a write-in slot.
func (c CandidateEntry) IsWriteIn() bool {
	return c.WriteIn != nil && *c.WriteIn == "True"
}

// Parse decodes an AVSInterface document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode ballot header: %w", err)
	}
	return &doc, nil
}

// ParseString decodes an AVSInterface document held in memory.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// field returns the header field or nil when the header block is absent.
func (d *Document) field(get func(*HeaderInfo) *string) *string {
	if d.HeaderInfo == nil {
		return nil
	}
	return get(d.HeaderInfo)
}
