package timing

import (
	"fmt"
	"strings"

	"ballot-converter/internal/bits"
)

// MetadataBitCount is the number of data bits in the bottom row of a card side.
const MetadataBitCount = 32

// Front field widths, in reading order.
const (
	frontChecksumBits = 2
	frontBatchBits    = 13
	frontCardBits     = 13
	frontSequenceBits = 1
	frontReservedBits = 2
	frontStartBits    = 1
)

// Back field widths, in reading order.
const (
	backDayBits   = 5
	backMonthBits = 4
	backYearBits  = 7
	backTypeBits  = 5
	backEnderBits = 11
)

// BackEnderCode is the fixed pattern closing every back-side bit sequence.
const BackEnderCode = 0b01111011110

// validElectionTypes are the election type letters the format defines.
var validElectionTypes = map[rune]bool{'G': true, 'L': true, 'O': true, 'P': true, 'S': true}

// MetadataError lists the fields of a decoded bit sequence that failed validation.
type MetadataError struct {
	Problems []string `json:"problems"`
}

func (e *MetadataError) Error() string {
	return "invalid timing mark metadata: " + strings.Join(e.Problems, "; ")
}

// FrontMetadata is the card identity encoded on the front.
type FrontMetadata struct {
	Bits                  []bits.Bit `json:"bits"`
	Mod4Checksum          uint32     `json:"mod4Checksum"`
	ComputedMod4Checksum  uint32     `json:"computedMod4Checksum"`
	BatchOrPrecinctNumber uint32     `json:"batchOrPrecinctNumber"`
	CardNumber            uint32     `json:"cardNumber"`
	SequenceNumber        uint32     `json:"sequenceNumber"`
	StartBit              uint32     `json:"startBit"`
}

// BackMetadata is the election identity encoded on the back.
type BackMetadata struct {
	Bits          []bits.Bit `json:"bits"`
	ElectionDay   uint32     `json:"electionDay"`
	ElectionMonth uint32     `json:"electionMonth"`
	ElectionYear  uint32     `json:"electionYear"`
	ElectionType  rune       `json:"electionType"`
	EnderCode     uint32     `json:"enderCode"`
}

// DecodeFrontBits maps a front bit sequence onto its fields without
// validating them.
func DecodeFrontBits(seq []bits.Bit) (FrontMetadata, error) {
	m := FrontMetadata{Bits: append([]bits.Bit(nil), seq...)}
	if len(seq) != MetadataBitCount {
		return m, &MetadataError{Problems: []string{fmt.Sprintf("expected %d bits, got %d", MetadataBitCount, len(seq))}}
	}

	r := bits.NewBitReader(seq)
	fields := []struct {
		dst   *uint32
		width int
	}{
		{&m.Mod4Checksum, frontChecksumBits},
		{&m.BatchOrPrecinctNumber, frontBatchBits},
		{&m.CardNumber, frontCardBits},
		{&m.SequenceNumber, frontSequenceBits},
		{nil, frontReservedBits},
		{&m.StartBit, frontStartBits},
	}
	for _, f := range fields {
		if f.dst == nil {
			if err := r.Skip(f.width); err != nil {
				return m, err
			}
			continue
		}
		v, err := r.ReadUint(f.width)
		if err != nil {
			return m, err
		}
		*f.dst = v
	}

	var ones uint32
	for _, b := range seq[frontChecksumBits:] {
		ones += uint32(b)
	}
	m.ComputedMod4Checksum = ones % 4
	return m, nil
}

// Validate checks the checksum and start bit.
func (m FrontMetadata) Validate() error {
	var problems []string
	if len(m.Bits) != MetadataBitCount {
		problems = append(problems, fmt.Sprintf("expected %d bits, got %d", MetadataBitCount, len(m.Bits)))
	}
	if m.Mod4Checksum != m.ComputedMod4Checksum {
		problems = append(problems, fmt.Sprintf("mod4Checksum %d does not match computed %d", m.Mod4Checksum, m.ComputedMod4Checksum))
	}
	if m.StartBit != 1 {
		problems = append(problems, "startBit must be 1")
	}
	if len(problems) > 0 {
		return &MetadataError{Problems: problems}
	}
	return nil
}

// ParseFrontMetadata decodes and validates a front bit sequence.
func ParseFrontMetadata(seq []bits.Bit) (FrontMetadata, error) {
	m, err := DecodeFrontBits(seq)
	if err != nil {
		return m, err
	}
	return m, m.Validate()
}

// DecodeBackBits maps a back bit sequence onto its fields without
// validating them.
func DecodeBackBits(seq []bits.Bit) (BackMetadata, error) {
	m := BackMetadata{Bits: append([]bits.Bit(nil), seq...)}
	if len(seq) != MetadataBitCount {
		return m, &MetadataError{Problems: []string{fmt.Sprintf("expected %d bits, got %d", MetadataBitCount, len(seq))}}
	}

	r := bits.NewBitReader(seq)
	var electionType uint32
	for _, f := range []struct {
		dst   *uint32
		width int
	}{
		{&m.ElectionDay, backDayBits},
		{&m.ElectionMonth, backMonthBits},
		{&m.ElectionYear, backYearBits},
		{&electionType, backTypeBits},
		{&m.EnderCode, backEnderBits},
	} {
		v, err := r.ReadUint(f.width)
		if err != nil {
			return m, err
		}
		*f.dst = v
	}
	m.ElectionType = 'A' + rune(electionType)
	return m, nil
}

// Validate checks the date ranges, election type and ender code.
func (m BackMetadata) Validate() error {
	var problems []string
	if len(m.Bits) != MetadataBitCount {
		problems = append(problems, fmt.Sprintf("expected %d bits, got %d", MetadataBitCount, len(m.Bits)))
	}
	if m.ElectionDay < 1 || m.ElectionDay > 31 {
		problems = append(problems, fmt.Sprintf("electionDay %d out of range", m.ElectionDay))
	}
	if m.ElectionMonth < 1 || m.ElectionMonth > 12 {
		problems = append(problems, fmt.Sprintf("electionMonth %d out of range", m.ElectionMonth))
	}
	if !validElectionTypes[m.ElectionType] {
		problems = append(problems, fmt.Sprintf("electionType %q is not one of G, L, O, P, S", m.ElectionType))
	}
	if m.EnderCode != BackEnderCode {
		problems = append(problems, fmt.Sprintf("enderCode %011b does not match %011b", m.EnderCode, BackEnderCode))
	}
	if len(problems) > 0 {
		return &MetadataError{Problems: problems}
	}
	return nil
}

// ParseBackMetadata decodes and validates a back bit sequence.
func ParseBackMetadata(seq []bits.Bit) (BackMetadata, error) {
	m, err := DecodeBackBits(seq)
	if err != nil {
		return m, err
	}
	return m, m.Validate()
}
