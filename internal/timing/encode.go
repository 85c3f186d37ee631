package timing

import "ballot-converter/internal/bits"

func appendUint(seq []bits.Bit, v uint32, width int) []bits.Bit {
	for i := width - 1; i >= 0; i-- {
		seq = append(seq, bits.Bit((v>>uint(i))&1))
	}
	return seq
}

// EncodeFront produces the front bit sequence for the given card identity,
// including a correct checksum and start bit.
func EncodeFront(batchOrPrecinct, card, sequence uint32) []bits.Bit {
	seq := make([]bits.Bit, frontChecksumBits, MetadataBitCount)
	seq = appendUint(seq, batchOrPrecinct, frontBatchBits)
	seq = appendUint(seq, card, frontCardBits)
	seq = appendUint(seq, sequence, frontSequenceBits)
	seq = appendUint(seq, 0, frontReservedBits)
	seq = appendUint(seq, 1, frontStartBits)

	var ones uint32
	for _, b := range seq[frontChecksumBits:] {
		ones += uint32(b)
	}
	sum := ones % 4
	seq[0] = bits.Bit(sum >> 1 & 1)
	seq[1] = bits.Bit(sum & 1)
	return seq
}

// EncodeBack produces the back bit sequence for the given election date
// and type letter.
func EncodeBack(day, month, year uint32, electionType rune) []bits.Bit {
	seq := make([]bits.Bit, 0, MetadataBitCount)
	seq = appendUint(seq, day, backDayBits)
	seq = appendUint(seq, month, backMonthBits)
	seq = appendUint(seq, year, backYearBits)
	seq = appendUint(seq, uint32(electionType-'A'), backTypeBits)
	seq = appendUint(seq, BackEnderCode, backEnderBits)
	return seq
}
