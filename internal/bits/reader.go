package bits

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a read runs past the end of the buffer.
var ErrOutOfRange = errors.New("bit read out of range")

// Bit is a single binary digit, 0 or 1.
type Bit uint8

// Pack packs bits into bytes, most significant bit first. A trailing
// partial byte is zero-padded.
func Pack(bits []Bit) []byte {
	buf := make([]byte, (len(bits)+ByteSize-1)/ByteSize)
	cursor := NewCursor(0)
	for _, b := range bits {
		buf[cursor.ByteOffset()] |= cursor.MaskFor(b)
		cursor.Next()
	}
	return buf
}

// String renders bits as a string of 0 and 1 characters.
func String(bits []Bit) string {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = '0' + byte(b&1)
	}
	return string(out)
}

// Reader reads fixed-width unsigned fields from a packed buffer.
type Reader struct {
	buf    []byte
	length int
	cursor *Cursor
}

// NewReader returns a reader over the first length bits of buf. length is
// clamped to the bits buf holds.
func NewReader(buf []byte, length int) *Reader {
	length = max(0, min(length, len(buf)*ByteSize))
	return &Reader{buf: buf, length: length, cursor: NewCursor(0)}
}

// NewBitReader packs bits and returns a reader over them.
func NewBitReader(bits []Bit) *Reader {
	return NewReader(Pack(bits), len(bits))
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return r.length - r.cursor.Offset()
}

// ReadBit reads one bit.
func (r *Reader) ReadBit() (Bit, error) {
	if r.Remaining() < 1 {
		return 0, ErrOutOfRange
	}
	bit := Bit(0)
	if r.buf[r.cursor.ByteOffset()]&r.cursor.Mask() != 0 {
		bit = 1
	}
	r.cursor.Next()
	return bit, nil
}

// ReadUint reads an n-bit unsigned field, most significant bit first.
func (r *Reader) ReadUint(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, fmt.Errorf("invalid field width %d", n)
	}
	if r.Remaining() < n {
		return 0, fmt.Errorf("read %d bits at offset %d: %w", n, r.cursor.Offset(), ErrOutOfRange)
	}
	var v uint32
	for i := 0; i < n; i++ {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | uint32(b)
	}
	return v, nil
}

// Skip advances past n bits without reading them.
func (r *Reader) Skip(n int) error {
	if r.Remaining() < n {
		return ErrOutOfRange
	}
	r.cursor.Advance(n)
	return nil
}
