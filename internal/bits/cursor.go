// Package bits provides bit-level access to packed byte buffers.
package bits

// ByteSize is the number of bits in one byte.
const ByteSize = 8

// byteMasks holds the single-bit mask for each intra-byte offset, MSB first.
var byteMasks = [ByteSize]uint8{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

// Cursor is a signed bit position into an implicit byte buffer.
// It performs no bounds checking; callers validate against their buffer.
type Cursor struct {
	offset int
}

// NewCursor returns a cursor positioned at the given bit offset.
func NewCursor(offset int) *Cursor {
	return &Cursor{offset: offset}
}

// Next advances the cursor by one bit.
func (c *Cursor) Next() *Cursor {
	return c.Advance(1)
}

// Prev moves the cursor back by one bit.
func (c *Cursor) Prev() *Cursor {
	return c.Advance(-1)
}

// Advance moves the cursor by n bits. n may be negative.
func (c *Cursor) Advance(n int) *Cursor {
	c.offset += n
	return c
}

// Set jumps to an absolute bit offset.
func (c *Cursor) Set(offset int) *Cursor {
	c.offset = offset
	return c
}

// Offset returns the combined bit offset.
func (c *Cursor) Offset() int {
	return c.offset
}

// IsByteStart reports whether the cursor sits on a byte boundary.
func (c *Cursor) IsByteStart() bool {
	return c.BitOffset() == 0
}

// BitOffset returns the position within the current byte, always in 0..7.
func (c *Cursor) BitOffset() int {
	return ((c.offset % ByteSize) + ByteSize) % ByteSize
}

// ByteOffset returns the index of the byte containing the cursor.
// Negative offsets floor toward negative infinity, so -1 is in byte -1.
func (c *Cursor) ByteOffset() int {
	return (c.offset - c.BitOffset()) / ByteSize
}

// Mask returns the mask selecting the current bit within its byte.
func (c *Cursor) Mask() uint8 {
	return byteMasks[c.BitOffset()]
}

// MaskFor returns Mask() when bit is 1 and zero otherwise.
func (c *Cursor) MaskFor(bit Bit) uint8 {
	if bit == 0 {
		return 0
	}
	return c.Mask()
}

// Copy returns an independent cursor at the same offset.
func (c *Cursor) Copy() *Cursor {
	return NewCursor(c.offset)
}
