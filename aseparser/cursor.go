package aseparser

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// cursor reads little-endian values from an in-memory buffer.
//
// The first failed read is kept in err and every later read returns zero
// values, so record decoders read straight through and check err once.
type cursor struct {
	buf  []byte
	off  int
	base int // absolute offset of buf[0] in the file
	err  error
	// want is the offset the failed read tried to reach.
	want int

	// last is the most recent non user data chunk, the target of a
	// following user data chunk.
	last Chunk
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) pos() int {
	return c.base + c.off
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || n > c.remaining() {
		c.want = c.off + n
		c.err = errors.Wrapf(ErrOutOfData, "read %d bytes at offset %d, %d left", n, c.pos(), c.remaining())
		return nil
	}
	p := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return p
}

// sub returns a cursor over the next n bytes and advances past them.
func (c *cursor) sub(n int) *cursor {
	base := c.pos()
	p := c.take(n)
	if p == nil && c.err != nil {
		return &cursor{base: base, err: c.err}
	}
	return &cursor{buf: p, base: base}
}

func (c *cursor) u8() uint8 {
	if p := c.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if p := c.take(2); p != nil {
		return binary.LittleEndian.Uint16(p)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if p := c.take(4); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (c *cursor) i16() int16 {
	return int16(c.u16())
}

func (c *cursor) i32() int32 {
	return int32(c.u32())
}

// bytes returns a copy of the next n bytes.
func (c *cursor) bytes(n int) []byte {
	p := c.take(n)
	if p == nil {
		return nil
	}
	return append([]byte(nil), p...)
}

func (c *cursor) skip(n int) {
	c.take(n)
}

// string reads a WORD length followed by that many UTF-8 bytes.
func (c *cursor) string() string {
	n := int(c.u16())
	return string(c.take(n))
}
