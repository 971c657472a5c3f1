package cursor

import (
	"fmt"

	"github.com/jakson-go/carbon/kind"
)

// BeginBitMode switches the cursor into bit-oriented writes/reads.
// Byte-oriented Read/Write are forbidden until EndBitMode (spec §4.A
// "Mixing byte-oriented read/write with bit mode is forbidden").
func (c *Cursor) BeginBitMode() error {
	if c.bitMode {
		return fmt.Errorf("%w: already in bit mode", kind.ErrIllegalState)
	}
	c.bitMode = true
	c.bitReadIdx = 0
	c.bitWriteIdx = 0
	c.bitBytesN = 0
	return nil
}

// InBitMode reports whether the cursor is currently in bit mode.
func (c *Cursor) InBitMode() bool { return c.bitMode }

// EndBitMode flushes any partial byte and returns the number of bytes
// written since BeginBitMode.
func (c *Cursor) EndBitMode() (int, error) {
	if !c.bitMode {
		return 0, fmt.Errorf("%w: not in bit mode", kind.ErrIllegalState)
	}
	if c.bitWriteIdx > 0 {
		// Partial trailing byte already materialized by WriteBit's
		// zero-init; just account for it.
		c.bitBytesN++
	}
	c.bitMode = false
	n := c.bitBytesN
	c.bitBytesN = 0
	c.bitReadIdx = 0
	c.bitWriteIdx = 0
	return n, nil
}

// WriteBit writes a single bit into the current write-bit position,
// auto-advancing to a new zero-initialized byte every 8 bits.
func (c *Cursor) WriteBit(b bool) error {
	if !c.bitMode {
		return fmt.Errorf("%w: write_bit outside bit mode", kind.ErrIllegalState)
	}
	if err := c.checkWritable(); err != nil {
		return err
	}
	if c.bitWriteIdx == 0 {
		c.block.growTo(c.pos + 1)
		c.block.buf[c.pos] = 0
	}
	if b {
		c.block.buf[c.pos] |= 1 << uint(c.bitWriteIdx)
	}
	c.bitWriteIdx++
	if c.bitWriteIdx == 8 {
		c.bitWriteIdx = 0
		c.pos++
		c.bitBytesN++
	}
	return nil
}

// ReadBit reads a single bit, advancing an independent read-bit index
// over the same byte stream WriteBit produced.
func (c *Cursor) ReadBit() (bool, error) {
	if !c.bitMode {
		return false, fmt.Errorf("%w: read_bit outside bit mode", kind.ErrIllegalState)
	}
	if c.pos >= c.block.Size() {
		return false, fmt.Errorf("%w: read_bit past end", kind.ErrOutOfBounds)
	}
	bit := c.block.buf[c.pos]&(1<<uint(c.bitReadIdx)) != 0
	c.bitReadIdx++
	if c.bitReadIdx == 8 {
		c.bitReadIdx = 0
		c.pos++
	}
	return bit, nil
}
