package cursor

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/kind"
)

// maxVarintBytes bounds read_varuint's search for a terminator byte
// (spec §4.A: "fails if no terminator is seen within 10 bytes", i.e.
// ceil(64/7)).
const maxVarintBytes = binary.MaxVarintLen64

// WriteVaruint emits v as a little-endian, 7-bits-per-byte varuint
// with the continuation bit convention spec §3 describes — which is
// bit-for-bit the same encoding encoding/binary already implements
// for Go's standard unsigned varint, so no bespoke bit-shifting loop
// is warranted here (see DESIGN.md).
func (c *Cursor) WriteVaruint(v uint64) error {
	var buf [maxVarintBytes]byte
	n := binary.PutUvarint(buf[:], v)
	return c.Write(buf[:n])
}

// ReadVaruint decodes a varuint at the current position, returning
// the value and the number of bytes consumed, and advances the
// cursor past it.
func (c *Cursor) ReadVaruint() (uint64, int, error) {
	// Peek the maximum possible span; Uvarint tells us how much of it
	// was actually needed.
	avail := c.block.Size() - c.pos
	if avail <= 0 {
		return 0, 0, fmt.Errorf("%w: read_varuint at end", kind.ErrOutOfBounds)
	}
	if avail > maxVarintBytes {
		avail = maxVarintBytes
	}
	window, err := c.Peek(avail)
	if err != nil {
		return 0, 0, err
	}
	v, n := binary.Uvarint(window)
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: no varuint terminator within %d bytes", kind.ErrCorrupted, maxVarintBytes)
	}
	c.pos += n
	return v, n, nil
}
