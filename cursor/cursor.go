package cursor

import (
	"fmt"

	"github.com/jakson-go/carbon/kind"
)

// Mode selects whether a Cursor may mutate its Block.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// maxSavedPositions bounds the save/restore stack (spec §3 "design
// choice: ≥8"); iterators rely on this being shallow and fixed so a
// runaway save loop cannot leak memory silently.
const maxSavedPositions = 32

// Cursor is a borrowed, position-tracking view over a Block (spec
// §4.A "File cursor contract").
type Cursor struct {
	block *Block
	mode  Mode
	pos   int
	saved []int

	bitMode     bool
	bitReadIdx  int
	bitWriteIdx int
	bitBytesN   int // bytes completed since BeginBitMode
}

// Open attaches a cursor to block at offset 0.
func Open(block *Block, mode Mode) *Cursor {
	return &Cursor{block: block, mode: mode}
}

// Block returns the underlying memory block.
func (c *Cursor) Block() *Block { return c.block }

// Tell returns the current offset.
func (c *Cursor) Tell() int { return c.pos }

// Seek moves to an absolute position in [0, capacity].
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > c.block.Capacity() {
		return fmt.Errorf("%w: seek %d", kind.ErrOutOfBounds, pos)
	}
	c.pos = pos
	return nil
}

// Rewind seeks to offset 0.
func (c *Cursor) Rewind() { c.pos = 0 }

// Skip advances the position by n bytes without reading.
func (c *Cursor) Skip(n int) error { return c.Seek(c.pos + n) }

func (c *Cursor) checkWritable() error {
	if c.mode != ReadWrite {
		return fmt.Errorf("%w: cursor is read-only", kind.ErrIllegalOp)
	}
	return nil
}

// Peek returns n bytes at the current position without advancing.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if c.bitMode {
		return nil, fmt.Errorf("%w: byte read during bit mode", kind.ErrIllegalState)
	}
	if c.pos+n > c.block.Size() {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", kind.ErrOutOfBounds, n, c.pos, c.block.Size())
	}
	return c.block.buf[c.pos : c.pos+n], nil
}

// Read returns n bytes at the current position and advances past them.
func (c *Cursor) Read(n int) ([]byte, error) {
	data, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return data, nil
}

// Write appends/overwrites bytes at the cursor, growing the block
// geometrically as needed, and advances past them.
func (c *Cursor) Write(data []byte) error {
	if c.bitMode {
		return fmt.Errorf("%w: byte write during bit mode", kind.ErrIllegalState)
	}
	if err := c.checkWritable(); err != nil {
		return err
	}
	c.block.writeAt(c.pos, data)
	c.pos += len(data)
	return nil
}

// WriteZero writes n zero bytes at the cursor (spec §4.A), growing the
// block as needed and zeroing every byte in the range explicitly, so
// bytes already present there are overwritten.
func (c *Cursor) WriteZero(n int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	need := c.pos + n
	c.block.growTo(need)
	for i := c.pos; i < need; i++ {
		c.block.buf[i] = 0
	}
	c.pos = need
	return nil
}

// EnsureSpace grows the block so pos+n <= capacity without moving pos.
func (c *Cursor) EnsureSpace(n int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	c.block.Resize(c.pos + n)
	return nil
}

// MoveRight shifts bytes [pos, size) to [pos+n, size+n), growing the
// block first if needed. The window [pos, pos+n) is left undefined —
// callers immediately overwrite it (inserter capacity rewrites, §4.D.3).
func (c *Cursor) MoveRight(n int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	oldSize := c.block.Size()
	c.block.growTo(oldSize + n)
	copy(c.block.buf[c.pos+n:oldSize+n], c.block.buf[c.pos:oldSize])
	return nil
}

// MoveLeft shifts bytes [pos+n, size) to [pos, size-n), closing a gap
// of n bytes starting at pos.
func (c *Cursor) MoveLeft(n int) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if c.pos+n > c.block.Size() {
		return fmt.Errorf("%w: move_left %d past size", kind.ErrOutOfBounds, n)
	}
	copy(c.block.buf[c.pos:c.block.Size()-n], c.block.buf[c.pos+n:c.block.Size()])
	c.block.size -= n
	return nil
}

// SavePosition pushes the current offset onto a bounded stack.
func (c *Cursor) SavePosition() error {
	if len(c.saved) >= maxSavedPositions {
		return fmt.Errorf("%w: save_position stack full", kind.ErrIllegalState)
	}
	c.saved = append(c.saved, c.pos)
	return nil
}

// RestorePosition pops the stack and seeks to the popped offset.
// Restoring with an empty stack fails (spec §3 invariant: the stack
// "never underflows; imbalance is a programming error").
func (c *Cursor) RestorePosition() error {
	if len(c.saved) == 0 {
		return fmt.Errorf("%w: restore_position on empty stack", kind.ErrIllegalState)
	}
	n := len(c.saved) - 1
	c.pos = c.saved[n]
	c.saved = c.saved[:n]
	return nil
}
