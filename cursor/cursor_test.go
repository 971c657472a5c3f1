package cursor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jakson-go/carbon/kind"
)

// TestReadOnlyWriteFails verifies that a read-only cursor rejects
// Write with IllegalOp (spec §4.A "writes to a read-only cursor fail
// with IllegalOp"), never silently mutating the shared block.
func TestReadOnlyWriteFails(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadOnly)
	if err := c.Write([]byte("x")); !errors.Is(err, kind.ErrIllegalOp) {
		t.Fatalf("err = %v, want IllegalOp", err)
	}
}

// TestReadPastEndFails verifies Read fails with OutOfBounds when
// fewer than n bytes remain, rather than returning a short slice.
func TestReadPastEndFails(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadWrite)
	c.Write([]byte("ab"))
	c.Rewind()

	if _, err := c.Read(10); !errors.Is(err, kind.ErrOutOfBounds) {
		t.Fatalf("err = %v, want OutOfBounds", err)
	}
}

// TestPeekDoesNotAdvance verifies Peek(n) followed by Read(n) returns
// the same bytes twice — Peek must never move the cursor.
func TestPeekDoesNotAdvance(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadWrite)
	c.Write([]byte("hello"))
	c.Rewind()

	peeked, _ := c.Peek(5)
	read, _ := c.Read(5)
	if !bytes.Equal(peeked, read) {
		t.Errorf("peek %q != read %q", peeked, read)
	}
	if c.Tell() != 5 {
		t.Errorf("Tell() = %d, want 5", c.Tell())
	}
}

// TestMoveRightThenLeft verifies MoveRight opens a gap of n bytes and
// MoveLeft closes an equivalent gap, restoring the original tail
// bytes — the core operation behind inserter capacity growth (§4.D.3).
func TestMoveRightThenLeft(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadWrite)
	c.Write([]byte("headtail"))

	c.Seek(4) // between "head" and "tail"
	if err := c.MoveRight(3); err != nil {
		t.Fatalf("MoveRight: %v", err)
	}
	// Overwrite the undefined gap.
	copy(b.buf[4:7], []byte("NEW"))
	if got := string(b.RawData()); got != "headNEWtail" {
		t.Fatalf("after MoveRight = %q", got)
	}

	c.Seek(4)
	if err := c.MoveLeft(3); err != nil {
		t.Fatalf("MoveLeft: %v", err)
	}
	if got := string(b.RawData()); got != "headtail" {
		t.Fatalf("after MoveLeft = %q", got)
	}
}

// TestSaveRestorePosition verifies the bounded save/restore stack
// round-trips offsets LIFO and fails loudly on underflow rather than
// silently returning to offset 0 (spec §3 invariant).
func TestSaveRestorePosition(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadWrite)
	c.Write([]byte("0123456789"))

	c.Seek(3)
	c.SavePosition()
	c.Seek(7)
	c.SavePosition()
	c.Seek(1)

	c.RestorePosition()
	if c.Tell() != 7 {
		t.Fatalf("Tell() = %d, want 7", c.Tell())
	}
	c.RestorePosition()
	if c.Tell() != 3 {
		t.Fatalf("Tell() = %d, want 3", c.Tell())
	}

	if err := c.RestorePosition(); !errors.Is(err, kind.ErrIllegalState) {
		t.Fatalf("underflow err = %v, want IllegalState", err)
	}
}

// TestSeekBounds verifies Seek rejects positions outside [0, capacity].
func TestSeekBounds(t *testing.T) {
	b := Create(16)
	c := Open(b, ReadWrite)
	if err := c.Seek(-1); !errors.Is(err, kind.ErrOutOfBounds) {
		t.Errorf("Seek(-1) err = %v, want OutOfBounds", err)
	}
	if err := c.Seek(b.Capacity() + 1); !errors.Is(err, kind.ErrOutOfBounds) {
		t.Errorf("Seek(cap+1) err = %v, want OutOfBounds", err)
	}
}
