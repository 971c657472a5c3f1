// Package cursor implements the resizable memory block and the
// seekable file cursor that sits on top of it (spec §4.A).
//
// A Block is an exclusively-owned, geometrically-growing byte buffer.
// Cursors borrow a Block for the duration of an operation; nothing in
// this package allows two cursors to mutate the same Block at once —
// callers coordinate that the way jpl-au-folio's DB coordinates file
// handles, with a mutex one layer up.
package cursor

import (
	"fmt"
	"os"

	"github.com/jakson-go/carbon/kind"
)

// growthFactor matches the teacher's geometric-growth discipline
// (db.go grows the tail lazily; here growth is explicit and bounded).
const growthFactor = 2

// minCapacity is the smallest capacity Create will allocate, avoiding
// repeated tiny reallocations for freshly created blocks.
const minCapacity = 64

// GrowthObserver is installed on a Block to observe geometric growth.
// It stands in for the original's global trace-allocator singleton
// (spec §9): an optional observer rather than a statistic every Block
// reads back. The core never calls back into itself through it.
type GrowthObserver func(oldCap, newCap int)

// Block is a resizable, byte-addressable buffer with independent size
// and capacity, as required by spec §3 "Memory block".
type Block struct {
	buf      []byte
	size     int
	observer GrowthObserver
}

// Create allocates a new Block with the given capacity.
func Create(capacity int) *Block {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Block{buf: make([]byte, capacity)}
}

// FromFile reads an entire file into a new Block sized exactly to its
// contents, used to load a previously-dropped record (§3 "Persisted
// state: ... an optional record file").
func FromFile(path string) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kind.ErrFReadFailed, err)
	}
	b := &Block{buf: data, size: len(data)}
	return b, nil
}

// FromBytes wraps an in-memory byte slice as a Block without copying,
// used to open an archive block already held in memory (spec §4.E
// "Reader").
func FromBytes(data []byte) *Block {
	return &Block{buf: data, size: len(data)}
}

// SetObserver installs (or clears, with nil) a growth observer.
func (b *Block) SetObserver(o GrowthObserver) { b.observer = o }

// Size returns the number of live bytes (distinct from capacity).
func (b *Block) Size() int { return b.size }

// Capacity returns the allocated length of the underlying buffer.
func (b *Block) Capacity() int { return len(b.buf) }

// RawData returns the live bytes as a borrowed slice. Callers must not
// retain it across any mutating call (Resize/Shrink/Write family),
// which may reallocate the backing array.
func (b *Block) RawData() []byte { return b.buf[:b.size] }

// Resize grows the block so that capacity is at least n, doubling
// (or more, if n demands it) rather than growing exactly to n — this
// is the "grows geometrically on overflow" behavior from spec §3.
func (b *Block) Resize(n int) {
	if n <= len(b.buf) {
		return
	}
	newCap := len(b.buf)
	if newCap == 0 {
		newCap = minCapacity
	}
	for newCap < n {
		newCap *= growthFactor
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.size])
	oldCap := len(b.buf)
	b.buf = grown
	if b.observer != nil {
		b.observer(oldCap, newCap)
	}
}

// Shrink trims the underlying buffer to exactly Size(), releasing
// unused capacity ("may be shrunk to fit", spec §3).
func (b *Block) Shrink() {
	if len(b.buf) == b.size {
		return
	}
	trimmed := make([]byte, b.size)
	copy(trimmed, b.buf[:b.size])
	b.buf = trimmed
}

// Cpy returns a deep copy of the block, used by revise_begin to
// produce the fresh memory block a revision writes into (spec §4.D.2).
func (b *Block) Cpy() *Block {
	cp := make([]byte, len(b.buf))
	copy(cp, b.buf)
	return &Block{buf: cp, size: b.size}
}

// growTo ensures capacity for at least n bytes and, if size must grow
// to cover it, extends size (zero-filling the gap). Internal helper
// shared by Cursor.Write/WriteZero/MoveRight/EnsureSpace.
func (b *Block) growTo(n int) {
	b.Resize(n)
	if n > b.size {
		b.size = n
	}
}

// writeAt overwrites bytes starting at pos, growing size/capacity as
// needed. It never shrinks size.
func (b *Block) writeAt(pos int, data []byte) {
	need := pos + len(data)
	b.growTo(need)
	copy(b.buf[pos:need], data)
}

// WriteToFile persists the live bytes verbatim, the "optional record
// file" path named in spec §6 Persisted state.
func (b *Block) WriteToFile(path string) error {
	if err := os.WriteFile(path, b.buf[:b.size], 0o644); err != nil {
		return fmt.Errorf("%w: %v", kind.ErrFWriteFailed, err)
	}
	return nil
}

// MoveContentsAndDrop transfers ownership of the backing array to the
// caller and invalidates the block, mirroring the original's pointer
// hand-off of the same name. Using b after this call is a programming
// error (spec §9 "manual buffer growth... replace with an owning,
// uniquely referenced byte vector").
func (b *Block) MoveContentsAndDrop() []byte {
	out := b.buf[:b.size]
	b.buf = nil
	b.size = 0
	return out
}
