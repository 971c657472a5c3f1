// Inserter: appends typed fields at a container's insertion point,
// growing the backing block via move_right only when reserved
// capacity is exhausted (spec §4.D.3).
package carbon

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// Inserter borrows a memory block and tracks one container's
// insertion point. pos is always the offset the next field will be
// written at; capacityEnd is the offset up to which zero-padding has
// already been reserved, so writes inside [pos, capacityEnd) overwrite
// padding in place instead of shifting the tail.
//
// parent is set on a sub-inserter returned by InsertObjectBegin /
// InsertArrayListBegin. Every byte a child writes past its initial
// begin/end span physically shifts the shared block's tail right,
// which silently invalidates the parent's own pos/capacityEnd offsets
// (they still point at the old, pre-shift location). Since the
// concurrency model binds an inserter to strictly sequential,
// depth-first use by its creator (spec §5 "each is bound to its
// creator thread for its lifetime"), the parent never writes again
// until the child is closed, so it is enough to resynchronize the
// parent's position once, when the child's End call fires.
type Inserter struct {
	block       *cursor.Block
	pos         int
	capacityEnd int
	closed      bool
	parent      *Inserter
}

func newInserter(block *cursor.Block, insertionPoint int) *Inserter {
	return &Inserter{block: block, pos: insertionPoint, capacityEnd: insertionPoint}
}

func newChildInserter(parent *Inserter, insertionPoint int) *Inserter {
	return &Inserter{block: parent.block, pos: insertionPoint, capacityEnd: insertionPoint, parent: parent}
}

// closeInto marks the inserter closed and, if it is a sub-inserter,
// resynchronizes the parent's insertion point to just past this
// container's (now possibly relocated) end marker.
func (ins *Inserter) closeInto() {
	ins.closed = true
	if ins.parent != nil {
		// The end marker sits at capacityEnd; the parent's pos still
		// points just past this container's begin marker.
		grown := ins.capacityEnd + 1 - ins.parent.pos
		ins.parent.pos += grown
		ins.parent.capacityEnd += grown
	}
}

// ReserveCapacity pre-reserves n zero bytes ahead of the current
// insertion point, so up to n bytes' worth of subsequent inserts does
// not shift any tail bytes (spec §4.D.3).
func (ins *Inserter) ReserveCapacity(n int) error {
	if ins.closed {
		return fmt.Errorf("%w: inserter closed", kind.ErrIllegalOp)
	}
	if n <= 0 {
		return nil
	}
	c := cursor.Open(ins.block, cursor.ReadWrite)
	if err := c.Seek(ins.pos); err != nil {
		return err
	}
	if err := c.MoveRight(n); err != nil {
		return err
	}
	if err := c.WriteZero(n); err != nil {
		return err
	}
	ins.capacityEnd += n
	return nil
}

// writeField places data at the insertion point, overwriting reserved
// capacity in place when it fits and move_right-ing the tail by the
// shortfall otherwise (spec §4.D.3 "overflow ... rewrite its capacity
// varuint" — for array/object containers there is no capacity varuint
// to rewrite since none is stored on the wire, only the reserved
// zero-padding span tracked here).
func (ins *Inserter) writeField(data []byte) error {
	if ins.closed {
		return fmt.Errorf("%w: inserter closed", kind.ErrIllegalOp)
	}
	c := cursor.Open(ins.block, cursor.ReadWrite)
	if err := c.Seek(ins.pos); err != nil {
		return err
	}
	available := ins.capacityEnd - ins.pos
	if len(data) > available {
		if err := c.MoveRight(len(data) - available); err != nil {
			return err
		}
		ins.capacityEnd += len(data) - available
	}
	if err := c.Write(data); err != nil {
		return err
	}
	ins.pos = c.Tell()
	return nil
}

func (ins *Inserter) InsertNull() error  { return ins.writeField([]byte{byte(TypeNull)}) }
func (ins *Inserter) InsertTrue() error  { return ins.writeField([]byte{byte(TypeTrue)}) }
func (ins *Inserter) InsertFalse() error { return ins.writeField([]byte{byte(TypeFalse)}) }

func (ins *Inserter) InsertU8(v uint8) error  { return ins.writeField([]byte{byte(TypeU8), v}) }
func (ins *Inserter) InsertU16(v uint16) error {
	return ins.writeField(append([]byte{byte(TypeU16)}, u16le(v)...))
}
func (ins *Inserter) InsertU32(v uint32) error {
	return ins.writeField(append([]byte{byte(TypeU32)}, u32le(v)...))
}
func (ins *Inserter) InsertU64(v uint64) error {
	return ins.writeField(append([]byte{byte(TypeU64)}, u64le(v)...))
}
func (ins *Inserter) InsertI8(v int8) error { return ins.writeField([]byte{byte(TypeI8), byte(v)}) }
func (ins *Inserter) InsertI16(v int16) error {
	return ins.writeField(append([]byte{byte(TypeI16)}, u16le(uint16(v))...))
}
func (ins *Inserter) InsertI32(v int32) error {
	return ins.writeField(append([]byte{byte(TypeI32)}, u32le(uint32(v))...))
}
func (ins *Inserter) InsertI64(v int64) error {
	return ins.writeField(append([]byte{byte(TypeI64)}, u64le(uint64(v))...))
}
func (ins *Inserter) InsertFloat(v float64) error {
	return ins.writeField(append([]byte{byte(TypeFloat)}, f64le(v)...))
}

// InsertString appends a marker, varuint length, and the raw UTF-8
// bytes (the string id indirection spec §3 describes for the archive
// layer's property groups does not apply to the in-memory record,
// which stores strings inline).
func (ins *Inserter) InsertString(s string) error {
	data := []byte{byte(TypeString)}
	data = binary.AppendUvarint(data, uint64(len(s)))
	data = append(data, s...)
	return ins.writeField(data)
}

// InsertBinary appends a mime-typed blob, or a custom-binary blob
// (spec §3 "binary (mime-typed blob), custom-binary") when userType
// is non-zero.
func (ins *Inserter) InsertBinary(b Binary) error {
	if b.UserType != 0 {
		data := []byte{byte(TypeCustomBinary), b.UserType}
		data = binary.AppendUvarint(data, uint64(len(b.Data)))
		data = append(data, b.Data...)
		return ins.writeField(data)
	}
	data := []byte{byte(TypeBinary)}
	data = binary.AppendUvarint(data, uint64(len(b.MimeType)))
	data = append(data, b.MimeType...)
	data = binary.AppendUvarint(data, uint64(len(b.Data)))
	data = append(data, b.Data...)
	return ins.writeField(data)
}

// InsertObjectBegin opens a nested object and returns an inserter
// scoped to it (spec §4.D.3 "insert_object_begin(state) →
// sub_inserter").
func (ins *Inserter) InsertObjectBegin(at AbstractType) (*Inserter, error) {
	insertionPoint := ins.pos
	if err := ins.writeField([]byte{marker.ObjectBeginMarker(at), byte(marker.ObjectEnd)}); err != nil {
		return nil, err
	}
	return newChildInserter(ins, insertionPoint+1), nil
}

// InsertObjectEnd closes a sub-inserter opened by InsertObjectBegin
// and resynchronizes its parent's insertion point.
func (ins *Inserter) InsertObjectEnd() { ins.closeInto() }

// InsertProperty writes an object property's key followed by a value
// written through valueFn, called with a throwaway inserter scoped to
// the single value slot (spec §3 "key is a length-prefixed string and
// value is a typed field").
func (ins *Inserter) InsertProperty(key string, valueFn func(*Inserter) error) error {
	data := binary.AppendUvarint(nil, uint64(len(key)))
	data = append(data, key...)
	if err := ins.writeField(data); err != nil {
		return err
	}
	return valueFn(ins)
}

// InsertArrayBegin opens a nested unsorted-multiset array (JSON-array
// compatible) pre-reserving capacity bytes of padding.
func (ins *Inserter) InsertArrayBegin(capacity int) (*Inserter, error) {
	return ins.InsertArrayListBegin(UnsortedMultiset, capacity)
}

// InsertArrayListBegin opens a nested array with an explicit
// abstract-type annotation (spec §4.D.3 "..._list_begin forms
// explicitly set the container's abstract-type annotation").
func (ins *Inserter) InsertArrayListBegin(at AbstractType, capacity int) (*Inserter, error) {
	insertionPoint := ins.pos
	if err := ins.writeField([]byte{marker.ArrayBeginMarker(at), byte(marker.ArrayEnd)}); err != nil {
		return nil, err
	}
	sub := newChildInserter(ins, insertionPoint+1)
	if capacity > 0 {
		if err := sub.ReserveCapacity(capacity); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// InsertArrayEnd closes a sub-inserter opened by InsertArrayBegin /
// InsertArrayListBegin and resynchronizes its parent's insertion
// point.
func (ins *Inserter) InsertArrayEnd() { ins.closeInto() }

// Tell returns the inserter's current write position, used by callers
// that need to compute mod_size deltas.
func (ins *Inserter) Tell() int { return ins.pos }
