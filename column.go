// Column-of-T container: fixed-capacity, length-delimited, no end
// marker (spec §3 "Column of T", §4.D.3 "For columns, the inserter
// writes typed values contiguously and accepts arrays at once via a
// bulk-push").
package carbon

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// ColumnInserter appends values into a pre-sized column, bumping its
// length field in place. Pushing past capacity grows the column
// in place instead of failing (spec §3 "Column length may grow up to
// capacity ... beyond capacity the column header is rewritten and the
// tail shifted right").
type ColumnInserter struct {
	block         *cursor.Block
	elem          FieldType
	elemWidth     int
	capacity      int
	length        int
	valuesBegin   int // offset of the first element slot
	lengthField   int // offset of the fixed-width length field
	capacityField int // offset of the capacity varuint field
}

// InsertColumnBegin opens a nested column of elem with the given
// capacity and abstract-type annotation (spec §4.D.3
// "insert_column_begin(element_type, capacity)" / "..._list_begin
// forms explicitly set the container's abstract-type annotation").
// Unlike object/array containers, a column's slots live inline in the
// parent's byte stream rather than in a nested sub-container, so the
// whole header-plus-slots span is written as one field and the
// parent inserter's position simply advances past it.
func (ins *Inserter) InsertColumnBegin(at AbstractType, elem FieldType, capacity int) (*ColumnInserter, error) {
	insertionPoint := ins.pos
	width, err := nullSentinelWidth(elem)
	if err != nil {
		return nil, err
	}
	data, lengthField, valuesBegin, err := buildColumnBytes(at, elem, capacity)
	if err != nil {
		return nil, err
	}
	if err := ins.writeField(data); err != nil {
		return nil, err
	}
	// buildColumnBytes lays out [array-begin][elem marker][capacity
	// varuint]... — the capacity field always starts right after the
	// two marker bytes.
	return &ColumnInserter{
		block: ins.block, elem: elem, elemWidth: width, capacity: capacity,
		valuesBegin:   insertionPoint + valuesBegin,
		lengthField:   insertionPoint + lengthField,
		capacityField: insertionPoint + 2,
	}, nil
}

// push overwrites the next unused element slot with raw, which must be
// exactly elemWidth bytes, growing the column first if it is already
// at capacity, then patches the length field in place.
func (col *ColumnInserter) push(raw []byte) error {
	if len(raw) != col.elemWidth {
		return fmt.Errorf("%w: column element width %d, got %d", kind.ErrIllegalArg, col.elemWidth, len(raw))
	}
	if col.length >= col.capacity {
		if err := col.grow(); err != nil {
			return err
		}
	}
	c := cursor.Open(col.block, cursor.ReadWrite)
	if err := c.Seek(col.valuesBegin + col.length*col.elemWidth); err != nil {
		return err
	}
	if err := c.Write(raw); err != nil {
		return err
	}
	col.length++
	return col.patchLength()
}

// grow doubles the column's capacity in place: it rewrites the
// capacity varuint (which may itself change byte width), shifts every
// byte after it to make room, and null-pads the newly added slots
// (spec §3 "beyond capacity the column header is rewritten and the
// tail shifted right").
func (col *ColumnInserter) grow() error {
	newCap := col.capacity * 2
	if newCap == 0 {
		newCap = 1
	}
	oldCapBytes := binary.AppendUvarint(nil, uint64(col.capacity))
	newCapBytes := binary.AppendUvarint(nil, uint64(newCap))
	widthDelta := len(newCapBytes) - len(oldCapBytes)

	c := cursor.Open(col.block, cursor.ReadWrite)
	if widthDelta != 0 {
		if err := c.Seek(col.lengthField); err != nil {
			return err
		}
		if err := c.MoveRight(widthDelta); err != nil {
			return err
		}
	}
	if err := c.Seek(col.capacityField); err != nil {
		return err
	}
	if err := c.Write(newCapBytes); err != nil {
		return err
	}
	col.lengthField += widthDelta
	col.valuesBegin += widthDelta

	addedSlots := newCap - col.capacity
	if err := c.Seek(col.valuesBegin + col.capacity*col.elemWidth); err != nil {
		return err
	}
	if err := c.MoveRight(addedSlots * col.elemWidth); err != nil {
		return err
	}
	sentinel, err := nullSentinelBytes(col.elem)
	if err != nil {
		return err
	}
	for i := 0; i < addedSlots; i++ {
		if err := c.Write(sentinel); err != nil {
			return err
		}
	}
	col.capacity = newCap
	return nil
}

func (col *ColumnInserter) patchLength() error {
	c := cursor.Open(col.block, cursor.ReadWrite)
	if err := c.Seek(col.lengthField); err != nil {
		return err
	}
	return c.Write(u32le(uint32(col.length)))
}

func (col *ColumnInserter) PushU8(v uint8) error      { return col.push([]byte{v}) }
func (col *ColumnInserter) PushU16(v uint16) error    { return col.push(u16le(v)) }
func (col *ColumnInserter) PushU32(v uint32) error    { return col.push(u32le(v)) }
func (col *ColumnInserter) PushU64(v uint64) error    { return col.push(u64le(v)) }
func (col *ColumnInserter) PushI8(v int8) error       { return col.push([]byte{byte(v)}) }
func (col *ColumnInserter) PushI16(v int16) error     { return col.push(u16le(uint16(v))) }
func (col *ColumnInserter) PushI32(v int32) error     { return col.push(u32le(uint32(v))) }
func (col *ColumnInserter) PushI64(v int64) error     { return col.push(u64le(uint64(v))) }
func (col *ColumnInserter) PushFloat(v float64) error { return col.push(f64le(v)) }

func (col *ColumnInserter) PushBool(v bool) error {
	cell := BoolFalse
	if v {
		cell = BoolTrue
	}
	return col.push([]byte{byte(cell)})
}

// PushBulkU32 appends many values at once (spec §4.D.3 "accepts arrays
// at once via a bulk-push").
func (col *ColumnInserter) PushBulkU32(values []uint32) error {
	for _, v := range values {
		if err := col.PushU32(v); err != nil {
			return err
		}
	}
	return nil
}

func (col *ColumnInserter) Length() int   { return col.length }
func (col *ColumnInserter) Capacity() int { return col.capacity }
