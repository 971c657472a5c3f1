// Read-side traversal: array, object, and column iterators over a
// frozen record's bytes (spec §4.D.4 "readers walk a container field
// by field, stopping at the matching end marker").
//
// Reserved-but-unused insert capacity shows up on the wire as zero
// bytes, which can never collide with a real marker (every field-type,
// container-begin, and end-marker byte is non-zero ASCII); an iterator
// that meets a zero byte knows every remaining byte up to the end
// marker is padding and stops there.
package carbon

import (
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// Value is a decoded field read off an iterator. Exactly one of the
// scalar fields is meaningful, selected by Type; Array/Object/Column
// are populated for the three composite field types.
type Value struct {
	Type   FieldType
	U64    uint64
	I64    int64
	F64    float64
	Bool   bool
	Str    string
	Bin    Binary
	Array  *ArrayIterator
	Object *ObjectIterator
	Column *ColumnIterator
}

// ArrayIterator walks one array container's elements in wire order.
type ArrayIterator struct {
	c    *cursor.Cursor
	at   AbstractType
	done bool

	// beginMarkerOffset is the byte offset of the container's begin
	// marker, rewritten in place by UpdateType.
	beginMarkerOffset int
	// elemOffsets records the start offset of every element visited so
	// far in forward order, letting Prev walk backward without a
	// generic reverse-parse over the wire format.
	elemOffsets []int
	idx         int
}

func newArrayIterator(block *cursor.Block, beginOffset int) (*ArrayIterator, error) {
	c := cursor.Open(block, cursor.ReadOnly)
	if err := c.Seek(beginOffset); err != nil {
		return nil, err
	}
	b, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	shape, at, err := marker.ParseContainerBegin(b[0])
	if err != nil {
		return nil, err
	}
	if shape != marker.ShapeArray {
		return nil, fmt.Errorf("%w: expected array begin, got object begin", kind.ErrTypeMismatch)
	}
	return &ArrayIterator{c: c, at: at, beginMarkerOffset: beginOffset}, nil
}

// AbstractType returns the array's sorted/unsorted x set/multiset
// annotation.
func (it *ArrayIterator) AbstractType() AbstractType { return it.at }

// Next decodes the next element, or returns ok=false once the array's
// end marker has been consumed.
func (it *ArrayIterator) Next() (v Value, ok bool, err error) {
	if it.done {
		return Value{}, false, nil
	}
	end, err := skipPaddingUntil(it.c, byte(marker.ArrayEnd))
	if err != nil {
		return Value{}, false, err
	}
	if end {
		it.done = true
		return Value{}, false, nil
	}
	start := it.c.Tell()
	v, err = readValue(it.c)
	if err != nil {
		return Value{}, false, err
	}
	if it.idx == len(it.elemOffsets) {
		it.elemOffsets = append(it.elemOffsets, start)
	}
	it.idx++
	return v, true, nil
}

// Rewind repositions the iterator at its first element, so a
// subsequent Next replays the container from the start (spec §4.D.4
// "rewind").
func (it *ArrayIterator) Rewind() error {
	if err := it.c.Seek(it.beginMarkerOffset + 1); err != nil {
		return err
	}
	it.done = false
	it.idx = 0
	return nil
}

// HasNext reports whether another element remains without consuming
// it (spec §4.D.4 "has_next (peek)").
func (it *ArrayIterator) HasNext() (bool, error) {
	if it.done {
		return false, nil
	}
	pos := it.c.Tell()
	end, err := skipPaddingUntil(it.c, byte(marker.ArrayEnd))
	if serr := it.c.Seek(pos); err == nil {
		err = serr
	}
	if err != nil {
		return false, err
	}
	return !end, nil
}

// Tell returns the iterator's current byte offset into the record's
// block (spec §4.D.4 "tell").
func (it *ArrayIterator) Tell() int { return it.c.Tell() }

// FastForward advances past every remaining element, leaving the
// cursor just after the end marker (spec §4.D.4 "fast_forward").
func (it *ArrayIterator) FastForward() error {
	for {
		_, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Prev decodes the element before the one last returned by Next,
// leaving the cursor positioned at its start so a following Next
// re-reads it. Calling Prev with no visited history returns ok=false
// without an error (spec §3 edge case: "prev with empty history fails
// silently").
func (it *ArrayIterator) Prev() (Value, bool, error) {
	if it.idx == 0 {
		return Value{}, false, nil
	}
	it.idx--
	start := it.elemOffsets[it.idx]
	if err := it.c.Seek(start); err != nil {
		return Value{}, false, err
	}
	v, err := readValue(it.c)
	if err != nil {
		return Value{}, false, err
	}
	if err := it.c.Seek(start); err != nil {
		return Value{}, false, err
	}
	it.done = false
	return v, true, nil
}

// UpdateType rewrites the array's abstract-type annotation in place.
// Valid only while the owning record is unfrozen, i.e. during Patch or
// between ReviseBegin and ReviseEnd (spec §4.D.4 "update_type(subtype)
// (only within a revise or patch context)").
func (it *ArrayIterator) UpdateType(subtype AbstractType) error {
	w := cursor.Open(it.c.Block(), cursor.ReadWrite)
	if err := w.Seek(it.beginMarkerOffset); err != nil {
		return err
	}
	if err := w.Write([]byte{marker.ArrayBeginMarker(subtype)}); err != nil {
		return err
	}
	it.at = subtype
	return nil
}

// ObjectIterator walks one object container's key/value pairs in wire
// order.
type ObjectIterator struct {
	c    *cursor.Cursor
	at   AbstractType
	done bool

	beginMarkerOffset int
	elemOffsets       []int
	idx               int

	// lastKey/lastType/propValid cache the most recently returned
	// property for prop_name/prop_type; Remove clears propValid (spec
	// §4.D.4 object edge case: "remove invalidates cached state, caller
	// must re-fetch prop_type").
	lastKey   string
	lastType  FieldType
	propValid bool
}

func newObjectIterator(block *cursor.Block, beginOffset int) (*ObjectIterator, error) {
	c := cursor.Open(block, cursor.ReadOnly)
	if err := c.Seek(beginOffset); err != nil {
		return nil, err
	}
	b, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	shape, at, err := marker.ParseContainerBegin(b[0])
	if err != nil {
		return nil, err
	}
	if shape != marker.ShapeObject {
		return nil, fmt.Errorf("%w: expected object begin, got array begin", kind.ErrTypeMismatch)
	}
	return &ObjectIterator{c: c, at: at, beginMarkerOffset: beginOffset}, nil
}

func (it *ObjectIterator) AbstractType() AbstractType { return it.at }

// Next decodes the next property's key and value, or returns ok=false
// once the object's end marker has been consumed.
func (it *ObjectIterator) Next() (key string, v Value, ok bool, err error) {
	if it.done {
		return "", Value{}, false, nil
	}
	end, err := skipPaddingUntil(it.c, byte(marker.ObjectEnd))
	if err != nil {
		return "", Value{}, false, err
	}
	if end {
		it.done = true
		return "", Value{}, false, nil
	}
	start := it.c.Tell()
	l, _, err := it.c.ReadVaruint()
	if err != nil {
		return "", Value{}, false, err
	}
	kb, err := it.c.Read(int(l))
	if err != nil {
		return "", Value{}, false, err
	}
	v, err = readValue(it.c)
	if err != nil {
		return "", Value{}, false, err
	}
	if it.idx == len(it.elemOffsets) {
		it.elemOffsets = append(it.elemOffsets, start)
	}
	it.idx++
	it.lastKey, it.lastType, it.propValid = string(kb), v.Type, true
	return string(kb), v, true, nil
}

// Rewind repositions the iterator at its first property (spec §4.D.4
// "rewind").
func (it *ObjectIterator) Rewind() error {
	if err := it.c.Seek(it.beginMarkerOffset + 1); err != nil {
		return err
	}
	it.done = false
	it.idx = 0
	it.propValid = false
	return nil
}

// HasNext reports whether another property remains without consuming
// it (spec §4.D.4 "has_next (peek)").
func (it *ObjectIterator) HasNext() (bool, error) {
	if it.done {
		return false, nil
	}
	pos := it.c.Tell()
	end, err := skipPaddingUntil(it.c, byte(marker.ObjectEnd))
	if serr := it.c.Seek(pos); err == nil {
		err = serr
	}
	if err != nil {
		return false, err
	}
	return !end, nil
}

// Tell returns the iterator's current byte offset (spec §4.D.4
// "tell").
func (it *ObjectIterator) Tell() int { return it.c.Tell() }

// FastForward advances past every remaining property, leaving the
// cursor just after the end marker (spec §4.D.4 "fast_forward").
func (it *ObjectIterator) FastForward() error {
	for {
		_, _, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Prev decodes the property before the one last returned by Next,
// leaving the cursor positioned at its start so a following Next
// re-reads it. Calling Prev with no visited history returns ok=false
// without an error.
func (it *ObjectIterator) Prev() (string, Value, bool, error) {
	if it.idx == 0 {
		return "", Value{}, false, nil
	}
	it.idx--
	start := it.elemOffsets[it.idx]
	if err := it.c.Seek(start); err != nil {
		return "", Value{}, false, err
	}
	l, _, err := it.c.ReadVaruint()
	if err != nil {
		return "", Value{}, false, err
	}
	kb, err := it.c.Read(int(l))
	if err != nil {
		return "", Value{}, false, err
	}
	v, err := readValue(it.c)
	if err != nil {
		return "", Value{}, false, err
	}
	if err := it.c.Seek(start); err != nil {
		return "", Value{}, false, err
	}
	it.done = false
	it.lastKey, it.lastType, it.propValid = string(kb), v.Type, true
	return string(kb), v, true, nil
}

// UpdateType rewrites the object's abstract-type annotation in place.
// Valid only while the owning record is unfrozen, i.e. during Patch or
// between ReviseBegin and ReviseEnd.
func (it *ObjectIterator) UpdateType(subtype AbstractType) error {
	w := cursor.Open(it.c.Block(), cursor.ReadWrite)
	if err := w.Seek(it.beginMarkerOffset); err != nil {
		return err
	}
	if err := w.Write([]byte{marker.ObjectBeginMarker(subtype)}); err != nil {
		return err
	}
	it.at = subtype
	return nil
}

// PropName returns the most recently visited property's key, or "" if
// no property has been visited or the cache was invalidated by Remove
// (spec §4.D.4 "prop_name").
func (it *ObjectIterator) PropName() string {
	if !it.propValid {
		return ""
	}
	return it.lastKey
}

// PropType returns the most recently visited property's field type,
// valid under the same rules as PropName (spec §4.D.4 "prop_type").
func (it *ObjectIterator) PropType() (FieldType, bool) {
	if !it.propValid {
		return 0, false
	}
	return it.lastType, true
}

// Remove deletes the property last returned by Next, shifting the
// tail left to close the gap, and returns the number of bytes
// reclaimed — the mod_size delta callers apply to the parent
// container's header (spec §4.D.4 "remove (removes the current
// property, adjusting mod_size by the removed byte count)"). It
// invalidates PropName/PropType until the next Next call.
func (it *ObjectIterator) Remove() (int, error) {
	if it.idx == 0 {
		return 0, fmt.Errorf("%w: remove called before next", kind.ErrIllegalState)
	}
	start := it.elemOffsets[it.idx-1]
	n := it.c.Tell() - start
	w := cursor.Open(it.c.Block(), cursor.ReadWrite)
	if err := w.Seek(start); err != nil {
		return 0, err
	}
	if err := w.MoveLeft(n); err != nil {
		return 0, err
	}
	if err := it.c.Seek(start); err != nil {
		return 0, err
	}
	it.idx--
	it.elemOffsets = it.elemOffsets[:it.idx]
	it.propValid = false
	it.lastKey, it.lastType = "", 0
	return n, nil
}

// ColumnIterator walks a column's populated slots (indices
// [0,length); the rest of capacity is unused and not surfaced).
type ColumnIterator struct {
	c           *cursor.Cursor
	at          AbstractType
	elem        FieldType
	elemWidth   int
	capacity    int
	length      int
	idx         int
	valuesBegin int

	// beginMarkerOffset is the byte offset of the column's shape+type
	// marker (the array-family byte a column's begin marker reuses),
	// rewritten in place by UpdateType.
	beginMarkerOffset int
}

func (ci *ColumnIterator) ElementType() FieldType     { return ci.elem }
func (ci *ColumnIterator) Length() int                { return ci.length }
func (ci *ColumnIterator) Capacity() int              { return ci.capacity }
func (ci *ColumnIterator) AbstractType() AbstractType { return ci.at }

// Next decodes the column's next populated element.
func (ci *ColumnIterator) Next() (v Value, ok bool, err error) {
	if ci.idx >= ci.length {
		return Value{}, false, nil
	}
	if err := ci.c.Seek(ci.valuesBegin + ci.idx*ci.elemWidth); err != nil {
		return Value{}, false, err
	}
	raw, err := ci.c.Read(ci.elemWidth)
	if err != nil {
		return Value{}, false, err
	}
	v, err = decodeColumnElement(ci.elem, raw)
	if err != nil {
		return Value{}, false, err
	}
	ci.idx++
	return v, true, nil
}

// Rewind repositions the iterator at slot 0 (spec §4.D.4 "rewind").
func (ci *ColumnIterator) Rewind() { ci.idx = 0 }

// HasNext reports whether another populated slot remains (spec §4.D.4
// "has_next (peek)").
func (ci *ColumnIterator) HasNext() bool { return ci.idx < ci.length }

// Tell returns the byte offset of the next slot Next would decode
// (spec §4.D.4 "tell").
func (ci *ColumnIterator) Tell() int { return ci.valuesBegin + ci.idx*ci.elemWidth }

// FastForward advances past every remaining populated slot (spec
// §4.D.4 "fast_forward").
func (ci *ColumnIterator) FastForward() { ci.idx = ci.length }

// Prev decodes the slot before the one last returned by Next. Calling
// Prev at slot 0 returns ok=false without an error.
func (ci *ColumnIterator) Prev() (Value, bool, error) {
	if ci.idx == 0 {
		return Value{}, false, nil
	}
	i := ci.idx - 1
	if err := ci.c.Seek(ci.valuesBegin + i*ci.elemWidth); err != nil {
		return Value{}, false, err
	}
	raw, err := ci.c.Read(ci.elemWidth)
	if err != nil {
		return Value{}, false, err
	}
	v, err := decodeColumnElement(ci.elem, raw)
	if err != nil {
		return Value{}, false, err
	}
	ci.idx = i
	return v, true, nil
}

// UpdateType rewrites the column's abstract-type annotation in place,
// without touching its element-type marker. Valid only while the
// owning record is unfrozen, i.e. during Patch or between ReviseBegin
// and ReviseEnd (spec §4.D.4 "update_type(subtype)").
func (ci *ColumnIterator) UpdateType(subtype AbstractType) error {
	w := cursor.Open(ci.c.Block(), cursor.ReadWrite)
	if err := w.Seek(ci.beginMarkerOffset); err != nil {
		return err
	}
	if err := w.Write([]byte{marker.ArrayBeginMarker(subtype)}); err != nil {
		return err
	}
	ci.at = subtype
	return nil
}

// skipPaddingUntil advances past zero-byte reserved capacity. It
// returns end=true (with the end marker consumed) once it meets
// endMarker, or end=false with the cursor positioned at the next real
// field-type byte.
func skipPaddingUntil(c *cursor.Cursor, endMarker byte) (end bool, err error) {
	for {
		b, err := c.Peek(1)
		if err != nil {
			return false, err
		}
		if b[0] == 0 {
			if _, err := c.Read(1); err != nil {
				return false, err
			}
			continue
		}
		if b[0] == endMarker {
			_, err := c.Read(1)
			return true, err
		}
		return false, nil
	}
}

// readValue decodes one field at the cursor's current position,
// recursing into a sub-iterator for array/object/column values.
func readValue(c *cursor.Cursor) (Value, error) {
	markerOffset := c.Tell()
	b, err := c.Read(1)
	if err != nil {
		return Value{}, err
	}
	tag := b[0]

	if shape, at, perr := marker.ParseContainerBegin(tag); perr == nil {
		switch shape {
		case marker.ShapeObject:
			return Value{Type: TypeObject, Object: &ObjectIterator{c: c, at: at, beginMarkerOffset: markerOffset}}, nil
		case marker.ShapeArray:
			// A column reuses the array-family begin byte, distinguished
			// by the column-element marker that immediately follows.
			peeked, perr := c.Peek(1)
			if perr != nil {
				return Value{}, perr
			}
			if elem, cerr := columnElemFromMarker(peeked[0]); cerr == nil {
				if _, err := c.Read(1); err != nil {
					return Value{}, err
				}
				ci, err := readColumnTail(c, elem, at, markerOffset)
				if err != nil {
					return Value{}, err
				}
				return Value{Type: TypeColumn, Column: ci}, nil
			}
			return Value{Type: TypeArray, Array: &ArrayIterator{c: c, at: at, beginMarkerOffset: markerOffset}}, nil
		}
	}

	ft, err := marker.FieldTypeFromByte(tag)
	if err != nil {
		return Value{}, err
	}
	return decodeScalar(c, ft)
}

// columnElemFromMarker is the inverse of marker.ColumnElementMarker.
func columnElemFromMarker(b byte) (FieldType, error) {
	switch marker.FieldType(b) {
	case marker.ColumnU8:
		return TypeU8, nil
	case marker.ColumnU16:
		return TypeU16, nil
	case marker.ColumnU32:
		return TypeU32, nil
	case marker.ColumnU64:
		return TypeU64, nil
	case marker.ColumnI8:
		return TypeI8, nil
	case marker.ColumnI16:
		return TypeI16, nil
	case marker.ColumnI32:
		return TypeI32, nil
	case marker.ColumnI64:
		return TypeI64, nil
	case marker.ColumnFloat:
		return TypeFloat, nil
	case marker.ColumnBoolean:
		return TypeTrue, nil // either bool marker decodes the same column
	default:
		return 0, fmt.Errorf("%w: 0x%02x is not a column element marker", kind.ErrMarkerMapping, b)
	}
}

func readColumnTail(c *cursor.Cursor, elem FieldType, at AbstractType, beginMarkerOffset int) (*ColumnIterator, error) {
	width, err := nullSentinelWidth(elem)
	if err != nil {
		return nil, err
	}
	capVal, _, err := c.ReadVaruint()
	if err != nil {
		return nil, err
	}
	lenBytes, err := c.Read(columnLengthSize)
	if err != nil {
		return nil, err
	}
	length := u32from(lenBytes)
	valuesBegin := c.Tell()
	if err := c.Seek(valuesBegin + int(capVal)*width); err != nil {
		return nil, err
	}
	return &ColumnIterator{
		c: c, at: at, elem: elem, elemWidth: width,
		capacity: int(capVal), length: int(length), valuesBegin: valuesBegin,
		beginMarkerOffset: beginMarkerOffset,
	}, nil
}

func decodeColumnElement(elem FieldType, raw []byte) (Value, error) {
	switch elem {
	case TypeU8:
		return Value{Type: elem, U64: uint64(raw[0])}, nil
	case TypeU16:
		return Value{Type: elem, U64: uint64(u16from(raw))}, nil
	case TypeU32:
		return Value{Type: elem, U64: uint64(u32from(raw))}, nil
	case TypeU64:
		return Value{Type: elem, U64: u64from(raw)}, nil
	case TypeI8:
		return Value{Type: elem, I64: int64(int8(raw[0]))}, nil
	case TypeI16:
		return Value{Type: elem, I64: int64(int16(u16from(raw)))}, nil
	case TypeI32:
		return Value{Type: elem, I64: int64(int32(u32from(raw)))}, nil
	case TypeI64:
		return Value{Type: elem, I64: int64(u64from(raw))}, nil
	case TypeFloat:
		return Value{Type: elem, F64: f64from(raw)}, nil
	case TypeTrue, TypeFalse:
		cell := BoolCell(raw[0])
		return Value{Type: elem, Bool: cell == BoolTrue}, nil
	default:
		return Value{}, fmt.Errorf("%w: %q has no column decode", kind.ErrIllegalArg, elem)
	}
}

// decodeScalar decodes a non-composite field whose marker byte has
// already been consumed.
func decodeScalar(c *cursor.Cursor, ft FieldType) (Value, error) {
	switch ft {
	case marker.Null:
		return Value{Type: ft}, nil
	case marker.True:
		return Value{Type: ft, Bool: true}, nil
	case marker.False:
		return Value{Type: ft, Bool: false}, nil
	case marker.U8:
		b, err := c.Read(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, U64: uint64(b[0])}, nil
	case marker.U16:
		b, err := c.Read(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, U64: uint64(u16from(b))}, nil
	case marker.U32:
		b, err := c.Read(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, U64: uint64(u32from(b))}, nil
	case marker.U64:
		b, err := c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, U64: u64from(b)}, nil
	case marker.I8:
		b, err := c.Read(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, I64: int64(int8(b[0]))}, nil
	case marker.I16:
		b, err := c.Read(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, I64: int64(int16(u16from(b)))}, nil
	case marker.I32:
		b, err := c.Read(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, I64: int64(int32(u32from(b)))}, nil
	case marker.I64:
		b, err := c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, I64: int64(u64from(b))}, nil
	case marker.Float:
		b, err := c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, F64: f64from(b)}, nil
	case marker.String:
		l, _, err := c.ReadVaruint()
		if err != nil {
			return Value{}, err
		}
		b, err := c.Read(int(l))
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, Str: string(b)}, nil
	case marker.Binary:
		mimeLen, _, err := c.ReadVaruint()
		if err != nil {
			return Value{}, err
		}
		mime, err := c.Read(int(mimeLen))
		if err != nil {
			return Value{}, err
		}
		dataLen, _, err := c.ReadVaruint()
		if err != nil {
			return Value{}, err
		}
		data, err := c.Read(int(dataLen))
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, Bin: Binary{MimeType: string(mime), Data: data}}, nil
	case marker.CustomBinary:
		userType, err := c.Read(1)
		if err != nil {
			return Value{}, err
		}
		dataLen, _, err := c.ReadVaruint()
		if err != nil {
			return Value{}, err
		}
		data, err := c.Read(int(dataLen))
		if err != nil {
			return Value{}, err
		}
		return Value{Type: ft, Bin: Binary{UserType: userType[0], Data: data}}, nil
	default:
		return Value{}, fmt.Errorf("%w: field type %q", kind.ErrMarkerMapping, ft)
	}
}
