// Container begin/end framing shared by the inserter and the
// iterators (spec §3 "Container layout").
package carbon

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// writeArrayBegin/writeObjectBegin/writeEnd emit the single begin/end
// marker bytes. Arrays and objects carry no explicit length field:
// unused reserved slots are zero bytes, distinguishable from any real
// field-type marker (all of which are non-zero ASCII), and readers
// stop at the matching end marker (spec §3 invariant).
func writeArrayBegin(c *cursor.Cursor, at AbstractType) error {
	return c.Write([]byte{marker.ArrayBeginMarker(at)})
}

func writeObjectBegin(c *cursor.Cursor, at AbstractType) error {
	return c.Write([]byte{marker.ObjectBeginMarker(at)})
}

func writeArrayEnd(c *cursor.Cursor) error {
	return c.Write([]byte{byte(marker.ArrayEnd)})
}

func writeObjectEnd(c *cursor.Cursor) error {
	return c.Write([]byte{byte(marker.ObjectEnd)})
}

// columnLengthSize is the fixed width of a column's length field.
// Capacity is a varuint (rewritten only when the column grows or is
// compacted, which shifts the bytes after it); this
// implementation stores length as a fixed-width u32 instead of the
// spec's varuint so Push can patch it in place without ever having to
// re-shift the element bytes that follow it — see DESIGN.md.
const columnLengthSize = 4

// buildColumnBytes assembles a fresh column's header and null-padded
// element slots as a single byte slice, for insertion via
// Inserter.writeField. It returns the data along with the offsets
// (relative to the start of data) of the length field and the first
// element slot.
func buildColumnBytes(at AbstractType, elem FieldType, capacity int) (data []byte, lengthField, valuesBegin int, err error) {
	colMarker, err := marker.ColumnElementMarker(elem)
	if err != nil {
		return nil, 0, 0, err
	}
	sentinel, err := nullSentinelBytes(elem)
	if err != nil {
		return nil, 0, 0, err
	}
	data = []byte{marker.ArrayBeginMarker(at), colMarker.Byte()}
	data = binary.AppendUvarint(data, uint64(capacity))
	lengthField = len(data)
	data = append(data, make([]byte, columnLengthSize)...)
	valuesBegin = len(data)
	for i := 0; i < capacity; i++ {
		data = append(data, sentinel...)
	}
	return data, lengthField, valuesBegin, nil
}

// nullSentinelWidth returns the byte width of elem's value slot, used
// to pad a column's unused capacity with the type-appropriate null
// sentinel (spec §3 "Null sentinels").
func nullSentinelWidth(elem FieldType) (int, error) {
	switch elem {
	case TypeU8, TypeI8:
		return 1, nil
	case TypeU16, TypeI16:
		return 2, nil
	case TypeU32, TypeI32:
		return 4, nil
	case TypeU64, TypeI64, TypeFloat:
		return 8, nil
	case TypeTrue, TypeFalse:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q has no column null sentinel", kind.ErrIllegalArg, elem)
	}
}

// nullSentinelBytes returns the raw bytes of elem's null-sentinel
// slot, used both to pad a freshly created column and to recognize an
// unset element on read.
func nullSentinelBytes(elem FieldType) ([]byte, error) {
	switch elem {
	case TypeU8:
		return []byte{NullU8}, nil
	case TypeU16:
		return u16le(NullU16), nil
	case TypeU32:
		return u32le(NullU32), nil
	case TypeU64:
		return u64le(NullU64), nil
	case TypeFloat:
		return f64le(math.NaN()), nil
	case TypeI8:
		return []byte{byte(NullI8)}, nil
	case TypeI16:
		return u16le(uint16(NullI16)), nil
	case TypeI32:
		return u32le(uint32(NullI32)), nil
	case TypeI64:
		return u64le(uint64(NullI64)), nil
	case TypeTrue, TypeFalse:
		return []byte{byte(BoolNull)}, nil
	default:
		return nil, fmt.Errorf("%w: %q has no column null sentinel", kind.ErrIllegalArg, elem)
	}
}

// writeNullSentinel writes one null-sentinel-width slot for elem.
func writeNullSentinel(c *cursor.Cursor, elem FieldType) error {
	b, err := nullSentinelBytes(elem)
	if err != nil {
		return err
	}
	return c.Write(b)
}
