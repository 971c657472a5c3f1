// Container-capacity compaction for ReviseEnd's Compact option (spec
// §4.D.2 "Compact ... rewriting every container's reserved capacity
// back down to its live length"). It walks the outer container
// depth-first, removing the zero-byte padding arrays/objects carry
// before their end marker and shrinking every column's capacity down
// to its length, shifting every byte after each removed span left in
// place.
package carbon

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// compactOuter compacts the record's outer array and everything
// nested inside it, in place.
func compactOuter(c *cursor.Cursor, outerBegin int) error {
	if err := c.Seek(outerBegin); err != nil {
		return err
	}
	b, err := c.Read(1)
	if err != nil {
		return err
	}
	shape, _, err := marker.ParseContainerBegin(b[0])
	if err != nil {
		return err
	}
	if shape != marker.ShapeArray {
		return fmt.Errorf("%w: outer container is not array-shaped", kind.ErrTypeMismatch)
	}
	return compactArrayBody(c)
}

// compactArrayBody assumes c sits just past an array's begin marker.
// It compacts every element in turn, then removes the zero-padding
// run before the end marker, leaving c positioned just after it.
func compactArrayBody(c *cursor.Cursor) error {
	for {
		b, err := c.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == 0 {
			return compactTrailingPadding(c, byte(marker.ArrayEnd))
		}
		if b[0] == byte(marker.ArrayEnd) {
			_, err := c.Read(1)
			return err
		}
		if err := compactValue(c); err != nil {
			return err
		}
	}
}

// compactObjectBody is compactArrayBody's object-shaped counterpart:
// each step consumes a key before compacting its value.
func compactObjectBody(c *cursor.Cursor) error {
	for {
		b, err := c.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == 0 {
			return compactTrailingPadding(c, byte(marker.ObjectEnd))
		}
		if b[0] == byte(marker.ObjectEnd) {
			_, err := c.Read(1)
			return err
		}
		l, _, err := c.ReadVaruint()
		if err != nil {
			return err
		}
		if _, err := c.Read(int(l)); err != nil {
			return err
		}
		if err := compactValue(c); err != nil {
			return err
		}
	}
}

// compactValue decodes one field, recursing into array/object bodies
// and shrinking columns; scalars are already fully consumed by
// readValue and need no further work.
func compactValue(c *cursor.Cursor) error {
	v, err := readValue(c)
	if err != nil {
		return err
	}
	switch v.Type {
	case TypeArray:
		return compactArrayBody(v.Array.c)
	case TypeObject:
		return compactObjectBody(v.Object.c)
	case TypeColumn:
		return compactColumn(v.Column)
	default:
		return nil
	}
}

// compactTrailingPadding removes the zero-byte run starting at c's
// current position up to (but not including) endMarker, closing the
// gap so the end marker immediately follows the last real field.
func compactTrailingPadding(c *cursor.Cursor, endMarker byte) error {
	gapStart := c.Tell()
	for {
		b, err := c.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == 0 {
			if _, err := c.Read(1); err != nil {
				return err
			}
			continue
		}
		if b[0] != endMarker {
			return fmt.Errorf("%w: expected end marker while compacting", kind.ErrCorrupted)
		}
		break
	}
	gapEnd := c.Tell()
	if n := gapEnd - gapStart; n > 0 {
		if err := c.Seek(gapEnd); err != nil {
			return err
		}
		if err := c.MoveLeft(n); err != nil {
			return err
		}
		if err := c.Seek(gapStart); err != nil {
			return err
		}
	}
	_, err := c.Read(1)
	return err
}

// compactColumn shrinks ci's on-wire capacity down to its live length:
// the capacity varuint is rewritten (possibly changing its own byte
// width) and the unused tail slots are dropped.
func compactColumn(ci *ColumnIterator) error {
	c := ci.c
	capacityField := ci.beginMarkerOffset + 2
	lengthField := ci.valuesBegin - columnLengthSize
	oldCapWidth := lengthField - capacityField

	newCapBytes := binary.AppendUvarint(nil, uint64(ci.length))
	widthDelta := len(newCapBytes) - oldCapWidth
	if widthDelta < 0 {
		if err := c.Seek(capacityField); err != nil {
			return err
		}
		if err := c.MoveLeft(-widthDelta); err != nil {
			return err
		}
	}
	if err := c.Seek(capacityField); err != nil {
		return err
	}
	if err := c.Write(newCapBytes); err != nil {
		return err
	}

	newValuesBegin := ci.valuesBegin + widthDelta
	if unused := ci.capacity - ci.length; unused > 0 {
		if err := c.Seek(newValuesBegin + ci.length*ci.elemWidth); err != nil {
			return err
		}
		if err := c.MoveLeft(unused * ci.elemWidth); err != nil {
			return err
		}
		return nil
	}
	return c.Seek(newValuesBegin + ci.length*ci.elemWidth)
}
