// Object header and property-group serialization (spec §3 "Object
// header", "Property group shapes"; §6 "object_header"/"prop_header").
//
// Grounded on container.go's reserve-then-backpatch discipline (the
// object_header's offset array is reserved as zero bytes and patched
// entry-by-entry as each group's real offset becomes known), the same
// pattern used throughout the record engine for in-place-patchable
// fields.
package archive

import (
	"fmt"
	"sort"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
	"github.com/jakson-go/carbon/pack"
)

// writerState carries the state shared by every recursive write call:
// the cursor records are serialized into, the name->id table built
// from the string-collection pass, the packer used for the shared
// key/name string table, and a monotonic object-id counter.
//
// valuePacker always encodes inline property string VALUES with the
// identity strategy, regardless of opts.Packer: the batch packers
// (Zstd in particular, see pack/zstd.go) build one shared table from
// one controlled call to WriteExtra and then decode a single
// sequential blob — reusing that same stateful instance for arbitrary
// per-value strings scattered across unrelated property groups would
// silently corrupt it. Per-value strings aren't part of the shared
// dictionary's batch, so they get their own always-available strategy.
type writerState struct {
	c           *cursor.Cursor
	names       map[string]uint64
	valuePacker pack.Packer
	nextOID     uint64
	opts        WriterOptions
}

func (w *writerState) allocOID() uint64 {
	oid := w.nextOID
	w.nextOID++
	return oid
}

// writeObject serializes v (Kind == kindObject) as an object_header
// and returns its offset.
func (w *writerState) writeObject(v Value) (int, error) {
	buckets := bucketProps(v.Props)

	flags := newFlags()
	for pt := range buckets {
		flags.set(pt)
	}
	setBits := flags.setBits()

	compact := w.opts.CompactThreshold > 0 && len(setBits) <= w.opts.CompactThreshold && len(setBits) == 1

	offset := w.c.Tell()
	oid := w.allocOID()
	if compact {
		if err := w.c.Write([]byte{marker.CompactObjectHeaderMarker}); err != nil {
			return 0, err
		}
	} else {
		if err := w.c.Write([]byte{byte(marker.ObjectUnsortedMultiset)}); err != nil {
			return 0, err
		}
	}
	if err := w.c.Write(u64le(oid)); err != nil {
		return 0, err
	}
	if err := w.c.Write(u32le(flags.toUint32())); err != nil {
		return 0, err
	}

	var offsetArrayStart int
	if !compact {
		offsetArrayStart = w.c.Tell()
		if err := w.c.Write(make([]byte, 8*len(setBits))); err != nil {
			return 0, err
		}
	}

	for i, pt := range setBits {
		groupOff, err := w.writeGroup(pt, buckets[pt])
		if err != nil {
			return 0, err
		}
		if !compact {
			if err := patchU64(w.c, offsetArrayStart+8*i, uint64(groupOff)); err != nil {
				return 0, err
			}
		}
	}
	return offset, nil
}

// bucketProps classifies every property into its canonical PropType,
// rewriting array values as needed (classify), and groups them in
// first-seen order per bucket.
func bucketProps(props []NamedValue) map[PropType][]NamedValue {
	buckets := map[PropType][]NamedValue{}
	for _, p := range props {
		pt, rewritten := classify(p.Value)
		buckets[pt] = append(buckets[pt], NamedValue{Key: p.Key, Value: rewritten})
	}
	return buckets
}

func (w *writerState) keyID(key string) (uint64, error) {
	id, ok := w.names[key]
	if !ok {
		return 0, fmt.Errorf("%w: unregistered property key %q", kind.ErrInternal, key)
	}
	return id, nil
}

func (w *writerState) writeGroup(pt PropType, items []NamedValue) (int, error) {
	switch pt {
	case PTNull:
		return w.writeNullGroup(items)
	case PTObject:
		return w.writeFixedObjectGroup(items)
	case PTString:
		return w.writeVariableGroup(items)
	case PTObjectArray:
		return w.writeTableGroup(items)
	case PTNullArray, PTBoolArray, PTI8Array, PTI16Array, PTI32Array, PTI64Array,
		PTU8Array, PTU16Array, PTU32Array, PTU64Array, PTFloatArray, PTStringArray:
		return w.writeArrayGroup(pt, items)
	default:
		return w.writeFixedScalarGroup(pt, items)
	}
}

func (w *writerState) writeGroupHeader(kind_ marker.PropGroupKind, n int) (int, error) {
	off := w.c.Tell()
	if err := w.c.Write([]byte{kind_.Byte()}); err != nil {
		return 0, err
	}
	if err := w.c.Write(u32le(uint32(n))); err != nil {
		return 0, err
	}
	return off, nil
}

func (w *writerState) writeKeys(items []NamedValue) error {
	for _, it := range items {
		id, err := w.keyID(it.Key)
		if err != nil {
			return err
		}
		if err := w.c.Write(u64le(id)); err != nil {
			return err
		}
	}
	return nil
}

// writeNullGroup: header + keys only (spec "Null group").
func (w *writerState) writeNullGroup(items []NamedValue) (int, error) {
	off, err := w.writeGroupHeader(marker.PropGroupNull, len(items))
	if err != nil {
		return 0, err
	}
	return off, w.writeKeys(items)
}

// writeFixedScalarGroup: header + keys + fixed-width values (spec
// "Fixed-size group").
func (w *writerState) writeFixedScalarGroup(pt PropType, items []NamedValue) (int, error) {
	off, err := w.writeGroupHeader(marker.PropGroupFixed, len(items))
	if err != nil {
		return 0, err
	}
	if err := w.writeKeys(items); err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := w.writeScalarRaw(pt, it.Value); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// writeFixedObjectGroup: header + keys + u64 child object offsets,
// recursing into each nested object first.
func (w *writerState) writeFixedObjectGroup(items []NamedValue) (int, error) {
	childOffsets := make([]int, len(items))
	for i, it := range items {
		co, err := w.writeObject(it.Value)
		if err != nil {
			return 0, err
		}
		childOffsets[i] = co
	}
	off, err := w.writeGroupHeader(marker.PropGroupFixed, len(items))
	if err != nil {
		return 0, err
	}
	if err := w.writeKeys(items); err != nil {
		return 0, err
	}
	for _, co := range childOffsets {
		if err := w.c.Write(u64le(uint64(co))); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// writeVariableGroup: header + keys + lengths + packed string bytes,
// one run of EncodeString per value (spec "Variable-size group").
func (w *writerState) writeVariableGroup(items []NamedValue) (int, error) {
	off, err := w.writeGroupHeader(marker.PropGroupVariable, len(items))
	if err != nil {
		return 0, err
	}
	if err := w.writeKeys(items); err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := w.c.Write(u32le(uint32(len(it.Value.Str)))); err != nil {
			return 0, err
		}
	}
	for _, it := range items {
		if err := w.valuePacker.EncodeString(w.c, []byte(it.Value.Str)); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// writeArrayGroup: header + keys + per-key element counts + per-key
// concatenated element payloads (spec "Array group").
func (w *writerState) writeArrayGroup(pt PropType, items []NamedValue) (int, error) {
	elemType, err := arrayElemType(pt)
	if err != nil {
		return 0, err
	}
	off, err := w.writeGroupHeader(marker.PropGroupArray, len(items))
	if err != nil {
		return 0, err
	}
	if err := w.writeKeys(items); err != nil {
		return 0, err
	}
	for _, it := range items {
		if err := w.c.Write(u32le(uint32(len(it.Value.Elems)))); err != nil {
			return 0, err
		}
	}
	for _, it := range items {
		for _, e := range it.Value.Elems {
			if elemType == PTString {
				if err := w.c.Write(u32le(uint32(len(e.Str)))); err != nil {
					return 0, err
				}
				if err := w.valuePacker.EncodeString(w.c, []byte(e.Str)); err != nil {
					return 0, err
				}
				continue
			}
			if err := w.writeScalarRaw(elemType, e); err != nil {
				return 0, err
			}
		}
	}
	return off, nil
}

// writeTableGroup: header + keys + per-key offsets to a column-group
// descriptor (spec "Table group (object-valued arrays)").
func (w *writerState) writeTableGroup(items []NamedValue) (int, error) {
	descOffsets := make([]int, len(items))
	for i, it := range items {
		do, err := w.writeColumnGroupDescriptor(it.Value.Elems)
		if err != nil {
			return 0, err
		}
		descOffsets[i] = do
	}
	off, err := w.writeGroupHeader(marker.PropGroupTable, len(items))
	if err != nil {
		return 0, err
	}
	if err := w.writeKeys(items); err != nil {
		return 0, err
	}
	for _, do := range descOffsets {
		if err := w.c.Write(u64le(uint64(do))); err != nil {
			return 0, err
		}
	}
	return off, nil
}

// columnEntry is one column's worth of materialized entries ready to
// serialize: a homogeneous run of values sharing one PropType.
type columnEntry struct {
	key      string
	elemType PropType
	values   []Value
}

// writeColumnGroupDescriptor transposes a slice of object-valued
// elements into per-column entries and writes the column-group
// descriptor a table group's offset points at (spec "Column group").
func (w *writerState) writeColumnGroupDescriptor(elements []Value) (int, error) {
	columns := transposeColumns(elements)

	off := w.c.Tell()
	if err := w.c.Write([]byte{marker.PropGroupColumn.Byte()}); err != nil {
		return 0, err
	}
	if err := w.c.Write(u32le(uint32(len(columns)))); err != nil {
		return 0, err
	}
	if err := w.c.Write(u32le(uint32(len(elements)))); err != nil {
		return 0, err
	}
	for _, col := range columns {
		if err := w.writeColumn(col); err != nil {
			return 0, err
		}
	}
	return off, nil
}

func (w *writerState) writeColumn(col columnEntry) error {
	if err := w.c.Write([]byte{marker.PropGroupColumn.Byte()}); err != nil {
		return err
	}
	id, err := w.keyID(col.key)
	if err != nil {
		return err
	}
	if err := w.c.Write(u64le(id)); err != nil {
		return err
	}
	if err := w.c.Write([]byte{columnElemMarkerByte(col.elemType)}); err != nil {
		return err
	}
	if err := w.c.Write(u32le(uint32(len(col.values)))); err != nil {
		return err
	}
	for _, v := range col.values {
		switch col.elemType {
		case PTObject:
			co, err := w.writeObject(v)
			if err != nil {
				return err
			}
			if err := w.c.Write(u64le(uint64(co))); err != nil {
				return err
			}
		case PTString:
			if err := w.c.Write(u32le(uint32(len(v.Str)))); err != nil {
				return err
			}
			if err := w.valuePacker.EncodeString(w.c, []byte(v.Str)); err != nil {
				return err
			}
		default:
			if err := w.writeScalarRaw(col.elemType, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// transposeColumns builds one columnEntry per distinct property key
// seen across elements, in first-seen order. A column's element type
// is fixed by its first occurrence; later occurrences under the same
// key with a different shape are skipped (documented in DESIGN.md as
// the transpose's homogeneous-schema assumption). Array-shaped and
// nested-array values are wrapped into single-property objects so the
// column itself only ever holds scalar, string, or object entries.
func transposeColumns(elements []Value) []columnEntry {
	order := []string{}
	seen := map[string]bool{}
	firstType := map[string]PropType{}
	cols := map[string][]Value{}

	for _, el := range elements {
		for _, p := range el.Props {
			pt, rewritten := classify(p.Value)
			if pt == PTNullArray || pt == PTBoolArray || pt == PTI8Array || pt == PTI16Array ||
				pt == PTI32Array || pt == PTI64Array || pt == PTU8Array || pt == PTU16Array ||
				pt == PTU32Array || pt == PTU64Array || pt == PTFloatArray || pt == PTStringArray ||
				pt == PTObjectArray {
				pt = PTObject
				rewritten = Value{Kind: kindObject, Props: []NamedValue{{Key: "v", Value: rewritten}}}
			}
			if !seen[p.Key] {
				seen[p.Key] = true
				firstType[p.Key] = pt
				order = append(order, p.Key)
			}
			if firstType[p.Key] == pt {
				cols[p.Key] = append(cols[p.Key], rewritten)
			}
		}
	}

	out := make([]columnEntry, 0, len(order))
	sort.Strings(order) // canonical, deterministic column order on the wire
	for _, key := range order {
		out = append(out, columnEntry{key: key, elemType: firstType[key], values: cols[key]})
	}
	return out
}

func (w *writerState) writeScalarRaw(pt PropType, v Value) error {
	switch pt {
	case PTNull:
		return nil
	case PTBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return w.c.Write([]byte{b})
	case PTI8, PTI16, PTI32, PTI64:
		return w.writeSigned(pt, v.I64)
	case PTU8, PTU16, PTU32, PTU64:
		return w.writeUnsigned(pt, v.U64)
	case PTFloat:
		return w.c.Write(f64le(v.Float))
	default:
		return fmt.Errorf("%w: %v has no fixed scalar representation", kind.ErrTypeMismatch, pt)
	}
}

func (w *writerState) writeSigned(pt PropType, v int64) error {
	switch pt {
	case PTI8:
		return w.c.Write([]byte{byte(int8(v))})
	case PTI16:
		return w.c.Write(u16le(uint16(int16(v))))
	case PTI32:
		return w.c.Write(u32le(uint32(int32(v))))
	default:
		return w.c.Write(u64le(uint64(v)))
	}
}

func (w *writerState) writeUnsigned(pt PropType, v uint64) error {
	switch pt {
	case PTU8:
		return w.c.Write([]byte{byte(v)})
	case PTU16:
		return w.c.Write(u16le(uint16(v)))
	case PTU32:
		return w.c.Write(u32le(uint32(v)))
	default:
		return w.c.Write(u64le(v))
	}
}

// columnElemMarkerByte reuses the record engine's field-type marker
// bytes for scalar column element types, and '{' for object columns —
// the column-group's own namespace, distinct from the property-group
// kind byte that precedes it.
func columnElemMarkerByte(pt PropType) byte {
	switch pt {
	case PTBool:
		return 't'
	case PTI8:
		return 'C'
	case PTI16:
		return 'D'
	case PTI32:
		return 'I'
	case PTI64:
		return 'L'
	case PTU8:
		return 'c'
	case PTU16:
		return 'd'
	case PTU32:
		return 'i'
	case PTU64:
		return 'l'
	case PTFloat:
		return 'r'
	case PTString:
		return 's'
	case PTObject:
		return '{'
	default:
		return 'n'
	}
}

func columnElemPropType(b byte) (PropType, error) {
	switch b {
	case 't':
		return PTBool, nil
	case 'C':
		return PTI8, nil
	case 'D':
		return PTI16, nil
	case 'I':
		return PTI32, nil
	case 'L':
		return PTI64, nil
	case 'c':
		return PTU8, nil
	case 'd':
		return PTU16, nil
	case 'i':
		return PTU32, nil
	case 'l':
		return PTU64, nil
	case 'r':
		return PTFloat, nil
	case 's':
		return PTString, nil
	case '{':
		return PTObject, nil
	case 'n':
		return PTNull, nil
	default:
		return 0, fmt.Errorf("%w: column element marker 0x%02x", kind.ErrMarkerMapping, b)
	}
}
