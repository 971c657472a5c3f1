// Read-side decoding of object headers and property groups, the
// inverse of object.go (spec §4.E "Reader").
package archive

import (
	"fmt"
	"sync"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
	"github.com/jakson-go/carbon/pack"
)

// readerState carries the state shared by every recursive decode call.
// namesMu guards names, the one piece of mutable state shared by forked
// readerStates decoding concurrently on the same pool.
//
// valuePacker always decodes inline property string VALUES with the
// identity strategy, for the same reason writerState.valuePacker always
// encodes with it (see object.go): sHdr.packer may be a batch strategy
// whose decode state is tied to the one controlled sequence of
// string-table entries, not to arbitrary per-value strings elsewhere.
type readerState struct {
	c           *cursor.Cursor
	block       *cursor.Block
	valuePacker pack.Packer
	names       map[uint64]string // id -> name, resolved lazily via the string table
	namesMu     *sync.Mutex
	sIdx        map[uint64]int
	sHdr        *stringTableHeader
	pool        *Pool
}

// fork returns a readerState decoding the same archive independently:
// its own Cursor over the shared read-only Block, plus the
// mutex-guarded name cache shared with r. Safe to call from any
// goroutine — every decode entry point seeks before it reads.
func (r *readerState) fork() *readerState {
	c := cursor.Open(r.block, cursor.ReadOnly)
	return &readerState{
		c: c, block: r.block, valuePacker: r.valuePacker,
		names: r.names, namesMu: r.namesMu,
		sIdx: r.sIdx, sHdr: r.sHdr, pool: r.pool,
	}
}

func (r *readerState) nameFor(id uint64) (string, error) {
	r.namesMu.Lock()
	if n, ok := r.names[id]; ok {
		r.namesMu.Unlock()
		return n, nil
	}
	r.namesMu.Unlock()

	off, ok := r.sIdx[id]
	if !ok {
		return "", fmt.Errorf("%w: string id %d not in index", kind.ErrCorrupted, id)
	}
	pos := r.c.Tell()
	gotID, s, _, err := readStringEntry(r.c, off, r.sHdr.packer)
	if err != nil {
		return "", err
	}
	if err := r.c.Seek(pos); err != nil {
		return "", err
	}
	if gotID != id {
		return "", fmt.Errorf("%w: string entry id mismatch: want %d got %d", kind.ErrCorrupted, id, gotID)
	}
	name := string(s)
	r.namesMu.Lock()
	r.names[id] = name
	r.namesMu.Unlock()
	return name, nil
}

// ObjectHeader is the decoded form of one object_header: its id,
// presence flags, and a lazily-readable offset array.
type ObjectHeader struct {
	OID     uint64
	Flags   *Flags
	Offset  int
	compact bool
	offsets []int // parallel to Flags.setBits()
}

func (r *readerState) readObjectHeader(off int) (*ObjectHeader, error) {
	if err := r.c.Seek(off); err != nil {
		return nil, err
	}
	b, err := r.c.Read(1)
	if err != nil {
		return nil, err
	}
	compact := b[0] == marker.CompactObjectHeaderMarker
	if !compact && b[0] != byte(marker.ObjectUnsortedMultiset) {
		return nil, fmt.Errorf("%w: expected object header marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	oidB, err := r.c.Read(8)
	if err != nil {
		return nil, err
	}
	flagsB, err := r.c.Read(4)
	if err != nil {
		return nil, err
	}
	flags := flagsFromUint32(u32from(flagsB))
	setBits := flags.setBits()

	var offsets []int
	if compact {
		if len(setBits) != 1 {
			return nil, fmt.Errorf("%w: compact object header with %d groups", kind.ErrCorrupted, len(setBits))
		}
		offsets = []int{r.c.Tell()}
	} else {
		offsets = make([]int, len(setBits))
		for i := range setBits {
			ob, err := r.c.Read(8)
			if err != nil {
				return nil, err
			}
			offsets[i] = int(u64from(ob))
		}
	}
	return &ObjectHeader{OID: u64from(oidB), Flags: flags, Offset: off, compact: compact, offsets: offsets}, nil
}

// decodeObject fully decodes an object header into a Value tree.
func (r *readerState) decodeObject(off int) (Value, error) {
	oh, err := r.readObjectHeader(off)
	if err != nil {
		return Value{}, err
	}
	setBits := oh.Flags.setBits()
	var props []NamedValue
	for i, pt := range setBits {
		group, err := r.decodeGroup(pt, oh.offsets[i])
		if err != nil {
			return Value{}, err
		}
		props = append(props, group...)
	}
	return Value{Kind: kindObject, Props: props}, nil
}

func (r *readerState) readGroupHeader(off int, want marker.PropGroupKind) (n int, err error) {
	if err := r.c.Seek(off); err != nil {
		return 0, err
	}
	b, err := r.c.Read(1)
	if err != nil {
		return 0, err
	}
	pgk, err := marker.PropGroupKindFromByte(b[0])
	if err != nil {
		return 0, err
	}
	if pgk != want {
		return 0, fmt.Errorf("%w: expected prop group %q, got %q", kind.ErrCorrupted, want.Byte(), pgk.Byte())
	}
	nb, err := r.c.Read(4)
	if err != nil {
		return 0, err
	}
	return int(u32from(nb)), nil
}

func (r *readerState) readKeys(n int) ([]string, error) {
	keys := make([]string, n)
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(8)
		if err != nil {
			return nil, err
		}
		ids[i] = u64from(b)
	}
	for i, id := range ids {
		name, err := r.nameFor(id)
		if err != nil {
			return nil, err
		}
		keys[i] = name
	}
	return keys, nil
}

func (r *readerState) decodeGroup(pt PropType, off int) ([]NamedValue, error) {
	switch pt {
	case PTNull:
		return r.decodeNullGroup(off)
	case PTObject:
		return r.decodeFixedObjectGroup(off)
	case PTString:
		return r.decodeVariableGroup(off)
	case PTObjectArray:
		return r.decodeTableGroup(off)
	case PTNullArray, PTBoolArray, PTI8Array, PTI16Array, PTI32Array, PTI64Array,
		PTU8Array, PTU16Array, PTU32Array, PTU64Array, PTFloatArray, PTStringArray:
		return r.decodeArrayGroup(pt, off)
	default:
		return r.decodeFixedScalarGroup(pt, off)
	}
}

func (r *readerState) decodeNullGroup(off int) ([]NamedValue, error) {
	n, err := r.readGroupHeader(off, marker.PropGroupNull)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	out := make([]NamedValue, n)
	for i, k := range keys {
		out[i] = NamedValue{Key: k, Value: Value{Kind: kindNull}}
	}
	return out, nil
}

func (r *readerState) decodeFixedScalarGroup(pt PropType, off int) ([]NamedValue, error) {
	n, err := r.readGroupHeader(off, marker.PropGroupFixed)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	out := make([]NamedValue, n)
	for i, k := range keys {
		v, err := r.readScalarRaw(pt)
		if err != nil {
			return nil, err
		}
		out[i] = NamedValue{Key: k, Value: v}
	}
	return out, nil
}

func (r *readerState) decodeFixedObjectGroup(off int) ([]NamedValue, error) {
	n, err := r.readGroupHeader(off, marker.PropGroupFixed)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	childOffs := make([]int, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(8)
		if err != nil {
			return nil, err
		}
		childOffs[i] = int(u64from(b))
	}
	out := make([]NamedValue, n)
	values := make([]Value, n)
	err = parallelFor(r.pool, n, func(i int) error {
		v, err := r.fork().decodeObject(childOffs[i])
		if err != nil {
			return err
		}
		values[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		out[i] = NamedValue{Key: k, Value: values[i]}
	}
	return out, nil
}

func (r *readerState) decodeVariableGroup(off int) ([]NamedValue, error) {
	n, err := r.readGroupHeader(off, marker.PropGroupVariable)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	lens := make([]int, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(4)
		if err != nil {
			return nil, err
		}
		lens[i] = int(u32from(b))
	}
	out := make([]NamedValue, n)
	for i, k := range keys {
		s, err := r.valuePacker.DecodeString(r.c, lens[i])
		if err != nil {
			return nil, err
		}
		out[i] = NamedValue{Key: k, Value: Value{Kind: kindString, Str: string(s)}}
	}
	return out, nil
}

func (r *readerState) decodeArrayGroup(pt PropType, off int) ([]NamedValue, error) {
	elemType, err := arrayElemType(pt)
	if err != nil {
		return nil, err
	}
	n, err := r.readGroupHeader(off, marker.PropGroupArray)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(4)
		if err != nil {
			return nil, err
		}
		counts[i] = int(u32from(b))
	}
	out := make([]NamedValue, n)
	for i, k := range keys {
		elems := make([]Value, counts[i])
		for j := range elems {
			if elemType == PTString {
				lb, err := r.c.Read(4)
				if err != nil {
					return nil, err
				}
				s, err := r.valuePacker.DecodeString(r.c, int(u32from(lb)))
				if err != nil {
					return nil, err
				}
				elems[j] = Value{Kind: kindString, Str: string(s)}
				continue
			}
			v, err := r.readScalarRaw(elemType)
			if err != nil {
				return nil, err
			}
			elems[j] = v
		}
		out[i] = NamedValue{Key: k, Value: Value{Kind: kindArray, Elems: elems}}
	}
	return out, nil
}

func (r *readerState) decodeTableGroup(off int) ([]NamedValue, error) {
	n, err := r.readGroupHeader(off, marker.PropGroupTable)
	if err != nil {
		return nil, err
	}
	keys, err := r.readKeys(n)
	if err != nil {
		return nil, err
	}
	descOffs := make([]int, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(8)
		if err != nil {
			return nil, err
		}
		descOffs[i] = int(u64from(b))
	}
	out := make([]NamedValue, n)
	allElems := make([][]Value, n)
	err = parallelFor(r.pool, n, func(i int) error {
		elems, err := r.fork().decodeColumnGroupDescriptor(descOffs[i])
		if err != nil {
			return err
		}
		allElems[i] = elems
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		out[i] = NamedValue{Key: k, Value: Value{Kind: kindArray, Elems: allElems[i]}}
	}
	return out, nil
}

func (r *readerState) decodeColumnGroupDescriptor(off int) ([]Value, error) {
	if err := r.c.Seek(off); err != nil {
		return nil, err
	}
	b, err := r.c.Read(1)
	if err != nil {
		return nil, err
	}
	if marker.PropGroupKind(b[0]) != marker.PropGroupColumn {
		return nil, fmt.Errorf("%w: expected column group marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	colCountB, err := r.c.Read(4)
	if err != nil {
		return nil, err
	}
	objCountB, err := r.c.Read(4)
	if err != nil {
		return nil, err
	}
	colCount := int(u32from(colCountB))
	objCount := int(u32from(objCountB))

	objects := make([]map[string]Value, objCount)
	for i := range objects {
		objects[i] = map[string]Value{}
	}
	for i := 0; i < colCount; i++ {
		if err := r.decodeColumnInto(objects); err != nil {
			return nil, err
		}
	}
	out := make([]Value, objCount)
	for i, m := range objects {
		var props []NamedValue
		for k, v := range m {
			props = append(props, NamedValue{Key: k, Value: v})
		}
		out[i] = Value{Kind: kindObject, Props: props}
	}
	return out, nil
}

// decodeColumnInto reads one column and scatters its entries into the
// per-object maps at index 0..entryCount-1. The writer always packs a
// column's entries densely starting at object index 0 (spec leaves
// sparse alignment unspecified; this mirrors transposeColumns, which
// only ever appends — never pads).
func (r *readerState) decodeColumnInto(objects []map[string]Value) error {
	b, err := r.c.Read(1)
	if err != nil {
		return err
	}
	if marker.PropGroupKind(b[0]) != marker.PropGroupColumn {
		return fmt.Errorf("%w: expected per-column marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	idB, err := r.c.Read(8)
	if err != nil {
		return err
	}
	name, err := r.nameFor(u64from(idB))
	if err != nil {
		return err
	}
	elemB, err := r.c.Read(1)
	if err != nil {
		return err
	}
	elemType, err := columnElemPropType(elemB[0])
	if err != nil {
		return err
	}
	nB, err := r.c.Read(4)
	if err != nil {
		return err
	}
	n := int(u32from(nB))
	for i := 0; i < n && i < len(objects); i++ {
		var v Value
		switch elemType {
		case PTObject:
			ob, err := r.c.Read(8)
			if err != nil {
				return err
			}
			v, err = r.decodeObject(int(u64from(ob)))
			if err != nil {
				return err
			}
		case PTString:
			lb, err := r.c.Read(4)
			if err != nil {
				return err
			}
			s, err := r.valuePacker.DecodeString(r.c, int(u32from(lb)))
			if err != nil {
				return err
			}
			v = Value{Kind: kindString, Str: string(s)}
		default:
			v, err = r.readScalarRaw(elemType)
			if err != nil {
				return err
			}
		}
		objects[i][name] = v
	}
	return nil
}

func (r *readerState) readScalarRaw(pt PropType) (Value, error) {
	switch pt {
	case PTNull:
		return Value{Kind: kindNull}, nil
	case PTBool:
		b, err := r.c.Read(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindBool, Bool: b[0] != 0}, nil
	case PTI8:
		b, err := r.c.Read(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindI64, I64: int64(int8(b[0]))}, nil
	case PTI16:
		b, err := r.c.Read(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindI64, I64: int64(int16(u16from(b)))}, nil
	case PTI32:
		b, err := r.c.Read(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindI64, I64: int64(int32(u32from(b)))}, nil
	case PTI64:
		b, err := r.c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindI64, I64: int64(u64from(b))}, nil
	case PTU8:
		b, err := r.c.Read(1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindU64, U64: uint64(b[0])}, nil
	case PTU16:
		b, err := r.c.Read(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindU64, U64: uint64(u16from(b))}, nil
	case PTU32:
		b, err := r.c.Read(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindU64, U64: uint64(u32from(b))}, nil
	case PTU64:
		b, err := r.c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindU64, U64: u64from(b)}, nil
	case PTFloat:
		b, err := r.c.Read(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kindFloat, Float: f64from(b)}, nil
	default:
		return Value{}, fmt.Errorf("%w: %v has no scalar wire form", kind.ErrTypeMismatch, pt)
	}
}
