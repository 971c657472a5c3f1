// Canonical type order and per-object flag word (spec §3 "Object
// header", §6 "Canonical type order for the 26 flag bits").
//
// Grounded on the archive's own wire description; the 32-bit flag word
// is modeled with bits-and-blooms/bitset (SPEC_FULL §2) rather than
// hand-rolled flags&(1<<i) arithmetic, giving Set/Test/NextSet
// iteration over the canonical order for free.
package archive

import (
	"fmt"

	"github.com/jakson-go/carbon/kind"

	"github.com/bits-and-blooms/bitset"
)

// PropType is one of the 26 canonical per-object property types a flag
// bit and offset-array entry can refer to.
type PropType int

const (
	PTNull PropType = iota
	PTBool
	PTI8
	PTI16
	PTI32
	PTI64
	PTU8
	PTU16
	PTU32
	PTU64
	PTFloat
	PTString
	PTObject
	PTNullArray
	PTBoolArray
	PTI8Array
	PTI16Array
	PTI32Array
	PTI64Array
	PTU8Array
	PTU16Array
	PTU32Array
	PTU64Array
	PTFloatArray
	PTStringArray
	PTObjectArray

	numPropTypes = int(PTObjectArray) + 1
)

func (p PropType) String() string {
	if name, ok := propTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PropType(%d)", int(p))
}

var propTypeNames = map[PropType]string{
	PTNull: "null", PTBool: "bool", PTI8: "i8", PTI16: "i16", PTI32: "i32", PTI64: "i64",
	PTU8: "u8", PTU16: "u16", PTU32: "u32", PTU64: "u64", PTFloat: "float",
	PTString: "string", PTObject: "object",
	PTNullArray: "null-array", PTBoolArray: "bool-array",
	PTI8Array: "i8-array", PTI16Array: "i16-array", PTI32Array: "i32-array", PTI64Array: "i64-array",
	PTU8Array: "u8-array", PTU16Array: "u16-array", PTU32Array: "u32-array", PTU64Array: "u64-array",
	PTFloatArray: "float-array", PTStringArray: "string-array", PTObjectArray: "object-array",
}

// canonicalOrder lists every PropType in the fixed order flag bits and
// offset-array entries must follow (spec §6).
var canonicalOrder = []PropType{
	PTNull, PTBool, PTI8, PTI16, PTI32, PTI64, PTU8, PTU16, PTU32, PTU64, PTFloat, PTString, PTObject,
	PTNullArray, PTBoolArray, PTI8Array, PTI16Array, PTI32Array, PTI64Array,
	PTU8Array, PTU16Array, PTU32Array, PTU64Array, PTFloatArray, PTStringArray, PTObjectArray,
}

// scalarWidth returns the fixed byte width of one value of a scalar
// PropType, or 0 if pt has no fixed width (string/object/any array).
func scalarWidth(pt PropType) int {
	switch pt {
	case PTBool:
		return 1
	case PTI8, PTU8:
		return 1
	case PTI16, PTU16:
		return 2
	case PTI32, PTU32:
		return 4
	case PTI64, PTU64, PTFloat:
		return 8
	default:
		return 0
	}
}

// arrayElemType maps an "X-array" PropType to the scalar PropType its
// elements share, used when writing/reading the array group's raw
// element payload.
func arrayElemType(pt PropType) (PropType, error) {
	switch pt {
	case PTNullArray:
		return PTNull, nil
	case PTBoolArray:
		return PTBool, nil
	case PTI8Array:
		return PTI8, nil
	case PTI16Array:
		return PTI16, nil
	case PTI32Array:
		return PTI32, nil
	case PTI64Array:
		return PTI64, nil
	case PTU8Array:
		return PTU8, nil
	case PTU16Array:
		return PTU16, nil
	case PTU32Array:
		return PTU32, nil
	case PTU64Array:
		return PTU64, nil
	case PTFloatArray:
		return PTFloat, nil
	case PTStringArray:
		return PTString, nil
	default:
		return 0, fmt.Errorf("%w: %v is not an array prop type", kind.ErrIllegalArg, pt)
	}
}

// Flags is the object header's 26-bit type-group presence word.
type Flags struct {
	bs *bitset.BitSet
}

func newFlags() *Flags { return &Flags{bs: bitset.New(uint(numPropTypes))} }

func flagsFromUint32(v uint32) *Flags {
	f := newFlags()
	for i := 0; i < numPropTypes; i++ {
		if v&(1<<uint(i)) != 0 {
			f.bs.Set(uint(i))
		}
	}
	return f
}

func (f *Flags) set(pt PropType) { f.bs.Set(uint(pt)) }

// Test reports whether pt's bit is present.
func (f *Flags) Test(pt PropType) bool { return f.bs.Test(uint(pt)) }

func (f *Flags) popcount() int { return int(f.bs.Count()) }

func (f *Flags) toUint32() uint32 {
	var v uint32
	for i := 0; i < numPropTypes; i++ {
		if f.bs.Test(uint(i)) {
			v |= 1 << uint(i)
		}
	}
	return v
}

// setBits returns the set PropTypes in canonical order.
func (f *Flags) setBits() []PropType {
	var out []PropType
	for _, pt := range canonicalOrder {
		if f.bs.Test(uint(pt)) {
			out = append(out, pt)
		}
	}
	return out
}
