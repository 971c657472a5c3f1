// Package marker holds the static marker-symbol tables shared by the
// record engine and the archive codec (spec §6, §9 "build from_u8/to_u8
// functions over sealed marker enums; fail with MarkerMapping on
// unknown bytes rather than aborting").
package marker

import (
	"fmt"

	"github.com/jakson-go/carbon/kind"
)

// FieldType is a single-byte tag identifying the shape of a value in
// the byte stream (spec §3 "Field type tags").
type FieldType byte

const (
	Null         FieldType = 'n'
	True         FieldType = 't'
	False        FieldType = 'f'
	U8           FieldType = 'c'
	U16          FieldType = 'd'
	U32          FieldType = 'i'
	U64          FieldType = 'l'
	I8           FieldType = 'C'
	I16          FieldType = 'D'
	I32          FieldType = 'I'
	I64          FieldType = 'L'
	Float        FieldType = 'r'
	String       FieldType = 's'
	Binary       FieldType = 'b'
	CustomBinary FieldType = 'x'

	ColumnU8      FieldType = '1'
	ColumnU16     FieldType = '2'
	ColumnU32     FieldType = '3'
	ColumnU64     FieldType = '4'
	ColumnI8      FieldType = '5'
	ColumnI16     FieldType = '6'
	ColumnI32     FieldType = '7'
	ColumnI64     FieldType = '8'
	ColumnFloat   FieldType = 'R'
	ColumnBoolean FieldType = 'B'

	ObjectEnd FieldType = '}'
	ArrayEnd  FieldType = ']'
)

// fieldTypeSet lists every FieldType byte valid as a plain field tag,
// built once so FromByte can reject unknowns without a long switch.
var fieldTypeSet = map[byte]FieldType{
	byte(Null): Null, byte(True): True, byte(False): False,
	byte(U8): U8, byte(U16): U16, byte(U32): U32, byte(U64): U64,
	byte(I8): I8, byte(I16): I16, byte(I32): I32, byte(I64): I64,
	byte(Float): Float, byte(String): String, byte(Binary): Binary, byte(CustomBinary): CustomBinary,
	byte(ColumnU8): ColumnU8, byte(ColumnU16): ColumnU16, byte(ColumnU32): ColumnU32, byte(ColumnU64): ColumnU64,
	byte(ColumnI8): ColumnI8, byte(ColumnI16): ColumnI16, byte(ColumnI32): ColumnI32, byte(ColumnI64): ColumnI64,
	byte(ColumnFloat): ColumnFloat, byte(ColumnBoolean): ColumnBoolean,
	byte(ObjectEnd): ObjectEnd, byte(ArrayEnd): ArrayEnd,
}

// FieldTypeFromByte is the reader-side inverse table (spec §9
// "the reader uses the inverse table to classify bytes").
func FieldTypeFromByte(b byte) (FieldType, error) {
	ft, ok := fieldTypeSet[b]
	if !ok {
		return 0, fmt.Errorf("%w: field type 0x%02x", kind.ErrMarkerMapping, b)
	}
	return ft, nil
}

func (f FieldType) Byte() byte { return byte(f) }

// ColumnElementMarker returns the column-of-T marker for a scalar
// field type, or an error if T cannot head a column.
func ColumnElementMarker(elem FieldType) (FieldType, error) {
	switch elem {
	case U8:
		return ColumnU8, nil
	case U16:
		return ColumnU16, nil
	case U32:
		return ColumnU32, nil
	case U64:
		return ColumnU64, nil
	case I8:
		return ColumnI8, nil
	case I16:
		return ColumnI16, nil
	case I32:
		return ColumnI32, nil
	case I64:
		return ColumnI64, nil
	case Float:
		return ColumnFloat, nil
	case True, False:
		return ColumnBoolean, nil
	default:
		return 0, fmt.Errorf("%w: type %q cannot head a column", kind.ErrIllegalArg, elem)
	}
}

// AbstractType is a container's sorted/unsorted x set/multiset
// annotation (spec §3 "outer container ... abstract-type annotation
// is one of {unsorted multiset, sorted multiset, unsorted set, sorted
// set}", applied to every nested array/object too).
type AbstractType int

const (
	UnsortedMultiset AbstractType = iota
	SortedMultiset
	UnsortedSet
	SortedSet
)

func (a AbstractType) IsSorted() bool   { return a == SortedMultiset || a == SortedSet }
func (a AbstractType) IsMultiset() bool { return a == UnsortedMultiset || a == SortedMultiset }

// Container begin markers. Each shape (array/object) occupies four
// distinct bytes, one per AbstractType, so the annotation travels in
// the stream instead of needing a side table (spec §3 "every container
// carries an abstract-type marker distinct from plain begin markers").
const (
	ArrayUnsortedMultiset FieldType = '['
	ArraySortedMultiset   FieldType = '<'
	ArrayUnsortedSet      FieldType = '('
	ArraySortedSet        FieldType = '^'

	ObjectUnsortedMultiset FieldType = '{'
	ObjectSortedMultiset   FieldType = '@'
	ObjectUnsortedSet      FieldType = '#'
	ObjectSortedSet        FieldType = '%'
)

// ContainerShape distinguishes array-family from object-family begin
// markers once the abstract type has been stripped off.
type ContainerShape int

const (
	ShapeArray ContainerShape = iota
	ShapeObject
)

var arrayBeginByType = map[AbstractType]FieldType{
	UnsortedMultiset: ArrayUnsortedMultiset,
	SortedMultiset:   ArraySortedMultiset,
	UnsortedSet:      ArrayUnsortedSet,
	SortedSet:        ArraySortedSet,
}

var objectBeginByType = map[AbstractType]FieldType{
	UnsortedMultiset: ObjectUnsortedMultiset,
	SortedMultiset:   ObjectSortedMultiset,
	UnsortedSet:      ObjectUnsortedSet,
	SortedSet:        ObjectSortedSet,
}

// ArrayBeginMarker returns the begin byte for an array of the given
// abstract type.
func ArrayBeginMarker(a AbstractType) byte { return byte(arrayBeginByType[a]) }

// ObjectBeginMarker returns the begin byte for an object of the given
// abstract type.
func ObjectBeginMarker(a AbstractType) byte { return byte(objectBeginByType[a]) }

// ParseContainerBegin classifies a begin-marker byte into its shape
// and abstract type, failing with MarkerMapping on anything else
// (including ObjectEnd/ArrayEnd, which are not begin markers).
func ParseContainerBegin(b byte) (ContainerShape, AbstractType, error) {
	for at, m := range arrayBeginByType {
		if byte(m) == b {
			return ShapeArray, at, nil
		}
	}
	for at, m := range objectBeginByType {
		if byte(m) == b {
			return ShapeObject, at, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: container begin 0x%02x", kind.ErrMarkerMapping, b)
}

// KeyKind identifies a record's key discriminant (spec §3 "key kind").
type KeyKind byte

const (
	KeyNone   KeyKind = '?'
	KeyAuto   KeyKind = '*'
	KeyUint   KeyKind = '+'
	KeyInt    KeyKind = '-'
	KeyString KeyKind = '!'
)

func KeyKindFromByte(b byte) (KeyKind, error) {
	switch KeyKind(b) {
	case KeyNone, KeyAuto, KeyUint, KeyInt, KeyString:
		return KeyKind(b), nil
	default:
		return 0, fmt.Errorf("%w: key kind 0x%02x", kind.ErrMarkerMapping, b)
	}
}

// Structural markers outside the field-type/container-begin tables:
// top-level framing for the archive format (spec §6) and the string
// table's packer bookkeeping.
const (
	RecordHeaderMarker      byte = 'r'
	StringTableHeaderMarker byte = 's'
	StringEntryMarker       byte = 'e'
	HuffmanDictEntryMarker  byte = 'h'

	// StringIndexMarker heads the archive's string_id_to_offset index
	// (spec §4.E step 5), a section distinct from the string table
	// itself: the table holds packed bytes, this holds the id->offset
	// lookup the reader uses to jump straight to an entry.
	StringIndexMarker byte = 'X'

	// CompactObjectHeaderMarker heads a "fixed-map" object header
	// (SPEC_FULL §4 "Fixed-map object variant"): an object whose single
	// present type-group skips the offset-array indirection entirely.
	CompactObjectHeaderMarker byte = '&'
)

// PropGroupKind distinguishes the six property-group shapes an object
// header's type-group offsets can point at (spec §3 "Property group
// shapes"). The spec leaves their on-wire marker bytes unspecified
// beyond "marker c" as a placeholder; this assignment is this
// implementation's choice, recorded in DESIGN.md.
type PropGroupKind byte

const (
	PropGroupFixed    PropGroupKind = 'g'
	PropGroupVariable PropGroupKind = 'v'
	PropGroupNull     PropGroupKind = 'u'
	PropGroupArray    PropGroupKind = 'y'
	PropGroupTable    PropGroupKind = 'z'
	PropGroupColumn   PropGroupKind = 'k'
)

func (p PropGroupKind) Byte() byte { return byte(p) }

func PropGroupKindFromByte(b byte) (PropGroupKind, error) {
	switch PropGroupKind(b) {
	case PropGroupFixed, PropGroupVariable, PropGroupNull, PropGroupArray, PropGroupTable, PropGroupColumn:
		return PropGroupKind(b), nil
	default:
		return 0, fmt.Errorf("%w: prop group kind 0x%02x", kind.ErrMarkerMapping, b)
	}
}
