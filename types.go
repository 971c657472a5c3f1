// Package carbon implements the CARBON binary record engine: typed
// containers (objects, arrays, columns), variable-length integer
// keys, abstract-type annotations, and copy-on-write revision/patch
// editors over a byte-addressable memory block (spec §3, §4.D).
package carbon

import "github.com/jakson-go/carbon/internal/marker"

// AbstractType re-exports the marker package's container annotation
// so callers of this package never need to import internal/marker.
type AbstractType = marker.AbstractType

const (
	UnsortedMultiset = marker.UnsortedMultiset
	SortedMultiset   = marker.SortedMultiset
	UnsortedSet      = marker.UnsortedSet
	SortedSet        = marker.SortedSet
)

// FieldType identifies the shape of a value in the byte stream.
type FieldType = marker.FieldType

const (
	TypeNull         = marker.Null
	TypeTrue         = marker.True
	TypeFalse        = marker.False
	TypeU8           = marker.U8
	TypeU16          = marker.U16
	TypeU32          = marker.U32
	TypeU64          = marker.U64
	TypeI8           = marker.I8
	TypeI16          = marker.I16
	TypeI32          = marker.I32
	TypeI64          = marker.I64
	TypeFloat        = marker.Float
	TypeString       = marker.String
	TypeBinary       = marker.Binary
	TypeCustomBinary = marker.CustomBinary
	TypeArray        FieldType = 0 // resolved dynamically from the begin marker
	TypeObject       FieldType = 1
	TypeColumn       FieldType = 2
)

// Null sentinels per integer width (spec §3 "Null sentinels").
const (
	NullU8  uint8  = 0xFF
	NullU16 uint16 = 0xFFFF
	NullU32 uint32 = 0xFFFFFFFF
	NullU64 uint64 = 0xFFFFFFFFFFFFFFFF

	NullI8  int8  = -1 << 7
	NullI16 int16 = -1 << 15
	NullI32 int32 = -1 << 31
	NullI64 int64 = -1 << 63
)

// BoolCell is a three-valued byte for boolean columns (spec §3).
type BoolCell byte

const (
	BoolFalse BoolCell = 0
	BoolTrue  BoolCell = 1
	BoolNull  BoolCell = 2
)

// Binary is a mime-typed blob (spec §3 field type "binary").
type Binary struct {
	MimeType string
	UserType uint8 // custom-binary discriminant; 0 for plain binary
	Data     []byte
}

// KeyKind re-exports the marker package's record-key discriminant.
type KeyKind = marker.KeyKind

const (
	KeyNone   = marker.KeyNone
	KeyAuto   = marker.KeyAuto
	KeyUint   = marker.KeyUint
	KeyInt    = marker.KeyInt
	KeyString = marker.KeyString
)

// RevisionOptions is a bitmask controlling how ReviseEnd lays out the
// produced record (spec §4.D.2).
type RevisionOptions int

const (
	// Keep preserves container capacities and tail-free space.
	Keep RevisionOptions = 0
	// Shrink removes tail-free space after the record.
	Shrink RevisionOptions = 1 << 0
	// Compact removes per-container capacities.
	Compact RevisionOptions = 1 << 1
	// Optimize is Shrink|Compact.
	Optimize = Shrink | Compact
)
