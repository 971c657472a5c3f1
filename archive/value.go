// In-memory value tree the writer serializes from and the reader
// decodes back into. This is the archive's own data model (distinct
// from carbon.Value, which is tied to a live cursor-backed record) —
// component E reads/writes a packed, read-only format and has no
// reason to depend on the record engine's mutable container machinery
// once a value has been materialized out of it.
package archive

import (
	"fmt"

	"github.com/jakson-go/carbon"
	"github.com/jakson-go/carbon/kind"
)

// valueKind discriminates Value's active field.
type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindU64
	kindI64
	kindFloat
	kindString
	kindObject
	kindArray
)

// Value is a decoded archive value: either a scalar, an object (keyed
// properties), or an array of Values.
type Value struct {
	Kind   valueKind
	Bool   bool
	U64    uint64
	I64    int64
	Float  float64
	Str    string
	Props  []NamedValue // Kind == kindObject
	Elems  []Value      // Kind == kindArray
}

// NamedValue is one (key, value) pair inside an object.
type NamedValue struct {
	Key   string
	Value Value
}

func (v Value) IsNull() bool { return v.Kind == kindNull }

// materializeRecord walks rec's outer container into a Value tree
// rooted in a single synthetic object with one property under key ""
// (spec §3 "the outer container is always an array-shaped list"; the
// archive format roots at an object_header, so the array is wrapped).
func materializeRecord(rec *carbon.Record) (Value, map[string]struct{}, error) {
	it, err := rec.OuterIterator()
	if err != nil {
		return Value{}, nil, err
	}
	names := map[string]struct{}{}
	arr, err := materializeArrayIterator(it, names)
	if err != nil {
		return Value{}, nil, err
	}
	root := Value{Kind: kindObject, Props: []NamedValue{{Key: "", Value: arr}}}
	return root, names, nil
}

func materializeArrayIterator(it *carbon.ArrayIterator, names map[string]struct{}) (Value, error) {
	var elems []Value
	for {
		v, ok, err := it.Next()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			break
		}
		mv, err := materializeCarbonValue(v, names)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, mv)
	}
	return Value{Kind: kindArray, Elems: elems}, nil
}

func materializeObjectIterator(it *carbon.ObjectIterator, names map[string]struct{}) (Value, error) {
	var props []NamedValue
	for {
		key, v, ok, err := it.Next()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			break
		}
		names[key] = struct{}{}
		mv, err := materializeCarbonValue(v, names)
		if err != nil {
			return Value{}, err
		}
		props = append(props, NamedValue{Key: key, Value: mv})
	}
	return Value{Kind: kindObject, Props: props}, nil
}

func materializeColumnIterator(ci *carbon.ColumnIterator, names map[string]struct{}) (Value, error) {
	var elems []Value
	for {
		v, ok, err := ci.Next()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			break
		}
		mv, err := materializeCarbonValue(v, names)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, mv)
	}
	return Value{Kind: kindArray, Elems: elems}, nil
}

func materializeCarbonValue(v carbon.Value, names map[string]struct{}) (Value, error) {
	switch v.Type {
	case carbon.TypeNull:
		return Value{Kind: kindNull}, nil
	case carbon.TypeTrue:
		return Value{Kind: kindBool, Bool: true}, nil
	case carbon.TypeFalse:
		return Value{Kind: kindBool, Bool: false}, nil
	case carbon.TypeU8, carbon.TypeU16, carbon.TypeU32, carbon.TypeU64:
		return Value{Kind: kindU64, U64: v.U64}, nil
	case carbon.TypeI8, carbon.TypeI16, carbon.TypeI32, carbon.TypeI64:
		return Value{Kind: kindI64, I64: v.I64}, nil
	case carbon.TypeFloat:
		return Value{Kind: kindFloat, Float: v.F64}, nil
	case carbon.TypeString:
		return Value{Kind: kindString, Str: v.Str}, nil
	case carbon.TypeObject:
		return materializeObjectIterator(v.Object, names)
	case carbon.TypeArray:
		return materializeArrayIterator(v.Array, names)
	case carbon.TypeColumn:
		return materializeColumnIterator(v.Column, names)
	default:
		return Value{}, fmt.Errorf("%w: archive cannot materialize field type %v", kind.ErrTypeMismatch, v.Type)
	}
}
