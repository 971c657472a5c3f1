// Buckets a materialized property value into one of the 26 canonical
// types, deciding for array-valued properties whether they qualify for
// the fast scalar "array group" or the object-array "table group", or
// must fall back to a generic per-element wrap (spec §3 "Property
// group shapes").
package archive

// scalarPropType returns the PropType for a non-array, non-object leaf
// value.
func scalarPropType(v Value) PropType {
	switch v.Kind {
	case kindNull:
		return PTNull
	case kindBool:
		return PTBool
	case kindU64:
		return PTU64
	case kindI64:
		return PTI64
	case kindFloat:
		return PTFloat
	case kindString:
		return PTString
	default:
		return PTNull
	}
}

// classify returns the canonical PropType for v. For kindArray it also
// returns a possibly-rewritten copy of v: homogeneous scalar arrays are
// returned unchanged (PTxArray), homogeneous object arrays are returned
// unchanged (PTObjectArray), an empty array is returned unchanged as
// PTNullArray, and any other array (mixed types or nested arrays) is
// rewritten into an array of
// single-property wrapper objects {"v": elem} so it can still travel
// through the table/column-group machinery (spec §3 only names scalar
// "Array group" and object "Table group" shapes; this wrap is this
// implementation's documented generalization to cover the rest).
func classify(v Value) (PropType, Value) {
	switch v.Kind {
	case kindObject:
		return PTObject, v
	case kindArray:
		return classifyArray(v)
	default:
		return scalarPropType(v), v
	}
}

func classifyArray(v Value) (PropType, Value) {
	if len(v.Elems) == 0 {
		return PTNullArray, v
	}
	first := v.Elems[0].Kind
	if first == kindArray {
		return PTObjectArray, wrapElements(v)
	}
	allObjects := true
	allScalarSame := true
	for _, e := range v.Elems {
		if e.Kind != kindObject {
			allObjects = false
		}
		if e.Kind != first || e.Kind == kindObject || e.Kind == kindArray {
			allScalarSame = false
		}
	}
	switch {
	case allObjects:
		return PTObjectArray, v
	case allScalarSame:
		pt := scalarPropType(v.Elems[0])
		return scalarArrayPropType(pt), v
	default:
		return PTObjectArray, wrapElements(v)
	}
}

func scalarArrayPropType(pt PropType) PropType {
	switch pt {
	case PTNull:
		return PTNullArray
	case PTBool:
		return PTBoolArray
	case PTI64:
		return PTI64Array
	case PTU64:
		return PTU64Array
	case PTFloat:
		return PTFloatArray
	case PTString:
		return PTStringArray
	default:
		return PTNullArray
	}
}

// wrapElements rewrites each element of an array into a single-property
// object under key "v", giving the table-group/column-group writer a
// uniform object shape to transpose regardless of what the elements
// originally were.
func wrapElements(v Value) Value {
	out := make([]Value, len(v.Elems))
	for i, e := range v.Elems {
		out[i] = Value{Kind: kindObject, Props: []NamedValue{{Key: "v", Value: e}}}
	}
	return Value{Kind: kindArray, Elems: out}
}
