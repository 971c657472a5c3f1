// Depth-first pre-order archive visitor (spec §4.F): walks object
// headers directly off the packed block, honoring a visit_mask of
// which canonical type groups to descend into, and letting any
// callback prune the subtree under it.
//
// Grounded on spec §4.F's "first_prop_type_group/next_prop_type_group
// pair bracketing the group" + per-type visit_*_pairs protocol, built
// on the same readObjectHeader/readGroupHeader primitives decode.go
// uses for full materialization — this walk just skips groups the mask
// excludes instead of decoding them.
package archive

import "github.com/jakson-go/carbon/internal/marker"

// VisitAction is returned by every visitor callback to control descent.
type VisitAction int

const (
	// VisitContinue descends into the group/subtree normally.
	VisitContinue VisitAction = iota
	// VisitExclude prunes the current group or object subtree: its
	// children are not visited, but the walk continues with siblings.
	VisitExclude
)

// Visitor bundles the callback surface for Visit. Every field is
// optional; a nil callback behaves as if it returned VisitContinue.
type Visitor struct {
	// Mask restricts descent to these canonical type groups. A nil
	// Mask visits every group present.
	Mask *Flags

	// EnterObject/LeaveObject bracket one object_header (its nested
	// children, for object-valued properties, fire their own
	// Enter/Leave pair in between).
	EnterObject func(oid uint64) VisitAction
	LeaveObject func(oid uint64)

	// EnterGroup/LeaveGroup bracket one property-type group within an
	// object (the first_prop_type_group/next_prop_type_group pair).
	EnterGroup func(pt PropType) VisitAction
	LeaveGroup func(pt PropType)

	// VisitPairs receives one fixed/null/variable-size group's
	// key/value pairs at once (spec's "visit_*_pairs(keys[], values[],
	// n)"). Object-valued pairs are NOT included here — each fires its
	// own EnterObject/LeaveObject instead, per the two-level object
	// array protocol.
	VisitPairs func(pt PropType, keys []string, values []Value) VisitAction

	// VisitArrayProp receives one array-shaped property at once (spec's
	// "visit_*_array_pair(key, index, n_max, elem[], m)"; index/n_max
	// collapse to a single call per property here since the archive has
	// no partial-array decode primitive).
	VisitArrayProp func(pt PropType, key string, elems []Value) VisitAction
}

func (v Visitor) allows(pt PropType) bool {
	return v.Mask == nil || v.Mask.Test(pt)
}

func (v Visitor) enterGroup(pt PropType) VisitAction {
	if v.EnterGroup == nil {
		return VisitContinue
	}
	return v.EnterGroup(pt)
}

func (v Visitor) enterObject(oid uint64) VisitAction {
	if v.EnterObject == nil {
		return VisitContinue
	}
	return v.EnterObject(oid)
}

// Visit walks the archive depth-first, pre-order, starting at the root
// object header (the synthetic "" wrapper whose one property holds the
// outer array).
func (a *Archive) Visit(v Visitor) error {
	return a.VisitAt(a.header.rootObjectOff, v)
}

// VisitAt walks the object header at off.
func (a *Archive) VisitAt(off int, v Visitor) error {
	return a.r.visitObject(off, v)
}

func (r *readerState) visitObject(off int, v Visitor) error {
	oh, err := r.readObjectHeader(off)
	if err != nil {
		return err
	}
	if v.enterObject(oh.OID) == VisitExclude {
		return nil
	}
	defer func() {
		if v.LeaveObject != nil {
			v.LeaveObject(oh.OID)
		}
	}()

	setBits := oh.Flags.setBits()
	for i, pt := range setBits {
		if !v.allows(pt) {
			continue
		}
		if v.enterGroup(pt) == VisitExclude {
			continue
		}
		if err := r.visitGroup(pt, oh.offsets[i], v); err != nil {
			return err
		}
		if v.LeaveGroup != nil {
			v.LeaveGroup(pt)
		}
	}
	return nil
}

func (r *readerState) visitGroup(pt PropType, off int, v Visitor) error {
	switch pt {
	case PTObjectArray:
		return r.visitTableGroup(off, v)
	case PTNullArray, PTBoolArray, PTI8Array, PTI16Array, PTI32Array, PTI64Array,
		PTU8Array, PTU16Array, PTU32Array, PTU64Array, PTFloatArray, PTStringArray:
		props, err := r.decodeArrayGroup(pt, off)
		if err != nil {
			return err
		}
		for _, p := range props {
			if v.VisitArrayProp != nil && v.VisitArrayProp(pt, p.Key, p.Value.Elems) == VisitExclude {
				continue
			}
		}
		return nil
	case PTObject:
		return r.visitFixedObjectGroup(off, v)
	default:
		props, err := r.decodeGroup(pt, off)
		if err != nil {
			return err
		}
		if v.VisitPairs == nil {
			return nil
		}
		keys := make([]string, len(props))
		values := make([]Value, len(props))
		for i, p := range props {
			keys[i] = p.Key
			values[i] = p.Value
		}
		v.VisitPairs(pt, keys, values)
		return nil
	}
}

// visitFixedObjectGroup re-reads what decodeFixedObjectGroup reads, but
// recurses via visitObject instead of decodeObject so a VisitExclude on
// a child's EnterObject prunes just that child.
func (r *readerState) visitFixedObjectGroup(off int, v Visitor) error {
	n, err := r.readGroupHeader(off, marker.PropGroupFixed)
	if err != nil {
		return err
	}
	if _, err := r.readKeys(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		b, err := r.c.Read(8)
		if err != nil {
			return err
		}
		childOff := int(u64from(b))
		if err := r.visitObject(childOff, v); err != nil {
			return err
		}
	}
	return nil
}

// visitTableGroup walks an object-valued-array property: the group's
// keys and column-group descriptor offsets, then each descriptor via
// visitColumnGroupDescriptor. That reports every decoded object element
// as EnterObject(0), one VisitPairs(PTObject, ...) call and
// LeaveObject(0); it does not recurse through visitObject.
func (r *readerState) visitTableGroup(off int, v Visitor) error {
	n, err := r.readGroupHeader(off, marker.PropGroupTable)
	if err != nil {
		return err
	}
	if _, err := r.readKeys(n); err != nil {
		return err
	}
	descOffs := make([]int, n)
	for i := 0; i < n; i++ {
		b, err := r.c.Read(8)
		if err != nil {
			return err
		}
		descOffs[i] = int(u64from(b))
	}
	for _, do := range descOffs {
		if err := r.visitColumnGroupDescriptor(do, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *readerState) visitColumnGroupDescriptor(off int, v Visitor) error {
	elems, err := r.decodeColumnGroupDescriptor(off)
	if err != nil {
		return err
	}
	// Column-group entries carry no standalone byte offset for the
	// object case (writeColumn inlines a u64 offset per object entry
	// instead of a group header), so object members are visited from
	// the already-decoded tree rather than re-walked by offset.
	for _, e := range elems {
		if e.Kind != kindObject {
			continue
		}
		if v.EnterObject != nil && v.EnterObject(0) == VisitExclude {
			continue
		}
		if v.VisitPairs != nil {
			keys := make([]string, len(e.Props))
			values := make([]Value, len(e.Props))
			for i, p := range e.Props {
				keys[i] = p.Key
				values[i] = p.Value
			}
			v.VisitPairs(PTObject, keys, values)
		}
		if v.LeaveObject != nil {
			v.LeaveObject(0)
		}
	}
	return nil
}
