// Iterator navigation and mutation tests: rewind/has_next/prev/tell/
// fast_forward/update_type across array, object, and column iterators
// (spec §4.D.4), plus object remove.
package carbon

import "testing"

func buildU8ArrayRecord(t *testing.T, values ...uint8) (*Record, *ArrayIterator) {
	t.Helper()
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	sub, err := ins.InsertArrayBegin(len(values))
	if err != nil {
		t.Fatalf("InsertArrayBegin: %v", err)
	}
	for _, v := range values {
		if err := sub.InsertU8(v); err != nil {
			t.Fatalf("InsertU8: %v", err)
		}
	}
	sub.InsertArrayEnd()
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	outer, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := outer.Next()
	if err != nil || !ok || v.Type != TypeArray {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want array", v, ok, err)
	}
	return r, v.Array
}

func TestArrayIteratorRewindAndPrev(t *testing.T) {
	_, it := buildU8ArrayRecord(t, 1, 2, 3)

	if _, ok, _ := it.Prev(); ok {
		t.Fatalf("Prev before any Next should fail silently")
	}
	var got []uint64
	for {
		v, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, v.U64)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("forward pass = %v, want [1 2 3]", got)
	}

	v, ok, err := it.Prev()
	if err != nil || !ok || v.U64 != 3 {
		t.Fatalf("Prev after exhaustion = %+v ok=%v err=%v, want u8=3", v, ok, err)
	}
	v, ok, err = it.Prev()
	if err != nil || !ok || v.U64 != 2 {
		t.Fatalf("Prev again = %+v ok=%v err=%v, want u8=2", v, ok, err)
	}
	// Next re-reads the element Prev backed up over.
	v, ok, err = it.Next()
	if err != nil || !ok || v.U64 != 2 {
		t.Fatalf("Next after Prev = %+v ok=%v err=%v, want u8=2", v, ok, err)
	}

	if err := it.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.U64 != 1 {
		t.Fatalf("Next after Rewind = %+v ok=%v err=%v, want u8=1", v, ok, err)
	}
}

func TestArrayIteratorHasNextTellFastForward(t *testing.T) {
	_, it := buildU8ArrayRecord(t, 9, 8)

	hasNext, err := it.HasNext()
	if err != nil || !hasNext {
		t.Fatalf("HasNext before any element = %v err=%v, want true", hasNext, err)
	}
	before := it.Tell()
	if _, ok, err := it.Next(); err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	after := it.Tell()
	if after <= before {
		t.Fatalf("Tell did not advance: before=%d after=%d", before, after)
	}

	if err := it.FastForward(); err != nil {
		t.Fatalf("FastForward: %v", err)
	}
	hasNext, err = it.HasNext()
	if err != nil || hasNext {
		t.Fatalf("HasNext after FastForward = %v err=%v, want false", hasNext, err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("Next after FastForward: ok=%v err=%v, want exhausted", ok, err)
	}
}

func TestArrayIteratorUpdateType(t *testing.T) {
	r, it := buildU8ArrayRecord(t, 1, 2, 3)
	if it.AbstractType() != UnsortedMultiset {
		t.Fatalf("initial abstract type = %v, want UnsortedMultiset", it.AbstractType())
	}
	if err := Patch(r, func(_ *Inserter) error {
		return it.UpdateType(SortedSet)
	}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if it.AbstractType() != SortedSet {
		t.Fatalf("abstract type after update = %v, want SortedSet", it.AbstractType())
	}
	// A fresh iterator over the same bytes sees the same updated marker.
	outer, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := outer.Next()
	if err != nil || !ok || v.Array.AbstractType() != SortedSet {
		t.Fatalf("re-read array abstract type = %+v ok=%v err=%v, want SortedSet", v, ok, err)
	}
}

func TestObjectIteratorRemove(t *testing.T) {
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	obj, err := ins.InsertObjectBegin(UnsortedMultiset)
	if err != nil {
		t.Fatalf("InsertObjectBegin: %v", err)
	}
	for _, kv := range []struct {
		key string
		val uint8
	}{{"a", 1}, {"b", 2}, {"c", 3}} {
		kv := kv
		if err := obj.InsertProperty(kv.key, func(v *Inserter) error { return v.InsertU8(kv.val) }); err != nil {
			t.Fatalf("InsertProperty %s: %v", kv.key, err)
		}
	}
	obj.InsertObjectEnd()
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	outer, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := outer.Next()
	if err != nil || !ok || v.Type != TypeObject {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want object", v, ok, err)
	}
	oit := v.Object

	key, _, ok, err := oit.Next()
	if err != nil || !ok || key != "a" {
		t.Fatalf("first property = %q ok=%v err=%v, want a", key, ok, err)
	}
	key, _, ok, err = oit.Next()
	if err != nil || !ok || key != "b" {
		t.Fatalf("second property = %q ok=%v err=%v, want b", key, ok, err)
	}
	if oit.PropName() != "b" {
		t.Fatalf("PropName = %q, want b", oit.PropName())
	}

	n, err := oit.Remove()
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if n <= 0 {
		t.Fatalf("Remove byte count = %d, want > 0", n)
	}
	if oit.PropName() != "" {
		t.Fatalf("PropName after Remove = %q, want invalidated (empty)", oit.PropName())
	}

	key, val, ok, err := oit.Next()
	if err != nil || !ok || key != "c" || val.U64 != 3 {
		t.Fatalf("property after removal = %q/%+v ok=%v err=%v, want c=3", key, val, ok, err)
	}
	if _, _, ok, _ := oit.Next(); ok {
		t.Fatalf("expected object exhausted after removing b")
	}

	// re-reading from scratch confirms the object now has two properties
	outer2, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err = outer2.Next()
	if err != nil || !ok || v.Type != TypeObject {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want object", v, ok, err)
	}
	var keys []string
	for {
		k, _, ok, err := v.Object.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		keys = append(keys, k)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("keys after removal = %v, want [a c]", keys)
	}
}

func TestColumnIteratorNavAndUpdateType(t *testing.T) {
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	col, err := ins.InsertColumnBegin(UnsortedMultiset, TypeU32, 4)
	if err != nil {
		t.Fatalf("InsertColumnBegin: %v", err)
	}
	if err := col.PushBulkU32([]uint32{5, 6, 7}); err != nil {
		t.Fatalf("PushBulkU32: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	outer, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := outer.Next()
	if err != nil || !ok || v.Type != TypeColumn {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want column", v, ok, err)
	}
	ci := v.Column

	if !ci.HasNext() {
		t.Fatalf("HasNext on fresh column = false, want true")
	}
	ev, ok, err := ci.Next()
	if err != nil || !ok || ev.U64 != 5 {
		t.Fatalf("first element = %+v ok=%v err=%v, want u32=5", ev, ok, err)
	}
	ci.FastForward()
	if ci.HasNext() {
		t.Fatalf("HasNext after FastForward = true, want false")
	}
	ev, ok, err = ci.Prev()
	if err != nil || !ok || ev.U64 != 7 {
		t.Fatalf("Prev after FastForward = %+v ok=%v err=%v, want u32=7", ev, ok, err)
	}
	ci.Rewind()
	ev, ok, err = ci.Next()
	if err != nil || !ok || ev.U64 != 5 {
		t.Fatalf("Next after Rewind = %+v ok=%v err=%v, want u32=5", ev, ok, err)
	}

	if err := Patch(r, func(_ *Inserter) error {
		return FindUpdateColumnType(r, "0", SortedSet)
	}); err != nil {
		t.Fatalf("Patch/FindUpdateColumnType: %v", err)
	}
	outer2, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err = outer2.Next()
	if err != nil || !ok || v.Column.AbstractType() != SortedSet {
		t.Fatalf("column after update = %+v ok=%v err=%v, want SortedSet", v, ok, err)
	}
}
