package carbon

import "testing"

func TestColumnPushAndLengthPatch(t *testing.T) {
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
	if col.Length() != 0 || col.Capacity() != 4 {
		t.Fatalf("fresh column length=%d capacity=%d, want 0/4", col.Length(), col.Capacity())
	}
	for i, v := range []uint32{10, 20, 30} {
		if err := col.PushU32(v); err != nil {
			t.Fatalf("PushU32(%d): %v", i, err)
		}
	}
	if col.Length() != 3 {
		t.Fatalf("length = %d, want 3", col.Length())
	}

	// A sibling field written on the parent after the column must land
	// immediately after the column's full capacity span, not be
	// corrupted by the in-place pushes above.
	if err := ins.InsertU8(99); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeColumn {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want column", v, ok, err)
	}
	if v.Column.Length() != 3 || v.Column.Capacity() != 4 {
		t.Fatalf("read back length=%d capacity=%d, want 3/4", v.Column.Length(), v.Column.Capacity())
	}
	want := []uint64{10, 20, 30}
	for i, w := range want {
		ev, ok, err := v.Column.Next()
		if err != nil || !ok || ev.U64 != w {
			t.Fatalf("column element %d = %+v ok=%v err=%v, want %d", i, ev, ok, err, w)
		}
	}
	if _, ok, _ := v.Column.Next(); ok {
		t.Fatalf("expected column exhausted at length 3")
	}

	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeU8 || v.U64 != 99 {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want u8=99", v, ok, err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected exhausted outer iterator, got ok=%v err=%v", ok, err)
	}
}

// TestColumnPushPastCapacityGrows exercises the header-rewrite-plus-
// tail-shift overflow path: pushing past capacity must grow the
// column rather than fail, and a sibling field written afterward must
// still land correctly.
func TestColumnPushPastCapacityGrows(t *testing.T) {
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	col, err := ins.InsertColumnBegin(UnsortedMultiset, TypeU8, 1)
	if err != nil {
		t.Fatalf("InsertColumnBegin: %v", err)
	}
	if err := col.PushU8(1); err != nil {
		t.Fatalf("first PushU8: %v", err)
	}
	if err := col.PushU8(2); err != nil {
		t.Fatalf("PushU8 past capacity should grow, got error: %v", err)
	}
	if col.Capacity() <= 1 {
		t.Fatalf("capacity after overflow push = %d, want > 1", col.Capacity())
	}
	if col.Length() != 2 {
		t.Fatalf("length after overflow push = %d, want 2", col.Length())
	}
	for i := 0; i < 5; i++ {
		if err := col.PushU8(uint8(10 + i)); err != nil {
			t.Fatalf("PushU8(%d): %v", i, err)
		}
	}
	if col.Length() != 7 {
		t.Fatalf("length after repeated growth = %d, want 7", col.Length())
	}

	if err := ins.InsertU8(99); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeColumn {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want column", v, ok, err)
	}
	want := []uint64{1, 2, 10, 11, 12, 13, 14}
	for i, w := range want {
		ev, ok, err := v.Column.Next()
		if err != nil || !ok || ev.U64 != w {
			t.Fatalf("column element %d = %+v ok=%v err=%v, want %d", i, ev, ok, err, w)
		}
	}
	if _, ok, _ := v.Column.Next(); ok {
		t.Fatalf("expected column exhausted at length 7")
	}

	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeU8 || v.U64 != 99 {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want u8=99", v, ok, err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected exhausted outer iterator, got ok=%v err=%v", ok, err)
	}
}
