// Record lifecycle and inserter/iterator round-trip tests (spec §8
// invariant 1: iterating a record's outer container to exhaustion
// visits every inserted field exactly once, in insertion order).
package carbon

import "testing"

func TestCreateNoKeyEmptyRoundTrip(t *testing.T) {
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected empty array, got ok=%v err=%v", ok, err)
	}
}

func TestInsertPrimitivesRoundTrip(t *testing.T) {
	r, err := CreateAutoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateAutoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	if err := ins.InsertU8(7); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := ins.InsertString("hello"); err != nil {
		t.Fatalf("InsertString: %v", err)
	}
	if err := ins.InsertFloat(3.5); err != nil {
		t.Fatalf("InsertFloat: %v", err)
	}
	if err := ins.InsertTrue(); err != nil {
		t.Fatalf("InsertTrue: %v", err)
	}
	if err := ins.InsertNull(); err != nil {
		t.Fatalf("InsertNull: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}

	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeU8 || v.U64 != 7 {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want u8=7", v, ok, err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeString || v.Str != "hello" {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want string=hello", v, ok, err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeFloat || v.F64 != 3.5 {
		t.Fatalf("field 2 = %+v ok=%v err=%v, want float=3.5", v, ok, err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeTrue || !v.Bool {
		t.Fatalf("field 3 = %+v ok=%v err=%v, want true", v, ok, err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeNull {
		t.Fatalf("field 4 = %+v ok=%v err=%v, want null", v, ok, err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected exhausted iterator, got ok=%v err=%v", ok, err)
	}
}

func TestInsertNestedObjectAndArray(t *testing.T) {
	r, err := CreateStringKey("doc-1", UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateStringKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}

	obj, err := ins.InsertObjectBegin(UnsortedMultiset)
	if err != nil {
		t.Fatalf("InsertObjectBegin: %v", err)
	}
	if err := obj.InsertProperty("name", func(v *Inserter) error {
		return v.InsertString("carbon")
	}); err != nil {
		t.Fatalf("InsertProperty: %v", err)
	}
	obj.InsertObjectEnd()

	arr, err := ins.InsertArrayBegin(3)
	if err != nil {
		t.Fatalf("InsertArrayBegin: %v", err)
	}
	for i := uint32(0); i < 3; i++ {
		if err := arr.InsertU32(i); err != nil {
			t.Fatalf("InsertU32(%d): %v", i, err)
		}
	}
	arr.InsertArrayEnd()

	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}

	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeObject {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want object", v, ok, err)
	}
	key, pv, ok, err := v.Object.Next()
	if err != nil || !ok || key != "name" || pv.Str != "carbon" {
		t.Fatalf("object property = %q %+v ok=%v err=%v", key, pv, ok, err)
	}
	if _, _, ok, _ := v.Object.Next(); ok {
		t.Fatalf("expected object exhausted")
	}

	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeArray {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want array", v, ok, err)
	}
	for i := uint32(0); i < 3; i++ {
		ev, ok, err := v.Array.Next()
		if err != nil || !ok || ev.U64 != uint64(i) {
			t.Fatalf("array element %d = %+v ok=%v err=%v", i, ev, ok, err)
		}
	}
	if _, ok, _ := v.Array.Next(); ok {
		t.Fatalf("expected array exhausted")
	}

	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected outer exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestCommitHashChangesAcrossContent(t *testing.T) {
	r1, _ := CreateUintKey(1, UnsortedMultiset)
	ins1, _ := r1.Inserter()
	ins1.InsertU8(1)
	if err := r1.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd r1: %v", err)
	}

	r2, _ := CreateUintKey(1, UnsortedMultiset)
	ins2, _ := r2.Inserter()
	ins2.InsertU8(2)
	if err := r2.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd r2: %v", err)
	}

	if r1.Header().CommitHash == r2.Header().CommitHash {
		t.Fatalf("expected distinct commit hashes for distinct bodies")
	}
}

func TestInserterRejectsUseAfterFrozen(t *testing.T) {
	r, _ := CreateNoKey(UnsortedMultiset)
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	if _, err := r.Inserter(); err == nil {
		t.Fatalf("expected error requesting inserter on frozen record")
	}
}
