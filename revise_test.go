package carbon

import "testing"

func TestReviseEndChangesHashKeepsData(t *testing.T) {
	r, _ := CreateUintKey(42, UnsortedMultiset)
	ins, _ := r.Inserter()
	if err := ins.InsertU8(5); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	originalHash := r.Header().CommitHash

	rc, err := ReviseBegin(r)
	if err != nil {
		t.Fatalf("ReviseBegin: %v", err)
	}
	ins2, err := rc.Inserter()
	if err != nil {
		t.Fatalf("rc.Inserter: %v", err)
	}
	if err := ins2.InsertU8(6); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	rc2, err := ReviseEnd(rc, Keep)
	if err != nil {
		t.Fatalf("ReviseEnd: %v", err)
	}

	if rc2.Header().CommitHash == originalHash {
		t.Fatalf("expected commit hash to change after revise_end")
	}

	// the original record is untouched
	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator on original: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.U64 != 5 {
		t.Fatalf("original field 0 = %+v ok=%v err=%v, want u8=5", v, ok, err)
	}
	if _, ok, _ := it.Next(); ok {
		t.Fatalf("expected original to still have exactly one field")
	}

	// the revision carries both fields
	it2, err := rc2.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator on revision: %v", err)
	}
	v, ok, err = it2.Next()
	if err != nil || !ok || v.U64 != 5 {
		t.Fatalf("revised field 0 = %+v ok=%v err=%v, want u8=5", v, ok, err)
	}
	v, ok, err = it2.Next()
	if err != nil || !ok || v.U64 != 6 {
		t.Fatalf("revised field 1 = %+v ok=%v err=%v, want u8=6", v, ok, err)
	}
}

// TestReviseEndCompact exercises the Compact RevisionOptions path: an
// array that reserves more capacity than it uses must come out of
// ReviseEnd with its padding gone and its data intact.
func TestReviseEndCompact(t *testing.T) {
	r, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateNoKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	sub, err := ins.InsertArrayBegin(20)
	if err != nil {
		t.Fatalf("InsertArrayBegin: %v", err)
	}
	for _, v := range []uint8{1, 2, 3} {
		if err := sub.InsertU8(v); err != nil {
			t.Fatalf("InsertU8: %v", err)
		}
	}
	sub.InsertArrayEnd()
	if err := ins.InsertU8(99); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	uncompactedLen := r.block.Size()

	rc, err := ReviseBegin(r)
	if err != nil {
		t.Fatalf("ReviseBegin: %v", err)
	}
	rc2, err := ReviseEnd(rc, Optimize)
	if err != nil {
		t.Fatalf("ReviseEnd: %v", err)
	}

	if rc2.block.Size() >= uncompactedLen {
		t.Fatalf("compacted block len = %d, want < uncompacted len %d", rc2.block.Size(), uncompactedLen)
	}

	it, err := rc2.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeArray {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want array", v, ok, err)
	}
	want := []uint64{1, 2, 3}
	for i, w := range want {
		ev, ok, err := v.Array.Next()
		if err != nil || !ok || ev.U64 != w {
			t.Fatalf("array element %d = %+v ok=%v err=%v, want %d", i, ev, ok, err, w)
		}
	}
	if _, ok, _ := v.Array.Next(); ok {
		t.Fatalf("expected array exhausted at length 3")
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.Type != TypeU8 || v.U64 != 99 {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want u8=99", v, ok, err)
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected outer iterator exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestPatchPreservesCommitHash(t *testing.T) {
	r, _ := CreateUintKey(7, UnsortedMultiset)
	ins, _ := r.Inserter()
	ins.InsertU8(1)
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}
	originalHash := r.Header().CommitHash

	if err := Patch(r, func(sub *Inserter) error {
		return sub.InsertU8(2)
	}); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	if r.Header().CommitHash != originalHash {
		t.Fatalf("expected commit hash unchanged after Patch, got %d want %d", r.Header().CommitHash, originalHash)
	}

	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.U64 != 1 {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want u8=1", v, ok, err)
	}
	v, ok, err = it.Next()
	if err != nil || !ok || v.U64 != 2 {
		t.Fatalf("field 1 = %+v ok=%v err=%v, want u8=2", v, ok, err)
	}
}
