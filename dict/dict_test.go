package dict

import (
	"testing"
)

// TestInsertDeduplicates is scenario S5 and property §8.4: inserting
// the same string twice (within one call or across calls) returns the
// same id, and NumDistinct counts only distinct live strings.
func TestInsertDeduplicates(t *testing.T) {
	d := Create(16, 4, 4, 1)

	ids := d.Insert([]string{"alpha", "beta", "alpha", "gamma"})
	if ids[0] != ids[2] {
		t.Fatalf("duplicate 'alpha' got different ids: %d vs %d", ids[0], ids[2])
	}
	if d.NumDistinct() != 3 {
		t.Fatalf("NumDistinct = %d, want 3", d.NumDistinct())
	}

	extracted, err := d.Extract([]uint64{ids[1]})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(extracted[0]) != "beta" {
		t.Errorf("Extract = %q, want beta", extracted[0])
	}
}

// TestRemoveThenReinsertReusesID is scenario S5's tail: removing an
// id and re-inserting the same string must reissue the freed id
// (LIFO free list), proving ids are stable only while live.
func TestRemoveThenReinsertReusesID(t *testing.T) {
	d := Create(16, 4, 4, 1)
	ids := d.Insert([]string{"alpha", "beta", "gamma"})
	betaID := ids[1]

	if err := d.Remove([]uint64{betaID}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	newIDs := d.Insert([]string{"beta"})
	if newIDs[0] != betaID {
		t.Errorf("reinsert got id %d, want reused id %d", newIDs[0], betaID)
	}
}

// TestLocateSafeReportsMisses verifies LocateSafe's found mask and
// miss count distinguish absent keys from id 0 collisions.
func TestLocateSafeReportsMisses(t *testing.T) {
	d := Create(16, 4, 4, 1)
	d.Insert([]string{"alpha"})

	ids, found, numNotFound := d.LocateSafe([]string{"alpha", "missing"})
	if !found[0] || found[1] {
		t.Fatalf("found = %v, want [true false]", found)
	}
	if numNotFound != 1 {
		t.Errorf("numNotFound = %d, want 1", numNotFound)
	}
	_ = ids
}

// TestGrowthBeyondCapacity verifies inserting more strings than the
// initial capacity grows the content vector and free list together
// instead of failing.
func TestGrowthBeyondCapacity(t *testing.T) {
	d := Create(2, 4, 4, 1)
	ids := d.Insert([]string{"a", "b", "c", "d", "e"})
	seen := map[uint64]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d among distinct strings", id)
		}
		seen[id] = true
	}
}

// TestInsertAsyncMatchesSync verifies the sharded async path produces
// the same dedupe/id-stability guarantees as the synchronous path.
func TestInsertAsyncMatchesSync(t *testing.T) {
	d := Create(64, 8, 8, 4)
	var strs []string
	for i := 0; i < 64; i++ {
		strs = append(strs, "s", "t", "u", "v") // heavy duplication
		_ = i
	}
	ids := d.InsertAsync(strs)
	for i := 4; i < len(ids); i += 4 {
		if ids[i] != ids[0] || ids[i+1] != ids[1] || ids[i+2] != ids[2] || ids[i+3] != ids[3] {
			t.Fatalf("shard %d ids mismatch base ids", i/4)
		}
	}
}
