// Package dict implements the string dictionary (spec §4.B): a
// thread-safe map of string <-> id with reusable id slots, a content
// vector, and a hash index.
//
// The index is a Go map keyed by the string's bytes. xxh3 (the default
// algorithm of jpl-au-folio/hash.go) is used only by indexHash, which
// picks the shard for each string in InsertAsync.
package dict

import (
	"fmt"

	"github.com/jakson-go/carbon/kind"
	"github.com/zeebo/xxh3"
)

// slot is one entry in the content vector (spec §3 "String record").
type slot struct {
	data  []byte
	inUse bool
}

// Counters tracks index hit/miss statistics (spec §4.B).
type Counters struct {
	Hits   uint64
	Misses uint64
}

// Dictionary is a thread-safe string<->id map with reusable ids.
type Dictionary struct {
	lock spinlock

	content  []slot
	freelist []uint64 // LIFO stack of reusable ids

	index map[string]uint64 // string bytes -> id

	nthreads int
	counters Counters
}

// Create initializes a dictionary with an id space of capacity ids
// pre-filled onto the free list, and a hash index sized for buckets *
// bucketCap entries (spec §4.B create()).
func Create(capacity, buckets, bucketCap, nthreads int) *Dictionary {
	if nthreads < 1 {
		nthreads = 1
	}
	d := &Dictionary{
		content:  make([]slot, capacity),
		freelist: make([]uint64, 0, capacity),
		index:    make(map[string]uint64, buckets*bucketCap),
		nthreads: nthreads,
	}
	// Free ids are pushed capacity-1 down to 0, so id 0 ends on top of
	// the LIFO stack and is handed out first, since "insert" always
	// pops the top of the stack (spec §4.B insert()).
	for i := capacity - 1; i >= 0; i-- {
		d.freelist = append(d.freelist, uint64(i))
	}
	return d
}

// Drop releases all owned strings. Idempotent calls are undefined per
// spec §4.B; this implementation simply empties the structures, so a
// second Drop is a harmless no-op rather than a panic.
func (d *Dictionary) Drop() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.content = nil
	d.freelist = nil
	d.index = nil
}

func indexHash(s string) uint64 { return xxh3.HashString(s) }

func (d *Dictionary) growIfNeeded() {
	if len(d.freelist) > 0 {
		return
	}
	// Geometric growth of both the content vector and free list in
	// lock-step (spec §4.B "Failure semantics").
	old := len(d.content)
	grown := old * 2
	if grown == 0 {
		grown = 16
	}
	d.content = append(d.content, make([]slot, grown-old)...)
	for i := grown - 1; i >= old; i-- {
		d.freelist = append(d.freelist, uint64(i))
	}
}

// popFree pops one id off the free list, growing first if empty.
// Caller must hold the lock.
func (d *Dictionary) popFree() uint64 {
	d.growIfNeeded()
	n := len(d.freelist) - 1
	id := d.freelist[n]
	d.freelist = d.freelist[:n]
	return id
}

// Insert returns an id for every input string, reusing an existing id
// for duplicates (both against the dictionary's prior contents and
// within the same call) and allocating fresh ids otherwise.
func (d *Dictionary) Insert(strs []string) []uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()

	ids := make([]uint64, len(strs))
	local := make(map[string]uint64, len(strs)) // dedupe within this call
	for i, s := range strs {
		if id, ok := local[s]; ok {
			ids[i] = id
			continue
		}
		if id, ok := d.index[s]; ok {
			ids[i] = id
			local[s] = id
			continue
		}
		id := d.popFree()
		data := []byte(s)
		d.content[id] = slot{data: data, inUse: true}
		d.index[s] = id
		ids[i] = id
		local[s] = id
	}
	return ids
}

// LocateSafe looks up ids for keys, reporting which were absent.
func (d *Dictionary) LocateSafe(keys []string) (ids []uint64, found []bool, numNotFound int) {
	d.lock.Lock()
	defer d.lock.Unlock()

	ids = make([]uint64, len(keys))
	found = make([]bool, len(keys))
	for i, k := range keys {
		if id, ok := d.index[k]; ok {
			ids[i] = id
			found[i] = true
			d.counters.Hits++
		} else {
			numNotFound++
			d.counters.Misses++
		}
	}
	return ids, found, numNotFound
}

// LocateFast is LocateSafe without the found mask: callers promise
// every key is present. An absent key yields an undefined id for that
// slot (spec §4.B), here surfaced as zero rather than a crash.
func (d *Dictionary) LocateFast(keys []string) []uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()

	ids := make([]uint64, len(keys))
	for i, k := range keys {
		if id, ok := d.index[k]; ok {
			ids[i] = id
			d.counters.Hits++
		} else {
			d.counters.Misses++
		}
	}
	return ids
}

// Extract returns borrowed byte slices for each id. Callers must not
// mutate the dictionary for the duration of the borrow (spec §4.B).
func (d *Dictionary) Extract(ids []uint64) ([][]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	out := make([][]byte, len(ids))
	for i, id := range ids {
		if id >= uint64(len(d.content)) || !d.content[id].inUse {
			return nil, fmt.Errorf("%w: extract unknown id %d", kind.ErrIllegalArg, id)
		}
		out[i] = d.content[id].data
	}
	return out, nil
}

// Remove marks each id free, recycling it onto the free list, and
// drops it from the index. Heap strings are released last, after the
// index no longer references them (spec §4.B ordering).
func (d *Dictionary) Remove(ids []uint64) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, id := range ids {
		if id >= uint64(len(d.content)) || !d.content[id].inUse {
			return fmt.Errorf("%w: remove unknown id %d", kind.ErrIllegalArg, id)
		}
	}
	for _, id := range ids {
		s := d.content[id]
		d.freelist = append(d.freelist, id)
		delete(d.index, string(s.data))
		d.content[id] = slot{}
	}
	return nil
}

// NumDistinct returns the number of slots currently in use.
func (d *Dictionary) NumDistinct() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.index)
}

// ResetCounters zeroes the hit/miss counters.
func (d *Dictionary) ResetCounters() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.counters = Counters{}
}

// CountersSnapshot returns the current hit/miss counters.
func (d *Dictionary) CountersSnapshot() Counters {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.counters
}
