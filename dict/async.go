package dict

import "sync"

// InsertAsync splits strs across Create's configured nthreads by
// xxh3-hash shard and runs one goroutine per non-empty shard. Each
// shard goes through Insert, so the byte copy, the duplicate lookup
// and free-id allocation all happen under the single spinlock, and
// the shards take turns holding it. Small inputs (or nthreads <= 1)
// go straight to Insert. This is the answer here to spec.md §9's
// open question on nthreads parallelization.
func (d *Dictionary) InsertAsync(strs []string) []uint64 {
	if d.nthreads <= 1 || len(strs) < d.nthreads*4 {
		return d.Insert(strs)
	}

	shards := make([][]int, d.nthreads) // string indices per shard
	for i, s := range strs {
		shard := indexHash(s) % uint64(d.nthreads)
		shards[shard] = append(shards[shard], i)
	}

	ids := make([]uint64, len(strs))
	var wg sync.WaitGroup
	for _, idxs := range shards {
		if len(idxs) == 0 {
			continue
		}
		idxs := idxs
		wg.Add(1)
		go func() {
			defer wg.Done()
			shardStrs := make([]string, len(idxs))
			for i, si := range idxs {
				shardStrs[i] = strs[si]
			}
			shardIDs := d.Insert(shardStrs)
			for i, si := range idxs {
				ids[si] = shardIDs[i]
			}
		}()
	}
	wg.Wait()
	return ids
}
