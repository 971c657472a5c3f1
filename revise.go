// Copy-on-write revision and in-place patching (spec §4.D.2).
package carbon

import (
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// ReviseBegin allocates a fresh memory block, copies r's bytes into
// it, and returns a record still open for insertion — the original r
// remains valid and untouched (spec §4.D.2 "the original remains
// valid").
func ReviseBegin(r *Record) (*Record, error) {
	if !r.frozen {
		return nil, fmt.Errorf("%w: revise_begin requires a frozen record", kind.ErrIllegalState)
	}
	h := *r.header
	return &Record{
		block:        r.block.Cpy(),
		header:       &h,
		commitOffset: r.commitOffset,
		outerBegin:   r.outerBegin,
	}, nil
}

// ReviseEnd finalizes a record opened by ReviseBegin: per options it
// compacts container capacities, then recomputes and stores a fresh
// commit hash, then trims the block.
//
// Compact must run before CreateEnd: it rewrites bytes the commit hash
// is computed over, so doing it after freezing would leave the stored
// hash describing a layout that no longer exists.
func ReviseEnd(rc *Record, options RevisionOptions) (*Record, error) {
	if rc.frozen {
		return nil, fmt.Errorf("%w: revise_end on an already-frozen record", kind.ErrIllegalState)
	}
	if options&Compact != 0 {
		w := cursor.Open(rc.block, cursor.ReadWrite)
		if err := compactOuter(w, rc.outerBegin); err != nil {
			return nil, err
		}
	}
	if err := rc.CreateEnd(); err != nil {
		return nil, err
	}
	if options&Shrink != 0 {
		rc.block.Shrink()
	}
	return rc, nil
}

// Patch edits r in place through fn without allocating a new block or
// changing r's commit hash (spec §4.D.2 "performed in place ... without
// changing the commit hash").
func Patch(r *Record, fn func(*Inserter) error) error {
	if !r.frozen {
		return fmt.Errorf("%w: patch requires a frozen record", kind.ErrIllegalState)
	}
	r.frozen = false
	ins, err := r.Inserter()
	if err != nil {
		r.frozen = true
		return err
	}
	if err := fn(ins); err != nil {
		r.frozen = true
		return err
	}
	r.frozen = true
	return nil
}
