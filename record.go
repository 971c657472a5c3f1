// Record lifecycle: create, freeze, and drop (spec §3 "Lifecycles").
//
// A Record pairs a memory block with the byte offset of its outer
// container, mirroring how jpl-au-folio's DB pairs a file handle with
// the section offsets parsed from its header.
package carbon

import (
	"fmt"
	"sync/atomic"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// Record is a frozen, byte-addressable CARBON document: a header
// followed by an outer array container (spec §3 "Record").
type Record struct {
	block        *cursor.Block
	header       *Header
	commitOffset int // -1 for nokey records
	outerBegin   int // offset of the outer container's begin marker
	frozen       bool
}

// autoKeyCounter backs CreateAutoKey (spec §4.D.1 "auto-generated
// u64"). A package-level atomic counter stands in for the generic
// allocator/global-id collaborator named out of scope in spec §1.
var autoKeyCounter uint64

func nextAutoKey() uint64 {
	return atomic.AddUint64(&autoKeyCounter, 1)
}

// newRecord writes a header for the given key kind and an empty outer
// array container of abstract type at, returning the record still
// open for insertion (not yet frozen by CreateEnd).
func newRecord(h *Header, at AbstractType) (*Record, error) {
	block := cursor.Create(128)
	w := cursor.Open(block, cursor.ReadWrite)

	commitOff, err := writeHeader(w, h)
	if err != nil {
		return nil, err
	}
	outerBegin := w.Tell()
	if err := writeArrayBegin(w, at); err != nil {
		return nil, err
	}
	if err := writeArrayEnd(w); err != nil {
		return nil, err
	}

	return &Record{block: block, header: h, commitOffset: commitOff, outerBegin: outerBegin}, nil
}

// CreateNoKey starts a keyless record (spec §4.D.1 key kind '?').
func CreateNoKey(at AbstractType) (*Record, error) {
	return newRecord(&Header{Kind: KeyNone}, at)
}

// CreateAutoKey starts a record keyed with a freshly issued u64.
func CreateAutoKey(at AbstractType) (*Record, error) {
	return newRecord(&Header{Kind: KeyAuto, KeyUintVal: nextAutoKey()}, at)
}

// CreateUintKey starts a record keyed by a caller-supplied u64.
func CreateUintKey(key uint64, at AbstractType) (*Record, error) {
	return newRecord(&Header{Kind: KeyUint, KeyUintVal: key}, at)
}

// CreateIntKey starts a record keyed by a caller-supplied i64.
func CreateIntKey(key int64, at AbstractType) (*Record, error) {
	return newRecord(&Header{Kind: KeyInt, KeyIntVal: key}, at)
}

// CreateStringKey starts a record keyed by a caller-supplied string.
func CreateStringKey(key string, at AbstractType) (*Record, error) {
	return newRecord(&Header{Kind: KeyString, KeyStrVal: key}, at)
}

// Inserter returns an inserter positioned just before the outer
// container's end marker, ready to append fields. Calling it on a
// frozen record is a programming error.
func (r *Record) Inserter() (*Inserter, error) {
	if r.frozen {
		return nil, fmt.Errorf("%w: record is frozen, use Revise/Patch", kind.ErrIllegalOp)
	}
	return newInserter(r.block, r.outerBegin+1), nil
}

// CreateEnd freezes the record: recomputes and stores its commit hash
// over the bytes following the header (spec §4.D.6). Keyless records
// have no commit hash field and CreateEnd only marks them frozen.
func (r *Record) CreateEnd() error {
	if r.frozen {
		return fmt.Errorf("%w: record already frozen", kind.ErrIllegalState)
	}
	if r.commitOffset >= 0 {
		hash := CommitHash(r.block.RawData()[r.outerBegin:])
		w := cursor.Open(r.block, cursor.ReadWrite)
		if err := patchCommitHash(w, r.commitOffset, hash); err != nil {
			return err
		}
		r.header.CommitHash = hash
	}
	r.frozen = true
	return nil
}

// Drop releases the record's memory block. Using r after Drop is a
// programming error (spec §3 "dropped to release its memory block").
func (r *Record) Drop() { r.block = nil }

// Header returns the record's parsed header.
func (r *Record) Header() *Header { return r.header }

// Block exposes the underlying memory block, e.g. for WriteToFile.
func (r *Record) Block() *cursor.Block { return r.block }

// OuterIterator returns a fresh array iterator over the outer
// container, for read traversal after CreateEnd.
func (r *Record) OuterIterator() (*ArrayIterator, error) {
	return newArrayIterator(r.block, r.outerBegin)
}

// OpenRecord parses an existing serialized record's header, without
// validating the outer container, used when loading from a file
// (spec §6 "Persisted state: ... an optional record file").
func OpenRecord(block *cursor.Block) (*Record, error) {
	c := cursor.Open(block, cursor.ReadOnly)
	h, commitOff, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	return &Record{block: block, header: h, commitOffset: commitOff, outerBegin: c.Tell(), frozen: true}, nil
}
