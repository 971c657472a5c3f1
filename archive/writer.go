// Archive writer: top-level orchestration of the six steps named in
// spec §4.E ("Writer").
//
// Grounded on jpl-au-folio/write.go's reserve-header/backpatch-on-close
// discipline, generalized from a single fixed record header to the
// archive's larger reserve-string-table-then-backpatch-twice sequence.
package archive

import (
	"time"

	"github.com/jakson-go/carbon"
	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/pack"

	"go.uber.org/zap"
)

// WriterOptions configures Write, defaulted the way jpl-au-folio.Config
// defaults ReadBuffer/SyncWrites/etc. in Open (SPEC_FULL §1
// Configuration): the zero value is a usable default.
type WriterOptions struct {
	// Packer selects the string-compression strategy; nil defaults to
	// the identity packer.
	Packer pack.Packer
	// Pool is not read by Write: serialization always runs on the
	// calling goroutine.
	Pool *Pool
	// CompactThreshold enables the fixed-map object header variant
	// (SPEC_FULL §4 "Fixed-map object variant") when it is 1 or more;
	// only objects with exactly one property-type group get the
	// compact header, whatever the value. 0 disables it.
	CompactThreshold int
	// Logger receives structured events for the write (SPEC_FULL §1
	// Logging); nil installs zap.NewNop().
	Logger *zap.Logger
	// IsSorted sets record_header's is_sorted bit.
	IsSorted bool
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.Packer == nil {
		o.Packer = &pack.None{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Write serializes rec into a fresh archive byte block.
func Write(rec *carbon.Record, opts WriterOptions) ([]byte, error) {
	opts = opts.withDefaults()
	start := time.Now()

	root, names, err := materializeRecord(rec)
	if err != nil {
		return nil, err
	}
	names[""] = struct{}{} // the synthetic root-wrapper key
	names["v"] = struct{}{} // the synthetic per-element wrap key (classify.go)

	d, byName := buildNameDictionary(names)
	defer d.Drop()

	block := cursor.Create(1024)
	c := cursor.Open(block, cursor.ReadWrite)

	if err := reserveArchiveHeader(c); err != nil {
		return nil, err
	}

	stringOffsets, err := writeStringTable(c, d, byName, opts.Packer)
	if err != nil {
		return nil, err
	}

	recordStart := c.Tell()
	w := &writerState{c: c, names: byName, valuePacker: &pack.None{}, opts: opts}
	rootOff, err := w.writeObject(root)
	if err != nil {
		return nil, err
	}
	if err := writeRecordHeader(c, opts.IsSorted, c.Tell()-recordStart); err != nil {
		return nil, err
	}

	stringIndexOff, err := writeStringIndex(c, stringOffsets)
	if err != nil {
		return nil, err
	}

	if err := patchArchiveHeader(c, rootOff, stringIndexOff); err != nil {
		return nil, err
	}

	opts.Logger.Info("archive written",
		zap.Int("bytes", block.Size()),
		zap.Int("objects", int(w.nextOID)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return block.RawData(), nil
}
