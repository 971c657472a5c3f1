// Top-level archive reader (spec §4.E "Reader"): opens a packed block,
// validates its header, and exposes random-access decoding of the root
// object without re-walking the whole byte range up front.
//
// Grounded on jpl-au-folio/get.go's open-validate-then-seek pattern.
package archive

import (
	"sync"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/pack"
)

// Archive is an opened, read-only view over one packed block.
type Archive struct {
	block  *cursor.Block
	header *archiveHeader
	r      *readerState
}

// Open validates block's header and string index, but defers decoding
// the object tree until Root is called. pool, if non-nil, parallelizes
// decoding of independent fixed-object and table-group members across
// its workers (SPEC_FULL §4 "Async thread pool"); pass nil to decode
// single-threaded.
func Open(block []byte, pool *Pool) (*Archive, error) {
	b := cursor.FromBytes(block)
	c := cursor.Open(b, cursor.ReadOnly)

	hdr, err := readArchiveHeader(c)
	if err != nil {
		return nil, annotateCorrupted(block, err)
	}

	sIdx, err := readStringIndex(c, hdr.stringIndexOff)
	if err != nil {
		return nil, annotateCorrupted(block, err)
	}

	sHdr, err := readStringTableHeader(c, archiveHeaderSize)
	if err != nil {
		return nil, annotateCorrupted(block, err)
	}

	r := &readerState{
		c:           c,
		block:       b,
		valuePacker: &pack.None{},
		names:       make(map[uint64]string, len(sIdx)),
		namesMu:     &sync.Mutex{},
		sIdx:        sIdx,
		sHdr:        sHdr,
		pool:        pool,
	}
	return &Archive{block: b, header: hdr, r: r}, nil
}

// Version reports the archive format version the block was written with.
func (a *Archive) Version() uint8 { return a.header.version }

// Packer reports the string-compression strategy the shared name table
// was written with, so callers (e.g. diagnostics) can identify it.
func (a *Archive) Packer() pack.Packer { return a.r.sHdr.packer }

// Root decodes the synthetic root-wrapper object and returns the
// single outer array stored under its "" property (the inverse of
// writer.go's root-wrapping step).
func (a *Archive) Root() (Value, error) {
	root, err := a.r.decodeObject(a.header.rootObjectOff)
	if err != nil {
		return Value{}, annotateCorrupted(a.block.RawData(), err)
	}
	for _, p := range root.Props {
		if p.Key == "" {
			return p.Value, nil
		}
	}
	return Value{Kind: kindArray}, nil
}

// RootObject decodes the root-wrapper object verbatim, without
// unwrapping the synthetic "" property. Useful for diagnostics and for
// Visit, which walks object headers directly.
func (a *Archive) RootObject() (Value, error) {
	v, err := a.r.decodeObject(a.header.rootObjectOff)
	if err != nil {
		return Value{}, annotateCorrupted(a.block.RawData(), err)
	}
	return v, nil
}

// DecodeAt decodes the object header at the given byte offset of the
// archive's block. off must be the start of an object header; any
// other offset fails with a corruption error.
func (a *Archive) DecodeAt(off int) (Value, error) {
	v, err := a.r.decodeObject(off)
	if err != nil {
		return Value{}, annotateCorrupted(a.block.RawData(), err)
	}
	return v, nil
}
