// Archive and record headers (spec §3 "Archive header", §6
// "archive_header"/"record_header").
package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// magic is the archive format's fixed identification string (spec §6
// `magic[9] "carbon\0\0\0"`).
var magic = [9]byte{'c', 'a', 'r', 'b', 'o', 'n', 0, 0, 0}

// FormatVersion is the only version this package writes and accepts.
const FormatVersion = 1

const archiveHeaderSize = 9 + 1 + 8 + 8

// archiveHeader is the decoded form of the fixed leading structure
// every archive starts with.
type archiveHeader struct {
	version        uint8
	rootObjectOff  int
	stringIndexOff int
}

// reserveArchiveHeader writes archiveHeaderSize zero bytes at the
// cursor's current position (expected to be offset 0) so the real
// values can be backpatched once known (spec §4.E step 1/6).
func reserveArchiveHeader(c *cursor.Cursor) error {
	return c.Write(make([]byte, archiveHeaderSize))
}

func patchArchiveHeader(c *cursor.Cursor, rootObjectOff, stringIndexOff int) error {
	saved := c.Tell()
	if err := c.Seek(0); err != nil {
		return err
	}
	if err := c.Write(magic[:]); err != nil {
		return err
	}
	if err := c.Write([]byte{FormatVersion}); err != nil {
		return err
	}
	if err := c.Write(u64le(uint64(rootObjectOff))); err != nil {
		return err
	}
	if err := c.Write(u64le(uint64(stringIndexOff))); err != nil {
		return err
	}
	return c.Seek(saved)
}

func readArchiveHeader(c *cursor.Cursor) (*archiveHeader, error) {
	if err := c.Seek(0); err != nil {
		return nil, err
	}
	m, err := c.Read(9)
	if err != nil {
		return nil, err
	}
	for i := range magic {
		if m[i] != magic[i] {
			return nil, fmt.Errorf("%w: archive magic mismatch", kind.ErrCorrupted)
		}
	}
	vb, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	if vb[0] != FormatVersion {
		return nil, fmt.Errorf("%w: archive version %d", kind.ErrUnsupportedVersion, vb[0])
	}
	rootB, err := c.Read(8)
	if err != nil {
		return nil, err
	}
	idxB, err := c.Read(8)
	if err != nil {
		return nil, err
	}
	return &archiveHeader{
		version:        vb[0],
		rootObjectOff:  int(binary.LittleEndian.Uint64(rootB)),
		stringIndexOff: int(binary.LittleEndian.Uint64(idxB)),
	}, nil
}

// writeRecordHeader trails the serialized object tree with a
// record_header trailer describing it (spec §4.E step 4, §6
// "record_header := marker 'r', flags u8 {bit0=is_sorted}, size u64").
func writeRecordHeader(c *cursor.Cursor, isSorted bool, size int) error {
	var flags uint8
	if isSorted {
		flags |= 1
	}
	if err := c.Write([]byte{marker.RecordHeaderMarker}); err != nil {
		return err
	}
	if err := c.Write([]byte{flags}); err != nil {
		return err
	}
	return c.Write(u64le(uint64(size)))
}

type recordHeader struct {
	isSorted bool
	size     int
}

func readRecordHeader(c *cursor.Cursor, off int) (*recordHeader, error) {
	if err := c.Seek(off); err != nil {
		return nil, err
	}
	b, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	if b[0] != marker.RecordHeaderMarker {
		return nil, fmt.Errorf("%w: expected record header marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	flagsB, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	sizeB, err := c.Read(8)
	if err != nil {
		return nil, err
	}
	return &recordHeader{
		isSorted: flagsB[0]&1 != 0,
		size:     int(binary.LittleEndian.Uint64(sizeB)),
	}, nil
}
