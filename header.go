// Record header: key kind, optional key value, and commit hash.
//
// Grounded on jpl-au-folio's header.go, which parses a fixed leading
// structure off a file before any record body is touched; here the
// header is variable-length (the key kind dictates which fields
// follow) but the same "parse framing before payload" shape applies.
package carbon

import (
	"encoding/binary"
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
)

// commitHashSize is the fixed width of the header's commit-hash field.
// Fixed width (rather than varuint) lets CreateEnd/ReviseEnd patch the
// hash in place without touching any byte that follows it.
const commitHashSize = 8

// Header is the record header (spec §3 "Record", §4.D.1): a key kind
// and, when present, its value, followed by the commit hash for keyed
// records (nokey records carry no commit hash).
type Header struct {
	Kind       KeyKind
	KeyUintVal uint64
	KeyIntVal  int64
	KeyStrVal  string
	CommitHash uint64
}

// writeHeader serializes h at the cursor's current position (expected
// to be offset 0 of a fresh block) and returns the offset of the
// commit-hash field, or -1 for a nokey header (which has none).
func writeHeader(c *cursor.Cursor, h *Header) (int, error) {
	if err := c.Write([]byte{byte(h.Kind)}); err != nil {
		return -1, err
	}
	switch h.Kind {
	case KeyNone:
		return -1, nil
	case KeyAuto, KeyUint:
		if err := c.WriteVaruint(h.KeyUintVal); err != nil {
			return -1, err
		}
	case KeyInt:
		if err := c.WriteVaruint(zigzagEncode(h.KeyIntVal)); err != nil {
			return -1, err
		}
	case KeyString:
		if err := c.WriteVaruint(uint64(len(h.KeyStrVal))); err != nil {
			return -1, err
		}
		if err := c.Write([]byte(h.KeyStrVal)); err != nil {
			return -1, err
		}
	default:
		return -1, fmt.Errorf("%w: header key kind %v", kind.ErrIllegalArg, h.Kind)
	}
	commitOff := c.Tell()
	var buf [commitHashSize]byte
	binary.LittleEndian.PutUint64(buf[:], h.CommitHash)
	if err := c.Write(buf[:]); err != nil {
		return -1, err
	}
	return commitOff, nil
}

// readHeader parses a Header from the cursor's current position and
// advances past it. The returned offset is the commit-hash field's
// position, or -1 for a nokey header.
func readHeader(c *cursor.Cursor) (*Header, int, error) {
	b, err := c.Read(1)
	if err != nil {
		return nil, -1, err
	}
	kk, err := marker.KeyKindFromByte(b[0])
	if err != nil {
		return nil, -1, err
	}
	h := &Header{Kind: kk}
	switch kk {
	case KeyNone:
		return h, -1, nil
	case KeyAuto, KeyUint:
		v, _, err := c.ReadVaruint()
		if err != nil {
			return nil, -1, err
		}
		h.KeyUintVal = v
	case KeyInt:
		v, _, err := c.ReadVaruint()
		if err != nil {
			return nil, -1, err
		}
		h.KeyIntVal = zigzagDecode(v)
	case KeyString:
		l, _, err := c.ReadVaruint()
		if err != nil {
			return nil, -1, err
		}
		s, err := c.Read(int(l))
		if err != nil {
			return nil, -1, err
		}
		h.KeyStrVal = string(s)
	default:
		return nil, -1, fmt.Errorf("%w: header key kind 0x%02x", kind.ErrMarkerMapping, b[0])
	}
	commitOff := c.Tell()
	hashBytes, err := c.Read(commitHashSize)
	if err != nil {
		return nil, -1, err
	}
	h.CommitHash = binary.LittleEndian.Uint64(hashBytes)
	return h, commitOff, nil
}

// patchCommitHash overwrites the 8-byte commit-hash field at off
// without disturbing any other byte (spec §4.D.6 "stored in the
// header").
func patchCommitHash(c *cursor.Cursor, off int, hash uint64) error {
	if off < 0 {
		return fmt.Errorf("%w: record has no commit hash field (nokey)", kind.ErrIllegalOp)
	}
	saved := c.Tell()
	if err := c.Seek(off); err != nil {
		return err
	}
	var buf [commitHashSize]byte
	binary.LittleEndian.PutUint64(buf[:], hash)
	if err := c.Write(buf[:]); err != nil {
		return err
	}
	return c.Seek(saved)
}

// zigzagEncode/zigzagDecode map signed integers onto the varuint wire
// format: small-magnitude values, positive or negative, stay short on
// the wire instead of sign-extending to a full 64 bits.
func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }
