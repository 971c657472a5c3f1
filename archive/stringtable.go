// The archive's shared string table (spec §4.E step 2, §6
// "string_tab_hdr"/"string_entry"): a dictionary-backed, packer-
// compressed table of the distinct property-name strings referenced
// anywhere in the document. Property KEYS are looked up here by id;
// property VALUES of type string are packed inline in their own
// property group instead (spec §3 "Variable-size group"), since unlike
// key names they rarely repeat across objects.
//
// Grounded on jpl-au-folio/repair.go's rebuild-from-scratch pass (here
// rebuilding the name->id table instead of a bloom filter) and on the
// dict/pack packages built for component B/C.
package archive

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/dict"
	"github.com/jakson-go/carbon/internal/marker"
	"github.com/jakson-go/carbon/kind"
	"github.com/jakson-go/carbon/pack"
)

// buildNameDictionary inserts every collected property name into a
// fresh dictionary and returns the name->id map used while writing.
func buildNameDictionary(names map[string]struct{}) (*dict.Dictionary, map[string]uint64) {
	strs := make([]string, 0, len(names))
	for n := range names {
		strs = append(strs, n)
	}
	sort.Strings(strs) // deterministic id assignment order across runs
	d := dict.Create(len(strs)+1, 16, 8, 1)
	ids := d.Insert(strs)
	byName := make(map[string]uint64, len(strs))
	for i, n := range strs {
		byName[n] = ids[i]
	}
	return d, byName
}

// writeStringTable serializes the string_tab_hdr plus one string_entry
// per distinct name, and returns the id->offset map used to build the
// string_id_to_offset index (spec §4.E step 5).
func writeStringTable(c *cursor.Cursor, d *dict.Dictionary, byName map[string]uint64, packer pack.Packer) (map[uint64]int, error) {
	ids := make([]uint64, 0, len(byName))
	for _, id := range byName {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	strs, err := d.Extract(ids)
	if err != nil {
		return nil, err
	}

	headerOff := c.Tell()
	if err := c.Write([]byte{marker.StringTableHeaderMarker}); err != nil {
		return nil, err
	}
	if err := c.Write(u32le(uint32(len(ids)))); err != nil {
		return nil, err
	}
	if err := c.Write([]byte{packer.Flag()}); err != nil {
		return nil, err
	}
	firstEntryOff := c.Tell()
	if err := c.Write(u64le(0)); err != nil { // patched below
		return nil, err
	}
	extraSizeOff := c.Tell()
	if err := c.Write(u64le(0)); err != nil { // patched below
		return nil, err
	}

	extraStart := c.Tell()
	if err := packer.WriteExtra(c, strs); err != nil {
		return nil, err
	}
	extraSize := c.Tell() - extraStart

	firstEntry := c.Tell()
	offsets := make(map[uint64]int, len(ids))
	for i, id := range ids {
		entryOff := c.Tell()
		offsets[id] = entryOff
		if err := c.Write([]byte{marker.StringEntryMarker}); err != nil {
			return nil, err
		}
		nextOffField := c.Tell()
		if err := c.Write(u64le(0)); err != nil { // patched after we know it
			return nil, err
		}
		if err := c.Write(u64le(id)); err != nil {
			return nil, err
		}
		if err := c.Write(u32le(uint32(len(strs[i])))); err != nil {
			return nil, err
		}
		if err := packer.EncodeString(c, strs[i]); err != nil {
			return nil, err
		}
		nextOff := c.Tell()
		if err := patchU64(c, nextOffField, uint64(nextOff)); err != nil {
			return nil, err
		}
	}

	if err := patchU64(c, firstEntryOff, uint64(firstEntry)); err != nil {
		return nil, err
	}
	if err := patchU64(c, extraSizeOff, uint64(extraSize)); err != nil {
		return nil, err
	}
	_ = headerOff
	return offsets, nil
}

// writeStringIndex serializes the string_id_to_offset index (spec
// §4.E step 5) and returns its own offset.
func writeStringIndex(c *cursor.Cursor, offsets map[uint64]int) (int, error) {
	ids := make([]uint64, 0, len(offsets))
	for id := range offsets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	indexOff := c.Tell()
	if err := c.Write([]byte{marker.StringIndexMarker}); err != nil {
		return 0, err
	}
	if err := c.Write(u32le(uint32(len(ids)))); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := c.Write(u64le(id)); err != nil {
			return 0, err
		}
		if err := c.Write(u64le(uint64(offsets[id]))); err != nil {
			return 0, err
		}
	}
	return indexOff, nil
}

// readStringIndex parses the string_id_to_offset index at off.
func readStringIndex(c *cursor.Cursor, off int) (map[uint64]int, error) {
	if err := c.Seek(off); err != nil {
		return nil, err
	}
	b, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	if b[0] != marker.StringIndexMarker {
		return nil, fmt.Errorf("%w: expected string index marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	nb, err := c.Read(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(nb)
	out := make(map[uint64]int, n)
	for i := uint32(0); i < n; i++ {
		idb, err := c.Read(8)
		if err != nil {
			return nil, err
		}
		offb, err := c.Read(8)
		if err != nil {
			return nil, err
		}
		out[binary.LittleEndian.Uint64(idb)] = int(binary.LittleEndian.Uint64(offb))
	}
	return out, nil
}

// stringTableHeader is the decoded form of string_tab_hdr.
type stringTableHeader struct {
	numEntries int
	packer     pack.Packer
	firstEntry int
}

func readStringTableHeader(c *cursor.Cursor, off int) (*stringTableHeader, error) {
	if err := c.Seek(off); err != nil {
		return nil, err
	}
	b, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	if b[0] != marker.StringTableHeaderMarker {
		return nil, fmt.Errorf("%w: expected string table header marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	nb, err := c.Read(4)
	if err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(nb))
	flagb, err := c.Read(1)
	if err != nil {
		return nil, err
	}
	p, err := pack.New(flagb[0])
	if err != nil {
		return nil, err
	}
	firstEntryB, err := c.Read(8)
	if err != nil {
		return nil, err
	}
	firstEntry := int(binary.LittleEndian.Uint64(firstEntryB))
	extraSizeB, err := c.Read(8)
	if err != nil {
		return nil, err
	}
	extraSize := int(binary.LittleEndian.Uint64(extraSizeB))
	if err := p.ReadExtra(c, extraSize); err != nil {
		return nil, err
	}
	return &stringTableHeader{numEntries: n, packer: p, firstEntry: firstEntry}, nil
}

// readStringEntry decodes the string_entry at off.
func readStringEntry(c *cursor.Cursor, off int, p pack.Packer) (id uint64, s []byte, nextOff int, err error) {
	if err := c.Seek(off); err != nil {
		return 0, nil, 0, err
	}
	b, err := c.Read(1)
	if err != nil {
		return 0, nil, 0, err
	}
	if b[0] != marker.StringEntryMarker {
		return 0, nil, 0, fmt.Errorf("%w: expected string entry marker, got 0x%02x", kind.ErrCorrupted, b[0])
	}
	nextOffB, err := c.Read(8)
	if err != nil {
		return 0, nil, 0, err
	}
	idB, err := c.Read(8)
	if err != nil {
		return 0, nil, 0, err
	}
	lenB, err := c.Read(4)
	if err != nil {
		return 0, nil, 0, err
	}
	strlen := int(binary.LittleEndian.Uint32(lenB))
	s, err = p.DecodeString(c, strlen)
	if err != nil {
		return 0, nil, 0, err
	}
	return binary.LittleEndian.Uint64(idB), s, int(binary.LittleEndian.Uint64(nextOffB)), nil
}

func patchU64(c *cursor.Cursor, off int, v uint64) error {
	saved := c.Tell()
	if err := c.Seek(off); err != nil {
		return err
	}
	if err := c.Write(u64le(v)); err != nil {
		return err
	}
	return c.Seek(saved)
}
