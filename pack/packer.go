// Package pack implements the packer framework (spec §4.C): pluggable
// strategies for encoding/decoding individual strings and for
// serializing the shared tables a strategy needs (a Huffman code
// table, a prefix trie, ...).
package pack

import (
	"fmt"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// Flag bits distinguish packer variants in the string-table header
// (spec §4.C "Single-byte flag bits distinguish variants").
const (
	FlagNone    byte = 1 << 0
	FlagHuffman byte = 1 << 1
	FlagPrefix  byte = 1 << 2
	FlagZstd    byte = 1 << 3 // SPEC_FULL §2: bulk packer for the string table
)

// Packer is the capability set every variant implements (spec §4.C).
type Packer interface {
	Flag() byte

	// WriteExtra serializes whatever shared table the packer built
	// from strings (a Huffman code table, a prefix trie, ...).
	WriteExtra(w *cursor.Cursor, strings [][]byte) error

	// ReadExtra deserializes the shared table written by WriteExtra.
	ReadExtra(r *cursor.Cursor, nbytes int) error

	// EncodeString writes the packed form of s.
	EncodeString(w *cursor.Cursor, s []byte) error

	// DecodeString reads strlen decoded bytes back from the packed
	// form at the cursor's current position.
	DecodeString(r *cursor.Cursor, strlen int) ([]byte, error)
}

// New constructs a fresh, empty packer for the given flag bit.
func New(flag byte) (Packer, error) {
	switch flag {
	case FlagNone:
		return &None{}, nil
	case FlagHuffman:
		return &Huffman{}, nil
	case FlagPrefix:
		return NewPrefix(DefaultMaxChildren, DefaultPruneThreshold), nil
	case FlagZstd:
		return NewZstd(), nil
	default:
		return nil, fmt.Errorf("%w: packer flag 0x%02x", kind.ErrMarkerMapping, flag)
	}
}
