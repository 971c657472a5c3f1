package carbon

import (
	"encoding/hex"
	"fmt"
	"io"
)

// hexdumpWidth is the number of bytes shown per row.
const hexdumpWidth = 16

// Hexdump writes a canonical hex+ASCII dump of block to w, one row of
// hexdumpWidth bytes at a time (spec §4 "Hexdump diagnostic"). It is
// meant to annotate Corrupted errors with the bytes that triggered
// them rather than leaving a reader to guess at an offset.
func Hexdump(w io.Writer, block []byte) error {
	for off := 0; off < len(block); off += hexdumpWidth {
		end := off + hexdumpWidth
		if end > len(block) {
			end = len(block)
		}
		row := block[off:end]

		var hexCols [hexdumpWidth * 3]byte
		for i := range hexCols {
			hexCols[i] = ' '
		}
		for i, b := range row {
			copy(hexCols[i*3:i*3+2], hex.EncodeToString([]byte{b}))
		}

		if _, err := fmt.Fprintf(w, "%08x  %s  %s\n", off, hexCols[:], hexdumpASCII(row)); err != nil {
			return err
		}
	}
	return nil
}

// hexdumpASCII renders row's printable bytes verbatim and everything
// else as '.'.
func hexdumpASCII(row []byte) string {
	out := make([]byte, len(row))
	for i, b := range row {
		if b >= 0x20 && b < 0x7f {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
