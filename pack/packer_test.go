package pack

import (
	"bytes"
	"testing"

	"github.com/jakson-go/carbon/cursor"
)

var roundTripStrings = [][]byte{
	[]byte("alpha"),
	[]byte("alphabet"),
	[]byte("beta"),
	[]byte(""),
	[]byte("gamma"),
	[]byte("alpha"), // repeated on purpose
}

// roundTrip exercises the full write/read cycle every Packer variant
// must support: build the shared table over the whole batch, encode
// each string, then reopen a read-only cursor over the same bytes and
// decode them back in order (property §8.5).
func roundTrip(t *testing.T, flag byte) {
	t.Helper()

	writer, err := New(flag)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	block := cursor.Create(64)
	w := cursor.Open(block, cursor.ReadWrite)

	if err := writer.WriteExtra(w, roundTripStrings); err != nil {
		t.Fatalf("WriteExtra: %v", err)
	}
	extraEnd := w.Tell()

	var offsets []int
	for _, s := range roundTripStrings {
		offsets = append(offsets, w.Tell())
		if err := writer.EncodeString(w, s); err != nil {
			t.Fatalf("EncodeString(%q): %v", s, err)
		}
	}

	reader, err := New(flag)
	if err != nil {
		t.Fatalf("New (reader): %v", err)
	}
	r := cursor.Open(block, cursor.ReadOnly)
	if err := reader.ReadExtra(r, extraEnd); err != nil {
		t.Fatalf("ReadExtra: %v", err)
	}
	if err := r.Seek(offsets[0]); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	for i, want := range roundTripStrings {
		got, err := reader.DecodeString(r, len(want))
		if err != nil {
			t.Fatalf("DecodeString(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("DecodeString(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestNoneRoundTrip(t *testing.T)    { roundTrip(t, FlagNone) }
func TestHuffmanRoundTrip(t *testing.T) { roundTrip(t, FlagHuffman) }
func TestPrefixRoundTrip(t *testing.T)  { roundTrip(t, FlagPrefix) }
func TestZstdRoundTrip(t *testing.T)    { roundTrip(t, FlagZstd) }

func TestUnknownFlagRejected(t *testing.T) {
	if _, err := New(0xFF); err == nil {
		t.Fatal("New(0xFF): want error for unknown flag")
	}
}
