package pack

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// Huffman is a canonical-Huffman packer over the byte alphabet. The
// shared table is the set of (symbol, code length) pairs; codes
// themselves are rebuilt canonically on both sides, so only lengths
// need to cross the wire (spec §4.C "emits the table as a sequence of
// symbol-length-code entries").
//
// klauspost/compress/huff0 (already a module dependency via zstd)
// implements Huffman coding internally, but its wire format couples
// the table to zstd block framing and offers no way to emit our
// string_tab_hdr's exact symbol/length layout — see DESIGN.md. A
// from-scratch canonical build via container/heap (the same stdlib
// priority-queue idiom the rest of the pack reaches for when
// scheduling weighted work) gives full control over that framing.
type Huffman struct {
	codes map[byte]huffCode
	lens  map[byte]uint8
	root  *huffNode // decode trie
}

type huffCode struct {
	bits   uint32
	length uint8
}

type huffNode struct {
	symbol      byte
	isLeaf      bool
	freq        uint64
	left, right *huffNode
	seq         int // tie-break for deterministic ordering
}

// huffHeap is a min-heap on frequency, tie-broken by insertion order
// so that repeated builds over the same input are deterministic.
type huffHeap []*huffNode

func (h huffHeap) Len() int { return len(h) }
func (h huffHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}
func (h huffHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *huffHeap) Push(x interface{}) { *h = append(*h, x.(*huffNode)) }
func (h *huffHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (*Huffman) Flag() byte { return FlagHuffman }

// WriteExtra builds the canonical code table from byte frequencies
// across strings and serializes it as a varuint count followed by
// (symbol, length) byte pairs.
func (h *Huffman) WriteExtra(w *cursor.Cursor, strings [][]byte) error {
	var freq [256]uint64
	for _, s := range strings {
		for _, b := range s {
			freq[b]++
		}
	}

	lens := buildCanonicalLengths(freq)
	h.setFromLengths(lens)

	if err := w.WriteVaruint(uint64(len(lens))); err != nil {
		return err
	}
	// Deterministic order for the wire: ascending symbol value.
	symbols := make([]byte, 0, len(lens))
	for sym := range lens {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	for _, sym := range symbols {
		if err := w.Write([]byte{sym, lens[sym]}); err != nil {
			return err
		}
	}
	return nil
}

// ReadExtra reconstructs the canonical codes and decode trie from the
// (symbol, length) pairs WriteExtra produced. nbytes is not used: the
// framing is the leading varuint count of pairs.
func (h *Huffman) ReadExtra(r *cursor.Cursor, nbytes int) error {
	n, _, err := r.ReadVaruint()
	if err != nil {
		return err
	}
	lens := make(map[byte]uint8, n)
	for i := uint64(0); i < n; i++ {
		pair, err := r.Read(2)
		if err != nil {
			return err
		}
		lens[pair[0]] = pair[1]
	}
	h.setFromLengths(lens)
	return nil
}

func (h *Huffman) setFromLengths(lens map[byte]uint8) {
	h.lens = lens
	h.codes = canonicalCodes(lens)
	h.root = buildDecodeTrie(h.codes)
}

// EncodeString writes s's Huffman codes concatenated in a
// self-contained bit-mode span (byte-aligned at both ends, matching
// the entry-based framing of string_entry).
func (h *Huffman) EncodeString(w *cursor.Cursor, s []byte) error {
	if err := w.BeginBitMode(); err != nil {
		return err
	}
	for _, b := range s {
		code, ok := h.codes[b]
		if !ok {
			return fmt.Errorf("%w: huffman: symbol 0x%02x not in table", kind.ErrCorrupted, b)
		}
		for i := int(code.length) - 1; i >= 0; i-- {
			bit := code.bits&(1<<uint(i)) != 0
			if err := w.WriteBit(bit); err != nil {
				return err
			}
		}
	}
	_, err := w.EndBitMode()
	return err
}

// DecodeString descends the decode trie bit by bit until strlen
// leaves have been reached.
func (h *Huffman) DecodeString(r *cursor.Cursor, strlen int) ([]byte, error) {
	if err := r.BeginBitMode(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, strlen)
	for len(out) < strlen {
		node := h.root
		if node == nil {
			return nil, fmt.Errorf("%w: huffman: empty decode table", kind.ErrCorrupted)
		}
		for !node.isLeaf {
			bit, err := r.ReadBit()
			if err != nil {
				return nil, err
			}
			if bit {
				node = node.right
			} else {
				node = node.left
			}
			if node == nil {
				return nil, fmt.Errorf("%w: huffman: invalid code path", kind.ErrCorrupted)
			}
		}
		out = append(out, node.symbol)
	}
	if _, err := r.EndBitMode(); err != nil {
		return nil, err
	}
	return out, nil
}

// buildCanonicalLengths runs the standard Huffman tree build over a
// frequency table and returns each used symbol's code length.
func buildCanonicalLengths(freq [256]uint64) map[byte]uint8 {
	lens := make(map[byte]uint8)

	var used []byte
	for sym, f := range freq {
		if f > 0 {
			used = append(used, byte(sym))
		}
	}
	if len(used) == 0 {
		return lens
	}
	if len(used) == 1 {
		lens[used[0]] = 1
		return lens
	}

	h := make(huffHeap, 0, len(used))
	seq := 0
	for _, sym := range used {
		h = append(h, &huffNode{symbol: sym, isLeaf: true, freq: freq[sym], seq: seq})
		seq++
	}
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(*huffNode)
		b := heap.Pop(&h).(*huffNode)
		parent := &huffNode{freq: a.freq + b.freq, left: a, right: b, seq: seq}
		seq++
		heap.Push(&h, parent)
	}
	root := h[0]

	var walk func(n *huffNode, depth uint8)
	walk = func(n *huffNode, depth uint8) {
		if n.isLeaf {
			if depth == 0 {
				depth = 1
			}
			lens[n.symbol] = depth
			return
		}
		walk(n.left, depth+1)
		walk(n.right, depth+1)
	}
	walk(root, 0)
	return lens
}

// canonicalCodes assigns canonical codes given each symbol's length,
// ordering by (length, symbol) ascending per the standard algorithm.
func canonicalCodes(lens map[byte]uint8) map[byte]huffCode {
	type entry struct {
		sym byte
		len uint8
	}
	entries := make([]entry, 0, len(lens))
	for sym, l := range lens {
		entries = append(entries, entry{sym, l})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].len != entries[j].len {
			return entries[i].len < entries[j].len
		}
		return entries[i].sym < entries[j].sym
	})

	codes := make(map[byte]huffCode, len(entries))
	var code uint32
	var prevLen uint8
	for i, e := range entries {
		if i > 0 {
			code <<= (e.len - prevLen)
		}
		codes[e.sym] = huffCode{bits: code, length: e.len}
		code++
		prevLen = e.len
	}
	return codes
}

func buildDecodeTrie(codes map[byte]huffCode) *huffNode {
	if len(codes) == 0 {
		return nil
	}
	root := &huffNode{}
	for sym, c := range codes {
		node := root
		for i := int(c.length) - 1; i >= 0; i-- {
			bit := c.bits&(1<<uint(i)) != 0
			if bit {
				if node.right == nil {
					node.right = &huffNode{}
				}
				node = node.right
			} else {
				if node.left == nil {
					node.left = &huffNode{}
				}
				node = node.left
			}
		}
		node.isLeaf = true
		node.symbol = sym
	}
	return root
}
