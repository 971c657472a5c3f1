package pack

import (
	"fmt"
	"sort"

	"github.com/jakson-go/carbon/cursor"
	"github.com/jakson-go/carbon/kind"
)

// DefaultMaxChildren bounds how many children a prefix-tree node may
// have before a new insert forces a sibling branch instead of growing
// the node further (spec §4.C "configurable max children per
// insert").
const DefaultMaxChildren = 64

// DefaultPruneThreshold discards a candidate prefix entry during
// flatten if fewer than this many input strings actually use it,
// keeping the table from growing one entry per string (spec §4.C
// "prune support threshold").
const DefaultPruneThreshold = 2

// Prefix packs strings as a 16-bit index into a shared table of
// common prefixes plus the literal suffix bytes (spec §4.C).
type Prefix struct {
	maxChildren int
	pruneMin    int

	entries []prefixEntry // flattened table, index == wire prefix id
	byText  map[string]uint16
}

type prefixEntry struct {
	text string
}

func NewPrefix(maxChildren, pruneThreshold int) *Prefix {
	return &Prefix{maxChildren: maxChildren, pruneMin: pruneThreshold}
}

func (*Prefix) Flag() byte { return FlagPrefix }

// trieNode is the bounded-branching prefix tree built over the
// candidate strings before flattening to the wire table.
type trieNode struct {
	children map[byte]*trieNode
	support  int // number of input strings passing through this node
}

func newTrieNode() *trieNode { return &trieNode{children: map[byte]*trieNode{}} }

func (p *Prefix) buildTrie(strings [][]byte) *trieNode {
	root := newTrieNode()
	for _, s := range strings {
		node := root
		node.support++
		for _, b := range s {
			if len(node.children) >= p.maxChildren {
				if _, ok := node.children[b]; !ok {
					break // bounded branching: stop extending this path
				}
			}
			child, ok := node.children[b]
			if !ok {
				child = newTrieNode()
				node.children[b] = child
			}
			node = child
			node.support++
		}
	}
	return root
}

// flatten walks the trie depth-first, emitting one table entry per
// node whose support meets pruneMin, building entries in the same
// text order every call so ids are deterministic across WriteExtra
// and a from-scratch rebuild would reproduce the same table (not
// required for ReadExtra, which reads ids off the wire directly, but
// keeps WriteExtra's output reproducible for tests).
func (p *Prefix) flatten(root *trieNode) {
	p.entries = nil
	p.byText = map[string]uint16{}

	var walk func(n *trieNode, prefix []byte)
	walk = func(n *trieNode, prefix []byte) {
		if len(prefix) > 0 && n.support >= p.pruneMin {
			text := string(prefix)
			if _, exists := p.byText[text]; !exists {
				p.byText[text] = uint16(len(p.entries))
				p.entries = append(p.entries, prefixEntry{text: text})
			}
		}
		keys := make([]byte, 0, len(n.children))
		for b := range n.children {
			keys = append(keys, b)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, b := range keys {
			walk(n.children[b], append(append([]byte{}, prefix...), b))
		}
	}
	walk(root, nil)
}

// bestPrefix returns the longest registered prefix of s and the
// remaining suffix.
func (p *Prefix) bestPrefix(s []byte) (id uint16, hasPrefix bool, suffix []byte) {
	best := -1
	bestLen := 0
	for i := len(s); i > 0; i-- {
		if id, ok := p.byText[string(s[:i])]; ok {
			best = int(id)
			bestLen = i
			break
		}
	}
	if best == -1 {
		return 0, false, s
	}
	return uint16(best), true, s[bestLen:]
}

// WriteExtra builds the trie over strings, flattens it, and
// serializes the table as a varuint entry count followed by each
// entry's length-prefixed text.
func (p *Prefix) WriteExtra(w *cursor.Cursor, strings [][]byte) error {
	root := p.buildTrie(strings)
	p.flatten(root)

	if err := w.WriteVaruint(uint64(len(p.entries))); err != nil {
		return err
	}
	for _, e := range p.entries {
		if err := w.WriteVaruint(uint64(len(e.text))); err != nil {
			return err
		}
		if err := w.Write([]byte(e.text)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prefix) ReadExtra(r *cursor.Cursor, nbytes int) error {
	n, _, err := r.ReadVaruint()
	if err != nil {
		return err
	}
	p.entries = make([]prefixEntry, 0, n)
	p.byText = map[string]uint16{}
	for i := uint64(0); i < n; i++ {
		l, _, err := r.ReadVaruint()
		if err != nil {
			return err
		}
		text, err := r.Read(int(l))
		if err != nil {
			return err
		}
		s := string(text)
		p.byText[s] = uint16(len(p.entries))
		p.entries = append(p.entries, prefixEntry{text: s})
	}
	return nil
}

// EncodeString writes a 16-bit prefix id (0xFFFF meaning "no prefix")
// followed by the literal suffix bytes (spec §4.C).
func (p *Prefix) EncodeString(w *cursor.Cursor, s []byte) error {
	id, has, suffix := p.bestPrefix(s)
	if !has {
		id = 0xFFFF
		suffix = s
	}
	var idBuf [2]byte
	idBuf[0] = byte(id)
	idBuf[1] = byte(id >> 8)
	if err := w.Write(idBuf[:]); err != nil {
		return err
	}
	return w.Write(suffix)
}

// DecodeString resolves the prefix id against the table and appends
// the literal suffix, stopping once strlen bytes have been produced.
func (p *Prefix) DecodeString(r *cursor.Cursor, strlen int) ([]byte, error) {
	idBuf, err := r.Read(2)
	if err != nil {
		return nil, err
	}
	id := uint16(idBuf[0]) | uint16(idBuf[1])<<8

	var prefix string
	if id != 0xFFFF {
		if int(id) >= len(p.entries) {
			return nil, fmt.Errorf("%w: prefix: id %d out of range", kind.ErrCorrupted, id)
		}
		prefix = p.entries[id].text
	}

	suffixLen := strlen - len(prefix)
	if suffixLen < 0 {
		return nil, fmt.Errorf("%w: prefix: strlen %d shorter than prefix %d", kind.ErrCorrupted, strlen, len(prefix))
	}
	suffix, err := r.Read(suffixLen)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, strlen)
	out = append(out, prefix...)
	out = append(out, suffix...)
	return out, nil
}
