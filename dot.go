// Dot-path parsing and resolution (spec §4.D.5): "a.b.2" style paths
// over a record's outer container, tolerant of whitespace and
// double-quoted keys.
package carbon

import (
	"fmt"
	"strconv"

	"github.com/jakson-go/carbon/kind"
)

// maxDotPathTokens bounds path length (spec §4.D.5 "Path-length is
// bounded (≥255)").
const maxDotPathTokens = 255

// dotToken is either a property key (object step) or a non-negative
// index (array/column step).
type dotToken struct {
	key      string
	index    int
	isIndex  bool
	rawInput string
}

// parseDotPath splits path into tokens, tolerating whitespace around
// '.' separators and double-quoted keys containing blanks or dots.
func parseDotPath(path string) ([]dotToken, error) {
	var tokens []dotToken
	i := 0
	n := len(path)
	for i < n {
		for i < n && path[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		if len(tokens) >= maxDotPathTokens {
			return nil, fmt.Errorf("%w: dot path exceeds %d tokens", kind.ErrOutOfBounds, maxDotPathTokens)
		}
		var tok dotToken
		if path[i] == '"' {
			j := i + 1
			for j < n && path[j] != '"' {
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("%w: unterminated quoted key at %d", kind.ErrParseEntryExpected, i)
			}
			tok = dotToken{key: path[i+1 : j], rawInput: path[i : j+1]}
			i = j + 1
		} else {
			j := i
			for j < n && path[j] != '.' && path[j] != ' ' {
				j++
			}
			raw := path[i:j]
			if raw == "" {
				return nil, fmt.Errorf("%w: empty path entry at %d", kind.ErrParseEntryExpected, i)
			}
			if idx, err := strconv.Atoi(raw); err == nil && idx >= 0 {
				tok = dotToken{index: idx, isIndex: true, rawInput: raw}
			} else {
				tok = dotToken{key: raw, rawInput: raw}
			}
			i = j
		}
		tokens = append(tokens, tok)
		for i < n && path[i] == ' ' {
			i++
		}
		if i < n {
			if path[i] != '.' {
				return nil, fmt.Errorf("%w: expected '.' at %d", kind.ErrParseDotExpected, i)
			}
			i++
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty dot path", kind.ErrParseEntryExpected)
	}
	return tokens, nil
}

// Find resolves path against r's outer container, returning the
// matched value. Object steps must match an immediate property key;
// array/column steps must be a non-negative index within length (spec
// §4.D.5). Parse errors and resolution misses are returned to the
// caller without touching r.
func Find(r *Record, path string) (Value, error) {
	v, err := resolveDotPath(r, path)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

// resolveDotPath walks path against r's outer container and returns
// the final matched value, shared by Find and the find_update_*
// family below.
func resolveDotPath(r *Record, path string) (Value, error) {
	tokens, err := parseDotPath(path)
	if err != nil {
		return Value{}, err
	}
	it, err := r.OuterIterator()
	if err != nil {
		return Value{}, err
	}
	v := Value{Type: TypeArray, Array: it}
	for _, tok := range tokens {
		v, err = stepInto(v, tok)
		if err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

// FindUpdateArrayType resolves path to an array or column container
// and rewrites its abstract-type annotation in place (spec §4.D.5
// "find_update_array_type"). r must be unfrozen, i.e. called during
// Patch or between ReviseBegin and ReviseEnd.
func FindUpdateArrayType(r *Record, path string, subtype AbstractType) error {
	if r.frozen {
		return fmt.Errorf("%w: find_update_array_type requires an unfrozen record", kind.ErrIllegalOp)
	}
	v, err := resolveDotPath(r, path)
	if err != nil {
		return err
	}
	switch v.Type {
	case TypeArray:
		return v.Array.UpdateType(subtype)
	case TypeColumn:
		return v.Column.UpdateType(subtype)
	default:
		return fmt.Errorf("%w: %q does not resolve to an array", kind.ErrTypeMismatch, path)
	}
}

// FindUpdateColumnType resolves path to a column container and
// rewrites its abstract-type annotation in place (spec §4.D.5
// "find_update_column_type"). r must be unfrozen, i.e. called during
// Patch or between ReviseBegin and ReviseEnd.
func FindUpdateColumnType(r *Record, path string, subtype AbstractType) error {
	if r.frozen {
		return fmt.Errorf("%w: find_update_column_type requires an unfrozen record", kind.ErrIllegalOp)
	}
	v, err := resolveDotPath(r, path)
	if err != nil {
		return err
	}
	if v.Type != TypeColumn {
		return fmt.Errorf("%w: %q does not resolve to a column", kind.ErrTypeMismatch, path)
	}
	return v.Column.UpdateType(subtype)
}

func stepInto(v Value, tok dotToken) (Value, error) {
	switch v.Type {
	case TypeObject:
		for {
			key, pv, ok, err := v.Object.Next()
			if err != nil {
				return Value{}, err
			}
			if !ok {
				return Value{}, fmt.Errorf("%w: no property %q", kind.ErrIllegalArg, tok.key)
			}
			if key == tok.key {
				return pv, nil
			}
		}
	case TypeArray:
		if !tok.isIndex {
			return Value{}, fmt.Errorf("%w: array step requires an index, got %q", kind.ErrParseUnknownToken, tok.rawInput)
		}
		idx := 0
		for {
			ev, ok, err := v.Array.Next()
			if err != nil {
				return Value{}, err
			}
			if !ok {
				return Value{}, fmt.Errorf("%w: index %d out of range", kind.ErrOutOfBounds, tok.index)
			}
			if idx == tok.index {
				return ev, nil
			}
			idx++
		}
	case TypeColumn:
		if !tok.isIndex {
			return Value{}, fmt.Errorf("%w: column step requires an index, got %q", kind.ErrParseUnknownToken, tok.rawInput)
		}
		if tok.index < 0 || tok.index >= v.Column.Length() {
			return Value{}, fmt.Errorf("%w: index %d out of range", kind.ErrOutOfBounds, tok.index)
		}
		idx := 0
		for {
			ev, ok, err := v.Column.Next()
			if err != nil {
				return Value{}, err
			}
			if !ok {
				return Value{}, fmt.Errorf("%w: index %d out of range", kind.ErrOutOfBounds, tok.index)
			}
			if idx == tok.index {
				return ev, nil
			}
			idx++
		}
	default:
		return Value{}, fmt.Errorf("%w: cannot step %q into a scalar", kind.ErrTypeMismatch, tok.rawInput)
	}
}
