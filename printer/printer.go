// Package printer renders a carbon record as JSON, in two flavors:
// compact (a plain JSON value) and extended (wraps the value in a
// meta/doc envelope carrying the key and commit hash) — spec §4.D.7,
// §4.G.
//
// Binary values are base64-encoded with the standard library's
// encoding/base64, and output goes into a caller-provided
// strings.Builder, the callback surface the spec calls out ("must emit
// output into a caller-provided string builder").
package printer

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jakson-go/carbon"
)

// Mode selects which of the two printer flavors Print produces.
type Mode int

const (
	Compact Mode = iota
	Extended
)

// Print renders r's outer container into sb according to mode.
func Print(sb *strings.Builder, r *carbon.Record, mode Mode) error {
	it, err := r.OuterIterator()
	if err != nil {
		return err
	}
	if mode == Extended {
		if err := printExtendedEnvelope(sb, r, it); err != nil {
			return err
		}
		return nil
	}
	return printArray(sb, it)
}

func printExtendedEnvelope(sb *strings.Builder, r *carbon.Record, it *carbon.ArrayIterator) error {
	h := r.Header()
	sb.WriteString(`{"meta":{"key_type":`)
	fmt.Fprintf(sb, "%q", keyTypeName(h.Kind))
	sb.WriteString(`,"key":`)
	writeKeyValue(sb, h)
	sb.WriteString(`,"commit":`)
	fmt.Fprintf(sb, "%d", h.CommitHash)
	sb.WriteString(`},"doc":`)
	if err := printArray(sb, it); err != nil {
		return err
	}
	sb.WriteString(`}`)
	return nil
}

func keyTypeName(k carbon.KeyKind) string {
	switch k {
	case carbon.KeyNone:
		return "nokey"
	case carbon.KeyAuto:
		return "autokey"
	case carbon.KeyUint:
		return "ukey"
	case carbon.KeyInt:
		return "ikey"
	case carbon.KeyString:
		return "skey"
	default:
		return "unknown"
	}
}

func writeKeyValue(sb *strings.Builder, h *carbon.Header) {
	switch h.Kind {
	case carbon.KeyNone:
		sb.WriteString("null")
	case carbon.KeyAuto, carbon.KeyUint:
		fmt.Fprintf(sb, "%d", h.KeyUintVal)
	case carbon.KeyInt:
		fmt.Fprintf(sb, "%d", h.KeyIntVal)
	case carbon.KeyString:
		fmt.Fprintf(sb, "%q", h.KeyStrVal)
	}
}

func printArray(sb *strings.Builder, it *carbon.ArrayIterator) error {
	sb.WriteByte('[')
	first := true
	for {
		v, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		if err := printValue(sb, v); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

func printObject(sb *strings.Builder, it *carbon.ObjectIterator) error {
	sb.WriteByte('{')
	first := true
	for {
		key, v, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		fmt.Fprintf(sb, "%q:", key)
		if err := printValue(sb, v); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func printColumn(sb *strings.Builder, ci *carbon.ColumnIterator) error {
	sb.WriteByte('[')
	first := true
	for {
		v, ok, err := ci.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		if err := printValue(sb, v); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

func printValue(sb *strings.Builder, v carbon.Value) error {
	switch v.Type {
	case carbon.TypeNull:
		sb.WriteString("null")
	case carbon.TypeTrue:
		sb.WriteString("true")
	case carbon.TypeFalse:
		sb.WriteString("false")
	case carbon.TypeU8, carbon.TypeU16, carbon.TypeU32, carbon.TypeU64:
		fmt.Fprintf(sb, "%d", v.U64)
	case carbon.TypeI8, carbon.TypeI16, carbon.TypeI32, carbon.TypeI64:
		fmt.Fprintf(sb, "%d", v.I64)
	case carbon.TypeFloat:
		fmt.Fprintf(sb, "%g", v.F64)
	case carbon.TypeString:
		fmt.Fprintf(sb, "%q", v.Str)
	case carbon.TypeBinary, carbon.TypeCustomBinary:
		printBinary(sb, v.Bin)
	case carbon.TypeObject:
		return printObject(sb, v.Object)
	case carbon.TypeArray:
		return printArray(sb, v.Array)
	case carbon.TypeColumn:
		return printColumn(sb, v.Column)
	default:
		return fmt.Errorf("printer: unhandled field type %v", v.Type)
	}
	return nil
}

// printBinary base64-encodes a blob into a {type, encoding, binary-
// string} object (spec §4.G), used for both compact and extended
// output — the spec only distinguishes the envelope, not per-value
// binary framing.
func printBinary(sb *strings.Builder, b carbon.Binary) {
	sb.WriteString(`{"type":`)
	if b.UserType != 0 {
		fmt.Fprintf(sb, "%d", b.UserType)
	} else {
		fmt.Fprintf(sb, "%q", b.MimeType)
	}
	sb.WriteString(`,"encoding":"base64","binary-string":"`)
	sb.WriteString(base64.StdEncoding.EncodeToString(b.Data))
	sb.WriteString(`"}`)
}
