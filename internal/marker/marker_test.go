package marker

import (
	"errors"
	"testing"

	"github.com/jakson-go/carbon/kind"
)

func TestFieldTypeRoundTrip(t *testing.T) {
	for _, ft := range []FieldType{Null, True, False, U8, I64, Float, String, Binary, ColumnU8, ColumnFloat, ObjectEnd, ArrayEnd} {
		got, err := FieldTypeFromByte(ft.Byte())
		if err != nil {
			t.Fatalf("FieldTypeFromByte(%v): %v", ft, err)
		}
		if got != ft {
			t.Errorf("round trip %v -> %v", ft, got)
		}
	}
}

func TestFieldTypeFromByteUnknown(t *testing.T) {
	_, err := FieldTypeFromByte(0x00)
	if !errors.Is(err, kind.ErrMarkerMapping) {
		t.Fatalf("want ErrMarkerMapping, got %v", err)
	}
}

func TestContainerBeginRoundTrip(t *testing.T) {
	for _, at := range []AbstractType{UnsortedMultiset, SortedMultiset, UnsortedSet, SortedSet} {
		shape, gotAT, err := ParseContainerBegin(ArrayBeginMarker(at))
		if err != nil || shape != ShapeArray || gotAT != at {
			t.Errorf("array %v: shape=%v at=%v err=%v", at, shape, gotAT, err)
		}
		shape, gotAT, err = ParseContainerBegin(ObjectBeginMarker(at))
		if err != nil || shape != ShapeObject || gotAT != at {
			t.Errorf("object %v: shape=%v at=%v err=%v", at, shape, gotAT, err)
		}
	}
}

func TestParseContainerBeginRejectsEndMarkers(t *testing.T) {
	if _, _, err := ParseContainerBegin(byte(ObjectEnd)); !errors.Is(err, kind.ErrMarkerMapping) {
		t.Fatalf("want ErrMarkerMapping for '}', got %v", err)
	}
}

func TestColumnElementMarker(t *testing.T) {
	got, err := ColumnElementMarker(U64)
	if err != nil || got != ColumnU64 {
		t.Fatalf("ColumnElementMarker(U64) = %v, %v", got, err)
	}
	if _, err := ColumnElementMarker(String); !errors.Is(err, kind.ErrIllegalArg) {
		t.Fatalf("want ErrIllegalArg for string column element, got %v", err)
	}
}

func TestKeyKindFromByte(t *testing.T) {
	for _, k := range []KeyKind{KeyNone, KeyAuto, KeyUint, KeyInt, KeyString} {
		got, err := KeyKindFromByte(byte(k))
		if err != nil || got != k {
			t.Errorf("KeyKindFromByte(%v) = %v, %v", k, got, err)
		}
	}
	if _, err := KeyKindFromByte('x'); !errors.Is(err, kind.ErrMarkerMapping) {
		t.Fatalf("want ErrMarkerMapping, got %v", err)
	}
}
