package archive

import (
	"testing"

	"github.com/jakson-go/carbon"
	"github.com/jakson-go/carbon/pack"
)

func valueAt(t *testing.T, v Value, key string) Value {
	t.Helper()
	for _, p := range v.Props {
		if p.Key == key {
			return p.Value
		}
	}
	t.Fatalf("no property %q in %+v", key, v)
	return Value{}
}

func roundTrip(t *testing.T, doc string, opts WriterOptions) (Value, *Archive) {
	t.Helper()
	rec, err := carbon.FromJSON([]byte(doc))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	defer rec.Drop()

	block, err := Write(rec, opts)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ar, err := Open(block, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root, err := ar.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	return root, ar
}

func TestRoundTripFlatObject(t *testing.T) {
	root, _ := roundTrip(t, `[{"name":"carbon","count":3,"ok":true,"nothing":null}]`, WriterOptions{})
	if len(root.Elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(root.Elems))
	}
	obj := root.Elems[0]
	if v := valueAt(t, obj, "name"); v.Str != "carbon" {
		t.Errorf("name = %q", v.Str)
	}
	if v := valueAt(t, obj, "count"); v.Float != 3 {
		t.Errorf("count = %+v", v)
	}
	if v := valueAt(t, obj, "ok"); !v.Bool {
		t.Errorf("ok = %+v", v)
	}
	if v := valueAt(t, obj, "nothing"); !v.IsNull() {
		t.Errorf("nothing = %+v, want null", v)
	}
}

func TestRoundTripNestedObject(t *testing.T) {
	root, _ := roundTrip(t, `[{"outer":{"inner":42}}]`, WriterOptions{})
	outer := valueAt(t, root.Elems[0], "outer")
	if outer.Kind != kindObject {
		t.Fatalf("outer is not an object: %+v", outer)
	}
	inner := valueAt(t, outer, "inner")
	if inner.Float != 42 {
		t.Errorf("inner = %+v", inner)
	}
}

func TestRoundTripScalarArray(t *testing.T) {
	root, _ := roundTrip(t, `[{"nums":[1,2,3,4]}]`, WriterOptions{})
	nums := valueAt(t, root.Elems[0], "nums")
	if len(nums.Elems) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(nums.Elems))
	}
	for i, want := range []float64{1, 2, 3, 4} {
		if got := nums.Elems[i].Float; got != want {
			t.Errorf("nums[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestRoundTripObjectArrayColumns(t *testing.T) {
	root, _ := roundTrip(t, `[{"rows":[{"id":1,"tag":"a"},{"id":2,"tag":"b"},{"id":3,"tag":"c"}]}]`, WriterOptions{})
	rows := valueAt(t, root.Elems[0], "rows")
	if len(rows.Elems) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows.Elems))
	}
	second := rows.Elems[1]
	if v := valueAt(t, second, "tag"); v.Str != "b" {
		t.Errorf("rows[1].tag = %q", v.Str)
	}
}

// Non-homogeneous arrays fall back to the object/column-group machinery
// with each element wrapped under a synthetic "v" key (classify.go);
// decode reflects that wrapping rather than unwrapping it back to bare
// scalars, since nothing at this layer records that a fallback
// happened.
func TestRoundTripMixedArrayFallback(t *testing.T) {
	root, _ := roundTrip(t, `[{"mixed":[1,"two",true]}]`, WriterOptions{})
	mixed := valueAt(t, root.Elems[0], "mixed")
	if len(mixed.Elems) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(mixed.Elems))
	}
	wrapped := valueAt(t, mixed.Elems[1], "v")
	if wrapped.Str != "two" {
		t.Errorf("mixed[1].v = %+v", wrapped)
	}
}

func TestRoundTripCompactObjectHeader(t *testing.T) {
	root, _ := roundTrip(t, `[{"solo":true}]`, WriterOptions{CompactThreshold: 1})
	if v := valueAt(t, root.Elems[0], "solo"); !v.Bool {
		t.Errorf("solo = %+v", v)
	}
}

func TestRoundTripWithZstdPacker(t *testing.T) {
	root, _ := roundTrip(t, `[{"name":"compressed value here","again":"compressed value here"}]`,
		WriterOptions{Packer: pack.NewZstd()})
	if v := valueAt(t, root.Elems[0], "name"); v.Str != "compressed value here" {
		t.Errorf("name = %q", v.Str)
	}
}

func TestVisitSkipsExcludedGroup(t *testing.T) {
	rec, err := carbon.FromJSON([]byte(`[{"a":1,"b":"skip-me"}]`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	defer rec.Drop()
	block, err := Write(rec, WriterOptions{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ar, err := Open(block, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var sawString bool
	err = ar.Visit(Visitor{
		EnterGroup: func(pt PropType) VisitAction {
			if pt == PTString {
				return VisitExclude
			}
			return VisitContinue
		},
		VisitPairs: func(pt PropType, keys []string, values []Value) VisitAction {
			if pt == PTString {
				sawString = true
			}
			return VisitContinue
		},
	})
	if err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if sawString {
		t.Errorf("VisitExclude on PTString did not prune the group")
	}
}

func TestPoolParallelDecode(t *testing.T) {
	rec, err := carbon.FromJSON([]byte(`[{"items":[{"x":1},{"x":2},{"x":3},{"x":4},{"x":5}]}]`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	defer rec.Drop()
	block, err := Write(rec, WriterOptions{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	pool := NewPool(4)
	defer pool.Close()
	ar, err := Open(block, pool)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	root, err := ar.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	items := valueAt(t, root.Elems[0], "items")
	if len(items.Elems) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items.Elems))
	}
}
