package carbon

import "testing"

func TestFromJSONObject(t *testing.T) {
	r, err := FromJSON([]byte(`{"name":"carbon","count":3,"ok":true,"nil":null}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	v, ok, err := it.Next()
	if err != nil || !ok || v.Type != TypeObject {
		t.Fatalf("field 0 = %+v ok=%v err=%v, want object", v, ok, err)
	}

	props := map[string]Value{}
	for {
		key, pv, ok, err := v.Object.Next()
		if err != nil {
			t.Fatalf("Object.Next: %v", err)
		}
		if !ok {
			break
		}
		props[key] = pv
	}
	if got := props["name"]; got.Type != TypeString || got.Str != "carbon" {
		t.Fatalf("name = %+v", got)
	}
	if got := props["count"]; got.Type != TypeFloat || got.F64 != 3 {
		t.Fatalf("count = %+v", got)
	}
	if got := props["ok"]; got.Type != TypeTrue {
		t.Fatalf("ok = %+v", got)
	}
	if got := props["nil"]; got.Type != TypeNull {
		t.Fatalf("nil = %+v", got)
	}
}

func TestFromJSONArray(t *testing.T) {
	r, err := FromJSON([]byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	it, err := r.OuterIterator()
	if err != nil {
		t.Fatalf("OuterIterator: %v", err)
	}
	for i := 0; i < 3; i++ {
		v, ok, err := it.Next()
		if err != nil || !ok || v.Type != TypeFloat || v.F64 != float64(i+1) {
			t.Fatalf("element %d = %+v ok=%v err=%v", i, v, ok, err)
		}
	}
	if _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("expected exhausted, got ok=%v err=%v", ok, err)
	}
}

func TestFromJSONMalformedFails(t *testing.T) {
	if _, err := FromJSON([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
