package printer

import (
	"strings"
	"testing"

	"github.com/jakson-go/carbon"
)

func TestPrintCompactObject(t *testing.T) {
	r, err := carbon.FromJSON([]byte(`{"name":"carbon","count":3}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	var sb strings.Builder
	if err := Print(&sb, r, Compact); err != nil {
		t.Fatalf("Print: %v", err)
	}
	got := sb.String()
	if !strings.HasPrefix(got, "[{") || !strings.HasSuffix(got, "}]") {
		t.Fatalf("unexpected compact output: %s", got)
	}
	if !strings.Contains(got, `"name":"carbon"`) || !strings.Contains(got, `"count":3`) {
		t.Fatalf("missing expected fields: %s", got)
	}
}

func TestPrintExtendedEnvelope(t *testing.T) {
	r, err := carbon.CreateUintKey(11, carbon.UnsortedMultiset)
	if err != nil {
		t.Fatalf("CreateUintKey: %v", err)
	}
	ins, err := r.Inserter()
	if err != nil {
		t.Fatalf("Inserter: %v", err)
	}
	if err := ins.InsertU8(9); err != nil {
		t.Fatalf("InsertU8: %v", err)
	}
	if err := r.CreateEnd(); err != nil {
		t.Fatalf("CreateEnd: %v", err)
	}

	var sb strings.Builder
	if err := Print(&sb, r, Extended); err != nil {
		t.Fatalf("Print: %v", err)
	}
	got := sb.String()
	if !strings.HasPrefix(got, `{"meta":{"key_type":"ukey","key":11,"commit":`) {
		t.Fatalf("unexpected extended output: %s", got)
	}
	if !strings.Contains(got, `"doc":[9]`) {
		t.Fatalf("missing doc field: %s", got)
	}
}

func TestPrintArrayAndNested(t *testing.T) {
	r, err := carbon.FromJSON([]byte(`[1,[2,3],{"a":true}]`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	var sb strings.Builder
	if err := Print(&sb, r, Compact); err != nil {
		t.Fatalf("Print: %v", err)
	}
	got := sb.String()
	if got != `[1,[2,3],{"a":true}]` {
		t.Fatalf("got %s", got)
	}
}
