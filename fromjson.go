// JSON ingestion boundary: decode arbitrary JSON into a fresh record
// (spec §1 "semi-structured records", modeled after JSON's own value
// grammar).
//
// Grounded on jpl-au-folio/repair.go, which already reaches for
// goccy/go-json to marshal index records; ingestion here runs the
// decode in the opposite direction, into the CARBON container model
// instead of out of it.
package carbon

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/jakson-go/carbon/kind"
)

// FromJSON decodes data as a JSON value and inserts it into a fresh
// no-key record. A record's outer container is always an array (spec
// §4.D.2 "abstract-type annotation flags attach to the outer-most
// array"); a top-level JSON array's elements are inserted directly
// into it, while a top-level object or scalar is wrapped as that
// array's single element.
func FromJSON(data []byte) (*Record, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", kind.ErrCorrupted, err)
	}

	rec, err := CreateNoKey(UnsortedMultiset)
	if err != nil {
		return nil, err
	}
	ins, err := rec.Inserter()
	if err != nil {
		return nil, err
	}

	if arr, isArray := v.([]any); isArray {
		err = insertJSONArrayElements(ins, arr)
	} else {
		err = insertJSONValue(ins, v)
	}
	if err != nil {
		rec.Drop()
		return nil, err
	}

	if err := rec.CreateEnd(); err != nil {
		rec.Drop()
		return nil, err
	}
	return rec, nil
}

// insertJSONValue appends one decoded JSON value through ins.
func insertJSONValue(ins *Inserter, v any) error {
	switch tv := v.(type) {
	case nil:
		return ins.InsertNull()
	case bool:
		if tv {
			return ins.InsertTrue()
		}
		return ins.InsertFalse()
	case float64:
		return ins.InsertFloat(tv)
	case string:
		return ins.InsertString(tv)
	case map[string]any:
		sub, err := ins.InsertObjectBegin(UnsortedMultiset)
		if err != nil {
			return err
		}
		if err := insertJSONObject(sub, tv); err != nil {
			return err
		}
		sub.InsertObjectEnd()
		return nil
	case []any:
		sub, err := ins.InsertArrayListBegin(UnsortedMultiset, len(tv))
		if err != nil {
			return err
		}
		if err := insertJSONArrayElements(sub, tv); err != nil {
			return err
		}
		sub.InsertArrayEnd()
		return nil
	default:
		return fmt.Errorf("%w: unsupported JSON value of type %T", kind.ErrTypeMismatch, v)
	}
}

func insertJSONObject(ins *Inserter, obj map[string]any) error {
	for key, val := range obj {
		val := val
		if err := ins.InsertProperty(key, func(sub *Inserter) error {
			return insertJSONValue(sub, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

func insertJSONArrayElements(ins *Inserter, arr []any) error {
	for _, el := range arr {
		if err := insertJSONValue(ins, el); err != nil {
			return err
		}
	}
	return nil
}
