package httputil

import (
	"encoding/json"
	"testing"
)

func TestOptionalInt64(t *testing.T) {
	type payload struct {
		Parent OptionalInt64 `json:"parent"`
	}

	var absent payload
	if err := json.Unmarshal([]byte(`{}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.Parent.Present {
		t.Error("absent field should not be marked present")
	}

	var null payload
	if err := json.Unmarshal([]byte(`{"parent": null}`), &null); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !null.Parent.Present || null.Parent.Value != nil {
		t.Errorf("null field: Present = %v, Value = %v; want present with nil value", null.Parent.Present, null.Parent.Value)
	}

	var set payload
	if err := json.Unmarshal([]byte(`{"parent": 42}`), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !set.Parent.Present || set.Parent.Value == nil || *set.Parent.Value != 42 {
		t.Errorf("set field: Present = %v, Value = %v; want 42", set.Parent.Present, set.Parent.Value)
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"parent": "root"}`), &bad); err == nil {
		t.Error("string value should not unmarshal into OptionalInt64")
	}
}
