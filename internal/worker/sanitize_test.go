package worker

import (
	"encoding/json"
	"testing"
)

func TestSanitize_StripsDangerousKeysAtAnyDepth(t *testing.T) {
	in := json.RawMessage(`{
		"ok": "keep",
		"__proto__": {"polluted": true},
		"nested": {"constructor": "bad", "fine": 1, "deeper": {"prototype": "bad"}}
	}`)

	out, err := Sanitize(in)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("unmarshal sanitized: %v", err)
	}
	if _, ok := v["__proto__"]; ok {
		t.Error("expected __proto__ stripped at top level")
	}
	if v["ok"] != "keep" {
		t.Error("expected unrelated key preserved")
	}

	nested, ok := v["nested"].(map[string]any)
	if !ok {
		t.Fatal("expected nested object preserved")
	}
	if _, ok := nested["constructor"]; ok {
		t.Error("expected constructor stripped in nested object")
	}
	if nested["fine"] != float64(1) {
		t.Error("expected unrelated nested key preserved")
	}

	deeper, ok := nested["deeper"].(map[string]any)
	if !ok {
		t.Fatal("expected doubly-nested object preserved")
	}
	if _, ok := deeper["prototype"]; ok {
		t.Error("expected prototype stripped at depth 2")
	}
}

func TestSanitize_EmptyPayloadPassesThrough(t *testing.T) {
	out, err := Sanitize(nil)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil passthrough, got %q", out)
	}
}

func TestSanitize_ArrayOfObjectsSanitized(t *testing.T) {
	in := json.RawMessage(`[{"__proto__": 1}, {"fine": 2}]`)
	out, err := Sanitize(in)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	var v []map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := v[0]["__proto__"]; ok {
		t.Error("expected __proto__ stripped inside array element")
	}
	if v[1]["fine"] != float64(2) {
		t.Error("expected unrelated array element preserved")
	}
}
