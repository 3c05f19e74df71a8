package internal

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestFlattenNestedRecord tests flattening a typical normalized record.
func TestFlattenNestedRecord(t *testing.T) {
	var data map[string]interface{}
	raw := `{"eventType":"message","timestamp":1700000000000,"source":{"type":"group","groupId":"G1"},"message":{"id":"m1","type":"text","text":"hi"}}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	flat := Flatten(data)
	if flat["eventType"] != "message" {
		t.Fatalf("expected top-level key preserved, got %v", flat["eventType"])
	}
	if flat["source.type"] != "group" || flat["source.groupId"] != "G1" {
		t.Fatalf("expected dotted nested keys, got %v", flat)
	}
	if flat["message.text"] != "hi" {
		t.Fatalf("expected message.text, got %v", flat["message.text"])
	}
	if _, ok := flat["source"]; ok {
		t.Fatalf("expected nested map key removed after flattening")
	}
}

// TestFlattenArrays tests the index and whole-array key forms.
func TestFlattenArrays(t *testing.T) {
	var data map[string]interface{}
	raw := `{"joined":{"members":[{"userId":"U1"},{"userId":"U2"}]}}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	flat := Flatten(data)
	if flat["joined.members[0].userId"] != "U1" || flat["joined.members[1].userId"] != "U2" {
		t.Fatalf("expected indexed keys, got %v", flat)
	}
	whole, ok := flat["joined.members"].([]interface{})
	if !ok || len(whole) != 2 {
		t.Fatalf("expected whole array under plain key, got %v", flat["joined.members"])
	}
	alias, ok := flat["joined.members[]"].([]interface{})
	if !ok || !reflect.DeepEqual(whole, alias) {
		t.Fatalf("expected array alias key, got %v", flat["joined.members[]"])
	}
}

// TestFlattenScalars tests that scalar values pass through untouched.
func TestFlattenScalars(t *testing.T) {
	flat := Flatten(map[string]interface{}{
		"a": 1,
		"b": "two",
		"c": true,
		"d": nil,
	})
	want := map[string]interface{}{"a": 1, "b": "two", "c": true, "d": nil}
	if !reflect.DeepEqual(flat, want) {
		t.Fatalf("expected %v, got %v", want, flat)
	}
}
