package dbtypes

import "testing"

func TestJSONMapScanHandlesNullAndBytes(t *testing.T) {
	var m JSONMap
	if err := m.Scan(nil); err != nil || len(m) != 0 {
		t.Fatalf("expected empty map from NULL, got %v err=%v", m, err)
	}
	if err := m.Scan([]byte(`{"source":"public_detail","captcha":{"verified":true}}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m["source"] != "public_detail" {
		t.Fatalf("unexpected map %v", m)
	}
	nested, ok := m["captcha"].(map[string]any)
	if !ok || nested["verified"] != true {
		t.Fatalf("expected nested captcha object, got %v", m["captcha"])
	}
	if err := m.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestJSONMapValueOfNil(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	if err != nil || v != "{}" {
		t.Fatalf("expected {} for nil map, got %v err=%v", v, err)
	}
}

func TestStringListScanAndValue(t *testing.T) {
	var l StringList
	if err := l.Scan(`["heat-pump","one-owner"]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(l) != 2 || l[1] != "one-owner" {
		t.Fatalf("unexpected list %v", l)
	}
	v, err := l.Value()
	if err != nil || v != `["heat-pump","one-owner"]` {
		t.Fatalf("unexpected value %v err=%v", v, err)
	}
}
