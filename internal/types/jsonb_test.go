package types

import (
	"testing"
)

func TestJSONMap_ScanBytes(t *testing.T) {
	var m JSONMap
	if err := m.Scan([]byte(`{"stripe_invoice_id":"in_1","amount":150.5}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m["stripe_invoice_id"] != "in_1" {
		t.Errorf("unexpected value %v", m["stripe_invoice_id"])
	}
	if m["amount"] != 150.5 {
		t.Errorf("unexpected value %v", m["amount"])
	}
}

func TestJSONMap_ScanString(t *testing.T) {
	var m JSONMap
	if err := m.Scan(`{"k":"v"}`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m["k"] != "v" {
		t.Errorf("unexpected value %v", m["k"])
	}
}

func TestJSONMap_ScanNil(t *testing.T) {
	m := JSONMap{"stale": true}
	if err := m.Scan(nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil map, got %v", m)
	}
}

func TestJSONMap_ScanUnsupportedType(t *testing.T) {
	var m JSONMap
	if err := m.Scan(42); err == nil {
		t.Fatal("expected an error for unsupported scan types")
	}
}

func TestJSONMap_Value(t *testing.T) {
	m := JSONMap{"k": "v"}
	v, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if string(v.([]byte)) != `{"k":"v"}` {
		t.Errorf("unexpected encoding %s", v)
	}
}

func TestJSONMap_ValueNil(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != nil {
		t.Errorf("expected NULL for nil map, got %v", v)
	}
}
