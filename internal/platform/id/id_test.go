package id

import (
	"strings"
	"testing"
)

func TestNewIDFormat(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(value) != 26 {
		t.Fatalf("expected 26-character id, got %d (%q)", len(value), value)
	}
	if strings.Contains(value, "=") {
		t.Fatal("expected no padding")
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			t.Fatalf("unexpected character %q in id", r)
		}
	}
}

func TestNewIDEncodesUUIDv4(t *testing.T) {
	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	decoded, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if len(decoded) != 16 {
		t.Fatalf("expected 16 decoded bytes, got %d", len(decoded))
	}
	if version := decoded[6] >> 4; version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}
	if variant := decoded[8] & 0xC0; variant != 0x80 {
		t.Fatalf("expected variant 0x80, got 0x%X", variant)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		value, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate id %q", value)
		}
		seen[value] = struct{}{}
	}
}
