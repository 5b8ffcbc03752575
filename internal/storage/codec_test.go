package storage

import (
	"errors"
	"testing"
)

func TestDynamicOperatorCodecRoundTrip(t *testing.T) {
	input := testRecord("mutation", "double_constants", 0.7)

	payload, err := EncodeDynamicOperator(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	output, err := DecodeDynamicOperator(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if output.Kind != input.Kind || output.Name != input.Name {
		t.Fatalf("identity changed: %+v", output)
	}
	if output.Source != input.Source || output.Weight != input.Weight {
		t.Fatalf("payload changed: %+v", output)
	}
}

func TestDecodeDynamicOperatorFromWire(t *testing.T) {
	wire := []byte(`{
		"schema_version": 1,
		"codec_version": 1,
		"kind": "selection",
		"name": "pick_first",
		"source": "func PickFirst() {}",
		"weight": 0,
		"created_at_utc": "2026-01-02T03:04:05Z"
	}`)

	record, err := DecodeDynamicOperator(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.Kind != "selection" || record.Name != "pick_first" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestDecodeDynamicOperatorVersionMismatch(t *testing.T) {
	stale := testRecord("mutation", "op", 1)
	stale.SchemaVersion = CurrentSchemaVersion + 1

	payload, err := EncodeDynamicOperator(stale)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = DecodeDynamicOperator(payload)
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("stale record: got %v, want ErrVersionMismatch", err)
	}
}

func TestDecodeDynamicOperatorRejectsGarbage(t *testing.T) {
	if _, err := DecodeDynamicOperator([]byte("not json")); err == nil {
		t.Fatal("garbage payload accepted")
	}
}
