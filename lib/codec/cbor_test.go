// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type spaceRequest struct {
	Action     string `cbor:"action"`
	SpaceID    string `cbor:"space_id,omitempty"`
	Capacity   uint64 `cbor:"capacity"`
	GuardPages bool   `cbor:"guard_pages"`
}

type spaceSummary struct {
	ID       string `json:"id"`
	Capacity uint64 `json:"capacity"`
}

func TestMarshalUnmarshal(t *testing.T) {
	original := spaceRequest{Action: "create-space", Capacity: 4096, GuardPages: true}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded spaceRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(map[string]any{"capacity": 64, "action": "create-space", "guard_pages": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(map[string]any{"guard_pages": true, "action": "create-space", "capacity": 64})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("map key order changed the encoding: %x != %x", first, second)
	}
}

func TestStream(t *testing.T) {
	requests := []spaceRequest{
		{Action: "create-space", Capacity: 100},
		{Action: "release-space", SpaceID: "a1b2"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, request := range requests {
		if err := encoder.Encode(request); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range requests {
		var got spaceRequest
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if got != want {
			t.Errorf("request %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(spaceSummary{ID: "ff00", Capacity: 8})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var generic map[string]any
	if err := Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if generic["id"] != "ff00" {
		t.Errorf("json tag name not used as CBOR key: %v", generic)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	data, err := Marshal(map[string]any{"action": "digest-space", "future_field": 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded spaceRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Action != "digest-space" {
		t.Errorf("Action = %q", decoded.Action)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var decoded spaceRequest
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &decoded); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"action": "list-spaces"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"list-spaces"`) {
		t.Errorf("notation %q does not contain the action", notation)
	}
}

func TestTransferPayloadAndUntypedMaps(t *testing.T) {
	type writeRequest struct {
		Action string `cbor:"action"`
		Data   []byte `cbor:"data"`
	}
	payload := bytes.Repeat([]byte{0xa5}, 1<<20)
	data, err := Marshal(map[string]any{
		"action": "write-space",
		"data":   payload,
		"limits": map[string]any{"max_spaces": 4},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var request writeRequest
	if err := Unmarshal(data, &request); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if request.Action != "write-space" || !bytes.Equal(request.Data, payload) {
		t.Errorf("payload of %d bytes did not round-trip", len(request.Data))
	}

	var untyped any
	if err := Unmarshal(data, &untyped); err != nil {
		t.Fatalf("Unmarshal into any: %v", err)
	}
	top, ok := untyped.(map[string]any)
	if !ok {
		t.Fatalf("top level decoded as %T, want map[string]any", untyped)
	}
	if _, ok := top["limits"].(map[string]any); !ok {
		t.Errorf("nested map decoded as %T, want map[string]any", top["limits"])
	}
}
