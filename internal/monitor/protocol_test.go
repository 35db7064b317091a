package monitor

import (
	"encoding/json"
	"testing"
)

func TestClientHelloIsAcceptedViaEnvelope(t *testing.T) {
	raw := []byte(`{"type":"client_hello","extra":"ignored"}`)
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.Type != TypeClientHello {
		t.Errorf("Type = %q, want %q", env.Type, TypeClientHello)
	}
}

func TestTerminalDataMarshalsExpectedShape(t *testing.T) {
	msg := TerminalData{Type: TypeTerminalData, Timestamp: 1.5, EventType: "o", Data: "hi"}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != "terminal_data" || decoded["event_type"] != "o" {
		t.Errorf("unexpected shape: %v", decoded)
	}
}
