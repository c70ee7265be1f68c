package amqp

import (
	"testing"
	"time"
)

func TestRecordChangeMessageRoundTrip(t *testing.T) {
	original := &RecordChangeMessage{
		Action:    ActionUpsert,
		ID:        42,
		Kind:      "user",
		EntityID:  7,
		Period:    "MAR2025",
		Timestamp: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	data, err := original.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded, err := RecordChangeMessageFromJSON(data)
	if err != nil {
		t.Fatalf("RecordChangeMessageFromJSON() error = %v", err)
	}

	if decoded.Action != original.Action {
		t.Errorf("Action = %q, want %q", decoded.Action, original.Action)
	}
	if decoded.ID != original.ID {
		t.Errorf("ID = %d, want %d", decoded.ID, original.ID)
	}
	if decoded.Kind != original.Kind {
		t.Errorf("Kind = %q, want %q", decoded.Kind, original.Kind)
	}
	if decoded.EntityID != original.EntityID {
		t.Errorf("EntityID = %d, want %d", decoded.EntityID, original.EntityID)
	}
	if decoded.Period != original.Period {
		t.Errorf("Period = %q, want %q", decoded.Period, original.Period)
	}
	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, original.Timestamp)
	}
}

func TestRecordChangeMessageFromJSONInvalid(t *testing.T) {
	if _, err := RecordChangeMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNewUpsertMessage(t *testing.T) {
	msg := NewUpsertMessage(7, "project")

	if msg.Action != ActionUpsert {
		t.Errorf("Action = %q, want %q", msg.Action, ActionUpsert)
	}
	if msg.ID != 7 {
		t.Errorf("ID = %d, want 7", msg.ID)
	}
	if msg.Kind != "project" {
		t.Errorf("Kind = %q, want %q", msg.Kind, "project")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewDeleteMessage(t *testing.T) {
	msg := NewDeleteMessage(11, "user", 3, "JUN2025")

	if msg.Action != ActionDelete {
		t.Errorf("Action = %q, want %q", msg.Action, ActionDelete)
	}
	if msg.EntityID != 3 {
		t.Errorf("EntityID = %d, want 3", msg.EntityID)
	}
	if msg.Period != "JUN2025" {
		t.Errorf("Period = %q, want %q", msg.Period, "JUN2025")
	}
}
