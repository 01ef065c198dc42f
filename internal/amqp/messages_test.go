package amqp

import (
	"testing"
	"time"
)

func TestNewEntrySyncMessage(t *testing.T) {
	msg := NewEntrySyncMessage("entry-42")

	if msg.EntryID != "entry-42" {
		t.Errorf("NewEntrySyncMessage() EntryID = %q, want %q", msg.EntryID, "entry-42")
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewEntrySyncMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewEntrySyncMessage() Timestamp should be recent")
	}
}

func TestEntrySyncMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &EntrySyncMessage{
		EntryID:   "entry-42",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := EntrySyncMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("EntrySyncMessageFromJSON() error = %v", err)
	}

	if parsed.EntryID != msg.EntryID {
		t.Errorf("Parsed EntryID = %q, want %q", parsed.EntryID, msg.EntryID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestEntrySyncMessage_InvalidJSON(t *testing.T) {
	if _, err := EntrySyncMessageFromJSON([]byte(`{"entry_id": 42`)); err == nil {
		t.Error("EntrySyncMessageFromJSON() should fail with invalid JSON")
	}
}
