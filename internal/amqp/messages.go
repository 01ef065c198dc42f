package amqp

import (
	"encoding/json"
	"time"
)

// EntrySyncMessage asks the sync worker to export one ledger entry. It
// carries only the entry id; the worker fetches the full entry from the
// store, so a stale message can never overwrite fresher data.
type EntrySyncMessage struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(entryID string) *EntrySyncMessage {
	return &EntrySyncMessage{
		EntryID:   entryID,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
