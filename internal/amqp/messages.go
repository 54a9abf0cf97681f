package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// ChangeMessage is the lightweight notification published for every record
// change. It carries identity only; consumers fetch the current record from
// the store, so a stale message never overwrites newer data.
type ChangeMessage struct {
	Kind      core.RecordKind `json:"kind"`
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChangeMessage creates a change notification stamped with the current time.
func NewChangeMessage(kind core.RecordKind, eventType, id, userID string) *ChangeMessage {
	return &ChangeMessage{
		Kind:      kind,
		Type:      eventType,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
