package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Change operations carried by RecordChangedMessage.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// RecordChangedMessage announces a ledger mutation. It carries identifiers
// only; consumers re-read the record from the repository.
type RecordChangedMessage struct {
	Scope     string    `json:"scope"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(scope, kind, op, id string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Scope:     scope,
		Kind:      kind,
		Op:        op,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes a message and checks its required fields.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.ID == "" {
		return nil, errors.New("message missing kind or id")
	}
	switch msg.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return nil, errors.New("message has unknown op " + msg.Op)
	}
	return &msg, nil
}
