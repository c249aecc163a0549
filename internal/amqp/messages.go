package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"lifedash/internal/core"
)

// Operations carried by a RecordChangedMessage.
const (
	OperationCreate  = "create"
	OperationDelete  = "delete"
	OperationRebuild = "rebuild"
)

// RecordChangedMessage announces that one dataset changed. It carries only
// the kind and id; consumers reload whatever they need.
type RecordChangedMessage struct {
	Kind      core.RecordKind `json:"kind"`
	RecordID  string          `json:"record_id,omitempty"`
	Operation string          `json:"operation"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewRecordChangedMessage creates a message stamped with the current time.
func NewRecordChangedMessage(kind core.RecordKind, id, operation string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		RecordID:  id,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownKind, msg.Kind)
	}
	switch msg.Operation {
	case OperationCreate, OperationDelete, OperationRebuild:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
