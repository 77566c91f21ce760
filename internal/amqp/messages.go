package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind discriminates the messages sharing the sync queue.
type MessageKind string

const (
	KindIntakeSync   MessageKind = "intake_sync"
	KindIntakeRevert MessageKind = "intake_revert"
)

// IntakeMessage is the lightweight sync payload. It carries only the entry
// id and amount; the worker fetches the full entry from the database.
type IntakeMessage struct {
	Kind      MessageKind `json:"kind"`
	ID        string      `json:"id"`
	AmountML  int         `json:"amount_ml,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewIntakeSyncMessage announces a newly recorded entry.
func NewIntakeSyncMessage(id string, amountML int) *IntakeMessage {
	return &IntakeMessage{
		Kind:      KindIntakeSync,
		ID:        id,
		AmountML:  amountML,
		Timestamp: time.Now(),
	}
}

// NewIntakeRevertMessage announces a soft-reverted entry.
func NewIntakeRevertMessage(id string) *IntakeMessage {
	return &IntakeMessage{
		Kind:      KindIntakeRevert,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *IntakeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IntakeMessageFromJSON parses and validates a message off the wire.
func IntakeMessageFromJSON(data []byte) (*IntakeMessage, error) {
	var msg IntakeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindIntakeSync, KindIntakeRevert:
	default:
		return nil, fmt.Errorf("unknown message kind: %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message missing entry id")
	}
	return &msg, nil
}
