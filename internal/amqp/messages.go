package amqp

import (
	"encoding/json"
	"time"
)

const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// RecordChangeMessage is a lightweight change notification for a target
// record. It carries only identifiers; the worker fetches the full row from
// storage when it needs one.
type RecordChangeMessage struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	EntityID  int64     `json:"entityId"`
	Period    string    `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUpsertMessage builds a change message for a created or updated record.
func NewUpsertMessage(id int64, kind string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Action:    ActionUpsert,
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// NewDeleteMessage builds a change message for a deleted record. Entity and
// period ride along so the mirror can locate the row without storage.
func NewDeleteMessage(id int64, kind string, entityID int64, period string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Action:    ActionDelete,
		ID:        id,
		Kind:      kind,
		EntityID:  entityID,
		Period:    period,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
