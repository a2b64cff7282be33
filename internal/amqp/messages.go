package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage tells the worker that a new plan revision was
// persisted. It carries only the revision number; the worker reads the
// full snapshot from the database, so a burst of messages collapses
// into one sync of the latest state.
type SnapshotSyncMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotSyncMessage(revision int64) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
