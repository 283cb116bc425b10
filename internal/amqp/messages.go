package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types on the sync queue.
const (
	TypePostSync   = "post.sync"
	TypePostDelete = "post.delete"
)

// SyncMessage is the envelope on the wire. Sync messages carry only the
// post ID and version, the worker fetches the full post from the database.
// Delete messages carry the ID alone.
type SyncMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPostSyncMessage creates a sync message with just ID and version.
func NewPostSyncMessage(id, version int64) *SyncMessage {
	return &SyncMessage{
		Type:      TypePostSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewPostDeleteMessage creates a delete notification for a post.
func NewPostDeleteMessage(id int64) *SyncMessage {
	return &SyncMessage{
		Type:      TypePostDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON parses and validates a message from JSON bytes.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypePostSync, TypePostDelete:
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}
