package amqp

import (
	"encoding/json"
	"time"
)

// NotificationEvent is the lightweight message published when a notification
// row is created. The worker fetches the full record from the database, so
// the event only needs to identify it.
type NotificationEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationEvent(id, userID int64, kind string) *NotificationEvent {
	return &NotificationEvent{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (e *NotificationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func NotificationEventFromJSON(data []byte) (*NotificationEvent, error) {
	var e NotificationEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
