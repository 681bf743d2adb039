package amqp

import (
	"testing"
	"time"
)

func TestNewNotificationEvent(t *testing.T) {
	event := NewNotificationEvent(12, 7, "large_expense")

	if event.ID != 12 || event.UserID != 7 || event.Kind != "large_expense" {
		t.Errorf("NewNotificationEvent() = %+v", event)
	}
	if event.Timestamp.IsZero() {
		t.Error("NewNotificationEvent() Timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("NewNotificationEvent() Timestamp should be recent")
	}
}

func TestNotificationEventFromJSON_Invalid(t *testing.T) {
	if _, err := NotificationEventFromJSON([]byte(`{"id": "not_a_number"}`)); err == nil {
		t.Error("NotificationEventFromJSON() should fail with invalid JSON")
	}
}
