package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"expensed/internal/amqp"
	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

type fakeDispatchStore struct {
	notifications map[int64]*core.Notification
	dispatched    map[int64]bool
}

func newFakeDispatchStore(ids ...int64) *fakeDispatchStore {
	s := &fakeDispatchStore{
		notifications: make(map[int64]*core.Notification),
		dispatched:    make(map[int64]bool),
	}
	for _, id := range ids {
		s.notifications[id] = &core.Notification{
			ID:      id,
			UserID:  1,
			Kind:    core.NotificationLargeExpense,
			Message: "Large expense recorded: $1000.00 on 2024-03-15",
		}
	}
	return s
}

func (s *fakeDispatchStore) GetNotification(_ context.Context, id int64) (*core.Notification, error) {
	n, ok := s.notifications[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return n, nil
}

func (s *fakeDispatchStore) MarkNotificationDispatched(_ context.Context, id int64) error {
	s.dispatched[id] = true
	return nil
}

func (s *fakeDispatchStore) ListUndispatchedNotifications(_ context.Context, limit int) ([]core.Notification, error) {
	var pending []core.Notification
	for id, n := range s.notifications {
		if !s.dispatched[id] {
			pending = append(pending, *n)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func dispatchLogger() *log.Logger {
	return log.New(slog.LevelError, log.ComponentWorker)
}

func TestHandleEventMarksDispatched(t *testing.T) {
	store := newFakeDispatchStore(7)
	d := NewDispatcher(store, dispatchLogger(), 10)

	event := amqp.NewNotificationEvent(7, 1, core.NotificationLargeExpense)
	if err := d.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !store.dispatched[7] {
		t.Error("notification not marked dispatched")
	}
}

func TestHandleEventMissingNotification(t *testing.T) {
	store := newFakeDispatchStore()
	d := NewDispatcher(store, dispatchLogger(), 10)

	event := amqp.NewNotificationEvent(99, 1, core.NotificationLargeExpense)
	err := d.HandleEvent(context.Background(), event)
	if !errors.Is(err, ErrNotificationGone) {
		t.Fatalf("HandleEvent error = %v, want ErrNotificationGone", err)
	}
}

func TestProcessUndispatchedDrainsBacklog(t *testing.T) {
	store := newFakeDispatchStore(1, 2, 3)
	d := NewDispatcher(store, dispatchLogger(), 10)

	if err := d.ProcessUndispatched(context.Background()); err != nil {
		t.Fatalf("ProcessUndispatched: %v", err)
	}
	for id := int64(1); id <= 3; id++ {
		if !store.dispatched[id] {
			t.Errorf("notification %d not dispatched", id)
		}
	}

	// Nothing left; a second pass is a no-op.
	if err := d.ProcessUndispatched(context.Background()); err != nil {
		t.Fatalf("second ProcessUndispatched: %v", err)
	}
}
