package services

import (
	"context"
	"errors"
	"fmt"

	"expensed/internal/amqp"
	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

// DispatchStore is the slice of storage the dispatcher needs.
type DispatchStore interface {
	GetNotification(ctx context.Context, id int64) (*core.Notification, error)
	MarkNotificationDispatched(ctx context.Context, id int64) error
	ListUndispatchedNotifications(ctx context.Context, limit int) ([]core.Notification, error)
}

// ErrNotificationGone signals an event whose notification row no longer
// exists; the message must not be requeued.
var ErrNotificationGone = errors.New("notification no longer exists")

// Dispatcher delivers persisted notifications and records the delivery.
// Delivery here is emitting the structured record consumers tail; the
// dispatched flag keeps redeliveries and the backup scan idempotent.
type Dispatcher struct {
	store     DispatchStore
	logger    *log.Logger
	batchSize int
}

func NewDispatcher(store DispatchStore, logger *log.Logger, batchSize int) *Dispatcher {
	return &Dispatcher{
		store:     store,
		logger:    logger,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single notification event from the queue.
func (d *Dispatcher) HandleEvent(ctx context.Context, event *amqp.NotificationEvent) error {
	notification, err := d.store.GetNotification(ctx, event.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			d.logger.WarnContext(ctx, "Notification event references missing row",
				"notification_id", event.ID)
			return ErrNotificationGone
		}
		return fmt.Errorf("get notification %d: %w", event.ID, err)
	}

	return d.dispatch(ctx, *notification)
}

// ProcessUndispatched delivers notifications whose queue event was lost.
// This is a backup mechanism; the normal path is HandleEvent.
func (d *Dispatcher) ProcessUndispatched(ctx context.Context) error {
	pending, err := d.store.ListUndispatchedNotifications(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("list undispatched notifications: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	d.logger.InfoContext(ctx, "Processing undispatched notifications", "count", len(pending))

	for _, notification := range pending {
		if err := d.dispatch(ctx, notification); err != nil {
			d.logger.ErrorContext(ctx, "Failed to dispatch notification",
				"notification_id", notification.ID,
				"error", err)
		}
	}
	return nil
}

// StartupCheck drains the backlog left over from downtime with a larger
// batch than the periodic scan.
func (d *Dispatcher) StartupCheck(ctx context.Context) error {
	pending, err := d.store.ListUndispatchedNotifications(ctx, d.batchSize*5)
	if err != nil {
		return fmt.Errorf("list undispatched notifications on startup: %w", err)
	}
	if len(pending) == 0 {
		d.logger.InfoContext(ctx, "No undispatched notifications found on startup")
		return nil
	}

	d.logger.InfoContext(ctx, "Found undispatched notifications on startup",
		"count", len(pending))

	dispatched := 0
	for _, notification := range pending {
		if err := d.dispatch(ctx, notification); err != nil {
			d.logger.ErrorContext(ctx, "Failed to dispatch notification on startup",
				"notification_id", notification.ID,
				"error", err)
			continue
		}
		dispatched++
	}

	d.logger.InfoContext(ctx, "Startup dispatch complete",
		"dispatched", dispatched,
		"failed", len(pending)-dispatched)
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, notification core.Notification) error {
	// The structured record is the delivery channel.
	d.logger.InfoContext(ctx, "Notification dispatched",
		"notification_id", notification.ID,
		log.FieldUserID, notification.UserID,
		"kind", notification.Kind,
		"message", notification.Message)

	if err := d.store.MarkNotificationDispatched(ctx, notification.ID); err != nil {
		return fmt.Errorf("mark notification %d dispatched: %w", notification.ID, err)
	}
	return nil
}
