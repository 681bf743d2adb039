package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensed/internal/amqp"
	"expensed/internal/core"
)

// NotificationStore persists notification records.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n core.Notification) (int64, error)
}

// EventPublisher pushes dispatch events to the notification worker.
type EventPublisher interface {
	PublishNotification(ctx context.Context, event *amqp.NotificationEvent) error
}

// Notifier turns qualifying expenses into persisted large-expense
// notifications.
type Notifier struct {
	store          NotificationStore
	publisher      EventPublisher // nil disables dispatch events
	thresholdCents int64
}

func NewNotifier(store NotificationStore, publisher EventPublisher, thresholdCents int64) *Notifier {
	return &Notifier{
		store:          store,
		publisher:      publisher,
		thresholdCents: thresholdCents,
	}
}

// Evaluate persists a notification when the expense meets the threshold
// (inclusive) and returns it; below the threshold it returns (nil, nil).
// The notification is durable before Evaluate returns, so callers never
// need to retry.
func (n *Notifier) Evaluate(ctx context.Context, expense core.Expense) (*core.Notification, error) {
	if expense.Amount.Cents < n.thresholdCents {
		return nil, nil
	}

	notification := core.Notification{
		UserID: expense.UserID,
		Kind:   core.NotificationLargeExpense,
		Message: fmt.Sprintf("Large expense recorded: $%s on %s",
			expense.Amount, expense.Date),
	}

	id, err := n.store.InsertNotification(ctx, notification)
	if err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	notification.ID = id

	slog.InfoContext(ctx, "Large expense notification created",
		"user_id", expense.UserID,
		"expense_id", expense.ID,
		"amount_cents", expense.Amount.Cents)

	if n.publisher != nil {
		// Best effort: the worker's periodic scan of undispatched rows
		// covers a lost event.
		event := amqp.NewNotificationEvent(id, expense.UserID, notification.Kind)
		if err := n.publisher.PublishNotification(ctx, event); err != nil {
			slog.WarnContext(ctx, "Failed to publish notification event",
				"id", id,
				"error", err)
		}
	}

	return &notification, nil
}
