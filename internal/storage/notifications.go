package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expensed/internal/core"
)

func (r *SQLiteRepository) InsertNotification(ctx context.Context, n core.Notification) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, kind) VALUES (?, ?, ?)",
		n.UserID, n.Message, n.Kind,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetNotification(ctx context.Context, id int64) (*core.Notification, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, message, kind, created_at, is_read FROM notifications WHERE id = ?",
		id,
	)
	var n core.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.CreatedAt, &n.Read)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	return &n, nil
}

func (r *SQLiteRepository) ListNotificationsByUser(ctx context.Context, userID int64) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, kind, created_at, is_read
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []core.Notification
	for rows.Next() {
		var n core.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flips the read flag; the transition is one-way.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(res)
}

// MarkNotificationDispatched records that the notification worker delivered
// this notification downstream. Idempotent.
func (r *SQLiteRepository) MarkNotificationDispatched(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET dispatched_at = CURRENT_TIMESTAMP WHERE id = ? AND dispatched_at IS NULL",
		id,
	); err != nil {
		return fmt.Errorf("mark notification dispatched: %w", err)
	}
	return nil
}

// ListUndispatchedNotifications returns notifications the worker has not yet
// delivered, oldest first. Backup path for lost queue messages.
func (r *SQLiteRepository) ListUndispatchedNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, kind, created_at, is_read
		 FROM notifications WHERE dispatched_at IS NULL ORDER BY id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list undispatched notifications: %w", err)
	}
	defer rows.Close()

	var notifications []core.Notification
	for rows.Next() {
		var n core.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Kind, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
