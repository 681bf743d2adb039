package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"expensed/internal/core"
)

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, description, occurred_on, user_id, category_id, rule_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Amount.Cents, e.Description, encodeDate(e.Date), e.UserID, e.CategoryID, e.RuleID,
	)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"amount_cents", e.Amount.Cents,
		"occurred_on", e.Date.String())

	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id, userID int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents, description, occurred_on, user_id, category_id, rule_id
		 FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	e, err := scanExpense(row.Scan)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, occurred_on, user_id, category_id, rule_id
		 FROM expenses WHERE user_id = ? ORDER BY occurred_on DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, description = ?, occurred_on = ?, category_id = ?
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Description, encodeDate(e.Date), e.CategoryID, e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func scanExpense(scan func(...any) error) (*core.Expense, error) {
	var (
		e          core.Expense
		occurredOn string
		ruleID     sql.NullInt64
	)
	err := scan(&e.ID, &e.Amount.Cents, &e.Description, &occurredOn, &e.UserID, &e.CategoryID, &ruleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	if e.Date, err = decodeDate(occurredOn); err != nil {
		return nil, err
	}
	if ruleID.Valid {
		e.RuleID = &ruleID.Int64
	}
	return &e, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
