package storage

import (
	"context"
	"fmt"
	"log/slog"

	"expensed/internal/core"
	"expensed/internal/log"
)

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_rules
		 (amount_cents, description, kind, start_date, anchor_date, end_date, active, user_id, category_id)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		rule.Amount.Cents, rule.Description, string(rule.Kind),
		encodeDate(rule.StartDate), encodeDate(rule.AnchorDate), encodeDate(rule.EndDate),
		rule.UserID, rule.CategoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("create rule: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) ListRulesByUser(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	return r.queryRules(ctx,
		`SELECT id, amount_cents, description, kind, start_date, anchor_date, end_date, active, user_id, category_id
		 FROM recurring_rules WHERE user_id = ? ORDER BY id`, userID)
}

// ListActiveRules returns every rule still eligible for materialization,
// across all users. Sweeps iterate this set.
func (r *SQLiteRepository) ListActiveRules(ctx context.Context) ([]core.RecurringRule, error) {
	return r.queryRules(ctx,
		`SELECT id, amount_cents, description, kind, start_date, anchor_date, end_date, active, user_id, category_id
		 FROM recurring_rules WHERE active = 1 ORDER BY id`)
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM recurring_rules WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return requireRow(res)
}

// MaterializeOccurrence inserts the expense for one due occurrence and
// advances the rule's anchor date in a single transaction, so a crash can
// produce neither a duplicate nor a silently skipped occurrence. The unique
// index on (rule_id, occurred_on) backs the same invariant at the schema
// level.
func (r *SQLiteRepository) MaterializeOccurrence(ctx context.Context, rule core.RecurringRule, occurrence core.Date) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin materialize tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, description, occurred_on, user_id, category_id, rule_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rule.Amount.Cents, rule.Description, encodeDate(occurrence),
		rule.UserID, rule.CategoryID, rule.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert occurrence: %w", err)
	}
	expenseID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("occurrence insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE recurring_rules SET anchor_date = ? WHERE id = ?",
		encodeDate(occurrence), rule.ID,
	); err != nil {
		return 0, fmt.Errorf("advance anchor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit materialize tx: %w", err)
	}

	slog.InfoContext(ctx, "Materialized occurrence",
		log.FieldRuleID, rule.ID,
		log.FieldExpenseID, expenseID,
		log.FieldOccurrence, occurrence.String())

	return expenseID, nil
}

// DeactivateRule excludes a rule from future sweeps once its next occurrence
// would pass the end date.
func (r *SQLiteRepository) DeactivateRule(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE recurring_rules SET active = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		var (
			rule                    core.RecurringRule
			kind, start, anchor, end string
		)
		if err := rows.Scan(&rule.ID, &rule.Amount.Cents, &rule.Description, &kind,
			&start, &anchor, &end, &rule.Active, &rule.UserID, &rule.CategoryID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Kind = core.RecurrenceKind(kind)
		if rule.StartDate, err = decodeDate(start); err != nil {
			return nil, err
		}
		if rule.AnchorDate, err = decodeDate(anchor); err != nil {
			return nil, err
		}
		if rule.EndDate, err = decodeDate(end); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
