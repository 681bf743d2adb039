// Package services orchestrates recurring-expense materialization and
// threshold notifications over the storage layer.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"expensed/internal/core"
)

// RuleStore is the slice of the ledger store the materializer needs. The
// SQLite repository implements it; tests substitute an in-memory fake.
type RuleStore interface {
	ListActiveRules(ctx context.Context) ([]core.RecurringRule, error)
	// MaterializeOccurrence must insert the expense and advance the rule's
	// anchor date atomically.
	MaterializeOccurrence(ctx context.Context, rule core.RecurringRule, occurrence core.Date) (int64, error)
	DeactivateRule(ctx context.Context, id int64) error
}

// RuleError ties a sweep failure to the rule that caused it.
type RuleError struct {
	RuleID int64
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %d: %v", e.RuleID, e.Err)
}

func (e RuleError) Unwrap() error {
	return e.Err
}

// SweepReport summarizes one materialization sweep. Created counts expense
// instances; Skipped counts rules that produced none.
type SweepReport struct {
	Created int
	Skipped int
	Errors  []RuleError
}

// Materializer projects due occurrences of active recurring rules into
// concrete expense records.
type Materializer struct {
	rules    RuleStore
	notifier *Notifier
}

func NewMaterializer(rules RuleStore, notifier *Notifier) *Materializer {
	return &Materializer{
		rules:    rules,
		notifier: notifier,
	}
}

// RunSweep materializes every occurrence due on or before asOf, per rule in
// date order. A failing rule is recorded in the report and does not stop the
// sweep; errors are never propagated to the caller.
func (m *Materializer) RunSweep(ctx context.Context, asOf core.Date) SweepReport {
	var report SweepReport

	rules, err := m.rules.ListActiveRules(ctx)
	if err != nil {
		report.Errors = append(report.Errors, RuleError{Err: fmt.Errorf("list active rules: %w", err)})
		return report
	}

	slog.InfoContext(ctx, "Starting materialization sweep",
		"total_active", len(rules),
		"sweep_as_of", asOf.String())

	for _, rule := range rules {
		created, err := m.sweepRule(ctx, rule, asOf)
		report.Created += created
		if err != nil {
			slog.ErrorContext(ctx, "Rule sweep failed",
				"rule_id", rule.ID,
				"error", err)
			report.Errors = append(report.Errors, RuleError{RuleID: rule.ID, Err: err})
			continue
		}
		if created == 0 {
			report.Skipped++
		}
	}

	slog.InfoContext(ctx, "Materialization sweep complete",
		"created", report.Created,
		"skipped", report.Skipped,
		"errors", len(report.Errors))

	return report
}

func (m *Materializer) sweepRule(ctx context.Context, rule core.RecurringRule, asOf core.Date) (int, error) {
	created := 0

	next, err := core.NextOccurrence(rule.AnchorDate, rule.Kind)
	if err != nil {
		// Data-integrity fault; retrying will not help.
		return 0, err
	}

	for !next.After(asOf.Time) && !next.After(rule.EndDate.Time) {
		expenseID, err := m.rules.MaterializeOccurrence(ctx, rule, next)
		if err != nil {
			return created, fmt.Errorf("materialize occurrence %s: %w", next, err)
		}
		created++

		expense := core.Expense{
			ID:          expenseID,
			Amount:      rule.Amount,
			Description: rule.Description,
			Date:        next,
			UserID:      rule.UserID,
			CategoryID:  rule.CategoryID,
			RuleID:      &rule.ID,
		}
		if m.notifier != nil {
			// The expense and anchor advance are already committed; a
			// notification failure must not roll the occurrence back.
			if _, err := m.notifier.Evaluate(ctx, expense); err != nil {
				slog.ErrorContext(ctx, "Notification evaluation failed",
					"rule_id", rule.ID,
					"expense_id", expenseID,
					"error", err)
			}
		}

		rule.AnchorDate = next
		if next, err = core.NextOccurrence(next, rule.Kind); err != nil {
			return created, err
		}
	}

	// Nothing left inside the validity window: retire the rule from
	// future sweeps.
	if next.After(rule.EndDate.Time) {
		if err := m.rules.DeactivateRule(ctx, rule.ID); err != nil {
			return created, fmt.Errorf("deactivate rule: %w", err)
		}
	}

	return created, nil
}
