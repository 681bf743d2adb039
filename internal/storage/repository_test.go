package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"expensed/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, int64, int64) {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	userID, err := repo.CreateUser(ctx, "test@example.com", "tester", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	categoryID, err := repo.CreateCategory(ctx, "Groceries")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return repo, userID, categoryID
}

func TestCreateUserDuplicate(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "test@example.com", "other", "hash"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email error = %v, want ErrDuplicate", err)
	}
	if _, err := repo.CreateUser(ctx, "other@example.com", "tester", "hash"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username error = %v, want ErrDuplicate", err)
	}
}

func TestExpenseOwnership(t *testing.T) {
	repo, userID, categoryID := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateExpense(ctx, core.Expense{
		Amount:      core.Money{Cents: 1500},
		Description: "Lunch",
		Date:        core.NewDate(2024, 3, 15),
		UserID:      userID,
		CategoryID:  categoryID,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	otherID, err := repo.CreateUser(ctx, "intruder@example.com", "intruder", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := repo.GetExpense(ctx, id, otherID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user GetExpense error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, id, otherID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user DeleteExpense error = %v, want ErrNotFound", err)
	}

	got, err := repo.GetExpense(ctx, id, userID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Description != "Lunch" || got.Amount.Cents != 1500 {
		t.Errorf("expense = %+v, want Lunch at 1500 cents", got)
	}
	if got.RuleID != nil {
		t.Errorf("manual expense RuleID = %v, want nil", got.RuleID)
	}
}

func TestMaterializeOccurrence(t *testing.T) {
	repo, userID, categoryID := newTestRepo(t)
	ctx := context.Background()

	ruleID, err := repo.CreateRule(ctx, core.RecurringRule{
		Amount:      core.Money{Cents: 999},
		Description: "Streaming",
		Kind:        core.Monthly,
		StartDate:   core.NewDate(2024, 1, 15),
		AnchorDate:  core.NewDate(2024, 1, 15),
		EndDate:     core.NewDate(2024, 12, 31),
		UserID:      userID,
		CategoryID:  categoryID,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	rules, err := repo.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("active rules = %d, want 1", len(rules))
	}
	rule := rules[0]

	occurrence := core.NewDate(2024, 2, 15)
	expenseID, err := repo.MaterializeOccurrence(ctx, rule, occurrence)
	if err != nil {
		t.Fatalf("MaterializeOccurrence: %v", err)
	}

	expense, err := repo.GetExpense(ctx, expenseID, userID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if expense.RuleID == nil || *expense.RuleID != ruleID {
		t.Errorf("expense RuleID = %v, want %d", expense.RuleID, ruleID)
	}
	if !expense.Date.Equal(occurrence.Time) {
		t.Errorf("expense date = %s, want %s", expense.Date, occurrence)
	}

	rules, err = repo.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	if !rules[0].AnchorDate.Equal(occurrence.Time) {
		t.Errorf("anchor = %s, want %s after materialization", rules[0].AnchorDate, occurrence)
	}

	// The unique index rejects a second expense for the same occurrence.
	if _, err := repo.MaterializeOccurrence(ctx, rule, occurrence); err == nil {
		t.Error("duplicate occurrence insert succeeded, want unique violation")
	}
}

func TestDeactivateRule(t *testing.T) {
	repo, userID, categoryID := newTestRepo(t)
	ctx := context.Background()

	ruleID, err := repo.CreateRule(ctx, core.RecurringRule{
		Amount:      core.Money{Cents: 999},
		Description: "Gym",
		Kind:        core.Weekly,
		StartDate:   core.NewDate(2024, 1, 1),
		AnchorDate:  core.NewDate(2024, 1, 1),
		EndDate:     core.NewDate(2024, 1, 31),
		UserID:      userID,
		CategoryID:  categoryID,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	if err := repo.DeactivateRule(ctx, ruleID); err != nil {
		t.Fatalf("DeactivateRule: %v", err)
	}

	active, err := repo.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active rules = %d, want 0", len(active))
	}

	// The owner still sees the retired rule.
	all, err := repo.ListRulesByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListRulesByUser: %v", err)
	}
	if len(all) != 1 || all[0].Active {
		t.Errorf("rules by user = %+v, want one inactive rule", all)
	}
}

func TestRevokedTokens(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	revoked, err := repo.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("unknown jti reported as revoked")
	}

	if err := repo.RevokeToken(ctx, "jti-1"); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	// Revoking again is a no-op, not an error.
	if err := repo.RevokeToken(ctx, "jti-1"); err != nil {
		t.Fatalf("second RevokeToken: %v", err)
	}

	revoked, err = repo.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("revoked jti reported as valid")
	}
}

func TestNotificationLifecycle(t *testing.T) {
	repo, userID, _ := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertNotification(ctx, core.Notification{
		UserID:  userID,
		Message: "Large expense recorded: $1000.00 on 2024-03-15",
		Kind:    core.NotificationLargeExpense,
	})
	if err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	list, err := repo.ListNotificationsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListNotificationsByUser: %v", err)
	}
	if len(list) != 1 || list[0].Read {
		t.Fatalf("notifications = %+v, want one unread", list)
	}

	otherID, err := repo.CreateUser(ctx, "other@example.com", "other", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.MarkNotificationRead(ctx, id, otherID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user MarkNotificationRead error = %v, want ErrNotFound", err)
	}

	if err := repo.MarkNotificationRead(ctx, id, userID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	// Marking an already-read notification stays OK.
	if err := repo.MarkNotificationRead(ctx, id, userID); err != nil {
		t.Fatalf("second MarkNotificationRead: %v", err)
	}

	list, err = repo.ListNotificationsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListNotificationsByUser: %v", err)
	}
	if !list[0].Read {
		t.Error("notification still unread after MarkNotificationRead")
	}
}

func TestUndispatchedNotifications(t *testing.T) {
	repo, userID, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.InsertNotification(ctx, core.Notification{
		UserID: userID, Message: "m1", Kind: core.NotificationLargeExpense,
	})
	if err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}
	if _, err := repo.InsertNotification(ctx, core.Notification{
		UserID: userID, Message: "m2", Kind: core.NotificationLargeExpense,
	}); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	pending, err := repo.ListUndispatchedNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("ListUndispatchedNotifications: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("undispatched = %d, want 2", len(pending))
	}

	if err := repo.MarkNotificationDispatched(ctx, first); err != nil {
		t.Fatalf("MarkNotificationDispatched: %v", err)
	}
	// Idempotent on redelivery.
	if err := repo.MarkNotificationDispatched(ctx, first); err != nil {
		t.Fatalf("second MarkNotificationDispatched: %v", err)
	}

	pending, err = repo.ListUndispatchedNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("ListUndispatchedNotifications: %v", err)
	}
	if len(pending) != 1 || pending[0].ID == first {
		t.Errorf("undispatched = %+v, want only the second notification", pending)
	}
}
