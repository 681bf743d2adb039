package http

import (
	"errors"
	"net/http"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

type expenseRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CategoryID  int64  `json:"category_id"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CategoryID  int64  `json:"category_id"`
	RuleID      *int64 `json:"rule_id,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Date:        e.Date.String(),
		CategoryID:  e.CategoryID,
		RuleID:      e.RuleID,
	}
}

// expenseFromRequest validates and converts the wire form to a domain
// expense owned by the caller.
func (s *Server) expenseFromRequest(r *http.Request, req expenseRequest, userID int64) (core.Expense, string) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Expense{}, "invalid amount"
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Expense{}, "invalid date, expected YYYY-MM-DD"
	}

	expense := core.Expense{
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Date:        date,
		UserID:      userID,
		CategoryID:  req.CategoryID,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err.Error()
	}

	exists, err := s.storage.CategoryExists(r.Context(), req.CategoryID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to check category", "error", err)
		return core.Expense{}, "internal error"
	}
	if !exists {
		return core.Expense{}, "unknown category"
	}

	return expense, ""
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, problem := s.expenseFromRequest(r, req, identity.UserID)
	if problem == "internal error" {
		writeError(w, http.StatusInternalServerError, problem)
		return
	}
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	id, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create expense",
			log.FieldUserID, identity.UserID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	expense.ID = id

	s.logger.InfoContext(r.Context(), "Expense created",
		log.FieldUserID, identity.UserID,
		log.FieldExpenseID, id,
		log.FieldAmount, expense.Amount.Cents)

	// Threshold evaluation happens for manual entries exactly as for
	// materialized ones.
	if s.notifier != nil {
		if _, err := s.notifier.Evaluate(r.Context(), expense); err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to evaluate notification",
				log.FieldExpenseID, id,
				"error", err)
		}
	}

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	expenses, err := s.storage.ListExpensesByUser(r.Context(), identity.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses",
			log.FieldUserID, identity.UserID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := s.storage.GetExpense(r.Context(), id, identity.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to get expense",
			log.FieldExpenseID, id,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(*expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, problem := s.expenseFromRequest(r, req, identity.UserID)
	if problem == "internal error" {
		writeError(w, http.StatusInternalServerError, problem)
		return
	}
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}
	expense.ID = id

	if err := s.storage.UpdateExpense(r.Context(), expense); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to update expense",
			log.FieldExpenseID, id,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.storage.DeleteExpense(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldExpenseID, id,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.InfoContext(r.Context(), "Expense deleted",
		log.FieldUserID, identity.UserID,
		log.FieldExpenseID, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type categoryResponse struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "category name required")
		return
	}

	id, err := s.storage.CreateCategory(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "category already exists")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to create category", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "name": name})
}
