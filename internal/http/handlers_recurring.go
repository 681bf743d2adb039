package http

import (
	"errors"
	"net/http"

	"expensed/internal/core"
	"expensed/internal/log"
	"expensed/internal/storage"
)

type ruleRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	CategoryID  int64  `json:"category_id"`
}

type ruleResponse struct {
	ID          int64  `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	StartDate   string `json:"start_date"`
	AnchorDate  string `json:"anchor_date"`
	EndDate     string `json:"end_date"`
	Active      bool   `json:"active"`
	CategoryID  int64  `json:"category_id"`
}

func toRuleResponse(rule core.RecurringRule) ruleResponse {
	return ruleResponse{
		ID:          rule.ID,
		Amount:      rule.Amount.String(),
		Description: rule.Description,
		Kind:        string(rule.Kind),
		StartDate:   rule.StartDate.String(),
		AnchorDate:  rule.AnchorDate.String(),
		EndDate:     rule.EndDate.String(),
		Active:      rule.Active,
		CategoryID:  rule.CategoryID,
	}
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	rule := core.RecurringRule{
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Kind:        core.RecurrenceKind(req.Kind),
		StartDate:   startDate,
		AnchorDate:  startDate,
		EndDate:     endDate,
		Active:      true,
		UserID:      identity.UserID,
		CategoryID:  req.CategoryID,
	}
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := s.storage.CategoryExists(r.Context(), req.CategoryID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to check category", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !exists {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	id, err := s.storage.CreateRule(r.Context(), rule)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create recurring rule",
			log.FieldUserID, identity.UserID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	rule.ID = id

	s.logger.InfoContext(r.Context(), "Recurring rule created",
		log.FieldUserID, identity.UserID,
		log.FieldRuleID, id,
		"kind", req.Kind)

	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	rules, err := s.storage.ListRulesByUser(r.Context(), identity.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list recurring rules",
			log.FieldUserID, identity.UserID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDeleteRule removes the rule template. Expenses it already
// materialized stay in the ledger.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := s.storage.DeleteRule(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete recurring rule",
			log.FieldRuleID, id,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.InfoContext(r.Context(), "Recurring rule deleted",
		log.FieldUserID, identity.UserID,
		log.FieldRuleID, id)

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
