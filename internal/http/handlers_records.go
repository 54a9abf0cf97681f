package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type expenseRequest struct {
	Title    string     `json:"title"`
	Amount   core.Money `json:"amount"`
	Category string     `json:"category"`
	Notes    string     `json:"notes"`
}

type incomeRequest struct {
	Amount      core.Money `json:"amount"`
	Source      string     `json:"source"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.store.ListExpenses(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !readJSON(w, r, &req) {
		return
	}

	rec, err := s.store.InsertExpense(r.Context(), core.ExpenseRecord{
		UserID:   userID,
		Title:    sanitizeInput(req.Title),
		Amount:   req.Amount,
		Category: sanitizeInput(req.Category),
		Notes:    sanitizeInput(req.Notes),
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.dashboardCache.Delete(userID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteExpense(r.Context(), userID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete expense failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	s.dashboardCache.Delete(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.store.ListIncome(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List income failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load income")
		return
	}
	if records == nil {
		records = []core.IncomeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req incomeRequest
	if !readJSON(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, want RFC3339")
			return
		}
		date = parsed
	}

	rec, err := s.store.InsertIncome(r.Context(), core.IncomeRecord{
		UserID:      userID,
		Amount:      req.Amount,
		Source:      sanitizeInput(req.Source),
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.dashboardCache.Delete(userID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteIncome(r.Context(), userID, r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "income not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete income failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete income")
		return
	}

	s.dashboardCache.Delete(userID)
	w.WriteHeader(http.StatusNoContent)
}
