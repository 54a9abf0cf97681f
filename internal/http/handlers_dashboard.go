package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type summaryResponse struct {
	TotalIncome   core.Money `json:"totalIncome"`
	TotalBorrowed core.Money `json:"totalBorrowed"`
	TotalExpenses core.Money `json:"totalExpenses"`
	NetSavings    core.Money `json:"netSavings"`
}

// handleSummary returns the headline totals for an optional [from, to] range.
// Absent bounds cover everything.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		expenses []core.ExpenseRecord
		income   []core.IncomeRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpensesRange(ctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.store.ListIncomeRange(ctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Summary fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	var resp summaryResponse
	for _, in := range income {
		if in.Source == core.BorrowedSource {
			resp.TotalBorrowed.Cents += in.Amount.Cents
		} else {
			resp.TotalIncome.Cents += in.Amount.Cents
		}
	}
	for _, e := range expenses {
		resp.TotalExpenses.Cents += e.Amount.Cents
	}
	resp.NetSavings.Cents = resp.TotalIncome.Cents + resp.TotalBorrowed.Cents - resp.TotalExpenses.Cents

	writeJSON(w, http.StatusOK, resp)
}

func parseRange(r *http.Request) (from, to time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'from' parameter, want RFC3339")
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'to' parameter, want RFC3339")
		}
	}
	return from, to, nil
}

// handleDashboard returns the complete view model, cached briefly per user.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	if d, found := s.dashboardCache.Get(userID); found {
		writeJSON(w, http.StatusOK, d)
		return
	}

	var (
		expenses []core.ExpenseRecord
		income   []core.IncomeRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.store.ListIncome(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	d := core.BuildDashboard(expenses, income, time.Now())
	s.dashboardCache.Set(userID, d)
	writeJSON(w, http.StatusOK, d)
}

// handleEvents streams recomputed dashboards over SSE whenever one of the
// caller's records changes. The live mirrors supply the data, so no query
// hits the database per event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	expenseSub := s.store.ExpenseFeed().Subscribe()
	defer expenseSub.Close()
	incomeSub := s.store.IncomeFeed().Subscribe()
	defer incomeSub.Close()

	send := func() bool {
		d := s.liveDashboard(userID)
		payload, err := json.Marshal(d)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to marshal dashboard event", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: dashboard\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-expenseSub.C:
			if !open {
				return
			}
			if ownsExpenseEvent(ev, userID) && !send() {
				return
			}
		case ev, open := <-incomeSub.C:
			if !open {
				return
			}
			if ownsIncomeEvent(ev, userID) && !send() {
				return
			}
		}
	}
}

// liveDashboard builds the view model from the in-memory mirrors, filtered to
// one owner.
func (s *Server) liveDashboard(userID string) core.Dashboard {
	var expenses []core.ExpenseRecord
	for _, e := range s.expenses.Snapshot() {
		if e.UserID == userID {
			expenses = append(expenses, e)
		}
	}
	var income []core.IncomeRecord
	for _, in := range s.income.Snapshot() {
		if in.UserID == userID {
			income = append(income, in)
		}
	}
	return core.BuildDashboard(expenses, income, time.Now())
}

func ownsExpenseEvent(ev store.Event[core.ExpenseRecord], userID string) bool {
	if ev.New != nil && ev.New.UserID == userID {
		return true
	}
	return ev.Old != nil && ev.Old.UserID == userID
}

func ownsIncomeEvent(ev store.Event[core.IncomeRecord], userID string) bool {
	if ev.New != nil && ev.New.UserID == userID {
		return true
	}
	return ev.Old != nil && ev.Old.UserID == userID
}
