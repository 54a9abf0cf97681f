package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fintrack/internal/core"
)

// handleExpenseChart renders the trailing 30-day spending line as PNG.
func (s *Server) handleExpenseChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -35)
	expenses, err := s.store.ListExpensesRange(r.Context(), userID, from, now)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense chart fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}

	png, err := renderExpenseChart(core.DailyExpenseSeries(expenses, now))
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense chart render failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	servePNG(w, png)
}

// handleIncomeChart renders the trailing 12-month income bars as PNG.
func (s *Server) handleIncomeChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	now := time.Now()
	from := now.AddDate(-1, -1, 0)
	income, err := s.store.ListIncomeRange(r.Context(), userID, from, now)
	if err != nil {
		slog.ErrorContext(r.Context(), "Income chart fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load income")
		return
	}

	png, err := renderIncomeChart(core.MonthlyIncomeSeries(income, now))
	if err != nil {
		slog.ErrorContext(r.Context(), "Income chart render failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	servePNG(w, png)
}

func servePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(png)
}

func renderExpenseChart(points []core.SeriesPoint) ([]byte, error) {
	xValues := make([]time.Time, len(points))
	yValues := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = p.Date
		yValues[i] = p.Amount.Units()
	}

	series := chart.TimeSeries{
		Name: "Daily spending",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("dc2626"),
			StrokeWidth: 2.0,
			FillColor:   drawing.ColorFromHex("dc2626").WithAlpha(40),
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  "Expenses, last 30 days",
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: yAxisRange(yValues),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{series},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func renderIncomeChart(points []core.SeriesPoint) ([]byte, error) {
	values := make([]chart.Value, len(points))
	for i, p := range points {
		values[i] = chart.Value{
			Label: p.Date.Format("Jan"),
			Value: p.Amount.Units(),
		}
	}

	yValues := make([]float64, len(points))
	for i, p := range points {
		yValues[i] = p.Amount.Units()
	}

	graph := chart.BarChart{
		Title:  "Income, last 12 months",
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: 48,
		Bars:     values,
		YAxis: chart.YAxis{
			Range: yAxisRange(yValues),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// yAxisRange pins the axis so an all-zero series still renders.
func yAxisRange(values []float64) chart.Range {
	max := 0.0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: max * 1.1}
}
