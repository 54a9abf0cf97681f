package core

import (
	"sort"
	"time"
)

// topIncomeSources caps the income-by-source breakdown.
const topIncomeSources = 8

// expenseSeriesDays and incomeSeriesMonths fix the chart windows: a trailing
// 30-day daily series for expenses and a trailing 12-month series for income.
const (
	expenseSeriesDays  = 30
	incomeSeriesMonths = 12
)

type (
	// Summary is the derived aggregate over both collections. It is never
	// persisted; recompute it whenever either collection or the calendar
	// month changes.
	Summary struct {
		TotalIncome   Money `json:"totalIncome"`
		TotalBorrowed Money `json:"totalBorrowed"`
		TotalExpenses Money `json:"totalExpenses"`
		NetSavings    Money `json:"netSavings"`

		MonthlyIncome   Money `json:"monthlyIncome"`
		MonthlyBorrowed Money `json:"monthlyBorrowed"`
		MonthlyExpenses Money `json:"monthlyExpenses"`
		MonthlySavings  Money `json:"monthlySavings"`

		// SavingsRate and ExpenseRatio are percentages of TotalIncome.
		// Nil when TotalIncome is zero (rendered as "N/A").
		SavingsRate  *float64 `json:"savingsRate"`
		ExpenseRatio *float64 `json:"expenseRatio"`

		ExpenseCount int `json:"expenseCount"`
		IncomeCount  int `json:"incomeCount"`
	}

	// CategoryAmount is one (label, summed amount) breakdown pair.
	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	// SeriesPoint is one time bucket of a chart series. Buckets exist even
	// when no record falls into them, keeping the x-axis continuous.
	SeriesPoint struct {
		Date   time.Time `json:"date"`
		Label  string    `json:"label"`
		Amount Money     `json:"amount"`
	}

	// Dashboard bundles everything the presentation layer needs.
	Dashboard struct {
		Summary           Summary          `json:"summary"`
		ExpenseByCategory []CategoryAmount `json:"expenseByCategory"`
		IncomeBySource    []CategoryAmount `json:"incomeBySource"`
		ExpenseDaily      []SeriesPoint    `json:"expenseDaily"`
		IncomeMonthly     []SeriesPoint    `json:"incomeMonthly"`
	}
)

// MonthWindow returns the first and last instant of now's calendar month.
func MonthWindow(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// BuildSummary derives the all-time and current-month figures.
//
// Income with source "borrowed" is kept out of TotalIncome but contributes to
// NetSavings: netSavings = totalIncome + totalBorrowed - totalExpenses.
func BuildSummary(expenses []ExpenseRecord, income []IncomeRecord, now time.Time) Summary {
	start, end := MonthWindow(now)

	var s Summary
	for _, in := range income {
		monthly := inWindow(in.OccurredAt(), start, end)
		if in.Source == BorrowedSource {
			s.TotalBorrowed.Cents += in.Amount.Cents
			if monthly {
				s.MonthlyBorrowed.Cents += in.Amount.Cents
			}
		} else {
			s.TotalIncome.Cents += in.Amount.Cents
			if monthly {
				s.MonthlyIncome.Cents += in.Amount.Cents
			}
		}
	}
	for _, ex := range expenses {
		s.TotalExpenses.Cents += ex.Amount.Cents
		if inWindow(ex.OccurredAt(), start, end) {
			s.MonthlyExpenses.Cents += ex.Amount.Cents
		}
	}

	s.NetSavings.Cents = s.TotalIncome.Cents + s.TotalBorrowed.Cents - s.TotalExpenses.Cents
	s.MonthlySavings.Cents = s.MonthlyIncome.Cents + s.MonthlyBorrowed.Cents - s.MonthlyExpenses.Cents
	s.ExpenseCount = len(expenses)
	s.IncomeCount = len(income)

	if s.TotalIncome.Cents != 0 {
		rate := float64(s.NetSavings.Cents) / float64(s.TotalIncome.Cents) * 100
		ratio := float64(s.TotalExpenses.Cents) / float64(s.TotalIncome.Cents) * 100
		s.SavingsRate = &rate
		s.ExpenseRatio = &ratio
	}
	return s
}

// ExpenseByCategory groups expenses by category, folding unset categories
// into "Other". Pairs are sorted by name so output is deterministic.
func ExpenseByCategory(expenses []ExpenseRecord) []CategoryAmount {
	totals := make(map[string]int64)
	for _, ex := range expenses {
		name := ex.Category
		if name == "" {
			name = "Other"
		}
		totals[name] += ex.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, cents := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IncomeBySource groups income by source (unset folds into "Other"), sorted
// descending by amount and truncated to the top 8 sources.
func IncomeBySource(income []IncomeRecord) []CategoryAmount {
	totals := make(map[string]int64)
	for _, in := range income {
		name := in.Source
		if name == "" {
			name = "Other"
		}
		totals[name] += in.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, cents := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topIncomeSources {
		out = out[:topIncomeSources]
	}
	return out
}

// DailyExpenseSeries buckets expenses into 30 consecutive calendar days
// ending today. Every bucket is present, zero-initialized.
func DailyExpenseSeries(expenses []ExpenseRecord, now time.Time) []SeriesPoint {
	points := make([]SeriesPoint, expenseSeriesDays)
	for i := range points {
		day := now.AddDate(0, 0, i-expenseSeriesDays+1)
		d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
		points[i] = SeriesPoint{Date: d, Label: d.Format("Jan 02")}
	}
	index := make(map[string]int, len(points))
	for i := range points {
		index[points[i].Date.Format("2006-01-02")] = i
	}
	for _, ex := range expenses {
		t := ex.OccurredAt().In(now.Location())
		if i, ok := index[t.Format("2006-01-02")]; ok {
			points[i].Amount.Cents += ex.Amount.Cents
		}
	}
	return points
}

// MonthlyIncomeSeries buckets income into 12 consecutive calendar months
// ending with the current one. Every bucket is present, zero-initialized.
func MonthlyIncomeSeries(income []IncomeRecord, now time.Time) []SeriesPoint {
	points := make([]SeriesPoint, incomeSeriesMonths)
	for i := range points {
		m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
			AddDate(0, i-incomeSeriesMonths+1, 0)
		points[i] = SeriesPoint{Date: m, Label: m.Format("Jan 2006")}
	}
	for _, in := range income {
		t := in.OccurredAt().In(now.Location())
		for i := range points {
			if points[i].Date.Year() == t.Year() && points[i].Date.Month() == t.Month() {
				points[i].Amount.Cents += in.Amount.Cents
				break
			}
		}
	}
	return points
}

// BuildDashboard derives the complete view model in one pass.
func BuildDashboard(expenses []ExpenseRecord, income []IncomeRecord, now time.Time) Dashboard {
	return Dashboard{
		Summary:           BuildSummary(expenses, income, now),
		ExpenseByCategory: ExpenseByCategory(expenses),
		IncomeBySource:    IncomeBySource(income),
		ExpenseDaily:      DailyExpenseSeries(expenses, now),
		IncomeMonthly:     MonthlyIncomeSeries(income, now),
	}
}
