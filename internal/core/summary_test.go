package core

import (
	"testing"
	"time"
)

func expense(cents int64, category string, at time.Time) ExpenseRecord {
	return ExpenseRecord{ID: "e", UserID: "u1", Title: "t", Amount: Money{Cents: cents}, Category: category, CreatedAt: at}
}

func incomeRec(cents int64, source string, at time.Time) IncomeRecord {
	return IncomeRecord{ID: "i", UserID: "u1", Amount: Money{Cents: cents}, Source: source, Date: at}
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary(nil, nil, time.Now())
	if s.TotalIncome.Cents != 0 || s.TotalBorrowed.Cents != 0 || s.TotalExpenses.Cents != 0 || s.NetSavings.Cents != 0 {
		t.Fatalf("empty collections must produce zero totals: %+v", s)
	}
	if s.SavingsRate != nil || s.ExpenseRatio != nil {
		t.Fatalf("rates must be nil when total income is zero")
	}
}

func TestBuildSummaryBorrowedSplit(t *testing.T) {
	now := time.Now()
	income := []IncomeRecord{
		incomeRec(2000, "Salary", now),
		incomeRec(500, BorrowedSource, now),
	}
	expenses := []ExpenseRecord{expense(800, "Food", now)}

	s := BuildSummary(expenses, income, now)
	if s.TotalIncome.Cents != 2000 {
		t.Fatalf("TotalIncome = %d, want 2000", s.TotalIncome.Cents)
	}
	if s.TotalBorrowed.Cents != 500 {
		t.Fatalf("TotalBorrowed = %d, want 500", s.TotalBorrowed.Cents)
	}
	if s.TotalExpenses.Cents != 800 {
		t.Fatalf("TotalExpenses = %d, want 800", s.TotalExpenses.Cents)
	}
	if s.NetSavings.Cents != 1700 {
		t.Fatalf("NetSavings = %d, want 1700", s.NetSavings.Cents)
	}
	if s.SavingsRate == nil || !closeTo(*s.SavingsRate, 85.0) {
		t.Fatalf("SavingsRate = %v, want 85", s.SavingsRate)
	}
	if s.ExpenseRatio == nil || !closeTo(*s.ExpenseRatio, 40.0) {
		t.Fatalf("ExpenseRatio = %v, want 40", s.ExpenseRatio)
	}
}

func TestBuildSummaryMonthWindow(t *testing.T) {
	// Mid-month anchor so both adjacent months are clearly outside the window.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	income := []IncomeRecord{
		incomeRec(1000, "Salary", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		incomeRec(900, "Salary", time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)),
		incomeRec(700, "Salary", time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)),
		incomeRec(600, "Salary", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
	}
	expenses := []ExpenseRecord{
		expense(300, "Food", time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)),
		expense(400, "Food", time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC)),
	}

	s := BuildSummary(expenses, income, now)
	if s.TotalIncome.Cents != 3200 {
		t.Fatalf("TotalIncome = %d, want 3200", s.TotalIncome.Cents)
	}
	if s.MonthlyIncome.Cents != 1900 {
		t.Fatalf("MonthlyIncome = %d, want 1900 (adjacent months excluded)", s.MonthlyIncome.Cents)
	}
	if s.MonthlyExpenses.Cents != 300 {
		t.Fatalf("MonthlyExpenses = %d, want 300", s.MonthlyExpenses.Cents)
	}
	if s.MonthlySavings.Cents != 1600 {
		t.Fatalf("MonthlySavings = %d, want 1600", s.MonthlySavings.Cents)
	}
	// Monthly figures are a subset of the all-time ones.
	if s.MonthlyIncome.Cents > s.TotalIncome.Cents || s.MonthlyExpenses.Cents > s.TotalExpenses.Cents {
		t.Fatalf("monthly figures exceed all-time figures: %+v", s)
	}
}

func TestRatesNilOnlyWithoutIncome(t *testing.T) {
	now := time.Now()
	withIncome := BuildSummary(nil, []IncomeRecord{incomeRec(100, "Salary", now)}, now)
	if withIncome.SavingsRate == nil || withIncome.ExpenseRatio == nil {
		t.Fatalf("rates must be present when income exists")
	}
	// Borrowed-only income leaves TotalIncome at zero, so rates stay nil.
	borrowedOnly := BuildSummary(nil, []IncomeRecord{incomeRec(100, BorrowedSource, now)}, now)
	if borrowedOnly.SavingsRate != nil || borrowedOnly.ExpenseRatio != nil {
		t.Fatalf("rates must be nil when only borrowed income exists")
	}
}

func TestExpenseByCategory(t *testing.T) {
	now := time.Now()
	expenses := []ExpenseRecord{
		expense(100, "Food", now),
		expense(50, "Food", now),
		expense(30, "", now),
	}
	got := ExpenseByCategory(expenses)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Name != "Food" || got[0].Amount.Cents != 150 {
		t.Fatalf("group 0 = %+v", got[0])
	}
	if got[1].Name != "Other" || got[1].Amount.Cents != 30 {
		t.Fatalf("empty category must fold into Other: %+v", got[1])
	}
}

func TestIncomeBySourceTopEight(t *testing.T) {
	now := time.Now()
	var income []IncomeRecord
	for i := 0; i < 10; i++ {
		income = append(income, incomeRec(int64(100+i), string(rune('a'+i)), now))
	}
	got := IncomeBySource(income)
	if len(got) != 8 {
		t.Fatalf("expected top 8 sources, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Amount.Cents < got[i].Amount.Cents {
			t.Fatalf("breakdown not sorted descending at %d: %+v", i, got)
		}
	}
	if got[0].Amount.Cents != 109 {
		t.Fatalf("largest source first, got %+v", got[0])
	}
}

func TestDailyExpenseSeriesEmpty(t *testing.T) {
	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	points := DailyExpenseSeries(nil, now)
	if len(points) != 30 {
		t.Fatalf("expected 30 buckets, got %d", len(points))
	}
	last := points[len(points)-1].Date
	if last.Year() != 2025 || last.Month() != 3 || last.Day() != 20 {
		t.Fatalf("series must end today, got %v", last)
	}
	for i, p := range points {
		if p.Amount.Cents != 0 {
			t.Fatalf("bucket %d not zero-initialized: %+v", i, p)
		}
		if i > 0 && !p.Date.Equal(points[i-1].Date.AddDate(0, 0, 1)) {
			t.Fatalf("buckets not consecutive at %d: %v -> %v", i, points[i-1].Date, p.Date)
		}
	}
}

func TestDailyExpenseSeriesBucketing(t *testing.T) {
	now := time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)
	expenses := []ExpenseRecord{
		expense(500, "Food", time.Date(2025, 3, 20, 1, 0, 0, 0, time.UTC)),
		expense(200, "Food", time.Date(2025, 3, 20, 23, 0, 0, 0, time.UTC)),
		expense(100, "Food", time.Date(2025, 2, 19, 12, 0, 0, 0, time.UTC)),  // first bucket
		expense(999, "Food", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),   // out of window
		expense(888, "Food", time.Date(2025, 3, 21, 12, 0, 0, 0, time.UTC)),  // future, out of window
	}
	points := DailyExpenseSeries(expenses, now)
	if got := points[len(points)-1].Amount.Cents; got != 700 {
		t.Fatalf("today's bucket = %d, want 700", got)
	}
	if got := points[0].Amount.Cents; got != 100 {
		t.Fatalf("first bucket = %d, want 100", got)
	}
	var total int64
	for _, p := range points {
		total += p.Amount.Cents
	}
	if total != 800 {
		t.Fatalf("out-of-window records leaked into series: total = %d", total)
	}
}

func TestMonthlyIncomeSeries(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	income := []IncomeRecord{
		incomeRec(1000, "Salary", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		incomeRec(500, "Salary", time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)), // first bucket
		incomeRec(999, "Salary", time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)), // out of window
	}
	points := MonthlyIncomeSeries(income, now)
	if len(points) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(points))
	}
	if got := points[len(points)-1].Amount.Cents; got != 1000 {
		t.Fatalf("current month bucket = %d, want 1000", got)
	}
	if got := points[0].Amount.Cents; got != 500 {
		t.Fatalf("first bucket = %d, want 500", got)
	}
}
