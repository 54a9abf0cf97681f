package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "a@example.com")
	got, err := s.GetUser(ctx, u.ID)
	if err != nil || got.Email != "a@example.com" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	if _, err := s.CreateUser(ctx, "a@example.com", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}
	if _, err := s.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
}

func TestInsertAndListExpensesScopedByOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	_, err := s.InsertExpense(ctx, core.ExpenseRecord{
		UserID: alice.ID, Title: "Lunch", Amount: core.Money{Cents: 250}, Category: "Food",
	})
	if err != nil {
		t.Fatalf("insert expense: %v", err)
	}
	_, err = s.InsertExpense(ctx, core.ExpenseRecord{
		UserID: bob.ID, Title: "Taxi", Amount: core.Money{Cents: 900}, Category: "Transport",
	})
	if err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	got, err := s.ListExpenses(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Lunch" || got[0].Amount.Cents != 250 {
		t.Fatalf("owner scoping broken: %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("id and occurrence timestamp must be assigned: %+v", got[0])
	}
}

func TestInsertExpenseRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	u := createTestUser(t, s, "a@example.com")

	_, err := s.InsertExpense(context.Background(), core.ExpenseRecord{
		UserID: u.ID, Title: "", Amount: core.Money{Cents: 100},
	})
	if err == nil {
		t.Fatalf("expected validation error for empty title")
	}
}

func TestRecentIncomeOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "a@example.com")

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		_, err := s.InsertIncome(ctx, core.IncomeRecord{
			UserID: u.ID,
			Amount: core.Money{Cents: int64(100 + i)},
			Source: "Salary",
			Date:   base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("insert income %d: %v", i, err)
		}
	}

	got, err := s.RecentIncome(ctx, u.ID, 5)
	if err != nil {
		t.Fatalf("recent income: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("limit not applied: got %d records", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date.Before(got[i].Date) {
			t.Fatalf("records not ordered most recent first: %+v", got)
		}
	}
	if got[0].Amount.Cents != 106 {
		t.Fatalf("newest record first, got %+v", got[0])
	}
}

func TestListIncomeRangeInclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, s, "a@example.com")

	days := []time.Time{
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range days {
		if _, err := s.InsertIncome(ctx, core.IncomeRecord{
			UserID: u.ID, Amount: core.Money{Cents: 100}, Source: "Salary", Date: d,
		}); err != nil {
			t.Fatalf("insert income: %v", err)
		}
	}

	got, err := s.ListIncomeRange(ctx, u.ID, days[0], days[1])
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("inclusive bounds: got %d records, want 2", len(got))
	}

	all, err := s.ListIncomeRange(ctx, u.ID, time.Time{}, time.Time{})
	if err != nil || len(all) != 3 {
		t.Fatalf("open bounds: got %d records, %v", len(all), err)
	}
}

func TestDeletePublishesEventAndScopesOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	e, err := s.InsertExpense(ctx, core.ExpenseRecord{
		UserID: alice.ID, Title: "Lunch", Amount: core.Money{Cents: 250},
	})
	if err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	sub := s.ExpenseFeed().Subscribe()
	defer sub.Close()

	if err := s.DeleteExpense(ctx, bob.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-owner delete: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteExpense(ctx, alice.ID, e.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}

	select {
	case ev := <-sub.C:
		if ev.Type != EventDelete || ev.Old == nil || ev.Old.ID != e.ID {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("delete event not published")
	}

	if left, _ := s.ListExpenses(ctx, alice.ID); len(left) != 0 {
		t.Fatalf("expense still present after delete: %+v", left)
	}
}

func TestInsertPublishesInsertEvent(t *testing.T) {
	s := openTestStore(t)
	sub := s.IncomeFeed().Subscribe()
	defer sub.Close()
	u := createTestUser(t, s, "a@example.com")

	in, err := s.InsertIncome(context.Background(), core.IncomeRecord{
		UserID: u.ID, Amount: core.Money{Cents: 500}, Source: "Salary",
	})
	if err != nil {
		t.Fatalf("insert income: %v", err)
	}

	select {
	case ev := <-sub.C:
		if ev.Type != EventInsert || ev.New == nil || ev.New.ID != in.ID {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatalf("insert event not published")
	}
}
