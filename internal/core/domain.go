package core

import (
	"errors"
	"strings"
	"time"
)

// BorrowedSource is the distinguished income source that is excluded from
// primary income totals but still counted towards net savings.
const BorrowedSource = "borrowed"

// RecordKind identifies one of the two tracked collections.
type RecordKind string

const (
	KindExpense RecordKind = "expenses"
	KindIncome  RecordKind = "income"
)

type (
	Money struct {
		Cents int64
	}

	// ExpenseRecord is a single spending entry. CreatedAt doubles as the
	// occurrence timestamp: an expense is attributed to the day it was entered.
	ExpenseRecord struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Title     string    `json:"title"`
		Amount    Money     `json:"amount"`
		Category  string    `json:"category"`
		Notes     string    `json:"notes,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// IncomeRecord is a single earning entry. Date is the occurrence
	// timestamp, distinct from when the row was inserted.
	IncomeRecord struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		Amount      Money     `json:"amount"`
		Source      string    `json:"source"`
		Description string    `json:"description,omitempty"`
		Date        time.Time `json:"date"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptySource   = errors.New("empty source")
	ErrMissingOwner  = errors.New("missing owner")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// OccurredAt returns the timestamp the expense is attributed to.
func (e ExpenseRecord) OccurredAt() time.Time { return e.CreatedAt }

// OccurredAt returns the timestamp the income is attributed to.
func (i IncomeRecord) OccurredAt() time.Time { return i.Date }

func (e ExpenseRecord) Key() string { return e.ID }
func (i IncomeRecord) Key() string  { return i.ID }

// Validate checks an expense record at the store boundary.
func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks an income record at the store boundary.
func (i IncomeRecord) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if len(i.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
