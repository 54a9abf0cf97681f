// Package worker exports newly inserted records to the backup spreadsheet.
// It consumes identity-only change messages, fetches the current record from
// the store and appends one row per record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// Records is the slice of the record store the worker needs.
type Records interface {
	GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
	GetIncome(ctx context.Context, id string) (core.IncomeRecord, error)
}

// BackupWorker appends inserted records to the backup sheet. Updates and
// deletes are ignored: the sheet is an append-only journal, not a replica.
type BackupWorker struct {
	records  Records
	appender sheets.RowAppender
}

func NewBackupWorker(records Records, appender sheets.RowAppender) *BackupWorker {
	return &BackupWorker{records: records, appender: appender}
}

// HandleChange processes one change message. A record that is already gone by
// the time the message arrives is skipped rather than retried.
func (w *BackupWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Type != string(store.EventInsert) {
		slog.DebugContext(ctx, "Skipping non-insert change",
			"kind", msg.Kind,
			"type", msg.Type,
			"record_id", msg.ID)
		return nil
	}

	var row []any
	switch msg.Kind {
	case core.KindExpense:
		e, err := w.records.GetExpense(ctx, msg.ID)
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "Expense gone before backup, skipping", "record_id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		row = expenseRow(e)
	case core.KindIncome:
		in, err := w.records.GetIncome(ctx, msg.ID)
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "Income gone before backup, skipping", "record_id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get income: %w", err)
		}
		row = incomeRow(in)
	default:
		slog.WarnContext(ctx, "Unknown record kind in change message", "kind", msg.Kind)
		return nil
	}

	ref, err := w.appender.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append backup row: %w", err)
	}

	slog.InfoContext(ctx, "Record backed up",
		"kind", msg.Kind,
		"record_id", msg.ID,
		"row_ref", ref)
	return nil
}

func expenseRow(e core.ExpenseRecord) []any {
	return []any{
		e.CreatedAt.Format("2006-01-02"),
		string(core.KindExpense),
		e.ID,
		e.UserID,
		e.Title,
		e.Category,
		e.Amount.String(),
	}
}

func incomeRow(in core.IncomeRecord) []any {
	return []any{
		in.Date.Format("2006-01-02"),
		string(core.KindIncome),
		in.ID,
		in.UserID,
		in.Source,
		in.Description,
		in.Amount.String(),
	}
}
