package amqp

import (
	"context"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Publisher is the outbound side of the client, split out so the relay can be
// tested without a broker.
type Publisher interface {
	PublishChange(ctx context.Context, msg *ChangeMessage) error
}

// Relay bridges the in-process change feeds onto AMQP so out-of-process
// consumers see the same stream the live mirrors do. Publish failures are
// logged and skipped; the broker is a backup path, not the source of truth.
type Relay struct {
	pub      Publisher
	expenses *store.Broker[core.ExpenseRecord]
	income   *store.Broker[core.IncomeRecord]
}

func NewRelay(pub Publisher, expenses *store.Broker[core.ExpenseRecord], income *store.Broker[core.IncomeRecord]) *Relay {
	return &Relay{pub: pub, expenses: expenses, income: income}
}

// Run forwards feed events until ctx is cancelled or both feeds close.
func (r *Relay) Run(ctx context.Context) {
	expenseSub := r.expenses.Subscribe()
	defer expenseSub.Close()
	incomeSub := r.income.Subscribe()
	defer incomeSub.Close()

	slog.InfoContext(ctx, "Change relay started")

	expenseC, incomeC := expenseSub.C, incomeSub.C
	for expenseC != nil || incomeC != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-expenseC:
			if !ok {
				expenseC = nil
				continue
			}
			r.forward(ctx, changeFromExpense(ev))
		case ev, ok := <-incomeC:
			if !ok {
				incomeC = nil
				continue
			}
			r.forward(ctx, changeFromIncome(ev))
		}
	}
}

func (r *Relay) forward(ctx context.Context, msg *ChangeMessage) {
	if msg == nil {
		return
	}
	if err := r.pub.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to relay change message",
			"error", err,
			"kind", msg.Kind,
			"record_id", msg.ID)
	}
}

func changeFromExpense(ev store.Event[core.ExpenseRecord]) *ChangeMessage {
	rec := ev.New
	if rec == nil {
		rec = ev.Old
	}
	if rec == nil {
		return nil
	}
	return NewChangeMessage(core.KindExpense, string(ev.Type), rec.ID, rec.UserID)
}

func changeFromIncome(ev store.Event[core.IncomeRecord]) *ChangeMessage {
	rec := ev.New
	if rec == nil {
		rec = ev.Old
	}
	if rec == nil {
		return nil
	}
	return NewChangeMessage(core.KindIncome, string(ev.Type), rec.ID, rec.UserID)
}
