// Package interp evaluates the text commands of the finance terminal. The
// interpreter never fails a request: authentication and store problems come
// back as log lines, so the terminal page always has something to print.
package interp

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Store is the slice of the record store the interpreter needs.
type Store interface {
	InsertExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
	InsertIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error)
	ListExpenses(ctx context.Context, userID string) ([]core.ExpenseRecord, error)
	ListIncome(ctx context.Context, userID string) ([]core.IncomeRecord, error)
	RecentExpenses(ctx context.Context, userID string, limit int) ([]core.ExpenseRecord, error)
	RecentIncome(ctx context.Context, userID string, limit int) ([]core.IncomeRecord, error)
}

// Result is the outcome of one command. Clear asks the client to reset its
// scrollback instead of appending Lines.
type Result struct {
	Lines []string `json:"lines"`
	Clear bool     `json:"clear"`
}

const (
	recentIncomeLimit  = 5
	recentExpenseLimit = 6

	defaultIncomeSource    = "other"
	defaultExpenseTitle    = "Terminal expense"
	defaultExpenseCategory = "general"
)

var helpLines = []string{
	"📖 Commands:",
	"➡ add income <amount> <source>",
	"➡ add expense <amount> <category> <title>",
	"➡ show balance",
	"➡ show income",
	"➡ show expenses",
	"➡ clear",
}

// Interpreter dispatches terminal commands against the record store.
type Interpreter struct {
	store Store
}

func New(store Store) *Interpreter {
	return &Interpreter{store: store}
}

// Execute runs one command line on behalf of owner. An empty owner means the
// caller is not logged in; commands that touch records then answer with an
// in-band failure line rather than an HTTP error.
func (it *Interpreter) Execute(ctx context.Context, owner, line string) Result {
	args := strings.Fields(line)
	if len(args) == 0 {
		return Result{}
	}

	switch strings.ToLower(args[0]) {
	case "help":
		return Result{Lines: helpLines}
	case "clear":
		return Result{Clear: true, Lines: []string{"💻 Terminal cleared. Type 'help' to see commands"}}
	case "add":
		if len(args) > 1 && args[1] == "income" {
			return it.addIncome(ctx, owner, args[2:])
		}
		if len(args) > 1 && args[1] == "expense" {
			return it.addExpense(ctx, owner, args[2:])
		}
	case "show":
		if len(args) > 1 {
			switch args[1] {
			case "balance":
				return it.showBalance(ctx, owner)
			case "income":
				return it.showIncome(ctx, owner)
			case "expenses":
				return it.showExpenses(ctx, owner)
			}
		}
	}
	return Result{Lines: []string{"❓ Unknown command: " + strings.TrimSpace(line)}}
}

func (it *Interpreter) addIncome(ctx context.Context, owner string, args []string) Result {
	if owner == "" {
		return notAuthenticated()
	}
	if len(args) == 0 {
		return fail(fmt.Errorf("missing amount"))
	}
	cents, err := core.ParseDecimalToCents(args[0])
	if err != nil {
		return fail(err)
	}
	source := strings.Join(args[1:], " ")
	if source == "" {
		source = defaultIncomeSource
	}

	in, err := it.store.InsertIncome(ctx, core.IncomeRecord{
		UserID: owner,
		Amount: core.Money{Cents: cents},
		Source: source,
	})
	if err != nil {
		return fail(err)
	}
	return Result{Lines: []string{
		fmt.Sprintf("✅ Income of ₹%s (%s) added", in.Amount, in.Source),
	}}
}

func (it *Interpreter) addExpense(ctx context.Context, owner string, args []string) Result {
	if owner == "" {
		return notAuthenticated()
	}
	if len(args) == 0 {
		return fail(fmt.Errorf("missing amount"))
	}
	cents, err := core.ParseDecimalToCents(args[0])
	if err != nil {
		return fail(err)
	}
	category := defaultExpenseCategory
	if len(args) > 1 {
		category = args[1]
	}
	title := strings.Join(args[2:], " ")
	if title == "" {
		title = defaultExpenseTitle
	}

	e, err := it.store.InsertExpense(ctx, core.ExpenseRecord{
		UserID:   owner,
		Title:    title,
		Amount:   core.Money{Cents: cents},
		Category: category,
	})
	if err != nil {
		return fail(err)
	}
	return Result{Lines: []string{
		fmt.Sprintf("✅ Expense of ₹%s (%s) - %s added", e.Amount, e.Category, e.Title),
	}}
}

// showBalance sums every income record against every expense, fetched fresh.
// Borrowed income counts here even though the dashboard keeps it out of
// totalIncome.
func (it *Interpreter) showBalance(ctx context.Context, owner string) Result {
	if owner == "" {
		return notAuthenticated()
	}
	income, err := it.store.ListIncome(ctx, owner)
	if err != nil {
		return fail(err)
	}
	expenses, err := it.store.ListExpenses(ctx, owner)
	if err != nil {
		return fail(err)
	}

	var balance int64
	for _, in := range income {
		balance += in.Amount.Cents
	}
	for _, e := range expenses {
		balance -= e.Amount.Cents
	}
	return Result{Lines: []string{
		fmt.Sprintf("💰 Current Balance: ₹%s", core.Money{Cents: balance}),
	}}
}

func (it *Interpreter) showIncome(ctx context.Context, owner string) Result {
	if owner == "" {
		return notAuthenticated()
	}
	income, err := it.store.RecentIncome(ctx, owner, recentIncomeLimit)
	if err != nil {
		return fail(err)
	}
	lines := []string{"📈 Recent Income:"}
	for _, in := range income {
		lines = append(lines, fmt.Sprintf("+ ₹%s (%s) on %s", in.Amount, in.Source, in.Date.Format("2006-01-02")))
	}
	return Result{Lines: lines}
}

func (it *Interpreter) showExpenses(ctx context.Context, owner string) Result {
	if owner == "" {
		return notAuthenticated()
	}
	expenses, err := it.store.RecentExpenses(ctx, owner, recentExpenseLimit)
	if err != nil {
		return fail(err)
	}
	lines := []string{"📉 Recent Expenses:"}
	for _, e := range expenses {
		lines = append(lines, fmt.Sprintf("- ₹%s (%s) - %s", e.Amount, e.Category, e.Title))
	}
	return Result{Lines: lines}
}

func notAuthenticated() Result {
	return Result{Lines: []string{"❌ Not authenticated"}}
}

func fail(err error) Result {
	return Result{Lines: []string{"❌ " + err.Error()}}
}
