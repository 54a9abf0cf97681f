// Package store is the record store client: owner-scoped CRUD over the
// expense and income collections in SQLite, plus a push-based change feed
// that notifies subscribers of every insert, update and delete.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User is an authentication principal. Records are scoped to a user id.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store wraps the SQLite database and the two change-feed brokers.
type Store struct {
	db          *sql.DB
	expenseFeed *Broker[core.ExpenseRecord]
	incomeFeed  *Broker[core.IncomeRecord]
}

// Open creates the database directory if needed, opens the database, runs
// migrations and prepares the change feeds.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:          db,
		expenseFeed: NewBroker[core.ExpenseRecord](0),
		incomeFeed:  NewBroker[core.IncomeRecord](0),
	}, nil
}

func (s *Store) Close() error {
	s.expenseFeed.Close()
	s.incomeFeed.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ExpenseFeed exposes the expense change feed for subscription.
func (s *Store) ExpenseFeed() *Broker[core.ExpenseRecord] { return s.expenseFeed }

// IncomeFeed exposes the income change feed for subscription.
func (s *Store) IncomeFeed() *Broker[core.IncomeRecord] { return s.incomeFeed }

// InsertExpense validates and stores an expense, assigning id and occurrence
// timestamp when absent, then publishes an INSERT event.
func (s *Store) InsertExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("validate expense: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, title, amount_cents, category, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, e.Category, e.Notes, e.CreatedAt.UnixMilli())
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	s.expenseFeed.Publish(Event[core.ExpenseRecord]{Type: EventInsert, New: &e})
	return e, nil
}

// InsertIncome validates and stores an income record, assigning id and
// occurrence date when absent, then publishes an INSERT event.
func (s *Store) InsertIncome(ctx context.Context, in core.IncomeRecord) (core.IncomeRecord, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	if err := in.Validate(); err != nil {
		return core.IncomeRecord{}, fmt.Errorf("validate income: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO income (id, user_id, amount_cents, source, description, date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Amount.Cents, in.Source, in.Description, in.Date.UnixMilli())
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("insert income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID,
		"amount_cents", in.Amount.Cents,
		"source", in.Source)

	s.incomeFeed.Publish(Event[core.IncomeRecord]{Type: EventInsert, New: &in})
	return in, nil
}

// ListExpenses returns every expense belonging to userID in occurrence order.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]core.ExpenseRecord, error) {
	return s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses WHERE user_id = ? ORDER BY created_at, rowid`, userID)
}

// ListAllExpenses returns every expense across all owners in occurrence
// order. It seeds the live mirror, which fans records out per owner.
func (s *Store) ListAllExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	return s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses ORDER BY created_at, rowid`)
}

// ListExpensesRange returns userID's expenses whose occurrence timestamp
// falls inside [from, to], both inclusive. Zero bounds are open.
func (s *Store) ListExpensesRange(ctx context.Context, userID string, from, to time.Time) ([]core.ExpenseRecord, error) {
	lo, hi := rangeBounds(from, to)
	return s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses WHERE user_id = ? AND created_at >= ? AND created_at <= ?
		 ORDER BY created_at, rowid`, userID, lo, hi)
}

// RecentExpenses returns userID's newest expenses, most recent first.
func (s *Store) RecentExpenses(ctx context.Context, userID string, limit int) ([]core.ExpenseRecord, error) {
	return s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
}

// GetExpense returns a single expense by id regardless of owner.
func (s *Store) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	rows, err := s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses WHERE id = ?`, id)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if len(rows) == 0 {
		return core.ExpenseRecord{}, ErrNotFound
	}
	return rows[0], nil
}

// DeleteExpense removes userID's expense with the given id and publishes a
// DELETE event carrying the removed record.
func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	rows, err := s.queryExpenses(ctx,
		`SELECT id, user_id, title, amount_cents, category, notes, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	old := rows[0]

	if _, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	s.expenseFeed.Publish(Event[core.ExpenseRecord]{Type: EventDelete, Old: &old})
	return nil
}

// ListIncome returns every income record belonging to userID in occurrence order.
func (s *Store) ListIncome(ctx context.Context, userID string) ([]core.IncomeRecord, error) {
	return s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income WHERE user_id = ? ORDER BY date, rowid`, userID)
}

// ListAllIncome returns every income record across all owners in occurrence
// order. It seeds the live mirror, which fans records out per owner.
func (s *Store) ListAllIncome(ctx context.Context) ([]core.IncomeRecord, error) {
	return s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income ORDER BY date, rowid`)
}

// ListIncomeRange returns userID's income whose occurrence date falls inside
// [from, to], both inclusive. Zero bounds are open.
func (s *Store) ListIncomeRange(ctx context.Context, userID string, from, to time.Time) ([]core.IncomeRecord, error) {
	lo, hi := rangeBounds(from, to)
	return s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, rowid`, userID, lo, hi)
}

// RecentIncome returns userID's newest income records, most recent first.
func (s *Store) RecentIncome(ctx context.Context, userID string, limit int) ([]core.IncomeRecord, error) {
	return s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income WHERE user_id = ? ORDER BY date DESC, rowid DESC LIMIT ?`, userID, limit)
}

// GetIncome returns a single income record by id regardless of owner.
func (s *Store) GetIncome(ctx context.Context, id string) (core.IncomeRecord, error) {
	rows, err := s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income WHERE id = ?`, id)
	if err != nil {
		return core.IncomeRecord{}, err
	}
	if len(rows) == 0 {
		return core.IncomeRecord{}, ErrNotFound
	}
	return rows[0], nil
}

// DeleteIncome removes userID's income record with the given id and publishes
// a DELETE event carrying the removed record.
func (s *Store) DeleteIncome(ctx context.Context, userID, id string) error {
	rows, err := s.queryIncome(ctx,
		`SELECT id, user_id, amount_cents, source, description, date
		 FROM income WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	old := rows[0]

	if _, err := s.db.ExecContext(ctx, `DELETE FROM income WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}

	slog.InfoContext(ctx, "Income deleted", "id", id)
	s.incomeFeed.Publish(Event[core.IncomeRecord]{Type: EventDelete, Old: &old})
	return nil
}

// CreateUser registers a new principal. The password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, nil
}

// GetUser looks a principal up by id.
func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByEmail looks a principal up by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return u, nil
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]core.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		var e core.ExpenseRecord
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &e.Category, &e.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) queryIncome(ctx context.Context, query string, args ...any) ([]core.IncomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query income: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeRecord
	for rows.Next() {
		var in core.IncomeRecord
		var date int64
		if err := rows.Scan(&in.ID, &in.UserID, &in.Amount.Cents, &in.Source, &in.Description, &date); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		in.Date = time.UnixMilli(date).UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}

// rangeBounds maps optional inclusive time bounds onto unix-milli extremes.
func rangeBounds(from, to time.Time) (int64, int64) {
	lo := int64(0)
	hi := int64(1<<63 - 1)
	if !from.IsZero() {
		lo = from.UnixMilli()
	}
	if !to.IsZero() {
		hi = to.UnixMilli()
	}
	return lo, hi
}
