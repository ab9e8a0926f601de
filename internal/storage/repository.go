package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or is not owned by the caller.
var ErrNotFound = errors.New("not found")

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + dsnPragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db), schemaVersion: version}, nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying handle for health checks and test fixtures.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise. fn must only use the
// Queries it is given.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, arg CreateUserParams) (core.User, error) {
	u, err := r.queries.CreateUser(ctx, arg)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", notFound(err))
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	n, err := r.queries.UpdateUserPassword(ctx, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update password for user %d: %w", id, ErrNotFound)
	}
	return nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, notFound(err))
	}
	return c, nil
}

func (r *SQLiteRepository) EnsureCategory(ctx context.Context, name string) (core.Category, error) {
	c, err := r.queries.UpsertCategory(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("ensure category %q: %w", name, err)
	}
	return c, nil
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	id, err := r.queries.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	saved, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("read back expense %d: %w", id, err)
	}
	return saved, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	expenses, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) SearchExpenses(ctx context.Context, userID int64, term string) ([]core.Expense, error) {
	expenses, err := r.queries.SearchExpenses(ctx, userID, term)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) Dashboard(ctx context.Context, userID int64) (core.Dashboard, error) {
	total, err := r.queries.GetUserTotal(ctx, userID)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("get user total: %w", err)
	}
	byCategory, err := r.queries.GetCategoryTotals(ctx, userID)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("get category totals: %w", err)
	}
	return core.Dashboard{Total: core.Money{Cents: total}, ByCategory: byCategory}, nil
}

// Recurring expenses

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	id, err := r.queries.CreateRecurring(ctx, re)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense: %w", err)
	}
	saved, err := r.queries.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("read back recurring expense %d: %w", id, err)
	}
	return saved, nil
}

// GetRecurringForUser returns ErrNotFound when id does not exist or belongs
// to another user.
func (r *SQLiteRepository) GetRecurringForUser(ctx context.Context, userID, id int64) (core.RecurringExpense, error) {
	re, err := r.queries.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense %d: %w", id, notFound(err))
	}
	if re.UserID != userID {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense %d: %w", id, ErrNotFound)
	}
	return re, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID int64, includeInactive bool) ([]core.RecurringExpense, error) {
	items, err := r.queries.ListRecurringByUser(ctx, userID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) ListRecurringByIDs(ctx context.Context, userID int64, ids []int64) ([]core.RecurringExpense, error) {
	items, err := r.queries.ListRecurringByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses by id: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, arg UpdateRecurringParams) error {
	n, err := r.queries.UpdateRecurring(ctx, arg)
	if err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update recurring expense %d: %w", arg.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SetRecurringStatus(ctx context.Context, userID, id int64, status core.Status) error {
	n, err := r.queries.SetRecurringStatus(ctx, id, userID, status)
	if err != nil {
		return fmt.Errorf("set recurring status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set recurring status %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListEligible(ctx context.Context, on core.Date) ([]core.RecurringExpense, error) {
	items, err := r.queries.ListEligibleRecurring(ctx, on)
	if err != nil {
		return nil, fmt.Errorf("list eligible recurring expenses: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) ListEligibleOverdue(ctx context.Context, on core.Date) ([]core.RecurringExpense, error) {
	items, err := r.queries.ListEligibleOverdue(ctx, on)
	if err != nil {
		return nil, fmt.Errorf("list overdue recurring expenses: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) ListEligibleForUser(ctx context.Context, userID int64, on core.Date) ([]core.RecurringExpense, error) {
	items, err := r.queries.ListEligibleForUser(ctx, userID, on)
	if err != nil {
		return nil, fmt.Errorf("list due recurring expenses: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkNotified(ctx context.Context, ids []int64, on core.Date) error {
	if err := r.queries.MarkNotified(ctx, ids, on); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkOverdueReminded(ctx context.Context, ids []int64, on core.Date) error {
	if err := r.queries.MarkOverdueReminded(ctx, ids, on); err != nil {
		return fmt.Errorf("mark overdue reminded: %w", err)
	}
	return nil
}
