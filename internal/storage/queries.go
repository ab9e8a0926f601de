package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL for every table. Use WithTx to run them inside a
// transaction.
type Queries struct {
	db  DBTX
	now func() time.Time
}

func New(db DBTX) *Queries {
	return &Queries{db: db, now: time.Now}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, now: q.now}
}

func (q *Queries) timestamp() string {
	return q.now().UTC().Format(time.RFC3339)
}

// ---- users ----

const userColumns = `id, username, email, password_hash, created_at`

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (core.User, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)
		 RETURNING `+userColumns,
		arg.Username, arg.Email, arg.PasswordHash, q.timestamp())
	return scanUser(row)
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return u, nil
}

// ---- categories ----

func (q *Queries) UpsertCategory(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES (?)
		 ON CONFLICT (name) DO UPDATE SET name = excluded.name
		 RETURNING id, name`, name).Scan(&c.ID, &c.Name)
	return c, err
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	return c, err
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ---- expenses ----

const expenseSelect = `SELECT e.id, e.user_id, e.category_id, c.name, e.amount_cents, e.description, e.date, e.recurring_expense_id
	FROM expenses e JOIN categories c ON c.id = e.category_id`

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	var recurringID any
	if e.RecurringExpenseID != 0 {
		recurringID = e.RecurringExpenseID
	}
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, date, recurring_expense_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Date.String(), recurringID, q.timestamp(),
	).Scan(&id)
	return id, err
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, expenseSelect+` WHERE e.id = ?`, id)
	if err != nil {
		return core.Expense{}, err
	}
	expenses, err := scanExpenses(rows)
	if err != nil {
		return core.Expense{}, err
	}
	if len(expenses) == 0 {
		return core.Expense{}, sql.ErrNoRows
	}
	return expenses[0], nil
}

func (q *Queries) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, expenseSelect+` WHERE e.user_id = ? ORDER BY e.date DESC, e.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

// SearchExpenses matches description or category name, case-insensitively.
func (q *Queries) SearchExpenses(ctx context.Context, userID int64, term string) ([]core.Expense, error) {
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	rows, err := q.db.QueryContext(ctx, expenseSelect+`
		WHERE e.user_id = ?
		  AND (lower(e.description) LIKE ? ESCAPE '\' OR lower(c.name) LIKE ? ESCAPE '\')
		ORDER BY e.date DESC, e.id DESC`,
		userID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

func (q *Queries) GetUserTotal(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ?`, userID).Scan(&total)
	return total, err
}

func (q *Queries) GetCategoryTotals(ctx context.Context, userID int64) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.name, SUM(e.amount_cents) AS total
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 GROUP BY c.name
		 ORDER BY total DESC, c.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, err
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date string
		var recurringID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Category, &e.Amount.Cents,
			&e.Description, &date, &recurringID); err != nil {
			return nil, err
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		e.Date = d
		e.RecurringExpenseID = recurringID.Int64
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- recurring expenses ----

const recurringSelect = `SELECT r.id, r.user_id, r.category_id, c.name, r.title, r.amount_cents, r.description,
	r.frequency, r.start_date, r.end_date, r.next_due_date, r.status, r.created_at,
	r.last_processed_date, r.total_processed, r.last_notified_date, r.last_overdue_reminder_date
	FROM recurring_expenses r JOIN categories c ON c.id = r.category_id`

// eligibleWhere selects active rows due on or before the bound date that
// have not been processed for their current due date.
const eligibleWhere = `r.status = 'active'
	AND (r.last_processed_date IS NULL OR r.last_processed_date < r.next_due_date)`

func (q *Queries) CreateRecurring(ctx context.Context, re core.RecurringExpense) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO recurring_expenses
		 (user_id, category_id, title, amount_cents, description, frequency, start_date, end_date,
		  next_due_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		re.UserID, re.CategoryID, re.Title, re.Amount.Cents, re.Description, string(re.Frequency),
		re.StartDate.String(), nullDate(re.EndDate), re.NextDueDate.String(), string(re.Status), q.timestamp(),
	).Scan(&id)
	return id, err
}

func (q *Queries) GetRecurring(ctx context.Context, id int64) (core.RecurringExpense, error) {
	items, err := q.queryRecurring(ctx, recurringSelect+` WHERE r.id = ?`, id)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	if len(items) == 0 {
		return core.RecurringExpense{}, sql.ErrNoRows
	}
	return items[0], nil
}

func (q *Queries) ListRecurringByUser(ctx context.Context, userID int64, includeInactive bool) ([]core.RecurringExpense, error) {
	query := recurringSelect + ` WHERE r.user_id = ?`
	if !includeInactive {
		query += ` AND r.status = 'active'`
	}
	return q.queryRecurring(ctx, query+` ORDER BY r.next_due_date, r.id`, userID)
}

// ListRecurringByIDs returns the rows among ids owned by userID, in id order.
func (q *Queries) ListRecurringByIDs(ctx context.Context, userID int64, ids []int64) ([]core.RecurringExpense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return q.queryRecurring(ctx,
		recurringSelect+` WHERE r.user_id = ? AND r.id IN (`+placeholders+`) ORDER BY r.id`, args...)
}

// ListEligibleRecurring returns every eligible row due on or before on.
func (q *Queries) ListEligibleRecurring(ctx context.Context, on core.Date) ([]core.RecurringExpense, error) {
	return q.queryRecurring(ctx,
		recurringSelect+` WHERE `+eligibleWhere+` AND r.next_due_date <= ? ORDER BY r.id`, on.String())
}

// ListEligibleOverdue returns eligible rows whose due date is strictly before on.
func (q *Queries) ListEligibleOverdue(ctx context.Context, on core.Date) ([]core.RecurringExpense, error) {
	return q.queryRecurring(ctx,
		recurringSelect+` WHERE `+eligibleWhere+` AND r.next_due_date < ? ORDER BY r.id`, on.String())
}

func (q *Queries) ListEligibleForUser(ctx context.Context, userID int64, on core.Date) ([]core.RecurringExpense, error) {
	return q.queryRecurring(ctx,
		recurringSelect+` WHERE r.user_id = ? AND `+eligibleWhere+` AND r.next_due_date <= ? ORDER BY r.id`,
		userID, on.String())
}

type UpdateRecurringParams struct {
	ID          int64
	UserID      int64
	CategoryID  int64
	Title       string
	Amount      core.Money
	Description string
	Frequency   core.Frequency
	EndDate     core.Date
}

func (q *Queries) UpdateRecurring(ctx context.Context, arg UpdateRecurringParams) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses
		 SET category_id = ?, title = ?, amount_cents = ?, description = ?, frequency = ?, end_date = ?
		 WHERE id = ? AND user_id = ?`,
		arg.CategoryID, arg.Title, arg.Amount.Cents, arg.Description, string(arg.Frequency),
		nullDate(arg.EndDate), arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) SetRecurringStatus(ctx context.Context, id, userID int64, status core.Status) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET status = ? WHERE id = ? AND user_id = ?`, string(status), id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type MarkProcessedParams struct {
	ID            int64
	LastProcessed core.Date // the due date being materialized
	NextDue       core.Date
	Status        core.Status
}

// ErrStaleRecurring means the row no longer holds the due date the caller
// read, or that date is already processed.
var ErrStaleRecurring = errors.New("recurring expense already processed or changed")

// MarkRecurringProcessed records one materialization and advances the due
// date. The update only applies while the row is active, still due on
// LastProcessed and not yet processed for it; otherwise ErrStaleRecurring.
func (q *Queries) MarkRecurringProcessed(ctx context.Context, arg MarkProcessedParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses
		 SET last_processed_date = ?, next_due_date = ?, status = ?, total_processed = total_processed + 1
		 WHERE id = ?
		   AND status = ?
		   AND next_due_date = ?
		   AND (last_processed_date IS NULL OR last_processed_date < next_due_date)`,
		arg.LastProcessed.String(), arg.NextDue.String(), string(arg.Status),
		arg.ID, string(core.StatusActive), arg.LastProcessed.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("recurring expense %d: %w", arg.ID, ErrStaleRecurring)
	}
	return nil
}

func (q *Queries) MarkNotified(ctx context.Context, ids []int64, on core.Date) error {
	return q.markDate(ctx, "last_notified_date", ids, on)
}

func (q *Queries) MarkOverdueReminded(ctx context.Context, ids []int64, on core.Date) error {
	return q.markDate(ctx, "last_overdue_reminder_date", ids, on)
}

// markDate sets a marker column; column is always a constant from this file.
func (q *Queries) markDate(ctx context.Context, column string, ids []int64, on core.Date) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, on.String())
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET `+column+` = ? WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func (q *Queries) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		var (
			re                                core.RecurringExpense
			frequency, status, created        string
			start, next                       string
			end, processed, notified, overdue sql.NullString
		)
		if err := rows.Scan(&re.ID, &re.UserID, &re.CategoryID, &re.Category, &re.Title, &re.Amount.Cents,
			&re.Description, &frequency, &start, &end, &next, &status, &created,
			&processed, &re.TotalProcessed, &notified, &overdue); err != nil {
			return nil, err
		}
		re.Frequency = core.Frequency(frequency)
		re.Status = core.Status(status)
		re.CreatedAt, _ = time.Parse(time.RFC3339, created)

		var err error
		if re.StartDate, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("recurring expense %d start date: %w", re.ID, err)
		}
		if re.NextDueDate, err = core.ParseDate(next); err != nil {
			return nil, fmt.Errorf("recurring expense %d next due date: %w", re.ID, err)
		}
		for _, f := range []struct {
			src sql.NullString
			dst *core.Date
		}{
			{end, &re.EndDate},
			{processed, &re.LastProcessedDate},
			{notified, &re.LastNotifiedDate},
			{overdue, &re.LastOverdueReminderDate},
		} {
			if !f.src.Valid {
				continue
			}
			if *f.dst, err = core.ParseDate(f.src.String); err != nil {
				return nil, fmt.Errorf("recurring expense %d: %w", re.ID, err)
			}
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
