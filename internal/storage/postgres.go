package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"expenses/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// foreignKeyViolation is the SQLSTATE for foreign_key_violation.
const foreignKeyViolation = "23503"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Postgres repository ready", "component", "storage")
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at, updated_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, utcCategory(c))
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return utcCategory(c), nil
}

func (r *PostgresRepository) CountExpenses(ctx context.Context, categoryID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM expenses WHERE category_id = $1`, categoryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses for category %s: %w", categoryID, err)
	}
	return n, nil
}

func (r *PostgresRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	ts := now()
	c := core.Category{ID: uuid.NewString(), Name: name, CreatedAt: ts, UpdatedAt: ts}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, ts, ts)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, id, name string) (core.Category, error) {
	var c core.Category
	err := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $1, updated_at = $2 WHERE id = $3
		 RETURNING id, name, created_at, updated_at`,
		name, now(), id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %s: %w", id, err)
	}
	return utcCategory(c), nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isPgForeignKey(err) {
		return core.ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

const pgExpenseSelect = `SELECT e.id, e.amount_cents, e.description, e.date, e.category_id, c.name, e.created_at, e.updated_at
	FROM expenses e JOIN categories c ON c.id = e.category_id`

func (r *PostgresRepository) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.CategoryID != "" {
		where = append(where, "e.category_id = "+arg(f.CategoryID))
	}
	from, until := rangeBounds(f.Range)
	if !from.IsZero() {
		where = append(where, "e.date >= "+arg(from))
	}
	if !until.IsZero() {
		where = append(where, "e.date < "+arg(until))
	}

	q := pgExpenseSelect
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY e.date DESC, e.created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ` + arg(f.Limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanPgExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return getPgExpense(ctx, r.pool, id)
}

func getPgExpense(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id string) (core.Expense, error) {
	e, err := scanPgExpense(q.QueryRow(ctx, pgExpenseSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

func (r *PostgresRepository) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()
	ts := now()
	id := uuid.NewString()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO expenses (id, amount_cents, description, date, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, in.Amount.Cents, in.Description, in.Date.Truncate(timeResolution), in.CategoryID, ts, ts)
	if isPgForeignKey(err) {
		return core.Expense{}, core.ErrInvalidCategory
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e, err := getPgExpense(ctx, tx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Expense{}, fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to Postgres",
		"component", "storage",
		"id", e.ID,
		"amount_cents", e.Amount.Cents,
		"category_id", e.CategoryID)
	return e, nil
}

func (r *PostgresRepository) UpdateExpense(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalized()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE expenses SET amount_cents = $1, description = $2, date = $3, category_id = $4, updated_at = $5 WHERE id = $6`,
		in.Amount.Cents, in.Description, in.Date.Truncate(timeResolution), in.CategoryID, now(), id)
	if isPgForeignKey(err) {
		return core.Expense{}, core.ErrInvalidCategory
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	e, err := getPgExpense(ctx, tx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Expense{}, fmt.Errorf("commit expense: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) DeleteExpense(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanPgExpense(row pgx.Row) (core.Expense, error) {
	var e core.Expense
	if err := row.Scan(&e.ID, &e.Amount.Cents, &e.Description, &e.Date, &e.CategoryID, &e.Category.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Expense{}, err
	}
	e.Category.ID = e.CategoryID
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func utcCategory(c core.Category) core.Category {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

func isPgForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
