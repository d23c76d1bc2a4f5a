package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, telegram_id, username, first_name,
       daily_analyses_used, daily_reset_date, purchased_analyses, total_analyses,
       is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName,
		&u.DailyAnalysesUsed, &u.DailyResetDate, &u.PurchasedAnalyses, &u.TotalAnalyses,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Save inserts a new user or updates quota/profile state of an existing one.
// New rows get their generated id written back.
func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	if u.ID == 0 {
		const q = `
INSERT INTO users (telegram_id, username, first_name, daily_analyses_used, daily_reset_date,
                   purchased_analyses, total_analyses, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id;`
		err := ex.QueryRow(ctx, q, u.TelegramID, u.Username, u.FirstName, u.DailyAnalysesUsed,
			u.DailyResetDate, u.PurchasedAnalyses, u.TotalAnalyses, u.IsActive, u.CreatedAt, u.UpdatedAt).
			Scan(&u.ID)
		if err != nil {
			if uniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	}
	const q = `
UPDATE users SET username=$2, first_name=$3, daily_analyses_used=$4, daily_reset_date=$5,
       purchased_analyses=$6, total_analyses=$7, is_active=$8, updated_at=$9
 WHERE id=$1;`
	_, err = ex.Exec(ctx, q, u.ID, u.Username, u.FirstName, u.DailyAnalysesUsed, u.DailyResetDate,
		u.PurchasedAnalyses, u.TotalAnalyses, u.IsActive, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id))
}

func (r *UserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id=$1;`, tgID))
}

// FindByIDForUpdate locks the row for the duration of the surrounding
// transaction. With a nil tx it degrades to a plain read.
func (r *UserRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += ` FOR UPDATE`
	}
	return scanUser(ex.QueryRow(ctx, q+`;`, id))
}

func (r *UserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) IncrementTotalAnalyses(ctx context.Context, tx repository.Tx, id int64) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `UPDATE users SET total_analyses = total_analyses + 1, updated_at = NOW() WHERE id=$1;`, id)
	return err
}
