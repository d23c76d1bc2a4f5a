package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
)

var _ repository.UsageLogRepository = (*UsageLogRepo)(nil)

type UsageLogRepo struct {
	pool *pgxpool.Pool
}

func NewUsageLogRepo(pool *pgxpool.Pool) *UsageLogRepo {
	return &UsageLogRepo{pool: pool}
}

func (r *UsageLogRepo) Append(ctx context.Context, tx repository.Tx, userID int64, action string) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `INSERT INTO usage_logs (user_id, action) VALUES ($1,$2);`, userID, action)
	if err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}
	return nil
}

func (r *UsageLogRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.UsageLog, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT id, user_id, action, created_at FROM usage_logs WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage logs: %w", err)
	}
	defer rows.Close()
	var out []*model.UsageLog
	for rows.Next() {
		var l model.UsageLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *UsageLogRepo) CountByActionSince(ctx context.Context, tx repository.Tx, action string, since time.Time) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = ex.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_logs WHERE action=$1 AND created_at >= $2;`,
		action, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usage logs: %w", err)
	}
	return n, nil
}
