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

var _ repository.ChartAnalysisRepository = (*ChartAnalysisRepo)(nil)

type ChartAnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewChartAnalysisRepo(pool *pgxpool.Pool) *ChartAnalysisRepo {
	return &ChartAnalysisRepo{pool: pool}
}

const analysisColumns = `id, user_id, image_path, analysis_json, analysis_text,
       processing_time, ai_confidence, COALESCE(share_id, ''), created_at`

func scanAnalysis(row pgx.Row) (*model.ChartAnalysis, error) {
	var a model.ChartAnalysis
	err := row.Scan(&a.ID, &a.UserID, &a.ImagePath, &a.AnalysisJSON, &a.AnalysisText,
		&a.ProcessingTime, &a.AIConfidence, &a.ShareID, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ChartAnalysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.ChartAnalysis) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO chart_analyses (user_id, image_path, analysis_json, analysis_text,
                            processing_time, ai_confidence, share_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)
RETURNING id;`
	err = ex.QueryRow(ctx, q, a.UserID, a.ImagePath, a.AnalysisJSON, a.AnalysisText,
		a.ProcessingTime, a.AIConfidence, a.ShareID, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *ChartAnalysisRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.ChartAnalysis, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanAnalysis(ex.QueryRow(ctx, `SELECT `+analysisColumns+` FROM chart_analyses WHERE id=$1;`, id))
}

func (r *ChartAnalysisRepo) FindByShareID(ctx context.Context, tx repository.Tx, shareID string) (*model.ChartAnalysis, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanAnalysis(ex.QueryRow(ctx, `SELECT `+analysisColumns+` FROM chart_analyses WHERE share_id=$1;`, shareID))
}

func (r *ChartAnalysisRepo) ListByUser(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.ChartAnalysis, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT `+analysisColumns+` FROM chart_analyses WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()
	var out []*model.ChartAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ChartAnalysisRepo) CountAnalyses(ctx context.Context, tx repository.Tx) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM chart_analyses;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}
