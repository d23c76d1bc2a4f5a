package repository

import (
	"context"

	"tg-trade-suite/internal/domain/model"
)

type ChartAnalysisRepository interface {
	// Save inserts a completed analysis. Rows are append-only; there is no
	// update path.
	Save(ctx context.Context, tx Tx, a *model.ChartAnalysis) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.ChartAnalysis, error)
	FindByShareID(ctx context.Context, tx Tx, shareID string) (*model.ChartAnalysis, error)
	ListByUser(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.ChartAnalysis, error)
	CountAnalyses(ctx context.Context, tx Tx) (int, error)
}
