package repository

import (
	"context"
	"time"

	"tg-trade-suite/internal/domain/model"
)

type UsageLogRepository interface {
	// Append inserts one event row. There are no update or delete paths.
	Append(ctx context.Context, tx Tx, userID int64, action string) error
	ListByUser(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.UsageLog, error)
	CountByActionSince(ctx context.Context, tx Tx, action string, since time.Time) (int, error)
}
