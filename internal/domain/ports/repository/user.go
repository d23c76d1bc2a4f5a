package repository

import (
	"context"

	"tg-trade-suite/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.User, error)
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	// FindByIDForUpdate must take a row lock when tx is a live transaction,
	// guarding quota read-modify-write against concurrent requests.
	FindByIDForUpdate(ctx context.Context, tx Tx, id int64) (*model.User, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	// IncrementTotalAnalyses bumps the lifetime counter after a completed run.
	IncrementTotalAnalyses(ctx context.Context, tx Tx, id int64) error
}
