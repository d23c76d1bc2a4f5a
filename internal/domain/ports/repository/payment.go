package repository

import (
	"context"
	"time"

	"tg-trade-suite/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Payment, error)
	FindByTxHash(ctx context.Context, tx Tx, txHash string) (*model.Payment, error)
	FindPendingByUser(ctx context.Context, tx Tx, userID int64) (*model.Payment, error)
	// AttachTxHash records the user-submitted hash on a pending payment.
	// Must fail with domain.ErrTxHashAlreadyUsed on the unique index.
	AttachTxHash(ctx context.Context, tx Tx, id int64, txHash string) error
	// UpdateStatus transitions a payment. Implementations must refuse to
	// modify rows already in a terminal status.
	UpdateStatus(ctx context.Context, tx Tx, id int64, status model.PaymentStatus) error
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
	ListByStatus(ctx context.Context, tx Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error)
	SumConfirmedCentsSince(ctx context.Context, tx Tx, since time.Time) (int64, error)
}
