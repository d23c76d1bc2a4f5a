package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, method, amount_cents, amount_crypto,
       COALESCE(tx_hash, ''), wallet_address, analyses_purchased, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.Method, &p.AmountCents, &p.AmountCrypto,
		&p.TxHash, &p.WalletAddress, &p.AnalysesPurchased, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO payments (user_id, method, amount_cents, amount_crypto, tx_hash,
                      wallet_address, analyses_purchased, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10)
RETURNING id;`
	err = ex.QueryRow(ctx, q, p.UserID, p.Method, p.AmountCents, p.AmountCrypto, p.TxHash,
		p.WalletAddress, p.AnalysesPurchased, p.Status, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrTxHashAlreadyUsed
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Payment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanPayment(ex.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1;`, id))
}

func (r *PaymentRepo) FindByTxHash(ctx context.Context, tx repository.Tx, txHash string) (*model.Payment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanPayment(ex.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tx_hash=$1;`, txHash))
}

func (r *PaymentRepo) FindPendingByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.Payment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	return scanPayment(ex.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 AND status='pending' ORDER BY created_at DESC LIMIT 1;`,
		userID))
}

func (r *PaymentRepo) AttachTxHash(ctx context.Context, tx repository.Tx, id int64, txHash string) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE payments SET tx_hash=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`,
		id, txHash)
	if err != nil {
		if uniqueViolation(err) {
			return domain.ErrTxHashAlreadyUsed
		}
		return fmt.Errorf("attach tx hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotPending
	}
	return nil
}

// UpdateStatus transitions a payment out of pending. Terminal rows are left
// untouched and the call reports ErrPaymentNotPending.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id int64, status model.PaymentStatus) error {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`,
		id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotPending
	}
	return nil
}

func (r *PaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at LIMIT $2;`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *PaymentRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status=$1 ORDER BY created_at DESC LIMIT $2;`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *PaymentRepo) SumConfirmedCentsSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var sum int64
	err = ex.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status='confirmed' AND updated_at >= $1;`,
		since).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum confirmed: %w", err)
	}
	return sum, nil
}

func collectPayments(rows pgx.Rows) ([]*model.Payment, error) {
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
