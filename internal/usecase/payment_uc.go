package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/config"
	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase drives the crypto payment flow: create a pending payment
// for a catalog package, verify the user's transaction hash on-chain, and
// grant credits atomically on confirmation.
type PaymentUseCase interface {
	CreatePayment(ctx context.Context, userID int64, packageID string, method model.PaymentMethod) (*model.Payment, error)
	// SubmitTxHash attaches the hash, verifies it on-chain and settles the
	// payment. Returns the settled payment; status tells the caller whether
	// verification succeeded.
	SubmitTxHash(ctx context.Context, paymentID int64, txHash string) (*model.Payment, error)
	GetPending(ctx context.Context, userID int64) (*model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error)
	// RetryPending re-verifies pending payments that already carry a tx hash,
	// picking up claims that hit a transient chain error on first submission.
	// Run periodically.
	RetryPending(ctx context.Context, limit int) (int, error)
	// ExpireStale fails pending payments older than maxAge. Run periodically.
	ExpireStale(ctx context.Context, maxAge time.Duration, limit int) (int, error)
	Packages() []model.Package
}

type paymentUC struct {
	payments  repository.PaymentRepository
	users     repository.UserRepository
	logs      repository.UsageLogRepository
	tm        repository.TransactionManager
	catalog   *config.Catalog
	verifiers map[model.PaymentMethod]adapter.ChainVerifier
	wallets   map[model.PaymentMethod]string
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	users repository.UserRepository,
	logs repository.UsageLogRepository,
	tm repository.TransactionManager,
	catalog *config.Catalog,
	verifiers map[model.PaymentMethod]adapter.ChainVerifier,
	wallets map[model.PaymentMethod]string,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments, users: users, logs: logs, tm: tm,
		catalog: catalog, verifiers: verifiers, wallets: wallets, log: logger,
	}
}

func (p *paymentUC) Packages() []model.Package { return p.catalog.Packages }

func (p *paymentUC) CreatePayment(ctx context.Context, userID int64, packageID string, method model.PaymentMethod) (*model.Payment, error) {
	defer logging.TraceDuration(p.log, "PaymentUC.CreatePayment")()

	pkg, ok := p.catalog.Find(packageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPackage, packageID)
	}
	wallet, ok := p.wallets[method]
	if !ok || wallet == "" {
		return nil, fmt.Errorf("%w: method %s not configured", domain.ErrInvalidArgument, method)
	}
	amount := pkg.CryptoAmount(method)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: package %s has no %s price", domain.ErrInvalidArgument, packageID, method)
	}

	now := time.Now()
	payment := &model.Payment{
		UserID:            userID,
		Method:            method,
		AmountCents:       pkg.PriceCents,
		AmountCrypto:      amount,
		WalletAddress:     wallet,
		AnalysesPurchased: pkg.Analyses,
		Status:            model.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.payments.Save(ctx, tx, payment); err != nil {
			return err
		}
		return p.logs.Append(ctx, tx, userID, model.ActionPaymentCreated)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(method), string(model.PaymentStatusPending))
	return payment, nil
}

func (p *paymentUC) SubmitTxHash(ctx context.Context, paymentID int64, txHash string) (*model.Payment, error) {
	defer logging.TraceDuration(p.log, "PaymentUC.SubmitTxHash")()

	if txHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	payment, err := p.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status.Terminal() {
		return nil, domain.ErrPaymentNotPending
	}

	// A hash is single-use across all payments; the unique index backs this
	// up, but checking first gives a clean error without burning the row.
	if existing, err := p.payments.FindByTxHash(ctx, repository.NoTX, txHash); err == nil && existing.ID != paymentID {
		return nil, domain.ErrTxHashAlreadyUsed
	}
	if err := p.payments.AttachTxHash(ctx, repository.NoTX, paymentID, txHash); err != nil {
		return nil, err
	}
	payment.TxHash = txHash

	return p.verifyAndSettle(ctx, payment)
}

// verifyAndSettle checks the attached hash on-chain and moves the payment to
// its terminal state. A chain verdict fails the payment; any other error
// leaves it pending so a later retry can settle it.
func (p *paymentUC) verifyAndSettle(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	verifier, ok := p.verifiers[payment.Method]
	if !ok {
		return nil, fmt.Errorf("%w: no verifier for %s", domain.ErrInvalidArgument, payment.Method)
	}

	start := time.Now()
	verr := verifier.VerifyTransaction(ctx, payment.TxHash, payment.WalletAddress, payment.AmountCrypto)
	metrics.ObservePaymentVerify(string(payment.Method), int(time.Since(start).Milliseconds()))

	if verr != nil {
		if errors.Is(verr, domain.ErrVerificationFailed) {
			if err := p.payments.UpdateStatus(ctx, repository.NoTX, payment.ID, model.PaymentStatusFailed); err != nil {
				return nil, err
			}
			payment.Status = model.PaymentStatusFailed
			metrics.IncPayment(string(payment.Method), string(model.PaymentStatusFailed))
			p.log.Info().Int64("payment_id", payment.ID).Err(verr).Msg("payment verification rejected")
			return payment, nil
		}
		// Transient chain/API error: leave the payment pending for a retry.
		return nil, verr
	}

	err := p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := p.payments.UpdateStatus(ctx, tx, payment.ID, model.PaymentStatusConfirmed); err != nil {
			return err
		}
		usr, err := p.users.FindByIDForUpdate(ctx, tx, payment.UserID)
		if err != nil {
			return err
		}
		usr.PurchasedAnalyses += payment.AnalysesPurchased
		usr.UpdatedAt = time.Now()
		if err := p.users.Save(ctx, tx, usr); err != nil {
			return err
		}
		return p.logs.Append(ctx, tx, payment.UserID, model.ActionPaymentConfirmed)
	})
	if err != nil {
		return nil, err
	}
	payment.Status = model.PaymentStatusConfirmed
	metrics.IncPayment(string(payment.Method), string(model.PaymentStatusConfirmed))
	metrics.AddCreditsGranted(payment.AnalysesPurchased)
	p.log.Info().Int64("payment_id", payment.ID).Int64("user_id", payment.UserID).
		Int("credits", payment.AnalysesPurchased).Msg("payment confirmed")
	return payment, nil
}

// RetryPending re-runs verification for pending payments whose hash was
// submitted but could not be checked at the time (node down, indexer lag).
// Returns how many payments reached a terminal state.
func (p *paymentUC) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := p.payments.ListByStatus(ctx, repository.NoTX, model.PaymentStatusPending, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, pay := range pending {
		if pay.TxHash == "" {
			continue // nothing claimed yet
		}
		out, err := p.verifyAndSettle(ctx, pay)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotPending) {
				continue // settled concurrently
			}
			p.log.Debug().Int64("payment_id", pay.ID).Err(err).Msg("payment retry still unverifiable")
			continue
		}
		if out.Status.Terminal() {
			settled++
		}
	}
	return settled, nil
}

func (p *paymentUC) GetPending(ctx context.Context, userID int64) (*model.Payment, error) {
	return p.payments.FindPendingByUser(ctx, repository.NoTX, userID)
}

func (p *paymentUC) ListByStatus(ctx context.Context, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	return p.payments.ListByStatus(ctx, repository.NoTX, status, limit)
}

func (p *paymentUC) ExpireStale(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := p.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, pay := range stale {
		err := p.payments.UpdateStatus(ctx, repository.NoTX, pay.ID, model.PaymentStatusExpired)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotPending) {
				continue // settled concurrently
			}
			return expired, err
		}
		expired++
		metrics.IncPayment(string(pay.Method), string(model.PaymentStatusExpired))
	}
	if expired > 0 {
		p.log.Info().Int("expired", expired).Msg("stale payments expired")
	}
	return expired, nil
}
