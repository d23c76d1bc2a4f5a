package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// QuotaStatus is a point-in-time snapshot for the /status command.
type QuotaStatus struct {
	FreeRemaining    int
	PurchasedCredits int
	TotalAnalyses    int
}

// UserUseCase exposes user registration and quota operations used by bot and
// admin flows.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, tgID int64, username, firstName string) (*model.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	// ConsumeQuota atomically spends one analysis for the user, free daily
	// allotment first. Fails with domain.ErrQuotaExceeded when exhausted.
	ConsumeQuota(ctx context.Context, userID int64) error
	// RefundQuota returns one analysis after a pipeline failure.
	RefundQuota(ctx context.Context, userID int64) error
	Status(ctx context.Context, userID int64) (*QuotaStatus, error)
	// GrantCredits adds purchased analyses outside the payment flow (admin).
	GrantCredits(ctx context.Context, userID int64, n int) error
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
}

type userUC struct {
	users     repository.UserRepository
	logs      repository.UsageLogRepository
	tm        repository.TransactionManager
	dailyFree int
	log       *zerolog.Logger
}

func NewUserUseCase(
	users repository.UserRepository,
	logs repository.UsageLogRepository,
	tm repository.TransactionManager,
	dailyFree int,
	logger *zerolog.Logger,
) *userUC {
	return &userUC{users: users, logs: logs, tm: tm, dailyFree: dailyFree, log: logger}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, username, firstName string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramID(ctx, tx, tgID)
		if err == nil {
			// Refresh identity fields if Telegram reports new ones.
			if (username != "" && usr.Username != username) ||
				(firstName != "" && usr.FirstName != firstName) {
				usr.Username = username
				usr.FirstName = firstName
				usr.UpdatedAt = time.Now()
				if err := u.users.Save(ctx, tx, usr); err != nil {
					return err
				}
			}
			user = usr
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		nu, err := model.NewUser(tgID, username, firstName)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		if err := u.logs.Append(ctx, tx, nu.ID, model.ActionStart); err != nil {
			return err
		}
		user = nu
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) ConsumeQuota(ctx context.Context, userID int64) error {
	defer logging.TraceDuration(u.log, "UserUC.ConsumeQuota")()

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := usr.Consume(time.Now(), u.dailyFree); err != nil {
			return err
		}
		return u.users.Save(ctx, tx, usr)
	})
	if errors.Is(err, domain.ErrQuotaExceeded) {
		metrics.IncQuotaDenied()
	}
	return err
}

func (u *userUC) RefundQuota(ctx context.Context, userID int64) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		usr.Refund(time.Now())
		return u.users.Save(ctx, tx, usr)
	})
}

func (u *userUC) Status(ctx context.Context, userID int64) (*QuotaStatus, error) {
	usr, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	return &QuotaStatus{
		FreeRemaining:    usr.RemainingFree(time.Now(), u.dailyFree),
		PurchasedCredits: usr.PurchasedAnalyses,
		TotalAnalyses:    usr.TotalAnalyses,
	}, nil
}

func (u *userUC) GrantCredits(ctx context.Context, userID int64, n int) error {
	if n <= 0 {
		return domain.ErrInvalidArgument
	}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		usr.PurchasedAnalyses += n
		usr.UpdatedAt = time.Now()
		return u.users.Save(ctx, tx, usr)
	})
	if err == nil {
		metrics.AddCreditsGranted(n)
		u.log.Info().Int64("user_id", userID).Int("credits", n).Msg("credits granted")
	}
	return err
}

func (u *userUC) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	return u.users.List(ctx, repository.NoTX, offset, limit)
}
