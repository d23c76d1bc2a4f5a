package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/infra/logging"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is the admin dashboard snapshot.
type Stats struct {
	TotalUsers        int   `json:"total_users"`
	TotalAnalyses     int   `json:"total_analyses"`
	AnalysesToday     int   `json:"analyses_today"`
	RevenueCents30d   int64 `json:"revenue_cents_30d"`
	QuotaDenialsToday int   `json:"quota_denials_today"`
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	users    repository.UserRepository
	analyses repository.ChartAnalysisRepository
	payments repository.PaymentRepository
	logs     repository.UsageLogRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(
	users repository.UserRepository,
	analyses repository.ChartAnalysisRepository,
	payments repository.PaymentRepository,
	logs repository.UsageLogRepository,
	logger *zerolog.Logger,
) *statsUC {
	return &statsUC{users: users, analyses: analyses, payments: payments, logs: logs, log: logger}
}

func (s *statsUC) Snapshot(ctx context.Context) (*Stats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Snapshot")()

	now := time.Now()
	midnight := model.Today(now)

	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	analyses, err := s.analyses.CountAnalyses(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	today, err := s.logs.CountByActionSince(ctx, repository.NoTX, model.ActionAnalyzeCompleted, midnight)
	if err != nil {
		return nil, err
	}
	denials, err := s.logs.CountByActionSince(ctx, repository.NoTX, model.ActionQuotaDenied, midnight)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.SumConfirmedCentsSince(ctx, repository.NoTX, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalUsers:        users,
		TotalAnalyses:     analyses,
		AnalysesToday:     today,
		RevenueCents30d:   revenue,
		QuotaDenialsToday: denials,
	}, nil
}
