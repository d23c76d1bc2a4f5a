package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/infra/market"
	"tg-trade-suite/internal/infra/metrics"
	"tg-trade-suite/internal/infra/redis"
	"tg-trade-suite/internal/infra/storage"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

// AnalyzeRequest is one chart image submission.
type AnalyzeRequest struct {
	UserID     int64
	TelegramID int64
	ImageData  []byte
	Filename   string // as sent by Telegram; may carry a symbol hint
}

// AnalysisUseCase runs the chart analysis pipeline and serves stored results.
type AnalysisUseCase interface {
	// Analyze validates, charges quota, stores the image, calls the vision
	// model and persists the result. Quota is refunded when the pipeline
	// fails after the charge.
	Analyze(ctx context.Context, req AnalyzeRequest) (*model.ChartAnalysis, error)
	GetByShareID(ctx context.Context, shareID string) (*model.ChartAnalysis, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]*model.ChartAnalysis, error)
}

type analysisUC struct {
	analyses repository.ChartAnalysisRepository
	users    repository.UserRepository
	logs     repository.UsageLogRepository
	tm       repository.TransactionManager
	quota    UserUseCase
	vision   adapter.VisionAnalyzer
	store    storage.ImageStore
	mkt      *market.Client
	locker   redis.Locker

	maxFileSize int64
	log         *zerolog.Logger
}

func NewAnalysisUseCase(
	analyses repository.ChartAnalysisRepository,
	users repository.UserRepository,
	logs repository.UsageLogRepository,
	tm repository.TransactionManager,
	quota UserUseCase,
	vision adapter.VisionAnalyzer,
	store storage.ImageStore,
	mkt *market.Client,
	locker redis.Locker,
	maxFileSize int64,
	logger *zerolog.Logger,
) *analysisUC {
	return &analysisUC{
		analyses: analyses, users: users, logs: logs, tm: tm,
		quota: quota, vision: vision, store: store, mkt: mkt, locker: locker,
		maxFileSize: maxFileSize, log: logger,
	}
}

func (a *analysisUC) Analyze(ctx context.Context, req AnalyzeRequest) (*model.ChartAnalysis, error) {
	defer logging.TraceDuration(a.log, "AnalysisUC.Analyze")()
	started := time.Now()

	// One in-flight analysis per user; a second upload during processing is
	// rejected instead of queued.
	lockKey := redis.AnalysisLockKey(req.TelegramID)
	token, err := a.locker.TryLock(ctx, lockKey, 2*time.Minute)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.locker.Unlock(context.Background(), lockKey, token); err != nil {
			a.log.Warn().Err(err).Str("key", lockKey).Msg("analysis lock release failed")
		}
	}()

	ext, err := storage.ValidateImage(req.ImageData, extOf(req.Filename), a.maxFileSize)
	if err != nil {
		metrics.IncImageRejected(rejectionReason(err))
		return nil, err
	}
	// Oversized screenshots are shrunk before storage and the vision call.
	req.ImageData, err = storage.DownscaleIfNeeded(req.ImageData, ext)
	if err != nil {
		metrics.IncImageRejected(rejectionReason(err))
		return nil, err
	}

	if err := a.quota.ConsumeQuota(ctx, req.UserID); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			_ = a.logs.Append(ctx, repository.NoTX, req.UserID, model.ActionQuotaDenied)
		}
		return nil, err
	}
	_ = a.logs.Append(ctx, repository.NoTX, req.UserID, model.ActionAnalyzeRequested)

	analysis, err := a.run(ctx, req, ext, started)
	if err != nil {
		if rerr := a.quota.RefundQuota(ctx, req.UserID); rerr != nil {
			a.log.Error().Err(rerr).Int64("user_id", req.UserID).Msg("quota refund failed")
		}
		_ = a.logs.Append(ctx, repository.NoTX, req.UserID, model.ActionAnalyzeFailed)
		metrics.IncAnalysis("failed")
		return nil, err
	}
	metrics.IncAnalysis("completed")
	metrics.ObservePipeline(int(time.Since(started).Milliseconds()))
	return analysis, nil
}

func (a *analysisUC) run(ctx context.Context, req AnalyzeRequest, ext string, started time.Time) (*model.ChartAnalysis, error) {
	imagePath, err := a.store.Put(ctx, req.ImageData, ext)
	if err != nil {
		return nil, err
	}

	result, err := a.vision.AnalyzeChart(ctx, adapter.VisionRequest{
		ImageData:         req.ImageData,
		MimeType:          storage.MimeType(ext),
		IndicatorSnapshot: a.enrich(ctx, req.Filename),
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveConfidence(result.Confidence)

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	analysis := &model.ChartAnalysis{
		UserID:         req.UserID,
		ImagePath:      imagePath,
		AnalysisJSON:   raw,
		AnalysisText:   RenderAnalysis(result),
		ProcessingTime: time.Since(started).Seconds(),
		AIConfidence:   result.Confidence,
		ShareID:        model.NewShareID(),
		CreatedAt:      time.Now(),
	}

	err = a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := a.analyses.Save(ctx, tx, analysis); err != nil {
			return err
		}
		if err := a.users.IncrementTotalAnalyses(ctx, tx, req.UserID); err != nil {
			return err
		}
		return a.logs.Append(ctx, tx, req.UserID, model.ActionAnalyzeCompleted)
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// enrich builds the indicator snapshot when the filename names a tradable
// pair and market data is configured. Any failure here degrades to an
// image-only analysis.
func (a *analysisUC) enrich(ctx context.Context, filename string) string {
	if a.mkt == nil || !a.mkt.Enabled() {
		return ""
	}
	pair, timeframe, ok := market.DetectSymbol(filename)
	if !ok {
		return ""
	}
	candles, err := a.mkt.CryptoCandles(ctx, pair, timeframe, 250)
	if err != nil {
		a.log.Warn().Err(err).Str("pair", pair).Msg("market enrichment skipped")
		return ""
	}
	return market.Snapshot(pair, timeframe, candles)
}

func (a *analysisUC) GetByShareID(ctx context.Context, shareID string) (*model.ChartAnalysis, error) {
	analysis, err := a.analyses.FindByShareID(ctx, repository.NoTX, shareID)
	if err != nil {
		return nil, err
	}
	_ = a.logs.Append(ctx, repository.NoTX, analysis.UserID, model.ActionShareViewed)
	return analysis, nil
}

func (a *analysisUC) ListRecent(ctx context.Context, userID int64, limit int) ([]*model.ChartAnalysis, error) {
	return a.analyses.ListByUser(ctx, repository.NoTX, userID, limit)
}

func extOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
		if filename[i] == '/' {
			break
		}
	}
	return ""
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrImageTooSmall):
		return "too_small"
	default:
		return "unsupported"
	}
}
