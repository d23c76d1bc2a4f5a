package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tg-trade-suite/internal/application"
	"tg-trade-suite/internal/config"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	aiAdapters "tg-trade-suite/internal/infra/adapters/ai"
	payAdapters "tg-trade-suite/internal/infra/adapters/payment"
	tele "tg-trade-suite/internal/infra/adapters/telegram"
	pg "tg-trade-suite/internal/infra/db/postgres"
	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/infra/market"
	"tg-trade-suite/internal/infra/metrics"
	red "tg-trade-suite/internal/infra/redis"
	"tg-trade-suite/internal/infra/sched"
	"tg-trade-suite/internal/infra/storage"
	"tg-trade-suite/internal/infra/web"
	"tg-trade-suite/internal/infra/worker"
	"tg-trade-suite/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampling)

	catalog, err := config.LoadCatalog(cfg.PackagesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("package catalog")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.DatabaseURL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	states := red.NewStateRepo(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	analysisRepo := pg.NewChartAnalysisRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	usageLogRepo := pg.NewUsageLogRepo(pool)

	// ---- Image store ----
	localStore, err := storage.NewLocalStore(cfg.UploadFolder)
	if err != nil {
		log.Fatal().Err(err).Msg("image store")
	}
	var store storage.ImageStore = localStore
	if cfg.StorageBackend == "s3" {
		store, err = storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("s3 store")
		}
	}

	// ---- Vision adapter ----
	var vision adapter.VisionAnalyzer
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set; analyses will return canned results")
		vision = aiAdapters.NewNoopVision()
	} else {
		vision, err = aiAdapters.NewOpenAIVision(cfg.OpenAIAPIKey, "", cfg.OpenAIModel,
			cfg.OpenAIMaxTokens, cfg.OpenAITemperature, log)
		if err != nil {
			log.Fatal().Err(err).Msg("vision adapter")
		}
	}
	limited := aiAdapters.NewLimitedVision(vision, cfg.AIConcurrentLimit)

	// ---- Market data ----
	var mkt *market.Client
	if cfg.FinnhubAPIKey != "" {
		mkt = market.NewClient(cfg.FinnhubAPIKey, log)
	}

	// ---- Chain verifiers ----
	verifiers := map[model.PaymentMethod]adapter.ChainVerifier{}
	wallets := map[model.PaymentMethod]string{}
	if cfg.TONWalletAddress != "" {
		verifiers[model.PaymentMethodTON] = payAdapters.NewTONVerifier(cfg.TONAPIBase+"/api/v2", cfg.TONAPIKey, log)
		wallets[model.PaymentMethodTON] = cfg.TONWalletAddress
	}
	if cfg.TetherWalletAddress != "" && cfg.EthereumRPCURL != "" {
		usdt, err := payAdapters.NewUSDTVerifier(cfg.EthereumRPCURL, cfg.TetherContractAddress, int(cfg.USDTMinConfirmations), log)
		if err != nil {
			log.Fatal().Err(err).Msg("usdt verifier")
		}
		defer usdt.Close()
		verifiers[model.PaymentMethodUSDT] = usdt
		wallets[model.PaymentMethodUSDT] = cfg.TetherWalletAddress
	}
	if len(verifiers) == 0 {
		log.Warn().Msg("no payment methods configured; /buy will be unavailable")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, usageLogRepo, tm, cfg.DailyFreeAnalyses, log)
	analysisUC := usecase.NewAnalysisUseCase(analysisRepo, userRepo, usageLogRepo, tm,
		userUC, limited, store, mkt, locker, cfg.MaxFileSize, log)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, userRepo, usageLogRepo, tm,
		catalog, verifiers, wallets, log)
	statsUC := usecase.NewStatsUseCase(userRepo, analysisRepo, paymentRepo, usageLogRepo, log)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.BotWorkers, log)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Telegram bot ----
	facade := application.NewBotFacade(userUC, analysisUC, paymentUC, statsUC, states, cfg.AppURL)
	bot, err := tele.NewRealBot(cfg.TelegramBotToken, facade, rateLimiter, pool2,
		cfg.BotAdminIDs, cfg.BotWorkers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram bot")
	}

	// ---- Background jobs ----
	scheduler := sched.New(log)
	if cfg.ImageCleanupEnabled && cfg.StorageBackend == "local" {
		retention := time.Duration(cfg.ImageRetentionSeconds) * time.Second
		if err := scheduler.AddImageSweeper(localStore, retention); err != nil {
			log.Fatal().Err(err).Msg("image sweeper")
		}
	}
	if err := scheduler.AddPaymentReconciler(paymentUC); err != nil {
		log.Fatal().Err(err).Msg("payment reconciler")
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ---- HTTP ----
	metrics.MustRegister()
	auth := web.NewAuthManager(cfg.JWTSecretKey, 30*time.Minute)
	server := web.NewServer(cfg.HTTPPort, analysisUC, userUC, paymentUC, statsUC, auth, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	go func() {
		if err := bot.StartPolling(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("telegram polling")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	bot.StopPolling()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
