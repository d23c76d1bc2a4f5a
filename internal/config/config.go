// Package config loads runtime configuration from environment variables
// (optionally seeded from a .env file) and the credit-package catalog from
// a YAML file. The whole configuration surface is env-driven; there are no
// CLI flags beyond the process entrypoint.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"tg-trade-suite/internal/domain/model"
)

type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	BotWorkers       int     `envconfig:"BOT_WORKERS" default:"8"`
	BotAdminIDsRaw   string  `envconfig:"BOT_ADMIN_IDS"`
	BotAdminIDs      []int64 `envconfig:"-"`

	// --- Database ---
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// --- Redis ---
	RedisURL      string `envconfig:"REDIS_URL" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// --- OpenAI ---
	// Empty key runs the bot with a canned vision adapter for local dev.
	OpenAIAPIKey      string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAIMaxTokens   int     `envconfig:"OPENAI_MAX_TOKENS" default:"1000"`
	OpenAITemperature float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.1"`
	AIConcurrentLimit int     `envconfig:"AI_CONCURRENT_LIMIT" default:"16"`

	// --- Market data ---
	FinnhubAPIKey string `envconfig:"FINNHUB_API_KEY"`

	// --- Payments: TON ---
	TONWalletAddress string `envconfig:"TON_WALLET_ADDRESS"`
	TONAPIKey        string `envconfig:"TON_API_KEY"`
	TONAPIBase       string `envconfig:"TON_API_BASE" default:"https://toncenter.com"`

	// --- Payments: USDT (ERC-20) ---
	TetherWalletAddress   string `envconfig:"TETHER_WALLET_ADDRESS"`
	EthereumRPCURL        string `envconfig:"ETHEREUM_RPC_URL"`
	TetherContractAddress string `envconfig:"TETHER_CONTRACT_ADDRESS" default:"0xdAC17F958D2ee523a2206206994597C13D831ec7"`
	USDTMinConfirmations  uint64 `envconfig:"USDT_MIN_CONFIRMATIONS" default:"6"`

	// --- App ---
	HTTPPort     int    `envconfig:"HTTP_PORT" default:"8000"`
	AppURL       string `envconfig:"APP_URL" default:"http://localhost:8000"`
	JWTSecretKey string `envconfig:"JWT_SECRET_KEY" required:"true"`
	PackagesFile string `envconfig:"PACKAGES_FILE" default:"configs/packages.yaml"`

	// --- File storage ---
	UploadFolder          string `envconfig:"UPLOAD_FOLDER" default:"/app/uploads"`
	MaxFileSize           int64  `envconfig:"MAX_FILE_SIZE" default:"5242880"`
	ImageRetentionSeconds int    `envconfig:"IMAGE_RETENTION_SECONDS" default:"60"`
	ImageCleanupEnabled   bool   `envconfig:"IMAGE_CLEANUP_ENABLED" default:"true"`
	StorageBackend        string `envconfig:"STORAGE_BACKEND" default:"local"` // local | s3

	// --- S3 (when STORAGE_BACKEND=s3) ---
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"charts"`

	// --- Quota ---
	DailyFreeAnalyses int `envconfig:"DAILY_FREE_ANALYSES" default:"3"`

	// --- Logging ---
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"` // json | console
	LogSampling bool   `envconfig:"LOG_SAMPLING" default:"false"`
}

// Load reads .env when present, then the environment. Missing required
// variables fail fast here rather than at first use.
func Load() (*Config, error) {
	// Ignore a missing .env; containers inject the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	ids, err := parseAdminIDs(cfg.BotAdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("BOT_ADMIN_IDS: %w", err)
	}
	cfg.BotAdminIDs = ids

	if cfg.BotWorkers <= 0 {
		cfg.BotWorkers = 8
	}
	switch cfg.StorageBackend {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be local or s3, got %q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required with STORAGE_BACKEND=s3")
	}
	if strings.Contains(cfg.TelegramBotToken, "YOUR_BOT_TOKEN") {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is a placeholder; get a real token from @BotFather")
	}
	return &cfg, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Catalog is the set of purchasable credit packages.
type Catalog struct {
	Packages []model.Package `yaml:"packages"`
}

// LoadCatalog parses the package catalog file and validates each entry.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Packages) == 0 {
		return nil, errors.New("catalog has no packages")
	}
	for _, p := range c.Packages {
		if p.ID == "" || p.Analyses <= 0 || p.PriceCents <= 0 {
			return nil, fmt.Errorf("invalid package %q", p.ID)
		}
	}
	return &c, nil
}

// Find returns the package with the given id.
func (c *Catalog) Find(id string) (model.Package, bool) {
	for _, p := range c.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return model.Package{}, false
}
