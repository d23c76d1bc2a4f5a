package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/application"
	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	"tg-trade-suite/internal/infra/logging"
	"tg-trade-suite/internal/infra/metrics"
	red "tg-trade-suite/internal/infra/redis"
	"tg-trade-suite/internal/infra/worker"
)

// Compile-time check
var _ adapter.TelegramBotAdapter = (*RealBot)(nil)

// RealBot polls Telegram updates and delegates commands to the BotFacade.
// Chart analyses run on the worker pool so the update loop never blocks on
// the vision API.
type RealBot struct {
	bot         *tgbotapi.BotAPI
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	pool        *worker.Pool
	log         *zerolog.Logger

	adminIDs      map[int64]struct{}
	updateWorkers int
	cancelPolling context.CancelFunc
	httpClient    *http.Client
}

func NewRealBot(
	token string,
	facade *application.BotFacade,
	rateLimiter *red.RateLimiter,
	pool *worker.Pool,
	adminIDs []int64,
	updateWorkers int,
	logger *zerolog.Logger,
) (*RealBot, error) {
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if updateWorkers <= 0 {
		updateWorkers = 5
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	admins := map[int64]struct{}{}
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &RealBot{
		bot:           bot,
		facade:        facade,
		rateLimiter:   rateLimiter,
		pool:          pool,
		log:           logger,
		adminIDs:      admins,
		updateWorkers: updateWorkers,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (r *RealBot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up := <-updateChan:
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	r.log.Info().Str("username", r.bot.Self.UserName).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			metrics.IncUpdate(updateKind(up))
			updateChan <- up
		}
	}
}

func (r *RealBot) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func updateKind(up tgbotapi.Update) string {
	switch {
	case up.CallbackQuery != nil:
		return "callback"
	case up.Message == nil:
		return "other"
	case up.Message.Photo != nil || up.Message.Document != nil:
		return "image"
	case strings.HasPrefix(up.Message.Text, "/"):
		return "command"
	default:
		return "text"
	}
}

// --- adapter port ---

func (r *RealBot) SendMessage(_ context.Context, p adapter.SendMessageParams) (int, error) {
	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	if p.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if p.ReplyToID != 0 {
		msg.ReplyToMessageID = p.ReplyToID
	}
	sent, err := r.bot.Send(msg)
	if err != nil {
		metrics.IncSendError()
		return 0, err
	}
	return sent.MessageID, nil
}

func (r *RealBot) EditMessage(_ context.Context, chatID int64, messageID int, text string, markdown bool) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	_, err := r.bot.Send(edit)
	if err != nil {
		metrics.IncSendError()
	}
	return err
}

func (r *RealBot) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// --- update dispatch ---

func (r *RealBot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	msg := update.Message
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	command := "message"
	if strings.HasPrefix(msg.Text, "/") {
		command = strings.Fields(msg.Text)[0]
	}
	if !r.allow(ctx, tgID, command) {
		return r.reply(ctx, msg, "Rate limit exceeded. Please try again in a minute.", false)
	}

	if msg.Photo != nil || msg.Document != nil {
		return r.handleImage(ctx, msg)
	}

	switch command {
	case "/start":
		text, err := r.facade.HandleStart(ctx, tgID, msg.From.UserName, msg.From.FirstName)
		if err != nil {
			r.log.Error().Err(err).Msg("start failed")
			return r.reply(ctx, msg, "Something went wrong. Please try again.", false)
		}
		return r.reply(ctx, msg, text, false)

	case "/help":
		return r.reply(ctx, msg, r.facade.HandleHelp(), true)

	case "/analyze":
		return r.reply(ctx, msg, r.facade.HandleAnalyzeHint(), true)

	case "/status":
		text, err := r.facade.HandleStatus(ctx, tgID)
		if err != nil {
			r.log.Error().Err(err).Msg("status failed")
			return r.reply(ctx, msg, "Couldn't fetch your status. Please try again.", false)
		}
		return r.reply(ctx, msg, text, true)

	case "/buy":
		return r.sendBuyMenu(ctx, msg)

	case "/stats":
		if !r.isAdmin(tgID) {
			return r.reply(ctx, msg, "Unknown command. See /help.", false)
		}
		text, err := r.facade.HandleAdminStats(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("admin stats failed")
			return r.reply(ctx, msg, "Couldn't fetch stats. Please try again.", false)
		}
		return r.reply(ctx, msg, text, true)

	default:
		if command != "message" {
			return r.reply(ctx, msg, "Unknown command. See /help.", false)
		}
		// Free text while a purchase is pending is a transaction hash.
		if r.facade.AwaitingTxHash(ctx, tgID) {
			text, err := r.facade.HandleTxHash(ctx, tgID, msg.Text)
			if err != nil {
				r.log.Error().Err(err).Msg("tx hash handling failed")
				return r.reply(ctx, msg, "Verification hit a snag. Please resend the hash.", false)
			}
			return r.reply(ctx, msg, text, true)
		}
		return r.reply(ctx, msg, "Send me a chart image to analyze, or see /help.", false)
	}
}

// handleImage schedules the analysis on the worker pool and acknowledges
// immediately; the result replaces the acknowledgement when ready.
func (r *RealBot) handleImage(ctx context.Context, msg *tgbotapi.Message) error {
	fileID, filename := pickImageFile(msg)
	if fileID == "" {
		return r.reply(ctx, msg, "Please send the chart as a photo or a PNG/JPEG file.", false)
	}

	ackID, err := r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID: msg.Chat.ID, Text: "🔍 Analyzing your chart…", ReplyToID: msg.MessageID,
	})
	if err != nil {
		return err
	}

	chatID := msg.Chat.ID
	tgID := msg.From.ID
	username, firstName := msg.From.UserName, msg.From.FirstName

	err = r.pool.Submit(func(jobCtx context.Context) error {
		jobCtx, cancel := context.WithTimeout(logging.WithTgID(jobCtx, tgID), 2*time.Minute)
		defer cancel()

		data, err := r.DownloadFile(jobCtx, fileID)
		if err != nil {
			_ = r.EditMessage(jobCtx, chatID, ackID, "Couldn't download the image. Please send it again.", false)
			return err
		}
		text, err := r.facade.HandleAnalyzeImage(jobCtx, tgID, username, firstName, data, filename)
		if err != nil {
			_ = r.EditMessage(jobCtx, chatID, ackID, analyzeErrorText(err), false)
			return nil // user-facing failure, already reported
		}
		return r.EditMessage(jobCtx, chatID, ackID, text, true)
	})
	if errors.Is(err, worker.ErrQueueFull) {
		return r.EditMessage(ctx, chatID, ackID, "I'm at capacity right now. Please try again in a minute.", false)
	}
	return err
}

func analyzeErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "🚫 You're out of analyses for today. Use /buy to get more, or come back tomorrow."
	case errors.Is(err, domain.ErrImageTooLarge):
		return "The image is too large (max 5 MB)."
	case errors.Is(err, domain.ErrImageTooSmall):
		return "The image is too small to read. Please send a larger screenshot."
	case errors.Is(err, domain.ErrUnsupportedImage):
		return "I can only read PNG and JPEG images."
	case errors.Is(err, domain.ErrLockNotAcquired):
		return "I'm still working on your previous chart. One at a time, please."
	case errors.Is(err, domain.ErrUserDisabled):
		return "Your account is disabled. Contact support."
	default:
		return "Analysis failed. Your quota was not charged, please try again."
	}
}

func pickImageFile(msg *tgbotapi.Message) (fileID, filename string) {
	if len(msg.Photo) > 0 {
		// Largest photo size is last.
		best := msg.Photo[len(msg.Photo)-1]
		name := "photo.jpg"
		if msg.Caption != "" {
			// A caption like "BTCUSDT 1h" carries the symbol hint photos lose.
			name = msg.Caption + ".jpg"
		}
		return best.FileID, name
	}
	if doc := msg.Document; doc != nil {
		return doc.FileID, doc.FileName
	}
	return "", ""
}

func (r *RealBot) isAdmin(tgID int64) bool {
	_, ok := r.adminIDs[tgID]
	return ok
}

func (r *RealBot) allow(ctx context.Context, tgID int64, command string) bool {
	if r.rateLimiter == nil {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, command), 20, time.Minute)
	if err != nil {
		r.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimited()
	}
	return ok
}

func (r *RealBot) reply(ctx context.Context, msg *tgbotapi.Message, text string, markdown bool) error {
	_, err := r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID: msg.Chat.ID, Text: text, Markdown: markdown, ReplyToID: msg.MessageID,
	})
	return err
}

// --- buy flow ---

func (r *RealBot) sendBuyMenu(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := r.facade.HandleBuyMenu(ctx, msg.From.ID)
	if err != nil {
		r.log.Error().Err(err).Msg("buy menu failed")
		return r.reply(ctx, msg, "Couldn't load the packages. Please try again.", false)
	}
	pkgs := r.facade.PaymentUC.Packages()
	if len(pkgs) == 0 {
		return r.reply(ctx, msg, text, true)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(pkgs))
	for _, p := range pkgs {
		label := fmt.Sprintf("%s – %d analyses", p.Name, p.Analyses)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "pkg:"+p.ID),
		))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := r.bot.Send(out); err != nil {
		metrics.IncSendError()
		return err
	}
	return nil
}

func (r *RealBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil {
		return nil
	}
	tgID := cb.From.ID
	ctx = logging.WithTgID(ctx, tgID)
	// Ack the spinner regardless of outcome.
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(cb.ID, "")) }()

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "pkg:"):
		pkgID := strings.TrimPrefix(data, "pkg:")
		rows := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💎 TON", "pay:"+pkgID+":ton"),
				tgbotapi.NewInlineKeyboardButtonData("💵 USDT", "pay:"+pkgID+":usdt"),
			),
		)
		out := tgbotapi.NewMessage(chatIDOf(cb), "How would you like to pay?")
		out.ReplyMarkup = rows
		_, err := r.bot.Send(out)
		return err

	case strings.HasPrefix(data, "pay:"):
		parts := strings.Split(strings.TrimPrefix(data, "pay:"), ":")
		if len(parts) != 2 {
			return nil
		}
		text, err := r.facade.HandleBuyPackage(ctx, tgID, parts[0], model.PaymentMethod(parts[1]))
		if err != nil {
			r.log.Error().Err(err).Msg("buy package failed")
			text = "Couldn't create the payment. Please try again."
		}
		_, err = r.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: chatIDOf(cb), Text: text, Markdown: true,
		})
		return err
	}
	return nil
}

func chatIDOf(cb *tgbotapi.CallbackQuery) int64 {
	if cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}
	return cb.From.ID
}
