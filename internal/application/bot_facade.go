// Package application composes use cases into the high-level commands the
// Telegram adapter exposes. Facade methods return ready-to-send strings so
// the adapter stays a thin transport.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/usecase"
)

type BotFacade struct {
	UserUC     usecase.UserUseCase
	AnalysisUC usecase.AnalysisUseCase
	PaymentUC  usecase.PaymentUseCase
	StatsUC    usecase.StatsUseCase
	States     repository.StateRepository

	appURL string
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	analysisUC usecase.AnalysisUseCase,
	paymentUC usecase.PaymentUseCase,
	statsUC usecase.StatsUseCase,
	states repository.StateRepository,
	appURL string,
) *BotFacade {
	return &BotFacade{
		UserUC:     userUC,
		AnalysisUC: analysisUC,
		PaymentUC:  paymentUC,
		StatsUC:    statsUC,
		States:     states,
		appURL:     strings.TrimRight(appURL, "/"),
	}
}

// HandleStart registers or fetches the user and returns the welcome text.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64, username, firstName string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, tgID, username, firstName)
	if err != nil {
		return "", fmt.Errorf("register/fetch user: %w", err)
	}
	name := u.FirstName
	if name == "" {
		name = u.Username
	}
	return fmt.Sprintf(
		"👋 Hi %s!\n\nSend me a chart screenshot and I'll analyze it: trend, support/resistance, patterns and risk.\n\nCommands:\n/analyze – how to submit a chart\n/status – your remaining analyses\n/buy – get more analyses\n/help – all commands",
		name), nil
}

func (b *BotFacade) HandleHelp() string {
	return "📖 *Commands*\n" +
		"/start – register and say hello\n" +
		"/analyze – how to submit a chart\n" +
		"/status – remaining free and purchased analyses\n" +
		"/buy – purchase analysis packages\n" +
		"/help – this message\n\n" +
		"Just send a chart image (photo or file) to get an analysis. " +
		"Tip: name the file like `BTCUSDT_1h.png` and I'll add live indicator data."
}

func (b *BotFacade) HandleAnalyzeHint() string {
	return "📷 Send a chart screenshot (PNG or JPEG, at least 100×100, up to 5 MB) and I'll analyze it.\n\n" +
		"Name the file after the pair and timeframe, e.g. `BTCUSDT_1h.png`, to include live RSI/MACD/Bollinger readings in the analysis."
}

// HandleStatus reports remaining quota for the user.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (string, error) {
	u, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "You're not registered yet. Send /start first.", nil
		}
		return "", err
	}
	st, err := b.UserUC.Status(ctx, u.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"📊 *Your account*\n\nFree analyses left today: *%d*\nPurchased credits: *%d*\nTotal analyses: *%d*",
		st.FreeRemaining, st.PurchasedCredits, st.TotalAnalyses), nil
}

// HandleAnalyzeImage runs the full pipeline and returns the rendered reply
// with a public share link appended.
func (b *BotFacade) HandleAnalyzeImage(ctx context.Context, tgID int64, username, firstName string, data []byte, filename string) (string, error) {
	u, err := b.UserUC.RegisterOrFetch(ctx, tgID, username, firstName)
	if err != nil {
		return "", err
	}
	analysis, err := b.AnalysisUC.Analyze(ctx, usecase.AnalyzeRequest{
		UserID:     u.ID,
		TelegramID: tgID,
		ImageData:  data,
		Filename:   filename,
	})
	if err != nil {
		return "", err
	}
	reply := analysis.AnalysisText
	if analysis.ShareID != "" && b.appURL != "" {
		reply += fmt.Sprintf("\n\n🔗 Share: %s/share/%s", b.appURL, analysis.ShareID)
	}
	return reply, nil
}

// HandleBuyMenu lists the purchasable packages.
func (b *BotFacade) HandleBuyMenu(ctx context.Context, tgID int64) (string, error) {
	if _, err := b.UserUC.GetByTelegramID(ctx, tgID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "Send /start first, then /buy.", nil
		}
		return "", err
	}
	pkgs := b.PaymentUC.Packages()
	if len(pkgs) == 0 {
		return "No packages available right now.", nil
	}
	var sb strings.Builder
	sb.WriteString("💳 *Analysis packages*\n\n")
	for _, p := range pkgs {
		fmt.Fprintf(&sb, "*%s* – %d analyses for $%.2f\n", p.Name, p.Analyses, float64(p.PriceCents)/100)
	}
	sb.WriteString("\nPick a package below, then choose TON or USDT.")
	return sb.String(), nil
}

// HandleBuyPackage creates a pending payment and tells the user what to send
// where. The conversation moves to the awaiting-tx-hash step.
func (b *BotFacade) HandleBuyPackage(ctx context.Context, tgID int64, packageID string, method model.PaymentMethod) (string, error) {
	u, err := b.UserUC.GetByTelegramID(ctx, tgID)
	if err != nil {
		return "", err
	}
	p, err := b.PaymentUC.CreatePayment(ctx, u.ID, packageID, method)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPackage) {
			return "Unknown package. Use /buy to see the list.", nil
		}
		if errors.Is(err, domain.ErrInvalidArgument) {
			return "That payment method isn't available right now.", nil
		}
		return "", err
	}

	if err := b.States.SetState(ctx, tgID, &repository.ConversationState{
		Step:      repository.StepAwaitingTxHash,
		PaymentID: p.ID,
		PackageID: packageID,
	}); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"🧾 *Payment #%d*\n\nSend *%s* to:\n`%s`\n\nThen reply with the transaction hash and I'll verify it on-chain. The payment expires in 1 hour.",
		p.ID, formatCrypto(p), p.WalletAddress), nil
}

// HandleTxHash verifies a submitted transaction hash against the pending
// payment tracked in the conversation state.
func (b *BotFacade) HandleTxHash(ctx context.Context, tgID int64, txHash string) (string, error) {
	state, err := b.States.GetState(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "I'm not expecting a transaction hash right now. Use /buy to start a purchase.", nil
		}
		return "", err
	}
	if state.Step != repository.StepAwaitingTxHash {
		return "I'm not expecting a transaction hash right now. Use /buy to start a purchase.", nil
	}

	p, err := b.PaymentUC.SubmitTxHash(ctx, state.PaymentID, strings.TrimSpace(txHash))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTxHashAlreadyUsed):
			return "⚠️ That transaction hash was already used.", nil
		case errors.Is(err, domain.ErrPaymentNotPending):
			_ = b.States.ClearState(ctx, tgID)
			return "This payment is already settled or expired. Use /buy to start again.", nil
		default:
			return "", err
		}
	}

	switch p.Status {
	case model.PaymentStatusConfirmed:
		_ = b.States.ClearState(ctx, tgID)
		return fmt.Sprintf("✅ Payment confirmed! *%d* analyses added to your account.", p.AnalysesPurchased), nil
	case model.PaymentStatusFailed:
		_ = b.States.ClearState(ctx, tgID)
		return "❌ Verification failed: the transaction doesn't match this payment. Contact support if you believe this is wrong.", nil
	default:
		return "⏳ Couldn't verify yet. Please try sending the hash again in a minute.", nil
	}
}

// HandleAdminStats renders the platform snapshot for bot admins.
func (b *BotFacade) HandleAdminStats(ctx context.Context) (string, error) {
	st, err := b.StatsUC.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"📈 *Platform stats*\n\nUsers: *%d*\nAnalyses: *%d* (%d today)\nQuota denials today: *%d*\nRevenue (30d): *$%.2f*",
		st.TotalUsers, st.TotalAnalyses, st.AnalysesToday, st.QuotaDenialsToday, float64(st.RevenueCents30d)/100), nil
}

// AwaitingTxHash reports whether free-text from this user should be treated
// as a transaction hash.
func (b *BotFacade) AwaitingTxHash(ctx context.Context, tgID int64) bool {
	state, err := b.States.GetState(ctx, tgID)
	return err == nil && state.Step == repository.StepAwaitingTxHash
}

func formatCrypto(p *model.Payment) string {
	switch p.Method {
	case model.PaymentMethodTON:
		return fmt.Sprintf("%.2f TON", float64(p.AmountCrypto)/1e9)
	case model.PaymentMethodUSDT:
		return fmt.Sprintf("%.2f USDT", float64(p.AmountCrypto)/1e6)
	}
	return fmt.Sprintf("%d units", p.AmountCrypto)
}
