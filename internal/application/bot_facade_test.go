package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/repository"
	"tg-trade-suite/internal/usecase"
)

// --- fakes ---

type fakeUserUC struct {
	users map[int64]*model.User
}

func (f *fakeUserUC) RegisterOrFetch(_ context.Context, tgID int64, username, firstName string) (*model.User, error) {
	if u, ok := f.users[tgID]; ok {
		return u, nil
	}
	u := &model.User{ID: tgID * 10, TelegramID: tgID, Username: username, FirstName: firstName, IsActive: true}
	f.users[tgID] = u
	return u, nil
}

func (f *fakeUserUC) GetByTelegramID(_ context.Context, tgID int64) (*model.User, error) {
	if u, ok := f.users[tgID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserUC) ConsumeQuota(context.Context, int64) error { return nil }
func (f *fakeUserUC) RefundQuota(context.Context, int64) error  { return nil }
func (f *fakeUserUC) Status(context.Context, int64) (*usecase.QuotaStatus, error) {
	return &usecase.QuotaStatus{FreeRemaining: 3, PurchasedCredits: 5, TotalAnalyses: 12}, nil
}
func (f *fakeUserUC) GrantCredits(context.Context, int64, int) error { return nil }
func (f *fakeUserUC) List(context.Context, int, int) ([]*model.User, error) {
	return nil, nil
}

type fakeAnalysisUC struct {
	result *model.ChartAnalysis
	err    error
}

func (f *fakeAnalysisUC) Analyze(context.Context, usecase.AnalyzeRequest) (*model.ChartAnalysis, error) {
	return f.result, f.err
}
func (f *fakeAnalysisUC) GetByShareID(context.Context, string) (*model.ChartAnalysis, error) {
	return f.result, f.err
}
func (f *fakeAnalysisUC) ListRecent(context.Context, int64, int) ([]*model.ChartAnalysis, error) {
	return nil, nil
}

type fakePaymentUC struct {
	created *model.Payment
	settled *model.Payment
	err     error
	pkgs    []model.Package
}

func (f *fakePaymentUC) CreatePayment(context.Context, int64, string, model.PaymentMethod) (*model.Payment, error) {
	return f.created, f.err
}
func (f *fakePaymentUC) SubmitTxHash(context.Context, int64, string) (*model.Payment, error) {
	return f.settled, f.err
}
func (f *fakePaymentUC) GetPending(context.Context, int64) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (f *fakePaymentUC) ListByStatus(context.Context, model.PaymentStatus, int) ([]*model.Payment, error) {
	return nil, nil
}
func (f *fakePaymentUC) RetryPending(context.Context, int) (int, error)               { return 0, nil }
func (f *fakePaymentUC) ExpireStale(context.Context, time.Duration, int) (int, error) { return 0, nil }
func (f *fakePaymentUC) Packages() []model.Package                                    { return f.pkgs }

type fakeStatsUC struct{ stats usecase.Stats }

func (f *fakeStatsUC) Snapshot(context.Context) (*usecase.Stats, error) { return &f.stats, nil }

type memStateRepo struct {
	states map[int64]*repository.ConversationState
}

func (m *memStateRepo) SetState(_ context.Context, tgID int64, s *repository.ConversationState) error {
	m.states[tgID] = s
	return nil
}

func (m *memStateRepo) GetState(_ context.Context, tgID int64) (*repository.ConversationState, error) {
	if s, ok := m.states[tgID]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStateRepo) ClearState(_ context.Context, tgID int64) error {
	delete(m.states, tgID)
	return nil
}

func newTestFacade(analysis *fakeAnalysisUC, payment *fakePaymentUC) (*BotFacade, *memStateRepo) {
	states := &memStateRepo{states: map[int64]*repository.ConversationState{}}
	f := NewBotFacade(
		&fakeUserUC{users: map[int64]*model.User{}},
		analysis,
		payment,
		&fakeStatsUC{stats: usecase.Stats{TotalUsers: 2, TotalAnalyses: 9, RevenueCents30d: 1998}},
		states,
		"https://charts.example.com/",
	)
	return f, states
}

// --- tests ---

func TestHandleStart(t *testing.T) {
	f, _ := newTestFacade(&fakeAnalysisUC{}, &fakePaymentUC{})

	text, err := f.HandleStart(context.Background(), 42, "trader", "Ada")
	if err != nil {
		t.Fatalf("HandleStart() error = %v", err)
	}
	if !strings.Contains(text, "Ada") {
		t.Errorf("expected greeting by first name, got %q", text)
	}
	if !strings.Contains(text, "/buy") {
		t.Errorf("expected command list in welcome, got %q", text)
	}
}

func TestHandleStatus_Unregistered(t *testing.T) {
	f, _ := newTestFacade(&fakeAnalysisUC{}, &fakePaymentUC{})

	text, err := f.HandleStatus(context.Background(), 42)
	if err != nil {
		t.Fatalf("HandleStatus() error = %v", err)
	}
	if !strings.Contains(text, "/start") {
		t.Errorf("expected a /start nudge, got %q", text)
	}
}

func TestHandleAnalyzeImage_AppendsShareLink(t *testing.T) {
	f, _ := newTestFacade(&fakeAnalysisUC{
		result: &model.ChartAnalysis{AnalysisText: "📈 Trend: uptrend", ShareID: "01TESTSHARE"},
	}, &fakePaymentUC{})

	text, err := f.HandleAnalyzeImage(context.Background(), 42, "trader", "Ada", []byte("img"), "BTCUSDT_1h.png")
	if err != nil {
		t.Fatalf("HandleAnalyzeImage() error = %v", err)
	}
	if !strings.Contains(text, "https://charts.example.com/share/01TESTSHARE") {
		t.Errorf("expected share link appended, got %q", text)
	}
}

func TestHandleBuyPackage_SetsAwaitingTxHash(t *testing.T) {
	payment := &fakePaymentUC{
		created: &model.Payment{
			ID: 7, Method: model.PaymentMethodTON, AmountCrypto: 2_500_000_000,
			WalletAddress: "EQwallet", Status: model.PaymentStatusPending,
		},
	}
	f, states := newTestFacade(&fakeAnalysisUC{}, payment)
	ctx := context.Background()
	if _, err := f.UserUC.RegisterOrFetch(ctx, 42, "trader", "Ada"); err != nil {
		t.Fatal(err)
	}

	text, err := f.HandleBuyPackage(ctx, 42, "starter", model.PaymentMethodTON)
	if err != nil {
		t.Fatalf("HandleBuyPackage() error = %v", err)
	}
	if !strings.Contains(text, "2.50 TON") {
		t.Errorf("expected formatted TON amount, got %q", text)
	}
	if !strings.Contains(text, "EQwallet") {
		t.Errorf("expected destination wallet, got %q", text)
	}

	st := states.states[42]
	if st == nil || st.Step != repository.StepAwaitingTxHash || st.PaymentID != 7 {
		t.Errorf("expected awaiting-tx-hash state for payment 7, got %+v", st)
	}
	if !f.AwaitingTxHash(ctx, 42) {
		t.Error("AwaitingTxHash() = false, want true")
	}
}

func TestHandleTxHash(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed payment clears the state", func(t *testing.T) {
		payment := &fakePaymentUC{
			settled: &model.Payment{ID: 7, Status: model.PaymentStatusConfirmed, AnalysesPurchased: 10},
		}
		f, states := newTestFacade(&fakeAnalysisUC{}, payment)
		states.states[42] = &repository.ConversationState{Step: repository.StepAwaitingTxHash, PaymentID: 7}

		text, err := f.HandleTxHash(ctx, 42, " abc123 ")
		if err != nil {
			t.Fatalf("HandleTxHash() error = %v", err)
		}
		if !strings.Contains(text, "10") {
			t.Errorf("expected credited count in reply, got %q", text)
		}
		if _, ok := states.states[42]; ok {
			t.Error("expected conversation state cleared after confirmation")
		}
	})

	t.Run("failed verification clears the state", func(t *testing.T) {
		payment := &fakePaymentUC{
			settled: &model.Payment{ID: 7, Status: model.PaymentStatusFailed},
		}
		f, states := newTestFacade(&fakeAnalysisUC{}, payment)
		states.states[42] = &repository.ConversationState{Step: repository.StepAwaitingTxHash, PaymentID: 7}

		text, err := f.HandleTxHash(ctx, 42, "bad")
		if err != nil {
			t.Fatalf("HandleTxHash() error = %v", err)
		}
		if !strings.Contains(text, "failed") {
			t.Errorf("expected a failure reply, got %q", text)
		}
		if _, ok := states.states[42]; ok {
			t.Error("expected conversation state cleared after failure")
		}
	})

	t.Run("pending payment keeps the state for a retry", func(t *testing.T) {
		payment := &fakePaymentUC{
			settled: &model.Payment{ID: 7, Status: model.PaymentStatusPending},
		}
		f, states := newTestFacade(&fakeAnalysisUC{}, payment)
		states.states[42] = &repository.ConversationState{Step: repository.StepAwaitingTxHash, PaymentID: 7}

		text, err := f.HandleTxHash(ctx, 42, "slow")
		if err != nil {
			t.Fatalf("HandleTxHash() error = %v", err)
		}
		if !strings.Contains(text, "try sending the hash again") {
			t.Errorf("expected a retry reply, got %q", text)
		}
		if _, ok := states.states[42]; !ok {
			t.Error("expected conversation state kept for retry")
		}
	})

	t.Run("reused hash is reported without settling", func(t *testing.T) {
		payment := &fakePaymentUC{err: domain.ErrTxHashAlreadyUsed}
		f, states := newTestFacade(&fakeAnalysisUC{}, payment)
		states.states[42] = &repository.ConversationState{Step: repository.StepAwaitingTxHash, PaymentID: 7}

		text, err := f.HandleTxHash(ctx, 42, "dup")
		if err != nil {
			t.Fatalf("HandleTxHash() error = %v", err)
		}
		if !strings.Contains(text, "already used") {
			t.Errorf("expected reused-hash reply, got %q", text)
		}
	})

	t.Run("no pending flow", func(t *testing.T) {
		f, _ := newTestFacade(&fakeAnalysisUC{}, &fakePaymentUC{})

		text, err := f.HandleTxHash(ctx, 42, "abc")
		if err != nil {
			t.Fatalf("HandleTxHash() error = %v", err)
		}
		if !strings.Contains(text, "/buy") {
			t.Errorf("expected a /buy nudge, got %q", text)
		}
	})
}

func TestHandleAdminStats(t *testing.T) {
	f, _ := newTestFacade(&fakeAnalysisUC{}, &fakePaymentUC{})

	text, err := f.HandleAdminStats(context.Background())
	if err != nil {
		t.Fatalf("HandleAdminStats() error = %v", err)
	}
	if !strings.Contains(text, "$19.98") {
		t.Errorf("expected 30d revenue in dollars, got %q", text)
	}
}

func TestFormatCrypto(t *testing.T) {
	usdt := &model.Payment{Method: model.PaymentMethodUSDT, AmountCrypto: 9_990_000}
	if got := formatCrypto(usdt); got != "9.99 USDT" {
		t.Errorf("formatCrypto(usdt) = %q, want 9.99 USDT", got)
	}
	ton := &model.Payment{Method: model.PaymentMethodTON, AmountCrypto: 1_500_000_000}
	if got := formatCrypto(ton); got != "1.50 TON" {
		t.Errorf("formatCrypto(ton) = %q, want 1.50 TON", got)
	}
}
