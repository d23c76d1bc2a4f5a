package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
	"tg-trade-suite/internal/domain/ports/repository"
)

// memTxManager runs the callback without a real transaction; the in-memory
// repos below are atomic enough for unit tests.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.User // by ID
	nextID  int64
	saveErr error // simulate save failures
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[int64]*model.User), nextID: 1}
}

func (m *memUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		for _, e := range m.store {
			if e.TelegramID == u.TelegramID {
				return domain.ErrAlreadyExists
			}
		}
		u.ID = m.nextID
		m.nextID++
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(_ context.Context, _ repository.Tx, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByTelegramID(_ context.Context, _ repository.Tx, tgID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.TelegramID == tgID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	return m.FindByID(ctx, tx, id)
}

func (m *memUserRepo) List(_ context.Context, _ repository.Tx, offset, limit int) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.User
	for _, u := range m.store {
		cp := *u
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUserRepo) CountUsers(context.Context, repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memUserRepo) IncrementTotalAnalyses(_ context.Context, _ repository.Tx, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.TotalAnalyses++
	return nil
}

// memAnalysisRepo stores analyses in memory.
type memAnalysisRepo struct {
	mu     sync.RWMutex
	store  map[int64]*model.ChartAnalysis
	nextID int64
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{store: make(map[int64]*model.ChartAnalysis), nextID: 1}
}

func (m *memAnalysisRepo) Save(_ context.Context, _ repository.Tx, a *model.ChartAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAnalysisRepo) FindByID(_ context.Context, _ repository.Tx, id int64) (*model.ChartAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAnalysisRepo) FindByShareID(_ context.Context, _ repository.Tx, shareID string) (*model.ChartAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.ShareID == shareID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAnalysisRepo) ListByUser(_ context.Context, _ repository.Tx, userID int64, limit int) ([]*model.ChartAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ChartAnalysis
	for _, a := range m.store {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAnalysisRepo) CountAnalyses(context.Context, repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// memPaymentRepo stores payments in memory and enforces the pending-only
// mutation rule the SQL layer guarantees in production.
type memPaymentRepo struct {
	mu     sync.RWMutex
	store  map[int64]*model.Payment
	nextID int64
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[int64]*model.Payment), nextID: 1}
}

func (m *memPaymentRepo) Save(_ context.Context, _ repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.TxHash != "" {
		for _, e := range m.store {
			if e.TxHash == p.TxHash {
				return domain.ErrTxHashAlreadyUsed
			}
		}
	}
	if p.ID == 0 {
		p.ID = m.nextID
		m.nextID++
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(_ context.Context, _ repository.Tx, id int64) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByTxHash(_ context.Context, _ repository.Tx, txHash string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.TxHash == txHash {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindPendingByUser(_ context.Context, _ repository.Tx, userID int64) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.UserID == userID && p.Status == model.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) AttachTxHash(_ context.Context, _ repository.Tx, id int64, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.TxHash == txHash && p.ID != id {
			return domain.ErrTxHashAlreadyUsed
		}
	}
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return domain.ErrPaymentNotPending
	}
	p.TxHash = txHash
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPaymentRepo) UpdateStatus(_ context.Context, _ repository.Tx, id int64, status model.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return domain.ErrPaymentNotPending
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPaymentRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, cutoff time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListByStatus(_ context.Context, _ repository.Tx, status model.PaymentStatus, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPaymentRepo) SumConfirmedCentsSince(_ context.Context, _ repository.Tx, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusConfirmed && !p.UpdatedAt.Before(since) {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

// memUsageLogRepo collects appended actions for assertions.
type memUsageLogRepo struct {
	mu   sync.Mutex
	logs []model.UsageLog
}

func newMemUsageLogRepo() *memUsageLogRepo { return &memUsageLogRepo{} }

func (m *memUsageLogRepo) Append(_ context.Context, _ repository.Tx, userID int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, model.UsageLog{UserID: userID, Action: action, CreatedAt: time.Now()})
	return nil
}

func (m *memUsageLogRepo) ListByUser(_ context.Context, _ repository.Tx, userID int64, limit int) ([]*model.UsageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UsageLog
	for i := range m.logs {
		if m.logs[i].UserID == userID {
			cp := m.logs[i]
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsageLogRepo) CountByActionSince(_ context.Context, _ repository.Tx, action string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.logs {
		if m.logs[i].Action == action && !m.logs[i].CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memUsageLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for i := range m.logs {
		out = append(out, m.logs[i].Action)
	}
	return out
}

func (m *memUsageLogRepo) has(action string) bool {
	for _, a := range m.actions() {
		if a == action {
			return true
		}
	}
	return false
}

// fakeVision returns a fixed result or error.
type fakeVision struct {
	result *model.AnalysisResult
	err    error
	calls  int
}

func (f *fakeVision) ModelName() string { return "fake-vision" }

func (f *fakeVision) AnalyzeChart(context.Context, adapter.VisionRequest) (*model.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

// fakeStore records writes without touching disk.
type fakeStore struct {
	puts int
	fail error
}

func (f *fakeStore) Backend() string { return "fake" }

func (f *fakeStore) Put(_ context.Context, _ []byte, ext string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.puts++
	return "/tmp/chart_test." + strings.TrimPrefix(ext, "."), nil
}

// fakeLocker always grants the lock unless told otherwise.
type fakeLocker struct {
	denied bool
}

func (f *fakeLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	if f.denied {
		return "", domain.ErrLockNotAcquired
	}
	return "token", nil
}

func (f *fakeLocker) Unlock(context.Context, string, string) error { return nil }

// fakeVerifier scripts chain verification outcomes per hash.
type fakeVerifier struct {
	method   model.PaymentMethod
	verdicts map[string]error
}

func (f *fakeVerifier) Method() model.PaymentMethod { return f.method }

func (f *fakeVerifier) VerifyTransaction(_ context.Context, txHash, _ string, _ int64) error {
	if err, ok := f.verdicts[txHash]; ok {
		return err
	}
	return nil
}
