package model

import (
	"time"

	"tg-trade-suite/internal/domain"
)

// SystemTelegramID is the reserved Telegram ID of the seeded system user.
// Real Telegram IDs are positive, so 0 can never collide.
const SystemTelegramID int64 = 0

// User is a domain entity representing a Telegram user in our system.
// Quota state lives on the row itself: the daily counter is reset lazily by
// date comparison at read/write time, never by a background job.
type User struct {
	ID                int64
	TelegramID        int64
	Username          string
	FirstName         string
	DailyAnalysesUsed int
	DailyResetDate    time.Time // date-only, UTC
	PurchasedAnalyses int
	TotalAnalyses     int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewUser(tgID int64, username, firstName string) (*User, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		TelegramID:     tgID,
		Username:       username,
		FirstName:      firstName,
		DailyResetDate: Today(now),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Today truncates t to a UTC calendar date.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResetDailyIfStale zeroes the daily counter when the stored reset date is
// before today. Returns true when a reset happened.
func (u *User) ResetDailyIfStale(now time.Time) bool {
	today := Today(now)
	if u.DailyResetDate.Before(today) {
		u.DailyAnalysesUsed = 0
		u.DailyResetDate = today
		return true
	}
	return false
}

// Consume spends one analysis: free daily allotment first, then purchased
// credits. Callers must hold a row lock; see UserRepository.FindByIDForUpdate.
func (u *User) Consume(now time.Time, dailyFree int) error {
	if !u.IsActive {
		return domain.ErrUserDisabled
	}
	u.ResetDailyIfStale(now)
	switch {
	case u.DailyAnalysesUsed < dailyFree:
		u.DailyAnalysesUsed++
	case u.PurchasedAnalyses > 0:
		u.PurchasedAnalyses--
	default:
		return domain.ErrQuotaExceeded
	}
	u.UpdatedAt = now
	return nil
}

// Refund returns one analysis after a failed pipeline run. The daily counter
// is preferred so a purchased credit is never burned on our own failure.
func (u *User) Refund(now time.Time) {
	if u.DailyAnalysesUsed > 0 && Today(now).Equal(u.DailyResetDate) {
		u.DailyAnalysesUsed--
	} else {
		u.PurchasedAnalyses++
	}
	u.UpdatedAt = now
}

// RemainingFree reports how many free analyses remain today.
func (u *User) RemainingFree(now time.Time, dailyFree int) int {
	used := u.DailyAnalysesUsed
	if u.DailyResetDate.Before(Today(now)) {
		used = 0
	}
	if used >= dailyFree {
		return 0
	}
	return dailyFree - used
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }
