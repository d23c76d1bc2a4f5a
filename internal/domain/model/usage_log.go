package model

import "time"

// Usage actions recorded in usage_logs. Rows are never updated or deleted.
const (
	ActionStart            = "start"
	ActionAnalyzeRequested = "analyze_requested"
	ActionAnalyzeCompleted = "analyze_completed"
	ActionAnalyzeFailed    = "analyze_failed"
	ActionQuotaDenied      = "quota_denied"
	ActionPaymentCreated   = "payment_created"
	ActionPaymentConfirmed = "payment_confirmed"
	ActionShareViewed      = "share_viewed"
)

type UsageLog struct {
	ID        int64
	UserID    int64
	Action    string
	CreatedAt time.Time
}
