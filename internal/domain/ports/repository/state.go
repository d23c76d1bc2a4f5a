package repository

import "context"

// ConversationState tracks a user's position in a multi-step bot flow,
// e.g. waiting for a tx hash after picking a package. Ephemeral; lives in
// Redis with a TTL.
type ConversationState struct {
	Step      string `json:"step"`
	PaymentID int64  `json:"payment_id,omitempty"`
	PackageID string `json:"package_id,omitempty"`
}

const (
	StepAwaitingMethod = "awaiting_method"
	StepAwaitingTxHash = "awaiting_tx_hash"
)

type StateRepository interface {
	SetState(ctx context.Context, tgID int64, state *ConversationState) error
	GetState(ctx context.Context, tgID int64) (*ConversationState, error)
	ClearState(ctx context.Context, tgID int64) error
}
