package adapter

import (
	"context"

	"tg-trade-suite/internal/domain/model"
)

// ChainVerifier checks a user-submitted transaction hash against the chain.
type ChainVerifier interface {
	Method() model.PaymentMethod
	// VerifyTransaction confirms that txHash moved at least expectedAmount
	// (in the method's minor units) to wallet. A nil error means verified;
	// domain.ErrVerificationFailed means the chain rejects the claim;
	// any other error is transient and worth retrying.
	VerifyTransaction(ctx context.Context, txHash, wallet string, expectedAmount int64) error
}
