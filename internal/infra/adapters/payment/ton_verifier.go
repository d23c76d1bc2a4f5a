package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
)

var _ adapter.ChainVerifier = (*TONVerifier)(nil)

// TONVerifier confirms TON transfers via a toncenter-style HTTP API by
// scanning the destination wallet's recent incoming transactions for the
// claimed hash. Amounts are in nanotons.
type TONVerifier struct {
	apiURL string
	apiKey string
	client *http.Client
	log    *zerolog.Logger
}

func NewTONVerifier(apiURL, apiKey string, log *zerolog.Logger) *TONVerifier {
	if apiURL == "" {
		apiURL = "https://toncenter.com/api/v2"
	}
	return &TONVerifier{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

func (v *TONVerifier) Method() model.PaymentMethod { return model.PaymentMethodTON }

type tonTransactionsResponse struct {
	OK     bool `json:"ok"`
	Result []struct {
		TransactionID struct {
			Hash string `json:"hash"`
		} `json:"transaction_id"`
		InMsg struct {
			Value       string `json:"value"` // nanotons, decimal string
			Destination string `json:"destination"`
		} `json:"in_msg"`
	} `json:"result"`
}

func (v *TONVerifier) VerifyTransaction(ctx context.Context, txHash, wallet string, expectedAmount int64) error {
	q := url.Values{}
	q.Set("address", wallet)
	q.Set("limit", "50")
	if v.apiKey != "" {
		q.Set("api_key", v.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.apiURL+"/getTransactions?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("ton api request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ton api status %d", resp.StatusCode)
	}

	var body tonTransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("ton api decode: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("ton api returned not-ok")
	}

	want := strings.TrimSpace(txHash)
	for _, t := range body.Result {
		if !strings.EqualFold(t.TransactionID.Hash, want) {
			continue
		}
		value, err := strconv.ParseInt(t.InMsg.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: unparsable value %q", domain.ErrVerificationFailed, t.InMsg.Value)
		}
		if value < expectedAmount {
			return fmt.Errorf("%w: received %d nanotons, expected %d",
				domain.ErrVerificationFailed, value, expectedAmount)
		}
		v.log.Info().Str("tx_hash", want).Int64("nanotons", value).Msg("ton transfer verified")
		return nil
	}
	// toncenter indexes with a delay of seconds to minutes, so an absent hash
	// is not yet a verdict; the payment deadline bounds the retries.
	return fmt.Errorf("hash not found in recent wallet transactions")
}
