package payment

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
)

var _ adapter.ChainVerifier = (*USDTVerifier)(nil)

var transferSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// USDTVerifier confirms ERC-20 USDT transfers on an Ethereum-compatible
// chain. Amounts are in USDT minor units (6 decimals), matching
// payments.amount_crypto.
type USDTVerifier struct {
	client   *ethclient.Client
	contract common.Address
	minConf  int64
	log      *zerolog.Logger
}

func NewUSDTVerifier(rpcURL, contractAddr string, minConfirmations int, log *zerolog.Logger) (*USDTVerifier, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc %s: %w", rpcURL, err)
	}
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid usdt contract address %q", contractAddr)
	}
	if minConfirmations <= 0 {
		minConfirmations = 12
	}
	return &USDTVerifier{
		client:   client,
		contract: common.HexToAddress(contractAddr),
		minConf:  int64(minConfirmations),
		log:      log,
	}, nil
}

func (v *USDTVerifier) Close() { v.client.Close() }

func (v *USDTVerifier) Method() model.PaymentMethod { return model.PaymentMethodUSDT }

func (v *USDTVerifier) VerifyTransaction(ctx context.Context, txHash, wallet string, expectedAmount int64) error {
	if !common.IsHexAddress(wallet) {
		return fmt.Errorf("%w: bad wallet address", domain.ErrVerificationFailed)
	}
	hash := common.HexToHash(strings.TrimSpace(txHash))

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		// ethereum.NotFound included: a receipt can lag the user's submission
		// by a few blocks, so the claim stays retryable until the payment
		// expires. Node errors are retryable for the same reason.
		return fmt.Errorf("receipt: %w", err)
	}
	header, err := v.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("latest header: %w", err)
	}
	return v.check(receipt, header.Number, txHash, wallet, expectedAmount)
}

// check is the pure verdict: it decides from a fetched receipt whether the
// claim is confirmed (nil), permanently rejected (ErrVerificationFailed) or
// not decidable yet (plain error, retry later).
func (v *USDTVerifier) check(receipt *types.Receipt, head *big.Int, txHash, wallet string, expectedAmount int64) error {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: transaction reverted", domain.ErrVerificationFailed)
	}
	confirmations := new(big.Int).Sub(head, receipt.BlockNumber).Int64()
	if confirmations < v.minConf {
		return fmt.Errorf("%d/%d confirmations", confirmations, v.minConf)
	}

	want := common.HexToAddress(wallet)
	for _, lg := range receipt.Logs {
		if !matchesTransfer(lg, v.contract, want) {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data)
		if value.Cmp(big.NewInt(expectedAmount)) >= 0 {
			v.log.Info().Str("tx_hash", txHash).Int64("amount", expectedAmount).
				Int64("confirmations", confirmations).Msg("usdt transfer verified")
			return nil
		}
		return fmt.Errorf("%w: transferred %s units, expected %d",
			domain.ErrVerificationFailed, value.String(), expectedAmount)
	}
	return fmt.Errorf("%w: no matching transfer to %s", domain.ErrVerificationFailed, wallet)
}

func matchesTransfer(lg *types.Log, contract, to common.Address) bool {
	if lg.Address != contract || len(lg.Topics) != 3 {
		return false
	}
	if lg.Topics[0] != transferSig {
		return false
	}
	return common.BytesToAddress(lg.Topics[2].Bytes()) == to
}
