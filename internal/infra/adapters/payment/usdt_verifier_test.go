package payment

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"tg-trade-suite/internal/domain"
)

const (
	testContract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	testWallet   = "0x1111111111111111111111111111111111111111"
)

func testUSDTVerifier() *USDTVerifier {
	log := zerolog.Nop()
	return &USDTVerifier{
		contract: common.HexToAddress(testContract),
		minConf:  12,
		log:      &log,
	}
}

func transferLog(contract, to string, amount int64) *types.Log {
	return &types.Log{
		Address: common.HexToAddress(contract),
		Topics: []common.Hash{
			transferSig,
			common.HexToHash("0x2222222222222222222222222222222222222222"),
			common.BytesToHash(common.HexToAddress(to).Bytes()),
		},
		Data: common.BigToHash(big.NewInt(amount)).Bytes(),
	}
}

func confirmedReceipt(logs ...*types.Log) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs:        logs,
	}
}

func TestUSDTCheckAcceptsMatchingTransfer(t *testing.T) {
	v := testUSDTVerifier()
	head := big.NewInt(150)

	receipt := confirmedReceipt(transferLog(testContract, testWallet, 5_000_000))
	if err := v.check(receipt, head, "0xabc", testWallet, 5_000_000); err != nil {
		t.Fatalf("exact amount: %v", err)
	}
	receipt = confirmedReceipt(transferLog(testContract, testWallet, 9_000_000))
	if err := v.check(receipt, head, "0xabc", testWallet, 5_000_000); err != nil {
		t.Fatalf("overpayment: %v", err)
	}
}

func TestUSDTCheckVerdicts(t *testing.T) {
	v := testUSDTVerifier()
	head := big.NewInt(150)

	t.Run("reverted transaction", func(t *testing.T) {
		receipt := &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(100)}
		if err := v.check(receipt, head, "0xabc", testWallet, 1); !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("got %v, want ErrVerificationFailed", err)
		}
	})

	t.Run("underpayment", func(t *testing.T) {
		receipt := confirmedReceipt(transferLog(testContract, testWallet, 1_000_000))
		if err := v.check(receipt, head, "0xabc", testWallet, 5_000_000); !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("got %v, want ErrVerificationFailed", err)
		}
	})

	t.Run("no transfer to our wallet", func(t *testing.T) {
		other := "0x3333333333333333333333333333333333333333"
		receipt := confirmedReceipt(transferLog(testContract, other, 5_000_000))
		if err := v.check(receipt, head, "0xabc", testWallet, 5_000_000); !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("got %v, want ErrVerificationFailed", err)
		}
	})

	t.Run("transfer on another contract ignored", func(t *testing.T) {
		receipt := confirmedReceipt(transferLog("0x4444444444444444444444444444444444444444", testWallet, 5_000_000))
		if err := v.check(receipt, head, "0xabc", testWallet, 5_000_000); !errors.Is(err, domain.ErrVerificationFailed) {
			t.Fatalf("got %v, want ErrVerificationFailed", err)
		}
	})
}

func TestUSDTCheckTooFewConfirmationsIsRetryable(t *testing.T) {
	v := testUSDTVerifier()

	receipt := confirmedReceipt(transferLog(testContract, testWallet, 5_000_000))
	// Mined five blocks ago with minConf 12: not decidable yet.
	err := v.check(receipt, big.NewInt(105), "0xabc", testWallet, 5_000_000)
	if err == nil {
		t.Fatal("expected an error below the confirmation threshold")
	}
	if errors.Is(err, domain.ErrVerificationFailed) {
		t.Fatalf("a young transaction must stay retryable, got verdict: %v", err)
	}
}
