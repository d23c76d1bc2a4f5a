package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // created; awaiting a chain transaction
	PaymentStatusConfirmed PaymentStatus = "confirmed" // transaction verified on-chain; credits granted
	PaymentStatusFailed    PaymentStatus = "failed"    // verification rejected the transaction
	PaymentStatusExpired   PaymentStatus = "expired"   // no valid transaction before the deadline
)

// Terminal reports whether the status admits no further transitions.
// Payment rows are mutable only while pending.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusFailed || s == PaymentStatusExpired
}

type PaymentMethod string

const (
	PaymentMethodTON  PaymentMethod = "ton"
	PaymentMethodUSDT PaymentMethod = "usdt"
)

// Payment records one crypto payment attempt for a credit package.
// Amounts are stored in integer minor units to avoid float errors:
// USD cents for reporting, and the exact on-chain amount the verifier
// must observe (nanotons for TON, 6-decimal units for USDT).
type Payment struct {
	ID                int64
	UserID            int64
	Method            PaymentMethod
	AmountCents       int64
	AmountCrypto      int64
	TxHash            string // user-submitted chain transaction hash
	WalletAddress     string // our destination wallet for this method
	AnalysesPurchased int
	Status            PaymentStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Package is one purchasable credit bundle from the catalog file.
type Package struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Analyses   int    `yaml:"analyses"`
	PriceCents int64  `yaml:"price_cents"`
	TONNano    int64  `yaml:"ton_nano"`
	USDTUnits  int64  `yaml:"usdt_units"`
}

// CryptoAmount returns the expected on-chain amount for the given method.
func (p Package) CryptoAmount(method PaymentMethod) int64 {
	switch method {
	case PaymentMethodTON:
		return p.TONNano
	case PaymentMethodUSDT:
		return p.USDTUnits
	}
	return 0
}
