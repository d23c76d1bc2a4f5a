package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// AnalysisResult is the normalized payload returned by the vision model.
// Field semantics mirror the prompt's JSON contract; unknown or invalid
// values are coerced to the documented defaults before persisting.
type AnalysisResult struct {
	Trend             string    `json:"trend"`
	Confidence        float64   `json:"confidence"`
	SupportLevels     []float64 `json:"support_levels"`
	ResistanceLevels  []float64 `json:"resistance_levels"`
	Patterns          []string  `json:"patterns"`
	VolumeAnalysis    *string   `json:"volume_analysis"`
	Indicators        *string   `json:"indicators"`
	KeyInsights       string    `json:"key_insights"`
	RiskLevel         string    `json:"risk_level"`
	TimeframeDetected *string   `json:"timeframe_detected"`
	MarketBias        string    `json:"market_bias"`
	PriceTargets      []float64 `json:"price_targets"`
	StopLossLevel     *float64  `json:"stop_loss_level"`
	Summary           string    `json:"summary"`
}

// Normalize coerces out-of-contract values to safe defaults, following the
// same rules for every field: enums fall back to their neutral member,
// confidence is clamped to [0,1].
func (r *AnalysisResult) Normalize() {
	switch r.Trend {
	case "uptrend", "downtrend", "sideways":
	default:
		r.Trend = "sideways"
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		r.Confidence = 0.5
	}
	switch r.MarketBias {
	case "bullish", "bearish", "neutral":
	default:
		r.MarketBias = "neutral"
	}
	switch r.RiskLevel {
	case "low", "medium", "high":
	default:
		r.RiskLevel = "medium"
	}
	if r.KeyInsights == "" {
		r.KeyInsights = "Analysis completed."
	}
	if r.Summary == "" {
		r.Summary = "Chart analysis completed."
	}
}

// ChartAnalysis is an append-only audit record of one analysis run.
// It is created once at completion and never updated.
type ChartAnalysis struct {
	ID             int64
	UserID         int64
	ImagePath      string
	AnalysisJSON   []byte // raw normalized result, stored as JSONB
	AnalysisText   string // rendered Markdown reply
	ProcessingTime float64
	AIConfidence   float64
	ShareID        string // opaque public token; empty means not shareable
	CreatedAt      time.Time
}

// NewShareID mints an opaque, unique, URL-safe share token. ULIDs are
// lexicographically sortable by mint time but carry no user linkage.
func NewShareID() string {
	return ulid.Make().String()
}
