package ai

import (
	"context"
	"time"

	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
)

var _ adapter.VisionAnalyzer = (*NoopVision)(nil)

// NoopVision implements adapter.VisionAnalyzer for local/dev testing.
// It returns a canned neutral result instead of calling a real model.
type NoopVision struct{}

func NewNoopVision() *NoopVision { return &NoopVision{} }

func (n *NoopVision) ModelName() string { return "noop-vision" }

func (n *NoopVision) AnalyzeChart(ctx context.Context, _ adapter.VisionRequest) (*model.AnalysisResult, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := &model.AnalysisResult{
		Trend:       "sideways",
		Confidence:  0.5,
		KeyInsights: "Noop adapter: no real analysis performed.",
		RiskLevel:   "medium",
		MarketBias:  "neutral",
		Summary:     "Development placeholder analysis.",
	}
	res.Normalize()
	return res, nil
}
