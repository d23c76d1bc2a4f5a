package ai

import (
	"context"

	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.VisionAnalyzer = (*limitedVision)(nil)

type limitedVision struct {
	inner adapter.VisionAnalyzer
	sem   chan struct{}
}

// NewLimitedVision caps concurrent upstream calls; extra callers block until
// a slot frees or their context expires.
func NewLimitedVision(inner adapter.VisionAnalyzer, maxConcurrent int) adapter.VisionAnalyzer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedVision{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedVision) ModelName() string { return l.inner.ModelName() }

func (l *limitedVision) AnalyzeChart(ctx context.Context, req adapter.VisionRequest) (*model.AnalysisResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.AnalyzeChart(ctx, req)
}
