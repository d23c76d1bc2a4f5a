package adapter

import (
	"context"

	"tg-trade-suite/internal/domain/model"
)

// VisionRequest carries one chart image plus optional prompt enrichment.
type VisionRequest struct {
	ImageData []byte
	MimeType  string // image/jpeg or image/png
	// IndicatorSnapshot, when non-empty, is appended to the prompt so the
	// model can cross-check live indicator values against the chart.
	IndicatorSnapshot string
}

// VisionAnalyzer is the port for chart-image analysis.
type VisionAnalyzer interface {
	// AnalyzeChart returns the normalized structured result. Implementations
	// own retries and timeouts; a returned error is final.
	AnalyzeChart(ctx context.Context, req VisionRequest) (*model.AnalysisResult, error)
	ModelName() string
}
