package usecase

import (
	"strings"
	"testing"

	"tg-trade-suite/internal/domain/model"
)

func TestRenderAnalysis(t *testing.T) {
	vol := "rising on breakout"
	stop := 41000.5
	r := &model.AnalysisResult{
		Trend:            "uptrend",
		Confidence:       0.85,
		SupportLevels:    []float64{41200, 40800.25},
		ResistanceLevels: []float64{43500},
		Patterns:         []string{"ascending triangle"},
		VolumeAnalysis:   &vol,
		KeyInsights:      "breakout likely",
		RiskLevel:        "medium",
		MarketBias:       "bullish",
		PriceTargets:     []float64{44000},
		StopLossLevel:    &stop,
		Summary:          "Strong setup.",
	}
	r.Normalize()
	out := RenderAnalysis(r)

	for _, want := range []string{
		"Uptrend", "Bullish", "85%", "Medium",
		"41200, 40800.25", "43500", "44000", "41000.5",
		"ascending triangle", "rising on breakout",
		"breakout likely", "Strong setup.",
		"Not financial advice",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered message missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAnalysisSkipsEmptySections(t *testing.T) {
	r := &model.AnalysisResult{}
	r.Normalize()
	out := RenderAnalysis(r)
	for _, absent := range []string{"Support:", "Resistance:", "Targets:", "Stop Loss:", "Patterns:"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty result should omit %q:\n%s", absent, out)
		}
	}
}
