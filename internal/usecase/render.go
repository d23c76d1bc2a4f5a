package usecase

import (
	"fmt"
	"strings"

	"tg-trade-suite/internal/domain/model"
)

// RenderAnalysis formats a normalized result as the Markdown reply sent to
// the user and stored in chart_analyses.analysis_text.
func RenderAnalysis(r *model.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("📊 *Chart Analysis*\n\n")
	fmt.Fprintf(&b, "%s *Trend:* %s\n", trendEmoji(r.Trend), title(r.Trend))
	fmt.Fprintf(&b, "%s *Market Bias:* %s\n", biasEmoji(r.MarketBias), title(r.MarketBias))
	fmt.Fprintf(&b, "🎯 *Confidence:* %.0f%%\n", r.Confidence*100)
	fmt.Fprintf(&b, "%s *Risk Level:* %s\n", riskEmoji(r.RiskLevel), title(r.RiskLevel))

	if len(r.SupportLevels) > 0 {
		fmt.Fprintf(&b, "\n🟢 *Support:* %s\n", joinLevels(r.SupportLevels))
	}
	if len(r.ResistanceLevels) > 0 {
		fmt.Fprintf(&b, "🔴 *Resistance:* %s\n", joinLevels(r.ResistanceLevels))
	}
	if len(r.PriceTargets) > 0 {
		fmt.Fprintf(&b, "🏁 *Targets:* %s\n", joinLevels(r.PriceTargets))
	}
	if r.StopLossLevel != nil {
		fmt.Fprintf(&b, "🛑 *Stop Loss:* %s\n", formatLevel(*r.StopLossLevel))
	}
	if len(r.Patterns) > 0 {
		fmt.Fprintf(&b, "\n📐 *Patterns:* %s\n", strings.Join(r.Patterns, ", "))
	}
	if r.VolumeAnalysis != nil && *r.VolumeAnalysis != "" {
		fmt.Fprintf(&b, "📦 *Volume:* %s\n", *r.VolumeAnalysis)
	}
	if r.Indicators != nil && *r.Indicators != "" {
		fmt.Fprintf(&b, "📈 *Indicators:* %s\n", *r.Indicators)
	}
	if r.TimeframeDetected != nil && *r.TimeframeDetected != "" {
		fmt.Fprintf(&b, "⏱ *Timeframe:* %s\n", *r.TimeframeDetected)
	}

	fmt.Fprintf(&b, "\n💡 *Key Insight:* %s\n", r.KeyInsights)
	fmt.Fprintf(&b, "\n📝 %s\n", r.Summary)
	b.WriteString("\n_AI-generated analysis. Not financial advice._")
	return b.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func trendEmoji(trend string) string {
	switch trend {
	case "uptrend":
		return "📈"
	case "downtrend":
		return "📉"
	}
	return "➡️"
}

func biasEmoji(bias string) string {
	switch bias {
	case "bullish":
		return "🐂"
	case "bearish":
		return "🐻"
	}
	return "⚖️"
}

func riskEmoji(risk string) string {
	switch risk {
	case "low":
		return "🟢"
	case "high":
		return "🔺"
	}
	return "🟡"
}

func joinLevels(levels []float64) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, formatLevel(l))
	}
	return strings.Join(parts, ", ")
}

func formatLevel(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
