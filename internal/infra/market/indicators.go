package market

import (
	"fmt"
	"math"
	"strings"
)

// minBars is the smallest series the snapshot works with: the 200-SMA trend
// filter dominates, plus warmup for MACD.
const minBars = 120

// Snapshot condenses a candle series into the compact text block appended to
// the vision prompt. Returns "" when the series is too short to be useful.
func Snapshot(pair, timeframe string, candles []Candle) string {
	if len(candles) < minBars {
		return ""
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	last := closes[len(closes)-1]
	rsi := rsi14(closes)
	macdHist := macdHistogram(closes)
	pctB := bollingerPctB(closes)

	var trend string
	if sma := sma(closes, 200); sma > 0 {
		if last >= sma {
			trend = "above 200-SMA (bullish bias)"
		} else {
			trend = "below 200-SMA (bearish bias)"
		}
	} else {
		trend = "200-SMA unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Latest exchange data for %s (%s candles):\n", pair, timeframe)
	fmt.Fprintf(&b, "- Last close: %s\n", trimFloat(last))
	fmt.Fprintf(&b, "- RSI(14): %.1f\n", rsi)
	fmt.Fprintf(&b, "- MACD(12,26,9) histogram: %+.4f\n", macdHist)
	fmt.Fprintf(&b, "- Bollinger %%B(20,2): %.2f\n", pctB)
	fmt.Fprintf(&b, "- Price %s\n", trend)
	return b.String()
}

func sma(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

func ema(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)
	out[period-1] = sma(values[:period], period)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// rsi14 is Wilder's RSI over the last 14 periods with smoothed averages.
func rsi14(closes []float64) float64 {
	const period = 14
	if len(closes) <= period {
		return 50
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / period
	avgLoss := loss / period
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(period-1) + g) / period
		avgLoss = (avgLoss*(period-1) + l) / period
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macdHistogram returns the latest MACD(12,26) histogram value against its
// 9-period signal line.
func macdHistogram(closes []float64) float64 {
	fast := ema(closes, 12)
	slow := ema(closes, 26)
	if fast == nil || slow == nil {
		return 0
	}
	macd := make([]float64, 0, len(closes)-25)
	for i := 25; i < len(closes); i++ {
		macd = append(macd, fast[i]-slow[i])
	}
	signal := ema(macd, 9)
	if signal == nil {
		return 0
	}
	return macd[len(macd)-1] - signal[len(signal)-1]
}

// bollingerPctB is %B over a 20-period band at 2 standard deviations:
// 0 at the lower band, 1 at the upper band.
func bollingerPctB(closes []float64) float64 {
	const period = 20
	if len(closes) < period {
		return 0.5
	}
	window := closes[len(closes)-period:]
	mid := sma(window, period)
	var variance float64
	for _, v := range window {
		variance += (v - mid) * (v - mid)
	}
	sd := math.Sqrt(variance / period)
	if sd == 0 {
		return 0.5
	}
	last := closes[len(closes)-1]
	lower := mid - 2*sd
	return (last - lower) / (4 * sd)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
