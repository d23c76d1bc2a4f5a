package market

import (
	"regexp"
	"strings"
)

// symbolPattern matches file stems like "BTCUSDT_1h" or "ethusdt-15m" that
// trading platforms commonly produce when exporting chart screenshots.
var symbolPattern = regexp.MustCompile(`(?i)\b([A-Z]{2,10}USDT)[-_ ]?(1m|5m|15m|30m|1h|4h|1d)\b`)

// DetectSymbol extracts a USDT trading pair and timeframe from an uploaded
// file name. Returns ok=false when the name carries no recognizable pair.
func DetectSymbol(filename string) (pair, timeframe string, ok bool) {
	stem := filename
	if i := strings.LastIndexByte(stem, '/'); i >= 0 {
		stem = stem[i+1:]
	}
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	m := symbolPattern.FindStringSubmatch(stem)
	if m == nil {
		return "", "", false
	}
	return strings.ToUpper(m[1]), strings.ToLower(m[2]), true
}
