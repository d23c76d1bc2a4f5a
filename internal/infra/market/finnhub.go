// Package market enriches chart analyses with exchange data: it fetches
// recent OHLCV candles and condenses them into a short indicator snapshot
// that rides along with the image in the vision prompt.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// resolutions maps chart timeframes to Finnhub candle resolutions.
var resolutions = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"4h":  "60", // finnhub has no 4h bucket; we fetch 1h and span further back
	"1d":  "D",
}

type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Client is a thin Finnhub REST client for crypto candles.
type Client struct {
	apiKey string
	http   *http.Client
	base   string
	log    *zerolog.Logger
}

func NewClient(apiKey string, log *zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		base:   finnhubBaseURL,
		log:    log,
	}
}

// Enabled reports whether the client has an API key; without one the
// pipeline simply skips enrichment.
func (c *Client) Enabled() bool { return c.apiKey != "" }

type candleResponse struct {
	Status string    `json:"s"`
	Times  []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
}

// CryptoCandles fetches up to `count` recent candles for a BINANCE pair such
// as "BTCUSDT" at the given timeframe ("1h", "1d", ...).
func (c *Client) CryptoCandles(ctx context.Context, pair, timeframe string, count int) ([]Candle, error) {
	res, ok := resolutions[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	now := time.Now()
	span := barSpan(timeframe) * time.Duration(count+10)
	q := url.Values{}
	q.Set("symbol", "BINANCE:"+pair)
	q.Set("resolution", res)
	q.Set("from", strconv.FormatInt(now.Add(-span).Unix(), 10))
	q.Set("to", strconv.FormatInt(now.Unix(), 10))
	q.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/crypto/candle?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub status %d", resp.StatusCode)
	}

	var body candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("finnhub decode: %w", err)
	}
	if body.Status != "ok" || len(body.Close) == 0 {
		return nil, fmt.Errorf("no candle data for %s %s", pair, timeframe)
	}

	n := len(body.Close)
	candles := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		candles = append(candles, Candle{
			Time:   time.Unix(body.Times[i], 0),
			Open:   body.Open[i],
			High:   body.High[i],
			Low:    body.Low[i],
			Close:  body.Close[i],
			Volume: body.Volume[i],
		})
	}
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	c.log.Debug().Str("pair", pair).Str("timeframe", timeframe).Int("candles", len(candles)).
		Msg("fetched market candles")
	return candles, nil
}

func barSpan(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	default:
		return 24 * time.Hour
	}
}
