package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tg-trade-suite/internal/domain"
	"tg-trade-suite/internal/domain/model"
	"tg-trade-suite/internal/infra/logging"
)

var shareTmpl = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Chart Analysis</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 640px; margin: 2rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.4rem; }
.badge { display: inline-block; padding: .2rem .6rem; border-radius: 1rem; font-size: .85rem; margin-right: .4rem; background: #eee; }
.badge.up { background: #d7f5dc; } .badge.down { background: #fde3e3; }
.levels { margin: .3rem 0; }
.summary { margin-top: 1rem; line-height: 1.5; }
footer { margin-top: 2rem; font-size: .8rem; color: #888; }
</style>
</head>
<body>
<h1>📊 Chart Analysis</h1>
<p>
<span class="badge {{if eq .Result.Trend "uptrend"}}up{{else if eq .Result.Trend "downtrend"}}down{{end}}">Trend: {{.Result.Trend}}</span>
<span class="badge">Bias: {{.Result.MarketBias}}</span>
<span class="badge">Risk: {{.Result.RiskLevel}}</span>
<span class="badge">Confidence: {{printf "%.0f" .ConfidencePct}}%</span>
</p>
{{if .Result.SupportLevels}}<div class="levels">🟢 Support: {{range $i, $v := .Result.SupportLevels}}{{if $i}}, {{end}}{{$v}}{{end}}</div>{{end}}
{{if .Result.ResistanceLevels}}<div class="levels">🔴 Resistance: {{range $i, $v := .Result.ResistanceLevels}}{{if $i}}, {{end}}{{$v}}{{end}}</div>{{end}}
{{if .Result.Patterns}}<div class="levels">📐 Patterns: {{range $i, $v := .Result.Patterns}}{{if $i}}, {{end}}{{$v}}{{end}}</div>{{end}}
<p class="summary"><strong>💡 {{.Result.KeyInsights}}</strong></p>
<p class="summary">{{.Result.Summary}}</p>
<footer>Analyzed {{.CreatedAt.Format "Jan 2, 2006 15:04 MST"}} · AI-generated, not financial advice.</footer>
</body>
</html>`))

type sharePage struct {
	Result        model.AnalysisResult
	ConfidencePct float64
	CreatedAt     time.Time
}

// handleShare renders the public read-only page for a shared analysis. The
// token is the only lookup key; nothing about the owner is exposed.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	ctx := logging.WithShareID(r.Context(), token)

	analysis, err := s.analysisUC.GetByShareID(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logging.With(ctx, s.log).Error().Err(err).Msg("share lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(analysis.AnalysisJSON, &result); err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("stored analysis unreadable")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	result.Normalize()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = shareTmpl.Execute(w, sharePage{
		Result:        result,
		ConfidencePct: result.Confidence * 100,
		CreatedAt:     analysis.CreatedAt,
	})
}
