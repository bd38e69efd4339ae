// Package api serves the engine's outbound interface: read-only snapshot,
// ledger and summary endpoints, the playback controls, and a minimal hosted
// demo page. The render surface proper is a consumer of these endpoints,
// not part of the engine.
package api

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/meridian-autonomy/vigil/pkg/engine"
	"github.com/meridian-autonomy/vigil/pkg/replay"
)

// Server exposes one engine over HTTP.
type Server struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewServer wraps an engine.
func NewServer(e *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: e, log: log}
}

// Routes registers all endpoints on the mux, wrapped by the rate limiter.
func (s *Server) Routes(mux *http.ServeMux, rl *RateLimiter) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if rl == nil {
			return h
		}
		return rl.Middleware(h)
	}

	mux.Handle("/demo", wrap(s.handleDemoUI))
	mux.Handle("/api/v1/snapshot", wrap(s.handleSnapshot))
	mux.Handle("/api/v1/ledger", wrap(s.handleLedger))
	mux.Handle("/api/v1/summary", wrap(s.handleSummary))
	mux.Handle("/api/v1/export", wrap(s.handleExport))
	mux.Handle("/api/v1/restart", wrap(s.handleRestart))
	mux.Handle("/api/v1/autoplay", wrap(s.handleAutoplay))
	mux.Handle("/api/v1/human-response", wrap(s.handleHumanResponse))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"records": s.engine.Records(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	if snap.Summary == nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "mission not terminal, no summary sealed yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, snap.Summary)
}

// handleExport streams the ledger as JSONL, the format `vigil replay`
// verifies offline.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="mission-ledger.jsonl"`)
	if err := replay.Export(w, s.engine.Records()); err != nil {
		s.log.Error("ledger export failed", "err", err)
	}
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Restart()
	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Autoplay bool `json:"autoplay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	s.engine.SetAutoplay(body.Autoplay)
	writeJSON(w, http.StatusOK, map[string]bool{"autoplay": body.Autoplay})
}

func (s *Server) handleHumanResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.ProvideHumanResponse()
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

// --- UI ---

func (s *Server) handleDemoUI(w http.ResponseWriter, r *http.Request) {
	tmpl := template.Must(template.New("demo").Parse(demoPage))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, s.engine.Snapshot()); err != nil {
		s.log.Error("demo page render failed", "err", err)
	}
}

const demoPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Vigil Mission Demo</title>
    <style>
        :root { --bg: #0a0a0a; --card: #161616; --text: #ededed; --accent: #0070f3; --border: #333; --success: #4caf50; --fail: #f44336; }
        body { margin: 0 auto; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: var(--bg); color: var(--text); padding: 20px; max-width: 800px; line-height: 1.5; }
        h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
        .banner { background: #333; padding: 10px; border-radius: 4px; font-size: 0.9rem; margin-bottom: 2rem; border-left: 4px solid var(--accent); }
        .card { background: var(--card); border: 1px solid var(--border); border-radius: 6px; padding: 1rem; margin-bottom: 1rem; }
        .label { color: #888; font-size: 0.8rem; text-transform: uppercase; }
        .value { font-size: 1.2rem; font-variant-numeric: tabular-nums; }
        code { color: var(--accent); }
    </style>
</head>
<body>
    <h1>Vigil Mission Demo</h1>
    <div class="banner">Synthetic playback — fingerprints are demo tokens, not cryptographic hashes.</div>
    <div class="card"><div class="label">Run</div><div class="value"><code>{{.RunID}}</code> ({{.Scenario}})</div></div>
    <div class="card"><div class="label">Phase</div><div class="value">{{.Phase}} — {{.ElapsedClock}}</div></div>
    <div class="card"><div class="label">Ledger</div><div class="value">{{.TotalRecords}} records · {{.Pending}} pending · {{.Synced}} synced · {{.Verified}} verified</div></div>
    <div class="card"><div class="label">Chain head</div><div class="value"><code>{{.ChainHead}}</code></div></div>
    <p>Live data: <code>GET /api/v1/snapshot</code> · <code>GET /api/v1/ledger</code> · <code>GET /api/v1/export</code></p>
</body>
</html>`
