package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-autonomy/vigil/pkg/config"
	"github.com/meridian-autonomy/vigil/pkg/engine"
	"github.com/meridian-autonomy/vigil/pkg/replay"
)

func newTestServer(t *testing.T) (*engine.Engine, *httptest.Server) {
	t.Helper()

	profile := config.DefaultProfile()
	profile.Autoplay = false
	eng := engine.New(engine.Options{
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Profile:   profile,
		Freshness: func() string { return "fixed" },
	})

	mux := http.NewServeMux()
	NewServer(eng, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes(mux, nil)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return eng, srv
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestSnapshotEndpoint(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.Tick(time.Unix(0, 0))

	var snap engine.Snapshot
	resp := getJSON(t, srv.URL+"/api/v1/snapshot", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, config.DefaultProfile().Scenario, snap.Scenario)
	assert.Equal(t, 1, snap.TotalRecords) // MISSION_START
}

func TestLedgerEndpoint(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.Tick(time.Unix(0, 0))

	var body struct {
		Records []json.RawMessage `json:"records"`
	}
	resp := getJSON(t, srv.URL+"/api/v1/ledger", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Records, 1)
}

func TestSummaryBeforeTerminal(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.Tick(time.Unix(0, 0))

	resp := getJSON(t, srv.URL+"/api/v1/summary", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSummaryAfterTerminal(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.ProvideHumanResponse()
	eng.RunScripted(100*time.Millisecond, 5000, nil)
	require.True(t, eng.Terminal())

	var summary engine.Summary
	resp := getJSON(t, srv.URL+"/api/v1/summary", &summary)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, summary.Fingerprint)
	assert.Equal(t, 2, summary.WaypointsCompleted)
}

func TestExportIsReplayable(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.ProvideHumanResponse()
	eng.RunScripted(100*time.Millisecond, 5000, nil)

	resp, err := http.Get(srv.URL + "/api/v1/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	result, err := replay.FromReader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, eng.Snapshot().TotalRecords, result.TotalRecords)
}

func TestRestartEndpoint(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.Tick(time.Unix(0, 0))
	before := eng.Snapshot().RunID

	resp, err := http.Post(srv.URL+"/api/v1/restart", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, before, eng.Snapshot().RunID)

	// GET is rejected.
	getResp := getJSON(t, srv.URL+"/api/v1/restart", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestAutoplayEndpoint(t *testing.T) {
	eng, srv := newTestServer(t)
	t.Cleanup(eng.Stop)

	resp, err := http.Post(srv.URL+"/api/v1/autoplay", "application/json",
		strings.NewReader(`{"autoplay": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, eng.Autoplay())
	assert.True(t, eng.Running())

	bad, err := http.Post(srv.URL+"/api/v1/autoplay", "application/json",
		strings.NewReader(`not json`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHumanResponseEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/human-response", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDemoPageRenders(t *testing.T) {
	eng, srv := newTestServer(t)
	eng.Tick(time.Unix(0, 0))

	resp, err := http.Get(srv.URL + "/demo")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Vigil Mission Demo")
	assert.Contains(t, string(page), eng.Snapshot().RunID)
}

func TestRateLimiterRejectsBursts(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"10.0.0.1:5000", "10.0.0.2:5000", "10.0.0.3:5000"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}
