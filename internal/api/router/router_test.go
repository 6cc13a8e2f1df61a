package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadonwu-dev/axwise/internal/analysis"
	httpmiddleware "github.com/jadonwu-dev/axwise/internal/http/middleware"
	"github.com/jadonwu-dev/axwise/internal/proxy"
	"github.com/jadonwu-dev/axwise/internal/sentiment"
	"github.com/jadonwu-dev/axwise/internal/simulation"
	"github.com/jadonwu-dev/axwise/pkg/logging"
)

func newTestRouter(t *testing.T, backend http.Handler, auth httpmiddleware.AuthConfig) http.Handler {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := proxy.NewClient(proxy.Config{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	logger := logging.Default()
	classifier := sentiment.New(sentiment.DefaultConfig(), logger)

	poller := simulation.NewPoller(simulation.PollerConfig{
		Client:   client,
		Store:    simulation.NewMemoryStore(),
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	})
	manager := simulation.NewManager(poller)
	t.Cleanup(manager.Shutdown)

	reg := prometheus.NewRegistry()

	cfg := &Config{
		Logger:            logger,
		ProxyHandler:      proxy.NewHandler(client, logger, nil),
		AnalysisHandler:   analysis.NewHandler(client, classifier, nil, logger, nil),
		SimulationHandler: simulation.NewHandler(client, manager, simulation.NewMemoryStore(), logger),
		MetricsHandler:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Auth:              auth,
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), httpmiddleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), httpmiddleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterRelaysSessionList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/research/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessions": []}`))
	})

	router := newTestRouter(t, mux, httpmiddleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/research/sessions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sessions": []}`, rr.Body.String())
}

func TestRouterAnalysisRouteTakesPrecedence(t *testing.T) {
	// The analysis route runs the sentiment fallback instead of the plain
	// relay, so the response must carry sentiment statements.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/research/sessions/s-1/analysis", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"themes": [], "patterns": []}`))
	})
	mux.HandleFunc("/api/research/sessions/s-1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages": []}`))
	})

	router := newTestRouter(t, mux, httpmiddleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/research/sessions/s-1/analysis", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var result analysis.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.NotNil(t, result.Sentiment)
	assert.True(t, result.FallbackUsed)
}

func TestRouterSimulationBridge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/research/simulation-bridge/progress/sim-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"progress": 40}`))
	})

	router := newTestRouter(t, mux, httpmiddleware.AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/research/simulation-bridge/progress/sim-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"progress": 40}`, rr.Body.String())
}

func TestRouterAuthGuardsAPIRoutes(t *testing.T) {
	auth := httpmiddleware.AuthConfig{Enabled: true, DevToken: "local-dev"}
	router := newTestRouter(t, http.NotFoundHandler(), auth)

	req := httptest.NewRequest(http.MethodGet, "/api/research/sessions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Health stays public.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterAuthAcceptsDevToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/research/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessions": []}`))
	})

	auth := httpmiddleware.AuthConfig{Enabled: true, DevToken: "local-dev"}
	router := newTestRouter(t, mux, auth)

	req := httptest.NewRequest(http.MethodGet, "/api/research/sessions", nil)
	req.Header.Set("Authorization", "Bearer local-dev")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
